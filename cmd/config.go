package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/xvierd/flow-reader/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long:  `Print the configuration Flow Reader runs with, after flags are applied.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		printConfig(cmd.OutOrStdout(), app.config, app.configPath)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one configuration value and save it",
	Long: `Change one configuration value and save it to the config file.

Keys:
  ` + strings.Join(config.Keys(), "\n  "),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		// Flags must not leak into the saved file.
		cfg, err := config.LoadFrom(app.configPath)
		if err != nil {
			return err
		}
		if err := config.Set(cfg, args[0], args[1]); err != nil {
			if errors.Is(err, config.ErrUnknownKey) {
				return fmt.Errorf("%w (known keys: %s)", err, strings.Join(config.Keys(), ", "))
			}
			return err
		}
		if err := config.SaveTo(app.configPath, cfg); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "  Saved: %s = %s\n", args[0], args[1])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configSetCmd)
}

func printConfig(out io.Writer, cfg *config.Config, path string) {
	presets := make([]string, 0, len(cfg.Session.Presets))
	for _, p := range cfg.Session.PresetDurations() {
		presets = append(presets, formatMinutes(p))
	}

	notifStatus := "off"
	if cfg.Notifications.Enabled {
		notifStatus = "on"
		if cfg.Notifications.Sound {
			notifStatus = "on (with sound)"
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "  Config file:      %s\n", path)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  Default duration: %s\n", formatMinutes(time.Duration(cfg.Session.DefaultDuration)))
	fmt.Fprintf(out, "  Presets:          %s\n", strings.Join(presets, ", "))
	fmt.Fprintf(out, "  Initial zoom:     %.0f%%\n", cfg.Viewer.InitialZoom*100)
	fmt.Fprintf(out, "  Base width:       %d columns\n", cfg.Viewer.BaseWidth)
	fmt.Fprintf(out, "  Fullscreen wait:  %s\n", cfg.Fullscreen.RequestTimeout)
	fmt.Fprintf(out, "  Notifications:    %s\n", notifStatus)
	fmt.Fprintf(out, "  Library:          %s\n", cfg.Library.Dir)
	fmt.Fprintf(out, "  Log:              %s (%s)\n", cfg.Log.File, cfg.Log.Level)
	fmt.Fprintln(out)
}

// formatMinutes renders a duration compactly, e.g. 25m or 1h30m.
func formatMinutes(d time.Duration) string {
	s := d.String()
	if strings.HasSuffix(s, "m0s") {
		s = s[:len(s)-2]
	}
	if strings.HasSuffix(s, "h0m") {
		s = s[:len(s)-2]
	}
	return s
}
