// Package cmd provides the CLI commands for Flow Reader.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/xvierd/flow-reader/internal/adapters/library"
	"github.com/xvierd/flow-reader/internal/adapters/tui"
	"github.com/xvierd/flow-reader/internal/domain"
	"github.com/xvierd/flow-reader/internal/log"
)

var (
	// Version info (set at build time via ldflags)
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"

	// Global flags
	configPath string
	logFile    string
	logLevel   string
	jsonOutput bool

	// Reader flags
	durationFlag time.Duration
	startFlag    bool
	dirFlag      string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "flow-reader [file.pdf]",
	Short: "Flow Reader - distraction-free PDF reading in timed focus sessions",
	Long: `Flow Reader opens a PDF in the terminal and locks it in fullscreen for
a fixed focus session. The session ends only when its countdown does.

Run "flow-reader" to pick a document from the library directory, or pass a
file to select it directly.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initializeServices()
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return cleanupServices()
	},
	RunE: runReader,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the config file (default: ~/.flow-reader/config.toml)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to this file (default from config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output results in JSON format")

	rootCmd.Flags().DurationVarP(&durationFlag, "duration", "d", 0, "Focus duration, e.g. 25m (default from config)")
	rootCmd.Flags().BoolVar(&startFlag, "start", false, "Start the session immediately (requires a file)")
	rootCmd.Flags().StringVar(&dirFlag, "dir", "", "Library directory to pick documents from (default from config)")

	// Set version - cobra handles --version automatically
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("Flow Reader\nVersion: {{.Version}}\n")

	// Add subcommands
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(configCmd)
}

// sessionDuration resolves the focus duration from the flag or the config.
func sessionDuration(cmd *cobra.Command) (time.Duration, error) {
	d := time.Duration(app.config.Session.DefaultDuration)
	if cmd.Flags().Changed("duration") {
		d = durationFlag
	}
	if d < time.Second || d%time.Second != 0 {
		return 0, fmt.Errorf("--duration %s: %w", d, domain.ErrInvalidDuration)
	}
	return d, nil
}

// runReader launches the interactive reader.
func runReader(cmd *cobra.Command, args []string) error {
	duration, err := sessionDuration(cmd)
	if err != nil {
		return err
	}
	if startFlag && len(args) == 0 {
		return errors.New("--start needs a file to read")
	}

	var doc *domain.Document
	if len(args) == 1 {
		doc, err = library.ReadDocument(args[0])
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", args[0], err)
		}
	}

	logger := log.WithComponent("cli")
	ctx := setupSignalHandler()
	stack := newSessionStack(app.config, int(duration/time.Second), tui.TerminalSupported(os.Stdout))
	defer stack.Close(context.Background())

	if doc != nil {
		if err := stack.controller.SelectDocument(doc); err != nil {
			return fmt.Errorf("failed to select %s: %w", doc.Name, err)
		}
	}

	reader := tui.NewReader(stack.controller, stack.display, tui.ReaderOptions{
		Options: tui.Options{
			Presets:   app.config.Session.PresetDurations(),
			Library:   stack.library,
			Theme:     &app.config.Theme,
			AutoStart: startFlag,
		},
		Watcher: stack.library,
	}, log.Base())

	logger.Info().
		Str("library", app.config.Library.Dir).
		Dur("duration", duration).
		Bool("auto_start", startFlag).
		Msg("starting reader")
	return reader.Run(ctx)
}
