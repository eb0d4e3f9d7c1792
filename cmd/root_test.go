package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/xvierd/flow-reader/internal/config"
	"github.com/xvierd/flow-reader/internal/domain"
	"github.com/xvierd/flow-reader/internal/testutil"
)

// executeCmd is a helper to execute a cobra command in tests
func executeCmd(cmd *cobra.Command, args ...string) (stdout string, stderr string, err error) {
	bufOut := new(bytes.Buffer)
	bufErr := new(bytes.Buffer)

	cmd.SetOut(bufOut)
	cmd.SetErr(bufErr)
	cmd.SetArgs(args)

	err = cmd.Execute()
	return bufOut.String(), bufErr.String(), err
}

// setupEnv isolates a test from the user's home directory, resets flags
// left over from earlier executions and returns a config path.
func setupEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)

	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	rootCmd.Flags().VisitAll(reset)
	rootCmd.PersistentFlags().VisitAll(reset)
	t.Cleanup(func() { _ = cleanupServices() })

	return filepath.Join(home, "config.toml")
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestRootCmd_Use verifies the command is registered under its binary name
func TestRootCmd_Use(t *testing.T) {
	if rootCmd == nil {
		t.Fatal("rootCmd should not be nil")
	}

	if rootCmd.Name() != "flow-reader" {
		t.Errorf("rootCmd.Name() = %q, want %q", rootCmd.Name(), "flow-reader")
	}
}

// TestRootCmd_Help tests the --help flag
func TestRootCmd_Help(t *testing.T) {
	setupEnv(t)
	stdout, _, err := executeCmd(rootCmd, "--help")
	if err != nil {
		t.Fatalf("help command failed: %v", err)
	}

	for _, want := range []string{"flow-reader", "--duration", "--start", "--dir"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("help output should contain %q", want)
		}
	}
}

// TestRootCmd_Version tests the --version flag
func TestRootCmd_Version(t *testing.T) {
	setupEnv(t)
	stdout, _, err := executeCmd(rootCmd, "--version")
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if !strings.Contains(stdout, "Version: "+Version) {
		t.Errorf("version output = %q", stdout)
	}
}

// TestRootCmd_Flags tests that global flags are registered
func TestRootCmd_Flags(t *testing.T) {
	for _, name := range []string{"config", "log-file", "log-level", "json"} {
		if rootCmd.PersistentFlags().Lookup(name) == nil {
			t.Errorf("--%s flag should be registered", name)
		}
	}
	for _, name := range []string{"duration", "start", "dir"} {
		if rootCmd.Flags().Lookup(name) == nil {
			t.Errorf("--%s flag should be registered", name)
		}
	}
	if f := rootCmd.Flags().ShorthandLookup("d"); f == nil || f.Name != "duration" {
		t.Error("-d should be the shorthand for --duration")
	}
}

func TestRootCmd_RejectsBadInput(t *testing.T) {
	textFile := writeFile(t, "notes.txt", []byte("plain text"))

	tests := []struct {
		name    string
		args    []string
		wantErr error
		wantMsg string
	}{
		{"sub-second duration", []string{"--duration", "1500ms"}, domain.ErrInvalidDuration, ""},
		{"negative duration", []string{"-d=-5m"}, domain.ErrInvalidDuration, ""},
		{"start without file", []string{"--start"}, nil, "--start needs a file"},
		{"not a pdf", []string{textFile}, domain.ErrUnsupportedMediaType, ""},
		{"missing file", []string{filepath.Join(t.TempDir(), "missing.pdf")}, os.ErrNotExist, ""},
		{"too many args", []string{"a.pdf", "b.pdf"}, nil, "accepts at most 1 arg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := setupEnv(t)
			_, _, err := executeCmd(rootCmd, append([]string{"--config", path}, tt.args...)...)
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %v, want it to mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestInfoCmd(t *testing.T) {
	path := setupEnv(t)
	book := writeFile(t, "book.pdf", testutil.BuildPDF("Chapter One", "Chapter Two"))

	stdout, _, err := executeCmd(rootCmd, "--config", path, "info", book)
	if err != nil {
		t.Fatalf("info failed: %v", err)
	}
	for _, want := range []string{"book.pdf", "application/pdf", "Pages: 2"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("info output should contain %q, got:\n%s", want, stdout)
		}
	}
}

func TestInfoCmd_JSON(t *testing.T) {
	path := setupEnv(t)
	book := writeFile(t, "book.pdf", testutil.BuildPDF("One", "Two", "Three"))

	stdout, _, err := executeCmd(rootCmd, "--config", path, "--json", "info", book)
	if err != nil {
		t.Fatalf("info --json failed: %v", err)
	}

	var got struct {
		Name  string `json:"name"`
		Pages int    `json:"pages"`
	}
	if err := json.Unmarshal([]byte(stdout), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, stdout)
	}
	if got.Name != "book.pdf" || got.Pages != 3 {
		t.Errorf("got %+v, want book.pdf with 3 pages", got)
	}
}

func TestInfoCmd_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		data    []byte
		wantErr error
	}{
		{"corrupt", "broken.pdf", []byte("%PDF-1.4 not really"), domain.ErrCorruptDocument},
		{"no pages", "empty.pdf", testutil.BuildPDF(), domain.ErrEmptyDocument},
		{"zero bytes", "zero.pdf", []byte{}, domain.ErrEmptyDocument},
		{"wrong type", "notes.md", []byte("# notes"), domain.ErrUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := setupEnv(t)
			file := writeFile(t, tt.file, tt.data)
			_, _, err := executeCmd(rootCmd, "--config", path, "info", file)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigCmd_Show(t *testing.T) {
	path := setupEnv(t)

	stdout, _, err := executeCmd(rootCmd, "--config", path, "config")
	if err != nil {
		t.Fatalf("config failed: %v", err)
	}
	for _, want := range []string{path, "Default duration: 25m", "5m, 10m, 15m, 25m, 30m, 45m, 1h", "Initial zoom:     150%"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("config output should contain %q, got:\n%s", want, stdout)
		}
	}
}

func TestConfigCmd_ShowAppliesFlags(t *testing.T) {
	path := setupEnv(t)

	stdout, _, err := executeCmd(rootCmd, "--config", path, "--log-level", "debug", "config")
	if err != nil {
		t.Fatalf("config failed: %v", err)
	}
	if !strings.Contains(stdout, "(debug)") {
		t.Errorf("config output should reflect --log-level, got:\n%s", stdout)
	}
}

func TestConfigCmd_Set(t *testing.T) {
	path := setupEnv(t)

	stdout, _, err := executeCmd(rootCmd, "--config", path, "config", "set", "session.default_duration", "45m")
	if err != nil {
		t.Fatalf("config set failed: %v", err)
	}
	if !strings.Contains(stdout, "Saved: session.default_duration = 45m") {
		t.Errorf("unexpected output %q", stdout)
	}

	cfg, err := config.LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := time.Duration(cfg.Session.DefaultDuration); got != 45*time.Minute {
		t.Errorf("saved default duration = %v, want 45m", got)
	}
}

func TestConfigCmd_SetRejects(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr error
	}{
		{"unknown key", "pomodoro.work_duration", "25m", config.ErrUnknownKey},
		{"zero duration", "session.default_duration", "0s", domain.ErrInvalidDuration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := setupEnv(t)
			_, _, err := executeCmd(rootCmd, "--config", path, "config", "set", tt.key, tt.value)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// TestFormatMinutes tests the formatMinutes helper function
func TestFormatMinutes(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		want     string
	}{
		{"25 minutes", 25 * time.Minute, "25m"},
		{"60 minutes", 60 * time.Minute, "1h"},
		{"90 minutes", 90 * time.Minute, "1h30m"},
		{"120 minutes", 120 * time.Minute, "2h"},
		{"seconds", 90 * time.Second, "1m30s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatMinutes(tt.duration); got != tt.want {
				t.Errorf("formatMinutes(%v) = %q, want %q", tt.duration, got, tt.want)
			}
		})
	}
}
