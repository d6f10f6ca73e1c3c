package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read by the CLI
const EnvPrefix = "WASM_PKG"

var (
	// Version information
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"

	// Colors
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	infoColor    = color.New(color.FgCyan)
	warnColor    = color.New(color.FgYellow)
	debugColor   = color.New(color.FgMagenta)

	// For testing - allows redirecting output
	colorOutput io.Writer = os.Stdout
	errorOutput io.Writer = os.Stderr
)

// NewRootCmd builds the wasm-pkg command tree
func NewRootCmd() *cobra.Command {
	var (
		verbose bool
		noColor bool
	)

	cmd := &cobra.Command{
		Use:   "wasm-pkg",
		Short: "Push and pull WebAssembly components to and from OCI registries",
		Long: `wasm-pkg moves WebAssembly components in and out of OCI registries.

Components are stored as OCI artifacts with a wasm config blob and a single
application/wasm layer, so any OCI distribution registry can hold them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			initConfig()
			if noColor {
				color.NoColor = true
			}
		},
		Version: versionString(),
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", cmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("no-color", cmd.PersistentFlags().Lookup("no-color"))

	cmd.AddCommand(
		newPushCmd(),
		newPullCmd(),
		newDepsCmd(),
		newConfigCmd(),
		newLoginCmd(),
		newLogoutCmd(),
	)

	return cmd
}

// Execute runs the root command and reports any error on stderr
func Execute() error {
	err := NewRootCmd().ExecuteContext(context.Background())
	if err != nil {
		Error("%v", err)
	}
	return err
}

// SetVersion sets the version information
func SetVersion(v, c, b string) {
	version = v
	commit = c
	buildDate = b
}

func versionString() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate)
}

// initConfig wires environment variables into viper
func initConfig() {
	viper.SetEnvPrefix(EnvPrefix)
	viper.AutomaticEnv()
}

// Helper functions for consistent output

// Success prints a success message
func Success(format string, args ...interface{}) {
	_, _ = fmt.Fprintln(colorOutput, successColor.Sprintf("✓ "+format, args...))
}

// Error prints an error message
func Error(format string, args ...interface{}) {
	_, _ = fmt.Fprintln(errorOutput, errorColor.Sprintf("✗ "+format, args...))
}

// Info prints an info message
func Info(format string, args ...interface{}) {
	_, _ = fmt.Fprintln(colorOutput, infoColor.Sprintf("ℹ "+format, args...))
}

// Warn prints a warning message
func Warn(format string, args ...interface{}) {
	_, _ = fmt.Fprintln(errorOutput, warnColor.Sprintf("⚠ "+format, args...))
}

// Debug prints a debug message if verbose mode is enabled
func Debug(format string, args ...interface{}) {
	if IsVerbose() {
		_, _ = fmt.Fprintln(errorOutput, debugColor.Sprintf("» "+format, args...))
	}
}

// IsVerbose returns true if verbose mode is enabled
func IsVerbose() bool {
	return viper.GetBool("verbose")
}
