package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/optilist/internal/config"
	"github.com/vango-dev/optilist/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		errors.Print(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "optilist",
		Short: "Optimistic list server and demo client",
		Long: `optilist serves item lists over WebSocket and drives an
optimistic add-item form against them.

Items typed into the form show up at once as pending rows; each row
is confirmed when the server acknowledges the create.

Examples:
  optilist serve
  optilist demo "Buy milk" Eggs
  optilist demo --offline Bread`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: nearest optilist.{json,yaml,yml})")

	load := func() (*config.Config, error) {
		return config.Resolve(configPath)
	}

	root.AddCommand(
		serveCmd(load),
		demoCmd(load),
		configCmd(load),
		versionCmd(),
	)
	return root
}

type loader func() (*config.Config, error)

func newLogger(cfg *config.Config, verbose bool) (*slog.Logger, error) {
	lc := cfg.Log
	if verbose {
		lc.Level = "debug"
	}
	return lc.NewLogger(os.Stderr)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
