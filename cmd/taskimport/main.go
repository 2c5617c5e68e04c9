// Command taskimport imports task exports from the command line and can
// serve the web importer.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/taskimport/internal/config"
	"github.com/JonMunkholm/taskimport/internal/core"
	"github.com/JonMunkholm/taskimport/internal/logging"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		printError(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// cli holds state shared by subcommands once the root pre-run has loaded it.
type cli struct {
	configPath string
	logLevel   string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "taskimport",
		Short:         "Import task exports into folders, projects and tasks",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.load(cmd)
		},
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "YAML config file (default: $CONFIG_FILE)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")

	root.AddCommand(importCmd(c))
	root.AddCommand(serveCmd(c))
	root.AddCommand(tagsCmd(c))
	return root
}

// load reads .env, the config file and the environment, then sets up
// logging on stderr so stdout carries only command output.
func (c *cli) load(cmd *cobra.Command) error {
	// A missing .env is normal; explicit environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.Logging.Level = c.logLevel
	}

	logging.SetupWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
	c.cfg = cfg
	return nil
}

// printError writes err for a person: the mapped message when one exists,
// the raw error otherwise.
func printError(w io.Writer, err error) {
	if core.IsUserFacing(err) {
		fmt.Fprintln(w, "Error:", core.FormatUserError(err))
		return
	}
	fmt.Fprintln(w, "Error:", err)
}
