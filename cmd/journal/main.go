package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-prayer-journal/internal/app"
	"github.com/jrsteele09/go-prayer-journal/internal/config"
	"github.com/jrsteele09/go-prayer-journal/internal/logging"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "journal",
		Short:         "Personal prayer journal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "YAML configuration file (default $JOURNAL_CONFIG)")

	root.AddCommand(newLoginCmd(&configPath))
	root.AddCommand(newLogoutCmd(&configPath))
	root.AddCommand(newStatusCmd(&configPath))
	root.AddCommand(newJournalCmd(&configPath))
	root.AddCommand(newAddCmd(&configPath))
	root.AddCommand(newUpdateCmd(&configPath))
	root.AddCommand(newSnoozeCmd(&configPath))
	root.AddCommand(newShowCmd(&configPath))
	root.AddCommand(newAnsweredCmd(&configPath))
	root.AddCommand(newFullCmd(&configPath))
	root.AddCommand(newNotesCmd(&configPath))
	root.AddCommand(newNoteCmd(&configPath))
	return root
}

// loadApp reads configuration, sets up logging and builds the application.
func loadApp(ctx context.Context, configPath string) (*app.App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logging.Setup(cfg.GetLogLevel(), cfg.GetPrettyLogs())
	return app.New(ctx, cfg)
}

// signalContext is cancelled on interrupt or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
