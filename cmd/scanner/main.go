// Package main is the entry point for the Stock Scanner TUI. With no
// subcommand it runs the terminal UI; subcommands drive the same API
// client from the shell.
package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/j-veylop/stockscanner-tui/internal/app"
	"github.com/j-veylop/stockscanner-tui/internal/config"
	"github.com/j-veylop/stockscanner-tui/internal/logger"
	"github.com/j-veylop/stockscanner-tui/internal/services"
	"github.com/j-veylop/stockscanner-tui/internal/ui/tabs/info"
	"github.com/j-veylop/stockscanner-tui/internal/ui/tabs/market"
	"github.com/j-veylop/stockscanner-tui/internal/ui/tabs/network"
	"github.com/j-veylop/stockscanner-tui/internal/ui/tabs/watchlist"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags override configuration loaded from .env files, the YAML
// config file and the environment.
type globalFlags struct {
	apiURL   string
	env      string
	logLevel string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "scanner",
		Short: "Stock Scanner terminal client",
		Long: `Stock Scanner terminal client.

Run without a subcommand to open the dashboard. Configuration comes from
.env files, ~/.config/stockscanner/config.yaml and the environment
(API_BASE_URL, APP_ENV, STORAGE_BACKEND, RATE_LIMIT_MAX, ...).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runTUI(flags)
		},
	}
	root.PersistentFlags().StringVar(&flags.apiURL, "api", "", "API base URL (overrides API_BASE_URL)")
	root.PersistentFlags().StringVar(&flags.env, "env", "", "environment name (overrides APP_ENV)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug|info|warn|error")

	root.AddCommand(
		newVersionCmd(),
		newLoginCmd(flags),
		newLogoutCmd(flags),
		newStatusCmd(flags),
		newHealthCmd(flags),
		newStocksCmd(flags),
		newWatchlistCmd(flags),
		newPortfolioCmd(flags),
		newRequestsCmd(flags),
	)
	return root
}

// loadConfig loads the configuration and applies flag overrides.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if flags.apiURL != "" {
		cfg.APIBaseURL = flags.apiURL
	}
	if flags.env != "" {
		cfg.Environment = flags.env
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// configureLogging points the global logger at LOG_FILE when set, otherwise
// at fallback. The returned func closes the log file.
func configureLogging(cfg *config.Config, fallback io.Writer) (func(), error) {
	level := logger.ParseLevel(cfg.LogLevel)
	if cfg.LogFile == "" {
		logger.Configure(fallback, level)
		return func() {}, nil
	}

	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	logger.Configure(f, level)
	return func() { _ = f.Close() }, nil
}

// runTUI runs the dashboard until the user quits or a signal arrives.
func runTUI(flags *globalFlags) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	// Log lines written to the terminal would tear the alt screen.
	closeLog, err := configureLogging(cfg, io.Discard)
	if err != nil {
		return err
	}
	defer closeLog()

	svcManager, err := services.NewManager(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer func() {
		if closeErr := svcManager.Close(); closeErr != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Warning: error closing services: %v\n", closeErr)
		}
	}()

	model := app.NewModel(svcManager)
	state := model.GetState()
	model.SetTabs([]app.Tab{
		market.New(state),
		watchlist.New(state),
		network.New(state, svcManager),
		info.New(state, svcManager),
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	go func() {
		if _, ok := <-sigChan; ok {
			p.Send(tea.Quit())
		}
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
