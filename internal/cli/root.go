// Package cli provides the command-line interface for the learning app.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"stock-academy/internal/config"
	"stock-academy/internal/ledger"
	"stock-academy/internal/logging"
	"stock-academy/internal/security"
	"stock-academy/internal/store"
	"stock-academy/internal/study"
	"stock-academy/internal/trading"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2024-03-01"
)

// App holds the application dependencies. They are built lazily once flags
// are parsed.
type App struct {
	ConfigDir string
	Config    *config.Config
	Logger    zerolog.Logger
	Store     store.DataStore
	Audit     *security.AuditLogger
	Access    *security.AccessController
	Validator *security.InputValidator

	simulator *trading.Simulator
	study     *study.Service
}

// Execute builds the root command, runs it, and releases resources.
func Execute() error {
	rootCmd, app := NewRootCmd()
	defer app.Close()
	return rootCmd.Execute()
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd() (*cobra.Command, *App) {
	app := &App{Logger: zerolog.Nop()}

	rootCmd := &cobra.Command{
		Use:   "academy",
		Short: "Stock Academy - learn investing with paper trades and flashcards",
		Long: `Stock Academy is a beginner's sandbox for learning how the stock market works.

Practice with a simulated $100,000 brokerage account that never touches real
money, and study investing terms with spaced-repetition flashcards.

Use 'academy help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.init(cmd)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&app.ConfigDir, "config", "", "config directory (default: ~/.config/stock-academy)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging to stderr")
	rootCmd.PersistentFlags().Bool("ephemeral", false, "keep all state in memory for this run")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newPaperCmd(app))
	rootCmd.AddCommand(newReviewCmd(app))
	addHelpCommands(rootCmd)

	return rootCmd, app
}

func (a *App) init(cmd *cobra.Command) error {
	if a.Config != nil {
		return nil
	}
	if a.ConfigDir == "" {
		a.ConfigDir = config.DefaultConfigDir()
	}

	cfg, err := config.Load(a.ConfigDir)
	if err != nil {
		return err
	}
	a.Config = cfg

	logCfg := cfg.LogConfig()
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		logCfg.Level = "debug"
		logCfg.Console = true
	}
	a.Logger = logging.WithOperation(logging.NewLoggerWithConfig(logCfg), cmd.CommandPath())

	if !cfg.UI.ColorEnabled {
		color.NoColor = true
	}

	if ephemeral, _ := cmd.Flags().GetBool("ephemeral"); ephemeral {
		a.Store = store.NewMemoryStore()
		a.Logger.Debug().Msg("Using in-memory store")
	} else {
		sqliteStore, err := store.NewSQLiteStore(cfg.Storage.DBPath)
		if err != nil {
			return fmt.Errorf("opening %s: %w", cfg.Storage.DBPath, err)
		}
		a.Store = sqliteStore
		a.Logger.Debug().Str("path", cfg.Storage.DBPath).Msg("SQLite store initialized")
	}

	if cfg.Security.AuditEnabled {
		auditCfg := security.DefaultAuditConfig()
		auditCfg.LogDir = cfg.Security.AuditDir
		audit, err := security.NewAuditLogger(auditCfg)
		if err != nil {
			a.Logger.Warn().Err(err).Msg("Audit log unavailable")
		} else {
			a.Audit = audit
		}
	}
	a.Access = security.NewAccessController(cfg.Security.ReadOnlyMode, a.Audit)
	a.Validator = security.NewInputValidator(cfg.Security.StrictValidation)

	return nil
}

// Simulator returns the paper trading simulator, loading the saved portfolio
// on first use.
func (a *App) Simulator(ctx context.Context) (*trading.Simulator, error) {
	if a.simulator != nil {
		return a.simulator, nil
	}
	sim, err := trading.NewSimulator(ctx, trading.SimulatorConfig{
		Ledger: ledger.Options{
			InitialCash:      a.Config.Portfolio.InitialCash,
			MaxResets:        a.Config.Portfolio.MaxResets,
			MaxTrades:        a.Config.Portfolio.MaxTrades,
			MaxResetRequests: a.Config.Portfolio.MaxResetRequests,
		},
		Store:     a.Store,
		Audit:     a.Audit,
		Access:    a.Access,
		Validator: a.Validator,
		Logger:    a.Logger,
	})
	if err != nil {
		return nil, err
	}
	a.simulator = sim
	return sim, nil
}

// Study returns the flashcard study service.
func (a *App) Study() (*study.Service, error) {
	if a.study != nil {
		return a.study, nil
	}
	svc, err := study.NewService(study.ServiceConfig{
		Store:     a.Store,
		Audit:     a.Audit,
		Access:    a.Access,
		Validator: a.Validator,
		Logger:    a.Logger,
	})
	if err != nil {
		return nil, err
	}
	a.study = svc
	return svc, nil
}

// Close releases the store and audit log.
func (a *App) Close() {
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "closing store: %v\n", err)
		}
	}
	if a.Audit != nil {
		a.Audit.Close()
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("Stock Academy v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			path := config.ConfigPath(app.ConfigDir)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": path})
			} else {
				output.Println(path)
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"valid": true})
			}
			output.Success("✓ Configuration is valid")
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Portfolio")
	output.Printf("  Initial Cash:    $%.2f\n", cfg.Portfolio.InitialCash)
	output.Printf("  Max Resets:      %d\n", cfg.Portfolio.MaxResets)
	output.Printf("  Max Trades:      %d\n", cfg.Portfolio.MaxTrades)
	output.Printf("  Max Requests:    %d\n", cfg.Portfolio.MaxResetRequests)
	output.Println()

	output.Bold("Review")
	output.Printf("  Session Size:    %d\n", cfg.Review.SessionSize)
	output.Printf("  Due Window:      %s\n", cfg.Review.DueWindow)
	output.Println()

	output.Bold("Storage")
	output.Printf("  Database:        %s\n", cfg.Storage.DBPath)
	output.Println()

	output.Bold("Security")
	output.Printf("  Read Only:       %v\n", cfg.Security.ReadOnlyMode)
	output.Printf("  Audit:           %v\n", cfg.Security.AuditEnabled)
	output.Printf("  Strict Inputs:   %v\n", cfg.Security.StrictValidation)
	if cfg.Security.ReadOnlyMode {
		output.Dim("  Blocked:")
		for _, op := range security.WriteOperations() {
			output.Dim("    %s", security.OperationDescription(op))
		}
	}
	output.Println()

	output.Bold("Logging")
	output.Printf("  Level:           %s\n", cfg.Logging.Level)
	output.Printf("  File:            %s\n", cfg.Logging.FilePath)
}
