package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hession/sqlitemcp/internal/cli"
	"github.com/hession/sqlitemcp/internal/config"
	"github.com/hession/sqlitemcp/internal/logger"
	"github.com/hession/sqlitemcp/internal/server"
	"github.com/hession/sqlitemcp/internal/store"
	"github.com/hession/sqlitemcp/internal/tools"
	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
)

func main() {
	var (
		configDir  string
		serverType config.Transport
	)

	loadConfig := func() (*config.Config, error) {
		if configDir != "" {
			config.SetConfigDir(configDir)
		}
		cfg, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		return cfg, nil
	}

	serve := func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("server-type") {
			cfg.Server.ServerType = serverType
		}

		if err := initLogger(cfg); err != nil {
			return err
		}
		defer logger.Close()

		logConfigInfo(cfg)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		manager := store.NewManager(cfg.Store.DataDir, cfg.Store.FileName)
		warmStore(ctx, manager)

		server.Version = version
		return server.New(cfg, tools.NewDefaultRegistry(manager)).Run(ctx)
	}

	rootCmd := &cobra.Command{
		Use:   "sqlitemcp",
		Short: "sqlitemcp - SQL tools over the Model Context Protocol",
		Long: `sqlitemcp exposes a SQLite people table to MCP clients through two tools:

  • add_data  - run an INSERT statement, returns true or false
  • read_data - run a SELECT statement, returns the rows

The server listens on http://127.0.0.1:8000/sse by default, or speaks
JSON-RPC over stdin/stdout with --server-type=stdio.`,
		SilenceUsage: true,
		RunE:         serve,
	}
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ./config)")
	rootCmd.Flags().Var(&serverType, "server-type", "transport to serve on: sse or stdio")

	// serve subcommand, same as the root command
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the tool server",
		RunE:  serve,
	}
	serveCmd.Flags().Var(&serverType, "server-type", "transport to serve on: sse or stdio")

	// console subcommand
	var consoleURL string
	consoleCmd := &cobra.Command{
		Use:   "console",
		Short: "Call tools on a running server from an interactive prompt",
		RunE: func(cmd *cobra.Command, args []string) error {
			url := consoleURL
			if url == "" {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				url = cfg.SSEURL()
			}
			return cli.Run(cmd.Context(), url)
		},
	}
	consoleCmd.Flags().StringVar(&consoleURL, "url", "", "SSE endpoint of the server (default from config)")

	// config subcommand
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			fmt.Println(cfg.String())

			path, _ := config.ConfigPath()
			fmt.Printf("\nConfig file path: %s\n", path)
			return nil
		},
	}

	// version subcommand
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("sqlitemcp v%s\n", version)
		},
	}

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(consoleCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// initLogger sets up the process-wide logger once. In stdio mode stdout
// carries the protocol, so the console copy goes to stderr.
func initLogger(cfg *config.Config) error {
	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}

	console := os.Stdout
	if cfg.Server.ServerType == config.TransportStdio {
		console = os.Stderr
	}

	if err := logger.Init(logger.Config{
		LogDir:     config.LogDir(),
		Level:      level,
		MaxDays:    cfg.Log.MaxDays,
		ConsoleOut: cfg.Log.Console,
		Console:    console,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// logConfigInfo logs the effective configuration at startup
func logConfigInfo(cfg *config.Config) {
	logger.Info("Starting server...")
	logger.Info("Env: %s", cfg.Env)
	logger.Info("Server: name=%s, type=%s, addr=%s", cfg.Server.Name, cfg.Server.ServerType, cfg.Addr())
	if cfg.Server.ServerType == config.TransportSSE {
		logger.Info("SSE endpoint: %s", cfg.SSEURL())
	}
	logger.Info("Store: %s", cfg.DBPath())
	logger.Info("Log: level=%s, max_days=%d, username=%s", cfg.Log.Level, cfg.Log.MaxDays, cfg.Log.Username)
}

// warmStore creates the table up front so a broken store shows in the
// startup log. Tools still open their own connection per call.
func warmStore(ctx context.Context, manager *store.Manager) {
	conn, err := manager.Initialize(ctx)
	if err != nil {
		logger.Warn("Store not ready at %s: %v", manager.Path(), err)
		return
	}
	conn.Close()
}
