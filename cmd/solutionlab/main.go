package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"

	"github.com/TobiSchelling/solutionlab/internal/auth"
	"github.com/TobiSchelling/solutionlab/internal/config"
	"github.com/TobiSchelling/solutionlab/internal/database"
	"github.com/TobiSchelling/solutionlab/internal/generate"
	"github.com/TobiSchelling/solutionlab/internal/literature"
	"github.com/TobiSchelling/solutionlab/internal/llm"
	"github.com/TobiSchelling/solutionlab/internal/logging"
	"github.com/TobiSchelling/solutionlab/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	userFlag   string
	cfg        *config.Config
	logger     = zap.NewNop()
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "solutionlab",
	Short:   "Ranked solution proposals for real-world problems",
	Long:    "solutionlab turns a problem statement into three scored solution proposals, backed by recent literature.",
	Version: version,

	SilenceUsage:      true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		switch {
		case err == nil:
			cfg, err = config.Load(path)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
		case configPath != "":
			return err
		default:
			cfg = config.Default()
		}

		logger, err = logging.New(cfg.Logging.Level, verbose)
		if err != nil {
			return fmt.Errorf("setting up logging: %w", err)
		}
		if path == "" {
			logger.Debug("no config file found, using defaults")
		} else {
			logger.Debug("loaded config", zap.String("path", path))
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().StringVarP(&userFlag, "user", "u", "", "User to act as (default: auth.cli_user)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(problemsCmd)
	rootCmd.AddCommand(tokenCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("solutionlab", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/solutionlab/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to choose the model provider and literature feeds.")
		fmt.Println("API keys are read from the environment variables named in the config.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and provider status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats(cmd.Context(), cliPrincipal())
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		provider := llm.CreateProvider(cmd.Context(), cfg.Generator, logger)
		mode := "demo (fallback solutions)"
		if provider.IsConfigured() {
			mode = provider.Name()
		}

		fmt.Printf("User: %s\n", cliPrincipal().UserID)
		fmt.Printf("Database: %s\n", db.Path())
		fmt.Printf("Generator: %s\n\n", mode)
		fmt.Println("Problems:")
		fmt.Printf("  Total: %d\n", stats.TotalProblems)
		fmt.Printf("  Pending: %d\n", stats.PendingProblems)
		fmt.Printf("  Processing: %d\n", stats.ProcessingProblems)
		fmt.Printf("  Completed: %d\n", stats.CompletedProblems)
		fmt.Printf("  Failed: %d\n", stats.FailedProblems)
		fmt.Printf("\nSolutions: %d\n", stats.Solutions)
		return nil
	},
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		verifier, err := auth.NewVerifier(cfg.Auth.Secret())
		if err != nil && !errors.Is(err, auth.ErrNoSecret) {
			return err
		}

		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, port)

		gin.SetMode(gin.ReleaseMode)
		srv := server.New(db, newGenerator(cmd.Context()), verifier, cfg.Server.RateLimit, logger)
		fmt.Printf("Starting server at http://%s\n", addr)
		fmt.Println("Press Ctrl+C to stop")
		return srv.Serve(cmd.Context(), addr)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to run server on")
}

// --- token command ---

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a development bearer token for the API",
	RunE: func(cmd *cobra.Command, args []string) error {
		verifier, err := auth.NewVerifier(cfg.Auth.Secret())
		if err != nil {
			return fmt.Errorf("%w: set %s", err, cfg.Auth.SecretEnv)
		}
		token, err := verifier.Issue(cliPrincipal().UserID, cfg.Auth.TokenTTL())
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}

func cliPrincipal() auth.Principal {
	if userFlag != "" {
		return auth.Principal{UserID: userFlag}
	}
	return auth.Principal{UserID: cfg.Auth.CLIUser}
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "solutionlab.db")
	return database.Open(dbPath, logger)
}

func newGenerator(ctx context.Context) *generate.Generator {
	provider := llm.CreateProvider(ctx, cfg.Generator, logger)

	var scanner generate.LiteratureScanner
	if s := literature.New(cfg.Literature, logger); s.Enabled() {
		scanner = s
	}
	return generate.New(provider, scanner, generate.OptionsFromConfig(cfg.Generator), logger)
}
