package commands

import (
	"fmt"
	"io"
	"log"
	"os"

	"bookstore/internal/config"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	dsn        string
	driver     string
)

var rootCmd = &cobra.Command{
	Use:   "bookstore",
	Short: "Bookstore back-office API",
	Long: `Bookstore back-office API: books and genres catalog, user accounts with
bearer tokens, and an order workflow with stock control and statistics.

Without a subcommand the HTTP server is started (same as "bookstore serve").`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("CONFIG_FILE"), "YAML config file (env: CONFIG_FILE)")
	rootCmd.PersistentFlags().StringVar(&dsn, "dsn", "", "Database DSN, overrides DB_DSN")
	rootCmd.PersistentFlags().StringVar(&driver, "driver", "", "Database driver: sqlite, postgres or pgx; overrides DB_DRIVER")

	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd)
}

// loadConfig reads file and env, then applies the command-line overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.Read(configPath)
	if err != nil {
		return cfg, err
	}
	if dsn != "" {
		cfg.DBDSN = dsn
	}
	if driver != "" {
		cfg.DBDriver = driver
	}
	return cfg, nil
}

// setupLogging tees the standard logger into LOG_FILE when one is configured.
func setupLogging(cfg config.Config) io.Closer {
	if cfg.LogFile == "" {
		return io.NopCloser(nil)
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		return io.NopCloser(nil)
	}
	log.SetOutput(io.MultiWriter(os.Stdout, f))
	return f
}
