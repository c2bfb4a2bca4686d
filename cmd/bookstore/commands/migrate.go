package commands

import (
	applog "bookstore/internal/log"
	"bookstore/internal/repos"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database schema",
	Long: `Create tables and indexes if they do not exist. Safe to run repeatedly.

Examples:
  bookstore migrate
  bookstore migrate --driver postgres --dsn "postgres://localhost/bookstore?sslmode=disable"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.ValidateStore(); err != nil {
			return err
		}
		db, err := repos.OpenDB(cfg.DBDriver, cfg.DBDSN)
		if err != nil {
			return err
		}
		defer db.Close()
		applog.Event("db.migrate", nil, map[string]any{"driver": cfg.DBDriver})
		return nil
	},
}
