package commands

import (
	"context"
	"time"

	"bookstore/internal/apperr"
	"bookstore/internal/config"
	applog "bookstore/internal/log"
	"bookstore/internal/repos"
	"bookstore/internal/services"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
)

const (
	demoEmail    = "demo@bookstore.local"
	demoPassword = "demo-password"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert demo genres, books and a demo user",
	Long: `Create the schema, then insert demo genres and books when the catalog is empty
and a demo user (` + demoEmail + ` / ` + demoPassword + `) when it does not exist yet.`,
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
		return seed(cmd.Context(), db, cfg)
	},
}

func seed(ctx context.Context, db *sqlx.DB, cfg config.Config) error {
	if err := repos.SeedDemo(ctx, db); err != nil {
		return err
	}
	auth := services.NewAuthService(repos.NewUserRepo(db), cfg.JWTSecret, time.Hour, cfg.BcryptCost)
	_, err := auth.Register(ctx, demoEmail, demoPassword, nil)
	if apperr.Is(err, apperr.KindConflict) {
		return nil
	}
	if err != nil {
		return err
	}
	applog.Event("seed.user", nil, map[string]any{"email": demoEmail})
	return nil
}
