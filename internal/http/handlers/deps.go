package handlers

import (
	"bookstore/internal/config"
	"bookstore/internal/repos"
	"bookstore/internal/services"

	"github.com/jmoiron/sqlx"
)

type Deps struct {
	AuthSvc *services.AuthService

	AuthHandler        *AuthHandler
	BookHandler        *BookHandler
	GenreHandler       *GenreHandler
	TransactionHandler *TransactionHandler
}

func NewDeps(db *sqlx.DB, cfg config.Config) (*Deps, error) {
	ttl, err := cfg.TokenTTL()
	if err != nil {
		return nil, err
	}

	userRepo := repos.NewUserRepo(db)
	genreRepo := repos.NewGenreRepo(db)
	bookRepo := repos.NewBookRepo(db)
	orderRepo := repos.NewOrderRepo(db)

	authSvc := services.NewAuthService(userRepo, cfg.JWTSecret, ttl, cfg.BcryptCost)
	catalogSvc := services.NewCatalogService(genreRepo, bookRepo)
	orderSvc := services.NewOrderService(db, userRepo, bookRepo, orderRepo)

	return &Deps{
		AuthSvc:            authSvc,
		AuthHandler:        &AuthHandler{Auth: authSvc},
		BookHandler:        &BookHandler{Catalog: catalogSvc},
		GenreHandler:       &GenreHandler{Catalog: catalogSvc},
		TransactionHandler: &TransactionHandler{Orders: orderSvc},
	}, nil
}
