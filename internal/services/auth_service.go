package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"bookstore/internal/apperr"
	"bookstore/internal/domain"
	"bookstore/internal/repos"
	"bookstore/internal/validate"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

// Identity is the authenticated caller, recovered from a bearer token.
type Identity struct {
	ID       string
	Email    string
	Username *string
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

type claims struct {
	ID       string  `json:"id"`
	Email    string  `json:"email"`
	Username *string `json:"username"`
	jwt.RegisteredClaims
}

// LoginResult is the body of a successful login.
type LoginResult struct {
	AccessToken string             `json:"access_token"`
	User        domain.UserSummary `json:"user"`
}

type AuthService struct {
	Users  *repos.UserRepo
	Secret []byte
	TTL    time.Duration
	Cost   int
}

func NewAuthService(users *repos.UserRepo, secret string, ttl time.Duration, cost int) *AuthService {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &AuthService{Users: users, Secret: []byte(secret), TTL: ttl, Cost: cost}
}

func (s *AuthService) Register(ctx context.Context, email, password string, username *string) (domain.Profile, error) {
	const op = "auth.register"
	if strings.TrimSpace(email) == "" || password == "" {
		return domain.Profile{}, apperr.Validation(op, "Email and password are required")
	}
	email, ok := validate.Email(email)
	if !ok {
		return domain.Profile{}, apperr.Validation(op, "Invalid email format")
	}
	if !validate.Password(password) {
		return domain.Profile{}, apperr.Validation(op, "Password must be at least 8 characters")
	}
	if username != nil {
		u := strings.TrimSpace(*username)
		if u == "" {
			username = nil
		} else {
			username = &u
		}
	}

	taken, err := s.Users.EmailTaken(ctx, email)
	if err != nil {
		return domain.Profile{}, apperr.Server(op, err)
	}
	if taken {
		return domain.Profile{}, apperr.Conflict(op, "Email already registered", nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.Cost)
	if err != nil {
		return domain.Profile{}, apperr.Server(op, err)
	}
	u := &domain.User{ID: uuid.NewString(), Email: email, Username: username, Hash: string(hash)}
	if err := s.Users.Create(ctx, u); err != nil {
		if repos.IsUniqueViolation(err) {
			return domain.Profile{}, apperr.Conflict(op, "Email already registered", err)
		}
		return domain.Profile{}, apperr.Server(op, err)
	}
	p := u.Profile()
	p.UpdatedAt = ""
	return p, nil
}

// Login answers unknown email and wrong password identically.
func (s *AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	const op = "auth.login"
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return LoginResult{}, apperr.Validation(op, "Email and password are required")
	}

	u, err := s.Users.ByEmail(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		return LoginResult{}, apperr.Auth(op, "Invalid credentials", nil)
	}
	if err != nil {
		return LoginResult{}, apperr.Server(op, err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(password)) != nil {
		return LoginResult{}, apperr.Auth(op, "Invalid credentials", nil)
	}

	tok, err := s.issue(u)
	if err != nil {
		return LoginResult{}, apperr.Server(op, err)
	}
	return LoginResult{AccessToken: tok, User: u.Summary()}, nil
}

func (s *AuthService) issue(u *domain.User) (string, error) {
	now := time.Now()
	c := claims{
		ID:       u.ID,
		Email:    u.Email,
		Username: u.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.TTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.Secret)
}

// Verify checks signature, algorithm and expiry of a bearer token.
func (s *AuthService) Verify(token string) (Identity, error) {
	const op = "auth.verify"
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return s.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return Identity{}, apperr.Auth(op, "Token expired", ErrTokenExpired)
	case err != nil:
		return Identity{}, apperr.Auth(op, "Invalid token", errors.Join(ErrTokenInvalid, err))
	case c.ID == "":
		return Identity{}, apperr.Auth(op, "Invalid token", ErrTokenInvalid)
	}
	return Identity{ID: c.ID, Email: c.Email, Username: c.Username}, nil
}

// Profile returns the stored profile of the caller in ctx.
func (s *AuthService) Profile(ctx context.Context) (domain.Profile, error) {
	const op = "auth.profile"
	id, ok := IdentityFromContext(ctx)
	if !ok {
		return domain.Profile{}, apperr.Auth(op, "Authorization header with Bearer token required", nil)
	}
	u, err := s.Users.ByID(ctx, id.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Profile{}, apperr.NotFound(op, "User not found")
	}
	if err != nil {
		return domain.Profile{}, apperr.Server(op, err)
	}
	return u.Profile(), nil
}
