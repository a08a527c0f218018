package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/IlyasAtabaev731/solvy-ledger/internal/domain/models"
	"github.com/IlyasAtabaev731/solvy-ledger/internal/lib/jwt"
	"github.com/IlyasAtabaev731/solvy-ledger/internal/storage"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidInput       = errors.New("username and password are required")
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
)

type UserStorage interface {
	SaveUser(ctx context.Context, username string, passHash []byte, balance decimal.Decimal) (models.User, error)
	User(ctx context.Context, username string) (models.User, error)
	UserByID(ctx context.Context, id int64) (models.User, error)
}

type Auth struct {
	log            *slog.Logger
	storage        UserStorage
	secret         []byte
	tokenTTL       time.Duration
	initialBalance decimal.Decimal
}

func New(log *slog.Logger, storage UserStorage, secret []byte, tokenTTL time.Duration, initialBalance decimal.Decimal) *Auth {
	return &Auth{
		log:            log,
		storage:        storage,
		secret:         secret,
		tokenTTL:       tokenTTL,
		initialBalance: initialBalance,
	}
}

// Register creates a user and returns it with a fresh session token.
func (a *Auth) Register(ctx context.Context, username, password string) (models.User, string, error) {
	const op = "auth.Auth.Register"

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return models.User{}, "", ErrInvalidInput
	}

	log := a.log.With(slog.String("op", op), slog.String("username", username))
	log.Info("Register new user")

	passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", "error", err)
		return models.User{}, "", fmt.Errorf("%s: %w", op, err)
	}

	user, err := a.storage.SaveUser(ctx, username, passHash, a.initialBalance)
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			return models.User{}, "", fmt.Errorf("%s: %w", op, ErrUserExists)
		}
		log.Error("Failed to save user", "error", err)
		return models.User{}, "", fmt.Errorf("%s: %w", op, err)
	}

	token, err := jwt.NewToken(user, a.secret, a.tokenTTL)
	if err != nil {
		return models.User{}, "", fmt.Errorf("%s: %w", op, err)
	}

	return user, token, nil
}

// Login checks the password and returns the user with a fresh session token. Unknown users and
// wrong passwords are indistinguishable to the caller.
func (a *Auth) Login(ctx context.Context, username, password string) (models.User, string, error) {
	const op = "auth.Auth.Login"

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return models.User{}, "", ErrInvalidInput
	}

	user, err := a.storage.User(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.User{}, "", ErrInvalidCredentials
		}
		a.log.Error("Failed to get user", slog.String("op", op), "error", err)
		return models.User{}, "", fmt.Errorf("%s: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return models.User{}, "", ErrInvalidCredentials
	}

	token, err := jwt.NewToken(user, a.secret, a.tokenTTL)
	if err != nil {
		return models.User{}, "", fmt.Errorf("%s: %w", op, err)
	}

	return user, token, nil
}

func (a *Auth) User(ctx context.Context, id int64) (models.User, error) {
	const op = "auth.Auth.User"

	user, err := a.storage.UserByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.User{}, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// Authenticate resolves a bearer token into a session.
func (a *Auth) Authenticate(token string) (jwt.Session, error) {
	return jwt.ParseToken(token, a.secret)
}
