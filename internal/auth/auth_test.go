package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/IlyasAtabaev731/solvy-ledger/internal/storage/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuth() *Auth {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(log, memory.New(), []byte("secret"), time.Hour, decimal.NewFromInt(1000))
}

func TestRegisterAndLogin(t *testing.T) {
	a := newAuth()
	ctx := context.Background()

	user, token, err := a.Register(ctx, "  alice ", "password")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.True(t, user.Balance.Equal(decimal.NewFromInt(1000)))

	session, err := a.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, session.UserID)

	logged, token, err := a.Login(ctx, "alice", "password")
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)
	assert.NotEmpty(t, token)
}

func TestRegisterDuplicate(t *testing.T) {
	a := newAuth()
	ctx := context.Background()

	_, _, err := a.Register(ctx, "alice", "password")
	require.NoError(t, err)

	_, _, err = a.Register(ctx, "alice", "other")
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestRegisterEmptyFields(t *testing.T) {
	a := newAuth()

	_, _, err := a.Register(context.Background(), " ", "password")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, _, err = a.Register(context.Background(), "alice", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestLoginInvalidCredentials(t *testing.T) {
	a := newAuth()
	ctx := context.Background()

	_, _, err := a.Register(ctx, "alice", "password")
	require.NoError(t, err)

	_, _, err = a.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = a.Login(ctx, "bob", "password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUser(t *testing.T) {
	a := newAuth()
	ctx := context.Background()

	created, _, err := a.Register(ctx, "alice", "password")
	require.NoError(t, err)

	got, err := a.User(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Username, got.Username)

	_, err = a.User(ctx, created.ID+1)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
