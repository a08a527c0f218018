// Package memory is an in-process storage backend used for local runs and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/IlyasAtabaev731/solvy-ledger/internal/domain/models"
	"github.com/IlyasAtabaev731/solvy-ledger/internal/storage"
	"github.com/shopspring/decimal"
)

type Storage struct {
	mu sync.RWMutex

	users       map[int64]models.User
	usernames   map[string]int64
	txByUser    map[int64][]models.Transaction
	credentials map[string][]byte

	lastUserID int64
	lastTxID   int64
	lastTxTime time.Time

	now func() time.Time
}

type Option func(*Storage)

// WithClock replaces time.Now as the source of created_at values.
func WithClock(now func() time.Time) Option {
	return func(s *Storage) {
		s.now = now
	}
}

func New(opts ...Option) *Storage {
	s := &Storage{
		users:       make(map[int64]models.User),
		usernames:   make(map[string]int64),
		txByUser:    make(map[int64][]models.Transaction),
		credentials: make(map[string][]byte),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Storage) SaveUser(_ context.Context, username string, passHash []byte, balance decimal.Decimal) (models.User, error) {
	const op = "storage.memory.SaveUser"

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usernames[username]; exists {
		return models.User{}, fmt.Errorf("%s: %w", op, storage.ErrUserExists)
	}

	s.lastUserID++
	user := models.User{
		ID:           s.lastUserID,
		Username:     username,
		PasswordHash: append([]byte(nil), passHash...),
		Balance:      balance,
		CreatedAt:    s.now().UTC(),
	}
	s.users[user.ID] = user
	s.usernames[username] = user.ID

	return user, nil
}

func (s *Storage) User(_ context.Context, username string) (models.User, error) {
	const op = "storage.memory.User"

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usernames[username]
	if !ok {
		return models.User{}, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	return s.users[id], nil
}

func (s *Storage) UserByID(_ context.Context, id int64) (models.User, error) {
	const op = "storage.memory.UserByID"

	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return models.User{}, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	return user, nil
}

func (s *Storage) SaveTransaction(_ context.Context, tx models.NewTransaction) (models.Transaction, error) {
	const op = "storage.memory.SaveTransaction"

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[tx.UserID]; !ok {
		return models.Transaction{}, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}

	// created_at must never go backwards relative to insertion order, even if the wall clock does.
	createdAt := s.now().UTC()
	if createdAt.Before(s.lastTxTime) {
		createdAt = s.lastTxTime
	}
	s.lastTxTime = createdAt

	s.lastTxID++
	res := models.Transaction{
		ID:        s.lastTxID,
		UserID:    tx.UserID,
		Amount:    tx.Amount,
		Type:      tx.Type,
		Status:    tx.Status,
		CreatedAt: createdAt,
	}
	if tx.Description != nil {
		d := *tx.Description
		res.Description = &d
	}
	s.txByUser[tx.UserID] = append(s.txByUser[tx.UserID], res)

	return res, nil
}

func (s *Storage) TransactionsByUser(_ context.Context, userID int64) ([]models.Transaction, error) {
	s.mu.RLock()
	stored := s.txByUser[userID]
	res := make([]models.Transaction, len(stored))
	copy(res, stored)
	s.mu.RUnlock()

	sort.Slice(res, func(i, j int) bool {
		if !res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].CreatedAt.After(res[j].CreatedAt)
		}
		return res[i].ID > res[j].ID
	})

	return res, nil
}

func (s *Storage) SaveCredential(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.credentials[key] = append([]byte(nil), value...)
	return nil
}

func (s *Storage) Credential(_ context.Context, key string) ([]byte, error) {
	const op = "storage.memory.Credential"

	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.credentials[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrCredentialNotFound)
	}
	return append([]byte(nil), value...), nil
}

func (s *Storage) DeleteCredential(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.credentials, key)
	return nil
}
