// Package ledger implements the create and list operations of the transaction store on top of a
// storage backend. Input is validated here, before any write reaches the backend.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/IlyasAtabaev731/solvy-ledger/internal/domain/models"
	"github.com/IlyasAtabaev731/solvy-ledger/internal/events"
	"github.com/IlyasAtabaev731/solvy-ledger/internal/storage"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrStorage         = errors.New("storage failure")
)

const AmountScale = models.AmountScale

// Exponent bounds, checked before any arithmetic on the amount.
const (
	minAmountExponent = -AmountScale - 18
	maxAmountExponent = 8
)

// MaxAmount is the first value that no longer fits numeric(10,2).
var MaxAmount = decimal.New(1, 8)

type Storage interface {
	SaveTransaction(ctx context.Context, tx models.NewTransaction) (models.Transaction, error)
	TransactionsByUser(ctx context.Context, userID int64) ([]models.Transaction, error)
}

type Service struct {
	log       *slog.Logger
	storage   Storage
	publisher events.Publisher
}

func New(log *slog.Logger, storage Storage, publisher events.Publisher) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Service{
		log:       log,
		storage:   storage,
		publisher: publisher,
	}
}

// Create validates and appends a transaction for userID. New transactions are always stored as
// completed. The owner's balance is left untouched.
func (s *Service) Create(
	ctx context.Context,
	userID int64,
	amount decimal.Decimal,
	typ models.TransactionType,
	description *string,
) (models.Transaction, error) {
	const op = "ledger.Service.Create"

	log := s.log.With(slog.String("op", op), slog.Int64("user_id", userID))

	if userID <= 0 {
		return models.Transaction{}, fmt.Errorf("%w: user id must be positive", ErrInvalidArgument)
	}
	if err := ValidateAmount(amount); err != nil {
		return models.Transaction{}, err
	}
	if !typ.Valid() {
		return models.Transaction{}, fmt.Errorf("%w: unknown transaction type %q", ErrInvalidArgument, typ)
	}

	tx, err := s.storage.SaveTransaction(ctx, models.NewTransaction{
		UserID:      userID,
		Amount:      amount,
		Type:        typ,
		Status:      models.StatusCompleted,
		Description: description,
	})
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("transaction for unknown user")
			return models.Transaction{}, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return models.Transaction{}, fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
	}

	log.Info("transaction created", slog.Int64("id", tx.ID), slog.String("type", string(tx.Type)))

	if err := s.publisher.PublishTransactionCreated(ctx, events.NewTransactionCreated(tx)); err != nil {
		log.Error("failed to publish transaction event", "error", err)
	}

	return tx, nil
}

// ListByUser returns the user's transactions newest first. An unknown user has no transactions.
func (s *Service) ListByUser(ctx context.Context, userID int64) ([]models.Transaction, error) {
	const op = "ledger.Service.ListByUser"

	if userID <= 0 {
		return nil, fmt.Errorf("%w: user id must be positive", ErrInvalidArgument)
	}

	txs, err := s.storage.TransactionsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
	}
	if txs == nil {
		txs = []models.Transaction{}
	}

	return txs, nil
}

// ValidateAmount checks that amount is non-negative, has at most two fractional digits and fits
// the persisted column.
func ValidateAmount(amount decimal.Decimal) error {
	if e := amount.Exponent(); e < minAmountExponent || e > maxAmountExponent {
		return fmt.Errorf("%w: amount is out of range", ErrInvalidArgument)
	}
	if amount.IsNegative() {
		return fmt.Errorf("%w: amount must not be negative", ErrInvalidArgument)
	}
	if !amount.Equal(amount.Truncate(AmountScale)) {
		return fmt.Errorf("%w: amount must have at most %d decimal places", ErrInvalidArgument, AmountScale)
	}
	if amount.GreaterThanOrEqual(MaxAmount) {
		return fmt.Errorf("%w: amount must be less than %s", ErrInvalidArgument, MaxAmount.String())
	}
	return nil
}
