package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IlyasAtabaev731/solvy-ledger/internal/domain/models"
	"github.com/nats-io/nats.go"
	"github.com/shopspring/decimal"
)

const SubjectTransactionCreated = "transactions.created"

type TransactionCreated struct {
	ID        int64                    `json:"id"`
	UserID    int64                    `json:"userId"`
	Amount    decimal.Decimal          `json:"amount"`
	Type      models.TransactionType   `json:"type"`
	Status    models.TransactionStatus `json:"status"`
	CreatedAt time.Time                `json:"createdAt"`
}

func NewTransactionCreated(t models.Transaction) TransactionCreated {
	return TransactionCreated{
		ID:        t.ID,
		UserID:    t.UserID,
		Amount:    t.Amount,
		Type:      t.Type,
		Status:    t.Status,
		CreatedAt: t.CreatedAt,
	}
}

type Publisher interface {
	PublishTransactionCreated(ctx context.Context, event TransactionCreated) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) PublishTransactionCreated(context.Context, TransactionCreated) error { return nil }

type NATSPublisher struct {
	nc *nats.Conn
}

func ConnectNATS(url string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url, nats.Name("solvy-ledger"))
	if err != nil {
		return nil, fmt.Errorf("events.ConnectNATS: %w", err)
	}
	return &NATSPublisher{nc: nc}, nil
}

func (p *NATSPublisher) PublishTransactionCreated(_ context.Context, event TransactionCreated) error {
	const op = "events.NATSPublisher.PublishTransactionCreated"

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := p.nc.Publish(SubjectTransactionCreated, data); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (p *NATSPublisher) Close() {
	p.nc.Close()
}
