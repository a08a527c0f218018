package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TypeDeposit    TransactionType = "deposit"
	TypeWithdrawal TransactionType = "withdrawal"
	TypeTransfer   TransactionType = "transfer"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TypeDeposit, TypeWithdrawal, TypeTransfer:
		return true
	}
	return false
}

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
)

func (s TransactionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

type Transaction struct {
	ID          int64             `json:"id"`
	UserID      int64             `json:"userId"`
	Amount      decimal.Decimal   `json:"amount"`
	Type        TransactionType   `json:"type"`
	Status      TransactionStatus `json:"status"`
	Description *string           `json:"description"`
	CreatedAt   time.Time         `json:"createdAt"`
}

// NewTransaction is the input of a store insert. ID and CreatedAt are assigned by the store.
type NewTransaction struct {
	UserID      int64
	Amount      decimal.Decimal
	Type        TransactionType
	Status      TransactionStatus
	Description *string
}
