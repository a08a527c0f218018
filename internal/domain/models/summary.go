package models

import "github.com/shopspring/decimal"

type TransactionSummary struct {
	TotalTransactions int             `json:"totalTransactions"`
	TotalVolume       decimal.Decimal `json:"totalVolume"`
	AvgAmount         decimal.Decimal `json:"avgAmount"`
}

// DayVolume is the volume of a single calendar day, Date formatted as 2006-01-02.
type DayVolume struct {
	Date   string          `json:"date"`
	Amount decimal.Decimal `json:"amount"`
	Count  int             `json:"count"`
}
