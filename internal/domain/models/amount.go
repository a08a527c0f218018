package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// AmountScale is the number of fractional digits persisted for an amount.
const AmountScale = 2

// FixedAmount is a decimal that is written to JSON as a string with exactly AmountScale
// fractional digits, the way numeric(10,2) columns read back.
type FixedAmount decimal.Decimal

func (a FixedAmount) Decimal() decimal.Decimal {
	return decimal.Decimal(a)
}

func (a FixedAmount) MarshalJSON() ([]byte, error) {
	return json.Marshal(decimal.Decimal(a).StringFixed(AmountScale))
}

func (a *FixedAmount) UnmarshalJSON(data []byte) error {
	return (*decimal.Decimal)(a).UnmarshalJSON(data)
}

func (t Transaction) MarshalJSON() ([]byte, error) {
	type transaction Transaction
	return json.Marshal(struct {
		transaction
		Amount FixedAmount `json:"amount"`
	}{transaction(t), FixedAmount(t.Amount)})
}

func (u User) MarshalJSON() ([]byte, error) {
	type user User
	return json.Marshal(struct {
		user
		Balance FixedAmount `json:"balance"`
	}{user(u), FixedAmount(u.Balance)})
}

func (s TransactionSummary) MarshalJSON() ([]byte, error) {
	type summary TransactionSummary
	return json.Marshal(struct {
		summary
		TotalVolume FixedAmount `json:"totalVolume"`
		AvgAmount   FixedAmount `json:"avgAmount"`
	}{summary(s), FixedAmount(s.TotalVolume), FixedAmount(s.AvgAmount)})
}

func (d DayVolume) MarshalJSON() ([]byte, error) {
	type dayVolume DayVolume
	return json.Marshal(struct {
		dayVolume
		Amount FixedAmount `json:"amount"`
	}{dayVolume(d), FixedAmount(d.Amount)})
}
