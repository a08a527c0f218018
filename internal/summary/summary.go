// Package summary derives aggregate statistics from a set of transactions.
//
// Every transaction contributes its amount to the volume regardless of type: withdrawals are not
// netted against deposits.
package summary

import (
	"sort"
	"time"

	"github.com/IlyasAtabaev731/solvy-ledger/internal/domain/models"
	"github.com/shopspring/decimal"
)

const amountScale = 2

// Summarize returns count, total volume and average amount. Empty input yields a zero summary.
func Summarize(transactions []models.Transaction) models.TransactionSummary {
	res := models.TransactionSummary{
		TotalTransactions: len(transactions),
		TotalVolume:       decimal.Zero,
		AvgAmount:         decimal.Zero,
	}

	for _, t := range transactions {
		res.TotalVolume = res.TotalVolume.Add(t.Amount)
	}

	if res.TotalTransactions > 0 {
		res.AvgAmount = res.TotalVolume.
			Div(decimal.NewFromInt(int64(res.TotalTransactions))).
			Round(amountScale)
	}

	return res
}

// DailyVolume buckets transactions by calendar day in loc, oldest day first.
func DailyVolume(transactions []models.Transaction, loc *time.Location) []models.DayVolume {
	if loc == nil {
		loc = time.UTC
	}

	buckets := make(map[string]*models.DayVolume)
	for _, t := range transactions {
		day := t.CreatedAt.In(loc).Format(time.DateOnly)
		b, ok := buckets[day]
		if !ok {
			b = &models.DayVolume{Date: day, Amount: decimal.Zero}
			buckets[day] = b
		}
		b.Amount = b.Amount.Add(t.Amount)
		b.Count++
	}

	res := make([]models.DayVolume, 0, len(buckets))
	for _, b := range buckets {
		res = append(res, *b)
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].Date < res[j].Date
	})

	return res
}
