package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/IlyasAtabaev731/solvy-ledger/internal/domain/models"
	"github.com/IlyasAtabaev731/solvy-ledger/internal/ledger"
	"github.com/IlyasAtabaev731/solvy-ledger/internal/summary"
	"github.com/shopspring/decimal"
)

// CreateTransactionRequest is the body of POST /api/transactions. Amount accepts a JSON number
// or a numeric string. Any userId or status sent by the client is ignored.
type CreateTransactionRequest struct {
	Amount      *decimal.Decimal `json:"amount"`
	Type        string           `json:"type"`
	Description *string          `json:"description"`
}

type SummaryResponse struct {
	TotalTransactions int                `json:"totalTransactions"`
	TotalVolume       models.FixedAmount `json:"totalVolume"`
	AvgAmount         models.FixedAmount `json:"avgAmount"`
	Daily             []models.DayVolume `json:"daily"`
}

func newSummaryResponse(s models.TransactionSummary, daily []models.DayVolume) SummaryResponse {
	return SummaryResponse{
		TotalTransactions: s.TotalTransactions,
		TotalVolume:       models.FixedAmount(s.TotalVolume),
		AvgAmount:         models.FixedAmount(s.AvgAmount),
		Daily:             daily,
	}
}

func (s *APIServer) listTransactionsHandler() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := sessionFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, errNotAuthenticated)
			return
		}

		ctx, cancel := s.requestContext(r)
		defer cancel()

		transactions, err := s.ledger.ListByUser(ctx, session.UserID)
		if err != nil {
			s.logger.Error("Failed to fetch transactions",
				slog.Int64("user_id", session.UserID),
				slog.String("request_id", requestIDFromContext(r.Context())),
				"error", err,
			)
			writeError(w, http.StatusInternalServerError, errFetchTransactions)
			return
		}

		writeJSON(w, http.StatusOK, transactions)
	}
}

func (s *APIServer) createTransactionHandler() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := sessionFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, errNotAuthenticated)
			return
		}

		var req CreateTransactionRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Amount == nil {
			writeError(w, http.StatusBadRequest, "amount is required")
			return
		}

		ctx, cancel := s.requestContext(r)
		defer cancel()

		tx, err := s.ledger.Create(ctx, session.UserID, *req.Amount, models.TransactionType(req.Type), req.Description)
		if err != nil {
			switch {
			case errors.Is(err, ledger.ErrInvalidArgument):
				writeError(w, http.StatusBadRequest, err.Error())
			case errors.Is(err, ledger.ErrNotFound):
				writeError(w, http.StatusNotFound, "User not found")
			default:
				s.logger.Error("Failed to create transaction",
					slog.Int64("user_id", session.UserID),
					slog.String("request_id", requestIDFromContext(r.Context())),
					"error", err,
				)
				writeError(w, http.StatusInternalServerError, errCreateTransaction)
			}
			return
		}

		writeJSON(w, http.StatusOK, tx)
	}
}

// summaryHandler reports aggregates over all of the user's transactions. The optional tz query
// parameter selects the zone used to bucket the daily series.
func (s *APIServer) summaryHandler() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := sessionFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, errNotAuthenticated)
			return
		}

		loc := time.UTC
		if tz := r.URL.Query().Get("tz"); tz != "" {
			l, err := time.LoadLocation(tz)
			if err != nil {
				writeError(w, http.StatusBadRequest, "unknown time zone")
				return
			}
			loc = l
		}

		ctx, cancel := s.requestContext(r)
		defer cancel()

		transactions, err := s.ledger.ListByUser(ctx, session.UserID)
		if err != nil {
			s.logger.Error("Failed to fetch transactions for summary",
				slog.Int64("user_id", session.UserID),
				"error", err,
			)
			writeError(w, http.StatusInternalServerError, errFetchTransactions)
			return
		}

		writeJSON(w, http.StatusOK, newSummaryResponse(
			summary.Summarize(transactions),
			summary.DailyVolume(transactions, loc),
		))
	}
}
