package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/IlyasAtabaev731/solvy-ledger/internal/auth"
	"github.com/IlyasAtabaev731/solvy-ledger/internal/config"
	"github.com/IlyasAtabaev731/solvy-ledger/internal/domain/models"
	"github.com/IlyasAtabaev731/solvy-ledger/internal/ledger"
	"github.com/IlyasAtabaev731/solvy-ledger/internal/lib/jwt"
	"github.com/IlyasAtabaev731/solvy-ledger/internal/storage/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("secret")

// brokenStorage fails every ledger call with a driver-looking error.
type brokenStorage struct{}

var errDriver = errors.New(`pq: relation "transactions" does not exist`)

func (brokenStorage) SaveTransaction(context.Context, models.NewTransaction) (models.Transaction, error) {
	return models.Transaction{}, errDriver
}

func (brokenStorage) TransactionsByUser(context.Context, int64) ([]models.Transaction, error) {
	return nil, errDriver
}

func testConfig() *config.Config {
	return &config.Config{
		ApiHost: "localhost",
		ApiPort: 8080,
		HTTP:    config.HTTP{RequestTimeout: time.Second},
	}
}

// newTestHandler wires a server on top of an in-memory store. A non-nil txStorage replaces the
// store behind the ledger.
func newTestHandler(t *testing.T, txStorage ledger.Storage) http.Handler {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.New()
	if txStorage == nil {
		txStorage = store
	}

	a := auth.New(logger, store, testSecret, time.Hour, decimal.NewFromInt(1000))
	l := ledger.New(logger, txStorage, nil)

	return New(testConfig(), logger, l, a).Handler()
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	return rr
}

func register(t *testing.T, h http.Handler, username string) AuthResponse {
	t.Helper()

	rr := do(t, h, http.MethodPost, "/api/register", "", AuthRequest{Username: username, Password: "password"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp AuthResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.NotEmpty(t, resp.Token)

	return resp
}

func listTransactions(t *testing.T, h http.Handler, token string) []models.Transaction {
	t.Helper()

	rr := do(t, h, http.MethodGet, "/api/transactions", token, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var txs []models.Transaction
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&txs))

	return txs
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()

	var resp errorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))

	return resp.Error
}

func TestRegister(t *testing.T) {
	h := newTestHandler(t, nil)

	resp := register(t, h, "alice")
	assert.Equal(t, "alice", resp.User.Username)
	assert.True(t, resp.User.Balance.Equal(decimal.NewFromInt(1000)))

	session, err := jwt.ParseToken(resp.Token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, session.UserID)

	rr := do(t, h, http.MethodPost, "/api/register", "", AuthRequest{Username: "alice", Password: "other"})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = do(t, h, http.MethodPost, "/api/register", "", AuthRequest{Username: " ", Password: "password"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, http.MethodPost, "/api/register", "", "{")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLogin(t *testing.T) {
	h := newTestHandler(t, nil)
	registered := register(t, h, "bob")

	rr := do(t, h, http.MethodPost, "/api/login", "", AuthRequest{Username: "bob", Password: "password"})
	require.Equal(t, http.StatusOK, rr.Code)

	var resp AuthResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, registered.User.ID, resp.User.ID)
	assert.NotEmpty(t, resp.Token)

	rr = do(t, h, http.MethodPost, "/api/login", "", AuthRequest{Username: "bob", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = do(t, h, http.MethodPost, "/api/login", "", AuthRequest{Username: "nobody", Password: "password"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestUserHandler(t *testing.T) {
	h := newTestHandler(t, nil)
	registered := register(t, h, "carol")

	rr := do(t, h, http.MethodGet, "/api/user", registered.Token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "password")

	var user models.User
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&user))
	assert.Equal(t, "carol", user.Username)

	ghost, err := jwt.NewToken(models.User{ID: 42, Username: "ghost"}, testSecret, time.Hour)
	require.NoError(t, err)

	rr = do(t, h, http.MethodGet, "/api/user", ghost, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestTransactionsRequireSession(t *testing.T) {
	h := newTestHandler(t, nil)
	user := register(t, h, "dave")

	expired, err := jwt.NewToken(user.User, testSecret, -time.Minute)
	require.NoError(t, err)
	foreign, err := jwt.NewToken(user.User, []byte("other"), time.Hour)
	require.NoError(t, err)

	for _, token := range []string{"", "garbage", expired, foreign} {
		rr := do(t, h, http.MethodPost, "/api/transactions", token, map[string]any{"amount": 10, "type": "deposit"})
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, errNotAuthenticated, decodeError(t, rr))

		rr = do(t, h, http.MethodGet, "/api/transactions", token, nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)

		rr = do(t, h, http.MethodGet, "/api/transactions/summary", token, nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
	req.Header.Set("Authorization", "Token "+user.Token)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	assert.Empty(t, listTransactions(t, h, user.Token))
}

func TestCreateAndListTransactions(t *testing.T) {
	h := newTestHandler(t, nil)
	alice := register(t, h, "alice")
	bob := register(t, h, "bob")

	assert.Empty(t, listTransactions(t, h, alice.Token))

	rr := do(t, h, http.MethodPost, "/api/transactions", alice.Token, map[string]any{
		"amount":      "100.00",
		"type":        "deposit",
		"description": "salary",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var created models.Transaction
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&created))
	assert.Positive(t, created.ID)
	assert.Equal(t, alice.User.ID, created.UserID)
	assert.True(t, created.Amount.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, models.TypeDeposit, created.Type)
	assert.Equal(t, models.StatusCompleted, created.Status)
	require.NotNil(t, created.Description)
	assert.Equal(t, "salary", *created.Description)

	rr = do(t, h, http.MethodPost, "/api/transactions", alice.Token, map[string]any{"amount": 50, "type": "withdrawal"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	txs := listTransactions(t, h, alice.Token)
	require.Len(t, txs, 2)
	assert.Equal(t, models.TypeWithdrawal, txs[0].Type)
	assert.Nil(t, txs[0].Description)
	assert.Equal(t, created.ID, txs[1].ID)
	assert.False(t, txs[0].CreatedAt.Before(txs[1].CreatedAt))

	assert.Empty(t, listTransactions(t, h, bob.Token))
}

func TestCreateTransactionUsesSessionIdentity(t *testing.T) {
	h := newTestHandler(t, nil)
	alice := register(t, h, "alice")
	bob := register(t, h, "bob")

	rr := do(t, h, http.MethodPost, "/api/transactions", alice.Token, map[string]any{
		"userId": bob.User.ID,
		"amount": 5,
		"type":   "transfer",
		"status": "failed",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var created models.Transaction
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&created))
	assert.Equal(t, alice.User.ID, created.UserID)
	assert.Equal(t, models.StatusCompleted, created.Status)

	assert.Len(t, listTransactions(t, h, alice.Token), 1)
	assert.Empty(t, listTransactions(t, h, bob.Token))
}

func TestCreateTransactionRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		body any
	}{
		{name: "negative amount", body: map[string]any{"amount": -5, "type": "deposit"}},
		{name: "missing amount", body: map[string]any{"type": "deposit"}},
		{name: "too many decimals", body: map[string]any{"amount": "1.005", "type": "deposit"}},
		{name: "too large", body: map[string]any{"amount": "100000000", "type": "deposit"}},
		{name: "unknown type", body: map[string]any{"amount": 5, "type": "refund"}},
		{name: "missing type", body: map[string]any{"amount": 5}},
		{name: "non numeric amount", body: map[string]any{"amount": "ten", "type": "deposit"}},
		{name: "malformed json", body: `{"amount":`},
		{name: "tiny exponent", body: `{"amount":"1e-20000000","type":"deposit"}`},
		{name: "huge exponent", body: `{"amount":"1e20000000","type":"deposit"}`},
	}

	h := newTestHandler(t, nil)
	user := register(t, h, "erin")

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := time.Now()
			rr := do(t, h, http.MethodPost, "/api/transactions", user.Token, tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.NotEmpty(t, decodeError(t, rr))
			assert.Less(t, time.Since(start), time.Second)
		})
	}

	assert.Empty(t, listTransactions(t, h, user.Token))
}

func TestCreateTransactionWireFormat(t *testing.T) {
	h := newTestHandler(t, nil)
	user := register(t, h, "ivy")

	rr := do(t, h, http.MethodPost, "/api/transactions", user.Token, `{"amount":25.5,"type":"deposit"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var created map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Equal(t, "25.50", created["amount"])
	assert.Equal(t, "completed", created["status"])

	description, ok := created["description"]
	assert.True(t, ok, "description must be present")
	assert.Nil(t, description)

	createdAt, ok := created["createdAt"].(string)
	require.True(t, ok)
	_, err := time.Parse(time.RFC3339, createdAt)
	assert.NoError(t, err)

	rr = do(t, h, http.MethodGet, "/api/transactions", user.Token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"amount":"25.50"`)
}

func TestOversizedBodyIsRejected(t *testing.T) {
	h := newTestHandler(t, nil)
	user := register(t, h, "jack")

	rr := do(t, h, http.MethodPost, "/api/transactions", user.Token, map[string]any{
		"amount":      1,
		"type":        "deposit",
		"description": strings.Repeat("a", 2*maxBodyBytes),
	})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.Empty(t, listTransactions(t, h, user.Token))

	rr = do(t, h, http.MethodPost, "/api/register", "", AuthRequest{Username: strings.Repeat("a", 2*maxBodyBytes), Password: "p"})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestCreateTransactionZeroAmount(t *testing.T) {
	h := newTestHandler(t, nil)
	user := register(t, h, "frank")

	rr := do(t, h, http.MethodPost, "/api/transactions", user.Token, map[string]any{"amount": 0, "type": "deposit"})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, listTransactions(t, h, user.Token), 1)
}

func TestCreateTransactionForDeletedUser(t *testing.T) {
	h := newTestHandler(t, nil)

	ghost, err := jwt.NewToken(models.User{ID: 42, Username: "ghost"}, testSecret, time.Hour)
	require.NoError(t, err)

	rr := do(t, h, http.MethodPost, "/api/transactions", ghost, map[string]any{"amount": 1, "type": "deposit"})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	assert.Empty(t, listTransactions(t, h, ghost))
}

func TestStorageFailuresAreGeneric(t *testing.T) {
	h := newTestHandler(t, brokenStorage{})
	user := register(t, h, "gina")

	rr := do(t, h, http.MethodGet, "/api/transactions", user.Token, nil)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "pq")
	assert.Equal(t, errFetchTransactions, decodeError(t, rr))

	rr = do(t, h, http.MethodPost, "/api/transactions", user.Token, map[string]any{"amount": 1, "type": "deposit"})
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "pq")
	assert.Equal(t, errCreateTransaction, decodeError(t, rr))

	rr = do(t, h, http.MethodGet, "/api/transactions/summary", user.Token, nil)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestSummaryHandler(t *testing.T) {
	h := newTestHandler(t, nil)
	user := register(t, h, "hank")

	rr := do(t, h, http.MethodGet, "/api/transactions/summary", user.Token, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var empty SummaryResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&empty))
	assert.Zero(t, empty.TotalTransactions)
	assert.True(t, empty.TotalVolume.Decimal().IsZero())
	assert.True(t, empty.AvgAmount.Decimal().IsZero())
	assert.Empty(t, empty.Daily)

	for _, amount := range []string{"100", "50"} {
		rr := do(t, h, http.MethodPost, "/api/transactions", user.Token, map[string]any{"amount": amount, "type": "deposit"})
		require.Equal(t, http.StatusOK, rr.Code)
	}

	rr = do(t, h, http.MethodGet, "/api/transactions/summary?tz=Europe/Berlin", user.Token, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var raw map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &raw))
	assert.Equal(t, "150.00", raw["totalVolume"])
	assert.Equal(t, "75.00", raw["avgAmount"])

	var resp SummaryResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, 2, resp.TotalTransactions)

	var count int
	for _, d := range resp.Daily {
		count += d.Count
	}
	assert.Equal(t, 2, count)

	rr = do(t, h, http.MethodGet, "/api/transactions/summary?tz=Mars/Olympus", user.Token, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHealthAndRequestID(t *testing.T) {
	h := newTestHandler(t, nil)

	rr := do(t, h, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "abc-123", rr.Header().Get(requestIDHeader))
}
