// Package chain is a client for the chain gateway that relays transfers to the network.
package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/IlyasAtabaev731/solvy-ledger/internal/domain/models"
	"github.com/IlyasAtabaev731/solvy-ledger/internal/keyring"
	"github.com/IlyasAtabaev731/solvy-ledger/internal/lib/retry"
	"github.com/shopspring/decimal"
)

// APIKeyName is the keyring entry holding the gateway API key.
const APIKeyName = "chain_api_key"

var (
	ErrConnectionFailed  = errors.New("failed to connect to blockchain network")
	ErrTransactionFailed = errors.New("transaction failed to process")
	ErrInvalidAddress    = errors.New("invalid blockchain address provided")
	ErrInsufficientFunds = errors.New("insufficient funds for transaction")
	ErrUnauthorized      = errors.New("unauthorized access: API key missing or invalid")
	ErrInvalidResponse   = errors.New("invalid response from blockchain network")
	ErrNetwork           = errors.New("network communication error")
)

type Client struct {
	endpoint   string
	chainID    int
	httpClient *http.Client
	keys       keyring.Store
	policy     retry.Policy
	log        *slog.Logger

	mu        sync.Mutex
	connected bool
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func WithRetryPolicy(p retry.Policy) Option {
	return func(cl *Client) {
		cl.policy = p
	}
}

func New(endpoint string, chainID int, keys keyring.Store, log *slog.Logger, opts ...Option) *Client {
	c := &Client{
		endpoint:   endpoint,
		chainID:    chainID,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		keys:       keys,
		policy:     retry.Default(),
		log:        log,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.policy.OnRetry == nil {
		c.policy.OnRetry = func(attempt int, err error) {
			c.log.Warn("chain request failed, retrying", slog.Int("attempt", attempt), "error", err)
		}
	}
	return c
}

func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *Client) Disconnect() {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
}

// Connect performs the gateway handshake. It is a no-op once connected.
func (c *Client) Connect(ctx context.Context) error {
	if c.Connected() {
		return nil
	}

	_, err := retry.Do(ctx, c.policy, func(ctx context.Context) (struct{}, error) {
		resp, err := c.do(ctx, http.MethodGet, "connect", "", nil)
		if err != nil {
			return struct{}{}, err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			return struct{}{}, nil
		case resp.StatusCode == http.StatusUnauthorized:
			return struct{}{}, retry.Permanent(ErrUnauthorized)
		case resp.StatusCode >= http.StatusInternalServerError:
			return struct{}{}, ErrNetwork
		default:
			return struct{}{}, ErrConnectionFailed
		}
	})
	if err != nil {
		return fmt.Errorf("chain.Client.Connect: %w", err)
	}

	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()

	return nil
}

type transactionRequest struct {
	To      string          `json:"to"`
	Amount  decimal.Decimal `json:"amount"`
	ChainID int             `json:"chain_id"`
}

type transactionResponse struct {
	Hash        string `json:"hash"`
	Status      string `json:"status"`
	BlockNumber *int64 `json:"block_number,omitempty"`
}

// SendTransaction submits a transfer and returns its hash.
func (c *Client) SendTransaction(ctx context.Context, to string, amount decimal.Decimal) (string, error) {
	const op = "chain.Client.SendTransaction"

	if err := c.Connect(ctx); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	body, err := json.Marshal(transactionRequest{To: to, Amount: amount, ChainID: c.chainID})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	hash, err := retry.Do(ctx, c.policy, func(ctx context.Context) (string, error) {
		apiKey, err := c.apiKey(ctx)
		if err != nil {
			return "", err
		}

		resp, err := c.do(ctx, http.MethodPost, "transaction", apiKey, body)
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusOK:
			res, err := decode(resp.Body)
			if err != nil {
				return "", err
			}
			return res.Hash, nil
		case http.StatusUnauthorized:
			return "", retry.Permanent(ErrUnauthorized)
		case http.StatusBadRequest:
			return "", retry.Permanent(ErrInvalidAddress)
		case http.StatusPaymentRequired:
			return "", retry.Permanent(ErrInsufficientFunds)
		default:
			return "", ErrTransactionFailed
		}
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return hash, nil
}

// MonitorTransaction reports the network status of hash. A hash the gateway does not know yet
// is still pending.
func (c *Client) MonitorTransaction(ctx context.Context, hash string) (models.TransactionStatus, error) {
	const op = "chain.Client.MonitorTransaction"

	if err := c.Connect(ctx); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	status, err := retry.Do(ctx, c.policy, func(ctx context.Context) (models.TransactionStatus, error) {
		apiKey, err := c.apiKey(ctx)
		if err != nil {
			return "", err
		}

		resp, err := c.do(ctx, http.MethodGet, "transaction/"+url.PathEscape(hash), apiKey, nil)
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusOK:
			res, err := decode(resp.Body)
			if err != nil {
				return "", err
			}
			switch models.TransactionStatus(res.Status) {
			case models.StatusCompleted:
				return models.StatusCompleted, nil
			case models.StatusPending:
				return models.StatusPending, nil
			default:
				return models.StatusFailed, nil
			}
		case http.StatusNotFound:
			return models.StatusPending, nil
		default:
			return "", ErrNetwork
		}
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return status, nil
}

func (c *Client) apiKey(ctx context.Context) (string, error) {
	key, err := c.keys.Retrieve(ctx, APIKeyName)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", retry.Permanent(ErrUnauthorized)
	}
	if err != nil {
		return "", err
	}
	return key, nil
}

func (c *Client) do(ctx context.Context, method, path, apiKey string, body []byte) (*http.Response, error) {
	endpointURL := strings.TrimRight(c.endpoint, "/") + "/" + path

	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpointURL, reqBody)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}

	return resp, nil
}

func decode(r io.Reader) (transactionResponse, error) {
	var res transactionResponse
	if err := json.NewDecoder(r).Decode(&res); err != nil {
		return transactionResponse{}, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	return res, nil
}
