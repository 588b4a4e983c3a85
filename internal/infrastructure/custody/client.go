package custody

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"go.uber.org/zap"
	domainerrors "stablepay.backend/internal/domain/errors"
	"stablepay.backend/pkg/logger"
)

// Transaction states reported by the signing service.
const (
	TxStateInitiated = "INITIATED"
	TxStateQueued    = "QUEUED"
	TxStateSent      = "SENT"
	TxStateConfirmed = "CONFIRMED"
	TxStateComplete  = "COMPLETE"
	TxStateFailed    = "FAILED"
	TxStateDenied    = "DENIED"
	TxStateCancelled = "CANCELLED"
)

// Client talks to the remote key-custody service. Private keys never enter
// this process: contract calls and typed-data signatures are executed by the
// service against a managed wallet.
type Client struct {
	baseURL    string
	apiKey     string
	walletSet  string
	httpClient *http.Client

	mu      sync.Mutex
	wallets map[string]*Wallet // per chain
}

// NewClient creates a custody service client
func NewClient(baseURL, apiKey, walletSetID string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		walletSet:  walletSetID,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		wallets:    make(map[string]*Wallet),
	}
}

// SetHTTPClient overrides the underlying HTTP client. Used by tests.
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

// Wallet is a managed wallet on one chain
type Wallet struct {
	ID      string `json:"id"`
	Address string `json:"address"`
	Chain   string `json:"blockchain"`
}

// TransactionStatus is the polled state of a submitted challenge
type TransactionStatus struct {
	State  string `json:"state"`
	TxHash string `json:"txHash"`
}

// ContractCall describes one contract execution request
type ContractCall struct {
	WalletID     string   `json:"walletId"`
	Target       string   `json:"contractAddress"`
	ABISignature string   `json:"abiFunctionSignature,omitempty"`
	ABIParams    []string `json:"abiParameters,omitempty"`
	CallData     string   `json:"callData,omitempty"`
	FeeLevel     string   `json:"feeLevel"`
}

// CreateWallet creates (or returns the cached) managed wallet for a chain.
func (c *Client) CreateWallet(ctx context.Context, chain string) (*Wallet, error) {
	c.mu.Lock()
	cached, ok := c.wallets[chain]
	c.mu.Unlock()
	if ok {
		cp := *cached
		return &cp, nil
	}

	req := map[string]interface{}{
		"walletSetId": c.walletSet,
		"blockchains": []string{chain},
	}
	var resp struct {
		Wallets []Wallet `json:"wallets"`
	}
	if err := c.post(ctx, "/v1/wallets", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Wallets) == 0 {
		return nil, fmt.Errorf("custody: no wallet returned for chain %s", chain)
	}

	wallet := resp.Wallets[0]
	c.mu.Lock()
	c.wallets[chain] = &wallet
	c.mu.Unlock()
	cp := wallet
	return &cp, nil
}

// ExecuteContractCall submits a contract execution and returns the challenge
// id used to poll for completion.
func (c *Client) ExecuteContractCall(ctx context.Context, call *ContractCall) (string, error) {
	var resp struct {
		ChallengeID string `json:"challengeId"`
	}
	if err := c.post(ctx, "/v1/transactions/contractExecution", call, &resp); err != nil {
		return "", err
	}
	if resp.ChallengeID == "" {
		return "", fmt.Errorf("custody: empty challenge id")
	}
	return resp.ChallengeID, nil
}

// PollTransaction fetches the current state of a challenge.
func (c *Client) PollTransaction(ctx context.Context, challengeID string) (*TransactionStatus, error) {
	var resp struct {
		Transaction TransactionStatus `json:"transaction"`
	}
	if err := c.get(ctx, "/v1/transactions/"+challengeID, &resp); err != nil {
		return nil, err
	}
	return &resp.Transaction, nil
}

// SignTypedData asks the service to sign an EIP-712 payload with the managed
// wallet's key.
func (c *Client) SignTypedData(ctx context.Context, walletID string, typedData apitypes.TypedData) (string, error) {
	raw, err := json.Marshal(typedData)
	if err != nil {
		return "", fmt.Errorf("custody: marshal typed data: %w", err)
	}

	req := map[string]interface{}{
		"walletId": walletID,
		"data":     string(raw),
	}
	var resp struct {
		Signature string `json:"signature"`
	}
	if err := c.post(ctx, "/v1/transactions/signTypedData", req, &resp); err != nil {
		return "", err
	}
	if resp.Signature == "" {
		return "", domainerrors.ErrSigningFailed
	}
	return resp.Signature, nil
}

// WaitForTransaction polls a challenge until it reaches a terminal state or
// ctx ends. The deadline belongs to the caller, not this client. Explicit
// failure states are fatal, everything else keeps polling.
func (c *Client) WaitForTransaction(ctx context.Context, challengeID string, interval time.Duration) (*TransactionStatus, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		status, err := c.PollTransaction(ctx, challengeID)
		if err != nil {
			logger.Warn(ctx, "custody poll failed",
				zap.String("challenge_id", challengeID),
				zap.Error(err))
		} else {
			switch status.State {
			case TxStateConfirmed, TxStateComplete:
				return status, nil
			case TxStateFailed, TxStateDenied, TxStateCancelled:
				return status, fmt.Errorf("custody: challenge %s ended in state %s", challengeID, status.State)
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("custody: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("custody: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("custody: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("custody: %s %s returned %d: %s", req.Method, req.URL.Path, resp.StatusCode, string(raw))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("custody: decode response: %w", err)
	}
	return nil
}
