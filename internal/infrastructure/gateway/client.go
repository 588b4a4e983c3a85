package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"go.uber.org/zap"
	"stablepay.backend/internal/config"
	domainerrors "stablepay.backend/internal/domain/errors"
	"stablepay.backend/pkg/logger"
	"stablepay.backend/pkg/redis"
)

// Attestation states reported by the bridge service.
const (
	AttestationPending  = "pending"
	AttestationComplete = "complete"
	AttestationFailed   = "failed"
)

// BurnIntent is the typed-data payload authorizing the bridge to burn
// source-chain USDC in exchange for a settlement-chain mint.
type BurnIntent struct {
	SourceDomain      uint32
	DestinationDomain uint32
	Amount            *big.Int // USDC units
	Depositor         string
	Recipient         string
	Nonce             *big.Int
}

// Attestation is the bridge's response for one transfer
type Attestation struct {
	Status      string `json:"status"`
	Message     string `json:"message"`     // attested message bytes, hex
	Attestation string `json:"attestation"` // signature bundle, hex
	Error       string `json:"error,omitempty"`
}

// TypedDataSigner signs EIP-712 payloads with a managed wallet. Implemented
// by the custody client.
type TypedDataSigner interface {
	SignTypedData(ctx context.Context, walletID string, typedData apitypes.TypedData) (string, error)
}

// Client talks to the bridge's HTTP API: deposit contract discovery, burn
// intent submission, attestation polling. Mint submission happens through the
// custody service, not here.
type Client struct {
	baseURL    string
	cache      *redis.GatewayCache
	httpClient *http.Client
}

// NewClient creates a bridge API client
func NewClient(baseURL string, cache *redis.GatewayCache) *Client {
	return &Client{
		baseURL:    baseURL,
		cache:      cache,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// SetHTTPClient overrides the underlying HTTP client. Used by tests.
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

// DepositContract returns the settlement-network deposit contract address on
// a source chain, cached with a TTL since it changes rarely.
func (c *Client) DepositContract(ctx context.Context, chain *config.ChainConfig) (string, error) {
	if cached, err := c.cache.GetDepositContract(ctx, chain.Key); err == nil && cached != "" {
		return cached, nil
	}

	var resp struct {
		Address string `json:"address"`
	}
	path := fmt.Sprintf("/v1/contracts/deposit?domain=%d", chain.GatewayDomain)
	if err := c.get(ctx, path, &resp); err != nil {
		return "", err
	}
	if resp.Address == "" {
		return "", fmt.Errorf("gateway: no deposit contract for domain %d", chain.GatewayDomain)
	}

	if err := c.cache.SetDepositContract(ctx, chain.Key, resp.Address); err != nil {
		logger.Warn(ctx, "gateway cache write failed",
			zap.String("chain", chain.Key),
			zap.Error(err))
	}
	return resp.Address, nil
}

// TypedData builds the EIP-712 payload for a burn intent.
func (i *BurnIntent) TypedData() apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
			},
			"BurnIntent": {
				{Name: "sourceDomain", Type: "uint32"},
				{Name: "destinationDomain", Type: "uint32"},
				{Name: "amount", Type: "uint256"},
				{Name: "depositor", Type: "address"},
				{Name: "recipient", Type: "address"},
				{Name: "nonce", Type: "uint256"},
			},
		},
		PrimaryType: "BurnIntent",
		Domain: apitypes.TypedDataDomain{
			Name:    "Gateway",
			Version: "1",
		},
		Message: apitypes.TypedDataMessage{
			"sourceDomain":      math.NewHexOrDecimal256(int64(i.SourceDomain)),
			"destinationDomain": math.NewHexOrDecimal256(int64(i.DestinationDomain)),
			"amount":            (*math.HexOrDecimal256)(i.Amount),
			"depositor":         i.Depositor,
			"recipient":         i.Recipient,
			"nonce":             (*math.HexOrDecimal256)(i.Nonce),
		},
	}
}

// SubmitBurnIntent signs the intent through the custody service and submits
// it to the bridge. Returns the transfer id used for attestation polling.
func (c *Client) SubmitBurnIntent(ctx context.Context, signer TypedDataSigner, walletID string, intent *BurnIntent) (string, error) {
	signature, err := signer.SignTypedData(ctx, walletID, intent.TypedData())
	if err != nil {
		return "", fmt.Errorf("sign burn intent: %w", err)
	}

	req := map[string]interface{}{
		"sourceDomain":      intent.SourceDomain,
		"destinationDomain": intent.DestinationDomain,
		"amount":            intent.Amount.String(),
		"depositor":         intent.Depositor,
		"recipient":         intent.Recipient,
		"nonce":             intent.Nonce.String(),
		"signature":         signature,
	}
	var resp struct {
		TransferID string `json:"transferId"`
	}
	if err := c.post(ctx, "/v1/transfers", req, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", domainerrors.ErrBridgeRejected, err)
	}
	if resp.TransferID == "" {
		return "", domainerrors.ErrBridgeRejected
	}
	return resp.TransferID, nil
}

// GetAttestation fetches the attestation status for one transfer.
func (c *Client) GetAttestation(ctx context.Context, transferID string) (*Attestation, error) {
	var att Attestation
	if err := c.get(ctx, "/v1/transfers/"+transferID+"/attestation", &att); err != nil {
		return nil, err
	}
	return &att, nil
}

// WaitForAttestation polls until the bridge attests the transfer or ctx
// ends. The wall-clock ceiling belongs to the caller. An explicit failure
// state from the service is fatal; pending states keep polling.
func (c *Client) WaitForAttestation(ctx context.Context, transferID string, interval time.Duration) (*Attestation, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		att, err := c.GetAttestation(ctx, transferID)
		if err != nil {
			logger.Warn(ctx, "attestation poll failed",
				zap.String("transfer_id", transferID),
				zap.Error(err))
		} else {
			switch att.Status {
			case AttestationComplete:
				return att, nil
			case AttestationFailed:
				return att, fmt.Errorf("%w: %s", domainerrors.ErrAttestationFailed, att.Error)
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
		return fmt.Errorf("gateway: marshal request: %w", err)
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
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("gateway: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gateway: %s %s returned %d: %s", req.Method, req.URL.Path, resp.StatusCode, string(raw))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("gateway: decode response: %w", err)
	}
	return nil
}
