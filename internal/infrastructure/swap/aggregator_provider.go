package swap

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"stablepay.backend/internal/config"
	domainerrors "stablepay.backend/internal/domain/errors"
)

// AggregatorProvider quotes and builds swaps through an off-chain aggregator
// HTTP API. The aggregator owns routing; this client only relays amounts and
// applies the local slippage floor.
type AggregatorProvider struct {
	baseURL     string
	slippageBps int64
	httpClient  *http.Client
}

// NewAggregatorProvider creates an aggregator-backed swap provider
func NewAggregatorProvider(baseURL string, slippageBps int64) *AggregatorProvider {
	return &AggregatorProvider{
		baseURL:     baseURL,
		slippageBps: slippageBps,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
	}
}

// SetHTTPClient overrides the underlying HTTP client. Used by tests.
func (p *AggregatorProvider) SetHTTPClient(hc *http.Client) {
	p.httpClient = hc
}

// Name returns the provider identifier
func (p *AggregatorProvider) Name() string { return "aggregator" }

// Quote asks the aggregator to price a native-to-USDC swap.
func (p *AggregatorProvider) Quote(ctx context.Context, chain *config.ChainConfig, amountIn *big.Int) (*SwapQuote, error) {
	if !chain.HasSwap {
		return nil, domainerrors.ErrUnsupportedChain
	}
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, domainerrors.ErrInvalidAmount
	}

	q := url.Values{}
	q.Set("chainId", fmt.Sprintf("%d", chain.ChainID))
	q.Set("sellToken", chain.WrappedNative)
	q.Set("buyToken", chain.USDCAddress)
	q.Set("sellAmount", amountIn.String())

	var resp struct {
		BuyAmount string `json:"buyAmount"`
	}
	if err := p.get(ctx, "/swap/v1/price?"+q.Encode(), &resp); err != nil {
		return nil, err
	}

	expected, ok := new(big.Int).SetString(resp.BuyAmount, 10)
	if !ok {
		return nil, fmt.Errorf("aggregator: bad buyAmount %q", resp.BuyAmount)
	}

	return &SwapQuote{
		AmountIn:       new(big.Int).Set(amountIn),
		ExpectedOutput: expected,
		MinOutput:      applySlippage(expected, p.slippageBps),
	}, nil
}

// BuildTransaction asks the aggregator for executable calldata.
func (p *AggregatorProvider) BuildTransaction(ctx context.Context, chain *config.ChainConfig, quote *SwapQuote, recipient string) (*TxDescriptor, error) {
	if !chain.HasSwap {
		return nil, domainerrors.ErrUnsupportedChain
	}

	q := url.Values{}
	q.Set("chainId", fmt.Sprintf("%d", chain.ChainID))
	q.Set("sellToken", chain.WrappedNative)
	q.Set("buyToken", chain.USDCAddress)
	q.Set("sellAmount", quote.AmountIn.String())
	q.Set("minBuyAmount", quote.MinOutput.String())
	q.Set("taker", recipient)

	var resp struct {
		To    string `json:"to"`
		Data  string `json:"data"`
		Value string `json:"value"`
	}
	if err := p.get(ctx, "/swap/v1/quote?"+q.Encode(), &resp); err != nil {
		return nil, err
	}

	data, err := hex.DecodeString(strings.TrimPrefix(resp.Data, "0x"))
	if err != nil {
		return nil, fmt.Errorf("aggregator: bad calldata: %w", err)
	}
	value, ok := new(big.Int).SetString(resp.Value, 10)
	if !ok {
		return nil, fmt.Errorf("aggregator: bad value %q", resp.Value)
	}

	return &TxDescriptor{
		To:       resp.To,
		CallData: data,
		Value:    value,
	}, nil
}

func (p *AggregatorProvider) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("aggregator: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("aggregator: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("aggregator: %s returned %d: %s", req.URL.Path, resp.StatusCode, string(raw))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("aggregator: decode response: %w", err)
	}
	return nil
}
