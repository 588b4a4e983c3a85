package swap

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"stablepay.backend/internal/config"
	domainerrors "stablepay.backend/internal/domain/errors"
	"stablepay.backend/internal/infrastructure/blockchain"
)

const routerABIJSON = `[
	{"name":"getAmountsOut","type":"function","stateMutability":"view",
	 "inputs":[{"name":"amountIn","type":"uint256"},{"name":"path","type":"address[]"}],
	 "outputs":[{"name":"amounts","type":"uint256[]"}]},
	{"name":"swapExactETHForTokens","type":"function","stateMutability":"payable",
	 "inputs":[{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},
	           {"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],
	 "outputs":[{"name":"amounts","type":"uint256[]"}]}
]`

// RouterProvider quotes and builds swaps against an on-chain V2-style DEX
// router: getAmountsOut for pricing, swapExactETHForTokens for execution.
type RouterProvider struct {
	clients       *blockchain.ClientFactory
	routerABI     abi.ABI
	slippageBps   int64
	quoteDeadline time.Duration
	// now is a test hook for deterministic deadlines
	now func() time.Time
}

// NewRouterProvider creates an on-chain router swap provider
func NewRouterProvider(clients *blockchain.ClientFactory, slippageBps int64, quoteDeadline time.Duration) (*RouterProvider, error) {
	parsed, err := abi.JSON(strings.NewReader(routerABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parse router abi: %w", err)
	}
	return &RouterProvider{
		clients:       clients,
		routerABI:     parsed,
		slippageBps:   slippageBps,
		quoteDeadline: quoteDeadline,
		now:           time.Now,
	}, nil
}

// Name returns the provider identifier
func (p *RouterProvider) Name() string { return "router" }

// Quote calls getAmountsOut over the wrapped-native to USDC path and applies
// the slippage floor.
func (p *RouterProvider) Quote(ctx context.Context, chain *config.ChainConfig, amountIn *big.Int) (*SwapQuote, error) {
	if !chain.HasSwap || chain.RouterAddress == "" {
		return nil, domainerrors.ErrUnsupportedChain
	}
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, domainerrors.ErrInvalidAmount
	}

	client, err := p.clients.GetEVMClient(chain.RPCURL)
	if err != nil {
		return nil, err
	}

	path := p.swapPath(chain)
	data, err := p.routerABI.Pack("getAmountsOut", amountIn, path)
	if err != nil {
		return nil, fmt.Errorf("pack getAmountsOut: %w", err)
	}

	raw, err := client.CallView(ctx, chain.RouterAddress, data)
	if err != nil {
		return nil, fmt.Errorf("getAmountsOut call: %w", err)
	}

	outputs, err := p.routerABI.Unpack("getAmountsOut", raw)
	if err != nil {
		return nil, fmt.Errorf("unpack getAmountsOut: %w", err)
	}
	amounts, ok := outputs[0].([]*big.Int)
	if !ok || len(amounts) < 2 {
		return nil, fmt.Errorf("getAmountsOut returned unexpected shape")
	}

	expected := amounts[len(amounts)-1]
	return &SwapQuote{
		AmountIn:       new(big.Int).Set(amountIn),
		ExpectedOutput: expected,
		MinOutput:      applySlippage(expected, p.slippageBps),
	}, nil
}

// BuildTransaction packs swapExactETHForTokens calldata with the quote's
// minimum-output floor and a deadline.
func (p *RouterProvider) BuildTransaction(ctx context.Context, chain *config.ChainConfig, quote *SwapQuote, recipient string) (*TxDescriptor, error) {
	if !chain.HasSwap || chain.RouterAddress == "" {
		return nil, domainerrors.ErrUnsupportedChain
	}

	deadline := big.NewInt(p.now().Add(p.quoteDeadline).Unix())
	data, err := p.routerABI.Pack("swapExactETHForTokens",
		quote.MinOutput,
		p.swapPath(chain),
		common.HexToAddress(recipient),
		deadline,
	)
	if err != nil {
		return nil, fmt.Errorf("pack swapExactETHForTokens: %w", err)
	}

	return &TxDescriptor{
		To:       chain.RouterAddress,
		CallData: data,
		Value:    new(big.Int).Set(quote.AmountIn),
		Deadline: deadline,
	}, nil
}

func (p *RouterProvider) swapPath(chain *config.ChainConfig) []common.Address {
	return []common.Address{
		common.HexToAddress(chain.WrappedNative),
		common.HexToAddress(chain.USDCAddress),
	}
}

// applySlippage lowers the expected output by bps basis points.
func applySlippage(expected *big.Int, bps int64) *big.Int {
	out := new(big.Int).Mul(expected, big.NewInt(10000-bps))
	return out.Div(out, big.NewInt(10000))
}
