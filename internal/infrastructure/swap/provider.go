package swap

import (
	"context"
	"math/big"

	"stablepay.backend/internal/config"
)

// SwapQuote is a live estimate of USDC received for a native-token input
type SwapQuote struct {
	AmountIn       *big.Int // native units (wei)
	ExpectedOutput *big.Int // USDC units (6 decimals)
	MinOutput      *big.Int // slippage floor applied
}

// TxDescriptor is a swap transaction ready for submission via the custodial
// signing service.
type TxDescriptor struct {
	To       string
	CallData []byte
	Value    *big.Int
	Deadline *big.Int
}

// Provider converts source-chain native balances to USDC. Implementations
// differ only in where the price and calldata come from; the orchestrator
// treats them interchangeably.
type Provider interface {
	Name() string
	// Quote estimates USDC out for a native amount in on one chain.
	Quote(ctx context.Context, chain *config.ChainConfig, amountIn *big.Int) (*SwapQuote, error)
	// BuildTransaction produces the swap transaction for a previously
	// obtained quote. The recipient receives the USDC output.
	BuildTransaction(ctx context.Context, chain *config.ChainConfig, quote *SwapQuote, recipient string) (*TxDescriptor, error)
}
