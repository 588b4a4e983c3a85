package swap

import (
	"fmt"

	"stablepay.backend/internal/config"
	"stablepay.backend/internal/infrastructure/blockchain"
)

// NewProvider selects the configured swap provider. Exactly one provider is
// active per deployment.
func NewProvider(cfg config.SwapConfig, clients *blockchain.ClientFactory) (Provider, error) {
	switch cfg.Provider {
	case "router":
		return NewRouterProvider(clients, cfg.SlippageBps, cfg.QuoteDeadline)
	case "aggregator":
		return NewAggregatorProvider(cfg.AggregatorBaseURL, cfg.SlippageBps), nil
	default:
		return nil, fmt.Errorf("unknown swap provider %q", cfg.Provider)
	}
}
