package usecases

import (
	"context"
	"math/big"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"stablepay.backend/internal/config"
	"stablepay.backend/internal/domain/entities"
	domainerrors "stablepay.backend/internal/domain/errors"
	"stablepay.backend/internal/infrastructure/blockchain"
	"stablepay.backend/pkg/logger"
	"stablepay.backend/pkg/utils"
)

const (
	nativeDecimals = 18
	usdcDecimals   = 6
)

// BalanceScanner reads a payer's native and USDC balances across every
// configured source chain.
type BalanceScanner struct {
	chains  []config.ChainConfig
	clients *blockchain.ClientFactory
}

// NewBalanceScanner creates a balance scanner
func NewBalanceScanner(chains []config.ChainConfig, clients *blockchain.ClientFactory) *BalanceScanner {
	return &BalanceScanner{chains: chains, clients: clients}
}

// Scan queries all chains concurrently. One chain's RPC failure zeroes that
// chain's entry (with Error set) rather than failing the snapshot; the
// planner simply sees no funds there.
func (s *BalanceScanner) Scan(ctx context.Context, payerAddress string) (entities.BalanceSnapshot, error) {
	if !utils.IsValidEVMAddress(payerAddress) {
		return nil, domainerrors.ErrInvalidAddress
	}
	payer := utils.NormalizeAddress(payerAddress)

	snapshot := make(entities.BalanceSnapshot, len(s.chains))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := range s.chains {
		chain := s.chains[i]
		wg.Add(1)
		go func() {
			defer wg.Done()

			balance := s.scanChain(ctx, &chain, payer)

			mu.Lock()
			snapshot[chain.Key] = balance
			mu.Unlock()
		}()
	}
	wg.Wait()

	return snapshot, nil
}

func (s *BalanceScanner) scanChain(ctx context.Context, chain *config.ChainConfig, payer string) entities.ChainBalance {
	balance := entities.ChainBalance{
		Chain:   chain.Key,
		Native:  "0",
		USDC:    "0",
		HasSwap: chain.HasSwap,
	}

	client, err := s.clients.GetEVMClient(chain.RPCURL)
	if err != nil {
		balance.Error = err.Error()
		logger.Warn(ctx, "balance scan failed",
			zap.String("chain", chain.Key),
			zap.Error(err))
		return balance
	}

	native, err := client.GetBalance(ctx, payer)
	if err != nil {
		balance.Error = err.Error()
		logger.Warn(ctx, "native balance query failed",
			zap.String("chain", chain.Key),
			zap.Error(err))
		return balance
	}

	usdc, err := client.GetTokenBalance(ctx, chain.USDCAddress, payer)
	if err != nil {
		balance.Error = err.Error()
		logger.Warn(ctx, "usdc balance query failed",
			zap.String("chain", chain.Key),
			zap.Error(err))
		return balance
	}

	balance.Native = fromBaseUnits(native, nativeDecimals)
	balance.USDC = fromBaseUnits(usdc, usdcDecimals)
	return balance
}

// fromBaseUnits renders an on-chain integer amount as a decimal string.
func fromBaseUnits(amount *big.Int, decimals int32) string {
	return decimal.NewFromBigInt(amount, -decimals).String()
}

// toBaseUnits converts a decimal string to on-chain integer units, truncating
// sub-unit dust.
func toBaseUnits(amount decimal.Decimal, decimals int32) *big.Int {
	return amount.Shift(decimals).Truncate(0).BigInt()
}
