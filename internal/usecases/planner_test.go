package usecases

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"stablepay.backend/internal/config"
	"stablepay.backend/internal/domain/entities"
	domainerrors "stablepay.backend/internal/domain/errors"
)

func testChains() []config.ChainConfig {
	return []config.ChainConfig{
		{
			Key:           "base-sepolia",
			ChainID:       84532,
			RPCURL:        "http://base.rpc.test",
			USDCAddress:   "0x036CbD53842c5426634e7929541eC2318f3dCF7e",
			RouterAddress: "0x1689E7B1F10000AE47eBfE339a4f69dECd19F602",
			WrappedNative: "0x4200000000000000000000000000000000000006",
			GatewayDomain: 6,
			NativeSymbol:  "ETH",
			HasSwap:       true,
		},
		{
			Key:           "ethereum-sepolia",
			ChainID:       11155111,
			RPCURL:        "http://eth.rpc.test",
			USDCAddress:   "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238",
			GatewayDomain: 0,
			NativeSymbol:  "ETH",
			HasSwap:       false,
		},
	}
}

func testPaymentConfig() config.PaymentConfig {
	return config.PaymentConfig{
		ProtocolFeePercent: "0.003",
		BridgeFeeFlat:      "0.10",
		DestinationGasFlat: "0.05",
	}
}

func newTestPlanner(t *testing.T, provider *stubSwapProvider) *RoutePlanner {
	t.Helper()
	planner, err := NewRoutePlanner(testChains(), provider, testPaymentConfig())
	require.NoError(t, err)
	return planner
}

func TestRoutePlanner_DirectStablecoinSufficient(t *testing.T) {
	planner := newTestPlanner(t, &stubSwapProvider{rate: 200_000_000})

	snapshot := entities.BalanceSnapshot{
		"base-sepolia":     {Chain: "base-sepolia", Native: "0", USDC: "80", HasSwap: true},
		"ethereum-sepolia": {Chain: "ethereum-sepolia", Native: "0", USDC: "50"},
	}

	plan, quote, err := planner.Plan(context.Background(), snapshot, "100")
	require.NoError(t, err)
	require.True(t, plan.SufficientFunds)
	require.Len(t, plan.Steps, 2)

	// config order, not balance order
	assert.Equal(t, "base-sepolia", plan.Steps[0].Chain)
	assert.Equal(t, entities.StepTypeStablecoin, plan.Steps[0].Type)
	assert.Equal(t, "80", plan.Steps[0].Amount)
	assert.Equal(t, "79.9", plan.Steps[0].EstimatedUsdcOut)

	// the second contribution is trimmed to exactly what remains:
	// needed = 100 + 0.05 gas, base nets 79.9, so 20.15 net / 20.25 gross
	assert.Equal(t, "ethereum-sepolia", plan.Steps[1].Chain)
	assert.Equal(t, "20.25", plan.Steps[1].Amount)
	assert.Equal(t, "20.15", plan.Steps[1].EstimatedUsdcOut)

	assert.Equal(t, "129.8", plan.TotalAvailable)

	require.NotNil(t, quote)
	assert.Equal(t, "100", quote.TargetAmount)
	assert.Equal(t, "100.25", quote.TotalAuthorized)
	assert.Equal(t, "99.7", quote.NetToMerchant)
	assert.Equal(t, "0", quote.Fees.SwapFees)
	assert.Equal(t, "0.2", quote.Fees.BridgeFee)
	assert.Equal(t, "0.05", quote.Fees.DestinationGas)
	assert.Equal(t, "0.3", quote.Fees.ProtocolFee)
	assert.Equal(t, "0.55", quote.Fees.TotalFee)
}

func TestRoutePlanner_InsufficientFunds(t *testing.T) {
	planner := newTestPlanner(t, &stubSwapProvider{rate: 200_000_000})

	snapshot := entities.BalanceSnapshot{
		"base-sepolia":     {Chain: "base-sepolia", Native: "0", USDC: "10", HasSwap: true},
		"ethereum-sepolia": {Chain: "ethereum-sepolia", Native: "0", USDC: "5"},
	}

	plan, quote, err := planner.Plan(context.Background(), snapshot, "100")
	require.NoError(t, err)
	assert.Nil(t, quote)
	assert.False(t, plan.SufficientFunds)
	assert.Empty(t, plan.Steps)
	// needed = 100.05, nets = 9.9 + 4.9
	assert.Equal(t, "85.25", plan.Shortfall)
	assert.Equal(t, "14.8", plan.TotalAvailable)
}

func TestRoutePlanner_SwapCoversShortfall(t *testing.T) {
	// 200 USDC per native, 50 bps slippage floor in the stub
	planner := newTestPlanner(t, &stubSwapProvider{rate: 200_000_000})

	snapshot := entities.BalanceSnapshot{
		"base-sepolia":     {Chain: "base-sepolia", Native: "1", USDC: "0", HasSwap: true},
		"ethereum-sepolia": {Chain: "ethereum-sepolia", Native: "0", USDC: "2"},
	}

	plan, quote, err := planner.Plan(context.Background(), snapshot, "100")
	require.NoError(t, err)
	require.True(t, plan.SufficientFunds)
	require.NotNil(t, quote)
	require.Len(t, plan.Steps, 2)

	// direct contributions come first, swaps fill the remainder
	assert.Equal(t, entities.StepTypeStablecoin, plan.Steps[0].Type)
	assert.Equal(t, "ethereum-sepolia", plan.Steps[0].Chain)
	assert.Equal(t, entities.StepTypeSwap, plan.Steps[1].Type)
	assert.Equal(t, "base-sepolia", plan.Steps[1].Chain)

	// the swap input is scaled down so its net output is exactly the
	// shortfall left after the direct contribution: 100.05 - 1.9
	assert.Equal(t, "98.15", plan.Steps[1].EstimatedUsdcOut)
	assert.Equal(t, "99.7", quote.NetToMerchant)
}

func TestRoutePlanner_DustBalanceBelowBridgeFeeSkipped(t *testing.T) {
	planner := newTestPlanner(t, &stubSwapProvider{rate: 200_000_000})

	snapshot := entities.BalanceSnapshot{
		"base-sepolia":     {Chain: "base-sepolia", Native: "0", USDC: "0.05", HasSwap: true},
		"ethereum-sepolia": {Chain: "ethereum-sepolia", Native: "0", USDC: "200"},
	}

	plan, _, err := planner.Plan(context.Background(), snapshot, "100")
	require.NoError(t, err)
	require.True(t, plan.SufficientFunds)
	// 0.05 USDC cannot cover its own 0.10 bridge fee
	require.Len(t, plan.Steps, 1)
	assert.Equal(t, "ethereum-sepolia", plan.Steps[0].Chain)
}

func TestRoutePlanner_QuoteErrorPropagates(t *testing.T) {
	boom := errors.New("router unreachable")
	planner := newTestPlanner(t, &stubSwapProvider{quoteErr: boom})

	snapshot := entities.BalanceSnapshot{
		"base-sepolia":     {Chain: "base-sepolia", Native: "1", USDC: "0", HasSwap: true},
		"ethereum-sepolia": {Chain: "ethereum-sepolia", Native: "0", USDC: "2"},
	}

	_, _, err := planner.Plan(context.Background(), snapshot, "100")
	require.ErrorIs(t, err, boom)
}

func TestRoutePlanner_SwapNotQuotedWhenDirectCovers(t *testing.T) {
	boom := errors.New("should not be called")
	planner := newTestPlanner(t, &stubSwapProvider{quoteErr: boom})

	snapshot := entities.BalanceSnapshot{
		"base-sepolia":     {Chain: "base-sepolia", Native: "5", USDC: "0", HasSwap: true},
		"ethereum-sepolia": {Chain: "ethereum-sepolia", Native: "0", USDC: "500"},
	}

	plan, _, err := planner.Plan(context.Background(), snapshot, "100")
	require.NoError(t, err)
	assert.True(t, plan.SufficientFunds)
}

func TestRoutePlanner_InvalidTarget(t *testing.T) {
	planner := newTestPlanner(t, &stubSwapProvider{rate: 200_000_000})

	for _, target := range []string{"", "abc", "0", "-5"} {
		_, _, err := planner.Plan(context.Background(), entities.BalanceSnapshot{}, target)
		assert.ErrorIs(t, err, domainerrors.ErrInvalidAmount, "target %q", target)
	}
}

func TestRoutePlanner_RejectsBadFeeConfig(t *testing.T) {
	_, err := NewRoutePlanner(testChains(), &stubSwapProvider{}, config.PaymentConfig{
		ProtocolFeePercent: "not-a-number",
		BridgeFeeFlat:      "0.10",
		DestinationGasFlat: "0.05",
	})
	require.Error(t, err)
}
