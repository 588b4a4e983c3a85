package usecases

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"stablepay.backend/internal/config"
	"stablepay.backend/internal/domain/entities"
	domainerrors "stablepay.backend/internal/domain/errors"
	"stablepay.backend/internal/infrastructure/swap"
	"stablepay.backend/pkg/logger"
)

// RoutePlanner turns a balance snapshot and a target amount into a funding
// plan plus the quote the payer authorizes. All arithmetic is exact decimal;
// amounts are kept as strings everywhere else.
type RoutePlanner struct {
	chains      []config.ChainConfig
	provider    swap.Provider
	bridgeFee   decimal.Decimal // flat, per contributing chain
	destGas     decimal.Decimal // flat, once per plan
	protocolFee decimal.Decimal // fraction of the target
}

// NewRoutePlanner creates a route planner from payment fee configuration
func NewRoutePlanner(chains []config.ChainConfig, provider swap.Provider, payment config.PaymentConfig) (*RoutePlanner, error) {
	bridgeFee, err := decimal.NewFromString(payment.BridgeFeeFlat)
	if err != nil {
		return nil, fmt.Errorf("parse bridge fee %q: %w", payment.BridgeFeeFlat, err)
	}
	destGas, err := decimal.NewFromString(payment.DestinationGasFlat)
	if err != nil {
		return nil, fmt.Errorf("parse destination gas %q: %w", payment.DestinationGasFlat, err)
	}
	protocolFee, err := decimal.NewFromString(payment.ProtocolFeePercent)
	if err != nil {
		return nil, fmt.Errorf("parse protocol fee %q: %w", payment.ProtocolFeePercent, err)
	}
	return &RoutePlanner{
		chains:      chains,
		provider:    provider,
		bridgeFee:   bridgeFee,
		destGas:     destGas,
		protocolFee: protocolFee,
	}, nil
}

// candidate is one chain's possible contribution, net of its own fees
type candidate struct {
	step  entities.PlanStep
	gross decimal.Decimal // settlement units arriving before per-chain fees
	net   decimal.Decimal // usable toward the target
	fee   decimal.Decimal // swap slippage allowance, zero for stablecoin steps
}

// Plan greedily accumulates contributions in configuration order: direct
// stablecoin balances first, then swap-required native balances. Order is
// deterministic by configuration, never by balance size. An insufficient
// total returns sufficientFunds:false with the exact shortfall and no steps.
func (p *RoutePlanner) Plan(ctx context.Context, snapshot entities.BalanceSnapshot, targetAmount string) (*entities.SourcePlan, *entities.Quote, error) {
	target, err := decimal.NewFromString(targetAmount)
	if err != nil || target.Sign() <= 0 {
		return nil, nil, domainerrors.ErrInvalidAmount
	}

	// destination gas is paid out of the bridged total, so the plan must
	// deliver target + gas to the settlement chain
	needed := target.Add(p.destGas)
	remaining := needed

	candidates := p.stablecoinCandidates(snapshot)
	swapCands, swapErr := p.swapCandidates(ctx, snapshot, remaining, candidates)
	if swapErr != nil {
		return nil, nil, swapErr
	}
	candidates = append(candidates, swapCands...)

	var (
		steps          []entities.PlanStep
		totalAvailable decimal.Decimal
		swapFees       decimal.Decimal
		bridgeFees     decimal.Decimal
		authorized     decimal.Decimal
	)

	for _, cand := range candidates {
		totalAvailable = totalAvailable.Add(cand.net)
		if remaining.Sign() <= 0 {
			continue
		}

		take := cand
		if cand.net.GreaterThan(remaining) && cand.step.Type == entities.StepTypeStablecoin {
			// trim a direct contribution to exactly what is still needed
			take.net = remaining
			take.gross = remaining.Add(p.bridgeFee)
			take.step.Amount = take.gross.String()
			take.step.EstimatedUsdcOut = take.net.String()
		}

		steps = append(steps, take.step)
		remaining = remaining.Sub(take.net)
		swapFees = swapFees.Add(take.fee)
		bridgeFees = bridgeFees.Add(p.bridgeFee)
		authorized = authorized.Add(take.gross)
	}

	if remaining.Sign() > 0 {
		logger.Info(ctx, "insufficient funds for plan",
			zap.String("target", target.String()),
			zap.String("shortfall", remaining.String()))
		plan := &entities.SourcePlan{
			SufficientFunds: false,
			Shortfall:       remaining.String(),
			TotalAvailable:  totalAvailable.String(),
		}
		return plan, nil, nil
	}

	protocolFee := target.Mul(p.protocolFee)
	totalFee := swapFees.Add(bridgeFees).Add(p.destGas).Add(protocolFee)

	plan := &entities.SourcePlan{
		Steps:           steps,
		SufficientFunds: true,
		TotalAvailable:  totalAvailable.String(),
	}
	quote := &entities.Quote{
		TargetAmount:    target.String(),
		TotalAuthorized: authorized.String(),
		NetToMerchant:   target.Sub(protocolFee).String(),
		Fees: entities.FeeBreakdown{
			SwapFees:       swapFees.String(),
			BridgeFee:      bridgeFees.String(),
			DestinationGas: p.destGas.String(),
			ProtocolFee:    protocolFee.String(),
			TotalFee:       totalFee.String(),
		},
	}
	return plan, quote, nil
}

// stablecoinCandidates collects direct USDC contributions in config order.
func (p *RoutePlanner) stablecoinCandidates(snapshot entities.BalanceSnapshot) []candidate {
	var out []candidate
	for _, chain := range p.chains {
		bal, ok := snapshot[chain.Key]
		if !ok {
			continue
		}
		usdc, err := decimal.NewFromString(bal.USDC)
		if err != nil || usdc.Sign() <= 0 {
			continue
		}
		net := usdc.Sub(p.bridgeFee)
		if net.Sign() <= 0 {
			// balance cannot cover its own bridge fee
			continue
		}
		out = append(out, candidate{
			step: entities.PlanStep{
				Chain:            chain.Key,
				Type:             entities.StepTypeStablecoin,
				Amount:           usdc.String(),
				EstimatedUsdcOut: net.String(),
			},
			gross: usdc,
			net:   net,
		})
	}
	return out
}

// swapCandidates quotes native balances on swap-enabled chains, in config
// order. Quoting stops contributing once the direct candidates already cover
// the requirement, but chains with hasSwap:false or zero native are never
// candidates at all.
func (p *RoutePlanner) swapCandidates(ctx context.Context, snapshot entities.BalanceSnapshot, needed decimal.Decimal, direct []candidate) ([]candidate, error) {
	remaining := needed
	for _, c := range direct {
		remaining = remaining.Sub(c.net)
	}
	if remaining.Sign() <= 0 {
		return nil, nil
	}

	var out []candidate
	for i := range p.chains {
		chain := p.chains[i]
		if !chain.HasSwap {
			continue
		}
		bal, ok := snapshot[chain.Key]
		if !ok {
			continue
		}
		native, err := decimal.NewFromString(bal.Native)
		if err != nil || native.Sign() <= 0 {
			continue
		}

		quote, err := p.provider.Quote(ctx, &chain, toBaseUnits(native, nativeDecimals))
		if err != nil {
			// a retryable step failure for the caller, not a silent skip
			return nil, fmt.Errorf("quote %s swap: %w", chain.Key, err)
		}

		expected := decimal.NewFromBigInt(quote.ExpectedOutput, -usdcDecimals)
		minOut := decimal.NewFromBigInt(quote.MinOutput, -usdcDecimals)
		slippage := expected.Sub(minOut)

		amountIn := native
		net := minOut.Sub(p.bridgeFee)
		if net.Sign() <= 0 {
			continue
		}
		if net.GreaterThan(remaining) {
			// scale the input down so the step produces just the shortfall
			ratio := remaining.Div(net)
			amountIn = native.Mul(ratio)
			slippage = slippage.Mul(ratio)
			expected = expected.Mul(ratio)
			net = remaining
		}

		out = append(out, candidate{
			step: entities.PlanStep{
				Chain:            chain.Key,
				Type:             entities.StepTypeSwap,
				Amount:           amountIn.String(),
				EstimatedUsdcOut: net.String(),
			},
			gross: expected,
			net:   net,
			fee:   slippage,
		})
		remaining = remaining.Sub(net)
	}
	return out, nil
}
