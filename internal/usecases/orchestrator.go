package usecases

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"stablepay.backend/internal/config"
	"stablepay.backend/internal/domain/entities"
	domainerrors "stablepay.backend/internal/domain/errors"
	"stablepay.backend/internal/domain/repositories"
	"stablepay.backend/internal/infrastructure/custody"
	"stablepay.backend/internal/infrastructure/gateway"
	"stablepay.backend/internal/infrastructure/swap"
	"stablepay.backend/pkg/logger"
	"stablepay.backend/pkg/metrics"
	"stablepay.backend/pkg/utils"
)

const custodyPollInterval = 3 * time.Second

// CustodyService is the slice of the custody client the orchestrator uses.
type CustodyService interface {
	CreateWallet(ctx context.Context, chain string) (*custody.Wallet, error)
	ExecuteContractCall(ctx context.Context, call *custody.ContractCall) (string, error)
	WaitForTransaction(ctx context.Context, challengeID string, interval time.Duration) (*custody.TransactionStatus, error)
	SignTypedData(ctx context.Context, walletID string, typedData apitypes.TypedData) (string, error)
}

// BridgeService is the slice of the gateway client the orchestrator uses.
type BridgeService interface {
	DepositContract(ctx context.Context, chain *config.ChainConfig) (string, error)
	SubmitBurnIntent(ctx context.Context, signer gateway.TypedDataSigner, walletID string, intent *gateway.BurnIntent) (string, error)
	WaitForAttestation(ctx context.Context, transferID string, interval time.Duration) (*gateway.Attestation, error)
}

// Notifier delivers job lifecycle events to merchant endpoints.
type Notifier interface {
	Dispatch(ctx context.Context, job *entities.PaymentJob, eventType string)
}

// PaymentOrchestrator owns every PaymentJob status transition. It prepares
// jobs (scan, plan, quote), then drives confirmed jobs through swap, deposit,
// bridge, mint and final payment. Each job executes independently; no state
// is shared between in-flight jobs except the store.
type PaymentOrchestrator struct {
	jobs     repositories.JobRepository
	scanner  *BalanceScanner
	planner  *RoutePlanner
	provider swap.Provider
	custody  CustodyService
	bridge   BridgeService
	notifier Notifier
	cfg      *config.Config

	wg sync.WaitGroup
	// hashMu serializes recordTxHash: concurrent swap steps share the job's
	// in-memory txHashes map
	hashMu sync.Mutex
	// runAsync is a test hook; replaced to run pipelines synchronously
	runAsync func(fn func())
}

// NewPaymentOrchestrator creates the orchestrator
func NewPaymentOrchestrator(
	jobs repositories.JobRepository,
	scanner *BalanceScanner,
	planner *RoutePlanner,
	provider swap.Provider,
	custodySvc CustodyService,
	bridge BridgeService,
	notifier Notifier,
	cfg *config.Config,
) *PaymentOrchestrator {
	o := &PaymentOrchestrator{
		jobs:     jobs,
		scanner:  scanner,
		planner:  planner,
		provider: provider,
		custody:  custodySvc,
		bridge:   bridge,
		notifier: notifier,
		cfg:      cfg,
	}
	o.runAsync = func(fn func()) {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			fn()
		}()
	}
	return o
}

// Wait blocks until all in-flight job pipelines finish. Used on shutdown.
func (o *PaymentOrchestrator) Wait() {
	o.wg.Wait()
}

// CreateJob opens a payment job and prepares it: balances are scanned, the
// plan and quote are computed and frozen. A sufficient plan leaves the job in
// AWAITING_CONFIRMATION (or starts execution directly when skipConfirmation
// is set); an insufficient one fails the job with the shortfall recorded.
func (o *PaymentOrchestrator) CreateJob(ctx context.Context, input *entities.CreateJobInput) (*entities.PaymentJob, error) {
	if !utils.IsValidEVMAddress(input.PayerAddress) || !utils.IsValidEVMAddress(input.MerchantAddress) {
		return nil, domainerrors.ErrInvalidAddress
	}
	if amt, err := decimal.NewFromString(input.Amount); err != nil || amt.Sign() <= 0 {
		return nil, domainerrors.ErrInvalidAmount
	}

	expires := time.Now().Add(o.cfg.Payment.ConfirmationTTL)
	job := &entities.PaymentJob{
		ID:               utils.GenerateUUIDv7(),
		PayerAddress:     utils.NormalizeAddress(input.PayerAddress),
		MerchantAddress:  utils.NormalizeAddress(input.MerchantAddress),
		Amount:           input.Amount,
		Status:           entities.JobStatusScanning,
		TxHashes:         entities.TxHashes{},
		SkipConfirmation: input.SkipConfirmation,
		ExpiresAt:        &expires,
	}
	if err := o.jobs.Create(ctx, job); err != nil {
		return nil, err
	}
	metrics.JobTransitions.WithLabelValues(string(entities.JobStatusScanning)).Inc()

	if err := o.prepare(ctx, job); err != nil {
		return job, err
	}
	return job, nil
}

// CreateSubscriptionJob opens an auto-executing job on behalf of a billing
// tick. Confirmation is skipped; the subscription's authorization stands in
// for the payer's.
func (o *PaymentOrchestrator) CreateSubscriptionJob(ctx context.Context, sub *entities.Subscription) (*entities.PaymentJob, error) {
	if !sub.Authorized() {
		return nil, domainerrors.ErrCredentialMissing
	}

	expires := time.Now().Add(o.cfg.Payment.ConfirmationTTL)
	job := &entities.PaymentJob{
		ID:               utils.GenerateUUIDv7(),
		PayerAddress:     utils.NormalizeAddress(sub.PayerAddress),
		MerchantAddress:  utils.NormalizeAddress(sub.MerchantAddress),
		Amount:           sub.Amount,
		Status:           entities.JobStatusScanning,
		TxHashes:         entities.TxHashes{},
		SkipConfirmation: true,
		SubscriptionID:   &sub.ID,
		ExpiresAt:        &expires,
	}
	if err := o.jobs.Create(ctx, job); err != nil {
		return nil, err
	}
	metrics.JobTransitions.WithLabelValues(string(entities.JobStatusScanning)).Inc()

	if err := o.prepare(ctx, job); err != nil {
		return job, err
	}
	return job, nil
}

// prepare runs the SCANNING and ROUTING phases synchronously. The plan and
// quote persisted here never change again for the life of the job.
func (o *PaymentOrchestrator) prepare(ctx context.Context, job *entities.PaymentJob) error {
	snapshot, err := o.scanner.Scan(ctx, job.PayerAddress)
	if err != nil {
		return o.failJob(ctx, job, err)
	}

	if err := o.transition(ctx, job, entities.JobStatusRouting, &entities.JobUpdate{}); err != nil {
		return err
	}

	plan, quote, err := o.planner.Plan(ctx, snapshot, job.Amount)
	if err != nil {
		return o.failJob(ctx, job, err)
	}

	if !plan.SufficientFunds {
		update := &entities.JobUpdate{Plan: plan}
		failed := entities.JobStatusFailed
		update.Status = &failed
		msg := fmt.Sprintf("insufficient funds: short %s", plan.Shortfall)
		update.Error = &msg
		if err := o.jobs.Update(ctx, job.ID, update); err != nil {
			return err
		}
		job.Status = failed
		job.SourcePlan = plan
		metrics.JobTransitions.WithLabelValues(string(failed)).Inc()
		return domainerrors.ErrInsufficientFunds
	}

	update := &entities.JobUpdate{Plan: plan, Quote: quote}
	job.SourcePlan = plan
	job.Quote = quote

	if job.SkipConfirmation {
		// ROUTING advances straight to SWAPPING for automated flows
		if err := o.transition(ctx, job, entities.JobStatusSwapping, update); err != nil {
			return err
		}
		o.startPipeline(job)
		return nil
	}

	return o.transition(ctx, job, entities.JobStatusAwaitingConfirmation, update)
}

// Confirm moves a job the payer has approved into execution.
func (o *PaymentOrchestrator) Confirm(ctx context.Context, jobID uuid.UUID) (*entities.PaymentJob, error) {
	job, err := o.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != entities.JobStatusAwaitingConfirmation {
		return nil, domainerrors.ErrJobNotConfirmable
	}
	if job.ExpiresAt != nil && time.Now().After(*job.ExpiresAt) {
		if err := o.transition(ctx, job, entities.JobStatusExpired, &entities.JobUpdate{}); err != nil {
			return nil, err
		}
		return nil, domainerrors.ErrJobNotConfirmable
	}

	if err := o.transition(ctx, job, entities.JobStatusSwapping, &entities.JobUpdate{}); err != nil {
		return nil, err
	}
	o.startPipeline(job)
	return job, nil
}

// Retry re-enters a FAILED or EXPIRED job. Completed steps are never
// re-executed: each pipeline step checks its recorded tx hash first, so a
// retry resumes exactly where the job stopped.
func (o *PaymentOrchestrator) Retry(ctx context.Context, jobID uuid.UUID) (*entities.PaymentJob, error) {
	job, err := o.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	resume := o.resumeStatus(job)
	if !job.Status.CanReenterFrom(resume) {
		return nil, domainerrors.ErrJobNotRetryable
	}

	clear := ""
	update := &entities.JobUpdate{Status: &resume, Error: &clear}
	if resume.IsPreExecution() {
		expires := time.Now().Add(o.cfg.Payment.ConfirmationTTL)
		update.ExpiresAt = &expires
		job.ExpiresAt = &expires
	}
	if err := o.jobs.Update(ctx, job.ID, update); err != nil {
		return nil, err
	}
	job.Status = resume
	job.Error.Valid = false
	job.Error.String = ""
	metrics.JobTransitions.WithLabelValues(string(resume)).Inc()

	switch {
	case resume == entities.JobStatusScanning:
		if err := o.prepare(ctx, job); err != nil {
			return job, err
		}
	case resume.IsExecuting():
		o.startPipeline(job)
	}
	// AWAITING_CONFIRMATION resumes wait for the payer
	return job, nil
}

// resumeStatus picks where a retried job re-enters, based on what the job
// has already durably recorded.
func (o *PaymentOrchestrator) resumeStatus(job *entities.PaymentJob) entities.JobStatus {
	if job.Status == entities.JobStatusExpired {
		if job.SourcePlan == nil || job.Quote == nil {
			return entities.JobStatusScanning
		}
		return entities.JobStatusAwaitingConfirmation
	}

	// FAILED before the plan froze: start over
	if job.SourcePlan == nil || job.Quote == nil {
		return entities.JobStatusScanning
	}

	if job.TxHashes.Has(entities.PayTxKey) {
		return entities.JobStatusPaying
	}
	steps := job.SourcePlan.Steps
	allMinted, allBurned, allDeposited := true, true, true
	for _, s := range steps {
		if !job.TxHashes.Has(entities.MintTxKey(s.Chain)) {
			allMinted = false
		}
		if !job.TxHashes.Has(entities.BurnTxKey(s.Chain)) {
			allBurned = false
		}
		if !job.TxHashes.Has(entities.DepositTxKey(s.Chain)) {
			allDeposited = false
		}
	}
	switch {
	case allMinted:
		return entities.JobStatusPaying
	case allBurned:
		return entities.JobStatusMinting
	case allDeposited:
		return entities.JobStatusGatewayTransferring
	}

	for _, s := range job.SourcePlan.SwapSteps() {
		if !job.TxHashes.Has(entities.SwapTxKey(s.Chain)) {
			return entities.JobStatusSwapping
		}
	}
	return entities.JobStatusGatewayDepositing
}

// GetJob returns a job's read model
func (o *PaymentOrchestrator) GetJob(ctx context.Context, jobID uuid.UUID) (*entities.PaymentJob, error) {
	return o.jobs.GetByID(ctx, jobID)
}

// ListJobs returns a payer's jobs, newest first
func (o *PaymentOrchestrator) ListJobs(ctx context.Context, payerAddress string, limit, offset int) ([]*entities.PaymentJob, int, error) {
	return o.jobs.GetByPayer(ctx, utils.NormalizeAddress(payerAddress), limit, offset)
}

// PreviewQuote scans and plans without persisting anything. Backs the
// standalone quote endpoint.
func (o *PaymentOrchestrator) PreviewQuote(ctx context.Context, payerAddress, amount string) (*entities.SourcePlan, *entities.Quote, error) {
	snapshot, err := o.scanner.Scan(ctx, payerAddress)
	if err != nil {
		return nil, nil, err
	}
	return o.planner.Plan(ctx, snapshot, amount)
}

// startPipeline resumes execution of a job that is already in an executing
// state, asynchronously so one job's confirmation waits never block another.
func (o *PaymentOrchestrator) startPipeline(job *entities.PaymentJob) {
	o.runAsync(func() {
		ctx := context.WithValue(context.Background(), logger.JobIDKey, job.ID.String())
		if err := o.execute(ctx, job); err != nil {
			logger.Error(ctx, "job pipeline stopped",
				zap.String("status", string(job.Status)),
				zap.Error(err))
		}
	})
}

// execute drives the job from its current executing state to COMPLETE. The
// transition into each state is persisted before the state's work begins, so
// a crash leaves an accurate record of how far execution progressed.
func (o *PaymentOrchestrator) execute(ctx context.Context, job *entities.PaymentJob) error {
	type phase struct {
		status entities.JobStatus
		run    func(context.Context, *entities.PaymentJob) error
	}
	phases := []phase{
		{entities.JobStatusSwapping, o.runSwaps},
		{entities.JobStatusGatewayDepositing, o.runDeposits},
		{entities.JobStatusGatewayTransferring, o.runTransfers},
		{entities.JobStatusMinting, o.runMints},
		{entities.JobStatusPaying, o.runPayment},
	}

	started := false
	for _, p := range phases {
		if !started {
			if job.Status != p.status {
				continue
			}
			started = true
		} else if err := o.transition(ctx, job, p.status, &entities.JobUpdate{}); err != nil {
			return err
		}

		if err := p.run(ctx, job); err != nil {
			return o.failJob(ctx, job, err)
		}
	}
	if !started {
		return fmt.Errorf("job %s not in an executing state: %s", job.ID, job.Status)
	}

	if err := o.transition(ctx, job, entities.JobStatusComplete, &entities.JobUpdate{}); err != nil {
		return err
	}
	logger.Info(ctx, "payment complete",
		zap.String("merchant", job.MerchantAddress),
		zap.String("amount", job.Amount))

	if o.notifier != nil {
		o.notifier.Dispatch(ctx, job, "payment.completed")
	}
	return nil
}

// runSwaps executes every swap step concurrently and waits for all of them.
// Execution does not advance past SWAPPING until the last swap confirms.
func (o *PaymentOrchestrator) runSwaps(ctx context.Context, job *entities.PaymentJob) error {
	steps := job.SourcePlan.SwapSteps()
	if len(steps) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	errs := make([]error, len(steps))

	for i, step := range steps {
		if job.TxHashes.Has(entities.SwapTxKey(step.Chain)) {
			continue // already confirmed in a previous attempt
		}
		wg.Add(1)
		go func(i int, step entities.PlanStep) {
			defer wg.Done()
			errs[i] = o.runSwapStep(ctx, job, step)
		}(i, step)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func (o *PaymentOrchestrator) runSwapStep(ctx context.Context, job *entities.PaymentJob, step entities.PlanStep) error {
	chain := o.cfg.ChainByKey(step.Chain)
	if chain == nil {
		return domainerrors.ErrUnsupportedChain
	}

	amountIn, err := decimal.NewFromString(step.Amount)
	if err != nil {
		return fmt.Errorf("swap %s: bad amount %q", step.Chain, step.Amount)
	}

	quote, err := o.provider.Quote(ctx, chain, toBaseUnits(amountIn, nativeDecimals))
	if err != nil {
		return fmt.Errorf("swap %s quote: %w", step.Chain, err)
	}

	wallet, err := o.custody.CreateWallet(ctx, chain.Key)
	if err != nil {
		return fmt.Errorf("swap %s wallet: %w", step.Chain, err)
	}

	tx, err := o.provider.BuildTransaction(ctx, chain, quote, wallet.Address)
	if err != nil {
		return fmt.Errorf("swap %s build: %w", step.Chain, err)
	}

	txHash, err := o.submitAndConfirm(ctx, &custody.ContractCall{
		WalletID: wallet.ID,
		Target:   tx.To,
		CallData: fmt.Sprintf("0x%x", tx.CallData),
		FeeLevel: "MEDIUM",
	})
	if err != nil {
		return fmt.Errorf("swap %s: %w", step.Chain, err)
	}

	return o.recordTxHash(ctx, job, entities.SwapTxKey(step.Chain), txHash)
}

// runDeposits approves and deposits each contributing chain's USDC into the
// settlement bridge contract. The two calls are independently confirmed and
// recorded; the deposit is only submitted once the approve hash is durable,
// honoring the bridge indexer's documented pre-check ordering.
func (o *PaymentOrchestrator) runDeposits(ctx context.Context, job *entities.PaymentJob) error {
	for _, step := range job.SourcePlan.Steps {
		chain := o.cfg.ChainByKey(step.Chain)
		if chain == nil {
			return domainerrors.ErrUnsupportedChain
		}

		depositContract, err := o.bridge.DepositContract(ctx, chain)
		if err != nil {
			return fmt.Errorf("deposit %s: contract lookup: %w", step.Chain, err)
		}

		wallet, err := o.custody.CreateWallet(ctx, chain.Key)
		if err != nil {
			return fmt.Errorf("deposit %s: wallet: %w", step.Chain, err)
		}

		amount := toBaseUnits(o.depositAmount(step), usdcDecimals)

		if !job.TxHashes.Has(entities.ApproveTxKey(step.Chain)) {
			txHash, err := o.submitAndConfirm(ctx, &custody.ContractCall{
				WalletID:     wallet.ID,
				Target:       chain.USDCAddress,
				ABISignature: "approve(address,uint256)",
				ABIParams:    []string{depositContract, amount.String()},
				FeeLevel:     "MEDIUM",
			})
			if err != nil {
				return fmt.Errorf("approve %s: %w", step.Chain, err)
			}
			if err := o.recordTxHash(ctx, job, entities.ApproveTxKey(step.Chain), txHash); err != nil {
				return err
			}
		}

		if !job.TxHashes.Has(entities.DepositTxKey(step.Chain)) {
			txHash, err := o.submitAndConfirm(ctx, &custody.ContractCall{
				WalletID:     wallet.ID,
				Target:       depositContract,
				ABISignature: "deposit(uint256,uint32)",
				ABIParams:    []string{amount.String(), fmt.Sprintf("%d", o.cfg.Gateway.SettlementChain.GatewayDomain)},
				FeeLevel:     "MEDIUM",
			})
			if err != nil {
				return fmt.Errorf("deposit %s: %w", step.Chain, err)
			}
			if err := o.recordTxHash(ctx, job, entities.DepositTxKey(step.Chain), txHash); err != nil {
				return err
			}
		}
	}
	return nil
}

// runTransfers signs and submits a burn intent per contributing chain, then
// waits for the bridge's attestation. The wall-clock ceiling on attestation
// waits is the stuck-job sweep, not a local timeout.
func (o *PaymentOrchestrator) runTransfers(ctx context.Context, job *entities.PaymentJob) error {
	settlementWallet, err := o.custody.CreateWallet(ctx, o.cfg.Gateway.SettlementChain.Key)
	if err != nil {
		return fmt.Errorf("settlement wallet: %w", err)
	}

	for _, step := range job.SourcePlan.Steps {
		if job.TxHashes.Has(entities.BurnTxKey(step.Chain)) {
			continue
		}
		chain := o.cfg.ChainByKey(step.Chain)
		if chain == nil {
			return domainerrors.ErrUnsupportedChain
		}

		wallet, err := o.custody.CreateWallet(ctx, chain.Key)
		if err != nil {
			return fmt.Errorf("transfer %s: wallet: %w", step.Chain, err)
		}

		intent := &gateway.BurnIntent{
			SourceDomain:      chain.GatewayDomain,
			DestinationDomain: o.cfg.Gateway.SettlementChain.GatewayDomain,
			Amount:            toBaseUnits(o.depositAmount(step), usdcDecimals),
			Depositor:         wallet.Address,
			Recipient:         settlementWallet.Address,
			Nonce:             big.NewInt(time.Now().UnixNano()),
		}

		transferID, err := o.bridge.SubmitBurnIntent(ctx, o.custody, wallet.ID, intent)
		if err != nil {
			return fmt.Errorf("transfer %s: %w", step.Chain, err)
		}

		att, err := o.bridge.WaitForAttestation(ctx, transferID, o.cfg.Gateway.AttestationInterval)
		if err != nil {
			return fmt.Errorf("transfer %s attestation: %w", step.Chain, err)
		}

		// the burn key stores "transferId:message:attestation" so minting
		// can resume after a crash without re-burning
		record := fmt.Sprintf("%s:%s:%s", transferID, att.Message, att.Attestation)
		if err := o.recordTxHash(ctx, job, entities.BurnTxKey(step.Chain), record); err != nil {
			return err
		}
	}
	return nil
}

// runMints submits each attested message on the settlement chain.
func (o *PaymentOrchestrator) runMints(ctx context.Context, job *entities.PaymentJob) error {
	settlement := o.cfg.Gateway.SettlementChain
	wallet, err := o.custody.CreateWallet(ctx, settlement.Key)
	if err != nil {
		return fmt.Errorf("mint wallet: %w", err)
	}

	for _, step := range job.SourcePlan.Steps {
		if job.TxHashes.Has(entities.MintTxKey(step.Chain)) {
			continue
		}

		burnRecord := job.TxHashes[entities.BurnTxKey(step.Chain)]
		_, message, attestation, err := splitBurnRecord(burnRecord)
		if err != nil {
			return fmt.Errorf("mint %s: %w", step.Chain, err)
		}

		txHash, err := o.submitAndConfirm(ctx, &custody.ContractCall{
			WalletID:     wallet.ID,
			Target:       o.cfg.Gateway.MinterAddress,
			ABISignature: "receiveMessage(bytes,bytes)",
			ABIParams:    []string{message, attestation},
			FeeLevel:     "MEDIUM",
		})
		if err != nil {
			return fmt.Errorf("mint %s: %w", step.Chain, err)
		}
		if err := o.recordTxHash(ctx, job, entities.MintTxKey(step.Chain), txHash); err != nil {
			return err
		}
	}
	return nil
}

// runPayment makes the final transfer to the merchant, minus the protocol fee.
func (o *PaymentOrchestrator) runPayment(ctx context.Context, job *entities.PaymentJob) error {
	if job.TxHashes.Has(entities.PayTxKey) {
		return nil
	}

	settlement := o.cfg.Gateway.SettlementChain
	wallet, err := o.custody.CreateWallet(ctx, settlement.Key)
	if err != nil {
		return fmt.Errorf("payment wallet: %w", err)
	}

	net, err := decimal.NewFromString(job.Quote.NetToMerchant)
	if err != nil {
		return fmt.Errorf("payment: bad net amount %q", job.Quote.NetToMerchant)
	}

	txHash, err := o.submitAndConfirm(ctx, &custody.ContractCall{
		WalletID:     wallet.ID,
		Target:       settlement.USDCAddress,
		ABISignature: "transfer(address,uint256)",
		ABIParams:    []string{job.MerchantAddress, toBaseUnits(net, usdcDecimals).String()},
		FeeLevel:     "MEDIUM",
	})
	if err != nil {
		return fmt.Errorf("payment: %w", err)
	}
	return o.recordTxHash(ctx, job, entities.PayTxKey, txHash)
}

// submitAndConfirm executes a custody contract call and waits for its
// terminal state under the configured poll ceiling.
func (o *PaymentOrchestrator) submitAndConfirm(ctx context.Context, call *custody.ContractCall) (string, error) {
	challengeID, err := o.custody.ExecuteContractCall(ctx, call)
	if err != nil {
		return "", err
	}

	pollCtx, cancel := context.WithTimeout(ctx, o.cfg.Custody.PollTimeout)
	defer cancel()

	status, err := o.custody.WaitForTransaction(pollCtx, challengeID, custodyPollInterval)
	if err != nil {
		return "", err
	}
	return status.TxHash, nil
}

// depositAmount is the gross USDC a step delivers to the bridge: its
// estimated output plus the bridge's flat fee.
func (o *PaymentOrchestrator) depositAmount(step entities.PlanStep) decimal.Decimal {
	out, err := decimal.NewFromString(step.EstimatedUsdcOut)
	if err != nil {
		return decimal.Zero
	}
	return out.Add(o.planner.bridgeFee)
}

// recordTxHash durably merges one step's tx hash before execution proceeds.
func (o *PaymentOrchestrator) recordTxHash(ctx context.Context, job *entities.PaymentJob, key, txHash string) error {
	o.hashMu.Lock()
	defer o.hashMu.Unlock()

	hashes := entities.TxHashes{key: txHash}
	if err := o.jobs.Update(ctx, job.ID, &entities.JobUpdate{TxHashes: hashes}); err != nil {
		return err
	}
	job.TxHashes = job.TxHashes.Merged(hashes)
	return nil
}

// transition validates and persists a status change, then mirrors it on the
// in-memory job. The write is conditional on the stored status still being
// the one validated here: a job the stuck sweep force-failed mid-flight stays
// FAILED instead of being resurrected by its own pipeline.
func (o *PaymentOrchestrator) transition(ctx context.Context, job *entities.PaymentJob, next entities.JobStatus, update *entities.JobUpdate) error {
	if !job.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", domainerrors.ErrInvalidTransition, job.Status, next)
	}
	expect := job.Status
	update.Status = &next
	update.ExpectStatus = &expect
	if err := o.jobs.Update(ctx, job.ID, update); err != nil {
		return err
	}
	job.Status = next
	metrics.JobTransitions.WithLabelValues(string(next)).Inc()
	logger.Info(ctx, "job transition", zap.String("status", string(next)))
	return nil
}

// failJob records the failure reason and moves the job to FAILED. The
// original error is returned for the caller's logs.
func (o *PaymentOrchestrator) failJob(ctx context.Context, job *entities.PaymentJob, cause error) error {
	failed := entities.JobStatusFailed
	expect := job.Status
	msg := cause.Error()
	if err := o.jobs.Update(ctx, job.ID, &entities.JobUpdate{Status: &failed, ExpectStatus: &expect, Error: &msg}); err != nil {
		logger.Error(ctx, "failed to persist job failure", zap.Error(err))
		return cause
	}
	job.Status = failed
	metrics.JobTransitions.WithLabelValues(string(failed)).Inc()
	logger.Warn(ctx, "job failed", zap.Error(cause))
	return cause
}

// splitBurnRecord unpacks the "transferId:message:attestation" burn record.
func splitBurnRecord(record string) (transferID, message, attestation string, err error) {
	parts := strings.SplitN(record, ":", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", fmt.Errorf("malformed burn record %q", record)
	}
	return parts[0], parts[1], parts[2], nil
}
