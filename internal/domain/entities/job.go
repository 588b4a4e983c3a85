package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// JobStatus represents the orchestrator state of a payment job
type JobStatus string

const (
	JobStatusScanning             JobStatus = "SCANNING"
	JobStatusRouting              JobStatus = "ROUTING"
	JobStatusAwaitingConfirmation JobStatus = "AWAITING_CONFIRMATION"
	JobStatusSwapping             JobStatus = "SWAPPING"
	JobStatusGatewayDepositing    JobStatus = "GATEWAY_DEPOSITING"
	JobStatusGatewayTransferring  JobStatus = "GATEWAY_TRANSFERRING"
	JobStatusMinting              JobStatus = "MINTING"
	JobStatusPaying               JobStatus = "PAYING"
	JobStatusComplete             JobStatus = "COMPLETE"
	JobStatusFailed               JobStatus = "FAILED"
	JobStatusExpired              JobStatus = "EXPIRED"
)

// jobStatusOrder fixes the linear happy path. FAILED and EXPIRED are side
// exits, not part of the ordering.
var jobStatusOrder = map[JobStatus]int{
	JobStatusScanning:             0,
	JobStatusRouting:              1,
	JobStatusAwaitingConfirmation: 2,
	JobStatusSwapping:             3,
	JobStatusGatewayDepositing:    4,
	JobStatusGatewayTransferring:  5,
	JobStatusMinting:              6,
	JobStatusPaying:               7,
	JobStatusComplete:             8,
}

// IsTerminal reports whether the status is COMPLETE, FAILED or EXPIRED.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusComplete || s == JobStatusFailed || s == JobStatusExpired
}

// IsPreExecution reports whether the job has not yet spent funds. Only
// pre-execution jobs may be expired by the maintenance sweep.
func (s JobStatus) IsPreExecution() bool {
	switch s {
	case JobStatusScanning, JobStatusRouting, JobStatusAwaitingConfirmation:
		return true
	}
	return false
}

// IsExecuting reports whether the job is mid-execution and eligible for the
// stuck-job sweep.
func (s JobStatus) IsExecuting() bool {
	switch s {
	case JobStatusSwapping, JobStatusGatewayDepositing, JobStatusGatewayTransferring,
		JobStatusMinting, JobStatusPaying:
		return true
	}
	return false
}

// CanTransitionTo validates a normal (non-retry) edge of the state machine:
// the next linear step, the confirmation skip for automated flows, FAILED from
// any non-terminal state, or EXPIRED from a pre-execution state.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if next == JobStatusFailed {
		return true
	}
	if next == JobStatusExpired {
		return s.IsPreExecution()
	}
	cur, ok := jobStatusOrder[s]
	if !ok {
		return false
	}
	nxt, ok := jobStatusOrder[next]
	if !ok {
		return false
	}
	if nxt == cur+1 {
		return true
	}
	// skipConfirmation: ROUTING advances straight to SWAPPING
	return s == JobStatusRouting && next == JobStatusSwapping
}

// CanReenterFrom validates a retry re-entry edge: FAILED jobs resume at any
// non-terminal state, EXPIRED jobs re-enter a pre-execution state. COMPLETE is
// never re-entered.
func (s JobStatus) CanReenterFrom(next JobStatus) bool {
	switch s {
	case JobStatusFailed:
		return !next.IsTerminal()
	case JobStatusExpired:
		return next.IsPreExecution()
	}
	return false
}

// TxHashes maps step keys (e.g. "swap.base-sepolia", "pay") to transaction
// hashes. Entries are append/merge-only: a key once present keeps a non-empty
// value forever.
type TxHashes map[string]string

// Merged returns a copy of t with every non-empty entry of other applied.
func (t TxHashes) Merged(other TxHashes) TxHashes {
	out := make(TxHashes, len(t)+len(other))
	for k, v := range t {
		out[k] = v
	}
	for k, v := range other {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// Has reports whether a step already recorded its transaction hash.
func (t TxHashes) Has(key string) bool {
	return t[key] != ""
}

// Step keys recorded in TxHashes.
func SwapTxKey(chain string) string    { return "swap." + chain }
func ApproveTxKey(chain string) string { return "approve." + chain }
func DepositTxKey(chain string) string { return "deposit." + chain }
func BurnTxKey(chain string) string    { return "burn." + chain }
func MintTxKey(chain string) string    { return "mint." + chain }

const PayTxKey = "pay"

// StepType classifies a funding plan contribution
type StepType string

const (
	StepTypeStablecoin StepType = "stablecoin"
	StepTypeSwap       StepType = "swap"
)

// PlanStep is one per-chain contribution of the funding plan
type PlanStep struct {
	Chain            string   `json:"chain"`
	Type             StepType `json:"type"`
	Amount           string   `json:"amount"`           // source asset units
	EstimatedUsdcOut string   `json:"estimatedUsdcOut"` // settlement units after fees
}

// SourcePlan is the funding plan computed once at routing time and frozen
// for the life of the job.
type SourcePlan struct {
	Steps           []PlanStep `json:"steps"`
	SufficientFunds bool       `json:"sufficientFunds"`
	Shortfall       string     `json:"shortfall,omitempty"`
	TotalAvailable  string     `json:"totalAvailable"`
}

// SwapSteps returns the steps requiring a swap before bridging.
func (p *SourcePlan) SwapSteps() []PlanStep {
	var out []PlanStep
	for _, s := range p.Steps {
		if s.Type == StepTypeSwap {
			out = append(out, s)
		}
	}
	return out
}

// FeeBreakdown itemizes the quote's fees, all decimal strings in settlement units
type FeeBreakdown struct {
	SwapFees       string `json:"swapFees"`
	BridgeFee      string `json:"bridgeFee"`
	DestinationGas string `json:"destinationGas"`
	ProtocolFee    string `json:"protocolFee"`
	TotalFee       string `json:"totalFee"`
}

// Quote is the fee breakdown and headline numbers computed once at routing
// time. Never recomputed mid-execution.
type Quote struct {
	TargetAmount    string       `json:"targetAmount"`
	TotalAuthorized string       `json:"totalAuthorized"`
	NetToMerchant   string       `json:"netToMerchant"`
	Fees            FeeBreakdown `json:"fees"`
}

// PaymentJob is the unit of work driven by the orchestrator
type PaymentJob struct {
	ID               uuid.UUID   `json:"id"`
	PayerAddress     string      `json:"payerAddress"`
	MerchantAddress  string      `json:"merchantAddress"`
	Amount           string      `json:"amount"` // settlement units, 6-decimal string
	SourcePlan       *SourcePlan `json:"sourcePlan,omitempty"`
	Quote            *Quote      `json:"quote,omitempty"`
	Status           JobStatus   `json:"status"`
	TxHashes         TxHashes    `json:"txHashes"`
	Error            null.String `json:"error,omitempty"`
	SkipConfirmation bool        `json:"skipConfirmation"`
	SubscriptionID   *uuid.UUID  `json:"subscriptionId,omitempty"`
	ExpiresAt        *time.Time  `json:"expiresAt,omitempty"`
	CreatedAt        time.Time   `json:"createdAt"`
	UpdatedAt        time.Time   `json:"updatedAt"`
}

// JobUpdate is a merge-style partial update: only the fields present are
// applied, txHashes are merged rather than replaced.
type JobUpdate struct {
	Status *JobStatus
	// ExpectStatus guards the write: when set, the update only applies if the
	// stored status still matches, so a concurrent writer (pipeline vs sweep)
	// cannot stomp a status it never saw.
	ExpectStatus *JobStatus
	TxHashes     TxHashes
	Error        *string // empty string clears the error
	Plan         *SourcePlan
	Quote        *Quote
	ExpiresAt    *time.Time
}

// CreateJobInput is the request to open a new payment job
type CreateJobInput struct {
	PayerAddress     string `json:"payerAddress" binding:"required"`
	MerchantAddress  string `json:"merchantAddress" binding:"required"`
	Amount           string `json:"amount" binding:"required"`
	SkipConfirmation bool   `json:"skipConfirmation"`
}

// JobStatusView is the read model exposed to the web layer
type JobStatusView struct {
	JobID      uuid.UUID   `json:"jobId"`
	Status     JobStatus   `json:"status"`
	SourcePlan *SourcePlan `json:"sourcePlan,omitempty"`
	Quote      *Quote      `json:"quote,omitempty"`
	TxHashes   TxHashes    `json:"txHashes"`
	Error      string      `json:"error,omitempty"`
	ExpiresAt  *time.Time  `json:"expiresAt,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

// View projects the job into its read model.
func (j *PaymentJob) View() *JobStatusView {
	return &JobStatusView{
		JobID:      j.ID,
		Status:     j.Status,
		SourcePlan: j.SourcePlan,
		Quote:      j.Quote,
		TxHashes:   j.TxHashes,
		Error:      j.Error.String,
		ExpiresAt:  j.ExpiresAt,
		CreatedAt:  j.CreatedAt,
		UpdatedAt:  j.UpdatedAt,
	}
}
