package usecases

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/google/uuid"
	"stablepay.backend/internal/config"
	"stablepay.backend/internal/domain/entities"
	domainerrors "stablepay.backend/internal/domain/errors"
	"stablepay.backend/internal/infrastructure/custody"
	"stablepay.backend/internal/infrastructure/gateway"
	"stablepay.backend/internal/infrastructure/swap"
)

// ---- job repository stub ----

type stubJobRepo struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*entities.PaymentJob

	createErr error
	updateErr error
}

func newStubJobRepo() *stubJobRepo {
	return &stubJobRepo{jobs: make(map[uuid.UUID]*entities.PaymentJob)}
}

func (r *stubJobRepo) Create(ctx context.Context, job *entities.PaymentJob) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *job
	r.jobs[job.ID] = &cp
	return nil
}

func (r *stubJobRepo) GetByID(ctx context.Context, id uuid.UUID) (*entities.PaymentJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, domainerrors.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (r *stubJobRepo) GetByPayer(ctx context.Context, payer string, limit, offset int) ([]*entities.PaymentJob, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.PaymentJob
	for _, j := range r.jobs {
		if j.PayerAddress == payer {
			cp := *j
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (r *stubJobRepo) Update(ctx context.Context, id uuid.UUID, update *entities.JobUpdate) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return domainerrors.ErrNotFound
	}
	if update.ExpectStatus != nil && job.Status != *update.ExpectStatus {
		return fmt.Errorf("%w: job is no longer %s", domainerrors.ErrInvalidTransition, *update.ExpectStatus)
	}
	if update.Status != nil {
		job.Status = *update.Status
	}
	if update.Error != nil {
		if *update.Error == "" {
			job.Error.Valid = false
			job.Error.String = ""
		} else {
			job.Error.Valid = true
			job.Error.String = *update.Error
		}
	}
	if update.Plan != nil {
		job.SourcePlan = update.Plan
	}
	if update.Quote != nil {
		job.Quote = update.Quote
	}
	if update.ExpiresAt != nil {
		job.ExpiresAt = update.ExpiresAt
	}
	if len(update.TxHashes) > 0 {
		job.TxHashes = job.TxHashes.Merged(update.TxHashes)
	}
	job.UpdatedAt = time.Now()
	return nil
}

func (r *stubJobRepo) FindExpirable(ctx context.Context, now time.Time, limit int) ([]*entities.PaymentJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.PaymentJob
	for _, j := range r.jobs {
		if j.Status.IsPreExecution() && j.ExpiresAt != nil && j.ExpiresAt.Before(now) {
			cp := *j
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *stubJobRepo) FindStuck(ctx context.Context, olderThan time.Time, limit int) ([]*entities.PaymentJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.PaymentJob
	for _, j := range r.jobs {
		if j.Status.IsExecuting() && j.UpdatedAt.Before(olderThan) {
			cp := *j
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- merchant repository stub ----

type stubMerchantRepo struct {
	mu        sync.Mutex
	merchants map[string]*entities.Merchant
}

func newStubMerchantRepo() *stubMerchantRepo {
	return &stubMerchantRepo{merchants: make(map[string]*entities.Merchant)}
}

func (r *stubMerchantRepo) Create(ctx context.Context, m *entities.Merchant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.merchants[m.Address]; ok {
		return domainerrors.Conflict("merchant already registered")
	}
	cp := *m
	r.merchants[m.Address] = &cp
	return nil
}

func (r *stubMerchantRepo) GetByAddress(ctx context.Context, address string) (*entities.Merchant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.merchants[address]
	if !ok {
		return nil, domainerrors.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *stubMerchantRepo) GetBySlug(ctx context.Context, slug string) (*entities.Merchant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.merchants {
		if m.Slug.Valid && m.Slug.String == slug {
			cp := *m
			return &cp, nil
		}
	}
	return nil, domainerrors.ErrNotFound
}

func (r *stubMerchantRepo) Update(ctx context.Context, m *entities.Merchant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.merchants[m.Address]; !ok {
		return domainerrors.ErrNotFound
	}
	cp := *m
	r.merchants[m.Address] = &cp
	return nil
}

func (r *stubMerchantRepo) ClaimSlug(ctx context.Context, address, slug string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.merchants {
		if m.Slug.Valid && m.Slug.String == slug && m.Address != address {
			return domainerrors.ErrSlugTaken
		}
	}
	m, ok := r.merchants[address]
	if !ok {
		return domainerrors.ErrNotFound
	}
	m.Slug.Valid = true
	m.Slug.String = slug
	return nil
}

// ---- product repository stub ----

type stubProductRepo struct {
	mu       sync.Mutex
	products map[uuid.UUID]*entities.Product
}

func newStubProductRepo() *stubProductRepo {
	return &stubProductRepo{products: make(map[uuid.UUID]*entities.Product)}
}

func (r *stubProductRepo) Create(ctx context.Context, p *entities.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.products[p.ID] = &cp
	return nil
}

func (r *stubProductRepo) GetByID(ctx context.Context, id uuid.UUID) (*entities.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, domainerrors.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *stubProductRepo) ListByMerchant(ctx context.Context, merchant string, includeInactive bool) ([]*entities.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.Product
	for _, p := range r.products {
		if p.MerchantAddress == merchant && (includeInactive || p.Active) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *stubProductRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return domainerrors.ErrNotFound
	}
	p.Active = false
	return nil
}

// ---- subscription repository stub ----

type stubSubscriptionRepo struct {
	mu   sync.Mutex
	subs map[uuid.UUID]*entities.Subscription

	advanceErr error
}

func newStubSubscriptionRepo() *stubSubscriptionRepo {
	return &stubSubscriptionRepo{subs: make(map[uuid.UUID]*entities.Subscription)}
}

func (r *stubSubscriptionRepo) Create(ctx context.Context, s *entities.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.subs[s.ID] = &cp
	return nil
}

func (r *stubSubscriptionRepo) GetByID(ctx context.Context, id uuid.UUID) (*entities.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[id]
	if !ok {
		return nil, domainerrors.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *stubSubscriptionRepo) ListByPayer(ctx context.Context, payer string) ([]*entities.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.Subscription
	for _, s := range r.subs {
		if s.PayerAddress == payer {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *stubSubscriptionRepo) SetSessionCredential(ctx context.Context, id uuid.UUID, cred string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[id]
	if !ok {
		return domainerrors.ErrNotFound
	}
	s.SessionCredential.Valid = true
	s.SessionCredential.String = cred
	return nil
}

func (r *stubSubscriptionRepo) Cancel(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[id]
	if !ok || s.Status != entities.SubscriptionStatusActive {
		return domainerrors.ErrNotFound
	}
	s.Status = entities.SubscriptionStatusCancelled
	s.SessionCredential.Valid = false
	s.SessionCredential.String = ""
	return nil
}

func (r *stubSubscriptionRepo) FindDue(ctx context.Context, now time.Time, limit int) ([]*entities.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.Subscription
	for _, s := range r.subs {
		if s.Status == entities.SubscriptionStatusActive && !s.NextChargeAt.After(now) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *stubSubscriptionRepo) AdvanceSchedule(ctx context.Context, id uuid.UUID, next time.Time) error {
	if r.advanceErr != nil {
		return r.advanceErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[id]
	if !ok {
		return domainerrors.ErrNotFound
	}
	s.NextChargeAt = next
	return nil
}

// ---- webhook delivery repository stub ----

type stubDeliveryRepo struct {
	mu         sync.Mutex
	deliveries map[uuid.UUID]*entities.WebhookDelivery
}

func newStubDeliveryRepo() *stubDeliveryRepo {
	return &stubDeliveryRepo{deliveries: make(map[uuid.UUID]*entities.WebhookDelivery)}
}

func (r *stubDeliveryRepo) Create(ctx context.Context, d *entities.WebhookDelivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *d
	r.deliveries[d.ID] = &cp
	return nil
}

func (r *stubDeliveryRepo) Update(ctx context.Context, d *entities.WebhookDelivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.deliveries[d.ID]; !ok {
		return domainerrors.ErrNotFound
	}
	cp := *d
	r.deliveries[d.ID] = &cp
	return nil
}

func (r *stubDeliveryRepo) GetByID(ctx context.Context, id uuid.UUID) (*entities.WebhookDelivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.deliveries[id]
	if !ok {
		return nil, domainerrors.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *stubDeliveryRepo) ListByJob(ctx context.Context, jobID uuid.UUID) ([]*entities.WebhookDelivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.WebhookDelivery
	for _, d := range r.deliveries {
		if d.JobID == jobID {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- swap provider stub ----

// stubSwapProvider quotes at a fixed rate of USDC (6dp) per native unit (18dp)
type stubSwapProvider struct {
	rate     int64 // USDC micro-units per whole native unit
	quoteErr error
	buildErr error
}

func (p *stubSwapProvider) Name() string { return "stub" }

func (p *stubSwapProvider) Quote(ctx context.Context, chain *config.ChainConfig, amountIn *big.Int) (*swap.SwapQuote, error) {
	if p.quoteErr != nil {
		return nil, p.quoteErr
	}
	expected := new(big.Int).Mul(amountIn, big.NewInt(p.rate))
	expected.Div(expected, big.NewInt(1e18))
	min := new(big.Int).Mul(expected, big.NewInt(9950))
	min.Div(min, big.NewInt(10000))
	return &swap.SwapQuote{
		AmountIn:       new(big.Int).Set(amountIn),
		ExpectedOutput: expected,
		MinOutput:      min,
	}, nil
}

func (p *stubSwapProvider) BuildTransaction(ctx context.Context, chain *config.ChainConfig, quote *swap.SwapQuote, recipient string) (*swap.TxDescriptor, error) {
	if p.buildErr != nil {
		return nil, p.buildErr
	}
	return &swap.TxDescriptor{
		To:       chain.RouterAddress,
		CallData: []byte{0x01},
		Value:    new(big.Int).Set(quote.AmountIn),
	}, nil
}

// ---- custody service stub ----

type stubCustody struct {
	mu       sync.Mutex
	calls    []*custody.ContractCall
	next     int
	execErr  error
	waitErr  error
	signErr  error
	txStates map[string]string // challenge id -> state override
}

func newStubCustody() *stubCustody {
	return &stubCustody{}
}

func (c *stubCustody) CreateWallet(ctx context.Context, chain string) (*custody.Wallet, error) {
	return &custody.Wallet{ID: "w-" + chain, Address: "0x00000000000000000000000000000000000000cd", Chain: chain}, nil
}

func (c *stubCustody) ExecuteContractCall(ctx context.Context, call *custody.ContractCall) (string, error) {
	if c.execErr != nil {
		return "", c.execErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call)
	c.next++
	return "ch-" + call.Target + "-" + time.Now().Format("150405.000000000"), nil
}

func (c *stubCustody) WaitForTransaction(ctx context.Context, challengeID string, interval time.Duration) (*custody.TransactionStatus, error) {
	if c.waitErr != nil {
		return nil, c.waitErr
	}
	return &custody.TransactionStatus{State: custody.TxStateConfirmed, TxHash: "0xtx-" + challengeID}, nil
}

func (c *stubCustody) SignTypedData(ctx context.Context, walletID string, typedData apitypes.TypedData) (string, error) {
	if c.signErr != nil {
		return "", c.signErr
	}
	return "0xsignature", nil
}

func (c *stubCustody) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func (c *stubCustody) callsBySignature(sig string) []*custody.ContractCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*custody.ContractCall
	for _, call := range c.calls {
		if call.ABISignature == sig {
			out = append(out, call)
		}
	}
	return out
}

// ---- bridge service stub ----

type stubBridge struct {
	mu        sync.Mutex
	submits   int
	submitErr error
	attestErr error
	contract  string
}

func newStubBridge() *stubBridge {
	return &stubBridge{contract: "0x00000000000000000000000000000000000000dc"}
}

func (b *stubBridge) DepositContract(ctx context.Context, chain *config.ChainConfig) (string, error) {
	return b.contract, nil
}

func (b *stubBridge) SubmitBurnIntent(ctx context.Context, signer gateway.TypedDataSigner, walletID string, intent *gateway.BurnIntent) (string, error) {
	if b.submitErr != nil {
		return "", b.submitErr
	}
	if _, err := signer.SignTypedData(ctx, walletID, intent.TypedData()); err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.submits++
	return "tr-1", nil
}

func (b *stubBridge) WaitForAttestation(ctx context.Context, transferID string, interval time.Duration) (*gateway.Attestation, error) {
	if b.attestErr != nil {
		return nil, b.attestErr
	}
	return &gateway.Attestation{Status: gateway.AttestationComplete, Message: "0xmsg", Attestation: "0xatt"}, nil
}

// ---- notifier stub ----

type stubNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *stubNotifier) Dispatch(ctx context.Context, job *entities.PaymentJob, eventType string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, eventType)
}

func (n *stubNotifier) eventCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}
