package usecases

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"stablepay.backend/internal/domain/entities"
	domainerrors "stablepay.backend/internal/domain/errors"
	"stablepay.backend/internal/domain/repositories"
	"stablepay.backend/pkg/crypto"
	"stablepay.backend/pkg/logger"
	"stablepay.backend/pkg/utils"
)

// SubscriptionUsecase handles recurring payment agreements. The session
// credential the payer attaches at authorization time is sealed with the
// service encryption key before it touches the database.
type SubscriptionUsecase struct {
	subscriptions repositories.SubscriptionRepository
	products      repositories.ProductRepository
	box           *crypto.SecretBox
	// now is a test hook
	now func() time.Time
}

// NewSubscriptionUsecase creates a new subscription usecase
func NewSubscriptionUsecase(
	subscriptions repositories.SubscriptionRepository,
	products repositories.ProductRepository,
	box *crypto.SecretBox,
) *SubscriptionUsecase {
	return &SubscriptionUsecase{
		subscriptions: subscriptions,
		products:      products,
		box:           box,
		now:           time.Now,
	}
}

// Create opens a subscription in the unauthorized state. The first charge is
// due one full interval from now; nothing is charged until the payer
// authorizes.
func (u *SubscriptionUsecase) Create(ctx context.Context, input *entities.CreateSubscriptionInput) (*entities.Subscription, error) {
	if !utils.IsValidEVMAddress(input.MerchantAddress) || !utils.IsValidEVMAddress(input.PayerAddress) {
		return nil, domainerrors.ErrInvalidAddress
	}
	if amt, err := decimal.NewFromString(input.Amount); err != nil || amt.Sign() <= 0 {
		return nil, domainerrors.ErrInvalidAmount
	}
	if input.IntervalDays < 1 {
		return nil, domainerrors.BadRequest("interval must be at least one day")
	}

	sub := &entities.Subscription{
		ID:              utils.GenerateUUIDv7(),
		MerchantAddress: utils.NormalizeAddress(input.MerchantAddress),
		PayerAddress:    utils.NormalizeAddress(input.PayerAddress),
		Amount:          input.Amount,
		IntervalDays:    input.IntervalDays,
		Status:          entities.SubscriptionStatusActive,
		NextChargeAt:    u.now().Add(time.Duration(input.IntervalDays) * 24 * time.Hour),
	}

	if input.ProductID != nil {
		product, err := u.products.GetByID(ctx, *input.ProductID)
		if err != nil {
			return nil, err
		}
		if product.Type != entities.ProductTypeSubscription {
			return nil, domainerrors.BadRequest("product is not a subscription product")
		}
		if !utils.SameAddress(product.MerchantAddress, sub.MerchantAddress) {
			return nil, domainerrors.Forbidden("product belongs to another merchant")
		}
		sub.ProductID = input.ProductID
	}

	if err := u.subscriptions.Create(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// Authorize attaches the payer's session credential, sealed at rest.
func (u *SubscriptionUsecase) Authorize(ctx context.Context, id uuid.UUID, input *entities.AuthorizeSubscriptionInput) error {
	sub, err := u.subscriptions.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if sub.Status != entities.SubscriptionStatusActive {
		return domainerrors.ErrSubscriptionClosed
	}

	sealed, err := u.box.Seal([]byte(input.SessionCredential))
	if err != nil {
		return err
	}
	return u.subscriptions.SetSessionCredential(ctx, id, sealed)
}

// SessionCredential opens the stored credential for a billing charge.
func (u *SubscriptionUsecase) SessionCredential(ctx context.Context, sub *entities.Subscription) (string, error) {
	if !sub.Authorized() {
		return "", domainerrors.ErrCredentialMissing
	}
	plain, err := u.box.Open(sub.SessionCredential.String)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// Get returns a subscription by ID
func (u *SubscriptionUsecase) Get(ctx context.Context, id uuid.UUID) (*entities.Subscription, error) {
	return u.subscriptions.GetByID(ctx, id)
}

// ListByPayer returns a payer's subscriptions
func (u *SubscriptionUsecase) ListByPayer(ctx context.Context, payerAddress string) ([]*entities.Subscription, error) {
	return u.subscriptions.ListByPayer(ctx, utils.NormalizeAddress(payerAddress))
}

// Cancel terminally closes a subscription. Either party may cancel.
func (u *SubscriptionUsecase) Cancel(ctx context.Context, id uuid.UUID, requester string) error {
	sub, err := u.subscriptions.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !utils.SameAddress(requester, sub.PayerAddress) && !utils.SameAddress(requester, sub.MerchantAddress) {
		return domainerrors.Forbidden("only the payer or the merchant may cancel")
	}
	if sub.Status != entities.SubscriptionStatusActive {
		return domainerrors.ErrSubscriptionClosed
	}
	return u.subscriptions.Cancel(ctx, id)
}

// ChargeFunc creates the payment job for one due subscription
type ChargeFunc func(ctx context.Context, sub *entities.Subscription) error

// Tick finds subscriptions whose charge is due and charges each one. The
// schedule advances BEFORE the charge is attempted, so a crash mid-charge
// cannot double-bill on the next tick. Per-subscription failures are
// isolated: one bad subscription never stops the rest of the batch.
func (u *SubscriptionUsecase) Tick(ctx context.Context, limit int, charge ChargeFunc) (int, error) {
	due, err := u.subscriptions.FindDue(ctx, u.now(), limit)
	if err != nil {
		return 0, err
	}

	charged := 0
	for _, sub := range due {
		if !sub.Authorized() {
			// skip forward so unauthorized subscriptions do not pile up
			if err := u.advance(ctx, sub); err != nil {
				logger.Error(ctx, "billing schedule advance failed",
					zap.String("subscription_id", sub.ID.String()),
					zap.Error(err))
			}
			continue
		}

		if err := u.advance(ctx, sub); err != nil {
			logger.Error(ctx, "billing schedule advance failed",
				zap.String("subscription_id", sub.ID.String()),
				zap.Error(err))
			continue
		}

		if err := charge(ctx, sub); err != nil {
			logger.Error(ctx, "subscription charge failed",
				zap.String("subscription_id", sub.ID.String()),
				zap.Error(err))
			continue
		}
		charged++
	}
	return charged, nil
}

func (u *SubscriptionUsecase) advance(ctx context.Context, sub *entities.Subscription) error {
	next := sub.NextChargeAt.Add(time.Duration(sub.IntervalDays) * 24 * time.Hour)
	// catch up a long-dormant schedule instead of burst-charging
	now := u.now()
	for !next.After(now) {
		next = next.Add(time.Duration(sub.IntervalDays) * 24 * time.Hour)
	}
	return u.subscriptions.AdvanceSchedule(ctx, sub.ID, next)
}
