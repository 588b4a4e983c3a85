package usecases

import (
	"context"
	"encoding/json"

	"github.com/volatiletech/null/v8"
	"stablepay.backend/internal/domain/entities"
	domainerrors "stablepay.backend/internal/domain/errors"
	"stablepay.backend/internal/domain/repositories"
	"stablepay.backend/pkg/crypto"
	"stablepay.backend/pkg/utils"
)

// MerchantUsecase handles merchant registration and profile management
type MerchantUsecase struct {
	merchants repositories.MerchantRepository
}

// NewMerchantUsecase creates a new merchant usecase
func NewMerchantUsecase(merchants repositories.MerchantRepository) *MerchantUsecase {
	return &MerchantUsecase{merchants: merchants}
}

// Register creates a merchant keyed by wallet address. A webhook secret is
// generated whenever a webhook URL is supplied.
func (u *MerchantUsecase) Register(ctx context.Context, input *entities.RegisterMerchantInput) (*entities.Merchant, error) {
	if !utils.IsValidEVMAddress(input.Address) {
		return nil, domainerrors.ErrInvalidAddress
	}

	merchant := &entities.Merchant{
		Address:     utils.NormalizeAddress(input.Address),
		DisplayName: input.DisplayName,
	}
	if input.LogoURL != "" {
		merchant.LogoURL = null.StringFrom(input.LogoURL)
	}
	if input.WebhookURL != "" {
		merchant.WebhookURL = null.StringFrom(input.WebhookURL)
		secret, err := crypto.GenerateWebhookSecret()
		if err != nil {
			return nil, err
		}
		merchant.WebhookSecret = null.StringFrom(secret)
	}
	if input.RevenueSplit != nil {
		raw, err := json.Marshal(input.RevenueSplit)
		if err != nil {
			return nil, domainerrors.BadRequest("invalid revenue split")
		}
		merchant.RevenueSplit = null.JSONFrom(raw)
	}

	if err := u.merchants.Create(ctx, merchant); err != nil {
		return nil, err
	}
	return merchant, nil
}

// Get returns a merchant by address
func (u *MerchantUsecase) Get(ctx context.Context, address string) (*entities.Merchant, error) {
	return u.merchants.GetByAddress(ctx, utils.NormalizeAddress(address))
}

// GetBySlug returns a merchant by claimed slug
func (u *MerchantUsecase) GetBySlug(ctx context.Context, slug string) (*entities.Merchant, error) {
	normalized, ok := entities.ValidateSlug(slug)
	if !ok {
		return nil, domainerrors.ErrNotFound
	}
	return u.merchants.GetBySlug(ctx, normalized)
}

// ClaimSlug assigns a unique slug to a merchant, first claim wins.
func (u *MerchantUsecase) ClaimSlug(ctx context.Context, address, slug string) (*entities.Merchant, error) {
	normalized, ok := entities.ValidateSlug(slug)
	if !ok {
		return nil, domainerrors.BadRequest("slug must be 3-40 chars of a-z, 0-9 or hyphen")
	}

	addr := utils.NormalizeAddress(address)
	if err := u.merchants.ClaimSlug(ctx, addr, normalized); err != nil {
		return nil, err
	}
	return u.merchants.GetByAddress(ctx, addr)
}

// UpdateProfile updates the merchant's mutable profile fields. A newly set
// webhook URL rotates the signing secret.
func (u *MerchantUsecase) UpdateProfile(ctx context.Context, address string, input *entities.RegisterMerchantInput) (*entities.Merchant, error) {
	merchant, err := u.merchants.GetByAddress(ctx, utils.NormalizeAddress(address))
	if err != nil {
		return nil, err
	}

	if input.DisplayName != "" {
		merchant.DisplayName = input.DisplayName
	}
	if input.LogoURL != "" {
		merchant.LogoURL = null.StringFrom(input.LogoURL)
	}
	if input.WebhookURL != "" && input.WebhookURL != merchant.WebhookURL.String {
		merchant.WebhookURL = null.StringFrom(input.WebhookURL)
		secret, err := crypto.GenerateWebhookSecret()
		if err != nil {
			return nil, err
		}
		merchant.WebhookSecret = null.StringFrom(secret)
	}
	if input.RevenueSplit != nil {
		raw, err := json.Marshal(input.RevenueSplit)
		if err != nil {
			return nil, domainerrors.BadRequest("invalid revenue split")
		}
		merchant.RevenueSplit = null.JSONFrom(raw)
	}

	if err := u.merchants.Update(ctx, merchant); err != nil {
		return nil, err
	}
	return merchant, nil
}
