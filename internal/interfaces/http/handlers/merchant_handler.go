package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"stablepay.backend/internal/domain/entities"
	domainerrors "stablepay.backend/internal/domain/errors"
	"stablepay.backend/internal/interfaces/http/response"
)

type MerchantService interface {
	Register(ctx context.Context, input *entities.RegisterMerchantInput) (*entities.Merchant, error)
	Get(ctx context.Context, address string) (*entities.Merchant, error)
	GetBySlug(ctx context.Context, slug string) (*entities.Merchant, error)
	ClaimSlug(ctx context.Context, address, slug string) (*entities.Merchant, error)
	UpdateProfile(ctx context.Context, address string, input *entities.RegisterMerchantInput) (*entities.Merchant, error)
}

// MerchantHandler handles merchant endpoints
type MerchantHandler struct {
	merchantUsecase MerchantService
}

// NewMerchantHandler creates a new merchant handler
func NewMerchantHandler(merchantUsecase MerchantService) *MerchantHandler {
	return &MerchantHandler{merchantUsecase: merchantUsecase}
}

// Register creates a merchant profile keyed by wallet address
// POST /api/v1/merchants
func (h *MerchantHandler) Register(c *gin.Context) {
	var input entities.RegisterMerchantInput

	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	merchant, err := h.merchantUsecase.Register(c.Request.Context(), &input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, merchantWithSecret(merchant))
}

// Get returns a merchant by wallet address
// GET /api/v1/merchants/:address
func (h *MerchantHandler) Get(c *gin.Context) {
	merchant, err := h.merchantUsecase.Get(c.Request.Context(), c.Param("address"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"merchant": merchant})
}

// GetBySlug resolves a vanity slug to a merchant
// GET /api/v1/merchants/slug/:slug
func (h *MerchantHandler) GetBySlug(c *gin.Context) {
	merchant, err := h.merchantUsecase.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"merchant": merchant})
}

// ClaimSlug claims a vanity slug, first come first served
// POST /api/v1/merchants/:address/slug
func (h *MerchantHandler) ClaimSlug(c *gin.Context) {
	var input entities.ClaimSlugInput

	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	merchant, err := h.merchantUsecase.ClaimSlug(c.Request.Context(), c.Param("address"), input.Slug)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"merchant": merchant})
}

// UpdateProfile updates display fields and the webhook endpoint
// PUT /api/v1/merchants/:address
func (h *MerchantHandler) UpdateProfile(c *gin.Context) {
	var input entities.RegisterMerchantInput

	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	merchant, err := h.merchantUsecase.UpdateProfile(c.Request.Context(), c.Param("address"), &input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, merchantWithSecret(merchant))
}

// merchantWithSecret includes the webhook signing secret, which is only
// revealed on the write paths that could have (re)generated it.
func merchantWithSecret(m *entities.Merchant) gin.H {
	out := gin.H{"merchant": m}
	if m.WebhookSecret.Valid {
		out["webhookSecret"] = m.WebhookSecret.String
	}
	return out
}
