package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"stablepay.backend/internal/domain/entities"
	domainerrors "stablepay.backend/internal/domain/errors"
	"stablepay.backend/internal/interfaces/http/response"
	"stablepay.backend/pkg/paylink"
	"stablepay.backend/pkg/utils"
)

type MerchantDirectory interface {
	Get(ctx context.Context, address string) (*entities.Merchant, error)
}

type ProductDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*entities.Product, error)
}

type QuotePreviewer interface {
	PreviewQuote(ctx context.Context, payerAddress, amount string) (*entities.SourcePlan, *entities.Quote, error)
}

// PaymentLinkHandler issues and resolves signed payment links. A link binds
// the merchant, the amount and optionally a product into a token, so the
// terms a payer sees cannot be tampered with in transit.
type PaymentLinkHandler struct {
	signer    *paylink.Signer
	merchants MerchantDirectory
	products  ProductDirectory
	quotes    QuotePreviewer
}

// NewPaymentLinkHandler creates a new payment link handler
func NewPaymentLinkHandler(signer *paylink.Signer, merchants MerchantDirectory, products ProductDirectory, quotes QuotePreviewer) *PaymentLinkHandler {
	return &PaymentLinkHandler{signer: signer, merchants: merchants, products: products, quotes: quotes}
}

type createLinkInput struct {
	MerchantAddress string     `json:"merchantAddress" binding:"required"`
	Amount          string     `json:"amount"`
	ProductID       *uuid.UUID `json:"productId,omitempty"`
}

// Create issues a signed payment link
// POST /api/v1/links
func (h *PaymentLinkHandler) Create(c *gin.Context) {
	var input createLinkInput

	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	merchant, err := h.merchants.Get(c.Request.Context(), input.MerchantAddress)
	if err != nil {
		response.Error(c, err)
		return
	}

	amount := input.Amount
	if input.ProductID != nil {
		product, err := h.products.Get(c.Request.Context(), *input.ProductID)
		if err != nil {
			response.Error(c, err)
			return
		}
		if !utils.SameAddress(product.MerchantAddress, merchant.Address) {
			response.Error(c, domainerrors.Forbidden("product belongs to another merchant"))
			return
		}
		// product links always carry the catalog price
		amount = product.Price
	}
	if amount == "" {
		response.Error(c, domainerrors.BadRequest("amount is required without a productId"))
		return
	}

	token, err := h.signer.Sign(merchant.Address, amount, input.ProductID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"token": token})
}

// Resolve verifies a payment link and returns the terms it carries. When a
// payerAddress is supplied, a live quote preview for those terms is included.
// GET /api/v1/links/:token
func (h *PaymentLinkHandler) Resolve(c *gin.Context) {
	claims, err := h.signer.Verify(c.Param("token"))
	if err != nil {
		if errors.Is(err, paylink.ErrExpiredToken) {
			response.Error(c, domainerrors.NewAppError(http.StatusGone, "ERR_LINK_EXPIRED", "payment link has expired", err))
			return
		}
		response.Error(c, domainerrors.BadRequest("invalid payment link"))
		return
	}

	merchant, err := h.merchants.Get(c.Request.Context(), claims.MerchantAddress)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := gin.H{
		"merchant":  merchant,
		"amount":    claims.Amount,
		"productId": claims.ProductID,
	}

	if payer := c.Query("payerAddress"); payer != "" {
		plan, quote, err := h.quotes.PreviewQuote(c.Request.Context(), payer, claims.Amount)
		if err != nil {
			response.Error(c, err)
			return
		}
		out["sourcePlan"] = plan
		out["quote"] = quote
	}

	response.Success(c, http.StatusOK, out)
}
