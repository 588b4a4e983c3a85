package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"stablepay.backend/internal/domain/entities"
	domainerrors "stablepay.backend/internal/domain/errors"
	"stablepay.backend/internal/interfaces/http/response"
)

type SubscriptionService interface {
	Create(ctx context.Context, input *entities.CreateSubscriptionInput) (*entities.Subscription, error)
	Authorize(ctx context.Context, id uuid.UUID, input *entities.AuthorizeSubscriptionInput) error
	Get(ctx context.Context, id uuid.UUID) (*entities.Subscription, error)
	ListByPayer(ctx context.Context, payerAddress string) ([]*entities.Subscription, error)
	Cancel(ctx context.Context, id uuid.UUID, requester string) error
}

// SubscriptionHandler handles subscription endpoints
type SubscriptionHandler struct {
	subscriptionUsecase SubscriptionService
}

// NewSubscriptionHandler creates a new subscription handler
func NewSubscriptionHandler(subscriptionUsecase SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptionUsecase: subscriptionUsecase}
}

// Create opens a subscription in the unauthorized state
// POST /api/v1/subscriptions
func (h *SubscriptionHandler) Create(c *gin.Context) {
	var input entities.CreateSubscriptionInput

	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	sub, err := h.subscriptionUsecase.Create(c.Request.Context(), &input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"subscription": sub})
}

// Authorize attaches the payer's session credential
// POST /api/v1/subscriptions/:id/authorize
func (h *SubscriptionHandler) Authorize(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, domainerrors.BadRequest("Invalid subscription ID"))
		return
	}

	var input entities.AuthorizeSubscriptionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	if err := h.subscriptionUsecase.Authorize(c.Request.Context(), id, &input); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"authorized": true})
}

// Get returns a subscription by ID
// GET /api/v1/subscriptions/:id
func (h *SubscriptionHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, domainerrors.BadRequest("Invalid subscription ID"))
		return
	}

	sub, err := h.subscriptionUsecase.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"subscription": sub})
}

// List returns a payer's subscriptions
// GET /api/v1/subscriptions?payerAddress=0x...
func (h *SubscriptionHandler) List(c *gin.Context) {
	payer := c.Query("payerAddress")
	if payer == "" {
		response.Error(c, domainerrors.BadRequest("payerAddress is required"))
		return
	}

	subs, err := h.subscriptionUsecase.ListByPayer(c.Request.Context(), payer)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"subscriptions": subs})
}

type cancelSubscriptionInput struct {
	Requester string `json:"requester" binding:"required"`
}

// Cancel terminally closes a subscription
// POST /api/v1/subscriptions/:id/cancel
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, domainerrors.BadRequest("Invalid subscription ID"))
		return
	}

	var input cancelSubscriptionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	if err := h.subscriptionUsecase.Cancel(c.Request.Context(), id, input.Requester); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"cancelled": true})
}
