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

type ProductService interface {
	Create(ctx context.Context, merchantAddress string, input *entities.CreateProductInput) (*entities.Product, error)
	Get(ctx context.Context, id uuid.UUID) (*entities.Product, error)
	List(ctx context.Context, merchantAddress string, includeInactive bool) ([]*entities.Product, error)
	Deactivate(ctx context.Context, merchantAddress string, id uuid.UUID) error
}

// ProductHandler handles product catalog endpoints
type ProductHandler struct {
	productUsecase ProductService
}

// NewProductHandler creates a new product handler
func NewProductHandler(productUsecase ProductService) *ProductHandler {
	return &ProductHandler{productUsecase: productUsecase}
}

// Create adds a product to a merchant's catalog
// POST /api/v1/merchants/:address/products
func (h *ProductHandler) Create(c *gin.Context) {
	var input entities.CreateProductInput

	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	product, err := h.productUsecase.Create(c.Request.Context(), c.Param("address"), &input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"product": product})
}

// Get returns a product by ID
// GET /api/v1/products/:id
func (h *ProductHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, domainerrors.BadRequest("Invalid product ID"))
		return
	}

	product, err := h.productUsecase.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"product": product})
}

// List returns a merchant's catalog, active products only by default
// GET /api/v1/merchants/:address/products?includeInactive=true
func (h *ProductHandler) List(c *gin.Context) {
	includeInactive := c.DefaultQuery("includeInactive", "false") == "true"

	products, err := h.productUsecase.List(c.Request.Context(), c.Param("address"), includeInactive)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"products": products})
}

// Deactivate retires a product from sale
// DELETE /api/v1/merchants/:address/products/:id
func (h *ProductHandler) Deactivate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, domainerrors.BadRequest("Invalid product ID"))
		return
	}

	if err := h.productUsecase.Deactivate(c.Request.Context(), c.Param("address"), id); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deactivated": true})
}
