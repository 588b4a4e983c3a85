package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"stablepay.backend/internal/domain/entities"
	domainerrors "stablepay.backend/internal/domain/errors"
)

type productServiceStub struct {
	createFn     func(ctx context.Context, merchantAddress string, input *entities.CreateProductInput) (*entities.Product, error)
	getFn        func(ctx context.Context, id uuid.UUID) (*entities.Product, error)
	listFn       func(ctx context.Context, merchantAddress string, includeInactive bool) ([]*entities.Product, error)
	deactivateFn func(ctx context.Context, merchantAddress string, id uuid.UUID) error
}

func (s productServiceStub) Create(ctx context.Context, merchantAddress string, input *entities.CreateProductInput) (*entities.Product, error) {
	return s.createFn(ctx, merchantAddress, input)
}
func (s productServiceStub) Get(ctx context.Context, id uuid.UUID) (*entities.Product, error) {
	return s.getFn(ctx, id)
}
func (s productServiceStub) List(ctx context.Context, merchantAddress string, includeInactive bool) ([]*entities.Product, error) {
	return s.listFn(ctx, merchantAddress, includeInactive)
}
func (s productServiceStub) Deactivate(ctx context.Context, merchantAddress string, id uuid.UUID) error {
	return s.deactivateFn(ctx, merchantAddress, id)
}

func productRouter(service ProductService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewProductHandler(service)
	r := gin.New()
	r.POST("/merchants/:address/products", h.Create)
	r.GET("/merchants/:address/products", h.List)
	r.GET("/products/:id", h.Get)
	r.DELETE("/merchants/:address/products/:id", h.Deactivate)
	return r
}

func TestProductHandler_Create(t *testing.T) {
	productID := uuid.New()

	service := productServiceStub{
		createFn: func(_ context.Context, merchantAddress string, input *entities.CreateProductInput) (*entities.Product, error) {
			if input.Price == "0" {
				return nil, domainerrors.ErrInvalidAmount
			}
			return &entities.Product{
				ID:              productID,
				MerchantAddress: merchantAddress,
				Name:            input.Name,
				Price:           input.Price,
				Type:            input.Type,
			}, nil
		},
	}
	r := productRouter(service)

	t.Run("created", func(t *testing.T) {
		w := doJSON(r, http.MethodPost, "/merchants/"+merchantAddr+"/products",
			`{"name":"Monthly Plan","price":"9.99","type":"subscription","intervalDays":30}`)
		require.Equal(t, http.StatusCreated, w.Code)
		require.Contains(t, w.Body.String(), productID.String())
	})

	t.Run("zero price maps to 400", func(t *testing.T) {
		w := doJSON(r, http.MethodPost, "/merchants/"+merchantAddr+"/products",
			`{"name":"Free","price":"0","type":"one_time"}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing type rejected", func(t *testing.T) {
		w := doJSON(r, http.MethodPost, "/merchants/"+merchantAddr+"/products",
			`{"name":"Untyped","price":"5"}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestProductHandler_GetListDeactivate(t *testing.T) {
	productID := uuid.New()
	foreignID := uuid.New()

	service := productServiceStub{
		getFn: func(_ context.Context, id uuid.UUID) (*entities.Product, error) {
			if id == productID {
				return &entities.Product{ID: id, MerchantAddress: merchantAddr, Name: "Espresso"}, nil
			}
			return nil, domainerrors.ErrNotFound
		},
		listFn: func(_ context.Context, merchantAddress string, includeInactive bool) ([]*entities.Product, error) {
			products := []*entities.Product{{ID: productID, Name: "Espresso", Active: true}}
			if includeInactive {
				products = append(products, &entities.Product{ID: uuid.New(), Name: "Retired", Active: false})
			}
			return products, nil
		},
		deactivateFn: func(_ context.Context, merchantAddress string, id uuid.UUID) error {
			if id == foreignID {
				return domainerrors.Forbidden("product belongs to another merchant")
			}
			return nil
		},
	}
	r := productRouter(service)

	t.Run("get", func(t *testing.T) {
		w := doJSON(r, http.MethodGet, "/products/"+productID.String(), "")
		require.Equal(t, http.StatusOK, w.Code)
		require.Contains(t, w.Body.String(), "Espresso")
	})

	t.Run("get unknown", func(t *testing.T) {
		w := doJSON(r, http.MethodGet, "/products/"+uuid.NewString(), "")
		require.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("list active only", func(t *testing.T) {
		w := doJSON(r, http.MethodGet, "/merchants/"+merchantAddr+"/products", "")
		require.Equal(t, http.StatusOK, w.Code)
		require.NotContains(t, w.Body.String(), "Retired")
	})

	t.Run("list including inactive", func(t *testing.T) {
		w := doJSON(r, http.MethodGet, "/merchants/"+merchantAddr+"/products?includeInactive=true", "")
		require.Equal(t, http.StatusOK, w.Code)
		require.Contains(t, w.Body.String(), "Retired")
	})

	t.Run("deactivate", func(t *testing.T) {
		w := doJSON(r, http.MethodDelete, "/merchants/"+merchantAddr+"/products/"+productID.String(), "")
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("deactivate foreign product maps to 403", func(t *testing.T) {
		w := doJSON(r, http.MethodDelete, "/merchants/"+merchantAddr+"/products/"+foreignID.String(), "")
		require.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("deactivate malformed id", func(t *testing.T) {
		w := doJSON(r, http.MethodDelete, "/merchants/"+merchantAddr+"/products/zzz", "")
		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}
