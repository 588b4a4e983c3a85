package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"stablepay.backend/internal/domain/entities"
	domainerrors "stablepay.backend/internal/domain/errors"
)

type jobServiceStub struct {
	createFn  func(ctx context.Context, input *entities.CreateJobInput) (*entities.PaymentJob, error)
	getFn     func(ctx context.Context, id uuid.UUID) (*entities.PaymentJob, error)
	listFn    func(ctx context.Context, payer string, limit, offset int) ([]*entities.PaymentJob, int, error)
	confirmFn func(ctx context.Context, id uuid.UUID) (*entities.PaymentJob, error)
	retryFn   func(ctx context.Context, id uuid.UUID) (*entities.PaymentJob, error)
	previewFn func(ctx context.Context, payer, amount string) (*entities.SourcePlan, *entities.Quote, error)
}

func (s jobServiceStub) CreateJob(ctx context.Context, input *entities.CreateJobInput) (*entities.PaymentJob, error) {
	return s.createFn(ctx, input)
}
func (s jobServiceStub) GetJob(ctx context.Context, id uuid.UUID) (*entities.PaymentJob, error) {
	return s.getFn(ctx, id)
}
func (s jobServiceStub) ListJobs(ctx context.Context, payer string, limit, offset int) ([]*entities.PaymentJob, int, error) {
	return s.listFn(ctx, payer, limit, offset)
}
func (s jobServiceStub) Confirm(ctx context.Context, id uuid.UUID) (*entities.PaymentJob, error) {
	return s.confirmFn(ctx, id)
}
func (s jobServiceStub) Retry(ctx context.Context, id uuid.UUID) (*entities.PaymentJob, error) {
	return s.retryFn(ctx, id)
}
func (s jobServiceStub) PreviewQuote(ctx context.Context, payer, amount string) (*entities.SourcePlan, *entities.Quote, error) {
	return s.previewFn(ctx, payer, amount)
}

func sampleJob(id uuid.UUID, status entities.JobStatus) *entities.PaymentJob {
	return &entities.PaymentJob{
		ID:              id,
		PayerAddress:    "0x1111111111111111111111111111111111111111",
		MerchantAddress: "0x2222222222222222222222222222222222222222",
		Amount:          "100",
		Status:          status,
		TxHashes:        entities.TxHashes{},
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
}

func jobRouter(service PaymentJobService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewPaymentJobHandler(service)
	r := gin.New()
	r.POST("/jobs", h.CreateJob)
	r.GET("/jobs/:id", h.GetJob)
	r.GET("/jobs", h.ListJobs)
	r.POST("/jobs/:id/confirm", h.Confirm)
	r.POST("/jobs/:id/retry", h.Retry)
	r.POST("/quotes", h.PreviewQuote)
	return r
}

func doJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPaymentJobHandler_Create(t *testing.T) {
	jobID := uuid.New()

	service := jobServiceStub{
		createFn: func(_ context.Context, input *entities.CreateJobInput) (*entities.PaymentJob, error) {
			switch input.Amount {
			case "short":
				return nil, domainerrors.ErrInsufficientFunds
			case "badaddr":
				return nil, domainerrors.ErrInvalidAddress
			}
			return sampleJob(jobID, entities.JobStatusAwaitingConfirmation), nil
		},
	}
	r := jobRouter(service)

	t.Run("created", func(t *testing.T) {
		w := doJSON(r, http.MethodPost, "/jobs",
			`{"payerAddress":"0x1","merchantAddress":"0x2","amount":"100"}`)
		require.Equal(t, http.StatusCreated, w.Code)

		var out struct {
			Job entities.JobStatusView `json:"job"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
		require.Equal(t, jobID, out.Job.JobID)
		require.Equal(t, entities.JobStatusAwaitingConfirmation, out.Job.Status)
	})

	t.Run("missing fields rejected before the service", func(t *testing.T) {
		w := doJSON(r, http.MethodPost, "/jobs", `{"payerAddress":"0x1"}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("insufficient funds maps to 422", func(t *testing.T) {
		w := doJSON(r, http.MethodPost, "/jobs",
			`{"payerAddress":"0x1","merchantAddress":"0x2","amount":"short"}`)
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		require.Contains(t, w.Body.String(), "ERR_INSUFFICIENT_FUNDS")
	})

	t.Run("invalid address maps to 400", func(t *testing.T) {
		w := doJSON(r, http.MethodPost, "/jobs",
			`{"payerAddress":"0x1","merchantAddress":"0x2","amount":"badaddr"}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestPaymentJobHandler_GetAndList(t *testing.T) {
	jobID := uuid.New()

	service := jobServiceStub{
		getFn: func(_ context.Context, id uuid.UUID) (*entities.PaymentJob, error) {
			if id == jobID {
				return sampleJob(id, entities.JobStatusComplete), nil
			}
			return nil, domainerrors.ErrNotFound
		},
		listFn: func(_ context.Context, payer string, limit, offset int) ([]*entities.PaymentJob, int, error) {
			require.Equal(t, 5, limit)
			require.Equal(t, 5, offset)
			return []*entities.PaymentJob{sampleJob(jobID, entities.JobStatusComplete)}, 11, nil
		},
	}
	r := jobRouter(service)

	t.Run("get", func(t *testing.T) {
		w := doJSON(r, http.MethodGet, "/jobs/"+jobID.String(), "")
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("get unknown id", func(t *testing.T) {
		w := doJSON(r, http.MethodGet, "/jobs/"+uuid.NewString(), "")
		require.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("get malformed id", func(t *testing.T) {
		w := doJSON(r, http.MethodGet, "/jobs/not-a-uuid", "")
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("list with pagination", func(t *testing.T) {
		w := doJSON(r, http.MethodGet, "/jobs?payerAddress=0x1&page=2&limit=5", "")
		require.Equal(t, http.StatusOK, w.Code)

		var out struct {
			Jobs       []entities.JobStatusView `json:"jobs"`
			Pagination struct {
				Page       int   `json:"page"`
				TotalCount int64 `json:"totalCount"`
				TotalPages int   `json:"totalPages"`
			} `json:"pagination"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
		require.Len(t, out.Jobs, 1)
		require.Equal(t, 2, out.Pagination.Page)
		require.Equal(t, int64(11), out.Pagination.TotalCount)
		require.Equal(t, 3, out.Pagination.TotalPages)
	})

	t.Run("list requires payer", func(t *testing.T) {
		w := doJSON(r, http.MethodGet, "/jobs", "")
		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestPaymentJobHandler_ConfirmAndRetry(t *testing.T) {
	jobID := uuid.New()
	staleID := uuid.New()

	service := jobServiceStub{
		confirmFn: func(_ context.Context, id uuid.UUID) (*entities.PaymentJob, error) {
			if id == staleID {
				return nil, domainerrors.ErrJobNotConfirmable
			}
			return sampleJob(id, entities.JobStatusSwapping), nil
		},
		retryFn: func(_ context.Context, id uuid.UUID) (*entities.PaymentJob, error) {
			if id == staleID {
				return nil, domainerrors.ErrJobNotRetryable
			}
			return sampleJob(id, entities.JobStatusGatewayDepositing), nil
		},
	}
	r := jobRouter(service)

	t.Run("confirm", func(t *testing.T) {
		w := doJSON(r, http.MethodPost, "/jobs/"+jobID.String()+"/confirm", "")
		require.Equal(t, http.StatusOK, w.Code)
		require.Contains(t, w.Body.String(), string(entities.JobStatusSwapping))
	})

	t.Run("confirm wrong state maps to 409", func(t *testing.T) {
		w := doJSON(r, http.MethodPost, "/jobs/"+staleID.String()+"/confirm", "")
		require.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("retry", func(t *testing.T) {
		w := doJSON(r, http.MethodPost, "/jobs/"+jobID.String()+"/retry", "")
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("retry wrong state maps to 409", func(t *testing.T) {
		w := doJSON(r, http.MethodPost, "/jobs/"+staleID.String()+"/retry", "")
		require.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		w := doJSON(r, http.MethodPost, "/jobs/xyz/confirm", "")
		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestPaymentJobHandler_PreviewQuote(t *testing.T) {
	service := jobServiceStub{
		previewFn: func(_ context.Context, payer, amount string) (*entities.SourcePlan, *entities.Quote, error) {
			if amount == "0" {
				return nil, nil, domainerrors.ErrInvalidAmount
			}
			if amount == "50000" {
				return &entities.SourcePlan{SufficientFunds: false, Shortfall: "49900", TotalAvailable: "100"}, nil, nil
			}
			return &entities.SourcePlan{
					Steps:           []entities.PlanStep{{Chain: "base-sepolia", Type: entities.StepTypeStablecoin, Amount: "100.15", EstimatedUsdcOut: "100.05"}},
					SufficientFunds: true,
					TotalAvailable:  "250",
				}, &entities.Quote{
					TargetAmount:    amount,
					TotalAuthorized: "100.25",
					NetToMerchant:   "99.7",
				}, nil
		},
	}
	r := jobRouter(service)

	t.Run("quoted", func(t *testing.T) {
		w := doJSON(r, http.MethodPost, "/quotes", `{"payerAddress":"0x1","amount":"100"}`)
		require.Equal(t, http.StatusOK, w.Code)
		require.Contains(t, w.Body.String(), `"totalAuthorized":"100.25"`)
	})

	t.Run("insufficient preview returns plan without quote", func(t *testing.T) {
		w := doJSON(r, http.MethodPost, "/quotes", `{"payerAddress":"0x1","amount":"50000"}`)
		require.Equal(t, http.StatusOK, w.Code)
		require.Contains(t, w.Body.String(), `"sufficientFunds":false`)
		require.Contains(t, w.Body.String(), `"quote":null`)
	})

	t.Run("invalid amount maps to 400", func(t *testing.T) {
		w := doJSON(r, http.MethodPost, "/quotes", `{"payerAddress":"0x1","amount":"0"}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing amount rejected", func(t *testing.T) {
		w := doJSON(r, http.MethodPost, "/quotes", `{"payerAddress":"0x1"}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}
