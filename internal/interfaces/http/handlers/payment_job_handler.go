package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"stablepay.backend/internal/domain/entities"
	domainerrors "stablepay.backend/internal/domain/errors"
	"stablepay.backend/internal/interfaces/http/response"
	"stablepay.backend/pkg/utils"
)

type PaymentJobService interface {
	CreateJob(ctx context.Context, input *entities.CreateJobInput) (*entities.PaymentJob, error)
	GetJob(ctx context.Context, id uuid.UUID) (*entities.PaymentJob, error)
	ListJobs(ctx context.Context, payerAddress string, limit, offset int) ([]*entities.PaymentJob, int, error)
	Confirm(ctx context.Context, jobID uuid.UUID) (*entities.PaymentJob, error)
	Retry(ctx context.Context, jobID uuid.UUID) (*entities.PaymentJob, error)
	PreviewQuote(ctx context.Context, payerAddress, amount string) (*entities.SourcePlan, *entities.Quote, error)
}

// PaymentJobHandler handles payment job endpoints
type PaymentJobHandler struct {
	jobUsecase PaymentJobService
}

// NewPaymentJobHandler creates a new payment job handler
func NewPaymentJobHandler(jobUsecase PaymentJobService) *PaymentJobHandler {
	return &PaymentJobHandler{jobUsecase: jobUsecase}
}

// CreateJob opens a new payment job
// POST /api/v1/jobs
func (h *PaymentJobHandler) CreateJob(c *gin.Context) {
	var input entities.CreateJobInput

	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	job, err := h.jobUsecase.CreateJob(c.Request.Context(), &input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"job": job.View()})
}

// GetJob returns the current status view of a job
// GET /api/v1/jobs/:id
func (h *PaymentJobHandler) GetJob(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, domainerrors.BadRequest("Invalid job ID"))
		return
	}

	job, err := h.jobUsecase.GetJob(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"job": job.View()})
}

// ListJobs lists jobs for a payer, newest first
// GET /api/v1/jobs?payerAddress=0x...
func (h *PaymentJobHandler) ListJobs(c *gin.Context) {
	payer := c.Query("payerAddress")
	if payer == "" {
		response.Error(c, domainerrors.BadRequest("payerAddress is required"))
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if limit < 1 || limit > 100 {
		limit = 10
	}
	params := utils.GetPaginationParams(page, limit)

	jobs, total, err := h.jobUsecase.ListJobs(c.Request.Context(), payer, params.Limit, params.CalculateOffset())
	if err != nil {
		response.Error(c, err)
		return
	}

	views := make([]*entities.JobStatusView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, job.View())
	}

	response.Success(c, http.StatusOK, gin.H{
		"jobs":       views,
		"pagination": utils.CalculateMeta(int64(total), params.Page, params.Limit),
	})
}

// Confirm releases an awaiting job for execution
// POST /api/v1/jobs/:id/confirm
func (h *PaymentJobHandler) Confirm(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, domainerrors.BadRequest("Invalid job ID"))
		return
	}

	job, err := h.jobUsecase.Confirm(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"job": job.View()})
}

// Retry resumes a failed or expired job from where it stopped
// POST /api/v1/jobs/:id/retry
func (h *PaymentJobHandler) Retry(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, domainerrors.BadRequest("Invalid job ID"))
		return
	}

	job, err := h.jobUsecase.Retry(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"job": job.View()})
}

type previewQuoteInput struct {
	PayerAddress string `json:"payerAddress" binding:"required"`
	Amount       string `json:"amount" binding:"required"`
}

// PreviewQuote computes a plan and quote without persisting anything
// POST /api/v1/quotes
func (h *PaymentJobHandler) PreviewQuote(c *gin.Context) {
	var input previewQuoteInput

	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	plan, quote, err := h.jobUsecase.PreviewQuote(c.Request.Context(), input.PayerAddress, input.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"sourcePlan": plan, "quote": quote})
}
