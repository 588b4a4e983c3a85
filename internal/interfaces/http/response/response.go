package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	domainerrors "stablepay.backend/internal/domain/errors"
)

// Success sends a success response
func Success(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}

// Error maps a usecase error to its HTTP shape. AppErrors pass through;
// sentinel errors get a stable status and code; anything else is a 500.
func Error(c *gin.Context, err error) {
	var appErr *domainerrors.AppError
	if errors.As(err, &appErr) {
		write(c, appErr)
		return
	}
	write(c, fromSentinel(err))
}

func fromSentinel(err error) *domainerrors.AppError {
	switch {
	case errors.Is(err, domainerrors.ErrNotFound):
		return domainerrors.NotFound(err.Error())
	case errors.Is(err, domainerrors.ErrInvalidAddress),
		errors.Is(err, domainerrors.ErrInvalidAmount),
		errors.Is(err, domainerrors.ErrUnsupportedChain):
		return domainerrors.BadRequest(err.Error())
	case errors.Is(err, domainerrors.ErrInsufficientFunds):
		return domainerrors.NewAppError(http.StatusUnprocessableEntity, "ERR_INSUFFICIENT_FUNDS", err.Error(), err)
	case errors.Is(err, domainerrors.ErrJobNotConfirmable),
		errors.Is(err, domainerrors.ErrJobNotRetryable),
		errors.Is(err, domainerrors.ErrInvalidTransition),
		errors.Is(err, domainerrors.ErrSlugTaken),
		errors.Is(err, domainerrors.ErrSubscriptionClosed),
		errors.Is(err, domainerrors.ErrCredentialMissing):
		return domainerrors.Conflict(err.Error())
	default:
		return domainerrors.InternalError(err)
	}
}

func write(c *gin.Context, appErr *domainerrors.AppError) {
	c.JSON(appErr.Status, gin.H{
		"code":    appErr.Code,
		"message": appErr.Message,
	})
}
