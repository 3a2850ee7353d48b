package util

import (
	"errors"
	"net/http"

	"sectrain_backend/internal/workflow"
	"sectrain_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type PageResponse struct {
	List  interface{} `json:"list"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    http.StatusCreated,
		Message: "created",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

func Unauthorized(c *gin.Context) {
	Error(c, http.StatusUnauthorized, "Unauthorized")
}

func Forbidden(c *gin.Context) {
	Error(c, http.StatusForbidden, "Forbidden")
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

func NotFound(c *gin.Context) {
	Error(c, http.StatusNotFound, "Resource not found")
}

func InternalServerError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "Internal server error")
}

func LogInternalError(c *gin.Context, err error) {
	logger.Log.Error("Internal server error", zap.Error(err))
	InternalServerError(c)
}

// RespondError maps the typed error taxonomy to stable HTTP status
// families: conflicts, not-found, validation, upstream-unavailable.
func RespondError(c *gin.Context, err error) {
	var (
		conflict *VersionConflictError
		notFound *NotFoundError
		terminal *ExpectedTerminalStateError
		illegal  *workflow.InvalidTransitionError
		aiErr    *AIError
		upErr    *UploadError
	)

	switch {
	case errors.As(err, &conflict):
		Error(c, http.StatusConflict, conflict.Error())
	case errors.As(err, &notFound):
		Error(c, http.StatusNotFound, notFound.Error())
	case errors.As(err, &terminal):
		Error(c, http.StatusConflict, terminal.Error())
	case errors.As(err, &illegal):
		Error(c, http.StatusConflict, illegal.Error())
	case errors.As(err, &aiErr):
		if aiErr.Transient() {
			Error(c, http.StatusServiceUnavailable, aiErr.Error())
		} else {
			Error(c, http.StatusBadGateway, aiErr.Error())
		}
	case errors.As(err, &upErr):
		Error(c, http.StatusBadGateway, upErr.Error())
	case errors.Is(err, ErrActiveSessionExists),
		errors.Is(err, ErrDuplicateResponse),
		errors.Is(err, ErrModuleOrder),
		errors.Is(err, ErrAttemptsExhausted):
		Error(c, http.StatusConflict, err.Error())
	case errors.Is(err, ErrNoActiveSession):
		Error(c, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrUnknownItem),
		errors.Is(err, ErrIncompleteQuiz),
		errors.Is(err, ErrIntegrationDisabled):
		Error(c, http.StatusBadRequest, err.Error())
	default:
		LogInternalError(c, err)
	}
}
