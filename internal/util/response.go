package util

import (
	"errors"
	"net/http"

	"cbt_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Response is the uniform JSON envelope for every endpoint.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// PageResponse wraps paginated lists.
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

// RespondError maps domain errors onto HTTP statuses. Validation errors keep
// field detail; store errors are logged and surfaced as a generic failure.
func RespondError(c *gin.Context, err error) {
	var (
		validationErr *ValidationError
		eligibility   *EligibilityError
		invalidState  *InvalidStateError
		notFound      *NotFoundError
		expired       *SessionExpiredError
	)

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, Response{
			Code:    http.StatusBadRequest,
			Message: validationErr.Error(),
			Data:    gin.H{"fields": validationErr.Fields},
		})
	case errors.As(err, &eligibility):
		Error(c, http.StatusForbidden, eligibility.Reason)
	case errors.As(err, &expired):
		Error(c, http.StatusGone, "time is up")
	case errors.As(err, &invalidState):
		Error(c, http.StatusConflict, invalidState.Error())
	case errors.As(err, &notFound):
		Error(c, http.StatusNotFound, notFound.Error())
	case errors.Is(err, gorm.ErrRecordNotFound):
		NotFound(c)
	default:
		LogInternalError(c, err)
	}
}
