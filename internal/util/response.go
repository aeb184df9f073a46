package util

import (
	"edu_portal_backend/internal/assessment"
	"edu_portal_backend/pkg/logger"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
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
	logger.Log.Error("Internal server error",
		zap.String("path", c.FullPath()),
		zap.Error(err))
	InternalServerError(c)
}

// StatusFor maps a domain error to its HTTP status; 0 means unknown.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, assessment.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrPermissionDenied), errors.Is(err, ErrReviewNotAllowed):
		return http.StatusForbidden
	case errors.Is(err, assessment.ErrAttemptNotFound),
		errors.Is(err, assessment.ErrAssessmentNotFound),
		errors.Is(err, ErrEnrollmentNotFound),
		errors.Is(err, ErrReportNotFound),
		errors.Is(err, ErrUserNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, assessment.ErrAttemptsExhausted),
		errors.Is(err, assessment.ErrAttemptInProgress),
		errors.Is(err, assessment.ErrInvalidState),
		errors.Is(err, assessment.ErrTimeLimitReached),
		errors.Is(err, assessment.ErrCertificateAlreadyIssued),
		errors.Is(err, ErrNotManuallyGraded):
		return http.StatusConflict
	case errors.Is(err, assessment.ErrCertificateNotEligible),
		errors.Is(err, assessment.ErrEnrollmentNotCompleted):
		return http.StatusUnprocessableEntity
	}
	return 0
}

// RespondError 统一业务错误响应，未知错误记录日志并返回 500
func RespondError(c *gin.Context, err error) {
	code := StatusFor(err)
	if code == 0 {
		LogInternalError(c, err)
		return
	}
	Error(c, code, err.Error())
}
