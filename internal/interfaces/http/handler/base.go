package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/treasury/backend/internal/domain/banking"
	"github.com/treasury/backend/internal/domain/payment"
	"github.com/treasury/backend/internal/domain/shared"
	"github.com/treasury/backend/internal/interfaces/http/dto"
	"github.com/treasury/backend/internal/interfaces/http/middleware"
)

// RequestIDKey is the context key for request ID
const RequestIDKey = "X-Request-ID"

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := c.GetString(RequestIDKey); id != "" {
		return id
	}
	if id := c.GetHeader(RequestIDKey); id != "" {
		return id
	}
	return ""
}

// getUserID extracts the authenticated user ID from JWT claims
func getUserID(c *gin.Context) (uuid.UUID, error) {
	userIDStr := middleware.GetJWTUserID(c)
	if userIDStr == "" {
		return uuid.Nil, errors.New("user ID not found in context")
	}
	return uuid.Parse(userIDStr)
}

// getCompanyID extracts the company ID from JWT claims
func getCompanyID(c *gin.Context) (uuid.UUID, error) {
	companyIDStr := middleware.GetJWTCompanyID(c)
	if companyIDStr == "" {
		return uuid.Nil, errors.New("company ID not found in context")
	}
	return uuid.Parse(companyIDStr)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response with the given status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// Unauthorized sends a 401 unauthorized response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// HandleError maps workflow errors to HTTP responses. Typed errors carry
// structured payloads; DomainError codes are normalized to the HTTP-facing
// code set; anything else is an internal error.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	requestID := getRequestID(c)

	var duplicateErr *payment.DuplicateApprovalError
	if errors.As(err, &duplicateErr) {
		c.JSON(http.StatusConflict, dto.NewErrorResponseWithDetails(
			dto.ErrCodeDuplicateApproval, duplicateErr.Error(), requestID,
			map[string]interface{}{
				"payment_id":  duplicateErr.PaymentID.String(),
				"approver_id": duplicateErr.ApproverID.String(),
			},
		))
		return
	}

	var notExecutableErr *payment.PaymentNotExecutableError
	if errors.As(err, &notExecutableErr) {
		c.JSON(http.StatusConflict, dto.NewErrorResponseWithDetails(
			dto.ErrCodeNotExecutable, notExecutableErr.Error(), requestID,
			map[string]interface{}{
				"payment_id":       notExecutableErr.PaymentID.String(),
				"status":           notExecutableErr.Status.String(),
				"already_executed": notExecutableErr.AlreadyExecuted,
			},
		))
		return
	}

	var insufficientErr *banking.InsufficientBalanceError
	if errors.As(err, &insufficientErr) {
		c.JSON(http.StatusUnprocessableEntity, dto.NewErrorResponseWithDetails(
			dto.ErrCodeInsufficientBalance, insufficientErr.Error(), requestID,
			map[string]interface{}{
				"account_id":        insufficientErr.AccountID.String(),
				"required_amount":   insufficientErr.RequiredAmount.String(),
				"available_balance": insufficientErr.AvailableBalance.String(),
				"shortfall":         insufficientErr.Shortfall.String(),
			},
		))
		return
	}

	var inactiveErr *banking.AccountInactiveError
	if errors.As(err, &inactiveErr) {
		c.JSON(http.StatusUnprocessableEntity, dto.NewErrorResponseWithDetails(
			dto.ErrCodeAccountInactive, inactiveErr.Error(), requestID,
			map[string]interface{}{
				"account_id": inactiveErr.AccountID.String(),
			},
		))
		return
	}

	var lockErr *payment.LockTimeoutError
	if errors.As(err, &lockErr) {
		c.JSON(http.StatusLocked, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeLockTimeout, "Payment is busy, retry shortly", requestID))
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		statusCode := dto.GetHTTPStatus(code)
		if _, known := dto.ErrorCodeHTTPStatus[code]; !known {
			// Unmapped domain codes are business rule rejections
			statusCode = http.StatusUnprocessableEntity
		}
		c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, domainErr.Message, requestID))
		return
	}

	c.JSON(http.StatusInternalServerError, dto.NewErrorResponseWithRequestID(
		dto.ErrCodeInternal, "An unexpected error occurred", requestID))
}
