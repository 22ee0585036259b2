package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	apppayment "github.com/treasury/backend/internal/application/payment"
	"github.com/treasury/backend/internal/domain/payment"
	"github.com/treasury/backend/internal/interfaces/http/dto"
	"github.com/treasury/backend/internal/interfaces/http/middleware"
)

// PaymentHandler handles payment workflow API endpoints
type PaymentHandler struct {
	BaseHandler
	paymentService *apppayment.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService *apppayment.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

// CreatePaymentRequest represents a request to create a payment draft
type CreatePaymentRequest struct {
	Direction          string `json:"direction" binding:"required,oneof=INBOUND OUTBOUND"`
	Amount             string `json:"amount" binding:"required"`
	Currency           string `json:"currency" binding:"omitempty,currency"`
	BankAccountID      string `json:"bank_account_id" binding:"required,uuid"`
	BeneficiaryName    string `json:"beneficiary_name" binding:"max=200"`
	BeneficiaryAccount string `json:"beneficiary_account" binding:"omitempty,iban"`
	Purpose            string `json:"purpose" binding:"max=500"`
}

// CancelPaymentRequest represents a request to cancel a payment
type CancelPaymentRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// ConfirmPaymentRequest represents a settlement confirmation
type ConfirmPaymentRequest struct {
	SettlementRef string `json:"settlement_ref" binding:"required,min=1,max=100"`
}

// Create handles POST /api/v1/payments
func (h *PaymentHandler) Create(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.Unauthorized(c, "Missing company identity")
		return
	}
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Missing user identity")
		return
	}

	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		h.BadRequest(c, "Invalid amount")
		return
	}
	bankAccountID, err := uuid.Parse(req.BankAccountID)
	if err != nil {
		h.BadRequest(c, "Invalid bank account ID")
		return
	}

	result, err := h.paymentService.CreatePayment(c.Request.Context(), apppayment.CreatePaymentRequest{
		CompanyID:          companyID,
		Direction:          payment.Direction(req.Direction),
		Amount:             amount,
		Currency:           req.Currency,
		BankAccountID:      bankAccountID,
		BeneficiaryName:    req.BeneficiaryName,
		BeneficiaryAccount: req.BeneficiaryAccount,
		Purpose:            req.Purpose,
		CreatedBy:          &userID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, result)
}

// Get handles GET /api/v1/payments/:id
func (h *PaymentHandler) Get(c *gin.Context) {
	companyID, paymentID, ok := h.companyAndPaymentID(c)
	if !ok {
		return
	}

	result, err := h.paymentService.GetPayment(c.Request.Context(), companyID, paymentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// List handles GET /api/v1/payments
func (h *PaymentHandler) List(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.Unauthorized(c, "Missing company identity")
		return
	}

	var filter apppayment.PaymentListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	if filter.Page == 0 {
		filter.Page = 1
	}
	if filter.PageSize == 0 {
		filter.PageSize = 20
	}

	result, err := h.paymentService.ListPayments(c.Request.Context(), companyID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// Submit handles POST /api/v1/payments/:id/submit
func (h *PaymentHandler) Submit(c *gin.Context) {
	companyID, paymentID, ok := h.companyAndPaymentID(c)
	if !ok {
		return
	}

	result, err := h.paymentService.SubmitForApproval(c.Request.Context(), companyID, paymentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Approve handles POST /api/v1/payments/:id/approve. The approver identity
// comes from the authenticated token, never from the request body.
func (h *PaymentHandler) Approve(c *gin.Context) {
	companyID, paymentID, ok := h.companyAndPaymentID(c)
	if !ok {
		return
	}
	approverID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Missing approver identity")
		return
	}

	result, err := h.paymentService.Approve(c.Request.Context(), companyID, paymentID, approverID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Execute handles POST /api/v1/payments/:id/execute
func (h *PaymentHandler) Execute(c *gin.Context) {
	companyID, paymentID, ok := h.companyAndPaymentID(c)
	if !ok {
		return
	}

	result, err := h.paymentService.Execute(c.Request.Context(), companyID, paymentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Cancel handles POST /api/v1/payments/:id/cancel
func (h *PaymentHandler) Cancel(c *gin.Context) {
	companyID, paymentID, ok := h.companyAndPaymentID(c)
	if !ok {
		return
	}
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Missing user identity")
		return
	}

	var req CancelPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.paymentService.Cancel(c.Request.Context(), companyID, paymentID, userID, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Confirm handles POST /api/v1/payments/:id/confirm
func (h *PaymentHandler) Confirm(c *gin.Context) {
	companyID, paymentID, ok := h.companyAndPaymentID(c)
	if !ok {
		return
	}

	var req ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.paymentService.Confirm(c.Request.Context(), companyID, paymentID, req.SettlementRef)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

func (h *PaymentHandler) companyAndPaymentID(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.Unauthorized(c, "Missing company identity")
		return uuid.Nil, uuid.Nil, false
	}

	var idReq dto.IDRequest
	if err := c.ShouldBindUri(&idReq); err != nil {
		h.BadRequest(c, "Invalid payment ID")
		return uuid.Nil, uuid.Nil, false
	}
	paymentID, err := uuid.Parse(idReq.ID)
	if err != nil {
		h.BadRequest(c, "Invalid payment ID")
		return uuid.Nil, uuid.Nil, false
	}

	return companyID, paymentID, true
}
