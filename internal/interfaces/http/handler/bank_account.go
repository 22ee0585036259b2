package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	appbanking "github.com/treasury/backend/internal/application/banking"
	"github.com/treasury/backend/internal/domain/shared"
	"github.com/treasury/backend/internal/interfaces/http/dto"
	"github.com/treasury/backend/internal/interfaces/http/middleware"
)

// BankAccountHandler handles bank account API endpoints
type BankAccountHandler struct {
	BaseHandler
	accountService *appbanking.AccountService
}

// NewBankAccountHandler creates a new BankAccountHandler
func NewBankAccountHandler(accountService *appbanking.AccountService) *BankAccountHandler {
	return &BankAccountHandler{
		accountService: accountService,
	}
}

// CreateAccountRequest represents a request to open a bank account
type CreateAccountRequest struct {
	Name           string `json:"name" binding:"required,min=1,max=200"`
	IBAN           string `json:"iban" binding:"required,iban"`
	OpeningBalance string `json:"opening_balance" binding:"omitempty"`
	OverdraftLimit string `json:"overdraft_limit" binding:"omitempty"`
	Currency       string `json:"currency" binding:"omitempty,currency"`
}

// ListAccountsRequest represents query parameters for listing accounts
type ListAccountsRequest struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// Create handles POST /api/v1/accounts
func (h *BankAccountHandler) Create(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.Unauthorized(c, "Missing company identity")
		return
	}

	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	openingBalance := decimal.Zero
	if req.OpeningBalance != "" {
		if openingBalance, err = decimal.NewFromString(req.OpeningBalance); err != nil {
			h.BadRequest(c, "Invalid opening balance")
			return
		}
	}
	overdraftLimit := decimal.Zero
	if req.OverdraftLimit != "" {
		if overdraftLimit, err = decimal.NewFromString(req.OverdraftLimit); err != nil {
			h.BadRequest(c, "Invalid overdraft limit")
			return
		}
	}

	result, err := h.accountService.CreateAccount(c.Request.Context(), appbanking.CreateAccountRequest{
		CompanyID:      companyID,
		Name:           req.Name,
		IBAN:           req.IBAN,
		OpeningBalance: openingBalance,
		OverdraftLimit: overdraftLimit,
		Currency:       req.Currency,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, result)
}

// Get handles GET /api/v1/accounts/:id
func (h *BankAccountHandler) Get(c *gin.Context) {
	companyID, accountID, ok := h.companyAndAccountID(c)
	if !ok {
		return
	}

	result, err := h.accountService.GetAccount(c.Request.Context(), companyID, accountID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// List handles GET /api/v1/accounts
func (h *BankAccountHandler) List(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.Unauthorized(c, "Missing company identity")
		return
	}

	var req ListAccountsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	filter := shared.DefaultFilter()
	if req.Page > 0 {
		filter.Page = req.Page
	}
	if req.PageSize > 0 {
		filter.PageSize = req.PageSize
	}
	if req.OrderBy != "" {
		filter.OrderBy = req.OrderBy
	}
	if req.OrderDir != "" {
		filter.OrderDir = req.OrderDir
	}

	result, err := h.accountService.ListAccounts(c.Request.Context(), companyID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// Deactivate handles POST /api/v1/accounts/:id/deactivate
func (h *BankAccountHandler) Deactivate(c *gin.Context) {
	companyID, accountID, ok := h.companyAndAccountID(c)
	if !ok {
		return
	}

	result, err := h.accountService.Deactivate(c.Request.Context(), companyID, accountID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Activate handles POST /api/v1/accounts/:id/activate
func (h *BankAccountHandler) Activate(c *gin.Context) {
	companyID, accountID, ok := h.companyAndAccountID(c)
	if !ok {
		return
	}

	result, err := h.accountService.Activate(c.Request.Context(), companyID, accountID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Ledger handles GET /api/v1/accounts/:id/ledger
func (h *BankAccountHandler) Ledger(c *gin.Context) {
	companyID, accountID, ok := h.companyAndAccountID(c)
	if !ok {
		return
	}

	var filter appbanking.LedgerListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.accountService.ListLedgerEntries(c.Request.Context(), companyID, accountID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// Reconcile handles POST /api/v1/accounts/:id/reconcile
func (h *BankAccountHandler) Reconcile(c *gin.Context) {
	companyID, accountID, ok := h.companyAndAccountID(c)
	if !ok {
		return
	}

	report, err := h.accountService.Reconcile(c.Request.Context(), companyID, accountID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, report)
}

func (h *BankAccountHandler) companyAndAccountID(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.Unauthorized(c, "Missing company identity")
		return uuid.Nil, uuid.Nil, false
	}

	var idReq dto.IDRequest
	if err := c.ShouldBindUri(&idReq); err != nil {
		h.BadRequest(c, "Invalid account ID")
		return uuid.Nil, uuid.Nil, false
	}
	accountID, err := uuid.Parse(idReq.ID)
	if err != nil {
		h.BadRequest(c, "Invalid account ID")
		return uuid.Nil, uuid.Nil, false
	}

	return companyID, accountID, true
}
