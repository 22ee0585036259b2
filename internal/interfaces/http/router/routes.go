package router

import (
	"github.com/gin-gonic/gin"

	"github.com/treasury/backend/internal/interfaces/http/handler"
)

// PaymentRoutes registers the payment workflow endpoints
type PaymentRoutes struct {
	handler *handler.PaymentHandler
}

// NewPaymentRoutes creates a new PaymentRoutes registrar
func NewPaymentRoutes(h *handler.PaymentHandler) *PaymentRoutes {
	return &PaymentRoutes{handler: h}
}

// RegisterRoutes implements RouteRegistrar
func (r *PaymentRoutes) RegisterRoutes(rg *gin.RouterGroup) {
	payments := rg.Group("/payments")
	{
		payments.POST("", r.handler.Create)
		payments.GET("", r.handler.List)
		payments.GET("/:id", r.handler.Get)
		payments.POST("/:id/submit", r.handler.Submit)
		payments.POST("/:id/approve", r.handler.Approve)
		payments.POST("/:id/execute", r.handler.Execute)
		payments.POST("/:id/cancel", r.handler.Cancel)
		payments.POST("/:id/confirm", r.handler.Confirm)
	}
}

// AccountRoutes registers the bank account endpoints
type AccountRoutes struct {
	handler *handler.BankAccountHandler
}

// NewAccountRoutes creates a new AccountRoutes registrar
func NewAccountRoutes(h *handler.BankAccountHandler) *AccountRoutes {
	return &AccountRoutes{handler: h}
}

// RegisterRoutes implements RouteRegistrar
func (r *AccountRoutes) RegisterRoutes(rg *gin.RouterGroup) {
	accounts := rg.Group("/accounts")
	{
		accounts.POST("", r.handler.Create)
		accounts.GET("", r.handler.List)
		accounts.GET("/:id", r.handler.Get)
		accounts.POST("/:id/deactivate", r.handler.Deactivate)
		accounts.POST("/:id/activate", r.handler.Activate)
		accounts.GET("/:id/ledger", r.handler.Ledger)
		accounts.POST("/:id/reconcile", r.handler.Reconcile)
	}
}
