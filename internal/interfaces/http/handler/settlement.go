package handler

import (
	"context"

	settlementapp "github.com/bookkeeper/backend/internal/application/settlement"
	"github.com/bookkeeper/backend/internal/domain/settlement"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SettlementUseCases records payments and refunds
type SettlementUseCases interface {
	ApplyPayment(ctx context.Context, ownerID uuid.UUID, docType settlement.DocumentType, documentID uuid.UUID, cmd settlementapp.PaymentCommand) (*settlementapp.SettlementResult, error)
	ApplyRefund(ctx context.Context, ownerID uuid.UUID, docType settlement.DocumentType, documentID uuid.UUID, cmd settlementapp.RefundCommand) (*settlementapp.SettlementResult, error)
}

// SettlementHandler serves the payment and refund endpoints of sales,
// purchases and quotations
type SettlementHandler struct {
	BaseHandler
	service SettlementUseCases
}

// NewSettlementHandler creates a new SettlementHandler
func NewSettlementHandler(service SettlementUseCases) *SettlementHandler {
	return &SettlementHandler{service: service}
}

// RecordPayment returns the handler for POST /{type}/:id/payments
//
// @Summary  Record a payment
// @Tags     settlement
// @Accept   json
// @Produce  json
// @Param    id               path   string                       true  "Document ID"
// @Param    Idempotency-Key  header string                       false "Client retry key"
// @Param    request          body   settlement.PaymentCommand    true  "Payment"
// @Success  201 {object} dto.Response
// @Failure  422 {object} dto.Response
// @Router   /sales/{id}/payments [post]
func (h *SettlementHandler) RecordPayment(docType settlement.DocumentType) gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID, id, ok := h.ownerAndID(c)
		if !ok {
			return
		}

		var cmd settlementapp.PaymentCommand
		if !h.bindJSON(c, &cmd) {
			return
		}

		result, err := h.service.ApplyPayment(c.Request.Context(), ownerID, docType, id, cmd)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Created(c, result)
	}
}

// RecordRefund returns the handler for POST /{type}/:id/refunds
//
// @Summary  Record a refund
// @Tags     settlement
// @Accept   json
// @Produce  json
// @Param    id       path  string                     true "Document ID"
// @Param    request  body  settlement.RefundCommand   true "Refund"
// @Success  201 {object} dto.Response
// @Failure  422 {object} dto.Response
// @Router   /sales/{id}/refunds [post]
func (h *SettlementHandler) RecordRefund(docType settlement.DocumentType) gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID, id, ok := h.ownerAndID(c)
		if !ok {
			return
		}

		var cmd settlementapp.RefundCommand
		if !h.bindJSON(c, &cmd) {
			return
		}

		result, err := h.service.ApplyRefund(c.Request.Context(), ownerID, docType, id, cmd)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Created(c, result)
	}
}
