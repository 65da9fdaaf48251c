package handler

import (
	"context"

	settlementapp "github.com/bookkeeper/backend/internal/application/settlement"
	"github.com/bookkeeper/backend/internal/domain/settlement"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DocumentUseCases creates and reads documents and invoice drafts
type DocumentUseCases interface {
	CreateDocument(ctx context.Context, ownerID uuid.UUID, docType settlement.DocumentType, cmd settlementapp.CreateDocumentCommand) (*settlementapp.DocumentResponse, error)
	IssueQuotation(ctx context.Context, ownerID, id uuid.UUID) (*settlementapp.DocumentResponse, error)
	UpdateQuotationItems(ctx context.Context, ownerID, id uuid.UUID, lines settlementapp.LinesInput) (*settlementapp.DocumentResponse, error)
	GetDocument(ctx context.Context, ownerID uuid.UUID, docType settlement.DocumentType, id uuid.UUID) (*settlementapp.DocumentResponse, error)
	ListPayments(ctx context.Context, ownerID uuid.UUID, docType settlement.DocumentType, id uuid.UUID) ([]settlementapp.LedgerEntryResponse, error)
	CreateInvoice(ctx context.Context, ownerID uuid.UUID, cmd settlementapp.CreateInvoiceCommand) (*settlementapp.InvoiceResponse, error)
	ConvertInvoiceToSale(ctx context.Context, ownerID, invoiceID uuid.UUID) (*settlementapp.ConversionResult, error)
}

// DocumentHandler serves document and invoice endpoints
type DocumentHandler struct {
	BaseHandler
	service DocumentUseCases
}

// NewDocumentHandler creates a new DocumentHandler
func NewDocumentHandler(service DocumentUseCases) *DocumentHandler {
	return &DocumentHandler{service: service}
}

// Create returns the handler for POST /{type}
func (h *DocumentHandler) Create(docType settlement.DocumentType) gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID, ok := h.requireOwner(c)
		if !ok {
			return
		}

		var cmd settlementapp.CreateDocumentCommand
		if !h.bindJSON(c, &cmd) {
			return
		}

		doc, err := h.service.CreateDocument(c.Request.Context(), ownerID, docType, cmd)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Created(c, doc)
	}
}

// Get returns the handler for GET /{type}/:id
func (h *DocumentHandler) Get(docType settlement.DocumentType) gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID, id, ok := h.ownerAndID(c)
		if !ok {
			return
		}

		doc, err := h.service.GetDocument(c.Request.Context(), ownerID, docType, id)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, doc)
	}
}

// ListPayments returns the handler for GET /{type}/:id/payments
func (h *DocumentHandler) ListPayments(docType settlement.DocumentType) gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID, id, ok := h.ownerAndID(c)
		if !ok {
			return
		}

		entries, err := h.service.ListPayments(c.Request.Context(), ownerID, docType, id)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, entries)
	}
}

// IssueQuotation handles POST /quotations/:id/issue
func (h *DocumentHandler) IssueQuotation(c *gin.Context) {
	ownerID, id, ok := h.ownerAndID(c)
	if !ok {
		return
	}

	doc, err := h.service.IssueQuotation(c.Request.Context(), ownerID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, doc)
}

// UpdateQuotationItems handles PUT /quotations/:id/items
func (h *DocumentHandler) UpdateQuotationItems(c *gin.Context) {
	ownerID, id, ok := h.ownerAndID(c)
	if !ok {
		return
	}

	var lines settlementapp.LinesInput
	if !h.bindJSON(c, &lines) {
		return
	}

	doc, err := h.service.UpdateQuotationItems(c.Request.Context(), ownerID, id, lines)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, doc)
}

// CreateInvoice handles POST /invoices
func (h *DocumentHandler) CreateInvoice(c *gin.Context) {
	ownerID, ok := h.requireOwner(c)
	if !ok {
		return
	}

	var cmd settlementapp.CreateInvoiceCommand
	if !h.bindJSON(c, &cmd) {
		return
	}

	inv, err := h.service.CreateInvoice(c.Request.Context(), ownerID, cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, inv)
}

// ConvertInvoice handles POST /invoices/:id/convert
func (h *DocumentHandler) ConvertInvoice(c *gin.Context) {
	ownerID, id, ok := h.ownerAndID(c)
	if !ok {
		return
	}

	result, err := h.service.ConvertInvoiceToSale(c.Request.Context(), ownerID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}
