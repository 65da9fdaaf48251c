package settlement

import (
	"context"
	"strings"
	"time"

	partnerapp "github.com/bookkeeper/backend/internal/application/partner"
	"github.com/bookkeeper/backend/internal/domain/numbering"
	"github.com/bookkeeper/backend/internal/domain/partner"
	"github.com/bookkeeper/backend/internal/domain/settlement"
	"github.com/bookkeeper/backend/internal/domain/shared"
	"github.com/bookkeeper/backend/internal/domain/shared/valueobject"
	"github.com/bookkeeper/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CustomerResolver decides which customer row a document binds to. A
// customer it creates comes back unsaved and is stored with the document.
type CustomerResolver interface {
	Prepare(ctx context.Context, ownerID uuid.UUID, role partner.Role, input partnerapp.CustomerInput, addAsNew bool) (*partnerapp.Resolution, error)
}

// DocumentService creates and edits monetary documents and invoice drafts.
// It never touches settlement totals.
type DocumentService struct {
	docRepo     settlement.DocumentRepository
	entryRepo   settlement.LedgerEntryRepository
	invoiceRepo settlement.InvoiceRepository
	resolver    CustomerResolver
	numbers     *numbering.Generator
	publisher   shared.EventPublisher
	logger      *zap.Logger
	currency    valueobject.Currency
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(
	docRepo settlement.DocumentRepository,
	entryRepo settlement.LedgerEntryRepository,
	invoiceRepo settlement.InvoiceRepository,
	resolver CustomerResolver,
	numbers *numbering.Generator,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *DocumentService {
	if numbers == nil {
		numbers = numbering.NewGenerator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentService{
		docRepo:     docRepo,
		entryRepo:   entryRepo,
		invoiceRepo: invoiceRepo,
		resolver:    resolver,
		numbers:     numbers,
		publisher:   publisher,
		logger:      logger,
		currency:    valueobject.DefaultCurrency,
	}
}

// SetDefaultCurrency sets the currency used when a command names none
func (s *DocumentService) SetDefaultCurrency(c valueobject.Currency) {
	if c != "" {
		s.currency = c
	}
}

func (s *DocumentService) currencyOr(code string) valueobject.Currency {
	if c := strings.ToUpper(strings.TrimSpace(code)); c != "" {
		return valueobject.Currency(c)
	}
	return s.currency
}

// CreateDocument creates a sale, purchase or quotation. Quotations start as
// drafts unless cmd.Issue is set.
func (s *DocumentService) CreateDocument(ctx context.Context, ownerID uuid.UUID, docType settlement.DocumentType, cmd CreateDocumentCommand) (*DocumentResponse, error) {
	if ownerID == uuid.Nil {
		return nil, shared.ErrUnauthorized
	}
	if !docType.IsValid() {
		return nil, shared.NewDomainError("INVALID_DOCUMENT_TYPE", "Document type must be SALE, PURCHASE or QUOTATION")
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "document", "create",
		telemetry.WithAttribute(telemetry.SpanAttrOwnerID, ownerID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrDocumentType, docType.String()),
	)
	defer span.End()

	exists := func(c context.Context, n string) (bool, error) {
		return s.docRepo.ExistsByNumber(c, ownerID, n)
	}
	number, err := s.numbers.GenerateUnique(ctx, ownerID, docType.NumberPrefix(), exists)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	// Validated before the resolver is consulted.
	doc, err := settlement.NewDocument(settlement.NewDocumentParams{
		OwnerID:     ownerID,
		Type:        docType,
		Number:      number,
		Currency:    s.currencyOr(cmd.Currency),
		Customer:    textCustomer(cmd.CustomerFields),
		Lines:       cmd.LinesInput.ToDomain(),
		TotalAmount: cmd.TotalAmount,
		IssueDate:   dateOrZero(cmd.IssueDate),
		DueDate:     cmd.DueDate,
		Notes:       strings.TrimSpace(cmd.Notes),
		Draft:       !cmd.Issue,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	customer, newCustomer, err := s.resolveCustomer(ctx, ownerID, docType.CustomerRole(), cmd.CustomerFields)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	doc.Customer = customer

	_, err = s.numbers.Claim(ctx, ownerID, docType.NumberPrefix(), doc.Number, exists, func(c context.Context, n string) error {
		if n != doc.Number {
			if err := doc.Renumber(n); err != nil {
				return err
			}
		}
		return s.docRepo.CreateWithCustomer(c, doc, newCustomer)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.publishCreated(ctx, newCustomer, doc.GetDomainEvents())
	doc.ClearDomainEvents()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrDocumentID, doc.ID.String(),
		telemetry.SpanAttrDocumentNo, doc.Number,
		telemetry.SpanAttrStatus, doc.Status.String(),
	)
	s.logger.Info("Document created",
		zap.String("document_id", doc.ID.String()),
		zap.String("document_type", docType.String()),
		zap.String("number", doc.Number),
		zap.String("total_amount", doc.TotalAmount.StringFixed(2)),
	)

	resp := ToDocumentResponse(doc)
	return &resp, nil
}

// IssueQuotation moves a draft quotation to UNPAID so it can take payments
func (s *DocumentService) IssueQuotation(ctx context.Context, ownerID, id uuid.UUID) (*DocumentResponse, error) {
	doc, err := s.loadDocument(ctx, ownerID, settlement.TypeQuotation, id)
	if err != nil {
		return nil, err
	}
	if err := doc.Issue(); err != nil {
		return nil, err
	}
	if err := s.docRepo.SaveWithLock(ctx, doc); err != nil {
		return nil, err
	}
	publishEvents(ctx, s.publisher, s.logger, doc.GetDomainEvents())
	doc.ClearDomainEvents()

	resp := ToDocumentResponse(doc)
	return &resp, nil
}

// UpdateQuotationItems replaces a quotation's priced content while nothing
// has been paid on it
func (s *DocumentService) UpdateQuotationItems(ctx context.Context, ownerID, id uuid.UUID, lines LinesInput) (*DocumentResponse, error) {
	doc, err := s.loadDocument(ctx, ownerID, settlement.TypeQuotation, id)
	if err != nil {
		return nil, err
	}
	if err := doc.ReplaceLines(lines.ToDomain()); err != nil {
		return nil, err
	}
	if err := s.docRepo.SaveWithLock(ctx, doc); err != nil {
		return nil, err
	}
	resp := ToDocumentResponse(doc)
	return &resp, nil
}

// GetDocument returns a document with its payments newest first
func (s *DocumentService) GetDocument(ctx context.Context, ownerID uuid.UUID, docType settlement.DocumentType, id uuid.UUID) (*DocumentResponse, error) {
	doc, err := s.loadDocument(ctx, ownerID, docType, id)
	if err != nil {
		return nil, err
	}
	resp := ToDocumentResponse(doc)
	return &resp, nil
}

// ListPayments returns the ledger entries of a document
func (s *DocumentService) ListPayments(ctx context.Context, ownerID uuid.UUID, docType settlement.DocumentType, id uuid.UUID) ([]LedgerEntryResponse, error) {
	if _, err := s.loadDocument(ctx, ownerID, docType, id); err != nil {
		return nil, err
	}
	entries, err := s.entryRepo.FindByDocument(ctx, ownerID, docType.PayableType(), id)
	if err != nil {
		return nil, err
	}
	return ToLedgerEntryResponses(entries), nil
}

// CreateInvoice creates an invoice draft
func (s *DocumentService) CreateInvoice(ctx context.Context, ownerID uuid.UUID, cmd CreateInvoiceCommand) (*InvoiceResponse, error) {
	if ownerID == uuid.Nil {
		return nil, shared.ErrUnauthorized
	}
	exists := func(c context.Context, n string) (bool, error) {
		return s.invoiceRepo.ExistsByNumber(c, ownerID, n)
	}
	number, err := s.numbers.GenerateUnique(ctx, ownerID, numbering.PrefixInvoice, exists)
	if err != nil {
		return nil, err
	}

	inv, err := settlement.NewInvoice(settlement.NewInvoiceParams{
		OwnerID:     ownerID,
		Number:      number,
		Currency:    s.currencyOr(cmd.Currency),
		Customer:    textCustomer(cmd.CustomerFields),
		Lines:       cmd.LinesInput.ToDomain(),
		TotalAmount: cmd.TotalAmount,
		IssueDate:   dateOrZero(cmd.IssueDate),
		DueDate:     cmd.DueDate,
		Notes:       strings.TrimSpace(cmd.Notes),
	})
	if err != nil {
		return nil, err
	}

	customer, newCustomer, err := s.resolveCustomer(ctx, ownerID, partner.RoleBuyer, cmd.CustomerFields)
	if err != nil {
		return nil, err
	}
	inv.Customer = customer

	_, err = s.numbers.Claim(ctx, ownerID, numbering.PrefixInvoice, inv.Number, exists, func(c context.Context, n string) error {
		if n != inv.Number {
			if err := inv.Renumber(n); err != nil {
				return err
			}
		}
		return s.invoiceRepo.CreateWithCustomer(c, inv, newCustomer)
	})
	if err != nil {
		return nil, err
	}
	s.publishCreated(ctx, newCustomer, nil)
	resp := ToInvoiceResponse(inv)
	return &resp, nil
}

// ConvertInvoiceToSale creates an UNPAID sale from an invoice draft. An
// invoice converts at most once.
func (s *DocumentService) ConvertInvoiceToSale(ctx context.Context, ownerID, invoiceID uuid.UUID) (*ConversionResult, error) {
	if ownerID == uuid.Nil {
		return nil, shared.ErrUnauthorized
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "document", "convert_invoice",
		telemetry.WithAttribute(telemetry.SpanAttrOwnerID, ownerID.String()),
	)
	defer span.End()

	inv, err := s.invoiceRepo.FindByIDForOwner(ctx, ownerID, invoiceID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if inv.IsConverted() {
		err := shared.NewDomainError(shared.CodeInvalidState, "Invoice has already been converted to a sale")
		telemetry.RecordError(span, err)
		return nil, err
	}

	exists := func(c context.Context, n string) (bool, error) {
		return s.docRepo.ExistsByNumber(c, ownerID, n)
	}
	number, err := s.numbers.GenerateUnique(ctx, ownerID, numbering.PrefixSale, exists)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	sale, err := inv.ConvertToSale(number)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	_, err = s.numbers.Claim(ctx, ownerID, numbering.PrefixSale, sale.Number, exists, func(c context.Context, n string) error {
		if n != sale.Number {
			if err := inv.RenumberSale(sale, n); err != nil {
				return err
			}
		}
		return s.invoiceRepo.ConvertToSale(c, inv, sale)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	events := append(sale.GetDomainEvents(), inv.GetDomainEvents()...)
	publishEvents(ctx, s.publisher, s.logger, events)
	sale.ClearDomainEvents()
	inv.ClearDomainEvents()

	telemetry.SetAttributes(span, telemetry.SpanAttrDocumentID, sale.ID.String())
	s.logger.Info("Invoice converted to sale",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("sale_id", sale.ID.String()),
	)
	return &ConversionResult{
		Invoice: ToInvoiceResponse(inv),
		Sale:    ToDocumentResponse(sale),
	}, nil
}

func (s *DocumentService) loadDocument(ctx context.Context, ownerID uuid.UUID, docType settlement.DocumentType, id uuid.UUID) (*settlement.Document, error) {
	if ownerID == uuid.Nil {
		return nil, shared.ErrUnauthorized
	}
	doc, err := s.docRepo.FindByIDForOwner(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if doc.Type != docType {
		return nil, settlement.ErrDocumentNotFound(docType)
	}
	return doc, nil
}

func (s *DocumentService) resolveCustomer(ctx context.Context, ownerID uuid.UUID, role partner.Role, f CustomerFields) (settlement.CustomerRef, *partner.Customer, error) {
	if s.resolver == nil {
		return textCustomer(f), nil, nil
	}
	res, err := s.resolver.Prepare(ctx, ownerID, role, partnerapp.CustomerInput{
		ID:    f.CustomerID,
		Name:  f.CustomerName,
		Email: f.CustomerEmail,
		Phone: f.CustomerPhone,
	}, f.AddAsNewCustomer)
	if err != nil {
		return settlement.CustomerRef{}, nil, err
	}
	return settlement.CustomerRef{
		CustomerID: res.CustomerID,
		Name:       res.Name,
		Email:      res.Email,
		Phone:      res.Phone,
	}, res.NewCustomer, nil
}

// publishCreated publishes a stored customer's events ahead of the events of
// the document that references it
func (s *DocumentService) publishCreated(ctx context.Context, customer *partner.Customer, events []shared.DomainEvent) {
	if customer != nil {
		s.logger.Info("Customer created from document",
			zap.String("owner_id", customer.OwnerID.String()),
			zap.String("customer_id", customer.ID.String()),
			zap.String("role", string(customer.Role)),
		)
		events = append(customer.GetDomainEvents(), events...)
		customer.ClearDomainEvents()
	}
	publishEvents(ctx, s.publisher, s.logger, events)
}

func textCustomer(f CustomerFields) settlement.CustomerRef {
	return settlement.CustomerRef{
		Name:  strings.TrimSpace(f.CustomerName),
		Email: strings.TrimSpace(f.CustomerEmail),
		Phone: strings.TrimSpace(f.CustomerPhone),
	}
}

func dateOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}
