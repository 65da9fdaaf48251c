package settlement

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	partnerapp "github.com/bookkeeper/backend/internal/application/partner"
	"github.com/bookkeeper/backend/internal/domain/numbering"
	"github.com/bookkeeper/backend/internal/domain/partner"
	"github.com/bookkeeper/backend/internal/domain/settlement"
	"github.com/bookkeeper/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type documentServiceFixture struct {
	docs      *MockDocumentRepository
	entries   *MockLedgerEntryRepository
	invoices  *MockInvoiceRepository
	resolver  *MockCustomerResolver
	publisher *MockEventPublisher
	svc       *DocumentService
}

func newDocumentServiceFixture() *documentServiceFixture {
	f := &documentServiceFixture{
		docs:      new(MockDocumentRepository),
		entries:   new(MockLedgerEntryRepository),
		invoices:  new(MockInvoiceRepository),
		resolver:  new(MockCustomerResolver),
		publisher: new(MockEventPublisher),
	}
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil).Maybe()
	numbers := numbering.NewGenerator(numbering.WithClock(func() time.Time { return testNow }))
	f.svc = NewDocumentService(f.docs, f.entries, f.invoices, f.resolver, numbers, f.publisher, zap.NewNop())
	return f
}

func textResolution(name string) *partnerapp.Resolution {
	return &partnerapp.Resolution{Name: name}
}

func TestDocumentService_CreateDocument_QuotationStartsAsDraft(t *testing.T) {
	ctx := context.Background()
	ownerID := uuid.New()
	f := newDocumentServiceFixture()

	f.docs.On("ExistsByNumber", mock.Anything, ownerID, mock.AnythingOfType("string")).Return(false, nil).Once()
	f.resolver.On("Prepare", mock.Anything, ownerID, partner.RoleBuyer, partnerapp.CustomerInput{Name: "Ada"}, false).
		Return(textResolution("Ada"), nil)
	f.docs.On("CreateWithCustomer", mock.Anything, mock.AnythingOfType("*settlement.Document"), (*partner.Customer)(nil)).Return(nil)

	resp, err := f.svc.CreateDocument(ctx, ownerID, settlement.TypeQuotation, CreateDocumentCommand{
		CustomerFields: CustomerFields{CustomerName: "Ada"},
		LinesInput: LinesInput{
			Items:       []LineItemInput{{Description: "Tiles", Quantity: dec("3"), UnitPrice: dec("1500.163")}},
			Workmanship: dec("2000"),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "DRAFT", resp.Status)
	assert.True(t, strings.HasPrefix(resp.Number, "QUO-20261015143005-"))
	assert.True(t, resp.TotalAmount.Equal(dec("6500.48")))
	assert.True(t, resp.Balance.Equal(resp.TotalAmount))
	assert.Equal(t, "NGN", resp.Currency)
	assert.Equal(t, "Ada", resp.CustomerName)
	f.docs.AssertExpectations(t)
	f.resolver.AssertExpectations(t)
}

func TestDocumentService_CreateDocument_PurchaseBindsSupplier(t *testing.T) {
	ctx := context.Background()
	ownerID := uuid.New()
	f := newDocumentServiceFixture()
	f.svc.SetDefaultCurrency("USD")

	supplier, err := partner.NewCustomer(ownerID, "Acme", "", "0803", partner.RoleSupplier)
	require.NoError(t, err)
	customerID := supplier.ID

	f.docs.On("ExistsByNumber", mock.Anything, ownerID, mock.Anything).Return(false, nil)
	f.resolver.On("Prepare", mock.Anything, ownerID, partner.RoleSupplier, mock.Anything, true).
		Return(&partnerapp.Resolution{CustomerID: &customerID, Name: "Acme", Phone: "0803", NewCustomer: supplier}, nil)
	f.docs.On("CreateWithCustomer", mock.Anything, mock.AnythingOfType("*settlement.Document"), supplier).Return(nil).Once()

	resp, err := f.svc.CreateDocument(ctx, ownerID, settlement.TypePurchase, CreateDocumentCommand{
		CustomerFields: CustomerFields{CustomerName: "Acme", CustomerPhone: "0803", AddAsNewCustomer: true},
		TotalAmount:    dec("5000"),
	})
	require.NoError(t, err)
	assert.Equal(t, "UNPAID", resp.Status)
	assert.True(t, strings.HasPrefix(resp.Number, "PUR-"))
	assert.Equal(t, "USD", resp.Currency)
	require.NotNil(t, resp.CustomerID)
	assert.Equal(t, customerID, *resp.CustomerID)

	assert.Equal(t, []string{partner.EventTypeCustomerCreated, settlement.EventTypeDocumentCreated}, publishedTypes(t, f.publisher))
	f.docs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestDocumentService_CreateDocument_InvalidLinesSkipResolver(t *testing.T) {
	ownerID := uuid.New()
	f := newDocumentServiceFixture()
	f.docs.On("ExistsByNumber", mock.Anything, ownerID, mock.Anything).Return(false, nil)
	wrong := dec("999")

	_, err := f.svc.CreateDocument(context.Background(), ownerID, settlement.TypeSale, CreateDocumentCommand{
		CustomerFields: CustomerFields{CustomerName: "Ada", AddAsNewCustomer: true},
		LinesInput: LinesInput{
			Items: []LineItemInput{{Description: "Chair", Quantity: dec("2"), UnitPrice: dec("100"), Total: &wrong}},
		},
	})
	assert.Equal(t, "INVALID_LINE_TOTAL", shared.CodeOf(err))
	assert.True(t, shared.IsKind(err, shared.KindValidation))
	f.resolver.AssertNotCalled(t, "Prepare", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.docs.AssertNotCalled(t, "CreateWithCustomer", mock.Anything, mock.Anything, mock.Anything)
}

func TestDocumentService_CreateDocument_NumberExhausted(t *testing.T) {
	ownerID := uuid.New()
	f := newDocumentServiceFixture()
	f.docs.On("ExistsByNumber", mock.Anything, ownerID, mock.Anything).Return(true, nil)

	_, err := f.svc.CreateDocument(context.Background(), ownerID, settlement.TypeSale, CreateDocumentCommand{TotalAmount: dec("10")})
	assert.Equal(t, numbering.CodeExhausted, shared.CodeOf(err))
	f.docs.AssertNumberOfCalls(t, "ExistsByNumber", numbering.MaxAttempts)
}

func TestDocumentService_CreateDocument_InsertCollisionRetries(t *testing.T) {
	ownerID := uuid.New()
	f := newDocumentServiceFixture()
	buyer, err := partner.NewCustomer(ownerID, "Ada", "", "0800 000 0001", partner.RoleBuyer)
	require.NoError(t, err)
	buyerID := buyer.ID

	f.docs.On("ExistsByNumber", mock.Anything, ownerID, mock.Anything).Return(false, nil)
	f.resolver.On("Prepare", mock.Anything, ownerID, partner.RoleBuyer, mock.Anything, true).
		Return(&partnerapp.Resolution{CustomerID: &buyerID, Name: "Ada", Phone: "0800 000 0001", NewCustomer: buyer}, nil).Once()

	var attempted []string
	f.docs.On("CreateWithCustomer", mock.Anything, mock.AnythingOfType("*settlement.Document"), buyer).
		Run(func(args mock.Arguments) { attempted = append(attempted, args.Get(1).(*settlement.Document).Number) }).
		Return(numbering.ErrNumberTaken).Once()
	f.docs.On("CreateWithCustomer", mock.Anything, mock.AnythingOfType("*settlement.Document"), buyer).
		Run(func(args mock.Arguments) { attempted = append(attempted, args.Get(1).(*settlement.Document).Number) }).
		Return(nil).Once()

	resp, err := f.svc.CreateDocument(context.Background(), ownerID, settlement.TypeSale, CreateDocumentCommand{
		CustomerFields: CustomerFields{CustomerName: "Ada", CustomerPhone: "0800 000 0001", AddAsNewCustomer: true},
		TotalAmount:    dec("250"),
	})
	require.NoError(t, err)
	require.Len(t, attempted, 2)
	assert.NotEqual(t, attempted[0], attempted[1])
	assert.Equal(t, attempted[1], resp.Number)
	assert.Equal(t, buyerID, *resp.CustomerID)
	f.resolver.AssertNumberOfCalls(t, "Prepare", 1)

	var created *settlement.DocumentCreatedEvent
	for _, call := range f.publisher.Calls {
		for _, e := range call.Arguments.Get(1).([]shared.DomainEvent) {
			if ev, ok := e.(*settlement.DocumentCreatedEvent); ok {
				created = ev
			}
		}
	}
	require.NotNil(t, created)
	assert.Equal(t, resp.Number, created.Number)
}

func TestDocumentService_CreateDocument_FailedInsertPublishesNothing(t *testing.T) {
	ownerID := uuid.New()
	f := newDocumentServiceFixture()
	buyer, err := partner.NewCustomer(ownerID, "Ada", "", "", partner.RoleBuyer)
	require.NoError(t, err)
	buyerID := buyer.ID

	f.docs.On("ExistsByNumber", mock.Anything, ownerID, mock.Anything).Return(false, nil)
	f.resolver.On("Prepare", mock.Anything, ownerID, partner.RoleBuyer, mock.Anything, true).
		Return(&partnerapp.Resolution{CustomerID: &buyerID, Name: "Ada", NewCustomer: buyer}, nil)
	f.docs.On("CreateWithCustomer", mock.Anything, mock.Anything, buyer).
		Return(settlement.ErrStorage(errors.New("connection reset")))

	_, err = f.svc.CreateDocument(context.Background(), ownerID, settlement.TypeSale, CreateDocumentCommand{
		CustomerFields: CustomerFields{CustomerName: "Ada", AddAsNewCustomer: true},
		TotalAmount:    dec("250"),
	})
	assert.True(t, shared.IsKind(err, shared.KindInfrastructure))
	f.docs.AssertNumberOfCalls(t, "CreateWithCustomer", 1)
	assert.Empty(t, publishedTypes(t, f.publisher))
}

func TestDocumentService_CreateDocument_Rejections(t *testing.T) {
	f := newDocumentServiceFixture()

	_, err := f.svc.CreateDocument(context.Background(), uuid.Nil, settlement.TypeSale, CreateDocumentCommand{})
	assert.True(t, shared.IsKind(err, shared.KindUnauthorized))

	_, err = f.svc.CreateDocument(context.Background(), uuid.New(), settlement.DocumentType("INVOICE"), CreateDocumentCommand{})
	assert.True(t, shared.IsKind(err, shared.KindValidation))
}

func TestDocumentService_IssueQuotation(t *testing.T) {
	ctx := context.Background()
	ownerID := uuid.New()
	f := newDocumentServiceFixture()

	quote, err := settlement.NewDocument(settlement.NewDocumentParams{
		OwnerID: ownerID, Type: settlement.TypeQuotation, Number: "QUO-1", TotalAmount: dec("100"), Draft: true,
	})
	require.NoError(t, err)
	quote.ClearDomainEvents()

	f.docs.On("FindByIDForOwner", ctx, ownerID, quote.ID).Return(quote, nil)
	f.docs.On("SaveWithLock", ctx, quote).Return(nil).Once()

	resp, err := f.svc.IssueQuotation(ctx, ownerID, quote.ID)
	require.NoError(t, err)
	assert.Equal(t, "UNPAID", resp.Status)
	assert.Equal(t, 2, resp.Version)
	assert.Equal(t, []string{settlement.EventTypeQuotationIssued}, publishedTypes(t, f.publisher))

	_, err = f.svc.IssueQuotation(ctx, ownerID, quote.ID)
	assert.Equal(t, shared.CodeInvalidState, shared.CodeOf(err))
	f.docs.AssertNumberOfCalls(t, "SaveWithLock", 1)
}

func TestDocumentService_IssueQuotation_OnSaleIsNotFound(t *testing.T) {
	ctx := context.Background()
	ownerID := uuid.New()
	f := newDocumentServiceFixture()
	sale := newSettlementDoc(t, ownerID, settlement.TypeSale, "100")
	f.docs.On("FindByIDForOwner", ctx, ownerID, sale.ID).Return(sale, nil)

	_, err := f.svc.IssueQuotation(ctx, ownerID, sale.ID)
	assert.Equal(t, settlement.CodeDocumentNotFound, shared.CodeOf(err))
}

func TestDocumentService_UpdateQuotationItems(t *testing.T) {
	ctx := context.Background()
	ownerID := uuid.New()
	f := newDocumentServiceFixture()
	quote := newWorkmanshipQuotation(t, ownerID)

	f.docs.On("FindByIDForOwner", ctx, ownerID, quote.ID).Return(quote, nil)
	f.docs.On("SaveWithLock", ctx, quote).Return(nil)

	resp, err := f.svc.UpdateQuotationItems(ctx, ownerID, quote.ID, LinesInput{
		Items:       []LineItemInput{{Description: "Tiles", Quantity: dec("4"), UnitPrice: dec("500")}},
		Workmanship: dec("1000"),
	})
	require.NoError(t, err)
	assert.True(t, resp.TotalAmount.Equal(dec("3000")))
	assert.True(t, resp.Balance.Equal(dec("3000")))

	plan, err := settlement.NewEngine().ApplyPayment(quote, settlement.PaymentInstruction{Amount: dec("100"), Method: settlement.PaymentMethodCash})
	require.NoError(t, err)
	require.NoError(t, plan.Apply(quote))

	_, err = f.svc.UpdateQuotationItems(ctx, ownerID, quote.ID, LinesInput{Workmanship: dec("1")})
	assert.Equal(t, shared.CodeInvalidState, shared.CodeOf(err))
	f.docs.AssertNumberOfCalls(t, "SaveWithLock", 1)
}

func TestDocumentService_GetDocumentAndPayments(t *testing.T) {
	ctx := context.Background()
	ownerID := uuid.New()
	f := newDocumentServiceFixture()
	sale := newSettlementDoc(t, ownerID, settlement.TypeSale, "100")

	engine := settlement.NewEngine()
	for _, day := range []int{1, 3, 2} {
		date := time.Date(2026, 10, day, 0, 0, 0, 0, time.UTC)
		plan, err := engine.ApplyPayment(sale, settlement.PaymentInstruction{Amount: dec("10"), Method: settlement.PaymentMethodCash, Date: &date})
		require.NoError(t, err)
		require.NoError(t, plan.Apply(sale))
	}

	f.docs.On("FindByIDForOwner", ctx, ownerID, sale.ID).Return(sale, nil)
	f.entries.On("FindByDocument", ctx, ownerID, settlement.PayableSale, sale.ID).Return(sale.PaymentsNewestFirst(), nil)

	resp, err := f.svc.GetDocument(ctx, ownerID, settlement.TypeSale, sale.ID)
	require.NoError(t, err)
	require.Len(t, resp.Payments, 3)
	assert.Equal(t, 3, resp.Payments[0].PaymentDate.Day())
	assert.Equal(t, 1, resp.Payments[2].PaymentDate.Day())

	payments, err := f.svc.ListPayments(ctx, ownerID, settlement.TypeSale, sale.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 3)

	_, err = f.svc.ListPayments(ctx, ownerID, settlement.TypeQuotation, sale.ID)
	assert.True(t, shared.IsKind(err, shared.KindNotFound))
}

func TestDocumentService_ConvertInvoiceToSale(t *testing.T) {
	ctx := context.Background()
	ownerID := uuid.New()
	customerID := uuid.New()
	f := newDocumentServiceFixture()

	f.invoices.On("ExistsByNumber", mock.Anything, ownerID, mock.Anything).Return(false, nil)
	f.resolver.On("Prepare", mock.Anything, ownerID, partner.RoleBuyer, mock.Anything, false).
		Return(&partnerapp.Resolution{CustomerID: &customerID, Name: "Ada"}, nil)

	var created *settlement.Invoice
	f.invoices.On("CreateWithCustomer", mock.Anything, mock.AnythingOfType("*settlement.Invoice"), (*partner.Customer)(nil)).
		Run(func(args mock.Arguments) { created = args.Get(1).(*settlement.Invoice) }).
		Return(nil)

	inv, err := f.svc.CreateInvoice(ctx, ownerID, CreateInvoiceCommand{
		CustomerFields: CustomerFields{CustomerID: &customerID},
		LinesInput: LinesInput{
			Items: []LineItemInput{{Description: "Consulting", Quantity: dec("2"), UnitPrice: dec("750")}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "DRAFT", inv.Status)
	assert.True(t, strings.HasPrefix(inv.Number, "INV-"))
	require.NotNil(t, created)

	f.invoices.On("FindByIDForOwner", mock.Anything, ownerID, created.ID).Return(created, nil)
	f.docs.On("ExistsByNumber", mock.Anything, ownerID, mock.Anything).Return(false, nil)
	f.invoices.On("ConvertToSale", mock.Anything, created, mock.AnythingOfType("*settlement.Document")).Return(nil).Once()

	result, err := f.svc.ConvertInvoiceToSale(ctx, ownerID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "CONVERTED", result.Invoice.Status)
	assert.Equal(t, "SALE", result.Sale.Type)
	assert.Equal(t, "UNPAID", result.Sale.Status)
	assert.True(t, result.Sale.TotalAmount.Equal(dec("1500")))
	require.NotNil(t, result.Sale.SourceInvoiceID)
	assert.Equal(t, created.ID, *result.Sale.SourceInvoiceID)
	require.NotNil(t, result.Invoice.ConvertedSaleID)
	assert.Equal(t, result.Sale.ID, *result.Invoice.ConvertedSaleID)
	assert.Equal(t, customerID, *result.Sale.CustomerID)
	assert.Contains(t, publishedTypes(t, f.publisher), settlement.EventTypeInvoiceConverted)

	_, err = f.svc.ConvertInvoiceToSale(ctx, ownerID, created.ID)
	assert.Equal(t, shared.CodeInvalidState, shared.CodeOf(err))
	f.invoices.AssertNumberOfCalls(t, "ConvertToSale", 1)
}

func TestDocumentService_ConvertInvoice_NotFound(t *testing.T) {
	ctx := context.Background()
	ownerID := uuid.New()
	id := uuid.New()
	f := newDocumentServiceFixture()
	f.invoices.On("FindByIDForOwner", mock.Anything, ownerID, id).Return(nil, settlement.ErrInvoiceNotFound())

	_, err := f.svc.ConvertInvoiceToSale(ctx, ownerID, id)
	assert.True(t, shared.IsKind(err, shared.KindNotFound))
}
