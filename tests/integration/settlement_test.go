//go:build integration

package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	partnerapp "github.com/bookkeeper/backend/internal/application/partner"
	settlementapp "github.com/bookkeeper/backend/internal/application/settlement"
	"github.com/bookkeeper/backend/internal/domain/settlement"
	"github.com/bookkeeper/backend/internal/domain/shared"
	"github.com/bookkeeper/backend/internal/infrastructure/event"
	"github.com/bookkeeper/backend/internal/infrastructure/persistence"
	"github.com/bookkeeper/backend/internal/infrastructure/persistence/models"
	"github.com/bookkeeper/backend/tests/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stack struct {
	db          *TestDB
	documents   *settlementapp.DocumentService
	settlements *settlementapp.SettlementService
	events      *testutil.EventRecorder
}

func newStack(t *testing.T) *stack {
	t.Helper()
	tdb := NewTestDB(t)
	log := zap.NewNop()

	bus := event.NewInMemoryEventBus(log)
	recorder := testutil.NewEventRecorder(
		settlement.EventTypeDocumentCreated,
		settlement.EventTypePaymentApplied,
		settlement.EventTypeRefundApplied,
		settlement.EventTypeRevenueRecognized,
		settlement.EventTypeInvoiceConverted,
	)
	bus.Subscribe(recorder)
	require.NoError(t, bus.Start(context.Background()))
	t.Cleanup(func() { _ = bus.Stop(context.Background()) })

	documents := settlementapp.NewDocumentService(
		persistence.NewGormDocumentRepository(tdb.DB),
		persistence.NewGormLedgerEntryRepository(tdb.DB),
		persistence.NewGormInvoiceRepository(tdb.DB),
		partnerapp.NewCustomerResolver(persistence.NewGormCustomerRepository(tdb.DB), log),
		nil,
		bus,
		log,
	)
	settlements := settlementapp.NewSettlementService(
		persistence.NewGormLedgerWriter(tdb.DB, 10*time.Second, log),
		nil,
		bus,
		nil,
		log,
	)
	return &stack{db: tdb, documents: documents, settlements: settlements, events: recorder}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (s *stack) count(t *testing.T, model any, where string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, s.db.DB.Model(model).Where(where, args...).Count(&n).Error)
	return n
}

func TestSaleSettlementLifecycle(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	ownerID := uuid.New()

	sale, err := s.documents.CreateDocument(ctx, ownerID, settlement.TypeSale, settlementapp.CreateDocumentCommand{
		CustomerFields: settlementapp.CustomerFields{CustomerName: "Ada", AddAsNewCustomer: true},
		LinesInput: settlementapp.LinesInput{
			Items: []settlementapp.LineItemInput{{Description: "Table", Quantity: dec("2"), UnitPrice: dec("150")}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, string(settlement.StatusUnpaid), sale.Status)
	assert.True(t, sale.TotalAmount.Equal(dec("300")))
	require.NotNil(t, sale.CustomerID)

	res, err := s.settlements.ApplyPayment(ctx, ownerID, settlement.TypeSale, sale.ID, settlementapp.PaymentCommand{
		Amount: dec("100"), PaymentMethod: string(settlement.PaymentMethodCash),
	})
	require.NoError(t, err)
	assert.Equal(t, string(settlement.StatusPartiallyPaid), res.Document.Status)
	assert.True(t, res.Document.Balance.Equal(dec("200")))

	_, err = s.settlements.ApplyPayment(ctx, ownerID, settlement.TypeSale, sale.ID, settlementapp.PaymentCommand{
		Amount: dec("250"), PaymentMethod: string(settlement.PaymentMethodCash),
	})
	require.Error(t, err)
	assert.Equal(t, settlement.CodeExceedsBalance, shared.CodeOf(err))

	res, err = s.settlements.ApplyPayment(ctx, ownerID, settlement.TypeSale, sale.ID, settlementapp.PaymentCommand{
		Amount: dec("200"), PaymentMethod: string(settlement.PaymentMethodBankTransfer),
	})
	require.NoError(t, err)
	assert.Equal(t, string(settlement.StatusPaid), res.Document.Status)

	res, err = s.settlements.ApplyRefund(ctx, ownerID, settlement.TypeSale, sale.ID, settlementapp.RefundCommand{
		RefundAmount: dec("50"), RefundReason: "scratched",
	})
	require.NoError(t, err)
	assert.Equal(t, string(settlement.StatusPartiallyRefunded), res.Document.Status)

	payments, err := s.documents.ListPayments(ctx, ownerID, settlement.TypeSale, sale.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 3)

	// Another owner sees nothing
	_, err = s.documents.GetDocument(ctx, uuid.New(), settlement.TypeSale, sale.ID)
	assert.True(t, shared.IsKind(err, shared.KindNotFound))

	testutil.WaitForEvents(t, s.events, settlement.EventTypePaymentApplied, 2, 5*time.Second)
	testutil.WaitForEvents(t, s.events, settlement.EventTypeRefundApplied, 1, 5*time.Second)
}

func TestConcurrentPaymentsNeverOverpay(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	ownerID := uuid.New()

	sale, err := s.documents.CreateDocument(ctx, ownerID, settlement.TypeSale, settlementapp.CreateDocumentCommand{
		TotalAmount: dec("100"),
	})
	require.NoError(t, err)

	const workers = 12
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		codes     = map[string]int{}
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := s.settlements.ApplyPayment(ctx, ownerID, settlement.TypeSale, sale.ID, settlementapp.PaymentCommand{
				Amount: dec("20"), PaymentMethod: string(settlement.PaymentMethodCash),
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
				return
			}
			codes[shared.CodeOf(err)]++
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	for code := range codes {
		assert.Contains(t, []string{settlement.CodeAlreadyFullyPaid, settlement.CodeExceedsBalance, shared.CodeConcurrencyConflict}, code)
	}

	doc, err := s.documents.GetDocument(ctx, ownerID, settlement.TypeSale, sale.ID)
	require.NoError(t, err)
	assert.True(t, doc.AmountPaid.Equal(dec("100")), "amount paid %s", doc.AmountPaid)
	assert.True(t, doc.Balance.IsZero())
	assert.Equal(t, string(settlement.StatusPaid), doc.Status)
	assert.EqualValues(t, 5, s.count(t, &models.LedgerEntryModel{}, "sale_id = ?", sale.ID))
}

func TestQuotationRevenueRecognizedOnce(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	ownerID := uuid.New()

	quote, err := s.documents.CreateDocument(ctx, ownerID, settlement.TypeQuotation, settlementapp.CreateDocumentCommand{
		LinesInput: settlementapp.LinesInput{
			Materials:   []settlementapp.LineItemInput{{Description: "Tiles", Quantity: dec("4"), UnitPrice: dec("20")}},
			Workmanship: dec("120"),
			IncludesVAT: true,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, string(settlement.StatusDraft), quote.Status)

	_, err = s.settlements.ApplyPayment(ctx, ownerID, settlement.TypeQuotation, quote.ID, settlementapp.PaymentCommand{
		Amount: dec("10"), PaymentMethod: string(settlement.PaymentMethodCash),
	})
	require.Error(t, err)
	assert.Equal(t, shared.CodeInvalidState, shared.CodeOf(err))

	_, err = s.documents.IssueQuotation(ctx, ownerID, quote.ID)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.settlements.ApplyPayment(ctx, ownerID, settlement.TypeQuotation, quote.ID, settlementapp.PaymentCommand{
				Amount: dec("50"), PaymentMethod: string(settlement.PaymentMethodMobileMoney),
			})
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, s.count(t, &models.IncomeModel{}, "source_id = ?", quote.ID))

	var income models.IncomeModel
	require.NoError(t, s.db.DB.Where("source_id = ?", quote.ID).First(&income).Error)
	assert.True(t, income.GrossAmount.Equal(dec("120")))
	assert.True(t, income.VATAmount.IsPositive())

	testutil.WaitForEvents(t, s.events, settlement.EventTypeRevenueRecognized, 1, 5*time.Second)
	assert.Equal(t, 1, s.events.Count(settlement.EventTypeRevenueRecognized))
}

func TestInvoiceConvertsToSaleOnce(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	ownerID := uuid.New()

	inv, err := s.documents.CreateInvoice(ctx, ownerID, settlementapp.CreateInvoiceCommand{
		CustomerFields: settlementapp.CustomerFields{CustomerName: "Grace"},
		TotalAmount:    dec("75"),
	})
	require.NoError(t, err)

	results := make(chan error, 3)
	for i := 0; i < 3; i++ {
		go func() {
			_, err := s.documents.ConvertInvoiceToSale(ctx, ownerID, inv.ID)
			results <- err
		}()
	}
	var ok int
	for i := 0; i < 3; i++ {
		if err := <-results; err == nil {
			ok++
		}
	}
	assert.Equal(t, 1, ok)
	assert.EqualValues(t, 1, s.count(t, &models.DocumentModel{}, "source_invoice_id = ?", inv.ID))
}
