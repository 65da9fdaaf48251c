package settlement

import (
	"context"
	"sync"

	partnerapp "github.com/bookkeeper/backend/internal/application/partner"
	"github.com/bookkeeper/backend/internal/domain/partner"
	"github.com/bookkeeper/backend/internal/domain/settlement"
	"github.com/bookkeeper/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockDocumentRepository is a mock implementation of DocumentRepository
type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) FindByIDForOwner(ctx context.Context, ownerID, id uuid.UUID) (*settlement.Document, error) {
	args := m.Called(ctx, ownerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlement.Document), args.Error(1)
}

func (m *MockDocumentRepository) ExistsByNumber(ctx context.Context, ownerID uuid.UUID, number string) (bool, error) {
	args := m.Called(ctx, ownerID, number)
	return args.Bool(0), args.Error(1)
}

func (m *MockDocumentRepository) Create(ctx context.Context, doc *settlement.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockDocumentRepository) CreateWithCustomer(ctx context.Context, doc *settlement.Document, customer *partner.Customer) error {
	args := m.Called(ctx, doc, customer)
	return args.Error(0)
}

func (m *MockDocumentRepository) SaveWithLock(ctx context.Context, doc *settlement.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

// MockLedgerEntryRepository is a mock implementation of LedgerEntryRepository
type MockLedgerEntryRepository struct {
	mock.Mock
}

func (m *MockLedgerEntryRepository) FindByDocument(ctx context.Context, ownerID uuid.UUID, payableType settlement.PayableType, documentID uuid.UUID) ([]settlement.LedgerEntry, error) {
	args := m.Called(ctx, ownerID, payableType, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]settlement.LedgerEntry), args.Error(1)
}

// MockInvoiceRepository is a mock implementation of InvoiceRepository
type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) FindByIDForOwner(ctx context.Context, ownerID, id uuid.UUID) (*settlement.Invoice, error) {
	args := m.Called(ctx, ownerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlement.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) ExistsByNumber(ctx context.Context, ownerID uuid.UUID, number string) (bool, error) {
	args := m.Called(ctx, ownerID, number)
	return args.Bool(0), args.Error(1)
}

func (m *MockInvoiceRepository) Create(ctx context.Context, inv *settlement.Invoice) error {
	args := m.Called(ctx, inv)
	return args.Error(0)
}

func (m *MockInvoiceRepository) CreateWithCustomer(ctx context.Context, inv *settlement.Invoice, customer *partner.Customer) error {
	args := m.Called(ctx, inv, customer)
	return args.Error(0)
}

func (m *MockInvoiceRepository) ConvertToSale(ctx context.Context, inv *settlement.Invoice, sale *settlement.Document) error {
	args := m.Called(ctx, inv, sale)
	return args.Error(0)
}

// MockCustomerResolver is a mock implementation of CustomerResolver
type MockCustomerResolver struct {
	mock.Mock
}

func (m *MockCustomerResolver) Prepare(ctx context.Context, ownerID uuid.UUID, role partner.Role, input partnerapp.CustomerInput, addAsNew bool) (*partnerapp.Resolution, error) {
	args := m.Called(ctx, ownerID, role, input, addAsNew)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partnerapp.Resolution), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// MockLedgerWriter is a mock implementation of LedgerWriter
type MockLedgerWriter struct {
	mock.Mock
}

func (m *MockLedgerWriter) Commit(ctx context.Context, ownerID, documentID uuid.UUID, mutate settlement.MutateFunc) (*settlement.CommitResult, error) {
	args := m.Called(ctx, ownerID, documentID, mutate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlement.CommitResult), args.Error(1)
}

// memoryLedgerWriter applies plans to documents held in memory, with the
// same once-per-quotation revenue rule as the database writer.
type memoryLedgerWriter struct {
	mu      sync.Mutex
	docs    map[uuid.UUID]*settlement.Document
	incomes map[uuid.UUID]*settlement.Income
	commits int
}

func newMemoryLedgerWriter(docs ...*settlement.Document) *memoryLedgerWriter {
	w := &memoryLedgerWriter{
		docs:    make(map[uuid.UUID]*settlement.Document),
		incomes: make(map[uuid.UUID]*settlement.Income),
	}
	for _, d := range docs {
		d.ClearDomainEvents()
		w.docs[d.ID] = d
	}
	return w
}

func (w *memoryLedgerWriter) Commit(_ context.Context, ownerID, documentID uuid.UUID, mutate settlement.MutateFunc) (*settlement.CommitResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.commits++

	doc, ok := w.docs[documentID]
	if !ok || !doc.BelongsTo(ownerID) {
		return nil, settlement.ErrDocumentNotFound("")
	}
	plan, err := mutate(doc)
	if err != nil {
		return nil, err
	}
	if err := plan.Apply(doc); err != nil {
		return nil, err
	}

	result := &settlement.CommitResult{Document: doc, Entry: plan.Entry}
	if plan.Revenue != nil {
		if _, exists := w.incomes[doc.ID]; !exists {
			w.incomes[doc.ID] = plan.Revenue
			result.Income = plan.Revenue
		}
	}
	return result, nil
}
