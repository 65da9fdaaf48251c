package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/bookkeeper/backend/internal/domain/numbering"
	"github.com/bookkeeper/backend/internal/domain/partner"
	"github.com/bookkeeper/backend/internal/domain/settlement"
	"github.com/bookkeeper/backend/internal/domain/shared"
	"github.com/bookkeeper/backend/internal/domain/shared/valueobject"
	"github.com/bookkeeper/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 10, 15, 14, 30, 5, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestDocument(t *testing.T, ownerID uuid.UUID, docType settlement.DocumentType, number, total string) *settlement.Document {
	t.Helper()
	doc, err := settlement.NewDocument(settlement.NewDocumentParams{
		OwnerID:     ownerID,
		Type:        docType,
		Number:      number,
		TotalAmount: dec(total),
		IssueDate:   testNow,
	})
	require.NoError(t, err)
	return doc
}

func newTestQuotation(t *testing.T, ownerID uuid.UUID, draft bool) *settlement.Document {
	t.Helper()
	doc, err := settlement.NewDocument(settlement.NewDocumentParams{
		OwnerID:   ownerID,
		Type:      settlement.TypeQuotation,
		Number:    "QUO-20261015143005-0001",
		IssueDate: testNow,
		Customer:  settlement.CustomerRef{Name: "Ada Obi", Phone: "0803 000 0000"},
		Lines: settlement.Lines{
			Items:       []settlement.LineItem{settlement.NewLineItem("Tiles", dec("10"), dec("500"))},
			Workmanship: dec("5000"),
			IncludesVAT: true,
		},
		Draft: draft,
	})
	require.NoError(t, err)
	return doc
}

func TestGormDocumentRepository_CreateAndFind(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormDocumentRepository(db)
	ctx := context.Background()
	ownerID := uuid.New()

	doc := newTestQuotation(t, ownerID, false)
	require.NoError(t, repo.Create(ctx, doc))

	found, err := repo.FindByIDForOwner(ctx, ownerID, doc.ID)
	require.NoError(t, err)

	assert.Equal(t, settlement.TypeQuotation, found.Type)
	assert.Equal(t, doc.Number, found.Number)
	assert.Equal(t, valueobject.NGN, found.Currency)
	assert.Equal(t, "Ada Obi", found.Customer.Name)
	assert.False(t, found.Customer.IsBound())
	assert.True(t, valueobject.Equal(dec("10000"), found.TotalAmount))
	assert.True(t, valueobject.Equal(dec("10000"), found.Balance))
	assert.Equal(t, settlement.StatusUnpaid, found.Status)
	assert.Equal(t, 1, found.Version)
	require.Len(t, found.Lines.Items, 1)
	assert.Equal(t, "Tiles", found.Lines.Items[0].Description)
	assert.True(t, valueobject.Equal(dec("5000"), found.Lines.Workmanship))
	assert.True(t, found.Lines.IncludesVAT)
	assert.Empty(t, found.Payments)
}

func TestGormDocumentRepository_OwnerIsolation(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormDocumentRepository(db)
	ctx := context.Background()

	doc := newTestDocument(t, uuid.New(), settlement.TypeSale, "SAL-1", "100")
	require.NoError(t, repo.Create(ctx, doc))

	_, err := repo.FindByIDForOwner(ctx, uuid.New(), doc.ID)
	require.Error(t, err)
	assert.Equal(t, settlement.CodeDocumentNotFound, shared.CodeOf(err))
	assert.True(t, shared.IsKind(err, shared.KindNotFound))

	_, err = repo.FindByIDForOwner(ctx, doc.OwnerID, uuid.New())
	assert.True(t, shared.IsKind(err, shared.KindNotFound))
}

func TestGormDocumentRepository_ExistsByNumber(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormDocumentRepository(db)
	ctx := context.Background()
	ownerID := uuid.New()

	require.NoError(t, repo.Create(ctx, newTestDocument(t, ownerID, settlement.TypeSale, "SAL-1", "100")))

	exists, err := repo.ExistsByNumber(ctx, ownerID, "SAL-1")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByNumber(ctx, ownerID, "SAL-2")
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = repo.ExistsByNumber(ctx, uuid.New(), "SAL-1")
	require.NoError(t, err)
	assert.False(t, exists, "numbers are unique per owner")
}

func TestGormDocumentRepository_SaveWithLock(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormDocumentRepository(db)
	ctx := context.Background()
	ownerID := uuid.New()

	doc := newTestQuotation(t, ownerID, true)
	require.NoError(t, repo.Create(ctx, doc))

	stale, err := repo.FindByIDForOwner(ctx, ownerID, doc.ID)
	require.NoError(t, err)

	require.NoError(t, doc.Issue())
	require.NoError(t, repo.SaveWithLock(ctx, doc))

	found, err := repo.FindByIDForOwner(ctx, ownerID, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, settlement.StatusUnpaid, found.Status)
	assert.Equal(t, 2, found.Version)

	require.NoError(t, stale.ReplaceLines(settlement.Lines{Workmanship: dec("3000")}))
	err = repo.SaveWithLock(ctx, stale)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

	found, err = repo.FindByIDForOwner(ctx, ownerID, doc.ID)
	require.NoError(t, err)
	assert.True(t, valueobject.Equal(dec("10000"), found.TotalAmount), "stale write must not land")
}

func TestGormCustomerRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormCustomerRepository(db)
	ctx := context.Background()
	ownerID := uuid.New()

	first, err := partner.NewCustomer(ownerID, "Ada", "", "0803", partner.RoleBuyer)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, first))

	second, err := partner.NewCustomer(ownerID, "Ada", "ada@example.com", "", partner.RoleBuyer)
	require.NoError(t, err)
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	require.NoError(t, repo.Save(ctx, second))

	supplier, err := partner.NewCustomer(ownerID, "Ada", "", "", partner.RoleSupplier)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, supplier))

	found, err := repo.FindByIDForOwner(ctx, ownerID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "0803", found.Phone)

	_, err = repo.FindByIDForOwner(ctx, uuid.New(), first.ID)
	assert.True(t, shared.IsKind(err, shared.KindNotFound))

	buyers, err := repo.FindByOwnerNameRole(ctx, ownerID, "Ada", partner.RoleBuyer)
	require.NoError(t, err)
	require.Len(t, buyers, 2)
	assert.Equal(t, first.ID, buyers[0].ID)
	assert.Equal(t, second.ID, buyers[1].ID)
}

func TestGormInvoiceRepository_ConvertToSale(t *testing.T) {
	db := newTestDB(t)
	invoices := NewGormInvoiceRepository(db)
	documents := NewGormDocumentRepository(db)
	ctx := context.Background()
	ownerID := uuid.New()

	inv, err := settlement.NewInvoice(settlement.NewInvoiceParams{
		OwnerID:     ownerID,
		Number:      "INV-1",
		Customer:    settlement.CustomerRef{Name: "Ada"},
		TotalAmount: dec("2500"),
		IssueDate:   testNow,
	})
	require.NoError(t, err)
	require.NoError(t, invoices.Create(ctx, inv))

	exists, err := invoices.ExistsByNumber(ctx, ownerID, "INV-1")
	require.NoError(t, err)
	assert.True(t, exists)

	stale, err := invoices.FindByIDForOwner(ctx, ownerID, inv.ID)
	require.NoError(t, err)

	sale, err := inv.ConvertToSale("SAL-1")
	require.NoError(t, err)
	require.NoError(t, invoices.ConvertToSale(ctx, inv, sale))

	storedInv, err := invoices.FindByIDForOwner(ctx, ownerID, inv.ID)
	require.NoError(t, err)
	assert.True(t, storedInv.IsConverted())
	require.NotNil(t, storedInv.ConvertedSaleID)
	assert.Equal(t, sale.ID, *storedInv.ConvertedSaleID)

	storedSale, err := documents.FindByIDForOwner(ctx, ownerID, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, settlement.StatusUnpaid, storedSale.Status)
	assert.True(t, valueobject.Equal(dec("2500"), storedSale.TotalAmount))
	require.NotNil(t, storedSale.SourceInvoiceID)
	assert.Equal(t, inv.ID, *storedSale.SourceInvoiceID)

	// a second conversion from a stale copy loses the version check
	again, err := stale.ConvertToSale("SAL-2")
	require.NoError(t, err)
	err = invoices.ConvertToSale(ctx, stale, again)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

	exists, err = documents.ExistsByNumber(ctx, ownerID, "SAL-2")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = invoices.FindByIDForOwner(ctx, uuid.New(), inv.ID)
	assert.Equal(t, settlement.CodeInvoiceNotFound, shared.CodeOf(err))
}

func TestGormDocumentRepository_DuplicateNumber(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormDocumentRepository(db)
	ctx := context.Background()
	ownerID := uuid.New()

	require.NoError(t, repo.Create(ctx, newTestDocument(t, ownerID, settlement.TypeSale, "SAL-1", "100")))

	err := repo.Create(ctx, newTestDocument(t, ownerID, settlement.TypeSale, "SAL-1", "200"))
	assert.ErrorIs(t, err, numbering.ErrNumberTaken)
	assert.True(t, shared.IsKind(err, shared.KindConflict))

	require.NoError(t, repo.Create(ctx, newTestDocument(t, uuid.New(), settlement.TypeSale, "SAL-1", "300")))
}

func TestGormDocumentRepository_CreateWithCustomer(t *testing.T) {
	ctx := context.Background()

	countCustomers := func(t *testing.T, db *gorm.DB) int64 {
		t.Helper()
		var n int64
		require.NoError(t, db.Model(&models.CustomerModel{}).Count(&n).Error)
		return n
	}

	t.Run("stores both rows", func(t *testing.T) {
		db := newTestDB(t)
		repo := NewGormDocumentRepository(db)
		ownerID := uuid.New()
		buyer, err := partner.NewCustomer(ownerID, "Ada", "", "0803", partner.RoleBuyer)
		require.NoError(t, err)

		doc := newTestDocument(t, ownerID, settlement.TypeSale, "SAL-1", "100")
		doc.Customer = settlement.CustomerRef{CustomerID: &buyer.ID, Name: "Ada", Phone: "0803"}
		require.NoError(t, repo.CreateWithCustomer(ctx, doc, buyer))

		found, err := repo.FindByIDForOwner(ctx, ownerID, doc.ID)
		require.NoError(t, err)
		require.NotNil(t, found.Customer.CustomerID)
		assert.Equal(t, buyer.ID, *found.Customer.CustomerID)
		assert.EqualValues(t, 1, countCustomers(t, db))
	})

	t.Run("duplicate number rolls back the customer", func(t *testing.T) {
		db := newTestDB(t)
		repo := NewGormDocumentRepository(db)
		ownerID := uuid.New()
		require.NoError(t, repo.Create(ctx, newTestDocument(t, ownerID, settlement.TypeSale, "SAL-1", "100")))

		buyer, err := partner.NewCustomer(ownerID, "Ada", "", "", partner.RoleBuyer)
		require.NoError(t, err)
		doc := newTestDocument(t, ownerID, settlement.TypeSale, "SAL-1", "200")
		doc.Customer = settlement.CustomerRef{CustomerID: &buyer.ID, Name: "Ada"}

		err = repo.CreateWithCustomer(ctx, doc, buyer)
		assert.ErrorIs(t, err, numbering.ErrNumberTaken)
		assert.Zero(t, countCustomers(t, db))

		// the retry with a fresh number can reuse the same customer
		require.NoError(t, doc.Renumber("SAL-2"))
		require.NoError(t, repo.CreateWithCustomer(ctx, doc, buyer))
		assert.EqualValues(t, 1, countCustomers(t, db))
	})

	t.Run("nil customer", func(t *testing.T) {
		db := newTestDB(t)
		repo := NewGormDocumentRepository(db)
		ownerID := uuid.New()

		require.NoError(t, repo.CreateWithCustomer(ctx, newTestDocument(t, ownerID, settlement.TypeSale, "SAL-1", "100"), nil))
		exists, err := repo.ExistsByNumber(ctx, ownerID, "SAL-1")
		require.NoError(t, err)
		assert.True(t, exists)
		assert.Zero(t, countCustomers(t, db))
	})
}

func TestGormInvoiceRepository_DuplicateNumbers(t *testing.T) {
	db := newTestDB(t)
	invoices := NewGormInvoiceRepository(db)
	documents := NewGormDocumentRepository(db)
	ctx := context.Background()
	ownerID := uuid.New()

	newInvoice := func(number string) *settlement.Invoice {
		inv, err := settlement.NewInvoice(settlement.NewInvoiceParams{
			OwnerID:     ownerID,
			Number:      number,
			Customer:    settlement.CustomerRef{Name: "Ada"},
			TotalAmount: dec("2500"),
			IssueDate:   testNow,
		})
		require.NoError(t, err)
		return inv
	}

	inv := newInvoice("INV-1")
	require.NoError(t, invoices.Create(ctx, inv))

	client, err := partner.NewCustomer(ownerID, "Ada", "", "", partner.RoleBuyer)
	require.NoError(t, err)
	err = invoices.CreateWithCustomer(ctx, newInvoice("INV-1"), client)
	assert.ErrorIs(t, err, numbering.ErrNumberTaken)
	var customers int64
	require.NoError(t, db.Model(&models.CustomerModel{}).Count(&customers).Error)
	assert.Zero(t, customers)

	// a taken sale number leaves the invoice a draft
	require.NoError(t, documents.Create(ctx, newTestDocument(t, ownerID, settlement.TypeSale, "SAL-1", "100")))
	sale, err := inv.ConvertToSale("SAL-1")
	require.NoError(t, err)
	err = invoices.ConvertToSale(ctx, inv, sale)
	assert.ErrorIs(t, err, numbering.ErrNumberTaken)

	stored, err := invoices.FindByIDForOwner(ctx, ownerID, inv.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsConverted())
	assert.Equal(t, 1, stored.Version)
}
