package settlement

import (
	"context"

	"github.com/bookkeeper/backend/internal/domain/partner"
	"github.com/google/uuid"
)

// DocumentRepository persists monetary documents. It has no method that
// writes settlement totals; those go through LedgerWriter.
type DocumentRepository interface {
	// FindByIDForOwner loads a document with its ledger entries.
	// Returns DOCUMENT_NOT_FOUND when absent or owned by another account.
	FindByIDForOwner(ctx context.Context, ownerID, id uuid.UUID) (*Document, error)

	// ExistsByNumber reports whether an owner already uses number
	ExistsByNumber(ctx context.Context, ownerID uuid.UUID, number string) (bool, error)

	// Create inserts a new document. Returns numbering.ErrNumberTaken when
	// the owner already uses doc.Number.
	Create(ctx context.Context, doc *Document) error

	// CreateWithCustomer inserts a customer created for the document, when
	// non-nil, and the document in one transaction
	CreateWithCustomer(ctx context.Context, doc *Document, customer *partner.Customer) error

	// SaveWithLock updates non-settlement fields (lines, status on issue)
	// with an optimistic version check
	SaveWithLock(ctx context.Context, doc *Document) error
}

// LedgerEntryRepository reads ledger entries. Entries are inserted only by
// the LedgerWriter and never updated.
type LedgerEntryRepository interface {
	FindByDocument(ctx context.Context, ownerID uuid.UUID, payableType PayableType, documentID uuid.UUID) ([]LedgerEntry, error)
}

// IncomeRepository reads recognized income
type IncomeRepository interface {
	ExistsBySource(ctx context.Context, sourceType IncomeSourceType, sourceID uuid.UUID) (bool, error)
	FindBySource(ctx context.Context, ownerID uuid.UUID, sourceType IncomeSourceType, sourceID uuid.UUID) ([]Income, error)
}

// InvoiceRepository persists invoice drafts
type InvoiceRepository interface {
	FindByIDForOwner(ctx context.Context, ownerID, id uuid.UUID) (*Invoice, error)
	ExistsByNumber(ctx context.Context, ownerID uuid.UUID, number string) (bool, error)
	Create(ctx context.Context, inv *Invoice) error
	CreateWithCustomer(ctx context.Context, inv *Invoice, customer *partner.Customer) error
	// ConvertToSale saves the converted invoice and inserts the sale atomically
	ConvertToSale(ctx context.Context, inv *Invoice, sale *Document) error
}

// MutateFunc computes a plan from the freshly locked document
type MutateFunc func(doc *Document) (*Plan, error)

// CommitResult is what a successful settlement commit produced
type CommitResult struct {
	Document *Document
	Entry    *LedgerEntry
	// Income is non-nil only when this commit recognized revenue
	Income *Income
}

// LedgerWriter applies a settlement plan as one atomic unit: it re-reads the
// document inside the transaction, runs mutate against that fresh state,
// inserts the ledger entry, updates the document and recognizes revenue.
type LedgerWriter interface {
	Commit(ctx context.Context, ownerID, documentID uuid.UUID, mutate MutateFunc) (*CommitResult, error)
}
