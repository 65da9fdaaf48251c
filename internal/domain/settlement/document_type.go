package settlement

import (
	"github.com/bookkeeper/backend/internal/domain/numbering"
	"github.com/bookkeeper/backend/internal/domain/partner"
)

// DocumentType identifies which kind of monetary document is being settled
type DocumentType string

const (
	TypeSale      DocumentType = "SALE"
	TypePurchase  DocumentType = "PURCHASE"
	TypeQuotation DocumentType = "QUOTATION"
)

// AllDocumentTypes lists every settleable document type
var AllDocumentTypes = []DocumentType{TypeSale, TypePurchase, TypeQuotation}

// IsValid checks if the type is a known document type
func (t DocumentType) IsValid() bool {
	switch t {
	case TypeSale, TypePurchase, TypeQuotation:
		return true
	}
	return false
}

// String returns the string representation of DocumentType
func (t DocumentType) String() string {
	return string(t)
}

// NumberPrefix returns the prefix used for new document numbers
func (t DocumentType) NumberPrefix() string {
	switch t {
	case TypeSale:
		return numbering.PrefixSale
	case TypePurchase:
		return numbering.PrefixPurchase
	case TypeQuotation:
		return numbering.PrefixQuotation
	}
	return "DOC"
}

// CustomerRole is the role a counterparty plays on this document type
func (t DocumentType) CustomerRole() partner.Role {
	if t == TypePurchase {
		return partner.RoleSupplier
	}
	return partner.RoleBuyer
}

// PayableType maps the document type onto the ledger's foreign-key slot
func (t DocumentType) PayableType() PayableType {
	switch t {
	case TypeSale:
		return PayableSale
	case TypePurchase:
		return PayablePurchase
	case TypeQuotation:
		return PayableQuotation
	}
	return ""
}
