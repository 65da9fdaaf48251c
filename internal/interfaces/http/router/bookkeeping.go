package router

import (
	"github.com/bookkeeper/backend/internal/domain/settlement"
	"github.com/bookkeeper/backend/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
)

// Handlers bundles the HTTP handlers mounted by Bookkeeping
type Handlers struct {
	Documents  *handler.DocumentHandler
	Settlement *handler.SettlementHandler
	System     *handler.SystemHandler
}

// Options configures route-level middleware. Nil entries are skipped.
type Options struct {
	// Idempotency guards commands that move money or create documents from
	// invoices
	Idempotency gin.HandlerFunc
}

// documentPrefixes maps each settleable type to its resource path
var documentPrefixes = []struct {
	docType settlement.DocumentType
	name    string
	prefix  string
}{
	{settlement.TypeSale, "sales", "/sales"},
	{settlement.TypePurchase, "purchases", "/purchases"},
	{settlement.TypeQuotation, "quotations", "/quotations"},
}

// Bookkeeping returns the route groups of the bookkeeping API
func Bookkeeping(h Handlers, opts Options) []*DomainGroup {
	groups := make([]*DomainGroup, 0, len(documentPrefixes)+2)

	for _, d := range documentPrefixes {
		g := NewDomainGroup(d.name, d.prefix)
		g.POST("", h.Documents.Create(d.docType))
		g.GET("/:id", h.Documents.Get(d.docType))
		g.GET("/:id/payments", h.Documents.ListPayments(d.docType))
		g.POST("/:id/payments", opts.Idempotency, h.Settlement.RecordPayment(d.docType))
		g.POST("/:id/refunds", opts.Idempotency, h.Settlement.RecordRefund(d.docType))

		if d.docType == settlement.TypeQuotation {
			g.POST("/:id/issue", h.Documents.IssueQuotation)
			g.PUT("/:id/items", h.Documents.UpdateQuotationItems)
		}
		groups = append(groups, g)
	}

	invoices := NewDomainGroup("invoices", "/invoices")
	invoices.POST("", h.Documents.CreateInvoice)
	invoices.POST("/:id/convert", opts.Idempotency, h.Documents.ConvertInvoice)
	groups = append(groups, invoices)

	if h.System != nil {
		system := NewDomainGroup("system", "")
		system.GET("/health", h.System.Health)
		system.GET("/ping", h.System.Ping)
		groups = append(groups, system)
	}

	return groups
}

// Registrars adapts groups for Router.Register
func Registrars(groups []*DomainGroup) []RouteRegistrar {
	out := make([]RouteRegistrar, len(groups))
	for i, g := range groups {
		out[i] = g
	}
	return out
}
