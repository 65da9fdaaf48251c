package telemetry

import (
	"context"
	"sort"
	"strings"

	"github.com/grafana/pyroscope-go"
)

// Profiling label keys
const (
	ProfilingLabelOperation    = "operation"
	ProfilingLabelDocumentType = "document_type"
	ProfilingLabelRoute        = "route"
	ProfilingLabelMethod       = "method"
)

// MaxLabelValueLength caps label values
const MaxLabelValueLength = 128

// highCardinalityLabels are dropped from profiling labels; ids belong on spans.
var highCardinalityLabels = map[string]bool{
	"owner_id":    true,
	"document_id": true,
	"request_id":  true,
	"trace_id":    true,
	"span_id":     true,
}

// WithProfilingLabels runs fn with pprof labels attached via Pyroscope.
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	pairs := sanitizeLabels(labels)
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}

// SettlementLabels labels a payment or refund commit
func SettlementLabels(operation, documentType string) map[string]string {
	return map[string]string{
		ProfilingLabelOperation:    operation,
		ProfilingLabelDocumentType: documentType,
	}
}

// HTTPRequestLabels labels an HTTP handler invocation
func HTTPRequestLabels(route, method string) map[string]string {
	return map[string]string{
		ProfilingLabelRoute:  route,
		ProfilingLabelMethod: method,
	}
}

// sanitizeLabels returns sorted key/value pairs with empty, high-cardinality
// and malformed keys removed and long values truncated.
func sanitizeLabels(labels map[string]string) []string {
	if len(labels) == 0 {
		return nil
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(labels)*2)
	for _, k := range keys {
		v := labels[k]
		if v == "" || highCardinalityLabels[k] {
			continue
		}
		key := sanitizeLabelKey(k)
		if key == "" {
			continue
		}
		if len(v) > MaxLabelValueLength {
			v = v[:MaxLabelValueLength]
		}
		pairs = append(pairs, key, v)
	}
	return pairs
}

func sanitizeLabelKey(key string) string {
	key = strings.ToLower(key)
	var b strings.Builder
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '_':
			b.WriteByte(c)
		case c == ' ' || c == '-':
			b.WriteByte('_')
		}
	}
	return b.String()
}
