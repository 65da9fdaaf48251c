// Package numbering produces human-readable document numbers.
package numbering

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bookkeeper/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// MaxAttempts bounds how many candidates GenerateUnique tries before giving up
const MaxAttempts = 5

// CodeExhausted is returned when every candidate number collided
const CodeExhausted = "NUMBER_GENERATION_EXHAUSTED"

// CodeTaken marks an insert that lost the race for a number
const CodeTaken = "NUMBER_TAKEN"

// ErrNumberTaken is returned by an InsertFunc when storage rejected the
// number as already used by the owner
var ErrNumberTaken = shared.NewDomainErrorWithKind(shared.KindConflict, CodeTaken, "Document number is already in use")

// Document number prefixes
const (
	PrefixSale      = "SAL"
	PrefixPurchase  = "PUR"
	PrefixQuotation = "QUO"
	PrefixInvoice   = "INV"
)

const (
	timestampLayout = "20060102150405"
	ownerFragLen    = 4
	suffixLen       = 4
	// Crockford base32 without I, L, O, U
	suffixAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"
)

// ExistsFunc reports whether number is already taken for owner
type ExistsFunc func(ctx context.Context, number string) (bool, error)

// InsertFunc writes a new record under number
type InsertFunc func(ctx context.Context, number string) error

// Generator builds numbers of the form PREFIX-YYYYMMDDHHMMSS-OWNR-XXXX
type Generator struct {
	now    func() time.Time
	random func() [16]byte
}

// Option configures a Generator
type Option func(*Generator)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

// WithRandom overrides the random source used for the suffix
func WithRandom(random func() [16]byte) Option {
	return func(g *Generator) {
		g.random = random
	}
}

// NewGenerator creates a Generator using the wall clock and uuid v4 randomness
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		now:    time.Now,
		random: func() [16]byte { return uuid.New() },
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns one candidate number. It does not check uniqueness.
func (g *Generator) Generate(owner uuid.UUID, prefix string) string {
	ownerFrag := strings.ToUpper(strings.ReplaceAll(owner.String(), "-", ""))[:ownerFragLen]

	raw := g.random()
	suffix := make([]byte, suffixLen)
	for i := range suffix {
		suffix[i] = suffixAlphabet[int(raw[i])%len(suffixAlphabet)]
	}

	return fmt.Sprintf("%s-%s-%s-%s",
		strings.ToUpper(prefix),
		g.now().UTC().Format(timestampLayout),
		ownerFrag,
		string(suffix),
	)
}

// GenerateUnique generates candidates until exists reports one as free.
// Storage errors abort immediately. After MaxAttempts collisions it fails
// with NUMBER_GENERATION_EXHAUSTED.
func (g *Generator) GenerateUnique(ctx context.Context, owner uuid.UUID, prefix string, exists ExistsFunc) (string, error) {
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		candidate := g.Generate(owner, prefix)
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", shared.NewInfrastructureError(shared.CodeInternal, "failed to check document number", err)
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", exhausted(prefix)
}

// Claim inserts under first and, while the insert fails with ErrNumberTaken,
// retries with fresh candidates from GenerateUnique. At most MaxAttempts
// inserts are made. It returns the number the record was stored under.
func (g *Generator) Claim(ctx context.Context, owner uuid.UUID, prefix, first string, exists ExistsFunc, insert InsertFunc) (string, error) {
	number := first
	for attempt := 1; ; attempt++ {
		err := insert(ctx, number)
		if err == nil {
			return number, nil
		}
		if !errors.Is(err, ErrNumberTaken) {
			return "", err
		}
		if attempt >= MaxAttempts {
			return "", exhausted(prefix)
		}
		if number, err = g.GenerateUnique(ctx, owner, prefix, exists); err != nil {
			return "", err
		}
	}
}

func exhausted(prefix string) error {
	return shared.NewInfrastructureError(CodeExhausted,
		fmt.Sprintf("could not generate a unique %s number after %d attempts", prefix, MaxAttempts), nil)
}
