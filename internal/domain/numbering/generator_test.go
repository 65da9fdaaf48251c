package numbering

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/bookkeeper/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2026, 10, 15, 14, 30, 5, 0, time.UTC)

func fixedGenerator(seq ...byte) *Generator {
	i := 0
	return NewGenerator(
		WithClock(func() time.Time { return fixedTime }),
		WithRandom(func() [16]byte {
			var b [16]byte
			for j := range b {
				b[j] = seq[i%len(seq)]
			}
			i++
			return b
		}),
	)
}

func TestGenerator_Generate(t *testing.T) {
	owner := uuid.MustParse("ab12cd34-0000-4000-8000-000000000000")
	g := fixedGenerator(0, 10)

	assert.Equal(t, "SAL-20261015143005-AB12-0000", g.Generate(owner, PrefixSale))
	assert.Equal(t, "SAL-20261015143005-AB12-AAAA", g.Generate(owner, "sal"))
}

func TestGenerator_Generate_DefaultSources(t *testing.T) {
	g := NewGenerator()
	number := g.Generate(uuid.New(), PrefixQuotation)
	assert.Regexp(t, regexp.MustCompile(`^QUO-\d{14}-[0-9A-F]{4}-[0-9A-HJKMNP-TV-Z]{4}$`), number)
}

func TestGenerator_GenerateUnique(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()

	t.Run("returns first free candidate", func(t *testing.T) {
		g := fixedGenerator(1, 2, 3)
		calls := 0
		number, err := g.GenerateUnique(ctx, owner, PrefixPurchase, func(ctx context.Context, n string) (bool, error) {
			calls++
			return calls < 3, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
		assert.Contains(t, number, "-3333")
	})

	t.Run("fails after max attempts", func(t *testing.T) {
		g := fixedGenerator(7)
		calls := 0
		_, err := g.GenerateUnique(ctx, owner, PrefixSale, func(ctx context.Context, n string) (bool, error) {
			calls++
			return true, nil
		})
		require.Error(t, err)
		assert.Equal(t, MaxAttempts, calls)

		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, CodeExhausted, de.Code)
		assert.Equal(t, shared.KindInfrastructure, de.Kind)
	})

	t.Run("storage error aborts", func(t *testing.T) {
		g := NewGenerator()
		boom := errors.New("db down")
		_, err := g.GenerateUnique(ctx, owner, PrefixSale, func(ctx context.Context, n string) (bool, error) {
			return false, boom
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := NewGenerator().GenerateUnique(cctx, owner, PrefixSale, func(ctx context.Context, n string) (bool, error) {
			return false, nil
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestGenerator_Claim(t *testing.T) {
	ctx := context.Background()
	owner := uuid.MustParse("ab12cd34-0000-4000-8000-000000000000")
	free := func(ctx context.Context, n string) (bool, error) { return false, nil }

	t.Run("first number inserted", func(t *testing.T) {
		var inserted []string
		number, err := fixedGenerator(1).Claim(ctx, owner, PrefixSale, "SAL-FIRST", free, func(ctx context.Context, n string) error {
			inserted = append(inserted, n)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, "SAL-FIRST", number)
		assert.Equal(t, []string{"SAL-FIRST"}, inserted)
	})

	t.Run("insert collision retries with a fresh number", func(t *testing.T) {
		var inserted []string
		number, err := fixedGenerator(2).Claim(ctx, owner, PrefixSale, "SAL-FIRST", free, func(ctx context.Context, n string) error {
			inserted = append(inserted, n)
			if len(inserted) == 1 {
				return fmt.Errorf("insert document: %w", ErrNumberTaken)
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, "SAL-20261015143005-AB12-2222", number)
		assert.Equal(t, []string{"SAL-FIRST", "SAL-20261015143005-AB12-2222"}, inserted)
	})

	t.Run("every insert collides", func(t *testing.T) {
		inserts := 0
		_, err := fixedGenerator(3).Claim(ctx, owner, PrefixInvoice, "INV-FIRST", free, func(ctx context.Context, n string) error {
			inserts++
			return ErrNumberTaken
		})
		require.Error(t, err)
		assert.Equal(t, MaxAttempts, inserts)
		assert.Equal(t, CodeExhausted, shared.CodeOf(err))
		assert.NotErrorIs(t, err, ErrNumberTaken)
	})

	t.Run("other insert errors abort", func(t *testing.T) {
		boom := errors.New("connection reset")
		inserts := 0
		_, err := fixedGenerator(4).Claim(ctx, owner, PrefixSale, "SAL-FIRST", free, func(ctx context.Context, n string) error {
			inserts++
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, inserts)
	})
}
