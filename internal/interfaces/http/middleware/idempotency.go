package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/bookkeeper/backend/internal/domain/shared"
	"github.com/bookkeeper/backend/internal/infrastructure/logger"
	"github.com/bookkeeper/backend/internal/infrastructure/telemetry"
	"github.com/bookkeeper/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// IdempotencyKeyHeader is the request header carrying the client key
const IdempotencyKeyHeader = "Idempotency-Key"

// MaxIdempotencyKeyLength caps client keys
const MaxIdempotencyKeyLength = 255

// IdempotencyConfig configures the Idempotency-Key middleware
type IdempotencyConfig struct {
	Store   shared.IdempotencyStore
	TTL     time.Duration
	Metrics *telemetry.SettlementMetrics
	Logger  *zap.Logger
}

// Idempotency claims the Idempotency-Key of a request before the handler
// runs. A key already claimed for the same owner and path is rejected with
// 409 DUPLICATE_REQUEST. Failed requests release their claim so the client
// can retry with the same key. Requests without the header pass through.
func Idempotency(cfg IdempotencyConfig) gin.HandlerFunc {
	if cfg.TTL <= 0 {
		cfg.TTL = shared.DefaultIdempotencyConfig().TTL
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		clientKey := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
		if clientKey == "" || cfg.Store == nil {
			c.Next()
			return
		}
		if len(clientKey) > MaxIdempotencyKeyLength {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewValidationErrorResponse(
				"Request validation failed",
				GetRequestID(c),
				[]dto.ValidationDetail{{Field: IdempotencyKeyHeader, Message: "Must be at most 255 characters"}},
			))
			return
		}

		ctx := c.Request.Context()
		key := idempotencyKey(c, clientKey)

		claimed, err := cfg.Store.MarkProcessed(ctx, key, cfg.TTL)
		if err != nil {
			// fail open; the ledger writer still guards the document
			logger.WithLogger(ctx, log).Warn("Idempotency store unavailable, processing request",
				zap.String("idempotency_key", clientKey),
				zap.Error(err),
			)
			c.Next()
			return
		}
		if !claimed {
			if cfg.Metrics != nil {
				cfg.Metrics.RecordIdempotentReplay(ctx, c.FullPath())
			}
			logger.WithLogger(ctx, log).Info("Duplicate request rejected",
				zap.String("idempotency_key", clientKey),
			)
			c.AbortWithStatusJSON(http.StatusConflict, dto.NewErrorResponse(
				dto.ErrCodeDuplicateRequest,
				"A request with this Idempotency-Key was already processed",
				GetRequestID(c),
			))
			return
		}

		c.Next()

		if c.Writer.Status() >= http.StatusBadRequest {
			// the request context may already be cancelled
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := cfg.Store.Release(releaseCtx, key); err != nil {
				logger.WithLogger(ctx, log).Warn("Failed to release idempotency key",
					zap.String("idempotency_key", clientKey),
					zap.Error(err),
				)
			}
		}
	}
}

// idempotencyKey scopes a client key to the owner and the concrete path
func idempotencyKey(c *gin.Context, clientKey string) string {
	return "http:" + c.GetString(OwnerIDKey) + ":" + c.Request.Method + " " + c.Request.URL.Path + ":" + clientKey
}
