package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/bookkeeper/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// Pinger reports whether a dependency is reachable
type Pinger func(ctx context.Context) error

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Uptime   string `json:"uptime"`
	Database string `json:"database,omitempty"`
}

// SystemHandler serves liveness checks
type SystemHandler struct {
	BaseHandler
	version   string
	startTime time.Time
	dbPing    Pinger
}

// NewSystemHandler creates a new SystemHandler. dbPing may be nil.
func NewSystemHandler(version string, dbPing Pinger) *SystemHandler {
	return &SystemHandler{
		version:   version,
		startTime: time.Now(),
		dbPing:    dbPing,
	}
}

// Health handles GET /health. The database is pinged with a short timeout;
// an unreachable database reports 503.
func (h *SystemHandler) Health(c *gin.Context) {
	resp := HealthResponse{
		Status:  "ok",
		Version: h.version,
		Uptime:  time.Since(h.startTime).Round(time.Second).String(),
	}

	if h.dbPing != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.dbPing(ctx); err != nil {
			resp.Status = "unavailable"
			resp.Database = "unreachable"
			c.JSON(http.StatusServiceUnavailable, dto.Response{Success: false, Data: resp})
			return
		}
		resp.Database = "ok"
	}

	h.Success(c, resp)
}

// Ping handles GET /ping
func (h *SystemHandler) Ping(c *gin.Context) {
	h.Success(c, gin.H{"message": "pong"})
}
