package telemetry

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// DBPoolMetrics samples database/sql pool statistics on an interval.
type DBPoolMetrics struct {
	connections    *Gauge
	connectionsMax *Gauge
	waitCount      *Gauge

	sqlDB    *sql.DB
	interval time.Duration
	logger   *zap.Logger
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewDBPoolMetrics registers pool gauges on meter.
func NewDBPoolMetrics(meter metric.Meter, sqlDB *sql.DB, interval time.Duration, logger *zap.Logger) (*DBPoolMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}

	m := &DBPoolMetrics{
		sqlDB:    sqlDB,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
	var err error
	if m.connections, err = NewGauge(meter, "db_pool_connections", "Connections in the pool by state", "{connection}"); err != nil {
		return nil, err
	}
	if m.connectionsMax, err = NewGauge(meter, "db_pool_connections_max", "Maximum open connections", "{connection}"); err != nil {
		return nil, err
	}
	if m.waitCount, err = NewGauge(meter, "db_pool_wait_count", "Total waits for a free connection", "{wait}"); err != nil {
		return nil, err
	}
	return m, nil
}

// Start samples until ctx is done or Stop is called.
func (m *DBPoolMetrics) Start(ctx context.Context) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		m.collect(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-m.stopCh:
				return
			case <-ticker.C:
				m.collect(ctx)
			}
		}
	}()
}

func (m *DBPoolMetrics) collect(ctx context.Context) {
	if m.sqlDB == nil {
		return
	}
	stats := m.sqlDB.Stats()
	m.connections.Record(ctx, int64(stats.InUse), AttrDBState.String("in_use"))
	m.connections.Record(ctx, int64(stats.Idle), AttrDBState.String("idle"))
	m.connectionsMax.Record(ctx, int64(stats.MaxOpenConnections))
	m.waitCount.Record(ctx, stats.WaitCount)
}

// Stop ends sampling. Safe to call more than once.
func (m *DBPoolMetrics) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
	m.wg.Wait()
}
