// Package database owns the lifecycle of the pooled MySQL connection.
// The Pool is the single point of truth for whether the store is usable
// right now; every consumer goes through Acquire.
package database

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/iliyamo/retail-pos-core/internal/config"
	"github.com/iliyamo/retail-pos-core/internal/fault"
	"github.com/iliyamo/retail-pos-core/internal/health"
	"github.com/iliyamo/retail-pos-core/internal/resilience"
)

// State is the pool lifecycle state.
type State int32

const (
	StateUninitialized State = iota
	StateConnecting
	StateReady
	StateFailed
)

// String returns the state name used in logs and errors.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "invalid"
	}
}

// ErrNotReady is returned by Acquire when the pool is not Ready. Callers
// must check readiness rather than block; there is no queuing at this
// layer.
var ErrNotReady = fault.New(fault.KindConnectivity, "connection pool is not ready")

// Pool manages the pooled backend connection behind a small state
// machine: Uninitialized -> Connecting -> {Ready | Failed}. Initialize is
// idempotent when Ready and re-attempts from scratch when Failed. The
// pool never retries in the background; retries happen only inside the
// bounded attempt sequence run synchronously by Initialize.
type Pool struct {
	cfg     config.ConnectionConfig
	monitor *health.Monitor
	logger  *zap.Logger

	// open is the driver entry point, replaceable in tests.
	open func(dsn string) (*sql.DB, error)

	mu    sync.Mutex
	state State
	db    *sql.DB
}

// New builds a pool in the Uninitialized state. Nothing touches the
// network until Initialize.
func New(cfg config.ConnectionConfig, monitor *health.Monitor, logger *zap.Logger) *Pool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		cfg:     cfg,
		monitor: monitor,
		logger:  logger,
		open: func(dsn string) (*sql.DB, error) {
			return sql.Open("mysql", dsn)
		},
	}
}

// NewWithDB wraps an already-open handle in a Ready pool. Intended for
// tests that stub the driver.
func NewWithDB(db *sql.DB) *Pool {
	return &Pool{
		cfg: config.ConnectionConfig{
			ConnectTimeout: 5 * time.Second,
			RequestTimeout: 5 * time.Second,
		},
		monitor: health.NewMonitor(),
		logger:  zap.NewNop(),
		state:   StateReady,
		db:      db,
	}
}

// Initialize validates the configuration, connects inside the retry
// policy and classifies an initial liveness probe. An Unhealthy initial
// probe is a failed initialization: the pool is torn down, not left
// half-open.
func (p *Pool) Initialize(ctx context.Context) error {
	p.mu.Lock()
	switch p.state {
	case StateReady:
		p.mu.Unlock()
		return nil
	case StateConnecting:
		p.mu.Unlock()
		return fault.New(fault.KindConnectivity, "initialization already in progress")
	}
	p.state = StateConnecting
	p.mu.Unlock()

	// Invalid configuration is a deployment error: fail immediately, no
	// retry.
	if err := p.cfg.Validate(); err != nil {
		p.fail(nil)
		return err
	}

	dsn := p.dsn()
	p.logger.Info("connecting to backend",
		zap.String("addr", p.cfg.Addr()),
		zap.String("database", p.cfg.Database),
		zap.String("auth_mode", string(p.cfg.CredentialMode)))

	opts := resilience.Options{
		MaxAttempts: p.cfg.RetryAttempts,
		BaseDelay:   p.cfg.RetryDelay,
		Jitter:      true,
	}
	db, err := resilience.Do(ctx, opts, p.logger, func(ctx context.Context) (*sql.DB, error) {
		return p.connect(ctx, dsn)
	})
	if err != nil {
		p.fail(nil)
		return err
	}

	// Lightweight liveness probe; its classification seeds the monitor.
	snap := probe(ctx, db, p.cfg.ConnectTimeout)
	p.monitor.RecordProbe(snap)
	if snap.Status == health.StatusUnhealthy {
		p.fail(db)
		return fault.Wrap(fault.KindConnectivity, "initial health probe unhealthy", snap.Err)
	}
	if snap.Status == health.StatusDegraded {
		p.logger.Warn("backend responding slowly",
			zap.Duration("probe_latency", snap.Latency))
	}

	p.mu.Lock()
	p.state = StateReady
	p.db = db
	p.mu.Unlock()
	p.logger.Info("connection pool ready", zap.Duration("probe_latency", snap.Latency))
	return nil
}

// connect opens and pings one candidate connection. Partially-open
// resources are released before the error propagates so a failed attempt
// leaks nothing into the next one.
func (p *Pool) connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := p.open(dsn)
	if err != nil {
		return nil, resilience.ClassifyConnect(err)
	}
	db.SetMaxOpenConns(p.cfg.PoolMax)
	db.SetMaxIdleConns(p.cfg.PoolMin)
	db.SetConnMaxIdleTime(p.cfg.PoolIdleTime)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, p.cfg.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, resilience.ClassifyConnect(err)
	}
	return db, nil
}

// Acquire hands out the shared handle, failing fast when the pool is not
// Ready.
func (p *Pool) Acquire() (*sql.DB, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateReady {
		return nil, ErrNotReady
	}
	return p.db, nil
}

// IsReady reports whether Acquire would succeed.
func (p *Pool) IsReady() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == StateReady
}

// State returns the current lifecycle state.
func (p *Pool) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Close releases the underlying connections and returns the pool to
// Uninitialized, from which Initialize may run again.
func (p *Pool) Close() error {
	p.mu.Lock()
	db := p.db
	p.db = nil
	p.state = StateUninitialized
	p.mu.Unlock()

	p.monitor.Reset()
	if db == nil {
		return nil
	}
	if err := db.Close(); err != nil {
		return fault.Wrap(fault.KindConnectivity, "closing connection pool", err)
	}
	return nil
}

// CheckHealth runs an on-demand probe and records it.
func (p *Pool) CheckHealth(ctx context.Context) health.Snapshot {
	db, err := p.Acquire()
	if err != nil {
		snap := health.Snapshot{Status: health.StatusUnhealthy, CheckedAt: time.Now().UTC(), Err: err}
		p.monitor.RecordProbe(snap)
		return snap
	}
	snap := probe(ctx, db, p.cfg.RequestTimeout)
	p.monitor.RecordProbe(snap)
	return snap
}

// HealthMetrics exposes the monitor's derived state for operators.
func (p *Pool) HealthMetrics() health.Metrics {
	return p.monitor.Metrics()
}

// fail tears down a half-open handle and marks the pool Failed.
func (p *Pool) fail(db *sql.DB) {
	if db != nil {
		db.Close()
	}
	p.mu.Lock()
	p.state = StateFailed
	p.db = nil
	p.mu.Unlock()
}

// probe issues a bounded liveness ping and classifies its latency.
func probe(ctx context.Context, db *sql.DB, timeout time.Duration) health.Snapshot {
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	start := time.Now()
	err := db.PingContext(pingCtx)
	return health.Classify(time.Since(start), err)
}

// dsn builds the driver connection descriptor. The password never
// appears in logs; only this string carries it.
func (p *Pool) dsn() string {
	mc := mysql.NewConfig()
	mc.Net = "tcp"
	mc.Addr = p.cfg.Addr()
	mc.DBName = p.cfg.Database
	mc.User = p.cfg.User
	if p.cfg.CredentialMode == config.CredentialSQL {
		mc.Passwd = p.cfg.Password
	}
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.Timeout = p.cfg.ConnectTimeout
	mc.ReadTimeout = p.cfg.RequestTimeout
	mc.WriteTimeout = p.cfg.RequestTimeout
	mc.Params = map[string]string{"charset": "utf8mb4"}
	if p.cfg.Encrypt {
		if p.cfg.TrustCert {
			mc.TLSConfig = "skip-verify"
		} else {
			mc.TLSConfig = "true"
		}
	}
	return mc.FormatDSN()
}
