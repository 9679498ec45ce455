package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/retail-pos-core/internal/config"
	"github.com/iliyamo/retail-pos-core/internal/fault"
	"github.com/iliyamo/retail-pos-core/internal/health"
)

func testConfig() config.ConnectionConfig {
	return config.ConnectionConfig{
		Host:           "db.internal",
		Port:           3306,
		Database:       "possystem",
		CredentialMode: config.CredentialSQL,
		User:           "pos_app",
		Password:       "s3cret-pw",
		ConnectTimeout: time.Second,
		RequestTimeout: time.Second,
		RetryAttempts:  3,
		RetryDelay:     time.Millisecond,
		PoolMax:        4,
		PoolMin:        1,
		PoolIdleTime:   time.Minute,
	}
}

// openPinging builds an open func whose handle answers the scripted
// pings in order, nil meaning success.
func openPinging(t *testing.T, pingErrs ...error) func(string) (*sql.DB, error) {
	t.Helper()
	return func(string) (*sql.DB, error) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		for _, e := range pingErrs {
			exp := mock.ExpectPing()
			if e != nil {
				exp.WillReturnError(e)
			}
		}
		mock.ExpectClose()
		return db, nil
	}
}

func TestInitializeSuccess(t *testing.T) {
	p := New(testConfig(), health.NewMonitor(), nil)
	opens := 0
	// One ping during connect, one for the initial health probe.
	inner := openPinging(t, nil, nil)
	p.open = func(dsn string) (*sql.DB, error) {
		opens++
		return inner(dsn)
	}

	require.NoError(t, p.Initialize(context.Background()))
	assert.Equal(t, StateReady, p.State())
	assert.Equal(t, 1, opens)

	db, err := p.Acquire()
	require.NoError(t, err)
	assert.NotNil(t, db)

	m := p.HealthMetrics()
	assert.Equal(t, health.StatusHealthy, m.Status)
	assert.Equal(t, 1, m.TotalChecks)

	// Re-initializing a Ready pool is a no-op.
	require.NoError(t, p.Initialize(context.Background()))
	assert.Equal(t, 1, opens)
}

func TestInitializeInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Host = ""
	p := New(cfg, health.NewMonitor(), nil)
	opens := 0
	p.open = func(string) (*sql.DB, error) {
		opens++
		return nil, errors.New("should not be reached")
	}

	err := p.Initialize(context.Background())
	require.Error(t, err)
	assert.Equal(t, fault.KindConfiguration, fault.KindOf(err))
	assert.Equal(t, StateFailed, p.State())
	assert.Zero(t, opens, "invalid config must fail before any connection attempt")
}

func TestInitializeExhaustsRetries(t *testing.T) {
	p := New(testConfig(), health.NewMonitor(), nil)
	opens := 0
	p.open = func(string) (*sql.DB, error) {
		opens++
		return nil, &mysql.MySQLError{Number: 1040, Message: "Too many connections"}
	}

	err := p.Initialize(context.Background())
	require.Error(t, err)
	assert.Equal(t, 3, opens, "every configured attempt should run")
	assert.Equal(t, StateFailed, p.State())

	_, err = p.Acquire()
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestInitializeAuthFailureDoesNotRetry(t *testing.T) {
	p := New(testConfig(), health.NewMonitor(), nil)
	opens := 0
	p.open = func(string) (*sql.DB, error) {
		opens++
		return nil, &mysql.MySQLError{Number: 1045, Message: "Access denied for user"}
	}

	err := p.Initialize(context.Background())
	require.Error(t, err)
	assert.Equal(t, fault.KindAuthentication, fault.KindOf(err))
	assert.Equal(t, 1, opens, "credential failures are terminal")
	assert.Equal(t, StateFailed, p.State())
}

func TestInitializeRecoversFromFailed(t *testing.T) {
	p := New(testConfig(), health.NewMonitor(), nil)
	fail := true
	inner := openPinging(t, nil, nil)
	p.open = func(dsn string) (*sql.DB, error) {
		if fail {
			return nil, errors.New("dial tcp: connection refused")
		}
		return inner(dsn)
	}

	require.Error(t, p.Initialize(context.Background()))
	assert.Equal(t, StateFailed, p.State())

	// The backend comes up; a fresh Initialize starts over from scratch.
	fail = false
	require.NoError(t, p.Initialize(context.Background()))
	assert.Equal(t, StateReady, p.State())
}

func TestInitializeRejectsConcurrentAttempt(t *testing.T) {
	p := New(testConfig(), health.NewMonitor(), nil)
	p.mu.Lock()
	p.state = StateConnecting
	p.mu.Unlock()

	err := p.Initialize(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already in progress")
}

func TestInitializeUnhealthyProbeTearsDown(t *testing.T) {
	p := New(testConfig(), health.NewMonitor(), nil)
	// Connect ping succeeds, the initial health probe does not.
	p.open = openPinging(t, nil, errors.New("server has gone away"))

	err := p.Initialize(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "initial health probe")
	assert.Equal(t, StateFailed, p.State())
	assert.Equal(t, health.StatusUnhealthy, p.HealthMetrics().Status)

	_, err = p.Acquire()
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestAcquireBeforeInitialize(t *testing.T) {
	p := New(testConfig(), health.NewMonitor(), nil)
	_, err := p.Acquire()
	assert.ErrorIs(t, err, ErrNotReady)
	assert.False(t, p.IsReady())
}

func TestCloseResetsLifecycle(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	mock.ExpectPing()
	mock.ExpectClose()

	p := NewWithDB(db)
	require.True(t, p.IsReady())
	p.CheckHealth(context.Background())
	require.Equal(t, health.StatusHealthy, p.HealthMetrics().Status)

	require.NoError(t, p.Close())
	assert.Equal(t, StateUninitialized, p.State())
	assert.Equal(t, health.StatusUnknown, p.HealthMetrics().Status)

	_, err = p.Acquire()
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestCheckHealthWhenNotReady(t *testing.T) {
	p := New(testConfig(), health.NewMonitor(), nil)
	snap := p.CheckHealth(context.Background())
	assert.Equal(t, health.StatusUnhealthy, snap.Status)
	assert.ErrorIs(t, snap.Err, ErrNotReady)
	assert.Equal(t, 1, p.HealthMetrics().ConsecutiveFailures)
}

func TestDSN(t *testing.T) {
	t.Run("credentials mode carries the password", func(t *testing.T) {
		p := New(testConfig(), health.NewMonitor(), nil)
		dsn := p.dsn()
		assert.Contains(t, dsn, "pos_app:s3cret-pw@tcp(db.internal:3306)/possystem")
		assert.Contains(t, dsn, "parseTime=true")
		assert.Contains(t, dsn, "charset=utf8mb4")
	})

	t.Run("trusted mode omits the password", func(t *testing.T) {
		cfg := testConfig()
		cfg.CredentialMode = config.CredentialTrusted
		p := New(cfg, health.NewMonitor(), nil)
		assert.NotContains(t, p.dsn(), "s3cret-pw")
	})

	t.Run("encryption maps onto the driver tls modes", func(t *testing.T) {
		cfg := testConfig()
		cfg.Encrypt = true
		p := New(cfg, health.NewMonitor(), nil)
		assert.Contains(t, p.dsn(), "tls=true")

		cfg.TrustCert = true
		p = New(cfg, health.NewMonitor(), nil)
		assert.True(t, strings.Contains(p.dsn(), "tls=skip-verify"))
	})
}
