package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/retail-pos-core/internal/fault"
)

func setRequired(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DB_HOST", "db.local")
	t.Setenv("DB_NAME", "pos")
	t.Setenv("DB_USER", "pos_app")
	t.Setenv("DB_PASS", "s3cure-Pa55!")
}

func TestLoad(t *testing.T) {
	t.Run("defaults applied", func(t *testing.T) {
		setRequired(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "8080", cfg.Port)
		assert.Equal(t, 3306, cfg.DB.Port)
		assert.Equal(t, CredentialSQL, cfg.DB.CredentialMode)
		assert.Equal(t, 15*time.Second, cfg.DB.ConnectTimeout)
		assert.Equal(t, 30*time.Second, cfg.DB.RequestTimeout)
		assert.Equal(t, 3, cfg.DB.RetryAttempts)
		assert.Equal(t, time.Second, cfg.DB.RetryDelay)
		assert.Equal(t, 25, cfg.DB.PoolMax)
		assert.Equal(t, 5, cfg.DB.PoolMin)
		assert.Equal(t, 5, cfg.LockoutAfter)
		assert.Equal(t, 30*time.Minute, cfg.LockoutFor)
	})

	t.Run("overrides", func(t *testing.T) {
		setRequired(t)
		t.Setenv("DB_PORT", "13306")
		t.Setenv("DB_CONNECT_TIMEOUT_MS", "2500")
		t.Setenv("DB_RETRY_ATTEMPTS", "5")
		t.Setenv("LOCKOUT_MINUTES", "10")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 13306, cfg.DB.Port)
		assert.Equal(t, 2500*time.Millisecond, cfg.DB.ConnectTimeout)
		assert.Equal(t, 5, cfg.DB.RetryAttempts)
		assert.Equal(t, 10*time.Minute, cfg.LockoutFor)
	})

	t.Run("missing required vars collected", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		t.Setenv("DB_HOST", "")
		t.Setenv("DB_NAME", "pos")

		_, err := Load()
		require.Error(t, err)
		assert.Equal(t, fault.KindConfiguration, fault.KindOf(err))
		assert.ErrorContains(t, err, "JWT_SECRET")
		assert.ErrorContains(t, err, "DB_HOST")
	})
}

func TestConnectionConfigValidate(t *testing.T) {
	valid := ConnectionConfig{
		Host:           "db.local",
		Port:           3306,
		Database:       "pos",
		CredentialMode: CredentialSQL,
		User:           "pos_app",
		Password:       "s3cure-Pa55!",
		RetryAttempts:  3,
		PoolMax:        10,
		PoolMin:        2,
	}

	t.Run("valid", func(t *testing.T) {
		require.NoError(t, valid.Validate())
	})

	t.Run("credentials mode requires user and password", func(t *testing.T) {
		c := valid
		c.User = ""
		assert.Error(t, c.Validate())

		c = valid
		c.Password = ""
		assert.Error(t, c.Validate())
	})

	t.Run("placeholder password rejected", func(t *testing.T) {
		for _, p := range []string{"changeme", "CHANGEME", "your_password_here", "password"} {
			c := valid
			c.Password = p
			err := c.Validate()
			require.Error(t, err, p)
			assert.Equal(t, fault.KindConfiguration, fault.KindOf(err))
			assert.ErrorContains(t, err, "placeholder")
		}
	})

	t.Run("trusted mode allows empty credentials", func(t *testing.T) {
		c := valid
		c.CredentialMode = CredentialTrusted
		c.User = ""
		c.Password = ""
		require.NoError(t, c.Validate())
	})

	t.Run("unknown auth mode", func(t *testing.T) {
		c := valid
		c.CredentialMode = "kerberos"
		assert.Error(t, c.Validate())
	})

	t.Run("pool bounds", func(t *testing.T) {
		c := valid
		c.PoolMin = 20
		assert.Error(t, c.Validate())
	})

	t.Run("port range", func(t *testing.T) {
		c := valid
		c.Port = 0
		assert.Error(t, c.Validate())
		c.Port = 70000
		assert.Error(t, c.Validate())
	})
}
