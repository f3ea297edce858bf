package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")

	require.NoError(t, Load(""))
	c := Get()

	assert.Equal(t, "debt_tracker", c.AppName)
	assert.Equal(t, ":8080", c.HttpListenAddr)
	assert.Equal(t, "/api/v1", c.HttpBaseRequestUrl)
	assert.Equal(t, 24*time.Hour, c.IdempotencyTTL)
	assert.Equal(t, 4, c.ReconcilerWorkers)
	assert.False(t, c.LedgerTouchCustomerCreatedAt)
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "DB_DRIVER=postgres\nDB_WRITE_HOST=db.local\nDB_WRITE_PORT=5432\nRECONCILER_REPAIR=true\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Cleanup(func() {
		for _, k := range []string{"DB_DRIVER", "DB_WRITE_HOST", "DB_WRITE_PORT", "RECONCILER_REPAIR"} {
			_ = os.Unsetenv(k)
		}
	})

	require.NoError(t, Load(path))
	c := Get()

	assert.True(t, c.ReconcilerRepair)
	assert.Equal(t, "db.local", c.WriteDB().Host)
	assert.Equal(t, "db.local", c.ReadDB().Host)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("DB_DRIVER", "oracle")
	assert.Error(t, Load(""))

	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_WRITE_HOST", "")
	assert.Error(t, Load(""))

	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("EVENTS_ENABLED", "true")
	t.Setenv("REDIS_ADDR", "")
	assert.Error(t, Load(""))
}

func TestLoad_MissingFile(t *testing.T) {
	assert.Error(t, Load("/nonexistent/.env"))
}
