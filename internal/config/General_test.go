package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("POOL_MODE", "sim")
	t.Setenv("POOL_ADMINS", "operator")
}

func TestLoadConfig(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("WEB_PORT", "")
		t.Setenv("SNAPSHOT_INTERVAL_SECONDS", "")
		t.Setenv("POOL_DB", "")

		require.NoError(t, LoadConfig())

		assert.Equal(t, "sim", PoolMode)
		assert.Equal(t, []string{"operator"}, AdminAccounts)
		assert.Equal(t, "8080", WebPort)
		assert.Equal(t, 300*time.Second, SnapshotInterval)
		assert.True(t, PersistenceEnabled)
	})

	t.Run("MissingPoolModeFails", func(t *testing.T) {
		t.Setenv("POOL_ADMINS", "operator")
		// t.Setenv registers the restore; unsetting afterwards simulates a
		// genuinely absent variable.
		t.Setenv("POOL_MODE", "sim")
		os.Unsetenv("POOL_MODE")
		assert.Error(t, LoadConfig())
	})

	t.Run("AdminListParsing", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("POOL_ADMINS", " alice , bob ,, carol ")

		require.NoError(t, LoadConfig())
		assert.Equal(t, []string{"alice", "bob", "carol"}, AdminAccounts)
	})

	t.Run("EmptyAdminListFails", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("POOL_ADMINS", " , ")
		assert.Error(t, LoadConfig())
	})

	t.Run("InvalidSnapshotInterval", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("SNAPSHOT_INTERVAL_SECONDS", "not-a-number")
		assert.Error(t, LoadConfig())

		t.Setenv("SNAPSHOT_INTERVAL_SECONDS", "0")
		assert.Error(t, LoadConfig())
	})

	t.Run("PersistenceSwitch", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("POOL_DB", "off")
		require.NoError(t, LoadConfig())
		assert.False(t, PersistenceEnabled)
	})
}
