package reliability

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tconn93/Day-trader/internal/database"
	"github.com/tconn93/Day-trader/pkg/logger"
)

func TestDatabaseHealthService_Check(t *testing.T) {
	log := logger.New(logger.Config{Level: "error", Pretty: false})

	t.Run("healthy database passes", func(t *testing.T) {
		tempDir := t.TempDir()
		dbPath := filepath.Join(tempDir, "test.db")

		db, err := database.New(database.Config{Path: dbPath, Profile: database.ProfileStandard, Name: "test"})
		require.NoError(t, err)
		defer db.Close()

		healthService := NewDatabaseHealthService(db, "test", dbPath, log)
		assert.NoError(t, healthService.Check())
	})
}

func TestDatabaseHealthService_GetMetrics(t *testing.T) {
	log := logger.New(logger.Config{Level: "error", Pretty: false})

	t.Run("returns current database metrics", func(t *testing.T) {
		tempDir := t.TempDir()
		dbPath := filepath.Join(tempDir, "test.db")

		db, err := database.New(database.Config{Path: dbPath, Profile: database.ProfileStandard, Name: "test"})
		require.NoError(t, err)
		defer db.Close()

		healthService := NewDatabaseHealthService(db, "test", dbPath, log)

		metrics, err := healthService.GetMetrics()
		require.NoError(t, err)

		assert.Equal(t, "test", metrics.Name)
		assert.True(t, metrics.SizeMB > 0)
		assert.True(t, metrics.IntegrityCheckPassed)
		assert.False(t, metrics.LastIntegrityCheck.IsZero())
	})
}
