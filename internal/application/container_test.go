package application

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfmark/shelfmark/internal/config"
)

func setupDataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("SHELF_DIR", dir)
	t.Setenv("SHELF_CATALOG", "")
	t.Setenv("SHELF_LOG_LEVEL", "")
	return dir
}

func TestContainerResolvesTracker(t *testing.T) {
	dir := setupDataDir(t)
	catalogPath := filepath.Join(dir, "anime.csv")
	require.NoError(t, os.WriteFile(catalogPath, []byte("subject_id,title,year,has_supp\n1,A,2000,true\n"), 0o600))

	injector := NewContainer(Overrides{CatalogPath: catalogPath, LogLevel: "error"})

	u, err := Tracker(injector)
	require.NoError(t, err)
	require.NotNil(t, u)

	cfg := do.MustInvoke[*config.Config](injector)
	assert.Equal(t, catalogPath, cfg.CatalogPath)
	assert.Equal(t, "error", cfg.LogLevel)
	assert.FileExists(t, filepath.Join(dir, "shelf.db"))

	_ = injector.Shutdown()
}

func TestContainerFailsWithoutCatalog(t *testing.T) {
	setupDataDir(t)

	injector := NewContainer(Overrides{LogLevel: "error"})
	t.Cleanup(func() { _ = injector.Shutdown() })

	_, err := Tracker(injector)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog.csv")
}
