package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "file", c.StoreKind)
	assert.Equal(t, filepath.Join(home, ".trendteller", "store.json"), c.StoreDSN)
	assert.Equal(t, "dir", c.PlotsSink)
	assert.Equal(t, "insight_plots", c.PlotsDir)
	assert.Equal(t, ":8000", c.ListenAddr)
	assert.Equal(t, 32, c.MaxUploadMB)
}

func TestSaveThenLoad(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")

	c := &Global{StoreKind: "sqlite", StoreDSN: "/tmp/tt.db", PlotsSink: "s3", PlotsBucket: "plots", MaxUploadMB: 5}
	require.NoError(t, Save(c, path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", got.StoreKind)
	assert.Equal(t, "/tmp/tt.db", got.StoreDSN)
	assert.Equal(t, "s3", got.PlotsSink)
	assert.Equal(t, "plots", got.PlotsBucket)
	assert.Equal(t, 5, got.MaxUploadMB)
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, Save(&Global{StoreKind: "sqlite", StoreDSN: "a.db"}, path))
	t.Setenv("TRENDTELLER_STORE_KIND", "memory")

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "memory", got.StoreKind)
}
