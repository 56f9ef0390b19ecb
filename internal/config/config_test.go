package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expensebook/sheetsync/internal/model"
)

func TestRoundTrip(t *testing.T) {
	cfg := Sample()
	cfg.Rules = []Rule{{Role: "label", Keywords: []string{"品名"}}}

	path := filepath.Join(t.TempDir(), "sheetsync.yaml")
	err := Save(path, cfg)
	require.NoError(t, err)

	got, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, cfg.Categories, got.Categories)
	assert.False(t, got.IncludeUnconfiguredSheets)
	assert.Equal(t, []string{"圖片檔名"}, got.RequiredFields)
	require.Len(t, got.Rules, 1)
	assert.Equal(t, "label", got.Rules[0].Role)
	assert.Equal(t, 4, got.Anchor.FallbackColumn)
	assert.Equal(t, IDStrategyTimestamp, got.IDStrategy)
}

func TestRoundTripTOML(t *testing.T) {
	cfg := Sample()
	cfg.IDStrategy = IDStrategyUUID

	path := filepath.Join(t.TempDir(), "sheetsync.toml")
	require.NoError(t, Save(path, cfg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "id_strategy")
	assert.Contains(t, string(data), "[[categories]]")

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Categories, got.Categories)
	assert.Equal(t, IDStrategyUUID, got.IDStrategy)
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.True(t, cfg.IncludeUnconfiguredSheets)
	assert.Equal(t, []string{"temporal"}, cfg.Anchor.Roles)
	assert.Equal(t, 4, cfg.Anchor.FallbackColumn)
	assert.Equal(t, IDStrategyTimestamp, cfg.IDStrategy)
	assert.Equal(t, 4, cfg.Workers)
	assert.Empty(t, cfg.Categories)
	assert.Empty(t, cfg.Rules)
	assert.NoError(t, cfg.Validate())
}

func TestLoadKeepsDefaultsForMissingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	content := "categories:\n  - sheet: POYA\n    id: poya\n    name: POYA\n    color: \"#d00278\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.IncludeUnconfiguredSheets)
	assert.Equal(t, 4, cfg.Workers)
	require.Len(t, cfg.Categories, 1)
	assert.Equal(t, "poya", cfg.Categories[0].ID)
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	content := "categories:\n  - {sheet: A, id: x, color: \"#000000\"}\n  - {sheet: B, id: x, color: red}\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrConfigInvalid))
	assert.Contains(t, err.Error(), `id "x" already used by "A"`)
	assert.Contains(t, err.Error(), `color "red" is not #RRGGBB`)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing sheet", func(c *Config) { c.Categories = []Category{{ID: "a"}} }, "sheet is required"},
		{"duplicate sheet", func(c *Config) {
			c.Categories = []Category{{Sheet: "A", ID: "a"}, {Sheet: "A", ID: "b"}}
		}, `duplicate sheet "A"`},
		{"unknown role", func(c *Config) { c.Rules = []Rule{{Role: "currency", Keywords: []string{"$"}}} }, "unknown column role"},
		{"empty keywords", func(c *Config) { c.Rules = []Rule{{Role: "label"}} }, "keywords are required"},
		{"anchor role", func(c *Config) { c.Anchor.Roles = []string{"when"} }, "anchor:"},
		{"negative fallback", func(c *Config) { c.Anchor.FallbackColumn = -1 }, "fallback_column"},
		{"strategy", func(c *Config) { c.IDStrategy = "sequence" }, `unknown id_strategy "sequence"`},
		{"workers", func(c *Config) { c.Workers = -2 }, "workers"},
	}
	for _, tt := range tests {
		cfg := Default()
		tt.mutate(cfg)
		err := cfg.Validate()
		require.Error(t, err, tt.name)
		assert.Contains(t, err.Error(), tt.want, tt.name)
	}
}

func TestYAMLFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sheetsync.yaml")
	require.NoError(t, Save(path, Sample()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "sheet: POYA")
	assert.Contains(t, contents, "include_unconfigured_sheets: false")
	assert.Contains(t, contents, "fallback_column: 4")
	assert.Contains(t, contents, "id_strategy: timestamp")
}

func TestCatalog(t *testing.T) {
	cat := Sample().Catalog()

	poya, ok := cat.Get("POYA")
	require.True(t, ok)
	assert.Equal(t, "poya", poya.ID)
	assert.Equal(t, "#d00278", poya.Color)

	assert.True(t, cat.Exists("博物館"))
	assert.False(t, cat.Exists("Unknown"))
}

func TestCatalog_DisplayName(t *testing.T) {
	cat := Sample().Catalog()

	poya, ok := cat.Get("POYA 寶雅")
	require.True(t, ok)
	assert.Equal(t, "poya", poya.ID)
	assert.True(t, cat.Exists("博物館紀錄"))

	// The sheet key wins over another category's display name.
	cat = NewCatalog([]Category{
		{Sheet: "A", ID: "a", Name: "B"},
		{Sheet: "B", ID: "b", Name: "other"},
	})
	got, ok := cat.Get("B")
	require.True(t, ok)
	assert.Equal(t, "b", got.ID)
}
