package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/expensebook/sheetsync/internal/model"
)

// Config represents the top-level sheetsync.yaml configuration.
type Config struct {
	Categories                []Category   `yaml:"categories,omitempty" toml:"categories,omitempty"`
	IncludeUnconfiguredSheets bool         `yaml:"include_unconfigured_sheets" toml:"include_unconfigured_sheets"`
	Rules                     []Rule       `yaml:"rules,omitempty" toml:"rules,omitempty"`
	Anchor                    AnchorConfig `yaml:"anchor" toml:"anchor"`
	StrictLabel               bool         `yaml:"strict_label" toml:"strict_label"`
	RequiredFields            []string     `yaml:"required_fields,omitempty" toml:"required_fields,omitempty"`
	IDStrategy                string       `yaml:"id_strategy" toml:"id_strategy"`
	Workers                   int          `yaml:"workers" toml:"workers"`
}

// Category maps a sheet name to the metadata the tracking app displays.
type Category struct {
	Sheet string `yaml:"sheet" toml:"sheet"`
	ID    string `yaml:"id" toml:"id"`
	Name  string `yaml:"name" toml:"name"`
	Color string `yaml:"color" toml:"color"` // "#RRGGBB"
}

// Rule assigns Role to columns whose name contains one of Keywords.
type Rule struct {
	Role     string   `yaml:"role" toml:"role"`
	Keywords []string `yaml:"keywords" toml:"keywords"`
}

// AnchorConfig selects the columns whose emptiness marks a spacer row.
type AnchorConfig struct {
	Roles          []string `yaml:"roles" toml:"roles"`
	FallbackColumn int      `yaml:"fallback_column" toml:"fallback_column"` // zero-based
}

const (
	IDStrategyTimestamp = "timestamp"
	IDStrategyUUID      = "uuid"
)

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Load reads a config file from disk; a .toml extension selects TOML,
// anything else YAML. Keys absent from the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if isTOML(path) {
		err = toml.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes a Config in the format implied by the path's extension.
func Save(path string, cfg *Config) error {
	var data []byte
	var err error
	if isTOML(path) {
		data, err = toml.Marshal(cfg)
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config that converts every sheet with the built-in
// rule table.
func Default() *Config {
	return &Config{
		IncludeUnconfiguredSheets: true,
		Anchor: AnchorConfig{
			Roles:          []string{string(model.RoleTemporal)},
			FallbackColumn: 4,
		},
		IDStrategy: IDStrategyTimestamp,
		Workers:    4,
	}
}

// Sample returns the config written by `sheetsync init`: the store
// categories used by the tracking app and the image-filename field it
// expects.
func Sample() *Config {
	cfg := Default()
	cfg.IncludeUnconfiguredSheets = false
	cfg.Categories = []Category{
		{Sheet: "POYA", ID: "poya", Name: "POYA 寶雅", Color: "#d00278"},
		{Sheet: "Costco", ID: "costco", Name: "Costco 好市多", Color: "#e31837"},
		{Sheet: "Carrefour家樂福", ID: "carrefour", Name: "Carrefour 家樂福", Color: "#004899"},
		{Sheet: "DAISO", ID: "daiso", Name: "DAISO 大創", Color: "#ff66cc"},
		{Sheet: "DECATHLON迪卡儂", ID: "decathlon", Name: "迪卡儂", Color: "#0082c3"},
		{Sheet: "博物館", ID: "museum", Name: "博物館紀錄", Color: "#808080"},
	}
	cfg.RequiredFields = []string{"圖片檔名"}
	return cfg
}

// Validate checks the config for values the pipeline cannot honor.
func (c *Config) Validate() error {
	var problems []string

	sheets := make(map[string]bool)
	ids := make(map[string]string)
	for i, cat := range c.Categories {
		switch {
		case cat.Sheet == "":
			problems = append(problems, fmt.Sprintf("category %d: sheet is required", i))
		case sheets[cat.Sheet]:
			problems = append(problems, fmt.Sprintf("category %d: duplicate sheet %q", i, cat.Sheet))
		}
		sheets[cat.Sheet] = true

		if cat.ID != "" {
			if other, dup := ids[cat.ID]; dup {
				problems = append(problems, fmt.Sprintf("category %q: id %q already used by %q", cat.Sheet, cat.ID, other))
			}
			ids[cat.ID] = cat.Sheet
		}
		if cat.Color != "" && !colorPattern.MatchString(cat.Color) {
			problems = append(problems, fmt.Sprintf("category %q: color %q is not #RRGGBB", cat.Sheet, cat.Color))
		}
	}

	for i, r := range c.Rules {
		if _, err := model.ParseRole(r.Role); err != nil {
			problems = append(problems, fmt.Sprintf("rule %d: %v", i, err))
		}
		if len(r.Keywords) == 0 {
			problems = append(problems, fmt.Sprintf("rule %d: keywords are required", i))
		}
	}

	for _, r := range c.Anchor.Roles {
		if _, err := model.ParseRole(r); err != nil {
			problems = append(problems, fmt.Sprintf("anchor: %v", err))
		}
	}
	if c.Anchor.FallbackColumn < 0 {
		problems = append(problems, "anchor: fallback_column must not be negative")
	}

	switch c.IDStrategy {
	case "", IDStrategyTimestamp, IDStrategyUUID:
	default:
		problems = append(problems, fmt.Sprintf("unknown id_strategy %q", c.IDStrategy))
	}
	if c.Workers < 0 {
		problems = append(problems, "workers must not be negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", model.ErrConfigInvalid, strings.Join(problems, "; "))
	}
	return nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}
