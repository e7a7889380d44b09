// Package theme holds the static practice-theme catalog. Themes are defined
// once in an embedded YAML file and never change for the life of the
// process.
package theme

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yml
var catalogYAML []byte

// Theme is one entry of the practice catalog.
type Theme struct {
	Name           string `yaml:"name"`            // unique identifier
	DisplayName    string `yaml:"display_name"`    // English display name
	DisplayNameJA  string `yaml:"display_name_ja"` // localized display name
	Description    string `yaml:"description"`
	RequiresSearch bool   `yaml:"requires_search"`
	QueryTemplate  string `yaml:"query_template,omitempty"` // search query, optional
}

// Catalog is the ordered, immutable set of themes.
type Catalog struct {
	themes []Theme
	byName map[string]Theme
	search []Theme // requires_search subset, catalog order
}

// Load parses the embedded catalog.
func Load() (*Catalog, error) {
	return Parse(catalogYAML)
}

// Parse builds a catalog from raw YAML. Load is the embedded-catalog
// convenience; Parse exists for callers supplying their own data.
func Parse(data []byte) (*Catalog, error) {
	var raw struct {
		Themes []Theme `yaml:"themes"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse theme catalog: %w", err)
	}
	if len(raw.Themes) == 0 {
		return nil, fmt.Errorf("theme catalog is empty")
	}

	c := &Catalog{
		themes: raw.Themes,
		byName: make(map[string]Theme, len(raw.Themes)),
	}
	for _, t := range raw.Themes {
		if t.Name == "" {
			return nil, fmt.Errorf("theme with empty name in catalog")
		}
		if _, dup := c.byName[t.Name]; dup {
			return nil, fmt.Errorf("duplicate theme name %q in catalog", t.Name)
		}
		c.byName[t.Name] = t
		if t.RequiresSearch {
			c.search = append(c.search, t)
		}
	}
	return c, nil
}

// All returns every theme in catalog order.
func (c *Catalog) All() []Theme {
	out := make([]Theme, len(c.themes))
	copy(out, c.themes)
	return out
}

// Lookup finds a theme by its unique name.
func (c *Catalog) Lookup(name string) (Theme, bool) {
	t, ok := c.byName[name]
	return t, ok
}

// SearchRequired returns the search-grounded subset, in catalog order.
// Continuous mode rotates through exactly this list.
func (c *Catalog) SearchRequired() []Theme {
	out := make([]Theme, len(c.search))
	copy(out, c.search)
	return out
}

// SearchTheme returns the search-grounded theme at index i, wrapping past
// the end back to 0.
func (c *Catalog) SearchTheme(i int) (Theme, bool) {
	if len(c.search) == 0 {
		return Theme{}, false
	}
	return c.search[i%len(c.search)], true
}

// SearchLen returns the size of the search-grounded subset.
func (c *Catalog) SearchLen() int { return len(c.search) }
