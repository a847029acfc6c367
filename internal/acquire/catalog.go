package acquire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/lehigh-university-libraries/bookshelf/internal/models"
	"gopkg.in/yaml.v3"
)

// Catalog answers from a YAML file mapping aliases to metadata:
//
//	Lalka_tom1:
//	  title: Lalka
//	  authors: Bolesław Prus
//	  year: "1890"
//	  pub_place: Warszawa
type Catalog struct {
	entries map[string]models.Metadata
}

// LoadCatalog reads path. A missing file yields an empty catalog.
func LoadCatalog(path string) (*Catalog, error) {
	c := &Catalog{entries: map[string]models.Metadata{}}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Debug("Metadata catalog not found", "path", path)
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &c.entries); err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}
	if c.entries == nil {
		c.entries = map[string]models.Metadata{}
	}
	return c, nil
}

// Len returns the number of catalogued aliases.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Acquire matches the alias exactly, then ignoring case.
func (c *Catalog) Acquire(ctx context.Context, req Request) (models.Metadata, error) {
	if meta, ok := c.entries[req.Alias]; ok {
		return meta, nil
	}
	for alias, meta := range c.entries {
		if strings.EqualFold(alias, req.Alias) {
			return meta, nil
		}
	}
	return models.Metadata{}, ErrDeclined
}
