package schema

import (
	"fmt"
	"net/url"
)

// Catalog is a registry entry describing where a named auxiliary catalog
// is fetched from.
type Catalog struct {
	Slug string `json:"slug" yaml:"slug" toml:"slug"`
	URL  string `json:"url" yaml:"url" toml:"url"`
}

// Validate checks if the Catalog has valid field values.
func (c *Catalog) Validate() error {
	if c.Slug == "" {
		return fmt.Errorf("slug is required")
	}
	if c.URL == "" {
		return fmt.Errorf("url is required for catalog %s", c.Slug)
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("invalid url for catalog %s: %w", c.Slug, err)
	}
	if u.Scheme == "" {
		return fmt.Errorf("url for catalog %s must be absolute (got %s)", c.Slug, c.URL)
	}
	return nil
}
