package schema

import "fmt"

// Resource types.
const (
	ResourceTypeBook = "book"
	ResourceTypeHelp = "help"
	ResourceTypeDict = "dict"
)

// Project is a translatable project (a book of the bible, Open Bible Stories)
// in one source language.
type Project struct {
	ID          int64  `json:"-" yaml:"-" toml:"-"`
	Slug        string `json:"slug" yaml:"slug" toml:"slug"`
	Name        string `json:"name" yaml:"name" toml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
	Icon        string `json:"icon,omitempty" yaml:"icon,omitempty" toml:"icon,omitempty"`
	Sort        int    `json:"sort" yaml:"sort" toml:"sort"`
	ChunksURL   string `json:"chunks_url,omitempty" yaml:"chunks_url,omitempty" toml:"chunks_url,omitempty"`

	// LanguageSlug is filled in on reads.
	LanguageSlug string `json:"source_language_slug,omitempty" yaml:"source_language_slug,omitempty" toml:"source_language_slug,omitempty"`
}

// Validate checks if the Project has valid field values.
func (p *Project) Validate() error {
	if p.Slug == "" {
		return fmt.Errorf("slug is required")
	}
	if p.Name == "" {
		return fmt.Errorf("name is required for project %s", p.Slug)
	}
	if p.Sort < 0 {
		return fmt.Errorf("sort must not be negative (got %d)", p.Sort)
	}
	return nil
}

// Resource is one translation or help resource of a project.
type Resource struct {
	ID            int64  `json:"-" yaml:"-" toml:"-"`
	Slug          string `json:"slug" yaml:"slug" toml:"slug"`
	Name          string `json:"name" yaml:"name" toml:"name"`
	Type          string `json:"type" yaml:"type" toml:"type"`
	CheckingLevel string `json:"checking_level,omitempty" yaml:"checking_level,omitempty" toml:"checking_level,omitempty"`
	Version       string `json:"version,omitempty" yaml:"version,omitempty" toml:"version,omitempty"`
	FormatURL     string `json:"format_url,omitempty" yaml:"format_url,omitempty" toml:"format_url,omitempty"`
	ModifiedAt    string `json:"modified_at,omitempty" yaml:"modified_at,omitempty" toml:"modified_at,omitempty"`

	LanguageSlug string `json:"source_language_slug,omitempty" yaml:"source_language_slug,omitempty" toml:"source_language_slug,omitempty"`
	ProjectSlug  string `json:"project_slug,omitempty" yaml:"project_slug,omitempty" toml:"project_slug,omitempty"`
}

// Validate checks if the Resource has valid field values.
func (r *Resource) Validate() error {
	if r.Slug == "" {
		return fmt.Errorf("slug is required")
	}
	if r.Name == "" {
		return fmt.Errorf("name is required for resource %s", r.Slug)
	}
	switch r.Type {
	case ResourceTypeBook, ResourceTypeHelp, ResourceTypeDict:
	default:
		return fmt.Errorf("invalid resource type %q for resource %s", r.Type, r.Slug)
	}
	return nil
}

// Versification is a verse numbering system. Chunk markers are defined
// against a versification.
type Versification struct {
	ID   int64  `json:"-" yaml:"-" toml:"-"`
	Slug string `json:"slug" yaml:"slug" toml:"slug"`
	Name string `json:"name" yaml:"name" toml:"name"`
}

// Validate checks if the Versification has valid field values.
func (v *Versification) Validate() error {
	if v.Slug == "" {
		return fmt.Errorf("slug is required")
	}
	if v.Name == "" {
		return fmt.Errorf("name is required for versification %s", v.Slug)
	}
	return nil
}

// ChunkMarker marks the first verse of a chunk within a project.
type ChunkMarker struct {
	ProjectSlug       string `json:"project_slug" yaml:"project_slug" toml:"project_slug"`
	VersificationSlug string `json:"versification_slug" yaml:"versification_slug" toml:"versification_slug"`
	Chapter           string `json:"chapter" yaml:"chapter" toml:"chapter"`
	Verse             string `json:"verse" yaml:"verse" toml:"verse"`
}

// Validate checks if the ChunkMarker has valid field values.
func (c *ChunkMarker) Validate() error {
	if c.ProjectSlug == "" {
		return fmt.Errorf("project slug is required")
	}
	if c.Chapter == "" {
		return fmt.Errorf("chapter is required")
	}
	if c.Verse == "" {
		return fmt.Errorf("verse is required")
	}
	return nil
}
