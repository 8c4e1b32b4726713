package sync

import (
	"strings"

	"github.com/unfoldingword/door43-client/internal/index/legacy"
	"github.com/unfoldingword/door43-client/internal/index/schema"
)

// DefaultGlobalCatalogHost serves the global auxiliary catalogs.
const DefaultGlobalCatalogHost = "https://td.unfoldingword.org"

// DefaultPrimaryURL is the legacy primary catalog.
const DefaultPrimaryURL = "https://api.unfoldingword.org/ts/txt/2/catalog.json"

// globalCatalogPaths maps auxiliary catalog slugs to their path on the
// global catalog host.
var globalCatalogPaths = []struct {
	slug string
	path string
}{
	{legacy.SlugLangnames, "/exports/langnames.json"},
	{legacy.SlugNewLanguageQuestions, "/api/questionnaire/"},
	{legacy.SlugTempLangnames, "/api/templanguages/"},
	{legacy.SlugApprovedTempLangnames, "/api/templanguages/assignment/changed/"},
}

// GlobalCatalogs returns the auxiliary catalog registrations for host.
// An empty host means DefaultGlobalCatalogHost.
func GlobalCatalogs(host string) []*schema.Catalog {
	host = strings.TrimRight(host, "/")
	if host == "" {
		host = DefaultGlobalCatalogHost
	}
	catalogs := make([]*schema.Catalog, 0, len(globalCatalogPaths))
	for _, c := range globalCatalogPaths {
		catalogs = append(catalogs, &schema.Catalog{Slug: c.slug, URL: host + c.path})
	}
	return catalogs
}

// GlobalCatalogSlugs returns the auxiliary catalog slugs in the order a full
// refresh indexes them.
func GlobalCatalogSlugs() []string {
	slugs := make([]string, 0, len(globalCatalogPaths))
	for _, c := range globalCatalogPaths {
		slugs = append(slugs, c.slug)
	}
	return slugs
}
