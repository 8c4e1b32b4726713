package legacy

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Parser turns one auxiliary catalog payload into upserts on lib.
type Parser func(ctx context.Context, data []byte, lib Writer, progress ProgressFunc) error

// Auxiliary catalog slugs.
const (
	SlugLangnames             = "langnames"
	SlugNewLanguageQuestions  = "new-language-questions"
	SlugTempLangnames         = "temp-langnames"
	SlugApprovedTempLangnames = "approved-temp-langnames"
)

// registry maps catalog slugs to their parsers
var (
	registry      = make(map[string]Parser)
	registryMutex sync.RWMutex
)

func init() {
	Register(SlugLangnames, ParseLangnames)
	Register(SlugNewLanguageQuestions, ParseNewLanguageQuestions)
	Register(SlugTempLangnames, ParseTempLangnames)
	Register(SlugApprovedTempLangnames, ParseApprovedTempLangnames)
}

// Register registers the parser for a catalog slug. Adding a catalog is a
// registration, not a code change in the sync client.
//
// Example:
//
//	func init() {
//	    legacy.Register("langnames", ParseLangnames)
//	}
func Register(slug string, parser Parser) {
	registryMutex.Lock()
	defer registryMutex.Unlock()

	if parser == nil {
		panic(fmt.Sprintf("legacy: Register parser is nil for catalog %s", slug))
	}

	if _, exists := registry[slug]; exists {
		panic(fmt.Sprintf("legacy: Register called twice for catalog %s", slug))
	}

	registry[slug] = parser
}

// Lookup returns the parser registered for slug.
func Lookup(slug string) (Parser, bool) {
	registryMutex.RLock()
	defer registryMutex.RUnlock()
	p, ok := registry[slug]
	return p, ok
}

// Slugs returns the registered catalog slugs in sorted order.
func Slugs() []string {
	registryMutex.RLock()
	defer registryMutex.RUnlock()

	slugs := make([]string, 0, len(registry))
	for s := range registry {
		slugs = append(slugs, s)
	}
	sort.Strings(slugs)
	return slugs
}
