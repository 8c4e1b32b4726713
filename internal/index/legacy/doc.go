// Package legacy parses the legacy Door43 catalog payloads into index
// upserts.
//
// There are two kinds of catalog:
//
//   - The primary catalog, a three level hierarchy: a list of projects, a
//     language catalog per project, and a resource catalog per (language,
//     project). Primary walks it top-down, fetching each level as it goes,
//     so a language is always written before its projects and a project
//     before its resources.
//   - Auxiliary catalogs, one flat payload each, dispatched by slug through
//     the parser registry:
//
//	langnames                  approved target languages
//	new-language-questions     new language questionnaires
//	temp-langnames             temporary target languages
//	approved-temp-langnames    temporary to approved code links
//
// Parsers never commit anything themselves. Every write goes through the
// Writer inside the caller's transaction, so a parser that fails half way
// leaves nothing behind once the caller rolls back.
//
// Required fields that are missing or have the wrong JSON type fail the parse
// with a *ParseError naming the catalog, the field and the element index.
package legacy
