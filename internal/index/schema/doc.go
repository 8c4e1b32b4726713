// Package schema defines the entities stored in the door43 catalog index.
//
// # Overview
//
// Every entity mirrors one row shape of the local SQLite index. Entities are
// keyed by natural slugs so that re-indexing an unchanged upstream catalog
// upserts the same rows instead of creating new ones:
//
//   - SourceLanguage: slug
//   - Project: (source language, slug)
//   - Resource: (source language, project, slug)
//   - TargetLanguage: slug, in either the approved or the temporary partition
//   - Questionnaire: the remote questionnaire id, not the slug
//   - Question: (questionnaire, remote question id)
//   - Catalog: slug
//   - Versification: slug
//   - ChunkMarker: (project slug, versification slug, chapter, verse)
//
// # Local identifiers
//
// Parents hand out local ids at insert time. Children reference the parent's
// local id rather than its slug:
//
//	qID, err := library.AddQuestionnaire(ctx, questionnaire)
//	if err != nil {
//	    return err
//	}
//	err = library.AddQuestion(ctx, question, qID)
//
// Questionnaire slugs are not stable upstream, so questions must never be
// joined to their questionnaire by slug.
//
// # Validation
//
// Each entity has a Validate method. The database layer calls it before every
// upsert so malformed rows fail the enclosing transaction instead of being
// written.
package schema
