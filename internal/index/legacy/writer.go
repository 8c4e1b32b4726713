package legacy

import (
	"context"

	"github.com/unfoldingword/door43-client/internal/index/schema"
)

// Writer is the subset of the index write contract used by parsers.
// All calls happen inside a transaction owned by the caller.
type Writer interface {
	AddSourceLanguage(ctx context.Context, lang *schema.SourceLanguage) (int64, error)
	AddProject(ctx context.Context, project *schema.Project, languageID int64) (int64, error)
	AddResource(ctx context.Context, resource *schema.Resource, projectID int64) (int64, error)
	AddVersification(ctx context.Context, v *schema.Versification) (int64, error)
	AddChunkMarker(ctx context.Context, marker *schema.ChunkMarker, versificationID int64) error
	AddTargetLanguage(ctx context.Context, lang *schema.TargetLanguage) error
	AddTempTargetLanguage(ctx context.Context, lang *schema.TargetLanguage) error
	ApproveTempTargetLanguage(ctx context.Context, tempSlug, approvedSlug string) error
	AddQuestionnaire(ctx context.Context, q *schema.Questionnaire) (int64, error)
	AddQuestion(ctx context.Context, q *schema.Question, questionnaireID int64) error
}

// ProgressFunc receives (tag, max, completed) progress events. max is -1
// when the total is unknown.
type ProgressFunc func(tag string, max, completed int64)

// report calls progress when it is set.
func report(progress ProgressFunc, tag string, max, completed int) {
	if progress != nil {
		progress(tag, int64(max), int64(completed))
	}
}
