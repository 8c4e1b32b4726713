package legacy

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/unfoldingword/door43-client/internal/index/fetch"
	"github.com/unfoldingword/door43-client/internal/index/schema"
)

// recorder is an in-memory Writer that logs every call in order.
type recorder struct {
	calls          []string
	nextID         int64
	sourceLangs    map[string]*schema.SourceLanguage
	projects       map[int64]*schema.Project
	projectLang    map[int64]int64
	resources      []*schema.Resource
	resourceProj   []int64
	targets        map[string]*schema.TargetLanguage
	temps          map[string]*schema.TargetLanguage
	approvals      map[string]string
	questionnaires map[int64]*schema.Questionnaire
	questions      map[int64][]*schema.Question
	markers        []*schema.ChunkMarker
	versifications int
}

func newRecorder() *recorder {
	return &recorder{
		nextID:         100,
		sourceLangs:    make(map[string]*schema.SourceLanguage),
		projects:       make(map[int64]*schema.Project),
		projectLang:    make(map[int64]int64),
		targets:        make(map[string]*schema.TargetLanguage),
		temps:          make(map[string]*schema.TargetLanguage),
		approvals:      make(map[string]string),
		questionnaires: make(map[int64]*schema.Questionnaire),
		questions:      make(map[int64][]*schema.Question),
	}
}

func (r *recorder) id() int64 {
	r.nextID++
	return r.nextID
}

func (r *recorder) AddSourceLanguage(ctx context.Context, lang *schema.SourceLanguage) (int64, error) {
	r.calls = append(r.calls, "language:"+lang.Slug)
	if existing, ok := r.sourceLangs[lang.Slug]; ok {
		return existing.ID, nil
	}
	lang.ID = r.id()
	r.sourceLangs[lang.Slug] = lang
	return lang.ID, nil
}

func (r *recorder) AddProject(ctx context.Context, project *schema.Project, languageID int64) (int64, error) {
	r.calls = append(r.calls, "project:"+project.Slug)
	for id, p := range r.projects {
		if p.Slug == project.Slug && r.projectLang[id] == languageID {
			return id, nil
		}
	}
	project.ID = r.id()
	r.projects[project.ID] = project
	r.projectLang[project.ID] = languageID
	return project.ID, nil
}

func (r *recorder) AddResource(ctx context.Context, resource *schema.Resource, projectID int64) (int64, error) {
	r.calls = append(r.calls, "resource:"+resource.Slug)
	if _, ok := r.projects[projectID]; !ok {
		return 0, fmt.Errorf("resource %s added before project %d", resource.Slug, projectID)
	}
	resource.ID = r.id()
	r.resources = append(r.resources, resource)
	r.resourceProj = append(r.resourceProj, projectID)
	return resource.ID, nil
}

func (r *recorder) AddVersification(ctx context.Context, v *schema.Versification) (int64, error) {
	r.calls = append(r.calls, "versification:"+v.Slug)
	r.versifications++
	return r.id(), nil
}

func (r *recorder) AddChunkMarker(ctx context.Context, m *schema.ChunkMarker, versificationID int64) error {
	r.calls = append(r.calls, "chunk:"+m.ProjectSlug)
	r.markers = append(r.markers, m)
	return nil
}

func (r *recorder) AddTargetLanguage(ctx context.Context, lang *schema.TargetLanguage) error {
	r.calls = append(r.calls, "target:"+lang.Slug)
	r.targets[lang.Slug] = lang
	return nil
}

func (r *recorder) AddTempTargetLanguage(ctx context.Context, lang *schema.TargetLanguage) error {
	r.calls = append(r.calls, "temp:"+lang.Slug)
	r.temps[lang.Slug] = lang
	return nil
}

func (r *recorder) ApproveTempTargetLanguage(ctx context.Context, tempSlug, approvedSlug string) error {
	r.calls = append(r.calls, "approve:"+tempSlug)
	r.approvals[tempSlug] = approvedSlug
	return nil
}

func (r *recorder) AddQuestionnaire(ctx context.Context, q *schema.Questionnaire) (int64, error) {
	r.calls = append(r.calls, "questionnaire:"+q.Slug)
	q.ID = r.id()
	r.questionnaires[q.ID] = q
	return q.ID, nil
}

func (r *recorder) AddQuestion(ctx context.Context, q *schema.Question, questionnaireID int64) error {
	if _, ok := r.questionnaires[questionnaireID]; !ok {
		return fmt.Errorf("question %d references unknown questionnaire %d", q.TdID, questionnaireID)
	}
	r.questions[questionnaireID] = append(r.questions[questionnaireID], q)
	return nil
}

var _ Writer = (*recorder)(nil)

// event is one recorded progress callback
type event struct {
	tag            string
	max, completed int64
}

func recordProgress(events *[]event) ProgressFunc {
	return func(tag string, max, completed int64) {
		*events = append(*events, event{tag, max, completed})
	}
}

// mapFetcher serves fixed bodies by URL and 404 for anything else.
type mapFetcher struct {
	bodies   map[string]string
	statuses map[string]int
	requests []string
}

func (f *mapFetcher) Get(ctx context.Context, url string, progress fetch.ProgressFunc) (*fetch.Response, error) {
	f.requests = append(f.requests, url)
	if code, ok := f.statuses[url]; ok {
		return &fetch.Response{URL: url, StatusCode: code, Status: fmt.Sprintf("%d %s", code, http.StatusText(code))}, nil
	}
	body, ok := f.bodies[url]
	if !ok {
		return &fetch.Response{URL: url, StatusCode: 404, Status: "404 Not Found"}, nil
	}
	if progress != nil {
		progress(int64(len(body)), int64(len(body)))
	}
	return &fetch.Response{URL: url, Body: []byte(body), StatusCode: 200, Status: "200 OK"}, nil
}

func requireParseError(t *testing.T, err error, field string, index int) *ParseError {
	t.Helper()
	pe, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("error = %v (%T), want *ParseError", err, err)
	}
	if pe.Field != field {
		t.Errorf("ParseError.Field = %q, want %q", pe.Field, field)
	}
	if pe.Index != index {
		t.Errorf("ParseError.Index = %d, want %d", pe.Index, index)
	}
	return pe
}
