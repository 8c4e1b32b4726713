package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	stdsync "sync"
	"testing"
	"time"

	"github.com/unfoldingword/door43-client/internal/index/db"
	"github.com/unfoldingword/door43-client/internal/index/fetch"
	"github.com/unfoldingword/door43-client/internal/index/legacy"
	"github.com/unfoldingword/door43-client/internal/index/schema"
)

// catalogServer serves catalog payloads by path.
type catalogServer struct {
	*httptest.Server
	mu       stdsync.Mutex
	bodies   map[string]string
	statuses map[string]int
}

func newCatalogServer(t *testing.T) *catalogServer {
	t.Helper()
	cs := &catalogServer{bodies: make(map[string]string), statuses: make(map[string]int)}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cs.mu.Lock()
		code, hasCode := cs.statuses[r.URL.Path]
		body, ok := cs.bodies[r.URL.Path]
		cs.mu.Unlock()
		if hasCode {
			w.WriteHeader(code)
			return
		}
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(cs.Close)
	return cs
}

func (cs *catalogServer) set(path, body string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.bodies[path] = strings.ReplaceAll(body, "{{host}}", cs.URL)
}

func (cs *catalogServer) setStatus(path string, code int) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.statuses[path] = code
}

// setupClient opens a fresh index and a client pointed at cs for global
// catalogs.
func setupClient(t *testing.T, cs *catalogServer, opts ...func(*Options)) (*Client, *db.DB) {
	t.Helper()

	library, err := db.OpenIndex(context.Background(), filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = library.Close() })

	o := Options{
		GlobalCatalogHost: cs.URL,
		Logger:            log.New(io.Discard, "", 0),
	}
	for _, fn := range opts {
		fn(&o)
	}
	f := fetch.New(fetch.Options{RetryMax: 0, Timeout: 10 * time.Second})
	return New(library, f, o), library
}

// registerCatalogs runs a primary update over an empty catalog so the
// global catalogs are registered.
func registerCatalogs(t *testing.T, c *Client, cs *catalogServer) {
	t.Helper()
	cs.set("/empty-catalog.json", `[]`)
	if err := c.UpdatePrimaryIndex(context.Background(), cs.URL+"/empty-catalog.json", nil); err != nil {
		t.Fatalf("UpdatePrimaryIndex() failed: %v", err)
	}
}

type event struct {
	tag            string
	max, completed int64
}

type eventLog struct {
	mu     stdsync.Mutex
	events []event
}

func (l *eventLog) listener(tag string, max, completed int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event{tag, max, completed})
}

func (l *eventLog) tagged(tag string) []event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []event
	for _, e := range l.events {
		if e.tag == tag {
			out = append(out, e)
		}
	}
	return out
}

func servePrimary(cs *catalogServer) {
	cs.set("/ts/txt/2/catalog.json", `[
		{"slug": "gen", "sort": "01", "lang_catalog": "{{host}}/ts/txt/2/gen/languages.json"},
		{"slug": "obs", "sort": "02", "lang_catalog": "{{host}}/ts/txt/2/obs/languages.json"}
	]`)
	cs.set("/ts/txt/2/gen/languages.json", `[
		{"language": {"slug": "en", "name": "English", "direction": "ltr"},
		 "project": {"name": "Genesis", "desc": ""},
		 "res_catalog": "{{host}}/ts/txt/2/gen/en/resources.json",
		 "chunks": "{{host}}/bible/txt/1/gen/chunks.json"},
		{"language": {"slug": "ar", "name": "العربية", "direction": "rtl"},
		 "project": {"name": "التكوين", "desc": ""},
		 "res_catalog": "{{host}}/ts/txt/2/gen/ar/resources.json"}
	]`)
	cs.set("/ts/txt/2/obs/languages.json", `[
		{"language": {"slug": "en", "name": "English", "direction": "ltr"},
		 "project": {"name": "Open Bible Stories", "desc": "an unrestricted visual mini-Bible"},
		 "res_catalog": "{{host}}/ts/txt/2/obs/en/resources.json"}
	]`)
	cs.set("/ts/txt/2/gen/en/resources.json", `[
		{"slug": "ulb", "name": "Unlocked Literal Bible", "status": {"checking_level": "3", "version": "3"},
		 "source": "{{host}}/ts/txt/2/gen/en/ulb/source.json",
		 "notes": "{{host}}/ts/txt/2/gen/en/notes.json",
		 "questions": "{{host}}/ts/txt/2/gen/en/questions.json",
		 "terms": "{{host}}/ts/txt/2/bible/en/terms.json"},
		{"slug": "udb", "name": "Unlocked Dynamic Bible", "status": {"checking_level": "3", "version": "3"},
		 "source": "{{host}}/ts/txt/2/gen/en/udb/source.json",
		 "notes": "{{host}}/ts/txt/2/gen/en/notes.json"}
	]`)
	cs.set("/ts/txt/2/gen/ar/resources.json", `[
		{"slug": "avd", "name": "Van Dyck", "status": {"checking_level": "3", "version": "1"},
		 "source": "{{host}}/ts/txt/2/gen/ar/avd/source.json"}
	]`)
	cs.set("/ts/txt/2/obs/en/resources.json", `[
		{"slug": "obs", "name": "Open Bible Stories", "status": {"checking_level": "3", "version": "4"},
		 "source": "{{host}}/ts/txt/2/obs/en/obs/source.json"}
	]`)
	cs.set("/bible/txt/1/gen/chunks.json", `[{"chp": "01", "firstvs": "01"}, {"chp": "01", "firstvs": "06"}]`)
}

// snapshot captures everything the index exposes, for comparison.
func snapshot(t *testing.T, idx db.Index) string {
	t.Helper()
	ctx := context.Background()
	var b strings.Builder

	langs, err := idx.GetSourceLanguages(ctx)
	if err != nil {
		t.Fatalf("GetSourceLanguages() failed: %v", err)
	}
	for _, l := range langs {
		fmt.Fprintf(&b, "lang %d %s %s %s\n", l.ID, l.Slug, l.Name, l.Direction)
		projects, err := idx.GetProjects(ctx, l.Slug)
		if err != nil {
			t.Fatalf("GetProjects() failed: %v", err)
		}
		for _, p := range projects {
			fmt.Fprintf(&b, "  project %d %s %s %d\n", p.ID, p.Slug, p.Name, p.Sort)
			resources, err := idx.GetResources(ctx, l.Slug, p.Slug)
			if err != nil {
				t.Fatalf("GetResources() failed: %v", err)
			}
			for _, r := range resources {
				fmt.Fprintf(&b, "    resource %d %s %s %s\n", r.ID, r.Slug, r.Type, r.FormatURL)
			}
		}
	}
	catalogs, err := idx.GetCatalogs(ctx)
	if err != nil {
		t.Fatalf("GetCatalogs() failed: %v", err)
	}
	for _, c := range catalogs {
		fmt.Fprintf(&b, "catalog %s %s\n", c.Slug, c.URL)
	}
	stats, err := idx.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() failed: %v", err)
	}
	fmt.Fprintf(&b, "stats %+v\n", *stats)
	return b.String()
}

func TestUpdatePrimaryIndex(t *testing.T) {
	cs := newCatalogServer(t)
	servePrimary(cs)
	c, library := setupClient(t, cs)
	ctx := context.Background()

	var log eventLog
	if err := c.UpdatePrimaryIndex(ctx, cs.URL+"/ts/txt/2/catalog.json", log.listener); err != nil {
		t.Fatalf("UpdatePrimaryIndex() failed: %v", err)
	}

	langs, err := library.GetSourceLanguages(ctx)
	if err != nil {
		t.Fatalf("GetSourceLanguages() failed: %v", err)
	}
	if len(langs) != 2 {
		t.Fatalf("got %d source languages, want 2", len(langs))
	}

	projects, err := library.GetProjects(ctx, "en")
	if err != nil {
		t.Fatalf("GetProjects() failed: %v", err)
	}
	var slugs []string
	for _, p := range projects {
		slugs = append(slugs, p.Slug)
	}
	if got := strings.Join(slugs, ","); got != "bible,gen,obs" {
		t.Errorf("en projects = %s, want bible,gen,obs", got)
	}

	resources, err := library.GetResources(ctx, "en", "gen")
	if err != nil {
		t.Fatalf("GetResources() failed: %v", err)
	}
	if len(resources) != 4 {
		t.Errorf("got %d gen resources, want 4 (ulb, udb, tn, tq)", len(resources))
	}

	tw, err := library.GetResource(ctx, "en", "bible", "tw")
	if err != nil {
		t.Fatalf("GetResource() failed: %v", err)
	}
	if tw == nil || tw.Type != schema.ResourceTypeDict {
		t.Errorf("tw = %+v, want dict resource", tw)
	}

	markers, err := library.GetChunkMarkers(ctx, "gen", "en-US")
	if err != nil {
		t.Fatalf("GetChunkMarkers() failed: %v", err)
	}
	if len(markers) != 2 {
		t.Errorf("got %d chunk markers, want 2", len(markers))
	}

	if len(log.tagged("catalog")) == 0 {
		t.Error("no catalog byte progress events")
	}
	want := []event{{"projects", 2, 1}, {"projects", 2, 2}}
	got := log.tagged("projects")
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("projects events = %+v, want %+v", got, want)
	}
}

func TestUpdatePrimaryIndex_Idempotent(t *testing.T) {
	cs := newCatalogServer(t)
	servePrimary(cs)
	c, library := setupClient(t, cs)
	ctx := context.Background()
	url := cs.URL + "/ts/txt/2/catalog.json"

	if err := c.UpdatePrimaryIndex(ctx, url, nil); err != nil {
		t.Fatalf("first UpdatePrimaryIndex() failed: %v", err)
	}
	first := snapshot(t, library)

	if err := c.UpdatePrimaryIndex(ctx, url, nil); err != nil {
		t.Fatalf("second UpdatePrimaryIndex() failed: %v", err)
	}
	second := snapshot(t, library)

	if first != second {
		t.Errorf("index changed on re-run:\nfirst:\n%s\nsecond:\n%s", first, second)
	}
}

func TestUpdatePrimaryIndex_AtomicOnParseFailure(t *testing.T) {
	cs := newCatalogServer(t)
	servePrimary(cs)
	c, library := setupClient(t, cs, func(o *Options) { o.GlobalCatalogHost = "https://old.example.org" })
	ctx := context.Background()

	if err := c.UpdatePrimaryIndex(ctx, cs.URL+"/ts/txt/2/catalog.json", nil); err != nil {
		t.Fatalf("UpdatePrimaryIndex() failed: %v", err)
	}
	before := snapshot(t, library)

	// Five languages, the third missing its name.
	cs.set("/bad/catalog.json", `[{"slug": "mat", "sort": 40, "lang_catalog": "{{host}}/bad/languages.json"}]`)
	var entries []string
	for i, slug := range []string{"fr", "de", "es", "pt", "it"} {
		name := `"name": "` + strings.ToUpper(slug) + `", `
		if i == 2 {
			name = ""
		}
		entries = append(entries, `{"language": {"slug": "`+slug+`", `+name+`"direction": "ltr"},
			"project": {"name": "Matthew"}, "res_catalog": "{{host}}/bad/res.json"}`)
	}
	cs.set("/bad/languages.json", "["+strings.Join(entries, ",")+"]")
	cs.set("/bad/res.json", `[]`)

	c.opts.GlobalCatalogHost = "https://new.example.org"
	err := c.UpdatePrimaryIndex(ctx, cs.URL+"/bad/catalog.json", nil)
	if !IsParse(err) {
		t.Fatalf("UpdatePrimaryIndex() error = %v, want parse error", err)
	}

	if after := snapshot(t, library); after != before {
		t.Errorf("index changed after failed update:\nbefore:\n%s\nafter:\n%s", before, after)
	}
	fr, err := library.GetSourceLanguage(ctx, "fr")
	if err != nil {
		t.Fatalf("GetSourceLanguage() failed: %v", err)
	}
	if fr != nil {
		t.Error("language from failed update is visible")
	}
	if library.InTransaction() {
		t.Error("transaction left open after failure")
	}
}

func TestUpdatePrimaryIndex_TransportFailure(t *testing.T) {
	cs := newCatalogServer(t)
	servePrimary(cs)
	cs.setStatus("/ts/txt/2/obs/languages.json", http.StatusInternalServerError)
	c, library := setupClient(t, cs)
	ctx := context.Background()

	err := c.UpdatePrimaryIndex(ctx, cs.URL+"/ts/txt/2/catalog.json", nil)
	var se *fetch.StatusError
	if !errors.As(err, &se) || se.StatusCode != 500 {
		t.Fatalf("UpdatePrimaryIndex() error = %v, want 500 status error", err)
	}
	if !IsTransport(err) {
		t.Error("IsTransport() = false for status error")
	}

	// gen was fully indexed before obs failed; none of it is visible.
	langs, err := library.GetSourceLanguages(ctx)
	if err != nil {
		t.Fatalf("GetSourceLanguages() failed: %v", err)
	}
	if len(langs) != 0 {
		t.Errorf("got %d languages after failed update, want 0", len(langs))
	}
	catalogs, err := library.GetCatalogs(ctx)
	if err != nil {
		t.Fatalf("GetCatalogs() failed: %v", err)
	}
	if len(catalogs) != 0 {
		t.Errorf("global catalogs registered despite rollback: %d", len(catalogs))
	}
}

func TestUpdatePrimaryIndex_MissingCatalog(t *testing.T) {
	cs := newCatalogServer(t)
	c, _ := setupClient(t, cs)

	err := c.UpdatePrimaryIndex(context.Background(), cs.URL+"/nope.json", nil)
	if fetch.StatusCode(err) != http.StatusNotFound {
		t.Errorf("UpdatePrimaryIndex() error = %v, want 404", err)
	}
}

func TestUpdatePrimaryIndex_GlobalCatalogHost(t *testing.T) {
	cs := newCatalogServer(t)
	c, library := setupClient(t, cs)
	registerCatalogs(t, c, cs)

	catalogs, err := library.GetCatalogs(context.Background())
	if err != nil {
		t.Fatalf("GetCatalogs() failed: %v", err)
	}
	want := map[string]string{
		"langnames":               cs.URL + "/exports/langnames.json",
		"new-language-questions":  cs.URL + "/api/questionnaire/",
		"temp-langnames":          cs.URL + "/api/templanguages/",
		"approved-temp-langnames": cs.URL + "/api/templanguages/assignment/changed/",
	}
	if len(catalogs) != len(want) {
		t.Fatalf("got %d catalogs, want %d", len(catalogs), len(want))
	}
	for _, cat := range catalogs {
		if want[cat.Slug] != cat.URL {
			t.Errorf("catalog %s url = %s, want %s", cat.Slug, cat.URL, want[cat.Slug])
		}
	}
}

func TestGlobalCatalogs_DefaultHost(t *testing.T) {
	for _, c := range GlobalCatalogs("") {
		if !strings.HasPrefix(c.URL, DefaultGlobalCatalogHost+"/") {
			t.Errorf("catalog %s url = %s, want default host", c.Slug, c.URL)
		}
	}
	for _, c := range GlobalCatalogs("http://localhost:8090/") {
		if strings.Contains(c.URL, "8090//") {
			t.Errorf("double slash in %s", c.URL)
		}
	}
}

func TestUpdateCatalogIndex_Langnames(t *testing.T) {
	cs := newCatalogServer(t)
	c, library := setupClient(t, cs)
	registerCatalogs(t, c, cs)
	cs.set("/exports/langnames.json", `[
		{"lc": "aa", "ln": "Afaraf", "ang": "Afar", "ld": "ltr", "gl": false, "lr": "Africa"},
		{"lc": "ab", "ln": "Аҧсуа", "ang": "Abkhazian", "ld": "ltr"}
	]`)

	var log eventLog
	if err := c.UpdateCatalogIndex(context.Background(), "langnames", log.listener); err != nil {
		t.Fatalf("UpdateCatalogIndex() failed: %v", err)
	}

	langs, err := library.GetTargetLanguages(context.Background())
	if err != nil {
		t.Fatalf("GetTargetLanguages() failed: %v", err)
	}
	if len(langs) != 2 {
		t.Fatalf("got %d target languages, want 2", len(langs))
	}
	if langs[1].Slug != "ab" || langs[1].IsGatewayLanguage {
		t.Errorf("ab = %+v, want gateway flag false", langs[1])
	}

	want := []event{{"langnames", 2, 1}, {"langnames", 2, 2}}
	if len(log.events) != len(want) {
		t.Fatalf("got %d events, want %d: %+v", len(log.events), len(want), log.events)
	}
	for i := range want {
		if log.events[i] != want[i] {
			t.Errorf("events[%d] = %+v, want %+v", i, log.events[i], want[i])
		}
	}
}

func TestUpdateCatalogIndex_ReadsSeeCommittedStateOnly(t *testing.T) {
	cs := newCatalogServer(t)
	c, library := setupClient(t, cs)
	registerCatalogs(t, c, cs)
	cs.set("/exports/langnames.json", `[
		{"lc": "aa", "ln": "Afaraf", "ang": "Afar", "ld": "ltr"},
		{"lc": "ab", "ln": "Аҧсуа", "ang": "Abkhazian", "ld": "ltr"}
	]`)

	ctx := context.Background()
	var seen []int
	err := c.UpdateCatalogIndex(ctx, "langnames", func(tag string, max, completed int64) {
		langs, err := c.Index().GetTargetLanguages(ctx)
		if err != nil {
			t.Errorf("GetTargetLanguages() during update failed: %v", err)
			return
		}
		seen = append(seen, len(langs))
	})
	if err != nil {
		t.Fatalf("UpdateCatalogIndex() failed: %v", err)
	}
	for i, n := range seen {
		if n != 0 {
			t.Errorf("read %d during update saw %d uncommitted languages", i, n)
		}
	}

	langs, err := library.GetTargetLanguages(ctx)
	if err != nil {
		t.Fatalf("GetTargetLanguages() failed: %v", err)
	}
	if len(langs) != 2 {
		t.Errorf("got %d target languages after commit, want 2", len(langs))
	}
}

func TestUpdateCatalogIndex_QuestionnaireProgress(t *testing.T) {
	question := func(id, sort int) string {
		return fmt.Sprintf(`{"id": %d, "text": "Q%d", "help": "", "required": false, "input_type": "string", "sort": %d, "depends_on": null}`, id, id, sort)
	}
	questions := func(start, n int) string {
		var qs []string
		for i := 0; i < n; i++ {
			qs = append(qs, question(start+i, i+1))
		}
		return "[" + strings.Join(qs, ",") + "]"
	}

	tests := []struct {
		name    string
		payload string
		want    []event
	}{
		{
			name:    "one questionnaire reports per question",
			payload: `{"languages": [{"slug": "en", "name": "English", "dir": "ltr", "questionnaire_id": 1, "questions": ` + questions(1, 10) + `}]}`,
			want: func() []event {
				var e []event
				for i := int64(1); i <= 10; i++ {
					e = append(e, event{"new-language-questions", 10, i})
				}
				return e
			}(),
		},
		{
			name: "two questionnaires report per questionnaire",
			payload: `{"languages": [
				{"slug": "en", "name": "English", "dir": "ltr", "questionnaire_id": 1, "questions": ` + questions(1, 5) + `},
				{"slug": "ar", "name": "Arabic", "dir": "rtl", "questionnaire_id": 2, "questions": ` + questions(100, 3) + `}
			]}`,
			want: []event{{"new-language-questions", 2, 1}, {"new-language-questions", 2, 2}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs := newCatalogServer(t)
			c, _ := setupClient(t, cs)
			registerCatalogs(t, c, cs)
			cs.set("/api/questionnaire/", tt.payload)

			var log eventLog
			if err := c.UpdateCatalogIndex(context.Background(), "new-language-questions", log.listener); err != nil {
				t.Fatalf("UpdateCatalogIndex() failed: %v", err)
			}
			if len(log.events) != len(tt.want) {
				t.Fatalf("got %d events, want %d: %+v", len(log.events), len(tt.want), log.events)
			}
			for i := range tt.want {
				if log.events[i] != tt.want[i] {
					t.Errorf("events[%d] = %+v, want %+v", i, log.events[i], tt.want[i])
				}
			}
		})
	}
}

func TestUpdateCatalogIndex_QuestionnaireRollback(t *testing.T) {
	cs := newCatalogServer(t)
	c, library := setupClient(t, cs)
	registerCatalogs(t, c, cs)
	cs.set("/api/questionnaire/", `{"languages": [{"slug": "en", "name": "English", "dir": "ltr", "questionnaire_id": 1, "questions": [
		{"id": 1, "text": "Name?", "help": "", "required": true, "input_type": "string", "sort": 1},
		{"id": 2, "help": "", "required": true, "input_type": "string", "sort": 2}
	]}]}`)

	err := c.UpdateCatalogIndex(context.Background(), "new-language-questions", nil)
	if !IsParse(err) {
		t.Fatalf("UpdateCatalogIndex() error = %v, want parse error", err)
	}
	qs, err := library.GetQuestionnaires(context.Background())
	if err != nil {
		t.Fatalf("GetQuestionnaires() failed: %v", err)
	}
	if len(qs) != 0 {
		t.Errorf("partially parsed questionnaire visible: %+v", qs)
	}
}

func TestUpdateCatalogIndex_TemporaryApproval(t *testing.T) {
	cs := newCatalogServer(t)
	c, library := setupClient(t, cs)
	registerCatalogs(t, c, cs)
	cs.set("/exports/langnames.json", `[{"lc": "kff-x-dmorla", "ln": "Dhurwa", "ang": "Dhurwa", "ld": "ltr", "gl": false}]`)
	cs.set("/api/templanguages/", `[{"lc": "qaa-x-802d08", "ln": "Dhurwa (proposed)", "ld": "ltr"}]`)
	cs.set("/api/templanguages/assignment/changed/", `[{"qaa-x-802d08": "kff-x-dmorla"}]`)

	ctx := context.Background()
	for _, slug := range []string{"langnames", "temp-langnames", "approved-temp-langnames"} {
		var log eventLog
		if err := c.UpdateCatalogIndex(ctx, slug, log.listener); err != nil {
			t.Fatalf("UpdateCatalogIndex(%s) failed: %v", slug, err)
		}
		if got := log.tagged(slug); len(got) != 1 || got[0] != (event{slug, 1, 1}) {
			t.Errorf("%s events = %+v", slug, got)
		}
	}

	temp, err := library.GetTargetLanguage(ctx, "qaa-x-802d08")
	if err != nil {
		t.Fatalf("GetTargetLanguage() failed: %v", err)
	}
	if temp == nil || !temp.Temporary {
		t.Errorf("GetTargetLanguage(qaa-x-802d08) = %+v, want temporary language", temp)
	}

	approved, err := library.GetApprovedTargetLanguage(ctx, "qaa-x-802d08")
	if err != nil {
		t.Fatalf("GetApprovedTargetLanguage() failed: %v", err)
	}
	if approved == nil || approved.Slug != "kff-x-dmorla" {
		t.Errorf("GetApprovedTargetLanguage() = %+v, want kff-x-dmorla", approved)
	}
}

func TestUpdateCatalogIndex_EmptyTemporaryPayloadNoEvents(t *testing.T) {
	cs := newCatalogServer(t)
	c, _ := setupClient(t, cs)
	registerCatalogs(t, c, cs)
	cs.set("/api/templanguages/", `[]`)

	called := false
	err := c.UpdateCatalogIndex(context.Background(), "temp-langnames", func(string, int64, int64) {
		called = true
	})
	if err != nil {
		t.Fatalf("UpdateCatalogIndex() failed: %v", err)
	}
	if called {
		t.Error("listener called for empty payload")
	}
}

func TestUpdateCatalogIndex_InvalidValueIsParseFailure(t *testing.T) {
	tests := []struct {
		name    string
		slug    string
		path    string
		payload string
	}{
		{"empty language name", "langnames", "/exports/langnames.json",
			`[{"lc": "ab", "ln": "Abkhaz", "ang": "Abkhaz", "ld": "ltr"}, {"lc": "aa", "ln": "", "ang": "Afar", "ld": "ltr"}]`},
		{"empty anglicized name", "langnames", "/exports/langnames.json",
			`[{"lc": "aa", "ln": "Afaraf", "ang": "", "ld": "ltr"}]`},
		{"zero questionnaire id", "new-language-questions", "/api/questionnaire/",
			`{"languages": [{"slug": "en", "name": "English", "dir": "ltr", "questionnaire_id": 0, "questions": []}]}`},
		{"empty question text", "new-language-questions", "/api/questionnaire/",
			`{"languages": [{"slug": "en", "name": "English", "dir": "ltr", "questionnaire_id": 1, "questions": [
				{"id": 1, "text": "", "help": "", "required": true, "input_type": "string", "sort": 1}]}]}`},
		{"missing question help", "new-language-questions", "/api/questionnaire/",
			`{"languages": [{"slug": "en", "name": "English", "dir": "ltr", "questionnaire_id": 1, "questions": [
				{"id": 1, "text": "Name?", "required": true, "input_type": "string", "sort": 1}]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs := newCatalogServer(t)
			c, library := setupClient(t, cs)
			registerCatalogs(t, c, cs)
			cs.set(tt.path, tt.payload)
			before := snapshot(t, library)

			err := c.UpdateCatalogIndex(context.Background(), tt.slug, nil)
			if err == nil {
				t.Fatal("UpdateCatalogIndex() succeeded, want parse failure")
			}
			if !IsParse(err) {
				t.Errorf("IsParse(%v) = false", err)
			}
			if IsTransport(err) {
				t.Errorf("IsTransport(%v) = true", err)
			}
			var pe *legacy.ParseError
			if errors.As(err, &pe) && pe.Catalog != tt.slug {
				t.Errorf("ParseError.Catalog = %q, want %q", pe.Catalog, tt.slug)
			}
			if after := snapshot(t, library); after != before {
				t.Errorf("store changed:\nbefore:\n%s\nafter:\n%s", before, after)
			}
		})
	}
}

func TestUpdateCatalogIndex_UnknownCatalog(t *testing.T) {
	cs := newCatalogServer(t)
	c, library := setupClient(t, cs)
	registerCatalogs(t, c, cs)
	before := snapshot(t, library)

	err := c.UpdateCatalogIndex(context.Background(), "not-a-real-catalog", nil)
	if !errors.Is(err, ErrUnknownCatalog) {
		t.Fatalf("UpdateCatalogIndex() error = %v, want ErrUnknownCatalog", err)
	}
	if after := snapshot(t, library); after != before {
		t.Errorf("store changed:\nbefore:\n%s\nafter:\n%s", before, after)
	}
}

func TestUpdateCatalogIndex_UnsupportedCatalog(t *testing.T) {
	cs := newCatalogServer(t)
	c, library := setupClient(t, cs)
	ctx := context.Background()

	if err := library.BeginTransaction(ctx); err != nil {
		t.Fatalf("BeginTransaction() failed: %v", err)
	}
	if err := library.AddCatalog(ctx, &schema.Catalog{Slug: "bible-names", URL: cs.URL + "/names.json"}); err != nil {
		t.Fatalf("AddCatalog() failed: %v", err)
	}
	if err := library.EndTransaction(true); err != nil {
		t.Fatalf("EndTransaction() failed: %v", err)
	}

	err := c.UpdateCatalogIndex(ctx, "bible-names", nil)
	if !errors.Is(err, ErrUnsupportedCatalog) {
		t.Fatalf("UpdateCatalogIndex() error = %v, want ErrUnsupportedCatalog", err)
	}
	if library.InTransaction() {
		t.Error("transaction opened for unsupported catalog")
	}
}

func TestUpdateCatalogIndex_StatusError(t *testing.T) {
	cs := newCatalogServer(t)
	c, library := setupClient(t, cs)
	registerCatalogs(t, c, cs)
	cs.setStatus("/exports/langnames.json", http.StatusServiceUnavailable)

	err := c.UpdateCatalogIndex(context.Background(), "langnames", nil)
	var se *fetch.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("UpdateCatalogIndex() error = %v, want *fetch.StatusError", err)
	}
	if se.StatusCode != http.StatusServiceUnavailable || !strings.Contains(err.Error(), "503 Service Unavailable") {
		t.Errorf("StatusError = %+v", se)
	}
	if IsParse(err) {
		t.Error("IsParse() = true for transport failure")
	}
	langs, _ := library.GetTargetLanguages(context.Background())
	if len(langs) != 0 {
		t.Errorf("got %d target languages, want 0", len(langs))
	}
}

func TestUpdateCatalogIndex_Serialized(t *testing.T) {
	cs := newCatalogServer(t)
	c, library := setupClient(t, cs)
	registerCatalogs(t, c, cs)
	cs.set("/exports/langnames.json", `[{"lc": "aa", "ln": "Afaraf", "ang": "Afar", "ld": "ltr"}]`)

	var wg stdsync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- c.UpdateCatalogIndex(context.Background(), "langnames", nil)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("concurrent UpdateCatalogIndex() failed: %v", err)
		}
	}
	langs, err := library.GetTargetLanguages(context.Background())
	if err != nil {
		t.Fatalf("GetTargetLanguages() failed: %v", err)
	}
	if len(langs) != 1 {
		t.Errorf("got %d target languages, want 1", len(langs))
	}
}

// recordingObserver captures observer callbacks.
type recordingObserver struct {
	mu       stdsync.Mutex
	started  []string
	finished []error
	progress int
}

func (o *recordingObserver) SyncStarted(runID, target string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = append(o.started, target)
}

func (o *recordingObserver) Progress(runID, tag string, max, completed int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.progress++
}

func (o *recordingObserver) SyncFinished(runID, target string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished = append(o.finished, err)
}

func TestClient_Observer(t *testing.T) {
	cs := newCatalogServer(t)
	obs := &recordingObserver{}
	c, _ := setupClient(t, cs, func(o *Options) { o.Observer = obs })
	registerCatalogs(t, c, cs)
	cs.set("/exports/langnames.json", `[{"lc": "aa", "ln": "Afaraf", "ang": "Afar", "ld": "ltr"}]`)

	if err := c.UpdateCatalogIndex(context.Background(), "langnames", nil); err != nil {
		t.Fatalf("UpdateCatalogIndex() failed: %v", err)
	}
	_ = c.UpdateCatalogIndex(context.Background(), "nope", nil)

	if len(obs.started) != 3 || len(obs.finished) != 3 {
		t.Fatalf("started = %v, finished = %v; want 3 each", obs.started, obs.finished)
	}
	if obs.started[1] != "catalog langnames" {
		t.Errorf("started[1] = %q", obs.started[1])
	}
	if obs.finished[1] != nil || !errors.Is(obs.finished[2], ErrUnknownCatalog) {
		t.Errorf("finished = %v", obs.finished)
	}
	if obs.progress == 0 {
		t.Error("observer saw no progress")
	}
}

// fakeContainers records downloads in memory.
type fakeContainers struct {
	downloaded []string
}

func (f *fakeContainers) Download(ctx context.Context, lang, project, resource string) (string, error) {
	p := lang + "_" + project + "_" + resource + ".tsrc"
	f.downloaded = append(f.downloaded, p)
	return p, nil
}

func (f *fakeContainers) Open(ctx context.Context, lang, project, resource string) (string, error) {
	return lang + "_" + project + "_" + resource, nil
}

func (f *fakeContainers) Close(ctx context.Context, lang, project, resource string) (string, error) {
	return lang + "_" + project + "_" + resource + ".tsrc", nil
}

func (f *fakeContainers) List(ctx context.Context) ([]ContainerInfo, error) {
	var out []ContainerInfo
	for _, p := range f.downloaded {
		out = append(out, ContainerInfo{Path: p})
	}
	return out, nil
}

func TestClient_Containers(t *testing.T) {
	cs := newCatalogServer(t)
	servePrimary(cs)
	ctx := context.Background()

	c, _ := setupClient(t, cs)
	if _, err := c.DownloadResourceContainer(ctx, "en", "gen", "ulb"); !errors.Is(err, ErrNotImplemented) {
		t.Errorf("DownloadResourceContainer() error = %v, want ErrNotImplemented", err)
	}
	if _, err := c.ProjectUpdates(ctx, "en"); !errors.Is(err, ErrNotImplemented) {
		t.Errorf("ProjectUpdates() error = %v, want ErrNotImplemented", err)
	}
	if _, err := c.SourceLanguageUpdates(ctx); !errors.Is(err, ErrNotImplemented) {
		t.Errorf("SourceLanguageUpdates() error = %v, want ErrNotImplemented", err)
	}

	store := &fakeContainers{}
	c, _ = setupClient(t, cs, func(o *Options) { o.Containers = store })
	if err := c.UpdatePrimaryIndex(ctx, cs.URL+"/ts/txt/2/catalog.json", nil); err != nil {
		t.Fatalf("UpdatePrimaryIndex() failed: %v", err)
	}

	path, err := c.DownloadResourceContainer(ctx, "en", "gen", "ulb")
	if err != nil {
		t.Fatalf("DownloadResourceContainer() failed: %v", err)
	}
	if path != "en_gen_ulb.tsrc" {
		t.Errorf("path = %q", path)
	}
	if _, err := c.DownloadResourceContainer(ctx, "en", "gen", "nope"); err == nil {
		t.Error("DownloadResourceContainer() accepted a resource that is not indexed")
	}
	list, err := c.ListResourceContainers(ctx)
	if err != nil || len(list) != 1 {
		t.Errorf("ListResourceContainers() = %v, %v", list, err)
	}
}
