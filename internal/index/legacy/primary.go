package legacy

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/unfoldingword/door43-client/internal/index/fetch"
	"github.com/unfoldingword/door43-client/internal/index/schema"
)

// Progress tags emitted while indexing the primary catalog.
const (
	TagCatalog  = "catalog"
	TagProjects = "projects"
)

// Chunk markers from the legacy API are defined against this versification.
var defaultVersification = schema.Versification{Slug: "en-US", Name: "American English"}

// Help resources derived from a resource catalog entry.
var helps = []struct {
	field string
	slug  string
	name  string
}{
	{"notes", "tn", "translationNotes"},
	{"questions", "tq", "translationQuestions"},
}

// Primary indexes the legacy primary catalog:
//
//	catalog.json          [{"slug": "gen", "sort": "01", "lang_catalog": "<url>"}]
//	<lang_catalog>        [{"language": {"slug", "name", "direction"},
//	                        "project": {"name", "desc", "sort"},
//	                        "res_catalog": "<url>", "chunks": "<url>"}]
//	<res_catalog>         [{"slug", "name", "status": {"checking_level", "version"},
//	                        "source", "notes", "questions", "terms", "date_modified"}]
//
// Language and resource catalogs are fetched with Fetcher as they are reached.
// A "projects" progress event is emitted after each catalog.json entry.
type Primary struct {
	Fetcher fetch.Fetcher
	Logger  *log.Logger
}

// primaryRun carries state across one Parse call.
type primaryRun struct {
	*Primary
	lib             Writer
	versificationID int64
	chunksIndexed   map[string]bool
}

// Parse walks the catalog top-down, writing every language before its
// projects and every project before its resources.
func (p *Primary) Parse(ctx context.Context, data []byte, lib Writer, progress ProgressFunc) error {
	entries, err := decodeList(TagCatalog, data)
	if err != nil {
		return err
	}

	run := &primaryRun{
		Primary:       p,
		lib:           lib,
		chunksIndexed: make(map[string]bool),
	}

	for i, entry := range entries {
		if err := run.project(ctx, entry); err != nil {
			return err
		}
		report(progress, TagProjects, len(entries), i+1)
	}
	return nil
}

func (r *primaryRun) project(ctx context.Context, entry object) error {
	projectSlug, err := entry.str("slug")
	if err != nil {
		return err
	}
	sort, err := entry.optInt("sort")
	if err != nil {
		return err
	}
	langCatalogURL, err := entry.str("lang_catalog")
	if err != nil {
		return err
	}

	catalog := projectSlug + "/languages"
	body, err := r.get(ctx, langCatalogURL)
	if err != nil {
		return err
	}
	languages, err := decodeList(catalog, body)
	if err != nil {
		return err
	}

	for _, el := range languages {
		if err := r.language(ctx, el, projectSlug, int(sort)); err != nil {
			return err
		}
	}
	return nil
}

func (r *primaryRun) language(ctx context.Context, el object, projectSlug string, sort int) error {
	lobj, err := el.obj("language")
	if err != nil {
		return err
	}
	var lang schema.SourceLanguage
	if lang.Slug, err = lobj.str("slug"); err != nil {
		return err
	}
	if lang.Name, err = lobj.str("name"); err != nil {
		return err
	}
	if lang.Direction, err = direction(lobj, "direction"); err != nil {
		return err
	}
	if err := lobj.check(&lang); err != nil {
		return err
	}
	languageID, err := r.lib.AddSourceLanguage(ctx, &lang)
	if err != nil {
		return err
	}

	pobj, err := el.obj("project")
	if err != nil {
		return err
	}
	project := schema.Project{Slug: projectSlug, Sort: sort}
	if project.Name, err = pobj.str("name"); err != nil {
		return err
	}
	if project.Description, err = pobj.optStr("desc"); err != nil {
		return err
	}
	if project.Icon, err = pobj.optStr("icon"); err != nil {
		return err
	}
	if _, ok := pobj.lookup("sort"); ok {
		s, err := pobj.integer("sort")
		if err != nil {
			return err
		}
		project.Sort = int(s)
	}
	if project.ChunksURL, err = el.optStr("chunks"); err != nil {
		return err
	}
	if err := pobj.check(&project); err != nil {
		return err
	}
	projectID, err := r.lib.AddProject(ctx, &project, languageID)
	if err != nil {
		return err
	}

	resCatalogURL, err := el.str("res_catalog")
	if err != nil {
		return err
	}
	if err := r.resources(ctx, resCatalogURL, lang.Slug, languageID, projectSlug, projectID); err != nil {
		return err
	}

	if project.ChunksURL != "" && !r.chunksIndexed[projectSlug] {
		if err := r.chunks(ctx, project.ChunksURL, projectSlug); err != nil {
			return err
		}
		r.chunksIndexed[projectSlug] = true
	}
	return nil
}

func (r *primaryRun) resources(ctx context.Context, url, langSlug string, languageID int64, projectSlug string, projectID int64) error {
	catalog := fmt.Sprintf("%s/%s/resources", projectSlug, langSlug)
	body, err := r.get(ctx, url)
	if err != nil {
		return err
	}
	entries, err := decodeList(catalog, body)
	if err != nil {
		return err
	}

	for _, el := range entries {
		res := schema.Resource{Type: schema.ResourceTypeBook}
		if res.Slug, err = el.str("slug"); err != nil {
			return err
		}
		if res.Name, err = el.str("name"); err != nil {
			return err
		}
		status, err := el.optObj("status")
		if err != nil {
			return err
		}
		if res.CheckingLevel, err = status.text("checking_level"); err != nil {
			return err
		}
		if res.Version, err = status.text("version"); err != nil {
			return err
		}
		if res.FormatURL, err = el.optStr("source"); err != nil {
			return err
		}
		if res.ModifiedAt, err = el.text("date_modified"); err != nil {
			return err
		}
		if err := el.check(&res); err != nil {
			return err
		}
		if _, err := r.lib.AddResource(ctx, &res, projectID); err != nil {
			return err
		}

		for _, h := range helps {
			helpURL, err := el.optStr(h.field)
			if err != nil {
				return err
			}
			if helpURL == "" {
				continue
			}
			help := schema.Resource{
				Slug:          h.slug,
				Name:          h.name,
				Type:          schema.ResourceTypeHelp,
				CheckingLevel: res.CheckingLevel,
				Version:       res.Version,
				FormatURL:     helpURL,
				ModifiedAt:    res.ModifiedAt,
			}
			if _, err := r.lib.AddResource(ctx, &help, projectID); err != nil {
				return err
			}
		}

		termsURL, err := el.optStr("terms")
		if err != nil {
			return err
		}
		if termsURL != "" {
			if err := r.words(ctx, termsURL, languageID, projectSlug, res); err != nil {
				return err
			}
		}
	}
	return nil
}

// words indexes translationWords, which live in a shared project per language
// rather than under each book.
func (r *primaryRun) words(ctx context.Context, termsURL string, languageID int64, projectSlug string, res schema.Resource) error {
	wordsSlug := "bible"
	if projectSlug == "obs" {
		wordsSlug = "bible-obs"
	}
	project := schema.Project{Slug: wordsSlug, Name: "translationWords"}
	projectID, err := r.lib.AddProject(ctx, &project, languageID)
	if err != nil {
		return err
	}
	tw := schema.Resource{
		Slug:          "tw",
		Name:          "translationWords",
		Type:          schema.ResourceTypeDict,
		CheckingLevel: res.CheckingLevel,
		Version:       res.Version,
		FormatURL:     termsURL,
		ModifiedAt:    res.ModifiedAt,
	}
	_, err = r.lib.AddResource(ctx, &tw, projectID)
	return err
}

// chunks indexes a project's chunk markers. A chunks document missing
// upstream is skipped: several legacy projects never had one.
func (r *primaryRun) chunks(ctx context.Context, url, projectSlug string) error {
	resp, err := r.Fetcher.Get(ctx, url, nil)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusNotFound {
		r.logf("no chunks for %s at %s", projectSlug, url)
		return nil
	}
	if err := resp.CheckStatus(); err != nil {
		return err
	}

	markers, err := decodeList(projectSlug+"/chunks", resp.Body)
	if err != nil {
		return err
	}
	if len(markers) == 0 {
		return nil
	}

	if r.versificationID == 0 {
		v := defaultVersification
		if r.versificationID, err = r.lib.AddVersification(ctx, &v); err != nil {
			return err
		}
	}

	for _, el := range markers {
		m := schema.ChunkMarker{ProjectSlug: projectSlug, VersificationSlug: defaultVersification.Slug}
		if m.Chapter, err = el.text("chp"); err != nil {
			return err
		}
		if m.Verse, err = el.text("firstvs"); err != nil {
			return err
		}
		if m.Chapter == "" {
			return el.fail("chp", ErrMissingField, "")
		}
		if m.Verse == "" {
			return el.fail("firstvs", ErrMissingField, "")
		}
		if err := el.check(&m); err != nil {
			return err
		}
		if err := r.lib.AddChunkMarker(ctx, &m, r.versificationID); err != nil {
			return err
		}
	}
	return nil
}

// get fetches a nested catalog and fails on any non-200 status.
func (r *primaryRun) get(ctx context.Context, url string) ([]byte, error) {
	resp, err := r.Fetcher.Get(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	if err := resp.CheckStatus(); err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (r *primaryRun) logf(format string, args ...any) {
	if r.Logger != nil {
		r.Logger.Printf(format, args...)
	}
}
