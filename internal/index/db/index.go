package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/unfoldingword/door43-client/internal/index/schema"
)

// Index is the read side of the catalog index. Every method reads committed
// state only. A missing entity is reported as a nil result, never an error.
type Index interface {
	GetSourceLanguages(ctx context.Context) ([]*schema.SourceLanguage, error)
	GetSourceLanguage(ctx context.Context, slug string) (*schema.SourceLanguage, error)
	GetProjects(ctx context.Context, languageSlug string) ([]*schema.Project, error)
	GetProject(ctx context.Context, languageSlug, projectSlug string) (*schema.Project, error)
	GetResources(ctx context.Context, languageSlug, projectSlug string) ([]*schema.Resource, error)
	GetResource(ctx context.Context, languageSlug, projectSlug, resourceSlug string) (*schema.Resource, error)
	GetTargetLanguage(ctx context.Context, code string) (*schema.TargetLanguage, error)
	GetApprovedTargetLanguage(ctx context.Context, tempCode string) (*schema.TargetLanguage, error)
	GetTargetLanguages(ctx context.Context) ([]*schema.TargetLanguage, error)
	GetQuestionnaires(ctx context.Context) ([]*schema.Questionnaire, error)
	GetCatalog(ctx context.Context, slug string) (*schema.Catalog, error)
	GetCatalogs(ctx context.Context) ([]*schema.Catalog, error)
	GetVersifications(ctx context.Context) ([]*schema.Versification, error)
	GetChunkMarkers(ctx context.Context, projectSlug, versificationSlug string) ([]*schema.ChunkMarker, error)
	Stats(ctx context.Context) (*Stats, error)
}

var _ Index = (*DB)(nil)

// Stats holds row counts for each indexed entity.
type Stats struct {
	SourceLanguages     int `json:"source_languages" yaml:"source_languages" toml:"source_languages"`
	Projects            int `json:"projects" yaml:"projects" toml:"projects"`
	Resources           int `json:"resources" yaml:"resources" toml:"resources"`
	TargetLanguages     int `json:"target_languages" yaml:"target_languages" toml:"target_languages"`
	TempTargetLanguages int `json:"temp_target_languages" yaml:"temp_target_languages" toml:"temp_target_languages"`
	Approvals           int `json:"approvals" yaml:"approvals" toml:"approvals"`
	Questionnaires      int `json:"questionnaires" yaml:"questionnaires" toml:"questionnaires"`
	Questions           int `json:"questions" yaml:"questions" toml:"questions"`
	Catalogs            int `json:"catalogs" yaml:"catalogs" toml:"catalogs"`
	Versifications      int `json:"versifications" yaml:"versifications" toml:"versifications"`
	ChunkMarkers        int `json:"chunk_markers" yaml:"chunk_markers" toml:"chunk_markers"`
}

// GetSourceLanguages returns all source languages ordered by slug.
func (db *DB) GetSourceLanguages(ctx context.Context) ([]*schema.SourceLanguage, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id, slug, name, direction FROM source_language ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("failed to query source languages: %w", err)
	}
	defer rows.Close()

	var langs []*schema.SourceLanguage
	for rows.Next() {
		var l schema.SourceLanguage
		if err := rows.Scan(&l.ID, &l.Slug, &l.Name, &l.Direction); err != nil {
			return nil, fmt.Errorf("failed to scan source language: %w", err)
		}
		langs = append(langs, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating source languages: %w", err)
	}
	return langs, nil
}

// GetSourceLanguage returns the source language with the given slug.
func (db *DB) GetSourceLanguage(ctx context.Context, slug string) (*schema.SourceLanguage, error) {
	var l schema.SourceLanguage
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, slug, name, direction FROM source_language WHERE slug = ?`, slug,
	).Scan(&l.ID, &l.Slug, &l.Name, &l.Direction)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get source language %s: %w", slug, err)
	}
	return &l, nil
}

const projectColumns = `
	p.id, p.slug, p.name, p.description, p.icon, p.sort, p.chunks_url, l.slug
	FROM project p
	JOIN source_language l ON l.id = p.source_language_id
`

// GetProjects returns the projects of a source language ordered by sort
// then slug.
func (db *DB) GetProjects(ctx context.Context, languageSlug string) ([]*schema.Project, error) {
	query := `SELECT ` + projectColumns + ` WHERE l.slug = ? ORDER BY p.sort ASC, p.slug ASC`
	rows, err := db.conn.QueryContext(ctx, query, languageSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	var projects []*schema.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}
	return projects, nil
}

// GetProject returns one project of a source language.
func (db *DB) GetProject(ctx context.Context, languageSlug, projectSlug string) (*schema.Project, error) {
	query := `SELECT ` + projectColumns + ` WHERE l.slug = ? AND p.slug = ?`
	p, err := scanProject(db.conn.QueryRowContext(ctx, query, languageSlug, projectSlug))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(s scanner) (*schema.Project, error) {
	var p schema.Project
	err := s.Scan(&p.ID, &p.Slug, &p.Name, &p.Description, &p.Icon, &p.Sort, &p.ChunksURL, &p.LanguageSlug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan project: %w", err)
	}
	return &p, nil
}

const resourceColumns = `
	r.id, r.slug, r.name, r.type, r.checking_level, r.version, r.format_url, r.modified_at,
	l.slug, p.slug
	FROM resource r
	JOIN project p ON p.id = r.project_id
	JOIN source_language l ON l.id = p.source_language_id
`

// GetResources returns the resources of a project ordered by slug.
func (db *DB) GetResources(ctx context.Context, languageSlug, projectSlug string) ([]*schema.Resource, error) {
	query := `SELECT ` + resourceColumns + ` WHERE l.slug = ? AND p.slug = ? ORDER BY r.slug`
	rows, err := db.conn.QueryContext(ctx, query, languageSlug, projectSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to query resources: %w", err)
	}
	defer rows.Close()

	var resources []*schema.Resource
	for rows.Next() {
		r, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		resources = append(resources, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating resources: %w", err)
	}
	return resources, nil
}

// GetResource returns one resource of a project.
func (db *DB) GetResource(ctx context.Context, languageSlug, projectSlug, resourceSlug string) (*schema.Resource, error) {
	query := `SELECT ` + resourceColumns + ` WHERE l.slug = ? AND p.slug = ? AND r.slug = ?`
	r, err := scanResource(db.conn.QueryRowContext(ctx, query, languageSlug, projectSlug, resourceSlug))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func scanResource(s scanner) (*schema.Resource, error) {
	var r schema.Resource
	err := s.Scan(
		&r.ID,
		&r.Slug,
		&r.Name,
		&r.Type,
		&r.CheckingLevel,
		&r.Version,
		&r.FormatURL,
		&r.ModifiedAt,
		&r.LanguageSlug,
		&r.ProjectSlug,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan resource: %w", err)
	}
	return &r, nil
}

const targetLanguageColumns = `slug, name, anglicized_name, direction, region, is_gateway_language`

// GetTargetLanguage looks a code up among approved then temporary target
// languages. An approved language shadows a temporary one with the same code.
func (db *DB) GetTargetLanguage(ctx context.Context, code string) (*schema.TargetLanguage, error) {
	for _, table := range []string{"target_language", "temp_target_language"} {
		query := `SELECT ` + targetLanguageColumns + ` FROM ` + table + ` WHERE slug = ?`
		l, err := scanTargetLanguage(db.conn.QueryRowContext(ctx, query, code))
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, err
		}
		l.Temporary = table == "temp_target_language"
		return l, nil
	}
	return nil, nil
}

// GetApprovedTargetLanguage resolves a temporary code through its approval
// link. It returns nil when the code was never approved or the approved
// language is not indexed.
func (db *DB) GetApprovedTargetLanguage(ctx context.Context, tempCode string) (*schema.TargetLanguage, error) {
	query := `
	SELECT t.slug, t.name, t.anglicized_name, t.direction, t.region, t.is_gateway_language
	FROM temp_target_language_approval a
	JOIN target_language t ON t.slug = a.approved_slug
	WHERE a.temp_slug = ?
	`
	l, err := scanTargetLanguage(db.conn.QueryRowContext(ctx, query, tempCode))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

// GetTargetLanguages returns approved and temporary target languages ordered
// by slug. Temporary languages shadowed by an approved code are omitted.
func (db *DB) GetTargetLanguages(ctx context.Context) ([]*schema.TargetLanguage, error) {
	query := `
	SELECT ` + targetLanguageColumns + `, 0 AS temporary FROM target_language
	UNION ALL
	SELECT ` + targetLanguageColumns + `, 1 AS temporary FROM temp_target_language
	WHERE slug NOT IN (SELECT slug FROM target_language)
	ORDER BY slug
	`
	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query target languages: %w", err)
	}
	defer rows.Close()

	var langs []*schema.TargetLanguage
	for rows.Next() {
		var l schema.TargetLanguage
		var gateway, temporary int
		if err := rows.Scan(&l.Slug, &l.Name, &l.AnglicizedName, &l.Direction, &l.Region, &gateway, &temporary); err != nil {
			return nil, fmt.Errorf("failed to scan target language: %w", err)
		}
		l.IsGatewayLanguage = gateway != 0
		l.Temporary = temporary != 0
		langs = append(langs, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating target languages: %w", err)
	}
	return langs, nil
}

func scanTargetLanguage(s scanner) (*schema.TargetLanguage, error) {
	var l schema.TargetLanguage
	var gateway int
	err := s.Scan(&l.Slug, &l.Name, &l.AnglicizedName, &l.Direction, &l.Region, &gateway)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan target language: %w", err)
	}
	l.IsGatewayLanguage = gateway != 0
	return &l, nil
}

// GetQuestionnaires returns every questionnaire ordered by remote id, each
// with its questions ordered by sort then remote id.
func (db *DB) GetQuestionnaires(ctx context.Context) ([]*schema.Questionnaire, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, td_id, slug, name, direction FROM questionnaire ORDER BY td_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query questionnaires: %w", err)
	}
	defer rows.Close()

	var questionnaires []*schema.Questionnaire
	byID := make(map[int64]*schema.Questionnaire)
	for rows.Next() {
		q := &schema.Questionnaire{Questions: []*schema.Question{}}
		if err := rows.Scan(&q.ID, &q.TdID, &q.Slug, &q.Name, &q.Direction); err != nil {
			return nil, fmt.Errorf("failed to scan questionnaire: %w", err)
		}
		questionnaires = append(questionnaires, q)
		byID[q.ID] = q
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating questionnaires: %w", err)
	}
	if len(questionnaires) == 0 {
		return nil, nil
	}

	qrows, err := db.conn.QueryContext(ctx, `
	SELECT id, questionnaire_id, td_id, text, help, is_required, input_type, sort, depends_on
	FROM question
	ORDER BY questionnaire_id, sort, td_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query questions: %w", err)
	}
	defer qrows.Close()

	for qrows.Next() {
		var q schema.Question
		var questionnaireID int64
		var required int
		err := qrows.Scan(&q.ID, &questionnaireID, &q.TdID, &q.Text, &q.Help, &required, &q.InputType, &q.Sort, &q.DependsOn)
		if err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		q.IsRequired = required != 0
		if parent, ok := byID[questionnaireID]; ok {
			parent.Questions = append(parent.Questions, &q)
		}
	}
	if err := qrows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating questions: %w", err)
	}
	return questionnaires, nil
}

// GetCatalog returns the catalog registered under slug.
func (db *DB) GetCatalog(ctx context.Context, slug string) (*schema.Catalog, error) {
	var c schema.Catalog
	err := db.conn.QueryRowContext(ctx, `SELECT slug, url FROM catalog WHERE slug = ?`, slug).Scan(&c.Slug, &c.URL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog %s: %w", slug, err)
	}
	return &c, nil
}

// GetCatalogs returns every registered catalog ordered by slug.
func (db *DB) GetCatalogs(ctx context.Context) ([]*schema.Catalog, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT slug, url FROM catalog ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalogs: %w", err)
	}
	defer rows.Close()

	var catalogs []*schema.Catalog
	for rows.Next() {
		var c schema.Catalog
		if err := rows.Scan(&c.Slug, &c.URL); err != nil {
			return nil, fmt.Errorf("failed to scan catalog: %w", err)
		}
		catalogs = append(catalogs, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating catalogs: %w", err)
	}
	return catalogs, nil
}

// GetVersifications returns every versification ordered by slug.
func (db *DB) GetVersifications(ctx context.Context) ([]*schema.Versification, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id, slug, name FROM versification ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("failed to query versifications: %w", err)
	}
	defer rows.Close()

	var versifications []*schema.Versification
	for rows.Next() {
		var v schema.Versification
		if err := rows.Scan(&v.ID, &v.Slug, &v.Name); err != nil {
			return nil, fmt.Errorf("failed to scan versification: %w", err)
		}
		versifications = append(versifications, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating versifications: %w", err)
	}
	return versifications, nil
}

// GetChunkMarkers returns the chunk markers of a project in a versification,
// in chapter and verse order.
//
// Chapters and verses are stored as given upstream ("01", "1"), so they are
// ordered numerically.
func (db *DB) GetChunkMarkers(ctx context.Context, projectSlug, versificationSlug string) ([]*schema.ChunkMarker, error) {
	query := `
	SELECT c.project_slug, v.slug, c.chapter, c.verse
	FROM chunk_marker c
	JOIN versification v ON v.id = c.versification_id
	WHERE c.project_slug = ? AND v.slug = ?
	ORDER BY CAST(c.chapter AS INTEGER), c.chapter, CAST(c.verse AS INTEGER), c.verse
	`
	rows, err := db.conn.QueryContext(ctx, query, projectSlug, versificationSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunk markers: %w", err)
	}
	defer rows.Close()

	var markers []*schema.ChunkMarker
	for rows.Next() {
		var m schema.ChunkMarker
		if err := rows.Scan(&m.ProjectSlug, &m.VersificationSlug, &m.Chapter, &m.Verse); err != nil {
			return nil, fmt.Errorf("failed to scan chunk marker: %w", err)
		}
		markers = append(markers, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chunk markers: %w", err)
	}
	return markers, nil
}

// Stats counts the rows of every indexed entity.
func (db *DB) Stats(ctx context.Context) (*Stats, error) {
	var s Stats
	counts := []struct {
		table string
		dest  *int
	}{
		{"source_language", &s.SourceLanguages},
		{"project", &s.Projects},
		{"resource", &s.Resources},
		{"target_language", &s.TargetLanguages},
		{"temp_target_language", &s.TempTargetLanguages},
		{"temp_target_language_approval", &s.Approvals},
		{"questionnaire", &s.Questionnaires},
		{"question", &s.Questions},
		{"catalog", &s.Catalogs},
		{"versification", &s.Versifications},
		{"chunk_marker", &s.ChunkMarkers},
	}
	for _, c := range counts {
		if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.table).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", c.table, err)
		}
	}
	return &s, nil
}
