package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/unfoldingword/door43-client/internal/index/schema"
)

// BeginTransaction opens the write transaction used by every Add method.
//
// Only one transaction may be open per DB. Calling BeginTransaction while one
// is open is a programming error and panics.
func (db *DB) BeginTransaction(ctx context.Context) error {
	db.txMu.Lock()
	defer db.txMu.Unlock()

	if db.tx != nil {
		panic("db: BeginTransaction called while a transaction is already open")
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	db.tx = tx
	return nil
}

// EndTransaction commits the open transaction when commit is true and rolls
// it back otherwise. It panics when no transaction is open.
func (db *DB) EndTransaction(commit bool) error {
	db.txMu.Lock()
	defer db.txMu.Unlock()

	if db.tx == nil {
		panic("db: EndTransaction called without an open transaction")
	}
	tx := db.tx
	db.tx = nil

	if !commit {
		if err := tx.Rollback(); err != nil {
			return fmt.Errorf("failed to roll back transaction: %w", err)
		}
		return nil
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// InTransaction reports whether a write transaction is open.
func (db *DB) InTransaction() bool {
	db.txMu.Lock()
	defer db.txMu.Unlock()
	return db.tx != nil
}

// writeTx returns the open transaction or panics.
func (db *DB) writeTx(op string) *sql.Tx {
	db.txMu.Lock()
	defer db.txMu.Unlock()
	if db.tx == nil {
		panic(fmt.Sprintf("db: %s called outside a transaction", op))
	}
	return db.tx
}

// AddCatalog upserts a catalog registration by slug.
func (db *DB) AddCatalog(ctx context.Context, catalog *schema.Catalog) error {
	tx := db.writeTx("AddCatalog")
	if err := catalog.Validate(); err != nil {
		return fmt.Errorf("invalid catalog: %w", err)
	}

	query := `
	INSERT INTO catalog (slug, url) VALUES (?, ?)
	ON CONFLICT(slug) DO UPDATE SET url = excluded.url
	`
	if _, err := tx.ExecContext(ctx, query, catalog.Slug, catalog.URL); err != nil {
		return fmt.Errorf("failed to upsert catalog %s: %w", catalog.Slug, err)
	}
	return nil
}

// AddSourceLanguage upserts a source language by slug and returns its local id.
func (db *DB) AddSourceLanguage(ctx context.Context, lang *schema.SourceLanguage) (int64, error) {
	tx := db.writeTx("AddSourceLanguage")
	if err := lang.Validate(); err != nil {
		return 0, fmt.Errorf("invalid source language: %w", err)
	}

	query := `
	INSERT INTO source_language (slug, name, direction) VALUES (?, ?, ?)
	ON CONFLICT(slug) DO UPDATE SET
		name = excluded.name,
		direction = excluded.direction
	RETURNING id
	`
	var id int64
	if err := tx.QueryRowContext(ctx, query, lang.Slug, lang.Name, lang.Direction).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to upsert source language %s: %w", lang.Slug, err)
	}
	lang.ID = id
	return id, nil
}

// AddProject upserts a project under the source language with local id
// languageID and returns the project's local id.
func (db *DB) AddProject(ctx context.Context, project *schema.Project, languageID int64) (int64, error) {
	tx := db.writeTx("AddProject")
	if err := project.Validate(); err != nil {
		return 0, fmt.Errorf("invalid project: %w", err)
	}

	query := `
	INSERT INTO project (
		source_language_id, slug, name, description, icon, sort, chunks_url
	) VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(source_language_id, slug) DO UPDATE SET
		name = excluded.name,
		description = excluded.description,
		icon = excluded.icon,
		sort = excluded.sort,
		chunks_url = excluded.chunks_url
	RETURNING id
	`
	var id int64
	err := tx.QueryRowContext(ctx, query,
		languageID,
		project.Slug,
		project.Name,
		project.Description,
		project.Icon,
		project.Sort,
		project.ChunksURL,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert project %s: %w", project.Slug, err)
	}
	project.ID = id
	return id, nil
}

// AddResource upserts a resource under the project with local id projectID
// and returns the resource's local id.
func (db *DB) AddResource(ctx context.Context, resource *schema.Resource, projectID int64) (int64, error) {
	tx := db.writeTx("AddResource")
	if err := resource.Validate(); err != nil {
		return 0, fmt.Errorf("invalid resource: %w", err)
	}

	query := `
	INSERT INTO resource (
		project_id, slug, name, type, checking_level, version, format_url, modified_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(project_id, slug) DO UPDATE SET
		name = excluded.name,
		type = excluded.type,
		checking_level = excluded.checking_level,
		version = excluded.version,
		format_url = excluded.format_url,
		modified_at = excluded.modified_at
	RETURNING id
	`
	var id int64
	err := tx.QueryRowContext(ctx, query,
		projectID,
		resource.Slug,
		resource.Name,
		resource.Type,
		resource.CheckingLevel,
		resource.Version,
		resource.FormatURL,
		resource.ModifiedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert resource %s: %w", resource.Slug, err)
	}
	resource.ID = id
	return id, nil
}

// AddVersification upserts a versification by slug and returns its local id.
func (db *DB) AddVersification(ctx context.Context, v *schema.Versification) (int64, error) {
	tx := db.writeTx("AddVersification")
	if err := v.Validate(); err != nil {
		return 0, fmt.Errorf("invalid versification: %w", err)
	}

	query := `
	INSERT INTO versification (slug, name) VALUES (?, ?)
	ON CONFLICT(slug) DO UPDATE SET name = excluded.name
	RETURNING id
	`
	var id int64
	if err := tx.QueryRowContext(ctx, query, v.Slug, v.Name).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to upsert versification %s: %w", v.Slug, err)
	}
	v.ID = id
	return id, nil
}

// AddChunkMarker records a chunk start under the versification with local id
// versificationID. Existing markers are left as they are.
func (db *DB) AddChunkMarker(ctx context.Context, marker *schema.ChunkMarker, versificationID int64) error {
	tx := db.writeTx("AddChunkMarker")
	if err := marker.Validate(); err != nil {
		return fmt.Errorf("invalid chunk marker: %w", err)
	}

	query := `
	INSERT INTO chunk_marker (project_slug, versification_id, chapter, verse)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(project_slug, versification_id, chapter, verse) DO NOTHING
	`
	_, err := tx.ExecContext(ctx, query, marker.ProjectSlug, versificationID, marker.Chapter, marker.Verse)
	if err != nil {
		return fmt.Errorf("failed to add chunk marker %s %s:%s: %w", marker.ProjectSlug, marker.Chapter, marker.Verse, err)
	}
	return nil
}

// AddTargetLanguage upserts an approved target language by slug.
func (db *DB) AddTargetLanguage(ctx context.Context, lang *schema.TargetLanguage) error {
	tx := db.writeTx("AddTargetLanguage")
	lang.Temporary = false
	if err := lang.Validate(); err != nil {
		return fmt.Errorf("invalid target language: %w", err)
	}
	return upsertTargetLanguage(ctx, tx, "target_language", lang)
}

// AddTempTargetLanguage upserts a temporary target language by slug.
func (db *DB) AddTempTargetLanguage(ctx context.Context, lang *schema.TargetLanguage) error {
	tx := db.writeTx("AddTempTargetLanguage")
	lang.Temporary = true
	if err := lang.Validate(); err != nil {
		return fmt.Errorf("invalid temporary target language: %w", err)
	}

	// Temporary and approved codes should not overlap until approval.
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM target_language WHERE slug = ?`, lang.Slug).Scan(&one)
	switch {
	case err == nil:
		db.logger.Printf("WARNING: temporary code %s is already an approved target language; lookups return the approved entry", lang.Slug)
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("failed to check target language %s: %w", lang.Slug, err)
	}
	return upsertTargetLanguage(ctx, tx, "temp_target_language", lang)
}

func upsertTargetLanguage(ctx context.Context, tx *sql.Tx, table string, lang *schema.TargetLanguage) error {
	query := `
	INSERT INTO ` + table + ` (
		slug, name, anglicized_name, direction, region, is_gateway_language
	) VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(slug) DO UPDATE SET
		name = excluded.name,
		anglicized_name = excluded.anglicized_name,
		direction = excluded.direction,
		region = excluded.region,
		is_gateway_language = excluded.is_gateway_language
	`
	_, err := tx.ExecContext(ctx, query,
		lang.Slug,
		lang.Name,
		lang.AnglicizedName,
		lang.Direction,
		lang.Region,
		boolToInt(lang.IsGatewayLanguage),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert %s %s: %w", table, lang.Slug, err)
	}
	return nil
}

// ApproveTempTargetLanguage links a temporary code to the approved code that
// replaced it. A later approval of the same temporary code wins.
func (db *DB) ApproveTempTargetLanguage(ctx context.Context, tempSlug, approvedSlug string) error {
	tx := db.writeTx("ApproveTempTargetLanguage")
	approval := schema.Approval{TempSlug: tempSlug, ApprovedSlug: approvedSlug}
	if err := approval.Validate(); err != nil {
		return fmt.Errorf("invalid approval: %w", err)
	}

	query := `
	INSERT INTO temp_target_language_approval (temp_slug, approved_slug) VALUES (?, ?)
	ON CONFLICT(temp_slug) DO UPDATE SET approved_slug = excluded.approved_slug
	`
	if _, err := tx.ExecContext(ctx, query, tempSlug, approvedSlug); err != nil {
		return fmt.Errorf("failed to approve %s as %s: %w", tempSlug, approvedSlug, err)
	}
	return nil
}

// AddQuestionnaire upserts a questionnaire by its remote id and returns the
// local id that its questions must reference.
func (db *DB) AddQuestionnaire(ctx context.Context, q *schema.Questionnaire) (int64, error) {
	tx := db.writeTx("AddQuestionnaire")
	if err := q.Validate(); err != nil {
		return 0, fmt.Errorf("invalid questionnaire: %w", err)
	}

	query := `
	INSERT INTO questionnaire (td_id, slug, name, direction) VALUES (?, ?, ?, ?)
	ON CONFLICT(td_id) DO UPDATE SET
		slug = excluded.slug,
		name = excluded.name,
		direction = excluded.direction
	RETURNING id
	`
	var id int64
	if err := tx.QueryRowContext(ctx, query, q.TdID, q.Slug, q.Name, q.Direction).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to upsert questionnaire %d: %w", q.TdID, err)
	}
	q.ID = id
	return id, nil
}

// AddQuestion upserts a question of the questionnaire with local id
// questionnaireID.
func (db *DB) AddQuestion(ctx context.Context, q *schema.Question, questionnaireID int64) error {
	tx := db.writeTx("AddQuestion")
	if err := q.Validate(); err != nil {
		return fmt.Errorf("invalid question: %w", err)
	}

	query := `
	INSERT INTO question (
		questionnaire_id, td_id, text, help, is_required, input_type, sort, depends_on
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(questionnaire_id, td_id) DO UPDATE SET
		text = excluded.text,
		help = excluded.help,
		is_required = excluded.is_required,
		input_type = excluded.input_type,
		sort = excluded.sort,
		depends_on = excluded.depends_on
	RETURNING id
	`
	var id int64
	err := tx.QueryRowContext(ctx, query,
		questionnaireID,
		q.TdID,
		q.Text,
		q.Help,
		boolToInt(q.IsRequired),
		q.InputType,
		q.Sort,
		q.DependsOn,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("failed to upsert question %d: %w", q.TdID, err)
	}
	q.ID = id
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
