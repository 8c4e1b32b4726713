// Package sync keeps the local catalog index in step with the remote Door43
// catalog service.
package sync

import (
	"context"
	"time"

	"github.com/unfoldingword/door43-client/internal/index/db"
	"github.com/unfoldingword/door43-client/internal/index/legacy"
	"github.com/unfoldingword/door43-client/internal/index/schema"
)

// Library is the index store the client reads from and writes through.
// *db.DB implements it.
type Library interface {
	db.Index
	legacy.Writer

	// BeginTransaction opens the single write transaction. Calling it while
	// a transaction is open panics.
	BeginTransaction(ctx context.Context) error

	// EndTransaction commits or rolls back the open transaction.
	EndTransaction(commit bool) error

	// AddCatalog upserts a catalog registration by slug.
	AddCatalog(ctx context.Context, catalog *schema.Catalog) error
}

var _ Library = (*db.DB)(nil)

// ProgressListener receives (tag, max, completed) progress events. It runs
// synchronously on the goroutine doing the update, inside the network read
// for "catalog" events, so it must return quickly.
//
// Tags:
//
//	catalog                   bytes of the primary catalog read (max -1 when unknown)
//	projects                  primary catalog entries indexed
//	langnames                 target languages indexed
//	new-language-questions    questions or questionnaires indexed
//	temp-langnames            temporary target languages indexed
//	approved-temp-langnames   approval entries indexed
type ProgressListener = legacy.ProgressFunc

// Observer is told about every update run. It is how the dashboard follows
// runs it did not start.
type Observer interface {
	// SyncStarted is called before the run takes any action.
	SyncStarted(runID, target string)

	// Progress mirrors every event sent to the run's listener.
	Progress(runID, tag string, max, completed int64)

	// SyncFinished is called once the transaction is closed. err is nil on
	// commit.
	SyncFinished(runID, target string, err error)
}

// ContainerInfo describes a resource container on disk.
type ContainerInfo struct {
	LanguageSlug string    `json:"language"`
	ProjectSlug  string    `json:"project"`
	ResourceSlug string    `json:"resource"`
	Path         string    `json:"path"`
	ModifiedAt   time.Time `json:"modified_at"`
}

// ContainerStore manages the resource container archives that indexed
// resources point at. The archive format lives outside this module.
type ContainerStore interface {
	// Download fetches the container of a resource and returns its path.
	Download(ctx context.Context, languageSlug, projectSlug, resourceSlug string) (string, error)

	// Open extracts a container for reading and returns its directory.
	Open(ctx context.Context, languageSlug, projectSlug, resourceSlug string) (string, error)

	// Close re-archives an opened container and returns the archive path.
	Close(ctx context.Context, languageSlug, projectSlug, resourceSlug string) (string, error)

	// List returns every container on disk.
	List(ctx context.Context) ([]ContainerInfo, error)
}

// UpdateChecker compares downloaded containers with the index.
type UpdateChecker interface {
	// ProjectUpdates returns the slugs of projects in a source language that
	// have newer content than what is downloaded.
	ProjectUpdates(ctx context.Context, languageSlug string) ([]string, error)

	// SourceLanguageUpdates returns the slugs of source languages with newer
	// content than what is downloaded.
	SourceLanguageUpdates(ctx context.Context) ([]string, error)
}
