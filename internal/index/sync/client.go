package sync

import (
	"context"
	"fmt"
	"log"
	"os"
	stdsync "sync"
	"time"

	"github.com/google/uuid"

	"github.com/unfoldingword/door43-client/internal/index/db"
	"github.com/unfoldingword/door43-client/internal/index/fetch"
	"github.com/unfoldingword/door43-client/internal/index/legacy"
)

// Options configures a Client.
type Options struct {
	// GlobalCatalogHost replaces DefaultGlobalCatalogHost in the auxiliary
	// catalog URLs registered by UpdatePrimaryIndex.
	GlobalCatalogHost string

	// Logger defaults to stderr with a "[sync] " prefix.
	Logger *log.Logger

	// Observer, when set, is told about every run.
	Observer Observer

	// Containers and Updates back the container operations. Without them
	// those operations return ErrNotImplemented.
	Containers ContainerStore
	Updates    UpdateChecker
}

// Client runs index updates against a Library.
//
// Update calls are serialized: a second call waits for the first to finish.
// Reads through Index are never blocked and see only committed state.
type Client struct {
	library Library
	fetcher fetch.Fetcher
	opts    Options
	logger  *log.Logger

	mu stdsync.Mutex
}

// New creates a Client.
//
// The library must have its schema initialized.
//
// Example:
//
//	library, err := db.OpenIndex(ctx, ".door43/index.db")
//	if err != nil {
//	    return err
//	}
//	client := sync.New(library, fetch.New(fetch.DefaultOptions()), sync.Options{})
func New(library Library, fetcher fetch.Fetcher, opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	return &Client{
		library: library,
		fetcher: fetcher,
		opts:    opts,
		logger:  logger,
	}
}

// Index returns the read side of the library.
func (c *Client) Index() db.Index {
	return c.library
}

// UpdatePrimaryIndex registers the global auxiliary catalogs, downloads the
// primary catalog at url and indexes it with everything it references.
//
// All writes happen in one transaction. On any failure the transaction is
// rolled back and the original error is returned, so no partial catalog is
// ever visible.
func (c *Client) UpdatePrimaryIndex(ctx context.Context, url string, listener ProgressListener) (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r := c.startRun("primary " + url)
	defer func() { r.finish(err) }()
	progress := r.progress(listener)

	if err := c.library.BeginTransaction(ctx); err != nil {
		return err
	}
	if err := c.indexPrimary(ctx, url, progress); err != nil {
		c.rollback(r)
		return err
	}
	return c.library.EndTransaction(true)
}

func (c *Client) indexPrimary(ctx context.Context, url string, progress ProgressListener) error {
	for _, catalog := range GlobalCatalogs(c.opts.GlobalCatalogHost) {
		if err := c.library.AddCatalog(ctx, catalog); err != nil {
			return err
		}
	}

	resp, err := c.fetcher.Get(ctx, url, func(max, read int64) {
		progress(legacy.TagCatalog, max, read)
	})
	if err != nil {
		return err
	}
	if err := resp.CheckStatus(); err != nil {
		return err
	}

	primary := &legacy.Primary{Fetcher: c.fetcher, Logger: c.logger}
	return primary.Parse(ctx, resp.Body, c.library, progress)
}

// UpdateCatalogIndex downloads the auxiliary catalog registered under slug
// and indexes it in one transaction.
//
// It returns ErrUnknownCatalog when slug is not registered and
// ErrUnsupportedCatalog when no parser exists for it; neither opens a
// transaction. A non-200 response is returned as a *fetch.StatusError.
func (c *Client) UpdateCatalogIndex(ctx context.Context, slug string, listener ProgressListener) (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r := c.startRun("catalog " + slug)
	defer func() { r.finish(err) }()

	catalog, err := c.library.GetCatalog(ctx, slug)
	if err != nil {
		return err
	}
	if catalog == nil {
		return fmt.Errorf("%w: %s", ErrUnknownCatalog, slug)
	}

	parse, ok := legacy.Lookup(slug)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedCatalog, slug)
	}

	resp, err := c.fetcher.Get(ctx, catalog.URL, nil)
	if err != nil {
		return err
	}
	if err := resp.CheckStatus(); err != nil {
		return err
	}

	if err := c.library.BeginTransaction(ctx); err != nil {
		return err
	}
	if err := parse(ctx, resp.Body, c.library, r.progress(listener)); err != nil {
		c.rollback(r)
		return err
	}
	return c.library.EndTransaction(true)
}

// rollback discards the open transaction. A rollback failure is logged, not
// returned, so the caller still sees the error that caused it.
func (c *Client) rollback(r *run) {
	if err := c.library.EndTransaction(false); err != nil {
		c.logger.Printf("run %s: WARNING: rollback failed: %v", r.id, err)
	}
}

// run tracks one update call for logging and the observer.
type run struct {
	c       *Client
	id      string
	target  string
	started time.Time
}

func (c *Client) startRun(target string) *run {
	r := &run{c: c, id: uuid.NewString(), target: target, started: time.Now()}
	c.logger.Printf("run %s: updating %s", r.id, target)
	if c.opts.Observer != nil {
		c.opts.Observer.SyncStarted(r.id, target)
	}
	return r
}

func (r *run) finish(err error) {
	elapsed := time.Since(r.started).Round(time.Millisecond)
	if err != nil {
		r.c.logger.Printf("run %s: %s failed after %s: %v", r.id, r.target, elapsed, err)
	} else {
		r.c.logger.Printf("run %s: %s complete in %s", r.id, r.target, elapsed)
	}
	if r.c.opts.Observer != nil {
		r.c.opts.Observer.SyncFinished(r.id, r.target, err)
	}
}

// progress fans events out to the caller's listener and the observer.
func (r *run) progress(listener ProgressListener) ProgressListener {
	observer := r.c.opts.Observer
	return func(tag string, max, completed int64) {
		if listener != nil {
			listener(tag, max, completed)
		}
		if observer != nil {
			observer.Progress(r.id, tag, max, completed)
		}
	}
}
