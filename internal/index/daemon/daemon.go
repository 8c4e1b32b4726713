package daemon

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	indexsync "github.com/unfoldingword/door43-client/internal/index/sync"
)

// Refresher runs index updates. *sync.Client implements it.
type Refresher interface {
	UpdatePrimaryIndex(ctx context.Context, url string, listener indexsync.ProgressListener) error
	UpdateCatalogIndex(ctx context.Context, slug string, listener indexsync.ProgressListener) error
}

var _ Refresher = (*indexsync.Client)(nil)

// Config holds configuration for the daemon.
type Config struct {
	// PrimaryURL is the primary catalog indexed first on every refresh.
	PrimaryURL string

	// Catalogs are the auxiliary catalog slugs indexed after the primary one.
	Catalogs []string

	// Interval is how often to refresh. Zero disables the ticker.
	Interval time.Duration

	// MirrorDir, when set, is a local catalog mirror watched for *.json
	// changes. A settled change triggers a refresh.
	MirrorDir string

	// Debounce is how long the mirror must be quiet before a refresh.
	Debounce time.Duration

	// Logger for daemon activity
	Logger *log.Logger
}

// DefaultConfig returns the defaults used by `d43 daemon`.
func DefaultConfig() *Config {
	return &Config{
		PrimaryURL: indexsync.DefaultPrimaryURL,
		Catalogs:   indexsync.GlobalCatalogSlugs(),
		Interval:   time.Hour,
		Debounce:   500 * time.Millisecond,
		Logger:     log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

// Daemon keeps an index fresh by re-running the sync pipeline.
type Daemon struct {
	client Refresher
	config *Config

	watcher       *FileWatcher
	changeQueue   map[string]time.Time // path -> last event
	changeQueueMu sync.Mutex

	refreshes atomic.Int64
	failures  atomic.Int64
}

// New creates a daemon. A nil config uses DefaultConfig; zero fields of a
// supplied config are not filled in, except Logger and Debounce.
func New(client Refresher, config *Config) (*Daemon, error) {
	if client == nil {
		return nil, fmt.Errorf("client cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.PrimaryURL == "" && len(config.Catalogs) == 0 {
		return nil, fmt.Errorf("nothing to refresh: no primary url and no catalogs")
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[daemon] ", log.LstdFlags)
	}
	if config.Debounce <= 0 {
		config.Debounce = DefaultConfig().Debounce
	}

	return &Daemon{
		client:      client,
		config:      config,
		changeQueue: make(map[string]time.Time),
	}, nil
}

// Run refreshes once, then on every tick and every settled mirror change,
// until ctx is cancelled. Refresh failures are logged and do not stop it.
func (d *Daemon) Run(ctx context.Context) error {
	d.config.Logger.Println("Starting daemon")

	var mirrorEvents <-chan FileEvent
	var mirrorErrors <-chan error
	if d.config.MirrorDir != "" {
		fw, err := NewFileWatcher()
		if err != nil {
			return err
		}
		if err := fw.Start(d.config.MirrorDir); err != nil {
			_ = fw.Stop()
			return err
		}
		d.watcher = fw
		defer func() {
			if err := fw.Stop(); err != nil {
				d.config.Logger.Printf("Error closing watcher: %v", err)
			}
		}()
		mirrorEvents, mirrorErrors = fw.Events(), fw.Errors()
		d.config.Logger.Printf("Watching mirror: %s", d.config.MirrorDir)
	}

	d.refreshAndLog(ctx, "startup")

	var tick <-chan time.Time
	if d.config.Interval > 0 {
		ticker := time.NewTicker(d.config.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	debounce := time.NewTicker(d.config.Debounce)
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			d.config.Logger.Println("Daemon stopped")
			return nil

		case <-tick:
			d.refreshAndLog(ctx, "interval")

		case event, ok := <-mirrorEvents:
			if !ok {
				mirrorEvents = nil
				continue
			}
			d.config.Logger.Printf("File event: %s %s", event.Op, event.Path)
			d.queueChange(event.Path)

		case err, ok := <-mirrorErrors:
			if !ok {
				mirrorErrors = nil
				continue
			}
			d.config.Logger.Printf("Watcher error: %v", err)

		case <-debounce.C:
			if d.takeSettledChanges() > 0 {
				d.refreshAndLog(ctx, "mirror change")
			}
		}
	}
}

// Refresh indexes the primary catalog and then each auxiliary catalog.
// Every step runs even when an earlier one fails; the failures are joined.
func (d *Daemon) Refresh(ctx context.Context) error {
	var errs []error
	if d.config.PrimaryURL != "" {
		if err := d.client.UpdatePrimaryIndex(ctx, d.config.PrimaryURL, nil); err != nil {
			errs = append(errs, fmt.Errorf("primary %s: %w", d.config.PrimaryURL, err))
		}
	}
	for _, slug := range d.config.Catalogs {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if err := d.client.UpdateCatalogIndex(ctx, slug, nil); err != nil {
			errs = append(errs, fmt.Errorf("catalog %s: %w", slug, err))
		}
	}
	return errors.Join(errs...)
}

func (d *Daemon) refreshAndLog(ctx context.Context, reason string) {
	d.config.Logger.Printf("Refreshing (%s)", reason)
	start := time.Now()
	err := d.Refresh(ctx)
	d.refreshes.Add(1)
	if err != nil {
		d.failures.Add(1)
		d.config.Logger.Printf("Refresh failed after %s: %v", time.Since(start).Round(time.Millisecond), err)
		return
	}
	d.config.Logger.Printf("Refresh complete in %s", time.Since(start).Round(time.Millisecond))
}

// Refreshes returns how many refreshes have run and how many of them failed.
func (d *Daemon) Refreshes() (total, failed int64) {
	return d.refreshes.Load(), d.failures.Load()
}

func (d *Daemon) queueChange(path string) {
	d.changeQueueMu.Lock()
	defer d.changeQueueMu.Unlock()

	d.changeQueue[path] = time.Now()
}

// takeSettledChanges removes and counts the queued paths that have been
// quiet for the debounce interval. Nothing is taken while any path is still
// changing, so a mirror being rewritten triggers one refresh at the end.
func (d *Daemon) takeSettledChanges() int {
	d.changeQueueMu.Lock()
	defer d.changeQueueMu.Unlock()

	now := time.Now()
	for _, queuedAt := range d.changeQueue {
		if now.Sub(queuedAt) < d.config.Debounce {
			return 0
		}
	}
	n := len(d.changeQueue)
	clear(d.changeQueue)
	return n
}
