package dashboard

import (
	"context"
	"log"
	"sync"
	"time"

	indexsync "github.com/unfoldingword/door43-client/internal/index/sync"
)

// Handler turns sync runs into dashboard messages. It implements
// sync.Observer, so a Client configured with it reports every run.
type Handler struct {
	server *Server
	logger *log.Logger

	mu      sync.Mutex
	started map[string]time.Time // run id -> start
}

var _ indexsync.Observer = (*Handler)(nil)

// NewHandler creates a new event handler connected to a dashboard server
func NewHandler(server *Server, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}

	return &Handler{
		server:  server,
		logger:  logger,
		started: make(map[string]time.Time),
	}
}

// SyncStarted broadcasts a sync_started message.
func (h *Handler) SyncStarted(runID, target string) {
	h.mu.Lock()
	h.started[runID] = time.Now()
	h.mu.Unlock()

	h.server.send(MessageTypeSyncStarted, SyncStartedData{RunID: runID, Target: target})
}

// Progress broadcasts a progress message.
func (h *Handler) Progress(runID, tag string, max, completed int64) {
	h.server.Listener(runID)(tag, max, completed)
}

// SyncFinished broadcasts sync_complete followed by fresh stats, or
// sync_failed with the error classified.
func (h *Handler) SyncFinished(runID, target string, err error) {
	h.mu.Lock()
	start, ok := h.started[runID]
	delete(h.started, runID)
	h.mu.Unlock()

	var duration time.Duration
	if ok {
		duration = time.Since(start)
	}

	if err != nil {
		h.logger.Printf("Sync failed: %s: %v", target, err)
		h.server.send(MessageTypeSyncFailed, SyncFailedData{
			RunID:    runID,
			Target:   target,
			Duration: duration,
			Error:    err.Error(),
			Kind:     errorKind(err),
		})
		return
	}

	h.server.send(MessageTypeSyncComplete, SyncCompleteData{
		RunID:    runID,
		Target:   target,
		Duration: duration,
	})
	h.BroadcastStats(context.Background())
}

// BroadcastStats sends the current index stats to all clients.
func (h *Handler) BroadcastStats(ctx context.Context) {
	msg, err := h.server.statsMessage(ctx)
	if err != nil {
		h.logger.Printf("Failed to read stats: %v", err)
		return
	}
	h.server.Broadcast(msg)
}

func errorKind(err error) string {
	switch {
	case indexsync.IsTransport(err):
		return "transport"
	case indexsync.IsParse(err):
		return "parse"
	default:
		return "other"
	}
}
