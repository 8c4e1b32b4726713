// Package dashboard provides a real-time WebSocket server for watching index
// updates.
//
// The dashboard broadcasts sync run lifecycle events, progress and index
// statistics to connected WebSocket clients.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"

	"github.com/unfoldingword/door43-client/internal/index/db"
	indexsync "github.com/unfoldingword/door43-client/internal/index/sync"
)

// MessageType defines the type of dashboard message
type MessageType string

const (
	// MessageTypeProgress carries one pipeline progress event
	MessageTypeProgress MessageType = "progress"

	// MessageTypeSyncStarted indicates an update run began
	MessageTypeSyncStarted MessageType = "sync_started"

	// MessageTypeSyncComplete indicates an update run committed
	MessageTypeSyncComplete MessageType = "sync_complete"

	// MessageTypeSyncFailed indicates an update run was rolled back
	MessageTypeSyncFailed MessageType = "sync_failed"

	// MessageTypeStats carries index row counts
	MessageTypeStats MessageType = "stats"
)

// Message represents a dashboard broadcast message
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// ProgressData mirrors a sync.ProgressListener call
type ProgressData struct {
	RunID     string `json:"run_id"`
	Tag       string `json:"tag"`
	Max       int64  `json:"max"`
	Completed int64  `json:"completed"`
}

// SyncStartedData identifies a run that began
type SyncStartedData struct {
	RunID  string `json:"run_id"`
	Target string `json:"target"`
}

// SyncCompleteData describes a committed run
type SyncCompleteData struct {
	RunID    string        `json:"run_id"`
	Target   string        `json:"target"`
	Duration time.Duration `json:"duration"`
}

// SyncFailedData describes a rolled back run
type SyncFailedData struct {
	RunID    string        `json:"run_id"`
	Target   string        `json:"target"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error"`
	Kind     string        `json:"kind"` // transport, parse, other
}

// Server manages WebSocket connections and broadcasts dashboard messages
type Server struct {
	addr     string
	listener net.Listener
	server   *http.Server
	index    db.Index

	// WebSocket client management
	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex

	// Message broadcasting
	broadcast chan Message
	dropped   atomic.Int64

	// Lifecycle management
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *log.Logger
}

// Config holds server configuration
type Config struct {
	// Port to listen on (default: 8080, 0 picks a free port)
	Port int

	// Index, when set, backs stats messages and the /stats endpoint
	Index db.Index

	// Logger for server activity (default: stderr logger)
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Port:   8080,
		Logger: log.Default(),
	}
}

// NewServer creates a new dashboard WebSocket server
func NewServer(config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		addr:      fmt.Sprintf(":%d", config.Port),
		index:     config.Index,
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan Message, 100),
		ctx:       ctx,
		cancel:    cancel,
		logger:    config.Logger,
	}
}

// Start begins the HTTP server and WebSocket handler
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/", s.handleRoot)

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.wg.Add(1)
	go s.broadcastLoop()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Printf("Dashboard server listening on %s", ln.Addr())
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Printf("Server error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop() error {
	s.logger.Println("Stopping dashboard server")

	s.cancel()

	s.clientsMu.Lock()
	for conn := range s.clients {
		_ = conn.Close(websocket.StatusGoingAway, "Server shutting down")
		delete(s.clients, conn)
	}
	s.clientsMu.Unlock()

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
	}

	s.wg.Wait()

	s.logger.Println("Dashboard server stopped")
	return nil
}

// Broadcast queues a message for all connected clients. It never blocks:
// when the queue is full the message is dropped and counted.
func (s *Server) Broadcast(msg Message) {
	select {
	case s.broadcast <- msg:
	case <-s.ctx.Done():
		return
	default:
		if s.dropped.Add(1) == 1 {
			s.logger.Println("Warning: broadcast channel full, dropping messages")
		}
	}
}

// Dropped returns how many messages were dropped because the queue was full.
func (s *Server) Dropped() int64 {
	return s.dropped.Load()
}

// Listener returns a progress listener that broadcasts each event as a
// progress message tagged with runID.
func (s *Server) Listener(runID string) indexsync.ProgressListener {
	return func(tag string, max, completed int64) {
		s.send(MessageTypeProgress, ProgressData{
			RunID:     runID,
			Tag:       tag,
			Max:       max,
			Completed: completed,
		})
	}
}

// send marshals data into a message of type typ and broadcasts it.
func (s *Server) send(typ MessageType, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		s.logger.Printf("Failed to marshal %s data: %v", typ, err)
		return
	}
	s.Broadcast(Message{Type: typ, Timestamp: time.Now(), Data: raw})
}

// statsMessage reads the index stats. It returns a stats message without
// data when no index is configured.
func (s *Server) statsMessage(ctx context.Context) (Message, error) {
	msg := Message{Type: MessageTypeStats, Timestamp: time.Now()}
	if s.index == nil {
		return msg, nil
	}
	stats, err := s.index.Stats(ctx)
	if err != nil {
		return msg, err
	}
	msg.Data, err = json.Marshal(stats)
	return msg, err
}

func (s *Server) broadcastLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return

		case msg := <-s.broadcast:
			if msg.Timestamp.IsZero() {
				msg.Timestamp = time.Now()
			}

			data, err := json.Marshal(msg)
			if err != nil {
				s.logger.Printf("Failed to marshal message: %v", err)
				continue
			}

			s.clientsMu.RLock()
			clients := make([]*websocket.Conn, 0, len(s.clients))
			for conn := range s.clients {
				clients = append(clients, conn)
			}
			s.clientsMu.RUnlock()

			for _, conn := range clients {
				ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
				err := conn.Write(ctx, websocket.MessageText, data)
				cancel()

				if err != nil {
					s.logger.Printf("Failed to send to client: %v", err)
					s.removeClient(conn)
				}
			}
		}
	}
}

// handleWebSocket upgrades the connection and sends the current stats.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	welcome, err := s.statsMessage(ctx)
	if err != nil {
		s.logger.Printf("Failed to read stats: %v", err)
	}
	welcomeData, _ := json.Marshal(welcome)
	err = conn.Write(ctx, websocket.MessageText, welcomeData)
	cancel()
	if err != nil {
		_ = conn.Close(websocket.StatusInternalError, "welcome failed")
		return
	}

	s.clientsMu.Lock()
	s.clients[conn] = true
	clientCount := len(s.clients)
	s.clientsMu.Unlock()

	s.logger.Printf("Client connected (total: %d)", clientCount)

	go s.readLoop(conn)
}

// readLoop detects client disconnects; client messages are ignored.
func (s *Server) readLoop(conn *websocket.Conn) {
	defer s.removeClient(conn)

	for {
		if _, _, err := conn.Read(s.ctx); err != nil {
			return
		}
	}
}

func (s *Server) removeClient(conn *websocket.Conn) {
	s.clientsMu.Lock()
	if _, exists := s.clients[conn]; exists {
		delete(s.clients, conn)
		clientCount := len(s.clients)
		s.clientsMu.Unlock()

		_ = conn.Close(websocket.StatusNormalClosure, "")
		s.logger.Printf("Client disconnected (total: %d)", clientCount)
	} else {
		s.clientsMu.Unlock()
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.clientsMu.RLock()
	clientCount := len(s.clients)
	s.clientsMu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"clients": clientCount,
		"dropped": s.Dropped(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.index == nil {
		http.Error(w, "no index configured", http.StatusServiceUnavailable)
		return
	}
	stats, err := s.index.Stats(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(stats)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	_, _ = fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head>
    <title>Door43 Index Dashboard</title>
</head>
<body>
    <h1>Door43 Index Dashboard</h1>
    <p>WebSocket endpoint: <code>ws://%s/ws</code></p>
    <p>Index stats: <a href="/stats">/stats</a></p>
    <p>Health check: <a href="/health">/health</a></p>
    <p>Connect a WebSocket client to follow catalog updates.</p>
</body>
</html>`, r.Host)
}

// GetAddr returns the server's listening address
func (s *Server) GetAddr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// ClientCount returns the current number of connected clients
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}
