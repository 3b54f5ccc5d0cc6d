// Package dashboard provides a real-time WebSocket feed of benchmark runs.
//
// The server broadcasts run lifecycle events (run started, case finished,
// run complete) to connected WebSocket clients so progress can be monitored
// from outside the process. Broadcasting happens strictly between cases,
// never inside a timed region.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/gobench-cli/gobench/internal/meta"
	"github.com/gobench-cli/gobench/internal/record"
	"github.com/gobench-cli/gobench/internal/runner"
)

// MessageType defines the type of dashboard message.
type MessageType string

const (
	// MessageTypeRunStarted announces a new run with its metadata and
	// case count.
	MessageTypeRunStarted MessageType = "run_started"

	// MessageTypeCaseResult carries one finished case record.
	MessageTypeCaseResult MessageType = "case_result"

	// MessageTypeRunComplete carries the final run summary.
	MessageTypeRunComplete MessageType = "run_complete"
)

// Message is one dashboard broadcast.
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// RunStartedData announces a run.
type RunStartedData struct {
	Meta  meta.Metadata `json:"meta"`
	Cases int           `json:"cases"`
}

// CaseResultData carries one case outcome.
type CaseResultData struct {
	Index  int                 `json:"index"`
	Total  int                 `json:"total"`
	Record record.ResultRecord `json:"record"`
}

// RunCompleteData carries the final counts.
type RunCompleteData struct {
	Completed   int           `json:"completed"`
	Skipped     int           `json:"skipped"`
	Errored     int           `json:"errored"`
	Interrupted bool          `json:"interrupted"`
	Elapsed     time.Duration `json:"elapsed_ns"`
}

// Server manages WebSocket connections and broadcasts run messages.
type Server struct {
	addr     string
	listener net.Listener
	server   *http.Server

	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex

	broadcast chan Message

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *log.Logger
}

// Config holds server configuration.
type Config struct {
	// Addr to listen on (default: ":8707").
	Addr string

	// Logger for server activity (default: stderr logger).
	Logger *log.Logger
}

// NewServer creates a dashboard server.
func NewServer(cfg *Config) *Server {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8707"
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		addr:      cfg.Addr,
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan Message, 100),
		ctx:       ctx,
		cancel:    cancel,
		logger:    cfg.Logger,
	}
}

// Start begins the HTTP server and WebSocket handler.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)

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
		s.logger.Printf("dashboard listening on %s", ln.Addr())
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Printf("dashboard server error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	s.cancel()

	s.clientsMu.Lock()
	for conn := range s.clients {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		delete(s.clients, conn)
	}
	s.clientsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("dashboard shutdown error: %w", err)
	}

	s.wg.Wait()
	return nil
}

// Addr returns the listening address, usable after Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// ClientCount returns the current number of connected clients.
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// RunStarted broadcasts a run announcement.
func (s *Server) RunStarted(md meta.Metadata, cases int) {
	s.send(MessageTypeRunStarted, RunStartedData{Meta: md, Cases: cases})
}

// CaseResult broadcasts one finished case.
func (s *Server) CaseResult(index, total int, rec record.ResultRecord) {
	s.send(MessageTypeCaseResult, CaseResultData{Index: index, Total: total, Record: rec})
}

// RunComplete broadcasts the final summary.
func (s *Server) RunComplete(sum runner.Summary) {
	s.send(MessageTypeRunComplete, RunCompleteData{
		Completed:   sum.Completed,
		Skipped:     sum.Skipped,
		Errored:     sum.Errored,
		Interrupted: sum.Interrupted,
		Elapsed:     sum.Elapsed,
	})
}

func (s *Server) send(mt MessageType, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		s.logger.Printf("failed to marshal %s message: %v", mt, err)
		return
	}

	msg := Message{Type: mt, Timestamp: time.Now(), Data: payload}
	select {
	case s.broadcast <- msg:
	case <-s.ctx.Done():
	default:
		s.logger.Printf("broadcast channel full, dropping %s message", mt)
	}
}

func (s *Server) broadcastLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return

		case msg := <-s.broadcast:
			data, err := json.Marshal(msg)
			if err != nil {
				s.logger.Printf("failed to marshal message: %v", err)
				continue
			}

			s.clientsMu.RLock()
			conns := make([]*websocket.Conn, 0, len(s.clients))
			for conn := range s.clients {
				conns = append(conns, conn)
			}
			s.clientsMu.RUnlock()

			// Write outside the read lock so a slow client cannot
			// block new connections.
			for _, conn := range conns {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				err := conn.Write(ctx, websocket.MessageText, data)
				cancel()

				if err != nil {
					s.removeClient(conn)
				}
			}
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.Printf("websocket upgrade failed: %v", err)
		return
	}

	s.clientsMu.Lock()
	s.clients[conn] = true
	count := len(s.clients)
	s.clientsMu.Unlock()

	s.logger.Printf("dashboard client connected (total: %d)", count)

	go s.readLoop(conn)
}

// readLoop keeps the connection alive and detects client disconnects.
// Client messages are not processed.
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
	_, exists := s.clients[conn]
	if exists {
		delete(s.clients, conn)
	}
	count := len(s.clients)
	s.clientsMu.Unlock()

	if exists {
		_ = conn.Close(websocket.StatusNormalClosure, "")
		s.logger.Printf("dashboard client disconnected (total: %d)", count)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"clients": s.ClientCount(),
	})
}
