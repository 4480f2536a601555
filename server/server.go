// Package server implements the HTTP/WebSocket API (domain stack component
// L): a gin router exposing session-scoped sandbox runs and a live event
// stream, replacing the teacher's raw net/http sessionManager
// (cmd/goru/serve.go) with gin's routing/middleware and gorilla/websocket
// for the stream, per SPEC_FULL.md's ambient-stack expansion.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/wardenjs/warden/event"
	"github.com/wardenjs/warden/metrics"
	"github.com/wardenjs/warden/report"
	"github.com/wardenjs/warden/sandbox"
)

// Server owns one or more named sandbox sessions, each an independent
// Orchestrator (§3.6: the report/hook table/stats are scoped to one
// instance), keyed by a server-generated session id.
type Server struct {
	logger   *zap.Logger
	opts     sandbox.Options
	reportDB string
	mu       sync.RWMutex
	sessions map[string]*session
}

type session struct {
	orch      *sandbox.Orchestrator
	createdAt time.Time
	sqlite    *report.SQLiteSink
}

// New creates a Server whose sessions are built with opts as their base
// Options. If reportDB is non-empty, every session's report is additionally
// mirrored into that SQLite database (report.OpenSQLiteSink) under its
// session id as the run id.
func New(opts sandbox.Options, logger *zap.Logger, reportDB string) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{logger: logger, opts: opts, reportDB: reportDB, sessions: make(map[string]*session)}
}

// Router builds the gin engine, wiring CORS (gin-contrib/cors, matching the
// teacher's permissive-by-default local-tool posture) and the Prometheus
// /metrics endpoint.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.Default())

	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	r.POST("/runs", s.handleStatelessRun)

	r.POST("/instances", s.handleCreateSession)
	r.DELETE("/instances/:id", s.handleDeleteSession)
	r.POST("/instances/:id/run", s.handleRun)
	r.POST("/instances/:id/hooks", s.handleSetHook)
	r.GET("/instances/:id/report", s.handleReport)
	r.GET("/instances/:id/stream", s.handleStream)

	return r
}

// handleStatelessRun implements the stateless POST /runs endpoint: it spins
// up a throwaway Orchestrator, runs the given source once, and disposes it -
// conceptually the teacher's /execute, with no session to create or clean up
// afterwards. The response body carries a generated run_id plus the run's
// value, its duration as a string, and the full event report; a failed run
// yields run_id and error, still with status 200.
func (s *Server) handleStatelessRun(c *gin.Context) {
	var req runRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Specifier == "" {
		req.Specifier = "request.js"
	}

	orch, err := sandbox.New(s.opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer orch.Dispose(true)

	metrics.SessionsCreated.Inc()
	result, runErr := orch.Run(c.Request.Context(), req.Specifier, req.Source)
	if runErr != nil {
		c.JSON(http.StatusOK, gin.H{"run_id": uuid.NewString(), "error": runErr.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"run_id":   uuid.NewString(),
		"value":    result.Value,
		"duration": result.Duration.String(),
		"report":   orch.Report().All(),
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleCreateSession(c *gin.Context) {
	orch, err := sandbox.New(s.opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	id := uuid.NewString()
	sess := &session{orch: orch, createdAt: time.Now()}

	if s.reportDB != "" {
		sink, err := report.OpenSQLiteSink(s.reportDB, id)
		if err != nil {
			s.logger.Warn("failed to open report sqlite sink", zap.Error(err))
		} else {
			sess.sqlite = sink
			orch.Report().AddSink(sink)
		}
	}

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	metrics.SessionsCreated.Inc()
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (s *Server) handleDeleteSession(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown session"})
		return
	}
	if sess.sqlite != nil {
		sess.sqlite.Close()
	}
	sess.orch.Dispose(true)
	c.Status(http.StatusNoContent)
}

type runRequest struct {
	Specifier string `json:"specifier"`
	Source    string `json:"source"`
}

func (s *Server) handleRun(c *gin.Context) {
	sess, ok := s.lookup(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown session"})
		return
	}

	var req runRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Specifier == "" {
		req.Specifier = "request.js"
	}

	result, err := sess.orch.Run(c.Request.Context(), req.Specifier, req.Source)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"value": result.Value, "duration": result.Duration.String()})
}

type hookRequest struct {
	Path       string `json:"path"`
	Value      any    `json:"value"`
	IsWritable bool   `json:"isWritable"`
}

// handleSetHook installs a Copy-kind hook on a session's orchestrator
// (POST /instances/:id/hooks). Installing a Host Callable or Reference hook
// requires an in-process Go closure and so is not expressible over the wire;
// this endpoint covers the structured-value (hook.Copy) case, which is the
// one a JSON request body can actually carry.
func (s *Server) handleSetHook(c *gin.Context) {
	sess, ok := s.lookup(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown session"})
		return
	}

	var req hookRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path is required"})
		return
	}

	if err := sess.orch.Hook(req.Path, req.Value, req.IsWritable); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleReport(c *gin.Context) {
	sess, ok := s.lookup(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown session"})
		return
	}
	c.JSON(http.StatusOK, sess.orch.Report().All())
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// streamSink adapts a websocket connection to report.Sink, fanning out
// every newly appended event with no backlog replay, per §8.3 invariant 10.
type streamSink struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (w *streamSink) Append(e event.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.WriteJSON(e)
}

func (s *Server) handleStream(c *gin.Context) {
	sess, ok := s.lookup(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown session"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sink := &streamSink{conn: conn}
	sess.orch.Report().AddSink(sink)

	// Block until the client disconnects; reads are discarded, this is a
	// server->client push stream only.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) lookup(id string) (*session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// Run starts the HTTP server on addr and blocks until ctx is cancelled.
func Run(ctx context.Context, addr, reportDB string, opts sandbox.Options, logger *zap.Logger) error {
	srv := New(opts, logger, reportDB)
	httpSrv := &http.Server{Addr: addr, Handler: srv.Router()}

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	}
}
