package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ajmal017/piker/internal/annotate"
	"github.com/ajmal017/piker/internal/chart"
	"github.com/ajmal017/piker/internal/cursor"
	"github.com/ajmal017/piker/internal/render"
	"github.com/ajmal017/piker/internal/symbols"
	"github.com/ajmal017/piker/pkg/config"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Server exposes chart sessions over HTTP: render snapshots, panel
// registration, level lines and the pointer-event websocket.
type Server struct {
	cfg        *config.Config
	logger     *logrus.Logger
	log        *logrus.Entry
	router     *mux.Router
	httpServer *http.Server

	manager *chart.Manager
	symbols *symbols.Manager
	hub     *Hub
}

// NewServer creates a new API server
func NewServer(
	cfg *config.Config,
	logger *logrus.Logger,
	manager *chart.Manager,
	symbolsMgr *symbols.Manager,
	hub *Hub,
) *Server {
	s := &Server{
		cfg:     cfg,
		logger:  logger,
		log:     logger.WithField("component", "api"),
		manager: manager,
		symbols: symbolsMgr,
		hub:     hub,
	}

	s.setupRoutes()

	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router = mux.NewRouter()

	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.recoveryMiddleware)

	apiV1 := s.router.PathPrefix("/api/v1").Subrouter()

	apiV1.HandleFunc("/health", s.handleHealth).Methods("GET")
	apiV1.HandleFunc("/symbols", s.handleSymbols).Methods("GET")

	apiV1.HandleFunc("/chart/{symbol}/render", s.handleRender).Methods("GET")
	apiV1.HandleFunc("/chart/{symbol}/cursor", s.handleCursor).Methods("GET")
	apiV1.HandleFunc("/chart/{symbol}/panels", s.handleRegisterPanel).Methods("POST")
	apiV1.HandleFunc("/chart/{symbol}/levels", s.handleCreateLevel).Methods("POST")
	apiV1.HandleFunc("/chart/{symbol}/levels/{handle:[0-9]+}", s.handleDragLevel).Methods("PUT")
	apiV1.HandleFunc("/chart/{symbol}/levels/{handle:[0-9]+}", s.handleRemoveLevel).Methods("DELETE")

	apiV1.HandleFunc("/ws", s.hub.ServeWS).Methods("GET")
}

// Start starts the HTTP server
func (s *Server) Start() error {
	handler := http.Handler(s.router)

	if s.cfg.Security.CORSEnabled {
		handler = handlers.CORS(
			handlers.AllowedOrigins(s.cfg.Security.CORSOrigins),
			handlers.AllowedMethods(s.cfg.Security.CORSMethods),
			handlers.AllowedHeaders(s.cfg.Security.CORSHeaders),
		)(handler)
	}

	s.httpServer = &http.Server{
		Addr:         s.cfg.GetServerAddr(),
		Handler:      handler,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	s.log.WithField("addr", s.httpServer.Addr).Info("API server listening")
	return s.httpServer.ListenAndServe()
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Middleware

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		s.logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   wrapped.statusCode,
			"duration": time.Since(start).Milliseconds(),
			"ip":       r.RemoteAddr,
		}).Info("HTTP request")
	})
}

func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.WithField("panic", rec).Error("Handler panicked")
				s.writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"symbols": s.manager.Symbols(),
		"time":    time.Now().UTC(),
	})
}

func (s *Server) handleSymbols(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"active": s.manager.Symbols(),
		"known":  s.symbols.Count(),
	})
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*chart.Session, bool) {
	symbol := mux.Vars(r)["symbol"]
	session, ok := s.manager.Get(symbol)
	if !ok {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("no session for symbol %s", symbol))
		return nil, false
	}
	return session, true
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	var snapshot chart.Snapshot
	session.Do(func() {
		snapshot = session.Render()
	})

	s.writeJSON(w, http.StatusOK, snapshot)
}

// cursorState is the serialized crosshair state of one panel
type cursorState struct {
	ID            string      `json:"id"`
	VLineX        float64     `json:"vline_x"`
	HLineY        float64     `json:"hline_y"`
	HLineVisible  bool        `json:"hline_visible"`
	YLabel        string      `json:"y_label"`
	YLabelVisible bool        `json:"y_label_visible"`
	Contents      string      `json:"contents"`
	Bounds        render.Rect `json:"bounds"`
}

func (s *Server) handleCursor(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	var (
		panels []cursorState
		active string
		xLabel string
		bounds render.Rect
	)
	session.Do(func() {
		ctl := session.Cursor()
		active = ctl.ActivePanelID()
		xLabel = ctl.XLabel
		bounds = ctl.BoundingBox()
		for _, id := range s.panelIDs(session) {
			p, _ := ctl.Panel(id)
			panels = append(panels, cursorState{
				ID:            p.ID,
				VLineX:        p.VLineX,
				HLineY:        p.HLineY,
				HLineVisible:  p.HLineVisible,
				YLabel:        p.YLabel,
				YLabelVisible: p.YLabelVisible,
				Contents:      session.Contents(p.ID),
				Bounds:        p.Bounds,
			})
		}
	})

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"active_panel": active,
		"x_label":      xLabel,
		"bounds":       bounds,
		"panels":       panels,
	})
}

// panelRequest registers a linked subplot with its screen transform
type panelRequest struct {
	ID        string      `json:"id"`
	XScale    float64     `json:"x_scale"`
	XOffset   float64     `json:"x_offset"`
	YScale    float64     `json:"y_scale"`
	YOffset   float64     `json:"y_offset"`
	Bounds    render.Rect `json:"bounds"`
	CursorDot string      `json:"cursor_dot,omitempty"`
}

func (s *Server) handleRegisterPanel(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	var req panelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ID == "" {
		s.writeError(w, http.StatusBadRequest, "panel id is required")
		return
	}
	if req.XScale == 0 {
		req.XScale = 1
	}
	if req.YScale == 0 {
		req.YScale = 1
	}

	session.Do(func() {
		p := session.RegisterPanel(req.ID, cursor.Transform{
			XScale:  req.XScale,
			XOffset: req.XOffset,
			YScale:  req.YScale,
			YOffset: req.YOffset,
		}, req.Bounds)
		if req.CursorDot != "" {
			p.AddDot(req.CursorDot)
		}
	})

	s.writeJSON(w, http.StatusCreated, map[string]string{"id": req.ID})
}

// levelRequest creates or moves a price-level line
type levelRequest struct {
	Level     float64 `json:"level"`
	Draggable bool    `json:"draggable"`
	Digits    int     `json:"digits"`
}

func (s *Server) handleCreateLevel(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	var req levelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	digits := req.Digits
	if digits <= 0 {
		digits = s.symbols.PriceDigits(session.Symbol(), s.cfg.Cursor.Digits)
	}

	var (
		handle int
		err    error
	)
	session.Do(func() {
		handle, err = session.Levels().CreateLevelLine(req.Level, req.Draggable, annotate.PriceFormat(digits), "")
	})
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusCreated, map[string]int{"handle": handle})
}

func (s *Server) handleDragLevel(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	handle := muxIntVar(r, "handle")

	var req levelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var err error
	session.Do(func() {
		err = session.Levels().Drag(handle, req.Level)
	})
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{"handle": handle, "level": req.Level})
}

func (s *Server) handleRemoveLevel(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	handle := muxIntVar(r, "handle")
	session.Do(func() {
		session.Levels().Remove(handle)
	})

	w.WriteHeader(http.StatusNoContent)
}

// panelIDs lists a session's registered panel ids in registration
// order via the controller
func (s *Server) panelIDs(session *chart.Session) []string {
	return session.PanelIDs()
}

// Helpers

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Error("Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func muxIntVar(r *http.Request, name string) int {
	v := 0
	fmt.Sscanf(mux.Vars(r)[name], "%d", &v)
	return v
}
