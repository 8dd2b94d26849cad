// Package server exposes preview and apply over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/walteh/bitablerc/pkg/replace"
	"github.com/walteh/bitablerc/pkg/table"
	"gitlab.com/tozd/go/errors"
)

const maxBodyBytes = 1 << 20

// Engine is the part of replace.Engine the server needs
type Engine interface {
	Preview(ctx context.Context, req replace.Request) ([]table.RecordDiff, error)
	Apply(ctx context.Context, req replace.Request) (table.BatchResult, error)
	Fields(ctx context.Context, tableID string) ([]table.Field, error)
}

var _ Engine = (*replace.Engine)(nil)

// 🌐 Server is the HTTP front end for an Engine
type Server struct {
	engine Engine
	router *chi.Mux
	logger zerolog.Logger
}

// New creates a Server. Request logs go to the logger carried by ctx.
func New(ctx context.Context, engine Engine) *Server {
	s := &Server{
		engine: engine,
		router: chi.NewRouter(),
		logger: *zerolog.Ctx(ctx),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	s.router.Route("/tables/{tableID}", func(r chi.Router) {
		r.Get("/fields", s.handleFields)
		r.Post("/preview", s.handlePreview)
		r.Post("/apply", s.handleApply)
	})
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("starting server")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Errorf("serving: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		s.logger.Info().Msg("shutting down server")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.Errorf("shutting down: %w", err)
		}
		return nil
	}
}

// requestLogger puts a request-scoped zerolog logger into the context and
// logs each request when it completes.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logger := s.logger.With().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Logger()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(logger.WithContext(r.Context())))

		logger.Info().
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

type replaceBody struct {
	Find    string `json:"find"`
	Replace string `json:"replace"`
	Regex   bool   `json:"regex"`
}

type previewResponse struct {
	Count int                `json:"count"`
	Diffs []table.RecordDiff `json:"diffs"`
}

type fieldsResponse struct {
	Fields []table.Field `json:"fields"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request) (replace.Request, bool) {
	var body replaceBody
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		s.respondError(w, r, errors.Errorf("decoding body: %w", err), http.StatusBadRequest)
		return replace.Request{}, false
	}
	return replace.Request{
		TableID:     chi.URLParam(r, "tableID"),
		Pattern:     body.Find,
		Replacement: body.Replace,
		Regex:       body.Regex,
	}, true
}

func (s *Server) handleFields(w http.ResponseWriter, r *http.Request) {
	fields, err := s.engine.Fields(r.Context(), chi.URLParam(r, "tableID"))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, fieldsResponse{Fields: fields})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}

	diffs, err := s.engine.Preview(r.Context(), req)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	if diffs == nil {
		diffs = []table.RecordDiff{}
	}
	writeJSON(w, http.StatusOK, previewResponse{Count: len(diffs), Diffs: diffs})
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}

	result, err := s.engine.Apply(r.Context(), req)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	if result.Failures == nil {
		result.Failures = []table.Failure{}
	}
	writeJSON(w, http.StatusOK, result)
}

// statusFor maps engine errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, replace.ErrInvalidPattern):
		return http.StatusBadRequest
	case errors.Is(err, replace.ErrSchemaFetch), errors.Is(err, replace.ErrRecordFetch):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	zerolog.Ctx(r.Context()).Error().Err(err).Int("status", status).Msg("request error")
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
