// Package server implements the tracker backend the userscript talks to:
// the bgm.tv OAuth callback, token refresh, subject lookups and missing season reports.
package server

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/bgm-tracker/tracker/bgm"
	"github.com/bgm-tracker/tracker/log"
	"github.com/bgm-tracker/tracker/store"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// DefaultMissingLimit caps the number of reports returned by the missing list endpoint.
const DefaultMissingLimit = 30

//go:embed report.schema.json
var reportSchema []byte

//go:embed templates
var templates embed.FS

// Server serves the tracker HTTP API.
type Server struct {
	store        store.Store
	bgm          *bgm.Client
	missingLimit int
	reports      *jsonschema.Schema
	page         *template.Template
}

// Option customizes server construction.
type Option func(*Server)

// WithMissingLimit overrides DefaultMissingLimit.
func WithMissingLimit(limit int) Option {
	return func(s *Server) {
		if limit > 0 {
			s.missingLimit = limit
		}
	}
}

// New prepares a server backed by st that exchanges tokens through client.
func New(st store.Store, client *bgm.Client, opts ...Option) (*Server, error) {
	if st == nil {
		return nil, errors.New("server: store is nil")
	}
	if client == nil {
		return nil, errors.New("server: bgm client is nil")
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("report.schema.json", bytes.NewReader(reportSchema)); err != nil {
		return nil, fmt.Errorf("add report schema: %w", err)
	}

	schema, err := compiler.Compile("report.schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile report schema: %w", err)
	}

	page, err := template.ParseFS(templates, "templates/post_to_extension.html")
	if err != nil {
		return nil, fmt.Errorf("parse callback page: %w", err)
	}

	s := &Server{
		store:        st,
		bgm:          client,
		missingLimit: DefaultMissingLimit,
		reports:      schema,
		page:         page,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Handler returns the routed handler wrapped in request id, access log and CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /oauth_callback", s.handleCallback)
	mux.HandleFunc("POST /api/v0.1/refresh_token", s.handleRefresh)
	mux.HandleFunc("POST /api/v0.1/reportMissingBangumi", s.handleReport)
	mux.HandleFunc("GET /api/v0.1/missing_bangumi", s.handleMissing)
	mux.HandleFunc("GET /api/v0.2/querySubjectID", s.handleQuerySubject)

	return withRequestID(withAccessLog(withCORS(mux)))
}

// Run listens on addr until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errs := make(chan error, 1)
	go func() {
		errs <- srv.Serve(listener)
	}()

	log.WithFields(log.Fields{"addr": listener.Addr().String()}).Info("server listening")

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
