package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/bgm-tracker/tracker/log"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
)

// RequestIDHeader carries the id assigned to every request.
const RequestIDHeader = "X-Request-Id"

type requestIDKey struct{}

// RequestID returns the id assigned to the request carrying ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func logger(r *http.Request) *logrus.Entry {
	return log.WithFields(log.Fields{
		"request_id": RequestID(r.Context()),
		"method":     r.Method,
		"path":       r.URL.Path,
	})
}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.size += n
	return n, err
}

func withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		logger(r).WithFields(log.Fields{
			"status":   lo.Ternary(rec.status == 0, http.StatusOK, rec.status),
			"bytes":    rec.size,
			"duration": time.Since(start).String(),
			"remote":   r.RemoteAddr,
		}).Info("request")
	})
}

// exposeWriter lists every header of the actual response in Access-Control-Expose-Headers.
type exposeWriter struct {
	http.ResponseWriter
	wrote bool
}

func (e *exposeWriter) WriteHeader(code int) {
	if !e.wrote {
		e.wrote = true
		header := e.Header()
		names := make([]string, 0, len(header))
		for name := range header {
			if !strings.HasPrefix(name, "Access-Control-") {
				names = append(names, name)
			}
		}
		if len(names) > 0 {
			slices.Sort(names)
			header.Set("Access-Control-Expose-Headers", strings.Join(names, ","))
		}
	}
	e.ResponseWriter.WriteHeader(code)
}

func (e *exposeWriter) Write(b []byte) (int, error) {
	if !e.wrote {
		e.WriteHeader(http.StatusOK)
	}
	return e.ResponseWriter.Write(b)
}

// withCORS allows any origin with credentials.
// Preflight requests are answered directly with 204.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := w.Header()
		origin := r.Header.Get("Origin")
		if origin != "" {
			header.Add("Vary", "Origin")
			header.Set("Access-Control-Allow-Origin", origin)
			header.Set("Access-Control-Allow-Credentials", "true")
		}

		if r.Method == http.MethodOptions {
			if method := r.Header.Get("Access-Control-Request-Method"); method != "" {
				header.Set("Access-Control-Allow-Methods", method)
			}
			if headers := r.Header.Get("Access-Control-Request-Headers"); headers != "" {
				header.Set("Access-Control-Allow-Headers", headers)
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(&exposeWriter{ResponseWriter: w}, r)
	})
}
