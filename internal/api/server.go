// Package api exposes a view's rows over HTTP and accepts completed gestures
// from clients that render the table elsewhere.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/munkhbileg/openproject/internal/gesture"
	"github.com/munkhbileg/openproject/internal/logging"
	"github.com/munkhbileg/openproject/internal/publish"
	"github.com/munkhbileg/openproject/internal/reorder"
	"github.com/munkhbileg/openproject/internal/rows"
	"github.com/munkhbileg/openproject/internal/stream"
)

// maxBody bounds request bodies.
const maxBody = 64 << 10

// View is the read side of an attached view.
type View interface {
	Snapshot() rows.Sequence
	PendingOrder() []string
	Stats() publish.Stats
	Closed() bool
}

// Producer publishes gestures towards the view.
type Producer interface {
	Move(container string, m gesture.Moved)
	Add(container string, a gesture.Added)
	Remove(container string, r gesture.Removed)
}

// Options configures the server.
type Options struct {
	Container string
	View      View
	Gestures  Producer
	Creations *stream.Broadcaster[reorder.Created]
	Logger    *logging.Logger
	// NewID generates identifiers for rows created without an entity id.
	NewID func() string
}

type server struct {
	container string
	view      View
	gestures  Producer
	creations *stream.Broadcaster[reorder.Created]
	logger    *logging.Logger
	newID     func() string
}

// NewServer returns the HTTP handler for one view.
func NewServer(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	newID := opts.NewID
	if newID == nil {
		newID = func() string { return uuid.NewString() }
	}
	s := &server{
		container: opts.Container,
		view:      opts.View,
		gestures:  opts.Gestures,
		creations: opts.Creations,
		logger:    logger.WithComponent("api"),
		newID:     newID,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/rows", func(r chi.Router) {
		r.Use(s.requireView)
		r.Get("/", s.listRows)
		r.Post("/moved", s.moved)
		r.Post("/added", s.added)
		r.Post("/removed", s.removed)
		r.Post("/created", s.created)
	})
	r.With(s.requireView).Get("/order", s.order)

	return r
}

func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds())
	})
}

func (s *server) requireView(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.view == nil || s.view.Closed() {
			writeError(w, http.StatusServiceUnavailable, "row ordering is not available")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
