package api

import (
	"net/http"

	"github.com/gobwas/glob"

	"github.com/munkhbileg/openproject/internal/gesture"
	"github.com/munkhbileg/openproject/internal/reorder"
	"github.com/munkhbileg/openproject/internal/rows"
)

// Row is the wire form of a row descriptor.
type Row struct {
	Identifier string `json:"identifier"`
	EntityID   string `json:"entityId,omitempty"`
	Hidden     bool   `json:"hidden,omitempty"`
}

// RowsResponse lists the view's rows in order.
type RowsResponse struct {
	Rows []Row `json:"rows"`
}

// OrderResponse reports the persisted order and publish counters.
type OrderResponse struct {
	Order   []string `json:"order"`
	Version uint64   `json:"version"`
	Sent    uint64   `json:"sent"`
	Failed  uint64   `json:"failed"`
	Skipped uint64   `json:"skipped"`
}

// GestureRequest is the body of the moved, added and removed endpoints.
type GestureRequest struct {
	Identifier string `json:"identifier"`
	EntityID   string `json:"entityId"`
	RowIndex   int    `json:"rowIndex"`
	Previous   string `json:"previous"`
	Next       string `json:"next"`
}

// CreateRequest is the body of the created endpoint.
type CreateRequest struct {
	EntityID string `json:"entityId"`
}

// CreateResponse carries the identifier assigned to a created row.
type CreateResponse struct {
	Identifier string `json:"identifier"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toRows(seq rows.Sequence) RowsResponse {
	out := make([]Row, len(seq))
	for i, d := range seq {
		out[i] = Row{Identifier: d.Identifier, EntityID: d.EntityID, Hidden: d.Hidden}
	}
	return RowsResponse{Rows: out}
}

// listRows returns the current rows. The optional match parameter is a glob
// over row identifiers, e.g. "wp-row-1*".
func (s *server) listRows(w http.ResponseWriter, r *http.Request) {
	seq := s.view.Snapshot()
	if pattern := r.URL.Query().Get("match"); pattern != "" {
		g, err := glob.Compile(pattern)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid match pattern: "+err.Error())
			return
		}
		filtered := seq[:0]
		for _, d := range seq {
			if g.Match(d.Identifier) {
				filtered = append(filtered, d)
			}
		}
		seq = filtered
	}
	writeJSON(w, http.StatusOK, toRows(seq))
}

func (s *server) order(w http.ResponseWriter, r *http.Request) {
	stats := s.view.Stats()
	writeJSON(w, http.StatusOK, OrderResponse{
		Order:   s.view.PendingOrder(),
		Version: stats.Version,
		Sent:    stats.Sent,
		Failed:  stats.Failed,
		Skipped: stats.Skipped,
	})
}

// readGesture decodes a gesture body. requireIdentifier rejects bodies that
// only carry an entity id.
func (s *server) readGesture(w http.ResponseWriter, r *http.Request, requireIdentifier bool) (GestureRequest, bool) {
	var req GestureRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return req, false
	}
	if req.Identifier == "" && req.EntityID != "" && !requireIdentifier {
		req.Identifier = reorder.IdentifierFor(req.EntityID)
	}
	if req.Identifier == "" {
		writeError(w, http.StatusBadRequest, "identifier is required")
		return req, false
	}
	if req.RowIndex < 0 {
		writeError(w, http.StatusBadRequest, "rowIndex must not be negative")
		return req, false
	}
	return req, true
}

func (req GestureRequest) element() gesture.Element {
	return gesture.Element{Identifier: req.Identifier, EntityID: req.EntityID, RowIndex: req.RowIndex}
}

func (s *server) moved(w http.ResponseWriter, r *http.Request) {
	req, ok := s.readGesture(w, r, true)
	if !ok {
		return
	}
	s.gestures.Move(s.container, gesture.Moved{Element: req.element(), Previous: req.Previous, Next: req.Next})
	writeJSON(w, http.StatusOK, toRows(s.view.Snapshot()))
}

func (s *server) added(w http.ResponseWriter, r *http.Request) {
	req, ok := s.readGesture(w, r, false)
	if !ok {
		return
	}
	s.gestures.Add(s.container, gesture.Added{Element: req.element(), Next: req.Next})
	writeJSON(w, http.StatusOK, toRows(s.view.Snapshot()))
}

func (s *server) removed(w http.ResponseWriter, r *http.Request) {
	req, ok := s.readGesture(w, r, false)
	if !ok {
		return
	}
	s.gestures.Remove(s.container, gesture.Removed{Element: req.element()})
	writeJSON(w, http.StatusOK, toRows(s.view.Snapshot()))
}

// created announces a row created inline. The row is appended
// asynchronously, so the response only carries its identifier.
func (s *server) created(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if r.ContentLength != 0 {
		if err := decode(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}
	if s.creations == nil {
		writeError(w, http.StatusNotImplemented, "inline creation is not enabled")
		return
	}

	identifier := reorder.IdentifierPrefix + "new-" + s.newID()
	if req.EntityID != "" {
		identifier = reorder.IdentifierFor(req.EntityID)
	}
	s.creations.Publish(reorder.Created{Identifier: identifier, EntityID: req.EntityID})
	writeJSON(w, http.StatusAccepted, CreateResponse{Identifier: identifier})
}
