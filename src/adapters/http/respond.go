package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"nodegraph/src/domain"
	"nodegraph/src/nodes"
)

var errUnknownClass = errors.New("unknown class")

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("Failed to write JSON response", "error", err)
	}
}

// writeError maps domain errors to status codes. Anything unexpected is logged and hidden
// behind ErrUnavailableServer.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, errUnknownClass),
		errors.Is(err, nodes.ErrUnknownRelationship):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, nodes.ErrInvalidCursor):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrCreation):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, domain.ErrNotImplemented):
		http.Error(w, err.Error(), http.StatusNotImplemented)
	default:
		s.logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		http.Error(w, domain.ErrUnavailableServer.Error(), http.StatusInternalServerError)
	}
}

func viewerFrom(r *http.Request) domain.Viewer {
	return domain.NewViewer(r.Header.Get(HeaderOwnerID))
}

func classFrom(r *http.Request) (*nodes.Class, error) {
	name := r.PathValue("class")
	class, ok := nodes.ClassByName(name)
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, errUnknownClass)
	}
	return class, nil
}
