package http

import (
	"encoding/json"
	"net/http"

	"nodegraph/src/domain/entities"
	"nodegraph/src/nodes"
)

func (s *Server) CreateNode(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get(HeaderOwnerID) == "" {
		http.Error(w, HeaderOwnerID+" header is required", http.StatusUnauthorized)
		return
	}

	class, err := classFrom(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if class.IsEdge() {
		http.Error(w, "edges are created through relationships", http.StatusBadRequest)
		return
	}

	var props map[string]any
	if err := json.NewDecoder(r.Body).Decode(&props); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	n, err := class.CreateUnattached(r.Context(), viewerFrom(r), props, nil, nodes.NewCache())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, MapNodeToResponse(n))
}

func (s *Server) CreateRelated(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get(HeaderOwnerID) == "" {
		http.Error(w, HeaderOwnerID+" header is required", http.StatusUnauthorized)
		return
	}

	class, err := classFrom(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var request CreateRelatedRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	cache := nodes.NewCache()

	n, err := class.FindOrFail(r.Context(), viewerFrom(r), r.PathValue("id"), cache)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	created, err := n.CreateRelated(r.Context(), r.PathValue("relationship"), request.Props, request.EdgeProps, cache)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, MapNodeToResponse(created))
}

// UpdateNode merges the body into the node props and saves it.
func (s *Server) UpdateNode(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get(HeaderOwnerID) == "" {
		http.Error(w, HeaderOwnerID+" header is required", http.StatusUnauthorized)
		return
	}

	class, err := classFrom(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	n, err := class.FindOrFail(r.Context(), viewerFrom(r), r.PathValue("id"), nodes.NewCache())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := n.SetProps(entities.Props(patch)); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if n.IsDirty() {
		if _, err := n.Save(r.Context()); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	s.writeJSON(w, http.StatusOK, MapNodeToResponse(n))
}

// DeleteNode cascades through strong relationships.
func (s *Server) DeleteNode(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get(HeaderOwnerID) == "" {
		http.Error(w, HeaderOwnerID+" header is required", http.StatusUnauthorized)
		return
	}

	class, err := classFrom(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	n, err := class.FindOrFail(r.Context(), viewerFrom(r), r.PathValue("id"), nil)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	deleted, err := n.Delete(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, DeleteResponse{ID: n.ID(), Deleted: deleted})
}
