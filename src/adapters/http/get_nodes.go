package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"nodegraph/src/domain"
	"nodegraph/src/nodes"
)

// parâmetros reservados para paginação; o resto vira filtro de props
var paginationParams = map[string]bool{"first": true, "after": true, "last": true, "before": true}

const maxPageSize = 100

func (s *Server) GetNode(w http.ResponseWriter, r *http.Request) {
	class, err := classFrom(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	n, err := class.FindOrFail(r.Context(), viewerFrom(r), r.PathValue("id"), nodes.NewCache())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, MapNodeToResponse(n))
}

func (s *Server) ListNodes(w http.ResponseWriter, r *http.Request) {
	class, err := classFrom(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	query := r.URL.Query()

	args := nodes.ConnectionArgs{
		After:  query.Get("after"),
		Before: query.Get("before"),
	}
	if args.First, err = pageSize(query.Get("first")); err != nil {
		http.Error(w, "Invalid first format", http.StatusBadRequest)
		return
	}
	if args.Last, err = pageSize(query.Get("last")); err != nil {
		http.Error(w, "Invalid last format", http.StatusBadRequest)
		return
	}
	if args.First == 0 && args.Last == 0 {
		args.First = maxPageSize
	}

	propsFilter := domain.PropsFilter{}
	for key, values := range query {
		if paginationParams[key] || len(values) == 0 {
			continue
		}
		propsFilter[key] = parseFilterValue(values[0])
	}

	conn, err := class.Connection(r.Context(), viewerFrom(r), nil, propsFilter, args, nodes.NewCache())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, MapConnectionToResponse(conn))
}

func (s *Server) GetRelated(w http.ResponseWriter, r *http.Request) {
	class, err := classFrom(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	cache := nodes.NewCache()

	n, err := class.FindOrFail(r.Context(), viewerFrom(r), r.PathValue("id"), cache)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	related, err := n.Related(r.Context(), r.PathValue("relationship"), cache)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, MapNodesToResponse(related))
}

func pageSize(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}

	size, err := strconv.Atoi(raw)
	if err != nil || size < 0 {
		return 0, strconv.ErrSyntax
	}
	return min(size, maxPageSize), nil
}

// parseFilterValue reads numbers, booleans and JSON objects as such; anything else is a string.
func parseFilterValue(raw string) any {
	var value any
	if err := json.Unmarshal([]byte(raw), &value); err == nil {
		return value
	}
	return raw
}
