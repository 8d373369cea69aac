package http

import (
	"nodegraph/src/nodes"
)

// NodeDTO is the external representation of a node: its props plus id and __typename.
type NodeDTO map[string]any

type ConnectionEdgeDTO struct {
	Cursor string  `json:"cursor"`
	Node   NodeDTO `json:"node"`
}

type ConnectionDTO struct {
	Edges    []ConnectionEdgeDTO `json:"edges"`
	PageInfo nodes.PageInfo      `json:"pageInfo"`
	Count    int                 `json:"count"`
}

type DeleteResponse struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

type CreateRelatedRequest struct {
	Props     map[string]any `json:"props"`
	EdgeProps map[string]any `json:"edgeProps"`
}

func MapNodeToResponse(n *nodes.Node) NodeDTO {
	return NodeDTO(n.ToExternalRepresentation())
}

func MapNodesToResponse(list []*nodes.Node) []NodeDTO {
	response := make([]NodeDTO, 0, len(list))
	for _, n := range list {
		response = append(response, MapNodeToResponse(n))
	}
	return response
}

func MapConnectionToResponse(conn nodes.Connection) ConnectionDTO {
	edges := make([]ConnectionEdgeDTO, 0, len(conn.Edges))
	for _, edge := range conn.Edges {
		edges = append(edges, ConnectionEdgeDTO{
			Cursor: edge.Cursor,
			Node:   MapNodeToResponse(edge.Node),
		})
	}

	return ConnectionDTO{
		Edges:    edges,
		PageInfo: conn.PageInfo,
		Count:    conn.Count,
	}
}
