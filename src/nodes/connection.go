package nodes

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"

	"nodegraph/src/domain"
)

var ErrInvalidCursor = errors.New("invalid cursor")

// ConnectionArgs are relay style pagination arguments. Zero values mean "not set".
type ConnectionArgs struct {
	First  int
	After  string
	Last   int
	Before string
}

type ConnectionEdge struct {
	Cursor string `json:"cursor"`
	Node   *Node  `json:"-"`
}

type PageInfo struct {
	HasNextPage     bool   `json:"hasNextPage"`
	HasPreviousPage bool   `json:"hasPreviousPage"`
	StartCursor     string `json:"startCursor,omitempty"`
	EndCursor       string `json:"endCursor,omitempty"`
}

type Connection struct {
	Edges    []ConnectionEdge
	PageInfo PageInfo
	Count    int
}

// SortValueToCursor encodes the decimal sort value as base64.
func SortValueToCursor(sortValue int64) string {
	return base64.StdEncoding.EncodeToString([]byte(strconv.FormatInt(sortValue, 10)))
}

func CursorToSortValue(cursor string) (int64, error) {
	raw, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}

	sortValue, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	return sortValue, nil
}

// Paginate slices nodes, which must be ordered by sort value, according to args.
// Count is the number of nodes before slicing by First/Last.
func Paginate(nodes []*Node, args ConnectionArgs) (Connection, error) {
	window := nodes

	if args.After != "" {
		after, err := CursorToSortValue(args.After)
		if err != nil {
			return Connection{}, err
		}
		filtered := make([]*Node, 0, len(window))
		for _, n := range window {
			if n.metadata.SortValue > after {
				filtered = append(filtered, n)
			}
		}
		window = filtered
	}

	if args.Before != "" {
		before, err := CursorToSortValue(args.Before)
		if err != nil {
			return Connection{}, err
		}
		filtered := make([]*Node, 0, len(window))
		for _, n := range window {
			if n.metadata.SortValue < before {
				filtered = append(filtered, n)
			}
		}
		window = filtered
	}

	conn := Connection{Count: len(window)}

	if args.First > 0 && len(window) > args.First {
		window = window[:args.First]
		conn.PageInfo.HasNextPage = true
	}
	if args.Last > 0 && len(window) > args.Last {
		window = window[len(window)-args.Last:]
		conn.PageInfo.HasPreviousPage = true
	}

	conn.Edges = make([]ConnectionEdge, len(window))
	for i, n := range window {
		conn.Edges[i] = ConnectionEdge{Cursor: SortValueToCursor(n.metadata.SortValue), Node: n}
	}
	if len(conn.Edges) > 0 {
		conn.PageInfo.StartCursor = conn.Edges[0].Cursor
		conn.PageInfo.EndCursor = conn.Edges[len(conn.Edges)-1].Cursor
	}

	return conn, nil
}

// Connection queries the class and paginates the result.
func (c *Class) Connection(ctx context.Context, vc domain.ViewerContext, mf domain.MetadataFilter, pf domain.PropsFilter, args ConnectionArgs, cache Cache) (Connection, error) {
	nodes, err := c.Query(ctx, vc, mf, pf, nil, cache)
	if err != nil {
		return Connection{}, err
	}
	return Paginate(nodes, args)
}
