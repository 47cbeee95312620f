package typegraph

import (
	"errors"

	"modelgql/internal/cursor"
)

// relationTotalCountPlaceholder is reported as totalCount by every resolver.
// No count query exists yet, so the value does not reflect the collection.
const relationTotalCountPlaceholder = 0

var errNegativeLimit = errors.New("typegraph: first and last must be non-negative")

// ProjectConnection slices a full collection into a connection payload using
// Relay array-connection semantics. Cursors encode the offset of each edge in
// nodes; a cursor that does not decode, or names another model, is ignored.
func ProjectConnection(model string, nodes []Node, page Pagination) (map[string]interface{}, error) {
	if (page.First != nil && *page.First < 0) || (page.Last != nil && *page.Last < 0) {
		return nil, errNegativeLimit
	}

	length := len(nodes)
	// Decoded offsets are unbounded, so both are clamped to [-1, length]
	// before any arithmetic.
	beforeOffset := clampOffset(cursor.OffsetFor(page.Before, model, length), length)
	afterOffset := clampOffset(cursor.OffsetFor(page.After, model, -1), length)

	startOffset := afterOffset + 1
	endOffset := min(beforeOffset, length)
	if page.First != nil && *page.First < endOffset-startOffset {
		endOffset = startOffset + *page.First
	}
	if page.Last != nil && *page.Last < endOffset-startOffset {
		startOffset = endOffset - *page.Last
	}

	edges := make([]interface{}, 0, max(endOffset-startOffset, 0))
	for i := max(startOffset, 0); i < endOffset; i++ {
		edges = append(edges, map[string]interface{}{
			"node":   nodes[i],
			"cursor": cursor.Encode(model, i),
		})
	}

	lowerBound := 0
	if page.After != nil {
		lowerBound = afterOffset + 1
	}
	upperBound := length
	if page.Before != nil {
		upperBound = beforeOffset
	}

	var startCursor, endCursor interface{}
	if len(edges) > 0 {
		startCursor = edges[0].(map[string]interface{})["cursor"]
		endCursor = edges[len(edges)-1].(map[string]interface{})["cursor"]
	}

	return map[string]interface{}{
		"edges": edges,
		"pageInfo": map[string]interface{}{
			"startCursor":     startCursor,
			"endCursor":       endCursor,
			"hasPreviousPage": page.Last != nil && startOffset > lowerBound,
			"hasNextPage":     page.First != nil && endOffset < upperBound,
		},
		"totalCount": relationTotalCountPlaceholder,
	}, nil
}

func clampOffset(offset, length int) int {
	return min(max(offset, -1), length)
}

func emptyConnection() map[string]interface{} {
	return map[string]interface{}{
		"edges": []interface{}{},
		"pageInfo": map[string]interface{}{
			"startCursor":     nil,
			"endCursor":       nil,
			"hasPreviousPage": false,
			"hasNextPage":     false,
		},
		"totalCount": relationTotalCountPlaceholder,
	}
}
