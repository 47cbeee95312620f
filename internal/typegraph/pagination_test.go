package typegraph

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelgql/internal/cursor"
)

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func letters(n int) []Node {
	nodes := make([]Node, n)
	for i := range nodes {
		nodes[i] = Node{"id": fmt.Sprintf("%c", 'A'+i)}
	}
	return nodes
}

func edgeIDs(t *testing.T, payload map[string]interface{}) []string {
	t.Helper()
	edges, ok := payload["edges"].([]interface{})
	require.True(t, ok)
	ids := make([]string, 0, len(edges))
	for _, e := range edges {
		edge := e.(map[string]interface{})
		ids = append(ids, edge["node"].(Node).ID())
	}
	return ids
}

func pageInfo(payload map[string]interface{}) map[string]interface{} {
	return payload["pageInfo"].(map[string]interface{})
}

func TestProjectConnection(t *testing.T) {
	nodes := letters(5)

	tests := []struct {
		name        string
		page        Pagination
		expected    []string
		hasNext     bool
		hasPrevious bool
	}{
		{name: "no arguments", page: Pagination{}, expected: []string{"A", "B", "C", "D", "E"}},
		{name: "first", page: Pagination{First: intPtr(2)}, expected: []string{"A", "B"}, hasNext: true},
		{name: "first beyond length", page: Pagination{First: intPtr(10)}, expected: []string{"A", "B", "C", "D", "E"}},
		{name: "first zero", page: Pagination{First: intPtr(0)}, expected: []string{}, hasNext: true},
		{name: "last", page: Pagination{Last: intPtr(2)}, expected: []string{"D", "E"}, hasPrevious: true},
		{name: "after", page: Pagination{After: strPtr(cursor.Encode("User", 1)), First: intPtr(2)}, expected: []string{"C", "D"}, hasNext: true},
		{name: "before", page: Pagination{Before: strPtr(cursor.Encode("User", 3)), Last: intPtr(2)}, expected: []string{"B", "C"}, hasPrevious: true},
		{name: "after and before", page: Pagination{After: strPtr(cursor.Encode("User", 0)), Before: strPtr(cursor.Encode("User", 4))}, expected: []string{"B", "C", "D"}},
		{name: "after past end", page: Pagination{After: strPtr(cursor.Encode("User", 9))}, expected: []string{}},
		{name: "invalid cursor falls back", page: Pagination{After: strPtr("garbage"), First: intPtr(1)}, expected: []string{"A"}, hasNext: true},
		{name: "foreign cursor falls back", page: Pagination{After: strPtr(cursor.Encode("Post", 2)), First: intPtr(1)}, expected: []string{"A"}, hasNext: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := ProjectConnection("User", nodes, tt.page)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, edgeIDs(t, payload))
			assert.Equal(t, tt.hasNext, pageInfo(payload)["hasNextPage"])
			assert.Equal(t, tt.hasPrevious, pageInfo(payload)["hasPreviousPage"])
		})
	}
}

func TestProjectConnectionCursors(t *testing.T) {
	payload, err := ProjectConnection("User", letters(4), Pagination{After: strPtr(cursor.Encode("User", 0)), First: intPtr(2)})
	require.NoError(t, err)

	info := pageInfo(payload)
	assert.Equal(t, cursor.Encode("User", 1), info["startCursor"])
	assert.Equal(t, cursor.Encode("User", 2), info["endCursor"])

	empty, err := ProjectConnection("User", nil, Pagination{})
	require.NoError(t, err)
	assert.Nil(t, pageInfo(empty)["startCursor"])
	assert.Nil(t, pageInfo(empty)["endCursor"])
}

// totalCount is a fixed placeholder; this pins the known gap rather than a
// correct count.
func TestProjectConnectionTotalCountIsPlaceholder(t *testing.T) {
	for _, n := range []int{0, 1, 7} {
		payload, err := ProjectConnection("User", letters(n), Pagination{First: intPtr(1)})
		require.NoError(t, err)
		assert.Equal(t, 0, payload["totalCount"])
	}
	assert.Equal(t, 0, emptyConnection()["totalCount"])
}

func TestProjectConnectionRejectsNegativeLimits(t *testing.T) {
	_, err := ProjectConnection("User", letters(2), Pagination{First: intPtr(-1)})
	assert.Error(t, err)
	_, err = ProjectConnection("User", letters(2), Pagination{Last: intPtr(-1)})
	assert.Error(t, err)
}

func TestProjectConnectionExtremeOffsets(t *testing.T) {
	tests := []struct {
		name        string
		page        Pagination
		want        []string
		hasNext     bool
		hasPrevious bool
	}{
		{
			name: "after cursor past the end",
			page: Pagination{After: strPtr(cursor.Encode("User", math.MaxInt))},
			want: []string{},
		},
		{
			name: "before cursor past the end",
			page: Pagination{Before: strPtr(cursor.Encode("User", math.MaxInt))},
			want: []string{"A", "B", "C"},
		},
		{
			name: "max first after a cursor",
			page: Pagination{After: strPtr(cursor.Encode("User", 0)), First: intPtr(math.MaxInt)},
			want: []string{"B", "C"},
		},
		{
			name: "max last",
			page: Pagination{Last: intPtr(math.MaxInt)},
			want: []string{"A", "B", "C"},
		},
		{
			name: "max last before a cursor",
			page: Pagination{Before: strPtr(cursor.Encode("User", 2)), Last: intPtr(math.MaxInt)},
			want: []string{"A", "B"},
		},
		{
			name: "max first and last after a cursor",
			page: Pagination{After: strPtr(cursor.Encode("User", math.MaxInt)), First: intPtr(math.MaxInt), Last: intPtr(math.MaxInt)},
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := ProjectConnection("User", letters(3), tt.page)
			require.NoError(t, err)
			assert.Equal(t, tt.want, edgeIDs(t, payload))
			assert.Equal(t, tt.hasNext, pageInfo(payload)["hasNextPage"])
			assert.Equal(t, tt.hasPrevious, pageInfo(payload)["hasPreviousPage"])
		})
	}
}
