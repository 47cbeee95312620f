package typegraph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/graphql-go/graphql"
	"github.com/stretchr/testify/require"

	"modelgql/internal/clientschema"
)

type fakeBackend struct {
	mu         sync.Mutex
	nodes      map[string][]Node
	related    map[string][]Node
	relatedErr error
	nodeErr    error
	allErr     error
	calls      []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		nodes:   make(map[string][]Node),
		related: make(map[string][]Node),
	}
}

func relatedKey(model, parentID, field string) string {
	return model + "/" + parentID + "/" + field
}

func (f *fakeBackend) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeBackend) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeBackend) FetchRelatedCollection(ctx context.Context, model, parentID, relationField string, page Pagination) ([]Node, error) {
	f.record("related:" + relatedKey(model, parentID, relationField))
	if f.relatedErr != nil {
		return nil, f.relatedErr
	}
	return f.related[relatedKey(model, parentID, relationField)], nil
}

func (f *fakeBackend) FetchNodeByID(ctx context.Context, model, id string) (Node, error) {
	f.record("node:" + model + "/" + id)
	if f.nodeErr != nil {
		return nil, f.nodeErr
	}
	for _, n := range f.nodes[model] {
		if n.ID() == id {
			return n, nil
		}
	}
	return nil, nil
}

func (f *fakeBackend) FetchAllOfType(ctx context.Context, model string, page Pagination) ([]Node, error) {
	f.record("all:" + model)
	if f.allErr != nil {
		return nil, f.allErr
	}
	return f.nodes[model], nil
}

// fakeMutator adds writes on top of fakeBackend.
type fakeMutator struct {
	*fakeBackend
	nextID int
}

func (f *fakeMutator) CreateNode(ctx context.Context, model string, input map[string]any) (Node, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	node := Node{"id": fmt.Sprintf("new-%d", f.nextID)}
	for k, v := range input {
		node[k] = v
	}
	f.nodes[model] = append(f.nodes[model], node)
	return node, nil
}

func (f *fakeMutator) UpdateNode(ctx context.Context, model, id string, input map[string]any) (Node, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.nodes[model] {
		if n.ID() == id {
			for k, v := range input {
				n[k] = v
			}
			return n, nil
		}
	}
	return nil, nil
}

func (f *fakeMutator) DeleteNode(ctx context.Context, model, id string) (Node, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, n := range f.nodes[model] {
		if n.ID() == id {
			f.nodes[model] = append(f.nodes[model][:i], f.nodes[model][i+1:]...)
			return n, nil
		}
	}
	return nil, nil
}

type fetchObservation struct {
	model string
	op    string
	err   error
}

type fakeMetrics struct {
	mu           sync.Mutex
	observations []fetchObservation
}

func (m *fakeMetrics) RecordFetch(ctx context.Context, model, op string, duration time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observations = append(m.observations, fetchObservation{model: model, op: op, err: err})
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// userSchemas is a self-referencing model with a back relation.
func userSchemas() []clientschema.Schema {
	return []clientschema.Schema{{
		ModelName: "User",
		Fields: []clientschema.Field{
			{FieldName: "id", TypeIdentifier: "ID", IsRequired: true, IsSystem: true},
			{FieldName: "name", TypeIdentifier: "String", IsRequired: true},
			{FieldName: "manager", TypeIdentifier: "User"},
			{FieldName: "reports", TypeIdentifier: "User", IsList: true, BackRelationName: "manager"},
		},
	}}
}

// seededUsers is Ada managing Bob and Cy.
func seededUsers() *fakeBackend {
	backend := newFakeBackend()
	ada := Node{"id": "1", "name": "Ada", "managerId": nil}
	bob := Node{"id": "2", "name": "Bob", "managerId": "1"}
	cy := Node{"id": "3", "name": "Cy", "managerId": "1"}
	backend.nodes["User"] = []Node{ada, bob, cy}
	backend.related[relatedKey("User", "1", "reports")] = []Node{bob, cy}
	return backend
}

func buildGraph(t *testing.T, schemas []clientschema.Schema, opts Options) *TypeGraph {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = discardLogger()
	}
	graph, err := Build(schemas, opts)
	require.NoError(t, err)
	return graph
}

// execute runs query and returns the JSON encoded data plus any error messages.
func execute(t *testing.T, graph *TypeGraph, query string) (string, []string) {
	t.Helper()
	result := graphql.Do(graphql.Params{
		Schema:        graph.Schema(),
		RequestString: query,
		Context:       context.Background(),
	})
	var messages []string
	for _, err := range result.Errors {
		messages = append(messages, err.Message)
	}
	data, err := json.Marshal(result.Data)
	require.NoError(t, err)
	return string(data), messages
}

func fieldDef(t *testing.T, object *graphql.Object, name string) *graphql.FieldDefinition {
	t.Helper()
	def, ok := object.Fields()[name]
	require.True(t, ok, "field %s.%s missing", object.Name(), name)
	return def
}

func argNames(def *graphql.FieldDefinition) []string {
	names := make([]string, 0, len(def.Args))
	for _, arg := range def.Args {
		names = append(names, arg.Name())
	}
	return names
}

func jsonUnmarshal(data string, v interface{}) error {
	return json.Unmarshal([]byte(data), v)
}
