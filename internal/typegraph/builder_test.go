package typegraph

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/graphql-go/graphql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelgql/internal/clientschema"
	"modelgql/internal/naming"
)

func TestBuildUserSelfReference(t *testing.T) {
	schemas := []clientschema.Schema{{
		ModelName: "User",
		Fields: []clientschema.Field{
			{FieldName: "id", TypeIdentifier: "ID", IsRequired: true},
			{FieldName: "name", TypeIdentifier: "String", IsRequired: true},
			{FieldName: "manager", TypeIdentifier: "User", IsList: false, IsRequired: false},
		},
	}}

	graph := buildGraph(t, schemas, Options{Backend: newFakeBackend()})
	entry, ok := graph.Registry().Lookup("User")
	require.True(t, ok)

	manager := fieldDef(t, entry.ObjectType(), "manager")
	assert.Same(t, entry.ObjectType(), manager.Type)
	assert.Empty(t, manager.Args)

	name := fieldDef(t, entry.ObjectType(), "name")
	assert.Equal(t, "String!", name.Type.String())

	id := fieldDef(t, entry.ObjectType(), "id")
	assert.Equal(t, "ID!", id.Type.String())

	create := entry.CreateArguments()
	assert.Contains(t, create, "managerId")
	assert.Equal(t, "ID", create["managerId"].Type.String())
	assert.Equal(t, "String!", create["name"].Type.String())
	assert.NotContains(t, create, "id")
}

func TestBuildNullability(t *testing.T) {
	schemas := []clientschema.Schema{{
		ModelName: "Post",
		Fields: []clientschema.Field{
			{FieldName: "title", TypeIdentifier: "String", IsRequired: true},
			{FieldName: "subtitle", TypeIdentifier: "String"},
			{FieldName: "views", TypeIdentifier: "Int", IsRequired: true},
			{FieldName: "rating", TypeIdentifier: "Float"},
			{FieldName: "published", TypeIdentifier: "Boolean", IsRequired: true},
			{FieldName: "author", TypeIdentifier: "Post", IsRequired: true},
			{FieldName: "related", TypeIdentifier: "Post", IsList: true, IsRequired: true},
		},
	}}

	graph := buildGraph(t, schemas, Options{Backend: newFakeBackend()})
	entry, _ := graph.Registry().Lookup("Post")
	object := entry.ObjectType()

	expected := map[string]string{
		"title":     "String!",
		"subtitle":  "String",
		"views":     "Int!",
		"rating":    "Float",
		"published": "Boolean!",
		"author":    "Post!",
		"related":   "PostConnection!",
		"id":        "ID",
	}
	for field, typ := range expected {
		assert.Equal(t, typ, fieldDef(t, object, field).Type.String(), field)
	}

	// A model without an id field still satisfies Node.
	idField, ok := entry.Field("id")
	require.True(t, ok)
	assert.True(t, idField.System)
	assert.Equal(t, []string{"id", "title", "subtitle", "views", "rating", "published", "author", "related"}, entry.FieldNames())
}

func TestBuildDanglingReferenceAborts(t *testing.T) {
	schemas := []clientschema.Schema{{
		ModelName: "Post",
		Fields: []clientschema.Field{
			{FieldName: "title", TypeIdentifier: "String"},
			{FieldName: "owner", TypeIdentifier: "Nonexistent"},
		},
	}}

	graph, err := Build(schemas, Options{Backend: newFakeBackend(), Logger: discardLogger()})
	assert.Nil(t, graph)

	var inconsistency *SchemaInconsistencyError
	require.True(t, errors.As(err, &inconsistency))
	assert.Equal(t, "Post", inconsistency.Model)
	assert.Equal(t, "owner", inconsistency.Field)
	assert.Equal(t, "Nonexistent", inconsistency.Target)
	assert.Contains(t, err.Error(), "Post.owner")
	assert.Contains(t, err.Error(), "Nonexistent")
}

func TestBuildMutualReferences(t *testing.T) {
	schemas := []clientschema.Schema{
		{
			ModelName: "A",
			Fields: []clientschema.Field{
				{FieldName: "id", TypeIdentifier: "ID", IsRequired: true},
				{FieldName: "bs", TypeIdentifier: "B", IsList: true, BackRelationName: "a"},
			},
		},
		{
			ModelName: "B",
			Fields: []clientschema.Field{
				{FieldName: "id", TypeIdentifier: "ID", IsRequired: true},
				{FieldName: "a", TypeIdentifier: "A"},
			},
		},
	}

	graph := buildGraph(t, schemas, Options{Backend: newFakeBackend()})
	a, _ := graph.Registry().Lookup("A")
	b, _ := graph.Registry().Lookup("B")

	bs := fieldDef(t, a.ObjectType(), "bs")
	assert.Same(t, b.ConnectionType(), bs.Type)
	assert.ElementsMatch(t, []string{"first", "after", "last", "before"}, argNames(bs))

	toA := fieldDef(t, b.ObjectType(), "a")
	assert.Same(t, a.ObjectType(), toA.Type)

	assert.Contains(t, b.CreateArguments(), "aId")
	assert.NotContains(t, a.CreateArguments(), "bsId")
}

func TestBuildConnectionShape(t *testing.T) {
	graph := buildGraph(t, userSchemas(), Options{Backend: newFakeBackend()})
	entry, _ := graph.Registry().Lookup("User")

	assert.Equal(t, "UserConnection", entry.ConnectionType().Name())
	assert.Equal(t, "UserEdge", entry.EdgeType().Name())
	assert.Equal(t, "[UserEdge]", fieldDef(t, entry.ConnectionType(), "edges").Type.String())
	assert.Equal(t, "PageInfo!", fieldDef(t, entry.ConnectionType(), "pageInfo").Type.String())
	assert.Equal(t, "Int", fieldDef(t, entry.ConnectionType(), "totalCount").Type.String())
	assert.Same(t, entry.ObjectType(), fieldDef(t, entry.EdgeType(), "node").Type)
	assert.Equal(t, "String!", fieldDef(t, entry.EdgeType(), "cursor").Type.String())

	assert.Same(t, graph.PageInfo(), fieldDef(t, entry.ConnectionType(), "pageInfo").Type.(*graphql.NonNull).OfType)
	for _, name := range []string{"hasNextPage", "hasPreviousPage", "startCursor", "endCursor"} {
		fieldDef(t, graph.PageInfo(), name)
	}

	assert.Contains(t, entry.ObjectType().Interfaces(), graph.NodeInterface())
}

func TestBuildViewer(t *testing.T) {
	schemas := append(userSchemas(), clientschema.Schema{
		ModelName: "Person",
		Fields:    []clientschema.Field{{FieldName: "name", TypeIdentifier: "String"}},
	})

	graph := buildGraph(t, schemas, Options{Backend: newFakeBackend()})
	viewer := graph.Viewer()

	assert.Equal(t, "ID", fieldDef(t, viewer, "id").Type.String())
	users := fieldDef(t, viewer, "allUsers")
	assert.Equal(t, "UserConnection", users.Type.String())
	assert.ElementsMatch(t, []string{"first", "after", "last", "before"}, argNames(users))
	fieldDef(t, viewer, "allPersons")
	assert.Contains(t, viewer.Interfaces(), graph.NodeInterface())

	assert.Equal(t, "Viewer!", fieldDef(t, graph.Query(), "viewer").Type.String())
	assert.Nil(t, graph.Mutation())
}

func TestBuildViewerWithInflection(t *testing.T) {
	schemas := []clientschema.Schema{{
		ModelName: "Person",
		Fields:    []clientschema.Field{{FieldName: "name", TypeIdentifier: "String"}},
	}}
	namer := naming.New(naming.Config{InflectPlurals: true}, discardLogger())

	graph := buildGraph(t, schemas, Options{Backend: newFakeBackend(), Namer: namer})
	fieldDef(t, graph.Viewer(), "allPeople")
}

func TestBuildViewerFieldCollision(t *testing.T) {
	schemas := []clientschema.Schema{
		{ModelName: "Datum", Fields: []clientschema.Field{{FieldName: "name", TypeIdentifier: "String"}}},
		{ModelName: "Data", Fields: []clientschema.Field{{FieldName: "name", TypeIdentifier: "String"}}},
	}
	namer := naming.New(naming.Config{PluralOverrides: map[string]string{"Datum": "Data", "Data": "Data"}}, discardLogger())

	_, err := Build(schemas, Options{Backend: newFakeBackend(), Namer: namer, Logger: discardLogger()})
	var reserved *ReservedModelNameError
	require.True(t, errors.As(err, &reserved))
	assert.Equal(t, "Data", reserved.Model)
	var collision *naming.CollisionError
	require.True(t, errors.As(err, &collision))
	assert.Equal(t, "allData", collision.Name)
}

func TestBuildRejectsBadModelNames(t *testing.T) {
	field := []clientschema.Field{{FieldName: "name", TypeIdentifier: "String"}}

	t.Run("duplicate", func(t *testing.T) {
		_, err := Build([]clientschema.Schema{
			{ModelName: "User", Fields: field},
			{ModelName: "User", Fields: field},
		}, Options{Backend: newFakeBackend(), Logger: discardLogger()})
		var duplicate *DuplicateModelError
		require.True(t, errors.As(err, &duplicate))
		assert.Equal(t, "User", duplicate.Model)
	})

	t.Run("reserved", func(t *testing.T) {
		for _, name := range []string{"Viewer", "Node", "PageInfo", "Query", "String"} {
			_, err := Build([]clientschema.Schema{{ModelName: name, Fields: field}},
				Options{Backend: newFakeBackend(), Logger: discardLogger()})
			var reserved *ReservedModelNameError
			require.True(t, errors.As(err, &reserved), name)
			assert.Equal(t, name, reserved.Model)
		}
	})

	t.Run("generated name collision", func(t *testing.T) {
		_, err := Build([]clientschema.Schema{
			{ModelName: "User", Fields: field},
			{ModelName: "UserEdge", Fields: field},
		}, Options{Backend: newFakeBackend(), Logger: discardLogger()})
		var reserved *ReservedModelNameError
		require.True(t, errors.As(err, &reserved))
		assert.Equal(t, "UserEdge", reserved.Model)
	})
}

func TestBuildRejectsArgumentCollision(t *testing.T) {
	schemas := []clientschema.Schema{{
		ModelName: "Post",
		Fields: []clientschema.Field{
			{FieldName: "authorId", TypeIdentifier: "ID"},
			{FieldName: "author", TypeIdentifier: "Post"},
		},
	}}
	_, err := Build(schemas, Options{Backend: newFakeBackend(), Logger: discardLogger()})
	var collision *ArgumentKeyCollisionError
	require.True(t, errors.As(err, &collision))
	assert.Equal(t, "create", collision.Mutation)
}

func TestBuildOptions(t *testing.T) {
	_, err := Build(userSchemas(), Options{})
	assert.Error(t, err)

	_, err = Build(userSchemas(), Options{Backend: newFakeBackend(), FetchErrors: "explode", Logger: discardLogger()})
	assert.ErrorContains(t, err, "explode")
}

func TestBuildRegistryIsFrozenAndOrdered(t *testing.T) {
	schemas := []clientschema.Schema{
		{ModelName: "Zeta", Fields: []clientschema.Field{{FieldName: "a", TypeIdentifier: "Alpha"}}},
		{ModelName: "Alpha", Fields: []clientschema.Field{{FieldName: "name", TypeIdentifier: "String"}}},
	}

	graph := buildGraph(t, schemas, Options{Backend: newFakeBackend()})
	registry := graph.Registry()
	assert.True(t, registry.Frozen())
	assert.Equal(t, 2, registry.Len())

	var names []string
	for _, entry := range registry.Entries() {
		names = append(names, entry.ModelName())
	}
	assert.Equal(t, []string{"Zeta", "Alpha"}, names)
	err := registry.add(&Entry{schema: clientschema.Schema{ModelName: "Late"}})
	assert.ErrorIs(t, err, ErrRegistryFrozen)
	assert.Equal(t, 2, registry.Len())
	_, found := registry.Lookup("Late")
	assert.False(t, found)
}

func TestEntryFieldsRequireResolvedRelations(t *testing.T) {
	entry := &Entry{
		schema: clientschema.Schema{ModelName: "User"},
		fields: []*FieldDescriptor{
			{Name: "name", Type: Resolved(graphql.String)},
			{Name: "manager", Type: Unresolved("User")},
		},
	}
	assert.PanicsWithValue(t, "typegraph: field User.manager still references unresolved type User", func() {
		entry.graphqlFields()
	})

	entry.fields[1].Type = Resolved(graphql.ID)
	fields := entry.graphqlFields()
	assert.Len(t, fields, 2)
}

func TestBuildEmptySchemaSet(t *testing.T) {
	graph := buildGraph(t, nil, Options{Backend: &fakeMutator{fakeBackend: newFakeBackend()}})
	assert.Equal(t, 0, graph.Registry().Len())
	assert.Nil(t, graph.Mutation())
	fieldDef(t, graph.Viewer(), "id")
}

func TestBuildInvalidIDTypeFailsSchemaAssembly(t *testing.T) {
	schemas := []clientschema.Schema{{
		ModelName: "User",
		Fields:    []clientschema.Field{{FieldName: "id", TypeIdentifier: "Int"}},
	}}
	_, err := Build(schemas, Options{Backend: newFakeBackend(), Logger: discardLogger()})
	assert.ErrorContains(t, err, "failed to assemble schema")
}

func TestBuildLogsSummary(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := Build(userSchemas(), Options{Backend: newFakeBackend(), Logger: logger})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "type graph built")
	assert.Contains(t, buf.String(), "pass=relations")
	assert.Contains(t, buf.String(), "models=1")
}

func TestResolveNodeTypeIsUnimplemented(t *testing.T) {
	objectType, err := ResolveNodeType(Node{"id": "1"})
	assert.Nil(t, objectType)
	assert.ErrorIs(t, err, ErrNodeTypeUnresolved)
}
