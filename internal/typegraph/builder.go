// Package typegraph derives a graphql-go type graph from client schemas.
//
// Build runs three barrier-separated passes over a registry keyed by model
// name. The first allocates every model's object, edge and connection types
// and its mutation arguments, leaving relation fields unresolved. The second
// points each relation at the target model's types, which all exist by then,
// so models may reference each other in any order, including cycles. The
// third wraps required fields in NonNull. The registry is frozen afterwards
// and resolvers only read it.
package typegraph

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/graphql-go/graphql"

	"modelgql/internal/clientschema"
	"modelgql/internal/naming"
	"modelgql/internal/scalars"
)

// Options configures Build.
type Options struct {
	Backend Backend
	// FetchErrors defaults to FetchErrorsSurface.
	FetchErrors FetchErrorPolicy
	Namer       *naming.Namer
	Logger      *slog.Logger
	Metrics     Metrics
}

// TypeGraph is the result of a build.
type TypeGraph struct {
	registry *Registry
	node     *graphql.Interface
	pageInfo *graphql.Object
	viewer   *graphql.Object
	query    *graphql.Object
	mutation *graphql.Object
	schema   graphql.Schema
}

// Registry returns the frozen model registry.
func (g *TypeGraph) Registry() *Registry { return g.registry }

// NodeInterface returns the shared Node interface.
func (g *TypeGraph) NodeInterface() *graphql.Interface { return g.node }

// PageInfo returns the shared PageInfo type.
func (g *TypeGraph) PageInfo() *graphql.Object { return g.pageInfo }

// Viewer returns the root listing type.
func (g *TypeGraph) Viewer() *graphql.Object { return g.viewer }

// Query returns the query root.
func (g *TypeGraph) Query() *graphql.Object { return g.query }

// Mutation returns the mutation root, or nil when the backend cannot write.
func (g *TypeGraph) Mutation() *graphql.Object { return g.mutation }

// Schema returns the executable schema.
func (g *TypeGraph) Schema() graphql.Schema { return g.schema }

// buildContext carries everything the passes share. It is discarded when
// Build returns; resolvers keep only what they captured.
type buildContext struct {
	namer    *naming.Namer
	logger   *slog.Logger
	registry *Registry
	names    *naming.CollisionTracker
	node     *graphql.Interface
	pageInfo *graphql.Object
	limit    *graphql.Scalar
	fetch    *fetcher
}

func newBuildContext(opts Options) (*buildContext, error) {
	if opts.Backend == nil {
		return nil, errors.New("typegraph: a backend is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	namer := opts.Namer
	if namer == nil {
		namer = naming.New(naming.DefaultConfig(), logger)
	}
	policy := opts.FetchErrors
	switch policy {
	case "":
		policy = FetchErrorsSurface
	case FetchErrorsSurface, FetchErrorsSwallow:
	default:
		return nil, fmt.Errorf("typegraph: unknown fetch error policy %q", policy)
	}

	return &buildContext{
		namer:    namer,
		logger:   logger,
		registry: newRegistry(),
		names:    namer.NewCollisionTracker(),
		node:     newNodeInterface(logger),
		pageInfo: newPageInfoType(),
		limit:    scalars.NonNegativeInt(),
		fetch: &fetcher{
			backend: opts.Backend,
			policy:  policy,
			logger:  logger,
			metrics: opts.Metrics,
		},
	}, nil
}

// Build derives the type graph for schemas. Any error aborts the build;
// nothing partial is returned.
func Build(schemas []clientschema.Schema, opts Options) (*TypeGraph, error) {
	b, err := newBuildContext(opts)
	if err != nil {
		return nil, err
	}

	for _, schema := range schemas {
		if err := b.buildEntry(schema); err != nil {
			return nil, err
		}
	}
	b.logger.Debug("type graph pass complete", slog.String("pass", "objects"), slog.Int("models", b.registry.Len()))

	entries := b.registry.Entries()
	for _, entry := range entries {
		if err := b.injectRelations(entry); err != nil {
			return nil, err
		}
	}
	b.logger.Debug("type graph pass complete", slog.String("pass", "relations"))

	for _, entry := range entries {
		if err := wrapRequired(entry); err != nil {
			return nil, err
		}
	}
	b.logger.Debug("type graph pass complete", slog.String("pass", "nullability"))

	viewer, err := b.assembleViewer()
	if err != nil {
		return nil, err
	}
	query := b.assembleQuery(viewer)

	var mutation *graphql.Object
	if mutator, ok := opts.Backend.(Mutator); ok && b.registry.Len() > 0 {
		mutation = b.assembleMutation(mutator)
	}

	b.registry.freeze()

	schema, err := graphql.NewSchema(graphql.SchemaConfig{
		Query:    query,
		Mutation: mutation,
	})
	if err != nil {
		return nil, fmt.Errorf("typegraph: failed to assemble schema: %w", err)
	}

	b.logger.Info("type graph built",
		slog.Int("models", b.registry.Len()),
		slog.Bool("mutations", mutation != nil),
	)

	return &TypeGraph{
		registry: b.registry,
		node:     b.node,
		pageInfo: b.pageInfo,
		viewer:   viewer,
		query:    query,
		mutation: mutation,
		schema:   schema,
	}, nil
}

// buildEntry runs the first pass for one model.
func (b *buildContext) buildEntry(schema clientschema.Schema) error {
	model := schema.ModelName
	if !b.namer.CheckModelName(model) {
		return &ReservedModelNameError{Model: model}
	}
	if _, exists := b.registry.Lookup(model); exists {
		return &DuplicateModelError{Model: model}
	}
	generated := []struct{ name, source string }{
		{model, "model:" + model},
		{b.namer.ConnectionTypeName(model), "connection:" + model},
		{b.namer.EdgeTypeName(model), "edge:" + model},
	}
	for _, g := range generated {
		if err := b.names.Claim(g.name, g.source); err != nil {
			return &ReservedModelNameError{Model: model, Err: err}
		}
	}

	entry := b.buildObjectType(schema)
	b.buildConnectionTypes(entry)

	var err error
	if entry.createArguments, err = deriveArguments(schema, mutationCreate, b.namer); err != nil {
		return err
	}
	if entry.updateArguments, err = deriveArguments(schema, mutationUpdate, b.namer); err != nil {
		return err
	}
	return b.registry.add(entry)
}
