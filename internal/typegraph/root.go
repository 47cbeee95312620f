package typegraph

import (
	"log/slog"

	"github.com/graphql-go/graphql"

	"modelgql/internal/nodeid"
)

// ViewerID is the global id reported by the viewer object.
var ViewerID = nodeid.Encode("Viewer", "viewer")

// ResolveNodeType maps an arbitrary node to its model's object type.
// Nodes carry no type discriminator, so this always fails.
func ResolveNodeType(value interface{}) (*graphql.Object, error) {
	return nil, ErrNodeTypeUnresolved
}

func newNodeInterface(logger *slog.Logger) *graphql.Interface {
	return graphql.NewInterface(graphql.InterfaceConfig{
		Name:        "Node",
		Description: "An object with an ID",
		Fields: graphql.Fields{
			"id": &graphql.Field{
				Type:        graphql.ID,
				Description: "The id of the object.",
			},
		},
		ResolveType: func(p graphql.ResolveTypeParams) *graphql.Object {
			objectType, err := ResolveNodeType(p.Value)
			if err != nil {
				// A nil type makes the executor report the field as failed.
				logger.Error("cannot resolve concrete type for node", slog.String("error", err.Error()))
			}
			return objectType
		},
	})
}

// assembleViewer builds the Viewer type with one listing field per model.
func (b *buildContext) assembleViewer() (*graphql.Object, error) {
	fields := graphql.Fields{
		"id": &graphql.Field{
			Type:    graphql.ID,
			Resolve: valueAccessor("id"),
		},
	}
	seen := b.namer.NewCollisionTracker()
	if err := seen.Claim("id", "viewer"); err != nil {
		return nil, err
	}
	for _, entry := range b.registry.Entries() {
		name := b.namer.ListFieldName(entry.ModelName())
		if err := seen.Claim(name, "model:"+entry.ModelName()); err != nil {
			return nil, &ReservedModelNameError{Model: entry.ModelName(), Err: err}
		}
		fields[name] = &graphql.Field{
			Type:    entry.connectionType,
			Args:    b.connectionArgs(),
			Resolve: b.allOfTypeResolver(entry.ModelName(), name),
		}
	}

	return graphql.NewObject(graphql.ObjectConfig{
		Name:        "Viewer",
		Description: "Root object listing every model.",
		Interfaces:  []*graphql.Interface{b.node},
		Fields:      fields,
	}), nil
}

func (b *buildContext) allOfTypeResolver(model, field string) graphql.FieldResolveFn {
	fetch := b.fetch
	return func(p graphql.ResolveParams) (interface{}, error) {
		ctx := resolverContext(p)
		page := paginationFromArgs(p.Args)
		nodes, err := fetch.allOfType(ctx, model, field, page)
		if err != nil {
			return fetch.failed(ctx, err, emptyConnection())
		}
		return ProjectConnection(model, nodes, page)
	}
}

// assembleQuery builds the Query root. node(id) exists so clients can
// discover it, but it always fails until nodes carry a type discriminator.
func (b *buildContext) assembleQuery(viewer *graphql.Object) *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"viewer": &graphql.Field{
				Type: graphql.NewNonNull(viewer),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return map[string]interface{}{"id": ViewerID}, nil
				},
			},
			"node": &graphql.Field{
				Type: b.node,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{
						Type: graphql.NewNonNull(graphql.ID),
					},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return nil, ErrNodeTypeUnresolved
				},
			},
		},
	})
}
