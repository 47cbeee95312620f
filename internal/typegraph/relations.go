package typegraph

import (
	"github.com/graphql-go/graphql"
)

// injectRelations resolves every relation descriptor of entry against the
// completed registry. The target types are the ones allocated in the first
// pass, so other entries holding them stay valid.
func (b *buildContext) injectRelations(entry *Entry) error {
	for _, d := range entry.fields {
		if d.Type.IsResolved() {
			continue
		}
		target, ok := b.registry.Lookup(d.Type.Target())
		if !ok {
			return &SchemaInconsistencyError{
				Model:  entry.ModelName(),
				Field:  d.Name,
				Target: d.Type.Target(),
			}
		}

		if d.Schema.IsList {
			d.Type = Resolved(target.connectionType)
			d.Args = b.connectionArgs()
			d.Resolve = b.relatedCollectionResolver(entry.ModelName(), d.Name, target.ModelName())
		} else {
			d.Type = Resolved(target.objectType)
			d.Resolve = b.relatedNodeResolver(entry.ModelName(), d.Name, target.ModelName())
		}
	}
	return nil
}

// relatedCollectionResolver fetches the whole related collection and pages it
// in memory.
func (b *buildContext) relatedCollectionResolver(model, field, target string) graphql.FieldResolveFn {
	fetch := b.fetch
	return func(p graphql.ResolveParams) (interface{}, error) {
		ctx := resolverContext(p)
		page := paginationFromArgs(p.Args)
		parentID := stringValue(fieldValue(p.Source, "id"))
		if parentID == "" {
			return emptyConnection(), nil
		}

		nodes, err := fetch.relatedCollection(ctx, model, parentID, field, page)
		if err != nil {
			return fetch.failed(ctx, err, emptyConnection())
		}
		return ProjectConnection(target, nodes, page)
	}
}

// relatedNodeResolver follows the "<field>Id" key of the parent. An absent
// key resolves to null without calling the backend.
func (b *buildContext) relatedNodeResolver(model, field, target string) graphql.FieldResolveFn {
	fetch := b.fetch
	idKey := b.namer.RelationIDName(field)
	return func(p graphql.ResolveParams) (interface{}, error) {
		id := stringValue(fieldValue(p.Source, idKey))
		if id == "" {
			return nil, nil
		}

		ctx := resolverContext(p)
		node, err := fetch.nodeByID(ctx, model, field, target, id)
		if err != nil {
			return fetch.failed(ctx, err, nil)
		}
		if node == nil {
			return nil, nil
		}
		return node, nil
	}
}
