package typegraph

import (
	"github.com/graphql-go/graphql"
)

func newPageInfoType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name:        "PageInfo",
		Description: "Information about pagination in a connection.",
		Fields: graphql.Fields{
			"hasNextPage": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Boolean),
			},
			"hasPreviousPage": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Boolean),
			},
			"startCursor": &graphql.Field{
				Type: graphql.String,
			},
			"endCursor": &graphql.Field{
				Type: graphql.String,
			},
		},
	})
}

// buildConnectionTypes builds the Edge and Connection types over the model's
// object type. Payloads are the maps produced by ProjectConnection.
func (b *buildContext) buildConnectionTypes(entry *Entry) {
	model := entry.ModelName()

	entry.edgeType = graphql.NewObject(graphql.ObjectConfig{
		Name:        b.namer.EdgeTypeName(model),
		Description: "An edge in a connection.",
		Fields: graphql.Fields{
			"node": &graphql.Field{
				Type: entry.objectType,
			},
			"cursor": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
			},
		},
	})

	entry.connectionType = graphql.NewObject(graphql.ObjectConfig{
		Name:        b.namer.ConnectionTypeName(model),
		Description: "A connection to a list of items.",
		Fields: graphql.Fields{
			"edges": &graphql.Field{
				Type: graphql.NewList(entry.edgeType),
			},
			"pageInfo": &graphql.Field{
				Type: graphql.NewNonNull(b.pageInfo),
			},
			"totalCount": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return fieldValue(p.Source, "totalCount"), nil
				},
			},
		},
	})
}

// connectionArgs returns a fresh forward/backward pagination argument set.
func (b *buildContext) connectionArgs() graphql.FieldConfigArgument {
	return graphql.FieldConfigArgument{
		"after": &graphql.ArgumentConfig{
			Type: graphql.String,
		},
		"first": &graphql.ArgumentConfig{
			Type: b.limit,
		},
		"before": &graphql.ArgumentConfig{
			Type: graphql.String,
		},
		"last": &graphql.ArgumentConfig{
			Type: b.limit,
		},
	}
}
