package typegraph

import (
	"context"

	"modelgql/internal/scalars"
)

// Node is a stored record keyed by id and by the model's field names.
// Singular relations are stored under "<field>Id".
type Node map[string]any

// ID returns the node's id as a string, or "" when absent.
func (n Node) ID() string {
	return stringValue(n["id"])
}

// Pagination holds the standard connection arguments.
type Pagination struct {
	First  *int
	After  *string
	Last   *int
	Before *string
}

// Backend is the data-access collaborator resolvers call into.
// Implementations must be safe for concurrent use.
type Backend interface {
	// FetchRelatedCollection returns every node of the relation's target
	// model related to the parent. Pagination is applied afterwards.
	FetchRelatedCollection(ctx context.Context, model, parentID, relationField string, page Pagination) ([]Node, error)
	// FetchNodeByID returns (nil, nil) when the node does not exist.
	FetchNodeByID(ctx context.Context, model, id string) (Node, error)
	FetchAllOfType(ctx context.Context, model string, page Pagination) ([]Node, error)
}

// Mutator is implemented by backends that can write. When the configured
// backend implements it, the graph gets a Mutation root.
type Mutator interface {
	CreateNode(ctx context.Context, model string, input map[string]any) (Node, error)
	// UpdateNode returns (nil, nil) when the node does not exist.
	UpdateNode(ctx context.Context, model, id string, input map[string]any) (Node, error)
	// DeleteNode returns the removed node, or (nil, nil) when it did not exist.
	DeleteNode(ctx context.Context, model, id string) (Node, error)
}

// paginationFromArgs reads connection arguments from resolver args.
func paginationFromArgs(args map[string]interface{}) Pagination {
	var page Pagination
	if v, ok := scalars.Count(args["first"]); ok {
		page.First = &v
	}
	if v, ok := scalars.Count(args["last"]); ok {
		page.Last = &v
	}
	if v, ok := args["after"].(string); ok {
		page.After = &v
	}
	if v, ok := args["before"].(string); ok {
		page.Before = &v
	}
	return page
}
