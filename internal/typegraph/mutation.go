package typegraph

import (
	"context"
	"errors"

	"github.com/graphql-go/graphql"
)

var errMissingID = errors.New("typegraph: id is required")

// assembleMutation builds create, update and delete fields for every model.
// Write failures are always surfaced, whatever the fetch policy.
func (b *buildContext) assembleMutation(mutator Mutator) *graphql.Object {
	fields := graphql.Fields{}
	for _, entry := range b.registry.Entries() {
		model := entry.ModelName()

		createName := b.namer.CreateMutationName(model)
		fields[createName] = &graphql.Field{
			Type: entry.objectType,
			Args: entry.CreateArguments(),
			Resolve: b.mutationResolver(model, createName, opCreate, func(ctx context.Context, args map[string]interface{}) (Node, error) {
				return mutator.CreateNode(ctx, model, args)
			}),
		}

		updateArgs := entry.UpdateArguments()
		if _, ok := updateArgs["id"]; !ok {
			updateArgs["id"] = &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)}
		}
		updateName := b.namer.UpdateMutationName(model)
		fields[updateName] = &graphql.Field{
			Type: entry.objectType,
			Args: updateArgs,
			Resolve: b.mutationResolver(model, updateName, opUpdate, func(ctx context.Context, args map[string]interface{}) (Node, error) {
				id, input, err := splitID(args)
				if err != nil {
					return nil, err
				}
				return mutator.UpdateNode(ctx, model, id, input)
			}),
		}

		deleteName := b.namer.DeleteMutationName(model)
		fields[deleteName] = &graphql.Field{
			Type: entry.objectType,
			Args: graphql.FieldConfigArgument{
				"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
			},
			Resolve: b.mutationResolver(model, deleteName, opDelete, func(ctx context.Context, args map[string]interface{}) (Node, error) {
				id, _, err := splitID(args)
				if err != nil {
					return nil, err
				}
				return mutator.DeleteNode(ctx, model, id)
			}),
		}
	}

	return graphql.NewObject(graphql.ObjectConfig{
		Name:   "Mutation",
		Fields: fields,
	})
}

func (b *buildContext) mutationResolver(model, field, op string, write func(ctx context.Context, args map[string]interface{}) (Node, error)) graphql.FieldResolveFn {
	fetch := b.fetch
	return func(p graphql.ResolveParams) (interface{}, error) {
		var node Node
		err := fetch.observe(resolverContext(p), model, field, op, func(ctx context.Context) error {
			var err error
			node, err = write(ctx, p.Args)
			return err
		})
		if err != nil {
			return nil, err
		}
		if node == nil {
			return nil, nil
		}
		return node, nil
	}
}

// splitID separates the id argument from the remaining input values.
func splitID(args map[string]interface{}) (string, map[string]interface{}, error) {
	id := stringValue(args["id"])
	if id == "" {
		return "", nil, errMissingID
	}
	input := make(map[string]interface{}, len(args))
	for key, value := range args {
		if key == "id" {
			continue
		}
		input[key] = value
	}
	return id, input, nil
}
