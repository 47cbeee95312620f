package typegraph

import (
	"github.com/graphql-go/graphql"

	"modelgql/internal/clientschema"
	"modelgql/internal/naming"
)

type mutationKind string

const (
	mutationCreate mutationKind = "create"
	mutationUpdate mutationKind = "update"
)

// scalarArgument decides which non-relation fields become arguments.
// Updates address the record by id, so only creates drop it.
func (k mutationKind) scalarArgument(field clientschema.Field) bool {
	if k == mutationCreate {
		return field.FieldName != "id"
	}
	return true
}

// CreateArguments derives the create mutation arguments for schema.
func CreateArguments(schema clientschema.Schema) (graphql.FieldConfigArgument, error) {
	return deriveArguments(schema, mutationCreate, naming.Default())
}

// UpdateArguments derives the update mutation arguments for schema.
func UpdateArguments(schema clientschema.Schema) (graphql.FieldConfigArgument, error) {
	return deriveArguments(schema, mutationUpdate, naming.Default())
}

// deriveArguments builds the scalar and singular-relation argument maps and
// merges them. To-many relations never become arguments.
func deriveArguments(schema clientschema.Schema, kind mutationKind, namer *naming.Namer) (graphql.FieldConfigArgument, error) {
	scalarArgs := graphql.FieldConfigArgument{}
	relationArgs := graphql.FieldConfigArgument{}
	relationSource := make(map[string]string)
	var relationKeys []string

	for _, field := range schema.Fields {
		fieldType := MapTypeIdentifier(field.TypeIdentifier)
		if fieldType.IsRelation() {
			if field.IsList {
				continue
			}
			key := namer.RelationIDName(field.FieldName)
			relationArgs[key] = &graphql.ArgumentConfig{
				Type: requiredInput(graphql.ID, field.IsRequired),
			}
			relationSource[key] = field.FieldName
			relationKeys = append(relationKeys, key)
			continue
		}
		if !kind.scalarArgument(field) {
			continue
		}
		scalarArgs[field.FieldName] = &graphql.ArgumentConfig{
			Type: requiredInput(fieldType.Output().(graphql.Input), field.IsRequired),
		}
	}

	for _, key := range relationKeys {
		if _, exists := scalarArgs[key]; exists {
			return nil, &ArgumentKeyCollisionError{
				Model:         schema.ModelName,
				Mutation:      string(kind),
				Key:           key,
				ScalarField:   key,
				RelationField: relationSource[key],
			}
		}
		scalarArgs[key] = relationArgs[key]
	}
	return scalarArgs, nil
}

func requiredInput(t graphql.Input, required bool) graphql.Input {
	if required {
		return graphql.NewNonNull(t)
	}
	return t
}
