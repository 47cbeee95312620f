package typegraph

import (
	"context"
	"fmt"

	"github.com/graphql-go/graphql"

	"modelgql/internal/clientschema"
)

// buildObjectType allocates the model's output type. Relation fields keep
// their Unresolved type until injectRelations runs.
func (b *buildContext) buildObjectType(schema clientschema.Schema) *Entry {
	entry := &Entry{schema: schema}

	hasID := false
	for _, field := range schema.Fields {
		if field.FieldName == "id" {
			hasID = true
		}
		entry.fields = append(entry.fields, &FieldDescriptor{
			Name:    field.FieldName,
			Schema:  field,
			Type:    MapTypeIdentifier(field.TypeIdentifier),
			Resolve: valueAccessor(field.FieldName),
		})
	}
	if !hasID {
		// Node requires an id on every implementation.
		entry.fields = append([]*FieldDescriptor{{
			Name:    "id",
			Schema:  clientschema.Field{FieldName: "id", TypeIdentifier: "ID", IsSystem: true},
			Type:    Resolved(graphql.ID),
			Resolve: valueAccessor("id"),
			System:  true,
		}}, entry.fields...)
	}

	entry.objectType = graphql.NewObject(graphql.ObjectConfig{
		Name:       schema.ModelName,
		Interfaces: []*graphql.Interface{b.node},
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return entry.graphqlFields()
		}),
	})
	return entry
}

// graphqlFields runs when the schema is assembled, after pass 2 has resolved
// every relation. An unresolved descriptor means the passes ran out of order.
func (e *Entry) graphqlFields() graphql.Fields {
	fields := make(graphql.Fields, len(e.fields))
	for _, d := range e.fields {
		if !d.Type.IsResolved() {
			panic(fmt.Sprintf("typegraph: field %s.%s still references unresolved type %s", e.ModelName(), d.Name, d.Type.Target()))
		}
		fields[d.Name] = d.graphqlField()
	}
	return fields
}

func valueAccessor(name string) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		return fieldValue(p.Source, name), nil
	}
}

// fieldValue reads a key from a resolver source. Sources are Nodes from a
// backend or plain maps built by the resolvers themselves.
func fieldValue(source interface{}, name string) interface{} {
	switch s := source.(type) {
	case Node:
		return s[name]
	case map[string]interface{}:
		return s[name]
	default:
		return nil
	}
}

func stringValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

func resolverContext(p graphql.ResolveParams) context.Context {
	if p.Context != nil {
		return p.Context
	}
	return context.Background()
}
