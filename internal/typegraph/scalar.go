package typegraph

import "github.com/graphql-go/graphql"

// FieldType is the type a field descriptor currently carries: either a
// concrete GraphQL output type, or a reference to a model that is resolved
// once every model has been built.
type FieldType struct {
	output graphql.Output
	target string
}

// Resolved wraps a concrete output type.
func Resolved(output graphql.Output) FieldType {
	return FieldType{output: output}
}

// Unresolved marks a field as referencing the named model.
func Unresolved(target string) FieldType {
	return FieldType{target: target}
}

// IsResolved reports whether the type is concrete.
func (t FieldType) IsResolved() bool {
	return t.output != nil
}

// IsRelation reports whether the type is still a model reference.
func (t FieldType) IsRelation() bool {
	return t.output == nil
}

// Output returns the concrete type, or nil while unresolved.
func (t FieldType) Output() graphql.Output {
	return t.output
}

// Target returns the referenced model name, or "" once resolved.
func (t FieldType) Target() string {
	return t.target
}

var primitiveTypes = map[string]graphql.Output{
	"String":    graphql.String,
	"Int":       graphql.Int,
	"Float":     graphql.Float,
	"Boolean":   graphql.Boolean,
	"ID":        graphql.ID,
	"GraphQLID": graphql.ID,
	// Password is a presentation hint only.
	"Password": graphql.String,
}

// MapTypeIdentifier maps a declared type identifier to a primitive output type.
// Unknown identifiers are assumed to name a model and come back unresolved.
func MapTypeIdentifier(typeIdentifier string) FieldType {
	if output, ok := primitiveTypes[typeIdentifier]; ok {
		return Resolved(output)
	}
	return Unresolved(typeIdentifier)
}

// IsPrimitive reports whether typeIdentifier is a primitive tag.
func IsPrimitive(typeIdentifier string) bool {
	_, ok := primitiveTypes[typeIdentifier]
	return ok
}
