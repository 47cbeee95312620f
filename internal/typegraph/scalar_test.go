package typegraph

import (
	"testing"

	"github.com/graphql-go/graphql"
	"github.com/stretchr/testify/assert"
)

func TestMapTypeIdentifier(t *testing.T) {
	tests := []struct {
		identifier string
		expected   graphql.Output
	}{
		{"String", graphql.String},
		{"Int", graphql.Int},
		{"Float", graphql.Float},
		{"Boolean", graphql.Boolean},
		{"ID", graphql.ID},
		{"GraphQLID", graphql.ID},
		{"Password", graphql.String},
	}

	for _, tt := range tests {
		t.Run(tt.identifier, func(t *testing.T) {
			mapped := MapTypeIdentifier(tt.identifier)
			assert.True(t, mapped.IsResolved())
			assert.False(t, mapped.IsRelation())
			assert.Equal(t, tt.expected, mapped.Output())
			assert.Empty(t, mapped.Target())
			assert.True(t, IsPrimitive(tt.identifier))
		})
	}
}

func TestMapTypeIdentifierUnknownIsRelation(t *testing.T) {
	for _, identifier := range []string{"User", "Nonexistent", "string", "DateTime"} {
		mapped := MapTypeIdentifier(identifier)
		assert.True(t, mapped.IsRelation(), identifier)
		assert.Nil(t, mapped.Output())
		assert.Equal(t, identifier, mapped.Target())
		assert.False(t, IsPrimitive(identifier))
	}
}
