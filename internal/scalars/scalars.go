// Package scalars defines the custom GraphQL scalars shared by generated types.
package scalars

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
)

// NonNegativeInt types the first and last connection arguments. A schema may
// hold only one scalar per name, so each build creates its own and shares it.
func NonNegativeInt() *graphql.Scalar {
	return graphql.NewScalar(graphql.ScalarConfig{
		Name:         "NonNegativeInt",
		Description:  "An integer greater than or equal to zero.",
		Serialize:    countOrNil,
		ParseValue:   countOrNil,
		ParseLiteral: parseCountLiteral,
	})
}

// Count converts a decoded argument or variable to a non-negative int.
// Whole floats and numeric strings are accepted because JSON variables
// arrive as float64 or json.Number.
func Count(value interface{}) (int, bool) {
	var n int64
	switch v := value.(type) {
	case int:
		n = int64(v)
	case int32:
		n = int64(v)
	case int64:
		n = v
	case float64:
		if v != math.Trunc(v) || v >= math.MaxInt64 {
			return 0, false
		}
		n = int64(v)
	case json.Number:
		parsed, err := v.Int64()
		if err != nil {
			return 0, false
		}
		n = parsed
	case string:
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, false
		}
		n = parsed
	default:
		return 0, false
	}
	if n < 0 || n > math.MaxInt {
		return 0, false
	}
	return int(n), true
}

func countOrNil(value interface{}) interface{} {
	if n, ok := Count(value); ok {
		return n
	}
	return nil
}

func parseCountLiteral(valueAST ast.Value) interface{} {
	literal, ok := valueAST.(*ast.IntValue)
	if !ok {
		return nil
	}
	return countOrNil(literal.Value)
}
