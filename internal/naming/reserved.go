package naming

import "strings"

// reservedTypeWords contains GraphQL keywords, built-in types and the names
// of types the builder generates itself. Models may not use them.
var reservedTypeWords = map[string]bool{
	// GraphQL language keywords
	"query":        true,
	"mutation":     true,
	"subscription": true,
	"type":         true,
	"schema":       true,
	"scalar":       true,
	"enum":         true,
	"input":        true,
	"interface":    true,
	"union":        true,
	"fragment":     true,
	"directive":    true,
	"extend":       true,
	"implements":   true,
	"on":           true,

	// Built-in scalar types
	"int":     true,
	"float":   true,
	"string":  true,
	"boolean": true,
	"id":      true,

	// Boolean literals
	"true":  true,
	"false": true,
	"null":  true,

	// Generated shared types
	"viewer":         true,
	"node":           true,
	"pageinfo":       true,
	"nonnegativeint": true,
}

// IsReservedTypeName reports whether name cannot be used as a model name.
func IsReservedTypeName(name string) bool {
	lowerName := strings.ToLower(name)
	if strings.HasPrefix(lowerName, "__") {
		return true
	}
	return reservedTypeWords[lowerName]
}

// IsReservedFieldName reports whether name cannot be used as a field name.
func IsReservedFieldName(name string) bool {
	return strings.HasPrefix(name, "__")
}
