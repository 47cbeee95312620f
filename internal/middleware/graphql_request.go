package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"
	"github.com/graphql-go/graphql/language/source"
)

type graphQLRequest struct {
	Query         string `json:"query"`
	OperationName string `json:"operationName"`
}

// queryMetadata describes the operation a request selects.
type queryMetadata struct {
	operationType  string
	operationName  string
	fieldCount     int
	selectionDepth int
	variableCount  int
}

type queryMetadataKey struct{}

// requestMetadata parses the request once and caches the result on the
// request context. It returns nil for bodies that are not GraphQL.
func requestMetadata(r *http.Request) (*http.Request, *queryMetadata) {
	if cached, ok := r.Context().Value(queryMetadataKey{}).(*queryMetadata); ok {
		return r, cached
	}
	query, operationName := extractGraphQLRequest(r)
	metadata, err := extractQueryMetadata(query, operationName)
	if err != nil {
		metadata = nil
	}
	ctx := context.WithValue(r.Context(), queryMetadataKey{}, metadata)
	return r.WithContext(ctx), metadata
}

func (m *queryMetadata) operationTypeOrUnknown() string {
	if m == nil || strings.TrimSpace(m.operationType) == "" {
		return "unknown"
	}
	return m.operationType
}

func extractGraphQLRequest(r *http.Request) (string, string) {
	if r.Method == http.MethodGet {
		return r.URL.Query().Get("query"), r.URL.Query().Get("operationName")
	}
	if r.Method != http.MethodPost || r.Body == nil {
		return "", ""
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return "", ""
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	if strings.Contains(r.Header.Get("Content-Type"), "application/graphql") {
		return string(body), ""
	}

	var payload graphQLRequest
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", ""
	}
	return payload.Query, payload.OperationName
}

func extractQueryMetadata(query, operationName string) (*queryMetadata, error) {
	if query == "" {
		return nil, nil
	}

	doc, err := parser.Parse(parser.ParseParams{
		Source: source.NewSource(&source.Source{
			Body: []byte(query),
			Name: "graphql",
		}),
	})
	if err != nil {
		return nil, err
	}

	fragments := make(map[string]*ast.FragmentDefinition)
	var target, first *ast.OperationDefinition
	for _, def := range doc.Definitions {
		switch d := def.(type) {
		case *ast.FragmentDefinition:
			fragments[d.Name.Value] = d
		case *ast.OperationDefinition:
			if first == nil {
				first = d
			}
			if operationName != "" && target == nil && d.Name != nil && d.Name.Value == operationName {
				target = d
			}
		}
	}
	if target == nil && operationName == "" {
		target = first
	}
	if target == nil {
		return nil, nil
	}

	metadata := &queryMetadata{
		operationType: string(target.Operation),
		variableCount: len(target.VariableDefinitions),
	}
	if target.Name != nil {
		metadata.operationName = target.Name.Value
	}
	if target.SelectionSet != nil {
		metadata.fieldCount, metadata.selectionDepth = countFieldsAndDepth(target.SelectionSet, fragments, 1, map[string]bool{}, map[string]bool{})
	}
	return metadata, nil
}

// countFieldsAndDepth walks a selection set. Each fragment is expanded at
// most once per operation, which also stops cyclic spreads.
func countFieldsAndDepth(selectionSet *ast.SelectionSet, fragments map[string]*ast.FragmentDefinition, currentDepth int, visited, inFlight map[string]bool) (fields, maxDepth int) {
	if selectionSet == nil {
		return 0, currentDepth - 1
	}
	maxDepth = currentDepth

	nested := func(set *ast.SelectionSet, depth int) {
		if set == nil {
			return
		}
		nestedFields, nestedDepth := countFieldsAndDepth(set, fragments, depth, visited, inFlight)
		fields += nestedFields
		maxDepth = max(maxDepth, nestedDepth)
	}

	for _, selection := range selectionSet.Selections {
		switch sel := selection.(type) {
		case *ast.Field:
			fields++
			nested(sel.SelectionSet, currentDepth+1)
		case *ast.InlineFragment:
			nested(sel.SelectionSet, currentDepth)
		case *ast.FragmentSpread:
			name := sel.Name.Value
			if inFlight[name] || visited[name] {
				continue
			}
			inFlight[name] = true
			visited[name] = true
			if frag, ok := fragments[name]; ok {
				nested(frag.SelectionSet, currentDepth)
			}
			delete(inFlight, name)
		}
	}
	return fields, maxDepth
}
