// Package memory is a process-local backend for the type graph. Records are
// kept per model in insertion order and relations are followed through the
// "<field>Id" keys the type graph reads.
package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"reflect"
	"slices"
	"sync"

	"github.com/google/uuid"

	"modelgql/internal/clientschema"
	"modelgql/internal/naming"
	"modelgql/internal/typegraph"
)

// ErrUnknownModel is returned for operations on a model the store was not built with.
var ErrUnknownModel = errors.New("memory: unknown model")

// ErrUnknownRelation is returned when a related collection is requested for a
// field that is not a to-many relation, or whose inverse cannot be found.
var ErrUnknownRelation = errors.New("memory: unknown relation")

// Options configures a Store.
type Options struct {
	Namer  *naming.Namer
	Logger *slog.Logger
}

// Store implements typegraph.Backend and typegraph.Mutator.
type Store struct {
	mu      sync.RWMutex
	namer   *naming.Namer
	logger  *slog.Logger
	schemas map[string]clientschema.Schema
	records map[string][]typegraph.Node
	// relationKeys lists, per model, the keys holding singular relation ids.
	relationKeys map[string][]string
}

// New creates an empty store for schemas.
func New(schemas []clientschema.Schema, opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	namer := opts.Namer
	if namer == nil {
		namer = naming.New(naming.DefaultConfig(), logger)
	}

	s := &Store{
		namer:        namer,
		logger:       logger.With(slog.String("component", "memory_backend")),
		schemas:      make(map[string]clientschema.Schema, len(schemas)),
		records:      make(map[string][]typegraph.Node, len(schemas)),
		relationKeys: make(map[string][]string, len(schemas)),
	}
	for _, schema := range schemas {
		s.schemas[schema.ModelName] = schema
		s.records[schema.ModelName] = nil
	}
	for _, schema := range schemas {
		for _, field := range schema.Fields {
			if field.IsList || !s.isModel(field.TypeIdentifier) {
				continue
			}
			s.relationKeys[schema.ModelName] = append(s.relationKeys[schema.ModelName], namer.RelationIDName(field.FieldName))
		}
	}
	return s
}

func (s *Store) isModel(name string) bool {
	_, ok := s.schemas[name]
	return ok
}

// FetchRelatedCollection returns the target records whose back relation points at parentID.
func (s *Store) FetchRelatedCollection(ctx context.Context, model, parentID, relationField string, page typegraph.Pagination) ([]typegraph.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	target, key, err := s.inverseKey(model, relationField)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var related []typegraph.Node
	for _, record := range s.records[target] {
		if idString(record[key]) == parentID {
			related = append(related, maps.Clone(record))
		}
	}
	return related, nil
}

// inverseKey finds the model a to-many relation points at and the key on
// that model referring back to the parent.
func (s *Store) inverseKey(model, relationField string) (string, string, error) {
	schema, ok := s.schemas[model]
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrUnknownModel, model)
	}
	field, ok := schema.Field(relationField)
	if !ok || !field.IsList || !s.isModel(field.TypeIdentifier) {
		return "", "", fmt.Errorf("%w: %s.%s", ErrUnknownRelation, model, relationField)
	}
	target := field.TypeIdentifier
	back := field.BackRelationName
	if back == "" {
		// Without a declared inverse, use the target's only singular field
		// pointing back at the parent model.
		for _, candidate := range s.schemas[target].Fields {
			if candidate.TypeIdentifier == model && !candidate.IsList {
				if back != "" {
					return "", "", fmt.Errorf("%w: %s.%s has an ambiguous inverse", ErrUnknownRelation, model, relationField)
				}
				back = candidate.FieldName
			}
		}
	}
	if back == "" {
		return "", "", fmt.Errorf("%w: %s.%s has no inverse on %s", ErrUnknownRelation, model, relationField, target)
	}
	return target, s.namer.RelationIDName(back), nil
}

// FetchNodeByID returns (nil, nil) when no record has id.
func (s *Store) FetchNodeByID(ctx context.Context, model, id string) (typegraph.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	records, ok := s.records[model]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, model)
	}
	if i := indexOf(records, id); i >= 0 {
		return maps.Clone(records[i]), nil
	}
	return nil, nil
}

// FetchAllOfType returns every record of model in insertion order.
func (s *Store) FetchAllOfType(ctx context.Context, model string, page typegraph.Pagination) ([]typegraph.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	records, ok := s.records[model]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, model)
	}
	out := make([]typegraph.Node, 0, len(records))
	for _, record := range records {
		out = append(out, maps.Clone(record))
	}
	return out, nil
}

// CreateNode stores input under a fresh UUID.
func (s *Store) CreateNode(ctx context.Context, model string, input map[string]any) (typegraph.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isModel(model) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, model)
	}
	record := s.normalize(model, input)
	record["id"] = newID()
	s.records[model] = append(s.records[model], record)
	s.logger.Debug("record created", slog.String("model", model), slog.String("id", record.ID()))
	return maps.Clone(record), nil
}

// UpdateNode merges input into the record with id.
func (s *Store) UpdateNode(ctx context.Context, model, id string, input map[string]any) (typegraph.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	records, ok := s.records[model]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, model)
	}
	i := indexOf(records, id)
	if i < 0 {
		return nil, nil
	}
	updated := maps.Clone(records[i])
	for key, value := range s.normalize(model, input) {
		if key == "id" {
			continue
		}
		updated[key] = value
	}
	records[i] = updated
	return maps.Clone(updated), nil
}

// DeleteNode removes the record with id and returns it.
func (s *Store) DeleteNode(ctx context.Context, model, id string) (typegraph.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	records, ok := s.records[model]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, model)
	}
	i := indexOf(records, id)
	if i < 0 {
		return nil, nil
	}
	removed := records[i]
	s.records[model] = append(records[:i:i], records[i+1:]...)
	return removed, nil
}

// CarryOver copies the records of every model whose schema is identical in
// prev and s, and returns those model names sorted. Models that were added,
// removed or changed start empty.
func (s *Store) CarryOver(prev *Store) []string {
	if prev == nil || prev == s {
		return nil
	}
	prev.mu.RLock()
	defer prev.mu.RUnlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	var kept []string
	for model, schema := range s.schemas {
		old, ok := prev.schemas[model]
		if !ok || !reflect.DeepEqual(old, schema) {
			continue
		}
		records := make([]typegraph.Node, 0, len(prev.records[model]))
		for _, record := range prev.records[model] {
			records = append(records, maps.Clone(record))
		}
		s.records[model] = records
		kept = append(kept, model)
	}
	slices.Sort(kept)
	return kept
}

// Len reports how many records model holds.
func (s *Store) Len(model string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records[model])
}

// normalize copies input and stores ids as strings so lookups compare equal
// whatever type the caller used.
func (s *Store) normalize(model string, input map[string]any) typegraph.Node {
	record := make(typegraph.Node, len(input)+1)
	for key, value := range input {
		record[key] = value
	}
	if v, ok := record["id"]; ok && v != nil {
		record["id"] = idString(v)
	}
	for _, key := range s.relationKeys[model] {
		if v, ok := record[key]; ok && v != nil {
			record[key] = idString(v)
		}
	}
	return record
}

func newID() string {
	return uuid.NewString()
}

func indexOf(records []typegraph.Node, id string) int {
	for i, record := range records {
		if record.ID() == id {
			return i
		}
	}
	return -1
}

func idString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
