// Package sqlstore is a MySQL/TiDB backend for the type graph. Each model is
// stored in its own table; singular relations are "<relation>_id" columns and
// to-many relations are read through the inverse column on the target table.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"

	"modelgql/internal/clientschema"
	"modelgql/internal/dbexec"
	"modelgql/internal/naming"
	"modelgql/internal/typegraph"
)

// ErrUnknownModel is returned for operations on a model the store was not built with.
var ErrUnknownModel = errors.New("sqlstore: unknown model")

// ErrUnknownRelation is returned when a related collection is requested for a
// field that is not a to-many relation.
var ErrUnknownRelation = errors.New("sqlstore: unknown relation")

// Config configures a Store.
type Config struct {
	Executor dbexec.QueryExecutor
	Schemas  []clientschema.Schema
	Namer    *naming.Namer
	Logger   *slog.Logger
	// NewID generates ids for created rows. Defaults to random UUIDs.
	NewID func() string
}

// Store implements typegraph.Backend and typegraph.Mutator over SQL.
type Store struct {
	exec   dbexec.QueryExecutor
	tables map[string]*table
	order  []string
	logger *slog.Logger
	newID  func() string
}

// New derives the table layout for cfg.Schemas.
func New(cfg Config) (*Store, error) {
	if cfg.Executor == nil {
		return nil, errors.New("sqlstore: an executor is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	namer := cfg.Namer
	if namer == nil {
		namer = naming.New(naming.DefaultConfig(), logger)
	}
	tables, err := buildTables(cfg.Schemas, namer)
	if err != nil {
		return nil, err
	}
	newID := cfg.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	order := make([]string, 0, len(cfg.Schemas))
	for _, schema := range cfg.Schemas {
		order = append(order, schema.ModelName)
	}
	return &Store{
		exec:   cfg.Executor,
		tables: tables,
		order:  order,
		logger: logger.With(slog.String("component", "sql_backend")),
		newID:  newID,
	}, nil
}

func (s *Store) table(model string) (*table, error) {
	t, ok := s.tables[model]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, model)
	}
	return t, nil
}

// EnsureTables creates any missing model tables.
func (s *Store) EnsureTables(ctx context.Context) error {
	for _, model := range s.order {
		t := s.tables[model]
		if _, err := s.exec.ExecContext(ctx, t.createTableSQL()); err != nil {
			return fmt.Errorf("failed to create table %s: %w", t.Name, err)
		}
		s.logger.Debug("table ensured", slog.String("model", model), slog.String("table", t.Name))
	}
	return nil
}

// FetchRelatedCollection returns the target rows whose inverse column equals parentID.
func (s *Store) FetchRelatedCollection(ctx context.Context, model, parentID, relationField string, page typegraph.Pagination) ([]typegraph.Node, error) {
	parent, err := s.table(model)
	if err != nil {
		return nil, err
	}
	ref, ok := parent.inverse[relationField]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownRelation, model, relationField)
	}
	target := s.tables[ref.Target]
	query, err := planSelectRelated(target, ref.Column, parentID)
	if err != nil {
		return nil, err
	}
	return s.query(ctx, target, query)
}

// FetchNodeByID returns (nil, nil) when no row has id.
func (s *Store) FetchNodeByID(ctx context.Context, model, id string) (typegraph.Node, error) {
	t, err := s.table(model)
	if err != nil {
		return nil, err
	}
	query, err := planSelectByID(t, id)
	if err != nil {
		return nil, err
	}
	nodes, err := s.query(ctx, t, query)
	if err != nil || len(nodes) == 0 {
		return nil, err
	}
	return nodes[0], nil
}

// FetchAllOfType returns every row of model ordered by id.
func (s *Store) FetchAllOfType(ctx context.Context, model string, page typegraph.Pagination) ([]typegraph.Node, error) {
	t, err := s.table(model)
	if err != nil {
		return nil, err
	}
	query, err := planSelectAll(t)
	if err != nil {
		return nil, err
	}
	return s.query(ctx, t, query)
}

// CreateNode inserts input under a generated id and returns the stored row.
func (s *Store) CreateNode(ctx context.Context, model string, input map[string]any) (typegraph.Node, error) {
	t, err := s.table(model)
	if err != nil {
		return nil, err
	}
	row := make(map[string]any, len(input)+1)
	for key, value := range input {
		row[key] = value
	}
	id := s.newID()
	row["id"] = id

	columns, values, err := t.rowValues(row)
	if err != nil {
		return nil, err
	}
	query, err := planInsert(t, columns, values)
	if err != nil {
		return nil, err
	}
	if _, err := s.exec.ExecContext(ctx, query.SQL, query.Args...); err != nil {
		return nil, err
	}
	return s.FetchNodeByID(ctx, model, id)
}

// UpdateNode applies input to the row with id. It returns (nil, nil) when
// the row does not exist.
func (s *Store) UpdateNode(ctx context.Context, model, id string, input map[string]any) (typegraph.Node, error) {
	t, err := s.table(model)
	if err != nil {
		return nil, err
	}
	set := make(map[string]any, len(input))
	for key, value := range input {
		if key == "id" {
			continue
		}
		set[key] = value
	}
	if len(set) > 0 {
		columns, values, err := t.rowValues(set)
		if err != nil {
			return nil, err
		}
		query, err := planUpdate(t, id, columns, values)
		if err != nil {
			return nil, err
		}
		// Affected rows are not a reliable existence check on MySQL, which
		// reports zero for unchanged values; the read below decides.
		if _, err := s.exec.ExecContext(ctx, query.SQL, query.Args...); err != nil {
			return nil, err
		}
	}
	return s.FetchNodeByID(ctx, model, id)
}

// DeleteNode removes the row with id and returns it as it was.
func (s *Store) DeleteNode(ctx context.Context, model, id string) (typegraph.Node, error) {
	t, err := s.table(model)
	if err != nil {
		return nil, err
	}
	existing, err := s.FetchNodeByID(ctx, model, id)
	if err != nil || existing == nil {
		return nil, err
	}
	query, err := planDelete(t, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.exec.ExecContext(ctx, query.SQL, query.Args...); err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *Store) query(ctx context.Context, t *table, query SQLQuery) ([]typegraph.Node, error) {
	rows, err := s.exec.QueryContext(ctx, query.SQL, query.Args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRows(rows, t)
}

func scanRows(rows dbexec.Rows, t *table) ([]typegraph.Node, error) {
	var results []typegraph.Node
	for rows.Next() {
		values := make([]any, len(t.Columns))
		valuePtrs := make([]any, len(t.Columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}
		results = append(results, t.scanNode(values))
	}
	return results, rows.Err()
}

// convertValue normalizes driver values. The text protocol returns every
// column as []byte, the binary protocol returns int64 for integers and
// booleans.
func convertValue(val any, kind string) any {
	if val == nil {
		return nil
	}
	raw, isBytes := val.([]byte)
	switch kind {
	case "ID", "GraphQLID":
		if isBytes {
			return string(raw)
		}
		return fmt.Sprint(val)
	case "Int":
		if isBytes {
			if n, err := strconv.ParseInt(string(raw), 10, 64); err == nil {
				return n
			}
		}
	case "Float":
		if isBytes {
			if f, err := strconv.ParseFloat(string(raw), 64); err == nil {
				return f
			}
		}
	case "Boolean":
		switch v := val.(type) {
		case int64:
			return v != 0
		case []byte:
			if b, err := strconv.ParseBool(string(v)); err == nil {
				return b
			}
		}
	}
	if isBytes {
		return string(raw)
	}
	return val
}
