package sqlstore

import (
	"fmt"
	"strings"

	"modelgql/internal/clientschema"
	"modelgql/internal/naming"
	"modelgql/internal/sqlutil"
	"modelgql/internal/typegraph"
)

const idColumn = "id"

// column maps one SQL column to the node key it is read into.
type column struct {
	Name string
	Key  string
	// Kind is the client type identifier, or "ID" for relation keys.
	Kind string
}

// table is the storage layout of one model: a table named after the model
// with an id column, one column per scalar field and one "<relation>_id"
// column per singular relation.
type table struct {
	Model   string
	Name    string
	Columns []column
	byKey   map[string]column
	// inverse maps a to-many relation field to the target model and the
	// column on it that refers back to the parent.
	inverse map[string]inverseRef
}

type inverseRef struct {
	Target string
	Column string
}

func (t *table) columnNames() []string {
	names := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		names[i] = sqlutil.QuoteIdentifier(col.Name)
	}
	return names
}

func buildTables(schemas []clientschema.Schema, namer *naming.Namer) (map[string]*table, error) {
	models := make(map[string]clientschema.Schema, len(schemas))
	for _, schema := range schemas {
		models[schema.ModelName] = schema
	}

	tables := make(map[string]*table, len(schemas))
	for _, schema := range schemas {
		t := &table{
			Model:   schema.ModelName,
			Name:    namer.ToTableName(schema.ModelName),
			byKey:   map[string]column{},
			inverse: map[string]inverseRef{},
		}
		t.add(column{Name: idColumn, Key: "id", Kind: "ID"})
		for _, field := range schema.Fields {
			if field.FieldName == "id" {
				continue
			}
			if _, isModel := models[field.TypeIdentifier]; isModel {
				if field.IsList {
					continue
				}
				key := namer.RelationIDName(field.FieldName)
				t.add(column{Name: namer.ToColumnName(key), Key: key, Kind: "ID"})
				continue
			}
			if field.IsList {
				// Scalar lists have no column layout.
				continue
			}
			t.add(column{Name: namer.ToColumnName(field.FieldName), Key: field.FieldName, Kind: field.TypeIdentifier})
		}
		tables[schema.ModelName] = t
	}

	for _, schema := range schemas {
		for _, field := range schema.Fields {
			target, isModel := models[field.TypeIdentifier]
			if !isModel || !field.IsList {
				continue
			}
			back := field.BackRelationName
			if back == "" {
				for _, candidate := range target.Fields {
					if candidate.TypeIdentifier == schema.ModelName && !candidate.IsList {
						back = candidate.FieldName
						break
					}
				}
			}
			if back == "" {
				return nil, fmt.Errorf("sqlstore: relation %s.%s has no inverse field on %s", schema.ModelName, field.FieldName, target.ModelName)
			}
			col, ok := tables[target.ModelName].byKey[namer.RelationIDName(back)]
			if !ok {
				return nil, fmt.Errorf("sqlstore: relation %s.%s names inverse %q which is not a singular relation on %s",
					schema.ModelName, field.FieldName, back, target.ModelName)
			}
			tables[schema.ModelName].inverse[field.FieldName] = inverseRef{Target: target.ModelName, Column: col.Name}
		}
	}
	return tables, nil
}

func (t *table) add(col column) {
	t.Columns = append(t.Columns, col)
	t.byKey[col.Key] = col
}

// columnType is the DDL type for a client type identifier.
func columnType(kind string) string {
	switch kind {
	case "ID", "GraphQLID":
		return "VARCHAR(64)"
	case "Int":
		return "BIGINT"
	case "Float":
		return "DOUBLE"
	case "Boolean":
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}

// createTableSQL renders an idempotent CREATE TABLE statement for t.
func (t *table) createTableSQL() string {
	defs := make([]string, 0, len(t.Columns)+1)
	for _, col := range t.Columns {
		def := sqlutil.QuoteIdentifier(col.Name) + " " + columnType(col.Kind)
		if col.Name == idColumn {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}
	defs = append(defs, "PRIMARY KEY ("+sqlutil.QuoteIdentifier(idColumn)+")")
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", sqlutil.QuoteIdentifier(t.Name), strings.Join(defs, ", "))
}

// rowValues converts node input into column names and values, rejecting keys
// with no column.
func (t *table) rowValues(input map[string]any) ([]string, []any, error) {
	keys := make([]string, 0, len(input))
	for _, col := range t.Columns {
		if _, ok := input[col.Key]; ok {
			keys = append(keys, col.Key)
		}
	}
	if len(keys) != len(input) {
		for key := range input {
			if _, ok := t.byKey[key]; !ok {
				return nil, nil, fmt.Errorf("sqlstore: %s has no column for %q", t.Model, key)
			}
		}
	}
	columns := make([]string, len(keys))
	values := make([]any, len(keys))
	for i, key := range keys {
		columns[i] = t.byKey[key].Name
		values[i] = input[key]
	}
	return columns, values, nil
}

func (t *table) scanNode(values []any) typegraph.Node {
	node := make(typegraph.Node, len(t.Columns))
	for i, col := range t.Columns {
		node[col.Key] = convertValue(values[i], col.Kind)
	}
	return node
}
