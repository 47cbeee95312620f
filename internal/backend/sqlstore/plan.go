package sqlstore

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"modelgql/internal/sqlutil"
)

// SQLQuery is a rendered statement and its arguments.
type SQLQuery struct {
	SQL  string
	Args []any
}

func render(builder sq.Sqlizer) (SQLQuery, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return SQLQuery{}, err
	}
	return SQLQuery{SQL: query, Args: args}, nil
}

func planSelectAll(t *table) (SQLQuery, error) {
	return render(sq.Select(t.columnNames()...).
		From(sqlutil.QuoteIdentifier(t.Name)).
		OrderBy(sqlutil.QuoteIdentifier(idColumn)).
		PlaceholderFormat(sq.Question))
}

func planSelectByID(t *table, id string) (SQLQuery, error) {
	return render(sq.Select(t.columnNames()...).
		From(sqlutil.QuoteIdentifier(t.Name)).
		Where(sq.Eq{sqlutil.QuoteIdentifier(idColumn): id}).
		Limit(1).
		PlaceholderFormat(sq.Question))
}

func planSelectRelated(t *table, foreignColumn, parentID string) (SQLQuery, error) {
	return render(sq.Select(t.columnNames()...).
		From(sqlutil.QuoteIdentifier(t.Name)).
		Where(sq.Eq{sqlutil.QuoteIdentifier(foreignColumn): parentID}).
		OrderBy(sqlutil.QuoteIdentifier(idColumn)).
		PlaceholderFormat(sq.Question))
}

func planInsert(t *table, columns []string, values []any) (SQLQuery, error) {
	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = sqlutil.QuoteIdentifier(col)
	}
	return render(sq.Insert(sqlutil.QuoteIdentifier(t.Name)).
		Columns(quoted...).
		Values(values...).
		PlaceholderFormat(sq.Question))
}

func planUpdate(t *table, id string, columns []string, values []any) (SQLQuery, error) {
	if len(columns) == 0 {
		return SQLQuery{}, fmt.Errorf("update set cannot be empty")
	}
	setMap := make(map[string]any, len(columns))
	for i, col := range columns {
		setMap[sqlutil.QuoteIdentifier(col)] = values[i]
	}
	return render(sq.Update(sqlutil.QuoteIdentifier(t.Name)).
		SetMap(setMap).
		Where(sq.Eq{sqlutil.QuoteIdentifier(idColumn): id}).
		PlaceholderFormat(sq.Question))
}

func planDelete(t *table, id string) (SQLQuery, error) {
	return render(sq.Delete(sqlutil.QuoteIdentifier(t.Name)).
		Where(sq.Eq{sqlutil.QuoteIdentifier(idColumn): id}).
		PlaceholderFormat(sq.Question))
}
