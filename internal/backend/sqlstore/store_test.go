package sqlstore

import (
	"context"
	"database/sql/driver"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelgql/internal/clientschema"
	"modelgql/internal/dbexec"
	"modelgql/internal/naming"
	"modelgql/internal/typegraph"
)

const (
	selectUsers      = "SELECT `id`, `name`, `age`, `active`, `manager_id` FROM `user`"
	selectAllSQL     = selectUsers + " ORDER BY `id`"
	selectByIDSQL    = selectUsers + " WHERE `id` = ? LIMIT 1"
	selectRelatedSQL = selectUsers + " WHERE `manager_id` = ? ORDER BY `id`"
)

var userColumns = []string{"id", "name", "age", "active", "manager_id"}

func userSchemas() []clientschema.Schema {
	return []clientschema.Schema{{
		ModelName: "User",
		Fields: []clientschema.Field{
			{FieldName: "id", TypeIdentifier: "ID", IsRequired: true},
			{FieldName: "name", TypeIdentifier: "String", IsRequired: true},
			{FieldName: "age", TypeIdentifier: "Int"},
			{FieldName: "active", TypeIdentifier: "Boolean"},
			{FieldName: "manager", TypeIdentifier: "User"},
			{FieldName: "reports", TypeIdentifier: "User", IsList: true, BackRelationName: "manager"},
		},
	}}
}

func newTestStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store, err := New(Config{
		Executor: dbexec.NewStandardExecutor(db),
		Schemas:  userSchemas(),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		NewID:    func() string { return "u-new" },
	})
	require.NoError(t, err)
	return store, mock
}

func driverArgs(args ...any) []driver.Value {
	values := make([]driver.Value, len(args))
	for i, arg := range args {
		values[i] = arg
	}
	return values
}

func TestPlans(t *testing.T) {
	tables, err := buildTables(userSchemas(), naming.Default())
	require.NoError(t, err)
	users := tables["User"]
	assert.Equal(t, "user", users.Name)
	assert.Equal(t, inverseRef{Target: "User", Column: "manager_id"}, users.inverse["reports"])

	tests := []struct {
		name string
		plan func() (SQLQuery, error)
		sql  string
		args []any
	}{
		{
			name: "select all",
			plan: func() (SQLQuery, error) { return planSelectAll(users) },
			sql:  selectAllSQL,
		},
		{
			name: "select by id",
			plan: func() (SQLQuery, error) { return planSelectByID(users, "7") },
			sql:  selectByIDSQL,
			args: []any{"7"},
		},
		{
			name: "select related",
			plan: func() (SQLQuery, error) { return planSelectRelated(users, "manager_id", "1") },
			sql:  selectRelatedSQL,
			args: []any{"1"},
		},
		{
			name: "insert",
			plan: func() (SQLQuery, error) {
				return planInsert(users, []string{"id", "name"}, []any{"9", "Dee"})
			},
			sql:  "INSERT INTO `user` (`id`,`name`) VALUES (?,?)",
			args: []any{"9", "Dee"},
		},
		{
			name: "update",
			plan: func() (SQLQuery, error) {
				return planUpdate(users, "9", []string{"name", "age"}, []any{"Dee", 40})
			},
			sql:  "UPDATE `user` SET `age` = ?, `name` = ? WHERE `id` = ?",
			args: []any{40, "Dee", "9"},
		},
		{
			name: "delete",
			plan: func() (SQLQuery, error) { return planDelete(users, "9") },
			sql:  "DELETE FROM `user` WHERE `id` = ?",
			args: []any{"9"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, err := tt.plan()
			require.NoError(t, err)
			assert.Equal(t, tt.sql, query.SQL)
			if tt.args == nil {
				assert.Empty(t, query.Args)
			} else {
				assert.Equal(t, tt.args, query.Args)
			}
		})
	}

	_, err = planUpdate(users, "9", nil, nil)
	assert.Error(t, err)
}

func TestCreateTableSQL(t *testing.T) {
	tables, err := buildTables(userSchemas(), naming.Default())
	require.NoError(t, err)
	assert.Equal(t,
		"CREATE TABLE IF NOT EXISTS `user` (`id` VARCHAR(64) NOT NULL, `name` TEXT, `age` BIGINT, `active` BOOLEAN, `manager_id` VARCHAR(64), PRIMARY KEY (`id`))",
		tables["User"].createTableSQL())
}

func TestBuildTablesMissingInverse(t *testing.T) {
	schemas := []clientschema.Schema{
		{ModelName: "Team", Fields: []clientschema.Field{
			{FieldName: "members", TypeIdentifier: "Person", IsList: true},
		}},
		{ModelName: "Person", Fields: []clientschema.Field{
			{FieldName: "name", TypeIdentifier: "String"},
		}},
	}
	_, err := buildTables(schemas, naming.Default())
	assert.Error(t, err)

	schemas[1].Fields = append(schemas[1].Fields, clientschema.Field{FieldName: "team", TypeIdentifier: "Team"})
	tables, err := buildTables(schemas, naming.Default())
	require.NoError(t, err)
	assert.Equal(t, inverseRef{Target: "Person", Column: "team_id"}, tables["Team"].inverse["members"])
}

func TestNewRequiresExecutor(t *testing.T) {
	_, err := New(Config{Schemas: userSchemas()})
	assert.Error(t, err)
}

func TestFetchAllOfType(t *testing.T) {
	store, mock := newTestStore(t)
	rows := sqlmock.NewRows(userColumns).
		AddRow([]byte("1"), []byte("Ada"), []byte("36"), []byte("1"), nil).
		AddRow([]byte("2"), []byte("Bob"), nil, []byte("0"), []byte("1"))
	mock.ExpectQuery(regexp.QuoteMeta(selectAllSQL)).WillReturnRows(rows)

	nodes, err := store.FetchAllOfType(context.Background(), "User", typegraph.Pagination{})
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, typegraph.Node{"id": "1", "name": "Ada", "age": int64(36), "active": true, "managerId": nil}, nodes[0])
	assert.Equal(t, typegraph.Node{"id": "2", "name": "Bob", "age": nil, "active": false, "managerId": "1"}, nodes[1])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchNodeByID(t *testing.T) {
	store, mock := newTestStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(selectByIDSQL)).
		WithArgs("2").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(int64(2), "Bob", int64(30), int64(1), "1"))
	mock.ExpectQuery(regexp.QuoteMeta(selectByIDSQL)).
		WithArgs("404").
		WillReturnRows(sqlmock.NewRows(userColumns))

	node, err := store.FetchNodeByID(context.Background(), "User", "2")
	require.NoError(t, err)
	assert.Equal(t, typegraph.Node{"id": "2", "name": "Bob", "age": int64(30), "active": true, "managerId": "1"}, node)

	node, err = store.FetchNodeByID(context.Background(), "User", "404")
	require.NoError(t, err)
	assert.Nil(t, node)

	_, err = store.FetchNodeByID(context.Background(), "Ghost", "1")
	assert.ErrorIs(t, err, ErrUnknownModel)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchRelatedCollection(t *testing.T) {
	store, mock := newTestStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(selectRelatedSQL)).
		WithArgs("1").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow("2", "Bob", nil, nil, "1").
			AddRow("3", "Cy", nil, nil, "1"))

	nodes, err := store.FetchRelatedCollection(context.Background(), "User", "1", "reports", typegraph.Pagination{})
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "Cy", nodes[1]["name"])

	_, err = store.FetchRelatedCollection(context.Background(), "User", "1", "manager", typegraph.Pagination{})
	assert.ErrorIs(t, err, ErrUnknownRelation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryError(t *testing.T) {
	store, mock := newTestStore(t)
	boom := errors.New("connection reset")
	mock.ExpectQuery(regexp.QuoteMeta(selectAllSQL)).WillReturnError(boom)

	_, err := store.FetchAllOfType(context.Background(), "User", typegraph.Pagination{})
	assert.ErrorIs(t, err, boom)
}

func TestCreateNode(t *testing.T) {
	store, mock := newTestStore(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `user` (`id`,`name`,`manager_id`) VALUES (?,?,?)")).
		WithArgs("u-new", "Dee", "1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(selectByIDSQL)).
		WithArgs("u-new").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow("u-new", "Dee", nil, nil, "1"))

	node, err := store.CreateNode(context.Background(), "User", map[string]any{"name": "Dee", "managerId": "1"})
	require.NoError(t, err)
	assert.Equal(t, "u-new", node.ID())
	assert.Equal(t, "1", node["managerId"])
	assert.NoError(t, mock.ExpectationsWereMet())

	_, err = store.CreateNode(context.Background(), "User", map[string]any{"nickname": "D"})
	assert.Error(t, err)
}

func TestUpdateNode(t *testing.T) {
	store, mock := newTestStore(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE `user` SET `age` = ?, `name` = ? WHERE `id` = ?")).
		WithArgs(driverArgs(41, "Bobby", "2")...).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(selectByIDSQL)).
		WithArgs("2").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow("2", "Bobby", int64(41), nil, "1"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE `user` SET `name` = ? WHERE `id` = ?")).
		WithArgs("Nobody", "99").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(selectByIDSQL)).
		WithArgs("99").
		WillReturnRows(sqlmock.NewRows(userColumns))

	node, err := store.UpdateNode(context.Background(), "User", "2", map[string]any{"id": "2", "name": "Bobby", "age": 41})
	require.NoError(t, err)
	assert.Equal(t, "Bobby", node["name"])
	assert.Equal(t, int64(41), node["age"])

	node, err = store.UpdateNode(context.Background(), "User", "99", map[string]any{"name": "Nobody"})
	require.NoError(t, err)
	assert.Nil(t, node)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteNode(t *testing.T) {
	store, mock := newTestStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(selectByIDSQL)).
		WithArgs("3").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow("3", "Cy", nil, nil, "1"))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `user` WHERE `id` = ?")).
		WithArgs("3").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(selectByIDSQL)).
		WithArgs("3").
		WillReturnRows(sqlmock.NewRows(userColumns))

	node, err := store.DeleteNode(context.Background(), "User", "3")
	require.NoError(t, err)
	assert.Equal(t, "Cy", node["name"])

	node, err = store.DeleteNode(context.Background(), "User", "3")
	require.NoError(t, err)
	assert.Nil(t, node)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureTables(t *testing.T) {
	store, mock := newTestStore(t)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS `user`")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, store.EnsureTables(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConvertValue(t *testing.T) {
	assert.Equal(t, "42", convertValue(int64(42), "ID"))
	assert.Equal(t, int64(7), convertValue([]byte("7"), "Int"))
	assert.Equal(t, 1.5, convertValue([]byte("1.5"), "Float"))
	assert.Equal(t, true, convertValue([]byte("1"), "Boolean"))
	assert.Equal(t, false, convertValue(int64(0), "Boolean"))
	assert.Equal(t, "RED", convertValue([]byte("RED"), "Color"))
	assert.Nil(t, convertValue(nil, "String"))
}
