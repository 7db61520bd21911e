package resolver

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/graphql-go/graphql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelql/internal/dbexec"
)

func buildTestSchema(t *testing.T) (graphql.Schema, dbexec.Session, sqlmock.Sqlmock) {
	t.Helper()
	engine, sess, mock := newTestEngine(t)
	schema, err := NewSurface(engine).BuildSchema()
	require.NoError(t, err)
	return schema, sess, mock
}

func TestSchemaListQuery(t *testing.T) {
	schema, sess, mock := buildTestSchema(t)

	mock.ExpectQuery(regexp.QuoteMeta(taskListBaseSQL + " LIMIT 2 OFFSET 0")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "message", "done", "created_at", "done_at", "user_id", "tagged_user_id"}).
			AddRow(1, "first", false, "2026-01-01T00:00:00Z", nil, 1, nil).
			AddRow(2, "second", true, "2026-01-01T00:00:00Z", nil, 1, nil))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM (SELECT 1 FROM `task`) AS `__count`")).
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(101))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT `id`, `username` FROM `user` WHERE `id` IN (?)")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username"}).AddRow(1, "alice"))

	result := graphql.Do(graphql.Params{
		Schema: schema,
		RequestString: `{
			task_list(page: 1, per_page: 2) {
				total
				items { id message user { username } }
			}
		}`,
		Context: WithSession(context.Background(), sess),
	})
	require.Empty(t, result.Errors)

	data := result.Data.(map[string]interface{})
	list := data["task_list"].(map[string]interface{})
	assert.Equal(t, 101, list["total"])

	items := list["items"].([]interface{})
	require.Len(t, items, 2)
	first := items[0].(map[string]interface{})
	assert.Equal(t, "first", first["message"])
	assert.Equal(t, "alice", first["user"].(map[string]interface{})["username"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchemaListFilterArgument(t *testing.T) {
	schema, sess, mock := buildTestSchema(t)

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT `task`.`id`, `task`.`message`, `task`.`done`, `task`.`created_at`, `task`.`done_at`, "+
			"`task`.`user_id`, `task`.`tagged_user_id` FROM `task` "+
			"WHERE (`task`.`done` = ?) ORDER BY `task`.`id` ASC LIMIT 10 OFFSET 0")).
		WithArgs(true).
		WillReturnRows(taskRows())
	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT COUNT(*) FROM (SELECT 1 FROM `task` WHERE (`task`.`done` = ?)) AS `__count`")).
		WithArgs(true).
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(0))

	result := graphql.Do(graphql.Params{
		Schema: schema,
		RequestString: `{
			task_list(filter: [[{path: "done", op: "eq", value: true}]]) {
				total
				items { id }
			}
		}`,
		Context: WithSession(context.Background(), sess),
	})
	require.Empty(t, result.Errors)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchemaItemQuery(t *testing.T) {
	schema, sess, mock := buildTestSchema(t)

	mock.ExpectQuery(regexp.QuoteMeta(taskByPKSQL)).
		WithArgs(1).
		WillReturnRows(taskRows(1))

	result := graphql.Do(graphql.Params{
		Schema:        schema,
		RequestString: `{ task_item(id: 1) { id message } }`,
		Context:       WithSession(context.Background(), sess),
	})
	require.Empty(t, result.Errors)

	item := result.Data.(map[string]interface{})["task_item"].(map[string]interface{})
	assert.Equal(t, "message", item["message"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchemaItemWithoutSessionFails(t *testing.T) {
	schema, _, _ := buildTestSchema(t)

	result := graphql.Do(graphql.Params{
		Schema:        schema,
		RequestString: `{ task_item(id: 1) { id } }`,
		Context:       context.Background(),
	})
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0].Message, "without a database session")
}

func TestSchemaMutationRunsOnTransaction(t *testing.T) {
	schema, _, _ := buildTestSchema(t)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(taskProbeSQL)).
		WithArgs(1).
		WillReturnRows(probeHit(1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `task` WHERE `id` = ?")).
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := dbexec.NewSession(db).BeginTx(context.Background())
	require.NoError(t, err)
	tc := NewTxContext(tx)

	result := graphql.Do(graphql.Params{
		Schema:        schema,
		RequestString: `mutation { task_delete(id: 1) }`,
		Context:       WithTxContext(context.Background(), tc),
	})
	require.Empty(t, result.Errors)
	assert.Equal(t, true, result.Data.(map[string]interface{})["task_delete"])

	require.NoError(t, tc.Finalize())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchemaMutationMarksErrorForRollback(t *testing.T) {
	schema, _, _ := buildTestSchema(t)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(taskProbeSQL)).
		WithArgs(42).
		WillReturnRows(probeHit())
	mock.ExpectRollback()

	tx, err := dbexec.NewSession(db).BeginTx(context.Background())
	require.NoError(t, err)
	tc := NewTxContext(tx)

	result := graphql.Do(graphql.Params{
		Schema:        schema,
		RequestString: `mutation { task_delete(id: 42) }`,
		Context:       WithTxContext(context.Background(), tc),
	})
	require.NotEmpty(t, result.Errors)

	require.NoError(t, tc.Finalize())
	assert.NoError(t, mock.ExpectationsWereMet())
}
