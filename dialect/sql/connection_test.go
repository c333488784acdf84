package sql

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/lazysql"
	"github.com/syssam/lazysql/dialect"
)

func newMockConnection(t *testing.T, d string) (*Connection, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewConnection(OpenDB(d, db)), mock
}

func TestConnectionFetchAll(t *testing.T) {
	conn, mock := newMockConnection(t, dialect.MySQL)
	q := Select("id", "name").From("fruits").Where(Cond("type = 'fruit'"))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name FROM fruits WHERE type = 'fruit'")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(int64(4), []byte("apple")).
			AddRow(int64(6), "pear"))

	records, err := conn.FetchAll(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"id", "name"}, records[0].Columns())
	assert.Equal(t, []any{int64(4), "apple"}, records[0].Values())
	name, ok := records[1].Get("name")
	assert.True(t, ok)
	assert.Equal(t, "pear", name)
	_, ok = records[1].Get("type")
	assert.False(t, ok)
	assert.Equal(t, int64(1), conn.QueryCount())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConnectionFetchValue(t *testing.T) {
	conn, mock := newMockConnection(t, dialect.SQLite)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM fruits")).
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(4))
	v, err := conn.FetchValue(context.Background(), SelectRaw("COUNT(*)").From("fruits"))
	require.NoError(t, err)
	assert.EqualValues(t, 4, v)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT MAX(id) FROM fruits WHERE id > 100")).
		WillReturnRows(sqlmock.NewRows([]string{"MAX(id)"}))
	v, err = conn.FetchValue(context.Background(), RawQuery("SELECT MAX(id) FROM fruits WHERE id > 100"))
	require.NoError(t, err)
	assert.Nil(t, v)

	assert.Equal(t, int64(2), conn.QueryCount())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConnectionComposeError(t *testing.T) {
	conn, mock := newMockConnection(t, dialect.MySQL)

	_, err := conn.FetchAll(context.Background(), Select("*"))
	require.Error(t, err)
	assert.True(t, lazysql.IsQueryError(err))
	assert.True(t, lazysql.IsComposeError(err))

	_, err = conn.FetchValue(context.Background(), RawQuery("  "))
	require.Error(t, err)
	var qe *lazysql.QueryError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, "fetch value", qe.Op)

	_, err = conn.Execute(context.Background(), Select("*").From("a", "a"))
	assert.True(t, lazysql.IsDuplicateAlias(err))

	// Nothing reached the database.
	assert.Zero(t, conn.QueryCount())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConnectionDriverError(t *testing.T) {
	conn, mock := newMockConnection(t, dialect.Postgres)
	dbErr := errors.New("relation \"fruits\" does not exist")
	mock.ExpectQuery("SELECT").WillReturnError(dbErr)

	_, err := conn.FetchAll(context.Background(), Select("*").From("fruits"))
	require.Error(t, err)
	assert.ErrorIs(t, err, dbErr)
	var qe *lazysql.QueryError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, "fetch all", qe.Op)
	assert.Equal(t, "SELECT * FROM fruits", qe.Query)
	assert.Equal(t, int64(1), conn.Stats().Errors)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConnectionExecute(t *testing.T) {
	conn, mock := newMockConnection(t, dialect.MySQL)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT name FROM fruits LIMIT 1")).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("apple"))

	rows, err := conn.Execute(context.Background(), Select("name").From("fruits").Limit(1))
	require.NoError(t, err)
	require.True(t, rows.Next())
	var name string
	require.NoError(t, rows.Scan(&name))
	assert.Equal(t, "apple", name)
	require.NoError(t, rows.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConnectionQuoting(t *testing.T) {
	conn, _ := newMockConnection(t, dialect.MySQL)
	assert.Equal(t, dialect.MySQL, conn.Dialect())
	assert.Equal(t, "`0`", conn.QuoteIdentifier("0"))
	assert.Equal(t, "'it''s'", conn.Quote("it's"))
	assert.Equal(t, "12", conn.Quote(12))

	conn, _ = newMockConnection(t, dialect.Postgres)
	assert.Equal(t, `"0"`, conn.QuoteIdentifier("0"))
	assert.Equal(t, "TRUE", conn.Quote(true))
}

func TestNewConnectionKeepsStatsDriver(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sd := NewStatsDriver(OpenDB(dialect.SQLite, db))
	conn := NewConnection(sd)
	assert.Same(t, sd, conn.Driver())
	assert.Same(t, sd.Counters(), conn.Driver().Counters())
}

func TestRecord(t *testing.T) {
	r := NewRecord([]string{"name", "type", "id"}, []any{"apple", "fruit", 4})
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, map[string]any{"name": "apple", "type": "fruit", "id": 4}, r.Map())

	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t, `{"name":"apple","type":"fruit","id":4}`, string(b))

	// Accessors return copies.
	vs := r.Values()
	vs[0] = "pear"
	v, _ := r.Get("name")
	assert.Equal(t, "apple", v)
}

func TestRawQuery(t *testing.T) {
	s, err := RawQuery("SELECT 1").Compose()
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", s)

	_, err = RawQuery("").Compose()
	assert.True(t, lazysql.IsComposeError(err))
}
