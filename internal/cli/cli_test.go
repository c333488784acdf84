package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"github.com/syssam/lazysql/dialect"
	"github.com/syssam/lazysql/dialect/sql"
)

type fixture struct {
	config string
	query  string
}

// newFixture writes a SQLite database, a configuration naming it "main"
// and a query file selecting the fruits by id.
func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	db := filepath.Join(dir, "fruits.db")
	drv, err := sql.Open(dialect.SQLite, db)
	require.NoError(t, err)
	for _, stmt := range []string{
		"CREATE TABLE fruits (id INTEGER PRIMARY KEY, name TEXT)",
		"INSERT INTO fruits (id, name) VALUES (4, 'apple'), (6, 'pear'), (7, 'banana'), (8, 'carrot')",
	} {
		_, err := drv.DB().Exec(stmt)
		require.NoError(t, err)
	}
	require.NoError(t, drv.Close())

	f := fixture{
		config: filepath.Join(dir, "lazysql.yaml"),
		query:  filepath.Join(dir, "query.yaml"),
	}
	require.NoError(t, os.WriteFile(f.config, []byte("connections:\n  main: {dialect: sqlite, dsn: \""+db+"\"}\n"), 0o644))
	require.NoError(t, os.WriteFile(f.query, []byte("select: [id, name]\nfrom: fruits\norder_by: [{column: id}]\n"), 0o644))
	return f
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestCompose(t *testing.T) {
	f := newFixture(t)
	out, _, err := execute(t, "compose", "-f", f.query)
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, name FROM fruits ORDER BY id ASC\n", out)

	_, _, err = execute(t, "compose")
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("select: [id]\n"), 0o644))
	_, _, err = execute(t, "compose", "-f", bad)
	assert.ErrorContains(t, err, "no tables")
}

func TestRunText(t *testing.T) {
	f := newFixture(t)
	out, logs, err := execute(t, "-c", f.config, "run", "-f", f.query, "--take", "2")
	require.NoError(t, err)
	assert.Equal(t, "id  name\n4   apple\n6   pear\n", out)
	assert.Contains(t, logs, "run finished")
	assert.Contains(t, logs, "stats.queries=1")
	assert.Contains(t, logs, "run=")
}

func TestRunJSON(t *testing.T) {
	f := newFixture(t)
	out, _, err := execute(t, "-c", f.config, "run", "-f", f.query, "--skip", "1", "--take", "2", "--format", "json")
	require.NoError(t, err)
	var got []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "pear", got[0]["name"])
	assert.Equal(t, "banana", got[1]["name"])
}

func TestRunYAML(t *testing.T) {
	f := newFixture(t)
	out, _, err := execute(t, "-c", f.config, "run", "-f", f.query, "--take", "1", "--format", "yaml")
	require.NoError(t, err)
	assert.Equal(t, "- id: 4\n  name: apple\n", out)

	var got []map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.Equal(t, []map[string]any{{"id": 4, "name": "apple"}}, got)
}

func TestRunMsgpack(t *testing.T) {
	f := newFixture(t)
	out, _, err := execute(t, "-c", f.config, "run", "-f", f.query, "--skip", "3", "--format", "msgpack")
	require.NoError(t, err)
	dec := msgpack.NewDecoder(bytes.NewReader([]byte(out)))
	dec.UseLooseInterfaceDecoding(true)
	var got []map[string]any
	require.NoError(t, dec.Decode(&got))
	assert.Equal(t, []map[string]any{{"id": int64(8), "name": "carrot"}}, got)
}

func TestRunCount(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "all", want: "4\n"},
		{name: "window", args: []string{"--skip", "1", "--take", "2"}, want: "2\n"},
		{name: "past end", args: []string{"--skip", "10"}, want: "0\n"},
		{name: "take zero", args: []string{"--take", "0"}, want: "0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"-c", f.config, "run", "-f", f.query, "--count"}, tt.args...)
			out, _, err := execute(t, args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestRunRaw(t *testing.T) {
	f := newFixture(t)
	out, _, err := execute(t, "-c", f.config, "run",
		"--sql", "SELECT name FROM fruits ORDER BY id", "--skip", "1", "--take", "1", "--format", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name": "pear"}]`, out)
}

func TestRunErrors(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "no query", args: []string{"run"}, wantErr: "exactly one of --file or --sql is required"},
		{name: "both", args: []string{"run", "-f", f.query, "--sql", "SELECT 1"}, wantErr: "exactly one of --file or --sql is required"},
		{name: "format", args: []string{"run", "-f", f.query, "--format", "xml"}, wantErr: `invalid format "xml"`},
		{name: "skip", args: []string{"run", "-f", f.query, "--skip", "-1"}, wantErr: "negative --skip -1"},
		{name: "connection", args: []string{"run", "-f", f.query, "--conn", "reports"}, wantErr: `unknown connection "reports"`},
		{name: "table", args: []string{"run", "--sql", "SELECT * FROM missing"}, wantErr: "missing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, append([]string{"-c", f.config}, tt.args...)...)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}

	_, _, err := execute(t, "-c", filepath.Join(t.TempDir(), "none.yaml"), "run", "-f", f.query)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestPing(t *testing.T) {
	f := newFixture(t)
	out, _, err := execute(t, "-c", f.config, "ping")
	require.NoError(t, err)
	assert.Equal(t, "1 connection(s) reachable\n", out)
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeOutput(&buf, "text", []any{"apple", nil, []any{1, "b"}}))
	assert.Equal(t, "apple\nNULL\n1  b\n", buf.String())

	buf.Reset()
	require.NoError(t, writeOutput(&buf, "text", 3))
	assert.Equal(t, "3\n", buf.String())

	assert.Error(t, writeOutput(&buf, "csv", nil))
}
