package schema_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoobzio/dbkit"
	"github.com/zoobzio/dbkit/schema"
)

func TestLoadYAMLFile(t *testing.T) {
	tables, err := schema.LoadYAMLFile("testdata/tables.yaml")
	require.NoError(t, err)
	require.Len(t, tables, 2)

	users := tables[0]
	assert.Equal(t, "users", users.Name)
	assert.Equal(t, "Registered users", users.Comment)
	assert.Equal(t, schema.DefaultEngine, users.Engine)
	assert.Equal(t, []string{"id"}, users.PrimaryKey)
	assert.Equal(t,
		[]string{"id", "email", "display_name", "role", "score", "deleted_at", "seen_at", "created_at", "updated_at"},
		users.ColumnNames())

	id := users.Column("id")
	assert.True(t, id.IsUnsigned())
	assert.True(t, id.IsAutoIncrement())

	renamed := users.Column("display_name")
	assert.Equal(t, "name", renamed.OldName())
	assert.Equal(t, "email", renamed.AfterColumn())
	assert.True(t, renamed.IsNullable())

	def, ok := users.Column("role").DefaultValue()
	assert.True(t, ok)
	assert.Equal(t, "member", def)
	assert.Equal(t, []string{"admin", "member"}, users.Column("role").Options())

	def, ok = users.Column("score").DefaultValue()
	assert.True(t, ok)
	assert.Equal(t, 0, def)

	def, ok = users.Column("deleted_at").DefaultValue()
	assert.True(t, ok)
	assert.Nil(t, def)

	def, _ = users.Column("seen_at").DefaultValue()
	assert.Equal(t, dbkit.Raw("CURRENT_TIMESTAMP"), def)

	require.Len(t, users.Indexes(), 1)
	assert.True(t, users.Indexes()[0].Unique)
	require.Len(t, users.ForeignKeys(), 1)
	assert.Equal(t, "cascade", users.ForeignKeys()[0].OnDelete)
	require.Len(t, users.Checks(), 1)
	assert.Equal(t, "score >= 0", users.Checks()[0].Expr)

	assert.Equal(t, "MyISAM", tables[1].Engine)
}

func TestLoadYAMLErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"unknown key", "tables:\n  - name: t\n    colums: []\n", "colums"},
		{"unknown type", "tables:\n  - name: t\n    columns:\n      - name: c\n        type: geometry\n", "unknown type"},
		{"no table name", "tables:\n  - columns: []\n", "without a name"},
		{"no column name", "tables:\n  - name: t\n    columns:\n      - type: int\n", "without a name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := schema.LoadYAML(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadYAMLEmpty(t *testing.T) {
	tables, err := schema.LoadYAML(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, tables)

	_, err = schema.LoadYAMLFile("testdata/missing.yaml")
	assert.Error(t, err)
}
