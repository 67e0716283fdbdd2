package mysql

import (
	"reflect"
	"strings"
	"testing"

	"github.com/zoobzio/dbkit/internal/types"
)

func tableQuery(table string) *types.Query {
	q := types.NewQuery("")
	q.Table = table
	q.From = []types.FromItem{{Table: table}}
	return q
}

func basic(boolean, column, op string, v any) types.WhereNode {
	return types.WhereNode{Kind: types.WhereBasic, Boolean: boolean, Column: column, Operator: op, Value: types.ValueOf(v)}
}

func intPtr(n int) *int { return &n }

func TestCompileSelect(t *testing.T) {
	tests := []struct {
		name  string
		build func(q *types.Query)
		want  string
	}{
		{
			name:  "star",
			build: func(q *types.Query) {},
			want:  "SELECT * FROM users",
		},
		{
			name: "aliased select",
			build: func(q *types.Query) {
				q.Selects = []types.SelectItem{{Expr: "u.username", Alias: "name"}, {Expr: "u.id"}}
			},
			want: "SELECT u.username AS name, u.id FROM users",
		},
		{
			name: "leading connector stripped",
			build: func(q *types.Query) {
				q.Wheres = []types.WhereNode{basic(types.And, "col1", "=", 1), basic(types.Or, "col2", "=", 2)}
			},
			want: "SELECT * FROM users WHERE col1 = ? or col2 = ?",
		},
		{
			name: "order pairs merge",
			build: func(q *types.Query) {
				q.Orders = []string{"created_at", "desc", "id"}
			},
			want: "SELECT * FROM users ORDER BY created_at DESC,id",
		},
		{
			name: "limit pair",
			build: func(q *types.Query) {
				q.Offset, q.Limit, q.LimitPair = intPtr(0), intPtr(10), true
			},
			want: "SELECT * FROM users LIMIT 0,10",
		},
		{
			name: "offset without limit",
			build: func(q *types.Query) {
				q.Offset = intPtr(30)
			},
			want: "SELECT * FROM users LIMIT 18446744073709551615 OFFSET 30",
		},
		{
			name: "empty in and not in",
			build: func(q *types.Query) {
				q.Wheres = []types.WhereNode{
					{Kind: types.WhereIn, Boolean: types.And, Column: "id"},
					{Kind: types.WhereIn, Boolean: types.Or, Column: "id", Negated: true},
				}
			},
			want: "SELECT * FROM users WHERE 0 = 1 or 1 = 1",
		},
		{
			name: "between and raw",
			build: func(q *types.Query) {
				q.Wheres = []types.WhereNode{
					{Kind: types.WhereBetween, Boolean: types.And, Column: "age", Values: []types.Value{types.ValueOf(18), types.ValueOf(65)}},
					{Kind: types.WhereRaw, Boolean: types.And, SQL: "deleted_at IS NULL"},
				}
			},
			want: "SELECT * FROM users WHERE age BETWEEN ? AND ? and deleted_at IS NULL",
		},
		{
			name: "expression values are inlined",
			build: func(q *types.Query) {
				q.Wheres = []types.WhereNode{basic(types.And, "created_at", "<", types.Raw("NOW()"))}
			},
			want: "SELECT * FROM users WHERE created_at < NOW()",
		},
		{
			name: "group having",
			build: func(q *types.Query) {
				q.Groups = []string{"team_id", "role"}
				q.Havings = []types.WhereNode{basic(types.And, "total", ">", 3)}
			},
			want: "SELECT * FROM users GROUP BY team_id,role HAVING total > ?",
		},
		{
			name: "locks",
			build: func(q *types.Query) {
				q.Lock = types.LockShared
			},
			want: "SELECT * FROM users LOCK IN SHARE MODE",
		},
		{
			name: "prefixed join",
			build: func(q *types.Query) {
				q.Prefix = "p_"
				q.Joins = []types.Join{{Type: "left", Table: "posts as p", On: "p.user_id = users.id"}}
			},
			want: "SELECT * FROM p_users LEFT JOIN p_posts AS p ON p.user_id = users.id",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := tableQuery("users")
			tt.build(q)
			stmt, err := New().CompileSelect(q)
			if err != nil {
				t.Fatalf("CompileSelect() error = %v", err)
			}
			if stmt.SQL != tt.want {
				t.Errorf("SQL = %q, want %q", stmt.SQL, tt.want)
			}
		})
	}
}

func TestCompileInsert_Batching(t *testing.T) {
	rows := []types.InsertRow{
		{Columns: []string{"age", "name"}, Values: []any{30, "ada"}},
		{Columns: []string{"age", "name"}, Values: []any{nil, "bob"}},
		{Columns: []string{"age", "email", "name"}, Values: []any{41, "cy@x", "cy"}},
	}
	stmt, err := New().CompileInsert(tableQuery("users"), rows)
	if err != nil {
		t.Fatalf("CompileInsert() error = %v", err)
	}
	want := "INSERT INTO users (age, name) VALUES (30, ?),(NULL, ?);INSERT INTO users (age, email, name) VALUES (41, ?, ?)"
	if stmt.SQL != want {
		t.Errorf("SQL = %q, want %q", stmt.SQL, want)
	}
	if !reflect.DeepEqual(stmt.Args, []any{"ada", "bob", "cy@x", "cy"}) {
		t.Errorf("Args = %v", stmt.Args)
	}
	if strings.Count(stmt.SQL, "?") != len(stmt.Args) {
		t.Errorf("%d placeholders for %d args", strings.Count(stmt.SQL, "?"), len(stmt.Args))
	}
}

func TestCompileInsertOrUpdate(t *testing.T) {
	rows := []types.InsertRow{{Columns: []string{"email", "visits"}, Values: []any{"a@x", 1}}}
	stmt, err := New().CompileInsertOrUpdate(tableQuery("users"), rows, []string{"visits"})
	if err != nil {
		t.Fatalf("CompileInsertOrUpdate() error = %v", err)
	}
	want := "INSERT INTO users (email, visits) VALUES (?, 1) ON DUPLICATE KEY UPDATE visits = VALUES(visits)"
	if stmt.SQL != want {
		t.Errorf("SQL = %q, want %q", stmt.SQL, want)
	}
}

func TestCompileReplace(t *testing.T) {
	rows := []types.InsertRow{{Columns: []string{"id", "name"}, Values: []any{9, "ada"}}}
	stmt, err := New().CompileReplace(tableQuery("users"), rows)
	if err != nil {
		t.Fatalf("CompileReplace() error = %v", err)
	}
	if stmt.SQL != "REPLACE INTO users (id, name) VALUES (9, ?)" {
		t.Errorf("SQL = %q", stmt.SQL)
	}
}

func TestCompileUpdate_JoinBindingsFirst(t *testing.T) {
	q := tableQuery("users as u")
	q.Joins = []types.Join{{Type: "inner", Table: "roles as r", On: "r.id = u.role_id and r.name = ?"}}
	_ = q.Bindings.Add(types.BucketJoin, []any{"admin"})
	q.Wheres = []types.WhereNode{basic(types.And, "u.id", "=", 4)}
	_ = q.Bindings.Add(types.BucketWhere, []any{4})
	q.Orders = []string{"u.id"}
	q.Limit = intPtr(1)

	stmt, err := New().CompileUpdate(q, []types.Assignment{
		{Column: "u.name", Value: "root"},
		{Column: "u.admin", Value: true},
	})
	if err != nil {
		t.Fatalf("CompileUpdate() error = %v", err)
	}
	want := "UPDATE users as u INNER JOIN roles as r ON r.id = u.role_id and r.name = ? SET u.name = ?, u.admin = 1 WHERE u.id = ? ORDER BY u.id LIMIT 1"
	if stmt.SQL != want {
		t.Errorf("SQL = %q, want %q", stmt.SQL, want)
	}
	if !reflect.DeepEqual(stmt.Args, []any{"admin", "root", 4}) {
		t.Errorf("Args = %v", stmt.Args)
	}
}

func TestCompileDelete(t *testing.T) {
	q := tableQuery("users as u")
	q.Joins = []types.Join{{Type: "inner", Table: "bans as b", On: "b.user_id = u.id"}}
	stmt, err := New().CompileDelete(q)
	if err != nil {
		t.Fatalf("CompileDelete() error = %v", err)
	}
	if stmt.SQL != "DELETE u FROM users as u INNER JOIN bans as b ON b.user_id = u.id" {
		t.Errorf("SQL = %q", stmt.SQL)
	}

	plain := tableQuery("sessions")
	plain.Wheres = []types.WhereNode{basic(types.And, "expired", "=", 1)}
	_ = plain.Bindings.Add(types.BucketWhere, []any{1})
	stmt, err = New().CompileDelete(plain)
	if err != nil {
		t.Fatalf("CompileDelete() error = %v", err)
	}
	if stmt.SQL != "DELETE FROM sessions WHERE expired = ?" {
		t.Errorf("SQL = %q", stmt.SQL)
	}
}

func TestCompileTruncate(t *testing.T) {
	if got := New().CompileTruncate(tableQuery("users")).SQL; got != "TRUNCATE TABLE users" {
		t.Errorf("SQL = %q", got)
	}
}
