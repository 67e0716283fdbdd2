package dbkit_test

import (
	"errors"
	"testing"

	"github.com/zoobzio/dbkit"
	dbtest "github.com/zoobzio/dbkit/testing"
)

func TestSelectBasics(t *testing.T) {
	conn := dbtest.TestConnection(t)

	tests := []struct {
		name    string
		builder *dbkit.Builder
		sql     string
		args    []any
	}{
		{
			name:    "select star",
			builder: conn.Table("users"),
			sql:     "SELECT * FROM users",
		},
		{
			name:    "columns where order limit",
			builder: conn.Table("users").Select("id", "name").Where("active", 1).OrderBy("created_at", "desc", "id").Limit(10),
			sql:     "SELECT id, name FROM users WHERE active = ? ORDER BY created_at DESC,id LIMIT 10",
			args:    []any{1},
		},
		{
			name:    "select alias",
			builder: conn.Table("users as u").Select().SelectAs("u.username", "name"),
			sql:     "SELECT u.username AS name FROM users as u",
		},
		{
			name:    "distinct",
			builder: conn.Table("orders").Select("status").Distinct(),
			sql:     "SELECT DISTINCT status FROM orders",
		},
		{
			name:    "group and having",
			builder: conn.Table("orders").Select("user_id").GroupBy("user_id", "status").Having("total", ">", 100).OrHavingRaw("COUNT(*) > ?", 3),
			sql:     "SELECT user_id FROM orders GROUP BY user_id,status HAVING total > ? or COUNT(*) > ?",
			args:    []any{100, 3},
		},
		{
			name:    "having between",
			builder: conn.Table("orders").GroupBy("user_id").HavingBetween("total", 10, 20),
			sql:     "SELECT * FROM orders GROUP BY user_id HAVING total BETWEEN ? AND ?",
			args:    []any{10, 20},
		},
		{
			name:    "order desc shortcut",
			builder: conn.Table("posts").OrderByDesc("views"),
			sql:     "SELECT * FROM posts ORDER BY views DESC",
		},
		{
			name:    "lock for update",
			builder: conn.Table("users").Where("id", 1).LockForUpdate(),
			sql:     "SELECT * FROM users WHERE id = ? FOR UPDATE",
			args:    []any{1},
		},
		{
			name:    "shared lock",
			builder: conn.Table("users").SharedLock(),
			sql:     "SELECT * FROM users LOCK IN SHARE MODE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := tt.builder.ToSQL()
			dbtest.AssertNoError(t, err)
			dbtest.AssertStatement(t, stmt, tt.sql, tt.args...)
		})
	}
}

func TestWhere(t *testing.T) {
	conn := dbtest.TestConnection(t)

	tests := []struct {
		name    string
		builder *dbkit.Builder
		sql     string
		args    []any
	}{
		{
			name:    "implicit equals",
			builder: conn.Table("users").Where("name", "bob"),
			sql:     "SELECT * FROM users WHERE name = ?",
			args:    []any{"bob"},
		},
		{
			name:    "explicit operator",
			builder: conn.Table("users").Where("name", "like", "b%"),
			sql:     "SELECT * FROM users WHERE name like ?",
			args:    []any{"b%"},
		},
		{
			name:    "unknown operator becomes value",
			builder: conn.Table("users").Where("name", "bob", "ignored"),
			sql:     "SELECT * FROM users WHERE name = ?",
			args:    []any{"bob"},
		},
		{
			name:    "nil is null",
			builder: conn.Table("users").Where("deleted_at", nil),
			sql:     "SELECT * FROM users WHERE deleted_at IS NULL",
		},
		{
			name:    "nil with other operator is not null",
			builder: conn.Table("users").Where("deleted_at", "!=", nil),
			sql:     "SELECT * FROM users WHERE deleted_at IS NOT NULL",
		},
		{
			name:    "is nil is null",
			builder: conn.Table("users").Where("deleted_at", "is", nil),
			sql:     "SELECT * FROM users WHERE deleted_at IS NULL",
		},
		{
			name:    "is not nil is not null",
			builder: conn.Table("users").Where("deleted_at", "is not", nil),
			sql:     "SELECT * FROM users WHERE deleted_at IS NOT NULL",
		},
		{
			name:    "or is not nil",
			builder: conn.Table("users").Where("active", 1).OrWhere("deleted_at", "IS NOT", nil),
			sql:     "SELECT * FROM users WHERE active = ? or deleted_at IS NOT NULL",
			args:    []any{1},
		},
		{
			name:    "or connector",
			builder: conn.Table("t").Where("col1", 1).OrWhere("col2", 2),
			sql:     "SELECT * FROM t WHERE col1 = ? or col2 = ?",
			args:    []any{1, 2},
		},
		{
			name:    "expression value",
			builder: conn.Table("posts").Where("created_at", "<", dbkit.Raw("NOW()")),
			sql:     "SELECT * FROM posts WHERE created_at < NOW()",
		},
		{
			name:    "column comparison",
			builder: conn.Table("posts").WhereColumn("updated_at", ">", "created_at").OrWhereColumn("a", "b"),
			sql:     "SELECT * FROM posts WHERE updated_at > created_at or a = b",
		},
		{
			name:    "null helpers",
			builder: conn.Table("users").WhereNull("a").OrWhereNotNull("b"),
			sql:     "SELECT * FROM users WHERE a IS NULL or b IS NOT NULL",
		},
		{
			name:    "in spreads slice",
			builder: conn.Table("users").WhereIn("id", []int{1, 2, 3}),
			sql:     "SELECT * FROM users WHERE id IN (?, ?, ?)",
			args:    []any{1, 2, 3},
		},
		{
			name:    "in variadic",
			builder: conn.Table("users").WhereNotIn("id", 4, 5),
			sql:     "SELECT * FROM users WHERE id NOT IN (?, ?)",
			args:    []any{4, 5},
		},
		{
			name:    "empty in is false",
			builder: conn.Table("users").WhereIn("id", []int{}),
			sql:     "SELECT * FROM users WHERE 0 = 1",
		},
		{
			name:    "empty not in is true",
			builder: conn.Table("users").WhereNotIn("id"),
			sql:     "SELECT * FROM users WHERE 1 = 1",
		},
		{
			name:    "in operator routes to in list",
			builder: conn.Table("users").Where("id", "in", []int{7, 8}),
			sql:     "SELECT * FROM users WHERE id IN (?, ?)",
			args:    []any{7, 8},
		},
		{
			name:    "between",
			builder: conn.Table("users").WhereBetween("age", 18, 65).OrWhereBetween("age", 70, 80),
			sql:     "SELECT * FROM users WHERE age BETWEEN ? AND ? or age BETWEEN ? AND ?",
			args:    []any{18, 65, 70, 80},
		},
		{
			name:    "not between",
			builder: conn.Table("users").WhereNotBetween("age", 1, 2),
			sql:     "SELECT * FROM users WHERE age NOT BETWEEN ? AND ?",
			args:    []any{1, 2},
		},
		{
			name:    "raw with spread bindings",
			builder: conn.Table("users").WhereRaw("id IN (?, ?)", []int{1, 2}).OrWhereRaw("name = ?", "x"),
			sql:     "SELECT * FROM users WHERE id IN (?, ?) or name = ?",
			args:    []any{1, 2, "x"},
		},
		{
			name: "nested group",
			builder: conn.Table("users").Where("a", 1).OrWhereNested(func(q *dbkit.Builder) {
				q.Where("b", 2).Where("c", 3)
			}),
			sql:  "SELECT * FROM users WHERE a = ? or (b = ? and c = ?)",
			args: []any{1, 2, 3},
		},
		{
			name:    "empty nested group is dropped",
			builder: conn.Table("users").WhereNested(func(*dbkit.Builder) {}),
			sql:     "SELECT * FROM users",
		},
		{
			name:    "map is sorted and nested",
			builder: conn.Table("users").WhereMap(map[string]any{"b": 2, "a": 1}),
			sql:     "SELECT * FROM users WHERE (a = ? and b = ?)",
			args:    []any{1, 2},
		},
		{
			name:    "or map",
			builder: conn.Table("users").Where("active", 1).OrWhereMap(map[string]any{"b": 2, "a": 1}),
			sql:     "SELECT * FROM users WHERE active = ? or (a = ? and b = ?)",
			args:    []any{1, 1, 2},
		},
		{
			name:    "slice value stays one binding",
			builder: conn.Table("users").Where("tags", "=", []string{"a", "b"}),
			sql:     "SELECT * FROM users WHERE tags = ?",
			args:    []any{[]string{"a", "b"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := tt.builder.ToSQL()
			dbtest.AssertNoError(t, err)
			dbtest.AssertStatement(t, stmt, tt.sql, tt.args...)
		})
	}
}

func TestJoins(t *testing.T) {
	conn := dbtest.TestConnection(t, dbkit.WithPrefix("p_"))

	stmt, err := conn.Table("users as u").
		Join("posts as p", "p.user_id", "u.id").
		LeftJoin("comments", "comments.post_id", "=", "p.id").
		LeftJoinWhere("orders as o", "o.status", "=", "paid").
		CrossJoin("products").
		ToSQL()
	dbtest.AssertNoError(t, err)
	dbtest.AssertStatement(t, stmt,
		"SELECT * FROM p_users AS u INNER JOIN p_posts AS p ON p.user_id = u.id LEFT JOIN p_comments ON comments.post_id = p.id LEFT JOIN p_orders AS o ON o.status = ? CROSS JOIN p_products",
		"paid")

	raw, err := conn.Table("users").JoinRaw("right", "teams", "teams.id = users.team_id AND teams.size > ?", 3).ToSQL()
	dbtest.AssertNoError(t, err)
	dbtest.AssertStatement(t, raw, "SELECT * FROM p_users RIGHT JOIN p_teams ON teams.id = users.team_id AND teams.size > ?", 3)
}

func TestBindingOrderFollowsClauses(t *testing.T) {
	conn := dbtest.TestConnection(t)

	stmt, err := conn.Table("users").
		OrderByRaw("FIELD(status, ?)", "new").
		Having("total", ">", 5).
		Where("age", ">", 18).
		JoinWhere("teams", "teams.kind", "=", "pro").
		SelectRaw("IF(score > ?, 1, 0) AS hot", 50).
		GroupBy("team_id").
		ToSQL()
	dbtest.AssertNoError(t, err)
	dbtest.AssertStatement(t, stmt,
		"SELECT IF(score > ?, 1, 0) AS hot FROM users INNER JOIN teams ON teams.kind = ? WHERE age > ? GROUP BY team_id HAVING total > ? ORDER BY FIELD(status, ?)",
		50, "pro", 18, 5, "new")
}

func TestSubqueries(t *testing.T) {
	conn := dbtest.TestConnection(t)

	t.Run("from sub keeps select bindings first", func(t *testing.T) {
		sub := conn.Table("orders").Select("user_id").Where("total", ">", 100)
		stmt, err := conn.Query().FromSub(sub, "big").SelectRaw("? AS tag", "x").Where("big.user_id", ">", 5).ToSQL()
		dbtest.AssertNoError(t, err)
		dbtest.AssertStatement(t, stmt,
			"SELECT ? AS tag FROM (SELECT user_id FROM orders WHERE total > ?) big WHERE big.user_id > ?",
			"x", 100, 5)
	})

	t.Run("select sub", func(t *testing.T) {
		count := conn.Table("orders").SelectRaw("COUNT(*)").WhereColumn("orders.user_id", "users.id")
		stmt, err := conn.Table("users").Select("id").SelectSub(count, "order_count").ToSQL()
		dbtest.AssertNoError(t, err)
		dbtest.AssertSQL(t, "SELECT id, (SELECT COUNT(*) FROM orders WHERE orders.user_id = users.id) AS order_count FROM users", stmt.SQL)
	})

	t.Run("raw string sub", func(t *testing.T) {
		stmt, err := conn.Table("users").SelectSub("SELECT 1", "one").ToSQL()
		dbtest.AssertNoError(t, err)
		dbtest.AssertSQL(t, "SELECT (SELECT 1) AS one FROM users", stmt.SQL)
	})

	t.Run("where in sub", func(t *testing.T) {
		stmt, err := conn.Table("users").WhereIn("id", conn.Table("orders").Select("user_id").Where("status", "paid")).ToSQL()
		dbtest.AssertNoError(t, err)
		dbtest.AssertStatement(t, stmt, "SELECT * FROM users WHERE id IN (SELECT user_id FROM orders WHERE status = ?)", "paid")
	})

	t.Run("sub changed after attach", func(t *testing.T) {
		sub := conn.Table("posts").Select("user_id").Where("published", 1)
		q := conn.Table("users").WhereIn("id", sub)
		sub.Where("author", "x")

		stmt, err := q.ToSQL()
		dbtest.AssertNoError(t, err)
		dbtest.AssertStatement(t, stmt, "SELECT * FROM users WHERE id IN (SELECT user_id FROM posts WHERE published = ?)", 1)

		other := conn.Table("b").Where("y", 2)
		u := conn.Table("a").Union(other)
		other.Where("z", 3)
		stmt, err = u.ToSQL()
		dbtest.AssertNoError(t, err)
		dbtest.AssertStatement(t, stmt, "(SELECT * FROM a) UNION (SELECT * FROM b WHERE y = ?)", 2)
	})

	t.Run("nested builder kept after the group closes", func(t *testing.T) {
		var inner *dbkit.Builder
		q := conn.Table("users").WhereNested(func(n *dbkit.Builder) {
			inner = n
			n.Where("a", 1)
		})
		inner.Where("b", 2)
		stmt, err := q.ToSQL()
		dbtest.AssertNoError(t, err)
		dbtest.AssertStatement(t, stmt, "SELECT * FROM users WHERE (a = ?)", 1)
	})

	t.Run("where not in sub", func(t *testing.T) {
		stmt, err := conn.Table("users").WhereNotInSub("id", dbkit.Raw("SELECT user_id FROM bans")).ToSQL()
		dbtest.AssertNoError(t, err)
		dbtest.AssertSQL(t, "SELECT * FROM users WHERE id NOT IN (SELECT user_id FROM bans)", stmt.SQL)
	})

	t.Run("exists", func(t *testing.T) {
		sub := conn.Table("orders").WhereColumn("orders.user_id", "users.id").Where("status", "paid")
		stmt, err := conn.Table("users").Where("active", 1).WhereExists(sub).OrWhereExists("SELECT 1").ToSQL()
		dbtest.AssertNoError(t, err)
		dbtest.AssertStatement(t, stmt,
			"SELECT * FROM users WHERE active = ? and EXISTS (SELECT * FROM orders WHERE orders.user_id = users.id and status = ?) or EXISTS (SELECT 1)",
			1, "paid")
	})

	t.Run("not exists", func(t *testing.T) {
		stmt, err := conn.Table("users").WhereNotExists(conn.Table("bans").WhereColumn("bans.user_id", "users.id")).ToSQL()
		dbtest.AssertNoError(t, err)
		dbtest.AssertSQL(t, "SELECT * FROM users WHERE NOT EXISTS (SELECT * FROM bans WHERE bans.user_id = users.id)", stmt.SQL)
	})

	t.Run("invalid sub", func(t *testing.T) {
		_, err := conn.Query().FromSub(42, "x").ToSQL()
		if !errors.Is(err, dbkit.ErrInvalidSubquery) {
			t.Errorf("error = %v, want ErrInvalidSubquery", err)
		}
	})
}

func TestUnions(t *testing.T) {
	conn := dbtest.TestConnection(t)
	stmt, err := conn.Table("a").Where("x", 1).
		UnionAll(conn.Table("b").Where("y", 2)).
		Union(conn.Table("c")).
		ToSQL()
	dbtest.AssertNoError(t, err)
	dbtest.AssertStatement(t, stmt,
		"(SELECT * FROM a WHERE x = ?) UNION ALL (SELECT * FROM b WHERE y = ?) UNION (SELECT * FROM c)",
		1, 2)
}

func TestLimits(t *testing.T) {
	conn := dbtest.TestConnection(t)

	tests := []struct {
		name    string
		builder *dbkit.Builder
		sql     string
	}{
		{"limit", conn.Table("t").Limit(5), "SELECT * FROM t LIMIT 5"},
		{"limit and offset", conn.Table("t").Limit(10).Offset(20), "SELECT * FROM t LIMIT 10 OFFSET 20"},
		{"offset only", conn.Table("t").Offset(30), "SELECT * FROM t LIMIT 18446744073709551615 OFFSET 30"},
		{"pair", conn.Table("t").LimitString("20,10"), "SELECT * FROM t LIMIT 20,10"},
		{"pair negative offset", conn.Table("t").LimitString("-5,10"), "SELECT * FROM t LIMIT 0,10"},
		{"single string", conn.Table("t").LimitString("7"), "SELECT * FROM t LIMIT 7"},
		{"for page", conn.Table("t").ForPage(3, 15), "SELECT * FROM t LIMIT 15 OFFSET 30"},
		{"take skip", conn.Table("t").Take(2).Skip(4), "SELECT * FROM t LIMIT 2 OFFSET 4"},
		{"negative offset clamps", conn.Table("t").Limit(1).Offset(-3), "SELECT * FROM t LIMIT 1 OFFSET 0"},
		{"negative limit clears", conn.Table("t").Limit(5).Limit(-1), "SELECT * FROM t"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := tt.builder.ToSQL()
			dbtest.AssertNoError(t, err)
			dbtest.AssertSQL(t, tt.sql, stmt.SQL)
		})
	}

	_, err := conn.Table("t").LimitString("abc").ToSQL()
	dbtest.AssertErrorContains(t, err, "invalid limit")
}

func TestWrites(t *testing.T) {
	conn := dbtest.TestConnection(t)

	t.Run("insert map sorted", func(t *testing.T) {
		stmt, err := conn.Table("users").ToInsertSQL(map[string]any{"name": "ada", "age": 36, "active": true, "bio": nil})
		dbtest.AssertNoError(t, err)
		dbtest.AssertStatement(t, stmt, "INSERT INTO users (active, age, bio, name) VALUES (1, 36, NULL, ?)", "ada")
	})

	t.Run("insert many", func(t *testing.T) {
		stmt, err := conn.Table("users").ToInsertSQL(
			map[string]any{"name": "a", "email": "a@x"},
			map[string]any{"name": "b", "email": "b@x"},
		)
		dbtest.AssertNoError(t, err)
		dbtest.AssertStatement(t, stmt, "INSERT INTO users (email, name) VALUES (?, ?),(?, ?)", "a@x", "a", "b@x", "b")
	})

	t.Run("update", func(t *testing.T) {
		stmt, err := conn.Table("users").Where("id", 5).ToUpdateSQL(map[string]any{
			"name":    "bob",
			"active":  false,
			"seen_at": dbkit.Raw("NOW()"),
		})
		dbtest.AssertNoError(t, err)
		dbtest.AssertStatement(t, stmt, "UPDATE users SET active = 0, name = ?, seen_at = NOW() WHERE id = ?", "bob", 5)
	})

	t.Run("update with join", func(t *testing.T) {
		stmt, err := conn.Table("users as u").
			JoinWhere("roles as r", "r.name", "=", "admin").
			Where("u.id", 1).
			ToUpdateSQL(map[string]any{"u.flag": 1})
		dbtest.AssertNoError(t, err)
		dbtest.AssertStatement(t, stmt, "UPDATE users as u INNER JOIN roles as r ON r.name = ? SET u.flag = ? WHERE u.id = ?", "admin", 1, 1)
	})

	t.Run("delete", func(t *testing.T) {
		stmt, err := conn.Table("users").Where("id", 1).OrderBy("id").Limit(1).ToDeleteSQL()
		dbtest.AssertNoError(t, err)
		dbtest.AssertStatement(t, stmt, "DELETE FROM users WHERE id = ? ORDER BY id LIMIT 1", 1)
	})

	t.Run("delete with join", func(t *testing.T) {
		stmt, err := conn.Table("users as u").Join("bans as b", "b.user_id", "u.id").Where("b.active", 1).ToDeleteSQL()
		dbtest.AssertNoError(t, err)
		dbtest.AssertStatement(t, stmt, "DELETE u FROM users as u INNER JOIN bans as b ON b.user_id = u.id WHERE b.active = ?", 1)
	})

	t.Run("update without values", func(t *testing.T) {
		_, err := conn.Table("users").ToUpdateSQL(map[string]any{})
		dbtest.AssertError(t, err)
	})
}

func TestAggregateSQL(t *testing.T) {
	conn := dbtest.TestConnection(t)

	stmt, err := conn.Table("orders").Select("id").Where("status", "paid").OrderBy("id").Limit(3).AggregateSQL("COUNT", "*")
	dbtest.AssertNoError(t, err)
	dbtest.AssertStatement(t, stmt, "SELECT COUNT(*) AS aggregate FROM orders WHERE status = ?", "paid")

	grouped, err := conn.Table("orders").GroupBy("user_id").Having("total", ">", 1).AggregateSQL("COUNT", "*")
	dbtest.AssertNoError(t, err)
	dbtest.AssertStatement(t, grouped, "SELECT COUNT(*) AS aggregate FROM (SELECT * FROM orders GROUP BY user_id HAVING total > ?) aggregate_table", 1)
}

func TestErrorAccumulation(t *testing.T) {
	conn := dbtest.TestConnection(t)

	b := conn.Table("users").Where("id").Where("name", "x")
	_, err := b.ToSQL()
	dbtest.AssertErrorContains(t, err, "missing value")
	if b.Err() == nil {
		t.Error("Err() should report the first error")
	}
	dbtest.AssertPanicsWithMessage(t, func() { b.MustToSQL() }, "missing value")
	dbtest.AssertPanics(t, func() { b.MustBuild() })

	_, err = conn.Table("users").AddBinding(1, "bogus").ToSQL()
	if !errors.Is(err, dbkit.ErrUnknownBucket) {
		t.Errorf("error = %v, want ErrUnknownBucket", err)
	}
}

func TestAddBinding(t *testing.T) {
	conn := dbtest.TestConnection(t)
	stmt, err := conn.Table("users").WhereRaw("a = ?").AddBinding(9, "where").SelectRaw("?").AddBinding("s", "select").ToSQL()
	dbtest.AssertNoError(t, err)
	dbtest.AssertStatement(t, stmt, "SELECT ? FROM users WHERE a = ?", "s", 9)
}

func TestClone(t *testing.T) {
	conn := dbtest.TestConnection(t)
	base := conn.Table("users").Where("active", 1)
	copied := base.Clone().Where("age", ">", 30)

	stmt, err := base.ToSQL()
	dbtest.AssertNoError(t, err)
	dbtest.AssertStatement(t, stmt, "SELECT * FROM users WHERE active = ?", 1)

	stmt, err = copied.ToSQL()
	dbtest.AssertNoError(t, err)
	dbtest.AssertStatement(t, stmt, "SELECT * FROM users WHERE active = ? and age > ?", 1, 30)
}

func TestCacheable(t *testing.T) {
	tests := []struct {
		sql  string
		want bool
	}{
		{"SELECT * FROM users", true},
		{"show tables", true},
		{"  insert into t values (1)", false},
		{"UPDATE t SET a = 1", false},
		{"delete from t", false},
		{"Replace INTO t VALUES (1)", false},
		{"DROP TABLE t", false},
		{"create table t (id int)", false},
	}
	for _, tt := range tests {
		if got := dbkit.Cacheable(tt.sql); got != tt.want {
			t.Errorf("Cacheable(%q) = %v, want %v", tt.sql, got, tt.want)
		}
	}
}
