package dbkit_test

import (
	"fmt"

	"github.com/zoobzio/dbkit"
	"github.com/zoobzio/dbkit/mysql"
	"github.com/zoobzio/dbkit/postgres"
)

func Example() {
	conn := dbkit.New(mysql.New())

	stmt := conn.Table("users").
		Select("id", "email").
		Where("active", true).
		WhereIn("role", "admin", "owner").
		OrderBy("created_at", "desc").
		Limit(10).
		MustToSQL()

	fmt.Println(stmt.SQL)
	fmt.Println(stmt.Args)
	// Output:
	// SELECT id, email FROM users WHERE active = ? and role IN (?, ?) ORDER BY created_at DESC LIMIT 10
	// [true admin owner]
}

func ExampleBuilder_WhereNested() {
	conn := dbkit.New(mysql.New())

	stmt := conn.Table("posts").
		Where("published", 1).
		WhereNested(func(q *dbkit.Builder) {
			q.Where("views", ">", 100).OrWhere("featured", 1)
		}).
		MustToSQL()

	fmt.Println(stmt.SQL)
	// Output:
	// SELECT * FROM posts WHERE published = ? and (views > ? or featured = ?)
}

func ExampleBuilder_ToInsertSQL() {
	conn := dbkit.New(postgres.New())

	stmt, err := conn.Table("users").ToInsertSQL(
		map[string]any{"email": "ada@example.com", "admin": true},
		map[string]any{"email": "bob@example.com", "admin": false},
	)
	if err != nil {
		panic(err)
	}
	fmt.Println(stmt.SQL)
	// Output:
	// INSERT INTO users (admin, email) VALUES (TRUE, ?),(FALSE, ?)
}

func ExampleCacheable() {
	fmt.Println(dbkit.Cacheable("SELECT * FROM users"))
	fmt.Println(dbkit.Cacheable("  update users SET a = 1"))
	// Output:
	// true
	// false
}
