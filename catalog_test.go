package dbkit_test

import (
	"strings"
	"testing"

	"github.com/zoobzio/dbkit"
	dbtest "github.com/zoobzio/dbkit/testing"
	"github.com/zoobzio/dbml"
)

func TestNewCatalog(t *testing.T) {
	catalog := dbtest.TestCatalog(t)

	got := strings.Join(catalog.Tables(), ",")
	if got != "comments,orders,posts,products,users" {
		t.Errorf("Tables() = %q", got)
	}
	if catalog.Project() == nil {
		t.Error("Project() = nil")
	}
}

func TestNewCatalog_NilProject(t *testing.T) {
	if _, err := dbkit.NewCatalog(nil); err == nil {
		t.Fatal("Expected error for nil project")
	}
}

func TestCatalogValidateTable(t *testing.T) {
	catalog := dbtest.TestCatalog(t)

	for _, table := range []string{"users", "users as u", "users AS u", "app.users"} {
		if err := catalog.ValidateTable(table); err != nil {
			t.Errorf("ValidateTable(%q) error = %v", table, err)
		}
	}
	if err := catalog.ValidateTable("accounts"); err == nil {
		t.Error("ValidateTable(accounts) expected error")
	}
}

func TestCatalogValidateColumn(t *testing.T) {
	catalog := dbtest.TestCatalog(t)

	dbtest.AssertNoError(t, catalog.ValidateColumn("users", "email"))
	dbtest.AssertNoError(t, catalog.ValidateColumn("users as u", "email"))
	dbtest.AssertErrorContains(t, catalog.ValidateColumn("users", "title"), "not found in table 'users'")
	dbtest.AssertErrorContains(t, catalog.ValidateColumn("accounts", "id"), "table 'accounts' not found")
	dbtest.AssertErrorContains(t, catalog.ValidateColumn("users", "1st"), "invalid column identifier")
}

func TestConnectionWithCatalog(t *testing.T) {
	conn := dbtest.TestConnection(t, dbkit.WithCatalog(dbtest.TestCatalog(t)))

	stmt, err := conn.Table("users").ToInsertSQL(map[string]any{"email": "a@x", "age": 30})
	dbtest.AssertNoError(t, err)
	dbtest.AssertStatement(t, stmt, "INSERT INTO users (age, email) VALUES (30, ?)", "a@x")

	_, err = conn.Table("users").Where("id", 1).ToUpdateSQL(map[string]any{"title": "x"})
	dbtest.AssertErrorContains(t, err, "column 'title' not found")

	_, err = conn.Table("accounts").ToSQL()
	dbtest.AssertErrorContains(t, err, "table 'accounts' not found")

	_, err = conn.Table("users").Join("teams", "teams.id", "users.team_id").ToSQL()
	dbtest.AssertErrorContains(t, err, "table 'teams' not found")
}

func TestCatalogRejectsInjection(t *testing.T) {
	conn := dbtest.TestConnection(t, dbkit.WithCatalog(dbtest.TestCatalog(t)))

	columns := []struct {
		name   string
		column string
	}{
		{"DROP TABLE", "email; DROP TABLE users; --"},
		{"Union injection", "id UNION SELECT * FROM passwords"},
		{"OR 1=1", "id OR 1=1"},
		{"Comment injection", "id/**/OR/**/1=1"},
		{"Backtick injection", "id` FROM users; DROP TABLE users; --"},
		{"Quote injection", "id' OR '1'='1"},
		{"Double quote injection", `id" OR "1"="1`},
		{"Null byte injection", "id\x00 OR 1=1"},
		{"Whitespace tricks", "id\nOR\n1=1"},
		{"Function injection", "id) OR SLEEP(10)--"},
	}
	for _, attempt := range columns {
		t.Run("column "+attempt.name, func(t *testing.T) {
			if _, err := conn.Table("users").ToInsertSQL(map[string]any{attempt.column: 1}); err == nil {
				t.Errorf("insert accepted column %q", attempt.column)
			}
			if _, err := conn.Table("users").ToUpdateSQL(map[string]any{attempt.column: 1}); err == nil {
				t.Errorf("update accepted column %q", attempt.column)
			}
		})
	}

	tables := []struct {
		name  string
		table string
	}{
		{"DROP TABLE", "users; DROP TABLE admin; --"},
		{"Union injection", "users UNION SELECT * FROM passwords"},
		{"Subquery", "(SELECT * FROM admin_users)"},
		{"Comment injection", "users/**/DROP/**/TABLE/**/admin"},
		{"Backtick injection", "users` DROP TABLE admin; --"},
	}
	for _, attempt := range tables {
		t.Run("table "+attempt.name, func(t *testing.T) {
			if _, err := conn.Table(attempt.table).ToSQL(); err == nil {
				t.Errorf("accepted table %q", attempt.table)
			}
		})
	}
}

func TestCatalogFromCustomProject(t *testing.T) {
	project := dbml.NewProject("shop")
	skus := dbml.NewTable("skus")
	skus.AddColumn(dbml.NewColumn("code", "varchar"))
	project.AddTable(skus)

	catalog, err := dbkit.NewCatalog(project)
	dbtest.AssertNoError(t, err)
	dbtest.AssertNoError(t, catalog.ValidateColumn("skus", "code"))
	dbtest.AssertError(t, catalog.ValidateColumn("skus", "id"))
}
