package testing

import (
	"context"
	"errors"
	"testing"
)

// =============================================================================
// Fixture Tests
// =============================================================================

func TestTestCatalog(t *testing.T) {
	catalog := TestCatalog(t)
	for _, table := range []string{"users", "posts", "comments", "orders", "products"} {
		if err := catalog.ValidateTable(table); err != nil {
			t.Errorf("ValidateTable(%q) error = %v", table, err)
		}
	}
	if err := catalog.ValidateColumn("users", "email"); err != nil {
		t.Errorf("ValidateColumn(users, email) error = %v", err)
	}
}

func TestTestConnection(t *testing.T) {
	conn := TestConnection(t)
	if conn.Grammar().Name() != "mysql" {
		t.Errorf("Grammar().Name() = %q, want mysql", conn.Grammar().Name())
	}
	if conn.Engine() != nil {
		t.Error("expected no engine")
	}
}

func TestSQLiteConnection(t *testing.T) {
	conn := SQLiteConnection(t, "CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT)")
	ctx := context.Background()

	_, err := conn.Table("notes").Insert(ctx, map[string]any{"body": "hello"})
	AssertNoError(t, err)

	n, err := conn.Table("notes").Count(ctx)
	AssertNoError(t, err)
	if n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
}

// =============================================================================
// Assertion Tests
// =============================================================================

func TestAssertSQL_Match(t *testing.T) {
	AssertSQL(t, "SELECT * FROM users", "SELECT * FROM users")
}

func TestAssertArgs_Match(t *testing.T) {
	AssertArgs(t, []any{1, "a", []string{"x"}}, []any{1, "a", []string{"x"}})
}

func TestAssertArgs_EmptySlices(t *testing.T) {
	AssertArgs(t, []any{}, nil)
}

func TestAssertStatement(t *testing.T) {
	stmt, err := TestConnection(t).Table("users").Where("id", 3).ToSQL()
	AssertNoError(t, err)
	AssertStatement(t, stmt, "SELECT * FROM users WHERE id = ?", 3)
}

func TestAssertNoError_Nil(t *testing.T) {
	AssertNoError(t, nil)
}

func TestAssertError_Error(t *testing.T) {
	AssertError(t, errors.New("boom"))
}

func TestAssertErrorContains_PartialMatch(t *testing.T) {
	AssertErrorContains(t, errors.New("table 'x' not found in catalog"), "not found")
}

func TestAssertPanics_Panics(t *testing.T) {
	AssertPanics(t, func() { panic("boom") })
}

func TestAssertPanicsWithMessage_StringPanic(t *testing.T) {
	AssertPanicsWithMessage(t, func() { panic("invalid limit") }, "limit")
}

func TestAssertPanicsWithMessage_ErrorPanic(t *testing.T) {
	AssertPanicsWithMessage(t, func() { panic(errors.New("unknown binding bucket")) }, "bucket")
}
