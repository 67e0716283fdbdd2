package render

// RowLockingLevel indicates the level of row-level locking support.
type RowLockingLevel int

const (
	RowLockingNone  RowLockingLevel = iota // No row locking
	RowLockingBasic                        // FOR UPDATE, FOR SHARE
)

// Capabilities describes the statement features a dialect can compile.
type Capabilities struct {
	Upsert           bool            // ON CONFLICT / ON DUPLICATE KEY
	Replace          bool            // REPLACE INTO
	UpdateJoin       bool            // UPDATE t JOIN ...
	DeleteJoin       bool            // DELETE alias FROM t JOIN ...
	UpdateOrderLimit bool            // ORDER BY / LIMIT on UPDATE and DELETE
	RowLocking       RowLockingLevel // FOR UPDATE/SHARE support
}
