package schema

import "slices"

// Changes is the column difference between a live table and a target.
type Changes struct {
	Add    []*Column
	Update []*Column
	Drop   []*Column
}

// Empty reports whether no column differs.
func (c Changes) Empty() bool {
	return len(c.Add) == 0 && len(c.Update) == 0 && len(c.Drop) == 0
}

// Diff compares a reflected live table with the desired target. A target
// column whose old name exists live is an update, so a rename compiles to
// CHANGE COLUMN rather than a drop and add.
func Diff(live, target *Table) Changes {
	var changes Changes
	renamed := make(map[string]bool)

	for _, col := range target.Columns() {
		if current := live.Column(col.Name()); current != nil {
			if !ColumnEqual(current, col) {
				changes.Update = append(changes.Update, col)
			}
			continue
		}
		if old := col.OldName(); old != "" && live.HasColumn(old) && !target.HasColumn(old) {
			renamed[old] = true
			changes.Update = append(changes.Update, col)
			continue
		}
		changes.Add = append(changes.Add, col)
	}

	for _, col := range live.Columns() {
		if !target.HasColumn(col.Name()) && !renamed[col.Name()] {
			changes.Drop = append(changes.Drop, col)
		}
	}
	return changes
}

// ColumnEqual reports whether target needs no change against live. Name,
// base type, nullability, sign and length are compared. A default or
// comment only counts when it is set and non-empty on target. Integer display widths
// are ignored when live reports none.
func ColumnEqual(live, target *Column) bool {
	if live.Name() != target.Name() || live.IsNullable() != target.IsNullable() {
		return false
	}
	l, t := live.Resolve(), target.Resolve()
	if l.Type != t.Type || l.Unsigned != t.Unsigned {
		return false
	}
	if !(IsInteger(l.Type) && len(l.Length) == 0) && !slices.Equal(l.Length, t.Length) {
		return false
	}
	if l.Type == Enum || l.Type == Set {
		if !slices.Equal(live.Options(), target.Options()) {
			return false
		}
	}
	if t.HasDefault && t.Default != nil && DefaultText(t.Default) != "" {
		if !l.HasDefault || DefaultText(l.Default) != DefaultText(t.Default) {
			return false
		}
	}
	if c := target.CommentText(); c != "" && c != live.CommentText() {
		return false
	}
	return true
}
