// Package schema models database tables for dbkit: columns, indexes,
// foreign keys and checks, the column type vocabulary, diffing of a live
// table against a desired one, and YAML and DBML interchange.
package schema

import "strings"

// Semantic column type tags.
const (
	Bool       = "bool"
	TinyInt    = "tinyint"
	Short      = "short"
	SmallInt   = "smallint"
	Int        = "int"
	Uint       = "uint"
	Long       = "long"
	BigInt     = "bigint"
	Float      = "float"
	Double     = "double"
	Decimal    = "decimal"
	String     = "string"
	Varchar    = "varchar"
	Char       = "char"
	TinyText   = "tinytext"
	Text       = "text"
	MediumText = "mediumtext"
	LongText   = "longtext"
	JSON       = "json"
	JSONB      = "jsonb"
	Blob       = "blob"
	Date       = "date"
	DateTime   = "datetime"
	Time       = "time"
	Timestamp  = "timestamp"
	Year       = "year"
	Enum       = "enum"
	Set        = "set"
)

var aliases = map[string]string{
	Bool:      TinyInt,
	Short:     SmallInt,
	Long:      BigInt,
	Uint:      Int,
	String:    Varchar,
	JSONB:     JSON,
	Timestamp: Int,
}

var known = map[string]bool{
	Bool: true, TinyInt: true, Short: true, SmallInt: true, Int: true, Uint: true,
	Long: true, BigInt: true, Float: true, Double: true, Decimal: true,
	String: true, Varchar: true, Char: true, TinyText: true, Text: true,
	MediumText: true, LongText: true, JSON: true, JSONB: true, Blob: true,
	Date: true, DateTime: true, Time: true, Timestamp: true, Year: true,
	Enum: true, Set: true,
}

// IsKnownType reports whether tag belongs to the type vocabulary.
func IsKnownType(tag string) bool {
	return known[strings.ToLower(tag)]
}

// BaseType resolves tag to the SQL type it is stored as.
func BaseType(tag string) string {
	tag = strings.ToLower(tag)
	if base, ok := aliases[tag]; ok {
		return base
	}
	return tag
}

// IsNumeric reports whether base accepts UNSIGNED.
func IsNumeric(base string) bool {
	switch base {
	case TinyInt, SmallInt, Int, BigInt, Float, Double, Decimal:
		return true
	}
	return false
}

// IsInteger reports whether base is an integer type.
func IsInteger(base string) bool {
	switch base {
	case TinyInt, SmallInt, Int, BigInt:
		return true
	}
	return false
}

// HasLength reports whether base is rendered with a length.
func HasLength(base string) bool {
	switch base {
	case TinyInt, SmallInt, Int, BigInt, Float, Double, Char, Varchar:
		return true
	}
	return false
}

// IsCharacter reports whether base stores character data and so carries a
// character set.
func IsCharacter(base string) bool {
	switch base {
	case Char, Varchar, TinyText, Text, MediumText, LongText:
		return true
	}
	return false
}
