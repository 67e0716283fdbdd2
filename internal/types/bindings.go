package types

import (
	"fmt"
	"reflect"
)

// Bucket names a clause-specific group of bound values.
type Bucket string

// Binding buckets, listed in the order their placeholders appear in a SELECT.
const (
	BucketSelect Bucket = "select"
	BucketJoin   Bucket = "join"
	BucketWhere  Bucket = "where"
	BucketHaving Bucket = "having"
	BucketOrder  Bucket = "order"
	BucketUnion  Bucket = "union"
)

// CanonicalOrder is the flatten order used when no buckets are named.
var CanonicalOrder = []Bucket{BucketSelect, BucketJoin, BucketWhere, BucketHaving, BucketOrder, BucketUnion}

// ParseBucket validates a bucket name.
func ParseBucket(name string) (Bucket, error) {
	b := Bucket(name)
	if !b.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownBucket, name)
	}
	return b, nil
}

// Valid reports whether b is one of the known buckets.
func (b Bucket) Valid() bool {
	switch b {
	case BucketSelect, BucketJoin, BucketWhere, BucketHaving, BucketOrder, BucketUnion:
		return true
	}
	return false
}

// Bindings holds positional parameters grouped by clause so that a query can
// be assembled in any order while its arguments stay aligned with the
// placeholders of the compiled statement.
type Bindings struct {
	buckets map[Bucket][]any
}

// NewBindings returns an empty store.
func NewBindings() *Bindings {
	return &Bindings{buckets: make(map[Bucket][]any, len(CanonicalOrder))}
}

// Add appends value to bucket. Expressions are dropped. Slices are flattened
// one level and their Expression elements are dropped too.
func (b *Bindings) Add(bucket Bucket, value any) error {
	if !bucket.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownBucket, bucket)
	}
	for _, v := range flatten(value) {
		if IsExpression(v) {
			continue
		}
		b.buckets[bucket] = append(b.buckets[bucket], Unwrap(v))
	}
	return nil
}

// Replace overwrites the contents of bucket.
func (b *Bindings) Replace(bucket Bucket, values []any) error {
	if !bucket.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownBucket, bucket)
	}
	b.buckets[bucket] = nil
	for _, v := range values {
		if IsExpression(v) {
			continue
		}
		b.buckets[bucket] = append(b.buckets[bucket], Unwrap(v))
	}
	return nil
}

// Get returns a copy of one bucket.
func (b *Bindings) Get(bucket Bucket) ([]any, error) {
	if !bucket.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBucket, bucket)
	}
	return append([]any(nil), b.buckets[bucket]...), nil
}

// Flatten concatenates the named buckets, or all buckets in canonical order
// when none are named.
func (b *Bindings) Flatten(buckets ...Bucket) ([]any, error) {
	if len(buckets) == 0 {
		buckets = CanonicalOrder
	}
	out := make([]any, 0, b.Len())
	for _, bucket := range buckets {
		if !bucket.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownBucket, bucket)
		}
		out = append(out, b.buckets[bucket]...)
	}
	return out, nil
}

// Len returns the total number of bound values.
func (b *Bindings) Len() int {
	n := 0
	for _, v := range b.buckets {
		n += len(v)
	}
	return n
}

// Clone returns an independent copy.
func (b *Bindings) Clone() *Bindings {
	c := NewBindings()
	for k, v := range b.buckets {
		c.buckets[k] = append([]any(nil), v...)
	}
	return c
}

func flatten(value any) []any {
	switch v := value.(type) {
	case nil:
		return []any{nil}
	case []any:
		return v
	case []byte:
		return []any{v}
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{value}
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}
