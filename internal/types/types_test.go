package types

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestBindingsFlattenOrder(t *testing.T) {
	b := NewBindings()
	steps := []struct {
		bucket Bucket
		value  any
	}{
		{BucketWhere, 1},
		{BucketSelect, "s"},
		{BucketUnion, "u"},
		{BucketJoin, "j"},
		{BucketOrder, "o"},
		{BucketHaving, "h"},
	}
	for _, s := range steps {
		if err := b.Add(s.bucket, s.value); err != nil {
			t.Fatalf("Add(%s) error = %v", s.bucket, err)
		}
	}
	got, err := b.Flatten()
	if err != nil {
		t.Fatalf("Flatten() error = %v", err)
	}
	want := []any{"s", "j", 1, "h", "o", "u"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Flatten() = %v, want %v", got, want)
	}
}

func TestBindingsAdd(t *testing.T) {
	t.Run("drops expressions", func(t *testing.T) {
		b := NewBindings()
		_ = b.Add(BucketWhere, Raw("NOW()"))
		_ = b.Add(BucketWhere, []any{1, Raw("x"), 2})
		got, _ := b.Get(BucketWhere)
		if !reflect.DeepEqual(got, []any{1, 2}) {
			t.Errorf("Get() = %v, want [1 2]", got)
		}
	})

	t.Run("flattens one level", func(t *testing.T) {
		b := NewBindings()
		_ = b.Add(BucketWhere, []int{1, 2, 3})
		_ = b.Add(BucketWhere, []any{[]string{"a", "b"}})
		got, _ := b.Get(BucketWhere)
		want := []any{1, 2, 3, []string{"a", "b"}}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Get() = %v, want %v", got, want)
		}
	})

	t.Run("keeps bytes whole", func(t *testing.T) {
		b := NewBindings()
		_ = b.Add(BucketWhere, []byte("ab"))
		if b.Len() != 1 {
			t.Errorf("Len() = %d, want 1", b.Len())
		}
	})

	t.Run("unknown bucket", func(t *testing.T) {
		b := NewBindings()
		err := b.Add(Bucket("nope"), 1)
		if !errors.Is(err, ErrUnknownBucket) {
			t.Errorf("Add() error = %v, want ErrUnknownBucket", err)
		}
		if _, err := b.Flatten(Bucket("nope")); !errors.Is(err, ErrUnknownBucket) {
			t.Errorf("Flatten() error = %v, want ErrUnknownBucket", err)
		}
	})
}

func TestBindingsReplaceAndClone(t *testing.T) {
	b := NewBindings()
	_ = b.Add(BucketSelect, 1)
	c := b.Clone()
	if err := c.Replace(BucketSelect, []any{7, 8}); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	orig, _ := b.Get(BucketSelect)
	repl, _ := c.Get(BucketSelect)
	if !reflect.DeepEqual(orig, []any{1}) {
		t.Errorf("original = %v, want [1]", orig)
	}
	if !reflect.DeepEqual(repl, []any{7, 8}) {
		t.Errorf("replaced = %v, want [7 8]", repl)
	}
}

func TestParseBucket(t *testing.T) {
	if b, err := ParseBucket("having"); err != nil || b != BucketHaving {
		t.Errorf("ParseBucket(having) = %q, %v", b, err)
	}
	if _, err := ParseBucket("groups"); !errors.Is(err, ErrUnknownBucket) {
		t.Errorf("ParseBucket(groups) error = %v", err)
	}
}

func TestIsOperator(t *testing.T) {
	for _, op := range []string{"=", "<>", "LIKE", "not like", "<=>", "&", "Not Between", "is", "IS NOT"} {
		if !IsOperator(op) {
			t.Errorf("IsOperator(%q) = false, want true", op)
		}
	}
	for _, op := range []string{"==", "equals", "", "foo"} {
		if IsOperator(op) {
			t.Errorf("IsOperator(%q) = true, want false", op)
		}
	}
}

func TestValueOf(t *testing.T) {
	if _, ok := ValueOf(Raw("NOW()")).(Expression); !ok {
		t.Error("ValueOf(Expression) should stay an Expression")
	}
	l, ok := ValueOf(5).(Literal)
	if !ok || l.V != 5 {
		t.Errorf("ValueOf(5) = %#v", ValueOf(5))
	}
}

func TestIsComposite(t *testing.T) {
	composite := []any{map[string]int{"a": 1}, []string{"x"}, struct{ A int }{1}, &struct{ B int }{2}}
	for _, v := range composite {
		if !IsComposite(v) {
			t.Errorf("IsComposite(%#v) = false", v)
		}
	}
	scalar := []any{nil, 1, "s", 2.5, true, []byte("b"), time.Now()}
	for _, v := range scalar {
		if IsComposite(v) {
			t.Errorf("IsComposite(%#v) = true", v)
		}
	}
}

func TestJSONCodec(t *testing.T) {
	got, err := JSONCodec{}.Encode(map[string]int{"a": 1})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if got != `{"a":1}` {
		t.Errorf("Encode() = %v", got)
	}
}

func TestQueryClone(t *testing.T) {
	q := NewQuery("p_")
	n := 5
	q.Limit = &n
	q.Orders = []string{"id"}
	_ = q.Bindings.Add(BucketWhere, 1)

	c := q.Clone()
	*c.Limit = 9
	c.Orders[0] = "name"
	_ = c.Bindings.Add(BucketWhere, 2)

	if *q.Limit != 5 || q.Orders[0] != "id" || q.Bindings.Len() != 1 {
		t.Errorf("clone mutated original: limit=%d orders=%v bindings=%d", *q.Limit, q.Orders, q.Bindings.Len())
	}
}
