package schema

// ordered is a map that remembers insertion order.
type ordered[V any] struct {
	keys  []string
	items map[string]V
}

func (o *ordered[V]) set(key string, v V) {
	if o.items == nil {
		o.items = make(map[string]V)
	}
	if _, ok := o.items[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.items[key] = v
}

func (o *ordered[V]) get(key string) (V, bool) {
	v, ok := o.items[key]
	return v, ok
}

func (o *ordered[V]) has(key string) bool {
	_, ok := o.items[key]
	return ok
}

func (o *ordered[V]) remove(key string) bool {
	if _, ok := o.items[key]; !ok {
		return false
	}
	delete(o.items, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
	return true
}

// rekey moves the entry under from to to, keeping its position.
func (o *ordered[V]) rekey(from, to string) bool {
	v, ok := o.items[from]
	if !ok || from == to {
		return ok
	}
	if o.has(to) {
		o.remove(to)
	}
	delete(o.items, from)
	o.items[to] = v
	for i, k := range o.keys {
		if k == from {
			o.keys[i] = to
			break
		}
	}
	return true
}

func (o *ordered[V]) values() []V {
	out := make([]V, 0, len(o.keys))
	for _, k := range o.keys {
		out = append(out, o.items[k])
	}
	return out
}

func (o *ordered[V]) names() []string {
	return append([]string(nil), o.keys...)
}

func (o *ordered[V]) len() int { return len(o.keys) }
