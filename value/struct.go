package value

// Struct is a prototype-chained object literal: `{a: 1, b: 2}`. Reads walk
// the prototype chain when a key is missing locally; writes always target
// the receiving struct itself, adding the key if it is new, the same way a
// plain object literal behaves in a prototypal language.
type Struct struct {
	order []string
	pairs map[string]any
	Proto *Struct
}

// NewStruct returns an empty struct with the given prototype (nil for
// none).
func NewStruct(proto *Struct) *Struct {
	return &Struct{
		pairs: make(map[string]any),
		Proto: proto,
	}
}

// Set stores value under key on s itself, appending key to the iteration
// order the first time it is used.
func (s *Struct) Set(key string, v any) {
	if _, exists := s.pairs[key]; !exists {
		s.order = append(s.order, key)
	}
	s.pairs[key] = v
}

// Get walks s and its prototype chain looking for key.
func (s *Struct) Get(key string) (any, bool) {
	for cur := s; cur != nil; cur = cur.Proto {
		if v, ok := cur.pairs[key]; ok {
			return v, true
		}
	}
	return nil, false
}

// Keys returns s's own keys (not the prototype's) in declaration order.
func (s *Struct) Keys() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// List is the runtime representation of a list literal `[1, 2, 3]`.
type List struct {
	Items []any
}

func NewList(items []any) *List {
	return &List{Items: items}
}
