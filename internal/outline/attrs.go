package outline

import "iter"

// Attrs is an insertion-ordered string map holding attributes that were present
// in a loaded file but are not modelled by a typed Node field.
type Attrs struct {
	keys []string
	vals map[string]string
}

func NewAttrs() *Attrs {
	return &Attrs{vals: map[string]string{}}
}

func (a *Attrs) Len() int {
	if a == nil {
		return 0
	}
	return len(a.keys)
}

func (a *Attrs) Get(key string) (string, bool) {
	if a == nil {
		return "", false
	}
	v, ok := a.vals[key]
	return v, ok
}

// Set stores value under key. Existing keys keep their original position.
func (a *Attrs) Set(key, value string) {
	if a.vals == nil {
		a.vals = map[string]string{}
	}
	if _, ok := a.vals[key]; !ok {
		a.keys = append(a.keys, key)
	}
	a.vals[key] = value
}

// Delete removes key and reports whether it was present.
func (a *Attrs) Delete(key string) bool {
	if a == nil {
		return false
	}
	if _, ok := a.vals[key]; !ok {
		return false
	}
	delete(a.vals, key)
	for i, k := range a.keys {
		if k == key {
			a.keys = append(a.keys[:i], a.keys[i+1:]...)
			break
		}
	}
	return true
}

func (a *Attrs) Keys() []string {
	if a == nil {
		return nil
	}
	out := make([]string, len(a.keys))
	copy(out, a.keys)
	return out
}

// All yields key/value pairs in insertion order.
func (a *Attrs) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		if a == nil {
			return
		}
		for _, k := range a.keys {
			if !yield(k, a.vals[k]) {
				return
			}
		}
	}
}

func (a *Attrs) Clone() *Attrs {
	out := NewAttrs()
	if a == nil {
		return out
	}
	for k, v := range a.All() {
		out.Set(k, v)
	}
	return out
}
