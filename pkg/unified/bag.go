// Package unified holds the canonical object representation exchanged with
// the REST layer and the ordered key/value bag it is built from.
package unified

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"golang.org/x/text/cases"

	"github.com/ekaya-inc/ekaya-unify/pkg/jsonutil"
)

// Bag is an insertion-ordered JSON object with a case-folded key index.
// Exact keys are unique; Put additionally refuses keys that collide
// case-insensitively with an existing key.
// The zero value is ready to use. A nil *Bag behaves as an empty, read-only bag.
type Bag struct {
	entries *orderedmap.OrderedMap[string, any]
	folded  map[string]int // folded key -> number of exact keys sharing it
}

// NewBag creates an empty Bag.
func NewBag() *Bag {
	b := &Bag{}
	b.init()
	return b
}

// BagFromMap creates a Bag from a plain map. Keys are inserted in sorted order
// so the result is deterministic.
func BagFromMap(m map[string]any) *Bag {
	b := NewBag()
	for _, k := range sortedKeys(m) {
		b.Set(k, m[k])
	}
	return b
}

func (b *Bag) init() {
	if b.entries == nil {
		b.entries = orderedmap.New[string, any]()
		b.folded = make(map[string]int)
	}
}

// FoldKey returns the case-folded form used for collision checks.
func FoldKey(key string) string {
	// Casers are stateful and not safe for concurrent use, so one is built per call.
	return cases.Fold().String(key)
}

// Set stores value under key, overwriting an existing exact key in place.
func (b *Bag) Set(key string, value any) {
	b.init()
	if _, present := b.entries.Set(key, value); !present {
		b.folded[FoldKey(key)]++
	}
}

// Put stores value under key only if no existing key matches it
// case-insensitively. Returns false if the value was not stored.
func (b *Bag) Put(key string, value any) bool {
	if b.HasFold(key) {
		return false
	}
	b.Set(key, value)
	return true
}

// PutExact stores value under key only if the exact key is absent.
func (b *Bag) PutExact(key string, value any) bool {
	if b.Has(key) {
		return false
	}
	b.Set(key, value)
	return true
}

// Get returns the value stored under the exact key.
func (b *Bag) Get(key string) (any, bool) {
	if b == nil || b.entries == nil {
		return nil, false
	}
	return b.entries.Get(key)
}

// Has reports whether the exact key is present.
func (b *Bag) Has(key string) bool {
	_, ok := b.Get(key)
	return ok
}

// HasFold reports whether any key matches key case-insensitively.
func (b *Bag) HasFold(key string) bool {
	if b == nil || b.folded == nil {
		return false
	}
	return b.folded[FoldKey(key)] > 0
}

// KeysFold returns the exact keys matching key case-insensitively.
func (b *Bag) KeysFold(key string) []string {
	if !b.HasFold(key) {
		return nil
	}
	target := FoldKey(key)
	var keys []string
	for pair := b.entries.Oldest(); pair != nil; pair = pair.Next() {
		if FoldKey(pair.Key) == target {
			keys = append(keys, pair.Key)
		}
	}
	return keys
}

// Delete removes the exact key and returns the removed value.
func (b *Bag) Delete(key string) (any, bool) {
	if b == nil || b.entries == nil {
		return nil, false
	}
	value, present := b.entries.Delete(key)
	if present {
		f := FoldKey(key)
		if b.folded[f]--; b.folded[f] <= 0 {
			delete(b.folded, f)
		}
	}
	return value, present
}

// Len returns the number of entries.
func (b *Bag) Len() int {
	if b == nil || b.entries == nil {
		return 0
	}
	return b.entries.Len()
}

// Keys returns the keys in insertion order.
func (b *Bag) Keys() []string {
	keys := make([]string, 0, b.Len())
	b.Range(func(key string, _ any) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}

// Range calls fn for each entry in insertion order until fn returns false.
func (b *Bag) Range(fn func(key string, value any) bool) {
	if b == nil || b.entries == nil {
		return
	}
	for pair := b.entries.Oldest(); pair != nil; pair = pair.Next() {
		if !fn(pair.Key, pair.Value) {
			return
		}
	}
}

// Map returns the entries as a plain map. Nested values are not copied.
func (b *Bag) Map() map[string]any {
	m := make(map[string]any, b.Len())
	b.Range(func(key string, value any) bool {
		m[key] = value
		return true
	})
	return m
}

// Clone returns a shallow copy preserving order.
func (b *Bag) Clone() *Bag {
	c := NewBag()
	b.Range(func(key string, value any) bool {
		c.Set(key, value)
		return true
	})
	return c
}

// MarshalJSON encodes the bag as a JSON object in insertion order.
func (b *Bag) MarshalJSON() ([]byte, error) {
	if b.Len() == 0 {
		return []byte("{}"), nil
	}
	return b.entries.MarshalJSON()
}

// UnmarshalJSON decodes a JSON object, keeping document key order.
// Nested objects decode as map[string]any and numbers as json.Number.
func (b *Bag) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return fmt.Errorf("expected a JSON object")
	}
	entries := orderedmap.New[string, json.RawMessage]()
	if err := entries.UnmarshalJSON(trimmed); err != nil {
		return err
	}
	decoded := NewBag()
	for pair := entries.Oldest(); pair != nil; pair = pair.Next() {
		value, err := jsonutil.DecodeValue(pair.Value)
		if err != nil {
			return fmt.Errorf("key %q: %w", pair.Key, err)
		}
		decoded.Set(pair.Key, value)
	}
	*b = *decoded
	return nil
}

var _ json.Marshaler = (*Bag)(nil)
var _ json.Unmarshaler = (*Bag)(nil)

func sortedKeys(m map[string]any) []string {
	return slices.Sorted(maps.Keys(m))
}
