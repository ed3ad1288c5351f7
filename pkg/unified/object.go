package unified

import (
	"encoding/json"
	"errors"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/ekaya-inc/ekaya-unify/pkg/jsonutil"
)

// Reserved top-level keys of a unified object.
const (
	KeyAdditional   = "additional"
	KeyAssociations = "associations"
)

var (
	ErrNotAnObject          = errors.New("unified object must be a JSON object")
	ErrInvalidAdditional    = errors.New("additional must be a JSON object")
	ErrInvalidAssociations  = errors.New("associations must be a JSON object")
	ErrReservedCanonicalKey = errors.New("canonical field name is reserved")
)

// IsReservedKey returns true if key names the additional or associations bag
// (compared case-insensitively).
func IsReservedKey(key string) bool {
	f := FoldKey(key)
	return f == FoldKey(KeyAdditional) || f == FoldKey(KeyAssociations)
}

// Object is a canonical (unified) object: canonical fields, an additional bag
// for provider-native keys and an associations bag keyed by canonical
// relation names.
//
// Canonical fields always win over additional entries whose keys match them
// case-insensitively; the collision policy is enforced here rather than by callers.
type Object struct {
	fields       *Bag
	additional   *Bag
	associations *Bag
	dropped      []string
}

// NewObject creates an empty unified object.
func NewObject() *Object {
	return &Object{
		fields:       NewBag(),
		additional:   NewBag(),
		associations: NewBag(),
	}
}

// SetField sets a canonical field. Any additional entry colliding with name
// case-insensitively is removed and recorded as dropped.
func (o *Object) SetField(name string, value any) error {
	if IsReservedKey(name) {
		return fmt.Errorf("%w: %s", ErrReservedCanonicalKey, name)
	}
	for _, k := range o.additional.KeysFold(name) {
		o.additional.Delete(k)
		o.dropped = append(o.dropped, k)
	}
	o.fields.Set(name, value)
	return nil
}

// Field returns a canonical field value.
func (o *Object) Field(name string) (any, bool) {
	return o.fields.Get(name)
}

// Fields returns the canonical fields in insertion order. Callers must not mutate it.
func (o *Object) Fields() *Bag {
	return o.fields
}

// Additional returns the additional bag. Callers must not mutate it.
func (o *Object) Additional() *Bag {
	return o.additional
}

// Associations returns the associations bag. Callers must not mutate it.
func (o *Object) Associations() *Bag {
	return o.associations
}

// Collides reports whether key matches a canonical field or an already placed
// additional entry case-insensitively, or is a reserved key.
func (o *Object) Collides(key string) bool {
	return IsReservedKey(key) || o.fields.HasFold(key) || o.additional.HasFold(key)
}

// AddAdditional places a provider-native value in the additional bag unless
// it collides with a canonical field or an already placed entry. Colliding
// keys are recorded as dropped and false is returned.
func (o *Object) AddAdditional(key string, value any) bool {
	if o.Collides(key) {
		o.dropped = append(o.dropped, key)
		return false
	}
	o.additional.Set(key, value)
	return true
}

// KeepReserved places a provider-native value whose key names a reserved
// bag (such as a raw "additional" or non-object "associations") into the
// additional bag under that exact key. Other keys go through AddAdditional.
// A repeated exact key is recorded as dropped and false is returned.
func (o *Object) KeepReserved(key string, value any) bool {
	if !IsReservedKey(key) {
		return o.AddAdditional(key, value)
	}
	if o.additional.Has(key) {
		o.dropped = append(o.dropped, key)
		return false
	}
	o.additional.Set(key, value)
	return true
}

// addParsedAdditional places a caller-supplied additional entry. Reserved
// keys are kept verbatim; additional["associations"] may nest relations.
func (o *Object) addParsedAdditional(key string, value any) {
	o.KeepReserved(key, value)
}

// SetAssociation records a relation. Nil values are ignored so absent
// relations never appear.
func (o *Object) SetAssociation(relation string, value any) {
	if value == nil {
		return
	}
	o.associations.Set(relation, value)
}

// Association returns a relation value.
func (o *Object) Association(relation string) (any, bool) {
	return o.associations.Get(relation)
}

// Dropped returns the keys refused by the standard-wins collision policy.
func (o *Object) Dropped() []string {
	return o.dropped
}

// Map returns the object as plain nested maps, in the same shape as its JSON.
func (o *Object) Map() map[string]any {
	m := o.fields.Map()
	m[KeyAdditional] = o.additional.Map()
	if o.associations.Len() > 0 {
		m[KeyAssociations] = o.associations.Map()
	}
	return m
}

// MarshalJSON emits canonical fields in order, always an additional object and
// an associations object when any relation is present.
func (o *Object) MarshalJSON() ([]byte, error) {
	out := orderedmap.New[string, any]()
	o.fields.Range(func(key string, value any) bool {
		out.Set(key, value)
		return true
	})
	out.Set(KeyAdditional, o.additional)
	if o.associations.Len() > 0 {
		out.Set(KeyAssociations, o.associations)
	}
	return out.MarshalJSON()
}

// UnmarshalJSON parses caller input, keeping canonical and additional key order.
func (o *Object) UnmarshalJSON(data []byte) error {
	top := orderedmap.New[string, json.RawMessage]()
	if err := top.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("%w: %v", ErrNotAnObject, err)
	}

	parsed := NewObject()
	var additional *Bag
	for pair := top.Oldest(); pair != nil; pair = pair.Next() {
		switch pair.Key {
		case KeyAdditional:
			additional = NewBag()
			if isJSONNull(pair.Value) {
				continue
			}
			if err := additional.UnmarshalJSON(pair.Value); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidAdditional, err)
			}
		case KeyAssociations:
			if isJSONNull(pair.Value) {
				continue
			}
			assoc := NewBag()
			if err := assoc.UnmarshalJSON(pair.Value); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidAssociations, err)
			}
			assoc.Range(func(key string, value any) bool {
				parsed.SetAssociation(key, value)
				return true
			})
		default:
			value, err := jsonutil.DecodeValue(pair.Value)
			if err != nil {
				return fmt.Errorf("field %q: %w", pair.Key, err)
			}
			if err := parsed.SetField(pair.Key, value); err != nil {
				return err
			}
		}
	}
	additional.Range(func(key string, value any) bool {
		parsed.addParsedAdditional(key, value)
		return true
	})

	*o = *parsed
	return nil
}

// FromMap builds an Object from decoded caller input. Canonical and
// additional keys are inserted in sorted order.
func FromMap(m map[string]any) (*Object, error) {
	o := NewObject()
	var additional map[string]any
	for _, key := range sortedKeys(m) {
		value := m[key]
		switch key {
		case KeyAdditional:
			if value == nil {
				continue
			}
			a, ok := value.(map[string]any)
			if !ok {
				return nil, ErrInvalidAdditional
			}
			additional = a
		case KeyAssociations:
			if value == nil {
				continue
			}
			a, ok := value.(map[string]any)
			if !ok {
				return nil, ErrInvalidAssociations
			}
			for _, rel := range sortedKeys(a) {
				o.SetAssociation(rel, a[rel])
			}
		default:
			if err := o.SetField(key, value); err != nil {
				return nil, err
			}
		}
	}
	for _, key := range sortedKeys(additional) {
		o.addParsedAdditional(key, additional[key])
	}
	return o, nil
}

func isJSONNull(raw json.RawMessage) bool {
	return string(raw) == "null"
}

var _ json.Marshaler = (*Object)(nil)
var _ json.Unmarshaler = (*Object)(nil)
