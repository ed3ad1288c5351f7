package services

import (
	"maps"

	"github.com/ekaya-inc/ekaya-unify/pkg/models"
	"github.com/ekaya-inc/ekaya-unify/pkg/unified"
)

// MergeCustomFields returns a copy of raw with a human-readable alias added
// for every opaque key that has a descriptor. Original keys are kept. An alias
// is skipped when its name matches an existing top-level key, or an alias
// added earlier, case-insensitively. Keys are visited in sorted order.
func MergeCustomFields(raw map[string]any, descriptors []models.FieldDescriptor) map[string]any {
	out := maps.Clone(raw)
	if out == nil {
		out = make(map[string]any)
	}

	names := descriptorNames(descriptors)
	if len(names) == 0 {
		return out
	}

	taken := make(map[string]bool, len(raw))
	for k := range raw {
		taken[unified.FoldKey(k)] = true
	}
	for _, key := range sortedKeys(raw) {
		name, ok := names[key]
		if !ok {
			continue
		}
		folded := unified.FoldKey(name)
		if taken[folded] {
			continue
		}
		taken[folded] = true
		out[name] = raw[key]
	}
	return out
}
