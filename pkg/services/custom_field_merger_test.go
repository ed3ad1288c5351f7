package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ekaya-inc/ekaya-unify/pkg/models"
)

func TestMergeCustomFields(t *testing.T) {
	tests := []struct {
		name        string
		raw         map[string]any
		descriptors []models.FieldDescriptor
		want        map[string]any
	}{
		{
			name:        "adds alias and keeps original key",
			raw:         map[string]any{"abc123": "Acme Corp", "title": "Big Deal"},
			descriptors: []models.FieldDescriptor{{Key: "abc123", Name: "Company Name"}},
			want:        map[string]any{"abc123": "Acme Corp", "title": "Big Deal", "Company Name": "Acme Corp"},
		},
		{
			name:        "alias matching an existing key is skipped",
			raw:         map[string]any{"abc": 1, "title": "Big Deal"},
			descriptors: []models.FieldDescriptor{{Key: "abc", Name: "TITLE"}},
			want:        map[string]any{"abc": 1, "title": "Big Deal"},
		},
		{
			name: "second alias with the same name is skipped",
			raw:  map[string]any{"a": 1, "b": 2},
			descriptors: []models.FieldDescriptor{
				{Key: "a", Name: "Region"},
				{Key: "b", Name: "region"},
			},
			want: map[string]any{"a": 1, "b": 2, "Region": 1},
		},
		{
			name:        "descriptor for absent key is ignored",
			raw:         map[string]any{"a": 1},
			descriptors: []models.FieldDescriptor{{Key: "zzz", Name: "Ghost"}},
			want:        map[string]any{"a": 1},
		},
		{
			name: "nil raw",
			want: map[string]any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MergeCustomFields(tt.raw, tt.descriptors))
		})
	}
}

func TestMergeCustomFields_DoesNotMutateInput(t *testing.T) {
	raw := map[string]any{"abc": 1}
	merged := MergeCustomFields(raw, []models.FieldDescriptor{{Key: "abc", Name: "Alias"}})

	assert.Equal(t, map[string]any{"abc": 1}, raw)
	assert.Equal(t, 1, merged["Alias"])
}
