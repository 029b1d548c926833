package notifications

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConsolidate(t *testing.T) {
	tests := []struct {
		name   string
		tokens []string
		want   []string
	}{
		{
			name:   "empty set stays empty",
			tokens: []string{},
			want:   []string{},
		},
		{
			name:   "single token unchanged",
			tokens: []string{"tokA"},
			want:   []string{"tokA"},
		},
		{
			name:   "multiple tokens collapse to most recent",
			tokens: []string{"tokA", "tokB", "tokC"},
			want:   []string{"tokC"},
		},
		{
			name:   "duplicates removed before collapse",
			tokens: []string{"tokA", "tokB", "tokA", "tokC"},
			want:   []string{"tokC"},
		},
		{
			name:   "same token twice collapses to one",
			tokens: []string{"tokA", "tokA"},
			want:   []string{"tokA"},
		},
		{
			name:   "trailing duplicate of earlier token",
			tokens: []string{"tokA", "tokB", "tokA"},
			want:   []string{"tokB"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Consolidate(tt.tokens)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConsolidateDoesNotMutateInput(t *testing.T) {
	in := []string{"tokA", "tokB", "tokA", "tokC"}
	_ = Consolidate(in)
	assert.Equal(t, []string{"tokA", "tokB", "tokA", "tokC"}, in)
}
