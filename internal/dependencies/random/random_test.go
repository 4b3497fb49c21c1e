package random

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestStringUsesAlphabet(t *testing.T) {
	r := New()
	s := r.String(6, "AB")
	assert.Len(t, s, 6)
	for _, c := range s {
		assert.Contains(t, "AB", string(c))
	}
}

func TestNewIDIsUnique(t *testing.T) {
	r := New()
	assert.NotEqual(t, r.NewID(), r.NewID())
}

// TestShuffleIsPermutation checks that Shuffle keeps every element exactly once.
func TestShuffleIsPermutation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		items := rapid.SliceOfDistinct(rapid.IntRange(0, 1000), rapid.ID[int]).Draw(t, "items")

		shuffled := Shuffle[int](New(), items)

		if len(shuffled) != len(items) {
			t.Fatalf("len = %d, want %d", len(shuffled), len(items))
		}
		seen := make(map[int]bool, len(items))
		for _, v := range shuffled {
			seen[v] = true
		}
		for _, v := range items {
			if !seen[v] {
				t.Fatalf("missing %d after shuffle", v)
			}
		}
	})
}
