package id

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestULIDGenerator(t *testing.T) {
	g := NewULIDGenerator()

	t.Run("length and uniqueness", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 1000; i++ {
			id := g.Generate()
			require.Len(t, id, 26)
			require.False(t, seen[id], "duplicate ULID: %s", id)
			seen[id] = true
		}
	})

	t.Run("monotonic within run", func(t *testing.T) {
		ids := make([]string, 100)
		for i := range ids {
			ids[i] = g.Generate()
		}
		assert.True(t, sort.StringsAreSorted(ids), "ULIDs should be lexicographically ordered")
	})
}

func TestUUIDGenerator(t *testing.T) {
	g := NewUUIDGenerator()

	id := g.Generate()
	assert.Len(t, id, 36)
	assert.True(t, IsValidUUID(id))

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := g.Generate()
		require.False(t, seen[id], "duplicate UUID: %s", id)
		seen[id] = true
	}
}

func TestNewGenerator(t *testing.T) {
	tests := []struct {
		name     string
		genType  string
		wantULID bool
	}{
		{"default is ulid", "", true},
		{"explicit ulid", "ulid", true},
		{"uuid", "uuid", false},
		{"unknown falls back to ulid", "snowflake", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGenerator(tt.genType)
			_, isULID := g.(*ULIDGenerator)
			assert.Equal(t, tt.wantULID, isULID)
		})
	}
}
