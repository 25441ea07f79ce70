package mot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignTrackIDs(t *testing.T) {
	ids := AssignTrackIDs([]string{"zeta", "alpha", "Mu", "beta"})
	assert.Equal(t, map[string]int{"Mu": 1, "alpha": 2, "beta": 3, "zeta": 4}, ids)
}

func TestAssignTrackIDsDeterministicBijection(t *testing.T) {
	keys := []string{"k9", "k10", "k1", "abc", "x-y-z", "k2", "k1"}

	first := AssignTrackIDs(keys)
	for i := 0; i < 20; i++ {
		require.Equal(t, first, AssignTrackIDs(keys))
	}

	require.Len(t, first, 6)
	seen := make(map[int]bool)
	for _, id := range first {
		require.GreaterOrEqual(t, id, 1)
		require.LessOrEqual(t, id, len(first))
		require.False(t, seen[id], "id %d assigned twice", id)
		seen[id] = true
	}
}

func TestAssignTrackIDsUsesStringOrder(t *testing.T) {
	// 10 sorts before 9 as text
	ids := AssignTrackIDs([]int{9, 10, 100})
	assert.Equal(t, map[int]int{10: 1, 100: 2, 9: 3}, ids)
}

func TestAssignTrackIDsEmpty(t *testing.T) {
	assert.Empty(t, AssignTrackIDs[string](nil))
}
