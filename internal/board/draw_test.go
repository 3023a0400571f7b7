package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func playMoves(t *testing.T, pos *Position, moves ...string) {
	t.Helper()
	for _, s := range moves {
		m, err := ParseMove(s, pos)
		require.NoError(t, err)
		pos.DoMove(m)
	}
}

func TestThreefoldRepetition(t *testing.T) {
	pos := NewPosition()

	playMoves(t, pos, "g1f3", "g8f6", "f3g1", "f6g8")
	assert.Equal(t, 4, pos.State().Repetition)
	assert.False(t, pos.IsDraw(0), "a single repetition before the root is not a draw")
	assert.True(t, pos.IsDraw(5), "a repetition inside the search tree is")

	playMoves(t, pos, "g1f3", "g8f6", "f3g1", "f6g8")
	assert.Equal(t, -4, pos.State().Repetition)
	assert.True(t, pos.IsDraw(0))
}

func TestFiftyMoveRule(t *testing.T) {
	pos, err := ParseFEN("4k3/8/8/8/8/8/4P3/4K2R w - - 100 80")
	require.NoError(t, err)
	assert.True(t, pos.IsDraw(0))

	pos, err = ParseFEN("4k3/8/8/8/8/8/4P3/4K2R w - - 99 80")
	require.NoError(t, err)
	assert.False(t, pos.IsDraw(0))

	// Checkmate on the hundredth ply still wins.
	pos, err = ParseFEN("R6k/6pp/8/8/8/8/8/K7 b - - 100 80")
	require.NoError(t, err)
	assert.False(t, pos.IsDraw(0))
}

func TestInsufficientMaterial(t *testing.T) {
	tests := []struct {
		fen  string
		draw bool
	}{
		{"4k3/8/8/8/8/8/8/4K3 w - - 0 1", true},
		{"4k3/8/8/8/8/8/8/4KB2 w - - 0 1", true},
		{"4k3/8/8/8/8/8/8/4KN2 w - - 0 1", true},
		{"4k3/8/8/8/8/8/8/3NKN2 w - - 0 1", false},
		{"4k3/8/8/8/8/8/4P3/4K3 w - - 0 1", false},
		{"4kb2/8/8/8/8/8/8/4KB2 w - - 0 1", false},
	}
	for _, tc := range tests {
		pos, err := ParseFEN(tc.fen)
		require.NoError(t, err)
		assert.Equal(t, tc.draw, pos.IsInsufficientMaterial(), tc.fen)
	}
}

func TestHasGameCycle(t *testing.T) {
	pos := NewPosition()
	playMoves(t, pos, "g1f3", "g8f6", "f3g1")

	// Black can return to the start position with Ng8.
	assert.True(t, pos.HasGameCycle(4))
	assert.False(t, pos.HasGameCycle(1), "at the root the cycle must also be a repetition")

	// An irreversible move clears the history.
	playMoves(t, pos, "e7e5")
	assert.False(t, pos.HasGameCycle(4))
}

func TestHasGameCycleBlocked(t *testing.T) {
	pos, err := ParseFEN("4k3/8/8/8/8/8/8/R3K3 w - - 0 1")
	require.NoError(t, err)
	playMoves(t, pos, "a1a3", "e8d8", "a3a1")

	// Kd8-e8 restores the first position.
	assert.True(t, pos.HasGameCycle(4))

	pos, err = ParseFEN("4k3/8/8/8/8/8/8/R3K3 w - - 0 1")
	require.NoError(t, err)
	playMoves(t, pos, "a1a3", "e8d7", "a3a1", "d7d8")

	// The black king walked to d8, so no single white move reaches an
	// earlier position.
	assert.False(t, pos.HasGameCycle(5))
}
