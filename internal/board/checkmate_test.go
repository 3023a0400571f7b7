package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerminalPositions(t *testing.T) {
	tests := []struct {
		name      string
		fen       string
		checkmate bool
		stalemate bool
	}{
		// Back rank mate, black king boxed in by its own pawns
		{"back rank mate", "R6k/6pp/8/8/8/8/8/K7 b - - 0 1", true, false},
		// The king can take the checking rook
		{"king takes checker", "6Rk/8/8/8/8/8/8/K7 b - - 0 1", false, false},
		{"stalemate", "7k/5Q2/8/8/8/8/8/K7 b - - 0 1", false, true},
		{"smothered mate", "6rk/5Npp/8/8/8/8/8/K7 b - - 0 1", true, false},
		{"start", StartFEN, false, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pos, err := ParseFEN(tc.fen)
			require.NoError(t, err)
			assert.Equal(t, tc.checkmate, pos.IsCheckmate())
			assert.Equal(t, tc.stalemate, pos.IsStalemate())
		})
	}
}

func TestParseMove(t *testing.T) {
	pos := NewPosition()

	m, err := ParseMove("e2e4", pos)
	require.NoError(t, err)
	assert.Equal(t, NewMove(E2, E4), m)

	_, err = ParseMove("e2e5", pos)
	assert.Error(t, err)
	_, err = ParseMove("e2", pos)
	assert.Error(t, err)

	pos, err = ParseFEN("4k3/1P6/8/8/8/8/8/4K3 w - - 0 1")
	require.NoError(t, err)
	m, err = ParseMove("b7b8n", pos)
	require.NoError(t, err)
	assert.Equal(t, NewPromotion(B7, B8, Knight), m)
	assert.Equal(t, "b7b8n", m.String())
}
