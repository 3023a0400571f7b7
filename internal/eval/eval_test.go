package eval

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/lazysearch/internal/board"
)

var evalFENs = []string{
	board.StartFEN,
	"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
	"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
	"r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1",
	"rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8",
	"8/8/4k3/3p4/3P4/4K3/8/8 w - - 0 1",
}

// mirrorFEN flips the board vertically and swaps the colors.
func mirrorFEN(fen string) string {
	parts := strings.Fields(fen)
	ranks := strings.Split(parts[0], "/")
	for i, j := 0, len(ranks)-1; i < j; i, j = i+1, j-1 {
		ranks[i], ranks[j] = ranks[j], ranks[i]
	}
	swap := func(s string) string {
		return strings.Map(func(r rune) rune {
			switch {
			case r >= 'a' && r <= 'z':
				return r - 'a' + 'A'
			case r >= 'A' && r <= 'Z':
				return r - 'A' + 'a'
			}
			return r
		}, s)
	}
	parts[0] = swap(strings.Join(ranks, "/"))
	if parts[1] == "w" {
		parts[1] = "b"
	} else {
		parts[1] = "w"
	}
	if parts[2] != "-" {
		c := swap(parts[2])
		// Keep KQkq order
		var sb strings.Builder
		for _, r := range "KQkq" {
			if strings.ContainsRune(c, r) {
				sb.WriteRune(r)
			}
		}
		parts[2] = sb.String()
	}
	if parts[3] != "-" {
		parts[3] = string([]byte{parts[3][0], '1' + '8' - parts[3][1]})
	}
	return strings.Join(parts, " ")
}

func TestEvaluateIsColorSymmetric(t *testing.T) {
	e := New(1)
	for _, fen := range evalFENs {
		pos, err := board.ParseFEN(fen)
		require.NoError(t, err)
		mirrored, err := board.ParseFEN(mirrorFEN(fen))
		require.NoError(t, err, mirrorFEN(fen))

		assert.Equal(t, e.Evaluate(pos), e.Evaluate(mirrored), fen)
	}
}

func TestEvaluateStartPosition(t *testing.T) {
	assert.Equal(t, tempoBonus, New(1).Evaluate(board.NewPosition()))
}

func TestPawnCacheDoesNotChangeScores(t *testing.T) {
	cached := New(1)
	uncached := &Evaluator{}
	for _, fen := range evalFENs {
		pos, err := board.ParseFEN(fen)
		require.NoError(t, err)

		want := uncached.Evaluate(pos)
		assert.Equal(t, want, cached.Evaluate(pos), "cold cache")
		assert.Equal(t, want, cached.Evaluate(pos), "warm cache")
	}
}

func TestEvaluateFavorsMaterial(t *testing.T) {
	e := New(1)

	up, err := board.ParseFEN("4k3/8/8/8/8/8/8/3QK3 w - - 0 1")
	require.NoError(t, err)
	assert.Greater(t, e.Evaluate(up), QueenValue/2)

	down, err := board.ParseFEN("4k3/8/8/8/8/8/8/3QK3 b - - 0 1")
	require.NoError(t, err)
	assert.Less(t, e.Evaluate(down), -QueenValue/2)

	assert.Equal(t, QueenValue, Material(up))
	assert.Equal(t, -QueenValue, Material(down))
}

func TestFiftyMoveCounterDampsScore(t *testing.T) {
	e := New(1)
	fresh, err := board.ParseFEN("4k3/8/8/8/8/8/8/3QK3 w - - 0 1")
	require.NoError(t, err)
	stale, err := board.ParseFEN("4k3/8/8/8/8/8/8/3QK3 w - - 90 60")
	require.NoError(t, err)

	assert.Less(t, e.Evaluate(stale), e.Evaluate(fresh))
	assert.Positive(t, e.Evaluate(stale))
}

func TestPassedPawnDetection(t *testing.T) {
	pos, err := board.ParseFEN("4k3/8/8/1p1P4/8/P7/5P2/4K3 w - - 0 1")
	require.NoError(t, err)

	entry := evaluatePawnStructure(pos)
	assert.True(t, entry.passed[board.White].Has(board.D5))
	assert.True(t, entry.passed[board.White].Has(board.F2))
	assert.False(t, entry.passed[board.White].Has(board.A3), "b5 pawn guards a4")
	assert.False(t, entry.passed[board.Black].Has(board.B5), "a3 pawn guards b4")
}
