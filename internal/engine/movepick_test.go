package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/lazysearch/internal/board"
)

var pickerFENs = []string{
	"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
	"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
	"n1n5/PPPk4/8/8/8/8/4Kppp/5N1N b - - 0 1",
	"r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1",
	"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
}

func newTestHistories() (*Histories, *[6]*PieceToHistory) {
	h := new(Histories)
	h.Clear()
	var ch [6]*PieceToHistory
	for i := range ch {
		ch[i] = h.sentinel()
	}
	return h, &ch
}

func legalSet(pos *board.Position) map[board.Move]bool {
	var ml board.MoveList
	pos.GenerateLegal(&ml)
	set := make(map[board.Move]bool, ml.Len())
	for _, m := range ml.Slice() {
		set[m] = true
	}
	return set
}

// drain collects every move of mp and fails on duplicates.
func drain(t *testing.T, mp *MovePicker) []board.Move {
	t.Helper()
	seen := map[board.Move]bool{}
	var out []board.Move
	for m := mp.Next(false); m != board.NoMove; m = mp.Next(false) {
		require.False(t, seen[m], "move %s returned twice", m)
		seen[m] = true
		out = append(out, m)
	}
	return out
}

func TestMovePickerCoversLegalMoves(t *testing.T) {
	for _, fen := range pickerFENs {
		t.Run(fen, func(t *testing.T) {
			pos, err := board.ParseFEN(fen)
			require.NoError(t, err)
			h, ch := newTestHistories()

			legal := legalSet(pos)
			var quiets []board.Move
			var ttMove board.Move
			for m := range legal {
				if !pos.CaptureStage(m) && len(quiets) < 2 {
					quiets = append(quiets, m)
				} else if ttMove == board.NoMove {
					ttMove = m
				}
			}
			var killers [2]board.Move
			copy(killers[:], quiets)

			mp := NewMovePicker(pos, ttMove, 6, h, ch, board.NoMove, killers)
			got := map[board.Move]bool{}
			for i, m := range drain(t, mp) {
				if i == 0 && ttMove != board.NoMove {
					assert.Equal(t, ttMove, m, "hash move comes first")
				}
				if pos.Legal(m) {
					got[m] = true
				}
			}
			assert.Equal(t, legal, got)
		})
	}
}

func TestMovePickerSkipQuiets(t *testing.T) {
	pos, err := board.ParseFEN(pickerFENs[1])
	require.NoError(t, err)
	h, ch := newTestHistories()

	mp := NewMovePicker(pos, board.NoMove, 3, h, ch, board.NoMove, [2]board.Move{})
	for m := mp.Next(true); m != board.NoMove; m = mp.Next(true) {
		assert.True(t, pos.CaptureStage(m), "quiet move %s after skipQuiets", m)
	}
}

func TestMovePickerEvasions(t *testing.T) {
	pos, err := board.ParseFEN(pickerFENs[3])
	require.NoError(t, err)
	require.True(t, pos.InCheck())
	h, ch := newTestHistories()

	got := map[board.Move]bool{}
	for _, m := range drain(t, NewQSearchPicker(pos, board.NoMove, DepthQSNoChecks, h, ch)) {
		if pos.Legal(m) {
			got[m] = true
		}
	}
	assert.Equal(t, legalSet(pos), got, "in check every evasion is generated")
}

func TestQSearchPicker(t *testing.T) {
	for _, fen := range pickerFENs {
		pos, err := board.ParseFEN(fen)
		require.NoError(t, err)
		if pos.InCheck() {
			continue
		}
		h, ch := newTestHistories()

		for _, m := range drain(t, NewQSearchPicker(pos, board.NoMove, DepthQSNoChecks, h, ch)) {
			assert.True(t, pos.CaptureStage(m), "%s: %s is not a capture", fen, m)
		}
		for _, m := range drain(t, NewQSearchPicker(pos, board.NoMove, DepthQSChecks, h, ch)) {
			assert.True(t, pos.CaptureStage(m) || pos.GivesCheck(m), "%s: %s is quiet", fen, m)
		}
	}
}

func TestProbCutPicker(t *testing.T) {
	pos, err := board.ParseFEN(pickerFENs[1])
	require.NoError(t, err)
	h, _ := newTestHistories()

	const threshold = 100
	moves := drain(t, NewProbCutPicker(pos, board.NoMove, threshold, h))
	require.NotEmpty(t, moves)
	for _, m := range moves {
		assert.True(t, pos.CaptureStage(m))
		assert.True(t, pos.SeeGE(m, threshold))
	}
}
