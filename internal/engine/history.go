package engine

import (
	"github.com/hailam/lazysearch/internal/board"
)

// Table sizes and gravity limits. An update moves an entry toward the
// bonus and decays it in proportion to its own size, so entries stay
// within [-limit, limit].
const (
	mainHistoryLimit         = 7183
	captureHistoryLimit      = 10692
	continuationHistoryLimit = 29952
	pawnHistoryLimit         = 8192

	pawnHistorySize = 512

	correctionHistorySize  = 16384
	correctionHistoryLimit = 1024
)

func gravity(e *int16, bonus, limit int) {
	bonus = clamp(bonus, -limit, limit)
	v := int(*e)
	v += bonus - v*abs(bonus)/limit
	*e = int16(v)
}

// ButterflyHistory scores quiet moves by side and from-to squares.
type ButterflyHistory [2][64 * 64]int16

func (h *ButterflyHistory) get(c board.Color, m board.Move) int {
	return int(h[c][m.FromTo()])
}

func (h *ButterflyHistory) update(c board.Color, m board.Move, bonus int) {
	gravity(&h[c][m.FromTo()], bonus, mainHistoryLimit)
}

// CaptureHistory scores captures by moving piece, target square and
// captured piece type.
type CaptureHistory [board.PieceNB][64][board.NoPieceType + 1]int16

func (h *CaptureHistory) get(pc board.Piece, to board.Square, captured board.PieceType) int {
	return int(h[pc][to][captured])
}

func (h *CaptureHistory) update(pc board.Piece, to board.Square, captured board.PieceType, bonus int) {
	gravity(&h[pc][to][captured], bonus, captureHistoryLimit)
}

// PieceToHistory is the table addressed by the current move in a
// continuation history slot.
type PieceToHistory [board.PieceNB][64]int16

func (h *PieceToHistory) get(pc board.Piece, to board.Square) int {
	return int(h[pc][to])
}

func (h *PieceToHistory) update(pc board.Piece, to board.Square, bonus int) {
	gravity(&h[pc][to], bonus, continuationHistoryLimit)
}

// ContinuationHistory selects a PieceToHistory by an earlier move.
type ContinuationHistory [board.PieceNB][64]PieceToHistory

// PawnHistory scores quiet moves by the pawn structure they are played in.
type PawnHistory [pawnHistorySize][board.PieceNB][64]int16

func pawnHistoryIndex(pos *board.Position) int {
	return int(pos.PawnKey() & (pawnHistorySize - 1))
}

func (h *PawnHistory) get(idx int, pc board.Piece, to board.Square) int {
	return int(h[idx][pc][to])
}

func (h *PawnHistory) update(idx int, pc board.Piece, to board.Square, bonus int) {
	gravity(&h[idx][pc][to], bonus, pawnHistoryLimit)
}

// CounterMoveHistory remembers the reply that refuted a move.
type CounterMoveHistory [board.PieceNB][64]board.Move

// CorrectionHistory records how far the static evaluation was from the
// search result for a pawn structure. The search adds the correction to
// the raw evaluation of later positions with the same pawns.
type CorrectionHistory [2][correctionHistorySize]int16

func correctionIndex(pos *board.Position) int {
	key := pos.PawnKey()
	return int((key ^ key>>18) & (correctionHistorySize - 1))
}

func (h *CorrectionHistory) get(pos *board.Position) int {
	return int(h[pos.SideToMove][correctionIndex(pos)])
}

func (h *CorrectionHistory) update(pos *board.Position, bonus int) {
	gravity(&h[pos.SideToMove][correctionIndex(pos)], bonus, correctionHistoryLimit)
}

// Histories is the per-worker set of move ordering tables. It is never
// shared between workers.
type Histories struct {
	main         ButterflyHistory
	capture      CaptureHistory
	pawn         PawnHistory
	counterMoves CounterMoveHistory
	correction   CorrectionHistory

	// [inCheck][capture]
	continuation [2][2]ContinuationHistory
}

// Clear resets every table. Continuation entries start slightly negative
// so that unseen move pairs rank below ones with a neutral record.
func (h *Histories) Clear() {
	clear(h.main[0][:])
	clear(h.main[1][:])
	h.capture = CaptureHistory{}
	h.pawn = PawnHistory{}
	h.counterMoves = CounterMoveHistory{}
	h.correction = CorrectionHistory{}

	for inCheck := range h.continuation {
		for capture := range h.continuation[inCheck] {
			ch := &h.continuation[inCheck][capture]
			for pc := range ch {
				for sq := range ch[pc] {
					row := &ch[pc][sq]
					for i := range row {
						for j := range row[i] {
							row[i][j] = -71
						}
					}
				}
			}
		}
	}
}

// sentinel is the continuation table referenced by frames that have no
// move behind them. Reads return the neutral start value and writes are
// harmless.
func (h *Histories) sentinel() *PieceToHistory {
	return &h.continuation[0][0][board.NoPiece][0]
}
