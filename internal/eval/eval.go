// Package eval implements the hand-crafted static evaluation used at the
// leaves of the search.
package eval

import (
	"github.com/hailam/lazysearch/internal/board"
)

// Evaluation constants
const (
	PawnValue   = 100
	KnightValue = 320
	BishopValue = 330
	RookValue   = 500
	QueenValue  = 900
)

var pieceValues = [6]int{PawnValue, KnightValue, BishopValue, RookValue, QueenValue, 0}

// Passed pawn bonuses by relative rank
var passedPawnBonus = [8]int{0, 10, 20, 40, 70, 120, 200, 0}

const (
	passedPawnProtectedBonus = 15 // Protected by own pawn
	passedPawnFreePathBonus  = 30 // No blockers in front
)

// Passed pawn king distance bonus table
var kingDistanceBonus = [8]int{0, 0, 10, 20, 30, 40, 50, 60}

// Mobility weights per piece type
var mobilityMgWeight = [6]int{0, 4, 5, 2, 1, 0}
var mobilityEgWeight = [6]int{0, 3, 4, 4, 2, 0}

// King safety weights per attacker type
var attackerWeight = [6]int{0, 20, 20, 40, 80, 0}

const (
	pawnShieldBonus      = 10
	pawnShieldMissing    = -15
	openFileNearKing     = -20
	semiOpenFileNearKing = -10
)

const (
	bishopPairMgBonus = 25
	bishopPairEgBonus = 50
)

const (
	rookOpenFileMg     = 20
	rookOpenFileEg     = 25
	rookSemiOpenFileMg = 10
	rookSemiOpenFileEg = 15
)

// Tempo bonus - small advantage for having the move
const tempoBonus = 10

// maxPhase is the phase of the full set of pieces: minors 1, rooks 2, queens 4.
const maxPhase = 24

var phaseWeight = [6]int{0, 1, 1, 2, 4, 0}

// Limit keeps static scores clear of the mate and tablebase bands.
const Limit = 20000

// Evaluator scores positions. It owns a pawn structure cache and so must
// not be shared between goroutines; each search worker builds its own.
type Evaluator struct {
	pawns *PawnTable
}

// New creates an evaluator with a pawn table of the given size.
func New(pawnTableMB int) *Evaluator {
	return &Evaluator{pawns: NewPawnTable(pawnTableMB)}
}

// Clear empties the pawn cache.
func (e *Evaluator) Clear() {
	if e.pawns != nil {
		e.pawns.Clear()
	}
}

// Evaluate returns the static evaluation of the position in centipawns
// from the side to move's point of view.
func (e *Evaluator) Evaluate(pos *board.Position) int {
	var mg, eg, phase int

	for c := board.White; c <= board.Black; c++ {
		sign := 1
		if c == board.Black {
			sign = -1
		}
		for pt := board.Pawn; pt <= board.King; pt++ {
			bb := pos.Pieces[c][pt]
			phase += phaseWeight[pt] * bb.PopCount()
			for bb != 0 {
				idx := pstIndex(bb.PopLSB(), c)
				mg += sign * (pieceValues[pt] + mgPST[pt][idx])
				eg += sign * (pieceValues[pt] + egPST[pt][idx])
			}
		}
	}

	entry := e.probePawns(pos)
	mg += entry.mg
	eg += entry.eg

	ppMg, ppEg := evaluatePassedPawns(pos, entry.passed)
	mg += ppMg
	eg += ppEg

	mobMg, mobEg := evaluateMobility(pos)
	mg += mobMg
	eg += mobEg

	mg += evaluateKingSafety(pos)

	bpMg, bpEg := evaluateBishopPair(pos)
	mg += bpMg
	eg += bpEg

	rfMg, rfEg := evaluateRooksOnFiles(pos)
	mg += rfMg
	eg += rfEg

	phase = min(phase, maxPhase)
	score := (mg*phase + eg*(maxPhase-phase)) / maxPhase

	if pos.SideToMove == board.Black {
		score = -score
	}
	score += tempoBonus

	// Drift toward a draw as the fifty-move counter grows.
	score = score * max(0, 200-pos.Rule50()) / 200

	return max(-Limit, min(Limit, score))
}

// Material returns the material balance from the side to move's view.
func Material(pos *board.Position) int {
	score := 0
	for pt := board.Pawn; pt < board.King; pt++ {
		score += pos.Pieces[board.White][pt].PopCount() * pieceValues[pt]
		score -= pos.Pieces[board.Black][pt].PopCount() * pieceValues[pt]
	}
	if pos.SideToMove == board.Black {
		return -score
	}
	return score
}
