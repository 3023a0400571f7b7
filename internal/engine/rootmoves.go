package engine

import (
	"slices"

	"github.com/samber/lo"

	"github.com/hailam/lazysearch/internal/board"
)

// RootMove is a legal move at the root with the results of searching it.
type RootMove struct {
	PV              []board.Move
	Score           int
	PreviousScore   int
	AverageScore    int
	UCIScore        int
	ScoreLowerbound bool
	ScoreUpperbound bool
	SelDepth        int
	TBRank          int
	TBScore         int
}

func newRootMove(m board.Move) RootMove {
	return RootMove{
		PV:            []board.Move{m},
		Score:         -ValueInfinite,
		PreviousScore: -ValueInfinite,
		AverageScore:  -ValueInfinite,
		UCIScore:      -ValueInfinite,
	}
}

// Move is the root move itself.
func (rm *RootMove) Move() board.Move { return rm.PV[0] }

// RootMoves is kept sorted best first between iterations.
type RootMoves []RootMove

// NewRootMoves lists the legal moves of pos, restricted to searchMoves
// when it is not empty.
func NewRootMoves(pos *board.Position, searchMoves []board.Move) RootMoves {
	var ml board.MoveList
	pos.GenerateLegal(&ml)
	moves := ml.Slice()
	if len(searchMoves) > 0 {
		moves = lo.Filter(moves, func(m board.Move, _ int) bool {
			return slices.Contains(searchMoves, m)
		})
	}
	return lo.Map(moves, func(m board.Move, _ int) RootMove { return newRootMove(m) })
}

// Clone deep-copies the list so each worker owns its PVs.
func (rms RootMoves) Clone() RootMoves {
	out := make(RootMoves, len(rms))
	for i, rm := range rms {
		out[i] = rm
		out[i].PV = slices.Clone(rm.PV)
	}
	return out
}

// Find returns the index of the root move m, or -1.
func (rms RootMoves) Find(m board.Move) int {
	return slices.IndexFunc(rms, func(rm RootMove) bool { return rm.PV[0] == m })
}

// compareRootMoves orders by score, then by the previous iteration's
// score, best first.
func compareRootMoves(a, b RootMove) int {
	if a.Score != b.Score {
		return b.Score - a.Score
	}
	return b.PreviousScore - a.PreviousScore
}

// SortStable sorts rms[from:to] best first. Moves that compare equal keep
// their relative order, so the previous best stays in front on ties.
func (rms RootMoves) SortStable(from, to int) {
	slices.SortStableFunc(rms[from:to], compareRootMoves)
}

// sortByTBRank groups moves by tablebase rank, best rank first.
func (rms RootMoves) sortByTBRank() {
	slices.SortStableFunc(rms, func(a, b RootMove) int { return b.TBRank - a.TBRank })
}

// extractPonderFromTT completes a one-move PV with the hash move of the
// resulting position, so a ponder move can be offered after a fail-high.
func (rm *RootMove) extractPonderFromTT(tt *TranspositionTable, pos *board.Position) bool {
	if len(rm.PV) != 1 || rm.PV[0] == board.NoMove {
		return false
	}

	pos.DoMove(rm.PV[0])
	defer pos.UndoMove(rm.PV[0])

	data, hit, _ := tt.Probe(pos.Key())
	if hit {
		var ml board.MoveList
		pos.GenerateLegal(&ml)
		if ml.Contains(data.Move) {
			rm.PV = append(rm.PV, data.Move)
		}
	}
	return len(rm.PV) > 1
}
