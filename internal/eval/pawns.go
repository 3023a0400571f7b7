package eval

import "github.com/hailam/lazysearch/internal/board"

// Pawn structure penalties
const (
	doubledPawnMgPenalty  = -15
	doubledPawnEgPenalty  = -20
	isolatedPawnMgPenalty = -20
	isolatedPawnEgPenalty = -25
	backwardPawnMgPenalty = -15
	backwardPawnEgPenalty = -10
)

var (
	adjacentFiles [8]board.Bitboard
	// forwardFile[c][sq] is the part of sq's file in front of it.
	forwardFile [2][64]board.Bitboard
	// passedSpan[c][sq] is where an enemy pawn stops a pawn on sq from being passed.
	passedSpan [2][64]board.Bitboard
)

func init() {
	for f := 0; f < 8; f++ {
		if f > 0 {
			adjacentFiles[f] |= board.FileMask[f-1]
		}
		if f < 7 {
			adjacentFiles[f] |= board.FileMask[f+1]
		}
	}
	for sq := board.A1; sq <= board.H8; sq++ {
		for r := sq.Rank() + 1; r < 8; r++ {
			forwardFile[board.White][sq] |= board.SquareBB(board.NewSquare(sq.File(), r))
		}
		for r := sq.Rank() - 1; r >= 0; r-- {
			forwardFile[board.Black][sq] |= board.SquareBB(board.NewSquare(sq.File(), r))
		}
		for c := board.White; c <= board.Black; c++ {
			fwd := forwardFile[c][sq]
			passedSpan[c][sq] = fwd | fwd.East() | fwd.West()
		}
	}
}

// pawnEntry is the pawn-only part of the evaluation, from white's view.
type pawnEntry struct {
	mg, eg int
	passed [2]board.Bitboard
}

func (e *Evaluator) probePawns(pos *board.Position) pawnEntry {
	key := pos.PawnKey()
	if e.pawns != nil {
		if entry, ok := e.pawns.probe(key); ok {
			return entry
		}
	}
	entry := evaluatePawnStructure(pos)
	if e.pawns != nil {
		e.pawns.store(key, entry)
	}
	return entry
}

// evaluatePawnStructure scores doubled, isolated and backward pawns and
// finds the passed pawns of both sides.
func evaluatePawnStructure(pos *board.Position) pawnEntry {
	var entry pawnEntry

	for color := board.White; color <= board.Black; color++ {
		sign := 1
		if color == board.Black {
			sign = -1
		}

		ours := pos.Pieces[color][board.Pawn]
		theirs := pos.Pieces[color.Other()][board.Pawn]

		for pawns := ours; pawns != 0; {
			sq := pawns.PopLSB()
			file := sq.File()

			if passedSpan[color][sq]&theirs == 0 && forwardFile[color][sq]&ours == 0 {
				entry.passed[color] |= board.SquareBB(sq)
			}

			// Doubled: counted once, for the rear pawn
			if forwardFile[color][sq]&ours != 0 {
				entry.mg += sign * doubledPawnMgPenalty
				entry.eg += sign * doubledPawnEgPenalty
			}

			// Isolated pawns can't be backward
			if ours&adjacentFiles[file] == 0 {
				entry.mg += sign * isolatedPawnMgPenalty
				entry.eg += sign * isolatedPawnEgPenalty
				continue
			}

			// Backward: no friendly pawn level or behind on an adjacent file,
			// and the stop square is covered by an enemy pawn.
			supportZone := passedSpan[color.Other()][sq] | board.RankMask[sq.Rank()]
			if ours&adjacentFiles[file]&supportZone != 0 {
				continue
			}
			stop := board.SquareBB(sq).Forward(color)
			if stop.PawnAttacksBB(color)&theirs != 0 {
				entry.mg += sign * backwardPawnMgPenalty
				entry.eg += sign * backwardPawnEgPenalty
			}
		}
	}
	return entry
}

// evaluatePassedPawns adds the piece-dependent passed pawn terms: support,
// free path, and king distances.
func evaluatePassedPawns(pos *board.Position, passed [2]board.Bitboard) (mgBonus, egBonus int) {
	for color := board.White; color <= board.Black; color++ {
		sign := 1
		if color == board.Black {
			sign = -1
		}
		enemy := color.Other()
		ours := pos.Pieces[color][board.Pawn]

		for pawns := passed[color]; pawns != 0; {
			sq := pawns.PopLSB()
			relRank := sq.RelativeRank(color)

			bonus := passedPawnBonus[relRank]
			egExtra := 0

			if board.PawnAttacks(sq, enemy)&ours != 0 {
				bonus += passedPawnProtectedBonus
			}
			if forwardFile[color][sq]&pos.AllOccupied == 0 {
				bonus += passedPawnFreePathBonus
			}

			promoSq := board.NewSquare(sq.File(), 7).Relative(color)
			egExtra += kingDistanceBonus[7-min(board.Distance(pos.KingSquare[color], sq), 7)]
			egExtra += kingDistanceBonus[min(board.Distance(pos.KingSquare[enemy], promoSq), 7)]

			mgBonus += sign * bonus
			egBonus += sign * (bonus*3/2 + egExtra)
		}
	}
	return mgBonus, egBonus
}
