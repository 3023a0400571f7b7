package eval

import "github.com/hailam/lazysearch/internal/board"

// evaluateMobility counts the squares each piece reaches that are neither
// occupied by its own side nor attacked by enemy pawns.
func evaluateMobility(pos *board.Position) (mgBonus, egBonus int) {
	occupied := pos.AllOccupied

	for color := board.White; color <= board.Black; color++ {
		sign := 1
		if color == board.Black {
			sign = -1
		}

		enemyPawns := pos.Pieces[color.Other()][board.Pawn]
		blocked := enemyPawns.PawnAttacksBB(color.Other()) | pos.Occupied[color]

		for pt := board.Knight; pt <= board.Queen; pt++ {
			for pieces := pos.Pieces[color][pt]; pieces != 0; {
				sq := pieces.PopLSB()
				count := (board.Attacks(pt, sq, occupied) &^ blocked).PopCount()
				mgBonus += sign * mobilityMgWeight[pt] * count
				egBonus += sign * mobilityEgWeight[pt] * count
			}
		}
	}
	return mgBonus, egBonus
}

// evaluateKingSafety scores attackers on the king zone and the pawn shield.
// It is a middlegame term.
func evaluateKingSafety(pos *board.Position) int {
	var score int
	occupied := pos.AllOccupied

	for color := board.White; color <= board.Black; color++ {
		sign := 1
		if color == board.Black {
			sign = -1
		}
		enemy := color.Other()
		kingSq := pos.KingSquare[color]

		// 3x3 around the king, extended one rank toward the enemy
		kingZone := board.KingAttacks(kingSq) | board.SquareBB(kingSq)
		kingZone |= kingZone.Forward(color)

		attackerCount, attackWeight := 0, 0
		for pt := board.Knight; pt <= board.Queen; pt++ {
			for pieces := pos.Pieces[enemy][pt]; pieces != 0; {
				sq := pieces.PopLSB()
				if board.Attacks(pt, sq, occupied)&kingZone != 0 {
					attackerCount++
					attackWeight += attackerWeight[pt]
				}
			}
		}
		// More attackers are worse than their sum
		if attackerCount >= 2 {
			attackWeight = attackWeight * attackerCount / 2
		}
		score -= sign * attackWeight

		ownPawns := pos.Pieces[color][board.Pawn]
		enemyPawns := pos.Pieces[enemy][board.Pawn]
		shieldRank := board.RankMask[board.NewSquare(0, 1).Relative(color).Rank()]

		for f := max(kingSq.File()-1, 0); f <= min(kingSq.File()+1, 7); f++ {
			filePawns := ownPawns & board.FileMask[f]
			switch {
			case filePawns&shieldRank != 0:
				score += sign * pawnShieldBonus
			case filePawns == 0:
				score += sign * pawnShieldMissing
			}

			if filePawns == 0 {
				if enemyPawns&board.FileMask[f] == 0 {
					score += sign * openFileNearKing
				} else {
					score += sign * semiOpenFileNearKing
				}
			}
		}
	}
	return score
}

func evaluateBishopPair(pos *board.Position) (mgBonus, egBonus int) {
	for color := board.White; color <= board.Black; color++ {
		sign := 1
		if color == board.Black {
			sign = -1
		}
		if pos.Pieces[color][board.Bishop].MoreThanOne() {
			mgBonus += sign * bishopPairMgBonus
			egBonus += sign * bishopPairEgBonus
		}
	}
	return mgBonus, egBonus
}

// evaluateRooksOnFiles returns bonus for rooks on open/semi-open files.
func evaluateRooksOnFiles(pos *board.Position) (mgBonus, egBonus int) {
	for color := board.White; color <= board.Black; color++ {
		sign := 1
		if color == board.Black {
			sign = -1
		}
		ownPawns := pos.Pieces[color][board.Pawn]
		enemyPawns := pos.Pieces[color.Other()][board.Pawn]

		for rooks := pos.Pieces[color][board.Rook]; rooks != 0; {
			fileMask := board.FileMask[rooks.PopLSB().File()]
			if ownPawns&fileMask != 0 {
				continue
			}
			if enemyPawns&fileMask == 0 {
				mgBonus += sign * rookOpenFileMg
				egBonus += sign * rookOpenFileEg
			} else {
				mgBonus += sign * rookSemiOpenFileMg
				egBonus += sign * rookSemiOpenFileEg
			}
		}
	}
	return mgBonus, egBonus
}
