package board

// IsDraw reports a draw by the fifty-move rule, by repetition or by
// insufficient material. A repetition counts when it occurred after the
// root (ply plies ago or less) or when the position has now occurred three
// times. Stalemate is left to the search.
func (p *Position) IsDraw(ply int) bool {
	st := p.state()
	if st.Rule50 > 99 && (!p.InCheck() || p.HasLegalMoves()) {
		return true
	}
	if st.Repetition != 0 && st.Repetition < ply {
		return true
	}
	return p.IsInsufficientMaterial()
}

// IsRepetition reports whether the position occurred before, counting a
// single earlier occurrence only when it lies within the last ply plies.
func (p *Position) IsRepetition(ply int) bool {
	r := p.state().Repetition
	return r != 0 && r < ply
}

// IsInsufficientMaterial returns true if neither side can checkmate.
func (p *Position) IsInsufficientMaterial() bool {
	if p.ByType(Pawn)|p.ByType(Rook)|p.ByType(Queen) != 0 {
		return false
	}

	wMinors := (p.Pieces[White][Knight] | p.Pieces[White][Bishop]).PopCount()
	bMinors := (p.Pieces[Black][Knight] | p.Pieces[Black][Bishop]).PopCount()

	// K vs K and K+minor vs K
	return (wMinors <= 1 && bMinors == 0) || (bMinors <= 1 && wMinors == 0)
}

// HasGameCycle reports whether the side to move can reach an earlier
// position with one reversible move, or whether such a cycle already
// happened inside the search tree. Only positions since the last
// irreversible move or null move are considered.
func (p *Position) HasGameCycle(ply int) bool {
	st := p.state()
	n := len(p.states) - 1
	end := min(st.Rule50, st.PliesFromNull, n)
	if end < 3 {
		return false
	}

	originalKey := st.Key
	other := originalKey ^ p.states[n-1].Key ^ zobristSideToMove

	for i := 3; i <= end; i += 2 {
		// other is zero when only the side to move's pieces changed in between.
		other ^= p.states[n-i+1].Key ^ p.states[n-i].Key ^ zobristSideToMove
		if other != 0 {
			continue
		}

		prev := &p.states[n-i]
		cm, ok := cycleMoves[originalKey^prev.Key]
		if !ok || Between(cm.s1, cm.s2)&p.AllOccupied != 0 {
			continue
		}
		if ply > i {
			return true
		}

		// At or before the root, the cycle must also be a repetition, and
		// the move must belong to the side to move.
		sq := cm.s1
		if p.board[sq] == NoPiece {
			sq = cm.s2
		}
		if p.board[sq].Color() != p.SideToMove {
			continue
		}
		if prev.Repetition != 0 {
			return true
		}
	}
	return false
}
