package board

// SeeGE reports whether the static exchange on m's destination gains at
// least threshold for the side to move. Only normal moves are evaluated;
// promotions, en passant and castling count as an even trade.
func (p *Position) SeeGE(m Move, threshold int) bool {
	if m.Flag() != FlagNormal {
		return threshold <= 0
	}
	from, to := m.From(), m.To()

	swap := p.board[to].Value() - threshold
	if swap < 0 {
		return false
	}
	swap = p.board[from].Value() - swap
	if swap <= 0 {
		return true
	}

	occupied := p.AllOccupied ^ SquareBB(from) ^ SquareBB(to)
	stm := p.SideToMove
	attackers := p.AttackersTo(to, occupied)
	st := p.state()
	bishops := p.ByType(Bishop) | p.ByType(Queen)
	rooks := p.ByType(Rook) | p.ByType(Queen)
	res := 1

	for {
		stm = stm.Other()
		attackers &= occupied

		stmAttackers := attackers & p.Occupied[stm]
		if stmAttackers == 0 {
			break
		}

		// Pinned pieces may not take part while their pinner is on the board.
		if st.Pinners[stm.Other()]&occupied != 0 {
			stmAttackers &^= st.BlockersForKing[stm]
			if stmAttackers == 0 {
				break
			}
		}

		res ^= 1

		// Recapture with the least valuable attacker, then add the x-rays
		// it uncovers.
		var pt PieceType
		for pt = Pawn; pt <= King; pt++ {
			if stmAttackers&p.Pieces[stm][pt] != 0 {
				break
			}
		}
		if pt == King {
			// The king may only capture when no defender remains.
			if attackers&^p.Occupied[stm] != 0 {
				return res^1 != 0
			}
			return res != 0
		}

		swap = PieceValue[pt] - swap
		if swap < res {
			break
		}
		occupied ^= SquareBB((stmAttackers & p.Pieces[stm][pt]).LSB())

		switch pt {
		case Pawn, Bishop:
			attackers |= BishopAttacks(to, occupied) & bishops
		case Rook:
			attackers |= RookAttacks(to, occupied) & rooks
		case Queen:
			attackers |= (BishopAttacks(to, occupied) & bishops) | (RookAttacks(to, occupied) & rooks)
		}
	}
	return res != 0
}
