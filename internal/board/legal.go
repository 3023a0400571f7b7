package board

// PseudoLegal reports whether m could have been generated in this position.
// Moves coming from the transposition table or from killer slots can belong
// to a different position and must pass this test before Legal.
func (p *Position) PseudoLegal(m Move) bool {
	if !m.IsOK() {
		return false
	}
	us := p.SideToMove
	from, to := m.From(), m.To()
	pc := p.board[from]

	// Special moves are rare enough to be checked against the generator.
	if m.Flag() != FlagNormal {
		var ml MoveList
		if p.InCheck() {
			p.GenerateEvasions(&ml)
		} else {
			p.generate(&ml, genNonEvasions)
		}
		return ml.Contains(m)
	}

	// Stray promotion bits on a normal move
	if m>>12&3 != 0 {
		return false
	}
	if pc == NoPiece || pc.Color() != us {
		return false
	}
	if p.Occupied[us].Has(to) {
		return false
	}

	if pc.Type() == Pawn {
		if (Rank1 | Rank8).Has(to) {
			return false
		}
		up := 8
		if us == Black {
			up = -8
		}
		capture := PawnAttacks(from, us)&p.Occupied[us.Other()]&SquareBB(to) != 0
		push := int(from)+up == int(to) && p.IsEmpty(to)
		double := int(from)+2*up == int(to) && from.RelativeRank(us) == 1 &&
			p.IsEmpty(to) && p.IsEmpty(Square(int(to)-up))
		if !capture && !push && !double {
			return false
		}
	} else if !Attacks(pc.Type(), from, p.AllOccupied).Has(to) {
		return false
	}

	if checkers := p.Checkers(); checkers != 0 {
		if pc.Type() != King {
			if checkers.MoreThanOne() {
				return false
			}
			checker := checkers.LSB()
			if !(Between(p.KingSquare[us], checker) | checkers).Has(to) {
				return false
			}
		} else if p.AttackersTo(to, p.AllOccupied^SquareBB(from))&p.Occupied[us.Other()] != 0 {
			return false
		}
	}
	return true
}

// Legal tests whether a pseudo-legal move leaves the mover's king safe.
func (p *Position) Legal(m Move) bool {
	us := p.SideToMove
	them := us.Other()
	from, to := m.From(), m.To()
	ksq := p.KingSquare[us]

	if m.IsEnPassant() {
		capsq := epCaptureSquare(to, us)
		occupied := (p.AllOccupied ^ SquareBB(from) ^ SquareBB(capsq)) | SquareBB(to)
		queens := p.Pieces[them][Queen]
		return RookAttacks(ksq, occupied)&(p.Pieces[them][Rook]|queens) == 0 &&
			BishopAttacks(ksq, occupied)&(p.Pieces[them][Bishop]|queens) == 0
	}

	if m.IsCastling() {
		// The king may not start in, cross or land on an attacked square.
		if p.InCheck() {
			return false
		}
		lo, hi := from, to
		if to < from {
			lo, hi = to, from
		}
		for s := lo; s <= hi; s++ {
			if p.AttackersTo(s, p.AllOccupied)&p.Occupied[them] != 0 {
				return false
			}
		}
		return true
	}

	if p.board[from].Type() == King {
		return p.AttackersTo(to, p.AllOccupied^SquareBB(from))&p.Occupied[them] == 0
	}

	// A pinned piece may only move along the pin line.
	return !p.BlockersForKing(us).Has(from) || Aligned(from, to, ksq)
}

// GivesCheck reports whether a pseudo-legal move checks the opponent.
func (p *Position) GivesCheck(m Move) bool {
	us := p.SideToMove
	them := us.Other()
	from, to := m.From(), m.To()
	ksq := p.KingSquare[them]

	if p.CheckSquares(p.board[from].Type()).Has(to) {
		return true
	}

	// Discovered check
	if p.BlockersForKing(them).Has(from) && (!Aligned(from, to, ksq) || m.IsCastling()) {
		return true
	}

	switch m.Flag() {
	case FlagPromotion:
		return Attacks(m.Promotion(), to, p.AllOccupied^SquareBB(from)).Has(ksq)
	case FlagEnPassant:
		capsq := epCaptureSquare(to, us)
		b := (p.AllOccupied ^ SquareBB(from) ^ SquareBB(capsq)) | SquareBB(to)
		queens := p.Pieces[us][Queen]
		return RookAttacks(ksq, b)&(p.Pieces[us][Rook]|queens) != 0 ||
			BishopAttacks(ksq, b)&(p.Pieces[us][Bishop]|queens) != 0
	case FlagCastling:
		_, rto := castlingRookSquares(to)
		return p.CheckSquares(Rook).Has(rto)
	}
	return false
}
