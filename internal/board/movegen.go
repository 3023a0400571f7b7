package board

// genType selects which pseudo-legal moves a generator call produces.
type genType int

const (
	genCaptures genType = iota // captures and queen promotions
	genQuiets                  // non-captures, castling, underpromotions
	genEvasions                // replies to a check
	genNonEvasions             // captures and quiets
)

// GenerateCaptures appends pseudo-legal captures, queen promotions and
// capture underpromotions. The side to move must not be in check.
func (p *Position) GenerateCaptures(ml *MoveList) { p.generate(ml, genCaptures) }

// GenerateQuiets appends pseudo-legal non-captures, castling and quiet
// underpromotions. The side to move must not be in check.
func (p *Position) GenerateQuiets(ml *MoveList) { p.generate(ml, genQuiets) }

// GenerateEvasions appends pseudo-legal replies to a check.
func (p *Position) GenerateEvasions(ml *MoveList) { p.generate(ml, genEvasions) }

// GenerateQuietChecks appends non-capturing, non-promoting moves that give check.
func (p *Position) GenerateQuietChecks(ml *MoveList) {
	var quiets MoveList
	p.generate(&quiets, genQuiets)
	for i := 0; i < quiets.Len(); i++ {
		m := quiets.Get(i)
		if m.IsPromotion() || m.IsCastling() {
			continue
		}
		if p.GivesCheck(m) {
			ml.Add(m)
		}
	}
}

// GenerateLegal appends every legal move.
func (p *Position) GenerateLegal(ml *MoveList) {
	start := ml.Len()
	if p.InCheck() {
		p.generate(ml, genEvasions)
	} else {
		p.generate(ml, genNonEvasions)
	}

	n := start
	for i := start; i < ml.Len(); i++ {
		if m := ml.Get(i); p.Legal(m) {
			ml.moves[n] = ml.moves[i]
			n++
		}
	}
	ml.Truncate(n)
}

// HasLegalMoves returns true if the side to move has any legal move.
func (p *Position) HasLegalMoves() bool {
	var ml MoveList
	p.GenerateLegal(&ml)
	return ml.Len() > 0
}

// IsCheckmate returns true if the side to move is checkmated.
func (p *Position) IsCheckmate() bool { return p.InCheck() && !p.HasLegalMoves() }

// IsStalemate returns true if the side to move has no moves and is not in check.
func (p *Position) IsStalemate() bool { return !p.InCheck() && !p.HasLegalMoves() }

func (p *Position) generate(ml *MoveList, gt genType) {
	us := p.SideToMove
	ksq := p.KingSquare[us]

	var target Bitboard
	switch gt {
	case genCaptures:
		target = p.Occupied[us.Other()]
	case genQuiets:
		target = ^p.AllOccupied
	case genNonEvasions:
		target = ^p.Occupied[us]
	case genEvasions:
		checkers := p.Checkers()
		// Double check: only the king can move.
		if checkers.MoreThanOne() {
			p.generateKingMoves(ml, ksq, ^p.Occupied[us])
			return
		}
		checker := checkers.LSB()
		target = Between(ksq, checker) | SquareBB(checker)
	}

	p.generatePawnMoves(ml, gt, target)
	for pt := Knight; pt <= Queen; pt++ {
		pieces := p.Pieces[us][pt]
		for pieces != 0 {
			from := pieces.PopLSB()
			attacks := Attacks(pt, from, p.AllOccupied) & target
			for attacks != 0 {
				ml.Add(NewMove(from, attacks.PopLSB()))
			}
		}
	}

	switch gt {
	case genEvasions:
		p.generateKingMoves(ml, ksq, ^p.Occupied[us])
	default:
		p.generateKingMoves(ml, ksq, target)
	}

	if gt == genQuiets || gt == genNonEvasions {
		p.generateCastlingMoves(ml, us)
	}
}

func (p *Position) generateKingMoves(ml *MoveList, from Square, target Bitboard) {
	attacks := KingAttacks(from) & target
	for attacks != 0 {
		ml.Add(NewMove(from, attacks.PopLSB()))
	}
}

// castlingPath lists the squares that must be empty for each castling.
var castlingPath = [4]Bitboard{
	SquareBB(F1) | SquareBB(G1),
	SquareBB(B1) | SquareBB(C1) | SquareBB(D1),
	SquareBB(F8) | SquareBB(G8),
	SquareBB(B8) | SquareBB(C8) | SquareBB(D8),
}

// generateCastlingMoves only checks rights and an empty path; Legal checks
// that the king does not cross an attacked square.
func (p *Position) generateCastlingMoves(ml *MoveList, us Color) {
	if p.InCheck() {
		return
	}
	cr := p.CastlingRights()
	if us == White {
		if cr&WhiteKingSide != 0 && p.AllOccupied&castlingPath[0] == 0 {
			ml.Add(NewCastling(E1, G1))
		}
		if cr&WhiteQueenSide != 0 && p.AllOccupied&castlingPath[1] == 0 {
			ml.Add(NewCastling(E1, C1))
		}
		return
	}
	if cr&BlackKingSide != 0 && p.AllOccupied&castlingPath[2] == 0 {
		ml.Add(NewCastling(E8, G8))
	}
	if cr&BlackQueenSide != 0 && p.AllOccupied&castlingPath[3] == 0 {
		ml.Add(NewCastling(E8, C8))
	}
}

func (p *Position) generatePawnMoves(ml *MoveList, gt genType, target Bitboard) {
	us := p.SideToMove
	them := us.Other()
	pawns := p.Pieces[us][Pawn]
	empty := ^p.AllOccupied

	rank7, rank3 := Rank7, Rank3
	up := 8
	if us == Black {
		rank7, rank3 = Rank2, Rank6
		up = -8
	}
	upLeft, upRight := up-1, up+1

	enemies := p.Occupied[them]
	if gt == genEvasions {
		enemies = p.Checkers()
	}

	pawnsOn7 := pawns & rank7
	pawnsNotOn7 := pawns &^ rank7

	// Single and double pushes, no promotions
	if gt != genCaptures {
		b1 := pawnsNotOn7.Forward(us) & empty
		b2 := (b1 & rank3).Forward(us) & empty
		if gt == genEvasions {
			b1 &= target
			b2 &= target
		}
		for b1 != 0 {
			to := b1.PopLSB()
			ml.Add(NewMove(Square(int(to)-up), to))
		}
		for b2 != 0 {
			to := b2.PopLSB()
			ml.Add(NewMove(Square(int(to)-2*up), to))
		}
	}

	// Promotions
	if pawnsOn7 != 0 {
		b3 := pawnsOn7.Forward(us) & empty
		if gt == genEvasions {
			b3 &= target
		}
		left, right := pawnCaptures(pawnsOn7, us)
		left &= enemies
		right &= enemies
		for left != 0 {
			to := left.PopLSB()
			addPromotions(ml, gt, Square(int(to)-upLeft), to, true)
		}
		for right != 0 {
			to := right.PopLSB()
			addPromotions(ml, gt, Square(int(to)-upRight), to, true)
		}
		for b3 != 0 {
			to := b3.PopLSB()
			addPromotions(ml, gt, Square(int(to)-up), to, false)
		}
	}

	// Standard and en passant captures
	if gt == genQuiets {
		return
	}
	left, right := pawnCaptures(pawnsNotOn7, us)
	left &= enemies
	right &= enemies
	for left != 0 {
		to := left.PopLSB()
		ml.Add(NewMove(Square(int(to)-upLeft), to))
	}
	for right != 0 {
		to := right.PopLSB()
		ml.Add(NewMove(Square(int(to)-upRight), to))
	}

	if ep := p.EnPassant(); ep != NoSquare {
		// An en passant capture cannot resolve a check by anything but the pushed pawn.
		if gt == genEvasions && !target.Has(epCaptureSquare(ep, us)) {
			return
		}
		attackers := pawnsNotOn7 & PawnAttacks(ep, them)
		for attackers != 0 {
			ml.Add(NewEnPassant(attackers.PopLSB(), ep))
		}
	}
}

// pawnCaptures returns the destinations of left (toward the a-file from
// white's view) and right pawn captures.
func pawnCaptures(pawns Bitboard, us Color) (left, right Bitboard) {
	if us == White {
		return pawns.NorthWest(), pawns.NorthEast()
	}
	return pawns.SouthWest(), pawns.SouthEast()
}

// addPromotions adds the promotions belonging to gt: queen promotions are
// captures, underpromotions follow the capture/quiet nature of the move.
func addPromotions(ml *MoveList, gt genType, from, to Square, capture bool) {
	all := gt == genEvasions || gt == genNonEvasions
	if gt == genCaptures || all {
		ml.Add(NewPromotion(from, to, Queen))
	}
	if (gt == genCaptures && capture) || (gt == genQuiets && !capture) || all {
		ml.Add(NewPromotion(from, to, Rook))
		ml.Add(NewPromotion(from, to, Bishop))
		ml.Add(NewPromotion(from, to, Knight))
	}
}
