package board

import (
	"fmt"
	"strings"
)

// StateInfo holds the irreversible part of a position plus the check data
// derived after each move. The position keeps one per ply on a stack; the
// entry for the current ply is always the last one.
type StateInfo struct {
	Key            uint64
	PawnKey        uint64
	CastlingRights CastlingRights
	EnPassant      Square
	Rule50         int
	PliesFromNull  int
	Captured       Piece

	// Checkers of the side to move's king
	Checkers Bitboard

	// Repetition is the distance to the previous occurrence of this position,
	// negative when that occurrence was itself a repetition, 0 when none.
	Repetition int

	BlockersForKing [2]Bitboard
	Pinners         [2]Bitboard
	CheckSquares    [6]Bitboard
}

// Position represents a complete chess position together with the history
// of states that led to it.
type Position struct {
	// Piece bitboards: [Color][PieceType]
	Pieces [2][6]Bitboard

	// Occupancy bitboards
	Occupied    [2]Bitboard
	AllOccupied Bitboard

	SideToMove Color
	KingSquare [2]Square

	board   [64]Piece
	gamePly int
	states  []StateInfo
}

// castlingMask lists the rights lost when a move touches a square.
var castlingMask [64]CastlingRights

func init() {
	castlingMask[E1] = WhiteKingSide | WhiteQueenSide
	castlingMask[H1] = WhiteKingSide
	castlingMask[A1] = WhiteQueenSide
	castlingMask[E8] = BlackKingSide | BlackQueenSide
	castlingMask[H8] = BlackKingSide
	castlingMask[A8] = BlackQueenSide
}

// NewPosition creates the starting position.
func NewPosition() *Position {
	pos, _ := ParseFEN(StartFEN)
	return pos
}

// Copy returns a deep copy, state history included. Search workers each
// get their own copy of the root position.
func (p *Position) Copy() *Position {
	np := *p
	np.states = make([]StateInfo, len(p.states), max(cap(p.states), 256))
	copy(np.states, p.states)
	return &np
}

func (p *Position) state() *StateInfo { return &p.states[len(p.states)-1] }

// State exposes the current state record.
func (p *Position) State() *StateInfo { return p.state() }

func (p *Position) Key() uint64                    { return p.state().Key }
func (p *Position) PawnKey() uint64                { return p.state().PawnKey }
func (p *Position) Rule50() int                    { return p.state().Rule50 }
func (p *Position) Checkers() Bitboard             { return p.state().Checkers }
func (p *Position) InCheck() bool                  { return p.state().Checkers != 0 }
func (p *Position) EnPassant() Square              { return p.state().EnPassant }
func (p *Position) CastlingRights() CastlingRights { return p.state().CastlingRights }
func (p *Position) CapturedPiece() Piece           { return p.state().Captured }
func (p *Position) GamePly() int                   { return p.gamePly }

// BlockersForKing returns pieces of either color shielding c's king from a slider.
func (p *Position) BlockersForKing(c Color) Bitboard { return p.state().BlockersForKing[c] }

// CheckSquares returns the squares from which a piece of type pt would check
// the opponent.
func (p *Position) CheckSquares(pt PieceType) Bitboard { return p.state().CheckSquares[pt] }

// PieceOn returns the piece at sq, or NoPiece if empty.
func (p *Position) PieceOn(sq Square) Piece { return p.board[sq] }

// IsEmpty returns true if the square is empty.
func (p *Position) IsEmpty(sq Square) bool { return p.board[sq] == NoPiece }

// MovedPiece is the piece standing on m's origin square.
func (p *Position) MovedPiece(m Move) Piece { return p.board[m.From()] }

// ByType returns the pieces of type pt of both colors.
func (p *Position) ByType(pt PieceType) Bitboard {
	return p.Pieces[White][pt] | p.Pieces[Black][pt]
}

// IsCapture reports whether m removes an enemy piece.
func (p *Position) IsCapture(m Move) bool {
	return (p.board[m.To()] != NoPiece && !m.IsCastling()) || m.IsEnPassant()
}

// CaptureStage reports whether m is ordered with the captures: every capture
// plus queen promotions.
func (p *Position) CaptureStage(m Move) bool {
	return p.IsCapture(m) || (m.IsPromotion() && m.Promotion() == Queen)
}

// NonPawnMaterial sums the piece values of c's knights, bishops, rooks and queens.
func (p *Position) NonPawnMaterial(c Color) int {
	v := 0
	for pt := Knight; pt <= Queen; pt++ {
		v += p.Pieces[c][pt].PopCount() * PieceValue[pt]
	}
	return v
}

// HasNonPawnMaterial returns true if the side to move has non-pawn material.
func (p *Position) HasNonPawnMaterial() bool {
	return p.NonPawnMaterial(p.SideToMove) > 0
}

// PieceCount is the number of pieces on the board, kings included.
func (p *Position) PieceCount() int { return p.AllOccupied.PopCount() }

// Material returns the material balance (positive favors white).
func (p *Position) Material() int {
	score := 0
	for pt := Pawn; pt < King; pt++ {
		score += p.Pieces[White][pt].PopCount() * PieceValue[pt]
		score -= p.Pieces[Black][pt].PopCount() * PieceValue[pt]
	}
	return score
}

func (p *Position) putPiece(pc Piece, sq Square) {
	c, pt := pc.Color(), pc.Type()
	bb := SquareBB(sq)
	p.board[sq] = pc
	p.Pieces[c][pt] |= bb
	p.Occupied[c] |= bb
	p.AllOccupied |= bb
	if pt == King {
		p.KingSquare[c] = sq
	}
}

func (p *Position) removePiece(sq Square) {
	pc := p.board[sq]
	c, pt := pc.Color(), pc.Type()
	bb := SquareBB(sq)
	p.board[sq] = NoPiece
	p.Pieces[c][pt] &^= bb
	p.Occupied[c] &^= bb
	p.AllOccupied &^= bb
}

func (p *Position) movePiece(from, to Square) {
	pc := p.board[from]
	c, pt := pc.Color(), pc.Type()
	moveBB := SquareBB(from) | SquareBB(to)
	p.board[from] = NoPiece
	p.board[to] = pc
	p.Pieces[c][pt] ^= moveBB
	p.Occupied[c] ^= moveBB
	p.AllOccupied ^= moveBB
	if pt == King {
		p.KingSquare[c] = to
	}
}

// castlingRookSquares maps the king's destination to the rook's move.
func castlingRookSquares(kingTo Square) (from, to Square) {
	switch kingTo {
	case G1:
		return H1, F1
	case C1:
		return A1, D1
	case G8:
		return H8, F8
	default:
		return A8, D8
	}
}

// AttackersTo returns the pieces of both colors attacking sq given occupied.
func (p *Position) AttackersTo(sq Square, occupied Bitboard) Bitboard {
	return (PawnAttacks(sq, Black) & p.Pieces[White][Pawn]) |
		(PawnAttacks(sq, White) & p.Pieces[Black][Pawn]) |
		(KnightAttacks(sq) & p.ByType(Knight)) |
		(BishopAttacks(sq, occupied) & (p.ByType(Bishop) | p.ByType(Queen))) |
		(RookAttacks(sq, occupied) & (p.ByType(Rook) | p.ByType(Queen))) |
		(KingAttacks(sq) & p.ByType(King))
}

// IsSquareAttacked reports whether any piece of color by attacks sq.
func (p *Position) IsSquareAttacked(sq Square, by Color) bool {
	return p.AttackersTo(sq, p.AllOccupied)&p.Occupied[by] != 0
}

// sliderBlockers returns the pieces that alone stand between s and a slider
// in sliders, and the sliders pinning a piece of s's owner.
func (p *Position) sliderBlockers(sliders Bitboard, s Square) (blockers, pinners Bitboard) {
	queens := p.ByType(Queen)
	snipers := ((RookAttacks(s, 0) & (p.ByType(Rook) | queens)) |
		(BishopAttacks(s, 0) & (p.ByType(Bishop) | queens))) & sliders
	occupancy := p.AllOccupied ^ snipers
	owner := p.board[s].Color()

	for snipers != 0 {
		sniperSq := snipers.PopLSB()
		b := Between(s, sniperSq) & occupancy
		if b != 0 && !b.MoreThanOne() {
			blockers |= b
			if b&p.Occupied[owner] != 0 {
				pinners |= SquareBB(sniperSq)
			}
		}
	}
	return blockers, pinners
}

func (p *Position) setCheckInfo(st *StateInfo) {
	st.BlockersForKing[White], st.Pinners[Black] = p.sliderBlockers(p.Occupied[Black], p.KingSquare[White])
	st.BlockersForKing[Black], st.Pinners[White] = p.sliderBlockers(p.Occupied[White], p.KingSquare[Black])

	them := p.SideToMove.Other()
	ksq := p.KingSquare[them]
	occ := p.AllOccupied
	st.CheckSquares[Pawn] = PawnAttacks(ksq, them)
	st.CheckSquares[Knight] = KnightAttacks(ksq)
	st.CheckSquares[Bishop] = BishopAttacks(ksq, occ)
	st.CheckSquares[Rook] = RookAttacks(ksq, occ)
	st.CheckSquares[Queen] = st.CheckSquares[Bishop] | st.CheckSquares[Rook]
	st.CheckSquares[King] = 0
}

// DoMove plays a pseudo-legal move that Legal has accepted.
func (p *Position) DoMove(m Move) {
	p.states = append(p.states, *p.state())
	st := p.state()

	us := p.SideToMove
	them := us.Other()
	from, to := m.From(), m.To()
	pc := p.board[from]
	captured := p.board[to]
	if m.IsEnPassant() {
		captured = NewPiece(Pawn, them)
	}

	key := st.Key ^ zobristSideToMove
	p.gamePly++
	st.Rule50++
	st.PliesFromNull++

	if m.IsCastling() {
		rfrom, rto := castlingRookSquares(to)
		rook := p.board[rfrom]
		p.movePiece(rfrom, rto)
		key ^= zobristPiece[rook][rfrom] ^ zobristPiece[rook][rto]
		captured = NoPiece
	}

	if captured != NoPiece {
		capsq := to
		if m.IsEnPassant() {
			capsq = epCaptureSquare(to, us)
		}
		if captured.Type() == Pawn {
			st.PawnKey ^= zobristPiece[captured][capsq]
		}
		p.removePiece(capsq)
		key ^= zobristPiece[captured][capsq]
		st.Rule50 = 0
	}

	if st.EnPassant != NoSquare {
		key ^= zobristEnPassant[st.EnPassant.File()]
		st.EnPassant = NoSquare
	}

	if cr := castlingMask[from] | castlingMask[to]; st.CastlingRights&cr != 0 {
		key ^= zobristCastling[st.CastlingRights]
		st.CastlingRights &^= cr
		key ^= zobristCastling[st.CastlingRights]
	}

	p.movePiece(from, to)
	key ^= zobristPiece[pc][from] ^ zobristPiece[pc][to]

	if pc.Type() == Pawn {
		st.PawnKey ^= zobristPiece[pc][from] ^ zobristPiece[pc][to]

		// Only record an en passant square that can actually be used.
		if to^from == 16 {
			epsq := Square((int(from) + int(to)) / 2)
			if PawnAttacks(epsq, us)&p.Pieces[them][Pawn] != 0 {
				st.EnPassant = epsq
				key ^= zobristEnPassant[epsq.File()]
			}
		}

		if m.IsPromotion() {
			promo := NewPiece(m.Promotion(), us)
			p.removePiece(to)
			p.putPiece(promo, to)
			key ^= zobristPiece[pc][to] ^ zobristPiece[promo][to]
			st.PawnKey ^= zobristPiece[pc][to]
		}
		st.Rule50 = 0
	}

	st.Captured = captured
	st.Key = key
	p.SideToMove = them

	st.Checkers = p.AttackersTo(p.KingSquare[them], p.AllOccupied) & p.Occupied[us]
	p.setCheckInfo(st)
	p.updateRepetition(st)
}

// UndoMove takes back m, which must be the last move played.
func (p *Position) UndoMove(m Move) {
	p.SideToMove = p.SideToMove.Other()
	us := p.SideToMove
	st := p.state()
	from, to := m.From(), m.To()

	if m.IsPromotion() {
		p.removePiece(to)
		p.putPiece(NewPiece(Pawn, us), to)
	}

	if m.IsCastling() {
		p.movePiece(to, from)
		rfrom, rto := castlingRookSquares(to)
		p.movePiece(rto, rfrom)
	} else {
		p.movePiece(to, from)
		if st.Captured != NoPiece {
			capsq := to
			if m.IsEnPassant() {
				capsq = epCaptureSquare(to, us)
			}
			p.putPiece(st.Captured, capsq)
		}
	}

	p.states = p.states[:len(p.states)-1]
	p.gamePly--
}

// DoNullMove passes the turn. It must not be called while in check.
func (p *Position) DoNullMove() {
	p.states = append(p.states, *p.state())
	st := p.state()

	if st.EnPassant != NoSquare {
		st.Key ^= zobristEnPassant[st.EnPassant.File()]
		st.EnPassant = NoSquare
	}
	st.Key ^= zobristSideToMove
	st.Rule50++
	st.PliesFromNull = 0
	st.Captured = NoPiece
	st.Checkers = 0
	st.Repetition = 0

	p.SideToMove = p.SideToMove.Other()
	p.setCheckInfo(st)
}

// UndoNullMove reverts DoNullMove.
func (p *Position) UndoNullMove() {
	p.states = p.states[:len(p.states)-1]
	p.SideToMove = p.SideToMove.Other()
}

func epCaptureSquare(to Square, us Color) Square {
	if us == White {
		return to - 8
	}
	return to + 8
}

// updateRepetition looks back over reversible plies for an earlier
// occurrence of the current key.
func (p *Position) updateRepetition(st *StateInfo) {
	st.Repetition = 0
	end := min(st.Rule50, st.PliesFromNull)
	if end < 4 {
		return
	}
	n := len(p.states) - 1
	for i := 4; i <= end && n-i >= 0; i += 2 {
		prev := &p.states[n-i]
		if prev.Key == st.Key {
			if prev.Repetition != 0 {
				st.Repetition = -i
			} else {
				st.Repetition = i
			}
			return
		}
	}
}

// Validate checks if the position is valid.
func (p *Position) Validate() error {
	if p.Pieces[White][King].PopCount() != 1 {
		return fmt.Errorf("%w: white must have exactly one king", ErrInvalidFEN)
	}
	if p.Pieces[Black][King].PopCount() != 1 {
		return fmt.Errorf("%w: black must have exactly one king", ErrInvalidFEN)
	}
	if p.ByType(Pawn)&(Rank1|Rank8) != 0 {
		return fmt.Errorf("%w: pawns cannot be on rank 1 or 8", ErrInvalidFEN)
	}
	if p.IsSquareAttacked(p.KingSquare[p.SideToMove.Other()], p.SideToMove) {
		return fmt.Errorf("%w: side not to move is in check", ErrInvalidFEN)
	}
	return nil
}

// String returns a visual representation of the position.
func (p *Position) String() string {
	var sb strings.Builder
	sb.WriteString("\n +---+---+---+---+---+---+---+---+\n")
	for rank := 7; rank >= 0; rank-- {
		for file := 0; file < 8; file++ {
			pc := p.board[NewSquare(file, rank)]
			c := " "
			if pc != NoPiece {
				c = pc.String()
			}
			sb.WriteString(" | " + c)
		}
		fmt.Fprintf(&sb, " | %d\n +---+---+---+---+---+---+---+---+\n", rank+1)
	}
	sb.WriteString("   a   b   c   d   e   f   g   h\n\n")
	fmt.Fprintf(&sb, "Fen: %s\n", p.FEN())
	fmt.Fprintf(&sb, "Key: %016X\n", p.Key())
	sb.WriteString("Checkers:")
	for b := p.Checkers(); b != 0; {
		sb.WriteString(" " + b.PopLSB().String())
	}
	sb.WriteByte('\n')
	return sb.String()
}
