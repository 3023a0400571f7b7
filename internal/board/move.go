package board

import "fmt"

// Move packs a move into 16 bits:
//
//	bits 0-5   from square
//	bits 6-11  to square
//	bits 12-13 promotion piece (knight, bishop, rook, queen)
//	bits 14-15 kind (normal, promotion, en passant, castling)
//
// Castling is encoded as the king's two-square move.
type Move uint16

const (
	FlagNormal    uint16 = 0 << 14
	FlagPromotion uint16 = 1 << 14
	FlagEnPassant uint16 = 2 << 14
	FlagCastling  uint16 = 3 << 14
)

const (
	// NoMove is a1a1, never a legal move.
	NoMove Move = 0
	// NullMove is b1b1, the "pass" played by null-move pruning.
	NullMove Move = 65
)

func NewMove(from, to Square) Move {
	return Move(from) | Move(to)<<6
}

func NewPromotion(from, to Square, promo PieceType) Move {
	return Move(from) | Move(to)<<6 | Move(promo-Knight)<<12 | Move(FlagPromotion)
}

func NewEnPassant(from, to Square) Move {
	return Move(from) | Move(to)<<6 | Move(FlagEnPassant)
}

func NewCastling(from, to Square) Move {
	return Move(from) | Move(to)<<6 | Move(FlagCastling)
}

func (m Move) From() Square { return Square(m & 0x3F) }
func (m Move) To() Square   { return Square((m >> 6) & 0x3F) }
func (m Move) Flag() uint16 { return uint16(m) & 0xC000 }

// FromTo indexes butterfly tables.
func (m Move) FromTo() int { return int(m & 0xFFF) }

// Promotion is meaningful only when IsPromotion.
func (m Move) Promotion() PieceType { return PieceType(m>>12&3) + Knight }

func (m Move) IsPromotion() bool { return m.Flag() == FlagPromotion }
func (m Move) IsEnPassant() bool { return m.Flag() == FlagEnPassant }
func (m Move) IsCastling() bool  { return m.Flag() == FlagCastling }

// IsOK reports whether m is neither NoMove nor NullMove.
func (m Move) IsOK() bool { return m.From() != m.To() }

func (m Move) String() string {
	switch m {
	case NoMove:
		return "0000"
	case NullMove:
		return "null"
	}
	s := m.From().String() + m.To().String()
	if m.IsPromotion() {
		s += string("nbrq"[m.Promotion()-Knight])
	}
	return s
}

// ParseMove resolves a UCI move string against the legal moves of pos.
func ParseMove(s string, pos *Position) (Move, error) {
	if len(s) < 4 || len(s) > 5 {
		return NoMove, fmt.Errorf("invalid move %q", s)
	}
	var legal MoveList
	pos.GenerateLegal(&legal)
	for _, m := range legal.Slice() {
		if m.String() == s {
			return m, nil
		}
	}
	return NoMove, fmt.Errorf("illegal move %q in %s", s, pos.FEN())
}

// MaxMoves bounds the number of moves in any reachable position.
const MaxMoves = 256

// ScoredMove carries an ordering score next to the move.
type ScoredMove struct {
	Move  Move
	Score int
}

// MoveList is a fixed-capacity, allocation-free move buffer.
type MoveList struct {
	moves [MaxMoves]ScoredMove
	count int
}

func (ml *MoveList) Add(m Move) {
	ml.moves[ml.count].Move = m
	ml.moves[ml.count].Score = 0
	ml.count++
}

func (ml *MoveList) Len() int             { return ml.count }
func (ml *MoveList) Get(i int) Move       { return ml.moves[i].Move }
func (ml *MoveList) At(i int) *ScoredMove { return &ml.moves[i] }
func (ml *MoveList) Clear()               { ml.count = 0 }
func (ml *MoveList) Swap(i, j int)        { ml.moves[i], ml.moves[j] = ml.moves[j], ml.moves[i] }
func (ml *MoveList) Scored() []ScoredMove { return ml.moves[:ml.count] }
func (ml *MoveList) Truncate(n int)       { ml.count = n }

// Slice copies the moves out.
func (ml *MoveList) Slice() []Move {
	out := make([]Move, ml.count)
	for i := range out {
		out[i] = ml.moves[i].Move
	}
	return out
}

func (ml *MoveList) Contains(m Move) bool {
	for i := 0; i < ml.count; i++ {
		if ml.moves[i].Move == m {
			return true
		}
	}
	return false
}
