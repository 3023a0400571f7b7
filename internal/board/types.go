// Package board implements the chess position consumed by the search:
// bitboards, Zobrist keys, a per-ply state stack and legality helpers.
package board

import "fmt"

// Square is a board square 0-63, A1=0, H1=7, A8=56, H8=63.
type Square uint8

const (
	A1, B1, C1, D1, E1, F1, G1, H1 Square = 0, 1, 2, 3, 4, 5, 6, 7
	A2, B2, C2, D2, E2, F2, G2, H2 Square = 8, 9, 10, 11, 12, 13, 14, 15
	A3, B3, C3, D3, E3, F3, G3, H3 Square = 16, 17, 18, 19, 20, 21, 22, 23
	A4, B4, C4, D4, E4, F4, G4, H4 Square = 24, 25, 26, 27, 28, 29, 30, 31
	A5, B5, C5, D5, E5, F5, G5, H5 Square = 32, 33, 34, 35, 36, 37, 38, 39
	A6, B6, C6, D6, E6, F6, G6, H6 Square = 40, 41, 42, 43, 44, 45, 46, 47
	A7, B7, C7, D7, E7, F7, G7, H7 Square = 48, 49, 50, 51, 52, 53, 54, 55
	A8, B8, C8, D8, E8, F8, G8, H8 Square = 56, 57, 58, 59, 60, 61, 62, 63

	NoSquare Square = 64
)

// NewSquare builds a square from a 0-based file and rank.
func NewSquare(file, rank int) Square {
	return Square(rank<<3 | file)
}

// File returns 0 (a) .. 7 (h).
func (sq Square) File() int { return int(sq) & 7 }

// Rank returns 0 (first rank) .. 7 (eighth rank).
func (sq Square) Rank() int { return int(sq) >> 3 }

// IsValid reports whether sq is on the board.
func (sq Square) IsValid() bool { return sq < NoSquare }

// Mirror flips the square vertically.
func (sq Square) Mirror() Square { return sq ^ 56 }

// RelativeRank is the rank seen from c's side of the board.
func (sq Square) RelativeRank(c Color) int {
	if c == White {
		return sq.Rank()
	}
	return 7 - sq.Rank()
}

// Relative maps a white-side square onto c's side.
func (sq Square) Relative(c Color) Square {
	if c == White {
		return sq
	}
	return sq.Mirror()
}

func (sq Square) String() string {
	if sq >= NoSquare {
		return "-"
	}
	return string([]byte{byte('a' + sq.File()), byte('1' + sq.Rank())})
}

// ParseSquare parses "e4" style coordinates.
func ParseSquare(s string) (Square, error) {
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return NoSquare, fmt.Errorf("invalid square %q", s)
	}
	return NewSquare(int(s[0]-'a'), int(s[1]-'1')), nil
}

// Distance is the king-move distance between two squares.
func Distance(a, b Square) int {
	return max(abs(a.File()-b.File()), abs(a.Rank()-b.Rank()))
}

// Color of a side or piece.
type Color uint8

const (
	White Color = iota
	Black
	NoColor
)

// Other returns the opponent.
func (c Color) Other() Color { return c ^ 1 }

func (c Color) String() string {
	switch c {
	case White:
		return "white"
	case Black:
		return "black"
	}
	return "none"
}

// PieceType without color.
type PieceType uint8

const (
	Pawn PieceType = iota
	Knight
	Bishop
	Rook
	Queen
	King
	NoPieceType
)

// PieceValue is the exchange value of each piece type in centipawns.
// The king has no exchange value; SEE never trades it.
var PieceValue = [7]int{100, 320, 330, 500, 900, 0, 0}

func (pt PieceType) String() string {
	if pt >= NoPieceType {
		return "none"
	}
	return [...]string{"pawn", "knight", "bishop", "rook", "queen", "king"}[pt]
}

// Piece is pieceType + 6*color; NoPiece (12) marks an empty square.
type Piece uint8

const (
	WhitePawn Piece = iota
	WhiteKnight
	WhiteBishop
	WhiteRook
	WhiteQueen
	WhiteKing
	BlackPawn
	BlackKnight
	BlackBishop
	BlackRook
	BlackQueen
	BlackKing
	NoPiece
)

// PieceNB is the size of piece-indexed tables, including the NoPiece slot.
const PieceNB = 13

// NewPiece combines a type and a color.
func NewPiece(pt PieceType, c Color) Piece {
	if pt >= NoPieceType || c >= NoColor {
		return NoPiece
	}
	return Piece(pt) + Piece(c)*6
}

// Type strips the color.
func (p Piece) Type() PieceType {
	if p >= NoPiece {
		return NoPieceType
	}
	return PieceType(p % 6)
}

// Color returns the owner.
func (p Piece) Color() Color {
	if p >= NoPiece {
		return NoColor
	}
	return Color(p / 6)
}

// Value is the exchange value of the piece.
func (p Piece) Value() int { return PieceValue[p.Type()] }

func (p Piece) String() string {
	if p >= NoPiece {
		return "."
	}
	return string("PNBRQKpnbrqk"[p])
}

// PieceFromChar converts a FEN letter.
func PieceFromChar(c byte) Piece {
	for i, l := range []byte("PNBRQKpnbrqk") {
		if l == c {
			return Piece(i)
		}
	}
	return NoPiece
}

// CastlingRights is a 4-bit set: K, Q, k, q.
type CastlingRights uint8

const (
	WhiteKingSide CastlingRights = 1 << iota
	WhiteQueenSide
	BlackKingSide
	BlackQueenSide

	NoCastling  CastlingRights = 0
	AllCastling                = WhiteKingSide | WhiteQueenSide | BlackKingSide | BlackQueenSide
)

func (cr CastlingRights) String() string {
	if cr == NoCastling {
		return "-"
	}
	s := ""
	for i, l := range "KQkq" {
		if cr&(1<<i) != 0 {
			s += string(l)
		}
	}
	return s
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
