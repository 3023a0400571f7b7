package board

import (
	"math/bits"
	"strings"
)

// Bitboard has bit i set when square i is occupied.
type Bitboard uint64

const (
	FileA Bitboard = 0x0101010101010101
	FileB          = FileA << 1
	FileC          = FileA << 2
	FileD          = FileA << 3
	FileE          = FileA << 4
	FileF          = FileA << 5
	FileG          = FileA << 6
	FileH          = FileA << 7

	Rank1 Bitboard = 0xFF
	Rank2          = Rank1 << (8 * 1)
	Rank3          = Rank1 << (8 * 2)
	Rank4          = Rank1 << (8 * 3)
	Rank5          = Rank1 << (8 * 4)
	Rank6          = Rank1 << (8 * 5)
	Rank7          = Rank1 << (8 * 6)
	Rank8          = Rank1 << (8 * 7)

	Empty    Bitboard = 0
	Universe Bitboard = ^Bitboard(0)
)

var (
	FileMask = [8]Bitboard{FileA, FileB, FileC, FileD, FileE, FileF, FileG, FileH}
	RankMask = [8]Bitboard{Rank1, Rank2, Rank3, Rank4, Rank5, Rank6, Rank7, Rank8}
)

// SquareBB returns a bitboard holding only sq.
func SquareBB(sq Square) Bitboard { return 1 << sq }

// Has reports whether sq is set.
func (b Bitboard) Has(sq Square) bool { return b&(1<<sq) != 0 }

// PopCount is the number of set squares.
func (b Bitboard) PopCount() int { return bits.OnesCount64(uint64(b)) }

// MoreThanOne reports whether at least two squares are set.
func (b Bitboard) MoreThanOne() bool { return b&(b-1) != 0 }

// LSB returns the lowest set square, NoSquare when empty.
func (b Bitboard) LSB() Square {
	if b == 0 {
		return NoSquare
	}
	return Square(bits.TrailingZeros64(uint64(b)))
}

// MSB returns the highest set square, NoSquare when empty.
func (b Bitboard) MSB() Square {
	if b == 0 {
		return NoSquare
	}
	return Square(63 - bits.LeadingZeros64(uint64(b)))
}

// PopLSB clears and returns the lowest set square.
func (b *Bitboard) PopLSB() Square {
	sq := Square(bits.TrailingZeros64(uint64(*b)))
	*b &= *b - 1
	return sq
}

func (b Bitboard) North() Bitboard     { return b << 8 }
func (b Bitboard) South() Bitboard     { return b >> 8 }
func (b Bitboard) East() Bitboard      { return (b &^ FileH) << 1 }
func (b Bitboard) West() Bitboard      { return (b &^ FileA) >> 1 }
func (b Bitboard) NorthEast() Bitboard { return (b &^ FileH) << 9 }
func (b Bitboard) NorthWest() Bitboard { return (b &^ FileA) << 7 }
func (b Bitboard) SouthEast() Bitboard { return (b &^ FileH) >> 7 }
func (b Bitboard) SouthWest() Bitboard { return (b &^ FileA) >> 9 }

// Forward shifts one rank toward c's promotion rank.
func (b Bitboard) Forward(c Color) Bitboard {
	if c == White {
		return b.North()
	}
	return b.South()
}

// PawnAttacksBB returns every square attacked by the pawns in b.
func (b Bitboard) PawnAttacksBB(c Color) Bitboard {
	if c == White {
		return b.NorthEast() | b.NorthWest()
	}
	return b.SouthEast() | b.SouthWest()
}

// FileFill smears every set bit over its whole file.
func (b Bitboard) FileFill() Bitboard {
	b |= b << 8
	b |= b << 16
	b |= b << 32
	b |= b >> 8
	b |= b >> 16
	b |= b >> 32
	return b
}

func (b Bitboard) String() string {
	var sb strings.Builder
	for rank := 7; rank >= 0; rank-- {
		sb.WriteByte(byte('1' + rank))
		for file := 0; file < 8; file++ {
			if b.Has(NewSquare(file, rank)) {
				sb.WriteString(" x")
			} else {
				sb.WriteString(" .")
			}
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("  a b c d e f g h\n")
	return sb.String()
}
