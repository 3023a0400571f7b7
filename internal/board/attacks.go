package board

// Slider attacks use classical ray tables: the ray in each direction is cut at
// the first blocker, found with LSB for positive and MSB for negative rays.

type direction int

const (
	dirN direction = iota
	dirS
	dirE
	dirW
	dirNE
	dirSW
	dirNW
	dirSE
	dirCount
)

var (
	knightAttacks [64]Bitboard
	kingAttacks   [64]Bitboard
	pawnAttacks   [2][64]Bitboard

	rays      [dirCount][64]Bitboard
	betweenBB [64][64]Bitboard
	lineBB    [64][64]Bitboard
)

var dirDelta = [dirCount][2]int{
	dirN: {0, 1}, dirS: {0, -1}, dirE: {1, 0}, dirW: {-1, 0},
	dirNE: {1, 1}, dirNW: {-1, 1}, dirSE: {1, -1}, dirSW: {-1, -1},
}

func init() {
	for sq := A1; sq <= H8; sq++ {
		b := SquareBB(sq)
		kingAttacks[sq] = b.North() | b.South() | b.East() | b.West() |
			b.NorthEast() | b.NorthWest() | b.SouthEast() | b.SouthWest()
		knightAttacks[sq] = leaperAttacks(sq, [][2]int{
			{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2},
		})
		pawnAttacks[White][sq] = b.PawnAttacksBB(White)
		pawnAttacks[Black][sq] = b.PawnAttacksBB(Black)

		for d := dirN; d < dirCount; d++ {
			f, r := sq.File()+dirDelta[d][0], sq.Rank()+dirDelta[d][1]
			for f >= 0 && f < 8 && r >= 0 && r < 8 {
				rays[d][sq] |= SquareBB(NewSquare(f, r))
				f += dirDelta[d][0]
				r += dirDelta[d][1]
			}
		}
	}

	for a := A1; a <= H8; a++ {
		for d := dirN; d < dirCount; d++ {
			ray := rays[d][a]
			for ray != 0 {
				b := ray.PopLSB()
				betweenBB[a][b] = rays[d][a] &^ rays[d][b] &^ SquareBB(b)
				lineBB[a][b] = rays[d][a] | rays[opposite(d)][a] | SquareBB(a)
			}
		}
	}
}

func leaperAttacks(sq Square, deltas [][2]int) Bitboard {
	var bb Bitboard
	for _, d := range deltas {
		f, r := sq.File()+d[0], sq.Rank()+d[1]
		if f >= 0 && f < 8 && r >= 0 && r < 8 {
			bb |= SquareBB(NewSquare(f, r))
		}
	}
	return bb
}

func opposite(d direction) direction {
	return d ^ 1
}

func rayAttacks(d direction, sq Square, occupied Bitboard) Bitboard {
	attacks := rays[d][sq]
	blockers := attacks & occupied
	if blockers == 0 {
		return attacks
	}
	var first Square
	switch d {
	case dirN, dirE, dirNE, dirNW:
		first = blockers.LSB()
	default:
		first = blockers.MSB()
	}
	return attacks ^ rays[d][first]
}

// KnightAttacks from sq.
func KnightAttacks(sq Square) Bitboard { return knightAttacks[sq] }

// KingAttacks from sq.
func KingAttacks(sq Square) Bitboard { return kingAttacks[sq] }

// PawnAttacks returns the squares a pawn of color c on sq attacks.
func PawnAttacks(sq Square, c Color) Bitboard { return pawnAttacks[c][sq] }

// BishopAttacks from sq given the occupancy.
func BishopAttacks(sq Square, occupied Bitboard) Bitboard {
	return rayAttacks(dirNE, sq, occupied) | rayAttacks(dirNW, sq, occupied) |
		rayAttacks(dirSE, sq, occupied) | rayAttacks(dirSW, sq, occupied)
}

// RookAttacks from sq given the occupancy.
func RookAttacks(sq Square, occupied Bitboard) Bitboard {
	return rayAttacks(dirN, sq, occupied) | rayAttacks(dirS, sq, occupied) |
		rayAttacks(dirE, sq, occupied) | rayAttacks(dirW, sq, occupied)
}

// QueenAttacks from sq given the occupancy.
func QueenAttacks(sq Square, occupied Bitboard) Bitboard {
	return BishopAttacks(sq, occupied) | RookAttacks(sq, occupied)
}

// Attacks returns the attack set of a non-pawn piece type.
func Attacks(pt PieceType, sq Square, occupied Bitboard) Bitboard {
	switch pt {
	case Knight:
		return knightAttacks[sq]
	case Bishop:
		return BishopAttacks(sq, occupied)
	case Rook:
		return RookAttacks(sq, occupied)
	case Queen:
		return QueenAttacks(sq, occupied)
	case King:
		return kingAttacks[sq]
	}
	return 0
}

// Between returns the squares strictly between a and b, empty when not aligned.
func Between(a, b Square) Bitboard { return betweenBB[a][b] }

// Line returns the full board line through a and b, empty when not aligned.
func Line(a, b Square) Bitboard { return lineBB[a][b] }

// Aligned reports whether c lies on the line through a and b.
func Aligned(a, b, c Square) bool { return lineBB[a][b].Has(c) }
