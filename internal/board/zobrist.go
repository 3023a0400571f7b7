package board

var (
	zobristPiece      [PieceNB][64]uint64
	zobristEnPassant  [8]uint64
	zobristCastling   [16]uint64
	zobristSideToMove uint64
)

// cycleMove is a reversible piece move between two squares, indexed by the
// key difference it produces. HasGameCycle looks moves up by that difference.
type cycleMove struct {
	piece  Piece
	s1, s2 Square
}

var cycleMoves map[uint64]cycleMove

func init() {
	rng := prng{state: 0x98F107A2BEEF1234}

	for pc := WhitePawn; pc < NoPiece; pc++ {
		for sq := A1; sq <= H8; sq++ {
			zobristPiece[pc][sq] = rng.next()
		}
	}
	for f := range zobristEnPassant {
		zobristEnPassant[f] = rng.next()
	}
	for cr := range zobristCastling {
		zobristCastling[cr] = rng.next()
	}
	zobristSideToMove = rng.next()

	cycleMoves = make(map[uint64]cycleMove, 3668)
	for pc := WhitePawn; pc < NoPiece; pc++ {
		pt := pc.Type()
		if pt == Pawn {
			continue
		}
		for s1 := A1; s1 <= H8; s1++ {
			for s2 := s1 + 1; s2 <= H8; s2++ {
				if !Attacks(pt, s1, 0).Has(s2) {
					continue
				}
				key := zobristPiece[pc][s1] ^ zobristPiece[pc][s2] ^ zobristSideToMove
				cycleMoves[key] = cycleMove{piece: pc, s1: s1, s2: s2}
			}
		}
	}
}

// xorshift64*
type prng struct {
	state uint64
}

func (p *prng) next() uint64 {
	p.state ^= p.state >> 12
	p.state ^= p.state << 25
	p.state ^= p.state >> 27
	return p.state * 0x2545F4914F6CDD1D
}

// computeKeys rebuilds the position and pawn keys from scratch.
func (p *Position) computeKeys() (key, pawnKey uint64) {
	for sq := A1; sq <= H8; sq++ {
		pc := p.board[sq]
		if pc == NoPiece {
			continue
		}
		key ^= zobristPiece[pc][sq]
		if pc.Type() == Pawn {
			pawnKey ^= zobristPiece[pc][sq]
		}
	}
	st := p.state()
	if p.SideToMove == Black {
		key ^= zobristSideToMove
	}
	key ^= zobristCastling[st.CastlingRights]
	if st.EnPassant != NoSquare {
		key ^= zobristEnPassant[st.EnPassant.File()]
	}
	return key, pawnKey
}
