package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testFENs = []string{
	StartFEN,
	"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
	"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
	"r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1",
	"rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8",
	"rnbqkbnr/ppp1p1pp/8/3pPp2/8/8/PPPP1PPP/RNBQKBNR w KQkq f6 0 3",
}

type snapshot struct {
	board      [64]Piece
	pieces     [2][6]Bitboard
	occupied   [2]Bitboard
	all        Bitboard
	side       Color
	kings      [2]Square
	gamePly    int
	state      StateInfo
	stateDepth int
}

func takeSnapshot(p *Position) snapshot {
	return snapshot{
		board:      p.board,
		pieces:     p.Pieces,
		occupied:   p.Occupied,
		all:        p.AllOccupied,
		side:       p.SideToMove,
		kings:      p.KingSquare,
		gamePly:    p.gamePly,
		state:      *p.state(),
		stateDepth: len(p.states),
	}
}

// walk plays every legal move to depth, checking each undo restores the
// position bit for bit and that incremental keys match a recomputation.
func walk(t *testing.T, p *Position, depth int) {
	if depth == 0 {
		return
	}
	var ml MoveList
	p.GenerateLegal(&ml)
	for _, m := range ml.Slice() {
		before := takeSnapshot(p)
		p.DoMove(m)

		key, pawnKey := p.computeKeys()
		require.Equal(t, key, p.Key(), "key after %v", m)
		require.Equal(t, pawnKey, p.PawnKey(), "pawn key after %v", m)

		walk(t, p, depth-1)
		p.UndoMove(m)
		require.Equal(t, before, takeSnapshot(p), "undo %v", m)
	}
}

func TestDoUndoRestoresPosition(t *testing.T) {
	for _, fen := range testFENs {
		t.Run(fen, func(t *testing.T) {
			pos, err := ParseFEN(fen)
			require.NoError(t, err)
			walk(t, pos, 3)
		})
	}
}

func TestNullMoveRestoresPosition(t *testing.T) {
	pos, err := ParseFEN("rnbqkbnr/ppp1p1pp/8/3pPp2/8/8/PPPP1PPP/RNBQKBNR w KQkq f6 0 3")
	require.NoError(t, err)
	require.Equal(t, F6, pos.EnPassant())

	before := takeSnapshot(pos)
	pos.DoNullMove()
	assert.Equal(t, Black, pos.SideToMove)
	assert.Equal(t, NoSquare, pos.EnPassant())
	assert.Equal(t, 0, pos.State().PliesFromNull)
	key, _ := pos.computeKeys()
	assert.Equal(t, key, pos.Key())

	pos.UndoNullMove()
	assert.Equal(t, before, takeSnapshot(pos))
}

func TestFENRoundTrip(t *testing.T) {
	for _, fen := range testFENs {
		pos, err := ParseFEN(fen)
		require.NoError(t, err)
		assert.Equal(t, fen, pos.FEN())
	}
}

func TestParseFENNormalizesEnPassant(t *testing.T) {
	// No black pawn can take on e3.
	pos, err := ParseFEN("rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1")
	require.NoError(t, err)
	assert.Equal(t, NoSquare, pos.EnPassant())

	start := NewPosition()
	start.DoMove(NewMove(E2, E4))
	assert.Equal(t, pos.Key(), start.Key())
}

func TestParseFENErrors(t *testing.T) {
	bad := []string{
		"",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP w KQkq - 0 1",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR x KQkq - 0 1",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkz - 0 1",
		"rnbqkbnr/pppppppp/9/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		"rnbq1bnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQ - 0 1",
		"4k3/8/8/8/8/8/8/R3K2R b - - 0 1x",
		"4k3/4R3/8/8/8/8/8/4K3 w - - 0 1",
	}
	for _, fen := range bad {
		_, err := ParseFEN(fen)
		assert.ErrorIs(t, err, ErrInvalidFEN, fen)
	}
}

func TestCheckInfo(t *testing.T) {
	// The e2 knight is pinned by the rook on e8.
	pos, err := ParseFEN("4r1k1/8/8/8/8/8/4N3/4K3 w - - 0 1")
	require.NoError(t, err)

	assert.True(t, pos.BlockersForKing(White).Has(E2))
	assert.True(t, pos.State().Pinners[Black].Has(E8))
	assert.False(t, pos.Legal(NewMove(E2, C3)))
	assert.True(t, pos.Legal(NewMove(E1, D1)))
}

func TestPseudoLegalRejectsForeignMoves(t *testing.T) {
	pos := NewPosition()

	assert.True(t, pos.PseudoLegal(NewMove(E2, E4)))
	assert.True(t, pos.PseudoLegal(NewMove(G1, F3)))
	assert.False(t, pos.PseudoLegal(NewMove(E2, E5)))
	assert.False(t, pos.PseudoLegal(NewMove(E7, E5)), "opponent piece")
	assert.False(t, pos.PseudoLegal(NewMove(F1, C4)), "blocked slider")
	assert.False(t, pos.PseudoLegal(NewCastling(E1, G1)))
	assert.False(t, pos.PseudoLegal(NoMove))
	assert.False(t, pos.PseudoLegal(NullMove))

	// In check, only moves that address the checker pass.
	pos, err := ParseFEN("4k3/8/8/8/8/8/3PP3/r3K3 w - - 0 1")
	require.NoError(t, err)
	assert.False(t, pos.PseudoLegal(NewMove(E2, E3)))
	assert.True(t, pos.PseudoLegal(NewMove(E1, F2)))
	assert.False(t, pos.PseudoLegal(NewMove(E1, D1)), "still on the rook's rank")
}

func TestGivesCheck(t *testing.T) {
	tests := []struct {
		fen   string
		move  Move
		check bool
	}{
		{"4k3/8/8/8/8/8/8/R3K3 w - - 0 1", NewMove(A1, A8), true},
		{"4k3/8/8/8/8/8/8/R3K3 w - - 0 1", NewMove(A1, A7), false},
		// Discovered check by the bishop behind the knight
		{"5k2/8/8/8/1N6/B7/8/4K3 w - - 0 1", NewMove(B4, C6), true},
		// Promotion check
		{"4k3/1P6/8/8/8/8/8/4K3 w - - 0 1", NewPromotion(B7, B8, Queen), true},
		{"4k3/1P6/8/8/8/8/8/4K3 w - - 0 1", NewPromotion(B7, B8, Knight), false},
		// Castling with the rook landing on the king's file
		{"5k2/8/8/8/8/8/8/4K2R w K - 0 1", NewCastling(E1, G1), true},
		// En passant opening the rank toward the king
		{"8/8/8/k2pP2R/8/8/8/4K3 w - d6 0 1", NewEnPassant(E5, D6), true},
	}
	for _, tc := range tests {
		pos, err := ParseFEN(tc.fen)
		require.NoError(t, err)
		require.True(t, pos.PseudoLegal(tc.move), "%v in %s", tc.move, tc.fen)
		assert.Equal(t, tc.check, pos.GivesCheck(tc.move), "%v in %s", tc.move, tc.fen)

		pos.DoMove(tc.move)
		assert.Equal(t, tc.check, pos.InCheck(), "%v in %s", tc.move, tc.fen)
	}
}
