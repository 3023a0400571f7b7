package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSAN(t *testing.T) {
	tests := []struct {
		fen  string
		move Move
		san  string
	}{
		{StartFEN, NewMove(E2, E4), "e4"},
		{StartFEN, NewMove(G1, F3), "Nf3"},
		{"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1", NewCastling(E1, G1), "O-O"},
		{"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1", NewCastling(E1, C1), "O-O-O"},
		{"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1", NewMove(D5, E6), "dxe6"},
		{"4k3/8/8/8/8/8/8/R4RK1 w - - 0 1", NewMove(A1, D1), "Rad1"},
		{"4k3/1P6/8/8/8/8/8/4K3 w - - 0 1", NewPromotion(B7, B8, Queen), "b8=Q+"},
		{"6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1", NewMove(A1, A8), "Ra8#"},
	}
	for _, tc := range tests {
		pos, err := ParseFEN(tc.fen)
		require.NoError(t, err)
		assert.Equal(t, tc.san, pos.SAN(tc.move), tc.fen)
	}
}

func TestParseSANRoundTrip(t *testing.T) {
	for _, fen := range testFENs {
		pos, err := ParseFEN(fen)
		require.NoError(t, err)

		var ml MoveList
		pos.GenerateLegal(&ml)
		for _, m := range ml.Slice() {
			san := pos.SAN(m)
			parsed, err := pos.ParseSAN(san)
			require.NoError(t, err, san)
			assert.Equal(t, m, parsed, "%s in %s", san, fen)
		}
	}
}

func TestMovesToSAN(t *testing.T) {
	pos := NewPosition()
	line := []Move{NewMove(E2, E4), NewMove(E7, E5), NewMove(G1, F3), NewMove(B8, C6)}
	assert.Equal(t, []string{"e4", "e5", "Nf3", "Nc6"}, MovesToSAN(pos, line))

	// The line stops at the first move that does not fit.
	bad := []Move{NewMove(E2, E4), NewMove(E2, E4)}
	assert.Equal(t, []string{"e4"}, MovesToSAN(pos, bad))
}
