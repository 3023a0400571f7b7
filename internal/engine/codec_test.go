package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValueTTRoundTrip(t *testing.T) {
	for _, ply := range []int{0, 1, 7, 40} {
		// Only scores a node at this ply can hold: a mate lies at least
		// one ply further, a tablebase score no closer than the node.
		values := []int{
			0, 57, -312,
			MateIn(ply + 5), MatedIn(ply + 8), MateIn(ply + 1),
			ValueTB - ply - 12, -ValueTB + ply + 30,
			ValueNone,
		}
		for _, v := range values {
			stored := ValueToTT(v, ply)
			assert.Equal(t, v, ValueFromTT(stored, ply, 0), "value %d at ply %d", v, ply)
		}
	}
}

func TestValueToTTIsPositionRelative(t *testing.T) {
	// A mate found 5 plies below a node 3 plies from the root is a mate
	// in 2 from that node.
	assert.Equal(t, ValueMate-2, ValueToTT(MateIn(5), 3))
	assert.Equal(t, -ValueMate+2, ValueToTT(MatedIn(5), 3))
	assert.Equal(t, 120, ValueToTT(120, 9))
}

func TestValueFromTTDowngradesUnreachableWins(t *testing.T) {
	tests := []struct {
		name string
		v    int
		r50  int
		want int
	}{
		{"mate in reach", ValueMate - 10, 80, ValueMate - 10},
		{"mate beyond rule50", ValueMate - 10, 95, ValueTBWinInMaxPly - 1},
		{"mated beyond rule50", -ValueMate + 10, 95, ValueTBLossInMaxPly + 1},
		{"tb win in reach", ValueTB - 20, 0, ValueTB - 20},
		{"tb win beyond rule50", ValueTB - 20, 90, ValueTBWinInMaxPly - 1},
		{"tb loss beyond rule50", -ValueTB + 20, 90, ValueTBLossInMaxPly + 1},
		{"normal score", 250, 99, 250},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ValueFromTT(tc.v, 0, tc.r50))
		})
	}
}

func TestValuePredicates(t *testing.T) {
	assert.True(t, IsWin(MateIn(3)))
	assert.True(t, IsWin(ValueTBWinInMaxPly))
	assert.False(t, IsWin(ValueTBWinInMaxPly-1))
	assert.True(t, IsLoss(MatedIn(3)))
	assert.True(t, IsDecisive(-ValueTB))
	assert.False(t, IsDecisive(0))
}
