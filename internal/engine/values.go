package engine

// Score constants. Mate scores are MATE-ply from the side to move's view,
// tablebase wins sit in the band just below the shortest reachable mate.
const (
	ValueZero     = 0
	ValueDraw     = 0
	ValueMate     = 32000
	ValueInfinite = 32001
	ValueNone     = 32002

	MaxPly = 128

	ValueMateInMaxPly  = ValueMate - MaxPly
	ValueMatedInMaxPly = -ValueMateInMaxPly

	ValueTB             = ValueMateInMaxPly - 1
	ValueTBWinInMaxPly  = ValueTB - MaxPly
	ValueTBLossInMaxPly = -ValueTBWinInMaxPly
)

// Depth classes used by the quiescence search and the transposition table.
const (
	DepthQSChecks   = 0
	DepthQSNoChecks = -1
	DepthNone       = -6
	DepthOffset     = -7 // stored depth 0 marks an empty slot
)

// MateIn is the score of delivering mate ply half-moves from the root.
func MateIn(ply int) int { return ValueMate - ply }

// MatedIn is the score of being mated ply half-moves from the root.
func MatedIn(ply int) int { return -ValueMate + ply }

// IsWin reports a proven win: a tablebase win or a mate.
func IsWin(v int) bool { return v >= ValueTBWinInMaxPly }

// IsLoss reports a proven loss.
func IsLoss(v int) bool { return v <= ValueTBLossInMaxPly }

// IsDecisive reports a proven win or loss.
func IsDecisive(v int) bool { return IsWin(v) || IsLoss(v) }

// Bound tells how a stored value relates to the true score.
type Bound uint8

const (
	BoundNone  Bound = 0
	BoundUpper Bound = 1
	BoundLower Bound = 2
	BoundExact Bound = BoundUpper | BoundLower
)

func (b Bound) String() string {
	switch b {
	case BoundUpper:
		return "upper"
	case BoundLower:
		return "lower"
	case BoundExact:
		return "exact"
	}
	return "none"
}

// NodeType selects the behaviour of the search routine at a node.
type NodeType uint8

const (
	NonPV NodeType = iota
	PV
	Root
)

func (nt NodeType) isPV() bool { return nt != NonPV }

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
