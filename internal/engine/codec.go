package engine

// ValueToTT converts a score relative to the current node into one relative
// to the position itself, so mate and tablebase distances survive being
// reached through a different path.
func ValueToTT(v, ply int) int {
	switch {
	case v == ValueNone:
		return v
	case v >= ValueTBWinInMaxPly:
		return v + ply
	case v <= ValueTBLossInMaxPly:
		return v - ply
	}
	return v
}

// ValueFromTT is the inverse of ValueToTT. A mate or tablebase win that
// cannot be realized before the fifty-move rule triggers, given the
// current rule50 counter, is downgraded to the largest non-proven score.
func ValueFromTT(v, ply, r50 int) int {
	if v == ValueNone {
		return ValueNone
	}

	if v >= ValueTBWinInMaxPly {
		// Mate downgrade
		if v >= ValueMateInMaxPly && ValueMate-v > 100-r50 {
			return ValueTBWinInMaxPly - 1
		}
		// TB win downgrade
		if ValueTB-v > 100-r50 {
			return ValueTBWinInMaxPly - 1
		}
		return v - ply
	}

	if v <= ValueTBLossInMaxPly {
		if v <= ValueMatedInMaxPly && ValueMate+v > 100-r50 {
			return ValueTBLossInMaxPly + 1
		}
		if ValueTB+v > 100-r50 {
			return ValueTBLossInMaxPly + 1
		}
		return v + ply
	}

	return v
}
