package engine

import (
	"github.com/hailam/lazysearch/internal/board"
)

// qsearch resolves captures, promotions and, at its first ply, quiet
// checks until the position is quiet enough for the static evaluation.
// depth is DepthQSChecks on entry and decreases by one per ply.
func (w *Worker) qsearch(pvNode bool, ply, alpha, beta, depth int) int {
	pos := w.pos
	p := w.params
	f := w.features

	if f.Has(FeatureCycleDetection) && alpha < ValueDraw && pos.HasGameCycle(ply) {
		alpha = w.valueDraw()
		if alpha >= beta {
			return alpha
		}
	}

	ss := w.ss(ply)
	ss.inCheck = pos.InCheck()
	us := pos.SideToMove

	if pvNode {
		w.pv.clear(ply)
		if w.selDepth < ply+1 {
			w.selDepth = ply + 1
		}
	}

	if pos.IsDraw(ply) || ply >= MaxPly {
		if ply >= MaxPly && !ss.inCheck {
			return w.evaluate()
		}
		return ValueDraw
	}

	// Plain leaf evaluation when the quiescence search is switched off
	if !f.Has(FeatureQuiescence) {
		return w.evaluate()
	}

	// Decide which depth class the table entry must have: positions in
	// check or at the first ply include quiet checks.
	ttDepth := DepthQSNoChecks
	if ss.inCheck || depth >= DepthQSChecks {
		ttDepth = DepthQSChecks
	}

	key := pos.Key()
	tte, ttHit, ttw := w.pool.tt.Probe(key)
	ss.ttHit = ttHit
	ttValue := ValueNone
	ttMove := board.NoMove
	if ttHit {
		ttValue = ValueFromTT(tte.Value, ply, pos.Rule50())
		ttMove = tte.Move
	}
	pvHit := ttHit && tte.IsPV

	if !pvNode && f.Has(FeatureTTCutoff) && tte.Depth >= ttDepth && ttValue != ValueNone &&
		tte.Bound&boundFor(ttValue >= beta) != 0 {
		return ttValue
	}

	var bestValue, futilityBase int
	unadjustedEval := ValueNone

	if ss.inCheck {
		bestValue, futilityBase = -ValueInfinite, -ValueInfinite
	} else {
		if ttHit {
			unadjustedEval = tte.Eval
			if unadjustedEval == ValueNone {
				unadjustedEval = w.evaluate()
			}
			ss.staticEval = w.correctedEval(unadjustedEval)
			bestValue = ss.staticEval

			// The stored value is a better estimate when its bound allows
			if ttValue != ValueNone && tte.Bound&boundFor(ttValue > bestValue) != 0 {
				bestValue = ttValue
			}
		} else {
			// After a null move the evaluation is the negated parent's
			if prev := w.ss(ply - 1); prev.currentMove == board.NullMove && prev.staticEval != ValueNone {
				unadjustedEval = -prev.staticEval
			} else {
				unadjustedEval = w.evaluate()
			}
			ss.staticEval = w.correctedEval(unadjustedEval)
			bestValue = ss.staticEval
		}

		// Stand pat
		if bestValue >= beta {
			if !ttHit {
				ttw.Save(key, ValueToTT(bestValue, ply), false, BoundLower, DepthNone, board.NoMove, unadjustedEval)
			}
			return bestValue
		}
		alpha = max(alpha, bestValue)
		futilityBase = ss.staticEval + p.QSFutilityMargin
	}

	contHist := w.contHistories(ply)
	prevSq := board.NoSquare
	if prevMove := w.ss(ply - 1).currentMove; prevMove.IsOK() {
		prevSq = prevMove.To()
	}

	mp := NewQSearchPicker(pos, ttMove, depth, &w.hist, contHist)

	bestMove := board.NoMove
	moveCount := 0
	quietCheckEvasions := 0

	for m := mp.Next(false); m != board.NoMove; m = mp.Next(false) {
		if !pos.Legal(m) {
			continue
		}

		givesCheck := pos.GivesCheck(m)
		capture := pos.CaptureStage(m)
		moved := pos.MovedPiece(m)
		moveCount++

		if bestValue > ValueTBLossInMaxPly && pos.NonPawnMaterial(us) > 0 {
			// Futility and move count pruning
			if !givesCheck && m.To() != prevSq && futilityBase > ValueTBLossInMaxPly && !m.IsPromotion() {
				if moveCount > 2 {
					continue
				}

				futilityValue := futilityBase + board.PieceValue[capturedType(pos, m)]

				// Even winning the captured piece does not reach alpha
				if futilityValue <= alpha {
					bestValue = max(bestValue, futilityValue)
					continue
				}

				// The static eval is below alpha and the exchange does
				// not win material
				if futilityBase <= alpha && !pos.SeeGE(m, 1) {
					bestValue = max(bestValue, futilityBase)
					continue
				}

				// The exchange loses more than the margin above alpha
				if futilityBase > alpha && !pos.SeeGE(m, (alpha-futilityBase)*4) {
					bestValue = alpha
					continue
				}
			}

			// Once a quiet evasion has failed, the rest will too
			if quietCheckEvasions > 1 {
				break
			}

			if !capture && contHist[0].get(moved, m.To()) < 0 && contHist[1].get(moved, m.To()) < 0 {
				continue
			}

			if !pos.SeeGE(m, -p.QSSEEThreshold) {
				continue
			}
		}

		ss.currentMove = m
		ss.contHist = &w.hist.continuation[boolInt(ss.inCheck)][boolInt(capture)][moved][m.To()]
		quietCheckEvasions += boolInt(!capture && ss.inCheck)

		w.nodes.Add(1)
		pos.DoMove(m)
		value := -w.qsearch(pvNode, ply+1, -beta, -alpha, depth-1)
		pos.UndoMove(m)

		if value > bestValue {
			bestValue = value

			if value > alpha {
				bestMove = m

				if pvNode {
					w.pv.update(ply, m)
				}
				if value >= beta {
					break
				}
				alpha = value
			}
		}
	}

	// In check with no evasion searched is checkmate: every evasion is
	// generated here and none is pruned while bestValue is -Infinite.
	if ss.inCheck && bestValue == -ValueInfinite {
		return MatedIn(ply)
	}

	if !IsDecisive(bestValue) && bestValue >= beta {
		bestValue = (3*bestValue + beta) / 4
	}

	// Exact only when a move beat the stand pat inside the window
	b := BoundUpper
	switch {
	case bestValue >= beta:
		b = BoundLower
	case pvNode && bestMove != board.NoMove:
		b = BoundExact
	}
	ttw.Save(key, ValueToTT(bestValue, ply), pvHit, b, ttDepth, bestMove, unadjustedEval)

	return bestValue
}
