package engine

import (
	"time"

	"github.com/hailam/lazysearch/internal/board"
)

// maxSearchedMoves bounds the moves remembered for history penalties.
const maxSearchedMoves = 32

// boundFor returns the bound a stored value must carry to cut a node:
// a lower bound when it fails high, an upper bound otherwise.
func boundFor(failHigh bool) Bound {
	if failHigh {
		return BoundLower
	}
	return BoundUpper
}

// search is the principal variation search. nt tells whether the node is
// the root, lies on the principal variation or is searched with a null
// window. cutNode marks non-PV nodes expected to fail high.
func (w *Worker) search(nt NodeType, ply, alpha, beta, depth int, cutNode bool) int {
	pvNode := nt.isPV()
	rootNode := nt == Root
	pos := w.pos
	p := w.params
	f := w.features

	// Draw by an upcoming repetition
	if !rootNode && f.Has(FeatureCycleDetection) && alpha < ValueDraw && pos.HasGameCycle(ply) {
		alpha = w.valueDraw()
		if alpha >= beta {
			return alpha
		}
	}

	if depth <= 0 {
		return w.qsearch(pvNode, ply, alpha, beta, 0)
	}
	depth = min(depth, MaxPly-1)

	// Step 1. Initialize node
	ss := w.ss(ply)
	us := pos.SideToMove
	ss.inCheck = pos.InCheck()
	priorCapture := pos.CapturedPiece() != board.NoPiece
	moveCount := 0
	bestValue, maxValue := -ValueInfinite, ValueInfinite
	bestMove := board.NoMove

	if w.isMain() {
		w.checkTime()
	}
	if pvNode {
		w.pv.clear(ply)
		if w.selDepth < ply+1 {
			w.selDepth = ply + 1
		}
	}

	if !rootNode {
		// Step 2. Aborted search and immediate draw
		if w.pool.stop.Load() || pos.IsDraw(ply) || ply >= MaxPly {
			if ply >= MaxPly && !ss.inCheck {
				return w.evaluate()
			}
			return w.valueDraw()
		}

		// Step 3. Mate distance pruning. Even a mate on the next move
		// cannot beat a shorter mate found earlier in the tree.
		alpha = max(MatedIn(ply), alpha)
		beta = min(MateIn(ply+1), beta)
		if alpha >= beta {
			return alpha
		}
	} else {
		w.rootDelta = beta - alpha
	}

	next := w.ss(ply + 1)
	next.excludedMove = board.NoMove
	w.ss(ply + 2).killers = [2]board.Move{}
	w.ss(ply + 2).cutoffCnt = 0
	prev := w.ss(ply - 1)
	ss.doubleExtensions = prev.doubleExtensions
	ss.statScore = 0
	prevSq := board.NoSquare
	if prev.currentMove.IsOK() {
		prevSq = prev.currentMove.To()
	}

	// Step 4. Transposition table lookup
	excluded := ss.excludedMove
	key := pos.Key()
	tte, ttHit, ttw := w.pool.tt.Probe(key)
	ss.ttHit = ttHit
	ttValue := ValueNone
	if ttHit {
		ttValue = ValueFromTT(tte.Value, ply, pos.Rule50())
	}
	ttMove := tte.Move
	if rootNode {
		ttMove = w.rootMoves[w.pvIdx].Move()
	} else if !ttHit {
		ttMove = board.NoMove
	}
	ttCapture := ttMove != board.NoMove && pos.CaptureStage(ttMove)

	if excluded == board.NoMove {
		ss.ttPv = pvNode || (ttHit && tte.IsPV)
	}

	if !pvNode && excluded == board.NoMove && f.Has(FeatureTTCutoff) &&
		tte.Depth > depth && ttValue != ValueNone && tte.Bound&boundFor(ttValue >= beta) != 0 {
		if ttMove != board.NoMove {
			if ttValue >= beta {
				if !ttCapture {
					w.updateQuietStats(ply, ttMove, statBonus(depth))
				}
				// The parent's early quiet move was refuted
				if prevSq != board.NoSquare && prev.moveCount <= 2 && !priorCapture {
					w.updateContinuationHistories(ply-1, pos.PieceOn(prevSq), prevSq, -statMalus(depth+1))
				}
			} else if !ttCapture {
				penalty := -statMalus(depth)
				w.hist.main.update(us, ttMove, penalty)
				w.updateContinuationHistories(ply, pos.MovedPiece(ttMove), ttMove.To(), penalty)
			}
		}

		// Close to the fifty-move limit a cutoff could hide a draw.
		if pos.Rule50() < 90 {
			if ttValue >= beta && !IsDecisive(ttValue) {
				return (3*ttValue + beta) / 4
			}
			return ttValue
		}
	}

	// Step 5. Tablebase probe
	if !rootNode && excluded == board.NoMove && w.pool.tbCardinality > 0 {
		pieces := pos.PieceCount()
		card := w.pool.tbCardinality
		if pieces <= card && (pieces < card || depth >= w.pool.tbProbeDepth) &&
			pos.Rule50() == 0 && pos.CastlingRights() == board.NoCastling {
			res := w.pool.tb.Probe(pos)

			// Probes are slow; let the main worker check the clock soon.
			if w.isMain() {
				w.callsCnt = 0
			}

			if res.Found {
				w.tbHits.Add(1)
				drawScore := boolInt(w.pool.tbUseRule50)
				wdl := int(res.WDL)

				var value int
				var b Bound
				switch {
				case wdl < -drawScore:
					value, b = -ValueTB+ply, BoundUpper
				case wdl > drawScore:
					value, b = ValueTB-ply, BoundLower
				default:
					value, b = ValueDraw+2*wdl*drawScore, BoundExact
				}

				if b == BoundExact || (b == BoundLower && value >= beta) || (b == BoundUpper && value <= alpha) {
					ttw.Save(key, ValueToTT(value, ply), ss.ttPv, b, min(MaxPly-1, depth+6), board.NoMove, ValueNone)
					return value
				}

				if pvNode {
					if b == BoundLower {
						bestValue = value
						alpha = max(alpha, bestValue)
					} else {
						maxValue = value
					}
				}
			}
		}
	}

	// Step 6. Static evaluation of the position
	var eval int
	unadjustedEval := ValueNone
	improving := false

	if ss.inCheck {
		ss.staticEval = ValueNone
		eval = ValueNone
		goto movesLoop
	}

	if excluded != board.NoMove {
		// The singular search shares the node with its parent
		eval = ss.staticEval
		unadjustedEval = eval
	} else if ttHit {
		unadjustedEval = tte.Eval
		if unadjustedEval == ValueNone {
			unadjustedEval = w.evaluate()
		}
		ss.staticEval = w.correctedEval(unadjustedEval)
		eval = ss.staticEval

		if ttValue != ValueNone && tte.Bound&boundFor(ttValue > eval) != 0 {
			eval = ttValue
		}
	} else {
		unadjustedEval = w.evaluate()
		ss.staticEval = w.correctedEval(unadjustedEval)
		eval = ss.staticEval
		ttw.Save(key, ValueNone, ss.ttPv, BoundNone, DepthNone, board.NoMove, unadjustedEval)
	}

	// Use the swing in static eval to order the quiet move that led here
	if prev.currentMove.IsOK() && !prev.inCheck && !priorCapture {
		bonus := clamp(-p.EvalOrderScale*(prev.staticEval+ss.staticEval), p.EvalOrderMin, p.EvalOrderMax)
		if bonus > 0 {
			bonus *= 2
		} else {
			bonus /= 2
		}
		w.hist.main.update(us.Other(), prev.currentMove, bonus)
		if pc := pos.PieceOn(prevSq); pc.Type() != board.Pawn && !prev.currentMove.IsPromotion() {
			w.hist.pawn.update(pawnHistoryIndex(pos), pc, prevSq, bonus/4)
		}
	}

	// improving is set when the static eval rose since our previous move
	if se2 := w.ss(ply - 2).staticEval; se2 != ValueNone {
		improving = ss.staticEval > se2
	} else if se4 := w.ss(ply - 4).staticEval; se4 != ValueNone {
		improving = ss.staticEval > se4
	}

	// Step 7. Razoring: hopeless positions go straight to quiescence
	if f.Has(FeatureRazoring) &&
		eval < alpha-p.RazorBase-(p.RazorDepth-p.RazorCutoffs*boolInt(next.cutoffCnt > 3))*depth*depth {
		value := w.qsearch(false, ply, alpha-1, alpha, 0)
		if value < alpha {
			return value
		}
	}

	// Step 8. Reverse futility pruning
	if f.Has(FeatureFutility) && !ss.ttPv && depth < p.FutilityMaxDepth &&
		eval-w.futilityMargin(depth, cutNode && !ttHit, improving)-prev.statScore/p.FutilityStatDiv >= beta &&
		eval >= beta && eval < ValueTBWinInMaxPly && (ttMove == board.NoMove || ttCapture) {
		if beta > ValueTBLossInMaxPly {
			return (eval + beta) / 2
		}
		return eval
	}

	// Step 9. Null move search with verification
	if f.Has(FeatureNullMove) && !pvNode && prev.currentMove != board.NullMove &&
		prev.statScore < p.NullStatLimit && eval >= beta && eval >= ss.staticEval &&
		ss.staticEval >= beta-p.NullDepthMargin*depth+p.NullMarginBase &&
		excluded == board.NoMove && pos.NonPawnMaterial(us) > 0 &&
		ply >= w.nmpMinPly && beta > ValueTBLossInMaxPly {
		r := min((eval-beta)/p.NullEvalDiv, 6) + depth/p.NullReductionDepth + p.NullReductionBase

		ss.currentMove = board.NullMove
		ss.contHist = w.hist.sentinel()

		pos.DoNullMove()
		nullValue := -w.search(NonPV, ply+1, -beta, -beta+1, depth-r, !cutNode)
		pos.UndoNullMove()

		// A stopped search proves nothing
		if w.pool.stop.Load() {
			return ValueZero
		}

		// Mate scores from a null move are not proven
		if nullValue >= beta && nullValue < ValueTBWinInMaxPly {
			if w.nmpMinPly != 0 || depth < p.NullVerifyDepth {
				return nullValue
			}

			// Verify without null moves for the first plies of the subtree
			w.nmpMinPly = ply + 3*(depth-r)/4
			v := w.search(NonPV, ply, beta-1, beta, depth-r, false)
			w.nmpMinPly = 0

			if w.pool.stop.Load() {
				return ValueZero
			}
			if v >= beta {
				return nullValue
			}
		}
	}

	// Step 10. Internal iterative reductions
	if f.Has(FeatureReductions) {
		if pvNode && ttMove == board.NoMove {
			depth -= 2 + 2*boolInt(ttHit && tte.Depth >= depth)
		}
		if depth <= 0 {
			return w.qsearch(true, ply, alpha, beta, 0)
		}
		if cutNode && depth >= 8 && ttMove == board.NoMove {
			depth -= 2
		}
	}

	// Step 11. ProbCut: a capture that beats beta by a margin in a
	// reduced search most likely beats it in a full one.
	if f.Has(FeatureProbCut) {
		probCutBeta := beta + p.ProbCutMargin - p.ProbCutImproving*boolInt(improving)
		if !pvNode && depth > 3 && !IsDecisive(beta) &&
			!(tte.Depth >= depth-3 && ttValue != ValueNone && ttValue < probCutBeta) {
			mp := NewProbCutPicker(pos, ttMove, probCutBeta-ss.staticEval, &w.hist)
			for m := mp.Next(false); m != board.NoMove; m = mp.Next(false) {
				if m == excluded || !pos.Legal(m) {
					continue
				}

				moved := pos.MovedPiece(m)
				ss.currentMove = m
				ss.contHist = &w.hist.continuation[boolInt(ss.inCheck)][1][moved][m.To()]

				w.nodes.Add(1)
				pos.DoMove(m)

				// Preliminary qsearch to verify the capture holds up
				value := -w.qsearch(false, ply+1, -probCutBeta, -probCutBeta+1, 0)
				if value >= probCutBeta {
					value = -w.search(NonPV, ply+1, -probCutBeta, -probCutBeta+1, depth-4, !cutNode)
				}
				pos.UndoMove(m)

				if w.pool.stop.Load() {
					return ValueZero
				}
				if value >= probCutBeta {
					ttw.Save(key, ValueToTT(value, ply), ss.ttPv, BoundLower, depth-3, m, unadjustedEval)
					if !IsDecisive(value) {
						return value - (probCutBeta - beta)
					}
					return value
				}
			}
		}
	}

movesLoop:
	// Step 12. In check, a deep enough capture in the table that beats
	// beta by a large margin is trusted.
	if f.Has(FeatureProbCut) {
		probCutBeta := beta + p.ProbCutInCheck
		if !pvNode && ss.inCheck && ttCapture && tte.Bound&BoundLower != 0 &&
			tte.Depth >= depth-4 && ttValue >= probCutBeta &&
			!IsDecisive(ttValue) && !IsDecisive(beta) {
			return probCutBeta
		}
	}

	contHist := w.contHistories(ply)
	counterMove := board.NoMove
	if prevSq != board.NoSquare {
		counterMove = w.hist.counterMoves[pos.PieceOn(prevSq)][prevSq]
	}
	mp := NewMovePicker(pos, ttMove, depth, &w.hist, contHist, counterMove, ss.killers)

	value := bestValue
	moveCountPruning := false
	singularQuietLMR := false
	var quiets, captures [maxSearchedMoves]board.Move
	nQuiets, nCaptures := 0, 0

	// The table holds a fail low for this node that is nearly as deep
	likelyFailLow := pvNode && ttMove != board.NoMove && tte.Bound&BoundUpper != 0 && tte.Depth >= depth

	// Step 13. Loop through the moves until none remain or beta is beaten
	for m := mp.Next(moveCountPruning); m != board.NoMove; m = mp.Next(moveCountPruning) {
		if m == excluded || !pos.Legal(m) {
			continue
		}

		// At the root only the moves of the current multi-PV slice count
		if rootNode && !w.inRootSlice(m) {
			continue
		}

		moveCount++
		ss.moveCount = moveCount

		if rootNode && w.isMain() && w.pool.onCurrMove != nil && w.pool.tm.Elapsed() > 3*time.Second {
			w.pool.onCurrMove(CurrMove{Depth: depth, Move: m, Number: moveCount + w.pvIdx})
		}
		if pvNode {
			w.pv.clear(ply + 1)
		}

		extension := 0
		capture := pos.CaptureStage(m)
		moved := pos.MovedPiece(m)
		givesCheck := pos.GivesCheck(m)
		newDepth := depth - 1
		r := 0
		if f.Has(FeatureReductions) {
			r = w.reduction(improving, depth, moveCount, beta-alpha)
		}

		// Step 14. Pruning at shallow depth
		if f.Has(FeatureMovePruning) && !rootNode && pos.NonPawnMaterial(us) > 0 && bestValue > ValueTBLossInMaxPly {
			if !moveCountPruning {
				moveCountPruning = moveCount >= futilityMoveCount(improving, depth)
			}

			lmrDepth := newDepth - r

			if capture || givesCheck {
				if !givesCheck && lmrDepth < 7 && !ss.inCheck {
					captured := capturedType(pos, m)
					futilityEval := ss.staticEval + p.CaptureFutilityBase + p.CaptureFutilityDepth*lmrDepth +
						board.PieceValue[captured] + w.hist.capture.get(moved, m.To(), captured)/p.CaptureHistoryDiv
					if futilityEval < alpha {
						continue
					}
				}

				if !pos.SeeGE(m, -p.CaptureSEEDepth*depth) {
					continue
				}
			} else {
				history := contHist[0].get(moved, m.To()) + contHist[1].get(moved, m.To()) +
					contHist[3].get(moved, m.To()) + w.hist.pawn.get(pawnHistoryIndex(pos), moved, m.To())

				// Continuation history based pruning
				if lmrDepth < 6 && history < -p.ContHistPrune*depth {
					continue
				}

				history += 2 * w.hist.main.get(us, m)
				lmrDepth += history / p.HistoryLMRDiv
				lmrDepth = max(lmrDepth, -1)

				// Futility pruning for quiet moves
				margin := p.QuietFutilityWorse
				if bestValue < ss.staticEval-p.QuietFutilityBase {
					margin = p.QuietFutilityBetter
				}
				if !ss.inCheck && lmrDepth < 14 && ss.staticEval+margin+p.QuietFutilityDepth*lmrDepth <= alpha {
					continue
				}

				lmrDepth = max(lmrDepth, 0)
				if !pos.SeeGE(m, -p.QuietSEEDepth*lmrDepth*lmrDepth) {
					continue
				}
			}
		}

		// Step 15. Extensions
		if f.Has(FeatureExtensions) && ply < w.rootDepth*2 {
			singularDepthLimit := 4 - boolInt(w.completedDepth > 27) + 2*boolInt(pvNode && tte.IsPV)
			if !rootNode && m == ttMove && excluded == board.NoMove && depth >= singularDepthLimit &&
				!IsDecisive(ttValue) && ttValue != ValueNone && tte.Bound&BoundLower != 0 && tte.Depth >= depth-3 {
				// Singular extension: is the hash move the only good one?
				singularBeta := ttValue - (p.SingularMargin+p.SingularTTPv*boolInt(ss.ttPv && !pvNode))*depth/64
				singularDepth := newDepth / 2

				ss.excludedMove = m
				value = w.search(NonPV, ply, singularBeta-1, singularBeta, singularDepth, cutNode)
				ss.excludedMove = board.NoMove
				ss.moveCount = moveCount

				if w.pool.stop.Load() {
					return ValueZero
				}

				switch {
				case value < singularBeta:
					extension = 1
					singularQuietLMR = !ttCapture

					if !pvNode && value < singularBeta-p.DoubleExtMargin && ss.doubleExtensions <= p.DoubleExtLimit {
						extension = 2
						depth += boolInt(depth < 15)
					}

				// Multi-cut: more than one move beats beta
				case singularBeta >= beta:
					return singularBeta

				case ttValue >= beta:
					extension = -2 - boolInt(!pvNode)

				case cutNode:
					if depth < 19 {
						extension = -2
					} else {
						extension = -1
					}

				case ttValue <= value:
					extension = -1
				}
			} else if givesCheck && depth > p.CheckExtDepth {
				extension = 1
			} else if pvNode && m == ttMove && m == ss.killers[0] &&
				contHist[0].get(moved, m.To()) >= p.QuietExtHistory {
				extension = 1
			} else if pvNode && m == ttMove && m.To() == prevSq &&
				w.hist.capture.get(moved, m.To(), capturedType(pos, m)) > p.RecaptureExtHist {
				extension = 1
			}
		}

		newDepth += extension
		ss.doubleExtensions = prev.doubleExtensions + boolInt(extension == 2)

		ss.currentMove = m
		ss.contHist = &w.hist.continuation[boolInt(ss.inCheck)][boolInt(capture)][moved][m.To()]

		// Step 16. Make the move
		w.nodes.Add(1)
		pos.DoMove(m)

		if f.Has(FeatureReductions) {
			if ss.ttPv && !likelyFailLow {
				r -= 1 + boolInt(cutNode && tte.Depth >= depth) + boolInt(ttValue > alpha && ttValue != ValueNone)
			}
			if prev.moveCount > 7 {
				r--
			}
			if cutNode {
				r += 2
			}
			if ttCapture {
				r++
			}
			if pvNode {
				r--
			}
			if singularQuietLMR {
				r--
			}
			if next.cutoffCnt > 3 {
				r++
			} else if m == ttMove {
				// The hash move keeps only its history adjustment
				r = 0
			}
		}

		ss.statScore = 2*w.hist.main.get(us, m) + contHist[0].get(moved, m.To()) +
			contHist[1].get(moved, m.To()) + contHist[3].get(moved, m.To()) - p.LMRStatOffset
		if f.Has(FeatureReductions) {
			r -= ss.statScore / p.LMRStatDiv
		}

		// Step 17. Late move reductions
		if f.Has(FeatureReductions) && depth >= 2 && moveCount > 1+boolInt(rootNode) &&
			(!ss.ttPv || !capture || (cutNode && prev.moveCount > 1)) {
			// A negative reduction may extend by one ply at most
			d := max(1, min(newDepth-r, newDepth+1))

			value = -w.search(NonPV, ply+1, -(alpha + 1), -alpha, d, true)

			if value > alpha && d < newDepth {
				// Adjust the full-depth search by how far the reduced one beat alpha
				deeper := value > bestValue+p.LMRDeeperBase+p.LMRDeeperScale*newDepth
				shallower := value < bestValue+newDepth
				newDepth += boolInt(deeper) - boolInt(shallower)

				if newDepth > d {
					value = -w.search(NonPV, ply+1, -(alpha + 1), -alpha, newDepth, !cutNode)
				}

				bonus := 0
				if value <= alpha {
					bonus = -statMalus(newDepth)
				} else if value >= beta {
					bonus = statBonus(newDepth)
				}
				w.updateContinuationHistories(ply, moved, m.To(), bonus)
			}
		} else if !pvNode || moveCount > 1 {
			// Step 18. Full-depth null window search when LMR is skipped
			if f.Has(FeatureReductions) && ttMove == board.NoMove {
				r += 2
			}
			value = -w.search(NonPV, ply+1, -(alpha + 1), -alpha, newDepth-boolInt(r > 3), !cutNode)
		}

		// Full window search on the first move and after a fail high
		if pvNode && (moveCount == 1 || value > alpha) {
			w.pv.clear(ply + 1)
			value = -w.search(PV, ply+1, -beta, -alpha, newDepth, false)
		}

		// Step 19. Undo move
		pos.UndoMove(m)

		// Step 20. New best move. After a stop the value cannot be trusted.
		if w.pool.stop.Load() {
			return ValueZero
		}

		if rootNode {
			w.updateRootMove(m, moveCount, value, alpha, beta)
		}

		if value > bestValue {
			bestValue = value

			if value > alpha {
				bestMove = m

				if pvNode && !rootNode {
					w.pv.update(ply, m)
				}

				if value >= beta {
					ss.cutoffCnt += 1 + boolInt(ttMove == board.NoMove)
					break
				}

				// Reduce the remaining moves once alpha has improved
				if f.Has(FeatureReductions) && depth > 2 && depth < 12 &&
					beta < p.AlphaCutBetaMax && value > p.AlphaCutValueMin {
					depth -= 2
				}
				alpha = value
			}
		}

		// Remember the moves that did not become best for the stat updates
		if m != bestMove && moveCount <= maxSearchedMoves {
			if capture && nCaptures < maxSearchedMoves {
				captures[nCaptures] = m
				nCaptures++
			} else if !capture && nQuiets < maxSearchedMoves {
				quiets[nQuiets] = m
				nQuiets++
			}
		}
	}

	// Step 21. Mate and stalemate. In a singular search no move means
	// every other move failed low.
	if moveCount == 0 {
		switch {
		case excluded != board.NoMove:
			bestValue = alpha
		case ss.inCheck:
			bestValue = MatedIn(ply)
		default:
			bestValue = ValueDraw
		}
	} else if bestMove != board.NoMove {
		w.updateAllStats(ply, bestMove, bestValue, beta, prevSq, quiets[:nQuiets], captures[:nCaptures], depth)
	} else if !priorCapture && prevSq != board.NoSquare {
		// Bonus for the parent's quiet move that caused this fail low
		bonus := boolInt(depth > 6) + boolInt(pvNode || cutNode) + boolInt(prev.statScore < -18782) +
			boolInt(prev.moveCount > 10)
		w.updateContinuationHistories(ply-1, pos.PieceOn(prevSq), prevSq, statBonus(depth)*bonus)
		w.hist.main.update(us.Other(), prev.currentMove, statBonus(depth)*bonus/2)
	}

	if pvNode {
		bestValue = min(bestValue, maxValue)
	}

	// A fail low below a PV parent keeps the node on the PV
	if bestValue <= alpha {
		ss.ttPv = ss.ttPv || (prev.ttPv && depth > 3)
	}

	// The root only stores the first PV line; later lines exclude moves.
	if excluded == board.NoMove && !(rootNode && w.pvIdx > 0) {
		b := BoundUpper
		if bestValue >= beta {
			b = BoundLower
		} else if pvNode && bestMove != board.NoMove {
			b = BoundExact
		}
		ttw.Save(key, ValueToTT(bestValue, ply), ss.ttPv, b, depth, bestMove, unadjustedEval)
	}

	// Learn how far the static eval was off for this pawn structure
	if f.Has(FeatureCorrection) && !ss.inCheck &&
		(bestMove == board.NoMove || !pos.IsCapture(bestMove)) &&
		!(bestValue >= beta && bestValue <= ss.staticEval) &&
		!(bestMove == board.NoMove && bestValue >= ss.staticEval) {
		bonus := clamp((bestValue-ss.staticEval)*depth/8, -correctionHistoryLimit/4, correctionHistoryLimit/4)
		w.hist.correction.update(pos, bonus)
	}

	return bestValue
}

// futilityMargin is the reverse futility margin. Nodes where the table
// gave no cutoff hint get a slightly smaller one.
func (w *Worker) futilityMargin(depth int, noTTCutNode, improving bool) int {
	p := w.params
	return (p.FutilityBase - p.FutilityNoTTCut*boolInt(noTTCutNode)) * (depth - boolInt(improving))
}

// inRootSlice reports whether m is among the root moves of the current
// multi-PV slice.
func (w *Worker) inRootSlice(m board.Move) bool {
	for i := w.pvIdx; i < w.pvLast; i++ {
		if w.rootMoves[i].Move() == m {
			return true
		}
	}
	return false
}

// updateRootMove records the result of a root move. Moves that do not
// improve alpha sink to -Infinite; the stable sort keeps their order.
func (w *Worker) updateRootMove(m board.Move, moveCount, value, alpha, beta int) {
	rm := &w.rootMoves[w.rootMoves.Find(m)]

	if rm.AverageScore != -ValueInfinite {
		rm.AverageScore = (2*value + rm.AverageScore) / 3
	} else {
		rm.AverageScore = value
	}

	if moveCount > 1 && value <= alpha {
		rm.Score = -ValueInfinite
		return
	}

	rm.Score, rm.UCIScore = value, value
	rm.SelDepth = w.selDepth
	rm.ScoreLowerbound, rm.ScoreUpperbound = false, false

	if value >= beta {
		rm.ScoreLowerbound = true
		rm.UCIScore = beta
	} else if value <= alpha {
		rm.ScoreUpperbound = true
		rm.UCIScore = alpha
	}

	rm.PV = append(rm.PV[:1], w.pv.line(1)...)

	// Only changes of the first line feed the time manager
	if moveCount > 1 && w.pvIdx == 0 {
		w.bestMoveChanges.Add(1)
	}
}
