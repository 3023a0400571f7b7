package engine

import (
	"time"

	"github.com/rs/zerolog/log"
	"lukechampine.com/frand"

	"github.com/hailam/lazysearch/internal/board"
)

// Info is one principal variation line reported during a search.
type Info struct {
	Depth    int
	SelDepth int
	MultiPV  int
	Score    int
	Bound    Bound // BoundLower or BoundUpper while the line is still resolving
	Nodes    uint64
	NPS      uint64
	TBHits   uint64
	HashFull int
	Time     time.Duration
	PV       []board.Move
}

// CurrMove reports the root move being searched.
type CurrMove struct {
	Depth  int
	Move   board.Move
	Number int
}

// reportInterval delays bound and current-move reports so that short
// searches stay quiet.
const reportInterval = 3 * time.Second

// iterativeDeepening searches the root at increasing depths until a limit
// or the stop flag ends it. Every worker runs it; only the main worker
// manages time and reports.
func (w *Worker) iterativeDeepening() {
	p := w.pool
	main := w.isMain()

	w.resetStack()

	bestValue := -ValueInfinite
	lastBestMove := board.NoMove
	lastBestMoveDepth := 0
	totBestMoveChanges := 0.0
	timeReduction := 1.0
	iterIdx := 0
	searchAgainCounter := 0

	if main {
		for i := range p.iterValue {
			if p.bestPreviousScore == ValueInfinite {
				p.iterValue[i] = ValueZero
			} else {
				p.iterValue[i] = p.bestPreviousScore
			}
		}
	} else {
		// Helpers start from a different move order so that they do not
		// all walk the same tree.
		frand.Shuffle(len(w.rootMoves), func(i, j int) {
			w.rootMoves[i], w.rootMoves[j] = w.rootMoves[j], w.rootMoves[i]
		})
		if p.rootInTB {
			w.rootMoves.sortByTBRank()
		}
	}

	multiPV := min(p.multiPV, len(w.rootMoves))

	for {
		w.rootDepth++
		if w.rootDepth >= MaxPly || p.stop.Load() || (main && p.limits.Depth > 0 && w.rootDepth > p.limits.Depth) {
			break
		}

		// Age out the best move changes of earlier iterations
		if main {
			totBestMoveChanges /= 2
		}

		for i := range w.rootMoves {
			w.rootMoves[i].PreviousScore = w.rootMoves[i].Score
		}

		pvFirst := 0
		w.pvLast = 0

		if !p.increaseDepth.Load() {
			searchAgainCounter++
		}

		for w.pvIdx = 0; w.pvIdx < multiPV && !p.stop.Load(); w.pvIdx++ {
			// Lines are searched one tablebase rank group at a time
			if w.pvIdx == w.pvLast {
				pvFirst = w.pvLast
				for w.pvLast++; w.pvLast < len(w.rootMoves); w.pvLast++ {
					if w.rootMoves[w.pvLast].TBRank != w.rootMoves[pvFirst].TBRank {
						break
					}
				}
			}

			w.selDepth = 0

			// Aspiration window around the move's running average
			avg := w.rootMoves[w.pvIdx].AverageScore
			delta := w.params.AspirationBase + avg*avg/w.params.AspirationDiv
			alpha := max(avg-delta, -ValueInfinite)
			beta := min(avg+delta, ValueInfinite)
			if !w.features.Has(FeatureAspiration) {
				alpha, beta = -ValueInfinite, ValueInfinite
			}

			failedHighCnt := 0
			for {
				// Repeated fail highs and repeated iterations at the same
				// depth search a little shallower.
				adjustedDepth := max(1, w.rootDepth-failedHighCnt-3*(searchAgainCounter+1)/4)
				bestValue = w.search(Root, 0, alpha, beta, adjustedDepth, false)

				// Moves that did not improve alpha keep their order below
				// the new best.
				w.rootMoves.SortStable(w.pvIdx, w.pvLast)

				if p.stop.Load() {
					break
				}

				if main && multiPV == 1 && (bestValue <= alpha || bestValue >= beta) && p.tm.Elapsed() > reportInterval {
					p.reportPV(w, w.rootDepth)
				}

				if bestValue <= alpha {
					beta = (alpha + beta) / 2
					alpha = max(bestValue-delta, -ValueInfinite)
					failedHighCnt = 0
					if main {
						p.stopOnPonderhit.Store(false)
					}
				} else if bestValue >= beta {
					beta = min(bestValue+delta, ValueInfinite)
					failedHighCnt++
				} else {
					break
				}

				delta += delta / 3
			}

			w.rootMoves.SortStable(pvFirst, w.pvIdx+1)

			if main && (p.stop.Load() || w.pvIdx+1 == multiPV || p.tm.Elapsed() > reportInterval) {
				p.reportPV(w, w.rootDepth)
			}
		}

		if !p.stop.Load() {
			w.completedDepth = w.rootDepth
		}

		if w.rootMoves[0].Move() != lastBestMove {
			lastBestMove = w.rootMoves[0].Move()
			lastBestMoveDepth = w.rootDepth
		}

		// Mate in the requested number of moves
		if m := p.limits.Mate; m > 0 &&
			((bestValue >= ValueMateInMaxPly && ValueMate-bestValue <= 2*m) ||
				(bestValue != -ValueInfinite && bestValue <= ValueMatedInMaxPly && ValueMate+bestValue <= 2*m)) {
			p.stop.Store(true)
		}

		if !main {
			continue
		}

		log.Debug().
			Int("depth", w.completedDepth).
			Int("score", bestValue).
			Str("best", lastBestMove.String()).
			Uint64("nodes", p.NodesSearched()).
			Msg("iteration-complete")

		for _, th := range p.workers {
			totBestMoveChanges += float64(th.bestMoveChanges.Swap(0))
		}

		if p.limits.UseTimeManagement() && !p.stop.Load() && !p.stopOnPonderhit.Load() {
			fallingEval := float64(66+14*(p.bestPreviousAverageScore-bestValue)+6*(p.iterValue[iterIdx]-bestValue)) / 616.6
			fallingEval = max(0.51, min(1.51, fallingEval))

			// A best move that held for several iterations needs less time
			timeReduction = 0.69
			if lastBestMoveDepth+8 < w.completedDepth {
				timeReduction = 1.56
			}
			reduction := (1.4 + p.previousTimeReduction) / (2.17 * timeReduction)
			bestMoveInstability := 1 + 1.79*totBestMoveChanges/float64(len(p.workers))

			totalTime := float64(p.tm.OptimumTime()) * fallingEval * reduction * bestMoveInstability

			// With a single legal move there is nothing to think about
			if len(w.rootMoves) == 1 {
				totalTime = min(float64(500*time.Millisecond), totalTime)
			}

			elapsed := float64(p.tm.Elapsed())
			switch {
			case elapsed > totalTime:
				// While pondering the stop is deferred to the ponderhit
				if p.ponder.Load() {
					p.stopOnPonderhit.Store(true)
				} else {
					p.stop.Store(true)
				}
			case !p.ponder.Load() && elapsed > totalTime*0.50:
				p.increaseDepth.Store(false)
			default:
				p.increaseDepth.Store(true)
			}
		}

		p.iterValue[iterIdx] = bestValue
		iterIdx = (iterIdx + 1) & 3
	}

	if main {
		p.previousTimeReduction = timeReduction
	}
}

// reportPV sends the current lines of w through the info callback.
func (p *Pool) reportPV(w *Worker, depth int) {
	if p.onInfo == nil {
		return
	}

	elapsed := max(p.tm.Elapsed(), time.Millisecond)
	nodes := p.NodesSearched()
	tbHits := p.TBHits()
	if p.rootInTB {
		tbHits += uint64(len(w.rootMoves))
	}
	hashFull := 0
	if elapsed > time.Second {
		hashFull = p.tt.HashFull()
	}

	multiPV := min(p.multiPV, len(w.rootMoves))
	for i := 0; i < multiPV; i++ {
		rm := &w.rootMoves[i]
		updated := rm.Score != -ValueInfinite

		if depth == 1 && !updated && i > 0 {
			continue
		}

		d := depth
		v := rm.UCIScore
		if !updated {
			d = max(1, depth-1)
			v = rm.PreviousScore
		}
		if v == -ValueInfinite {
			v = ValueZero
		}

		// A tablebase rank is more trustworthy than a search score
		// inside the normal range.
		tb := p.rootInTB && abs(v) <= ValueTB
		if tb {
			v = rm.TBScore
		}

		info := Info{
			Depth:    d,
			SelDepth: rm.SelDepth,
			MultiPV:  i + 1,
			Score:    v,
			Nodes:    nodes,
			NPS:      uint64(float64(nodes) / elapsed.Seconds()),
			TBHits:   tbHits,
			HashFull: hashFull,
			Time:     elapsed,
			PV:       append([]board.Move(nil), rm.PV...),
		}
		if i == w.pvIdx && !tb && updated {
			if rm.ScoreLowerbound {
				info.Bound = BoundLower
			} else if rm.ScoreUpperbound {
				info.Bound = BoundUpper
			}
		}
		p.onInfo(info)
	}
}
