package engine

import (
	"sync/atomic"

	"github.com/hailam/lazysearch/internal/board"
)

// Evaluator scores a position in centipawns from the side to move's view.
// Each worker owns one, so implementations may keep unsynchronised caches.
type Evaluator interface {
	Evaluate(pos *board.Position) int
}

// EvaluatorFactory builds the evaluator of one worker.
type EvaluatorFactory func() Evaluator

// Worker is one search thread of the lazy SMP pool. It shares the
// transposition table and the stop flag with its siblings and owns
// everything else: the position, the histories and the search stack.
type Worker struct {
	id       int
	pool     *Pool
	params   *Params
	features Features

	pos  *board.Position
	eval Evaluator
	hist Histories

	stack       [stackSize]Stack
	contHistBuf [stackSize][6]*PieceToHistory
	pv          pvLine

	rootMoves      RootMoves
	rootDepth      int
	completedDepth int
	selDepth       int
	pvIdx, pvLast  int
	rootDelta      int
	nmpMinPly      int

	// Read by the main worker and the reporting code while searching.
	nodes           atomic.Uint64
	tbHits          atomic.Uint64
	bestMoveChanges atomic.Uint64

	callsCnt int
}

func newWorker(id int, pool *Pool, newEval EvaluatorFactory) *Worker {
	w := &Worker{
		id:       id,
		pool:     pool,
		params:   pool.params,
		features: pool.features,
		eval:     newEval(),
	}
	w.hist.Clear()
	return w
}

// ID returns the worker's index in the pool. Worker 0 is the main worker.
func (w *Worker) ID() int { return w.id }

// Nodes returns the number of nodes searched by this worker.
func (w *Worker) Nodes() uint64 { return w.nodes.Load() }

func (w *Worker) isMain() bool { return w.id == 0 }

// clear drops everything learnt in earlier games.
func (w *Worker) clear() {
	w.hist.Clear()
	if c, ok := w.eval.(interface{ Clear() }); ok {
		c.Clear()
	}
}

// prepare copies the root position and root moves before a search.
func (w *Worker) prepare(pos *board.Position, rootMoves RootMoves) {
	w.pos = pos.Copy()
	w.rootMoves = rootMoves.Clone()
	w.rootDepth, w.completedDepth, w.selDepth = 0, 0, 0
	w.nmpMinPly = 0
	w.nodes.Store(0)
	w.tbHits.Store(0)
	w.bestMoveChanges.Store(0)
	w.callsCnt = 0
}

func (w *Worker) evaluate() int {
	return clamp(w.eval.Evaluate(w.pos), ValueTBLossInMaxPly+1, ValueTBWinInMaxPly-1)
}

// valueDraw varies the draw score by one unit so that the search does
// not settle blindly into a repetition.
func (w *Worker) valueDraw() int {
	if !w.features.Has(FeatureDrawJitter) {
		return ValueDraw
	}
	return ValueDraw - 1 + int(w.nodes.Load()&2)
}

// correctedEval adds the pawn structure correction to a raw evaluation.
func (w *Worker) correctedEval(raw int) int {
	if !w.features.Has(FeatureCorrection) {
		return raw
	}
	v := raw + w.hist.correction.get(w.pos)/32
	return clamp(v, ValueTBLossInMaxPly+1, ValueTBWinInMaxPly-1)
}

// checkTime is polled by the main worker and raises the stop flag once
// a limit is reached.
func (w *Worker) checkTime() {
	w.callsCnt--
	if w.callsCnt > 0 {
		return
	}
	p := w.pool
	w.callsCnt = 512
	if p.limits.Nodes > 0 {
		w.callsCnt = max(1, min(512, int(p.limits.Nodes/1024)))
	}

	if p.ponder.Load() {
		return
	}

	elapsed := p.tm.Elapsed()
	if (p.limits.UseTimeManagement() && (elapsed > p.tm.MaximumTime() || p.stopOnPonderhit.Load())) ||
		(p.limits.MoveTime > 0 && elapsed >= p.limits.MoveTime) ||
		(p.limits.Nodes > 0 && p.NodesSearched() >= p.limits.Nodes) {
		p.stop.Store(true)
	}
}

// updateContinuationHistories credits the pair formed by (pc, to) and the
// moves 1, 2, 3, 4 and 6 plies earlier. In check only the first two are
// touched.
func (w *Worker) updateContinuationHistories(ply int, pc board.Piece, to board.Square, bonus int) {
	inCheck := w.ss(ply).inCheck
	for _, i := range [...]int{1, 2, 3, 4, 6} {
		if inCheck && i > 2 {
			break
		}
		prev := w.ss(ply - i)
		if prev.currentMove.IsOK() {
			b := bonus
			if i == 3 {
				b /= 4
			}
			prev.contHist.update(pc, to, b)
		}
	}
}

// updateQuietStats rewards a quiet move that was good enough to cut or
// raise alpha: killers, counter move and the quiet histories.
func (w *Worker) updateQuietStats(ply int, m board.Move, bonus int) {
	ss := w.ss(ply)
	if ss.killers[0] != m {
		ss.killers[1] = ss.killers[0]
		ss.killers[0] = m
	}

	pos := w.pos
	w.hist.main.update(pos.SideToMove, m, bonus)
	w.updateContinuationHistories(ply, pos.MovedPiece(m), m.To(), bonus)

	if prev := w.ss(ply - 1).currentMove; prev.IsOK() {
		prevSq := prev.To()
		w.hist.counterMoves[pos.PieceOn(prevSq)][prevSq] = m
	}
}

// updateAllStats runs once a node found a best move. The best move is
// rewarded and every other move searched before it is penalised.
func (w *Worker) updateAllStats(ply int, bestMove board.Move, bestValue, beta int, prevSq board.Square,
	quiets, captures []board.Move, depth int) {
	pos := w.pos
	us := pos.SideToMove
	moved := pos.MovedPiece(bestMove)

	quietBonus := statBonus(depth + 1)
	quietMalus := statMalus(depth)

	if !pos.CaptureStage(bestMove) {
		bonus := statBonus(depth)
		if bestValue > beta+w.params.BonusMargin {
			bonus = quietBonus
		}
		w.updateQuietStats(ply, bestMove, bonus)

		pawnIdx := pawnHistoryIndex(pos)
		w.hist.pawn.update(pawnIdx, moved, bestMove.To(), quietBonus)
		for _, m := range quiets {
			pc := pos.MovedPiece(m)
			w.hist.pawn.update(pawnIdx, pc, m.To(), -quietMalus)
			w.hist.main.update(us, m, -quietMalus)
			w.updateContinuationHistories(ply, pc, m.To(), -quietMalus)
		}
	} else {
		w.hist.capture.update(moved, bestMove.To(), capturedType(pos, bestMove), quietBonus)
	}

	// A quiet early reply of the parent was refuted
	prev := w.ss(ply - 1)
	if prevSq != board.NoSquare &&
		(prev.moveCount == 1+boolInt(prev.ttHit) || prev.currentMove == prev.killers[0]) &&
		pos.CapturedPiece() == board.NoPiece {
		w.updateContinuationHistories(ply-1, pos.PieceOn(prevSq), prevSq, -quietMalus)
	}

	for _, m := range captures {
		w.hist.capture.update(pos.MovedPiece(m), m.To(), capturedType(pos, m), -quietMalus)
	}
}
