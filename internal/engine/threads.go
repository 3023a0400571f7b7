package engine

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/hailam/lazysearch/internal/board"
	"github.com/hailam/lazysearch/internal/tablebase"
)

// Result is the outcome of a search.
type Result struct {
	Move   board.Move
	Ponder board.Move
	Score  int
	Depth  int
	PV     []board.Move
	Nodes  uint64
}

// Pool runs the lazy SMP search: every worker searches the same root
// independently and they cooperate only through the transposition table.
type Pool struct {
	params     *Params
	features   Features
	tt         *TranspositionTable
	workers    []*Worker
	newEval    EvaluatorFactory
	reductions *reductionTable

	stop            atomic.Bool
	ponder          atomic.Bool
	stopOnPonderhit atomic.Bool
	increaseDepth   atomic.Bool

	limits       Limits
	tm           TimeManager
	multiPV      int
	moveOverhead time.Duration
	ponderOption bool

	tb            tablebase.Prober
	tbProbeLimit  int
	tbProbeDepth  int
	tbUseRule50   bool
	tbCardinality int
	rootInTB      bool

	onInfo     func(Info)
	onCurrMove func(CurrMove)

	// Carried from one search to the next by the main worker
	bestPreviousScore        int
	bestPreviousAverageScore int
	previousTimeReduction    float64
	iterValue                [4]int
}

func newPool(tt *TranspositionTable, params *Params, features Features, newEval EvaluatorFactory) *Pool {
	p := &Pool{
		params:   params,
		features: features,
		tt:       tt,
		newEval:  newEval,
		multiPV:  1,
		tb:       tablebase.NoopProber{},
	}
	p.resetGameState()
	return p
}

// resetGameState forgets what earlier searches taught the time manager.
func (p *Pool) resetGameState() {
	p.bestPreviousScore = ValueInfinite
	p.bestPreviousAverageScore = ValueInfinite
	p.previousTimeReduction = 1.0
}

// setThreads replaces the workers. It must not be called while searching.
func (p *Pool) setThreads(n int) {
	n = max(1, n)
	p.workers = make([]*Worker, n)
	for i := range p.workers {
		p.workers[i] = newWorker(i, p, p.newEval)
	}
	p.reductions = newReductionTable(p.params, n)
	log.Debug().Int("threads", n).Msg("workers-created")
}

// clear resets every worker's histories.
func (p *Pool) clear() {
	for _, w := range p.workers {
		w.clear()
	}
	p.resetGameState()
}

// NodesSearched is the node count of all workers.
func (p *Pool) NodesSearched() uint64 {
	return lo.SumBy(p.workers, func(w *Worker) uint64 { return w.nodes.Load() })
}

// TBHits is the number of successful tablebase probes of all workers.
func (p *Pool) TBHits() uint64 {
	return lo.SumBy(p.workers, func(w *Worker) uint64 { return w.tbHits.Load() })
}

// ponderHit switches a ponder search to a normal one. A search that has
// already used its time stops at once.
func (p *Pool) ponderHit() {
	if p.stopOnPonderhit.Load() {
		p.stop.Store(true)
	}
	p.ponder.Store(false)
}

// arm resets the signals of a new search. It runs on the goroutine that
// accepted the search, before the workers start, so it never clears a
// stop raised later.
func (p *Pool) arm(limits *Limits) {
	if limits.startTime.IsZero() {
		limits.startTime = time.Now()
	}
	p.stop.Store(false)
	p.stopOnPonderhit.Store(false)
	p.increaseDepth.Store(true)
	p.ponder.Store(limits.Ponder)
}

// search runs all workers on pos and blocks until they finished. The
// signals must have been reset by arm.
func (p *Pool) search(pos *board.Position, limits Limits) (Result, error) {
	p.limits = limits

	p.tm.Init(&p.limits, pos.SideToMove, pos.GamePly(), p.moveOverhead, p.ponderOption)
	p.tt.NewSearch()

	rootMoves := NewRootMoves(pos, limits.SearchMoves)
	p.rankRootMoves(pos, rootMoves)

	for _, w := range p.workers {
		w.prepare(pos, rootMoves)
	}

	main := p.workers[0]

	if len(rootMoves) == 0 {
		score := ValueDraw
		if pos.InCheck() {
			score = -ValueMate
		}
		if p.onInfo != nil {
			p.onInfo(Info{Score: score})
		}
		p.waitWhilePondering()
		return Result{Score: score}, ErrNoLegalMoves
	}

	var g errgroup.Group
	for _, w := range p.workers[1:] {
		g.Go(func() error {
			w.iterativeDeepening()
			return nil
		})
	}
	main.iterativeDeepening()

	// In ponder or infinite mode the result must wait for the GUI
	p.waitWhilePondering()
	p.stop.Store(true)
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	best := main
	if p.multiPV == 1 && limits.Depth == 0 && main.rootMoves[0].Move() != board.NoMove {
		best = p.bestWorker()
	}

	p.bestPreviousScore = best.rootMoves[0].Score
	p.bestPreviousAverageScore = best.rootMoves[0].AverageScore

	// Send the chosen line again if it differs from the one reported
	if best != main {
		p.reportPV(best, best.completedDepth)
	}

	rm := &best.rootMoves[0]
	if len(rm.PV) == 1 {
		rm.extractPonderFromTT(p.tt, pos)
	}

	res := Result{
		Move:  rm.Move(),
		Score: rm.Score,
		Depth: best.completedDepth,
		PV:    append([]board.Move(nil), rm.PV...),
		Nodes: p.NodesSearched(),
	}
	if len(rm.PV) > 1 {
		res.Ponder = rm.PV[1]
	}

	log.Debug().
		Int("worker", best.id).
		Int("depth", res.Depth).
		Int("score", res.Score).
		Uint64("nodes", res.Nodes).
		Dur("elapsed", p.tm.Elapsed()).
		Msg("search-finished")

	return res, nil
}

func (p *Pool) waitWhilePondering() {
	for !p.stop.Load() && (p.ponder.Load() || p.limits.Infinite) {
		time.Sleep(time.Millisecond)
	}
}

// bestWorker picks the worker whose move gathered the most votes. A vote
// weighs the score above the worst worker's and the completed depth.
// Proven wins are preferred, the shortest one first.
func (p *Pool) bestWorker() *Worker {
	minScore := lo.Min(lo.Map(p.workers, func(w *Worker, _ int) int { return w.rootMoves[0].Score }))

	threadValue := func(w *Worker) int {
		return (w.rootMoves[0].Score - minScore + 14) * w.completedDepth
	}

	votes := make(map[board.Move]int, len(p.workers))
	for _, w := range p.workers {
		votes[w.rootMoves[0].Move()] += threadValue(w)
	}

	best := p.workers[0]
	for _, w := range p.workers[1:] {
		bs, ws := best.rootMoves[0].Score, w.rootMoves[0].Score
		bm, wm := best.rootMoves[0].Move(), w.rootMoves[0].Move()

		if IsDecisive(bs) {
			if ws > bs {
				best = w
			}
			continue
		}

		if IsWin(ws) ||
			(ws > ValueTBLossInMaxPly &&
				(votes[wm] > votes[bm] ||
					(votes[wm] == votes[bm] &&
						threadValue(w)*boolInt(len(w.rootMoves[0].PV) > 2) >
							threadValue(best)*boolInt(len(best.rootMoves[0].PV) > 2)))) {
			best = w
		}
	}
	return best
}

// Tablebase scores of root moves, indexed by WDL + 2.
var wdlToRootScore = [5]int{-ValueMate + MaxPly + 1, ValueDraw - 2, ValueDraw, ValueDraw + 2, ValueMate - MaxPly - 1}

// Root ranks by WDL + 2. Cursed wins and blessed losses rank between a
// draw and a real result.
var wdlToRank = [5]int{-1000, -899, 0, 899, 1000}

// rankRootMoves sets the tablebase cardinality for the search and, when
// the root itself is in the tablebases, ranks the root moves by their
// outcome so that only the best group is searched first.
func (p *Pool) rankRootMoves(pos *board.Position, rms RootMoves) {
	p.rootInTB = false
	p.tbCardinality = 0

	if p.tb == nil || !p.tb.Available() || p.tbProbeLimit <= 0 {
		return
	}
	p.tbCardinality = min(p.tbProbeLimit, p.tb.MaxPieces())

	if p.tbCardinality < pos.PieceCount() || pos.CastlingRights() != board.NoCastling {
		return
	}

	p.rootInTB = true
	for i := range rms {
		m := rms[i].Move()
		pos.DoMove(m)
		res := p.tb.Probe(pos)
		pos.UndoMove(m)

		if !res.Found {
			p.rootInTB = false
			break
		}

		wdl := -int(res.WDL)
		rms[i].TBRank = wdlToRank[wdl+2]
		if !p.tbUseRule50 {
			wdl = max(-2, min(2, wdl*2))
		}
		rms[i].TBScore = wdlToRootScore[wdl+2]
	}

	if !p.rootInTB {
		for i := range rms {
			rms[i].TBRank, rms[i].TBScore = 0, 0
		}
		return
	}

	rms.sortByTBRank()

	// Probing inside the tree only helps to convert a win
	if rms[0].TBScore <= ValueDraw {
		p.tbCardinality = 0
	}

	log.Debug().
		Int("moves", len(rms)).
		Int("best-rank", rms[0].TBRank).
		Msg("root-in-tablebase")
}
