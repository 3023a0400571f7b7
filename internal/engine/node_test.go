package engine

import (
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/hailam/lazysearch/internal/board"
)

// evalFunc adapts a function to the Evaluator interface.
type evalFunc func(pos *board.Position) int

func (f evalFunc) Evaluate(pos *board.Position) int { return f(pos) }

func withEval(ev Evaluator) EvaluatorFactory {
	return func() Evaluator { return ev }
}

// nodeWorker readies the main worker of e for calling search and qsearch
// directly on pos, outside of iterative deepening.
func nodeWorker(e *Engine, pos *board.Position) *Worker {
	p := e.pool
	limits := Limits{}
	p.arm(&limits)
	p.limits = limits
	p.tt.NewSearch()

	w := p.workers[0]
	w.prepare(pos, NewRootMoves(pos, nil))
	w.resetStack()
	return w
}

func TestQSearchStandPat(t *testing.T) {
	is := is.New(t)

	opts := DefaultOptions()
	opts.Features = FeatureQuiescence
	opts.Evaluator = withEval(evalFunc(func(*board.Position) int { return 50 }))
	e := NewEngine(opts)

	// The start position has captures for neither side; Kiwipete has
	// plenty, yet a stand pat above beta must not look at them.
	for _, fen := range []string{board.StartFEN, kiwipete} {
		w := nodeWorker(e, mustFEN(is, fen))

		v := w.qsearch(false, 0, -10, 10, DepthQSChecks)
		is.Equal(v, 50)
		is.Equal(w.Nodes(), uint64(0)) // no move was played
	}
}

func TestQSearchStoresExactForImprovingCapture(t *testing.T) {
	is := is.New(t)

	opts := DefaultOptions()
	opts.Features = FeatureQuiescence
	e := NewEngine(opts)

	pos := mustFEN(is, "4k3/8/8/3q4/8/8/3R4/4K3 w - - 0 1")
	w := nodeWorker(e, pos)

	standPat := w.evaluate()
	v := w.qsearch(true, 0, -ValueInfinite, ValueInfinite, DepthQSChecks)
	is.True(v > standPat)

	data, hit, _ := e.tt.Probe(pos.Key())
	is.True(hit)
	is.Equal(data.Bound, BoundExact)
	is.Equal(data.Move.String(), "d2d5")
	is.Equal(data.Value, v)

	// Without a move beating the stand pat the result stays an upper bound
	quiet := mustFEN(is, "4k3/8/8/8/8/8/3R4/4K3 w - - 0 1")
	w = nodeWorker(e, quiet)
	w.qsearch(true, 0, -ValueInfinite, ValueInfinite, DepthQSNoChecks)
	data, hit, _ = e.tt.Probe(quiet.Key())
	is.True(hit)
	is.Equal(data.Bound, BoundUpper)
}

func TestMateDistancePruning(t *testing.T) {
	is := is.New(t)
	e := newTestEngine(AllFeatures)

	// Checkmated five plies below the root
	mated := mustFEN(is, "k7/1Q6/1K6/8/8/8/8/8 b - - 0 1")
	w := nodeWorker(e, mated)
	is.Equal(w.search(NonPV, 5, -ValueInfinite, ValueInfinite, 2, false), MatedIn(5))

	// A mate in one five plies below the root cannot beat MateIn(6)
	mateInOne := mustFEN(is, "r1bqkb1r/pppp1ppp/2n2n2/4p2Q/2B1P3/8/PPPP1PPP/RNB1K1NR w KQkq - 4 4")
	for _, window := range [][2]int{
		{-ValueInfinite, ValueInfinite},
		{-ValueMate - 1, ValueMate + 1},
		{0, ValueInfinite},
	} {
		w = nodeWorker(e, mateInOne)
		v := w.search(PV, 5, window[0], window[1], 3, false)
		is.True(v >= -ValueMate && v <= ValueMate)
		is.True(v <= MateIn(6))
	}

	// A shorter mate already known above makes the window empty, so the
	// node returns without playing a move.
	w = nodeWorker(e, mateInOne)
	is.Equal(w.search(NonPV, 5, MateIn(6), MateIn(6)+1, 3, false), MateIn(6))
	is.Equal(w.Nodes(), uint64(0))
}

func TestNullMoveVerificationCatchesZugzwang(t *testing.T) {
	is := is.New(t)

	// Every move loses for the side that makes it. Only the root position
	// itself looks good for White, so passing is the best "move" and a
	// null move search is fooled.
	pos := mustFEN(is, "4k3/pppp4/8/8/8/8/PPPP4/3NK3 w - - 0 1")
	root := pos.Key()
	zugzwang := evalFunc(func(p *board.Position) int {
		if p.Key() == root {
			return 300
		}
		return -300
	})

	const beta = 180
	is.True(negamax(pos.Copy(), zugzwang, 0, 4) < beta)

	search := func(verifyDepth int) int {
		params := DefaultParams
		params.NullReductionBase = 1
		params.NullReductionDepth = 100
		params.NullVerifyDepth = verifyDepth

		opts := DefaultOptions()
		opts.Features = FeatureNullMove
		opts.Params = &params
		opts.Evaluator = withEval(zugzwang)
		w := nodeWorker(NewEngine(opts), pos)
		return w.search(NonPV, 0, beta-1, beta, 4, false)
	}

	// Trusting the null move alone claims a fail high
	is.True(search(100) >= beta)
	// The verification search finds that every real move fails low
	is.True(search(4) < beta)
}

func TestProbCutIgnoresStoppedSearch(t *testing.T) {
	is := is.New(t)

	// The evaluator raises the stop flag, so the reduced ProbCut search
	// returns without a real result.
	var e *Engine
	opts := DefaultOptions()
	opts.Features = FeatureProbCut | FeatureTTCutoff | FeatureQuiescence
	opts.Evaluator = withEval(evalFunc(func(*board.Position) int {
		e.pool.stop.Store(true)
		return -200
	}))
	e = NewEngine(opts)

	pos := mustFEN(is, "4k3/8/8/3n4/8/4N3/8/4K3 w - - 0 1")
	w := nodeWorker(e, pos)
	w.search(NonPV, 0, -151, -150, 10, false)

	data, hit, _ := e.tt.Probe(pos.Key())
	is.True(!hit || data.Bound&BoundLower == 0) // nothing from the stopped search may cut later
}

func TestSearchStopRightAfterStart(t *testing.T) {
	is := is.New(t)
	e := newTestEngine(AllFeatures)

	for i := 0; i < 20; i++ {
		done, err := e.Start(board.NewPosition(), Limits{Infinite: true})
		is.NoErr(err)
		e.Stop()

		select {
		case out := <-done:
			is.True(out.Result.Move != board.NoMove)
		case <-time.After(5 * time.Second):
			t.Fatalf("stop right after Start was lost (round %d)", i)
		}
	}
}
