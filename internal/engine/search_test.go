package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/hailam/lazysearch/internal/board"
	"github.com/hailam/lazysearch/internal/eval"
	"github.com/hailam/lazysearch/internal/tablebase"
)

const kiwipete = "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1"

// negamax is a plain fixed-depth minimax over the same draw rules and
// leaf evaluation the search uses.
func negamax(pos *board.Position, ev Evaluator, ply, depth int) int {
	if depth <= 0 {
		if pos.IsDraw(ply) {
			return ValueDraw
		}
		return clamp(ev.Evaluate(pos), ValueTBLossInMaxPly+1, ValueTBWinInMaxPly-1)
	}
	if ply > 0 && pos.IsDraw(ply) {
		return ValueDraw
	}

	var ml board.MoveList
	pos.GenerateLegal(&ml)
	if ml.Len() == 0 {
		if pos.InCheck() {
			return MatedIn(ply)
		}
		return ValueDraw
	}

	best := -ValueInfinite
	for _, m := range ml.Slice() {
		pos.DoMove(m)
		best = max(best, -negamax(pos, ev, ply+1, depth-1))
		pos.UndoMove(m)
	}
	return best
}

func newTestEngine(features Features) *Engine {
	opts := DefaultOptions()
	opts.Features = features
	return NewEngine(opts)
}

func mustFEN(is *is.I, fen string) *board.Position {
	pos, err := board.ParseFEN(fen)
	is.NoErr(err)
	return pos
}

func isLegal(pos *board.Position, m board.Move) bool {
	var ml board.MoveList
	pos.GenerateLegal(&ml)
	return ml.Contains(m)
}

func TestSearchEqualsMinimaxWithoutFeatures(t *testing.T) {
	is := is.New(t)

	tests := []struct {
		fen   string
		depth int
	}{
		{"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1", 3},
		{kiwipete, 2},
		{"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1", 4},
		{"r1bqkb1r/pppp1ppp/2n2n2/4p2Q/2B1P3/8/PPPP1PPP/RNB1K1NR w KQkq - 4 4", 3},
	}

	for _, tc := range tests {
		pos := mustFEN(is, tc.fen)
		want := negamax(pos.Copy(), eval.New(1), 0, tc.depth)

		e := newTestEngine(0)
		res, err := e.Search(pos, Limits{Depth: tc.depth})
		is.NoErr(err)
		is.Equal(res.Depth, tc.depth)
		is.Equal(res.Score, want) // alpha-beta must not change the minimax value
	}
}

func TestSearchMateInOne(t *testing.T) {
	is := is.New(t)
	pos := mustFEN(is, "r1bqkb1r/pppp1ppp/2n2n2/4p2Q/2B1P3/8/PPPP1PPP/RNB1K1NR w KQkq - 4 4")

	e := newTestEngine(AllFeatures)
	res, err := e.Search(pos, Limits{Depth: 5})
	is.NoErr(err)
	is.Equal(res.Move.String(), "h5f7")
	is.Equal(res.Score, MateIn(1))
	is.Equal(ScoreToString(res.Score), "Mate in 1")
}

func TestSearchMateInTwo(t *testing.T) {
	is := is.New(t)
	pos := mustFEN(is, "k7/8/8/8/8/8/2R5/3R3K w - - 0 1")

	e := newTestEngine(AllFeatures)
	// Move count pruning hides the quiet mating check at shallow depths,
	// so the mate only shows up around depth 10.
	res, err := e.Search(pos, Limits{Depth: 16, Mate: 2})
	is.NoErr(err)
	// Either rook cuts the king off on the b-file, the other mates on the a-file
	is.True(res.Move.String() == "c2b2" || res.Move.String() == "d1b1")
	is.Equal(res.Score, MateIn(3))
	is.True(res.Depth < 16) // the mate limit ends the search early
}

func TestSearchNoLegalMoves(t *testing.T) {
	is := is.New(t)
	e := newTestEngine(AllFeatures)

	// Checkmate
	res, err := e.Search(mustFEN(is, "k7/1Q6/1K6/8/8/8/8/8 b - - 0 1"), Limits{Depth: 3})
	is.True(errors.Is(err, ErrNoLegalMoves))
	is.Equal(res.Score, -ValueMate)
	is.Equal(res.Move, board.NoMove)

	// Stalemate
	res, err = e.Search(mustFEN(is, "k7/2Q5/1K6/8/8/8/8/8 b - - 0 1"), Limits{Depth: 3})
	is.True(errors.Is(err, ErrNoLegalMoves))
	is.Equal(res.Score, ValueDraw)
}

func TestNullMoveSkipsPawnEndings(t *testing.T) {
	is := is.New(t)

	// Without pieces a null move could hide a zugzwang, so the search with
	// only null move pruning enabled must still agree with minimax.
	for _, fen := range []string{
		"8/8/8/3k4/8/3K4/3P4/8 w - - 0 1",
		"8/8/3k4/3p4/3P4/3K4/8/8 w - - 0 1",
		"8/8/3k4/3p4/3P4/3K4/8/8 b - - 0 1",
	} {
		pos := mustFEN(is, fen)
		want := negamax(pos.Copy(), eval.New(1), 0, 5)

		e := newTestEngine(FeatureNullMove)
		res, err := e.Search(pos, Limits{Depth: 5})
		is.NoErr(err)
		is.Equal(res.Score, want)
	}
}

func TestSearchThreefoldRepetition(t *testing.T) {
	is := is.New(t)

	pos := board.NewPosition()
	for _, s := range []string{"g1f3", "g8f6", "f3g1", "f6g8", "g1f3", "g8f6", "f3g1"} {
		m, err := board.ParseMove(s, pos)
		is.NoErr(err)
		pos.DoMove(m)
	}
	back, err := board.ParseMove("f6g8", pos)
	is.NoErr(err)

	e := newTestEngine(0)
	res, err := e.Search(pos, Limits{Depth: 3, SearchMoves: []board.Move{back}})
	is.NoErr(err)
	is.Equal(res.Move, back)
	is.Equal(res.Score, ValueDraw)

	// With the draw jitter the score stays within one unit of a draw
	e = newTestEngine(AllFeatures)
	res, err = e.Search(pos, Limits{Depth: 6, SearchMoves: []board.Move{back}})
	is.NoErr(err)
	is.True(abs(res.Score) <= 1)
}

func TestSearchMultiPV(t *testing.T) {
	is := is.New(t)

	opts := DefaultOptions()
	opts.MultiPV = 3
	e := NewEngine(opts)

	lines := map[int]Info{}
	e.OnInfo = func(info Info) { lines[info.MultiPV] = info }

	res, err := e.Search(board.NewPosition(), Limits{Depth: 6})
	is.NoErr(err)
	is.Equal(len(lines), 3)

	seen := map[board.Move]bool{}
	for i := 1; i <= 3; i++ {
		l := lines[i]
		is.Equal(l.Depth, 6)
		is.True(len(l.PV) > 0)
		is.True(!seen[l.PV[0]]) // every line starts with a different move
		seen[l.PV[0]] = true
		if i > 1 {
			is.True(lines[i-1].Score >= l.Score)
		}
	}
	is.Equal(res.Move, lines[1].PV[0])
}

func TestSearchLazySMP(t *testing.T) {
	is := is.New(t)

	opts := DefaultOptions()
	opts.Threads = 4
	opts.HashMB = 8
	e := NewEngine(opts)

	pos := mustFEN(is, kiwipete)
	res, err := e.Search(pos, Limits{Depth: 7})
	is.NoErr(err)
	is.True(isLegal(pos, res.Move))
	is.True(res.Depth >= 7)
	is.True(res.Nodes > 0)
	is.Equal(res.PV[0], res.Move)
	is.True(e.HashFull() > 0)

	// Helpers keep searching until the main worker is done
	is.True(res.Nodes > e.pool.workers[0].Nodes())
}

func TestSearchPVIsLegal(t *testing.T) {
	is := is.New(t)
	pos := mustFEN(is, kiwipete)

	e := newTestEngine(AllFeatures)
	res, err := e.Search(pos, Limits{Depth: 8})
	is.NoErr(err)

	p := pos.Copy()
	for _, m := range res.PV {
		is.True(isLegal(p, m))
		p.DoMove(m)
	}
	if len(res.PV) > 1 {
		is.Equal(res.Ponder, res.PV[1])
	}
}

func TestSearchLimits(t *testing.T) {
	is := is.New(t)
	pos := mustFEN(is, kiwipete)
	e := newTestEngine(AllFeatures)

	start := time.Now()
	res, err := e.Search(pos, Limits{MoveTime: 200 * time.Millisecond})
	is.NoErr(err)
	is.True(time.Since(start) < 2*time.Second)
	is.True(isLegal(pos, res.Move))

	res, err = e.Search(pos, Limits{Nodes: 20000})
	is.NoErr(err)
	is.True(res.Nodes < 40000)
	is.True(isLegal(pos, res.Move))

	res, err = e.Search(pos, Limits{
		Time: [2]time.Duration{time.Second, time.Second},
		Inc:  [2]time.Duration{10 * time.Millisecond, 10 * time.Millisecond},
	})
	is.NoErr(err)
	is.True(time.Since(start) < 4*time.Second)
	is.True(isLegal(pos, res.Move))
}

func waitSearching(e *Engine) {
	for !e.Searching() {
		time.Sleep(time.Millisecond)
	}
}

func TestSearchStopAndBusy(t *testing.T) {
	is := is.New(t)
	e := newTestEngine(AllFeatures)

	done := make(chan Result)
	go func() {
		res, _ := e.Search(board.NewPosition(), Limits{Infinite: true})
		done <- res
	}()
	waitSearching(e)
	time.Sleep(50 * time.Millisecond)

	_, err := e.Search(board.NewPosition(), Limits{Depth: 1})
	is.True(errors.Is(err, ErrSearchRunning))
	is.True(errors.Is(e.SetHash(32), ErrSearchRunning))
	is.True(errors.Is(e.NewGame(), ErrSearchRunning))

	e.Stop()
	res := <-done
	is.True(res.Move != board.NoMove)
	is.NoErr(e.NewGame())
}

func TestSearchPonderHit(t *testing.T) {
	is := is.New(t)
	e := newTestEngine(AllFeatures)

	done := make(chan Result)
	go func() {
		res, _ := e.Search(board.NewPosition(), Limits{Depth: 4, Ponder: true})
		done <- res
	}()
	waitSearching(e)

	// The depth is reached quickly but the result waits for the GUI
	select {
	case <-done:
		t.Fatal("ponder search returned before ponderhit")
	case <-time.After(300 * time.Millisecond):
	}

	e.PonderHit()
	res := <-done
	is.True(res.Move != board.NoMove)
}

type lossProber struct{}

func (lossProber) Probe(pos *board.Position) tablebase.ProbeResult {
	return tablebase.ProbeResult{Found: pos.PieceCount() <= 3, WDL: tablebase.WDLLoss}
}
func (lossProber) MaxPieces() int  { return 3 }
func (lossProber) Available() bool { return true }

func TestSearchRootInTablebase(t *testing.T) {
	is := is.New(t)

	opts := DefaultOptions()
	opts.Tablebase = lossProber{}
	opts.TBProbeLimit = 3
	e := NewEngine(opts)

	var last Info
	e.OnInfo = func(info Info) { last = info }

	pos := mustFEN(is, "8/8/8/4k3/8/8/8/KQ6 w - - 0 1")
	res, err := e.Search(pos, Limits{Depth: 3})
	is.NoErr(err)
	is.True(isLegal(pos, res.Move))
	is.Equal(last.Score, ValueTB) // every move leads to a tablebase loss for black
	is.True(last.TBHits > 0)
}

func TestScoreToString(t *testing.T) {
	is := is.New(t)
	is.Equal(ScoreToString(MateIn(3)), "Mate in 2")
	is.Equal(ScoreToString(MatedIn(4)), "Mated in 2")
	is.Equal(ScoreToString(123), "+1.23")
	is.Equal(ScoreToString(-5), "-0.05")
	is.Equal(ScoreToString(ValueTB-3), "TB win")
}
