package engine

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hailam/lazysearch/internal/board"
	"github.com/hailam/lazysearch/internal/eval"
	"github.com/hailam/lazysearch/internal/tablebase"
)

var (
	// ErrSearchRunning is returned when a setting that needs an idle
	// engine is changed during a search, or a second search is started.
	ErrSearchRunning = errors.New("search already running")
	// ErrNoLegalMoves is returned by Search for checkmate and stalemate.
	ErrNoLegalMoves = errors.New("no legal moves")
)

// Options configures an Engine.
type Options struct {
	HashMB       int
	Threads      int
	MultiPV      int
	MoveOverhead time.Duration
	Ponder       bool // the GUI may ponder, so budgets may be slightly larger

	Tablebase    tablebase.Prober
	TBProbeLimit int  // largest piece count probed, 0 disables probing
	TBProbeDepth int  // minimum depth for probes at the cardinality limit
	TBRule50     bool // score cursed wins and blessed losses as draws

	Params    *Params
	Features  Features
	Evaluator EvaluatorFactory
}

// DefaultOptions plays with every search feature and one thread.
func DefaultOptions() Options {
	return Options{
		HashMB:       16,
		Threads:      1,
		MultiPV:      1,
		MoveOverhead: 10 * time.Millisecond,
		TBProbeDepth: 1,
		TBRule50:     true,
		Features:     AllFeatures,
	}
}

// Engine is the search facade. It owns the transposition table and the
// worker pool and runs at most one search at a time.
type Engine struct {
	tt   *TranspositionTable
	pool *Pool
	opts Options

	searching atomic.Bool

	// Callbacks, called from the searching goroutine
	OnInfo     func(Info)
	OnCurrMove func(CurrMove)
}

// NewEngine creates an engine. Zero sizes and counts in opts take their
// defaults; Features is used as given, so start from DefaultOptions.
func NewEngine(opts Options) *Engine {
	def := DefaultOptions()
	if opts.HashMB <= 0 {
		opts.HashMB = def.HashMB
	}
	if opts.Threads <= 0 {
		opts.Threads = def.Threads
	}
	if opts.MultiPV <= 0 {
		opts.MultiPV = def.MultiPV
	}
	if opts.Params == nil {
		params := DefaultParams
		opts.Params = &params
	}
	if opts.Evaluator == nil {
		opts.Evaluator = func() Evaluator { return eval.New(1) }
	}
	if opts.Tablebase == nil {
		opts.Tablebase = tablebase.NoopProber{}
	}

	tt := NewTranspositionTable(opts.HashMB)
	e := &Engine{
		tt:   tt,
		pool: newPool(tt, opts.Params, opts.Features, opts.Evaluator),
		opts: opts,
	}
	e.pool.setThreads(opts.Threads)
	e.applyOptions()

	log.Info().
		Int("hash-mb", tt.SizeMB()).
		Int("threads", opts.Threads).
		Int("multipv", opts.MultiPV).
		Msg("engine-ready")
	return e
}

func (e *Engine) applyOptions() {
	p := e.pool
	p.multiPV = e.opts.MultiPV
	p.moveOverhead = e.opts.MoveOverhead
	p.ponderOption = e.opts.Ponder
	p.tb = e.opts.Tablebase
	p.tbProbeLimit = e.opts.TBProbeLimit
	p.tbProbeDepth = e.opts.TBProbeDepth
	p.tbUseRule50 = e.opts.TBRule50
}

// Options returns the current configuration.
func (e *Engine) Options() Options { return e.opts }

// Searching reports whether a search is running.
func (e *Engine) Searching() bool { return e.searching.Load() }

// Outcome is the result of a search started with Start.
type Outcome struct {
	Result Result
	Err    error
}

// Start accepts a search on pos and runs it on a new goroutine. The stop
// and ponder flags are reset before Start returns, so a Stop or PonderHit
// issued after Start is never lost. The channel delivers one Outcome.
// pos is not modified.
func (e *Engine) Start(pos *board.Position, limits Limits) (<-chan Outcome, error) {
	if !e.searching.CompareAndSwap(false, true) {
		return nil, ErrSearchRunning
	}

	e.pool.onInfo = e.OnInfo
	e.pool.onCurrMove = e.OnCurrMove
	e.pool.arm(&limits)

	pos = pos.Copy()
	done := make(chan Outcome, 1)
	go func() {
		res, err := e.pool.search(pos, limits)
		if err != nil && !errors.Is(err, ErrNoLegalMoves) {
			err = fmt.Errorf("search %s: %w", pos.FEN(), err)
		}
		e.searching.Store(false)
		done <- Outcome{Result: res, Err: err}
	}()
	return done, nil
}

// Search runs a search on pos and blocks until it ends. pos is not
// modified. For checkmate and stalemate it returns ErrNoLegalMoves along
// with the terminal score.
func (e *Engine) Search(pos *board.Position, limits Limits) (Result, error) {
	done, err := e.Start(pos, limits)
	if err != nil {
		return Result{}, err
	}
	out := <-done
	return out.Result, out.Err
}

// Stop ends the running search. The search still returns its best move.
func (e *Engine) Stop() {
	e.pool.stop.Store(true)
}

// PonderHit tells a ponder search that the expected move was played.
func (e *Engine) PonderHit() {
	e.pool.ponderHit()
}

// NodesSearched returns the node count of the current or last search.
func (e *Engine) NodesSearched() uint64 { return e.pool.NodesSearched() }

// HashFull returns the transposition table usage in permille.
func (e *Engine) HashFull() int { return e.tt.HashFull() }

// NewGame forgets everything learnt from earlier positions.
func (e *Engine) NewGame() error {
	if e.Searching() {
		return ErrSearchRunning
	}
	e.tt.Clear(len(e.pool.workers))
	e.pool.clear()
	return nil
}

// ClearHash empties the transposition table.
func (e *Engine) ClearHash() error {
	if e.Searching() {
		return ErrSearchRunning
	}
	e.tt.Clear(len(e.pool.workers))
	return nil
}

// SetHash resizes the transposition table, dropping its contents.
func (e *Engine) SetHash(mb int) error {
	if e.Searching() {
		return ErrSearchRunning
	}
	e.tt.Resize(mb, len(e.pool.workers))
	e.opts.HashMB = e.tt.SizeMB()
	return nil
}

// SetThreads changes the number of workers. Histories start empty.
func (e *Engine) SetThreads(n int) error {
	if e.Searching() {
		return ErrSearchRunning
	}
	e.opts.Threads = max(1, n)
	e.pool.setThreads(e.opts.Threads)
	return nil
}

// SetMultiPV sets the number of principal variations searched.
func (e *Engine) SetMultiPV(n int) error {
	if e.Searching() {
		return ErrSearchRunning
	}
	e.opts.MultiPV = max(1, n)
	e.applyOptions()
	return nil
}

// SetMoveOverhead sets the time reserved per move for communication.
func (e *Engine) SetMoveOverhead(d time.Duration) error {
	if e.Searching() {
		return ErrSearchRunning
	}
	e.opts.MoveOverhead = max(0, d)
	e.applyOptions()
	return nil
}

// SetPonder records whether the GUI may ponder.
func (e *Engine) SetPonder(on bool) error {
	if e.Searching() {
		return ErrSearchRunning
	}
	e.opts.Ponder = on
	e.applyOptions()
	return nil
}

// SetTablebase sets the tablebase oracle and its probe limits.
func (e *Engine) SetTablebase(p tablebase.Prober, probeLimit, probeDepth int, rule50 bool) error {
	if e.Searching() {
		return ErrSearchRunning
	}
	if p == nil {
		p = tablebase.NoopProber{}
	}
	e.opts.Tablebase = p
	e.opts.TBProbeLimit = probeLimit
	e.opts.TBProbeDepth = probeDepth
	e.opts.TBRule50 = rule50
	e.applyOptions()
	return nil
}

// ScoreToString converts a score to a human-readable string.
func ScoreToString(score int) string {
	switch {
	case score >= ValueMateInMaxPly:
		return fmt.Sprintf("Mate in %d", (ValueMate-score+1)/2)
	case score <= ValueMatedInMaxPly:
		return fmt.Sprintf("Mated in %d", (ValueMate+score)/2)
	case IsWin(score):
		return "TB win"
	case IsLoss(score):
		return "TB loss"
	}

	// Convert centipawns to pawns
	sign := "+"
	if score < 0 {
		sign = "-"
		score = -score
	}
	return fmt.Sprintf("%s%d.%02d", sign, score/100, score%100)
}
