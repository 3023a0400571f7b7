package engine

import (
	"math"
	"time"

	"github.com/hailam/lazysearch/internal/board"
)

// TimeManager handles time allocation for searches.
type TimeManager struct {
	optimumTime time.Duration // Target time for this move
	maximumTime time.Duration // Hard limit checked inside the search
	startTime   time.Time     // When search started
}

// Init computes the budgets for a search. ply is the game ply of the root
// position and overhead the expected communication delay per move.
func (tm *TimeManager) Init(limits *Limits, us board.Color, ply int, overhead time.Duration, ponder bool) {
	tm.startTime = limits.startTime
	if limits.Time[us] == 0 {
		tm.optimumTime, tm.maximumTime = 0, 0
		return
	}

	ms := func(d time.Duration) float64 { return float64(d.Milliseconds()) }
	timeMs := ms(limits.Time[us])
	incMs := ms(limits.Inc[us])
	overheadMs := ms(overhead)

	// Plan for at most 50 moves
	mtg := 50
	if limits.MovesToGo > 0 {
		mtg = min(limits.MovesToGo, 50)
	}

	timeLeft := math.Max(1, timeMs+incMs*float64(mtg-1)-overheadMs*float64(2+mtg))

	var optScale, maxScale float64
	if limits.MovesToGo == 0 {
		// Larger increments allow spending a bit more
		optExtra := math.Max(1.0, math.Min(1.0+12.5*incMs/timeMs, 1.12))
		optScale = math.Min(0.0120+math.Pow(float64(ply)+3.0, 0.45)*0.0039, 0.2*timeMs/timeLeft) * optExtra
		maxScale = math.Min(7.0, 4.0+float64(ply)/12.0)
	} else {
		optScale = math.Min((0.88+float64(ply)/116.4)/float64(mtg), 0.88*timeMs/timeLeft)
		maxScale = math.Min(6.3, 1.5+0.11*float64(mtg))
	}

	optimum := optScale * timeLeft
	maximum := math.Min(0.84*timeMs-overheadMs, maxScale*optimum) - 10

	if ponder {
		optimum += optimum / 4
	}

	tm.optimumTime = time.Duration(math.Max(optimum, 1)) * time.Millisecond
	tm.maximumTime = time.Duration(math.Max(maximum, 1)) * time.Millisecond
}

// Elapsed returns the time elapsed since search started.
func (tm *TimeManager) Elapsed() time.Duration {
	return time.Since(tm.startTime)
}

// OptimumTime returns the target time for this move.
func (tm *TimeManager) OptimumTime() time.Duration {
	return tm.optimumTime
}

// MaximumTime returns the maximum time allowed.
func (tm *TimeManager) MaximumTime() time.Duration {
	return tm.maximumTime
}
