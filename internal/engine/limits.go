package engine

import (
	"time"

	"github.com/hailam/lazysearch/internal/board"
)

// Limits constrains one search. It is not modified once the search has
// started.
type Limits struct {
	Time      [2]time.Duration // wtime, btime
	Inc       [2]time.Duration // winc, binc
	MovesToGo int              // moves until next time control (0 = sudden death)
	MoveTime  time.Duration    // fixed time per move
	Depth     int              // maximum depth (0 = no limit)
	Nodes     uint64           // maximum nodes (0 = no limit)
	Mate      int              // stop once a mate in this many moves is found
	Infinite  bool             // search until stopped
	Ponder    bool             // search on the opponent's time

	// SearchMoves restricts the root to these moves when not empty.
	SearchMoves []board.Move

	startTime time.Time
}

// UseTimeManagement reports whether the clock drives the search length.
func (l *Limits) UseTimeManagement() bool {
	return l.Time[board.White] != 0 || l.Time[board.Black] != 0
}

// Elapsed is the time since the search started.
func (l *Limits) Elapsed() time.Duration {
	return time.Since(l.startTime)
}
