package tablebase

import (
	"github.com/hailam/lazysearch/internal/board"
)

// WDL is a win/draw/loss result from the side to move's point of view.
type WDL int

const (
	WDLLoss        WDL = -2
	WDLBlessedLoss WDL = -1 // loss, but the fifty-move rule saves it
	WDLDraw        WDL = 0
	WDLCursedWin   WDL = 1 // win, but the fifty-move rule spoils it
	WDLWin         WDL = 2
)

func (w WDL) String() string {
	switch w {
	case WDLLoss:
		return "loss"
	case WDLBlessedLoss:
		return "blessed-loss"
	case WDLCursedWin:
		return "cursed-win"
	case WDLWin:
		return "win"
	}
	return "draw"
}

// ProbeResult contains the result of a tablebase probe.
type ProbeResult struct {
	Found bool
	WDL   WDL
	DTZ   int // Distance to zeroing move (pawn move or capture)
}

// Prober is the interface for tablebase probing. The search probes only
// positions without castling rights right after a zeroing move, at or
// below MaxPieces pieces.
type Prober interface {
	// Probe looks up a position in the tablebase.
	// Returns win/draw/loss information if the position is in the tablebase.
	Probe(pos *board.Position) ProbeResult

	// MaxPieces returns the maximum number of pieces supported.
	MaxPieces() int

	// Available returns true if tablebases are loaded and available.
	Available() bool
}

// NoopProber is a prober that always returns "not found".
// Use this as a placeholder when tablebases are not available.
type NoopProber struct{}

func (NoopProber) Probe(pos *board.Position) ProbeResult {
	return ProbeResult{Found: false}
}

func (NoopProber) MaxPieces() int {
	return 0
}

func (NoopProber) Available() bool {
	return false
}
