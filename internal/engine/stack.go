package engine

import (
	"github.com/hailam/lazysearch/internal/board"
)

// stackOffset frames sit below the root so that ss-1 ... ss-7 are always
// valid. Two more sit above MaxPly for ss+1 and ss+2.
const (
	stackOffset = 7
	stackSize   = MaxPly + stackOffset + 3
)

// Stack is one frame of the search stack, indexed by ply.
type Stack struct {
	contHist         *PieceToHistory
	ply              int
	currentMove      board.Move
	excludedMove     board.Move
	killers          [2]board.Move
	staticEval       int
	statScore        int
	moveCount        int
	inCheck          bool
	ttPv             bool
	ttHit            bool
	doubleExtensions int
	cutoffCnt        int
}

// ss returns the frame for ply. Negative plies address the sentinels.
func (w *Worker) ss(ply int) *Stack {
	return &w.stack[ply+stackOffset]
}

// resetStack zeroes the frames and points the sentinels at the neutral
// continuation table.
func (w *Worker) resetStack() {
	sentinel := w.hist.sentinel()
	for i := range w.stack {
		w.stack[i] = Stack{contHist: sentinel}
	}
	for i := -stackOffset; i < 0; i++ {
		w.ss(i).staticEval = ValueNone
	}
	for i := 0; i <= MaxPly+2; i++ {
		w.ss(i).ply = i
	}
}

// contHistories collects the continuation tables of the 1st, 2nd, 3rd,
// 4th and 6th previous plies. Slot 4 is unused and aliases slot 3.
func (w *Worker) contHistories(ply int) *[6]*PieceToHistory {
	ch := &w.contHistBuf[ply+stackOffset]
	ch[0] = w.ss(ply - 1).contHist
	ch[1] = w.ss(ply - 2).contHist
	ch[2] = w.ss(ply - 3).contHist
	ch[3] = w.ss(ply - 4).contHist
	ch[4] = ch[3]
	ch[5] = w.ss(ply - 6).contHist
	return ch
}

// pvLine is the triangular principal variation table.
type pvLine struct {
	moves [MaxPly + 2][MaxPly + 2]board.Move
	n     [MaxPly + 2]int
}

func (p *pvLine) clear(ply int) { p.n[ply] = 0 }

// update sets the line at ply to m followed by the child's line.
func (p *pvLine) update(ply int, m board.Move) {
	p.moves[ply][0] = m
	n := copy(p.moves[ply][1:], p.moves[ply+1][:p.n[ply+1]])
	p.n[ply] = n + 1
}

func (p *pvLine) line(ply int) []board.Move {
	return p.moves[ply][:p.n[ply]]
}
