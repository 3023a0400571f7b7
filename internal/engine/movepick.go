package engine

import (
	"math"

	"github.com/hailam/lazysearch/internal/board"
)

type pickStage uint8

const (
	stageMainTT pickStage = iota
	stageCaptureInit
	stageGoodCapture
	stageRefutation
	stageQuietInit
	stageQuiet
	stageBadCapture

	stageEvasionTT
	stageEvasionInit
	stageEvasion

	stageProbCutTT
	stageProbCutInit
	stageProbCut

	stageQSearchTT
	stageQCaptureInit
	stageQCapture
	stageQCheckInit
	stageQCheck
)

// MovePicker hands out the moves of a node one at a time, best guess
// first: the hash move, captures that do not lose material, killers and
// the counter move, quiets by history, then the losing captures. Each
// move is returned at most once. Moves are pseudo-legal; the caller
// checks legality.
type MovePicker struct {
	pos      *board.Position
	h        *Histories
	contHist *[6]*PieceToHistory

	ttMove      board.Move
	refutations [3]board.Move
	nRefute     int

	stage     pickStage
	depth     int
	threshold int

	moves            board.MoveList
	cur, end, endBad int
	refuteIdx        int
	pawnIdx          int
}

// NewMovePicker sets up ordering for the main search. killers and
// counter are tried after the winning captures.
func NewMovePicker(pos *board.Position, ttMove board.Move, depth int, h *Histories,
	contHist *[6]*PieceToHistory, counter board.Move, killers [2]board.Move) *MovePicker {
	mp := &MovePicker{
		pos:      pos,
		h:        h,
		contHist: contHist,
		ttMove:   ttMove,
		depth:    depth,
		pawnIdx:  pawnHistoryIndex(pos),
	}
	for _, m := range [3]board.Move{killers[0], killers[1], counter} {
		if m == board.NoMove || mp.isRefutation(m) {
			continue
		}
		mp.refutations[mp.nRefute] = m
		mp.nRefute++
	}

	if pos.InCheck() {
		mp.stage = stageEvasionTT
	} else {
		mp.stage = stageMainTT
	}
	if ttMove == board.NoMove || !pos.PseudoLegal(ttMove) {
		mp.ttMove = board.NoMove
		mp.stage++
	}
	return mp
}

// NewQSearchPicker orders moves for the quiescence search: captures and
// queen promotions, then quiet checks when depth is DepthQSChecks. In
// check every evasion is generated.
func NewQSearchPicker(pos *board.Position, ttMove board.Move, depth int, h *Histories,
	contHist *[6]*PieceToHistory) *MovePicker {
	mp := &MovePicker{
		pos:      pos,
		h:        h,
		contHist: contHist,
		ttMove:   ttMove,
		depth:    depth,
		pawnIdx:  pawnHistoryIndex(pos),
	}
	if pos.InCheck() {
		mp.stage = stageEvasionTT
	} else {
		mp.stage = stageQSearchTT
	}
	if ttMove == board.NoMove || !pos.PseudoLegal(ttMove) {
		mp.ttMove = board.NoMove
		mp.stage++
	}
	return mp
}

// NewProbCutPicker returns only captures whose static exchange value
// reaches threshold.
func NewProbCutPicker(pos *board.Position, ttMove board.Move, threshold int, h *Histories) *MovePicker {
	mp := &MovePicker{
		pos:       pos,
		h:         h,
		ttMove:    ttMove,
		threshold: threshold,
		stage:     stageProbCutTT,
	}
	if ttMove == board.NoMove || !pos.CaptureStage(ttMove) || !pos.PseudoLegal(ttMove) || !pos.SeeGE(ttMove, threshold) {
		mp.ttMove = board.NoMove
		mp.stage++
	}
	return mp
}

func (mp *MovePicker) isRefutation(m board.Move) bool {
	for i := 0; i < mp.nRefute; i++ {
		if mp.refutations[i] == m {
			return true
		}
	}
	return false
}

// attacksBy is the union of the attacks of c's pieces of type pt.
func attacksBy(pos *board.Position, c board.Color, pt board.PieceType) board.Bitboard {
	if pt == board.Pawn {
		return pos.Pieces[c][board.Pawn].PawnAttacksBB(c)
	}
	var att board.Bitboard
	for bb := pos.Pieces[c][pt]; bb != 0; {
		att |= board.Attacks(pt, bb.PopLSB(), pos.AllOccupied)
	}
	return att
}

func capturedType(pos *board.Position, m board.Move) board.PieceType {
	if m.IsEnPassant() {
		return board.Pawn
	}
	return pos.PieceOn(m.To()).Type()
}

func (mp *MovePicker) scoreCaptures() {
	pos := mp.pos
	for i := mp.cur; i < mp.end; i++ {
		sm := mp.moves.At(i)
		m := sm.Move
		captured := capturedType(pos, m)
		sm.Score = 7*board.PieceValue[captured] +
			mp.h.capture.get(pos.MovedPiece(m), m.To(), captured)
	}
}

func (mp *MovePicker) scoreQuiets() {
	pos := mp.pos
	us := pos.SideToMove
	them := us.Other()

	byPawn := attacksBy(pos, them, board.Pawn)
	byMinor := attacksBy(pos, them, board.Knight) | attacksBy(pos, them, board.Bishop) | byPawn
	byRook := attacksBy(pos, them, board.Rook) | byMinor

	threatened := pos.Pieces[us][board.Queen]&byRook |
		pos.Pieces[us][board.Rook]&byMinor |
		(pos.Pieces[us][board.Knight]|pos.Pieces[us][board.Bishop])&byPawn

	ch := mp.contHist
	for i := mp.cur; i < mp.end; i++ {
		sm := mp.moves.At(i)
		m := sm.Move
		pc := pos.MovedPiece(m)
		pt := pc.Type()
		from, to := m.From(), m.To()

		v := 2 * mp.h.main.get(us, m)
		v += 2 * mp.h.pawn.get(mp.pawnIdx, pc, to)
		v += 2 * ch[0].get(pc, to)
		v += ch[1].get(pc, to)
		v += ch[2].get(pc, to) / 4
		v += ch[3].get(pc, to)
		v += ch[5].get(pc, to)

		if pos.CheckSquares(pt).Has(to) {
			v += 16384
		}

		if threatened.Has(from) {
			// Moving a threatened piece out of danger
			switch {
			case pt == board.Queen && !byRook.Has(to):
				v += 50000
			case pt == board.Rook && !byMinor.Has(to):
				v += 25000
			case !byPawn.Has(to):
				v += 15000
			}
		} else {
			// Putting a piece en prise
			switch pt {
			case board.Queen:
				v -= 50000*boolInt(byRook.Has(to)) + 10000*boolInt(byMinor.Has(to)) + 20000*boolInt(byPawn.Has(to))
			case board.Rook:
				v -= 25000*boolInt(byMinor.Has(to)) + 10000*boolInt(byPawn.Has(to))
			case board.Pawn:
			default:
				v -= 15000 * boolInt(byPawn.Has(to))
			}
		}
		sm.Score = v
	}
}

func (mp *MovePicker) scoreEvasions() {
	pos := mp.pos
	us := pos.SideToMove
	for i := mp.cur; i < mp.end; i++ {
		sm := mp.moves.At(i)
		m := sm.Move
		pc := pos.MovedPiece(m)
		if pos.CaptureStage(m) {
			sm.Score = board.PieceValue[capturedType(pos, m)] - int(pc.Type()) + 1<<28
		} else {
			sm.Score = mp.h.main.get(us, m) +
				mp.contHist[0].get(pc, m.To()) +
				mp.h.pawn.get(mp.pawnIdx, pc, m.To())
		}
	}
}

// partialInsertionSort sorts moves scoring at least limit to the front in
// descending order. The rest keep no particular order.
func partialInsertionSort(moves []board.ScoredMove, limit int) {
	sortedEnd := 0
	for p := 1; p < len(moves); p++ {
		if moves[p].Score < limit {
			continue
		}
		tmp := moves[p]
		sortedEnd++
		moves[p] = moves[sortedEnd]
		q := sortedEnd
		for ; q > 0 && moves[q-1].Score < tmp.Score; q-- {
			moves[q] = moves[q-1]
		}
		moves[q] = tmp
	}
}

func (mp *MovePicker) sortRange(limit int) {
	partialInsertionSort(mp.moves.Scored()[mp.cur:mp.end], limit)
}

// pickBest moves the highest scoring remaining move to cur.
func (mp *MovePicker) pickBest() {
	best := mp.cur
	for i := mp.cur + 1; i < mp.end; i++ {
		if mp.moves.At(i).Score > mp.moves.At(best).Score {
			best = i
		}
	}
	mp.moves.Swap(mp.cur, best)
}

// Next returns the next move, or board.NoMove when the node is exhausted.
// With skipQuiets set the remaining quiet moves are dropped.
func (mp *MovePicker) Next(skipQuiets bool) board.Move {
	pos := mp.pos
	for {
		switch mp.stage {
		case stageMainTT, stageEvasionTT, stageQSearchTT, stageProbCutTT:
			mp.stage++
			return mp.ttMove

		case stageCaptureInit, stageProbCutInit, stageQCaptureInit:
			mp.moves.Clear()
			pos.GenerateCaptures(&mp.moves)
			mp.cur, mp.endBad, mp.end = 0, 0, mp.moves.Len()
			mp.scoreCaptures()
			mp.sortRange(math.MinInt)
			mp.stage++

		case stageGoodCapture:
			for mp.cur < mp.end {
				sm := *mp.moves.At(mp.cur)
				mp.cur++
				if sm.Move == mp.ttMove {
					continue
				}
				if pos.SeeGE(sm.Move, -sm.Score/18) {
					return sm.Move
				}
				// Losing captures wait at the front of the list
				*mp.moves.At(mp.endBad) = sm
				mp.endBad++
			}
			mp.refuteIdx = 0
			mp.stage++

		case stageRefutation:
			for mp.refuteIdx < mp.nRefute {
				m := mp.refutations[mp.refuteIdx]
				mp.refuteIdx++
				if m != mp.ttMove && !pos.CaptureStage(m) && pos.PseudoLegal(m) {
					return m
				}
			}
			mp.stage++

		case stageQuietInit:
			if !skipQuiets {
				mp.moves.Truncate(mp.endBad)
				pos.GenerateQuiets(&mp.moves)
				mp.cur, mp.end = mp.endBad, mp.moves.Len()
				mp.scoreQuiets()
				mp.sortRange(-3000 * mp.depth)
			}
			mp.stage++

		case stageQuiet:
			if !skipQuiets {
				for mp.cur < mp.end {
					m := mp.moves.Get(mp.cur)
					mp.cur++
					if m != mp.ttMove && !mp.isRefutation(m) {
						return m
					}
				}
			}
			mp.cur, mp.end = 0, mp.endBad
			mp.stage++

		case stageBadCapture:
			for mp.cur < mp.end {
				m := mp.moves.Get(mp.cur)
				mp.cur++
				if m != mp.ttMove {
					return m
				}
			}
			return board.NoMove

		case stageEvasionInit:
			mp.moves.Clear()
			pos.GenerateEvasions(&mp.moves)
			mp.cur, mp.end = 0, mp.moves.Len()
			mp.scoreEvasions()
			mp.stage++

		case stageEvasion:
			for mp.cur < mp.end {
				mp.pickBest()
				m := mp.moves.Get(mp.cur)
				mp.cur++
				if m != mp.ttMove {
					return m
				}
			}
			return board.NoMove

		case stageProbCut:
			for mp.cur < mp.end {
				m := mp.moves.Get(mp.cur)
				mp.cur++
				if m != mp.ttMove && pos.SeeGE(m, mp.threshold) {
					return m
				}
			}
			return board.NoMove

		case stageQCapture:
			for mp.cur < mp.end {
				m := mp.moves.Get(mp.cur)
				mp.cur++
				if m != mp.ttMove {
					return m
				}
			}
			if mp.depth != DepthQSChecks {
				return board.NoMove
			}
			mp.stage++

		case stageQCheckInit:
			mp.moves.Clear()
			pos.GenerateQuietChecks(&mp.moves)
			mp.cur, mp.end = 0, mp.moves.Len()
			mp.stage++

		case stageQCheck:
			for mp.cur < mp.end {
				m := mp.moves.Get(mp.cur)
				mp.cur++
				if m != mp.ttMove {
					return m
				}
			}
			return board.NoMove

		default:
			return board.NoMove
		}
	}
}
