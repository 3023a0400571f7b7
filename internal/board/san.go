package board

import (
	"fmt"
	"strings"
)

// SAN renders a legal move in Standard Algebraic Notation.
func (p *Position) SAN(m Move) string {
	if !m.IsOK() {
		return m.String()
	}
	from, to := m.From(), m.To()
	pc := p.board[from]
	if pc == NoPiece {
		return m.String()
	}

	var sb strings.Builder
	switch {
	case m.IsCastling() && to > from:
		sb.WriteString("O-O")
	case m.IsCastling():
		sb.WriteString("O-O-O")
	default:
		pt := pc.Type()
		if pt != Pawn {
			sb.WriteByte("PNBRQK"[pt])
			sb.WriteString(p.disambiguation(m))
		}
		if p.IsCapture(m) {
			if pt == Pawn {
				sb.WriteByte('a' + byte(from.File()))
			}
			sb.WriteByte('x')
		}
		sb.WriteString(to.String())
		if m.IsPromotion() {
			sb.WriteByte('=')
			sb.WriteByte("PNBRQK"[m.Promotion()])
		}
	}

	if p.GivesCheck(m) {
		p.DoMove(m)
		mate := !p.HasLegalMoves()
		p.UndoMove(m)
		if mate {
			sb.WriteByte('#')
		} else {
			sb.WriteByte('+')
		}
	}
	return sb.String()
}

// disambiguation returns the origin file, rank or square needed to tell m
// apart from other legal moves of the same piece type to the same square.
func (p *Position) disambiguation(m Move) string {
	from, to := m.From(), m.To()
	pt := p.board[from].Type()

	var legal MoveList
	p.GenerateLegal(&legal)

	ambiguous, sameFile, sameRank := false, false, false
	for i := 0; i < legal.Len(); i++ {
		other := legal.Get(i)
		if other.To() != to || other.From() == from || p.board[other.From()].Type() != pt {
			continue
		}
		ambiguous = true
		sameFile = sameFile || other.From().File() == from.File()
		sameRank = sameRank || other.From().Rank() == from.Rank()
	}

	switch {
	case !ambiguous:
		return ""
	case !sameFile:
		return string(rune('a' + from.File()))
	case !sameRank:
		return string(rune('1' + from.Rank()))
	}
	return from.String()
}

// ParseSAN resolves a SAN string against the legal moves of the position.
func (p *Position) ParseSAN(s string) (Move, error) {
	orig := s
	s = strings.TrimRight(strings.TrimSpace(s), "+#!?")
	s = strings.ReplaceAll(s, "0", "O")

	var legal MoveList
	p.GenerateLegal(&legal)

	if s == "O-O" || s == "O-O-O" {
		for i := 0; i < legal.Len(); i++ {
			m := legal.Get(i)
			if m.IsCastling() && (m.To() > m.From()) == (s == "O-O") {
				return m, nil
			}
		}
		return NoMove, fmt.Errorf("illegal move %q in %s", orig, p.FEN())
	}

	promo := NoPieceType
	if idx := strings.IndexByte(s, '='); idx >= 0 && idx+1 < len(s) {
		promo = PieceFromChar(s[idx+1]).Type()
		s = s[:idx]
	}
	capture := strings.Contains(s, "x")
	s = strings.ReplaceAll(s, "x", "")

	pt := Pawn
	if len(s) > 0 && strings.IndexByte("NBRQK", s[0]) >= 0 {
		pt = PieceFromChar(s[0]).Type()
		s = s[1:]
	}
	if len(s) < 2 {
		return NoMove, fmt.Errorf("invalid move %q", orig)
	}
	dest, err := ParseSquare(s[len(s)-2:])
	if err != nil {
		return NoMove, fmt.Errorf("invalid move %q: %w", orig, err)
	}

	file, rank := -1, -1
	for _, c := range s[:len(s)-2] {
		switch {
		case c >= 'a' && c <= 'h':
			file = int(c - 'a')
		case c >= '1' && c <= '8':
			rank = int(c - '1')
		}
	}

	for i := 0; i < legal.Len(); i++ {
		m := legal.Get(i)
		from := m.From()
		switch {
		case m.To() != dest, p.board[from].Type() != pt:
		case file >= 0 && from.File() != file, rank >= 0 && from.Rank() != rank:
		case capture && !p.IsCapture(m):
		case promo != NoPieceType && (!m.IsPromotion() || m.Promotion() != promo):
		case promo == NoPieceType && m.IsPromotion() && m.Promotion() != Queen:
		default:
			return m, nil
		}
	}
	return NoMove, fmt.Errorf("illegal move %q in %s", orig, p.FEN())
}

// MovesToSAN converts a line of moves played from pos.
func MovesToSAN(pos *Position, moves []Move) []string {
	result := make([]string, 0, len(moves))
	p := pos.Copy()
	for _, m := range moves {
		if !p.PseudoLegal(m) || !p.Legal(m) {
			break
		}
		result = append(result, p.SAN(m))
		p.DoMove(m)
	}
	return result
}
