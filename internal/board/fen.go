package board

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// StartFEN is the FEN string for the starting position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// ErrInvalidFEN is wrapped by every FEN parsing failure.
var ErrInvalidFEN = errors.New("invalid FEN")

// ParseFEN parses a FEN string and returns a Position. The half-move clock
// and full-move number are optional.
func ParseFEN(fen string) (*Position, error) {
	parts := strings.Fields(fen)
	if len(parts) < 4 {
		return nil, fmt.Errorf("%w: need at least 4 fields, got %d", ErrInvalidFEN, len(parts))
	}

	pos := &Position{states: make([]StateInfo, 1, 256)}
	for sq := range pos.board {
		pos.board[sq] = NoPiece
	}
	st := pos.state()
	st.EnPassant = NoSquare
	st.Captured = NoPiece

	if err := parsePiecePlacement(pos, parts[0]); err != nil {
		return nil, err
	}

	switch parts[1] {
	case "w":
		pos.SideToMove = White
	case "b":
		pos.SideToMove = Black
	default:
		return nil, fmt.Errorf("%w: side to move %q", ErrInvalidFEN, parts[1])
	}

	cr, err := parseCastlingRights(parts[2])
	if err != nil {
		return nil, err
	}
	st.CastlingRights = cr & pos.castlingPossible()

	if parts[3] != "-" {
		sq, err := ParseSquare(parts[3])
		if err != nil {
			return nil, fmt.Errorf("%w: en passant square %q", ErrInvalidFEN, parts[3])
		}
		if pos.enPassantUsable(sq) {
			st.EnPassant = sq
		}
	}

	if len(parts) > 4 {
		hmc, err := strconv.Atoi(parts[4])
		if err != nil || hmc < 0 {
			return nil, fmt.Errorf("%w: half-move clock %q", ErrInvalidFEN, parts[4])
		}
		st.Rule50 = hmc
	}

	fullMove := 1
	if len(parts) > 5 {
		fullMove, err = strconv.Atoi(parts[5])
		if err != nil {
			return nil, fmt.Errorf("%w: full-move number %q", ErrInvalidFEN, parts[5])
		}
	}
	pos.gamePly = max(2*(fullMove-1), 0)
	if pos.SideToMove == Black {
		pos.gamePly++
	}

	if err := pos.Validate(); err != nil {
		return nil, err
	}

	st.Key, st.PawnKey = pos.computeKeys()
	st.Checkers = pos.AttackersTo(pos.KingSquare[pos.SideToMove], pos.AllOccupied) & pos.Occupied[pos.SideToMove.Other()]
	pos.setCheckInfo(st)

	return pos, nil
}

// parsePiecePlacement parses the piece placement section of a FEN string.
func parsePiecePlacement(pos *Position, placement string) error {
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return fmt.Errorf("%w: need 8 ranks, got %d", ErrInvalidFEN, len(ranks))
	}

	for i, rankStr := range ranks {
		rank := 7 - i // FEN starts from rank 8
		file := 0

		for _, c := range rankStr {
			if file > 7 {
				return fmt.Errorf("%w: too many squares in rank %d", ErrInvalidFEN, rank+1)
			}
			if c >= '1' && c <= '8' {
				file += int(c - '0')
				continue
			}
			piece := PieceFromChar(byte(c))
			if piece == NoPiece {
				return fmt.Errorf("%w: piece character %q", ErrInvalidFEN, c)
			}
			pos.putPiece(piece, NewSquare(file, rank))
			file++
		}

		if file != 8 {
			return fmt.Errorf("%w: rank %d has %d squares", ErrInvalidFEN, rank+1, file)
		}
	}
	return nil
}

func parseCastlingRights(castling string) (CastlingRights, error) {
	if castling == "-" {
		return NoCastling, nil
	}
	var cr CastlingRights
	for _, c := range castling {
		switch c {
		case 'K':
			cr |= WhiteKingSide
		case 'Q':
			cr |= WhiteQueenSide
		case 'k':
			cr |= BlackKingSide
		case 'q':
			cr |= BlackQueenSide
		default:
			return NoCastling, fmt.Errorf("%w: castling character %q", ErrInvalidFEN, c)
		}
	}
	return cr, nil
}

// castlingPossible drops rights whose king or rook is not on its home square.
func (p *Position) castlingPossible() CastlingRights {
	var cr CastlingRights
	if p.board[E1] == WhiteKing {
		if p.board[H1] == WhiteRook {
			cr |= WhiteKingSide
		}
		if p.board[A1] == WhiteRook {
			cr |= WhiteQueenSide
		}
	}
	if p.board[E8] == BlackKing {
		if p.board[H8] == BlackRook {
			cr |= BlackKingSide
		}
		if p.board[A8] == BlackRook {
			cr |= BlackQueenSide
		}
	}
	return cr
}

// enPassantUsable reports whether the side to move has a pawn that could
// capture on sq behind a pawn that just advanced two squares.
func (p *Position) enPassantUsable(sq Square) bool {
	us := p.SideToMove
	them := us.Other()
	if sq.RelativeRank(us) != 5 {
		return false
	}
	pushed := epCaptureSquare(sq, us)
	return p.board[pushed] == NewPiece(Pawn, them) &&
		p.board[sq] == NoPiece &&
		PawnAttacks(sq, them)&p.Pieces[us][Pawn] != 0
}

// FEN returns the FEN representation of the position.
func (p *Position) FEN() string {
	var sb strings.Builder

	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			piece := p.board[NewSquare(file, rank)]
			if piece == NoPiece {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			sb.WriteString(piece.String())
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}

	sb.WriteByte(' ')
	if p.SideToMove == White {
		sb.WriteByte('w')
	} else {
		sb.WriteByte('b')
	}

	st := p.state()
	sb.WriteByte(' ')
	sb.WriteString(st.CastlingRights.String())
	sb.WriteByte(' ')
	sb.WriteString(st.EnPassant.String())
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(st.Rule50))
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(1 + (p.gamePly-int(p.SideToMove))/2))

	return sb.String()
}
