// Package uci implements the Universal Chess Interface front end of the
// search engine.
package uci

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/hailam/lazysearch/internal/board"
	"github.com/hailam/lazysearch/internal/config"
	"github.com/hailam/lazysearch/internal/engine"
	"github.com/hailam/lazysearch/internal/storage"
)

const (
	engineName   = "lazysearch"
	engineAuthor = "the lazysearch authors"
)

// UCI implements the Universal Chess Interface protocol.
type UCI struct {
	engine   *engine.Engine
	cfg      *config.Config
	store    *storage.Storage // nil when persistence is off
	position *board.Position

	out   io.Writer
	outMu sync.Mutex

	searchDone chan struct{}
}

// New creates a new UCI protocol handler writing to out. store may be nil.
func New(eng *engine.Engine, cfg *config.Config, store *storage.Storage, out io.Writer) *UCI {
	return &UCI{
		engine:   eng,
		cfg:      cfg,
		store:    store,
		position: board.NewPosition(),
		out:      out,
	}
}

func (u *UCI) send(format string, args ...any) {
	u.outMu.Lock()
	defer u.outMu.Unlock()
	fmt.Fprintf(u.out, format+"\n", args...)
}

// Run reads commands from in until "quit" or end of input.
func (u *UCI) Run(in io.Reader) error {
	scanner := bufio.NewScanner(in)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !u.Execute(line) {
			return nil
		}
	}
	u.handleStop()
	return scanner.Err()
}

// Execute runs one command line. It returns false on "quit".
func (u *UCI) Execute(line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return true
	}
	cmd, args := parts[0], parts[1:]

	switch cmd {
	case "uci":
		u.handleUCI()
	case "isready":
		u.send("readyok")
	case "ucinewgame":
		u.handleNewGame()
	case "position":
		u.handlePosition(args)
	case "go":
		u.handleGo(args)
	case "stop":
		u.handleStop()
	case "ponderhit":
		u.engine.PonderHit()
	case "setoption":
		u.handleSetOption(args)
	case "quit":
		u.handleStop()
		return false
	// Debug commands
	case "d":
		u.send("%s\nFen: %s\nKey: %016x", u.position.String(), u.position.FEN(), u.position.Key())
	case "perft":
		depth := 5
		if len(args) > 0 {
			depth, _ = strconv.Atoi(args[0])
		}
		u.handlePerft(depth)
	default:
		u.send("info string unknown command: %s", line)
	}
	return true
}

type option struct {
	name string
	typ  string
	def  string
	min  int
	max  int
}

func (o option) String() string {
	s := fmt.Sprintf("option name %s type %s", o.name, o.typ)
	if o.typ != "button" {
		s += " default " + o.def
	}
	if o.typ == "spin" {
		s += fmt.Sprintf(" min %d max %d", o.min, o.max)
	}
	return s
}

func (u *UCI) options() []option {
	c := u.cfg
	return []option{
		{"Hash", "spin", strconv.Itoa(c.HashMB), 1, 33554432},
		{"Clear Hash", "button", "", 0, 0},
		{"Threads", "spin", strconv.Itoa(c.Threads), 1, 1024},
		{"MultiPV", "spin", strconv.Itoa(c.MultiPV), 1, 256},
		{"Move Overhead", "spin", strconv.Itoa(int(c.MoveOverhead.Milliseconds())), 0, 5000},
		{"Ponder", "check", strconv.FormatBool(c.Ponder), 0, 0},
		{"SyzygyProbeLimit", "spin", strconv.Itoa(c.SyzygyProbeLimit), 0, 7},
		{"SyzygyProbeDepth", "spin", strconv.Itoa(c.SyzygyProbeDepth), 1, 100},
		{"Syzygy50MoveRule", "check", strconv.FormatBool(c.Syzygy50MoveRule), 0, 0},
		{"UseLichessTB", "check", strconv.FormatBool(c.UseLichessTB), 0, 0},
	}
}

// handleUCI responds to the "uci" command.
func (u *UCI) handleUCI() {
	lines := lo.Map(u.options(), func(o option, _ int) string { return o.String() })

	u.send("id name %s", engineName)
	u.send("id author %s", engineAuthor)
	u.send("")
	u.send("%s", strings.Join(lines, "\n"))
	u.send("uciok")
}

// handleNewGame resets the engine for a new game.
func (u *UCI) handleNewGame() {
	u.handleStop()
	if err := u.engine.NewGame(); err != nil {
		u.send("info string %v", err)
	}
	u.position = board.NewPosition()
}

// handlePosition parses and sets up a position.
// Formats:
//   - position startpos
//   - position startpos moves e2e4 e7e5
//   - position fen <fen>
//   - position fen <fen> moves e2e4
func (u *UCI) handlePosition(args []string) {
	pos, err := ParsePosition(args)
	if err != nil {
		u.send("info string %v", err)
		return
	}
	u.position = pos
}

// ParsePosition builds the position described by the arguments of a
// "position" command. Moves are played on the board, so repetitions
// before the search root are known to the search.
func ParsePosition(args []string) (*board.Position, error) {
	if len(args) == 0 {
		return nil, errors.New("position: missing arguments")
	}

	movesAt := lo.IndexOf(args, "moves")
	if movesAt < 0 {
		movesAt = len(args)
	}

	var pos *board.Position
	switch args[0] {
	case "startpos":
		pos = board.NewPosition()
	case "fen":
		var err error
		if pos, err = board.ParseFEN(strings.Join(args[1:movesAt], " ")); err != nil {
			return nil, fmt.Errorf("position: %w", err)
		}
	default:
		return nil, fmt.Errorf("position: unknown argument %q", args[0])
	}

	if movesAt < len(args) {
		for _, s := range args[movesAt+1:] {
			m, err := board.ParseMove(s, pos)
			if err != nil {
				return nil, fmt.Errorf("position: %w", err)
			}
			pos.DoMove(m)
		}
	}
	return pos, nil
}

var goKeywords = []string{
	"searchmoves", "ponder", "wtime", "btime", "winc", "binc", "movestogo",
	"depth", "nodes", "mate", "movetime", "infinite", "perft",
}

// ParseGo converts the arguments of a "go" command into search limits.
// perft is non-zero for "go perft N".
func ParseGo(args []string, pos *board.Position) (limits engine.Limits, perft int, err error) {
	ms := func(s string) time.Duration {
		n, _ := strconv.Atoi(s)
		return time.Duration(n) * time.Millisecond
	}

	for i := 0; i < len(args); i++ {
		next := ""
		if i+1 < len(args) {
			next = args[i+1]
		}

		switch args[i] {
		case "searchmoves":
			for i+1 < len(args) && !lo.Contains(goKeywords, args[i+1]) {
				m, err := board.ParseMove(args[i+1], pos)
				if err != nil {
					return limits, 0, fmt.Errorf("searchmoves: %w", err)
				}
				limits.SearchMoves = append(limits.SearchMoves, m)
				i++
			}
			continue
		case "ponder":
			limits.Ponder = true
			continue
		case "infinite":
			limits.Infinite = true
			continue
		case "wtime":
			limits.Time[board.White] = ms(next)
		case "btime":
			limits.Time[board.Black] = ms(next)
		case "winc":
			limits.Inc[board.White] = ms(next)
		case "binc":
			limits.Inc[board.Black] = ms(next)
		case "movestogo":
			limits.MovesToGo, _ = strconv.Atoi(next)
		case "depth":
			limits.Depth, _ = strconv.Atoi(next)
		case "nodes":
			limits.Nodes, _ = strconv.ParseUint(next, 10, 64)
		case "mate":
			limits.Mate, _ = strconv.Atoi(next)
		case "movetime":
			limits.MoveTime = ms(next)
		case "perft":
			perft, _ = strconv.Atoi(next)
		default:
			continue
		}
		i++
	}
	return limits, perft, nil
}

// handleGo starts a search with the given parameters.
func (u *UCI) handleGo(args []string) {
	u.handleStop()

	limits, perft, err := ParseGo(args, u.position)
	if err != nil {
		u.send("info string %v", err)
		return
	}
	if perft > 0 {
		u.handlePerft(perft)
		return
	}

	u.engine.OnInfo = u.sendInfo
	u.engine.OnCurrMove = func(cm engine.CurrMove) {
		u.send("info depth %d currmove %s currmovenumber %d", cm.Depth, cm.Move, cm.Number)
	}

	pos := u.position.Copy()
	outcome, err := u.engine.Start(pos, limits)
	if err != nil {
		u.send("info string %v", err)
		return
	}
	done := make(chan struct{})
	u.searchDone = done

	go func() {
		defer close(done)

		out := <-outcome
		res, err := out.Result, out.Err
		switch {
		case errors.Is(err, engine.ErrNoLegalMoves):
			u.send("bestmove (none)")
			return
		case err != nil:
			log.Error().Err(err).Msg("search-failed")
			u.send("bestmove (none)")
			return
		}

		if res.Ponder != board.NoMove {
			u.send("bestmove %s ponder %s", res.Move, res.Ponder)
		} else {
			u.send("bestmove %s", res.Move)
		}
		u.saveAnalysis(pos, res)
	}()
}

func (u *UCI) saveAnalysis(pos *board.Position, res engine.Result) {
	if u.store == nil || res.Move == board.NoMove || res.Depth == 0 {
		return
	}
	a := &storage.Analysis{
		FEN:   pos.FEN(),
		Move:  res.Move.String(),
		Score: res.Score,
		Depth: res.Depth,
		PV:    lo.Map(res.PV, func(m board.Move, _ int) string { return m.String() }),
		Nodes: res.Nodes,
	}
	if res.Ponder != board.NoMove {
		a.Ponder = res.Ponder.String()
	}
	if _, err := u.store.SaveAnalysis(a); err != nil {
		log.Warn().Err(err).Str("fen", a.FEN).Msg("analysis-not-saved")
	}
}

// FormatScore renders a score the way the protocol expects it.
func FormatScore(v int) string {
	switch {
	case v >= engine.ValueMateInMaxPly:
		return fmt.Sprintf("mate %d", (engine.ValueMate-v+1)/2)
	case v <= engine.ValueMatedInMaxPly:
		return fmt.Sprintf("mate %d", -(engine.ValueMate+v)/2)
	}
	return fmt.Sprintf("cp %d", v)
}

// FormatInfo renders one search report as an "info" line.
func FormatInfo(info engine.Info) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "info depth %d seldepth %d multipv %d score %s",
		info.Depth, info.SelDepth, max(info.MultiPV, 1), FormatScore(info.Score))

	switch info.Bound {
	case engine.BoundLower:
		sb.WriteString(" lowerbound")
	case engine.BoundUpper:
		sb.WriteString(" upperbound")
	}

	fmt.Fprintf(&sb, " nodes %d nps %d hashfull %d tbhits %d time %d",
		info.Nodes, info.NPS, info.HashFull, info.TBHits, info.Time.Milliseconds())

	if len(info.PV) > 0 {
		sb.WriteString(" pv")
		for _, m := range info.PV {
			sb.WriteByte(' ')
			sb.WriteString(m.String())
		}
	}
	return sb.String()
}

// sendInfo outputs search info in UCI format.
func (u *UCI) sendInfo(info engine.Info) {
	u.send("%s", FormatInfo(info))
}

// handleStop stops the current search and waits for its bestmove.
func (u *UCI) handleStop() {
	if u.searchDone == nil {
		return
	}
	u.engine.Stop()
	<-u.searchDone
	u.searchDone = nil
}

// handleSetOption processes "setoption" commands.
func (u *UCI) handleSetOption(args []string) {
	// Format: setoption name <name> value <value>
	var name, value []string
	target := &name
	for _, arg := range args {
		switch arg {
		case "name":
			target = &name
		case "value":
			target = &value
		default:
			*target = append(*target, arg)
		}
	}

	if err := u.setOption(strings.Join(name, " "), strings.Join(value, " ")); err != nil {
		u.send("info string %v", err)
		return
	}

	if u.store != nil {
		if err := u.store.SaveOptions(u.cfg.Stored()); err != nil {
			log.Warn().Err(err).Msg("options-not-saved")
		}
	}
}

func (u *UCI) setOption(name, value string) error {
	u.handleStop()

	c := u.cfg
	atoi := func() (int, error) {
		n, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("option %s: %w", name, err)
		}
		return n, nil
	}
	check := strings.EqualFold(value, "true")

	switch strings.ToLower(name) {
	case "hash":
		n, err := atoi()
		if err != nil {
			return err
		}
		if err := u.engine.SetHash(n); err != nil {
			return err
		}
		c.HashMB = u.engine.Options().HashMB
	case "clear hash":
		return u.engine.ClearHash()
	case "threads":
		n, err := atoi()
		if err != nil {
			return err
		}
		if err := u.engine.SetThreads(n); err != nil {
			return err
		}
		c.Threads = u.engine.Options().Threads
	case "multipv":
		n, err := atoi()
		if err != nil {
			return err
		}
		if err := u.engine.SetMultiPV(n); err != nil {
			return err
		}
		c.MultiPV = u.engine.Options().MultiPV
	case "move overhead":
		n, err := atoi()
		if err != nil {
			return err
		}
		if err := u.engine.SetMoveOverhead(time.Duration(n) * time.Millisecond); err != nil {
			return err
		}
		c.MoveOverhead = u.engine.Options().MoveOverhead
	case "ponder":
		if err := u.engine.SetPonder(check); err != nil {
			return err
		}
		c.Ponder = check
	case "syzygyprobelimit", "syzygyprobedepth":
		n, err := atoi()
		if err != nil {
			return err
		}
		if strings.EqualFold(name, "syzygyprobelimit") {
			c.SyzygyProbeLimit = n
		} else {
			c.SyzygyProbeDepth = n
		}
		return u.applyTablebase()
	case "syzygy50moverule":
		c.Syzygy50MoveRule = check
		return u.applyTablebase()
	case "uselichesstb":
		c.UseLichessTB = check
		return u.applyTablebase()
	default:
		return fmt.Errorf("unknown option %q", name)
	}

	log.Debug().Str("name", name).Str("value", value).Msg("option-set")
	return nil
}

func (u *UCI) applyTablebase() error {
	c := u.cfg
	return u.engine.SetTablebase(c.Tablebase(), c.SyzygyProbeLimit, c.SyzygyProbeDepth, c.Syzygy50MoveRule)
}

// handlePerft runs a perft test.
func (u *UCI) handlePerft(depth int) {
	start := time.Now()
	var total uint64
	for _, e := range u.position.Copy().Divide(depth) {
		u.send("%s: %d", e.Move, e.Nodes)
		total += e.Nodes
	}
	elapsed := time.Since(start)

	u.send("")
	u.send("Nodes searched: %d", total)
	if elapsed > 0 {
		u.send("NPS: %.0f", float64(total)/elapsed.Seconds())
	}
}
