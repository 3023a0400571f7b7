// Package shell is an interactive analysis console around the engine.
package shell

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/hailam/lazysearch/internal/board"
	"github.com/hailam/lazysearch/internal/engine"
	"github.com/hailam/lazysearch/internal/storage"
)

const defaultDepth = 10

var (
	errNoData            = errors.New("no data in this line")
	errWrongOptionSyntax = errors.New("wrong format; all options need arguments")
	errQuit              = errors.New("quit")
)

type shellcmd struct {
	cmd     string
	args    []string
	options map[string]string
}

// extractFields splits a line into a command, its positional arguments
// and its -key value options. Quoting follows the shell.
func extractFields(line string) (*shellcmd, error) {
	fields, err := shellquote.Split(line)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, errNoData
	}

	cmd := &shellcmd{cmd: fields[0], options: map[string]string{}}
	for i := 1; i < len(fields); i++ {
		f := fields[i]
		if !strings.HasPrefix(f, "-") || len(f) == 1 || isNumber(f) {
			cmd.args = append(cmd.args, f)
			continue
		}
		if i+1 >= len(fields) {
			return nil, errWrongOptionSyntax
		}
		cmd.options[f[1:]] = fields[i+1]
		i++
	}
	return cmd, nil
}

func isNumber(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}

var commandNames = []string{"fen", "moves", "go", "multipv", "threads", "perft", "history", "d", "new", "help", "quit", "exit"}

// Controller runs the console. Commands change a current position that
// searches start from.
type Controller struct {
	engine *engine.Engine
	store  *storage.Storage // nil when persistence is off
	pos    *board.Position
	out    io.Writer
}

// New creates a console writing to out. store may be nil.
func New(eng *engine.Engine, store *storage.Storage, out io.Writer) *Controller {
	return &Controller{
		engine: eng,
		store:  store,
		pos:    board.NewPosition(),
		out:    out,
	}
}

func (c *Controller) showMessage(format string, args ...any) {
	fmt.Fprintf(c.out, format+"\n", args...)
}

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

// Loop reads commands until quit, end of input or an interrupt on an
// empty line. historyFile may be empty.
func (c *Controller) Loop(historyFile string) error {
	items := lo.Map(commandNames, func(name string, _ int) readline.PrefixCompleterInterface {
		return readline.PcItem(name)
	})
	l, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[32mlazysearch>\033[0m ",
		HistoryFile:     historyFile,
		AutoComplete:    readline.NewPrefixCompleter(items...),
		EOFPrompt:       "exit",
		InterruptPrompt: "^C",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		return fmt.Errorf("readline: %w", err)
	}
	defer l.Close()
	c.out = l.Stdout()

	for {
		line, err := l.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if len(line) == 0 {
				break
			}
			continue
		} else if errors.Is(err, io.EOF) {
			break
		}

		if err := c.Execute(line); err != nil {
			if errors.Is(err, errQuit) {
				break
			}
			c.showMessage("error: %v", err)
		}
	}
	log.Debug().Msg("shell-exit")
	return nil
}

// Execute runs one console line.
func (c *Controller) Execute(line string) error {
	cmd, err := extractFields(strings.TrimSpace(line))
	if errors.Is(err, errNoData) {
		return nil
	} else if err != nil {
		return err
	}

	switch cmd.cmd {
	case "fen":
		return c.setFEN(cmd)
	case "moves":
		return c.playMoves(cmd)
	case "go":
		return c.search(cmd)
	case "multipv":
		n, err := intArg(cmd, 0)
		if err != nil {
			return err
		}
		return c.engine.SetMultiPV(n)
	case "threads":
		n, err := intArg(cmd, 0)
		if err != nil {
			return err
		}
		return c.engine.SetThreads(n)
	case "perft":
		return c.perft(cmd)
	case "history":
		return c.history(cmd)
	case "d":
		c.showMessage("%s\nFen: %s", c.pos.String(), c.pos.FEN())
	case "new":
		c.pos = board.NewPosition()
		return c.engine.NewGame()
	case "help":
		c.showMessage("commands: %s", strings.Join(commandNames, ", "))
	case "quit", "exit":
		return errQuit
	default:
		return fmt.Errorf("unknown command %q", cmd.cmd)
	}
	return nil
}

func intArg(cmd *shellcmd, i int) (int, error) {
	if len(cmd.args) <= i {
		return 0, fmt.Errorf("%s: missing argument", cmd.cmd)
	}
	n, err := strconv.Atoi(cmd.args[i])
	if err != nil {
		return 0, fmt.Errorf("%s: %w", cmd.cmd, err)
	}
	return n, nil
}

func (c *Controller) setFEN(cmd *shellcmd) error {
	pos, err := board.ParseFEN(strings.Join(cmd.args, " "))
	if err != nil {
		return err
	}
	c.pos = pos
	return nil
}

// playMoves plays the moves in order. Nothing is played if one of them
// is illegal.
func (c *Controller) playMoves(cmd *shellcmd) error {
	pos := c.pos.Copy()
	for _, s := range cmd.args {
		m, err := board.ParseMove(s, pos)
		if err != nil {
			return err
		}
		pos.DoMove(m)
	}
	c.pos = pos
	return nil
}

// search runs "go [depth] [-movetime ms] [-nodes n]".
func (c *Controller) search(cmd *shellcmd) error {
	limits := engine.Limits{Depth: defaultDepth}
	if len(cmd.args) > 0 {
		d, err := intArg(cmd, 0)
		if err != nil {
			return err
		}
		limits.Depth = d
	}
	if v, ok := cmd.options["movetime"]; ok {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("movetime: %w", err)
		}
		limits.MoveTime = time.Duration(ms) * time.Millisecond
	}
	if v, ok := cmd.options["nodes"]; ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("nodes: %w", err)
		}
		limits.Nodes = n
	}

	c.engine.OnInfo = func(info engine.Info) {
		c.showMessage("%2d/%-2d %d. %8s  %10d nodes  %s", info.Depth, info.SelDepth, max(info.MultiPV, 1),
			engine.ScoreToString(info.Score), info.Nodes, formatMoves(info.PV))
	}
	c.engine.OnCurrMove = nil
	defer func() { c.engine.OnInfo = nil }()

	res, err := c.engine.Search(c.pos, limits)
	if errors.Is(err, engine.ErrNoLegalMoves) {
		c.showMessage("no legal moves (%s)", engine.ScoreToString(res.Score))
		return nil
	} else if err != nil {
		return err
	}

	c.showMessage("bestmove %s (%s, depth %d)", res.Move, engine.ScoreToString(res.Score), res.Depth)

	if c.store != nil && res.Depth > 0 {
		a := &storage.Analysis{
			FEN:   c.pos.FEN(),
			Move:  res.Move.String(),
			Score: res.Score,
			Depth: res.Depth,
			PV:    lo.Map(res.PV, func(m board.Move, _ int) string { return m.String() }),
			Nodes: res.Nodes,
		}
		if res.Ponder != board.NoMove {
			a.Ponder = res.Ponder.String()
		}
		if _, err := c.store.SaveAnalysis(a); err != nil {
			return fmt.Errorf("saving analysis: %w", err)
		}
	}
	return nil
}

func formatMoves(pv []board.Move) string {
	return strings.Join(lo.Map(pv, func(m board.Move, _ int) string { return m.String() }), " ")
}

func (c *Controller) perft(cmd *shellcmd) error {
	depth, err := intArg(cmd, 0)
	if err != nil {
		return err
	}
	start := time.Now()
	var total uint64
	for _, e := range c.pos.Copy().Divide(depth) {
		c.showMessage("%s: %d", e.Move, e.Nodes)
		total += e.Nodes
	}
	c.showMessage("total %d nodes in %v", total, time.Since(start).Round(time.Millisecond))
	return nil
}

// history lists the most recent stored analyses, "history [n]".
func (c *Controller) history(cmd *shellcmd) error {
	if c.store == nil {
		return errors.New("history: storage is disabled")
	}
	limit := 10
	if len(cmd.args) > 0 {
		n, err := intArg(cmd, 0)
		if err != nil {
			return err
		}
		limit = n
	}
	analyses, err := c.store.RecentAnalyses(limit)
	if err != nil {
		return err
	}
	for _, a := range analyses {
		c.showMessage("%s  %-6s %8s  depth %-3d %s", a.Created.Format(time.DateTime), a.Move,
			engine.ScoreToString(a.Score), a.Depth, a.FEN)
	}
	return nil
}
