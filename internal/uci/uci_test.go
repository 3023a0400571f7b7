package uci

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/lazysearch/internal/board"
	"github.com/hailam/lazysearch/internal/config"
	"github.com/hailam/lazysearch/internal/engine"
	"github.com/hailam/lazysearch/internal/storage"
)

// syncBuffer lets the test read output while a search writes to it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestUCI(t *testing.T) (*UCI, *syncBuffer, *storage.Storage) {
	t.Helper()
	store, err := storage.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	out := &syncBuffer{}
	eng := engine.NewEngine(engine.DefaultOptions())
	return New(eng, config.Default(), store, out), out, store
}

func waitBestMove(t *testing.T, out *syncBuffer) string {
	t.Helper()
	require.Eventually(t, func() bool { return strings.Contains(out.String(), "bestmove") },
		10*time.Second, 5*time.Millisecond)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	return lines[len(lines)-1]
}

func TestHandshake(t *testing.T) {
	u, out, _ := newTestUCI(t)

	require.NoError(t, u.Run(strings.NewReader("uci\nisready\nquit\n")))

	s := out.String()
	assert.Contains(t, s, "id name lazysearch")
	assert.Contains(t, s, "option name Hash type spin default 16 min 1 max 33554432")
	assert.Contains(t, s, "option name Clear Hash type button\n")
	assert.Contains(t, s, "option name Ponder type check default false")
	assert.Contains(t, s, "uciok")
	assert.True(t, strings.HasSuffix(s, "readyok\n"))
}

func TestParsePosition(t *testing.T) {
	pos, err := ParsePosition(strings.Fields("startpos moves e2e4 e7e5 g1f3"))
	require.NoError(t, err)
	assert.Equal(t, "rnbqkbnr/pppp1ppp/8/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R b KQkq - 1 2", pos.FEN())

	fen := "8/8/8/4k3/8/8/8/KQ6 w - - 0 1"
	pos, err = ParsePosition(append([]string{"fen"}, strings.Fields(fen)...))
	require.NoError(t, err)
	assert.Equal(t, fen, pos.FEN())

	_, err = ParsePosition(strings.Fields("startpos moves e2e5"))
	assert.Error(t, err)

	_, err = ParsePosition(strings.Fields("fen not a fen"))
	assert.ErrorIs(t, err, board.ErrInvalidFEN)
}

func TestParseGo(t *testing.T) {
	pos := board.NewPosition()

	limits, perft, err := ParseGo(strings.Fields("wtime 60000 btime 50000 winc 1000 binc 500 movestogo 20"), pos)
	require.NoError(t, err)
	assert.Zero(t, perft)
	assert.Equal(t, 60*time.Second, limits.Time[board.White])
	assert.Equal(t, 50*time.Second, limits.Time[board.Black])
	assert.Equal(t, 500*time.Millisecond, limits.Inc[board.Black])
	assert.Equal(t, 20, limits.MovesToGo)

	limits, _, err = ParseGo(strings.Fields("searchmoves e2e4 d2d4 depth 7 ponder mate 3"), pos)
	require.NoError(t, err)
	require.Len(t, limits.SearchMoves, 2)
	assert.Equal(t, "d2d4", limits.SearchMoves[1].String())
	assert.Equal(t, 7, limits.Depth)
	assert.Equal(t, 3, limits.Mate)
	assert.True(t, limits.Ponder)

	_, perft, err = ParseGo(strings.Fields("perft 3"), pos)
	require.NoError(t, err)
	assert.Equal(t, 3, perft)

	_, _, err = ParseGo(strings.Fields("searchmoves e2e5"), pos)
	assert.Error(t, err)
}

func TestGoDepth(t *testing.T) {
	u, out, store := newTestUCI(t)

	u.Execute("position startpos moves e2e4")
	u.Execute("go depth 4")
	last := waitBestMove(t, out)

	assert.Regexp(t, `^bestmove [a-h][1-8][a-h][1-8]`, last)
	assert.Contains(t, out.String(), "info depth 4 seldepth")

	u.Execute("quit")
	a, err := store.LoadAnalysis(u.position.FEN())
	require.NoError(t, err)
	assert.Equal(t, 4, a.Depth)
	assert.Equal(t, strings.Fields(last)[1], a.Move)
}

func TestGoInfiniteStop(t *testing.T) {
	u, out, _ := newTestUCI(t)

	u.Execute("go infinite")
	time.Sleep(100 * time.Millisecond)
	assert.NotContains(t, out.String(), "bestmove")

	u.Execute("stop")
	assert.Contains(t, out.String(), "bestmove")
}

func TestStopRightAfterGo(t *testing.T) {
	u, out, _ := newTestUCI(t)

	for i := 0; i < 20; i++ {
		finished := make(chan struct{})
		go func() {
			defer close(finished)
			u.Execute("go infinite")
			u.Execute("stop")
		}()

		select {
		case <-finished:
		case <-time.After(5 * time.Second):
			t.Fatalf("stop issued right after go infinite was lost (round %d)", i)
		}
	}
	assert.Equal(t, 20, strings.Count(out.String(), "bestmove"))
}

func TestGoWithoutLegalMoves(t *testing.T) {
	u, out, _ := newTestUCI(t)

	u.Execute("position fen k7/1Q6/1K6/8/8/8/8/8 b - - 0 1")
	u.Execute("go depth 5")
	assert.Equal(t, "bestmove (none)", waitBestMove(t, out))
	assert.Contains(t, out.String(), "score mate 0")
}

func TestSetOption(t *testing.T) {
	u, out, store := newTestUCI(t)

	u.Execute("setoption name Hash value 32")
	u.Execute("setoption name Threads value 2")
	u.Execute("setoption name Move Overhead value 40")
	u.Execute("setoption name Clear Hash")
	u.Execute("setoption name Bogus value 1")

	assert.Equal(t, 32, u.cfg.HashMB)
	assert.Equal(t, 2, u.engine.Options().Threads)
	assert.Equal(t, 40*time.Millisecond, u.cfg.MoveOverhead)
	assert.Contains(t, out.String(), `unknown option "Bogus"`)

	o, err := store.LoadOptions()
	require.NoError(t, err)
	assert.Equal(t, 32, o.HashMB)
	assert.Equal(t, 40, o.MoveOverheadMs)
}

func TestPerft(t *testing.T) {
	u, out, _ := newTestUCI(t)
	u.Execute("go perft 3")
	assert.Contains(t, out.String(), "Nodes searched: 8902")
}

func TestFormatInfo(t *testing.T) {
	pos := board.NewPosition()
	e4, err := board.ParseMove("e2e4", pos)
	require.NoError(t, err)

	s := FormatInfo(engine.Info{
		Depth: 12, SelDepth: 18, MultiPV: 1, Score: 35, Bound: engine.BoundLower,
		Nodes: 1000, NPS: 5000, Time: 200 * time.Millisecond, PV: []board.Move{e4},
	})
	assert.Equal(t, "info depth 12 seldepth 18 multipv 1 score cp 35 lowerbound nodes 1000 nps 5000 hashfull 0 tbhits 0 time 200 pv e2e4", s)

	assert.Equal(t, "mate 3", FormatScore(engine.MateIn(5)))
	assert.Equal(t, "mate -2", FormatScore(engine.MatedIn(4)))
	assert.Equal(t, "cp -12", FormatScore(-12))
}
