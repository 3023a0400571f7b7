package shell

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/matryer/is"
	"github.com/rs/zerolog"

	"github.com/hailam/lazysearch/internal/engine"
	"github.com/hailam/lazysearch/internal/storage"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	os.Exit(m.Run())
}

func TestExtractFields(t *testing.T) {
	is := is.New(t)
	type testdata struct {
		line   string
		expCmd *shellcmd
		expErr error
	}
	cases := []testdata{
		{"", nil, errNoData},
		{"go 8 -movetime 500",
			&shellcmd{"go", []string{"8"}, map[string]string{"movetime": "500"}},
			nil},
		{`fen "8/8/8/4k3/8/8/8/KQ6 w - - 0 1"`,
			&shellcmd{"fen", []string{"8/8/8/4k3/8/8/8/KQ6 w - - 0 1"}, map[string]string{}},
			nil},
		{"multipv -3",
			&shellcmd{"multipv", []string{"-3"}, map[string]string{}},
			nil},
		{"go 8 -nodes",
			nil, errWrongOptionSyntax},
	}
	for _, tc := range cases {
		cmd, err := extractFields(tc.line)
		is.Equal(cmd, tc.expCmd)
		is.Equal(err, tc.expErr)
	}
}

func newTestController(t *testing.T) (*Controller, *bytes.Buffer, *storage.Storage) {
	t.Helper()
	is := is.New(t)
	store, err := storage.OpenInMemory()
	is.NoErr(err)
	t.Cleanup(func() { store.Close() })

	out := &bytes.Buffer{}
	return New(engine.NewEngine(engine.DefaultOptions()), store, out), out, store
}

func TestPositionCommands(t *testing.T) {
	is := is.New(t)
	c, out, _ := newTestController(t)

	is.NoErr(c.Execute("moves e2e4 e7e5 g1f3"))
	is.Equal(c.pos.FEN(), "rnbqkbnr/pppp1ppp/8/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R b KQkq - 1 2")

	// An illegal move leaves the position alone
	is.True(c.Execute("moves b8c6 e1e3") != nil)
	is.Equal(c.pos.FEN(), "rnbqkbnr/pppp1ppp/8/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R b KQkq - 1 2")

	is.NoErr(c.Execute("fen 8/8/8/4k3/8/8/8/KQ6 w - - 0 1"))
	is.NoErr(c.Execute("d"))
	is.True(strings.Contains(out.String(), "Fen: 8/8/8/4k3/8/8/8/KQ6 w - - 0 1"))

	is.True(c.Execute("fen nonsense") != nil)
	is.True(c.Execute("frobnicate") != nil)
	is.Equal(c.Execute("quit"), errQuit)
}

func TestGoAndHistory(t *testing.T) {
	is := is.New(t)
	c, out, store := newTestController(t)

	is.NoErr(c.Execute("fen r1bqkb1r/pppp1ppp/2n2n2/4p2Q/2B1P3/8/PPPP1PPP/RNB1K1NR w KQkq - 4 4"))
	is.NoErr(c.Execute("go 3"))
	is.True(strings.Contains(out.String(), "bestmove h5f7 (Mate in 1, depth 3)"))

	a, err := store.LoadAnalysis(c.pos.FEN())
	is.NoErr(err)
	is.Equal(a.Move, "h5f7")

	out.Reset()
	is.NoErr(c.Execute("history 5"))
	is.True(strings.Contains(out.String(), "h5f7"))
}

func TestEngineSettings(t *testing.T) {
	is := is.New(t)
	c, _, _ := newTestController(t)

	is.NoErr(c.Execute("threads 2"))
	is.NoErr(c.Execute("multipv 3"))
	is.Equal(c.engine.Options().Threads, 2)
	is.Equal(c.engine.Options().MultiPV, 3)
	is.True(c.Execute("threads") != nil)
}

func TestPerft(t *testing.T) {
	is := is.New(t)
	c, out, _ := newTestController(t)

	is.NoErr(c.Execute("perft 2"))
	is.True(strings.Contains(out.String(), "total 400 nodes"))
}
