package engine

import (
	"math/bits"
	"sync/atomic"

	"github.com/pbnjay/memory"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/hailam/lazysearch/internal/board"
)

// Entry layout, packed into one 64-bit data word:
//
//	bits  0-15 move
//	bits 16-31 value (int16)
//	bits 32-47 static eval (int16)
//	bits 48-55 depth - DepthOffset (0 = empty)
//	bits 56-63 generation (5 bits) | pv (1 bit) | bound (2 bits)
//
// The key word holds key^data, so a torn write from another thread fails
// the key check instead of handing out a mix of two entries.
const (
	clusterSize = 4

	generationBits  = 3
	generationDelta = 1 << generationBits
	generationCycle = 255 + generationDelta
	generationMask  = (0xFF << generationBits) & 0xFF
)

type ttEntry struct {
	key  atomic.Uint64
	data atomic.Uint64
}

type ttCluster [clusterSize]ttEntry

// TTData is the decoded content of a table entry.
type TTData struct {
	Move  board.Move
	Value int
	Eval  int
	Depth int
	Bound Bound
	IsPV  bool
}

func packEntry(m board.Move, v, ev, depth8 int, genBound8 uint8) uint64 {
	return uint64(m) |
		uint64(uint16(int16(v)))<<16 |
		uint64(uint16(int16(ev)))<<32 |
		uint64(uint8(depth8))<<48 |
		uint64(genBound8)<<56
}

func depth8Of(data uint64) int      { return int(uint8(data >> 48)) }
func genBound8Of(data uint64) uint8 { return uint8(data >> 56) }
func moveOf(data uint64) board.Move { return board.Move(uint16(data)) }
func valueOf(data uint64) int       { return int(int16(uint16(data >> 16))) }
func evalOf(data uint64) int        { return int(int16(uint16(data >> 32))) }

func relativeAge(gen8, genBound8 uint8) int {
	return (generationCycle + int(gen8) - int(genBound8)) & generationMask
}

func decode(data uint64) TTData {
	gb := genBound8Of(data)
	return TTData{
		Move:  moveOf(data),
		Value: valueOf(data),
		Eval:  evalOf(data),
		Depth: depth8Of(data) + DepthOffset,
		Bound: Bound(gb & 3),
		IsPV:  gb&4 != 0,
	}
}

// plausible rejects entries no writer could have produced.
func (d TTData) plausible() bool {
	if d.Depth <= DepthOffset || d.Depth >= MaxPly {
		return false
	}
	if d.Value != ValueNone && (d.Value <= -ValueInfinite || d.Value >= ValueInfinite) {
		return false
	}
	return d.Bound != BoundNone || d.Value == ValueNone
}

// TranspositionTable is shared by all search workers. Reads and writes
// are lock-free; the only guarantee is that a probe never returns an
// entry whose words come from two different stores.
type TranspositionTable struct {
	clusters    []ttCluster
	generation8 uint8
}

// NewTranspositionTable creates a table of roughly sizeMB megabytes.
func NewTranspositionTable(sizeMB int) *TranspositionTable {
	tt := &TranspositionTable{}
	tt.Resize(sizeMB, 1)
	return tt
}

// Resize reallocates the table. The request is capped at half of the
// machine's physical memory.
func (tt *TranspositionTable) Resize(sizeMB, threads int) {
	const clusterBytes = clusterSize * 16

	requested := uint64(max(sizeMB, 1)) << 20
	limit := memory.TotalMemory() / 2
	capped := limit > 0 && requested > limit
	if capped {
		requested = limit
	}

	count := max(requested/clusterBytes, 1)
	tt.clusters = make([]ttCluster, count)
	tt.generation8 = 0

	log.Info().
		Int("requested-mb", sizeMB).
		Uint64("clusters", count).
		Uint64("bytes", count*clusterBytes).
		Bool("capped", capped).
		Msg("transposition-table-size")

	tt.Clear(threads)
}

// SizeMB reports the current table size.
func (tt *TranspositionTable) SizeMB() int {
	return len(tt.clusters) * clusterSize * 16 >> 20
}

// Clear zeroes the table, splitting the work over threads goroutines.
func (tt *TranspositionTable) Clear(threads int) {
	threads = max(threads, 1)
	stride := (len(tt.clusters) + threads - 1) / threads

	var g errgroup.Group
	for start := 0; start < len(tt.clusters); start += stride {
		chunk := tt.clusters[start:min(start+stride, len(tt.clusters))]
		g.Go(func() error {
			for i := range chunk {
				for j := range chunk[i] {
					chunk[i][j].key.Store(0)
					chunk[i][j].data.Store(0)
				}
			}
			return nil
		})
	}
	_ = g.Wait()
}

// NewSearch advances the generation so entries from earlier searches age
// out. It must be called before the workers start.
func (tt *TranspositionTable) NewSearch() {
	tt.generation8 += generationDelta
}

func (tt *TranspositionTable) cluster(key uint64) *ttCluster {
	hi, _ := bits.Mul64(key, uint64(len(tt.clusters)))
	return &tt.clusters[hi]
}

// TTWriter remembers the slot chosen by a probe so the node can store its
// result there later.
type TTWriter struct {
	entry *ttEntry
	gen8  uint8
}

// Probe looks up key. On a hit it returns the decoded entry and refreshes
// its generation. On a miss the writer points at the least valuable slot
// of the cluster.
func (tt *TranspositionTable) Probe(key uint64) (TTData, bool, TTWriter) {
	cl := tt.cluster(key)
	gen8 := tt.generation8

	replace := &cl[0]
	replaceScore := 0
	for i := range cl {
		e := &cl[i]
		data := e.data.Load()
		if data != 0 && e.key.Load()^data == key {
			d := decode(data)
			if !d.plausible() {
				return TTData{Value: ValueNone, Eval: ValueNone, Depth: DepthNone}, false, TTWriter{e, gen8}
			}
			gb := genBound8Of(data)
			if gb&generationMask != gen8 {
				refreshed := data&^(uint64(0xFF)<<56) | uint64(gen8|gb&(generationDelta-1))<<56
				e.data.Store(refreshed)
				e.key.Store(key ^ refreshed)
			}
			return d, true, TTWriter{e, gen8}
		}

		score := depth8Of(data) - relativeAge(gen8, genBound8Of(data))
		if i == 0 || score < replaceScore {
			replace, replaceScore = e, score
		}
	}
	return TTData{Value: ValueNone, Eval: ValueNone, Depth: DepthNone}, false, TTWriter{replace, gen8}
}

// Save stores a search result. An existing entry for the same key is only
// overwritten by an exact bound, a PV node's result, a clearly deeper
// result or once it has aged; its move is kept when the new result has none.
func (w TTWriter) Save(key uint64, value int, pv bool, b Bound, depth int, m board.Move, eval int) {
	e := w.entry
	old := e.data.Load()
	sameKey := old != 0 && e.key.Load()^old == key

	if m == board.NoMove && sameKey {
		m = moveOf(old)
	}

	if b == BoundExact || pv || !sameKey ||
		depth-DepthOffset+2*boolInt(pv) > depth8Of(old)-4 ||
		relativeAge(w.gen8, genBound8Of(old)) != 0 {
		genBound8 := w.gen8 | uint8(boolInt(pv))<<2 | uint8(b)
		data := packEntry(m, value, eval, depth-DepthOffset, genBound8)
		e.data.Store(data)
		e.key.Store(key ^ data)
	} else if m != moveOf(old) {
		data := old&^0xFFFF | uint64(m)
		e.data.Store(data)
		e.key.Store(key ^ data)
	}
}

// HashFull estimates the permille of the table filled during the current
// search by sampling the first thousand clusters.
func (tt *TranspositionTable) HashFull() int {
	n := min(1000, len(tt.clusters))
	if n == 0 {
		return 0
	}
	cnt := 0
	for i := 0; i < n; i++ {
		for j := range tt.clusters[i] {
			data := tt.clusters[i][j].data.Load()
			if depth8Of(data) != 0 && genBound8Of(data)&generationMask == tt.generation8 {
				cnt++
			}
		}
	}
	return cnt * 1000 / (n * clusterSize)
}
