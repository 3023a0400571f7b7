package eval

import (
	"unsafe"

	"github.com/hailam/lazysearch/internal/board"
)

// pawnSlot stores a cached pawn structure evaluation.
type pawnSlot struct {
	key    uint64
	mg, eg int16
	passed [2]board.Bitboard
}

// PawnTable is a hash table for caching pawn structure evaluations.
type PawnTable struct {
	entries []pawnSlot
	mask    uint64
}

// NewPawnTable creates a new pawn hash table with the given size in MB.
// The entry count is rounded down to a power of two.
func NewPawnTable(sizeMB int) *PawnTable {
	numEntries := max(sizeMB, 1) * 1024 * 1024 / int(unsafe.Sizeof(pawnSlot{}))

	size := 1
	for size*2 <= numEntries {
		size *= 2
	}

	return &PawnTable{
		entries: make([]pawnSlot, size),
		mask:    uint64(size - 1),
	}
}

// probe looks up a pawn structure evaluation.
func (pt *PawnTable) probe(key uint64) (pawnEntry, bool) {
	slot := &pt.entries[key&pt.mask]
	if slot.key != key {
		return pawnEntry{}, false
	}
	return pawnEntry{mg: int(slot.mg), eg: int(slot.eg), passed: slot.passed}, true
}

// store saves a pawn structure evaluation.
func (pt *PawnTable) store(key uint64, e pawnEntry) {
	pt.entries[key&pt.mask] = pawnSlot{key: key, mg: int16(e.mg), eg: int16(e.eg), passed: e.passed}
}

// Clear clears the pawn hash table.
func (pt *PawnTable) Clear() {
	clear(pt.entries)
}
