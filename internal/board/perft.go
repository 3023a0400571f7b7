package board

// Perft counts the leaf nodes of the legal move tree to the given depth.
// This is the standard way to verify move generation correctness.
func (p *Position) Perft(depth int) uint64 {
	if depth <= 0 {
		return 1
	}

	var ml MoveList
	p.GenerateLegal(&ml)
	if depth == 1 {
		return uint64(ml.Len())
	}

	var nodes uint64
	for i := 0; i < ml.Len(); i++ {
		m := ml.Get(i)
		p.DoMove(m)
		nodes += p.Perft(depth - 1)
		p.UndoMove(m)
	}
	return nodes
}

// PerftEntry is one root move of a divided perft.
type PerftEntry struct {
	Move  Move
	Nodes uint64
}

// Divide runs perft below each legal root move.
func (p *Position) Divide(depth int) []PerftEntry {
	var ml MoveList
	p.GenerateLegal(&ml)

	entries := make([]PerftEntry, 0, ml.Len())
	for i := 0; i < ml.Len(); i++ {
		m := ml.Get(i)
		p.DoMove(m)
		entries = append(entries, PerftEntry{Move: m, Nodes: p.Perft(depth - 1)})
		p.UndoMove(m)
	}
	return entries
}
