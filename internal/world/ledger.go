package world

// Ledger is the ordered record of player edits against generated terrain.
// Entries are only appended, except that removing a player-placed block flips
// its existing entry instead of recording a second one.
//
// A Ledger has a single owner (the session goroutine). Readers on other
// goroutines work from a Snapshot.
type Ledger struct {
	entries  []Block
	byCell   map[Cell][]int
	byColumn map[Column][]int
}

func NewLedger() *Ledger {
	return &Ledger{
		byCell:   make(map[Cell][]int),
		byColumn: make(map[Column][]int),
	}
}

// LedgerFrom rebuilds a ledger from a snapshot, preserving order.
func LedgerFrom(entries []Block) *Ledger {
	l := NewLedger()
	for _, b := range entries {
		l.append(b)
	}
	return l
}

func (l *Ledger) append(b Block) {
	idx := len(l.entries)
	l.entries = append(l.entries, b)
	l.byCell[b.Cell] = append(l.byCell[b.Cell], idx)
	col := Column{X: b.X, Z: b.Z}
	l.byColumn[col] = append(l.byColumn[col], idx)
}

// Place records a player-added block.
func (l *Ledger) Place(cell Cell, t BlockType) Block {
	b := Block{Cell: cell, Type: t, Placed: true}
	l.append(b)
	return b
}

// Remove records the removal of the block at cell. If the block there was
// placed by the player, its entry is flipped to a removal marker; otherwise a
// removal marker for the generated block is appended.
func (l *Ledger) Remove(cell Cell, t BlockType) Block {
	idxs := l.byCell[cell]
	for i := len(idxs) - 1; i >= 0; i-- {
		entry := &l.entries[idxs[i]]
		if entry.Placed {
			entry.Placed = false
			return *entry
		}
	}
	b := Block{Cell: cell, Type: t, Placed: false}
	l.append(b)
	return b
}

// Resolve returns the latest entry recorded for the cell.
func (l *Ledger) Resolve(cell Cell) (Block, bool) {
	idxs := l.byCell[cell]
	if len(idxs) == 0 {
		return Block{}, false
	}
	return l.entries[idxs[len(idxs)-1]], true
}

// Removed reports whether the latest entry for the cell is a removal marker.
func (l *Ledger) Removed(cell Cell) bool {
	b, ok := l.Resolve(cell)
	return ok && !b.Placed
}

// Column returns the entries recorded in a column, in ledger order.
func (l *Ledger) Column(x, z int) []Block {
	idxs := l.byColumn[Column{X: x, Z: z}]
	if len(idxs) == 0 {
		return nil
	}
	out := make([]Block, len(idxs))
	for i, idx := range idxs {
		out[i] = l.entries[idx]
	}
	return out
}

// InRange returns the entries whose column lies inside r, in ledger order.
func (l *Ledger) InRange(r ColumnRange) []Block {
	var out []Block
	for _, b := range l.entries {
		if r.Contains(b.X, b.Z) {
			out = append(out, b)
		}
	}
	return out
}

// Snapshot returns a point-in-time copy of every entry.
func (l *Ledger) Snapshot() []Block {
	out := make([]Block, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *Ledger) Len() int {
	return len(l.entries)
}
