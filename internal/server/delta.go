package server

import (
	"sort"

	"voxelworld/internal/network"
	"voxelworld/internal/world"
)

// editAccumulator collects the ledger entries produced during one tick. The
// latest entry for a cell wins.
type editAccumulator struct {
	data  map[world.Cell]world.Block
	order map[world.Cell]int
	next  int
}

func newEditAccumulator() *editAccumulator {
	return &editAccumulator{
		data:  make(map[world.Cell]world.Block),
		order: make(map[world.Cell]int),
	}
}

func (d *editAccumulator) add(entry world.Block) {
	if d.data == nil {
		d.data = make(map[world.Cell]world.Block)
		d.order = make(map[world.Cell]int)
	}
	d.data[entry.Cell] = entry
	d.order[entry.Cell] = d.next
	d.next++
}

func (d *editAccumulator) len() int {
	return len(d.data)
}

// flush returns the pending edits in the order they were last touched.
func (d *editAccumulator) flush(seq *uint64) *network.EditBatch {
	if len(d.data) == 0 {
		return nil
	}
	cells := make([]world.Cell, 0, len(d.data))
	for cell := range d.data {
		cells = append(cells, cell)
	}
	sort.Slice(cells, func(i, j int) bool { return d.order[cells[i]] < d.order[cells[j]] })

	batch := &network.EditBatch{Seq: *seq, Edits: make([]network.Edit, 0, len(cells))}
	*seq++
	for _, cell := range cells {
		entry := d.data[cell]
		batch.Edits = append(batch.Edits, network.Edit{
			X:      cell.X,
			Y:      cell.Y,
			Z:      cell.Z,
			Type:   entry.Type.String(),
			Placed: entry.Placed,
		})
	}

	d.data = make(map[world.Cell]world.Block)
	d.order = make(map[world.Cell]int)
	d.next = 0
	return batch
}
