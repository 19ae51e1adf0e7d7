package chunkgen

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime"
	"sync"

	"voxelworld/internal/terrain"
	"voxelworld/internal/world"
)

var (
	// ErrNilRequest is returned when Generate is called without a request.
	ErrNilRequest = errors.New("chunkgen: nil request")
	// ErrCapacityMismatch is returned when a request needs more buffer
	// capacity than the generator allocated on its first call.
	ErrCapacityMismatch = errors.New("chunkgen: render distance exceeds allocated capacity")
)

// reserveSlots is added to the per-type capacity for player placements.
const reserveSlots = 500

// Capacity returns the fixed buffer capacity for a type factor at a render
// distance: ((rd*32+16)^2 + 500) * factor.
func Capacity(renderDistance int, factor float64) int {
	if renderDistance < 0 {
		renderDistance = 0
	}
	side := renderDistance*2*world.ChunkSize + world.ChunkSize
	if factor <= 0 {
		return 0
	}
	return int(float64(side*side+reserveSlots) * factor)
}

// Generator owns the per-type buffers and the slot map of one generation
// session. Slots below the request counters are kept across calls, so
// streaming only appends the cells it has not seen yet. It is not safe for
// concurrent use; Worker serialises access.
type Generator struct {
	field   terrain.Field
	params  terrain.Params
	workers int
	logger  *log.Logger

	allocated      bool
	renderDistance int
	buffers        Buffers
	slots          SlotMap
	highWater      Counters
}

// New creates a generator sampling field with params. Buffers are allocated
// by the first Generate call.
func New(field terrain.Field, params terrain.Params, workers int, logger *log.Logger) *Generator {
	if field == nil {
		field = terrain.Perlin{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Generator{
		field:   field,
		params:  params,
		workers: workers,
		logger:  logger,
		slots:   make(SlotMap),
	}
}

// Params returns the terrain parameters the generator was built with.
func (g *Generator) Params() terrain.Params {
	return g.params
}

// Allocated reports the render distance the buffers were sized for.
func (g *Generator) Allocated() (int, bool) {
	return g.renderDistance, g.allocated
}

func (g *Generator) allocate(renderDistance int, factors [world.BlockTypeCount]float64) {
	for t := range g.buffers {
		g.buffers[t] = make([]world.Position, Capacity(renderDistance, factors[t]))
	}
	g.renderDistance = renderDistance
	g.allocated = true
	g.logger.Printf("chunkgen buffers allocated for render distance %d", renderDistance)
}

// Generate classifies every column in the request's range, appends slots for
// cells that have none starting at the request counters and applies the
// ledger snapshot. Slots at or past the request counters came from responses
// the caller never adopted and are rolled back first, so identical requests
// produce identical responses.
func (g *Generator) Generate(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, ErrNilRequest
	}
	if req.RenderDistance < 0 {
		return nil, fmt.Errorf("chunkgen: render distance %d cannot be negative", req.RenderDistance)
	}
	if !g.allocated {
		g.allocate(req.RenderDistance, req.CapacityFactors)
	} else if req.RenderDistance > g.renderDistance {
		return nil, fmt.Errorf("%w: requested %d, allocated %d", ErrCapacityMismatch, req.RenderDistance, g.renderDistance)
	}

	coord := world.ChunkOf(req.Origin)
	bounds := world.RenderRange(req.Origin, req.RenderDistance)
	classifier := terrain.NewClassifier(g.field, g.params.WithSeeds(req.Seeds))

	plans, err := g.classify(ctx, coord, bounds, classifier)
	if err != nil {
		return nil, fmt.Errorf("generate chunk %v: %w", coord, err)
	}

	g.rollback(req.Counters)

	a := assigner{
		buffers:  &g.buffers,
		slots:    g.slots,
		counters: req.Counters,
	}
	for _, plan := range plans {
		plan.Ground(a.generated)
	}
	for _, plan := range plans {
		plan.Canopy(a.generated)
	}
	for _, entry := range latestEntries(req.Ledger) {
		if !bounds.Contains(entry.X, entry.Z) {
			continue
		}
		if entry.Placed {
			a.place(entry)
		} else {
			a.remove(entry.Cell)
		}
	}
	g.highWater = a.counters

	for t, n := range a.dropped {
		if n > 0 {
			g.logger.Printf("chunk %v dropped %d %s placements: buffer capacity %d reached", coord, n, world.BlockType(t), len(g.buffers[t]))
		}
	}

	return &Response{
		Origin:   req.Origin,
		Range:    bounds,
		Slots:    g.slots.Clone(),
		Buffers:  g.buffers.Clone(),
		Counters: a.counters,
		Dropped:  a.dropped,
	}, nil
}

// rollback forgets slots at or past counters and zeroes the buffer tail they
// used.
func (g *Generator) rollback(counters Counters) {
	stale := false
	for t := range g.buffers {
		for i := counters[t]; i < g.highWater[t] && i < len(g.buffers[t]); i++ {
			g.buffers[t][i] = world.Position{}
			stale = true
		}
	}
	if !stale {
		return
	}
	for cell, slot := range g.slots {
		if slot.Index >= counters[slot.Type] {
			delete(g.slots, cell)
		}
	}
}

// latestEntries keeps only the last ledger entry per cell, in ledger order.
func latestEntries(entries []world.Block) []world.Block {
	last := make(map[world.Cell]int, len(entries))
	for i, e := range entries {
		last[e.Cell] = i
	}
	out := make([]world.Block, 0, len(last))
	for i, e := range entries {
		if last[e.Cell] == i {
			out = append(out, e)
		}
	}
	return out
}

func (g *Generator) workerCount(columns int) int {
	workers := g.workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > columns {
		workers = columns
	}
	if workers <= 0 {
		workers = 1
	}
	return workers
}

// classify runs the classifier over every column in bounds on a worker pool
// and returns the plans in row-major order.
func (g *Generator) classify(ctx context.Context, coord world.ChunkCoord, bounds world.ColumnRange, classifier *terrain.Classifier) ([]terrain.ColumnPlan, error) {
	totalColumns := bounds.Columns()
	if totalColumns <= 0 {
		g.logger.Printf("chunk %v generation progress: 100%%", coord)
		return nil, nil
	}

	g.logger.Printf("chunk %v generation progress: 0%%", coord)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type columnResult struct {
		idx  int
		plan terrain.ColumnPlan
		err  error
	}

	workers := g.workerCount(totalColumns)
	tasks := make(chan int, workers)
	results := make(chan columnResult, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range tasks {
				if err := ctx.Err(); err != nil {
					select {
					case results <- columnResult{err: err}:
					default:
					}
					return
				}

				col := bounds.At(idx)
				plan := classifier.Column(col.X, col.Z)

				select {
				case results <- columnResult{idx: idx, plan: plan}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	go func() {
		defer close(tasks)
		for idx := 0; idx < totalColumns; idx++ {
			select {
			case <-ctx.Done():
				return
			case tasks <- idx:
			}
		}
	}()

	plans := make([]terrain.ColumnPlan, totalColumns)
	generatedColumns := 0
	nextLogPercent := 10
	loggedComplete := false

	for result := range results {
		if result.err != nil {
			cancel()
			return nil, result.err
		}
		plans[result.idx] = result.plan

		generatedColumns++
		progress := generatedColumns * 100 / totalColumns
		if progress >= nextLogPercent {
			g.logger.Printf("chunk %v generation progress: %d%%", coord, progress)
			if progress >= 100 {
				loggedComplete = true
				nextLogPercent = 110
			} else {
				nextLogPercent = ((progress / 10) + 1) * 10
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if generatedColumns != totalColumns {
		return nil, fmt.Errorf("classified %d of %d columns", generatedColumns, totalColumns)
	}
	if !loggedComplete {
		g.logger.Printf("chunk %v generation progress: 100%%", coord)
	}
	return plans, nil
}

// assigner hands out slots for one Generate call on top of the generator's
// slot map.
type assigner struct {
	buffers  *Buffers
	slots    SlotMap
	counters Counters
	dropped  Counters
}

func (a *assigner) append(cell world.Cell, t world.BlockType) {
	idx := a.counters[t]
	if idx >= len(a.buffers[t]) {
		a.dropped[t]++
		return
	}
	a.buffers[t][idx] = world.PositionOf(cell)
	a.slots[cell] = Slot{Type: t, Index: idx}
	a.counters[t]++
}

// generated assigns a slot unless the cell already has one, so earlier calls
// keep their slots and surface and trunk blocks win over overlapping
// canopies.
func (a *assigner) generated(b world.Block) {
	if _, taken := a.slots[b.Cell]; taken {
		return
	}
	a.append(b.Cell, b.Type)
}

// place supersedes whatever occupies the cell and appends the placed block.
// A placement already live at the cell from an earlier call is kept.
func (a *assigner) place(b world.Block) {
	if slot, ok := a.slots[b.Cell]; ok && slot.Type == b.Type && a.buffers[slot.Type][slot.Index].Live {
		return
	}
	a.tombstone(b.Cell)
	a.append(b.Cell, b.Type)
}

// remove tombstones the slot named for the cell. The slot map entry and the
// counter are left untouched.
func (a *assigner) remove(cell world.Cell) {
	a.tombstone(cell)
}

func (a *assigner) tombstone(cell world.Cell) {
	slot, ok := a.slots[cell]
	if !ok {
		return
	}
	a.buffers[slot.Type][slot.Index] = world.Position{}
}
