package sim

import "math"

// SpatialQuerier is the bounded radius-query service consumed by the hit
// resolver. FindWithinRadius fills buf with candidates whose position lies
// within radius of the center, returning the fill count; it must never grow
// buf. Enumeration order is implementation-defined but must be stable for a
// fixed set of registered targets, since first-match-wins target selection
// depends on it.
type SpatialQuerier interface {
	FindWithinRadius(x, y, radius float64, buf []Target) int
}

type gridCellKey struct {
	X int
	Y int
}

type gridEntry struct {
	target Target
	cell   gridCellKey
}

const (
	gridDefaultCellSize   = 64.0
	gridDefaultMaxPerCell = 16
)

// TargetGrid is a cell-hashed spatial index over point targets. Buckets keep
// insertion order and queries walk covered cells row-major, so enumeration
// order is deterministic for a fixed registration history.
type TargetGrid struct {
	cellSize    float64
	invCellSize float64
	maxPerCell  int
	cells       map[gridCellKey][]string
	entries     map[string]*gridEntry
}

// NewTargetGrid constructs an empty grid.
func NewTargetGrid(cellSize float64, maxPerCell int) *TargetGrid {
	if cellSize <= 0 {
		cellSize = gridDefaultCellSize
	}
	if maxPerCell <= 0 {
		maxPerCell = gridDefaultMaxPerCell
	}
	return &TargetGrid{
		cellSize:    cellSize,
		invCellSize: 1.0 / cellSize,
		maxPerCell:  maxPerCell,
		cells:       make(map[gridCellKey][]string),
		entries:     make(map[string]*gridEntry),
	}
}

// Upsert registers a target or moves an existing one to its current position.
// It reports false when the destination bucket is saturated.
func (g *TargetGrid) Upsert(target Target) bool {
	if g == nil || target == nil || target.ActorID() == "" {
		return true
	}
	x, y := target.Position()
	cell := gridCellKey{X: g.coordToCell(x), Y: g.coordToCell(y)}

	entry, existed := g.entries[target.ActorID()]
	if existed {
		if entry.cell == cell {
			entry.target = target
			return true
		}
		g.removeFromCell(target.ActorID(), entry.cell)
	} else if len(g.cells[cell]) >= g.maxPerCell {
		return false
	}

	g.entries[target.ActorID()] = &gridEntry{target: target, cell: cell}
	g.cells[cell] = append(g.cells[cell], target.ActorID())
	return true
}

// Remove drops a target from the index.
func (g *TargetGrid) Remove(actorID string) {
	if g == nil || actorID == "" {
		return
	}
	entry, ok := g.entries[actorID]
	if !ok {
		return
	}
	g.removeFromCell(actorID, entry.cell)
	delete(g.entries, actorID)
}

// FindWithinRadius implements SpatialQuerier. Covered cells are walked
// row-major and bucket contents in insertion order.
func (g *TargetGrid) FindWithinRadius(x, y, radius float64, buf []Target) int {
	if g == nil || radius <= 0 || len(buf) == 0 {
		return 0
	}
	minX := g.coordToCell(x - radius)
	maxX := g.coordToCell(x + radius)
	minY := g.coordToCell(y - radius)
	maxY := g.coordToCell(y + radius)
	radiusSq := radius * radius

	count := 0
	for row := minY; row <= maxY; row++ {
		for col := minX; col <= maxX; col++ {
			for _, id := range g.cells[gridCellKey{X: col, Y: row}] {
				entry := g.entries[id]
				if entry == nil {
					continue
				}
				tx, ty := entry.target.Position()
				dx := tx - x
				dy := ty - y
				if dx*dx+dy*dy > radiusSq {
					continue
				}
				buf[count] = entry.target
				count++
				if count == len(buf) {
					return count
				}
			}
		}
	}
	return count
}

func (g *TargetGrid) removeFromCell(actorID string, cell gridCellKey) {
	bucket := g.cells[cell]
	for i := range bucket {
		if bucket[i] != actorID {
			continue
		}
		bucket = append(bucket[:i], bucket[i+1:]...)
		break
	}
	if len(bucket) == 0 {
		delete(g.cells, cell)
	} else {
		g.cells[cell] = bucket
	}
}

func (g *TargetGrid) coordToCell(value float64) int {
	return int(math.Floor(value * g.invCellSize))
}
