// Package cfg builds control flow graphs over compiled instruction
// streams and answers reachability and dominator queries on them.
package cfg

import (
	"sort"

	"github.com/vitaliy-khomyn/minicov/internal/log"
	"github.com/vitaliy-khomyn/minicov/pkg/codeunit"
)

// Arc is a control transfer between two instruction offsets.
type Arc struct {
	From int
	To   int
}

// Block is a basic block: a run of instructions that control enters
// only at Start. End is the offset of the block's final instruction,
// not an exclusive bound.
type Block struct {
	Start int
	End   int
}

// Graph is the control flow graph of one compiled unit. Blocks are
// identified by their start offset. A block has at most two successors:
// a jump destination and a fallthrough.
type Graph struct {
	name      string
	blocks    []Block
	index     map[int]int // block start offset -> position in blocks
	succs     map[int][]int
	preds     map[int][]int
	dom       map[int]map[int]bool
	reachable map[int]bool
}

// New builds the control flow graph for a unit.
func New(u *codeunit.Unit) *Graph {
	return NewWithLogger(u, log.Default())
}

// NewWithLogger builds the graph using the given logger for diagnostics
// about malformed instruction streams.
func NewWithLogger(u *codeunit.Unit, logger log.Logger) *Graph {
	g := &Graph{
		name:      u.Name,
		index:     make(map[int]int),
		succs:     make(map[int][]int),
		preds:     make(map[int][]int),
		dom:       make(map[int]map[int]bool),
		reachable: make(map[int]bool),
	}
	if len(u.Instructions) == 0 {
		return g
	}
	g.build(u, logger)
	return g
}

func (g *Graph) build(u *codeunit.Unit, logger log.Logger) {
	instrs := u.Instructions
	valid := make(map[int]int, len(instrs)) // offset -> instruction index
	for i, ins := range instrs {
		valid[ins.Offset] = i
	}

	// A leader begins a basic block: the entry, every jump destination,
	// every offset following a jump or terminator, and every exception
	// handler entry. Destinations that line up with no instruction are
	// dropped rather than trusted.
	leaders := map[int]bool{instrs[0].Offset: true}
	for i, ins := range instrs {
		if ins.Op.IsJump() {
			if _, ok := valid[ins.Target]; ok {
				leaders[ins.Target] = true
			} else {
				logger.Debug("dropping jump with misaligned target",
					"unit", g.name, "offset", ins.Offset, "target", ins.Target)
			}
		}
		if (ins.Op.IsJump() || ins.Op == codeunit.OpTerm) && i+1 < len(instrs) {
			leaders[instrs[i+1].Offset] = true
		}
	}
	for _, h := range u.Handlers {
		if _, ok := valid[h]; ok {
			leaders[h] = true
		} else {
			logger.Debug("dropping handler with misaligned entry",
				"unit", g.name, "entry", h)
		}
	}

	starts := make([]int, 0, len(leaders))
	for off := range leaders {
		starts = append(starts, off)
	}
	sort.Ints(starts)

	for bi, start := range starts {
		lastIdx := len(instrs) - 1
		if bi+1 < len(starts) {
			lastIdx = valid[starts[bi+1]] - 1
		}
		g.blocks = append(g.blocks, Block{Start: start, End: instrs[lastIdx].Offset})
		g.index[start] = bi
	}

	// Only a block's final instruction can leave it, so edges come from
	// there: the jump destination when it is a block start, plus the
	// fallthrough unless the instruction never falls through.
	for bi, b := range g.blocks {
		last := instrs[valid[b.End]]
		if last.Op.IsJump() {
			if _, ok := g.index[last.Target]; ok {
				g.addEdge(b.Start, last.Target)
			}
		}
		if !last.Op.BreaksFlow() && bi+1 < len(g.blocks) {
			g.addEdge(b.Start, g.blocks[bi+1].Start)
		}
	}
	for start := range g.succs {
		sort.Ints(g.succs[start])
	}
	for start := range g.preds {
		sort.Ints(g.preds[start])
	}

	g.computeReachable()
	g.computeDominators()
}

func (g *Graph) addEdge(from, to int) {
	for _, s := range g.succs[from] {
		if s == to {
			return
		}
	}
	g.succs[from] = append(g.succs[from], to)
	g.preds[to] = append(g.preds[to], from)
}

func (g *Graph) computeReachable() {
	entry := g.blocks[0].Start
	g.reachable[entry] = true
	queue := []int{entry}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range g.succs[cur] {
			if !g.reachable[next] {
				g.reachable[next] = true
				queue = append(queue, next)
			}
		}
	}
}

// computeDominators runs the classic iterative data flow: the entry
// dominates only itself, every other block starts with the universal
// set, and sets shrink to a fixed point through predecessor
// intersection.
func (g *Graph) computeDominators() {
	entry := g.blocks[0].Start
	g.dom[entry] = map[int]bool{entry: true}
	for _, b := range g.blocks {
		if b.Start == entry {
			continue
		}
		full := make(map[int]bool, len(g.blocks))
		for _, other := range g.blocks {
			full[other.Start] = true
		}
		g.dom[b.Start] = full
	}

	changed := true
	for changed {
		changed = false
		for _, b := range g.blocks {
			if b.Start == entry || len(g.preds[b.Start]) == 0 {
				continue
			}
			next := g.intersectPreds(b.Start)
			next[b.Start] = true
			if !sameSet(next, g.dom[b.Start]) {
				g.dom[b.Start] = next
				changed = true
			}
		}
	}
}

func (g *Graph) intersectPreds(start int) map[int]bool {
	preds := g.preds[start]
	out := make(map[int]bool, len(g.dom[preds[0]]))
	for off := range g.dom[preds[0]] {
		out[off] = true
	}
	for _, p := range preds[1:] {
		d := g.dom[p]
		for off := range out {
			if !d[off] {
				delete(out, off)
			}
		}
	}
	return out
}

func sameSet(a, b map[int]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

// Len returns the number of basic blocks.
func (g *Graph) Len() int {
	return len(g.blocks)
}

// Blocks returns the basic blocks in ascending start order.
func (g *Graph) Blocks() []Block {
	out := make([]Block, len(g.blocks))
	copy(out, g.blocks)
	return out
}

// Block returns the block beginning at the given offset.
func (g *Graph) Block(start int) (Block, bool) {
	idx, ok := g.index[start]
	if !ok {
		return Block{}, false
	}
	return g.blocks[idx], true
}

// Successors returns the start offsets of the blocks directly reachable
// from the block at start, in ascending order.
func (g *Graph) Successors(start int) []int {
	return append([]int(nil), g.succs[start]...)
}

// Predecessors returns the start offsets of the blocks that can branch
// to the block at start, in ascending order.
func (g *Graph) Predecessors(start int) []int {
	return append([]int(nil), g.preds[start]...)
}

// Reachable reports whether the block at start can execute at all.
func (g *Graph) Reachable(start int) bool {
	return g.reachable[start]
}

// Dominators returns the start offsets of every block that dominates
// the block at start, including the block itself, in ascending order.
// The bool is false when start is not the start of a reachable block,
// in which case no answer exists.
func (g *Graph) Dominators(start int) ([]int, bool) {
	if !g.reachable[start] {
		return nil, false
	}
	set := g.dom[start]
	out := make([]int, 0, len(set))
	for off := range set {
		out = append(out, off)
	}
	sort.Ints(out)
	return out, true
}

// Jumps returns every control transfer in the graph as offset pairs:
// from the transferring block's final instruction to the destination
// block's start. Pairs come back sorted.
func (g *Graph) Jumps() []Arc {
	var arcs []Arc
	for _, b := range g.blocks {
		for _, succ := range g.succs[b.Start] {
			arcs = append(arcs, Arc{From: b.End, To: succ})
		}
	}
	sort.Slice(arcs, func(i, j int) bool {
		if arcs[i].From != arcs[j].From {
			return arcs[i].From < arcs[j].From
		}
		return arcs[i].To < arcs[j].To
	})
	return arcs
}
