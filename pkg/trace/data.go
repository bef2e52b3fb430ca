package trace

import (
	"sort"
	"sync"

	"github.com/vitaliy-khomyn/minicov/pkg/metrics"
)

// Data accumulates execution evidence in three feeds: executed lines,
// executed source-line arcs, and executed instruction-address arcs.
// Every feed is keyed by file spelling, then context ID. Safe for
// concurrent use.
type Data struct {
	mu        sync.RWMutex
	lines     map[string]map[int]metrics.Set[int]
	arcs      map[string]map[int]metrics.Set[metrics.Arc]
	instrArcs map[string]map[int]metrics.Set[metrics.Arc]
}

// NewData returns an empty evidence container.
func NewData() *Data {
	return &Data{
		lines:     make(map[string]map[int]metrics.Set[int]),
		arcs:      make(map[string]map[int]metrics.Set[metrics.Arc]),
		instrArcs: make(map[string]map[int]metrics.Set[metrics.Arc]),
	}
}

// AddLine records that a line executed under a context.
func (d *Data) AddLine(file string, ctx, line int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	byCtx, ok := d.lines[file]
	if !ok {
		byCtx = make(map[int]metrics.Set[int])
		d.lines[file] = byCtx
	}
	set, ok := byCtx[ctx]
	if !ok {
		set = metrics.NewSet[int]()
		byCtx[ctx] = set
	}
	set.Add(line)
}

// AddArc records a taken source-line arc under a context.
func (d *Data) AddArc(file string, ctx, from, to int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	addArc(d.arcs, file, ctx, from, to)
}

// AddInstructionArc records a taken instruction-address arc under a
// context.
func (d *Data) AddInstructionArc(file string, ctx, from, to int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	addArc(d.instrArcs, file, ctx, from, to)
}

func addArc(feed map[string]map[int]metrics.Set[metrics.Arc], file string, ctx, from, to int) {
	byCtx, ok := feed[file]
	if !ok {
		byCtx = make(map[int]metrics.Set[metrics.Arc])
		feed[file] = byCtx
	}
	set, ok := byCtx[ctx]
	if !ok {
		set = metrics.NewSet[metrics.Arc]()
		byCtx[ctx] = set
	}
	set.Add(metrics.Arc{From: from, To: to})
}

// Files returns every file spelling present in any feed, sorted.
func (d *Data) Files() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	seen := make(map[string]bool)
	for file := range d.lines {
		seen[file] = true
	}
	for file := range d.arcs {
		seen[file] = true
	}
	for file := range d.instrArcs {
		seen[file] = true
	}

	files := make([]string, 0, len(seen))
	for file := range seen {
		files = append(files, file)
	}
	sort.Strings(files)
	return files
}

// AggregateLines unions the executed lines recorded under any of the
// given file spellings. With no contexts given, every context counts;
// otherwise only the listed ones.
func (d *Data) AggregateLines(files []string, contexts ...int) metrics.Set[int] {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := metrics.NewSet[int]()
	for _, file := range files {
		for ctx, set := range d.lines[file] {
			if !contextWanted(ctx, contexts) {
				continue
			}
			for line := range set {
				out.Add(line)
			}
		}
	}
	return out
}

// AggregateArcs unions the executed source-line arcs recorded under any
// of the given file spellings, filtered by context like AggregateLines.
func (d *Data) AggregateArcs(files []string, contexts ...int) metrics.Set[metrics.Arc] {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return aggregateArcs(d.arcs, files, contexts)
}

// AggregateInstructionArcs unions the executed instruction arcs
// recorded under any of the given file spellings, filtered by context
// like AggregateLines.
func (d *Data) AggregateInstructionArcs(files []string, contexts ...int) metrics.Set[metrics.Arc] {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return aggregateArcs(d.instrArcs, files, contexts)
}

func aggregateArcs(feed map[string]map[int]metrics.Set[metrics.Arc], files []string, contexts []int) metrics.Set[metrics.Arc] {
	out := metrics.NewSet[metrics.Arc]()
	for _, file := range files {
		for ctx, set := range feed[file] {
			if !contextWanted(ctx, contexts) {
				continue
			}
			for arc := range set {
				out.Add(arc)
			}
		}
	}
	return out
}

func contextWanted(ctx int, contexts []int) bool {
	if len(contexts) == 0 {
		return true
	}
	for _, want := range contexts {
		if ctx == want {
			return true
		}
	}
	return false
}

// Merge folds another container's evidence into this one.
func (d *Data) Merge(other *Data) {
	other.mu.RLock()
	defer other.mu.RUnlock()
	d.mu.Lock()
	defer d.mu.Unlock()

	for file, byCtx := range other.lines {
		for ctx, set := range byCtx {
			for line := range set {
				dst, ok := d.lines[file]
				if !ok {
					dst = make(map[int]metrics.Set[int])
					d.lines[file] = dst
				}
				lineSet, ok := dst[ctx]
				if !ok {
					lineSet = metrics.NewSet[int]()
					dst[ctx] = lineSet
				}
				lineSet.Add(line)
			}
		}
	}
	for file, byCtx := range other.arcs {
		for ctx, set := range byCtx {
			for arc := range set {
				addArc(d.arcs, file, ctx, arc.From, arc.To)
			}
		}
	}
	for file, byCtx := range other.instrArcs {
		for ctx, set := range byCtx {
			for arc := range set {
				addArc(d.instrArcs, file, ctx, arc.From, arc.To)
			}
		}
	}
}
