package analyze

import (
	"sort"

	"github.com/vitaliy-khomyn/minicov/pkg/metrics"
)

// FileResult carries one file's coverage, one stats value per metric.
// A nil stats value means the provider path feeding that metric failed
// for this file, which is distinct from a present value with an empty
// possible set (nothing to cover, 100%).
type FileResult struct {
	Path       string
	Statements *metrics.Stats[int]
	Branches   *metrics.Stats[metrics.Arc]
	Conditions *metrics.Stats[metrics.Arc]
	Bytecode   *metrics.Stats[metrics.Arc]
}

// Report maps canonical paths to per-file results.
type Report struct {
	files map[string]*FileResult
}

// Files returns the report's canonical paths, sorted.
func (r *Report) Files() []string {
	out := make([]string, 0, len(r.files))
	for path := range r.files {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

// File returns the result for a canonical path.
func (r *Report) File(path string) (*FileResult, bool) {
	result, ok := r.files[path]
	return result, ok
}

// Len returns the number of files in the report.
func (r *Report) Len() int {
	return len(r.files)
}

// Summary is the whole-program view of one metric: per-file counts
// merged, nothing fancier.
type Summary struct {
	Pct      float64 `json:"pct"`
	Possible int     `json:"possible"`
	Hit      int     `json:"hit"`
	Missing  int     `json:"missing"`
	Files    int     `json:"files"`
}

func (s *Summary) add(stats summaryCounts) {
	s.Possible += stats.possible
	s.Hit += stats.hit
	s.Missing += stats.missing
	s.Files++
}

type summaryCounts struct {
	possible, hit, missing int
}

func countLines(stats *metrics.Stats[int]) summaryCounts {
	return summaryCounts{stats.Possible.Len(), stats.Hit.Len(), stats.Missing.Len()}
}

func countArcs(stats *metrics.Stats[metrics.Arc]) summaryCounts {
	return summaryCounts{stats.Possible.Len(), stats.Hit.Len(), stats.Missing.Len()}
}

// Total folds the per-file stats of one metric into program-wide
// counts. Files without stats for that metric do not contribute.
func (r *Report) Total(kind metrics.Kind) Summary {
	var s Summary
	for _, result := range r.files {
		switch kind {
		case metrics.Statement:
			if result.Statements != nil {
				s.add(countLines(result.Statements))
			}
		case metrics.Branch:
			if result.Branches != nil {
				s.add(countArcs(result.Branches))
			}
		case metrics.Condition:
			if result.Conditions != nil {
				s.add(countArcs(result.Conditions))
			}
		case metrics.Bytecode:
			if result.Bytecode != nil {
				s.add(countArcs(result.Bytecode))
			}
		}
	}

	if s.Possible == 0 {
		s.Pct = 100.0
	} else {
		s.Pct = 100.0 * float64(s.Hit) / float64(s.Possible)
	}
	return s
}
