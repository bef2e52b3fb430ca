package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/vitaliy-khomyn/minicov/pkg/metrics"
)

// FileStatics holds everything the analyzer learns about a file
// without looking at trace data: the possible sets for all four
// metrics, which provider paths produced them, and the hash of the
// source they were computed from.
type FileStatics struct {
	Statements metrics.Set[int]
	Branches   metrics.Set[metrics.Arc]
	Conditions metrics.Set[metrics.Arc]
	Bytecode   metrics.Set[metrics.Arc]

	// ParseOK reports whether the source-side provider succeeded.
	// When false, Statements and Branches carry nothing usable.
	ParseOK bool

	// CompileOK reports whether the instruction-side provider
	// succeeded. When false, Conditions and Bytecode carry nothing
	// usable.
	CompileOK bool

	// Hash is the hex SHA-256 of the source bytes the sets were
	// computed from.
	Hash string
}

// HashSource returns the hex SHA-256 of source bytes. Lookups compare
// it against the stored hash to spot files that changed on disk.
func HashSource(src []byte) string {
	sum := sha256.Sum256(src)
	return hex.EncodeToString(sum[:])
}

// staticsDoc is the serialized form of FileStatics. Sets become sorted
// slices so snapshots are byte-for-byte reproducible.
type staticsDoc struct {
	Statements []int         `msgpack:"statements" json:"statements"`
	Branches   []metrics.Arc `msgpack:"branches" json:"branches"`
	Conditions []metrics.Arc `msgpack:"conditions" json:"conditions"`
	Bytecode   []metrics.Arc `msgpack:"bytecode" json:"bytecode"`
	ParseOK    bool          `msgpack:"parse_ok" json:"parse_ok"`
	CompileOK  bool          `msgpack:"compile_ok" json:"compile_ok"`
	Hash       string        `msgpack:"hash" json:"hash"`
}

type entryDoc struct {
	Path       string     `msgpack:"path" json:"path"`
	Statics    staticsDoc `msgpack:"statics" json:"statics"`
	AccessedAt time.Time  `msgpack:"accessed_at" json:"accessed_at"`
	CreatedAt  time.Time  `msgpack:"created_at" json:"created_at"`
}

type snapshotDoc struct {
	Version int        `msgpack:"version" json:"version"`
	Entries []entryDoc `msgpack:"entries" json:"entries"`
}

func docFromStatics(s *FileStatics) staticsDoc {
	if s == nil {
		return staticsDoc{}
	}
	return staticsDoc{
		Statements: metrics.SortedLines(s.Statements),
		Branches:   metrics.SortedArcs(s.Branches),
		Conditions: metrics.SortedArcs(s.Conditions),
		Bytecode:   metrics.SortedArcs(s.Bytecode),
		ParseOK:    s.ParseOK,
		CompileOK:  s.CompileOK,
		Hash:       s.Hash,
	}
}

func staticsFromDoc(d staticsDoc) *FileStatics {
	s := &FileStatics{
		Statements: metrics.NewSet[int](),
		Branches:   metrics.NewSet[metrics.Arc](),
		Conditions: metrics.NewSet[metrics.Arc](),
		Bytecode:   metrics.NewSet[metrics.Arc](),
		ParseOK:    d.ParseOK,
		CompileOK:  d.CompileOK,
		Hash:       d.Hash,
	}
	for _, line := range d.Statements {
		s.Statements.Add(line)
	}
	for _, arc := range d.Branches {
		s.Branches.Add(arc)
	}
	for _, arc := range d.Conditions {
		s.Conditions.Add(arc)
	}
	for _, arc := range d.Bytecode {
		s.Bytecode.Add(arc)
	}
	return s
}
