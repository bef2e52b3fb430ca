// Package analyze reconciles execution evidence with per-file static
// analysis into coverage reports. It is the composition root of the
// module: parser, compile provider, path resolver, optional cache and
// optional source discovery all meet here.
package analyze

import (
	"context"
	"os"
	"runtime"
	"sort"
	"sync"

	"github.com/vitaliy-khomyn/minicov/internal/config"
	"github.com/vitaliy-khomyn/minicov/internal/log"
	"github.com/vitaliy-khomyn/minicov/internal/scanner"
	"github.com/vitaliy-khomyn/minicov/pkg/cache"
	"github.com/vitaliy-khomyn/minicov/pkg/codeunit"
	"github.com/vitaliy-khomyn/minicov/pkg/metrics"
	"github.com/vitaliy-khomyn/minicov/pkg/paths"
	"github.com/vitaliy-khomyn/minicov/pkg/source"
	"github.com/vitaliy-khomyn/minicov/pkg/trace"
)

// Options configures an Analyzer. Every field has a workable zero
// value: a missing Provider just means no instruction-side metrics,
// and a missing Cache means every pass computes from scratch.
type Options struct {
	Config   *config.Config
	Parser   *source.Parser
	Provider codeunit.Provider
	Resolver *paths.Resolver
	Cache    cache.Cache
	Logger   log.Logger
	Workers  int
}

// Analyzer produces coverage reports from trace data.
type Analyzer struct {
	cfg      *config.Config
	parser   *source.Parser
	provider codeunit.Provider
	resolver *paths.Resolver
	cache    cache.Cache
	logger   log.Logger
	workers  int
}

// New creates an Analyzer, filling unset options from the config.
func New(opts Options) *Analyzer {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	logger := opts.Logger
	if logger == nil {
		if cfg.Verbose {
			logger = log.New(log.LoggerConfig{Level: log.DebugLevel})
		} else {
			logger = log.Default()
		}
	}

	parser := opts.Parser
	if parser == nil {
		parser = source.NewParserWithLogger(cfg.ExcludeLines, logger)
	}

	resolver := opts.Resolver
	if resolver == nil {
		resolver = paths.NewResolver(cfg)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = cfg.Workers
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	return &Analyzer{
		cfg:      cfg,
		parser:   parser,
		provider: opts.Provider,
		resolver: resolver,
		cache:    opts.Cache,
		logger:   logger,
		workers:  workers,
	}
}

// Analyze reconciles the evidence in data into a per-file Report. Files
// fan out across a bounded worker pool; cancellation of ctx abandons
// the pass and returns the context's error.
func (a *Analyzer) Analyze(ctx context.Context, data *trace.Data) (*Report, error) {
	if data == nil {
		data = trace.NewData()
	}

	groups := a.groupFiles(data)

	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	results := make(map[string]*FileResult, len(keys))
	sem := make(chan struct{}, a.workers)

	for _, key := range keys {
		wg.Add(1)
		go func(key string) {
			sem <- struct{}{}
			defer wg.Done()
			defer func() { <-sem }()

			select {
			case <-ctx.Done():
				return
			default:
			}

			result := a.analyzeFile(key, groups[key], data)
			if result == nil {
				return
			}
			mu.Lock()
			results[key] = result
			mu.Unlock()
		}(key)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Report{files: results}, nil
}

// groupFiles collapses every spelling in the trace data onto canonical
// report keys, drops files the configuration filters out, and adds
// discovered files that never executed.
func (a *Analyzer) groupFiles(data *trace.Data) map[string][]string {
	groups := make(map[string][]string)
	for _, spelling := range data.Files() {
		key := a.resolver.Resolve(spelling)
		groups[key] = append(groups[key], spelling)
	}

	for key := range groups {
		if !a.resolver.ShouldTrace(key) {
			a.logger.Debug("file filtered out", "file", key)
			delete(groups, key)
		}
	}

	a.discover(groups)
	return groups
}

// discover walks the configured source roots so files that never
// executed still report at 0% instead of silently vanishing.
func (a *Analyzer) discover(groups map[string][]string) {
	roots := a.resolver.Roots()
	if len(roots) == 0 {
		return
	}

	for _, root := range roots {
		files, err := scanner.Scan(root)
		if err != nil {
			a.logger.Warn("source root scan failed", "root", root, "error", err)
			continue
		}
		for _, f := range files {
			key := a.resolver.Resolve(f.FullPath)
			if !a.resolver.ShouldTrace(key) {
				continue
			}
			if _, seen := groups[key]; !seen {
				groups[key] = nil
			}
		}
	}
}

// analyzeFile computes one file's result. It returns nil when both
// provider paths failed, which omits the file from the report.
func (a *Analyzer) analyzeFile(key string, spellings []string, data *trace.Data) *FileResult {
	src, err := os.ReadFile(key)
	readable := err == nil
	if !readable {
		a.logger.Debug("source unreadable", "file", key, "error", err)
	}

	statics := a.fileStatics(key, src, readable)
	if !statics.ParseOK && !statics.CompileOK {
		a.logger.Debug("no provider produced data", "file", key)
		return nil
	}

	result := &FileResult{Path: key}

	if statics.ParseOK {
		stmt := metrics.Calculate(statics.Statements, data.AggregateLines(spellings))
		result.Statements = &stmt
		if a.cfg.Branch {
			branch := metrics.Calculate(statics.Branches, data.AggregateArcs(spellings))
			result.Branches = &branch
		}
	}

	if a.cfg.Branch && statics.CompileOK {
		instr := data.AggregateInstructionArcs(spellings)
		cond := metrics.Calculate(statics.Conditions, instr)
		result.Conditions = &cond
		flow := metrics.Calculate(statics.Bytecode, instr)
		result.Bytecode = &flow
	}

	return result
}

// fileStatics returns the per-file static analysis, from the cache when
// one is wired and the source hash still matches.
func (a *Analyzer) fileStatics(key string, src []byte, readable bool) *cache.FileStatics {
	var hash string
	if readable {
		hash = cache.HashSource(src)
	}

	if readable && a.cache != nil {
		if statics, ok := a.cache.Lookup(key, hash); ok {
			return statics
		}
	}

	statics := a.computeStatics(key, src, readable, hash)

	if readable && a.cache != nil {
		a.cache.Store(key, statics)
	}
	return statics
}

// computeStatics runs both providers and all four extractors. Provider
// failures are logged at debug level and leave that side's sets empty;
// they never abort the pass.
func (a *Analyzer) computeStatics(key string, src []byte, readable bool, hash string) *cache.FileStatics {
	statics := &cache.FileStatics{Hash: hash}
	in := metrics.Input{Path: key}

	if readable {
		file, suppressed, err := a.parser.Parse(key, src)
		if err != nil {
			a.logger.Debug("parse failed", "file", key, "error", err)
		} else {
			defer file.Close()
			statics.ParseOK = true
			in.File = file
			in.Suppressed = suppressed
		}
	}

	if a.provider != nil {
		program, err := a.provider.Compile(key)
		if err != nil {
			a.logger.Debug("no compiled units", "file", key, "error", err)
		} else {
			statics.CompileOK = true
			in.Program = program
		}
	}

	statics.Statements = metrics.StatementExtractor{}.Possible(in)
	statics.Branches = metrics.BranchExtractor{}.Possible(in)
	statics.Conditions = metrics.ConditionExtractor{}.Possible(in)
	statics.Bytecode = metrics.BytecodeExtractor{}.Possible(in)
	return statics
}
