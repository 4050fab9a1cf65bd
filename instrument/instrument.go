// Package instrument drives coverage partitioning and function pointer
// restriction over model files.
package instrument

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/gnolang/gotoinstr/internal/cover"
	"github.com/gnolang/gotoinstr/internal/program"
	tt "github.com/gnolang/gotoinstr/internal/types"
)

// Runner produces the issues of one model file.
type Runner interface {
	Run(path string) ([]tt.Issue, error)
}

// Engine partitions model files according to a configuration.
type Engine struct {
	config Config
	logger *zap.Logger
	cache  *Cache
}

func New(config Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{config: config, logger: logger}
}

// WithCache makes the engine reuse results of unchanged model files.
func (e *Engine) WithCache(c *Cache) *Engine {
	e.cache = c
	return e
}

func (e *Engine) Config() Config { return e.config }

// Run loads the model at path and reports its blocks and anomalies with the
// configured rule severities applied.
func (e *Engine) Run(path string) ([]tt.Issue, error) {
	issues, err := e.partition(path)
	if err != nil {
		return nil, err
	}

	var collector tt.Collector
	sink := tt.SeverityFilter{Rules: e.config.Rules, Next: &collector}
	for _, issue := range issues {
		sink.Report(issue)
	}
	return collector.Issues(), nil
}

// partition returns the issues of path before rule severities are applied.
// Only these are cached, so a cached entry survives changes to the rules.
func (e *Engine) partition(path string) ([]tt.Issue, error) {
	variant := e.config.Blocks.Variant
	if e.cache != nil {
		if issues, ok := e.cache.Get(path, variant); ok {
			e.logger.Debug("using cached blocks", zap.String("model", path))
			return issues, nil
		}
	}

	model, err := program.Load(path)
	if err != nil {
		return nil, err
	}

	var collector tt.Collector
	if err := PartitionModel(model, variant, &collector); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	issues := collector.Issues()
	for i := range issues {
		issues[i].Model = path
	}

	if e.cache != nil {
		if err := e.cache.Set(path, variant, issues); err != nil {
			e.logger.Warn("failed to cache blocks", zap.String("model", path), zap.Error(err))
		}
	}
	return issues, nil
}

// PartitionModel partitions every function of model, in name order, and
// reports each function's blocks followed by its anomalies to sink.
func PartitionModel(model *program.Model, variant string, sink tt.Sink) error {
	if err := cover.CheckVariant(variant); err != nil {
		return err
	}
	for _, fn := range model.FunctionNames() {
		body := model.Functions[fn]
		if body == nil {
			body = program.New()
		}
		part, err := cover.ForVariant(variant, body)
		if err != nil {
			return err
		}
		part.Output(fn, sink)
		part.ReportAnomalies(fn, body, sink)
	}
	return nil
}

func ProcessFile(engine Runner, path string) ([]tt.Issue, error) {
	return engine.Run(path)
}

// ProcessPaths processes every path in order and concatenates the issues.
// A failing path does not stop the others: its error is combined with the
// rest and returned alongside every issue collected.
func ProcessPaths(
	ctx context.Context,
	logger *zap.Logger,
	engine Runner,
	paths []string,
	processor func(Runner, string) ([]tt.Issue, error),
) ([]tt.Issue, error) {
	var (
		allIssues []tt.Issue
		errs      error
	)
	for _, path := range paths {
		issues, err := ProcessPath(ctx, logger, engine, path, processor)
		if err != nil {
			if logger != nil {
				logger.Error("Error processing path", zap.String("path", path), zap.Error(err))
			}
			errs = multierr.Append(errs, err)
		}
		allIssues = append(allIssues, issues...)
	}
	return allIssues, errs
}

type result struct {
	path   string
	issues []tt.Issue
	err    error
}

// ProcessPath runs processor on path, or on every model file below path when
// it is a directory. Directory entries are processed by a bounded pool of
// workers; the issues are returned in file name order.
func ProcessPath(
	ctx context.Context,
	logger *zap.Logger,
	engine Runner,
	path string,
	processor func(Runner, string) ([]tt.Issue, error),
) ([]tt.Issue, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("error accessing %s: %w", path, err)
	}
	if !info.IsDir() {
		return processor(engine, path)
	}

	files, err := ModelFiles(path)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(path),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))

	results := make(chan result, len(files))
	sem := semaphore.NewWeighted(int64(runtime.NumCPU()))
	var wg sync.WaitGroup

	var dispatchErr error
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			dispatchErr = err
			break
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			dispatchErr = err
			break
		}
		wg.Add(1)
		go func(file string) {
			defer wg.Done()
			defer sem.Release(1)

			issues, err := processor(engine, file)
			if err != nil && logger != nil {
				logger.Error("Error processing file", zap.String("file", file), zap.Error(err))
			}
			results <- result{path: file, issues: issues, err: err}
			bar.Describe(filepath.Base(file))
			_ = bar.Add(1)
		}(file)
	}
	wg.Wait()
	close(results)
	_ = bar.Finish()

	collected := make([]result, 0, len(files))
	for r := range results {
		collected = append(collected, r)
	}
	sort.Slice(collected, func(i, j int) bool { return collected[i].path < collected[j].path })

	var issues []tt.Issue
	errs := dispatchErr
	for _, r := range collected {
		if r.err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", r.path, r.err))
			continue
		}
		issues = append(issues, r.issues...)
	}
	return issues, errs
}

// modelSuffixes are the file name suffixes of model files found when walking
// a directory. Explicitly named files are accepted whatever their name.
var modelSuffixes = []string{".goto.yaml", ".goto.yml", ".goto.json"}

func IsModelFile(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return false
	}
	for _, suffix := range modelSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// ModelFiles returns the model files below dir in lexical order.
func ModelFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && IsModelFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
	}
	return files, nil
}
