package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/ziadkadry99/ragsearch/internal/progress"
)

// DefaultIncludePatterns selects the formats the built-in converter
// chain can handle.
var DefaultIncludePatterns = []string{"**/*.md", "**/*.markdown", "**/*.txt"}

// BatchRequest describes one batch ingestion run over a directory tree.
type BatchRequest struct {
	Dir string
	// Include holds doublestar patterns matched against paths relative
	// to Dir. Empty means DefaultIncludePatterns.
	Include []string
	// CompanyName tags every document in the batch.
	CompanyName string
	// SkipExisting skips documents whose artifacts already exist.
	SkipExisting bool
	// Reporter receives per-document progress. Nil means no reporting.
	Reporter progress.Reporter
}

// Discover walks dir and returns the files matching the include
// patterns, sorted for a stable processing order.
func Discover(dir string, include []string) ([]string, error) {
	if len(include) == 0 {
		include = DefaultIncludePatterns
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		for _, pattern := range include {
			if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
				files = append(files, path)
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discovering documents in %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

// ProcessDocuments ingests every matching file under req.Dir with
// bounded parallelism. Failures are isolated per document and collected
// in the report.
func (p *Pipeline) ProcessDocuments(ctx context.Context, req BatchRequest) (*Report, error) {
	files, err := Discover(req.Dir, req.Include)
	if err != nil {
		return nil, err
	}

	reporter := req.Reporter
	if reporter == nil {
		reporter = progress.NopReporter{}
	}
	reporter.Start(len(files))
	defer reporter.Finish()

	report := &Report{}
	if len(files) == 0 {
		return report, nil
	}

	sem := make(chan struct{}, p.concurrency)
	var mu sync.Mutex
	var done int64
	var wg sync.WaitGroup

	for _, file := range files {
		select {
		case <-ctx.Done():
			mu.Lock()
			report.add(fail(Outcome{Path: file, DisplayName: filepath.Base(file)}, ctx.Err()))
			mu.Unlock()
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			defer func() { <-sem }()

			out := p.ProcessFile(ctx, FileRequest{
				Path:         path,
				CompanyName:  req.CompanyName,
				SkipExisting: req.SkipExisting,
			})
			if out.Err != nil {
				p.logger.Warn("document failed",
					zap.String("path", path),
					zap.Error(out.Err))
			}

			mu.Lock()
			report.add(out)
			mu.Unlock()

			count := atomic.AddInt64(&done, 1)
			reporter.Update(int(count), out.DisplayName)
		}(file)
	}

	wg.Wait()
	return report, nil
}
