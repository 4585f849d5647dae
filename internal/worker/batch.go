package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/threadscope/internal/model"
)

// Analyzer defines the interface for analyzing a tweet URL
type Analyzer interface {
	Analyze(ctx context.Context, tweetURL string) (*model.Analysis, error)
}

// AnalyzeJob represents one tweet URL analysis job
type AnalyzeJob struct {
	URL      string
	Analyzer Analyzer
}

// Execute runs the analysis for the job's URL
func (j *AnalyzeJob) Execute(ctx context.Context) Result {
	analysis, err := j.Analyzer.Analyze(ctx, j.URL)
	return &AnalyzeResult{
		URL:      j.URL,
		Analysis: analysis,
		Error:    err,
	}
}

// AnalyzeResult represents the result of an analysis job
type AnalyzeResult struct {
	URL      string
	Analysis *model.Analysis
	Error    error
}

// GetError returns the error from the analysis result
func (r *AnalyzeResult) GetError() error {
	return r.Error
}

// BatchProcessor analyzes multiple tweet URLs concurrently
type BatchProcessor struct {
	analyzer    Analyzer
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(analyzer Analyzer, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		analyzer:    analyzer,
		concurrency: concurrency,
	}
}

// ProcessURLs analyzes the given URLs concurrently and returns one
// result per URL, in completion order.
func (b *BatchProcessor) ProcessURLs(ctx context.Context, urls []string) []*AnalyzeResult {
	if len(urls) == 0 {
		return []*AnalyzeResult{}
	}

	pool := NewPool(b.concurrency)
	pool.Start()

	for _, url := range urls {
		pool.Submit(&AnalyzeJob{
			URL:      url,
			Analyzer: b.analyzer,
		})
	}

	results := pool.Wait()

	analyzeResults := make([]*AnalyzeResult, len(results))
	for i, result := range results {
		analyzeResults[i] = result.(*AnalyzeResult)
	}

	return analyzeResults
}

// ProcessFile reads tweet URLs from a file and analyzes them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*AnalyzeResult, error) {
	urls, err := ReadURLsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read URLs: %w", err)
	}

	return b.ProcessURLs(ctx, urls), nil
}

// ReadURLsFromFile reads URLs from a file (one per line). Blank lines
// and #-comments are skipped; duplicates are dropped.
func ReadURLsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var urls []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			urls = append(urls, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return urls, nil
}
