package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/ppiankov/threadscope/internal/pipeline"
	"github.com/ppiankov/threadscope/internal/source"
	"github.com/ppiankov/threadscope/internal/worker"
	"github.com/spf13/cobra"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Analyze multiple tweet URLs from a file in parallel",
	Long: `Batch analyzes multiple tweet URLs concurrently:
- Read URLs from input file (one per line, # comments allowed)
- Analyze URLs in parallel with configurable worker count
- Write one analysis JSON per URL to the output directory

Example:
  threadscope batch urls.txt
  threadscope batch urls.txt --concurrency 4 --output-dir ./analyses
  threadscope batch urls.txt --llm --llm-provider anthropic`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent analyses")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./threadscope-analyses", "output directory for analysis JSON files")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")

	// Shared with analyze
	batchCmd.Flags().IntVar(&quoteDepth, "depth", 2, "maximum quote-of-quote depth to follow")
	batchCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable cache (force fresh fetch)")
	batchCmd.Flags().StringVar(&archiveURL, "archive-url", "", "community archive base URL (overrides config)")
	batchCmd.Flags().StringVar(&archiveToken, "archive-token", "", "community archive API token (or ARCHIVE_TOKEN env var)")
	batchCmd.Flags().BoolVar(&llmEnabled, "llm", false, "enable LLM reply classification and summaries")
	batchCmd.Flags().StringVar(&llmProvider, "llm-provider", "openai", "LLM provider (openai, anthropic)")
	batchCmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name (provider default if empty)")
	batchCmd.Flags().IntVar(&llmWorkers, "llm-workers", 4, "concurrent LLM classification calls")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Threadscope Batch Processing\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", concurrency)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if llmEnabled {
		fmt.Fprintf(os.Stderr, "  LLM:          %s/%s\n\n", llmProvider, llmModel)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	p, err := pipeline.New(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	processor := worker.NewBatchProcessor(p, concurrency)

	fmt.Fprintf(os.Stderr, "⚙️  Reading URLs from file...\n")
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	fmt.Fprintf(os.Stderr, "✓ Processed %d URLs\n", len(results))
	fmt.Fprintf(os.Stderr, "\n")

	successCount := 0
	failureCount := 0

	for _, result := range results {
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.URL, result.Error)
			continue
		}

		successCount++

		id, err := source.ExtractTweetID(result.URL)
		if err != nil {
			id = result.Analysis.MainPostID
		}
		jsonPath := filepath.Join(outputDir, id+".json")

		if err := writeAnalysisJSON(result.Analysis, jsonPath); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write JSON: %v\n", result.URL, err)
			continue
		}

		fmt.Fprintf(os.Stderr, "✓ @%s (%d tweets, depth %d)\n",
			result.Analysis.MainPostAuthorHandle,
			result.Analysis.GraphMetrics.TotalTweets,
			result.Analysis.GraphMetrics.ReplyDepth)
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d URLs\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}
