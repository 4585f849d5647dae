package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/ppiankov/threadscope/internal/model"
	"github.com/ppiankov/threadscope/internal/pipeline"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	outJSON      string
	timeout      time.Duration
	quoteDepth   int
	noCache      bool
	archiveURL   string
	archiveToken string
	llmEnabled   bool
	llmProvider  string
	llmModel     string
	llmWorkers   int
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <tweet-url>",
	Short: "Analyze the conversation around a single tweet",
	Long: `Analyze reconstructs the conversation around one tweet:
- Fetch the main thread and its replies from the community archive
- Follow quote tweets recursively up to --depth levels
- Build the reply/quote graph and compute structural metrics
- Optionally classify replies by sentiment and agreement with an LLM

Example:
  threadscope analyze https://x.com/someone/status/1234567890
  threadscope analyze https://x.com/someone/status/1234567890 --json out.json
  threadscope analyze https://x.com/someone/status/1234567890 --llm --llm-provider anthropic`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	// Output flags
	analyzeCmd.Flags().StringVar(&outJSON, "json", "", "write full analysis JSON to this path ('-' for stdout)")

	// Traversal flags
	analyzeCmd.Flags().IntVar(&quoteDepth, "depth", 2, "maximum quote-of-quote depth to follow")
	analyzeCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall analysis timeout")
	analyzeCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable cache (force fresh fetch)")

	// Archive flags
	analyzeCmd.Flags().StringVar(&archiveURL, "archive-url", "", "community archive base URL (overrides config)")
	analyzeCmd.Flags().StringVar(&archiveToken, "archive-token", "", "community archive API token (or ARCHIVE_TOKEN env var)")

	// LLM flags
	analyzeCmd.Flags().BoolVar(&llmEnabled, "llm", false, "enable LLM reply classification and summaries")
	analyzeCmd.Flags().StringVar(&llmProvider, "llm-provider", "openai", "LLM provider (openai, anthropic)")
	analyzeCmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name (provider default if empty)")
	analyzeCmd.Flags().IntVar(&llmWorkers, "llm-workers", 4, "concurrent LLM classification calls")
}

// buildConfig assembles runtime configuration from defaults, config file
// values, and flags, in increasing priority. Flags with defaults only
// override the file when explicitly set on the command line.
func buildConfig(cmd *cobra.Command) (*model.Config, error) {
	cfg := model.DefaultConfig()

	if v := viper.GetString("archive.base_url"); v != "" {
		cfg.Archive.BaseURL = v
	}
	if v := viper.GetString("archive.token"); v != "" {
		cfg.Archive.Token = v
	}
	if v := viper.GetInt("traversal.max_quote_depth"); v > 0 {
		cfg.Traversal.MaxQuoteDepth = v
	}
	if v := viper.GetString("cache.dir"); v != "" {
		cfg.Cache.Dir = v
	}

	if archiveURL != "" {
		cfg.Archive.BaseURL = archiveURL
	}
	if archiveToken != "" {
		cfg.Archive.Token = archiveToken
	} else if cfg.Archive.Token == "" {
		cfg.Archive.Token = os.Getenv("ARCHIVE_TOKEN")
	}

	if cmd.Flags().Changed("depth") {
		cfg.Traversal.MaxQuoteDepth = quoteDepth
	}
	cfg.Cache.Enabled = !noCache
	cfg.Output.Verbose = verbose

	if llmEnabled {
		cfg.LLM.Provider = llmProvider
		cfg.LLM.Model = llmModel
		cfg.LLM.Workers = llmWorkers

		// Get API key from environment
		switch llmProvider {
		case "openai":
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
			if cfg.LLM.APIKey == "" {
				return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
			}
		case "anthropic", "claude":
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
			if cfg.LLM.APIKey == "" {
				return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
			}
		}
	}

	return cfg, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	tweetURL := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if verbose {
		fmt.Fprintf(os.Stderr, "Analyzing: %s\n", tweetURL)
		fmt.Fprintf(os.Stderr, "Quote depth: %d\n", quoteDepth)
		fmt.Fprintf(os.Stderr, "Cache: %v\n", !noCache)
		fmt.Fprintln(os.Stderr)
	}

	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	p, err := pipeline.New(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	analysis, err := p.Analyze(ctx, tweetURL)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	printSummary(analysis)

	if outJSON != "" {
		if err := writeAnalysisJSON(analysis, outJSON); err != nil {
			return fmt.Errorf("write JSON: %w", err)
		}
		if verbose && outJSON != "-" {
			fmt.Fprintf(os.Stderr, "✓ Wrote %s\n", outJSON)
		}
	}

	return nil
}

// printSummary writes a human-readable digest of the analysis to stdout.
func printSummary(a *model.Analysis) {
	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Printf("  @%s\n", a.MainPostAuthorHandle)
	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Println()
	fmt.Printf("  %s\n", a.MainPostText)
	fmt.Println()
	fmt.Printf("  Tweets:          %d\n", a.GraphMetrics.TotalTweets)
	fmt.Printf("  Edges:           %d\n", a.GraphMetrics.TotalEdges)
	fmt.Printf("  Reply depth:     %d\n", a.GraphMetrics.ReplyDepth)
	if mr := a.GraphMetrics.MostRepliedTo; mr != nil {
		fmt.Printf("  Most replied:    @%s (%d replies)\n", mr.Author, mr.ReplyCount)
	}
	fmt.Printf("  Authors:         %d\n", len(a.GraphMetrics.AuthorStats))
	if a.FromCache {
		fmt.Printf("  Served from cache (fetched %s)\n", a.FetchedAt.Format(time.RFC3339))
	}
	fmt.Println()

	if len(a.Clusters) > 0 {
		fmt.Println("  Reply clusters:")
		names := make([]string, 0, len(a.Clusters))
		for name := range a.Clusters {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("    %-28s %d\n", name, len(a.Clusters[name].Tweets))
		}
		fmt.Println()
	}
	if a.OverallSummary != "" {
		fmt.Printf("  Summary: %s\n", a.OverallSummary)
		fmt.Println()
	}
}

// writeAnalysisJSON renders the analysis as indented JSON to a file or
// stdout when path is "-".
func writeAnalysisJSON(a *model.Analysis, path string) error {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}
	data = append(data, '\n')

	if path == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0644)
}
