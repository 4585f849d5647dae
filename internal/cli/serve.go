package cli

import (
	"fmt"
	"os"

	"github.com/ppiankov/threadscope/internal/pipeline"
	"github.com/ppiankov/threadscope/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP analysis API",
	Long: `Serve starts an HTTP server exposing the analysis pipeline:

  GET  /healthz       liveness probe
  POST /api/analyze   {"tweet_url": "..."} -> full analysis JSON

Example:
  threadscope serve
  threadscope serve --addr :9090 --llm --llm-provider anthropic`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default :8080)")

	// Shared with analyze
	serveCmd.Flags().IntVar(&quoteDepth, "depth", 2, "maximum quote-of-quote depth to follow")
	serveCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable cache (force fresh fetch)")
	serveCmd.Flags().StringVar(&archiveURL, "archive-url", "", "community archive base URL (overrides config)")
	serveCmd.Flags().StringVar(&archiveToken, "archive-token", "", "community archive API token (or ARCHIVE_TOKEN env var)")
	serveCmd.Flags().BoolVar(&llmEnabled, "llm", false, "enable LLM reply classification and summaries")
	serveCmd.Flags().StringVar(&llmProvider, "llm-provider", "openai", "LLM provider (openai, anthropic)")
	serveCmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name (provider default if empty)")
	serveCmd.Flags().IntVar(&llmWorkers, "llm-workers", 4, "concurrent LLM classification calls")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	addr := cfg.Server.Addr
	if v := viper.GetString("server.addr"); v != "" {
		addr = v
	}
	if serveAddr != "" {
		addr = serveAddr
	}

	p, err := pipeline.New(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	router := server.NewRouter(p, verbose)

	fmt.Fprintf(os.Stderr, "Listening on %s\n", addr)
	return router.Run(addr)
}
