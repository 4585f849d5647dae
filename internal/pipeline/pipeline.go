// Package pipeline orchestrates the complete analysis of one root post:
// cache lookup, bounded quote aggregation, graph construction and
// metrics, optional LLM classification, cache write-back.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ppiankov/threadscope/internal/cache"
	"github.com/ppiankov/threadscope/internal/graph"
	"github.com/ppiankov/threadscope/internal/llm"
	"github.com/ppiankov/threadscope/internal/model"
	"github.com/ppiankov/threadscope/internal/registry"
	"github.com/ppiankov/threadscope/internal/source"
	"github.com/ppiankov/threadscope/internal/traverse"
)

// Sentinel errors for caller-facing classification of failures.
var (
	// ErrInvalidURL marks input errors: aggregation never started.
	ErrInvalidURL = errors.New("invalid tweet URL")

	// ErrNoTweets means the archive had nothing for the conversation.
	ErrNoTweets = errors.New("no tweets found for URL")

	// ErrSourceUnavailable means the initial root fetch failed; partial
	// failures deeper in the traversal never surface this.
	ErrSourceUnavailable = errors.New("tweet source unavailable")
)

// Pipeline wires the collaborators for analysis runs. Safe for
// concurrent Analyze calls: each run owns its registry.
type Pipeline struct {
	src      source.Collaborator
	analyzer *llm.Analyzer  // nil when LLM analysis is disabled
	store    *cache.Layered // nil when caching is disabled
	maxDepth int
	diag     io.Writer
}

// New assembles a pipeline from configuration. A misconfigured LLM
// provider degrades to analysis-disabled with a warning, matching the
// posture that LLM output is never load-bearing.
func New(cfg *model.Config) (*Pipeline, error) {
	src, err := source.NewClient(cfg.Archive)
	if err != nil {
		return nil, fmt.Errorf("archive client: %w", err)
	}

	var analyzer *llm.Analyzer
	if cfg.LLM.Provider != "" {
		provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to initialize LLM provider: %v\n", err)
		} else {
			analyzer = llm.NewAnalyzer(provider, cfg.LLM.Workers, os.Stderr)
		}
	}

	var store *cache.Layered
	if cfg.Cache.Enabled {
		dir := cfg.Cache.Dir
		if dir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("resolve cache dir: %w", err)
			}
			dir = home + "/.threadscope/cache"
		}
		sqlStore, err := cache.NewStore(dir)
		if err != nil {
			return nil, fmt.Errorf("open analysis cache: %w", err)
		}
		store = cache.NewLayered(sqlStore, cfg.Cache.MemoryTTL)
	}

	var diag io.Writer = io.Discard
	if cfg.Output.Verbose {
		diag = os.Stderr
	}

	return NewWith(src, analyzer, store, cfg.Traversal.MaxQuoteDepth, diag), nil
}

// NewWith assembles a pipeline from explicit collaborators. analyzer and
// store may be nil to disable the corresponding step.
func NewWith(src source.Collaborator, analyzer *llm.Analyzer, store *cache.Layered, maxDepth int, diag io.Writer) *Pipeline {
	if diag == nil {
		diag = io.Discard
	}
	return &Pipeline{
		src:      src,
		analyzer: analyzer,
		store:    store,
		maxDepth: maxDepth,
		diag:     diag,
	}
}

// Close releases the cache store, if any.
func (p *Pipeline) Close() error {
	if p.store != nil {
		return p.store.Close()
	}
	return nil
}

// Analyze runs the full analysis for one tweet URL.
func (p *Pipeline) Analyze(ctx context.Context, tweetURL string) (*model.Analysis, error) {
	rootID, err := source.ExtractTweetID(tweetURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	if p.store != nil {
		if cached, found, err := p.store.Get(ctx, rootID); err != nil {
			fmt.Fprintf(p.diag, "pipeline: cache read for %s failed: %v\n", rootID, err)
		} else if found {
			var analysis model.Analysis
			if err := json.Unmarshal(cached, &analysis); err == nil {
				analysis.FromCache = true
				return &analysis, nil
			}
			fmt.Fprintf(p.diag, "pipeline: corrupt cache entry for %s, re-analyzing\n", rootID)
		}
	}

	reg := registry.New(p.diag)
	trav := traverse.New(p.src, reg, p.maxDepth, p.diag)
	records, err := trav.Aggregate(ctx, tweetURL, rootID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoTweets, tweetURL)
	}

	var mainPost *model.Record
	secondary := make([]*model.Record, 0, len(records)-1)
	for _, rec := range records {
		if rec.Kind == model.RelationshipRoot && mainPost == nil {
			mainPost = rec
			continue
		}
		secondary = append(secondary, rec)
	}

	analysis := &model.Analysis{FetchedAt: time.Now().UTC()}
	if mainPost != nil {
		analysis.MainPostID = mainPost.ID
		analysis.MainPostText = mainPost.Text
		analysis.MainPostAuthorHandle = mainPost.AuthorHandle
		analysis.MainPostAuthorDisplayName = mainPost.AuthorDisplayName
		analysis.MainPostLikes = mainPost.LikeCount
		analysis.MainPostTimestamp = mainPost.Timestamp
		analysis.MainPostAvatarURL = mainPost.AvatarURL
	}

	// Classify before building the graph so node projections carry the
	// classification payloads.
	if p.analyzer != nil {
		analysis.Clusters, analysis.OverallSummary = p.analyzer.Analyze(ctx, mainPost, secondary)
	}

	analysis.GraphMetrics, analysis.Graph = graph.BuildAndAnalyze(records)

	if p.store != nil {
		payload, err := json.Marshal(analysis)
		if err != nil {
			fmt.Fprintf(p.diag, "pipeline: marshal analysis for cache: %v\n", err)
			return analysis, nil
		}
		handle := ""
		if mainPost != nil {
			handle = mainPost.AuthorHandle
		}
		if err := p.store.Put(ctx, rootID, handle, tweetURL, payload); err != nil {
			fmt.Fprintf(p.diag, "pipeline: cache write for %s failed: %v\n", rootID, err)
		}
	}

	return analysis, nil
}
