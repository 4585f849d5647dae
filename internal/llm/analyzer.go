package llm

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/ppiankov/threadscope/internal/model"
)

const (
	clusterSkippedEmpty = "skipped_empty"

	emptyClusterSummary   = "No replies in this cluster."
	skippedClusterSummary = "Replies that were empty."

	// Cap on how many reply texts feed one cluster summary.
	clusterSummaryLimit = 20
)

var (
	sentiments = []string{"positive", "neutral", "negative"}
	agreements = []string{"agrees", "neutral", "disagrees"}
)

// Analyzer classifies replies into sentiment/agreement clusters and
// summarizes the discourse. Classification calls run on a bounded set of
// workers; summaries run sequentially since they chain on each other's
// input.
type Analyzer struct {
	provider Provider
	workers  int
	diag     io.Writer
}

// NewAnalyzer creates an analyzer around a provider. Returns nil when the
// provider is nil so callers can treat analysis as disabled.
func NewAnalyzer(provider Provider, workers int, diag io.Writer) *Analyzer {
	if provider == nil {
		return nil
	}
	if workers <= 0 {
		workers = 1
	}
	if diag == nil {
		diag = io.Discard
	}
	return &Analyzer{provider: provider, workers: workers, diag: diag}
}

// Analyze classifies every secondary tweet, buckets them into clusters,
// summarizes each populated cluster, and produces an overall discourse
// summary. Classification results are written onto the records in place.
// LLM failures degrade individual classifications and summaries; Analyze
// itself never fails.
func (a *Analyzer) Analyze(ctx context.Context, mainPost *model.Record, secondary []*model.Record) (map[string]*model.Cluster, string) {
	mainText := ""
	if mainPost != nil {
		mainText = mainPost.Text
	}

	a.classifyAll(ctx, mainText, secondary)

	clusters := make(map[string]*model.Cluster)
	for _, s := range sentiments {
		for _, g := range agreements {
			clusters[s+"_"+g] = &model.Cluster{Summary: emptyClusterSummary}
		}
	}
	clusters[clusterSkippedEmpty] = &model.Cluster{Summary: skippedClusterSummary}

	for _, rec := range secondary {
		c := rec.Classification
		if c == nil {
			continue
		}
		if c.Sentiment == SentimentSkipped {
			clusters[clusterSkippedEmpty].Tweets = append(clusters[clusterSkippedEmpty].Tweets, rec)
			continue
		}
		if c.ErrorDetail != "" {
			continue // Classification failed, leave out of the clusters
		}
		key := c.Sentiment + "_" + c.Agreement
		cluster, ok := clusters[key]
		if !ok {
			// Model returned values outside the prompt vocabulary.
			cluster = &model.Cluster{Summary: "Replies with unexpected classification values."}
			clusters[key] = cluster
		}
		cluster.Tweets = append(cluster.Tweets, rec)
	}

	for _, key := range clusterOrder(clusters) {
		cluster := clusters[key]
		if len(cluster.Tweets) == 0 {
			continue
		}
		cluster.Summary = a.summarizeCluster(ctx, key, mainText, cluster)
	}

	overall := a.summarizeOverall(ctx, mainText, clusters)
	return clusters, overall
}

// classifyAll fans classification calls out over the worker bound. Each
// worker writes to a distinct record, so no locking is needed beyond the
// job feed.
func (a *Analyzer) classifyAll(ctx context.Context, mainText string, secondary []*model.Record) {
	jobs := make(chan *model.Record)
	var wg sync.WaitGroup

	for i := 0; i < a.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rec := range jobs {
				rec.Classification = classifyReply(ctx, a.provider, mainText, "", rec.Text)
			}
		}()
	}

	for _, rec := range secondary {
		if strings.TrimSpace(rec.Text) == "" {
			// Distinct from an LLM "neutral": the reply had nothing to classify.
			rec.Classification = &model.Classification{Sentiment: SentimentSkipped, Agreement: AgreementEmpty}
			continue
		}
		jobs <- rec
	}
	close(jobs)
	wg.Wait()
}

// summarizeCluster generates a short summary for one populated cluster.
func (a *Analyzer) summarizeCluster(ctx context.Context, key, mainText string, cluster *model.Cluster) string {
	var texts []string
	for i, rec := range cluster.Tweets {
		if i >= clusterSummaryLimit {
			break
		}
		if strings.TrimSpace(rec.Text) != "" {
			texts = append(texts, rec.Text)
		}
	}
	if len(texts) == 0 {
		return "No text in replies to summarize."
	}

	prompt := fmt.Sprintf(
		"This cluster represents replies classified as: %s. Summarize these replies in relation to the original post: '%s'\n\nReplies:\n%s",
		strings.ReplaceAll(key, "_", " "),
		truncate(mainText, 100),
		strings.Join(texts, "\n---\n"),
	)

	summary, err := a.provider.Complete(ctx, CompletionRequest{Prompt: prompt, MaxTokens: 100})
	if err != nil {
		fmt.Fprintf(a.diag, "llm: cluster %s summary failed: %v\n", key, err)
		return fmt.Sprintf("Error during summarization: %v", err)
	}
	return summary
}

// summarizeOverall builds the discourse-level summary from the cluster
// summaries plus the most-liked reply of each cluster.
func (a *Analyzer) summarizeOverall(ctx context.Context, mainText string, clusters map[string]*model.Cluster) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("Original Post: %q", mainText))
	parts = append(parts, "Key discussion points based on reply clusters:")

	for _, key := range clusterOrder(clusters) {
		cluster := clusters[key]
		if len(cluster.Tweets) == 0 {
			continue
		}
		label := strings.ReplaceAll(key, "_", " ")
		parts = append(parts, fmt.Sprintf("\nCluster: %s", label))
		if isPlaceholderSummary(cluster.Summary) {
			parts = append(parts, fmt.Sprintf("  - The '%s' cluster had few/no replies or a summarization issue.", label))
		} else {
			parts = append(parts, fmt.Sprintf("  - Summary of '%s' replies: %q", label, cluster.Summary))
		}
		if top := topTweet(cluster.Tweets); top != nil && top.LikeCount > 0 {
			parts = append(parts, fmt.Sprintf("  - A prominent reply in this cluster: %q", truncate(top.Text, 150)))
		}
	}

	prompt := strings.Join(parts, "\n")
	system := "You are summarizing a Twitter discussion. Based on the original post and the provided summaries and prominent replies from clusters of user responses, generate a concise overall summary of the entire discourse. Focus on the main viewpoints, agreements, and disagreements."

	summary, err := a.provider.Complete(ctx, CompletionRequest{System: system, Prompt: prompt, MaxTokens: 300})
	if err != nil {
		fmt.Fprintf(a.diag, "llm: overall summary failed: %v\n", err)
		return ""
	}
	return summary
}

// clusterOrder returns cluster keys in a stable presentation order: the
// sentiment x agreement grid first, then skipped, then anything the
// model invented.
func clusterOrder(clusters map[string]*model.Cluster) []string {
	var order []string
	known := make(map[string]bool)
	for _, s := range sentiments {
		for _, g := range agreements {
			key := s + "_" + g
			order = append(order, key)
			known[key] = true
		}
	}
	order = append(order, clusterSkippedEmpty)
	known[clusterSkippedEmpty] = true

	var extra []string
	for key := range clusters {
		if !known[key] {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	return append(order, extra...)
}

func topTweet(tweets []*model.Record) *model.Record {
	var top *model.Record
	for _, rec := range tweets {
		if top == nil || rec.LikeCount > top.LikeCount {
			top = rec
		}
	}
	return top
}

func isPlaceholderSummary(s string) bool {
	switch s {
	case emptyClusterSummary, skippedClusterSummary, "No text in replies to summarize.":
		return true
	}
	return strings.HasPrefix(s, "Error")
}
