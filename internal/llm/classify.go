package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/ppiankov/threadscope/internal/model"
)

// Classification outcome values outside the normal vocabulary.
const (
	SentimentSkipped = "skipped"
	AgreementEmpty   = "empty"
	valueError       = "error_processing"
)

var (
	fencedJSONPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	bareJSONPattern   = regexp.MustCompile(`(?s)(\{.*?\})`)
)

// buildClassifyPrompt asks for a sentiment/agreement judgement of one
// reply in the context of the original post.
func buildClassifyPrompt(originalPost, parentTweet, reply string) string {
	parts := []string{
		fmt.Sprintf("Original Post: %s", originalPost),
	}
	if parentTweet != "" {
		parts = append(parts, fmt.Sprintf("Parent Tweet to this Reply: %s", parentTweet))
	}
	parts = append(parts,
		fmt.Sprintf("Reply Text: %s", reply),
		"\nAnalyze the Reply in the context of the Original Post (and Parent Tweet, if provided). Think first about the sentiment of the reply, then the agreement with the Original Post, then respond with the json. Classify the reply based on the following categories:",
		"1. Sentiment: Is the reply positive, negative, or neutral?",
		"2. Agreement: Does the reply agree, disagree, or is it neutral/unclear towards the Original Post (or Parent Tweet if more relevant)?",
		"\nProvide your answer as a JSON object with two keys: 'sentiment', and 'agreement'.",
		"For 'sentiment', use one of: 'positive', 'negative', 'neutral'.",
		"For 'agreement', use one of: 'agrees', 'disagrees', 'neutral'.",
		`Example JSON response: {"sentiment": "positive", "agreement": "agrees"}`,
	)
	return strings.Join(parts, "\n\n")
}

// parseClassification extracts the classification object from a raw
// completion. Models wrap JSON in markdown fences or prose often enough
// that direct parsing is only the first attempt.
func parseClassification(raw string) (*model.Classification, error) {
	var c model.Classification
	if err := json.Unmarshal([]byte(raw), &c); err == nil {
		return validateClassification(&c, raw)
	}

	for _, pattern := range []*regexp.Regexp{fencedJSONPattern, bareJSONPattern} {
		m := pattern.FindStringSubmatch(raw)
		if m == nil {
			continue
		}
		if err := json.Unmarshal([]byte(m[1]), &c); err == nil {
			return validateClassification(&c, raw)
		}
	}

	return nil, fmt.Errorf("no parsable JSON in completion: %q", truncate(raw, 200))
}

func validateClassification(c *model.Classification, raw string) (*model.Classification, error) {
	if c.Sentiment == "" || c.Agreement == "" {
		return nil, fmt.Errorf("missing sentiment or agreement in completion: %q", truncate(raw, 200))
	}
	return c, nil
}

// classifyReply runs one classification call. Failures never propagate:
// the result carries error values so the reply still lands in a cluster.
func classifyReply(ctx context.Context, provider Provider, originalPost, parentTweet, reply string) *model.Classification {
	prompt := buildClassifyPrompt(originalPost, parentTweet, reply)

	raw, err := provider.Complete(ctx, CompletionRequest{
		Prompt:    prompt,
		MaxTokens: 150,
	})
	if err != nil {
		return &model.Classification{
			Sentiment:   valueError,
			Agreement:   valueError,
			ErrorDetail: err.Error(),
		}
	}

	c, err := parseClassification(raw)
	if err != nil {
		return &model.Classification{
			Sentiment:   valueError,
			Agreement:   valueError,
			ErrorDetail: err.Error(),
		}
	}
	return c
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
