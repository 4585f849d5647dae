// Package source provides tweet data to the aggregation core. The core
// only sees the Collaborator interface; the concrete implementation talks
// to a community-archive PostgREST API.
package source

import (
	"context"

	"github.com/ppiankov/threadscope/internal/model"
)

// Collaborator is the read-only boundary the traversal talks to. All
// methods are safe for concurrent use.
type Collaborator interface {
	// FetchThread returns every tweet in the conversation the given post
	// belongs to, in chronological order.
	FetchThread(ctx context.Context, postURL string) ([]model.Tweet, error)

	// FetchQuotes returns the tweets that quote the given post. The
	// quoted post itself is never part of the result.
	FetchQuotes(ctx context.Context, postURL string) ([]model.Tweet, error)

	// PostURL builds the canonical status URL for a tweet, used to
	// re-enter the archive during recursive lookups.
	PostURL(authorHandle, tweetID string) string
}
