package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/threadscope/internal/cache"
	"github.com/ppiankov/threadscope/internal/model"
)

// fakeSource serves a small fixed conversation: a root with one reply
// and one quote tweet.
type fakeSource struct {
	failAll      bool
	threadCalls  int
	emptyArchive bool
}

func (f *fakeSource) PostURL(authorHandle, tweetID string) string {
	return "https://x.com/" + authorHandle + "/status/" + tweetID
}

func (f *fakeSource) FetchThread(ctx context.Context, postURL string) ([]model.Tweet, error) {
	f.threadCalls++
	if f.failAll {
		return nil, errors.New("archive down")
	}
	if f.emptyArchive {
		return nil, nil
	}
	switch {
	case strings.Contains(postURL, "/100"):
		return []model.Tweet{
			{ID: "100", Text: "root post", AuthorHandle: "alice", LikeCount: 10},
			{ID: "101", Text: "a reply", AuthorHandle: "bob", ReplyToID: "100"},
		}, nil
	case strings.Contains(postURL, "/200"):
		return []model.Tweet{{ID: "200", Text: "quote", AuthorHandle: "carol"}}, nil
	}
	return nil, nil
}

func (f *fakeSource) FetchQuotes(ctx context.Context, postURL string) ([]model.Tweet, error) {
	if f.failAll {
		return nil, errors.New("archive down")
	}
	if strings.Contains(postURL, "/100") {
		return []model.Tweet{{ID: "200", Text: "quote", AuthorHandle: "carol"}}, nil
	}
	return nil, nil
}

func newStore(t *testing.T) *cache.Layered {
	t.Helper()
	s, err := cache.NewStore(t.TempDir())
	require.NoError(t, err)
	return cache.NewLayered(s, time.Minute)
}

func TestAnalyze_FullRun(t *testing.T) {
	src := &fakeSource{}
	p := NewWith(src, nil, nil, 2, nil)

	analysis, err := p.Analyze(context.Background(), "https://x.com/alice/status/100")
	require.NoError(t, err)

	assert.Equal(t, "100", analysis.MainPostID)
	assert.Equal(t, "alice", analysis.MainPostAuthorHandle)
	assert.Equal(t, 10, analysis.MainPostLikes)
	assert.Equal(t, 3, analysis.GraphMetrics.TotalTweets)
	assert.False(t, analysis.FromCache)
	assert.False(t, analysis.FetchedAt.IsZero())
	assert.Len(t, analysis.Graph.Nodes, 3)

	// LLM disabled: no clusters, no summary.
	assert.Nil(t, analysis.Clusters)
	assert.Empty(t, analysis.OverallSummary)
}

func TestAnalyze_InvalidURL(t *testing.T) {
	src := &fakeSource{}
	p := NewWith(src, nil, nil, 2, nil)

	_, err := p.Analyze(context.Background(), "https://example.com/not-a-tweet")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidURL)

	// Rejected before the source is ever consulted.
	assert.Zero(t, src.threadCalls)
}

func TestAnalyze_SourceUnavailable(t *testing.T) {
	p := NewWith(&fakeSource{failAll: true}, nil, nil, 2, nil)

	_, err := p.Analyze(context.Background(), "https://x.com/alice/status/100")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}

func TestAnalyze_NoTweets(t *testing.T) {
	p := NewWith(&fakeSource{emptyArchive: true}, nil, nil, 2, nil)

	_, err := p.Analyze(context.Background(), "https://x.com/alice/status/100")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoTweets)
}

func TestAnalyze_SecondCallServedFromCache(t *testing.T) {
	src := &fakeSource{}
	store := newStore(t)
	p := NewWith(src, nil, store, 2, nil)
	defer p.Close()

	first, err := p.Analyze(context.Background(), "https://x.com/alice/status/100")
	require.NoError(t, err)
	require.False(t, first.FromCache)
	callsAfterFirst := src.threadCalls

	second, err := p.Analyze(context.Background(), "https://x.com/alice/status/100")
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.MainPostID, second.MainPostID)
	assert.Equal(t, first.GraphMetrics.TotalTweets, second.GraphMetrics.TotalTweets)

	// The source was never consulted again.
	assert.Equal(t, callsAfterFirst, src.threadCalls)
}

func TestAnalyze_CorruptCacheEntryReanalyzed(t *testing.T) {
	src := &fakeSource{}
	store := newStore(t)
	require.NoError(t, store.Put(context.Background(), "100", "alice", "url", []byte("not json")))

	p := NewWith(src, nil, store, 2, nil)
	defer p.Close()

	analysis, err := p.Analyze(context.Background(), "https://x.com/alice/status/100")
	require.NoError(t, err)
	assert.False(t, analysis.FromCache)
	assert.Equal(t, "100", analysis.MainPostID)
}
