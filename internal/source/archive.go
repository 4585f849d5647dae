package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/ppiankov/threadscope/internal/model"
)

// Client reads tweet data from a community-archive PostgREST API. It is
// rate limited and timeout bounded; a nil-safe zero value does not exist,
// use NewClient.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates an archive client from configuration.
func NewClient(cfg model.ArchiveConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("archive base URL is required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 5
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
	}, nil
}

// flexID tolerates the archive returning ids as either JSON numbers or
// strings, which varies between views.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

type conversationRow struct {
	ConversationID flexID `json:"conversation_id"`
}

type tweetRow struct {
	TweetID        flexID  `json:"tweet_id"`
	AccountID      flexID  `json:"account_id"`
	FullText       string  `json:"full_text"`
	CreatedAt      string  `json:"created_at"`
	FavoriteCount  int     `json:"favorite_count"`
	RetweetCount   int     `json:"retweet_count"`
	ReplyToTweetID *flexID `json:"reply_to_tweet_id"`
}

type accountRow struct {
	AccountID   flexID `json:"account_id"`
	Username    string `json:"username"`
	DisplayName string `json:"account_display_name"`
}

type profileRow struct {
	AccountID      flexID `json:"account_id"`
	AvatarMediaURL string `json:"avatar_media_url"`
}

type enrichedRow struct {
	TweetID        flexID  `json:"tweet_id"`
	AccountID      flexID  `json:"account_id"`
	Username       string  `json:"username"`
	DisplayName    string  `json:"account_display_name"`
	CreatedAt      string  `json:"created_at"`
	FullText       string  `json:"full_text"`
	RetweetCount   int     `json:"retweet_count"`
	FavoriteCount  int     `json:"favorite_count"`
	ReplyToTweetID *flexID `json:"reply_to_tweet_id"`
	QuotedTweetID  *flexID `json:"quoted_tweet_id"`
	AvatarMediaURL string  `json:"avatar_media_url"`
}

// get performs one rate-limited PostgREST read into out.
func (c *Client) get(ctx context.Context, table string, query url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	u := c.baseURL + "/rest/v1/" + table + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("apikey", c.token)
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", table, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("fetch %s: unexpected status %d: %s", table, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", table, err)
	}
	return nil
}

// conversationID resolves the conversation a tweet belongs to. Tweets
// missing from the conversations table are assumed to be roots, so the
// tweet's own id is returned as a fallback.
func (c *Client) conversationID(ctx context.Context, tweetID string) string {
	q := url.Values{}
	q.Set("select", "conversation_id")
	q.Set("tweet_id", "eq."+tweetID)
	q.Set("limit", "1")

	var rows []conversationRow
	if err := c.get(ctx, "conversations", q, &rows); err != nil {
		return tweetID
	}
	if len(rows) == 0 || rows[0].ConversationID == "" {
		return tweetID
	}
	return string(rows[0].ConversationID)
}

// FetchThread returns every tweet in the conversation the given post
// belongs to, enriched with author and profile details, in chronological
// order.
func (c *Client) FetchThread(ctx context.Context, postURL string) ([]model.Tweet, error) {
	tweetID, err := ExtractTweetID(postURL)
	if err != nil {
		return nil, err
	}

	convID := c.conversationID(ctx, tweetID)

	q := url.Values{}
	q.Set("select", "*")
	q.Set("conversation_id", "eq."+convID)
	q.Set("order", "created_at.asc")

	var rows []tweetRow
	if err := c.get(ctx, "tweets_w_conversation_id", q, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	accounts, profiles := c.accountDetails(ctx, rows)

	tweets := make([]model.Tweet, 0, len(rows))
	for _, row := range rows {
		tw := model.Tweet{
			ID:           string(row.TweetID),
			Text:         row.FullText,
			Timestamp:    row.CreatedAt,
			LikeCount:    row.FavoriteCount,
			RetweetCount: row.RetweetCount,
		}
		if row.ReplyToTweetID != nil {
			tw.ReplyToID = string(*row.ReplyToTweetID)
		}
		if acc, ok := accounts[string(row.AccountID)]; ok {
			tw.AuthorHandle = acc.Username
			tw.AuthorDisplayName = acc.DisplayName
		}
		if prof, ok := profiles[string(row.AccountID)]; ok {
			tw.AvatarURL = prof.AvatarMediaURL
		}
		tweets = append(tweets, tw)
	}
	return tweets, nil
}

// accountDetails batch-fetches account and profile rows for every
// distinct author in the thread. Lookup failures degrade to missing
// author fields rather than failing the thread fetch.
func (c *Client) accountDetails(ctx context.Context, rows []tweetRow) (map[string]accountRow, map[string]profileRow) {
	seen := make(map[string]bool)
	var ids []string
	for _, row := range rows {
		id := string(row.AccountID)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}

	accounts := make(map[string]accountRow)
	profiles := make(map[string]profileRow)
	if len(ids) == 0 {
		return accounts, profiles
	}
	inList := "in.(" + strings.Join(ids, ",") + ")"

	q := url.Values{}
	q.Set("select", "account_id,username,account_display_name")
	q.Set("account_id", inList)
	var accRows []accountRow
	if err := c.get(ctx, "account", q, &accRows); err == nil {
		for _, a := range accRows {
			accounts[string(a.AccountID)] = a
		}
	}

	q = url.Values{}
	q.Set("select", "account_id,avatar_media_url")
	q.Set("account_id", inList)
	var profRows []profileRow
	if err := c.get(ctx, "profile", q, &profRows); err == nil {
		for _, p := range profRows {
			profiles[string(p.AccountID)] = p
		}
	}

	return accounts, profiles
}

// FetchQuotes returns the tweets that quote the given post. The quoted
// post itself and its direct replies are filtered out: a quote tweet is
// not a direct reply to the tweet it quotes.
func (c *Client) FetchQuotes(ctx context.Context, postURL string) ([]model.Tweet, error) {
	tweetID, err := ExtractTweetID(postURL)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("select", "tweet_id,account_id,username,account_display_name,created_at,full_text,retweet_count,favorite_count,reply_to_tweet_id,quoted_tweet_id,avatar_media_url")
	q.Set("quoted_tweet_id", "eq."+tweetID)

	var rows []enrichedRow
	if err := c.get(ctx, "enriched_tweets", q, &rows); err != nil {
		return nil, err
	}

	tweets := make([]model.Tweet, 0, len(rows))
	for _, row := range rows {
		if string(row.TweetID) == tweetID {
			continue
		}
		if row.ReplyToTweetID != nil && string(*row.ReplyToTweetID) == tweetID {
			continue
		}
		tw := model.Tweet{
			ID:                string(row.TweetID),
			Text:              row.FullText,
			Timestamp:         row.CreatedAt,
			LikeCount:         row.FavoriteCount,
			RetweetCount:      row.RetweetCount,
			AuthorHandle:      row.Username,
			AuthorDisplayName: row.DisplayName,
			AvatarURL:         row.AvatarMediaURL,
		}
		if row.ReplyToTweetID != nil {
			tw.ReplyToID = string(*row.ReplyToTweetID)
		}
		tweets = append(tweets, tw)
	}
	return tweets, nil
}

// PostURL builds the canonical status URL for a tweet.
func (c *Client) PostURL(authorHandle, tweetID string) string {
	return StatusURL(authorHandle, tweetID)
}
