package model

// Relationship describes how a tweet relates to the aggregated conversation
type Relationship string

const (
	RelationshipRoot    Relationship = "root"     // The post the analysis was requested for
	RelationshipReply   Relationship = "reply"    // Part of a reply chain
	RelationshipQuote   Relationship = "quote"    // Quotes another tweet in the conversation
	RelationshipUnknown Relationship = "unknown"  // No signal either way
)

// DepthUnset marks a record whose quote depth has not been determined yet.
const DepthUnset = -1

// Tweet is a raw observation as returned by the archive.
type Tweet struct {
	ID                string `json:"id"`                            // Tweet identifier (globally unique)
	Text              string `json:"text"`                          // Full tweet text
	AuthorHandle      string `json:"author_handle"`                 // @-handle without the @
	AuthorDisplayName string `json:"author_display_name"`           // Profile display name
	AvatarURL         string `json:"avatar_url,omitempty"`          // Profile image URL
	LikeCount         int    `json:"like_count"`                    // Favourite count at fetch time
	RetweetCount      int    `json:"retweet_count"`                 // Retweet count at fetch time
	Timestamp         string `json:"timestamp"`                     // created_at as reported by the archive
	ReplyToID         string `json:"reply_to_tweet_id,omitempty"`   // Direct reply target, empty if not a reply
}

// Record is the canonical, merge-mutated form of a tweet held by the
// registry. A tweet sighted from several fetch paths always folds into
// one Record; see registry.Merge for the reconciliation rules.
type Record struct {
	Tweet

	Kind Relationship `json:"relationship_type"`

	// GraphParentID is the node this record is drawn connected to in the
	// aggregated graph. Distinct from ReplyToID: a quote tweet's graph
	// parent is the tweet it quotes, not the tweet it replies to.
	GraphParentID string `json:"graph_parent_id,omitempty"`

	// QuoteDepth is the number of quote hops from the root post, or
	// DepthUnset when the record was never seen on a quote path.
	QuoteDepth int `json:"quote_depth"`

	Classification *Classification `json:"classification,omitempty"`
}

// Classification is the payload attached to a record by the LLM analysis
// step. Empty until analysis runs.
type Classification struct {
	Sentiment   string `json:"sentiment"`
	Agreement   string `json:"agreement"`
	ErrorDetail string `json:"error_detail,omitempty"`
}
