package model

import "time"

// GraphNode is the serializable projection of a record for visualization.
type GraphNode struct {
	ID             string          `json:"id"`
	Text           string          `json:"text"`
	Author         string          `json:"author"`
	DisplayName    string          `json:"display_name"`
	Type           string          `json:"type"`
	Likes          int             `json:"likes"`
	Timestamp      string          `json:"timestamp"`
	Classification *Classification `json:"classification,omitempty"`
	QuoteDepth     int             `json:"quote_depth"`
}

// GraphEdge is a directed edge between two graph nodes.
type GraphEdge struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	Relationship string `json:"relationship"`
}

// GraphPayload is the node/edge projection handed to the front end.
type GraphPayload struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// NodeRef identifies a single noteworthy node in the metrics output.
type NodeRef struct {
	ID     string `json:"id"`
	Author string `json:"author"`
	Text   string `json:"text"`
}

// MostReplied is the node with the highest in-degree.
type MostReplied struct {
	ID         string `json:"id"`
	Author     string `json:"author"`
	Text       string `json:"text"`
	ReplyCount int    `json:"reply_count"`
}

// AuthorStats aggregates per-author activity over the graph.
type AuthorStats struct {
	TweetCount int `json:"tweet_count"`
	ReplyCount int `json:"reply_count"`
}

// GraphMetrics holds the structural metrics computed over the built graph.
// An empty graph yields zeroed counts and nil MainPost/MostRepliedTo.
type GraphMetrics struct {
	TotalTweets   int                     `json:"total_tweets"`
	TotalEdges    int                     `json:"total_edges"`
	MainPost      *NodeRef                `json:"main_post"`
	ReplyDepth    int                     `json:"reply_depth"`
	MostRepliedTo *MostReplied            `json:"most_replied_to"`
	AuthorStats   map[string]*AuthorStats `json:"author_stats"`
}

// Cluster groups replies that received the same classification, together
// with an LLM-generated summary of the group.
type Cluster struct {
	Summary string    `json:"summary"`
	Tweets  []*Record `json:"tweets"`
}

// Analysis is the complete analysis document for one root post. This is
// what the HTTP API returns and what the durable cache stores.
type Analysis struct {
	MainPostID                string `json:"main_post_id"`
	MainPostText              string `json:"main_post_text"`
	MainPostAuthorHandle      string `json:"main_post_author_handle"`
	MainPostAuthorDisplayName string `json:"main_post_author_display_name"`
	MainPostLikes             int    `json:"main_post_likes"`
	MainPostTimestamp         string `json:"main_post_timestamp"`
	MainPostAvatarURL         string `json:"main_post_avatar_url,omitempty"`

	GraphMetrics GraphMetrics `json:"graph_metrics"`
	Graph        GraphPayload `json:"graph"`

	Clusters       map[string]*Cluster `json:"cluster_details,omitempty"`
	OverallSummary string              `json:"overall_summary,omitempty"`

	FetchedAt time.Time `json:"fetched_at"`
	FromCache bool      `json:"from_cache,omitempty"`
}
