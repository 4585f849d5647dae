// Package graph turns an aggregated record set into a directed graph and
// computes structural metrics over it.
package graph

import "github.com/ppiankov/threadscope/internal/model"

// Edge relationship labels.
const (
	EdgeQuoteLink         = "quote_link"
	EdgeReplyToMainThread = "reply_to_main_thread"
	EdgeDirectReply       = "direct_reply_within_thread"
)

type edgeKey struct {
	from, to string
}

// Graph is a directed graph over aggregated tweet records. Node iteration
// follows record order.
type Graph struct {
	order []string
	nodes map[string]model.GraphNode
	edges []model.GraphEdge
	seen  map[edgeKey]bool
	in    map[string]int
	out   map[string]int
}

// Build constructs the graph from the final record set. One node per
// record; graph-parent links become quote_link or reply_to_main_thread
// edges, and a direct reply target that differs from the graph parent
// gets its own direct_reply_within_thread edge. Self-loops are never
// added and an ordered node pair carries at most one edge.
func Build(records []*model.Record) *Graph {
	g := &Graph{
		nodes: make(map[string]model.GraphNode, len(records)),
		seen:  make(map[edgeKey]bool),
		in:    make(map[string]int),
		out:   make(map[string]int),
	}

	for _, rec := range records {
		if _, ok := g.nodes[rec.ID]; ok {
			continue
		}
		g.nodes[rec.ID] = model.GraphNode{
			ID:             rec.ID,
			Text:           rec.Text,
			Author:         rec.AuthorHandle,
			DisplayName:    rec.AuthorDisplayName,
			Type:           string(rec.Kind),
			Likes:          rec.LikeCount,
			Timestamp:      rec.Timestamp,
			Classification: rec.Classification,
			QuoteDepth:     rec.QuoteDepth,
		}
		g.order = append(g.order, rec.ID)
	}

	for _, rec := range records {
		if parent := rec.GraphParentID; parent != "" && parent != rec.ID {
			if _, ok := g.nodes[parent]; ok {
				label := EdgeReplyToMainThread
				if rec.Kind == model.RelationshipQuote {
					label = EdgeQuoteLink
				}
				g.addEdge(rec.ID, parent, label)
			}
		}

		target := rec.ReplyToID
		if target == "" || target == rec.ID {
			continue
		}
		if target == rec.GraphParentID {
			continue // already covered by the graph-parent edge
		}
		if _, ok := g.nodes[target]; ok {
			g.addEdge(rec.ID, target, EdgeDirectReply)
		}
	}

	return g
}

// addEdge appends an edge unless the ordered pair already has one.
func (g *Graph) addEdge(from, to, label string) {
	key := edgeKey{from, to}
	if g.seen[key] {
		return
	}
	g.seen[key] = true
	g.edges = append(g.edges, model.GraphEdge{Source: from, Target: to, Relationship: label})
	g.out[from]++
	g.in[to]++
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Payload returns the serializable node/edge projection.
func (g *Graph) Payload() model.GraphPayload {
	payload := model.GraphPayload{
		Nodes: make([]model.GraphNode, 0, len(g.order)),
		Edges: make([]model.GraphEdge, 0, len(g.edges)),
	}
	for _, id := range g.order {
		payload.Nodes = append(payload.Nodes, g.nodes[id])
	}
	payload.Edges = append(payload.Edges, g.edges...)
	return payload
}

// BuildAndAnalyze is the one-call form used by the pipeline: build the
// graph, compute metrics, and return both with the serializable
// projection.
func BuildAndAnalyze(records []*model.Record) (model.GraphMetrics, model.GraphPayload) {
	g := Build(records)
	return g.Analyze(), g.Payload()
}
