package graph

import (
	"testing"

	"github.com/ppiankov/threadscope/internal/model"
)

func rec(id string, kind model.Relationship, parent, replyTo string, depth int) *model.Record {
	return &model.Record{
		Tweet:         model.Tweet{ID: id, AuthorHandle: "author_" + id, Text: "text " + id, ReplyToID: replyTo},
		Kind:          kind,
		GraphParentID: parent,
		QuoteDepth:    depth,
	}
}

func findEdge(g *Graph, from, to string) (model.GraphEdge, bool) {
	for _, e := range g.edges {
		if e.Source == from && e.Target == to {
			return e, true
		}
	}
	return model.GraphEdge{}, false
}

func TestBuild_EdgeLabels(t *testing.T) {
	records := []*model.Record{
		rec("R", model.RelationshipRoot, "", "", 0),
		rec("A", model.RelationshipReply, "R", "R", 0),
		rec("Q", model.RelationshipQuote, "R", "", 1),
	}

	g := Build(records)

	if g.NodeCount() != 3 {
		t.Fatalf("expected 3 nodes, got %d", g.NodeCount())
	}

	e, ok := findEdge(g, "A", "R")
	if !ok || e.Relationship != EdgeReplyToMainThread {
		t.Errorf("reply edge: %+v found=%v", e, ok)
	}

	e, ok = findEdge(g, "Q", "R")
	if !ok || e.Relationship != EdgeQuoteLink {
		t.Errorf("quote edge: %+v found=%v", e, ok)
	}

	// A's reply target equals its graph parent: no second edge.
	if g.EdgeCount() != 2 {
		t.Errorf("expected 2 edges, got %d", g.EdgeCount())
	}
}

func TestBuild_DualEdges(t *testing.T) {
	// A quote whose direct reply target differs from its quote link gets
	// both edges.
	records := []*model.Record{
		rec("R", model.RelationshipRoot, "", "", 0),
		rec("A", model.RelationshipReply, "R", "R", 0),
		rec("Q", model.RelationshipQuote, "R", "A", 1),
	}

	g := Build(records)

	if _, ok := findEdge(g, "Q", "R"); !ok {
		t.Error("missing quote_link edge")
	}
	e, ok := findEdge(g, "Q", "A")
	if !ok || e.Relationship != EdgeDirectReply {
		t.Errorf("direct reply edge: %+v found=%v", e, ok)
	}
	if g.EdgeCount() != 3 {
		t.Errorf("expected 3 edges, got %d", g.EdgeCount())
	}
}

func TestBuild_NoSelfLoopsOrDangling(t *testing.T) {
	records := []*model.Record{
		rec("R", model.RelationshipRoot, "", "", 0),
		rec("S", model.RelationshipReply, "S", "S", 0),       // self references
		rec("D", model.RelationshipReply, "gone", "gone", 0), // unknown endpoint
	}

	g := Build(records)

	if g.NodeCount() != 3 {
		t.Fatalf("expected 3 nodes, got %d", g.NodeCount())
	}
	if g.EdgeCount() != 0 {
		t.Errorf("expected no edges, got %d", g.EdgeCount())
	}
}

func TestBuild_DeduplicatesOrderedPairs(t *testing.T) {
	records := []*model.Record{
		rec("R", model.RelationshipRoot, "", "", 0),
		rec("A", model.RelationshipReply, "R", "R", 0),
		rec("A", model.RelationshipReply, "R", "R", 0), // duplicate record
	}

	g := Build(records)

	if g.NodeCount() != 2 {
		t.Errorf("expected 2 nodes, got %d", g.NodeCount())
	}
	if g.EdgeCount() != 1 {
		t.Errorf("expected 1 edge, got %d", g.EdgeCount())
	}
}

func TestPayload_PreservesRecordOrder(t *testing.T) {
	records := []*model.Record{
		rec("R", model.RelationshipRoot, "", "", 0),
		rec("B", model.RelationshipReply, "R", "", 0),
		rec("A", model.RelationshipReply, "R", "", 0),
	}

	payload := Build(records).Payload()

	want := []string{"R", "B", "A"}
	for i, node := range payload.Nodes {
		if node.ID != want[i] {
			t.Fatalf("node order: expected %v, got %s at %d", want, node.ID, i)
		}
	}
}

func TestAnalyze_Metrics(t *testing.T) {
	// R <- A <- B chain plus C replying to R: depth 2, R most replied.
	records := []*model.Record{
		rec("R", model.RelationshipRoot, "", "", 0),
		rec("A", model.RelationshipReply, "R", "R", 0),
		rec("B", model.RelationshipReply, "A", "A", 0),
		rec("C", model.RelationshipReply, "R", "R", 0),
	}

	m, _ := BuildAndAnalyze(records)

	if m.TotalTweets != 4 || m.TotalEdges != 3 {
		t.Errorf("totals: tweets=%d edges=%d", m.TotalTweets, m.TotalEdges)
	}
	if m.MainPost == nil || m.MainPost.ID != "R" {
		t.Fatalf("main post: %+v", m.MainPost)
	}
	if m.ReplyDepth != 2 {
		t.Errorf("expected reply depth 2, got %d", m.ReplyDepth)
	}
	if m.MostRepliedTo == nil || m.MostRepliedTo.ID != "R" || m.MostRepliedTo.ReplyCount != 2 {
		t.Errorf("most replied: %+v", m.MostRepliedTo)
	}
}

func TestAnalyze_MostRepliedTieBreak(t *testing.T) {
	// R and A both have in-degree 1; R comes first and wins.
	records := []*model.Record{
		rec("R", model.RelationshipRoot, "", "", 0),
		rec("A", model.RelationshipReply, "R", "R", 0),
		rec("B", model.RelationshipReply, "A", "A", 0),
	}

	m, _ := BuildAndAnalyze(records)

	if m.MostRepliedTo == nil || m.MostRepliedTo.ID != "R" {
		t.Errorf("tie should go to the first node encountered: %+v", m.MostRepliedTo)
	}
}

func TestAnalyze_LoneRoot(t *testing.T) {
	records := []*model.Record{rec("R", model.RelationshipRoot, "", "", 0)}

	m, _ := BuildAndAnalyze(records)

	if m.ReplyDepth != 0 {
		t.Errorf("expected depth 0, got %d", m.ReplyDepth)
	}
	if m.MostRepliedTo == nil || m.MostRepliedTo.ID != "R" || m.MostRepliedTo.ReplyCount != 0 {
		t.Errorf("a lone root must still be reported: %+v", m.MostRepliedTo)
	}
}

func TestAnalyze_Empty(t *testing.T) {
	m, payload := BuildAndAnalyze(nil)

	if m.TotalTweets != 0 || m.TotalEdges != 0 {
		t.Errorf("totals: %+v", m)
	}
	if m.MainPost != nil || m.MostRepliedTo != nil {
		t.Error("empty graph must have nil main post and most-replied")
	}
	if len(payload.Nodes) != 0 || len(payload.Edges) != 0 {
		t.Error("empty payload expected")
	}
}

func TestAnalyze_AuthorStats(t *testing.T) {
	records := []*model.Record{
		rec("R", model.RelationshipRoot, "", "", 0),
		rec("A", model.RelationshipReply, "R", "R", 0),
		rec("B", model.RelationshipReply, "A", "A", 0),
	}
	records[1].AuthorHandle = "alice"
	records[2].AuthorHandle = "alice"
	records[0].AuthorHandle = ""

	m, _ := BuildAndAnalyze(records)

	alice := m.AuthorStats["alice"]
	if alice == nil || alice.TweetCount != 2 || alice.ReplyCount != 2 {
		t.Errorf("alice stats: %+v", alice)
	}
	unknown := m.AuthorStats["unknown"]
	if unknown == nil || unknown.TweetCount != 1 || unknown.ReplyCount != 0 {
		t.Errorf("missing handles must bucket under unknown: %+v", unknown)
	}
}

func TestAnalyze_NoRootDegrades(t *testing.T) {
	records := []*model.Record{
		rec("A", model.RelationshipReply, "", "", 0),
		rec("B", model.RelationshipReply, "A", "A", 0),
	}

	m, _ := BuildAndAnalyze(records)

	if m.MainPost != nil {
		t.Error("no root node means nil main post")
	}
	if m.ReplyDepth != 0 {
		t.Errorf("expected depth 0 without a root, got %d", m.ReplyDepth)
	}
	if m.TotalTweets != 2 {
		t.Errorf("totals still computed: %d", m.TotalTweets)
	}
}
