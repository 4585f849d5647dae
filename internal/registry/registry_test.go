package registry

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ppiankov/threadscope/internal/model"
)

func TestMerge_NewRecordDefaults(t *testing.T) {
	r := New(nil)

	rec, created := r.Merge(model.Tweet{ID: "1", Text: "root"}, model.RelationshipRoot, "", 0)
	if !created {
		t.Fatal("expected first sighting to create a record")
	}
	if rec.Kind != model.RelationshipRoot {
		t.Errorf("expected root kind, got %q", rec.Kind)
	}
	if rec.QuoteDepth != 0 {
		t.Errorf("expected depth 0, got %d", rec.QuoteDepth)
	}

	// No kind signal but a reply target: defaults to reply.
	rec, _ = r.Merge(model.Tweet{ID: "2", ReplyToID: "1"}, "", "", 0)
	if rec.Kind != model.RelationshipReply {
		t.Errorf("expected reply kind, got %q", rec.Kind)
	}
	if rec.GraphParentID != "1" {
		t.Errorf("expected parent from reply target, got %q", rec.GraphParentID)
	}

	// No signal at all: unknown.
	rec, _ = r.Merge(model.Tweet{ID: "3"}, "", "", 0)
	if rec.Kind != model.RelationshipUnknown {
		t.Errorf("expected unknown kind, got %q", rec.Kind)
	}
}

func TestMerge_Idempotent(t *testing.T) {
	r := New(nil)
	obs := model.Tweet{ID: "1", Text: "hello", AuthorHandle: "alice", ReplyToID: "0"}

	first, created := r.Merge(obs, model.RelationshipReply, "0", model.DepthUnset)
	if !created {
		t.Fatal("expected creation")
	}
	snapshot := *first

	second, created := r.Merge(obs, model.RelationshipReply, "0", model.DepthUnset)
	if created {
		t.Fatal("repeat sighting must not create a second record")
	}
	if first != second {
		t.Error("expected same record pointer for repeat sighting")
	}
	if r.Len() != 1 {
		t.Errorf("expected 1 record, got %d", r.Len())
	}
	if snapshot != *second {
		t.Error("identical repeat sighting must not change the record")
	}
}

func TestMerge_QuoteKindSticky(t *testing.T) {
	r := New(nil)

	r.Merge(model.Tweet{ID: "q"}, model.RelationshipQuote, "root", 1)

	// A later reply sighting must not downgrade the quote.
	rec, _ := r.Merge(model.Tweet{ID: "q", ReplyToID: "other"}, model.RelationshipReply, "", model.DepthUnset)
	if rec.Kind != model.RelationshipQuote {
		t.Errorf("quote kind must be sticky, got %q", rec.Kind)
	}

	// The reverse order upgrades: reply first, quote after.
	r.Merge(model.Tweet{ID: "p"}, model.RelationshipReply, "", model.DepthUnset)
	rec, _ = r.Merge(model.Tweet{ID: "p"}, model.RelationshipQuote, "root", 1)
	if rec.Kind != model.RelationshipQuote {
		t.Errorf("expected upgrade to quote, got %q", rec.Kind)
	}
}

func TestMerge_ParentPrecedence(t *testing.T) {
	r := New(nil)

	// Quote-link parent overwrites while the record is a quote.
	r.Merge(model.Tweet{ID: "q"}, model.RelationshipQuote, "a", 2)
	rec, _ := r.Merge(model.Tweet{ID: "q"}, model.RelationshipQuote, "b", 1)
	if rec.GraphParentID != "b" {
		t.Errorf("quote-link parent must overwrite, got %q", rec.GraphParentID)
	}

	// A non-quote sighting only fills an empty parent, never replaces.
	rec, _ = r.Merge(model.Tweet{ID: "q"}, model.RelationshipReply, "c", model.DepthUnset)
	if rec.GraphParentID != "b" {
		t.Errorf("set parent must survive weaker sighting, got %q", rec.GraphParentID)
	}

	// Fill-if-empty from an explicit parent.
	r.Merge(model.Tweet{ID: "x"}, model.RelationshipUnknown, "", model.DepthUnset)
	rec, _ = r.Merge(model.Tweet{ID: "x"}, "", "parent", model.DepthUnset)
	if rec.GraphParentID != "parent" {
		t.Errorf("empty parent should be filled, got %q", rec.GraphParentID)
	}

	// Fill-if-empty from the observation's own reply target.
	r.Merge(model.Tweet{ID: "y"}, model.RelationshipUnknown, "", model.DepthUnset)
	rec, _ = r.Merge(model.Tweet{ID: "y", ReplyToID: "z"}, "", "", model.DepthUnset)
	if rec.GraphParentID != "z" {
		t.Errorf("empty parent should be filled from reply target, got %q", rec.GraphParentID)
	}
}

func TestMerge_DepthOnlyDecreases(t *testing.T) {
	r := New(nil)

	r.Merge(model.Tweet{ID: "q"}, model.RelationshipQuote, "root", 2)

	rec, _ := r.Merge(model.Tweet{ID: "q"}, model.RelationshipQuote, "root", 1)
	if rec.QuoteDepth != 1 {
		t.Errorf("shorter quote path must win, got depth %d", rec.QuoteDepth)
	}

	rec, _ = r.Merge(model.Tweet{ID: "q"}, model.RelationshipQuote, "root", 3)
	if rec.QuoteDepth != 1 {
		t.Errorf("longer quote path must be ignored, got depth %d", rec.QuoteDepth)
	}

	rec, _ = r.Merge(model.Tweet{ID: "q"}, "", "", model.DepthUnset)
	if rec.QuoteDepth != 1 {
		t.Errorf("unset depth must be ignored, got depth %d", rec.QuoteDepth)
	}

	// Unset resolves to the first concrete value.
	r.Merge(model.Tweet{ID: "u"}, "", "", model.DepthUnset)
	rec, _ = r.Merge(model.Tweet{ID: "u"}, model.RelationshipQuote, "root", 2)
	if rec.QuoteDepth != 2 {
		t.Errorf("unset depth should take first concrete value, got %d", rec.QuoteDepth)
	}
}

func TestMerge_ReplyTargetIndependent(t *testing.T) {
	r := New(nil)

	r.Merge(model.Tweet{ID: "q"}, model.RelationshipQuote, "root", 1)
	rec, _ := r.Merge(model.Tweet{ID: "q", ReplyToID: "other"}, "", "", model.DepthUnset)

	if rec.GraphParentID != "root" {
		t.Errorf("graph parent must stay the quote link, got %q", rec.GraphParentID)
	}
	if rec.ReplyToID != "other" {
		t.Errorf("reply target must be recorded independently, got %q", rec.ReplyToID)
	}
}

func TestMerge_MissingIDSkipped(t *testing.T) {
	var diag bytes.Buffer
	r := New(&diag)

	rec, created := r.Merge(model.Tweet{Text: "no id", AuthorHandle: "bob"}, "", "", 0)
	if rec != nil || created {
		t.Fatal("observation without id must be skipped")
	}
	if r.Len() != 0 {
		t.Errorf("expected empty registry, got %d records", r.Len())
	}
	if !strings.Contains(diag.String(), "bob") {
		t.Errorf("expected diagnostic naming the author, got %q", diag.String())
	}
}

func TestMerge_FillDisplayFields(t *testing.T) {
	r := New(nil)

	r.Merge(model.Tweet{ID: "1", LikeCount: 5}, "", "", 0)
	rec, _ := r.Merge(model.Tweet{
		ID:                "1",
		Text:              "filled in",
		AuthorHandle:      "alice",
		AuthorDisplayName: "Alice",
		Timestamp:         "2024-01-01T00:00:00Z",
		LikeCount:         3,
		RetweetCount:      7,
	}, "", "", model.DepthUnset)

	if rec.Text != "filled in" || rec.AuthorHandle != "alice" {
		t.Error("empty display fields should be filled from later sightings")
	}
	if rec.LikeCount != 5 {
		t.Errorf("like count must keep the maximum, got %d", rec.LikeCount)
	}
	if rec.RetweetCount != 7 {
		t.Errorf("retweet count must keep the maximum, got %d", rec.RetweetCount)
	}

	// Existing text is never replaced.
	rec, _ = r.Merge(model.Tweet{ID: "1", Text: "other"}, "", "", model.DepthUnset)
	if rec.Text != "filled in" {
		t.Errorf("set text must not be replaced, got %q", rec.Text)
	}
}

func TestRecords_InsertionOrder(t *testing.T) {
	r := New(nil)
	for _, id := range []string{"c", "a", "b"} {
		r.Merge(model.Tweet{ID: id}, "", "", 0)
	}
	// Repeat sighting must not reorder.
	r.Merge(model.Tweet{ID: "a"}, "", "", 0)

	recs := r.Records()
	got := make([]string, len(recs))
	for i, rec := range recs {
		got[i] = rec.ID
	}
	want := []string{"c", "a", "b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
}
