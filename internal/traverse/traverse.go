// Package traverse discovers the quote-chain graph rooted at a post. It
// drains an explicit FIFO worklist of quote tweets, re-fetching each
// quote's own thread and looking up further quotes of it, up to a
// configured depth ceiling. All discovered tweets fold into a single
// registry.
package traverse

import (
	"context"
	"fmt"
	"io"

	"github.com/ppiankov/threadscope/internal/model"
	"github.com/ppiankov/threadscope/internal/registry"
	"github.com/ppiankov/threadscope/internal/source"
)

// queueItem is one pending unit of quote expansion.
type queueItem struct {
	quoteID           string
	childDepth        int
	parentForChildren string
}

// Traverser runs bounded quote traversals against an injected source.
// It owns its registry for the duration of one Aggregate call and must
// not be shared across concurrent aggregations.
type Traverser struct {
	src      source.Collaborator
	reg      *registry.Registry
	maxDepth int
	diag     io.Writer
}

// New creates a traverser. maxDepth is the quote recursion ceiling.
// Diagnostics are written to diag; pass nil to discard them.
func New(src source.Collaborator, reg *registry.Registry, maxDepth int, diag io.Writer) *Traverser {
	if diag == nil {
		diag = io.Discard
	}
	if maxDepth < 0 {
		maxDepth = 0
	}
	return &Traverser{src: src, reg: reg, maxDepth: maxDepth, diag: diag}
}

// Aggregate assembles the full merged record set for the conversation
// rooted at rootURL/rootID. Only the initial root-thread fetch is fatal;
// every later fetch failure is logged and treated as a dead end for that
// branch. The result is unordered beyond registry insertion order.
func (t *Traverser) Aggregate(ctx context.Context, rootURL, rootID string) ([]*model.Record, error) {
	if rootID == "" {
		return nil, fmt.Errorf("root tweet id is required")
	}

	thread, err := t.src.FetchThread(ctx, rootURL)
	if err != nil {
		return nil, fmt.Errorf("fetch root thread: %w", err)
	}

	// Seed: the root at depth 0 with no parent, every other thread item
	// at depth 0 with its own reply target as parent so genuine reply
	// chains survive.
	rootSeen := false
	for _, tw := range thread {
		if tw.ID == rootID {
			t.reg.Merge(tw, model.RelationshipRoot, "", 0)
			rootSeen = true
			continue
		}
		t.reg.Merge(tw, "", "", 0)
	}
	if !rootSeen && len(thread) > 0 {
		// The archive did not return the requested id; promote the first
		// thread item so the analysis still has a root.
		fmt.Fprintf(t.diag, "traverse: root %s missing from its thread, using %s\n", rootID, thread[0].ID)
		rootID = thread[0].ID
		t.reg.Merge(thread[0], model.RelationshipRoot, "", 0)
	}

	// Direct quotes sit at depth 1 with the root as parent. Every quote
	// below the ceiling is expanded, including ones already sighted as
	// plain members of the root thread; only the discovery step dedupes
	// on record creation.
	var queue []queueItem
	enqueued := make(map[string]bool)
	quotes, err := t.src.FetchQuotes(ctx, rootURL)
	if err != nil {
		fmt.Fprintf(t.diag, "traverse: quote lookup for root %s failed: %v\n", rootID, err)
	}
	for _, tw := range quotes {
		rec, _ := t.reg.Merge(tw, model.RelationshipQuote, rootID, 1)
		if rec == nil || rec.ID == rootID || enqueued[rec.ID] {
			continue
		}
		if rec.QuoteDepth < t.maxDepth {
			enqueued[rec.ID] = true
			queue = append(queue, queueItem{quoteID: rec.ID, childDepth: rec.QuoteDepth + 1, parentForChildren: rec.ID})
		}
	}

	// Drain FIFO: discovery order is processing order. Enqueued depth
	// strictly increases and is capped, so the queue is finite even when
	// the archive reports cyclic quote references.
	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]
		queue = append(queue, t.expand(ctx, item)...)
	}

	return t.reg.Records(), nil
}

// expand processes one dequeued quote: re-fetches the thread the quote
// belongs to, then looks up tweets quoting it if its depth allows, and
// returns any new queue items.
func (t *Traverser) expand(ctx context.Context, item queueItem) []queueItem {
	rec, ok := t.reg.Get(item.quoteID)
	if !ok {
		return nil
	}
	depth := rec.QuoteDepth
	quoteParent := rec.GraphParentID
	postURL := t.src.PostURL(rec.AuthorHandle, rec.ID)

	thread, err := t.src.FetchThread(ctx, postURL)
	if err != nil {
		fmt.Fprintf(t.diag, "traverse: thread fetch for %s failed: %v\n", item.quoteID, err)
	}
	for _, tw := range thread {
		if tw.ID == item.quoteID {
			// The generic thread fetch reports the quote as the head of
			// its own sub-thread; re-assert the recorded quote link.
			t.reg.Merge(tw, model.RelationshipQuote, quoteParent, depth)
			continue
		}
		// Replies inside the sub-thread group visually with the quote
		// they attach to, so they share its depth.
		t.reg.Merge(tw, "", "", depth)
	}

	if depth >= t.maxDepth {
		return nil
	}

	quotes, err := t.src.FetchQuotes(ctx, postURL)
	if err != nil {
		fmt.Fprintf(t.diag, "traverse: quote lookup for %s failed: %v\n", item.quoteID, err)
		return nil
	}
	var next []queueItem
	for _, tw := range quotes {
		qrec, created := t.reg.Merge(tw, model.RelationshipQuote, item.parentForChildren, item.childDepth)
		if qrec == nil || !created {
			continue
		}
		if item.childDepth < t.maxDepth {
			next = append(next, queueItem{quoteID: qrec.ID, childDepth: item.childDepth + 1, parentForChildren: qrec.ID})
		}
	}
	return next
}
