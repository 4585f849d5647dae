// Package registry holds the canonical record set for one conversation
// aggregation. The same tweet routinely arrives from several fetch paths
// (the root thread, a quote lookup, a sub-thread re-fetch) with different
// relationship context; Merge reconciles every sighting into a single
// record. A Registry is owned by a single traversal and is not safe for
// concurrent use.
package registry

import (
	"fmt"
	"io"

	"github.com/ppiankov/threadscope/internal/model"
)

// Registry is an identity-keyed store of canonical tweet records.
type Registry struct {
	records map[string]*model.Record
	order   []string
	diag    io.Writer
}

// New creates an empty registry. Diagnostics about skipped observations
// are written to diag; pass nil to discard them.
func New(diag io.Writer) *Registry {
	if diag == nil {
		diag = io.Discard
	}
	return &Registry{
		records: make(map[string]*model.Record),
		diag:    diag,
	}
}

// Merge folds one observation into the registry and returns the stored
// record plus whether it was newly created.
//
// kind is the relationship implied by the fetch path that produced the
// observation; empty means no signal, in which case a new record defaults
// to reply when it carries a reply target and unknown otherwise.
// parentID is the node the observation should link to when the
// observation itself has no better signal; empty means none. depth is the
// quote depth implied by the traversal path, or model.DepthUnset for
// observations that did not arrive via a quote path.
//
// Reconciliation rules for repeat sightings:
//   - quote kind wins and is sticky: once a record is a quote, no later
//     sighting downgrades it;
//   - the graph parent is overwritten by a quote-link parent only while
//     the record is a quote; otherwise an empty parent may be filled in
//     but a set one is never replaced;
//   - quote depth only ever decreases (shortest quote path from the root
//     wins); DepthUnset inputs are ignored;
//   - the direct reply target is kept independently of the graph parent.
//
// Observations without an id are skipped with a diagnostic; Merge never
// fails.
func (r *Registry) Merge(obs model.Tweet, kind model.Relationship, parentID string, depth int) (*model.Record, bool) {
	if obs.ID == "" {
		fmt.Fprintf(r.diag, "registry: skipping observation without id (author=%q)\n", obs.AuthorHandle)
		return nil, false
	}

	rec, seen := r.records[obs.ID]
	if !seen {
		rec = &model.Record{Tweet: obs, Kind: kind, QuoteDepth: depth}
		if rec.Kind == "" {
			if obs.ReplyToID != "" {
				rec.Kind = model.RelationshipReply
			} else {
				rec.Kind = model.RelationshipUnknown
			}
		}
		switch {
		case parentID != "":
			rec.GraphParentID = parentID
		case obs.ReplyToID != "":
			rec.GraphParentID = obs.ReplyToID
		}
		r.records[obs.ID] = rec
		r.order = append(r.order, obs.ID)
		return rec, true
	}

	// Relationship precedence: quote wins and is sticky.
	if kind == model.RelationshipQuote {
		rec.Kind = model.RelationshipQuote
	} else if kind != "" && rec.Kind != model.RelationshipQuote {
		rec.Kind = kind
	}

	// Parent precedence. A quote-link parent re-asserts itself for quote
	// records; anything weaker only fills an empty slot.
	if parentID != "" {
		if kind == model.RelationshipQuote && rec.Kind == model.RelationshipQuote {
			rec.GraphParentID = parentID
		} else if rec.GraphParentID == "" {
			rec.GraphParentID = parentID
		}
	} else if rec.GraphParentID == "" && obs.ReplyToID != "" {
		rec.GraphParentID = obs.ReplyToID
	}

	// Depth: shortest quote path from the root wins.
	if depth != model.DepthUnset {
		if rec.QuoteDepth == model.DepthUnset || depth < rec.QuoteDepth {
			rec.QuoteDepth = depth
		}
	}

	// The direct reply target survives independently of the graph parent.
	if obs.ReplyToID != "" {
		rec.ReplyToID = obs.ReplyToID
	}

	fillDisplayFields(rec, obs)
	return rec, false
}

// fillDisplayFields tops up display attributes from a later sighting.
// Text and author fields fill empty slots only; engagement counts keep
// the highest value seen, since later sightings are fresher.
func fillDisplayFields(rec *model.Record, obs model.Tweet) {
	if rec.Text == "" {
		rec.Text = obs.Text
	}
	if rec.AuthorHandle == "" {
		rec.AuthorHandle = obs.AuthorHandle
	}
	if rec.AuthorDisplayName == "" {
		rec.AuthorDisplayName = obs.AuthorDisplayName
	}
	if rec.AvatarURL == "" {
		rec.AvatarURL = obs.AvatarURL
	}
	if rec.Timestamp == "" {
		rec.Timestamp = obs.Timestamp
	}
	if obs.LikeCount > rec.LikeCount {
		rec.LikeCount = obs.LikeCount
	}
	if obs.RetweetCount > rec.RetweetCount {
		rec.RetweetCount = obs.RetweetCount
	}
}

// Get returns the record for id, if present.
func (r *Registry) Get(id string) (*model.Record, bool) {
	rec, ok := r.records[id]
	return rec, ok
}

// Len returns the number of records.
func (r *Registry) Len() int {
	return len(r.records)
}

// Records returns all records in insertion order.
func (r *Registry) Records() []*model.Record {
	out := make([]*model.Record, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.records[id])
	}
	return out
}
