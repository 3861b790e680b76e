package commenter

import (
	"context"
	"fmt"

	"github.com/ppiankov/firstcomment/internal/source"
)

// Verdict is the outcome of the freshness check for a single post.
type Verdict int

const (
	Fresh Verdict = iota
	Malformed
	Processed
	Stale
)

func (v Verdict) String() string {
	switch v {
	case Fresh:
		return "fresh"
	case Malformed:
		return "malformed"
	case Processed:
		return "processed"
	case Stale:
		return "stale"
	default:
		return fmt.Sprintf("verdict(%d)", int(v))
	}
}

// SelectLatest returns the first post that is not pinned, or nil.
// Only the posts the wall returned are considered.
func SelectLatest(posts []source.Post) *source.Post {
	for i := range posts {
		if !posts[i].Pinned() {
			return &posts[i]
		}
	}
	return nil
}

// Check classifies post. Conditions are tried in order: missing id or
// date, already handled, older than the freshness window.
func (p *Poller) Check(ctx context.Context, post source.Post) (Verdict, error) {
	if post.ID == nil || post.Date == nil {
		return Malformed, nil
	}

	id := *post.ID
	if _, ok := p.local[postKey{post.OwnerID, id}]; ok {
		return Processed, nil
	}
	done, err := p.ledger.IsProcessed(ctx, post.OwnerID, id)
	if err != nil {
		return 0, fmt.Errorf("check post %d: %w", id, err)
	}
	if done {
		return Processed, nil
	}

	if p.now().UTC().Sub(*post.Date) > p.freshness {
		return Stale, nil
	}
	return Fresh, nil
}

// IsFresh reports whether post should receive a comment now.
func (p *Poller) IsFresh(ctx context.Context, post source.Post) (bool, error) {
	v, err := p.Check(ctx, post)
	if err != nil {
		return false, err
	}
	return v == Fresh, nil
}
