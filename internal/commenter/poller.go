// Package commenter watches a group wall and leaves the first comment on new posts.
package commenter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ppiankov/firstcomment/internal/source"
	"github.com/ppiankov/firstcomment/internal/store"
)

const (
	DefaultWallCount = 2
	DefaultInterval  = 5 * time.Second
	DefaultFreshness = 2 * time.Minute

	pruneEvery = time.Hour
)

// Wall is the subset of the VK API the poller needs.
type Wall interface {
	FetchWall(ctx context.Context, q source.WallQuery) ([]source.Post, error)
	CreateComment(ctx context.Context, c source.Comment) (int64, error)
}

// Ledger remembers which posts already received a comment.
type Ledger interface {
	IsProcessed(ctx context.Context, ownerID, postID int64) (bool, error)
	MarkProcessed(ctx context.Context, r store.Record) error
	PruneOld(ctx context.Context, cutoff time.Time) (int64, error)
}

// ErrorPolicy decides what Run does when an iteration fails.
type ErrorPolicy string

const (
	Continue ErrorPolicy = "continue" // print a warning and keep polling
	Exit     ErrorPolicy = "exit"     // return the error from Run
)

type Options struct {
	Group     string
	Message   string
	WallCount int
	Interval  time.Duration
	Freshness time.Duration
	Retain    time.Duration // zero disables pruning
	OnError   ErrorPolicy
	DryRun    bool
	Out       io.Writer
	Redact    func(string) string
	Now       func() time.Time
}

// Outcome summarizes one iteration.
type Outcome int

const (
	NoPost Outcome = iota
	Skipped
	Commented
	WouldComment
)

func (o Outcome) String() string {
	switch o {
	case NoPost:
		return "no post"
	case Skipped:
		return "skipped"
	case Commented:
		return "commented"
	case WouldComment:
		return "would comment"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// postKey identifies a post; ids are only unique within one wall.
type postKey struct {
	owner, post int64
}

type Result struct {
	Outcome   Outcome
	Verdict   Verdict // set when Outcome is Skipped
	PostID    int64
	CommentID int64
}

// Poller runs the fetch, check, comment cycle. It is meant to be driven
// from a single goroutine.
type Poller struct {
	wall      Wall
	ledger    Ledger
	group     string
	message   string
	count     int
	interval  time.Duration
	freshness time.Duration
	retain    time.Duration
	onError   ErrorPolicy
	dryRun    bool
	out       io.Writer
	redact    func(string) string
	now       func() time.Time

	// local holds posts handled in this process that the ledger does not
	// know about: dry-run posts and posts whose record failed to save.
	local     map[postKey]struct{}
	lastPrune time.Time
}

func New(wall Wall, ledger Ledger, opts Options) (*Poller, error) {
	if wall == nil {
		return nil, errors.New("commenter: wall is required")
	}
	if ledger == nil {
		return nil, errors.New("commenter: ledger is required")
	}
	if strings.TrimSpace(opts.Group) == "" {
		return nil, errors.New("commenter: group is required")
	}
	if opts.Message == "" {
		return nil, errors.New("commenter: message is required")
	}

	if opts.WallCount <= 0 {
		opts.WallCount = DefaultWallCount
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Freshness <= 0 {
		opts.Freshness = DefaultFreshness
	}
	if opts.Retain != 0 && opts.Retain < opts.Freshness {
		return nil, fmt.Errorf("commenter: retain %s is shorter than freshness %s", opts.Retain, opts.Freshness)
	}
	switch opts.OnError {
	case "":
		opts.OnError = Continue
	case Continue, Exit:
	default:
		return nil, fmt.Errorf("commenter: unknown error policy %q", opts.OnError)
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.Redact == nil {
		opts.Redact = func(s string) string { return s }
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Poller{
		wall:      wall,
		ledger:    ledger,
		group:     opts.Group,
		message:   opts.Message,
		count:     opts.WallCount,
		interval:  opts.Interval,
		freshness: opts.Freshness,
		retain:    opts.Retain,
		onError:   opts.OnError,
		dryRun:    opts.DryRun,
		out:       opts.Out,
		redact:    opts.Redact,
		now:       opts.Now,
		local:     make(map[postKey]struct{}),
	}, nil
}

// Poll runs a single iteration.
func (p *Poller) Poll(ctx context.Context) (Result, error) {
	posts, err := p.wall.FetchWall(ctx, source.WallQuery{
		Domain: p.group,
		Count:  p.count,
		Offset: 0,
		Filter: source.FilterAll,
	})
	if err != nil {
		return Result{}, fmt.Errorf("fetch wall %s: %w", p.group, err)
	}

	post := SelectLatest(posts)
	if post == nil {
		return Result{Outcome: NoPost}, nil
	}

	verdict, err := p.Check(ctx, *post)
	if err != nil {
		return Result{}, err
	}
	if verdict != Fresh {
		res := Result{Outcome: Skipped, Verdict: verdict}
		if post.ID != nil {
			res.PostID = *post.ID
		}
		return res, nil
	}

	id := *post.ID
	if p.dryRun {
		p.local[postKey{post.OwnerID, id}] = struct{}{}
		fmt.Fprintf(p.out, "Dry run: would comment on post with id %d\n", id)
		return Result{Outcome: WouldComment, PostID: id}, nil
	}

	commentID, err := p.wall.CreateComment(ctx, source.Comment{
		OwnerID: post.OwnerID,
		PostID:  id,
		Message: p.message,
	})
	if err != nil {
		return Result{}, fmt.Errorf("comment on post %d: %w", id, err)
	}
	fmt.Fprintf(p.out, "Comment was added to post with id %d\n", id)
	res := Result{Outcome: Commented, PostID: id, CommentID: commentID}

	err = p.ledger.MarkProcessed(ctx, store.Record{
		PostID:      id,
		OwnerID:     post.OwnerID,
		PostedAt:    *post.Date,
		CommentedAt: p.now().UTC(),
		CommentID:   commentID,
		Message:     p.message,
	})
	if err != nil {
		p.local[postKey{post.OwnerID, id}] = struct{}{}
		return res, fmt.Errorf("record post %d: %w", id, err)
	}
	return res, nil
}

// Run polls immediately, then again after each interval, until ctx is done.
// Cancellation is not an error.
func (p *Poller) Run(ctx context.Context) error {
	for {
		if _, err := p.Poll(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if p.onError == Exit {
				return err
			}
			p.warn(err)
		}

		p.prune(ctx)

		timer := time.NewTimer(p.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// prune drops ledger entries for posts older than the retention window, at
// most once per pruneEvery.
func (p *Poller) prune(ctx context.Context) {
	if p.retain <= 0 {
		return
	}
	now := p.now()
	if !p.lastPrune.IsZero() && now.Sub(p.lastPrune) < pruneEvery {
		return
	}
	p.lastPrune = now

	if _, err := p.ledger.PruneOld(ctx, now.Add(-p.retain)); err != nil && ctx.Err() == nil {
		p.warn(fmt.Errorf("prune ledger: %w", err))
	}
}

func (p *Poller) warn(err error) {
	fmt.Fprintf(p.out, "warning: %s\n", p.redact(err.Error()))
}
