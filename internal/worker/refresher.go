// Package worker computes stats and search results off the caller's
// goroutine.
//
// The caller owns the live tree. Submit clones it and hands the clone to a
// goroutine, so the live tree is never shared. Every submission gets a
// generation number; a result is published only if no newer one has been
// published, and Apply refuses results computed from an outdated tree.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"outliner-cli/internal/logging"
	"outliner-cli/internal/outline"
)

// ErrStale means a result was computed from an older version of the tree.
var ErrStale = errors.New("result is stale")

type Result struct {
	Generation uint64
	// Version is the tree version the result was computed from.
	Version uint64
	Stats   outline.Stats
	Matches []outline.ID
	Err     error
}

// Apply resolves the matches against the live tree. It fails with ErrStale
// if the tree changed since the result was computed.
func (r Result) Apply(tree *outline.Tree) ([]*outline.Node, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	if tree.Version() != r.Version {
		return nil, ErrStale
	}
	out := make([]*outline.Node, 0, len(r.Matches))
	for _, id := range r.Matches {
		if n, ok := tree.Node(id); ok {
			out = append(out, n)
		}
	}
	return out, nil
}

// Refresher runs stats and filter jobs. The zero value is not usable; use
// NewRefresher.
type Refresher struct {
	log     *slog.Logger
	publish func(Result)

	mu        sync.Mutex
	gen       uint64
	published uint64
	latest    *Result

	wg sync.WaitGroup
}

// NewRefresher returns a Refresher. publish, if set, is called on the worker
// goroutine for every result that wins the generation check.
func NewRefresher(log *slog.Logger, publish func(Result)) *Refresher {
	return &Refresher{log: logging.OrDiscard(log), publish: publish}
}

// Submit snapshots tree and starts computing on it. It returns the
// generation assigned to the job.
func (r *Refresher) Submit(ctx context.Context, tree *outline.Tree, opts outline.FilterOptions) uint64 {
	snap := tree.Clone()
	if opts.Now.IsZero() {
		opts.Now = snap.Now()
	}

	r.mu.Lock()
	r.gen++
	gen := r.gen
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.finish(compute(ctx, snap, gen, opts))
	}()
	return gen
}

func compute(ctx context.Context, snap *outline.Tree, gen uint64, opts outline.FilterOptions) Result {
	res := Result{Generation: gen, Version: snap.Version()}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		res.Stats = snap.Stats(snap.Root())
		return nil
	})
	var matches []outline.ID
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		for _, n := range snap.Filter(snap.Root(), opts) {
			matches = append(matches, n.ID)
		}
		return nil
	})
	res.Err = g.Wait()
	res.Matches = matches
	return res
}

func (r *Refresher) finish(res Result) {
	r.mu.Lock()
	if res.Generation <= r.published {
		r.mu.Unlock()
		r.log.Debug("dropping stale refresh", "generation", res.Generation, "published", r.published)
		return
	}
	r.published = res.Generation
	r.latest = &res
	r.mu.Unlock()

	if res.Err != nil {
		r.log.Warn("refresh failed", "generation", res.Generation, "err", res.Err)
	}
	if r.publish != nil {
		r.publish(res)
	}
}

// Latest returns the most recently published result.
func (r *Refresher) Latest() (Result, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.latest == nil {
		return Result{}, false
	}
	return *r.latest, true
}

// Wait blocks until every submitted job has finished.
func (r *Refresher) Wait() { r.wg.Wait() }
