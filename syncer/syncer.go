// Package syncer drives the background refresh cycle: a fan-out fetch
// across the four entity partitions, change-detected rebuilds of their
// materialized sets, and the optimistic local mutations that move an
// entity between partitions after a state change.
package syncer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/krailo/ghsync/client"
	"github.com/krailo/ghsync/config"
	"github.com/krailo/ghsync/ratelimit"
	"github.com/krailo/ghsync/store"
	"github.com/krailo/ghsync/tree"
)

// Syncer coordinates the store and the per-partition providers.
type Syncer struct {
	cfg     *config.Config
	limiter *ratelimit.Limiter
	cl      *client.Client
	store   *store.Store

	mu          sync.Mutex
	owner       string
	repo        string
	providers   map[store.Key]*tree.Provider
	lastRefresh time.Time
}

// New builds a syncer with an authenticated API client.
func New(ctx context.Context, cfg *config.Config) *Syncer {
	limiter := ratelimit.New()
	return WithClient(cfg, client.New(ctx, cfg.Token, limiter), limiter)
}

// WithClient builds a syncer around an existing client.
func WithClient(cfg *config.Config, cl *client.Client, limiter *ratelimit.Limiter) *Syncer {
	s := &Syncer{
		cfg:       cfg,
		limiter:   limiter,
		cl:        cl,
		store:     store.New(cfg, cl, limiter),
		owner:     cfg.Owner,
		repo:      cfg.Repo,
		providers: make(map[store.Key]*tree.Provider),
	}
	for _, key := range store.Keys() {
		s.providers[key] = tree.NewProvider(key)
	}
	return s
}

// Store exposes the underlying cache layer.
func (s *Syncer) Store() *store.Store {
	return s.store
}

// Provider returns the materialized set for one partition.
func (s *Syncer) Provider(key store.Key) *tree.Provider {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.providers[key]
}

// Repo returns the active owner and repository.
func (s *Syncer) Repo() (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owner, s.repo
}

// RefreshAll fetches all four partitions concurrently and rebuilds the
// providers whose data changed. Returns the keys that were rebuilt.
func (s *Syncer) RefreshAll(ctx context.Context, force bool) []store.Key {
	keys := store.Keys()
	fetched := make([][]*client.Entity, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			fetched[i] = s.store.FetchState(gctx, key)
			return nil
		})
	}
	// Fetches degrade to cached or empty data rather than failing.
	_ = g.Wait()

	var rebuilt []store.Key
	for i, key := range keys {
		if s.Provider(key).Refresh(ctx, s.store, fetched[i], force) {
			rebuilt = append(rebuilt, key)
		}
	}

	now := time.Now().UTC()
	s.mu.Lock()
	s.lastRefresh = now
	s.mu.Unlock()
	s.store.SetLastRefresh(now)

	logrus.WithFields(logrus.Fields{
		"rebuilt": len(rebuilt),
		"forced":  force,
	}).Debug("refresh cycle complete")
	return rebuilt
}

// Prime loads disk snapshots into the providers without touching the
// network. It gives the views something to show while the first real
// refresh runs.
func (s *Syncer) Prime(ctx context.Context) {
	for _, key := range store.Keys() {
		if data := s.store.DiskSnapshot(key); len(data) > 0 {
			s.Provider(key).Refresh(ctx, s.store, data, false)
		}
	}
}

// Stale reports whether a refresh is due: no refresh this process or
// the persisted watermark is older than the configured interval.
func (s *Syncer) Stale() bool {
	s.mu.Lock()
	last := s.lastRefresh
	s.mu.Unlock()
	if last.IsZero() {
		last = s.store.LastRefresh()
	}
	return last.IsZero() || time.Since(last) >= s.cfg.Interval()
}

// Run refreshes on the configured cadence until ctx is canceled. A
// fresh persisted watermark defers the first network pass in favor of
// disk snapshots.
func (s *Syncer) Run(ctx context.Context) {
	if s.Stale() {
		s.RefreshAll(ctx, false)
	} else {
		logrus.Debug("recent refresh on disk, priming from snapshots")
		s.Prime(ctx)
	}

	ticker := time.NewTicker(s.cfg.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.limiter.Limited() {
				logrus.Debug("rate limited, skipping scheduled refresh")
				continue
			}
			s.RefreshAll(ctx, false)
		}
	}
}

// SwitchRepo points the syncer at a different repository: every
// provider is cleared, the store swaps its caches and disk directory,
// and a forced refresh repopulates from the new target.
func (s *Syncer) SwitchRepo(ctx context.Context, owner, repo string) {
	s.mu.Lock()
	if owner == s.owner && repo == s.repo {
		s.mu.Unlock()
		return
	}
	s.owner = owner
	s.repo = repo
	for _, p := range s.providers {
		p.Reset()
	}
	s.mu.Unlock()

	s.store.SwitchRepo(owner, repo)
	logrus.WithFields(logrus.Fields{
		"owner": owner,
		"repo":  repo,
	}).Info("switched repository")

	s.RefreshAll(ctx, true)
}

// SetListLimits changes the pagination bounds and invalidates cached
// pages sized under the old bounds.
func (s *Syncer) SetListLimits(perPage, maxItems int) {
	s.cfg.ItemsPerPage = perPage
	s.cfg.MaxRecentItems = maxItems
	s.cfg.Clamp()
	s.store.SetLimits(s.cfg.ItemsPerPage, s.cfg.MaxRecentItems)
}

// InvalidateLists drops every cached list and refetches, the path a
// pagination config change takes.
func (s *Syncer) InvalidateLists(ctx context.Context) []store.Key {
	s.store.Invalidate()
	return s.RefreshAll(ctx, true)
}
