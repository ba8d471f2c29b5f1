// Package store implements the tiered cache behind the sidebar: a
// memory tier that is authoritative for the process lifetime, a disk
// tier that survives restarts, and the network. Four list partitions
// (issue/pull x open/closed) share it, each under its own key.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/krailo/ghsync/client"
	"github.com/krailo/ghsync/config"
	"github.com/krailo/ghsync/diskcache"
	"github.com/krailo/ghsync/ratelimit"
)

// Kind is the entity type half of a partition key.
type Kind string

// State is the entity state half of a partition key.
type State string

const (
	KindIssue Kind = "issue"
	KindPull  Kind = "pull"

	StateOpen   State = "open"
	StateClosed State = "closed"
)

// Key identifies one cache partition and one on-disk snapshot.
type Key struct {
	Kind  Kind
	State State
}

func (k Key) String() string {
	return string(k.Kind) + "-" + string(k.State)
}

// Filename is the partition's snapshot name inside the repository
// cache directory.
func (k Key) Filename() string {
	return k.String() + ".json"
}

// Keys returns the four partitions in a stable order.
func Keys() []Key {
	return []Key{
		{KindIssue, StateOpen},
		{KindIssue, StateClosed},
		{KindPull, StateOpen},
		{KindPull, StateClosed},
	}
}

func keyIndex(k Key) int {
	for i, kk := range Keys() {
		if kk == k {
			return i
		}
	}
	return len(Keys())
}

// Store owns the list and comment caches for one repository at a
// time. Partition fetches may run concurrently; each partition has
// its own critical section so a mutation cannot interleave with a
// refresh of the same key.
type Store struct {
	cl      *client.Client
	limiter *ratelimit.Limiter

	mu       sync.Mutex
	owner    string
	repo     string
	disk     *diskcache.Cache
	cache    map[Key][]*client.Entity
	etags    map[Key]string
	locks    map[Key]*sync.Mutex
	gen      uint64
	perPage  int
	maxItems int

	cacheDir string
}

// New creates a store for the repository named in cfg.
func New(cfg *config.Config, cl *client.Client, limiter *ratelimit.Limiter) *Store {
	return &Store{
		cl:       cl,
		limiter:  limiter,
		owner:    cfg.Owner,
		repo:     cfg.Repo,
		disk:     diskcache.New(cfg.CacheDir, cfg.Owner, cfg.Repo),
		cache:    make(map[Key][]*client.Entity),
		etags:    make(map[Key]string),
		locks:    make(map[Key]*sync.Mutex),
		perPage:  cfg.ItemsPerPage,
		maxItems: cfg.MaxRecentItems,
		cacheDir: cfg.CacheDir,
	}
}

func (s *Store) keyLock(k Key) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.locks[k]; ok {
		return l
	}
	l := &sync.Mutex{}
	s.locks[k] = l
	return l
}

// remember writes a fetch result into the memory tier unless the
// store switched repositories while the fetch was in flight. An empty
// etag leaves any stored validator untouched.
func (s *Store) remember(gen uint64, key Key, items []*client.Entity, etag string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		logrus.Debugf("store: discarding stale %s result from a previous repository", key)
		return false
	}
	s.cache[key] = items
	if etag != "" {
		s.etags[key] = etag
	}
	return true
}

// fallback serves the disk tier, or an empty set when the disk has
// nothing, and memoizes whichever it found.
func (s *Store) fallback(gen uint64, key Key, disk *diskcache.Cache) []*client.Entity {
	var items []*client.Entity
	if !disk.Load(key.Filename(), &items) {
		items = []*client.Entity{}
	}
	s.remember(gen, key, items, "")
	return items
}

// FetchState returns the partition's entities from the first tier
// able to serve them. It never fails: when the network is down, the
// quota exhausted or the disk empty, the result degrades toward an
// empty slice so one partition's trouble cannot stall the others.
func (s *Store) FetchState(ctx context.Context, key Key) []*client.Entity {
	lock := s.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	if items, ok := s.cache[key]; ok {
		s.mu.Unlock()
		return items
	}
	owner, repo, disk, gen := s.owner, s.repo, s.disk, s.gen
	etag := s.etags[key]
	perPage, maxItems := s.perPage, s.maxItems
	s.mu.Unlock()

	if s.limiter.Limited() {
		logrus.Warnf("store: skipping %s fetch due to rate-limit", key)
		return s.fallback(gen, key, disk)
	}

	var (
		all      []*client.Entity
		lastMeta *client.PageMeta
		etagUsed bool
	)
	// A stored validator is only safe on the first page, and only
	// when one page is knowably enough; a 304 against page one says
	// nothing about later pages.
	singlePage := maxItems <= perPage
	page := 1

	for {
		logrus.Debugf("store: %s page %d (%d/%d items so far)", key, page, len(all), maxItems)

		reqETag := ""
		if etag != "" && !etagUsed && singlePage {
			reqETag = etag
			etagUsed = true
		}

		items, meta, err := s.cl.ListIssues(ctx, owner, repo, string(key.State), page, perPage, reqETag)
		if err != nil {
			logrus.Warnf("store: %s fetch failed: %v", key, err)
			return s.fallback(gen, key, disk)
		}
		if meta.RateLimited || meta.NotModified {
			return s.fallback(gen, key, disk)
		}

		all = append(all, items...)
		lastMeta = meta
		if len(items) < perPage || len(all) >= maxItems {
			break
		}
		page++
	}

	if len(all) > maxItems {
		all = all[:maxItems]
	}

	// Persist the validator only when the whole result came from a
	// single, non-paginated page; anything else would tag the cache
	// with an ETag covering only the first page.
	newETag := ""
	if page == 1 && len(all) <= perPage && lastMeta != nil {
		newETag = lastMeta.ETag
	}

	if s.remember(gen, key, all, newETag) {
		disk.Save(key.Filename(), all)
	}
	return all
}

// Cached returns the memory tier's entry for key, if any.
func (s *Store) Cached(key Key) ([]*client.Entity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, ok := s.cache[key]
	return items, ok
}

// CacheDir returns the root of the disk tier.
func (s *Store) CacheDir() string {
	return s.cacheDir
}

// DiskSnapshot reads the partition's disk snapshot without touching
// the network or the memory tier.
func (s *Store) DiskSnapshot(key Key) []*client.Entity {
	s.mu.Lock()
	disk := s.disk
	s.mu.Unlock()

	var items []*client.Entity
	disk.Load(key.Filename(), &items)
	return items
}

// PullDetails hydrates the pull-only fields for one entity.
// Best-effort: returns nil when the quota is exhausted.
func (s *Store) PullDetails(ctx context.Context, number int) (*client.PullDetails, error) {
	if s.limiter.Limited() {
		return nil, nil
	}
	s.mu.Lock()
	owner, repo := s.owner, s.repo
	s.mu.Unlock()
	return s.cl.GetPull(ctx, owner, repo, number)
}

// Invalidate clears every partition's memory entry and stored
// validator, forcing full refetches.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[Key][]*client.Entity)
	s.etags = make(map[Key]string)
}

// SetLimits applies new pagination parameters and invalidates, since
// cached pages were sized under the old bounds.
func (s *Store) SetLimits(perPage, maxItems int) {
	s.mu.Lock()
	s.perPage = perPage
	s.maxItems = maxItems
	s.mu.Unlock()
	s.Invalidate()
}

// SwitchRepo atomically retargets the store at another repository:
// memory state is dropped, the disk tier moves to the new directory,
// and the generation advances so in-flight fetches for the old
// repository discard their results.
func (s *Store) SwitchRepo(owner, repo string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owner = owner
	s.repo = repo
	s.disk = diskcache.New(s.cacheDir, owner, repo)
	s.cache = make(map[Key][]*client.Entity)
	s.etags = make(map[Key]string)
	s.gen++
}

// MoveEntity migrates an entity from one state partition to the other
// without refetching either: removed by id from the origin, inserted
// at the head of the destination. Both partition sections are held,
// in a fixed order, so a concurrent refresh cannot clobber the patch.
func (s *Store) MoveEntity(e *client.Entity, from, to Key) {
	first, second := from, to
	if keyIndex(second) < keyIndex(first) {
		first, second = second, first
	}
	fl, sl := s.keyLock(first), s.keyLock(second)
	fl.Lock()
	defer fl.Unlock()
	if sl != fl {
		sl.Lock()
		defer sl.Unlock()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	origin := s.cache[from]
	kept := make([]*client.Entity, 0, len(origin))
	for _, item := range origin {
		if item.ID != e.ID {
			kept = append(kept, item)
		}
	}
	s.cache[from] = kept
	s.cache[to] = append([]*client.Entity{e}, s.cache[to]...)
}

// LastRefresh returns the persisted completion time of the last full
// refresh for the current repository, or the zero time.
func (s *Store) LastRefresh() time.Time {
	s.mu.Lock()
	disk := s.disk
	s.mu.Unlock()

	var t time.Time
	disk.Load("last-refresh.json", &t)
	return t
}

// SetLastRefresh persists the completion time of a full refresh.
func (s *Store) SetLastRefresh(t time.Time) {
	s.mu.Lock()
	disk := s.disk
	s.mu.Unlock()
	disk.Save("last-refresh.json", t)
}
