// Package tree maintains the materialized entity sets consumed by the
// sidebar views: one provider per partition, each holding root nodes
// indexed by entity id. Providers rebuild only when change detection
// says the fetched data actually differs, which keeps comment
// hydration and node identity stable across no-op refreshes.
package tree

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/krailo/ghsync/client"
	"github.com/krailo/ghsync/store"
)

// Node is one materialized root: the entity snapshot plus the comment
// data hydrated for it.
type Node struct {
	Entity   *client.Entity
	Comments []*client.Comment
}

// Provider owns the materialized set for one partition.
type Provider struct {
	key         store.Key
	roots       []*Node
	byID        map[int64]*Node
	initialized bool
}

// NewProvider creates an empty provider for key.
func NewProvider(key store.Key) *Provider {
	return &Provider{
		key:  key,
		byID: make(map[int64]*Node),
	}
}

// Key returns the partition this provider materializes.
func (p *Provider) Key() store.Key {
	return p.key
}

// Roots returns the materialized nodes in order.
func (p *Provider) Roots() []*Node {
	return p.roots
}

// Len returns the number of materialized roots.
func (p *Provider) Len() int {
	return len(p.roots)
}

// ByID returns the node holding the entity with the given id, or nil.
func (p *Provider) ByID(id int64) *Node {
	return p.byID[id]
}

// filter keeps the records belonging to this provider's kind; the
// issues list endpoint serves issues and pulls interleaved.
func (p *Provider) filter(data []*client.Entity) []*client.Entity {
	wantPull := p.key.Kind == store.KindPull
	var out []*client.Entity
	for _, e := range data {
		if e.IsPull() == wantPull {
			out = append(out, e)
		}
	}
	return out
}

// ShouldRebuild reports whether fetched differs from the materialized
// set: forced, never initialized, a different count, or any entity
// whose updated_at watermark moved or whose id is new. Reordering
// alone is not a change. The index is not mutated.
func (p *Provider) ShouldRebuild(fetched []*client.Entity, force bool) bool {
	if force || !p.initialized {
		return true
	}
	if len(fetched) != len(p.roots) {
		return true
	}
	for _, e := range fetched {
		prev, ok := p.byID[e.ID]
		if !ok || !prev.Entity.UpdatedAt.Equal(e.UpdatedAt) {
			return true
		}
	}
	return false
}

// Refresh runs change detection against data and rebuilds the
// materialized set when something changed, re-hydrating pull fields
// and comments for every entity. Returns true when a rebuild
// happened; on false the existing nodes are kept untouched.
func (p *Provider) Refresh(ctx context.Context, st *store.Store, data []*client.Entity, force bool) bool {
	entities := p.filter(data)
	if !p.ShouldRebuild(entities, force) {
		logrus.Debugf("%s: no updates, skipping rebuild", p.key)
		return false
	}

	p.initialized = true
	p.byID = make(map[int64]*Node, len(entities))
	roots := make([]*Node, 0, len(entities))

	for _, e := range entities {
		if p.key.Kind == store.KindPull {
			p.hydratePull(ctx, st, e)
		}

		node := &Node{
			Entity:   e,
			Comments: p.hydrateComments(ctx, st, e),
		}
		p.byID[e.ID] = node
		roots = append(roots, node)
	}

	p.roots = roots
	logrus.Debugf("%s: rebuilt %d nodes", p.key, len(roots))
	return true
}

// hydratePull merges the pull-only fields into the list record. The
// list payload's comment count survives the merge; review comments
// are tracked separately.
func (p *Provider) hydratePull(ctx context.Context, st *store.Store, e *client.Entity) {
	d, err := st.PullDetails(ctx, e.Number)
	if err != nil {
		logrus.Warnf("%s: pull #%d hydration failed: %v", p.key, e.Number, err)
		return
	}
	if d == nil {
		return
	}
	e.ApplyPull(d)
}

func (p *Provider) hydrateComments(ctx context.Context, st *store.Store, e *client.Entity) []*client.Comment {
	var comments []*client.Comment
	if e.Comments > 0 {
		comments = st.CommentsFor(ctx, store.KindIssue, e.Number, e.Comments)
	}
	if p.key.Kind == store.KindPull && e.ReviewComments > 0 {
		comments = append(comments, st.CommentsFor(ctx, store.KindPull, e.Number, e.ReviewComments)...)
	}
	return comments
}

// Remove drops the node with the given id from the set and returns
// it, or nil when absent.
func (p *Provider) Remove(id int64) *Node {
	node, ok := p.byID[id]
	if !ok {
		return nil
	}
	delete(p.byID, id)
	for i, n := range p.roots {
		if n == node {
			p.roots = append(p.roots[:i], p.roots[i+1:]...)
			break
		}
	}
	return node
}

// InsertFront puts a node at the head of the set, the position a
// freshly mutated entity takes in its destination partition.
func (p *Provider) InsertFront(node *Node) {
	p.byID[node.Entity.ID] = node
	p.roots = append([]*Node{node}, p.roots...)
}

// Reset clears all materialized state, as on a repository switch.
func (p *Provider) Reset() {
	p.roots = nil
	p.byID = make(map[int64]*Node)
	p.initialized = false
}
