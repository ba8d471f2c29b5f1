package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/krailo/ghsync/store"
	"github.com/krailo/ghsync/tree"
)

// statePollDelay is the wait between polls in WaitForEntityState.
// Overridden in tests.
var statePollDelay = time.Second

// locate finds the node holding id and the partition it lives in.
func (s *Syncer) locate(id int64) (*tree.Node, store.Key, bool) {
	for _, key := range store.Keys() {
		if node := s.Provider(key).ByID(id); node != nil {
			return node, key, true
		}
	}
	return nil, store.Key{}, false
}

// UpdateEntityState closes or reopens an entity. The remote PATCH runs
// first; on success the local copy is patched in place and moved to
// the head of the destination partition, so the views reflect the
// change without waiting for the next refresh cycle.
func (s *Syncer) UpdateEntityState(ctx context.Context, id int64, newState, reason string) error {
	node, from, ok := s.locate(id)
	if !ok {
		return fmt.Errorf("no entity with id %d", id)
	}
	e := node.Entity
	if e.State == newState {
		return nil
	}

	if reason == "" {
		if newState == "open" {
			reason = "reopened"
		} else {
			reason = "completed"
		}
	}

	owner, repo := s.Repo()
	if _, err := s.cl.EditIssueState(ctx, owner, repo, e.Number, newState, reason); err != nil {
		return err
	}

	now := time.Now().UTC()
	e.State = newState
	e.StateReason = reason
	e.UpdatedAt = now
	if newState == "closed" {
		e.ClosedAt = &now
	} else {
		e.ClosedAt = nil
	}

	to := store.Key{Kind: from.Kind, State: store.StateClosed}
	if newState == "open" {
		to.State = store.StateOpen
	}

	s.store.MoveEntity(e, from, to)
	s.Provider(from).Remove(id)
	s.Provider(to).InsertFront(node)

	logrus.WithFields(logrus.Fields{
		"number": e.Number,
		"state":  newState,
		"reason": reason,
	}).Info("updated entity state")
	return nil
}

// WaitForEntityState polls the API until the entity reports the
// desired state, up to maxRetries attempts. Used after a mutation when
// the caller needs read-your-writes against an eventually consistent
// endpoint.
func (s *Syncer) WaitForEntityState(ctx context.Context, number int, desired string, maxRetries int) bool {
	owner, repo := s.Repo()
	for i := 0; i < maxRetries; i++ {
		e, err := s.cl.GetIssue(ctx, owner, repo, number)
		if err == nil && e != nil && e.State == desired {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(statePollDelay):
		}
	}
	return false
}
