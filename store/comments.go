package store

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/krailo/ghsync/client"
)

// CommentPayload is the on-disk shape of one entity's comment cache:
// comments-{type}-{number}.json. The count is always len(Data); the
// entity's live comment count is compared against it to decide
// staleness without a network round trip.
type CommentPayload struct {
	ETag string            `json:"etag"`
	Data []*client.Comment `json:"data"`
}

func commentFilename(kind Kind, number int) string {
	return fmt.Sprintf("comments-%s-%d.json", kind, number)
}

// CommentsFor returns the comments for one entity. The entity's own
// comment count acts as a free staleness oracle: when the cached
// count matches expected, the cache is served with no network call at
// all. Failures degrade to whatever is cached; one entity's comments
// never fail a refresh.
func (s *Store) CommentsFor(ctx context.Context, kind Kind, number, expected int) []*client.Comment {
	s.mu.Lock()
	owner, repo, disk := s.owner, s.repo, s.disk
	s.mu.Unlock()

	var cached CommentPayload
	disk.Load(commentFilename(kind, number), &cached)

	if s.limiter.Limited() {
		logrus.Debugf("comments: %s #%d rate-limited, serving %d cached", kind, number, len(cached.Data))
		return cached.Data
	}

	if len(cached.Data) == expected {
		logrus.Debugf("comments: %s #%d cache fresh (%d comments)", kind, number, expected)
		return cached.Data
	}

	logrus.Debugf("comments: %s #%d expected %d, cache has %d, fetching", kind, number, expected, len(cached.Data))

	items, meta, err := s.cl.ListComments(ctx, owner, repo, kind == KindPull, number, cached.ETag)
	if err != nil {
		logrus.Warnf("comments: fetch failed for %s #%d: %v", kind, number, err)
		return cached.Data
	}
	if meta.RateLimited || meta.NotModified {
		return cached.Data
	}

	disk.Save(commentFilename(kind, number), &CommentPayload{ETag: meta.ETag, Data: items})
	return items
}
