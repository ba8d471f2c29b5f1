package tree_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-github/v60/github"
	"github.com/stretchr/testify/suite"

	"github.com/krailo/ghsync/client"
	"github.com/krailo/ghsync/config"
	"github.com/krailo/ghsync/ratelimit"
	"github.com/krailo/ghsync/store"
	"github.com/krailo/ghsync/tree"
)

const baseURLPath = "/api-v3"

type ProviderSuite struct {
	suite.Suite
	mux      *http.ServeMux
	server   *httptest.Server
	store    *store.Store
	requests int64
}

func TestProviderSuite(t *testing.T) {
	suite.Run(t, new(ProviderSuite))
}

func (s *ProviderSuite) SetupTest() {
	s.mux = http.NewServeMux()
	s.requests = 0

	apiHandler := http.NewServeMux()
	apiHandler.Handle(baseURLPath+"/", http.StripPrefix(baseURLPath, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&s.requests, 1)
		s.mux.ServeHTTP(w, r)
	})))

	s.server = httptest.NewServer(apiHandler)

	gh := github.NewClient(nil)
	u, _ := url.Parse(s.server.URL + baseURLPath + "/")
	gh.BaseURL = u
	gh.UploadURL = u

	cfg := &config.Config{
		Token:          "t",
		Owner:          "o",
		Repo:           "r",
		CacheDir:       s.T().TempDir(),
		RefreshMinutes: 5,
		ItemsPerPage:   25,
		MaxRecentItems: 25,
	}

	limiter := ratelimit.New()
	s.store = store.New(cfg, client.WithGithubClient(gh, limiter), limiter)
}

func (s *ProviderSuite) TearDownTest() {
	s.server.Close()
}

func (s *ProviderSuite) requestCount() int64 {
	return atomic.LoadInt64(&s.requests)
}

func rateHeaders(w http.ResponseWriter) {
	w.Header().Set("X-RateLimit-Limit", "5000")
	w.Header().Set("X-RateLimit-Remaining", "4999")
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10))
}

func respond(s *ProviderSuite, v interface{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rateHeaders(w)
		s.Require().NoError(json.NewEncoder(w).Encode(v))
	}
}

func issue(id int64, number int, updated time.Time) *client.Entity {
	return &client.Entity{
		ID:        id,
		Number:    number,
		Title:     "issue " + strconv.Itoa(number),
		State:     "open",
		CreatedAt: updated.Add(-time.Hour),
		UpdatedAt: updated,
	}
}

func pull(id int64, number int, updated time.Time) *client.Entity {
	e := issue(id, number, updated)
	e.PullRequest = &client.PullRef{URL: "https://example.com/pulls/" + strconv.Itoa(number)}
	return e
}

func (s *ProviderSuite) TestRefreshMaterializesIssues() {
	updated := time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)
	data := []*client.Entity{
		issue(1, 101, updated),
		pull(2, 102, updated),
		issue(3, 103, updated),
	}

	p := tree.NewProvider(store.Key{Kind: store.KindIssue, State: store.StateOpen})
	s.True(p.Refresh(context.Background(), s.store, data, false))

	s.Equal(2, p.Len())
	s.Equal(int64(1), p.Roots()[0].Entity.ID)
	s.Equal(int64(3), p.Roots()[1].Entity.ID)
	s.Nil(p.ByID(2), "pull records do not belong in the issue set")
}

func (s *ProviderSuite) TestShouldRebuildWatermark() {
	updated := time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)
	data := []*client.Entity{issue(1, 101, updated), issue(2, 102, updated)}

	p := tree.NewProvider(store.Key{Kind: store.KindIssue, State: store.StateOpen})
	s.True(p.ShouldRebuild(data, false), "uninitialized provider always rebuilds")

	s.True(p.Refresh(context.Background(), s.store, data, false))
	s.False(p.Refresh(context.Background(), s.store, data, false), "identical data is a no-op")

	reordered := []*client.Entity{issue(2, 102, updated), issue(1, 101, updated)}
	s.False(p.ShouldRebuild(reordered, false), "order alone is not a change")

	moved := []*client.Entity{issue(1, 101, updated), issue(2, 102, updated.Add(time.Minute))}
	s.True(p.ShouldRebuild(moved, false), "watermark moved")

	replaced := []*client.Entity{issue(1, 101, updated), issue(9, 109, updated)}
	s.True(p.ShouldRebuild(replaced, false), "new id at same count")

	shorter := []*client.Entity{issue(1, 101, updated)}
	s.True(p.ShouldRebuild(shorter, false), "count changed")

	s.True(p.ShouldRebuild(data, true), "forced rebuild")
}

func (s *ProviderSuite) TestRefreshKeepsNodesOnNoChange() {
	updated := time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)
	data := []*client.Entity{issue(1, 101, updated)}

	p := tree.NewProvider(store.Key{Kind: store.KindIssue, State: store.StateOpen})
	s.True(p.Refresh(context.Background(), s.store, data, false))
	node := p.ByID(1)
	s.NotNil(node)

	s.False(p.Refresh(context.Background(), s.store, []*client.Entity{issue(1, 101, updated)}, false))
	s.Same(node, p.ByID(1), "unchanged data keeps node identity")
}

func (s *ProviderSuite) TestRefreshHydratesComments() {
	updated := time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)
	e := issue(1, 101, updated)
	e.Comments = 2

	comments := []*client.Comment{
		{ID: 10, Body: "first"},
		{ID: 11, Body: "second"},
	}
	s.mux.HandleFunc("/repos/o/r/issues/101/comments", respond(s, comments))

	p := tree.NewProvider(store.Key{Kind: store.KindIssue, State: store.StateOpen})
	s.True(p.Refresh(context.Background(), s.store, []*client.Entity{e}, false))

	node := p.ByID(1)
	s.Require().NotNil(node)
	s.Require().Len(node.Comments, 2)
	s.Equal("first", node.Comments[0].Body)
}

func (s *ProviderSuite) TestRefreshSkipsCommentFetchAtZeroCount() {
	updated := time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)
	e := issue(1, 101, updated)

	p := tree.NewProvider(store.Key{Kind: store.KindIssue, State: store.StateOpen})
	s.True(p.Refresh(context.Background(), s.store, []*client.Entity{e}, false))

	s.Empty(p.ByID(1).Comments)
	s.Equal(int64(0), s.requestCount(), "zero-comment entities never hit the network")
}

func (s *ProviderSuite) TestRefreshHydratesPulls() {
	updated := time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)
	e := pull(2, 102, updated)
	e.Comments = 1
	e.Title = "add feature"

	details := &client.PullDetails{
		Draft:          true,
		ReviewComments: 1,
		Head:           &client.Branch{Ref: "feature"},
		Base:           &client.Branch{Ref: "main"},
	}
	s.mux.HandleFunc("/repos/o/r/pulls/102", respond(s, details))
	s.mux.HandleFunc("/repos/o/r/issues/102/comments", respond(s, []*client.Comment{{ID: 20, Body: "issue comment"}}))
	s.mux.HandleFunc("/repos/o/r/pulls/102/comments", respond(s, []*client.Comment{{ID: 21, Body: "review comment"}}))

	p := tree.NewProvider(store.Key{Kind: store.KindPull, State: store.StateOpen})
	s.True(p.Refresh(context.Background(), s.store, []*client.Entity{e}, false))

	node := p.ByID(2)
	s.Require().NotNil(node)
	s.True(node.Entity.Draft)
	s.Equal("feature", node.Entity.Head.Ref)
	s.Equal(1, node.Entity.Comments, "list comment count survives the merge")
	s.Require().Len(node.Comments, 2)
	s.Equal("issue comment", node.Comments[0].Body)
	s.Equal("review comment", node.Comments[1].Body)
}

func (s *ProviderSuite) TestRefreshSurvivesPullHydrationFailure() {
	updated := time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)
	e := pull(2, 102, updated)
	e.Title = "add feature"

	s.mux.HandleFunc("/repos/o/r/pulls/102", func(w http.ResponseWriter, r *http.Request) {
		rateHeaders(w)
		w.WriteHeader(http.StatusInternalServerError)
	})

	p := tree.NewProvider(store.Key{Kind: store.KindPull, State: store.StateOpen})
	s.True(p.Refresh(context.Background(), s.store, []*client.Entity{e}, false))

	node := p.ByID(2)
	s.Require().NotNil(node)
	s.Equal("add feature", node.Entity.Title, "list record survives a failed detail fetch")
}

func (s *ProviderSuite) TestRemoveAndInsertFront() {
	updated := time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)
	data := []*client.Entity{issue(1, 101, updated), issue(2, 102, updated)}

	p := tree.NewProvider(store.Key{Kind: store.KindIssue, State: store.StateOpen})
	s.True(p.Refresh(context.Background(), s.store, data, false))

	node := p.Remove(1)
	s.Require().NotNil(node)
	s.Equal(1, p.Len())
	s.Nil(p.ByID(1))
	s.Nil(p.Remove(1), "double remove is a no-op")

	other := tree.NewProvider(store.Key{Kind: store.KindIssue, State: store.StateClosed})
	s.True(other.Refresh(context.Background(), s.store, []*client.Entity{issue(5, 105, updated)}, false))
	other.InsertFront(node)

	s.Equal(2, other.Len())
	s.Equal(int64(1), other.Roots()[0].Entity.ID, "migrated entity lands at the head")
	s.Same(node, other.ByID(1))
}

func (s *ProviderSuite) TestReset() {
	updated := time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)
	data := []*client.Entity{issue(1, 101, updated)}

	p := tree.NewProvider(store.Key{Kind: store.KindIssue, State: store.StateOpen})
	s.True(p.Refresh(context.Background(), s.store, data, false))

	p.Reset()
	s.Equal(0, p.Len())
	s.Nil(p.ByID(1))
	s.True(p.ShouldRebuild(nil, false), "reset provider rebuilds on next refresh")
}
