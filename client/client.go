// Package client wraps the GitHub REST API for the sync layer. It
// issues conditional requests with per-call If-None-Match headers,
// folds the rate-limit response headers into every result, and trips
// the shared limiter when the quota runs out.
package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/go-github/v60/github"
	"golang.org/x/oauth2"

	"github.com/krailo/ghsync/ratelimit"
)

// PageMeta describes the outcome of one request beyond its payload.
type PageMeta struct {
	// ETag is the validator returned with the response, if any.
	ETag string
	// NotModified is set on a 304 response to a conditional request.
	NotModified bool
	// RateLimited is set when the response reported an exhausted
	// quota; the shared limiter has been tripped.
	RateLimited bool
}

// Client talks to the GitHub v3 API for a single bearer token.
type Client struct {
	gh      *github.Client
	limiter *ratelimit.Limiter
}

// New creates a client authenticating with token.
func New(ctx context.Context, token string, limiter *ratelimit.Limiter) *Client {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)
	return WithGithubClient(github.NewClient(tc), limiter)
}

// WithGithubClient wraps an existing GitHub client. Tests use it to
// point at an httptest server via BaseURL.
func WithGithubClient(gh *github.Client, limiter *ratelimit.Limiter) *Client {
	return &Client{gh: gh, limiter: limiter}
}

// do runs the request, decodes the payload into v, and reduces the
// rate-limit and conditional-request outcomes into a PageMeta. The
// remaining-quota check comes first: an exhausted quota is a
// throttling state, not an error, regardless of the status code.
func (c *Client) do(ctx context.Context, req *http.Request, v interface{}, label string) (*PageMeta, error) {
	meta := &PageMeta{}
	resp, err := c.gh.Do(ctx, req, v)
	if resp != nil {
		meta.ETag = resp.Header.Get("ETag")
		if resp.Rate.Remaining == 0 {
			c.limiter.Trip(resp.Rate.Reset.Unix(), label)
			meta.RateLimited = true
			return meta, nil
		}
		if resp.StatusCode == http.StatusNotModified {
			meta.NotModified = true
			return meta, nil
		}
	}
	if err != nil {
		return meta, err
	}
	return meta, nil
}

// ListIssues fetches one page of the issues list endpoint, which
// serves issues and pull requests interleaved. A non-empty etag is
// sent as If-None-Match; callers only pass one when pagination is
// knowably unnecessary.
func (c *Client) ListIssues(ctx context.Context, owner, repo, state string, page, perPage int, etag string) ([]*Entity, *PageMeta, error) {
	u := fmt.Sprintf("repos/%s/%s/issues?state=%s&per_page=%d&page=%d", owner, repo, state, perPage, page)
	req, err := c.gh.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, nil, err
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	var items []*Entity
	meta, err := c.do(ctx, req, &items, "issues")
	if err != nil {
		return nil, meta, fmt.Errorf("list %s issues page %d: %v", state, page, err)
	}
	return items, meta, nil
}

// GetIssue fetches a single entity by number. Returns nil when the
// quota is exhausted.
func (c *Client) GetIssue(ctx context.Context, owner, repo string, number int) (*Entity, error) {
	u := fmt.Sprintf("repos/%s/%s/issues/%d", owner, repo, number)
	req, err := c.gh.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	var e Entity
	meta, err := c.do(ctx, req, &e, "issues")
	if err != nil {
		return nil, fmt.Errorf("get issue #%d: %v", number, err)
	}
	if meta.RateLimited {
		return nil, nil
	}
	return &e, nil
}

// GetPull fetches the pull-only fields for one entity. Returns nil
// details when the quota is exhausted; hydration is best-effort.
func (c *Client) GetPull(ctx context.Context, owner, repo string, number int) (*PullDetails, error) {
	u := fmt.Sprintf("repos/%s/%s/pulls/%d", owner, repo, number)
	req, err := c.gh.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	var d PullDetails
	meta, err := c.do(ctx, req, &d, "pulls")
	if err != nil {
		return nil, fmt.Errorf("get pull #%d: %v", number, err)
	}
	if meta.RateLimited {
		return nil, nil
	}
	return &d, nil
}

// ListComments fetches the comments for one entity: issue comments
// for issues, review comments when pull is set.
func (c *Client) ListComments(ctx context.Context, owner, repo string, pull bool, number int, etag string) ([]*Comment, *PageMeta, error) {
	resource := "issues"
	if pull {
		resource = "pulls"
	}
	u := fmt.Sprintf("repos/%s/%s/%s/%d/comments", owner, repo, resource, number)
	req, err := c.gh.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, nil, err
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	var items []*Comment
	meta, err := c.do(ctx, req, &items, "comments")
	if err != nil {
		return nil, meta, fmt.Errorf("list comments for %s #%d: %v", resource, number, err)
	}
	return items, meta, nil
}

type stateChange struct {
	State       string `json:"state"`
	StateReason string `json:"state_reason,omitempty"`
}

// EditIssueState PATCHes the entity's state and state_reason. Unlike
// the read paths this surfaces failures: the returned error carries
// the server's message for the user-visible notification.
func (c *Client) EditIssueState(ctx context.Context, owner, repo string, number int, state, reason string) (*Entity, error) {
	u := fmt.Sprintf("repos/%s/%s/issues/%d", owner, repo, number)
	req, err := c.gh.NewRequest(http.MethodPatch, u, &stateChange{State: state, StateReason: reason})
	if err != nil {
		return nil, err
	}

	var updated Entity
	if _, err := c.gh.Do(ctx, req, &updated); err != nil {
		if ghErr, ok := err.(*github.ErrorResponse); ok && ghErr.Message != "" {
			return nil, fmt.Errorf("update issue #%d: %s", number, ghErr.Message)
		}
		return nil, fmt.Errorf("update issue #%d: %v", number, err)
	}
	return &updated, nil
}
