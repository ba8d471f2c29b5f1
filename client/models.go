package client

import "time"

type (
	// Entity is one raw issue or pull request record as returned by
	// the list endpoint. Records are immutable snapshots except for
	// the local patch applied after a successful state change. ID is
	// the identity key across refreshes; UpdatedAt is the
	// change-detection watermark.
	Entity struct {
		ID             int64      `json:"id"`
		Number         int        `json:"number"`
		Title          string     `json:"title"`
		Body           string     `json:"body,omitempty"`
		State          string     `json:"state"`
		StateReason    string     `json:"state_reason,omitempty"`
		HTMLURL        string     `json:"html_url,omitempty"`
		Comments       int        `json:"comments"`
		ReviewComments int        `json:"review_comments,omitempty"`
		Draft          bool       `json:"draft,omitempty"`
		User           *User      `json:"user,omitempty"`
		Assignee       *User      `json:"assignee,omitempty"`
		Assignees      []User     `json:"assignees,omitempty"`
		Milestone      *Milestone `json:"milestone,omitempty"`
		Labels         []Label    `json:"labels,omitempty"`
		PullRequest    *PullRef   `json:"pull_request,omitempty"`
		Head           *Branch    `json:"head,omitempty"`
		Base           *Branch    `json:"base,omitempty"`
		CreatedAt      time.Time  `json:"created_at"`
		UpdatedAt      time.Time  `json:"updated_at"`
		ClosedAt       *time.Time `json:"closed_at,omitempty"`
		MergedAt       *time.Time `json:"merged_at,omitempty"`
	}

	// PullRef marks list records that are pull requests; the issues
	// list endpoint returns both kinds interleaved.
	PullRef struct {
		URL string `json:"url,omitempty"`
	}

	// PullDetails carries the pull-only fields served by the pulls
	// endpoint, merged into the list record during hydration.
	PullDetails struct {
		Draft          bool       `json:"draft"`
		MergedAt       *time.Time `json:"merged_at,omitempty"`
		ReviewComments int        `json:"review_comments"`
		Head           *Branch    `json:"head,omitempty"`
		Base           *Branch    `json:"base,omitempty"`
	}

	// Branch identifies one side of a pull request.
	Branch struct {
		Ref string `json:"ref"`
		SHA string `json:"sha,omitempty"`
	}

	// Comment is one issue or review comment.
	Comment struct {
		ID        int64     `json:"id"`
		Body      string    `json:"body"`
		HTMLURL   string    `json:"html_url,omitempty"`
		User      *User     `json:"user,omitempty"`
		CreatedAt time.Time `json:"created_at"`
		UpdatedAt time.Time `json:"updated_at"`
	}

	// User is the author or assignee of an entity.
	User struct {
		Login string `json:"login"`
		Name  string `json:"name,omitempty"`
	}

	// Label is one issue label.
	Label struct {
		Name        string `json:"name"`
		Color       string `json:"color,omitempty"`
		Description string `json:"description,omitempty"`
	}

	// Milestone is the milestone an entity belongs to.
	Milestone struct {
		Number int    `json:"number,omitempty"`
		Title  string `json:"title"`
	}
)

// IsPull reports whether the list record is a pull request.
func (e *Entity) IsPull() bool {
	return e.PullRequest != nil
}

// ApplyPull merges pull-only fields into the entity. The comment
// count from the list payload is kept; the pulls endpoint reports
// review comments separately.
func (e *Entity) ApplyPull(d *PullDetails) {
	e.Draft = d.Draft
	e.MergedAt = d.MergedAt
	e.ReviewComments = d.ReviewComments
	e.Head = d.Head
	e.Base = d.Base
}
