package repository

import (
	"context"
	"time"

	"github.com/AzielCF/az-post/domains/content"
	"github.com/AzielCF/az-post/domains/credential"
	"github.com/AzielCF/az-post/domains/post"
	"github.com/AzielCF/az-post/domains/recurrence"
)

// ILedgerRepository is the scheduled-post ledger. Due-ness is always compared
// in UTC; status transitions out of pending are conditional writes so that
// overlapping dispatch cycles cannot double-publish.
type ILedgerRepository interface {
	// CreatePost returns post.ErrDuplicatePending when the content already
	// holds a pending post on the same platform; the constraint lives in the
	// store so concurrent schedulers cannot slip a duplicate past the check.
	CreatePost(ctx context.Context, p post.ScheduledPost) error
	GetPost(ctx context.Context, id string) (post.ScheduledPost, error)
	ListPosts(ctx context.Context, userID string) ([]post.ScheduledPost, error)

	// FindDue returns pending posts with scheduled_at <= now for one user,
	// oldest first. An empty result is the steady state, not an error.
	FindDue(ctx context.Context, userID string, now time.Time) ([]post.ScheduledPost, error)
	// FindDueAll is the cross-user variant used by the periodic cycle.
	FindDueAll(ctx context.Context, now time.Time) ([]post.ScheduledPost, error)

	HasPendingForContent(ctx context.Context, contentID string, platform post.Platform) (bool, error)

	// MarkPosted and MarkFailed only succeed while the post is still pending;
	// a post already claimed by a concurrent cycle yields post.ErrAlreadyHandled.
	MarkPosted(ctx context.Context, id, remotePostID string) error
	MarkFailed(ctx context.Context, id, errorMessage string) error

	DeletePost(ctx context.Context, id string) error
	DeletePendingForContent(ctx context.Context, contentID string) error
}

// IRecurrenceRepository stores one rule per user. UpdateRuleCAS is a
// compare-and-swap on the rule's version; a lost race returns
// recurrence.ErrVersionConflict and the caller re-reads and retries.
type IRecurrenceRepository interface {
	GetRuleByUser(ctx context.Context, userID string) (recurrence.Rule, error)
	CreateRule(ctx context.Context, rule recurrence.Rule) error
	UpdateRuleCAS(ctx context.Context, rule recurrence.Rule) (recurrence.Rule, error)
}

// ICredentialRepository stores platform tokens per user.
type ICredentialRepository interface {
	credential.IStore
	Upsert(ctx context.Context, cred credential.Credential) (credential.Credential, error)
	ListByUser(ctx context.Context, userID string) ([]credential.Credential, error)
	Delete(ctx context.Context, id string) error
}

// IContentRepository stores post drafts.
type IContentRepository interface {
	content.ISource
	CreateContent(ctx context.Context, item content.Item) error
	UpdateContent(ctx context.Context, item content.Item) error
	SetContentStatus(ctx context.Context, id string, status content.Status) error
	ListContent(ctx context.Context, userID string) ([]content.Item, error)
	DeleteContent(ctx context.Context, id string) error
}
