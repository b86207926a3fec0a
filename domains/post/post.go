package post

import (
	"context"
	"errors"
	"time"
)

type Platform string

const (
	PlatformLinkedIn  Platform = "linkedin"
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
)

// AllPlatforms is the closed set of publish targets. Adding a platform means
// extending this slice and registering a publisher for it at boot.
var AllPlatforms = []Platform{PlatformLinkedIn, PlatformFacebook, PlatformInstagram}

func (p Platform) Valid() bool {
	for _, known := range AllPlatforms {
		if p == known {
			return true
		}
	}
	return false
}

type Status string

const (
	StatusPending Status = "pending"
	StatusPosted  Status = "posted"
	StatusFailed  Status = "failed"
)

// MaxErrorMessageLen bounds the platform error detail stored on a failed post.
const MaxErrorMessageLen = 400

var (
	ErrPostNotFound = errors.New("scheduled post not found")
	// ErrAlreadyHandled signals a lost conditional-write race: another cycle
	// moved the post out of pending first. Harmless by design.
	ErrAlreadyHandled = errors.New("post already left pending status")
	ErrDuplicatePending = errors.New("content already has a pending post for this platform")
)

// ScheduledPost is one (content, platform, occurrence) row in the ledger.
// ScheduledAt is always UTC; Timezone is kept only for display grouping.
type ScheduledPost struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	ContentID    string    `json:"content_id"`
	Platform     Platform  `json:"platform"`
	ScheduledAt  time.Time `json:"scheduled_at"`
	Timezone     string    `json:"timezone"`
	Status       Status    `json:"status"`
	RemotePostID string    `json:"remote_post_id,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DueKey materializes the compound secondary-index partition used by the due
// query: equality on "<status>#<userID>" plus a range scan on scheduled_at.
func DueKey(status Status, userID string) string {
	return string(status) + "#" + userID
}

// TimelineBuckets partitions posts for display. Every post lands in exactly
// one bucket, evaluated in its own timezone.
type TimelineBuckets struct {
	Today    []ScheduledPost `json:"today"`
	Tomorrow []ScheduledPost `json:"tomorrow"`
	ThisWeek []ScheduledPost `json:"this_week"`
	Later    []ScheduledPost `json:"later"`
	Past     []ScheduledPost `json:"past"`
}

// TruncateError bounds err detail to MaxErrorMessageLen for ledger storage.
func TruncateError(msg string) string {
	if len(msg) > MaxErrorMessageLen {
		return msg[:MaxErrorMessageLen]
	}
	return msg
}

// CycleResult summarizes one dispatch cycle. Posts skipped because another
// cycle claimed them first count in neither bucket.
type CycleResult struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// IDispatchUsecase drives publication of due posts. An empty userID on
// RunCycle means all users.
type IDispatchUsecase interface {
	RunCycle(ctx context.Context, userID string, now time.Time) (CycleResult, error)
	PostNow(ctx context.Context, id string) (ScheduledPost, error)
}

// ITimelineUsecase serves the ledger read side.
type ITimelineUsecase interface {
	List(ctx context.Context, userID string) ([]ScheduledPost, error)
	Timeline(ctx context.Context, userID string, now time.Time) (TimelineBuckets, error)
	Cancel(ctx context.Context, userID, id string) error
}
