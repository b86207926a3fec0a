package recurrence

import (
	"context"
	"errors"
	"time"

	"github.com/AzielCF/az-post/domains/post"
	"github.com/AzielCF/az-post/pkg/timeutils"
)

var (
	ErrRuleNotFound = errors.New("recurrence rule not found")
	// ErrVersionConflict signals a lost optimistic-concurrency write on the
	// rule; the caller re-reads and retries.
	ErrVersionConflict = errors.New("recurrence rule was modified concurrently")
)

// Rule is the per-user recurrence configuration. NextRunAt caches the last
// computed occurrence; it only moves forward, one recurrence step per
// successful scheduling action, guarded by Version.
type Rule struct {
	ID         string              `json:"id"`
	UserID     string              `json:"user_id"`
	Frequency  timeutils.Frequency `json:"frequency"`
	TimeOfDay  string              `json:"time_of_day"`
	DayOfWeek  int                 `json:"day_of_week"`
	DayOfMonth int                 `json:"day_of_month"`
	Timezone   string              `json:"timezone"`
	NextRunAt  time.Time           `json:"next_run_at"`
	Version    int64               `json:"version"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// Recurrence adapts the rule to the pure calculator input.
func (r Rule) Recurrence() timeutils.Recurrence {
	return timeutils.Recurrence{
		Frequency:  r.Frequency,
		TimeOfDay:  r.TimeOfDay,
		DayOfWeek:  r.DayOfWeek,
		DayOfMonth: r.DayOfMonth,
		Timezone:   r.Timezone,
	}
}

type UpdateRuleRequest struct {
	Frequency  timeutils.Frequency `json:"frequency"`
	TimeOfDay  string              `json:"time_of_day"`
	DayOfWeek  *int                `json:"day_of_week"`
	DayOfMonth *int                `json:"day_of_month"`
	Timezone   string              `json:"timezone"`
}

type ScheduleContentRequest struct {
	UserID    string          `json:"user_id"`
	ContentID string          `json:"content_id"`
	Platforms []post.Platform `json:"platforms"`
}

// ScheduleContentResponse reports the ledger rows created for one scheduling
// action and the rule state after its occurrence was consumed.
type ScheduleContentResponse struct {
	Posts []post.ScheduledPost `json:"posts"`
	Rule  Rule                 `json:"rule"`
}

type IScheduleUsecase interface {
	GetRule(ctx context.Context, userID string) (Rule, error)
	UpdateRule(ctx context.Context, userID string, request UpdateRuleRequest) (Rule, error)
	ScheduleContent(ctx context.Context, request ScheduleContentRequest) (ScheduleContentResponse, error)
}
