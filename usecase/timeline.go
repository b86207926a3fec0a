package usecase

import (
	"context"
	"time"

	domainPost "github.com/AzielCF/az-post/domains/post"
	pkgError "github.com/AzielCF/az-post/pkg/error"
	"github.com/AzielCF/az-post/pkg/timeutils"
	"github.com/AzielCF/az-post/repository"
	"github.com/sirupsen/logrus"
)

type serviceTimeline struct {
	ledger repository.ILedgerRepository
}

func NewTimelineService(ledger repository.ILedgerRepository) domainPost.ITimelineUsecase {
	return &serviceTimeline{ledger: ledger}
}

func (service *serviceTimeline) List(ctx context.Context, userID string) ([]domainPost.ScheduledPost, error) {
	return service.ledger.ListPosts(ctx, userID)
}

func (service *serviceTimeline) Timeline(ctx context.Context, userID string, now time.Time) (domainPost.TimelineBuckets, error) {
	posts, err := service.ledger.ListPosts(ctx, userID)
	if err != nil {
		return domainPost.TimelineBuckets{}, err
	}
	return BucketPosts(posts, now), nil
}

// Cancel removes a pending post from the ledger. Posts already posted or
// failed stay on record.
func (service *serviceTimeline) Cancel(ctx context.Context, userID, id string) error {
	p, err := service.ledger.GetPost(ctx, id)
	if err != nil {
		return err
	}
	if p.UserID != userID {
		return domainPost.ErrPostNotFound
	}
	if p.Status != domainPost.StatusPending {
		return pkgError.ConflictError("only pending posts can be cancelled.")
	}
	return service.ledger.DeletePost(ctx, id)
}

// BucketPosts partitions posts into display buckets. Each post is classified
// in its own timezone, first match wins: past, today, tomorrow, this week
// (strictly before now plus seven days on the post's local clock), later.
// A post whose zone no longer resolves is classified in UTC rather than
// dropped from the timeline.
func BucketPosts(posts []domainPost.ScheduledPost, now time.Time) domainPost.TimelineBuckets {
	var buckets domainPost.TimelineBuckets

	for _, p := range posts {
		loc, err := timeutils.ResolveZone(p.Timezone)
		if err != nil {
			logrus.Warnf("[TIMELINE] Post %s has unresolvable timezone %q, using UTC", p.ID, p.Timezone)
			loc = time.UTC
		}

		days := timeutils.LocalDaysBetween(now, p.ScheduledAt, loc)
		switch {
		case days < 0:
			buckets.Past = append(buckets.Past, p)
		case days == 0:
			buckets.Today = append(buckets.Today, p)
		case days == 1:
			buckets.Tomorrow = append(buckets.Tomorrow, p)
		case p.ScheduledAt.Before(weekHorizon(now, loc)):
			buckets.ThisWeek = append(buckets.ThisWeek, p)
		default:
			buckets.Later = append(buckets.Later, p)
		}
	}

	return buckets
}

// weekHorizon is now plus seven days advanced on the wall clock of loc, so a
// DST transition inside the window does not shift the boundary.
func weekHorizon(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day()+7,
		local.Hour(), local.Minute(), local.Second(), local.Nanosecond(), loc)
}
