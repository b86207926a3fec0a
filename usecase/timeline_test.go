package usecase

import (
	"context"
	"testing"
	"time"

	domainPost "github.com/AzielCF/az-post/domains/post"
	pkgError "github.com/AzielCF/az-post/pkg/error"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tlPost(id, tz string, scheduledAt time.Time) domainPost.ScheduledPost {
	return domainPost.ScheduledPost{
		ID:          id,
		UserID:      "u1",
		ContentID:   uuid.NewString(),
		Platform:    domainPost.PlatformLinkedIn,
		ScheduledAt: scheduledAt.UTC(),
		Timezone:    tz,
		Status:      domainPost.StatusPending,
	}
}

func bucketIDs(posts []domainPost.ScheduledPost) []string {
	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	return ids
}

func TestBucketPosts_ClassifiesInPostTimezone(t *testing.T) {
	// 2026-03-10 22:00 UTC: already March 11 in Tokyo, still March 10 in New York.
	now := time.Date(2026, 3, 10, 22, 0, 0, 0, time.UTC)
	tokyo, _ := time.LoadLocation("Asia/Tokyo")
	newYork, _ := time.LoadLocation("America/New_York")

	posts := []domainPost.ScheduledPost{
		tlPost("past", "UTC", now.Add(-26*time.Hour)),
		tlPost("today-utc", "UTC", time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC)),
		// 2026-03-11 08:00 Tokyo is "today" there even though it is 10 Mar in UTC.
		tlPost("today-tokyo", "Asia/Tokyo", time.Date(2026, 3, 11, 8, 0, 0, 0, tokyo)),
		// 2026-03-11 09:00 New York is tomorrow on the NY calendar.
		tlPost("tomorrow-ny", "America/New_York", time.Date(2026, 3, 11, 9, 0, 0, 0, newYork)),
		tlPost("week", "UTC", time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)),
		tlPost("later", "UTC", time.Date(2026, 3, 25, 9, 0, 0, 0, time.UTC)),
	}

	buckets := BucketPosts(posts, now)

	assert.Equal(t, []string{"past"}, bucketIDs(buckets.Past))
	assert.ElementsMatch(t, []string{"today-utc", "today-tokyo"}, bucketIDs(buckets.Today))
	assert.Equal(t, []string{"tomorrow-ny"}, bucketIDs(buckets.Tomorrow))
	assert.Equal(t, []string{"week"}, bucketIDs(buckets.ThisWeek))
	assert.Equal(t, []string{"later"}, bucketIDs(buckets.Later))
}

func TestBucketPosts_WeekBoundaryIsExclusive(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	justInside := tlPost("inside", "UTC", time.Date(2026, 3, 17, 11, 59, 59, 0, time.UTC))
	exactlyWeek := tlPost("boundary", "UTC", time.Date(2026, 3, 17, 12, 0, 0, 0, time.UTC))

	buckets := BucketPosts([]domainPost.ScheduledPost{justInside, exactlyWeek}, now)

	assert.Equal(t, []string{"inside"}, bucketIDs(buckets.ThisWeek))
	assert.Equal(t, []string{"boundary"}, bucketIDs(buckets.Later))
}

func TestBucketPosts_BadTimezoneFallsBackToUTC(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	p := tlPost("odd", "Mars/Olympus", time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC))

	buckets := BucketPosts([]domainPost.ScheduledPost{p}, now)

	require.Len(t, buckets.Today, 1)
	assert.Equal(t, "odd", buckets.Today[0].ID)
}

func TestCancel_OnlyPendingAndOwnPosts(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	service := NewTimelineService(repo)

	pending := tlPost("", "UTC", time.Now().Add(time.Hour))
	pending.ID = uuid.NewString()
	require.NoError(t, repo.CreatePost(ctx, pending))

	posted := tlPost("", "UTC", time.Now().Add(-time.Hour))
	posted.ID = uuid.NewString()
	require.NoError(t, repo.CreatePost(ctx, posted))
	require.NoError(t, repo.MarkPosted(ctx, posted.ID, "r1"))

	require.ErrorIs(t, service.Cancel(ctx, "someone-else", pending.ID), domainPost.ErrPostNotFound)

	err := service.Cancel(ctx, "u1", posted.ID)
	require.Error(t, err)
	var generic pkgError.GenericError
	require.ErrorAs(t, err, &generic)
	assert.Equal(t, 409, generic.StatusCode())

	require.NoError(t, service.Cancel(ctx, "u1", pending.ID))
	_, err = repo.GetPost(ctx, pending.ID)
	require.ErrorIs(t, err, domainPost.ErrPostNotFound)
}
