package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/AzielCF/az-post/config"
	domainContent "github.com/AzielCF/az-post/domains/content"
	domainCredential "github.com/AzielCF/az-post/domains/credential"
	domainPost "github.com/AzielCF/az-post/domains/post"
	"github.com/AzielCF/az-post/domains/publisher"
	"github.com/AzielCF/az-post/pkg/dispatchpool"
	"github.com/AzielCF/az-post/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestRepo(t *testing.T) *repository.GormRepository {
	t.Helper()

	dsn := fmt.Sprintf("file:app_%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	repo := repository.NewGormRepository(db)
	require.NoError(t, repo.Init(context.Background()))
	return repo
}

// fakePublisher counts publishes per content body so tests can detect a
// double publish for the same post.
type fakePublisher struct {
	platform domainPost.Platform
	err      error

	mu     sync.Mutex
	bodies map[string]int
}

func newFakePublisher(platform domainPost.Platform, err error) *fakePublisher {
	return &fakePublisher{platform: platform, err: err, bodies: make(map[string]int)}
}

func (f *fakePublisher) Platform() domainPost.Platform { return f.platform }

func (f *fakePublisher) Publish(ctx context.Context, c publisher.Content, cred domainCredential.Credential) (string, error) {
	f.mu.Lock()
	f.bodies[c.Body]++
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return string(f.platform) + "-remote-" + uuid.NewString()[:8], nil
}

func (f *fakePublisher) callsFor(body string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[body]
}

func (f *fakePublisher) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.bodies {
		total += n
	}
	return total
}

type dispatcherFixture struct {
	repo       *repository.GormRepository
	dispatcher *Dispatcher
	pool       *dispatchpool.Pool
	registry   *publisher.Registry
	cfg        config.DispatchConfig
	linkedin   *fakePublisher
	facebook   *fakePublisher
	instagram  *fakePublisher
}

func newFixture(t *testing.T, linkedinErr, facebookErr error) *dispatcherFixture {
	t.Helper()

	repo := newTestRepo(t)
	li := newFakePublisher(domainPost.PlatformLinkedIn, linkedinErr)
	fb := newFakePublisher(domainPost.PlatformFacebook, facebookErr)
	ig := newFakePublisher(domainPost.PlatformInstagram, nil)

	registry, err := publisher.NewRegistry(li, fb, ig)
	require.NoError(t, err)

	pool := dispatchpool.New(4, 64)
	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)
	t.Cleanup(func() {
		cancel()
		pool.Stop()
	})

	cfg := config.DispatchConfig{
		Interval:       time.Minute,
		PublishTimeout: 5 * time.Second,
		CycleDeadline:  30 * time.Second,
	}

	return &dispatcherFixture{
		repo:       repo,
		dispatcher: NewDispatcher(repo, repo, repo, registry, pool, nil, nil, cfg),
		pool:       pool,
		registry:   registry,
		cfg:        cfg,
		linkedin:   li,
		facebook:   fb,
		instagram:  ig,
	}
}

func (f *dispatcherFixture) seedPost(t *testing.T, userID string, platform domainPost.Platform, scheduledAt time.Time, body string) domainPost.ScheduledPost {
	t.Helper()
	ctx := context.Background()

	item := domainContent.Item{
		ID:     uuid.NewString(),
		UserID: userID,
		Title:  "T",
		Body:   body,
		Status: domainContent.StatusScheduled,
	}
	require.NoError(t, f.repo.CreateContent(ctx, item))

	p := domainPost.ScheduledPost{
		ID:          uuid.NewString(),
		UserID:      userID,
		ContentID:   item.ID,
		Platform:    platform,
		ScheduledAt: scheduledAt.UTC(),
		Timezone:    "UTC",
		Status:      domainPost.StatusPending,
	}
	require.NoError(t, f.repo.CreatePost(ctx, p))
	return p
}

func (f *dispatcherFixture) seedCredential(t *testing.T, userID string, platform domainPost.Platform) {
	t.Helper()
	_, err := f.repo.Upsert(context.Background(), domainCredential.Credential{
		UserID:      userID,
		Platform:    platform,
		AccessToken: "tok-" + string(platform),
		AccountRef:  "acct-" + string(platform),
	})
	require.NoError(t, err)
}

func TestRunCycle_OneFailureDoesNotAbortTheRest(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()
	now := time.Now().UTC()

	f.seedCredential(t, "u1", domainPost.PlatformLinkedIn)
	f.seedCredential(t, "u1", domainPost.PlatformFacebook)
	// No Instagram credential: that post must fail, the rest must publish.

	var posts []domainPost.ScheduledPost
	posts = append(posts, f.seedPost(t, "u1", domainPost.PlatformLinkedIn, now.Add(-3*time.Hour), "b1"))
	posts = append(posts, f.seedPost(t, "u1", domainPost.PlatformLinkedIn, now.Add(-2*time.Hour), "b2"))
	noCred := f.seedPost(t, "u1", domainPost.PlatformInstagram, now.Add(-90*time.Minute), "b3")
	posts = append(posts, f.seedPost(t, "u1", domainPost.PlatformFacebook, now.Add(-time.Hour), "b4"))
	posts = append(posts, f.seedPost(t, "u1", domainPost.PlatformLinkedIn, now.Add(-time.Minute), "b5"))

	result, err := f.dispatcher.RunCycle(ctx, "u1", now)
	require.NoError(t, err)
	assert.Equal(t, domainPost.CycleResult{Succeeded: 4, Failed: 1}, result)

	for _, p := range posts {
		got, err := f.repo.GetPost(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, domainPost.StatusPosted, got.Status, "post %s", p.ID)
		assert.NotEmpty(t, got.RemotePostID)
	}

	failedPost, err := f.repo.GetPost(ctx, noCred.ID)
	require.NoError(t, err)
	assert.Equal(t, domainPost.StatusFailed, failedPost.Status)
	assert.Contains(t, failedPost.ErrorMessage, "credential")
	assert.Zero(t, f.instagram.totalCalls(), "publish must not run without a credential")

	// Failed posts are terminal: the next cycle finds nothing to do.
	again, err := f.dispatcher.RunCycle(ctx, "u1", now)
	require.NoError(t, err)
	assert.Equal(t, domainPost.CycleResult{}, again)
}

func TestRunCycle_FuturePostsAreNotSelected(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()
	now := time.Now().UTC()

	f.seedCredential(t, "u1", domainPost.PlatformLinkedIn)
	future := f.seedPost(t, "u1", domainPost.PlatformLinkedIn, now.Add(time.Hour), "later")

	result, err := f.dispatcher.RunCycle(ctx, "u1", now)
	require.NoError(t, err)
	assert.Equal(t, domainPost.CycleResult{}, result)

	got, err := f.repo.GetPost(ctx, future.ID)
	require.NoError(t, err)
	assert.Equal(t, domainPost.StatusPending, got.Status)
	assert.Zero(t, f.linkedin.totalCalls())
}

func TestRunCycle_ConcurrentCyclesPublishEachPostOnce(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()
	now := time.Now().UTC()

	f.seedCredential(t, "u1", domainPost.PlatformLinkedIn)

	bodies := []string{"c1", "c2", "c3"}
	for i, body := range bodies {
		f.seedPost(t, "u1", domainPost.PlatformLinkedIn, now.Add(time.Duration(-i-1)*time.Hour), body)
	}

	var wg sync.WaitGroup
	results := make([]domainPost.CycleResult, 2)
	for i := 0; i < 2; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := f.dispatcher.RunCycle(ctx, "u1", now)
			assert.NoError(t, err)
			results[i] = result
		}()
	}
	wg.Wait()

	for _, body := range bodies {
		assert.Equal(t, 1, f.linkedin.callsFor(body), "content %s published more than once", body)
	}
	assert.Equal(t, len(bodies), results[0].Succeeded+results[1].Succeeded)
	assert.Zero(t, results[0].Failed+results[1].Failed)
}

func TestRunCycle_PlatformErrorIsRecordedTruncated(t *testing.T) {
	longErr := errors.New(strings.Repeat("rate limited. ", 60))
	f := newFixture(t, longErr, nil)
	ctx := context.Background()
	now := time.Now().UTC()

	f.seedCredential(t, "u1", domainPost.PlatformLinkedIn)
	p := f.seedPost(t, "u1", domainPost.PlatformLinkedIn, now.Add(-time.Hour), "doomed")

	result, err := f.dispatcher.RunCycle(ctx, "u1", now)
	require.NoError(t, err)
	assert.Equal(t, domainPost.CycleResult{Failed: 1}, result)

	got, err := f.repo.GetPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domainPost.StatusFailed, got.Status)
	assert.Len(t, got.ErrorMessage, domainPost.MaxErrorMessageLen)
	assert.Contains(t, got.ErrorMessage, "rate limited")
}

func TestRunCycle_ExpiredCredentialFailsPost(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()
	now := time.Now().UTC()

	expired := now.Add(-time.Hour)
	_, err := f.repo.Upsert(ctx, domainCredential.Credential{
		UserID:      "u1",
		Platform:    domainPost.PlatformLinkedIn,
		AccessToken: "tok",
		AccountRef:  "acct",
		ExpiresAt:   &expired,
	})
	require.NoError(t, err)

	p := f.seedPost(t, "u1", domainPost.PlatformLinkedIn, now.Add(-time.Minute), "stale token")

	result, err := f.dispatcher.RunCycle(ctx, "u1", now)
	require.NoError(t, err)
	assert.Equal(t, domainPost.CycleResult{Failed: 1}, result)

	got, err := f.repo.GetPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Contains(t, got.ErrorMessage, "expired")
	assert.Zero(t, f.linkedin.totalCalls())
}

func TestPostNow_PublishesAheadOfSchedule(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()
	now := time.Now().UTC()

	f.seedCredential(t, "u1", domainPost.PlatformFacebook)
	p := f.seedPost(t, "u1", domainPost.PlatformFacebook, now.Add(48*time.Hour), "early bird")

	got, err := f.dispatcher.PostNow(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domainPost.StatusPosted, got.Status)
	assert.NotEmpty(t, got.RemotePostID)

	// Already handled: a second push is refused.
	_, err = f.dispatcher.PostNow(ctx, p.ID)
	require.Error(t, err)
	assert.Equal(t, 1, f.facebook.callsFor("early bird"))
}

// brokenReadLedger fails the pre-publish re-read for one post so the cycle
// sees a ledger infrastructure error rather than a lost race.
type brokenReadLedger struct {
	repository.ILedgerRepository
	failID string
}

func (b *brokenReadLedger) GetPost(ctx context.Context, id string) (domainPost.ScheduledPost, error) {
	if id == b.failID {
		return domainPost.ScheduledPost{}, errors.New("ledger read: disk I/O error")
	}
	return b.ILedgerRepository.GetPost(ctx, id)
}

func TestRunCycle_LedgerReadErrorCountsAsFailureAndKeepsPostPending(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()
	now := time.Now().UTC()

	f.seedCredential(t, "u1", domainPost.PlatformLinkedIn)
	broken := f.seedPost(t, "u1", domainPost.PlatformLinkedIn, now.Add(-2*time.Hour), "unreadable")
	healthy := f.seedPost(t, "u1", domainPost.PlatformLinkedIn, now.Add(-time.Hour), "readable")

	ledger := &brokenReadLedger{ILedgerRepository: f.repo, failID: broken.ID}
	d := NewDispatcher(ledger, f.repo, f.repo, f.registry, f.pool, nil, nil, f.cfg)

	result, err := d.RunCycle(ctx, "u1", now)
	require.NoError(t, err)
	assert.Equal(t, domainPost.CycleResult{Succeeded: 1, Failed: 1}, result)

	// The unreadable post was neither skipped silently nor marked failed; it
	// stays pending so a later cycle can pick it up.
	got, err := f.repo.GetPost(ctx, broken.ID)
	require.NoError(t, err)
	assert.Equal(t, domainPost.StatusPending, got.Status)
	assert.Zero(t, f.linkedin.callsFor("unreadable"))

	published, err := f.repo.GetPost(ctx, healthy.ID)
	require.NoError(t, err)
	assert.Equal(t, domainPost.StatusPosted, published.Status)
}
