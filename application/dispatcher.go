package application

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AzielCF/az-post/config"
	domainPost "github.com/AzielCF/az-post/domains/post"
	"github.com/AzielCF/az-post/domains/publisher"
	"github.com/AzielCF/az-post/infrastructure/valkey"
	"github.com/AzielCF/az-post/pkg/dispatchpool"
	pkgError "github.com/AzielCF/az-post/pkg/error"
	"github.com/AzielCF/az-post/repository"
	"github.com/AzielCF/az-post/usecase"
	"github.com/sirupsen/logrus"
	valkeylib "github.com/valkey-io/valkey-go"
)

// EventSink receives post status transitions for live delivery (the
// websocket hub). A nil sink disables events.
type EventSink interface {
	PublishPostEvent(p domainPost.ScheduledPost)
}

type outcome int

const (
	outcomeSucceeded outcome = iota
	outcomeFailed
	outcomeSkipped
)

// Dispatcher publishes due posts. One failing post never aborts the cycle;
// its error lands on the ledger row and the remaining posts proceed. Posts
// claimed by a concurrent cycle are skipped silently.
type Dispatcher struct {
	ledger   repository.ILedgerRepository
	contents repository.IContentRepository
	creds    repository.ICredentialRepository
	registry *publisher.Registry
	pool     *dispatchpool.Pool
	vk       *valkey.Client
	events   EventSink
	cfg      config.DispatchConfig
	now      func() time.Time
}

func NewDispatcher(
	ledger repository.ILedgerRepository,
	contents repository.IContentRepository,
	creds repository.ICredentialRepository,
	registry *publisher.Registry,
	pool *dispatchpool.Pool,
	vk *valkey.Client,
	events EventSink,
	cfg config.DispatchConfig,
) *Dispatcher {
	return &Dispatcher{
		ledger:   ledger,
		contents: contents,
		creds:    creds,
		registry: registry,
		pool:     pool,
		vk:       vk,
		events:   events,
		cfg:      cfg,
		now:      time.Now,
	}
}

// RunCycle selects due posts and publishes them through the worker pool. An
// empty userID runs across all users. The returned counts cover this cycle
// only; posts another cycle claimed first appear in neither count.
func (d *Dispatcher) RunCycle(ctx context.Context, userID string, now time.Time) (domainPost.CycleResult, error) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.CycleDeadline)
	defer cancel()

	var (
		due []domainPost.ScheduledPost
		err error
	)
	if userID == "" {
		due, err = d.ledger.FindDueAll(ctx, now)
	} else {
		due, err = d.ledger.FindDue(ctx, userID, now)
	}
	if err != nil {
		return domainPost.CycleResult{}, err
	}
	if len(due) == 0 {
		return domainPost.CycleResult{}, nil
	}

	logrus.Infof("[DISPATCH] Cycle start: %d due post(s)", len(due))

	var succeeded, failed int64
	var wg sync.WaitGroup

	for _, p := range due {
		p := p
		wg.Add(1)
		dispatched := d.pool.TryDispatch(dispatchpool.PublishJob{
			PostID:   p.ID,
			ShardKey: string(p.Platform),
			Handler: func(jobCtx context.Context) error {
				defer wg.Done()
				switch d.publishOne(jobCtx, p) {
				case outcomeSucceeded:
					atomic.AddInt64(&succeeded, 1)
				case outcomeFailed:
					atomic.AddInt64(&failed, 1)
				}
				return nil
			},
		})
		if !dispatched {
			// Queue full: the post stays pending and a later cycle retries.
			wg.Done()
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		logrus.Warn("[DISPATCH] Cycle deadline reached before all posts finished")
		return domainPost.CycleResult{
			Succeeded: int(atomic.LoadInt64(&succeeded)),
			Failed:    int(atomic.LoadInt64(&failed)),
		}, ctx.Err()
	}

	result := domainPost.CycleResult{
		Succeeded: int(atomic.LoadInt64(&succeeded)),
		Failed:    int(atomic.LoadInt64(&failed)),
	}
	logrus.Infof("[DISPATCH] Cycle done: %d succeeded, %d failed", result.Succeeded, result.Failed)
	return result, nil
}

// PostNow publishes a single pending post immediately, ignoring its
// scheduled time. Runs inline rather than through the pool so the caller
// gets the final state back.
func (d *Dispatcher) PostNow(ctx context.Context, id string) (domainPost.ScheduledPost, error) {
	p, err := d.ledger.GetPost(ctx, id)
	if err != nil {
		return domainPost.ScheduledPost{}, err
	}
	if p.Status != domainPost.StatusPending {
		return domainPost.ScheduledPost{}, pkgError.ConflictError("post is not pending.")
	}

	d.publishOne(ctx, p)
	return d.ledger.GetPost(ctx, id)
}

// publishOne runs the full pipeline for one post: resolve content, resolve a
// live credential, call the platform, then transition the row with a
// conditional write. Every early exit that is the post's own fault marks it
// failed with a bounded error message.
func (d *Dispatcher) publishOne(ctx context.Context, p domainPost.ScheduledPost) outcome {
	// Same-platform jobs are serialized on one worker, so a post already
	// claimed by an overlapping cycle shows up here before we hit the API.
	current, err := d.ledger.GetPost(ctx, p.ID)
	if err != nil {
		// Ledger trouble, not a lost race: the row stays pending for a later
		// cycle, but this cycle reports it so the failure is visible.
		logrus.WithError(err).Errorf("[DISPATCH] Could not re-read post %s before publish", p.ID)
		return outcomeFailed
	}
	if current.Status != domainPost.StatusPending {
		return outcomeSkipped
	}

	item, err := d.contents.GetContent(ctx, p.ContentID)
	if err != nil {
		return d.fail(ctx, p, "content item no longer exists")
	}

	cred, err := d.creds.GetToken(ctx, p.UserID, p.Platform)
	if err != nil {
		return d.fail(ctx, p, err.Error())
	}
	if cred.Expired(d.now()) {
		return d.fail(ctx, p, "credential for this platform has expired")
	}

	pub, err := d.registry.Resolve(p.Platform)
	if err != nil {
		return d.fail(ctx, p, err.Error())
	}

	pubCtx, cancel := context.WithTimeout(ctx, d.cfg.PublishTimeout)
	defer cancel()

	remoteID, err := pub.Publish(pubCtx, publisher.Content{
		Title:    item.Title,
		Body:     item.Body,
		MediaURL: item.MediaURL,
	}, cred)
	if err != nil {
		return d.fail(ctx, p, err.Error())
	}

	if err := d.ledger.MarkPosted(ctx, p.ID, remoteID); err != nil {
		if errors.Is(err, domainPost.ErrAlreadyHandled) {
			return outcomeSkipped
		}
		logrus.WithError(err).Errorf("[DISPATCH] Post %s published as %s but ledger write failed", p.ID, remoteID)
		return outcomeFailed
	}

	logrus.Infof("[DISPATCH] Post %s published on %s as %s", p.ID, p.Platform, remoteID)
	d.emit(ctx, p.ID)
	return outcomeSucceeded
}

func (d *Dispatcher) fail(ctx context.Context, p domainPost.ScheduledPost, message string) outcome {
	err := d.ledger.MarkFailed(ctx, p.ID, domainPost.TruncateError(message))
	if errors.Is(err, domainPost.ErrAlreadyHandled) {
		return outcomeSkipped
	}
	if err != nil {
		logrus.WithError(err).Errorf("[DISPATCH] Could not mark post %s failed", p.ID)
		return outcomeFailed
	}

	logrus.Warnf("[DISPATCH] Post %s failed on %s: %s", p.ID, p.Platform, message)
	d.emit(ctx, p.ID)
	return outcomeFailed
}

func (d *Dispatcher) emit(ctx context.Context, id string) {
	if d.events == nil {
		return
	}
	if p, err := d.ledger.GetPost(ctx, id); err == nil {
		d.events.PublishPostEvent(p)
	}
}

// StartLoop runs the periodic dispatch worker. With Valkey enabled the loop
// also wakes on scheduling signals and takes a cross-instance lock per
// cycle; without it the loop degrades to a plain local ticker.
func (d *Dispatcher) StartLoop(ctx context.Context) {
	wake := make(chan struct{}, 1)

	if d.vk != nil {
		signalChan := d.vk.Key(usecase.WakeChannel)
		logrus.Infof("[DISPATCH] Reactive worker started. Watching channel %s", signalChan)

		go func() {
			err := d.vk.Inner().Receive(ctx, d.vk.Inner().B().Subscribe().Channel(signalChan).Build(), func(msg valkeylib.PubSubMessage) {
				select {
				case wake <- struct{}{}:
				default:
				}
			})
			if err != nil && ctx.Err() == nil {
				logrus.WithError(err).Error("[DISPATCH] Pub/Sub listener failed")
			}
		}()
	} else {
		logrus.Info("[DISPATCH] Valkey disabled, running on local ticker only")
	}

	go d.runWorker(ctx, wake)
}

func (d *Dispatcher) runWorker(ctx context.Context, wake <-chan struct{}) {
	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()

	d.lockedCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			logrus.Info("[DISPATCH] Worker stopped")
			return
		case <-ticker.C:
			d.lockedCycle(ctx)
		case <-wake:
			d.lockedCycle(ctx)
		}
	}
}

// lockedCycle runs one full cycle, guarded by a Valkey lock so that only one
// instance dispatches at a time. Losing the lock is the normal case on every
// instance but one.
func (d *Dispatcher) lockedCycle(ctx context.Context) {
	if d.vk != nil {
		lockTTL := d.cfg.Interval
		if lockTTL > 55*time.Second {
			lockTTL = 55 * time.Second
		}
		if !d.vk.TryLock(ctx, d.vk.Key("lock:dispatch:cycle"), lockTTL) {
			logrus.Debug("[DISPATCH] Another instance holds the cycle lock")
			return
		}
	}

	if _, err := d.RunCycle(ctx, "", d.now()); err != nil && ctx.Err() == nil {
		logrus.WithError(err).Error("[DISPATCH] Cycle failed")
	}
}
