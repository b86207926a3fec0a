package usecase

import (
	"context"
	"errors"
	"time"

	domainContent "github.com/AzielCF/az-post/domains/content"
	domainPost "github.com/AzielCF/az-post/domains/post"
	domainRecurrence "github.com/AzielCF/az-post/domains/recurrence"
	"github.com/AzielCF/az-post/infrastructure/valkey"
	"github.com/AzielCF/az-post/integrations/linkpreview"
	pkgError "github.com/AzielCF/az-post/pkg/error"
	"github.com/AzielCF/az-post/pkg/timeutils"
	"github.com/AzielCF/az-post/repository"
	"github.com/AzielCF/az-post/validations"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// WakeChannel is the pub/sub channel the dispatch loop listens on; a message
// here shortcuts the periodic tick after new posts enter the ledger.
const WakeChannel = "dispatch:wake"

// casAttempts bounds retries on recurrence-rule version conflicts.
const casAttempts = 5

const (
	defaultFrequency = timeutils.FrequencyDaily
	defaultTimeOfDay = "09:00:00"
	defaultTimezone  = "UTC"
)

// ILinkPreviewer resolves a page's preview image. Satisfied by
// linkpreview.Client.
type ILinkPreviewer interface {
	ImageURL(ctx context.Context, pageURL string) (string, error)
}

type serviceSchedule struct {
	rules    repository.IRecurrenceRepository
	ledger   repository.ILedgerRepository
	contents repository.IContentRepository
	preview  ILinkPreviewer
	vk       *valkey.Client
	now      func() time.Time
}

func NewScheduleService(rules repository.IRecurrenceRepository, ledger repository.ILedgerRepository, contents repository.IContentRepository, preview ILinkPreviewer, vk *valkey.Client) domainRecurrence.IScheduleUsecase {
	return &serviceSchedule{
		rules:    rules,
		ledger:   ledger,
		contents: contents,
		preview:  preview,
		vk:       vk,
		now:      time.Now,
	}
}

func (service *serviceSchedule) GetRule(ctx context.Context, userID string) (domainRecurrence.Rule, error) {
	return service.rules.GetRuleByUser(ctx, userID)
}

// UpdateRule replaces the user's recurrence configuration and recomputes the
// next occurrence from now. Concurrent updates are resolved by version CAS;
// the freshest write wins and the loser retries against the new state.
func (service *serviceSchedule) UpdateRule(ctx context.Context, userID string, request domainRecurrence.UpdateRuleRequest) (domainRecurrence.Rule, error) {
	if err := validations.ValidateUpdateRule(ctx, request); err != nil {
		return domainRecurrence.Rule{}, err
	}

	zone, err := timeutils.NormalizeTimezone(request.Timezone)
	if err != nil {
		return domainRecurrence.Rule{}, pkgError.ValidationError("timezone: must be a valid IANA zone name.")
	}

	for attempt := 0; attempt < casAttempts; attempt++ {
		rule, err := service.rules.GetRuleByUser(ctx, userID)
		if errors.Is(err, domainRecurrence.ErrRuleNotFound) {
			created, createErr := service.createRuleFromRequest(ctx, userID, request, zone)
			if createErr == nil {
				return created, nil
			}
			// A concurrent request may have created the rule first; fall
			// through to the CAS path on the next attempt.
			logrus.WithError(createErr).Debugf("[SCHEDULE] Rule create lost race for user %s, retrying", userID)
			continue
		}
		if err != nil {
			return domainRecurrence.Rule{}, err
		}

		applyRuleRequest(&rule, request, zone)

		nextRun, err := timeutils.NextRun(rule.Recurrence(), service.now())
		if err != nil {
			return domainRecurrence.Rule{}, pkgError.ValidationError(err.Error())
		}
		rule.NextRunAt = nextRun

		updated, err := service.rules.UpdateRuleCAS(ctx, rule)
		if errors.Is(err, domainRecurrence.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return domainRecurrence.Rule{}, err
		}
		return updated, nil
	}

	return domainRecurrence.Rule{}, pkgError.ConflictError("recurrence rule is being modified concurrently, please retry.")
}

// ScheduleContent creates one pending ledger row per requested platform at
// the rule's next occurrence, then advances the rule by one recurrence step.
// Platforms that already hold a pending post for this content are skipped.
func (service *serviceSchedule) ScheduleContent(ctx context.Context, request domainRecurrence.ScheduleContentRequest) (domainRecurrence.ScheduleContentResponse, error) {
	platforms := request.Platforms
	if len(platforms) == 0 {
		platforms = domainPost.AllPlatforms
	}
	for _, platform := range platforms {
		if !platform.Valid() {
			return domainRecurrence.ScheduleContentResponse{}, pkgError.ValidationError("platforms: must be a subset of linkedin, facebook, instagram.")
		}
	}

	item, err := service.contents.GetContent(ctx, request.ContentID)
	if err != nil {
		return domainRecurrence.ScheduleContentResponse{}, err
	}
	if item.UserID != request.UserID {
		return domainRecurrence.ScheduleContentResponse{}, domainContent.ErrContentNotFound
	}

	newPlatforms := make([]domainPost.Platform, 0, len(platforms))
	for _, platform := range platforms {
		pending, err := service.ledger.HasPendingForContent(ctx, item.ID, platform)
		if err != nil {
			return domainRecurrence.ScheduleContentResponse{}, err
		}
		if pending {
			logrus.Debugf("[SCHEDULE] Content %s already pending on %s, skipping", item.ID, platform)
			continue
		}
		newPlatforms = append(newPlatforms, platform)
	}
	if len(newPlatforms) == 0 {
		return domainRecurrence.ScheduleContentResponse{}, domainPost.ErrDuplicatePending
	}

	item = service.ensureMedia(ctx, item, newPlatforms)

	rule, occurrence, err := service.claimOccurrence(ctx, request.UserID)
	if err != nil {
		return domainRecurrence.ScheduleContentResponse{}, err
	}

	nowUTC := service.now().UTC()
	posts := make([]domainPost.ScheduledPost, 0, len(newPlatforms))
	for _, platform := range newPlatforms {
		p := domainPost.ScheduledPost{
			ID:          uuid.NewString(),
			UserID:      request.UserID,
			ContentID:   item.ID,
			Platform:    platform,
			ScheduledAt: occurrence,
			Timezone:    rule.Timezone,
			Status:      domainPost.StatusPending,
			CreatedAt:   nowUTC,
			UpdatedAt:   nowUTC,
		}
		if err := service.ledger.CreatePost(ctx, p); err != nil {
			// A concurrent request slipped past the pre-check; the ledger's
			// unique pending constraint catches it, so treat it as the skip.
			if errors.Is(err, domainPost.ErrDuplicatePending) {
				logrus.Debugf("[SCHEDULE] Content %s raced to pending on %s, skipping", item.ID, platform)
				continue
			}
			return domainRecurrence.ScheduleContentResponse{}, err
		}
		posts = append(posts, p)
	}
	if len(posts) == 0 {
		return domainRecurrence.ScheduleContentResponse{}, domainPost.ErrDuplicatePending
	}

	if err := service.contents.SetContentStatus(ctx, item.ID, domainContent.StatusScheduled); err != nil {
		logrus.WithError(err).Warnf("[SCHEDULE] Failed to mark content %s as scheduled", item.ID)
	}

	if service.vk != nil {
		service.vk.PublishSignal(ctx, service.vk.Key(WakeChannel), "scheduled")
	}

	logrus.Infof("[SCHEDULE] Content %s scheduled on %d platform(s) for %s",
		item.ID, len(posts), occurrence.Format(time.RFC3339))

	return domainRecurrence.ScheduleContentResponse{Posts: posts, Rule: rule}, nil
}

// claimOccurrence reads the rule (creating the default one on first use),
// takes its cached next occurrence and advances the rule one step under CAS.
// Losing the CAS means another request consumed the occurrence; re-read and
// claim the next one.
func (service *serviceSchedule) claimOccurrence(ctx context.Context, userID string) (domainRecurrence.Rule, time.Time, error) {
	for attempt := 0; attempt < casAttempts; attempt++ {
		rule, err := service.rules.GetRuleByUser(ctx, userID)
		if errors.Is(err, domainRecurrence.ErrRuleNotFound) {
			rule, err = service.createDefaultRule(ctx, userID)
			if err != nil {
				logrus.WithError(err).Debugf("[SCHEDULE] Default rule create lost race for user %s, retrying", userID)
				continue
			}
		} else if err != nil {
			return domainRecurrence.Rule{}, time.Time{}, err
		}

		occurrence := rule.NextRunAt

		// A stale cached occurrence (user inactive for a while) would make
		// the new posts due immediately; fast-forward it past now instead.
		if now := service.now(); !occurrence.After(now) {
			occurrence, err = timeutils.NextRun(rule.Recurrence(), now)
			if err != nil {
				return domainRecurrence.Rule{}, time.Time{}, err
			}
		}

		next, err := timeutils.NextRun(rule.Recurrence(), occurrence)
		if err != nil {
			return domainRecurrence.Rule{}, time.Time{}, err
		}
		rule.NextRunAt = next

		updated, err := service.rules.UpdateRuleCAS(ctx, rule)
		if errors.Is(err, domainRecurrence.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return domainRecurrence.Rule{}, time.Time{}, err
		}
		return updated, occurrence, nil
	}
	return domainRecurrence.Rule{}, time.Time{}, pkgError.ConflictError("recurrence rule is being modified concurrently, please retry.")
}

// createDefaultRule seeds a first-use rule: daily at 09:00 local, starting
// the next day so a fresh user never publishes immediately.
func (service *serviceSchedule) createDefaultRule(ctx context.Context, userID string) (domainRecurrence.Rule, error) {
	now := service.now()
	rec := timeutils.Recurrence{
		Frequency: defaultFrequency,
		TimeOfDay: defaultTimeOfDay,
		Timezone:  defaultTimezone,
	}

	first, err := timeutils.NextRun(rec, now)
	if err != nil {
		return domainRecurrence.Rule{}, err
	}
	loc, _ := timeutils.ResolveZone(defaultTimezone)
	if timeutils.LocalDaysBetween(now, first, loc) == 0 {
		if first, err = timeutils.NextRun(rec, first); err != nil {
			return domainRecurrence.Rule{}, err
		}
	}

	rule := domainRecurrence.Rule{
		ID:        uuid.NewString(),
		UserID:    userID,
		Frequency: rec.Frequency,
		TimeOfDay: rec.TimeOfDay,
		Timezone:  rec.Timezone,
		NextRunAt: first,
	}
	if err := service.rules.CreateRule(ctx, rule); err != nil {
		return domainRecurrence.Rule{}, err
	}
	logrus.Infof("[SCHEDULE] Created default recurrence rule for user %s (next run %s)",
		userID, first.Format(time.RFC3339))
	return rule, nil
}

func (service *serviceSchedule) createRuleFromRequest(ctx context.Context, userID string, request domainRecurrence.UpdateRuleRequest, zone string) (domainRecurrence.Rule, error) {
	rule := domainRecurrence.Rule{
		ID:     uuid.NewString(),
		UserID: userID,
	}
	applyRuleRequest(&rule, request, zone)

	nextRun, err := timeutils.NextRun(rule.Recurrence(), service.now())
	if err != nil {
		return domainRecurrence.Rule{}, pkgError.ValidationError(err.Error())
	}
	rule.NextRunAt = nextRun

	if err := service.rules.CreateRule(ctx, rule); err != nil {
		return domainRecurrence.Rule{}, err
	}
	return rule, nil
}

// ensureMedia backfills a missing media URL from the first link in the body
// when at least one target platform refuses text-only posts. Failure here is
// non-fatal; the publish attempt will surface the real precondition error.
func (service *serviceSchedule) ensureMedia(ctx context.Context, item domainContent.Item, platforms []domainPost.Platform) domainContent.Item {
	if item.MediaURL != "" || service.preview == nil {
		return item
	}
	needsMedia := false
	for _, platform := range platforms {
		if platform == domainPost.PlatformInstagram {
			needsMedia = true
			break
		}
	}
	if !needsMedia {
		return item
	}

	pageURL := linkpreview.FirstURL(item.Body)
	if pageURL == "" {
		return item
	}

	imageURL, err := service.preview.ImageURL(ctx, pageURL)
	if err != nil || imageURL == "" {
		logrus.WithError(err).Debugf("[SCHEDULE] No preview image for %s", pageURL)
		return item
	}

	item.MediaURL = imageURL
	if err := service.contents.UpdateContent(ctx, item); err != nil {
		logrus.WithError(err).Warnf("[SCHEDULE] Failed to persist preview image for content %s", item.ID)
		item.MediaURL = ""
		return item
	}
	logrus.Infof("[SCHEDULE] Backfilled media for content %s from %s", item.ID, pageURL)
	return item
}

func applyRuleRequest(rule *domainRecurrence.Rule, request domainRecurrence.UpdateRuleRequest, zone string) {
	rule.Frequency = request.Frequency
	rule.TimeOfDay = request.TimeOfDay
	rule.Timezone = zone
	rule.DayOfWeek = 0
	rule.DayOfMonth = 0
	if request.DayOfWeek != nil {
		rule.DayOfWeek = *request.DayOfWeek
	}
	if request.DayOfMonth != nil {
		rule.DayOfMonth = *request.DayOfMonth
	}
}
