package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/AzielCF/az-post/domains/content"
	"github.com/AzielCF/az-post/domains/credential"
	"github.com/AzielCF/az-post/domains/post"
	"github.com/AzielCF/az-post/domains/recurrence"
	"github.com/AzielCF/az-post/pkg/timeutils"
	"gorm.io/gorm"
)

// --- Persistence Models ---

type scheduledPostModel struct {
	ID     string `gorm:"primaryKey;column:id"`
	UserID string `gorm:"column:user_id;not null;index"`
	// The partial unique index backstops the one-pending-per-platform rule
	// against concurrent scheduling requests; posted and failed rows are
	// outside the predicate and never block a reschedule.
	ContentID string `gorm:"column:content_id;not null;index;uniqueIndex:idx_pending_once,priority:1,where:status = 'pending'"`
	Platform  string `gorm:"column:platform;not null;uniqueIndex:idx_pending_once,priority:2"`
	// DueKey materializes the "<status>#<user>" partition of the due index;
	// the pair (due_key, scheduled_at) is the range-scan path for FindDue.
	DueKey       string         `gorm:"column:due_key;not null;index:idx_due,priority:1"`
	ScheduledAt  time.Time      `gorm:"column:scheduled_at;not null;index:idx_due,priority:2"`
	Timezone     string         `gorm:"column:timezone;default:'UTC'"`
	Status       string         `gorm:"column:status;default:'pending';index"`
	RemotePostID sql.NullString `gorm:"column:remote_post_id"`
	ErrorMessage sql.NullString `gorm:"column:error_message"`
	CreatedAt    time.Time      `gorm:"column:created_at;not null"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;not null"`
}

func (scheduledPostModel) TableName() string { return "scheduled_posts" }

type recurrenceRuleModel struct {
	ID         string    `gorm:"primaryKey;column:id"`
	UserID     string    `gorm:"column:user_id;not null;uniqueIndex"`
	Frequency  string    `gorm:"column:frequency;not null"`
	TimeOfDay  string    `gorm:"column:time_of_day;not null"`
	DayOfWeek  int       `gorm:"column:day_of_week;default:0"`
	DayOfMonth int       `gorm:"column:day_of_month;default:0"`
	Timezone   string    `gorm:"column:timezone;default:'UTC'"`
	NextRunAt  time.Time `gorm:"column:next_run_at;not null"`
	Version    int64     `gorm:"column:version;default:0"`
	CreatedAt  time.Time `gorm:"column:created_at;not null"`
	UpdatedAt  time.Time `gorm:"column:updated_at;not null"`
}

func (recurrenceRuleModel) TableName() string { return "recurrence_rules" }

type credentialModel struct {
	ID          string         `gorm:"primaryKey;column:id"`
	UserID      string         `gorm:"column:user_id;not null;uniqueIndex:idx_user_platform"`
	Platform    string         `gorm:"column:platform;not null;uniqueIndex:idx_user_platform"`
	AccessToken string         `gorm:"column:access_token;not null"`
	AccountRef  sql.NullString `gorm:"column:account_ref"`
	ExpiresAt   *time.Time     `gorm:"column:expires_at"`
	CreatedAt   time.Time      `gorm:"column:created_at;not null"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;not null"`
}

func (credentialModel) TableName() string { return "credentials" }

type contentItemModel struct {
	ID        string         `gorm:"primaryKey;column:id"`
	UserID    string         `gorm:"column:user_id;not null;index"`
	Title     string         `gorm:"column:title;not null"`
	Body      string         `gorm:"column:body;type:text"`
	MediaURL  sql.NullString `gorm:"column:media_url"`
	Status    string         `gorm:"column:status;default:'review';index"`
	CreatedAt time.Time      `gorm:"column:created_at;not null"`
	UpdatedAt time.Time      `gorm:"column:updated_at;not null"`
}

func (contentItemModel) TableName() string { return "content_items" }

// --- Repository Implementation ---

// GormRepository implements the ledger, recurrence, credential and content
// repositories on a single gorm connection (SQLite or Postgres).
type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Init(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(
		&scheduledPostModel{},
		&recurrenceRuleModel{},
		&credentialModel{},
		&contentItemModel{},
	)
}

// Scheduled Posts

// CreatePost inserts a pending row. A second pending row for the same
// (content, platform) pair violates idx_pending_once and comes back as
// post.ErrDuplicatePending so callers can treat the race as a skip.
func (r *GormRepository) CreatePost(ctx context.Context, p post.ScheduledPost) error {
	model := toScheduledPostModel(p)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return post.ErrDuplicatePending
		}
		return err
	}
	return nil
}

func (r *GormRepository) GetPost(ctx context.Context, id string) (post.ScheduledPost, error) {
	var m scheduledPostModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return post.ScheduledPost{}, post.ErrPostNotFound
		}
		return post.ScheduledPost{}, err
	}
	return fromScheduledPostModel(m), nil
}

func (r *GormRepository) ListPosts(ctx context.Context, userID string) ([]post.ScheduledPost, error) {
	var models []scheduledPostModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("scheduled_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	return fromScheduledPostModels(models), nil
}

func (r *GormRepository) FindDue(ctx context.Context, userID string, now time.Time) ([]post.ScheduledPost, error) {
	var models []scheduledPostModel
	err := r.db.WithContext(ctx).
		Where("due_key = ? AND scheduled_at <= ?", post.DueKey(post.StatusPending, userID), now.UTC()).
		Order("scheduled_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return fromScheduledPostModels(models), nil
}

func (r *GormRepository) FindDueAll(ctx context.Context, now time.Time) ([]post.ScheduledPost, error) {
	var models []scheduledPostModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_at <= ?", string(post.StatusPending), now.UTC()).
		Order("scheduled_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return fromScheduledPostModels(models), nil
}

func (r *GormRepository) HasPendingForContent(ctx context.Context, contentID string, platform post.Platform) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&scheduledPostModel{}).
		Where("content_id = ? AND platform = ? AND status = ?", contentID, string(platform), string(post.StatusPending)).
		Count(&count).Error
	return count > 0, err
}

func (r *GormRepository) MarkPosted(ctx context.Context, id, remotePostID string) error {
	return r.transitionFromPending(ctx, id, map[string]interface{}{
		"status":         string(post.StatusPosted),
		"remote_post_id": remotePostID,
		"error_message":  sql.NullString{},
	}, post.StatusPosted)
}

func (r *GormRepository) MarkFailed(ctx context.Context, id, errorMessage string) error {
	return r.transitionFromPending(ctx, id, map[string]interface{}{
		"status":         string(post.StatusFailed),
		"remote_post_id": sql.NullString{},
		"error_message":  post.TruncateError(errorMessage),
	}, post.StatusFailed)
}

// transitionFromPending performs the conditional ledger write: it only
// applies while the row is still pending, which is what makes overlapping
// dispatch cycles idempotent without engine-side locking.
func (r *GormRepository) transitionFromPending(ctx context.Context, id string, updates map[string]interface{}, target post.Status) error {
	current, err := r.GetPost(ctx, id)
	if err != nil {
		return err
	}
	if current.Status != post.StatusPending {
		return post.ErrAlreadyHandled
	}

	updates["due_key"] = post.DueKey(target, current.UserID)
	updates["updated_at"] = time.Now().UTC()

	res := r.db.WithContext(ctx).Model(&scheduledPostModel{}).
		Where("id = ? AND status = ?", id, string(post.StatusPending)).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Another cycle claimed the post between our read and write.
		return post.ErrAlreadyHandled
	}
	return nil
}

func (r *GormRepository) DeletePost(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&scheduledPostModel{}, "id = ?", id).Error
}

func (r *GormRepository) DeletePendingForContent(ctx context.Context, contentID string) error {
	return r.db.WithContext(ctx).
		Where("content_id = ? AND status = ?", contentID, string(post.StatusPending)).
		Delete(&scheduledPostModel{}).Error
}

// Recurrence Rules

func (r *GormRepository) GetRuleByUser(ctx context.Context, userID string) (recurrence.Rule, error) {
	var m recurrenceRuleModel
	if err := r.db.WithContext(ctx).First(&m, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return recurrence.Rule{}, recurrence.ErrRuleNotFound
		}
		return recurrence.Rule{}, err
	}
	return fromRecurrenceRuleModel(m), nil
}

func (r *GormRepository) CreateRule(ctx context.Context, rule recurrence.Rule) error {
	model := toRecurrenceRuleModel(rule)
	return r.db.WithContext(ctx).Create(&model).Error
}

// UpdateRuleCAS writes the rule conditionally on its version and returns the
// stored rule with the bumped version. RowsAffected == 0 means another writer
// advanced the rule first.
func (r *GormRepository) UpdateRuleCAS(ctx context.Context, rule recurrence.Rule) (recurrence.Rule, error) {
	res := r.db.WithContext(ctx).Model(&recurrenceRuleModel{}).
		Where("id = ? AND version = ?", rule.ID, rule.Version).
		Updates(map[string]interface{}{
			"frequency":    string(rule.Frequency),
			"time_of_day":  rule.TimeOfDay,
			"day_of_week":  rule.DayOfWeek,
			"day_of_month": rule.DayOfMonth,
			"timezone":     rule.Timezone,
			"next_run_at":  rule.NextRunAt.UTC(),
			"version":      rule.Version + 1,
			"updated_at":   time.Now().UTC(),
		})
	if res.Error != nil {
		return recurrence.Rule{}, res.Error
	}
	if res.RowsAffected == 0 {
		return recurrence.Rule{}, recurrence.ErrVersionConflict
	}
	rule.Version++
	return rule, nil
}

// Credentials

func (r *GormRepository) GetToken(ctx context.Context, userID string, platform post.Platform) (credential.Credential, error) {
	var m credentialModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND platform = ?", userID, string(platform)).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return credential.Credential{}, credential.ErrCredentialNotFound
		}
		return credential.Credential{}, err
	}
	return fromCredentialModel(m), nil
}

func (r *GormRepository) Upsert(ctx context.Context, cred credential.Credential) (credential.Credential, error) {
	existing, err := r.GetToken(ctx, cred.UserID, cred.Platform)
	switch {
	case err == nil:
		cred.ID = existing.ID
		cred.CreatedAt = existing.CreatedAt
	case errors.Is(err, credential.ErrCredentialNotFound):
		// First token for this (user, platform)
	default:
		return credential.Credential{}, err
	}

	cred.UpdatedAt = time.Now().UTC()
	model := toCredentialModel(cred)
	if err := r.db.WithContext(ctx).Save(&model).Error; err != nil {
		return credential.Credential{}, err
	}
	return cred, nil
}

func (r *GormRepository) ListByUser(ctx context.Context, userID string) ([]credential.Credential, error) {
	var models []credentialModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]credential.Credential, len(models))
	for i, m := range models {
		res[i] = fromCredentialModel(m)
	}
	return res, nil
}

func (r *GormRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&credentialModel{}, "id = ?", id).Error
}

// Content Items

func (r *GormRepository) GetContent(ctx context.Context, contentID string) (content.Item, error) {
	var m contentItemModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", contentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return content.Item{}, content.ErrContentNotFound
		}
		return content.Item{}, err
	}
	return fromContentItemModel(m), nil
}

func (r *GormRepository) CreateContent(ctx context.Context, item content.Item) error {
	model := toContentItemModel(item)
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *GormRepository) UpdateContent(ctx context.Context, item content.Item) error {
	model := toContentItemModel(item)
	return r.db.WithContext(ctx).Save(&model).Error
}

func (r *GormRepository) SetContentStatus(ctx context.Context, id string, status content.Status) error {
	res := r.db.WithContext(ctx).Model(&contentItemModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": string(status), "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return content.ErrContentNotFound
	}
	return nil
}

func (r *GormRepository) ListContent(ctx context.Context, userID string) ([]content.Item, error) {
	var models []contentItemModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]content.Item, len(models))
	for i, m := range models {
		res[i] = fromContentItemModel(m)
	}
	return res, nil
}

// DeleteContent removes the item and cascades to its still-pending posts.
// Posted and failed rows stay for history.
func (r *GormRepository) DeleteContent(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("content_id = ? AND status = ?", id, string(post.StatusPending)).
			Delete(&scheduledPostModel{}).Error; err != nil {
			return err
		}
		return tx.Delete(&contentItemModel{}, "id = ?", id).Error
	})
}

// --- Mappers ---

func toScheduledPostModel(p post.ScheduledPost) scheduledPostModel {
	return scheduledPostModel{
		ID:           p.ID,
		UserID:       p.UserID,
		ContentID:    p.ContentID,
		Platform:     string(p.Platform),
		DueKey:       post.DueKey(p.Status, p.UserID),
		ScheduledAt:  p.ScheduledAt.UTC(),
		Timezone:     p.Timezone,
		Status:       string(p.Status),
		RemotePostID: sql.NullString{String: p.RemotePostID, Valid: p.RemotePostID != ""},
		ErrorMessage: sql.NullString{String: p.ErrorMessage, Valid: p.ErrorMessage != ""},
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func fromScheduledPostModel(m scheduledPostModel) post.ScheduledPost {
	return post.ScheduledPost{
		ID:           m.ID,
		UserID:       m.UserID,
		ContentID:    m.ContentID,
		Platform:     post.Platform(m.Platform),
		ScheduledAt:  m.ScheduledAt.UTC(),
		Timezone:     m.Timezone,
		Status:       post.Status(m.Status),
		RemotePostID: nullStringValue(m.RemotePostID),
		ErrorMessage: nullStringValue(m.ErrorMessage),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func fromScheduledPostModels(models []scheduledPostModel) []post.ScheduledPost {
	res := make([]post.ScheduledPost, len(models))
	for i, m := range models {
		res[i] = fromScheduledPostModel(m)
	}
	return res
}

func toRecurrenceRuleModel(r recurrence.Rule) recurrenceRuleModel {
	return recurrenceRuleModel{
		ID:         r.ID,
		UserID:     r.UserID,
		Frequency:  string(r.Frequency),
		TimeOfDay:  r.TimeOfDay,
		DayOfWeek:  r.DayOfWeek,
		DayOfMonth: r.DayOfMonth,
		Timezone:   r.Timezone,
		NextRunAt:  r.NextRunAt.UTC(),
		Version:    r.Version,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func fromRecurrenceRuleModel(m recurrenceRuleModel) recurrence.Rule {
	return recurrence.Rule{
		ID:         m.ID,
		UserID:     m.UserID,
		Frequency:  timeutils.Frequency(m.Frequency),
		TimeOfDay:  m.TimeOfDay,
		DayOfWeek:  m.DayOfWeek,
		DayOfMonth: m.DayOfMonth,
		Timezone:   m.Timezone,
		NextRunAt:  m.NextRunAt.UTC(),
		Version:    m.Version,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

func toCredentialModel(c credential.Credential) credentialModel {
	return credentialModel{
		ID:          c.ID,
		UserID:      c.UserID,
		Platform:    string(c.Platform),
		AccessToken: c.AccessToken,
		AccountRef:  sql.NullString{String: c.AccountRef, Valid: c.AccountRef != ""},
		ExpiresAt:   c.ExpiresAt,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func fromCredentialModel(m credentialModel) credential.Credential {
	return credential.Credential{
		ID:          m.ID,
		UserID:      m.UserID,
		Platform:    post.Platform(m.Platform),
		AccessToken: m.AccessToken,
		AccountRef:  nullStringValue(m.AccountRef),
		ExpiresAt:   m.ExpiresAt,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func toContentItemModel(item content.Item) contentItemModel {
	return contentItemModel{
		ID:        item.ID,
		UserID:    item.UserID,
		Title:     item.Title,
		Body:      item.Body,
		MediaURL:  sql.NullString{String: item.MediaURL, Valid: item.MediaURL != ""},
		Status:    string(item.Status),
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	}
}

func fromContentItemModel(m contentItemModel) content.Item {
	return content.Item{
		ID:        m.ID,
		UserID:    m.UserID,
		Title:     m.Title,
		Body:      m.Body,
		MediaURL:  nullStringValue(m.MediaURL),
		Status:    content.Status(m.Status),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// nullStringValue returns a trimmed string or empty if null to prevent legacy data panics.
func nullStringValue(ns sql.NullString) string {
	if !ns.Valid {
		return ""
	}
	return strings.TrimSpace(ns.String)
}
