package usecase

import (
	"context"
	"strings"
	"time"

	domainContent "github.com/AzielCF/az-post/domains/content"
	pkgError "github.com/AzielCF/az-post/pkg/error"
	"github.com/AzielCF/az-post/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type serviceContent struct {
	repo      repository.IContentRepository
	generator domainContent.IGenerator
	now       func() time.Time
}

// NewContentService builds the draft CRUD service. generator may be nil when
// no AI key is configured; topic-based creation then fails with a validation
// error instead of a broken call.
func NewContentService(repo repository.IContentRepository, generator domainContent.IGenerator) domainContent.IContentUsecase {
	return &serviceContent{repo: repo, generator: generator, now: time.Now}
}

func (service *serviceContent) Create(ctx context.Context, request domainContent.CreateContentRequest) (domainContent.Item, error) {
	if strings.TrimSpace(request.UserID) == "" {
		return domainContent.Item{}, pkgError.ValidationError("user_id: cannot be blank.")
	}

	title, body := strings.TrimSpace(request.Title), strings.TrimSpace(request.Body)
	if topic := strings.TrimSpace(request.Topic); topic != "" && title == "" && body == "" {
		if service.generator == nil {
			return domainContent.Item{}, pkgError.ValidationError("topic: draft generation is not configured on this server.")
		}
		var err error
		title, body, err = service.generator.GenerateDraft(ctx, topic)
		if err != nil {
			logrus.WithError(err).Error("[CONTENT] Draft generation failed")
			return domainContent.Item{}, pkgError.InternalServerError("draft generation failed: " + err.Error())
		}
	}

	if body == "" {
		return domainContent.Item{}, pkgError.ValidationError("body: cannot be blank (provide body or topic).")
	}

	now := service.now().UTC()
	item := domainContent.Item{
		ID:        uuid.NewString(),
		UserID:    request.UserID,
		Title:     title,
		Body:      body,
		MediaURL:  strings.TrimSpace(request.MediaURL),
		Status:    domainContent.StatusReview,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := service.repo.CreateContent(ctx, item); err != nil {
		return domainContent.Item{}, err
	}
	return item, nil
}

func (service *serviceContent) Get(ctx context.Context, userID, id string) (domainContent.Item, error) {
	item, err := service.repo.GetContent(ctx, id)
	if err != nil {
		return domainContent.Item{}, err
	}
	if item.UserID != userID {
		return domainContent.Item{}, domainContent.ErrContentNotFound
	}
	return item, nil
}

func (service *serviceContent) List(ctx context.Context, userID string) ([]domainContent.Item, error) {
	return service.repo.ListContent(ctx, userID)
}

func (service *serviceContent) Update(ctx context.Context, request domainContent.UpdateContentRequest) (domainContent.Item, error) {
	item, err := service.Get(ctx, request.UserID, request.ID)
	if err != nil {
		return domainContent.Item{}, err
	}

	if request.Title != nil {
		item.Title = strings.TrimSpace(*request.Title)
	}
	if request.Body != nil {
		body := strings.TrimSpace(*request.Body)
		if body == "" {
			return domainContent.Item{}, pkgError.ValidationError("body: cannot be blank.")
		}
		item.Body = body
	}
	if request.MediaURL != nil {
		item.MediaURL = strings.TrimSpace(*request.MediaURL)
	}
	item.UpdatedAt = service.now().UTC()

	if err := service.repo.UpdateContent(ctx, item); err != nil {
		return domainContent.Item{}, err
	}
	return item, nil
}

// Delete removes the draft together with its pending ledger rows. Posted
// history is preserved.
func (service *serviceContent) Delete(ctx context.Context, userID, id string) error {
	if _, err := service.Get(ctx, userID, id); err != nil {
		return err
	}
	return service.repo.DeleteContent(ctx, id)
}
