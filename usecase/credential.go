package usecase

import (
	"context"
	"time"

	domainCredential "github.com/AzielCF/az-post/domains/credential"
	"github.com/AzielCF/az-post/repository"
	"github.com/AzielCF/az-post/validations"
	"github.com/sirupsen/logrus"
)

type serviceCredential struct {
	repo repository.ICredentialRepository
	now  func() time.Time
}

func NewCredentialService(repo repository.ICredentialRepository) domainCredential.ICredentialUsecase {
	return &serviceCredential{repo: repo, now: time.Now}
}

// Upsert stores or replaces the token for one (user, platform) pair. Tokens
// are write-only through the API; list responses never echo them back.
func (service *serviceCredential) Upsert(ctx context.Context, request domainCredential.UpsertCredentialRequest) (domainCredential.Credential, error) {
	if err := validations.ValidateUpsertCredential(ctx, request); err != nil {
		return domainCredential.Credential{}, err
	}

	cred, err := service.repo.Upsert(ctx, domainCredential.Credential{
		UserID:      request.UserID,
		Platform:    request.Platform,
		AccessToken: request.AccessToken,
		AccountRef:  request.AccountRef,
		ExpiresAt:   request.ExpiresAt,
	})
	if err != nil {
		return domainCredential.Credential{}, err
	}

	logrus.Infof("[CREDENTIAL] Stored %s token for user %s", cred.Platform, cred.UserID)
	return cred, nil
}

func (service *serviceCredential) List(ctx context.Context, userID string) ([]domainCredential.Credential, error) {
	return service.repo.ListByUser(ctx, userID)
}

func (service *serviceCredential) Delete(ctx context.Context, userID, id string) error {
	creds, err := service.repo.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	for _, cred := range creds {
		if cred.ID == id {
			return service.repo.Delete(ctx, id)
		}
	}
	return domainCredential.ErrCredentialNotFound
}
