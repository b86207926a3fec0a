package credential

import (
	"context"
	"errors"
	"time"

	"github.com/AzielCF/az-post/domains/post"
)

var (
	ErrCredentialNotFound = errors.New("no credential stored for this platform")
	ErrCredentialExpired  = errors.New("credential for this platform has expired")
)

// Credential is a stored OAuth bearer token for one (user, platform) pair.
// AccountRef is the platform-side identity the token publishes as (LinkedIn
// author URN, Facebook page ID, Instagram business account ID).
type Credential struct {
	ID          string        `json:"id"`
	UserID      string        `json:"user_id"`
	Platform    post.Platform `json:"platform"`
	AccessToken string        `json:"-"`
	AccountRef  string        `json:"account_ref"`
	ExpiresAt   *time.Time    `json:"expires_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Expired reports whether the token is past its expiry, if one is known.
func (c Credential) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !c.ExpiresAt.After(now)
}

// IStore resolves tokens for the dispatch engine.
type IStore interface {
	GetToken(ctx context.Context, userID string, platform post.Platform) (Credential, error)
}

type UpsertCredentialRequest struct {
	UserID      string        `json:"user_id"`
	Platform    post.Platform `json:"platform"`
	AccessToken string        `json:"access_token"`
	AccountRef  string        `json:"account_ref"`
	ExpiresAt   *time.Time    `json:"expires_at"`
}

type ICredentialUsecase interface {
	Upsert(ctx context.Context, request UpsertCredentialRequest) (Credential, error)
	List(ctx context.Context, userID string) ([]Credential, error)
	Delete(ctx context.Context, userID, id string) error
}
