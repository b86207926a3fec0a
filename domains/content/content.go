package content

import (
	"context"
	"errors"
	"time"
)

type Status string

const (
	StatusReview    Status = "review"
	StatusScheduled Status = "scheduled"
	StatusPublished Status = "published"
)

var ErrContentNotFound = errors.New("content item not found")

// Item is a generated (or hand-written) post draft owned by a user.
type Item struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	MediaURL  string    `json:"media_url,omitempty"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ISource is what the dispatch engine needs from the content store.
type ISource interface {
	GetContent(ctx context.Context, contentID string) (Item, error)
}

// IGenerator drafts post copy from a topic. Implemented by the OpenAI
// integration; stubbed in tests.
type IGenerator interface {
	GenerateDraft(ctx context.Context, topic string) (title, body string, err error)
}

// CreateContentRequest creates a draft. When Topic is set and Title/Body are
// empty, the AI generator fills them in.
type CreateContentRequest struct {
	UserID   string `json:"user_id"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	MediaURL string `json:"media_url"`
	Topic    string `json:"topic"`
}

// UpdateContentRequest patches a draft; nil fields are left untouched.
type UpdateContentRequest struct {
	ID       string  `json:"id"`
	UserID   string  `json:"user_id"`
	Title    *string `json:"title"`
	Body     *string `json:"body"`
	MediaURL *string `json:"media_url"`
}

type IContentUsecase interface {
	Create(ctx context.Context, request CreateContentRequest) (Item, error)
	Get(ctx context.Context, userID, id string) (Item, error)
	List(ctx context.Context, userID string) ([]Item, error)
	Update(ctx context.Context, request UpdateContentRequest) (Item, error)
	// Delete removes the draft and cancels its pending scheduled posts.
	Delete(ctx context.Context, userID, id string) error
}
