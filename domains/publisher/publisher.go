package publisher

import (
	"context"
	"fmt"

	"github.com/AzielCF/az-post/domains/credential"
	"github.com/AzielCF/az-post/domains/post"
)

// Content is the generic shape every publisher maps onto its platform's
// request format. MediaURL is required by Instagram only.
type Content struct {
	Title    string
	Body     string
	MediaURL string
}

// Publisher performs the actual external post and returns the platform's ID
// for it. Implementations surface the platform's error payload verbatim.
type Publisher interface {
	Platform() post.Platform
	Publish(ctx context.Context, content Content, cred credential.Credential) (remotePostID string, err error)
}

// Registry is the closed platform -> publisher mapping. It is assembled once
// at boot; resolving an unregistered platform is a wiring bug surfaced as an
// error, not a silent skip.
type Registry struct {
	publishers map[post.Platform]Publisher
}

func NewRegistry(publishers ...Publisher) (*Registry, error) {
	r := &Registry{publishers: make(map[post.Platform]Publisher, len(publishers))}
	for _, p := range publishers {
		if !p.Platform().Valid() {
			return nil, fmt.Errorf("publisher registered for unknown platform %q", p.Platform())
		}
		if _, dup := r.publishers[p.Platform()]; dup {
			return nil, fmt.Errorf("duplicate publisher for platform %q", p.Platform())
		}
		r.publishers[p.Platform()] = p
	}
	return r, nil
}

// Resolve returns the publisher for a platform.
func (r *Registry) Resolve(platform post.Platform) (Publisher, error) {
	p, ok := r.publishers[platform]
	if !ok {
		return nil, fmt.Errorf("no publisher registered for platform %q", platform)
	}
	return p, nil
}
