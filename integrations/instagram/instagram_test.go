package instagram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AzielCF/az-post/domains/credential"
	"github.com/AzielCF/az-post/domains/publisher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublish_RequiresMediaBeforeAnyNetworkCall(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	pub := NewPublisher(server.URL)
	_, err := pub.Publish(context.Background(), publisher.Content{Body: "no image"}, credential.Credential{
		AccessToken: "tok",
		AccountRef:  "178001",
	})

	require.ErrorIs(t, err, ErrMissingMedia)
	assert.False(t, called, "precondition failure must not reach the API")
}

func TestPublish_TwoStepContainerFlow(t *testing.T) {
	var paths []string
	var creationID string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		paths = append(paths, r.URL.Path)
		switch r.URL.Path {
		case "/178001/media":
			assert.Equal(t, "https://cdn.test/pic.jpg", r.Form.Get("image_url"))
			w.Write([]byte(`{"id":"container-9"}`))
		case "/178001/media_publish":
			creationID = r.Form.Get("creation_id")
			w.Write([]byte(`{"id":"media-42"}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	pub := NewPublisher(server.URL)
	remoteID, err := pub.Publish(context.Background(), publisher.Content{
		Body:     "look at this",
		MediaURL: "https://cdn.test/pic.jpg",
	}, credential.Credential{
		AccessToken: "tok",
		AccountRef:  "178001",
	})

	require.NoError(t, err)
	assert.Equal(t, "media-42", remoteID)
	assert.Equal(t, []string{"/178001/media", "/178001/media_publish"}, paths)
	assert.Equal(t, "container-9", creationID)
}

func TestPublish_ContainerErrorStopsFlow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/178001/media", r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Invalid image URL"}}`))
	}))
	defer server.Close()

	pub := NewPublisher(server.URL)
	_, err := pub.Publish(context.Background(), publisher.Content{
		Body:     "x",
		MediaURL: "https://cdn.test/broken.jpg",
	}, credential.Credential{AccessToken: "tok", AccountRef: "178001"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "create media container")
	assert.Contains(t, err.Error(), "Invalid image URL")
}
