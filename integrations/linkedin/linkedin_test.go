package linkedin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AzielCF/az-post/domains/credential"
	"github.com/AzielCF/az-post/domains/publisher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublish_SendsUGCShareAndReturnsRemoteID(t *testing.T) {
	var gotAuth, gotPath string
	var gotPayload map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		w.Header().Set("X-Restli-Id", "urn:li:share:6001")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"urn:li:share:6001"}`))
	}))
	defer server.Close()

	pub := NewPublisher(server.URL)
	remoteID, err := pub.Publish(context.Background(), publisher.Content{
		Title: "Launch day",
		Body:  "We shipped it.",
	}, credential.Credential{
		AccessToken: "tok-123",
		AccountRef:  "urn:li:person:abc",
	})

	require.NoError(t, err)
	assert.Equal(t, "urn:li:share:6001", remoteID)
	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, "/v2/ugcPosts", gotPath)
	assert.Equal(t, "urn:li:person:abc", gotPayload["author"])

	share := gotPayload["specificContent"].(map[string]any)["com.linkedin.ugc.ShareContent"].(map[string]any)
	assert.Equal(t, "Launch day\n\nWe shipped it.", share["shareCommentary"].(map[string]any)["text"])
}

func TestPublish_SurfacesAPIErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Invalid access token","status":401}`))
	}))
	defer server.Close()

	pub := NewPublisher(server.URL)
	_, err := pub.Publish(context.Background(), publisher.Content{Body: "x"}, credential.Credential{
		AccessToken: "expired",
		AccountRef:  "urn:li:person:abc",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
	assert.Contains(t, err.Error(), "Invalid access token")
}
