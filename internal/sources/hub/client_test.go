package hub_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finopshub/advisor/internal/config"
	"github.com/finopshub/advisor/internal/sources"
	"github.com/finopshub/advisor/internal/sources/hub"
	"github.com/finopshub/advisor/pkg/errors"
	"github.com/finopshub/advisor/pkg/recommend"
)

func testOptions() sources.Options {
	return sources.Options{
		MaxRetries:        2,
		RetryBackoff:      time.Millisecond,
		MaxRetryBackoff:   5 * time.Millisecond,
		RegionConcurrency: 2,
		MaxPages:          10,
		PageSize:          2,
	}
}

func TestHubPagination(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "us-east-1", r.URL.Query().Get("region"))

		var body map[string]any
		switch r.URL.Query().Get("pageToken") {
		case "":
			body = map[string]any{
				"recommendations": []map[string]any{
					{"resourceId": "i-1", "service": "ec2"},
					{"resourceId": "i-2", "service": "ec2"},
				},
				"nextPageToken": "tok-2",
			}
		case "tok-2":
			body = map[string]any{
				"recommendations": []map[string]any{
					{"resourceId": "i-3", "service": "rds"},
				},
			}
		default:
			t.Fatalf("unexpected page token %q", r.URL.Query().Get("pageToken"))
		}
		_ = json.NewEncoder(w).Encode(body)
	}))
	defer srv.Close()

	c := hub.New(config.SourceConfig{Endpoint: srv.URL}, testOptions(), nil)
	result := c.Fetch(context.Background(), []string{"us-east-1"})

	require.Empty(t, result.Errors)
	require.Len(t, result.Records, 3)
	assert.Equal(t, recommend.SourceHub, result.Records[0].Source)
	assert.Equal(t, "i-3", result.Records[2].Fields["resourceId"])
}

func TestHubRateLimitRetry(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"recommendations": []map[string]any{{"resourceId": "i-1"}},
		})
	}))
	defer srv.Close()

	c := hub.New(config.SourceConfig{Endpoint: srv.URL}, testOptions(), nil)
	result := c.Fetch(context.Background(), []string{"us-east-1"})

	assert.Empty(t, result.Errors)
	assert.Len(t, result.Records, 1)
	assert.Equal(t, 2, calls)
}

func TestHubServerErrorExhaustsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := hub.New(config.SourceConfig{Endpoint: srv.URL}, testOptions(), nil)
	result := c.Fetch(context.Background(), []string{"us-east-1"})

	assert.Empty(t, result.Records)
	require.Len(t, result.Errors, 1)
	assert.True(t, errors.IsSourceUnavailable(result.Errors[0]))
}

func TestHubSendsAPIKey(t *testing.T) {
	t.Setenv("TEST_HUB_KEY", "s3cret")

	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(map[string]any{"recommendations": []map[string]any{}})
	}))
	defer srv.Close()

	c := hub.New(config.SourceConfig{Endpoint: srv.URL, APIKeyEnv: "TEST_HUB_KEY"}, testOptions(), nil)
	c.Fetch(context.Background(), []string{"us-east-1"})

	assert.Equal(t, "Bearer s3cret", gotAuth)
}
