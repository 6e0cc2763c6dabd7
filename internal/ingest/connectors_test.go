package ingest_test

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifyhub/internal/domain"
	"github.com/dmitrymomot/notifyhub/internal/ingest"
	"github.com/dmitrymomot/notifyhub/pkg/workerpool"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestPool(t *testing.T) *workerpool.Pool {
	t.Helper()
	pool := workerpool.New(2)
	t.Cleanup(pool.Close)
	return pool
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	gen := ingest.NewGenerator()
	registry := ingest.NewRegistry(gen)

	got, err := registry.Get("GEN")
	require.NoError(t, err)
	assert.Equal(t, gen, got)

	_, err = registry.Get("KAFKA")
	assert.ErrorIs(t, err, ingest.ErrUnknownSource)

	assert.ElementsMatch(t, []string{"GEN"}, registry.SourceTypes())
}

func TestGenerator_Poll(t *testing.T) {
	t.Parallel()

	gen := ingest.NewGenerator()
	events, err := gen.Poll(context.Background(), "{}")
	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.LessOrEqual(t, len(events), 3)

	for _, event := range events {
		assert.Equal(t, "GEN", event.SourceType)
		assert.NotEmpty(t, event.Title)
		assert.True(t, event.Priority.Valid())
		assert.Regexp(t, `^gen:[0-9a-f-]{8}$`, event.ExternalID)
	}
}

func TestGitHub_Poll(t *testing.T) {
	t.Parallel()

	t.Run("maps releases to events", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/repos/golang/go/releases", r.URL.Path)
			assert.Equal(t, "10", r.URL.Query().Get("per_page"))
			assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
			fmt.Fprint(w, `[
				{"id": 101, "name": "Go 1.24", "tag_name": "go1.24"},
				{"id": 102, "name": "", "tag_name": "go1.23.5"}
			]`)
		}))
		defer srv.Close()

		gh := ingest.NewGitHub(ingest.GitHubConfig{BaseURL: srv.URL, Token: "secret"}, discardLogger())
		events, err := gh.Poll(context.Background(), `{"repo":"golang/go"}`)
		require.NoError(t, err)
		require.Len(t, events, 2)

		assert.Equal(t, "GITHUB", events[0].SourceType)
		assert.Equal(t, "github:golang/go:101", events[0].ExternalID)
		assert.Equal(t, "Go 1.24", events[0].Title)
		assert.Equal(t, domain.PriorityMedium, events[0].Priority)
		assert.Contains(t, events[0].Payload, `"tag_name"`)

		// Falls back to the tag when the release has no name.
		assert.Equal(t, "go1.23.5", events[1].Title)
	})

	t.Run("missing repo yields nothing", func(t *testing.T) {
		t.Parallel()

		gh := ingest.NewGitHub(ingest.GitHubConfig{BaseURL: "http://unused"}, discardLogger())
		events, err := gh.Poll(context.Background(), `{}`)
		require.NoError(t, err)
		assert.Empty(t, events)
	})

	t.Run("upstream failure surfaces", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer srv.Close()

		gh := ingest.NewGitHub(ingest.GitHubConfig{BaseURL: srv.URL}, discardLogger())
		_, err := gh.Poll(context.Background(), `{"repo":"golang/go"}`)
		require.Error(t, err)
	})
}

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Status Feed</title>
    <item>
      <title>Service outage resolved</title>
      <link>https://status.example.com/incidents/42</link>
      <guid>incident-42</guid>
      <description>All systems operational again.</description>
      <pubDate>Mon, 09 Mar 2026 08:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Maintenance window announced</title>
      <link>https://status.example.com/incidents/43</link>
      <description>Scheduled for this Sunday.</description>
    </item>
  </channel>
</rss>`

func TestRSS_Poll(t *testing.T) {
	t.Parallel()

	t.Run("maps feed entries to events", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, sampleFeed)
		}))
		defer srv.Close()

		rss := ingest.NewRSS(ingest.RSSConfig{}, newTestPool(t), discardLogger())
		events, err := rss.Poll(context.Background(), fmt.Sprintf(`{"url":%q}`, srv.URL))
		require.NoError(t, err)
		require.Len(t, events, 2)

		assert.Equal(t, "RSS", events[0].SourceType)
		assert.Equal(t, "rss:"+srv.URL+":incident-42", events[0].ExternalID)
		assert.Equal(t, "Service outage resolved", events[0].Title)
		assert.Contains(t, events[0].Payload, "All systems operational again.")

		// Entries without a GUID fall back to the link.
		assert.Equal(t, "rss:"+srv.URL+":https://status.example.com/incidents/43", events[1].ExternalID)
	})

	t.Run("missing url yields nothing", func(t *testing.T) {
		t.Parallel()

		rss := ingest.NewRSS(ingest.RSSConfig{}, newTestPool(t), discardLogger())
		events, err := rss.Poll(context.Background(), `{}`)
		require.NoError(t, err)
		assert.Empty(t, events)
	})

	t.Run("malformed feed surfaces", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "not xml at all")
		}))
		defer srv.Close()

		rss := ingest.NewRSS(ingest.RSSConfig{}, newTestPool(t), discardLogger())
		_, err := rss.Poll(context.Background(), fmt.Sprintf(`{"url":%q}`, srv.URL))
		require.Error(t, err)
	})
}
