package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/dmitrymomot/notifyhub/internal/domain"
	"github.com/dmitrymomot/notifyhub/pkg/workerpool"
)

// rssMaxItems caps how many entries one poll emits per feed.
const rssMaxItems = 20

// RSSConfig controls the feed connector.
type RSSConfig struct {
	Timeout time.Duration `env:"RSS_FETCH_TIMEOUT" envDefault:"15s"`
}

// RSS polls syndication feeds. Params schema: {"url":"https://..."}.
// Feed parsing runs on the shared blocking pool so large feeds don't
// tie up the poll loop.
type RSS struct {
	client *http.Client
	pool   *workerpool.Pool
	log    *slog.Logger
}

// NewRSS creates the feed connector.
func NewRSS(cfg RSSConfig, pool *workerpool.Pool, log *slog.Logger) *RSS {
	return &RSS{
		client: &http.Client{Timeout: cfg.Timeout},
		pool:   pool,
		log:    log,
	}
}

func (r *RSS) SourceType() string { return "RSS" }

type rssParams struct {
	URL string `json:"url"`
}

type rssPayload struct {
	Title         string `json:"title"`
	Link          string `json:"link,omitempty"`
	Description   string `json:"description,omitempty"`
	PublishedDate string `json:"published_date,omitempty"`
}

func (r *RSS) Poll(ctx context.Context, params string) ([]domain.Event, error) {
	var p rssParams
	if err := json.Unmarshal([]byte(params), &p); err != nil {
		return nil, fmt.Errorf("parse rss params: %w", err)
	}
	if p.URL == "" {
		r.log.WarnContext(ctx, "rss connector called without url param")
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build rss request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", p.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed %s responded %d", p.URL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read feed %s: %w", p.URL, err)
	}

	feed, err := workerpool.Run(ctx, r.pool, func() (*gofeed.Feed, error) {
		return gofeed.NewParser().ParseString(string(body))
	})
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", p.URL, err)
	}

	items := feed.Items
	if len(items) > rssMaxItems {
		items = items[:rssMaxItems]
	}

	events := make([]domain.Event, 0, len(items))
	for _, item := range items {
		externalRef := item.GUID
		if externalRef == "" {
			externalRef = item.Link
		}

		payload := rssPayload{
			Title:       item.Title,
			Link:        item.Link,
			Description: item.Description,
		}
		if item.PublishedParsed != nil {
			payload.PublishedDate = item.PublishedParsed.Format(time.RFC3339)
		}
		payloadJSON, err := json.Marshal(payload)
		if err != nil {
			payloadJSON = []byte("{}")
		}

		events = append(events, domain.Event{
			SourceType: "RSS",
			ExternalID: "rss:" + p.URL + ":" + externalRef,
			Title:      item.Title,
			Payload:    string(payloadJSON),
			Priority:   domain.PriorityMedium,
			CreatedAt:  time.Now(),
		})
	}
	return events, nil
}
