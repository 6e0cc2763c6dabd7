package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrymomot/notifyhub/internal/domain"
)

// GitHubConfig controls the release connector.
type GitHubConfig struct {
	BaseURL string        `env:"GITHUB_API_BASE_URL" envDefault:"https://api.github.com"`
	Token   string        `env:"GITHUB_API_TOKEN"`
	Timeout time.Duration `env:"GITHUB_API_TIMEOUT" envDefault:"10s"`
}

// GitHub polls repository releases. Params schema: {"repo":"owner/name"}.
type GitHub struct {
	cfg    GitHubConfig
	client *http.Client
	log    *slog.Logger
}

// NewGitHub creates the release connector.
func NewGitHub(cfg GitHubConfig, log *slog.Logger) *GitHub {
	return &GitHub{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log,
	}
}

func (g *GitHub) SourceType() string { return "GITHUB" }

type githubParams struct {
	Repo string `json:"repo"`
}

type githubRelease struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	TagName string `json:"tag_name"`
}

func (g *GitHub) Poll(ctx context.Context, params string) ([]domain.Event, error) {
	var p githubParams
	if err := json.Unmarshal([]byte(params), &p); err != nil {
		return nil, fmt.Errorf("parse github params: %w", err)
	}
	if p.Repo == "" {
		g.log.WarnContext(ctx, "github connector called without repo param")
		return nil, nil
	}

	url := fmt.Sprintf("%s/repos/%s/releases?per_page=10", g.cfg.BaseURL, p.Repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build github request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if g.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+g.cfg.Token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch github releases for %s: %w", p.Repo, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read github response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github responded %d for %s", resp.StatusCode, p.Repo)
	}

	// Raw messages are kept so the payload carries the full release
	// object, not just the fields this connector reads.
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode github releases: %w", err)
	}

	events := make([]domain.Event, 0, len(raw))
	for _, item := range raw {
		var release githubRelease
		if err := json.Unmarshal(item, &release); err != nil {
			g.log.WarnContext(ctx, "skipping malformed github release", "repo", p.Repo, "error", err)
			continue
		}

		title := release.Name
		if title == "" {
			title = release.TagName
		}

		events = append(events, domain.Event{
			SourceType: "GITHUB",
			ExternalID: "github:" + p.Repo + ":" + strconv.FormatInt(release.ID, 10),
			Title:      title,
			Payload:    string(item),
			Priority:   domain.PriorityMedium,
			CreatedAt:  time.Now(),
		})
	}
	return events, nil
}
