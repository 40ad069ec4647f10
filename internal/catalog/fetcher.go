package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tinytelemetry/hunters-journal/internal/model"
)

// ErrNotFound is returned when a slug is not in the catalog.
var ErrNotFound = errors.New("catalog: enemy not found")

// Mode selects the remote data layout.
type Mode string

const (
	// ModeBlob fetches one JSON array of enemies.
	ModeBlob Mode = "blob"
	// ModeAPI fetches a list endpoint and then one detail document per slug.
	ModeAPI Mode = "api"
)

// FetcherConfig configures the remote source.
type FetcherConfig struct {
	Mode       Mode
	BlobURL    string
	APIBaseURL string
	// DetailConcurrency bounds parallel detail requests in API mode.
	DetailConcurrency int
	Timeout           time.Duration
}

// Fetcher performs a single, non-retrying load of the enemy list.
type Fetcher struct {
	cfg    FetcherConfig
	client *http.Client
}

// NewFetcher returns a fetcher. A nil client uses one with cfg.Timeout.
func NewFetcher(cfg FetcherConfig, client *http.Client) *Fetcher {
	if cfg.Mode == "" {
		cfg.Mode = ModeBlob
	}
	if cfg.BlobURL == "" {
		cfg.BlobURL = model.DefaultBlobURL
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = model.DefaultAPIBaseURL
	}
	if cfg.DetailConcurrency <= 0 {
		cfg.DetailConcurrency = 8
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Fetcher{cfg: cfg, client: client}
}

// URL identifies the list request; it is the cache key for the list.
func (f *Fetcher) URL() string {
	if f.cfg.Mode == ModeAPI {
		return strings.TrimRight(f.cfg.APIBaseURL, "/") + "/enemies"
	}
	return f.cfg.BlobURL
}

// Client returns the HTTP client used for remote requests.
func (f *Fetcher) Client() *http.Client {
	return f.client
}

// ListEnemies fetches the list in source order.
func (f *Fetcher) ListEnemies(ctx context.Context) ([]model.Enemy, error) {
	if f.cfg.Mode == ModeAPI {
		return f.fetchAPI(ctx)
	}
	var list []model.Enemy
	if err := f.getJSON(ctx, f.cfg.BlobURL, &list); err != nil {
		return nil, err
	}
	return list, nil
}

type listEnvelope struct {
	Data []model.Enemy `json:"data"`
}

// fetchAPI joins the list endpoint with per-slug detail documents. Any
// failed detail request fails the whole load.
func (f *Fetcher) fetchAPI(ctx context.Context) ([]model.Enemy, error) {
	var env listEnvelope
	if err := f.getJSON(ctx, f.URL(), &env); err != nil {
		return nil, err
	}

	list := env.Data
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.cfg.DetailConcurrency)
	for i := range list {
		g.Go(func() error {
			var detail model.Enemy
			if err := f.getJSON(gctx, f.detailURL(list[i].Slug), &detail); err != nil {
				return err
			}
			list[i] = merge(list[i], detail)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return list, nil
}

func (f *Fetcher) detailURL(slug string) string {
	return strings.TrimRight(f.cfg.APIBaseURL, "/") + "/enemy/" + url.PathEscape(slug)
}

func merge(base, detail model.Enemy) model.Enemy {
	if detail.Name != "" {
		base.Name = detail.Name
	}
	if detail.Image != "" {
		base.Image = detail.Image
	}
	if detail.Description != "" {
		base.Description = detail.Description
	}
	if detail.SecondaryDescription != "" {
		base.SecondaryDescription = detail.SecondaryDescription
	}
	if detail.Location != "" {
		base.Location = detail.Location
	}
	return base
}

func (f *Fetcher) getJSON(ctx context.Context, target string, v any) error {
	body, _, err := f.get(ctx, target)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("catalog: decode %s: %w", target, err)
	}
	return nil
}

func (f *Fetcher) get(ctx context.Context, target string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", fmt.Errorf("catalog: request %s: %w", target, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("catalog: fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("catalog: fetch %s: status %s", target, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("catalog: read %s: %w", target, err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}
