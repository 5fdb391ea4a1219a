// Package media implements artwork acquisition: fetch, failure
// classification, alternate-source fallback, resize/re-encode and blob
// caching.
package media

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/namhuunam/ophim-crawler/internal/crawler"
)

// Success marker styles used by the known alternate metadata APIs.
const (
	MarkerBool   = "bool"    // {"status": true, ...}
	MarkerString = "success" // {"status": "success", ...}
)

// SourceConfig describes one alternate metadata API, queried by slug.
type SourceConfig struct {
	Name string `mapstructure:"name"`
	// Endpoint is a format string with one %s verb for the movie slug.
	Endpoint string `mapstructure:"endpoint"`
	// Marker selects how the response's status field signals success.
	Marker string `mapstructure:"marker"`
}

// AlternateResolver queries a fixed, ordered list of secondary metadata APIs
// for replacement artwork URLs. All sources are best-effort and
// non-authoritative: any transport or decode failure just skips the source.
type AlternateResolver struct {
	fetcher crawler.Fetcher
	sources []SourceConfig
	timeout time.Duration
	logger  *zap.Logger
}

// NewAlternateResolver builds an AlternateResolver over the configured
// sources, in order.
func NewAlternateResolver(fetcher crawler.Fetcher, sources []SourceConfig, logger *zap.Logger) *AlternateResolver {
	return &AlternateResolver{
		fetcher: fetcher,
		sources: sources,
		timeout: 10 * time.Second,
		logger:  logger,
	}
}

// alternatePayload is the response shape both known APIs share. The status
// field is a bool on one and a string on the other.
type alternatePayload struct {
	Status json.RawMessage `json:"status"`
	Movie  struct {
		ThumbURL  string `json:"thumb_url"`
		PosterURL string `json:"poster_url"`
	} `json:"movie"`
}

// Lookup returns the ordered list of non-empty replacement URLs for the slug
// and role, querying every configured source.
func (r *AlternateResolver) Lookup(ctx context.Context, slug string, role crawler.ImageRole) []string {
	var urls []string
	for _, source := range r.sources {
		replacement, err := r.lookupSource(ctx, source, slug, role)
		if err != nil {
			r.logger.Debug("alternate source lookup failed",
				zap.String("source", source.Name),
				zap.String("slug", slug),
				zap.Error(err))
			continue
		}
		if replacement == "" {
			continue
		}
		r.logger.Info("found replacement image",
			zap.String("source", source.Name),
			zap.String("slug", slug),
			zap.String("role", string(role)),
			zap.String("url", replacement))
		urls = append(urls, replacement)
	}
	return urls
}

func (r *AlternateResolver) lookupSource(ctx context.Context, source SourceConfig, slug string, role crawler.ImageRole) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	endpoint := fmt.Sprintf(source.Endpoint, url.PathEscape(slug))
	resp, err := r.fetcher.Fetch(ctx, endpoint)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var payload alternatePayload
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if !markerMatches(source.Marker, payload.Status) {
		return "", nil
	}
	if role == crawler.RolePoster {
		return payload.Movie.PosterURL, nil
	}
	return payload.Movie.ThumbURL, nil
}

func markerMatches(marker string, status json.RawMessage) bool {
	switch marker {
	case MarkerString:
		var s string
		return json.Unmarshal(status, &s) == nil && s == "success"
	default:
		var b bool
		return json.Unmarshal(status, &b) == nil && b
	}
}
