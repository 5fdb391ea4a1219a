// Package reconcile turns upstream payloads into catalog writes: the
// Collector maps a payload to canonical movie attributes, the Engine gates on
// exclusions and the payload checksum and performs the upsert and the
// association and episode syncs.
package reconcile

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/namhuunam/ophim-crawler/internal/catalog"
	"github.com/namhuunam/ophim-crawler/internal/crawler"
	"github.com/namhuunam/ophim-crawler/internal/media"
	"github.com/namhuunam/ophim-crawler/internal/metrics"
	"github.com/namhuunam/ophim-crawler/internal/normalize"
)

// Resolver resolves one artwork request to a usable URL.
type Resolver interface {
	Resolve(ctx context.Context, req media.Request) media.Result
}

// Collector maps a raw payload onto the canonical movie attribute set,
// resolving the two artwork roles through the media pipeline.
type Collector struct {
	resolver Resolver
	logger   *zap.Logger
}

// NewCollector constructs a Collector.
func NewCollector(resolver Resolver, logger *zap.Logger) *Collector {
	return &Collector{resolver: resolver, logger: logger}
}

// Collect builds the attribute set for a payload. The thumbnail is resolved
// first; the poster receives its result as the sibling hint, so a poster
// whose candidates all fail can reuse a cached thumbnail.
func (c *Collector) Collect(ctx context.Context, payload *crawler.Payload, force bool) catalog.Movie {
	m := payload.Movie
	slug := strings.TrimSpace(m.Slug)
	if slug == "" {
		slug = normalize.Slug(m.Name)
	}

	thumb := c.resolver.Resolve(ctx, media.Request{
		Slug:      slug,
		SourceURL: m.ThumbURL,
		Role:      crawler.RoleThumb,
		Force:     force,
	})
	c.observe(crawler.RoleThumb, slug, thumb)

	poster := c.resolver.Resolve(ctx, media.Request{
		Slug:      slug,
		SourceURL: m.PosterURL,
		Role:      crawler.RolePoster,
		Force:     force,
		Sibling:   &thumb,
	})
	c.observe(crawler.RolePoster, slug, poster)

	return catalog.Movie{
		Slug:             slug,
		Name:             m.Name,
		OriginName:       m.OriginName,
		PublishYear:      m.Year,
		Content:          m.Content,
		Type:             deriveType(payload),
		Status:           m.Status,
		ThumbURL:         thumb.URL,
		PosterURL:        poster.URL,
		IsCopyright:      m.IsCopyright,
		TrailerURL:       m.TrailerURL,
		Quality:          m.Quality,
		Language:         m.Lang,
		EpisodeTime:      m.Time,
		EpisodeCurrent:   m.EpisodeCurrent,
		EpisodeTotal:     m.EpisodeTotal,
		Notify:           m.Notify,
		Showtimes:        m.Showtimes,
		IsShownInTheater: m.ChieuRap,
	}
}

// observe logs degradations and feeds the image resolution counters. The
// pipeline itself never fails, so this is the only place outcomes surface.
func (c *Collector) observe(role crawler.ImageRole, slug string, result media.Result) {
	switch {
	case result.Degraded:
		c.logger.Warn("image resolution degraded",
			zap.String("role", string(role)),
			zap.String("slug", slug),
			zap.String("url", result.URL),
			zap.String("reason", result.Reason),
		)
		metrics.ObserveImageResolution(string(role), metrics.ImageDegraded)
	case result.Cached:
		metrics.ObserveImageResolution(string(role), metrics.ImageCached)
	default:
		metrics.ObserveImageResolution(string(role), metrics.ImageResolved)
	}
}

// deriveType honors an explicit series/single from the source and otherwise
// infers series when the first server group carries more than one entry.
func deriveType(payload *crawler.Payload) string {
	switch payload.Movie.Type {
	case crawler.MovieTypeSeries, crawler.MovieTypeSingle:
		return payload.Movie.Type
	}
	if len(payload.Episodes) > 0 && len(payload.Episodes[0].ServerData) > 1 {
		return crawler.MovieTypeSeries
	}
	return crawler.MovieTypeSingle
}
