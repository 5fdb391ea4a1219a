package media

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/namhuunam/ophim-crawler/internal/crawler"
	"github.com/namhuunam/ophim-crawler/internal/storage"
)

// webpQuality is the fixed lossy quality used when converting artwork.
const webpQuality = 80

// ResizeConfig bounds one image role. Aspect ratio is preserved and images
// are never upscaled or cropped.
type ResizeConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Width   int  `mapstructure:"width"`
	Height  int  `mapstructure:"height"`
}

// Config carries every artwork option, injected at construction.
type Config struct {
	Download     bool         `mapstructure:"download"`
	ConvertWebP  bool         `mapstructure:"convert_webp"`
	ResizeThumb  ResizeConfig `mapstructure:"resize_thumb"`
	ResizePoster ResizeConfig `mapstructure:"resize_poster"`
}

// Request identifies one image to resolve.
type Request struct {
	Slug      string
	SourceURL string
	Role      crawler.ImageRole
	// Force bypasses the cache short-circuit and re-downloads.
	Force bool
	// Sibling is the already-resolved thumbnail when resolving a poster;
	// its cached URL backstops a poster whose every candidate failed.
	Sibling *Result
}

// Result is the outcome of a resolution. URL is always usable: resolution
// never fails outright, it degrades to the best URL available.
type Result struct {
	URL      string
	Cached   bool   // URL points into the blob store
	Degraded bool   // a fallback or pass-through was taken after a failure
	Reason   string // why, when Degraded
}

// Pipeline resolves artwork URLs: cache check, fetch, failure
// classification, bounded fallback over alternate sources, optional
// resize/webp conversion and blob store write.
type Pipeline struct {
	cfg        Config
	fetcher    crawler.Fetcher
	alternates *AlternateResolver
	store      storage.Provider
	logger     *zap.Logger
}

// NewPipeline constructs a Pipeline.
func NewPipeline(cfg Config, fetcher crawler.Fetcher, alternates *AlternateResolver, store storage.Provider, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		fetcher:    fetcher,
		alternates: alternates,
		store:      store,
		logger:     logger,
	}
}

// Resolve resolves one image to a final URL. The candidate list starts with
// the source URL; when it fails, the alternate sources are queried once and
// their replacements appended, bounding what the original implemented as
// recursive re-entry.
func (p *Pipeline) Resolve(ctx context.Context, req Request) Result {
	if req.SourceURL == "" || !p.cfg.Download {
		return Result{URL: req.SourceURL}
	}

	candidates := []string{req.SourceURL}
	triedAlternates := false
	lastReason := ""

	for i := 0; i < len(candidates); i++ {
		candidate := candidates[i]
		cachePath := p.cachePath(req.Slug, candidate)
		if cachePath == "" {
			lastReason = fmt.Sprintf("no usable filename in %q", candidate)
			continue
		}

		if !req.Force {
			if ok, err := p.store.Exists(ctx, cachePath); err == nil && ok {
				return Result{URL: p.store.PublicURL(cachePath), Cached: true}
			}
		}

		resp, err := p.fetcher.Fetch(ctx, candidate)
		if reason := classifyFetch(resp, err); reason != "" {
			lastReason = reason
			p.logger.Warn("image fetch failed",
				zap.String("slug", req.Slug),
				zap.String("role", string(req.Role)),
				zap.String("url", candidate),
				zap.String("reason", reason))
			if !triedAlternates {
				triedAlternates = true
				candidates = append(candidates, p.alternates.Lookup(ctx, req.Slug, req.Role)...)
			}
			continue
		}

		finalURL, perr := p.process(ctx, cachePath, req.Role, resp)
		if perr != nil {
			// A decode or store failure is not worth another candidate:
			// the bytes were fine over the wire, keep the source URL.
			return Result{
				URL:      req.SourceURL,
				Degraded: true,
				Reason:   fmt.Sprintf("process image: %v", perr),
			}
		}
		return Result{URL: finalURL, Cached: true}
	}

	// Every candidate failed.
	if req.Role == crawler.RolePoster && req.Sibling != nil && req.Sibling.Cached {
		return Result{
			URL:      req.Sibling.URL,
			Cached:   true,
			Degraded: true,
			Reason:   "poster unavailable, reusing cached thumbnail",
		}
	}
	return Result{URL: req.SourceURL, Degraded: true, Reason: lastReason}
}

// classifyFetch reports why a fetch result is unusable, or "" when it is a
// valid image response. Providers have been seen returning XML error
// envelopes with a 200 status and a misleading content type, so the body is
// inspected too.
func classifyFetch(resp crawler.FetchResponse, err error) string {
	if err != nil {
		return fmt.Sprintf("transport: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Sprintf("unexpected status %d", resp.StatusCode)
	}
	if strings.Contains(strings.ToLower(resp.ContentType), "xml") {
		return "xml content type"
	}
	if bytes.HasPrefix(resp.Body, []byte("<?xml")) || bytes.Contains(resp.Body, []byte("<Error>")) {
		return "xml error body"
	}
	return ""
}

// cachePath derives the blob path for a source URL: query parameters are
// stripped, the last path segment becomes the filename, and the extension is
// swapped when webp conversion is on.
func (p *Pipeline) cachePath(slug, rawURL string) string {
	trimmed := rawURL
	if i := strings.Index(trimmed, "?"); i >= 0 {
		trimmed = trimmed[:i]
	}
	filename := trimmed[strings.LastIndex(trimmed, "/")+1:]
	if filename == "" {
		return ""
	}
	if p.cfg.ConvertWebP {
		filename = strings.TrimSuffix(filename, path.Ext(filename)) + ".webp"
	}
	return fmt.Sprintf("images/%s/%s", slug, filename)
}

func (p *Pipeline) resizeFor(role crawler.ImageRole) ResizeConfig {
	if role == crawler.RolePoster {
		return p.cfg.ResizePoster
	}
	return p.cfg.ResizeThumb
}
