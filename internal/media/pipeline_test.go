package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"sync"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/namhuunam/ophim-crawler/internal/crawler"
	"github.com/namhuunam/ophim-crawler/internal/storage/memory"
)

// fakeFetcher serves canned responses and records every URL it was asked for.
type fakeFetcher struct {
	mu        sync.Mutex
	responses map[string]crawler.FetchResponse
	errs      map[string]error
	requested []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		responses: make(map[string]crawler.FetchResponse),
		errs:      make(map[string]error),
	}
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (crawler.FetchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requested = append(f.requested, url)
	if err, ok := f.errs[url]; ok {
		return crawler.FetchResponse{}, err
	}
	resp, ok := f.responses[url]
	if !ok {
		return crawler.FetchResponse{StatusCode: http.StatusNotFound}, nil
	}
	return resp, nil
}

func (f *fakeFetcher) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.requested))
	copy(out, f.requested)
	return out
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func imageResponse(body []byte) crawler.FetchResponse {
	return crawler.FetchResponse{StatusCode: http.StatusOK, ContentType: "image/png", Body: body}
}

func newTestPipeline(cfg Config, fetcher crawler.Fetcher, store *memory.BlobStore, sources []SourceConfig) *Pipeline {
	logger := zap.NewNop()
	return NewPipeline(cfg, fetcher, NewAlternateResolver(fetcher, sources, logger), store, logger)
}

func TestResolvePassThrough(t *testing.T) {
	fetcher := newFakeFetcher()
	store := memory.NewBlobStore()

	t.Run("EmptyURL", func(t *testing.T) {
		p := newTestPipeline(Config{Download: true}, fetcher, store, nil)
		result := p.Resolve(context.Background(), Request{Slug: "m", SourceURL: "", Role: crawler.RoleThumb})
		assert.Equal(t, Result{}, result)
	})

	t.Run("DownloadDisabled", func(t *testing.T) {
		p := newTestPipeline(Config{Download: false}, fetcher, store, nil)
		result := p.Resolve(context.Background(), Request{
			Slug: "m", SourceURL: "https://img.example/x.png", Role: crawler.RoleThumb,
		})
		assert.Equal(t, "https://img.example/x.png", result.URL)
		assert.False(t, result.Cached)
	})

	assert.Empty(t, fetcher.calls(), "pass-through must not touch the network")
}

func TestResolveCacheShortCircuit(t *testing.T) {
	fetcher := newFakeFetcher()
	store := memory.NewBlobStore()
	store.Seed("images/test-movie/thumb.png", []byte("cached"))

	p := newTestPipeline(Config{Download: true}, fetcher, store, nil)
	result := p.Resolve(context.Background(), Request{
		Slug:      "test-movie",
		SourceURL: "https://img.example/thumb.png?token=abc",
		Role:      crawler.RoleThumb,
	})

	assert.Equal(t, "memory://images/test-movie/thumb.png", result.URL)
	assert.True(t, result.Cached)
	assert.False(t, result.Degraded)
	assert.Empty(t, fetcher.calls(), "cache hit must not issue a network call")
}

func TestResolveForceBypassesCache(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.responses["https://img.example/thumb.png"] = imageResponse(pngBytes(t, 10, 10))
	store := memory.NewBlobStore()
	store.Seed("images/test-movie/thumb.png", []byte("stale"))

	p := newTestPipeline(Config{Download: true}, fetcher, store, nil)
	result := p.Resolve(context.Background(), Request{
		Slug:      "test-movie",
		SourceURL: "https://img.example/thumb.png",
		Role:      crawler.RoleThumb,
		Force:     true,
	})

	require.True(t, result.Cached)
	assert.Len(t, fetcher.calls(), 1)
	data, ok := store.Get("images/test-movie/thumb.png")
	require.True(t, ok)
	assert.NotEqual(t, []byte("stale"), data)
}

func TestResolveSuccessStoresImage(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.responses["https://img.example/poster.png"] = imageResponse(pngBytes(t, 20, 30))
	store := memory.NewBlobStore()

	p := newTestPipeline(Config{Download: true}, fetcher, store, nil)
	result := p.Resolve(context.Background(), Request{
		Slug:      "test-movie",
		SourceURL: "https://img.example/poster.png",
		Role:      crawler.RolePoster,
	})

	assert.Equal(t, "memory://images/test-movie/poster.png", result.URL)
	assert.True(t, result.Cached)
	assert.False(t, result.Degraded)
	_, ok := store.Get("images/test-movie/poster.png")
	assert.True(t, ok)
}

func TestResolveXMLBodyWith200FallsBack(t *testing.T) {
	const (
		src = "https://img.example/thumb.jpg"
		alt = "https://alt-cdn.example/thumb-alt.jpg"
	)
	fetcher := newFakeFetcher()
	// The provider lies: 200 with an image content type, but an XML error
	// envelope in the body. This must never be persisted as artwork.
	fetcher.responses[src] = crawler.FetchResponse{
		StatusCode:  http.StatusOK,
		ContentType: "image/jpeg",
		Body:        []byte(`<?xml version="1.0"?><Error><Code>NoSuchKey</Code></Error>`),
	}
	fetcher.responses["https://alt-a.example/phim/test-movie"] = crawler.FetchResponse{
		StatusCode:  http.StatusOK,
		ContentType: "application/json",
		Body:        []byte(fmt.Sprintf(`{"status":true,"movie":{"thumb_url":%q,"poster_url":""}}`, alt)),
	}
	fetcher.responses[alt] = imageResponse(pngBytes(t, 10, 10))

	store := memory.NewBlobStore()
	sources := []SourceConfig{
		{Name: "alt-a", Endpoint: "https://alt-a.example/phim/%s", Marker: MarkerBool},
		{Name: "alt-b", Endpoint: "https://alt-b.example/api/film/%s", Marker: MarkerString},
	}
	p := newTestPipeline(Config{Download: true}, fetcher, store, sources)

	result := p.Resolve(context.Background(), Request{
		Slug:      "test-movie",
		SourceURL: src,
		Role:      crawler.RoleThumb,
	})

	assert.Equal(t, "memory://images/test-movie/thumb-alt.jpg", result.URL)
	assert.True(t, result.Cached)
	_, ok := store.Get("images/test-movie/thumb.jpg")
	assert.False(t, ok, "the XML envelope must not be cached")
}

func TestResolveThumbAllCandidatesFailKeepsOriginal(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.responses["https://img.example/thumb.jpg"] = crawler.FetchResponse{StatusCode: http.StatusBadGateway}
	store := memory.NewBlobStore()

	p := newTestPipeline(Config{Download: true}, fetcher, store, nil)
	result := p.Resolve(context.Background(), Request{
		Slug:      "test-movie",
		SourceURL: "https://img.example/thumb.jpg",
		Role:      crawler.RoleThumb,
	})

	assert.Equal(t, "https://img.example/thumb.jpg", result.URL)
	assert.False(t, result.Cached)
	assert.True(t, result.Degraded)
	assert.Contains(t, result.Reason, "502")
}

func TestResolvePosterReusesCachedThumb(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.responses["https://img.example/poster.jpg"] = crawler.FetchResponse{StatusCode: http.StatusNotFound}
	store := memory.NewBlobStore()

	p := newTestPipeline(Config{Download: true}, fetcher, store, nil)
	sibling := &Result{URL: "memory://images/test-movie/thumb.jpg", Cached: true}
	result := p.Resolve(context.Background(), Request{
		Slug:      "test-movie",
		SourceURL: "https://img.example/poster.jpg",
		Role:      crawler.RolePoster,
		Sibling:   sibling,
	})

	assert.Equal(t, sibling.URL, result.URL)
	assert.True(t, result.Degraded)
}

func TestResolvePosterIgnoresUncachedSibling(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.responses["https://img.example/poster.jpg"] = crawler.FetchResponse{StatusCode: http.StatusNotFound}
	store := memory.NewBlobStore()

	p := newTestPipeline(Config{Download: true}, fetcher, store, nil)
	// Thumbnail itself degraded to its original remote URL; reusing it
	// for the poster would just duplicate a broken link.
	sibling := &Result{URL: "https://img.example/thumb.jpg", Degraded: true}
	result := p.Resolve(context.Background(), Request{
		Slug:      "test-movie",
		SourceURL: "https://img.example/poster.jpg",
		Role:      crawler.RolePoster,
		Sibling:   sibling,
	})

	assert.Equal(t, "https://img.example/poster.jpg", result.URL)
	assert.True(t, result.Degraded)
}

func TestResolveDecodeFailureDegradesToSource(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.responses["https://img.example/thumb.jpg"] = crawler.FetchResponse{
		StatusCode:  http.StatusOK,
		ContentType: "image/jpeg",
		Body:        []byte("definitely not an image"),
	}
	store := memory.NewBlobStore()

	p := newTestPipeline(Config{Download: true}, fetcher, store, nil)
	result := p.Resolve(context.Background(), Request{
		Slug:      "test-movie",
		SourceURL: "https://img.example/thumb.jpg",
		Role:      crawler.RoleThumb,
	})

	assert.Equal(t, "https://img.example/thumb.jpg", result.URL)
	assert.True(t, result.Degraded)
	assert.Contains(t, result.Reason, "process image")
}

func TestResolveWebPConversionSwapsExtension(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.responses["https://img.example/thumb.png"] = imageResponse(pngBytes(t, 10, 10))
	store := memory.NewBlobStore()

	p := newTestPipeline(Config{Download: true, ConvertWebP: true}, fetcher, store, nil)
	result := p.Resolve(context.Background(), Request{
		Slug:      "test-movie",
		SourceURL: "https://img.example/thumb.png",
		Role:      crawler.RoleThumb,
	})

	assert.Equal(t, "memory://images/test-movie/thumb.webp", result.URL)
	_, ok := store.Get("images/test-movie/thumb.webp")
	assert.True(t, ok)
}

func TestResolveResizeDownscalesOnly(t *testing.T) {
	store := memory.NewBlobStore()
	cfg := Config{
		Download:    true,
		ResizeThumb: ResizeConfig{Enabled: true, Width: 8, Height: 8},
	}

	t.Run("LargeImageShrinks", func(t *testing.T) {
		fetcher := newFakeFetcher()
		fetcher.responses["https://img.example/big.png"] = imageResponse(pngBytes(t, 32, 16))
		p := newTestPipeline(cfg, fetcher, store, nil)

		result := p.Resolve(context.Background(), Request{
			Slug: "m1", SourceURL: "https://img.example/big.png", Role: crawler.RoleThumb,
		})
		require.True(t, result.Cached)

		data, ok := store.Get("images/m1/big.png")
		require.True(t, ok)
		img, err := imaging.Decode(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, 8, img.Bounds().Dx())
		assert.Equal(t, 4, img.Bounds().Dy(), "aspect ratio must be preserved")
	})

	t.Run("SmallImageUntouched", func(t *testing.T) {
		original := pngBytes(t, 4, 4)
		fetcher := newFakeFetcher()
		fetcher.responses["https://img.example/small.png"] = imageResponse(original)
		p := newTestPipeline(cfg, fetcher, store, nil)

		result := p.Resolve(context.Background(), Request{
			Slug: "m2", SourceURL: "https://img.example/small.png", Role: crawler.RoleThumb,
		})
		require.True(t, result.Cached)

		data, ok := store.Get("images/m2/small.png")
		require.True(t, ok)
		assert.Equal(t, original, data, "an image inside the bounds is stored verbatim")
	})
}
