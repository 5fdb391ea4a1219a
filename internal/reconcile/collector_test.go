package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/namhuunam/ophim-crawler/internal/crawler"
	"github.com/namhuunam/ophim-crawler/internal/media"
	"github.com/namhuunam/ophim-crawler/internal/metrics"
)

// fakeResolver records requests and answers from a canned result map keyed by
// role, falling back to an echo of the source URL.
type fakeResolver struct {
	results  map[crawler.ImageRole]media.Result
	requests []media.Request
}

func (f *fakeResolver) Resolve(_ context.Context, req media.Request) media.Result {
	f.requests = append(f.requests, req)
	if result, ok := f.results[req.Role]; ok {
		return result
	}
	return media.Result{URL: req.SourceURL}
}

func TestCollectResolvesThumbBeforePosterWithSibling(t *testing.T) {
	metrics.Init()
	resolver := &fakeResolver{results: map[crawler.ImageRole]media.Result{
		crawler.RoleThumb:  {URL: "http://blob/images/test-movie/thumb.webp", Cached: true},
		crawler.RolePoster: {URL: "http://blob/images/test-movie/poster.webp", Cached: true},
	}}
	collector := NewCollector(resolver, zap.NewNop())

	payload := &crawler.Payload{Movie: &crawler.MoviePayload{
		ID:        "abc123",
		Name:      "Test Movie",
		Slug:      "test-movie",
		ThumbURL:  "https://img.example/thumb.jpg",
		PosterURL: "https://img.example/poster.jpg",
	}}
	movie := collector.Collect(context.Background(), payload, false)

	require.Len(t, resolver.requests, 2)
	assert.Equal(t, crawler.RoleThumb, resolver.requests[0].Role)
	assert.Nil(t, resolver.requests[0].Sibling)
	assert.Equal(t, crawler.RolePoster, resolver.requests[1].Role)
	require.NotNil(t, resolver.requests[1].Sibling, "poster request carries the thumb result")
	assert.Equal(t, "http://blob/images/test-movie/thumb.webp", resolver.requests[1].Sibling.URL)

	assert.Equal(t, "http://blob/images/test-movie/thumb.webp", movie.ThumbURL)
	assert.Equal(t, "http://blob/images/test-movie/poster.webp", movie.PosterURL)
}

func TestCollectPassesScalarsThrough(t *testing.T) {
	metrics.Init()
	collector := NewCollector(&fakeResolver{}, zap.NewNop())

	payload := &crawler.Payload{Movie: &crawler.MoviePayload{
		ID:             "abc123",
		Name:           "Test Movie",
		Slug:           "test-movie",
		OriginName:     "Origin Name",
		Content:        "Plot.",
		Type:           "single",
		Status:         "completed",
		Quality:        "HD",
		Lang:           "Vietsub",
		Time:           "90 Phút",
		EpisodeCurrent: "Full",
		EpisodeTotal:   "1",
		Year:           2024,
		ChieuRap:       true,
	}}
	movie := collector.Collect(context.Background(), payload, false)

	assert.Equal(t, "Test Movie", movie.Name)
	assert.Equal(t, "Origin Name", movie.OriginName)
	assert.Equal(t, 2024, movie.PublishYear)
	assert.Equal(t, "single", movie.Type)
	assert.Equal(t, "90 Phút", movie.EpisodeTime)
	assert.Equal(t, "", movie.TrailerURL, "trailer defaults to empty")
	assert.True(t, movie.IsShownInTheater)
}

func TestCollectDerivesSlugWhenPayloadOmitsIt(t *testing.T) {
	metrics.Init()
	collector := NewCollector(&fakeResolver{}, zap.NewNop())

	payload := &crawler.Payload{Movie: &crawler.MoviePayload{
		ID:   "abc123",
		Name: "Người Vợ Cuối Cùng",
	}}
	movie := collector.Collect(context.Background(), payload, false)

	assert.Equal(t, "nguoi-vo-cuoi-cung", movie.Slug)
}

func TestDeriveType(t *testing.T) {
	twoEntries := []crawler.EpisodeServer{{
		ServerName: "#1",
		ServerData: []crawler.EpisodeData{{Name: "1"}, {Name: "2"}},
	}}
	oneEntry := []crawler.EpisodeServer{{
		ServerName: "#1",
		ServerData: []crawler.EpisodeData{{Name: "Full"}},
	}}

	testCases := []struct {
		name     string
		payload  *crawler.Payload
		expected string
	}{
		{
			"explicit series honored",
			&crawler.Payload{Movie: &crawler.MoviePayload{Type: "series"}, Episodes: oneEntry},
			"series",
		},
		{
			"explicit single honored",
			&crawler.Payload{Movie: &crawler.MoviePayload{Type: "single"}, Episodes: twoEntries},
			"single",
		},
		{
			"inferred series from multi-entry server",
			&crawler.Payload{Movie: &crawler.MoviePayload{}, Episodes: twoEntries},
			"series",
		},
		{
			"inferred single from one entry",
			&crawler.Payload{Movie: &crawler.MoviePayload{}, Episodes: oneEntry},
			"single",
		},
		{
			"non-canonical type falls back to inference",
			&crawler.Payload{Movie: &crawler.MoviePayload{Type: "hoathinh"}, Episodes: twoEntries},
			"series",
		},
		{
			"no episodes means single",
			&crawler.Payload{Movie: &crawler.MoviePayload{}},
			"single",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, deriveType(tc.payload))
		})
	}
}
