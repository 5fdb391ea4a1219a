package media

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/namhuunam/ophim-crawler/internal/crawler"
)

func altResponse(body string) crawler.FetchResponse {
	return crawler.FetchResponse{
		StatusCode:  http.StatusOK,
		ContentType: "application/json",
		Body:        []byte(body),
	}
}

func TestLookupOrderedSources(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.responses["https://alt-a.example/phim/m"] = altResponse(
		`{"status":true,"movie":{"thumb_url":"https://a/t.jpg","poster_url":"https://a/p.jpg"}}`)
	fetcher.responses["https://alt-b.example/api/film/m"] = altResponse(
		`{"status":"success","movie":{"thumb_url":"https://b/t.jpg","poster_url":"https://b/p.jpg"}}`)

	r := NewAlternateResolver(fetcher, []SourceConfig{
		{Name: "alt-a", Endpoint: "https://alt-a.example/phim/%s", Marker: MarkerBool},
		{Name: "alt-b", Endpoint: "https://alt-b.example/api/film/%s", Marker: MarkerString},
	}, zap.NewNop())

	urls := r.Lookup(context.Background(), "m", crawler.RolePoster)
	assert.Equal(t, []string{"https://a/p.jpg", "https://b/p.jpg"}, urls)

	urls = r.Lookup(context.Background(), "m", crawler.RoleThumb)
	assert.Equal(t, []string{"https://a/t.jpg", "https://b/t.jpg"}, urls)
}

func TestLookupSkipsFailures(t *testing.T) {
	fetcher := newFakeFetcher()
	// alt-a: reports failure through its marker.
	fetcher.responses["https://alt-a.example/phim/m"] = altResponse(`{"status":false,"movie":{"thumb_url":"https://a/t.jpg"}}`)
	// alt-b: wrong marker type entirely.
	fetcher.responses["https://alt-b.example/api/film/m"] = altResponse(`{"status":"error"}`)
	// alt-c: upstream error status.
	fetcher.responses["https://alt-c.example/film/m"] = crawler.FetchResponse{StatusCode: http.StatusInternalServerError}
	// alt-d: not JSON at all.
	fetcher.responses["https://alt-d.example/film/m"] = altResponse(`<html>`)

	r := NewAlternateResolver(fetcher, []SourceConfig{
		{Name: "alt-a", Endpoint: "https://alt-a.example/phim/%s", Marker: MarkerBool},
		{Name: "alt-b", Endpoint: "https://alt-b.example/api/film/%s", Marker: MarkerString},
		{Name: "alt-c", Endpoint: "https://alt-c.example/film/%s", Marker: MarkerBool},
		{Name: "alt-d", Endpoint: "https://alt-d.example/film/%s", Marker: MarkerBool},
	}, zap.NewNop())

	assert.Empty(t, r.Lookup(context.Background(), "m", crawler.RoleThumb))
}

func TestLookupEmptyReplacementDropped(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.responses["https://alt-a.example/phim/m"] = altResponse(`{"status":true,"movie":{"thumb_url":"","poster_url":"https://a/p.jpg"}}`)

	r := NewAlternateResolver(fetcher, []SourceConfig{
		{Name: "alt-a", Endpoint: "https://alt-a.example/phim/%s", Marker: MarkerBool},
	}, zap.NewNop())

	assert.Empty(t, r.Lookup(context.Background(), "m", crawler.RoleThumb))
}

func TestMarkerMatches(t *testing.T) {
	cases := []struct {
		name   string
		marker string
		status string
		want   bool
	}{
		{"bool true", MarkerBool, `true`, true},
		{"bool false", MarkerBool, `false`, false},
		{"bool given string", MarkerBool, `"true"`, false},
		{"string success", MarkerString, `"success"`, true},
		{"string other", MarkerString, `"ok"`, false},
		{"string given bool", MarkerString, `true`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, markerMatches(tc.marker, []byte(tc.status)))
		})
	}
}
