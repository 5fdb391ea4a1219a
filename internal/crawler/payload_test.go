package crawler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePayload(t *testing.T) {
	t.Run("ValidDocument", func(t *testing.T) {
		body := []byte(`{
			"movie": {
				"_id": "abc123",
				"name": "Test Movie",
				"slug": "test-movie",
				"type": "single",
				"category": [{"name": "Action"}, {"name": ""}],
				"country": [{"name": " Vietnam "}]
			},
			"episodes": [
				{"server_name": "#1", "server_data": [{"name": "1", "link_m3u8": "https://cdn/x.m3u8"}]}
			]
		}`)
		payload, err := ParsePayload(body)
		require.NoError(t, err)
		assert.Equal(t, "abc123", payload.Movie.ID)
		assert.Equal(t, []string{"Action"}, payload.Movie.CategoryNames())
		assert.Equal(t, []string{"Vietnam"}, payload.Movie.CountryNames())
		require.Len(t, payload.Episodes, 1)
		assert.Equal(t, "#1", payload.Episodes[0].ServerName)
	})

	t.Run("MissingMovieSection", func(t *testing.T) {
		_, err := ParsePayload([]byte(`{"episodes": []}`))
		require.ErrorIs(t, err, ErrMalformedPayload)
	})

	t.Run("EmptyMovieID", func(t *testing.T) {
		_, err := ParsePayload([]byte(`{"movie": {"name": "x"}}`))
		require.ErrorIs(t, err, ErrMalformedPayload)
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		_, err := ParsePayload([]byte(`{`))
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrMalformedPayload)
	})
}

func TestParseTime(t *testing.T) {
	cases := []struct {
		name  string
		value string
		ok    bool
		want  time.Time
	}{
		{"RFC3339", "2024-08-09T13:45:00Z", true, time.Date(2024, 8, 9, 13, 45, 0, 0, time.UTC)},
		{"RFC3339Nano", "2024-08-09T13:45:00.000Z", true, time.Date(2024, 8, 9, 13, 45, 0, 0, time.UTC)},
		{"SQLStyle", "2024-08-09 13:45:00", true, time.Date(2024, 8, 9, 13, 45, 0, 0, time.UTC)},
		{"Empty", "", false, time.Time{}},
		{"Garbage", "yesterday", false, time.Time{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseTime(TimeRef{Time: tc.value})
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.True(t, got.Equal(tc.want), "got %v want %v", got, tc.want)
			}
		})
	}
}
