// Package crawler defines core types shared across subsystems.
package crawler

import "time"

// ImageRole identifies which artwork slot an image fills on a movie.
type ImageRole string

// Image roles recognized by the media pipeline and the alternate sources.
const (
	RoleThumb  ImageRole = "thumb"
	RolePoster ImageRole = "poster"
)

// Movie types stored on the catalog record.
const (
	MovieTypeSeries = "series"
	MovieTypeSingle = "single"
)

// Payload types that force an extra category during sync.
const (
	PayloadTypeAnimation = "hoathinh"
	PayloadTypeTVShow    = "tvshows"
)

// Payload is the decoded upstream document. It is transient: only its checksum
// and the fields derived from it survive a reconciliation.
type Payload struct {
	Movie    *MoviePayload   `json:"movie"`
	Episodes []EpisodeServer `json:"episodes"`
}

// MoviePayload is the movie section of the upstream document.
type MoviePayload struct {
	ID             string     `json:"_id"`
	Name           string     `json:"name"`
	Slug           string     `json:"slug"`
	OriginName     string     `json:"origin_name"`
	Content        string     `json:"content"`
	Type           string     `json:"type"`
	Status         string     `json:"status"`
	ThumbURL       string     `json:"thumb_url"`
	PosterURL      string     `json:"poster_url"`
	IsCopyright    bool       `json:"is_copyright"`
	TrailerURL     string     `json:"trailer_url"`
	Quality        string     `json:"quality"`
	Lang           string     `json:"lang"`
	Time           string     `json:"time"`
	EpisodeCurrent string     `json:"episode_current"`
	EpisodeTotal   string     `json:"episode_total"`
	Notify         string     `json:"notify"`
	Showtimes      string     `json:"showtimes"`
	ChieuRap       bool       `json:"chieurap"`
	Year           int        `json:"year"`
	Category       []NamedRef `json:"category"`
	Country        []NamedRef `json:"country"`
	Actor          []string   `json:"actor"`
	Director       []string   `json:"director"`
	Created        TimeRef    `json:"created"`
	Modified       TimeRef    `json:"modified"`
}

// NamedRef is a nested object carrying only a display name.
type NamedRef struct {
	Name string `json:"name"`
}

// TimeRef wraps the upstream timestamp envelope.
type TimeRef struct {
	Time string `json:"time"`
}

// EpisodeServer is one named server group with its ordered episode entries.
type EpisodeServer struct {
	ServerName string        `json:"server_name"`
	ServerData []EpisodeData `json:"server_data"`
}

// EpisodeData is a single episode entry within a server group. Either link may
// be empty; each non-empty link produces one episode slot.
type EpisodeData struct {
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	Filename  string `json:"filename"`
	LinkM3U8  string `json:"link_m3u8"`
	LinkEmbed string `json:"link_embed"`
}

// CategoryNames returns the trimmed-nonempty category names of the payload.
func (p *MoviePayload) CategoryNames() []string {
	return refNames(p.Category)
}

// CountryNames returns the trimmed-nonempty country names of the payload.
func (p *MoviePayload) CountryNames() []string {
	return refNames(p.Country)
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
	Duration    time.Duration
}
