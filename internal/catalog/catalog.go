// Package catalog defines the persisted movie model and the Store interface
// the reconciliation engine writes through. By using an interface, the engine
// is decoupled from a specific database implementation.
package catalog

import (
	"context"
	"time"
)

// Movie is the persisted movie record, keyed for reconciliation by the
// (UpdateHandler, UpdateIdentity) pair unique per source system + remote id.
type Movie struct {
	ID               int64
	Slug             string
	Name             string
	OriginName       string
	PublishYear      int
	Content          string
	Type             string
	Status           string
	ThumbURL         string
	PosterURL        string
	IsCopyright      bool
	TrailerURL       string
	Quality          string
	Language         string
	EpisodeTime      string
	EpisodeCurrent   string
	EpisodeTotal     string
	Notify           string
	Showtimes        string
	IsShownInTheater bool

	UpdateHandler  string
	UpdateIdentity string
	UpdateChecksum string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Attribute names accepted in the update whitelist. Association kinds double
// as field names in the same list.
const (
	FieldSlug             = "slug"
	FieldName             = "name"
	FieldOriginName       = "origin_name"
	FieldPublishYear      = "publish_year"
	FieldContent          = "content"
	FieldType             = "type"
	FieldStatus           = "status"
	FieldThumbURL         = "thumb_url"
	FieldPosterURL        = "poster_url"
	FieldIsCopyright      = "is_copyright"
	FieldTrailerURL       = "trailer_url"
	FieldQuality          = "quality"
	FieldLanguage         = "language"
	FieldEpisodeTime      = "episode_time"
	FieldEpisodeCurrent   = "episode_current"
	FieldEpisodeTotal     = "episode_total"
	FieldNotify           = "notify"
	FieldShowtimes        = "showtimes"
	FieldIsShownInTheater = "is_shown_in_theater"
)

// AssociationKind identifies one many-to-many relation of a movie.
type AssociationKind string

// Association kinds. Studios is accepted but intentionally never synced; the
// upstream behavior is a silent no-op and product has not decided otherwise.
const (
	KindActors     AssociationKind = "actors"
	KindDirectors  AssociationKind = "directors"
	KindCategories AssociationKind = "categories"
	KindRegions    AssociationKind = "regions"
	KindTags       AssociationKind = "tags"
	KindStudios    AssociationKind = "studios"
	KindEpisodes   AssociationKind = "episodes"
)

// Actor is a person entity deduplicated by NormalizedName; Name keeps the
// original display spelling of the first payload that introduced them.
type Actor struct {
	ID             int64
	Name           string
	NormalizedName string
	Slug           string
}

// Episode link types.
const (
	EpisodeTypeDirect = "direct"
	EpisodeTypeEmbed  = "embed"
)

// Episode belongs to exactly one movie and occupies one ordered slot.
type Episode struct {
	ID       int64
	MovieID  int64
	Name     string
	Slug     string
	Server   string
	Type     string
	Link     string
	Position int
}

// Key is the stable identity used for update-or-create matching across
// crawls: server groups may be reordered upstream without orphaning slots.
func (e Episode) Key() EpisodeKey {
	return EpisodeKey{Server: e.Server, Name: e.Name, Type: e.Type}
}

// EpisodeKey is the composite matching key for episode slots.
type EpisodeKey struct {
	Server string
	Name   string
	Type   string
}

// Store is the catalog persistence interface consumed by the engine.
type Store interface {
	// FindMovieByIdentity returns the movie for a handler/identity pair,
	// or (nil, nil) when none exists.
	FindMovieByIdentity(ctx context.Context, handler, identity string) (*Movie, error)

	// CreateMovie inserts a new movie and sets its ID.
	CreateMovie(ctx context.Context, movie *Movie) error

	// UpdateMovie persists only the whitelisted attributes of the movie,
	// plus its UpdatedAt timestamp.
	UpdateMovie(ctx context.Context, movie *Movie, fields []string) error

	// SetMovieChecksum records the reconciled payload digest. The engine
	// calls this last so an interrupted run is retried, not skipped.
	SetMovieChecksum(ctx context.Context, movieID int64, checksum string) error

	// FindOrCreateActor looks an actor up by normalized name, creating
	// them with the given display name and slug on first sight.
	FindOrCreateActor(ctx context.Context, actor Actor) (int64, error)

	// FindOrCreateTerm looks up or creates a named entity of the kind
	// (director, category, region, tag) by its trimmed name.
	FindOrCreateTerm(ctx context.Context, kind AssociationKind, name string) (int64, error)

	// ReplaceAssociations replaces the movie's full id set for one kind.
	ReplaceAssociations(ctx context.Context, movieID int64, kind AssociationKind, ids []int64) error

	// ListEpisodes returns the movie's episodes ordered by position.
	ListEpisodes(ctx context.Context, movieID int64) ([]Episode, error)

	// UpsertEpisode inserts the episode when ID is zero, updates otherwise.
	UpsertEpisode(ctx context.Context, episode *Episode) error

	// DeleteEpisodes removes the given episodes of a movie.
	DeleteEpisodes(ctx context.Context, movieID int64, ids []int64) error
}
