// Package memory provides an in-memory catalog store for development and
// tests.
package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/namhuunam/ophim-crawler/internal/catalog"
)

// Store implements catalog.Store with maps. Counters besides the data let
// tests assert on write activity (the checksum gate's "zero writes" rule).
type Store struct {
	mu sync.RWMutex

	nextMovieID   int64
	nextActorID   int64
	nextTermID    int64
	nextEpisodeID int64

	movies       map[int64]*catalog.Movie
	actors       map[string]catalog.Actor                            // by normalized name
	terms        map[catalog.AssociationKind]map[string]int64        // by trimmed name
	associations map[int64]map[catalog.AssociationKind][]int64       // movie -> kind -> ids
	episodes     map[int64][]catalog.Episode                         // movie -> ordered slots

	writes int
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		movies:       make(map[int64]*catalog.Movie),
		actors:       make(map[string]catalog.Actor),
		terms:        make(map[catalog.AssociationKind]map[string]int64),
		associations: make(map[int64]map[catalog.AssociationKind][]int64),
		episodes:     make(map[int64][]catalog.Episode),
	}
}

// FindMovieByIdentity returns a copy of the stored movie, or (nil, nil).
func (s *Store) FindMovieByIdentity(_ context.Context, handler, identity string) (*catalog.Movie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, movie := range s.movies {
		if movie.UpdateHandler == handler && movie.UpdateIdentity == identity {
			clone := *movie
			return &clone, nil
		}
	}
	return nil, nil
}

// CreateMovie inserts the movie and assigns an ID.
func (s *Store) CreateMovie(_ context.Context, movie *catalog.Movie) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextMovieID++
	movie.ID = s.nextMovieID
	clone := *movie
	s.movies[movie.ID] = &clone
	s.writes++
	return nil
}

// UpdateMovie copies only the whitelisted attributes onto the stored record.
func (s *Store) UpdateMovie(_ context.Context, movie *catalog.Movie, fields []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.movies[movie.ID]
	if !ok {
		return errors.New("movie not found")
	}
	for _, field := range fields {
		applyField(stored, movie, field)
	}
	stored.UpdatedAt = movie.UpdatedAt
	s.writes++
	return nil
}

// SetMovieChecksum records the payload digest for a movie.
func (s *Store) SetMovieChecksum(_ context.Context, movieID int64, checksum string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.movies[movieID]
	if !ok {
		return errors.New("movie not found")
	}
	stored.UpdateChecksum = checksum
	s.writes++
	return nil
}

// FindOrCreateActor looks up by normalized name, creating on miss.
func (s *Store) FindOrCreateActor(_ context.Context, actor catalog.Actor) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.actors[actor.NormalizedName]; ok {
		return existing.ID, nil
	}
	s.nextActorID++
	actor.ID = s.nextActorID
	s.actors[actor.NormalizedName] = actor
	s.writes++
	return actor.ID, nil
}

// FindOrCreateTerm looks up a named entity by trimmed name, creating on miss.
func (s *Store) FindOrCreateTerm(_ context.Context, kind catalog.AssociationKind, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, errors.New("term name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	byName, ok := s.terms[kind]
	if !ok {
		byName = make(map[string]int64)
		s.terms[kind] = byName
	}
	if id, ok := byName[name]; ok {
		return id, nil
	}
	s.nextTermID++
	byName[name] = s.nextTermID
	s.writes++
	return s.nextTermID, nil
}

// ReplaceAssociations swaps the movie's full id set for one kind.
func (s *Store) ReplaceAssociations(_ context.Context, movieID int64, kind catalog.AssociationKind, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byKind, ok := s.associations[movieID]
	if !ok {
		byKind = make(map[catalog.AssociationKind][]int64)
		s.associations[movieID] = byKind
	}
	byKind[kind] = append([]int64(nil), ids...)
	s.writes++
	return nil
}

// ListEpisodes returns the movie's episodes ordered by position.
func (s *Store) ListEpisodes(_ context.Context, movieID int64) ([]catalog.Episode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	episodes := append([]catalog.Episode(nil), s.episodes[movieID]...)
	sort.SliceStable(episodes, func(i, j int) bool {
		return episodes[i].Position < episodes[j].Position
	})
	return episodes, nil
}

// UpsertEpisode inserts when ID is zero, updates otherwise.
func (s *Store) UpsertEpisode(_ context.Context, episode *catalog.Episode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if episode.ID == 0 {
		s.nextEpisodeID++
		episode.ID = s.nextEpisodeID
		s.episodes[episode.MovieID] = append(s.episodes[episode.MovieID], *episode)
		s.writes++
		return nil
	}
	for i, existing := range s.episodes[episode.MovieID] {
		if existing.ID == episode.ID {
			s.episodes[episode.MovieID][i] = *episode
			s.writes++
			return nil
		}
	}
	return errors.New("episode not found")
}

// DeleteEpisodes removes the given episodes of a movie.
func (s *Store) DeleteEpisodes(_ context.Context, movieID int64, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	drop := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.episodes[movieID][:0]
	for _, episode := range s.episodes[movieID] {
		if _, gone := drop[episode.ID]; !gone {
			kept = append(kept, episode)
		}
	}
	s.episodes[movieID] = kept
	s.writes++
	return nil
}

// Movie returns a copy of a stored movie for test inspection.
func (s *Store) Movie(id int64) (catalog.Movie, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	movie, ok := s.movies[id]
	if !ok {
		return catalog.Movie{}, false
	}
	return *movie, true
}

// Associations returns the stored id set for a movie and kind.
func (s *Store) Associations(movieID int64, kind catalog.AssociationKind) []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]int64(nil), s.associations[movieID][kind]...)
}

// ActorByNormalizedName returns a stored actor for test inspection.
func (s *Store) ActorByNormalizedName(key string) (catalog.Actor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	actor, ok := s.actors[key]
	return actor, ok
}

// WriteCount reports how many mutating calls the store has served.
func (s *Store) WriteCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

// applyField copies one whitelisted attribute from src onto dst.
func applyField(dst, src *catalog.Movie, field string) {
	switch field {
	case catalog.FieldSlug:
		dst.Slug = src.Slug
	case catalog.FieldName:
		dst.Name = src.Name
	case catalog.FieldOriginName:
		dst.OriginName = src.OriginName
	case catalog.FieldPublishYear:
		dst.PublishYear = src.PublishYear
	case catalog.FieldContent:
		dst.Content = src.Content
	case catalog.FieldType:
		dst.Type = src.Type
	case catalog.FieldStatus:
		dst.Status = src.Status
	case catalog.FieldThumbURL:
		dst.ThumbURL = src.ThumbURL
	case catalog.FieldPosterURL:
		dst.PosterURL = src.PosterURL
	case catalog.FieldIsCopyright:
		dst.IsCopyright = src.IsCopyright
	case catalog.FieldTrailerURL:
		dst.TrailerURL = src.TrailerURL
	case catalog.FieldQuality:
		dst.Quality = src.Quality
	case catalog.FieldLanguage:
		dst.Language = src.Language
	case catalog.FieldEpisodeTime:
		dst.EpisodeTime = src.EpisodeTime
	case catalog.FieldEpisodeCurrent:
		dst.EpisodeCurrent = src.EpisodeCurrent
	case catalog.FieldEpisodeTotal:
		dst.EpisodeTotal = src.EpisodeTotal
	case catalog.FieldNotify:
		dst.Notify = src.Notify
	case catalog.FieldShowtimes:
		dst.Showtimes = src.Showtimes
	case catalog.FieldIsShownInTheater:
		dst.IsShownInTheater = src.IsShownInTheater
	}
}
