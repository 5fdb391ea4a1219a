// Package postgres implements the catalog store on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/namhuunam/ophim-crawler/internal/catalog"
	"github.com/namhuunam/ophim-crawler/internal/normalize"
)

// DB is the subset of pgxpool.Pool the store needs. Tests substitute a
// pgxmock pool through the same interface.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store implements catalog.Store using PostgreSQL as the backend.
type Store struct {
	db DB
}

// NewStore wraps a pgx pool (or compatible) in a Store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// Connect opens a pgx pool against the DSN and pings it to verify the
// connection is alive before handing it to a Store.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return pool, nil
}

// kindTables maps each association kind to its entity and pivot tables.
// Studios intentionally has no entry: syncing them is a no-op upstream.
var kindTables = map[catalog.AssociationKind]struct {
	table string
	pivot string
	fk    string
}{
	catalog.KindActors:     {"actors", "actor_movie", "actor_id"},
	catalog.KindDirectors:  {"directors", "director_movie", "director_id"},
	catalog.KindCategories: {"categories", "category_movie", "category_id"},
	catalog.KindRegions:    {"regions", "movie_region", "region_id"},
	catalog.KindTags:       {"tags", "movie_tag", "tag_id"},
}

const movieColumns = `id, slug, name, origin_name, publish_year, content, type, status,
	thumb_url, poster_url, is_copyright, trailer_url, quality, language,
	episode_time, episode_current, episode_total, notify, showtimes,
	is_shown_in_theater, update_handler, update_identity, update_checksum,
	created_at, updated_at`

// FindMovieByIdentity looks up a movie by its reconciliation key, returning
// (nil, nil) when no record exists.
func (s *Store) FindMovieByIdentity(ctx context.Context, handler, identity string) (*catalog.Movie, error) {
	query := `SELECT ` + movieColumns + ` FROM movies WHERE update_handler = $1 AND update_identity = $2`
	row := s.db.QueryRow(ctx, query, handler, identity)

	var m catalog.Movie
	err := row.Scan(
		&m.ID, &m.Slug, &m.Name, &m.OriginName, &m.PublishYear, &m.Content, &m.Type, &m.Status,
		&m.ThumbURL, &m.PosterURL, &m.IsCopyright, &m.TrailerURL, &m.Quality, &m.Language,
		&m.EpisodeTime, &m.EpisodeCurrent, &m.EpisodeTotal, &m.Notify, &m.Showtimes,
		&m.IsShownInTheater, &m.UpdateHandler, &m.UpdateIdentity, &m.UpdateChecksum,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query movie by identity: %w", err)
	}
	return &m, nil
}

// CreateMovie inserts a new movie and fills in its assigned ID.
func (s *Store) CreateMovie(ctx context.Context, movie *catalog.Movie) error {
	query := `
		INSERT INTO movies (slug, name, origin_name, publish_year, content, type, status,
			thumb_url, poster_url, is_copyright, trailer_url, quality, language,
			episode_time, episode_current, episode_total, notify, showtimes,
			is_shown_in_theater, update_handler, update_identity, update_checksum,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24)
		RETURNING id
	`
	err := s.db.QueryRow(ctx, query,
		movie.Slug, movie.Name, movie.OriginName, movie.PublishYear, movie.Content,
		movie.Type, movie.Status, movie.ThumbURL, movie.PosterURL, movie.IsCopyright,
		movie.TrailerURL, movie.Quality, movie.Language, movie.EpisodeTime,
		movie.EpisodeCurrent, movie.EpisodeTotal, movie.Notify, movie.Showtimes,
		movie.IsShownInTheater, movie.UpdateHandler, movie.UpdateIdentity,
		movie.UpdateChecksum, movie.CreatedAt, movie.UpdatedAt,
	).Scan(&movie.ID)
	if err != nil {
		return fmt.Errorf("failed to insert movie: %w", err)
	}
	return nil
}

// fieldColumns maps whitelist field names to their column and a value getter.
var fieldColumns = map[string]func(*catalog.Movie) any{
	catalog.FieldSlug:             func(m *catalog.Movie) any { return m.Slug },
	catalog.FieldName:             func(m *catalog.Movie) any { return m.Name },
	catalog.FieldOriginName:       func(m *catalog.Movie) any { return m.OriginName },
	catalog.FieldPublishYear:      func(m *catalog.Movie) any { return m.PublishYear },
	catalog.FieldContent:          func(m *catalog.Movie) any { return m.Content },
	catalog.FieldType:             func(m *catalog.Movie) any { return m.Type },
	catalog.FieldStatus:           func(m *catalog.Movie) any { return m.Status },
	catalog.FieldThumbURL:         func(m *catalog.Movie) any { return m.ThumbURL },
	catalog.FieldPosterURL:        func(m *catalog.Movie) any { return m.PosterURL },
	catalog.FieldIsCopyright:      func(m *catalog.Movie) any { return m.IsCopyright },
	catalog.FieldTrailerURL:       func(m *catalog.Movie) any { return m.TrailerURL },
	catalog.FieldQuality:          func(m *catalog.Movie) any { return m.Quality },
	catalog.FieldLanguage:         func(m *catalog.Movie) any { return m.Language },
	catalog.FieldEpisodeTime:      func(m *catalog.Movie) any { return m.EpisodeTime },
	catalog.FieldEpisodeCurrent:   func(m *catalog.Movie) any { return m.EpisodeCurrent },
	catalog.FieldEpisodeTotal:     func(m *catalog.Movie) any { return m.EpisodeTotal },
	catalog.FieldNotify:           func(m *catalog.Movie) any { return m.Notify },
	catalog.FieldShowtimes:        func(m *catalog.Movie) any { return m.Showtimes },
	catalog.FieldIsShownInTheater: func(m *catalog.Movie) any { return m.IsShownInTheater },
}

// UpdateMovie writes only the whitelisted fields. Unknown field names are
// skipped, so a stale whitelist entry cannot break the statement.
func (s *Store) UpdateMovie(ctx context.Context, movie *catalog.Movie, fields []string) error {
	assignments := make([]string, 0, len(fields)+1)
	args := make([]any, 0, len(fields)+2)
	for _, field := range fields {
		getter, ok := fieldColumns[field]
		if !ok {
			continue
		}
		args = append(args, getter(movie))
		assignments = append(assignments, fmt.Sprintf("%s = $%d", field, len(args)))
	}
	if len(assignments) == 0 {
		return nil
	}
	args = append(args, movie.UpdatedAt)
	assignments = append(assignments, fmt.Sprintf("updated_at = $%d", len(args)))
	args = append(args, movie.ID)

	query := fmt.Sprintf("UPDATE movies SET %s WHERE id = $%d", strings.Join(assignments, ", "), len(args))
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update movie %d: %w", movie.ID, err)
	}
	return nil
}

// SetMovieChecksum records the payload digest. The engine calls this last so
// an interrupted run is retried on the next crawl.
func (s *Store) SetMovieChecksum(ctx context.Context, movieID int64, checksum string) error {
	query := `UPDATE movies SET update_checksum = $1 WHERE id = $2`
	if _, err := s.db.Exec(ctx, query, checksum, movieID); err != nil {
		return fmt.Errorf("failed to set movie checksum: %w", err)
	}
	return nil
}

// FindOrCreateActor resolves an actor by normalized name, inserting on miss.
// The no-op DO UPDATE makes the RETURNING clause fire on conflict too.
func (s *Store) FindOrCreateActor(ctx context.Context, actor catalog.Actor) (int64, error) {
	query := `
		INSERT INTO actors (name, normalized_name, slug)
		VALUES ($1, $2, $3)
		ON CONFLICT (normalized_name) DO UPDATE SET normalized_name = EXCLUDED.normalized_name
		RETURNING id
	`
	var id int64
	err := s.db.QueryRow(ctx, query, actor.Name, actor.NormalizedName, actor.Slug).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to find or create actor: %w", err)
	}
	return id, nil
}

// FindOrCreateTerm resolves a named entity of the given kind, inserting on
// miss.
func (s *Store) FindOrCreateTerm(ctx context.Context, kind catalog.AssociationKind, name string) (int64, error) {
	tables, ok := kindTables[kind]
	if !ok {
		return 0, fmt.Errorf("association kind %q has no backing table", kind)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, errors.New("term name is required")
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (name, slug)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`, tables.table)
	var id int64
	err := s.db.QueryRow(ctx, query, name, normalize.Slug(name)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to find or create %s term: %w", kind, err)
	}
	return id, nil
}

// ReplaceAssociations swaps the movie's full pivot set for one kind inside a
// transaction.
func (s *Store) ReplaceAssociations(ctx context.Context, movieID int64, kind catalog.AssociationKind, ids []int64) error {
	tables, ok := kindTables[kind]
	if !ok {
		return fmt.Errorf("association kind %q has no backing table", kind)
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	deleteQuery := fmt.Sprintf("DELETE FROM %s WHERE movie_id = $1", tables.pivot)
	if _, err := tx.Exec(ctx, deleteQuery, movieID); err != nil {
		return fmt.Errorf("failed to clear %s associations: %w", kind, err)
	}
	insertQuery := fmt.Sprintf("INSERT INTO %s (movie_id, %s) VALUES ($1, $2)", tables.pivot, tables.fk)
	for _, id := range ids {
		if _, err := tx.Exec(ctx, insertQuery, movieID, id); err != nil {
			return fmt.Errorf("failed to insert %s association: %w", kind, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit %s associations: %w", kind, err)
	}
	return nil
}

// ListEpisodes returns a movie's episodes ordered by position.
func (s *Store) ListEpisodes(ctx context.Context, movieID int64) ([]catalog.Episode, error) {
	query := `
		SELECT id, movie_id, name, slug, server, type, link, position
		FROM episodes WHERE movie_id = $1 ORDER BY position
	`
	rows, err := s.db.Query(ctx, query, movieID)
	if err != nil {
		return nil, fmt.Errorf("failed to query episodes: %w", err)
	}
	defer rows.Close()

	var episodes []catalog.Episode
	for rows.Next() {
		var e catalog.Episode
		if err := rows.Scan(&e.ID, &e.MovieID, &e.Name, &e.Slug, &e.Server, &e.Type, &e.Link, &e.Position); err != nil {
			return nil, fmt.Errorf("failed to scan episode: %w", err)
		}
		episodes = append(episodes, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read episodes: %w", err)
	}
	return episodes, nil
}

// UpsertEpisode inserts when the ID is zero and updates otherwise.
func (s *Store) UpsertEpisode(ctx context.Context, episode *catalog.Episode) error {
	if episode.ID == 0 {
		query := `
			INSERT INTO episodes (movie_id, name, slug, server, type, link, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id
		`
		err := s.db.QueryRow(ctx, query,
			episode.MovieID, episode.Name, episode.Slug, episode.Server,
			episode.Type, episode.Link, episode.Position,
		).Scan(&episode.ID)
		if err != nil {
			return fmt.Errorf("failed to insert episode: %w", err)
		}
		return nil
	}
	query := `
		UPDATE episodes SET name = $1, slug = $2, server = $3, type = $4, link = $5, position = $6
		WHERE id = $7
	`
	if _, err := s.db.Exec(ctx, query,
		episode.Name, episode.Slug, episode.Server, episode.Type,
		episode.Link, episode.Position, episode.ID,
	); err != nil {
		return fmt.Errorf("failed to update episode %d: %w", episode.ID, err)
	}
	return nil
}

// DeleteEpisodes removes the given episodes of a movie.
func (s *Store) DeleteEpisodes(ctx context.Context, movieID int64, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	query := `DELETE FROM episodes WHERE movie_id = $1 AND id = ANY($2)`
	if _, err := s.db.Exec(ctx, query, movieID, ids); err != nil {
		return fmt.Errorf("failed to delete episodes: %w", err)
	}
	return nil
}
