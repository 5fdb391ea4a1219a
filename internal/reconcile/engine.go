package reconcile

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/namhuunam/ophim-crawler/internal/catalog"
	"github.com/namhuunam/ophim-crawler/internal/crawler"
	"github.com/namhuunam/ophim-crawler/internal/metrics"
	"github.com/namhuunam/ophim-crawler/internal/normalize"
)

// Config carries the engine's reconciliation policy. Every option is explicit
// so the behavior of a run is fully determined at construction.
type Config struct {
	// Handler is stored as update_handler on every record this engine owns.
	Handler string
	// Fields is the whitelist of attributes and association kinds an update
	// may touch. Creation always writes the full attribute set.
	Fields []string
	// Exclusion lists. A payload whose type, any category name, or any
	// country name matches is rejected before any persistence.
	ExcludedTypes      []string
	ExcludedCategories []string
	ExcludedRegions    []string
	// EventTopic receives movie-updated events after an applied run.
	// Empty disables publishing.
	EventTopic string
}

// MovieUpdatedEvent is published after an applied reconciliation.
type MovieUpdatedEvent struct {
	MovieID        int64  `json:"movie_id"`
	UpdateIdentity string `json:"update_identity"`
	Checksum       string `json:"checksum"`
}

// Engine reconciles upstream payloads into the catalog. One payload is fully
// processed before the next begins; callers serialize crawls per remote
// identity themselves.
type Engine struct {
	cfg       Config
	store     catalog.Store
	collector *Collector
	fetcher   crawler.Fetcher
	hasher    crawler.Hasher
	clock     crawler.Clock
	ids       crawler.IDGenerator
	publisher crawler.Publisher
	logger    *zap.Logger
}

// NewEngine constructs an Engine. The publisher may be nil when no event
// topic is configured.
func NewEngine(
	cfg Config,
	store catalog.Store,
	collector *Collector,
	fetcher crawler.Fetcher,
	hasher crawler.Hasher,
	clock crawler.Clock,
	ids crawler.IDGenerator,
	publisher crawler.Publisher,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		cfg:       cfg,
		store:     store,
		collector: collector,
		fetcher:   fetcher,
		hasher:    hasher,
		clock:     clock,
		ids:       ids,
		publisher: publisher,
		logger:    logger,
	}
}

// Crawl fetches one source API link and reconciles its payload. Non-ASCII
// path segments are percent-encoded first; a failed or non-200 fetch is a
// TransportError raised before any persistence.
func (e *Engine) Crawl(ctx context.Context, link string, force bool) (bool, error) {
	start := time.Now()
	encoded := crawler.EncodeURL(link)
	resp, err := e.fetcher.Fetch(ctx, encoded)
	if err != nil {
		metrics.ObserveCrawl(link, metrics.OutcomeError, time.Since(start))
		return false, &crawler.TransportError{URL: encoded, Err: err}
	}
	if resp.StatusCode != 200 {
		metrics.ObserveCrawl(link, metrics.OutcomeError, time.Since(start))
		return false, &crawler.TransportError{URL: encoded, StatusCode: resp.StatusCode}
	}

	applied, err := e.Reconcile(ctx, resp.Body, force)
	metrics.ObserveCrawl(link, crawlOutcome(applied, err), time.Since(start))
	return applied, err
}

func crawlOutcome(applied bool, err error) string {
	switch {
	case crawler.IsExcluded(err):
		return metrics.OutcomeExcluded
	case err != nil:
		return metrics.OutcomeError
	case applied:
		return metrics.OutcomeApplied
	default:
		return metrics.OutcomeNoop
	}
}

// Reconcile applies one raw payload body to the catalog. It returns false
// with a nil error when the checksum gate decided the payload is unchanged.
// The stored checksum is written as the final step, so a run that dies
// mid-sync is retried in full by the next crawl of the same payload.
func (e *Engine) Reconcile(ctx context.Context, body []byte, force bool) (bool, error) {
	payload, err := crawler.ParsePayload(body)
	if err != nil {
		return false, err
	}
	if err := e.checkExclusions(payload.Movie); err != nil {
		return false, err
	}

	checksum, err := e.hasher.Hash(body)
	if err != nil {
		return false, fmt.Errorf("failed to hash payload: %w", err)
	}

	existing, err := e.store.FindMovieByIdentity(ctx, e.cfg.Handler, payload.Movie.ID)
	if err != nil {
		return false, fmt.Errorf("failed to look up movie %s: %w", payload.Movie.ID, err)
	}
	if existing != nil && existing.UpdateChecksum == checksum && !force {
		e.logger.Debug("payload unchanged, skipping",
			zap.String("identity", payload.Movie.ID),
			zap.String("checksum", checksum),
		)
		return false, nil
	}

	movie := e.collector.Collect(ctx, payload, force)
	movie.UpdateHandler = e.cfg.Handler
	movie.UpdateIdentity = payload.Movie.ID
	movie.CreatedAt = e.deriveTime(payload.Movie.Created)
	movie.UpdatedAt = e.deriveTime(payload.Movie.Modified)

	if existing == nil {
		if err := e.store.CreateMovie(ctx, &movie); err != nil {
			return false, fmt.Errorf("failed to create movie %s: %w", payload.Movie.ID, err)
		}
		e.logger.Info("movie created",
			zap.Int64("movie_id", movie.ID),
			zap.String("slug", movie.Slug),
		)
	} else {
		movie.ID = existing.ID
		if err := e.store.UpdateMovie(ctx, &movie, e.cfg.Fields); err != nil {
			return false, fmt.Errorf("failed to update movie %d: %w", movie.ID, err)
		}
		e.logger.Info("movie updated",
			zap.Int64("movie_id", movie.ID),
			zap.String("slug", movie.Slug),
		)
	}

	if err := e.syncAssociations(ctx, &movie, payload); err != nil {
		return false, err
	}
	if e.hasField(string(catalog.KindEpisodes)) {
		if err := e.syncEpisodes(ctx, movie.ID, payload.Episodes); err != nil {
			return false, err
		}
	}

	if err := e.store.SetMovieChecksum(ctx, movie.ID, checksum); err != nil {
		return false, fmt.Errorf("failed to set checksum for movie %d: %w", movie.ID, err)
	}

	e.publishUpdated(ctx, &movie, checksum)
	return true, nil
}

// checkExclusions rejects a payload whose type, category or country is on an
// exclusion list. Matching is on trimmed values.
func (e *Engine) checkExclusions(m *crawler.MoviePayload) error {
	if contains(e.cfg.ExcludedTypes, m.Type) {
		return &crawler.ExclusionError{Field: "type", Value: m.Type}
	}
	for _, name := range m.CategoryNames() {
		if contains(e.cfg.ExcludedCategories, name) {
			return &crawler.ExclusionError{Field: "category", Value: name}
		}
	}
	for _, name := range m.CountryNames() {
		if contains(e.cfg.ExcludedRegions, name) {
			return &crawler.ExclusionError{Field: "region", Value: name}
		}
	}
	return nil
}

// deriveTime uses the remote timestamp when parseable and the current time
// otherwise. Created and modified are resolved independently.
func (e *Engine) deriveTime(ref crawler.TimeRef) time.Time {
	if t, ok := crawler.ParseTime(ref); ok {
		return t
	}
	return e.clock.Now()
}

func (e *Engine) hasField(name string) bool {
	for _, field := range e.cfg.Fields {
		if field == name {
			return true
		}
	}
	return false
}

// syncAssociations replaces each association set gated by the field
// whitelist. A failure on one entry is logged and skipped; a failure of a
// whole set write aborts the reconciliation.
func (e *Engine) syncAssociations(ctx context.Context, movie *catalog.Movie, payload *crawler.Payload) error {
	if e.hasField(string(catalog.KindActors)) {
		if err := e.syncActors(ctx, movie.ID, payload.Movie.Actor); err != nil {
			return err
		}
	}
	if e.hasField(string(catalog.KindDirectors)) {
		if err := e.syncTerms(ctx, movie.ID, catalog.KindDirectors, payload.Movie.Director); err != nil {
			return err
		}
	}
	if e.hasField(string(catalog.KindCategories)) {
		names := append(payload.Movie.CategoryNames(), forcedCategories(payload.Movie.Type)...)
		if err := e.syncTerms(ctx, movie.ID, catalog.KindCategories, names); err != nil {
			return err
		}
	}
	if e.hasField(string(catalog.KindRegions)) {
		if err := e.syncTerms(ctx, movie.ID, catalog.KindRegions, payload.Movie.CountryNames()); err != nil {
			return err
		}
	}
	if e.hasField(string(catalog.KindTags)) {
		if err := e.syncTerms(ctx, movie.ID, catalog.KindTags, []string{movie.Name, movie.OriginName}); err != nil {
			return err
		}
	}
	// Studios is accepted in the whitelist but performs no sync. The
	// upstream source has no studio data to bind yet.
	return nil
}

// forcedCategories returns the fixed categories added for special payload
// types, in addition to the payload's own categories.
func forcedCategories(payloadType string) []string {
	switch payloadType {
	case crawler.PayloadTypeAnimation:
		return []string{"Hoạt Hình"}
	case crawler.PayloadTypeTVShow:
		return []string{"TV Shows"}
	}
	return nil
}

// syncActors deduplicates the raw actor list by normalized name and replaces
// the movie's actor set. The replacement is skipped entirely when the payload
// carries no usable actors, preserving a previously synced set.
func (e *Engine) syncActors(ctx context.Context, movieID int64, rawNames []string) error {
	seen := make(map[string]struct{}, len(rawNames))
	ids := make([]int64, 0, len(rawNames))
	for _, raw := range rawNames {
		display := strings.TrimSpace(raw)
		if display == "" {
			continue
		}
		key := normalize.Name(display)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		slug, err := e.actorSlug(display)
		if err != nil {
			e.logger.Warn("skipping actor", zap.String("name", display), zap.Error(err))
			continue
		}
		id, err := e.store.FindOrCreateActor(ctx, catalog.Actor{
			Name:           display,
			NormalizedName: key,
			Slug:           slug,
		})
		if err != nil {
			e.logger.Warn("skipping actor", zap.String("name", display), zap.Error(err))
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil
	}
	if err := e.store.ReplaceAssociations(ctx, movieID, catalog.KindActors, ids); err != nil {
		return fmt.Errorf("failed to sync actors for movie %d: %w", movieID, err)
	}
	return nil
}

// actorSlug builds a slug with a uniqueness-guaranteeing suffix so two actors
// whose names collapse to the same slug still get distinct URLs.
func (e *Engine) actorSlug(name string) (string, error) {
	suffix, err := e.ids.NewID()
	if err != nil {
		return "", fmt.Errorf("failed to generate slug suffix: %w", err)
	}
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return normalize.Slug(name) + "-" + suffix, nil
}

// syncTerms find-or-creates each trimmed name of one kind and replaces the
// movie's set for that kind.
func (e *Engine) syncTerms(ctx context.Context, movieID int64, kind catalog.AssociationKind, names []string) error {
	seen := make(map[string]struct{}, len(names))
	ids := make([]int64, 0, len(names))
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		id, err := e.store.FindOrCreateTerm(ctx, kind, name)
		if err != nil {
			e.logger.Warn("skipping term",
				zap.String("kind", string(kind)),
				zap.String("name", name),
				zap.Error(err),
			)
			continue
		}
		ids = append(ids, id)
	}
	if err := e.store.ReplaceAssociations(ctx, movieID, kind, ids); err != nil {
		return fmt.Errorf("failed to sync %s for movie %d: %w", kind, movieID, err)
	}
	return nil
}

// syncEpisodes converges the movie's episode set onto the slots produced by
// the payload. Existing episodes are matched by (server, name, type) so a
// reordered server list does not orphan slots; everything unmatched after the
// pass is stale and deleted.
func (e *Engine) syncEpisodes(ctx context.Context, movieID int64, servers []crawler.EpisodeServer) error {
	slots := buildEpisodeSlots(movieID, servers)

	existing, err := e.store.ListEpisodes(ctx, movieID)
	if err != nil {
		return fmt.Errorf("failed to list episodes for movie %d: %w", movieID, err)
	}
	// Queue per key: duplicate keys are consumed in stored order.
	byKey := make(map[catalog.EpisodeKey][]catalog.Episode, len(existing))
	for _, episode := range existing {
		key := episode.Key()
		byKey[key] = append(byKey[key], episode)
	}

	for i := range slots {
		key := slots[i].Key()
		if queue := byKey[key]; len(queue) > 0 {
			slots[i].ID = queue[0].ID
			byKey[key] = queue[1:]
		}
		if err := e.store.UpsertEpisode(ctx, &slots[i]); err != nil {
			return fmt.Errorf("failed to upsert episode %q for movie %d: %w", slots[i].Name, movieID, err)
		}
	}

	var stale []int64
	for _, queue := range byKey {
		for _, episode := range queue {
			stale = append(stale, episode.ID)
		}
	}
	if err := e.store.DeleteEpisodes(ctx, movieID, stale); err != nil {
		return fmt.Errorf("failed to prune episodes for movie %d: %w", movieID, err)
	}

	metrics.ObserveEpisodesSynced(len(slots))
	return nil
}

// buildEpisodeSlots walks server groups in payload order. Each non-empty link
// of an entry yields one slot: the direct stream first, then the embed.
func buildEpisodeSlots(movieID int64, servers []crawler.EpisodeServer) []catalog.Episode {
	var slots []catalog.Episode
	for _, server := range servers {
		for _, data := range server.ServerData {
			slug := strings.TrimSpace(data.Slug)
			if slug == "" {
				slug = normalize.Slug(data.Name)
			}
			if data.LinkM3U8 != "" {
				slots = append(slots, catalog.Episode{
					MovieID:  movieID,
					Name:     data.Name,
					Slug:     slug,
					Server:   server.ServerName,
					Type:     catalog.EpisodeTypeDirect,
					Link:     data.LinkM3U8,
					Position: len(slots),
				})
			}
			if data.LinkEmbed != "" {
				slots = append(slots, catalog.Episode{
					MovieID:  movieID,
					Name:     data.Name,
					Slug:     slug,
					Server:   server.ServerName,
					Type:     catalog.EpisodeTypeEmbed,
					Link:     data.LinkEmbed,
					Position: len(slots),
				})
			}
		}
	}
	return slots
}

// publishUpdated emits a movie-updated event. Publishing is best-effort: a
// failure is logged, never fatal for the reconciliation.
func (e *Engine) publishUpdated(ctx context.Context, movie *catalog.Movie, checksum string) {
	if e.publisher == nil || e.cfg.EventTopic == "" {
		return
	}
	event := MovieUpdatedEvent{
		MovieID:        movie.ID,
		UpdateIdentity: movie.UpdateIdentity,
		Checksum:       checksum,
	}
	if _, err := e.publisher.Publish(ctx, e.cfg.EventTopic, event); err != nil {
		e.logger.Warn("failed to publish movie-updated event",
			zap.Int64("movie_id", movie.ID),
			zap.Error(err),
		)
	}
}

func contains(list []string, value string) bool {
	value = strings.TrimSpace(value)
	for _, item := range list {
		if strings.TrimSpace(item) == value {
			return true
		}
	}
	return false
}
