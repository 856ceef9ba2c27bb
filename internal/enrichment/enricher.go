package enrichment

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/rdeepak-711/spotify-playlist-app/internal/models"
	"github.com/rdeepak-711/spotify-playlist-app/internal/shared"
	"github.com/rdeepak-711/spotify-playlist-app/internal/taxonomy"
)

// TrackClassifier is the oracle side of enrichment.
type TrackClassifier interface {
	Classify(ctx context.Context, info TrackInfo) (models.Classification, error)
}

// PlaylistRecomputer refreshes a playlist's is_enriched aggregate.
type PlaylistRecomputer interface {
	RecomputePlaylist(ctx context.Context, playlistID, ownerID string) (bool, error)
}

var _ TrackClassifier = (*Classifier)(nil)

// Enricher implements track enrichment over the store.
type Enricher struct {
	tracks     models.TrackRepository
	classifier TrackClassifier
	recomputer PlaylistRecomputer
	logger     *log.Logger
}

func NewEnricher(tracks models.TrackRepository, classifier TrackClassifier, recomputer PlaylistRecomputer, logger *log.Logger) *Enricher {
	return &Enricher{
		tracks:     tracks,
		classifier: classifier,
		recomputer: recomputer,
		logger:     shared.WithLogger(logger, "component", "enrichment"),
	}
}

// EnrichTrack classifies trackID and marks every copy of it enriched by contributor,
// then recomputes every playlist holding it.
//
// newly is true only when this call classified the track. A track already
// enriched anywhere is not sent to the oracle again; its classification is
// copied onto any unenriched copies instead.
//
// A recompute failure is returned alongside newly=true: the track itself stays enriched.
func (e *Enricher) EnrichTrack(ctx context.Context, trackID, contributor string) (newly bool, err error) {
	found, err := e.tracks.FindTrack(ctx, trackID)
	if err != nil {
		return false, err
	}

	if found.IsEnriched {
		genre, subgenre := found.GenreParts()
		known := models.Classification{Language: found.Language, Genre: genre, Subgenre: subgenre}
		by := ""
		if found.Contributor != nil {
			by = *found.Contributor
		}

		n, err := e.tracks.SetEnrichment(ctx, trackID, known, by)
		if err != nil {
			return false, err
		}
		if n > 0 {
			return false, e.recomputeAll(ctx, trackID)
		}
		return false, nil
	}

	c, err := e.classifier.Classify(ctx, InfoOf(*found))
	if err != nil {
		return false, fmt.Errorf("classify %s: %w", trackID, err)
	}
	if err := checkVocabulary(c); err != nil {
		return false, fmt.Errorf("classify %s: %w", trackID, err)
	}

	n, err := e.tracks.SetEnrichment(ctx, trackID, c, contributor)
	if err != nil {
		return false, err
	}
	if n == 0 {
		// a concurrent call enriched it first
		return false, nil
	}

	e.logger.Info("track enriched", "track", trackID, "genre", c.Genre, "subgenre", c.Subgenre, "language", c.Language, "rows", n, "contributor", contributor)
	return true, e.recomputeAll(ctx, trackID)
}

// recomputeAll refreshes every playlist holding trackID; liked songs are
// refreshed once per member.
func (e *Enricher) recomputeAll(ctx context.Context, trackID string) error {
	playlists, err := e.tracks.TrackPlaylists(ctx, trackID)
	if err != nil {
		return err
	}

	var errs []error
	recompute := func(playlistID, ownerID string) {
		_, err := e.recomputer.RecomputePlaylist(ctx, playlistID, ownerID)
		if err != nil && !errors.Is(err, shared.ErrPlaylistNotFound) {
			errs = append(errs, fmt.Errorf("recompute %s: %w", playlistID, err))
		}
	}

	for _, pid := range playlists {
		if pid != models.LikedSongsID {
			recompute(pid, "")
			continue
		}

		liked, err := e.tracks.GetTrack(ctx, trackID, models.LikedSongsID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, userID := range liked.UsersWithTrack {
			recompute(models.LikedSongsID, userID)
		}
	}

	if err := errors.Join(errs...); err != nil {
		e.logger.Warn("playlist recompute failed", "track", trackID, "err", err)
		return err
	}
	return nil
}

// checkVocabulary rejects a classification that would break the enriched-track
// invariant: a language, a known genre and a subgenre of that genre or none.
func checkVocabulary(c models.Classification) error {
	if c.Language == "" {
		return fmt.Errorf("%w: no language", shared.ErrOracle)
	}
	if !taxonomy.IsGenre(c.Genre) || !taxonomy.IsSubgenre(c.Genre, c.Subgenre) {
		return fmt.Errorf("%w: %q / %q is outside the vocabulary", shared.ErrOracle, c.Genre, c.Subgenre)
	}
	return nil
}
