package repositories

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rdeepak-711/spotify-playlist-app/internal/models"
	"github.com/rdeepak-711/spotify-playlist-app/internal/shared"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UpsertTrack writes catalog fields with $set, enrichment fields with
// $setOnInsert and merges users_with_track with $addToSet.
func (s *MongoStore) UpsertTrack(ctx context.Context, t models.Track) error {
	if err := models.Validate(t); err != nil {
		return err
	}

	_, err := s.tracks().UpdateOne(ctx,
		trackKey(t.TrackID, t.PlaylistID),
		trackUpsertUpdate(t),
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("%w: failed to upsert track: %v", shared.ErrStore, err)
	}
	return nil
}

func trackKey(trackID, playlistID string) bson.M {
	return bson.M{"track_id": trackID, "playlist_id": playlistID}
}

func orEmpty(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func trackUpsertUpdate(t models.Track) bson.M {
	return bson.M{
		"$set": bson.M{
			"name":            t.Name,
			"artists":         orEmpty(t.Artists),
			"album_name":      t.AlbumName,
			"album_image_url": t.AlbumImageURL,
			"preview_url":     t.PreviewURL,
			"external_url":    t.ExternalURL,
			"duration_ms":     t.DurationMS,
		},
		"$setOnInsert": bson.M{
			"genre":         orEmpty(t.Genre),
			"language":      t.Language,
			"is_enriched":   t.IsEnriched,
			"contributor":   t.Contributor,
			"connected_ids": orEmpty(t.ConnectedIDs),
		},
		"$addToSet": bson.M{
			"users_with_track": bson.M{"$each": mergeUsers(nil, t.UsersWithTrack)},
		},
	}
}

// GetTrack retrieves the (trackID, playlistID) row.
func (s *MongoStore) GetTrack(ctx context.Context, trackID, playlistID string) (*models.Track, error) {
	return s.findOneTrack(ctx, trackID, trackKey(trackID, playlistID), options.FindOne())
}

// FindTrack returns any row of trackID, preferring an enriched one.
func (s *MongoStore) FindTrack(ctx context.Context, trackID string) (*models.Track, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "is_enriched", Value: -1}, {Key: "playlist_id", Value: 1}})
	return s.findOneTrack(ctx, trackID, bson.M{"track_id": trackID}, opts)
}

func (s *MongoStore) findOneTrack(ctx context.Context, trackID string, filter bson.M, opts *options.FindOneOptions) (*models.Track, error) {
	var t models.Track
	err := s.tracks().FindOne(ctx, filter, opts).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, trackID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query track: %v", shared.ErrStore, err)
	}
	return &t, nil
}

func trackQueryFilter(q models.TrackQuery) bson.M {
	f := bson.M{}
	if q.PlaylistID != "" {
		f["playlist_id"] = q.PlaylistID
	}
	if q.Member != "" {
		f["users_with_track"] = q.Member
	}
	if q.EnrichedOnly {
		f["is_enriched"] = true
	}
	return f
}

// ListTracks returns the rows selected by q ordered by name.
func (s *MongoStore) ListTracks(ctx context.Context, q models.TrackQuery) ([]models.Track, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "track_id", Value: 1}})
	if q.Offset > 0 {
		opts.SetSkip(int64(q.Offset))
	}
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cur, err := s.tracks().Find(ctx, trackQueryFilter(q), opts)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query tracks: %v", shared.ErrStore, err)
	}
	defer cur.Close(ctx)

	tracks := make([]models.Track, 0)
	if err := cur.All(ctx, &tracks); err != nil {
		return nil, fmt.Errorf("%w: failed to decode tracks: %v", shared.ErrStore, err)
	}
	return tracks, nil
}

// CountTracks counts the rows selected by q, ignoring paging.
func (s *MongoStore) CountTracks(ctx context.Context, q models.TrackQuery) (int, error) {
	n, err := s.tracks().CountDocuments(ctx, trackQueryFilter(q))
	if err != nil {
		return 0, fmt.Errorf("%w: failed to count tracks: %v", shared.ErrStore, err)
	}
	return int(n), nil
}

func enrichmentUpdate(c models.Classification, contributor string) bson.M {
	var contrib any
	if contributor != "" {
		contrib = contributor
	}
	return bson.M{"$set": bson.M{
		"genre":       c.GenrePair(),
		"language":    c.Language,
		"is_enriched": true,
		"contributor": contrib,
	}}
}

// SetEnrichment classifies every not-yet-enriched row of trackID.
func (s *MongoStore) SetEnrichment(ctx context.Context, trackID string, c models.Classification, contributor string) (int, error) {
	res, err := s.tracks().UpdateMany(ctx,
		bson.M{"track_id": trackID, "is_enriched": false},
		enrichmentUpdate(c, contributor),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to enrich track: %v", shared.ErrStore, err)
	}
	return int(res.ModifiedCount), nil
}

// AddTrackUser appends userID to the row's users_with_track when absent.
func (s *MongoStore) AddTrackUser(ctx context.Context, trackID, playlistID, userID string) error {
	res, err := s.tracks().UpdateOne(ctx,
		trackKey(trackID, playlistID),
		bson.M{"$addToSet": bson.M{"users_with_track": userID}},
	)
	if err != nil {
		return fmt.Errorf("%w: failed to add track user: %v", shared.ErrStore, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", shared.ErrTrackNotFound, trackID)
	}
	return nil
}

// TrackPlaylists lists the distinct playlist ids holding trackID.
func (s *MongoStore) TrackPlaylists(ctx context.Context, trackID string) ([]string, error) {
	values, err := s.tracks().Distinct(ctx, "playlist_id", bson.M{"track_id": trackID})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query track playlists: %v", shared.ErrStore, err)
	}

	ids := make([]string, 0, len(values))
	for _, v := range values {
		if id, ok := v.(string); ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
