package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rdeepak-711/spotify-playlist-app/internal/models"
	"github.com/rdeepak-711/spotify-playlist-app/internal/shared"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection     = "users"
	playlistsCollection = "playlists"
	tracksCollection    = "tracks"
)

// MongoStore implements [models.Store] on MongoDB.
//
// Every write is a single-document upsert or an unordered bulk write; nothing
// spans collections.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ models.Store = (*MongoStore)(nil)

// NewMongoStore connects to uri and uses database dbname.
func NewMongoStore(ctx context.Context, uri, dbname string) (*MongoStore, error) {
	if uri == "" || dbname == "" {
		return nil, fmt.Errorf("%w: mongo uri and database name must be set", shared.ErrMissingConfig)
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to mongo: %v", shared.ErrStore, err)
	}

	return &MongoStore{client: client, db: client.Database(dbname)}, nil
}

func (s *MongoStore) users() *mongo.Collection     { return s.db.Collection(usersCollection) }
func (s *MongoStore) playlists() *mongo.Collection { return s.db.Collection(playlistsCollection) }
func (s *MongoStore) tracks() *mongo.Collection    { return s.db.Collection(tracksCollection) }

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// EnsureIndexes creates the key and lookup indexes; it is safe to run repeatedly.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	for name, indexes := range indexPlan() {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("%w: failed to create indexes on %s: %v", shared.ErrStore, name, err)
		}
	}
	return nil
}

// catalogField marks playlist documents that came from the catalog; only those
// need a playlist_id unique across owners. Partial indexes cannot use $ne.
const catalogField = "catalog"

func indexPlan() map[string][]mongo.IndexModel {
	unique := options.Index().SetUnique(true)
	catalogUnique := options.Index().
		SetName("playlist_id_catalog_unique").
		SetUnique(true).
		SetPartialFilterExpression(bson.M{catalogField: true})

	return map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: unique},
		},
		playlistsCollection: {
			{Keys: bson.D{{Key: "playlist_id", Value: 1}, {Key: "owner_id", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "playlist_id", Value: 1}}, Options: catalogUnique},
			{Keys: bson.D{{Key: "owner_id", Value: 1}}},
		},
		tracksCollection: {
			{Keys: bson.D{{Key: "track_id", Value: 1}, {Key: "playlist_id", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "playlist_id", Value: 1}}},
			{Keys: bson.D{{Key: "users_with_track", Value: 1}}},
		},
	}
}

// GetUser retrieves a user by catalog id.
func (s *MongoStore) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var u models.User
	err := s.users().FindOne(ctx, bson.M{"user_id": userID}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", shared.ErrUserNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query user: %v", shared.ErrStore, err)
	}
	return &u, nil
}

// SaveLogin upserts the user, keeping credits and created_at of an existing record.
func (s *MongoStore) SaveLogin(ctx context.Context, user *models.User) error {
	if err := models.Validate(user); err != nil {
		return err
	}

	_, err := s.users().UpdateOne(ctx,
		bson.M{"user_id": user.UserID},
		userLoginUpdate(user, time.Now().UTC()),
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("%w: failed to save user: %v", shared.ErrStore, err)
	}
	return nil
}

func userLoginUpdate(u *models.User, now time.Time) bson.M {
	set := bson.M{
		"display_name": u.DisplayName,
		"email":        u.Email,
		"country":      u.Country,
		"avatar_url":   u.AvatarURL,
		"external_url": u.ExternalURL,
		"access_token": u.AccessToken,
		"updated_at":   now,
	}
	if u.RefreshToken != nil {
		set["refresh_token"] = u.RefreshToken
	}

	created := u.CreatedAt
	if created.IsZero() {
		created = now
	}

	return bson.M{
		"$set": set,
		"$setOnInsert": bson.M{
			"credits":         u.Credits,
			"is_enriched":     u.IsEnriched,
			"signup_enriched": u.SignupEnriched,
			"created_at":      created,
		},
	}
}

// UpdateTokens replaces the stored ciphertexts; a nil refresh keeps the current one.
func (s *MongoStore) UpdateTokens(ctx context.Context, userID string, access, refresh []byte) error {
	set := bson.M{"access_token": access, "updated_at": time.Now().UTC()}
	if refresh != nil {
		set["refresh_token"] = refresh
	}

	res, err := s.users().UpdateOne(ctx, bson.M{"user_id": userID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("%w: failed to update tokens: %v", shared.ErrStore, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", shared.ErrUserNotFound, userID)
	}
	return nil
}

// AddCredits increments the balance and returns the new value.
func (s *MongoStore) AddCredits(ctx context.Context, userID string, amount int) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: credit amount must be positive, got %d", shared.ErrInvalidInput, amount)
	}

	var u models.User
	err := s.users().FindOneAndUpdate(ctx,
		bson.M{"user_id": userID},
		bson.M{"$inc": bson.M{"credits": amount}, "$set": bson.M{"updated_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, fmt.Errorf("%w: %s", shared.ErrUserNotFound, userID)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: failed to add credits: %v", shared.ErrStore, err)
	}
	return u.Credits, nil
}

// DebitCredits subtracts amount only while the balance covers it.
func (s *MongoStore) DebitCredits(ctx context.Context, userID string, amount int) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: debit amount must be positive, got %d", shared.ErrInvalidInput, amount)
	}

	var u models.User
	err := s.users().FindOneAndUpdate(ctx,
		debitFilter(userID, amount),
		bson.M{"$inc": bson.M{"credits": -amount}, "$set": bson.M{"updated_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, getErr := s.GetUser(ctx, userID); getErr != nil {
			return 0, getErr
		}
		return 0, fmt.Errorf("%w: need %d", shared.ErrInsufficientCredits, amount)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: failed to debit credits: %v", shared.ErrStore, err)
	}
	return u.Credits, nil
}

func debitFilter(userID string, amount int) bson.M {
	return bson.M{"user_id": userID, "credits": bson.M{"$gte": amount}}
}

// UpsertPlaylists writes all playlists in one unordered bulk write.
func (s *MongoStore) UpsertPlaylists(ctx context.Context, playlists []models.Playlist) models.BulkResult {
	var res models.BulkResult

	writes := make([]mongo.WriteModel, 0, len(playlists))
	ids := make([]string, 0, len(playlists))
	for _, p := range playlists {
		if err := models.Validate(p); err != nil {
			res.Failed++
			res.Errors = append(res.Errors, fmt.Errorf("playlist %s: %w", p.PlaylistID, err))
			continue
		}
		writes = append(writes, playlistUpsertModel(p))
		ids = append(ids, p.PlaylistID)
	}

	if len(writes) == 0 {
		return res
	}

	_, err := s.playlists().BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
	if err == nil {
		res.Upserted += len(writes)
		return res
	}

	var bulkErr mongo.BulkWriteException
	if !errors.As(err, &bulkErr) {
		res.Failed += len(writes)
		res.Errors = append(res.Errors, fmt.Errorf("%w: bulk playlist upsert: %v", shared.ErrStore, err))
		return res
	}

	for _, we := range bulkErr.WriteErrors {
		id := ""
		if we.Index >= 0 && we.Index < len(ids) {
			id = ids[we.Index]
		}
		res.Errors = append(res.Errors, fmt.Errorf("%w: playlist %s: %s", shared.ErrStore, id, we.Message))
	}
	res.Failed += len(bulkErr.WriteErrors)
	res.Upserted += len(writes) - len(bulkErr.WriteErrors)
	return res
}

func playlistFilter(playlistID, ownerID string) bson.M {
	f := bson.M{"playlist_id": playlistID}
	if ownerID != "" {
		f["owner_id"] = ownerID
	}
	return f
}

func playlistUpsertModel(p models.Playlist) *mongo.UpdateOneModel {
	filter := playlistFilter(p.PlaylistID, "")
	if p.IsLikedSongs() {
		filter = playlistFilter(p.PlaylistID, p.OwnerID)
	}

	update := bson.M{
		"$set": bson.M{
			"owner_id":        p.OwnerID,
			"name":            p.Name,
			"description":     p.Description,
			"cover_image_url": p.CoverImageURL,
			"track_count":     p.TrackCount,
			"external_url":    p.ExternalURL,
			"is_public":       p.IsPublic,
			catalogField:      !p.IsLikedSongs(),
		},
		"$setOnInsert": bson.M{"is_enriched": p.IsEnriched},
	}

	return mongo.NewUpdateOneModel().SetFilter(filter).SetUpdate(update).SetUpsert(true)
}

// GetPlaylist retrieves one playlist; an empty ownerID matches any owner.
func (s *MongoStore) GetPlaylist(ctx context.Context, playlistID, ownerID string) (*models.Playlist, error) {
	var p models.Playlist
	err := s.playlists().FindOne(ctx, playlistFilter(playlistID, ownerID)).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query playlist: %v", shared.ErrStore, err)
	}
	return &p, nil
}

// ListPlaylists returns the owner's playlists, liked songs first, then by name.
func (s *MongoStore) ListPlaylists(ctx context.Context, ownerID string) ([]models.Playlist, error) {
	cur, err := s.playlists().Find(ctx, bson.M{"owner_id": ownerID}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query playlists: %v", shared.ErrStore, err)
	}
	defer cur.Close(ctx)

	liked := make([]models.Playlist, 0, 1)
	playlists := make([]models.Playlist, 0)
	for cur.Next(ctx) {
		var p models.Playlist
		if err := cur.Decode(&p); err != nil {
			return nil, fmt.Errorf("%w: failed to decode playlist: %v", shared.ErrStore, err)
		}
		if p.IsLikedSongs() {
			liked = append(liked, p)
			continue
		}
		playlists = append(playlists, p)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrStore, err)
	}

	return append(liked, playlists...), nil
}

// SetPlaylistEnriched persists the derived flag; an empty ownerID matches any owner.
func (s *MongoStore) SetPlaylistEnriched(ctx context.Context, playlistID, ownerID string, enriched bool) error {
	res, err := s.playlists().UpdateMany(ctx, playlistFilter(playlistID, ownerID), bson.M{"$set": bson.M{"is_enriched": enriched}})
	if err != nil {
		return fmt.Errorf("%w: failed to update playlist: %v", shared.ErrStore, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
	}
	return nil
}
