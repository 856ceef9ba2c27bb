package repositories

import (
	"slices"
	"testing"
	"time"

	"github.com/rdeepak-711/spotify-playlist-app/internal/models"
	"go.mongodb.org/mongo-driver/bson"
)

func TestMongoUpdates(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("track upsert never overwrites enrichment", func(t *testing.T) {
		track := testTrack("t1", models.LikedSongsID, "u1")
		update := trackUpsertUpdate(track)

		set := update["$set"].(bson.M)
		for _, field := range []string{"genre", "language", "is_enriched", "contributor"} {
			if _, ok := set[field]; ok {
				t.Errorf("%s must not be in $set", field)
			}
		}

		onInsert := update["$setOnInsert"].(bson.M)
		if onInsert["is_enriched"] != false {
			t.Errorf("expected is_enriched on insert, got %v", onInsert["is_enriched"])
		}
		if genre := onInsert["genre"].([]string); genre == nil || len(genre) != 0 {
			t.Errorf("expected empty genre list, got %v", genre)
		}

		each := update["$addToSet"].(bson.M)["users_with_track"].(bson.M)["$each"].([]string)
		if !slices.Equal(each, []string{"u1"}) {
			t.Errorf("unexpected $addToSet %v", each)
		}
		if _, ok := set["synced_at"]; ok {
			t.Error("re-syncing must not write a timestamp")
		}
	})

	t.Run("track upsert with no users adds an empty set", func(t *testing.T) {
		update := trackUpsertUpdate(testTrack("t1", "p1"))
		each := update["$addToSet"].(bson.M)["users_with_track"].(bson.M)["$each"].([]string)
		if each == nil {
			t.Error("$each must be an array, not null")
		}
	})

	t.Run("playlist upsert keying", func(t *testing.T) {
		regular := playlistUpsertModel(models.Playlist{PlaylistID: "p1", OwnerID: "u1"})
		if f := regular.Filter.(bson.M); len(f) != 1 || f["playlist_id"] != "p1" {
			t.Errorf("expected playlist_id-only filter, got %v", f)
		}

		liked := playlistUpsertModel(models.Playlist{PlaylistID: models.LikedSongsID, OwnerID: "u1"})
		if f := liked.Filter.(bson.M); f["owner_id"] != "u1" {
			t.Errorf("expected owner in liked songs filter, got %v", f)
		}

		update := regular.Update.(bson.M)
		if _, ok := update["$set"].(bson.M)["is_enriched"]; ok {
			t.Error("is_enriched must only be set on insert")
		}
		if update["$set"].(bson.M)[catalogField] != true {
			t.Error("expected catalog playlists to be flagged")
		}
		if liked.Update.(bson.M)["$set"].(bson.M)[catalogField] != false {
			t.Error("expected liked songs entries not to be flagged")
		}
		if regular.Upsert == nil || !*regular.Upsert {
			t.Error("expected upsert")
		}
	})

	t.Run("login keeps credits", func(t *testing.T) {
		update := userLoginUpdate(&models.User{UserID: "u1", Credits: 3, AccessToken: []byte("a")}, now)

		set := update["$set"].(bson.M)
		if _, ok := set["credits"]; ok {
			t.Error("credits must not be overwritten on login")
		}
		if _, ok := set["refresh_token"]; ok {
			t.Error("nil refresh token must keep the stored one")
		}
		if update["$setOnInsert"].(bson.M)["created_at"] != now {
			t.Error("expected created_at on insert")
		}
	})

	t.Run("catalog playlist ids are unique across owners", func(t *testing.T) {
		var found bool
		for _, idx := range indexPlan()[playlistsCollection] {
			keys := idx.Keys.(bson.D)
			if len(keys) != 1 || keys[0].Key != "playlist_id" {
				continue
			}
			found = true
			if idx.Options.Unique == nil || !*idx.Options.Unique {
				t.Error("expected a unique index")
			}
			filter, ok := idx.Options.PartialFilterExpression.(bson.M)
			if !ok || filter[catalogField] != true {
				t.Errorf("expected partial filter on %s, got %v", catalogField, idx.Options.PartialFilterExpression)
			}
		}
		if !found {
			t.Error("expected a playlist_id index")
		}
	})

	t.Run("debit is conditional", func(t *testing.T) {
		f := debitFilter("u1", 3)
		if f["credits"].(bson.M)["$gte"] != 3 {
			t.Errorf("unexpected filter %v", f)
		}
	})

	t.Run("track query filter", func(t *testing.T) {
		f := trackQueryFilter(models.TrackQuery{PlaylistID: models.LikedSongsID, Member: "u1", EnrichedOnly: true})
		if f["playlist_id"] != models.LikedSongsID || f["users_with_track"] != "u1" || f["is_enriched"] != true {
			t.Errorf("unexpected filter %v", f)
		}
		if len(trackQueryFilter(models.TrackQuery{})) != 0 {
			t.Error("expected empty filter")
		}
	})

	t.Run("enrichment update", func(t *testing.T) {
		set := enrichmentUpdate(models.Classification{Language: "English", Genre: "Rock", Subgenre: ""}, "u1")["$set"].(bson.M)
		if !slices.Equal(set["genre"].([]string), []string{"Rock", ""}) || set["is_enriched"] != true || set["contributor"] != "u1" {
			t.Errorf("unexpected update %v", set)
		}
	})
}
