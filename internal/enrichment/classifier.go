// package enrichment classifies tracks through the oracle and writes the result
// onto every stored copy of the track.
package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/rdeepak-711/spotify-playlist-app/internal/models"
	"github.com/rdeepak-711/spotify-playlist-app/internal/services"
	"github.com/rdeepak-711/spotify-playlist-app/internal/shared"
	"github.com/rdeepak-711/spotify-playlist-app/internal/taxonomy"
)

// TrackInfo is what the oracle is told about a track.
type TrackInfo struct {
	Name    string   `json:"track_name" validate:"required"`
	Artists []string `json:"artists" validate:"required,min=1,dive,required"`
	Album   string   `json:"album_name" validate:"required"`
}

// InfoOf describes a stored track.
func InfoOf(t models.Track) TrackInfo {
	return TrackInfo{Name: t.Name, Artists: t.Artists, Album: t.AlbumName}
}

// Classifier turns oracle answers into vocabulary classifications.
type Classifier struct {
	oracle services.Oracle
	system string
	logger *log.Logger
}

func NewClassifier(oracle services.Oracle, logger *log.Logger) *Classifier {
	return &Classifier{
		oracle: oracle,
		system: SystemPrompt(),
		logger: shared.WithLogger(logger, "component", "classifier"),
	}
}

// SystemPrompt constrains the oracle to the genre vocabulary and a JSON answer.
func SystemPrompt() string {
	var b strings.Builder
	b.WriteString("You classify music tracks. Answer with a single JSON object and nothing else, shaped as\n")
	b.WriteString(`{"language": "<primary language of the lyrics, or Instrumental>", "genre": "<genre>", "subgenre": "<subgenre>"}`)
	b.WriteString("\n\ngenre must be exactly one of the genres below and subgenre exactly one of the subgenres listed for it.\n\n")
	for _, g := range taxonomy.Genres {
		fmt.Fprintf(&b, "%s: %s\n", g, strings.Join(taxonomy.Subgenres[g], ", "))
	}
	return b.String()
}

// UserPrompt describes one track to the oracle.
func UserPrompt(info TrackInfo) string {
	return fmt.Sprintf("Track: %s\nArtists: %s\nAlbum: %s", info.Name, strings.Join(info.Artists, ", "), info.Album)
}

// Classify asks the oracle about info once.
//
// Empty input fails with [shared.ErrInvalidInput] before any call. An answer
// that is not the expected JSON fails with [shared.ErrOracleParse]; it is not retried.
// Genre and subgenre outside the vocabulary are mapped onto it.
func (c *Classifier) Classify(ctx context.Context, info TrackInfo) (models.Classification, error) {
	if err := models.Validate(info); err != nil {
		return models.Classification{}, err
	}

	reply, err := c.oracle.Complete(ctx, c.system, UserPrompt(info))
	if err != nil {
		return models.Classification{}, err
	}

	raw, err := ParseReply(reply)
	if err != nil {
		c.logger.Warn("unparseable classification", "track", info.Name, "reply", reply)
		return models.Classification{}, err
	}

	genre, subgenre := taxonomy.Resolve(raw.Genre, raw.Subgenre)
	if genre != raw.Genre || subgenre != raw.Subgenre {
		c.logger.Debug("classification mapped", "track", info.Name, "genre", raw.Genre, "mapped_genre", genre, "subgenre", raw.Subgenre, "mapped_subgenre", subgenre)
	}

	return models.Classification{Language: raw.Language, Genre: genre, Subgenre: subgenre}, nil
}

// ParseReply decodes the oracle's JSON answer, tolerating a fenced code block around it.
func ParseReply(reply string) (models.Classification, error) {
	body := stripFence(reply)

	var c models.Classification
	if err := json.Unmarshal([]byte(body), &c); err != nil {
		return models.Classification{}, fmt.Errorf("%w: %v", shared.ErrOracleParse, err)
	}

	c.Language = strings.TrimSpace(c.Language)
	c.Genre = strings.TrimSpace(c.Genre)
	c.Subgenre = strings.TrimSpace(c.Subgenre)
	if c.Language == "" {
		return models.Classification{}, fmt.Errorf("%w: missing language", shared.ErrOracleParse)
	}
	return c, nil
}

// stripFence removes a ``` or ```json wrapper.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}
