// Package typesense mirrors the song catalog into a Typesense collection for
// clients that search it directly.
package typesense

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/typesense/typesense-go/typesense"
	"github.com/typesense/typesense-go/typesense/api"
	"github.com/typesense/typesense-go/typesense/api/pointer"

	"github.com/Church-Life-Apps/Backend/internal/models"
	"github.com/Church-Life-Apps/Backend/internal/normalize"
)

const collectionName = "songs"

type Client struct {
	client *typesense.Client
}

func New(ctx context.Context, apiKey, host string) (*Client, error) {
	client := typesense.NewClient(
		typesense.WithServer(host),
		typesense.WithAPIKey(apiKey),
		typesense.WithConnectionTimeout(5*time.Second),
	)

	tc := &Client{client: client}
	if err := tc.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("error initializing schema: %w", err)
	}

	log.Info().Str("host", host).Msg("typesense client initialized")
	return tc, nil
}

func songSchema() *api.CollectionSchema {
	return &api.CollectionSchema{
		Name: collectionName,
		Fields: []api.Field{
			{Name: "id", Type: "string"},
			{Name: "songbook_id", Type: "string", Facet: pointer.True()},
			{Name: "number", Type: "int32"},
			{Name: "title", Type: "string"},
			{Name: "author", Type: "string", Optional: pointer.True()},
			{Name: "music", Type: "string", Optional: pointer.True()},
			{Name: "lyrics", Type: "string"},
		},
		DefaultSortingField: pointer.String("number"),
	}
}

func (c *Client) initSchema(ctx context.Context) error {
	if _, err := c.client.Collection(collectionName).Retrieve(ctx); err == nil {
		log.Debug().Str("collection", collectionName).Msg("collection already exists")
		return nil
	}

	if _, err := c.client.Collections().Create(ctx, songSchema()); err != nil {
		return fmt.Errorf("error creating collection: %w", err)
	}

	log.Info().Str("collection", collectionName).Msg("typesense collection created")
	return nil
}

// songDocument flattens a song and its lyric sections into one document. The
// lyrics field holds the normalized text of every section in song order.
func songDocument(s models.SongWithLyrics) map[string]any {
	sections := make([]string, 0, len(s.Lyrics))
	for _, l := range s.Lyrics {
		text := l.SearchLyrics
		if text == "" {
			text = normalize.Lyrics(l.Lyrics)
		}
		if text != "" {
			sections = append(sections, text)
		}
	}

	doc := map[string]any{
		"id":          s.ID,
		"songbook_id": s.SongbookID,
		"number":      s.Number,
		"title":       s.Title,
		"lyrics":      strings.Join(sections, "\n"),
	}
	if s.Author != "" {
		doc["author"] = s.Author
	}
	if s.Music != "" {
		doc["music"] = s.Music
	}
	return doc
}

func (c *Client) IndexSong(ctx context.Context, s models.SongWithLyrics) error {
	if _, err := c.client.Collection(collectionName).Documents().Upsert(ctx, songDocument(s)); err != nil {
		return fmt.Errorf("error indexing song %s: %w", s.ID, err)
	}
	return nil
}

// ReindexAll drops the collection and rebuilds it from songs.
func (c *Client) ReindexAll(ctx context.Context, songs []models.SongWithLyrics) error {
	log.Info().Int("songs", len(songs)).Msg("starting full reindex")

	if _, err := c.client.Collection(collectionName).Delete(ctx); err != nil {
		log.Warn().Err(err).Msg("could not delete existing collection")
	}
	if err := c.initSchema(ctx); err != nil {
		return fmt.Errorf("error recreating schema: %w", err)
	}

	for i, s := range songs {
		if err := c.IndexSong(ctx, s); err != nil {
			return err
		}
		if (i+1)%100 == 0 {
			log.Info().Msgf("indexed %d/%d songs", i+1, len(songs))
		}
	}

	log.Info().Int("songs", len(songs)).Msg("reindex complete")
	return nil
}
