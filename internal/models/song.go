package models

import (
	"encoding/json"

	"github.com/google/uuid"
)

type Songbook struct {
	ID                 string `json:"id" db:"id" validate:"notblank,max=50"`
	FullName           string `json:"fullName" db:"full_name" validate:"notblank,max=500"`
	StaticMetadataLink string `json:"staticMetadataLink" db:"static_metadata_link"`
	ImageURL           string `json:"imageUrl" db:"image_url"`
	OpenToNewSongs     bool   `json:"openToNewSongs" db:"open_to_new_songs"`
}

type Song struct {
	ID                string `json:"id" db:"id" validate:"songuuid"`
	SongbookID        string `json:"songbookId" db:"songbook_id" validate:"notblank"`
	Number            int    `json:"number" db:"number" validate:"gt=0"`
	Title             string `json:"title" db:"title" validate:"notblank,max=500"`
	Author            string `json:"author" db:"author" validate:"max=500"`
	Music             string `json:"music" db:"music" validate:"max=500"`
	PresentationOrder string `json:"presentationOrder" db:"presentation_order" validate:"notblank"`
	ImageURL          string `json:"imageUrl" db:"image_url"`
	AudioURL          string `json:"audioUrl" db:"audio_url"`
}

// LyricType names the kind of section a lyric block is. The values match the
// lyric_type enum in the database.
type LyricType string

const (
	LyricTypeVerse     LyricType = "LYRIC_TYPE_VERSE"
	LyricTypePrechorus LyricType = "LYRIC_TYPE_PRECHORUS"
	LyricTypeChorus    LyricType = "LYRIC_TYPE_CHORUS"
	LyricTypeBridge    LyricType = "LYRIC_TYPE_BRIDGE"
)

var lyricTypes = []LyricType{LyricTypeVerse, LyricTypePrechorus, LyricTypeChorus, LyricTypeBridge}

// LyricTypes returns every valid lyric type in display order.
func LyricTypes() []LyricType {
	out := make([]LyricType, len(lyricTypes))
	copy(out, lyricTypes)
	return out
}

func (t LyricType) Valid() bool {
	for _, lt := range lyricTypes {
		if t == lt {
			return true
		}
	}
	return false
}

// Lyric is one section of a song. SearchLyrics is derived from Lyrics on every
// write and never accepted from callers.
type Lyric struct {
	SongID       string    `json:"songId" db:"song_id" validate:"songuuid"`
	LyricType    LyricType `json:"lyricType" db:"lyric_type" validate:"lyrictype"`
	VerseNumber  int       `json:"verseNumber" db:"verse_number" validate:"gt=0"`
	Lyrics       string    `json:"lyrics" db:"lyrics" validate:"notblank"`
	SearchLyrics string    `json:"-" db:"search_lyrics"`
}

type SongWithLyrics struct {
	Song
	Lyrics []Lyric `json:"lyrics"`
}

type PendingSong struct {
	ID                string  `json:"id" db:"id" validate:"songuuid"`
	SongbookID        string  `json:"songbookId" db:"songbook_id" validate:"notblank"`
	Number            int     `json:"number" db:"number" validate:"gt=0"`
	Title             string  `json:"title" db:"title" validate:"notblank,max=500"`
	Author            string  `json:"author" db:"author" validate:"notblank,max=500"`
	Music             string  `json:"music" db:"music" validate:"max=500"`
	PresentationOrder string  `json:"presentationOrder" db:"presentation_order" validate:"notblank"`
	ImageURL          string  `json:"imageUrl" db:"image_url"`
	AudioURL          string  `json:"audioUrl" db:"audio_url"`
	Lyrics            []Lyric `json:"lyrics" db:"lyrics" validate:"dive"`
	RequesterName     string  `json:"requesterName" db:"requester_name"`
	RequesterEmail    string  `json:"requesterEmail" db:"requester_email"`
	RequesterNote     string  `json:"requesterNote" db:"requester_note"`
}

// ToSong returns the canonical song fields of a pending submission.
func (p *PendingSong) ToSong() Song {
	return Song{
		ID:                p.ID,
		SongbookID:        p.SongbookID,
		Number:            p.Number,
		Title:             p.Title,
		Author:            p.Author,
		Music:             p.Music,
		PresentationOrder: p.PresentationOrder,
		ImageURL:          p.ImageURL,
		AudioURL:          p.AudioURL,
	}
}

// EnsureID gives a fresh submission its id. Lyrics submitted without a song
// id belong to the submission.
func (p *PendingSong) EnsureID() {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	for i := range p.Lyrics {
		if p.Lyrics[i].SongID == "" {
			p.Lyrics[i].SongID = p.ID
		}
	}
}

// EncodeLyrics serializes pending lyrics for the pending_songs table. The
// derived search column is not part of the blob.
func EncodeLyrics(lyrics []Lyric) ([]byte, error) {
	if lyrics == nil {
		lyrics = []Lyric{}
	}
	return json.Marshal(lyrics)
}

// DecodeLyrics is the inverse of EncodeLyrics. A NULL or empty blob decodes to
// an empty slice.
func DecodeLyrics(data []byte) ([]Lyric, error) {
	lyrics := []Lyric{}
	if len(data) == 0 {
		return lyrics, nil
	}
	if err := json.Unmarshal(data, &lyrics); err != nil {
		return nil, err
	}
	if lyrics == nil {
		lyrics = []Lyric{}
	}
	return lyrics, nil
}
