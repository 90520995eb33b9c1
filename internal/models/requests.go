package models

import "github.com/google/uuid"

// CreateSongRequest creates or replaces a song in a songbook along with its
// lyric sections.
type CreateSongRequest struct {
	Song
	Lyrics []Lyric `json:"lyrics" validate:"dive"`
}

// EnsureID gives a new song its id and attaches lyrics that name no song.
func (r *CreateSongRequest) EnsureID() {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	for i := range r.Lyrics {
		if r.Lyrics[i].SongID == "" {
			r.Lyrics[i].SongID = r.ID
		}
	}
}

type AcceptPendingSongRequest struct {
	PendingSong    PendingSong `json:"pendingSong"`
	AcceptanceNote string      `json:"acceptanceNote" validate:"notblank"`
}

type RejectPendingSongRequest struct {
	PendingSong     RejectTarget `json:"pendingSong"`
	RejectionReason string       `json:"rejectionReason" validate:"notblank"`
}

// RejectTarget identifies the pending song being rejected. Only the id is
// needed; the rest of the submission is read back from the deleted row.
type RejectTarget struct {
	ID string `json:"id" validate:"songuuid"`
}

type SearchRequest struct {
	SearchText string `query:"searchText" validate:"notblank"`
	Songbook   string `query:"songbook"`
}

type SearchResponse struct {
	MatchedSongs []Song `json:"matchedSongs"`
}
