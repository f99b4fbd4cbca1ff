package protocol

import "musicbox/client/internal/schema"

// Track is one playable file as the server reports it.
type Track struct {
	Path  string `json:"path"`
	Title string `json:"title"`
}

// StoredPlaylist is a named, ordered track collection kept on the server.
type StoredPlaylist struct {
	Name   string  `json:"name"`
	Tracks []Track `json:"tracks"`
}

// PlayState describes the current playback, present only while something is
// queued. Duration is seconds into the current track.
type PlayState struct {
	Position int     `json:"position"`
	Duration float64 `json:"duration"`
	Paused   bool    `json:"paused"`
}

// AppState is the full server-side state shape consumed by the UI.
type AppState struct {
	StoredPlaylists map[string]StoredPlaylist `json:"storedPlaylists"`
	Playlist        []Track                   `json:"playlist"`
	PlayState       *PlayState                `json:"playState,omitempty"`
	Volume          float64                   `json:"volume"`
}

// TrackSchema decodes a Track payload.
var TrackSchema = schema.Object(func(o *schema.Obj) Track {
	return Track{
		Path:  schema.Field(o, "path", schema.String()),
		Title: schema.Field(o, "title", schema.String()),
	}
})

// StoredPlaylistSchema decodes a StoredPlaylist payload.
var StoredPlaylistSchema = schema.Object(func(o *schema.Obj) StoredPlaylist {
	return StoredPlaylist{
		Name:   schema.Field(o, "name", schema.String()),
		Tracks: schema.Field(o, "tracks", schema.Slice(TrackSchema)),
	}
})

// PlayStateSchema decodes a PlayState payload.
var PlayStateSchema = schema.Object(func(o *schema.Obj) PlayState {
	return PlayState{
		Position: schema.Field(o, "position", schema.Int()),
		Duration: schema.Field(o, "duration", schema.Float64()),
		Paused:   schema.Field(o, "paused", schema.Bool()),
	}
})

// AppStateSchema decodes the full AppState payload. playState may be absent
// or null, which decodes to a nil pointer.
var AppStateSchema = schema.Object(func(o *schema.Obj) AppState {
	return AppState{
		StoredPlaylists: schema.Field(o, "storedPlaylists", schema.Dict(StoredPlaylistSchema)),
		Playlist:        schema.Field(o, "playlist", schema.Slice(TrackSchema)),
		PlayState:       schema.OptField(o, "playState", PlayStateSchema),
		Volume:          schema.Field(o, "volume", schema.Float64()),
	}
})
