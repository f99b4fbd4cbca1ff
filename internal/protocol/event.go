package protocol

import (
	"encoding/json"
	"fmt"
)

// Event tags, a closed set. The server pushes these unsolicited; none of
// them correlate to a request.
const (
	EvPlaylistUpdated  = "PlaylistUpdated"
	EvPlaybackStarted  = "PlaybackStarted"
	EvPlaybackPaused   = "PlaybackPaused"
	EvPlaybackUnpaused = "PlaybackUnpaused"
	EvPlaybackEnded    = "PlaybackEnded"
	EvPlaybackPosition = "PlaybackPosition"
	EvShutdown         = "Shutdown"
)

// Event is a server push. Duration (seconds into the current track) is only
// meaningful for PlaybackPosition.
type Event struct {
	Type     string  `json:"type"`
	Duration float64 `json:"duration,omitempty"`
}

var knownEvents = map[string]bool{
	EvPlaylistUpdated:  true,
	EvPlaybackStarted:  true,
	EvPlaybackPaused:   true,
	EvPlaybackUnpaused: true,
	EvPlaybackEnded:    true,
	EvPlaybackPosition: true,
	EvShutdown:         true,
}

// KnownEvent reports whether tag is in the event vocabulary.
func KnownEvent(tag string) bool {
	return knownEvents[tag]
}

// DecodeEvent parses a raw event payload, rejecting unknown tags.
func DecodeEvent(raw json.RawMessage) (Event, error) {
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return Event{}, fmt.Errorf("malformed event: %w", err)
	}
	if !KnownEvent(ev.Type) {
		return Event{}, fmt.Errorf("unknown event tag %q", ev.Type)
	}
	return ev, nil
}
