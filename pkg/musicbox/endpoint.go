// Package musicbox is the typed client surface over the connection layer:
// per-endpoint functions built from a (path, schema) pair, plus a one-shot
// HTTP client for the server's /api routes.
package musicbox

import (
	"context"
	"encoding/json"

	"musicbox/client/internal/protocol"
	"musicbox/client/internal/schema"
)

// Requester is the slice of the connection an endpoint needs.
type Requester interface {
	Request(ctx context.Context, path string, data any) (json.RawMessage, error)
}

// Endpoint binds a request path to the schema that decodes its response.
type Endpoint[T any] struct {
	Path   string
	Schema schema.Schema[T]
}

// Get is the zero-argument shape: fetch, then decode.
func (e Endpoint[T]) Get(ctx context.Context, conn Requester) (T, error) {
	var zero T
	raw, err := conn.Request(ctx, e.Path, nil)
	if err != nil {
		return zero, err
	}
	return schema.DecodeJSON(e.Schema, raw)
}

// Post is the one-argument shape: submit a typed payload, then decode.
func (e Endpoint[T]) Post(ctx context.Context, conn Requester, payload any) (T, error) {
	var zero T
	raw, err := conn.Request(ctx, e.Path, payload)
	if err != nil {
		return zero, err
	}
	return schema.DecodeJSON(e.Schema, raw)
}

// State fetches the full server state.
var State = Endpoint[protocol.AppState]{
	Path:   "state",
	Schema: protocol.AppStateSchema,
}

// UpdateStoredPlaylist submits a stored-playlist mutation and returns the
// playlist as the server now holds it.
var UpdateStoredPlaylist = Endpoint[protocol.StoredPlaylist]{
	Path:   "updateStoredPlaylist",
	Schema: protocol.StoredPlaylistSchema,
}
