package musicbox

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"musicbox/client/internal/peertest"
	"musicbox/client/internal/protocol"
)

func TestHTTPGetState(t *testing.T) {
	peer := peertest.New()
	defer peer.Close()

	peer.SetState(protocol.AppState{
		StoredPlaylists: map[string]protocol.StoredPlaylist{},
		Playlist:        []protocol.Track{{Path: "a.mp3", Title: "a"}},
		PlayState:       &protocol.PlayState{Position: 0, Duration: 12, Paused: true},
		Volume:          0.4,
	})

	client := NewHTTPClient(HTTPOptions{BaseURL: peer.HTTPBase()})
	st, err := client.GetState(context.Background())
	require.NoError(t, err)
	require.Len(t, st.Playlist, 1)
	require.NotNil(t, st.PlayState)
	require.True(t, st.PlayState.Paused)
	require.Equal(t, 0.4, st.Volume)
}

func TestHTTPUpdateStoredPlaylist(t *testing.T) {
	peer := peertest.New()
	defer peer.Close()

	client := NewHTTPClient(HTTPOptions{BaseURL: peer.HTTPBase(), Timeout: 2 * time.Second})
	pl := protocol.StoredPlaylist{
		Name:   "workout",
		Tracks: []protocol.Track{{Path: "b.mp3", Title: "b"}},
	}
	got, err := client.UpdateStoredPlaylist(context.Background(), pl)
	require.NoError(t, err)
	require.Equal(t, pl, got)
	require.Equal(t, pl, peer.State().StoredPlaylists["workout"])
}

func TestHTTPErrorStatusSurfaces(t *testing.T) {
	client := NewHTTPClient(HTTPOptions{BaseURL: "http://127.0.0.1:1", Timeout: 200 * time.Millisecond})
	_, err := client.GetState(context.Background())
	require.Error(t, err)
}

func TestHTTPOptionsMergeOverDefaults(t *testing.T) {
	c := NewHTTPClient(HTTPOptions{BaseURL: "http://example.invalid"})
	require.Equal(t, defaultHTTPTimeout, c.http.Timeout)
	require.Equal(t, "application/json", c.header.Get("Content-Type"))

	custom := NewHTTPClient(HTTPOptions{
		BaseURL: "http://example.invalid",
		Timeout: time.Second,
		Header:  map[string][]string{"X-Client": {"musicbox"}},
	})
	require.Equal(t, time.Second, custom.http.Timeout)
	require.Equal(t, "musicbox", custom.header.Get("X-Client"))
	require.Equal(t, "application/json", custom.header.Get("Content-Type"))
}
