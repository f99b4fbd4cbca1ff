package ws

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"musicbox/client/internal/peertest"
	"musicbox/client/internal/protocol"
	"musicbox/client/internal/schema"
)

func testConn(t *testing.T, peer *peertest.Peer) *Conn {
	t.Helper()
	conn := Dial(Options{
		URL:        peer.WSURL(),
		MinBackoff: 10 * time.Millisecond,
		MaxBackoff: 50 * time.Millisecond,
	})
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestRequestStateRoundTrip(t *testing.T) {
	peer := peertest.New()
	defer peer.Close()
	conn := testConn(t, peer)
	ctx := testCtx(t)

	raw, err := conn.Request(ctx, "state", nil)
	require.NoError(t, err)

	st, err := schema.DecodeJSON(protocol.AppStateSchema, raw)
	require.NoError(t, err)
	require.Empty(t, st.StoredPlaylists)
	require.Empty(t, st.Playlist)
	require.Nil(t, st.PlayState)
	require.Equal(t, float64(50), st.Volume)
}

func TestRequestQueuedBeforeOpen(t *testing.T) {
	peer := peertest.New()
	defer peer.Close()
	conn := testConn(t, peer)
	ctx := testCtx(t)

	// No WaitOpen: the frame is queued while the dial is in flight and
	// flushed on open.
	raw, err := conn.Request(ctx, "state", nil)
	require.NoError(t, err)
	require.NotEmpty(t, raw)
}

func TestEventReachesSubscriberWithoutTouchingRequests(t *testing.T) {
	peer := peertest.New()
	defer peer.Close()
	conn := testConn(t, peer)
	ctx := testCtx(t)

	events, unsubscribe := conn.Subscribe()
	defer unsubscribe()

	require.NoError(t, conn.WaitOpen(ctx))
	require.NoError(t, peer.WaitConns(1, time.Second))

	pending := make(chan error, 1)
	go func() {
		_, err := conn.Request(ctx, "stall", nil)
		pending <- err
	}()

	peer.PushEvent(protocol.Event{Type: protocol.EvPlaybackPosition, Duration: 120})

	select {
	case ev := <-events:
		require.Equal(t, protocol.EvPlaybackPosition, ev.Type)
		require.Equal(t, float64(120), ev.Duration)
	case <-ctx.Done():
		t.Fatal("event never delivered")
	}

	// The pending request is untouched by the push.
	select {
	case err := <-pending:
		t.Fatalf("pending request settled unexpectedly: %v", err)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDisconnectRejectsPendingThenReconnects(t *testing.T) {
	peer := peertest.New()
	defer peer.Close()
	conn := testConn(t, peer)
	ctx := testCtx(t)

	require.NoError(t, conn.WaitOpen(ctx))
	require.NoError(t, peer.WaitConns(1, time.Second))

	pending := make(chan error, 1)
	go func() {
		_, err := conn.Request(ctx, "stall", nil)
		pending <- err
	}()
	time.Sleep(50 * time.Millisecond) // let the request hit the wire

	peer.DropConnections()

	select {
	case err := <-pending:
		require.ErrorIs(t, err, ErrConnectionLost)
	case <-ctx.Done():
		t.Fatal("pending request never settled after disconnect")
	}

	// The replacement socket comes up on its own and serves new requests.
	raw, err := conn.Request(ctx, "state", nil)
	require.NoError(t, err)
	require.NotEmpty(t, raw)
}

func TestUnmatchedResponseIDIsHarmless(t *testing.T) {
	peer := peertest.New()
	defer peer.Close()
	conn := testConn(t, peer)
	ctx := testCtx(t)

	require.NoError(t, conn.WaitOpen(ctx))
	require.NoError(t, peer.WaitConns(1, time.Second))

	peer.PushRaw(`{"type":"Response","id":99,"response":{}}`)

	// Connection keeps working; no pending entry was disturbed.
	raw, err := conn.Request(ctx, "state", nil)
	require.NoError(t, err)
	require.NotEmpty(t, raw)
}

func TestMalformedFramesAreDiscarded(t *testing.T) {
	peer := peertest.New()
	defer peer.Close()
	conn := testConn(t, peer)
	ctx := testCtx(t)

	require.NoError(t, conn.WaitOpen(ctx))
	require.NoError(t, peer.WaitConns(1, time.Second))

	peer.PushRaw(`{"type":"Telemetry","id":1}`)
	peer.PushRaw(`{"type":"Event","event":{"type":"Mystery"}}`)
	peer.PushRaw(`this is not json`)

	raw, err := conn.Request(ctx, "state", nil)
	require.NoError(t, err)
	require.NotEmpty(t, raw)
	require.Equal(t, StateOpen, conn.State())
}

func TestSendCommandReachesPeer(t *testing.T) {
	peer := peertest.New()
	defer peer.Close()
	conn := testConn(t, peer)
	ctx := testCtx(t)

	require.NoError(t, conn.WaitOpen(ctx))
	require.NoError(t, conn.SendCommand(protocol.StartPlaylist("morning", true)))

	select {
	case cmd := <-peer.Commands():
		require.Equal(t, protocol.CmdStartPlaylist, cmd.Type)
		require.Equal(t, "morning", cmd.Name)
		require.True(t, cmd.Force)
	case <-ctx.Done():
		t.Fatal("command never arrived")
	}
}

func TestSendCommandRejectsUnknownTag(t *testing.T) {
	peer := peertest.New()
	defer peer.Close()
	conn := testConn(t, peer)

	require.Error(t, conn.SendCommand(protocol.Command{Type: "Dance"}))
}

func TestCloseSettlesPendingAndSubscriptions(t *testing.T) {
	peer := peertest.New()
	defer peer.Close()
	conn := testConn(t, peer)
	ctx := testCtx(t)

	require.NoError(t, conn.WaitOpen(ctx))

	events, _ := conn.Subscribe()
	pending := make(chan error, 1)
	go func() {
		_, err := conn.Request(ctx, "stall", nil)
		pending <- err
	}()
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, conn.Close())

	select {
	case err := <-pending:
		require.ErrorIs(t, err, ErrClosed)
	case <-ctx.Done():
		t.Fatal("pending request never settled after close")
	}

	_, open := <-events
	require.False(t, open)

	_, err := conn.Request(ctx, "state", nil)
	require.ErrorIs(t, err, ErrClosed)
}

func TestRequestHonorsContextCancellation(t *testing.T) {
	peer := peertest.New()
	defer peer.Close()
	conn := testConn(t, peer)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	require.NoError(t, conn.WaitOpen(ctx))

	_, err := conn.Request(ctx, "stall", nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
