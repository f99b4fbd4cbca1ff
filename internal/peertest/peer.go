// Package peertest runs an in-process musicbox server standing in for the
// real peer: the /ws envelope protocol plus the one-shot /api routes. Tests
// point a client at it, script events, and drop connections at will.
package peertest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"musicbox/client/internal/protocol"
)

type wsConn struct {
	mu sync.Mutex
	c  *websocket.Conn
}

func (w *wsConn) writeJSON(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.c.WriteJSON(v)
}

func (w *wsConn) writeRaw(data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.c.WriteMessage(websocket.TextMessage, data)
}

// Peer is one scripted server instance.
type Peer struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu       sync.Mutex
	state    protocol.AppState
	conns    map[*wsConn]struct{}
	commands chan protocol.Command
}

func New() *Peer {
	gin.SetMode(gin.TestMode)
	p := &Peer{
		state: protocol.AppState{
			StoredPlaylists: map[string]protocol.StoredPlaylist{},
			Playlist:        []protocol.Track{},
			Volume:          50,
		},
		conns:    make(map[*wsConn]struct{}),
		commands: make(chan protocol.Command, 32),
	}

	r := gin.New()
	r.GET("/ws", p.handleWS)
	r.GET("/api/state", func(c *gin.Context) {
		c.JSON(http.StatusOK, p.State())
	})
	r.POST("/api/playlists/:name", p.handleUpdatePlaylist)

	p.srv = httptest.NewServer(r)
	return p
}

// WSURL is the websocket endpoint clients dial.
func (p *Peer) WSURL() string {
	return "ws" + strings.TrimPrefix(p.srv.URL, "http") + "/ws"
}

// HTTPBase is the base URL for the one-shot /api routes.
func (p *Peer) HTTPBase() string {
	return p.srv.URL
}

// State returns the state the peer currently serves.
func (p *Peer) State() protocol.AppState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// SetState replaces the state the peer serves.
func (p *Peer) SetState(st protocol.AppState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = st
}

// Commands exposes the fire-and-forget commands the peer has received.
func (p *Peer) Commands() <-chan protocol.Command {
	return p.commands
}

// PushEvent sends an unsolicited event frame on every open connection.
func (p *Peer) PushEvent(ev protocol.Event) {
	for _, wc := range p.snapshotConns() {
		_ = wc.writeJSON(map[string]any{"type": protocol.TypeEvent, "event": ev})
	}
}

// PushRaw sends an arbitrary frame, for malformed-input and unmatched-id
// scenarios.
func (p *Peer) PushRaw(frame string) {
	for _, wc := range p.snapshotConns() {
		_ = wc.writeRaw([]byte(frame))
	}
}

// DropConnections closes every open socket, simulating a transport failure.
func (p *Peer) DropConnections() {
	for _, wc := range p.snapshotConns() {
		_ = wc.c.Close()
	}
}

// WaitConns blocks until n sockets are open or the timeout passes.
func (p *Peer) WaitConns(n int, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		p.mu.Lock()
		open := len(p.conns)
		p.mu.Unlock()
		if open >= n {
			return nil
		}
		time.Sleep(5 * time.Millisecond)
	}
	return fmt.Errorf("timed out waiting for %d connections", n)
}

func (p *Peer) Close() {
	p.DropConnections()
	p.srv.Close()
}

func (p *Peer) snapshotConns() []*wsConn {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*wsConn, 0, len(p.conns))
	for wc := range p.conns {
		out = append(out, wc)
	}
	return out
}

func (p *Peer) handleUpdatePlaylist(c *gin.Context) {
	var pl protocol.StoredPlaylist
	if err := c.ShouldBindJSON(&pl); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	pl.Name = c.Param("name")
	p.mu.Lock()
	p.state.StoredPlaylists[pl.Name] = pl
	p.mu.Unlock()
	c.JSON(http.StatusOK, pl)
}

func (p *Peer) handleWS(c *gin.Context) {
	conn, err := p.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	wc := &wsConn{c: conn}
	p.mu.Lock()
	p.conns[wc] = struct{}{}
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		delete(p.conns, wc)
		p.mu.Unlock()
		conn.Close()
	}()

	for {
		var frame struct {
			Type    string           `json:"type"`
			ID      uint64           `json:"id"`
			Path    string           `json:"path"`
			Data    json.RawMessage  `json:"data"`
			Command protocol.Command `json:"command"`
		}
		if err := conn.ReadJSON(&frame); err != nil {
			return
		}

		switch frame.Type {
		case protocol.TypeRequest:
			resp, ok := p.respond(frame.Path, frame.Data)
			if !ok {
				continue
			}
			if err := wc.writeJSON(map[string]any{
				"type":     protocol.TypeResponse,
				"id":       frame.ID,
				"response": resp,
			}); err != nil {
				return
			}
		case protocol.TypeCommand:
			select {
			case p.commands <- frame.Command:
			default:
			}
		}
	}
}

// respond computes the response payload for a request path. The "stall"
// path never answers, leaving the caller pending for disconnect scenarios.
func (p *Peer) respond(path string, data json.RawMessage) (any, bool) {
	switch path {
	case "stall":
		return nil, false
	case "state":
		return p.State(), true
	case "updateStoredPlaylist":
		var pl protocol.StoredPlaylist
		if err := json.Unmarshal(data, &pl); err != nil {
			return map[string]any{}, true
		}
		p.mu.Lock()
		p.state.StoredPlaylists[pl.Name] = pl
		p.mu.Unlock()
		return pl, true
	default:
		return map[string]any{}, true
	}
}
