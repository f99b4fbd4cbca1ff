package musicbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"musicbox/client/internal/protocol"
	"musicbox/client/internal/schema"
)

const defaultHTTPTimeout = 15 * time.Second

// HTTPOptions are caller-supplied transport options, merged over defaults.
type HTTPOptions struct {
	BaseURL string
	Timeout time.Duration
	Header  http.Header
}

// HTTPClient performs one-shot JSON fetches against the server's /api
// routes, schema-decoded on the way back.
type HTTPClient struct {
	base   string
	header http.Header
	http   *http.Client
}

// NewHTTPClient merges opts over defaults.
func NewHTTPClient(opts HTTPOptions) *HTTPClient {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	for k, vs := range opts.Header {
		header[k] = append([]string(nil), vs...)
	}
	return &HTTPClient{
		base:   opts.BaseURL,
		header: header,
		http:   &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) do(ctx context.Context, method, p string, body any) ([]byte, error) {
	u, err := url.Parse(c.base)
	if err != nil {
		return nil, fmt.Errorf("bad base url: %w", err)
	}
	u.Path = path.Join(u.Path, p)

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rdr)
	if err != nil {
		return nil, err
	}
	for k, vs := range c.header {
		req.Header[k] = vs
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, string(b))
	}
	return b, nil
}

// GetJSON fetches path and decodes the response with s.
func GetJSON[T any](ctx context.Context, c *HTTPClient, p string, s schema.Schema[T]) (T, error) {
	var zero T
	b, err := c.do(ctx, http.MethodGet, p, nil)
	if err != nil {
		return zero, err
	}
	return schema.DecodeJSON(s, b)
}

// PostJSON submits body as JSON to path and decodes the response with s.
func PostJSON[T any](ctx context.Context, c *HTTPClient, p string, body any, s schema.Schema[T]) (T, error) {
	var zero T
	b, err := c.do(ctx, http.MethodPost, p, body)
	if err != nil {
		return zero, err
	}
	return schema.DecodeJSON(s, b)
}

// GetState fetches the full server state in one shot.
func (c *HTTPClient) GetState(ctx context.Context) (protocol.AppState, error) {
	return GetJSON(ctx, c, "/api/state", protocol.AppStateSchema)
}

// UpdateStoredPlaylist submits a stored-playlist mutation.
func (c *HTTPClient) UpdateStoredPlaylist(ctx context.Context, pl protocol.StoredPlaylist) (protocol.StoredPlaylist, error) {
	return PostJSON(ctx, c, "/api/playlists/"+url.PathEscape(pl.Name), pl, protocol.StoredPlaylistSchema)
}
