// Package repo persists the last decoded server state so the client can
// show something useful while the server is unreachable.
package repo

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"musicbox/client/internal/protocol"
	"musicbox/client/internal/schema"
)

// ErrNoSnapshot means nothing has been cached yet.
var ErrNoSnapshot = errors.New("no snapshot stored")

// SnapshotRepo is a single-row sqlite cache of the last AppState.
type SnapshotRepo struct {
	db *sql.DB
}

func NewSnapshotRepo(path string) (*SnapshotRepo, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	r := &SnapshotRepo{db: db}
	if err := r.init(); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func (r *SnapshotRepo) init() error {
	_, err := r.db.Exec(`CREATE TABLE IF NOT EXISTS snapshot(
		id INTEGER PRIMARY KEY CHECK (id = 1),
		state TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);`)
	return err
}

// Save upserts the cached state with the current time.
func (r *SnapshotRepo) Save(st protocol.AppState) error {
	b, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = r.db.Exec(`INSERT INTO snapshot(id, state, updated_at) VALUES(1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state=excluded.state,
			updated_at=excluded.updated_at;`,
		string(b), time.Now().UTC())
	return err
}

// Load returns the cached state and when it was saved. The stored blob goes
// back through the AppState schema, so a cache written by an older build
// that no longer decodes fails loudly instead of half-parsing.
func (r *SnapshotRepo) Load() (protocol.AppState, time.Time, error) {
	var blob string
	var updatedAt time.Time
	err := r.db.QueryRow(`SELECT state, updated_at FROM snapshot WHERE id=1;`).
		Scan(&blob, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return protocol.AppState{}, time.Time{}, ErrNoSnapshot
	}
	if err != nil {
		return protocol.AppState{}, time.Time{}, err
	}
	st, err := schema.DecodeJSON(protocol.AppStateSchema, []byte(blob))
	if err != nil {
		return protocol.AppState{}, time.Time{}, err
	}
	return st, updatedAt, nil
}

func (r *SnapshotRepo) Close() error {
	return r.db.Close()
}
