// Package incremental persists the state of a completed build pass — source
// file hashes, build-graph edges, and consulted defaults files — and uses it
// to select the minimal set of nodes to re-render on the next pass.
package incremental

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// BuildState is the persisted record of one build pass.
type BuildState struct {
	ID        string
	CreatedAt time.Time
	// Hashes maps relative paths (content files, defaults files, and
	// template files prefixed with "templates/") to SHA-256 hex digests.
	Hashes map[string]string
	// Edges maps a node identity to the node identities it depended on.
	Edges map[string][]string
	// Consulted maps a node identity to the defaults files merged into it.
	Consulted map[string][]string
}

// Store persists build states in SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open creates or opens the build-state database at dbPath.
// Use ":memory:" for an in-memory database.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open build-state database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS builds (
		id TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS file_hashes (
		build_id TEXT NOT NULL,
		path TEXT NOT NULL,
		hash TEXT NOT NULL,
		PRIMARY KEY (build_id, path)
	);
	CREATE TABLE IF NOT EXISTS graph_edges (
		build_id TEXT NOT NULL,
		src TEXT NOT NULL,
		dep TEXT NOT NULL,
		PRIMARY KEY (build_id, src, dep)
	);
	CREATE TABLE IF NOT EXISTS consulted_defaults (
		build_id TEXT NOT NULL,
		node TEXT NOT NULL,
		defaults_path TEXT NOT NULL,
		PRIMARY KEY (build_id, node, defaults_path)
	);
	CREATE INDEX IF NOT EXISTS idx_builds_created ON builds(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// LoadLatest returns the most recent build state, or nil when no build has
// been recorded yet.
func (s *Store) LoadLatest(ctx context.Context) (*BuildState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		id      string
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, created_at FROM builds ORDER BY created_at DESC, id DESC LIMIT 1",
	).Scan(&id, &created)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load latest build: %w", err)
	}

	st := &BuildState{
		ID:        id,
		CreatedAt: time.Unix(created, 0),
		Hashes:    make(map[string]string),
		Edges:     make(map[string][]string),
		Consulted: make(map[string][]string),
	}

	if err := s.loadHashes(ctx, st); err != nil {
		return nil, err
	}
	if err := s.loadEdges(ctx, st); err != nil {
		return nil, err
	}
	if err := s.loadConsulted(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Store) loadHashes(ctx context.Context, st *BuildState) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT path, hash FROM file_hashes WHERE build_id = ?", st.ID)
	if err != nil {
		return fmt.Errorf("load file hashes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var p, h string
		if err := rows.Scan(&p, &h); err != nil {
			return fmt.Errorf("scan file hash: %w", err)
		}
		st.Hashes[p] = h
	}
	return rows.Err()
}

func (s *Store) loadEdges(ctx context.Context, st *BuildState) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT src, dep FROM graph_edges WHERE build_id = ? ORDER BY src, dep", st.ID)
	if err != nil {
		return fmt.Errorf("load graph edges: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var src, dep string
		if err := rows.Scan(&src, &dep); err != nil {
			return fmt.Errorf("scan graph edge: %w", err)
		}
		st.Edges[src] = append(st.Edges[src], dep)
	}
	return rows.Err()
}

func (s *Store) loadConsulted(ctx context.Context, st *BuildState) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT node, defaults_path FROM consulted_defaults WHERE build_id = ? ORDER BY node, defaults_path", st.ID)
	if err != nil {
		return fmt.Errorf("load consulted defaults: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var node, dp string
		if err := rows.Scan(&node, &dp); err != nil {
			return fmt.Errorf("scan consulted defaults: %w", err)
		}
		st.Consulted[node] = append(st.Consulted[node], dp)
	}
	return rows.Err()
}

// SaveBuild records a completed build state. Older builds are pruned so the
// database holds only the most recent pass.
func (s *Store) SaveBuild(ctx context.Context, st *BuildState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{
		"DELETE FROM file_hashes", "DELETE FROM graph_edges",
		"DELETE FROM consulted_defaults", "DELETE FROM builds",
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("prune previous build: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO builds (id, created_at) VALUES (?, ?)",
		st.ID, st.CreatedAt.Unix()); err != nil {
		return fmt.Errorf("insert build: %w", err)
	}

	for p, h := range st.Hashes {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO file_hashes (build_id, path, hash) VALUES (?, ?, ?)",
			st.ID, p, h); err != nil {
			return fmt.Errorf("insert file hash: %w", err)
		}
	}
	for src, deps := range st.Edges {
		for _, dep := range deps {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO graph_edges (build_id, src, dep) VALUES (?, ?, ?)",
				st.ID, src, dep); err != nil {
				return fmt.Errorf("insert graph edge: %w", err)
			}
		}
	}
	for node, paths := range st.Consulted {
		for _, dp := range paths {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO consulted_defaults (build_id, node, defaults_path) VALUES (?, ?, ?)",
				st.ID, node, dp); err != nil {
				return fmt.Errorf("insert consulted defaults: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit build state: %w", err)
	}
	return nil
}
