package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"topomap/internal/domain"
	"topomap/internal/repository"

	_ "modernc.org/sqlite"
)

// Repository implements repository.Repository using SQLite
type Repository struct {
	db *sql.DB
}

var _ repository.Repository = (*Repository)(nil)

// New creates a new SQLite repository. dbPath may be ":memory:".
func New(dbPath string) (*Repository, error) {
	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	if dbPath != ":memory:" && !strings.HasPrefix(dbPath, "file::memory:") {
		dsn += "&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite has a single writer; one connection also keeps :memory: databases shared
	db.SetMaxOpenConns(1)

	repo := &Repository{db: db}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS nodes (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'unknown',
		x REAL NOT NULL DEFAULT 0,
		y REAL NOT NULL DEFAULT 0,
		lat REAL,
		lng REAL,
		parent_id TEXT REFERENCES nodes(id) ON DELETE SET NULL DEFERRABLE INITIALLY DEFERRED,
		level INTEGER NOT NULL DEFAULT 0,
		metadata JSON,
		metrics JSON,
		port_status JSON,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS links (
		id TEXT PRIMARY KEY,
		source_node_id TEXT NOT NULL,
		source_port TEXT NOT NULL,
		target_node_id TEXT NOT NULL,
		target_port TEXT NOT NULL,
		link_type TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'connected',
		metrics JSON,
		style JSON,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (source_node_id) REFERENCES nodes(id) ON DELETE CASCADE DEFERRABLE INITIALLY DEFERRED,
		FOREIGN KEY (target_node_id) REFERENCES nodes(id) ON DELETE CASCADE DEFERRABLE INITIALLY DEFERRED
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value JSON NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_nodes_parent ON nodes(parent_id);
	CREATE INDEX IF NOT EXISTS idx_links_source ON links(source_node_id);
	CREATE INDEX IF NOT EXISTS idx_links_target ON links(target_node_id);
	`

	_, err := r.db.Exec(schema)
	return err
}

// LoadTopology loads every node and link, in insertion order
func (r *Repository) LoadTopology(ctx context.Context) (*domain.Fragment, error) {
	fragment := domain.NewFragment()
	// the pool holds one connection, so each result set is closed before the next query
	if err := r.loadNodes(ctx, fragment); err != nil {
		return nil, err
	}
	if err := r.loadLinks(ctx, fragment); err != nil {
		return nil, err
	}
	return fragment, nil
}

func (r *Repository) loadNodes(ctx context.Context, fragment *domain.Fragment) error {
	rows, err := r.db.QueryContext(ctx, `SELECT `+nodeColumns+` FROM nodes ORDER BY rowid`)
	if err != nil {
		return fmt.Errorf("failed to query nodes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row nodeRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return fmt.Errorf("failed to scan node: %w", err)
		}
		node, err := row.toDomain()
		if err != nil {
			return fmt.Errorf("node %s: %w", row.ID, err)
		}
		fragment.AddNode(*node)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating nodes: %w", err)
	}
	return nil
}

func (r *Repository) loadLinks(ctx context.Context, fragment *domain.Fragment) error {
	rows, err := r.db.QueryContext(ctx, `SELECT `+linkColumns+` FROM links ORDER BY rowid`)
	if err != nil {
		return fmt.Errorf("failed to query links: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row linkRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return fmt.Errorf("failed to scan link: %w", err)
		}
		link, err := row.toDomain()
		if err != nil {
			return fmt.Errorf("link %s: %w", row.ID, err)
		}
		fragment.AddLink(*link)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating links: %w", err)
	}
	return nil
}

// GetNode retrieves a single node by ID
func (r *Repository) GetNode(ctx context.Context, id string) (*domain.Node, error) {
	var row nodeRow
	err := r.db.QueryRowContext(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE id = ?`, id).Scan(row.scanArgs()...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("node %s: %w", id, repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get node: %w", err)
	}
	return row.toDomain()
}

// GetLink retrieves a single link by ID
func (r *Repository) GetLink(ctx context.Context, id string) (*domain.Link, error) {
	var row linkRow
	err := r.db.QueryRowContext(ctx, `SELECT `+linkColumns+` FROM links WHERE id = ?`, id).Scan(row.scanArgs()...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("link %s: %w", id, repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get link: %w", err)
	}
	return row.toDomain()
}

// execer is satisfied by both *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

const upsertNodeSQL = `
	INSERT INTO nodes (` + nodeColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		type = excluded.type,
		status = excluded.status,
		x = excluded.x,
		y = excluded.y,
		lat = excluded.lat,
		lng = excluded.lng,
		parent_id = excluded.parent_id,
		level = excluded.level,
		metadata = excluded.metadata,
		metrics = excluded.metrics,
		port_status = excluded.port_status,
		updated_at = excluded.updated_at
`

const upsertLinkSQL = `
	INSERT INTO links (` + linkColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		source_node_id = excluded.source_node_id,
		source_port = excluded.source_port,
		target_node_id = excluded.target_node_id,
		target_port = excluded.target_port,
		link_type = excluded.link_type,
		status = excluded.status,
		metrics = excluded.metrics,
		style = excluded.style
`

func upsertNode(ctx context.Context, ex execer, node *domain.Node) error {
	args, err := nodeInsertArgs(node)
	if err != nil {
		return err
	}
	if _, err := ex.ExecContext(ctx, upsertNodeSQL, args...); err != nil {
		return fmt.Errorf("failed to upsert node %s: %w", node.ID, err)
	}
	return nil
}

func upsertLink(ctx context.Context, ex execer, link *domain.Link) error {
	args, err := linkInsertArgs(link)
	if err != nil {
		return err
	}
	if _, err := ex.ExecContext(ctx, upsertLinkSQL, args...); err != nil {
		return fmt.Errorf("failed to upsert link %s: %w", link.ID, err)
	}
	return nil
}

// UpsertNode creates or updates a node
func (r *Repository) UpsertNode(ctx context.Context, node *domain.Node) error {
	return upsertNode(ctx, r.db, node)
}

// DeleteNode removes a node; its links go with it. Deleting a missing node is not an error.
func (r *Repository) DeleteNode(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM nodes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete node: %w", err)
	}
	return nil
}

// UpsertLink creates or updates a link
func (r *Repository) UpsertLink(ctx context.Context, link *domain.Link) error {
	return upsertLink(ctx, r.db, link)
}

// DeleteLink removes a link. Deleting a missing link is not an error.
func (r *Repository) DeleteLink(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM links WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}
	return nil
}

// SavePositions saves canvas positions for multiple nodes
func (r *Repository) SavePositions(ctx context.Context, positions []domain.NodePosition) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `UPDATE nodes SET x = ?, y = ? WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, pos := range positions {
		if _, err := stmt.ExecContext(ctx, pos.X, pos.Y, pos.NodeID); err != nil {
			return fmt.Errorf("failed to save position for %s: %w", pos.NodeID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

const viewportKey = "viewport"

// SaveViewport stores the editor viewport
func (r *Repository) SaveViewport(ctx context.Context, vp domain.Viewport) error {
	data, err := json.Marshal(vp)
	if err != nil {
		return fmt.Errorf("marshal viewport: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, viewportKey, string(data))
	if err != nil {
		return fmt.Errorf("failed to save viewport: %w", err)
	}
	return nil
}

// LoadViewport returns the stored viewport; ok is false when none was saved
func (r *Repository) LoadViewport(ctx context.Context) (vp domain.Viewport, ok bool, err error) {
	var data string
	err = r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, viewportKey).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Viewport{}, false, nil
	}
	if err != nil {
		return domain.Viewport{}, false, fmt.Errorf("failed to load viewport: %w", err)
	}
	if err := json.Unmarshal([]byte(data), &vp); err != nil {
		return domain.Viewport{}, false, fmt.Errorf("unmarshal viewport: %w", err)
	}
	return vp, true, nil
}

// ReplaceTopology atomically swaps the stored topology for fragment
func (r *Repository) ReplaceTopology(ctx context.Context, fragment *domain.Fragment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM links`); err != nil {
		return fmt.Errorf("failed to clear links: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM nodes`); err != nil {
		return fmt.Errorf("failed to clear nodes: %w", err)
	}

	for i := range fragment.Nodes {
		if err := upsertNode(ctx, tx, &fragment.Nodes[i]); err != nil {
			return err
		}
	}
	for i := range fragment.Links {
		if err := upsertLink(ctx, tx, &fragment.Links[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}
