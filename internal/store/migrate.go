package store

import "fmt"

// migration is one ordered, idempotent schema step; a schema_version
// table tracks which migrations have already been applied.
type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{version: 1, sql: migrationV1Schema},
}

const migrationV1Schema = `
CREATE TABLE nodes (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	kind        TEXT NOT NULL CHECK(kind IN ('goal','task','serial','ask')),
	parent_id   INTEGER REFERENCES nodes(id),
	ordinal     INTEGER NOT NULL,
	goal        TEXT NOT NULL,
	prompt      TEXT NOT NULL DEFAULT '',
	returns     TEXT NOT NULL DEFAULT 'text'
		CHECK(returns IN ('text','boolean','list','structured','file','approval')),
	status      TEXT NOT NULL DEFAULT 'pending'
		CHECK(status IN ('pending','active','paused','complete','cancelled','failed')),
	result      TEXT,
	synthesized INTEGER NOT NULL DEFAULT 0,
	created_at  INTEGER NOT NULL,
	updated_at  INTEGER NOT NULL,
	ask_target  TEXT CHECK(ask_target IN ('human','parent','children') OR ask_target IS NULL),
	ask_options TEXT,
	ask_default TEXT,
	ask_timeout_seconds INTEGER
);

CREATE TABLE dependencies (
	node_id    INTEGER NOT NULL REFERENCES nodes(id),
	depends_on INTEGER NOT NULL REFERENCES nodes(id),
	PRIMARY KEY (node_id, depends_on)
);

CREATE INDEX idx_nodes_parent ON nodes(parent_id);
CREATE INDEX idx_nodes_status ON nodes(status);
CREATE INDEX idx_dependencies_node ON dependencies(node_id);
`

func (s *Store) migrate() error {
	if _, err := s.conn.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)`); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	applied := map[int]bool{}
	rows, err := s.conn.Query(`SELECT version FROM schema_version`)
	if err != nil {
		return fmt.Errorf("read schema_version: %w", err)
	}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return fmt.Errorf("scan schema_version: %w", err)
		}
		applied[v] = true
	}
	rows.Close()

	for _, m := range migrations {
		if applied[m.version] {
			continue
		}
		tx, err := s.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_version (version) VALUES (?)`, m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.version, err)
		}
	}
	return nil
}
