package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pbaille/shore/internal/domain"
)

//go:embed schema.sql
var schema string

// Store persists a journal session's entries in SQLite.
// Several sessions may share one database file; each Store only deletes
// rows it has seen and then no longer finds in its own snapshot.
type Store struct {
	db *sql.DB

	mu    sync.Mutex
	known map[string]struct{}
}

// New opens (or creates) the database at dbPath and applies the schema
func New(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("open database: empty path")
	}
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Initialize schema
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, known: make(map[string]struct{})}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns every entry, newest first, with tags in their saved order
func (s *Store) Load(ctx context.Context) ([]domain.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, content, created_at, emotion FROM entries ORDER BY seq DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}
	defer rows.Close()

	entries := []domain.Entry{}
	index := make(map[string]int)
	for rows.Next() {
		var e domain.Entry
		var createdAt string
		var emotion sql.NullString
		if err := rows.Scan(&e.ID, &e.Content, &createdAt, &emotion); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Timestamp, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("entry %s: parse created_at: %w", e.ID, err)
		}
		if emotion.Valid {
			em, err := domain.ParseEmotion(emotion.String)
			if err != nil {
				return nil, fmt.Errorf("entry %s: %w", e.ID, err)
			}
			e.Emotion = &em
		}
		e.Tags = []string{}
		index[e.ID] = len(entries)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}

	tagRows, err := s.db.QueryContext(ctx,
		"SELECT entry_id, tag FROM entry_tags ORDER BY entry_id, position ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("load tags: %w", err)
	}
	defer tagRows.Close()

	for tagRows.Next() {
		var entryID, tag string
		if err := tagRows.Scan(&entryID, &tag); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		if i, ok := index[entryID]; ok {
			entries[i].Tags = append(entries[i].Tags, tag)
		}
	}
	if err := tagRows.Err(); err != nil {
		return nil, fmt.Errorf("load tags: %w", err)
	}

	s.known = make(map[string]struct{}, len(entries))
	for id := range index {
		s.known[id] = struct{}{}
	}
	return entries, nil
}

// Save reconciles the database with this session's snapshot in one transaction.
// Entries the session has not persisted yet are inserted, oldest first, above
// everything already stored. Entries it loaded or saved before and no longer
// holds are deleted. Rows written by other sessions are left alone.
func (s *Store) Save(ctx context.Context, entries []domain.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if _, dup := ids[e.ID]; dup {
			return fmt.Errorf("save: duplicate id %s", e.ID)
		}
		ids[e.ID] = struct{}{}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for id := range s.known {
		if _, ok := ids[id]; ok {
			continue
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM entry_tags WHERE entry_id = ?", id); err != nil {
			return fmt.Errorf("save: delete tags of %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM entries WHERE id = ?", id); err != nil {
			return fmt.Errorf("save: delete entry %s: %w", id, err)
		}
	}

	var seq int64
	if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(seq), 0) FROM entries").Scan(&seq); err != nil {
		return fmt.Errorf("save: read seq: %w", err)
	}

	entryStmt, err := tx.PrepareContext(ctx,
		"INSERT OR IGNORE INTO entries (id, content, created_at, emotion, seq) VALUES (?, ?, ?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("save: prepare entry insert: %w", err)
	}
	defer entryStmt.Close()

	tagStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO entry_tags (entry_id, position, tag) VALUES (?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("save: prepare tag insert: %w", err)
	}
	defer tagStmt.Close()

	// entries are newest first; walk backwards so the newest gets the highest seq
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if _, ok := s.known[e.ID]; ok {
			continue
		}

		var emotion any
		if e.Emotion != nil {
			emotion = string(*e.Emotion)
		}
		seq++
		res, err := entryStmt.ExecContext(ctx, e.ID, e.Content, e.Timestamp.UTC().Format(time.RFC3339Nano), emotion, seq)
		if err != nil {
			return fmt.Errorf("save: insert entry %s: %w", e.ID, err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("save: insert entry %s: %w", e.ID, err)
		} else if n == 0 {
			// already stored by another session
			continue
		}
		for pos, tag := range e.Tags {
			if _, err := tagStmt.ExecContext(ctx, e.ID, pos, tag); err != nil {
				return fmt.Errorf("save: insert tag for %s: %w", e.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save: commit: %w", err)
	}
	s.known = ids
	return nil
}
