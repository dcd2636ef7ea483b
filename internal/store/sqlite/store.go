// Package sqlite is a DocumentStore on a single SQLite table, one JSON
// document per row.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"paycalc/internal/log"
	"paycalc/internal/store"
)

type Store struct {
	db     *sql.DB
	logger *log.Logger
}

var _ store.DocumentStore = (*Store)(nil)

// Open creates the database directory if needed, runs migrations and
// returns a ready store.
func Open(dbPath string, logger *log.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; SQLite would answer SQLITE_BUSY otherwise.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{
		db:     db,
		logger: log.OrDiscard(logger).WithComponent(log.ComponentStorage),
	}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func body(data store.Record) ([]byte, error) {
	clean := make(store.Record, len(data))
	for k, v := range data {
		if k != store.IDField {
			clean[k] = v
		}
	}
	return json.Marshal(clean)
}

func scanRecord(id string, raw []byte) (store.Record, error) {
	var r store.Record
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", id, err)
	}
	if r == nil {
		r = store.Record{}
	}
	r[store.IDField] = id
	return r, nil
}

func (s *Store) ListAll(ctx context.Context, namespace, collection string) ([]store.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, data FROM documents WHERE namespace = ? AND collection = ? ORDER BY seq`,
		namespace, collection)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()

	var out []store.Record
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		r, err := scanRecord(id, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	return out, nil
}

func (s *Store) Create(ctx context.Context, namespace, collection string, data store.Record) (string, error) {
	id := uuid.NewString()
	raw, err := body(data)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (namespace, collection, id, data) VALUES (?, ?, ?, ?)`,
		namespace, collection, id, string(raw)); err != nil {
		return "", fmt.Errorf("create in %s: %w", collection, err)
	}

	s.logger.DebugContext(ctx, "Document created",
		log.FieldCollection, collection,
		log.FieldDocumentID, id)
	return id, nil
}

func (s *Store) Get(ctx context.Context, namespace, collection, id string) (store.Record, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE namespace = ? AND collection = ? AND id = ?`,
		namespace, collection, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return scanRecord(id, raw)
}

// Update merges fields into the stored document inside a transaction.
func (s *Store) Update(ctx context.Context, namespace, collection, id string, fields store.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	var raw []byte
	err = tx.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE namespace = ? AND collection = ? AND id = ?`,
		namespace, collection, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read %s/%s: %w", collection, id, err)
	}

	current, err := scanRecord(id, raw)
	if err != nil {
		return err
	}
	for k, v := range fields {
		current[k] = v
	}
	merged, err := body(current)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE documents SET data = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE namespace = ? AND collection = ? AND id = ?`,
		string(merged), namespace, collection, id); err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	return tx.Commit()
}

func (s *Store) Delete(ctx context.Context, namespace, collection, id string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE namespace = ? AND collection = ? AND id = ?`,
		namespace, collection, id); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *Store) Set(ctx context.Context, namespace, collection, id string, data store.Record) error {
	if err := store.ValidateKey(namespace, collection, id); err != nil {
		return err
	}
	raw, err := body(data)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (namespace, collection, id, data) VALUES (?, ?, ?, ?)
		 ON CONFLICT (namespace, collection, id)
		 DO UPDATE SET data = excluded.data, updated_at = CURRENT_TIMESTAMP`,
		namespace, collection, id, string(raw)); err != nil {
		return fmt.Errorf("set %s/%s: %w", collection, id, err)
	}
	return nil
}
