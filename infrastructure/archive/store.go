// Package archive keeps a history of published index releases in a local
// SQLite database.
package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"net/url"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ahrav/go-aipi/internal/ports"
)

// ErrReleaseNotFound is returned by Get for an unknown tag.
var ErrReleaseNotFound = ports.ErrReleaseNotFound

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store implements ports.ReleaseStore.
type Store struct {
	db *sql.DB
}

// Open opens or creates the archive at path, creating parent directories
// as needed.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("archive: create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("archive: open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("archive: open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("archive: migration: %w", err)
	}
	return s, nil
}

// pragmas are applied by the driver to every pooled connection. Save relies
// on foreign_keys for its cascading replace.
var pragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(5000)",
	"synchronous(NORMAL)",
	"foreign_keys(1)",
}

func dsn(path string) string {
	q := make(url.Values)
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	return path + "?" + q.Encode()
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS releases (
			tag            TEXT PRIMARY KEY,
			dataset_hash   TEXT    NOT NULL,
			source_version TEXT    NOT NULL DEFAULT '',
			generated_utc  TEXT    NOT NULL,
			providers      INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS release_documents (
			tag  TEXT NOT NULL REFERENCES releases(tag) ON DELETE CASCADE,
			name TEXT NOT NULL,
			body BLOB NOT NULL,
			PRIMARY KEY (tag, name)
		);

		CREATE INDEX IF NOT EXISTS idx_releases_generated ON releases(generated_utc DESC);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Save records r, replacing any release with the same tag.
func (s *Store) Save(ctx context.Context, r ports.Release) error {
	if r.Tag == "" {
		return errors.New("archive: release tag is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("archive: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Deleting first cascades to the documents of an earlier save.
	if _, err := tx.ExecContext(ctx, `DELETE FROM releases WHERE tag = ?`, r.Tag); err != nil {
		return fmt.Errorf("archive: replace %s: %w", r.Tag, err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO releases (tag, dataset_hash, source_version, generated_utc, providers)
		 VALUES (?, ?, ?, ?, ?)`,
		r.Tag, r.DatasetHash, r.SourceVersion, r.GeneratedUTC.UTC().Format(timeLayout), r.Providers)
	if err != nil {
		return fmt.Errorf("archive: insert %s: %w", r.Tag, err)
	}
	for name, body := range r.Documents {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO release_documents (tag, name, body) VALUES (?, ?, ?)`,
			r.Tag, name, body); err != nil {
			return fmt.Errorf("archive: insert document %s/%s: %w", r.Tag, name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("archive: commit: %w", err)
	}
	return nil
}

// List returns up to limit releases, newest first, without documents. A
// non-positive limit returns every release.
func (s *Store) List(ctx context.Context, limit int) ([]ports.Release, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT tag, dataset_hash, source_version, generated_utc, providers
		 FROM releases ORDER BY generated_utc DESC, tag DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("archive: list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []ports.Release
	for rows.Next() {
		r, err := scanRelease(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("archive: list: %w", err)
	}
	return out, nil
}

// Get returns the release tagged tag with its documents.
func (s *Store) Get(ctx context.Context, tag string) (ports.Release, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT tag, dataset_hash, source_version, generated_utc, providers
		 FROM releases WHERE tag = ?`, tag)
	r, err := scanRelease(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.Release{}, fmt.Errorf("%w: %s", ErrReleaseNotFound, tag)
	}
	if err != nil {
		return ports.Release{}, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT name, body FROM release_documents WHERE tag = ? ORDER BY name`, tag)
	if err != nil {
		return ports.Release{}, fmt.Errorf("archive: documents %s: %w", tag, err)
	}
	defer func() { _ = rows.Close() }()

	r.Documents = make(map[string][]byte)
	for rows.Next() {
		var (
			name string
			body []byte
		)
		if err := rows.Scan(&name, &body); err != nil {
			return ports.Release{}, fmt.Errorf("archive: scan document: %w", err)
		}
		r.Documents[name] = body
	}
	if err := rows.Err(); err != nil {
		return ports.Release{}, fmt.Errorf("archive: documents %s: %w", tag, err)
	}
	return r, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRelease(sc scanner) (ports.Release, error) {
	var (
		r         ports.Release
		generated string
	)
	if err := sc.Scan(&r.Tag, &r.DatasetHash, &r.SourceVersion, &generated, &r.Providers); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r, err
		}
		return r, fmt.Errorf("archive: scan release: %w", err)
	}
	t, err := time.Parse(timeLayout, generated)
	if err != nil {
		return r, fmt.Errorf("archive: release %s: bad timestamp %q: %w", r.Tag, generated, err)
	}
	r.GeneratedUTC = t
	return r, nil
}

var _ ports.ReleaseStore = (*Store)(nil)
