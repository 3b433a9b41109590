package folio

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is the self-hosted document backend: the same conditional
// write contract as GitHubStore, but against a local SQLite database
// instead of a hosted repository. The version token is the hex SHA-256 of
// the stored document bytes, so identical content always carries the same
// token, mirroring git blob semantics. Every accepted write appends a row
// to the history table with the caller's commit message.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path, ensures the
// data directory exists, and runs schema setup.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL for concurrent read/write access, busy timeout so writers wait
	// instead of failing with SQLITE_BUSY, synchronous=NORMAL is safe
	// under WAL.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &SQLiteStore{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS document (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    content TEXT NOT NULL,
    sha TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    sha TEXT NOT NULL,
    message TEXT NOT NULL,
    created_at TEXT NOT NULL
);
`)
	return err
}

// ContentSHA returns the version token for the given canonical bytes.
func ContentSHA(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Fetch returns the current document and its token. A store that has
// never been written bootstraps an empty document.
func (s *SQLiteStore) Fetch(ctx context.Context) (Document, string, error) {
	var content, sha string
	err := s.db.QueryRowContext(ctx, `SELECT content, sha FROM document WHERE id = 1`).Scan(&content, &sha)
	if err == sql.ErrNoRows {
		return s.bootstrap(ctx)
	}
	if err != nil {
		return Document{}, "", fmt.Errorf("fetch document: %w", err)
	}
	doc, err := DecodeDocument([]byte(content))
	if err != nil {
		return Document{}, "", err
	}
	return doc, sha, nil
}

// bootstrap seeds the store with an empty document so the first caller
// gets a usable baseline token.
func (s *SQLiteStore) bootstrap(ctx context.Context) (Document, string, error) {
	doc := Document{Photos: []Photo{}, Videos: []Video{}}
	encoded, err := EncodeDocument(doc)
	if err != nil {
		return Document{}, "", err
	}
	sha := ContentSHA(encoded)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO document (id, content, sha) VALUES (1, ?, ?) ON CONFLICT(id) DO NOTHING`,
		string(encoded), sha)
	if err != nil {
		return Document{}, "", fmt.Errorf("bootstrap document: %w", err)
	}
	return doc, sha, nil
}

// Write commits the document when sha matches the stored token, inside a
// single transaction so concurrent writers serialize on the row.
func (s *SQLiteStore) Write(ctx context.Context, doc Document, message, sha string) (string, error) {
	encoded, err := EncodeDocument(doc)
	if err != nil {
		return "", err
	}
	newSha := ContentSHA(encoded)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin write: %w", err)
	}
	defer tx.Rollback()

	var currentSha string
	err = tx.QueryRowContext(ctx, `SELECT sha FROM document WHERE id = 1`).Scan(&currentSha)
	if err == sql.ErrNoRows {
		currentSha = ""
	} else if err != nil {
		return "", fmt.Errorf("read current version: %w", err)
	}
	if currentSha != "" && currentSha != sha {
		return "", &ConflictError{
			Status:  http.StatusConflict,
			Message: fmt.Sprintf("sha %s does not match current %s", sha, currentSha),
		}
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO document (id, content, sha) VALUES (1, ?, ?)
ON CONFLICT(id) DO UPDATE SET content = excluded.content, sha = excluded.sha`,
		string(encoded), newSha); err != nil {
		return "", fmt.Errorf("write document: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO history (sha, message, created_at) VALUES (?, ?, ?)`,
		newSha, message, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return "", fmt.Errorf("record history: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit write: %w", err)
	}
	return newSha, nil
}

// History returns commit messages and tokens, newest first.
func (s *SQLiteStore) History(ctx context.Context, limit int) ([]HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT sha, message, created_at FROM history ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.SHA, &e.Message, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// HistoryEntry is one accepted write in the local store's commit log.
type HistoryEntry struct {
	SHA       string
	Message   string
	CreatedAt string
}
