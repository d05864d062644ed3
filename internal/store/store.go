// Package store persists parsed patches in a local SQLite database.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lundberg/patchview/internal/patch"
)

// ErrNotFound is returned when no patch exists for the given id.
var ErrNotFound = errors.New("patch not found")

// Record is a stored patch. Metadata and stats are denormalized from the
// parse result at save time; Raw stays the source of truth.
type Record struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Raw          string    `json:"raw,omitempty"`
	SHA          string    `json:"sha"`
	CommitHash   string    `json:"commitHash,omitempty"`
	Author       string    `json:"author,omitempty"`
	AuthorEmail  string    `json:"authorEmail,omitempty"`
	CommitDate   string    `json:"commitDate,omitempty"`
	Message      string    `json:"message,omitempty"`
	FilesChanged int       `json:"filesChanged"`
	Additions    int       `json:"additions"`
	Deletions    int       `json:"deletions"`
	CreatedAt    time.Time `json:"createdAt"`
	// Duplicate is true when Save found an already-stored patch with the
	// same content and returned it instead of inserting.
	Duplicate bool `json:"duplicate,omitempty"`
}

// Store provides patch CRUD over a migrated database.
type Store struct {
	db *sql.DB
}

// New creates a Store. The database must already be migrated.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open opens the database at dbPath, runs migrations, and returns a Store.
func Open(dbPath string) (*Store, *sql.DB, error) {
	db, err := OpenDB(dbPath)
	if err != nil {
		return nil, nil, err
	}
	if err := Migrate(db); err != nil {
		db.Close()
		return nil, nil, err
	}
	return New(db), db, nil
}

// Save stores a parsed patch. Duplicate content (same SHA-256 of raw)
// returns the existing record with Duplicate set instead of inserting.
func (s *Store) Save(ctx context.Context, p *patch.ParsedPatch) (Record, error) {
	sum := sha256.Sum256([]byte(p.Raw))
	sha := hex.EncodeToString(sum[:])

	existing, err := s.getBySHA(ctx, sha)
	if err == nil {
		existing.Duplicate = true
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Record{}, err
	}

	rec := Record{
		ID:           uuid.NewString(),
		Title:        titleFor(p),
		Raw:          p.Raw,
		SHA:          sha,
		CommitHash:   p.Metadata.CommitHash,
		Author:       p.Metadata.Author,
		AuthorEmail:  p.Metadata.AuthorEmail,
		CommitDate:   p.Metadata.Date,
		Message:      p.Metadata.Message,
		FilesChanged: p.Stats.FilesChanged,
		Additions:    p.Stats.Additions,
		Deletions:    p.Stats.Deletions,
		CreatedAt:    time.Now().UTC(),
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO patches (id, title, raw, sha, commit_hash, author, author_email,
			commit_date, message, files_changed, additions, deletions, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Title, rec.Raw, rec.SHA, nullIfEmpty(rec.CommitHash),
		nullIfEmpty(rec.Author), nullIfEmpty(rec.AuthorEmail), nullIfEmpty(rec.CommitDate),
		nullIfEmpty(rec.Message), rec.FilesChanged, rec.Additions, rec.Deletions, rec.CreatedAt)
	if err != nil {
		return Record{}, fmt.Errorf("insert patch: %w", err)
	}
	return rec, nil
}

// Get returns the full record, including raw text.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	row := s.db.QueryRowContext(ctx, selectCols+` WHERE id = ?`, id)
	return scanRecord(row)
}

func (s *Store) getBySHA(ctx context.Context, sha string) (Record, error) {
	row := s.db.QueryRowContext(ctx, selectCols+` WHERE sha = ?`, sha)
	return scanRecord(row)
}

// List returns all stored patches newest first, without raw text.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, sha, commit_hash, author, author_email, commit_date,
			message, files_changed, additions, deletions, created_at
		FROM patches
		ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query patches: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var commitHash, author, email, date, message sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.SHA, &commitHash, &author,
			&email, &date, &message, &rec.FilesChanged, &rec.Additions,
			&rec.Deletions, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan patch: %w", err)
		}
		rec.CommitHash = commitHash.String
		rec.Author = author.String
		rec.AuthorEmail = email.String
		rec.CommitDate = date.String
		rec.Message = message.String
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate patches: %w", err)
	}
	return records, nil
}

// Rename updates a patch title.
func (s *Store) Rename(ctx context.Context, id, title string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE patches SET title = ? WHERE id = ?`, title, id)
	if err != nil {
		return fmt.Errorf("rename patch: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a patch.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM patches WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete patch: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

const selectCols = `
	SELECT id, title, raw, sha, commit_hash, author, author_email, commit_date,
		message, files_changed, additions, deletions, created_at
	FROM patches`

func scanRecord(row *sql.Row) (Record, error) {
	var rec Record
	var commitHash, author, email, date, message sql.NullString
	err := row.Scan(&rec.ID, &rec.Title, &rec.Raw, &rec.SHA, &commitHash, &author,
		&email, &date, &message, &rec.FilesChanged, &rec.Additions,
		&rec.Deletions, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("scan patch: %w", err)
	}
	rec.CommitHash = commitHash.String
	rec.Author = author.String
	rec.AuthorEmail = email.String
	rec.CommitDate = date.String
	rec.Message = message.String
	return rec, nil
}

// titleFor derives a display title: the commit subject when present,
// otherwise the first file's effective path.
func titleFor(p *patch.ParsedPatch) string {
	if msg := strings.TrimSpace(p.Metadata.Message); msg != "" {
		return msg
	}
	if len(p.Files) > 0 {
		return patch.EffectivePath(p.Files[0])
	}
	return "Untitled patch"
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
