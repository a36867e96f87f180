// Package artifacts stores rendered WAV files for a limited time so they can be
// previewed and downloaded after a run completes.
package artifacts

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrNotFound is returned when an artifact is missing or expired.
var ErrNotFound = errors.New("artifact not found")

// Artifact is a stored WAV file.
type Artifact struct {
	ID        string
	WAV       []byte
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Repository persists artifacts in the artifacts table.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepository creates a new artifact repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// NewID returns a fresh artifact identifier.
func NewID() string {
	return uuid.NewString()
}

// Store saves the WAV bytes and msgpack-encoded metadata with expiration = now + ttl.
// Storing an existing id replaces it.
func (r *Repository) Store(id string, wav []byte, meta interface{}, ttl time.Duration) error {
	if id == "" {
		return fmt.Errorf("artifact id is required")
	}
	if ttl <= 0 {
		return fmt.Errorf("artifact ttl must be positive, got %s", ttl)
	}

	encoded, err := msgpack.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to encode artifact metadata: %w", err)
	}

	now := r.now()
	_, err = r.db.Exec(
		`INSERT OR REPLACE INTO artifacts (id, wav, meta, created_at, expires_at) VALUES (?, ?, ?, ?, ?)`,
		id, wav, encoded, now.UnixMilli(), now.Add(ttl).UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to store artifact %s: %w", id, err)
	}

	return nil
}

// Get returns the artifact if it has not expired.
func (r *Repository) Get(id string) (*Artifact, error) {
	var (
		a                    Artifact
		createdAt, expiresAt int64
	)
	err := r.db.QueryRow(
		`SELECT id, wav, created_at, expires_at FROM artifacts WHERE id = ? AND expires_at > ?`,
		id, r.now().UnixMilli(),
	).Scan(&a.ID, &a.WAV, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get artifact %s: %w", id, err)
	}

	a.CreatedAt = time.UnixMilli(createdAt)
	a.ExpiresAt = time.UnixMilli(expiresAt)
	return &a, nil
}

// GetMeta decodes the metadata of a fresh artifact into out.
func (r *Repository) GetMeta(id string, out interface{}) error {
	var encoded []byte
	err := r.db.QueryRow(
		`SELECT meta FROM artifacts WHERE id = ? AND expires_at > ?`,
		id, r.now().UnixMilli(),
	).Scan(&encoded)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get artifact metadata %s: %w", id, err)
	}

	if err := msgpack.Unmarshal(encoded, out); err != nil {
		return fmt.Errorf("failed to decode artifact metadata %s: %w", id, err)
	}
	return nil
}

// Delete removes an artifact. Deleting a missing id is not an error.
func (r *Repository) Delete(id string) error {
	if _, err := r.db.Exec(`DELETE FROM artifacts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete artifact %s: %w", id, err)
	}
	return nil
}

// DeleteExpired removes all artifacts whose expiry has passed.
// Returns the number of rows deleted.
func (r *Repository) DeleteExpired() (int64, error) {
	result, err := r.db.Exec(`DELETE FROM artifacts WHERE expires_at <= ?`, r.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired artifacts: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}

// Count returns the number of fresh artifacts.
func (r *Repository) Count() (int, error) {
	var n int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM artifacts WHERE expires_at > ?`, r.now().UnixMilli(),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count artifacts: %w", err)
	}
	return n, nil
}
