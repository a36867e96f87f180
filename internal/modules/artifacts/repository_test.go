package artifacts

import (
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `
CREATE TABLE artifacts (
    id TEXT PRIMARY KEY,
    wav BLOB NOT NULL,
    meta BLOB NOT NULL,
    created_at INTEGER NOT NULL,
    expires_at INTEGER NOT NULL
);
`

type testMeta struct {
	Qubits   int       `msgpack:"qubits"`
	State    string    `msgpack:"state"`
	Envelope []float64 `msgpack:"envelope"`
}

// clock is a controllable time source.
type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func setupTestDB(t *testing.T) (*Repository, *clock) {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(testSchema)
	require.NoError(t, err)

	c := &clock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	repo := NewRepository(db)
	repo.now = c.now
	return repo, c
}

func TestRepository_StoreAndGet(t *testing.T) {
	repo, _ := setupTestDB(t)

	id := NewID()
	wav := []byte("RIFF....WAVE")
	meta := testMeta{Qubits: 2, State: "(0.5+0j)|00⟩", Envelope: []float64{-1, 1}}

	require.NoError(t, repo.Store(id, wav, meta, time.Minute))

	got, err := repo.Get(id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, wav, got.WAV)
	assert.Equal(t, time.Minute, got.ExpiresAt.Sub(got.CreatedAt))

	var decoded testMeta
	require.NoError(t, repo.GetMeta(id, &decoded))
	assert.Equal(t, meta, decoded)
}

func TestRepository_StoreReplaces(t *testing.T) {
	repo, _ := setupTestDB(t)

	require.NoError(t, repo.Store("a", []byte{1}, testMeta{Qubits: 1}, time.Minute))
	require.NoError(t, repo.Store("a", []byte{2}, testMeta{Qubits: 3}, time.Minute))

	got, err := repo.Get("a")
	require.NoError(t, err)
	assert.Equal(t, []byte{2}, got.WAV)

	n, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRepository_StoreValidation(t *testing.T) {
	repo, _ := setupTestDB(t)

	assert.Error(t, repo.Store("", []byte{1}, nil, time.Minute))
	assert.Error(t, repo.Store("a", []byte{1}, nil, 0))
}

func TestRepository_Expiry(t *testing.T) {
	repo, c := setupTestDB(t)

	require.NoError(t, repo.Store("short", []byte{1}, testMeta{}, time.Minute))
	require.NoError(t, repo.Store("long", []byte{2}, testMeta{}, time.Hour))

	c.t = c.t.Add(2 * time.Minute)

	_, err := repo.Get("short")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.GetMeta("short", &testMeta{}), ErrNotFound)

	n, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	deleted, err := repo.DeleteExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = repo.Get("long")
	assert.NoError(t, err)
}

func TestRepository_Delete(t *testing.T) {
	repo, _ := setupTestDB(t)

	require.NoError(t, repo.Store("a", []byte{1}, testMeta{}, time.Minute))
	require.NoError(t, repo.Delete("a"))
	require.NoError(t, repo.Delete("missing"))

	_, err := repo.Get("a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewID_Unique(t *testing.T) {
	a, b := NewID(), NewID()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}

func TestCleanupJob(t *testing.T) {
	repo, c := setupTestDB(t)
	job := NewCleanupJob(repo, zerolog.Nop())
	assert.Equal(t, "artifact_cleanup", job.Name())

	require.NoError(t, repo.Store("a", []byte{1}, testMeta{}, time.Minute))
	require.NoError(t, repo.Store("b", []byte{1}, testMeta{}, time.Hour))

	require.NoError(t, job.Run())
	n, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	c.t = c.t.Add(time.Minute)
	require.NoError(t, job.Run())

	var total int
	require.NoError(t, repo.db.QueryRow("SELECT COUNT(*) FROM artifacts").Scan(&total))
	assert.Equal(t, 1, total)
}
