package postgres

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/wordvault/wordvault/internal/domain"
	"github.com/wordvault/wordvault/internal/service/auth"
)

// testDatabaseURLEnv names the environment variable the database tests
// read their connection string from. Without it the tests skip, so the
// suite stays green on machines with no Postgres around.
const testDatabaseURLEnv = "WORDVAULT_TEST_DATABASE_URL"

// testDB opens the test database, migrates it, and wipes all rows so
// each test starts clean. Deleting users cascades into sync_records.
func testDB(t *testing.T) *sqlx.DB {
	t.Helper()

	url := os.Getenv(testDatabaseURLEnv)
	if url == "" {
		t.Skipf("%s not set, skipping database test", testDatabaseURLEnv)
	}

	db, err := Open(url)
	require.NoError(t, err, "test database should open and migrate")
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`DELETE FROM users`)
	require.NoError(t, err, "test database should start empty")

	return db
}

// insertUser creates a stored user with a hashed password and returns
// it for use as the owner of record fixtures.
func insertUser(t *testing.T, db *sqlx.DB, email string) *domain.User {
	t.Helper()

	user, err := domain.NewUser(email, "a-test-password")
	require.NoError(t, err)

	hashed, err := auth.NewBcryptHasher(bcrypt.MinCost).Hash(user.Password)
	require.NoError(t, err)
	user.HashedPassword = hashed

	userStore := NewPostgresUserStore(db, nil)
	require.NoError(t, userStore.Create(context.Background(), user))
	return user
}

// lookupPayload builds a word history payload with the given count.
func lookupPayload(t *testing.T, word string, count int64) json.RawMessage {
	t.Helper()

	rec, err := domain.NewLookupRecord(word, "a sentence with "+word, time.Now().UTC())
	require.NoError(t, err)
	rec.Count = count

	raw, err := json.Marshal(rec)
	require.NoError(t, err)
	return raw
}

// cardPayload builds flashcard progress with the given review history.
func cardPayload(t *testing.T, word string, level int, reviews int64) json.RawMessage {
	t.Helper()

	card, err := domain.NewCardProgress(word, "a sentence with "+word, time.Now().UTC())
	require.NoError(t, err)
	card.MasteryLevel = level
	card.ReviewCount = reviews

	raw, err := json.Marshal(card)
	require.NoError(t, err)
	return raw
}

// reviewPayload builds a queue entry in the given state.
func reviewPayload(t *testing.T, word string, state domain.ReviewState, stage int) json.RawMessage {
	t.Helper()

	entry, err := domain.NewReviewEntry(word, time.Now().UTC())
	require.NoError(t, err)
	entry.State = state
	entry.Stage = stage

	raw, err := json.Marshal(entry)
	require.NoError(t, err)
	return raw
}
