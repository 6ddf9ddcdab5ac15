package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/wordvault/wordvault/internal/config"
	"github.com/wordvault/wordvault/internal/domain"
	"github.com/wordvault/wordvault/internal/service/auth"
	"github.com/wordvault/wordvault/internal/store"
)

// fakeUserStore keeps accounts in a map, mirroring the contract of the
// real store down to its sentinel errors.
type fakeUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[uuid.UUID]*domain.User)}
}

func (s *fakeUserStore) Create(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return store.ErrEmailExists
		}
	}
	clone := *user
	s.users[user.ID] = &clone
	return nil
}

func (s *fakeUserStore) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	clone := *user
	return &clone, nil
}

func (s *fakeUserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (s *fakeUserStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return store.ErrUserNotFound
	}
	delete(s.users, id)
	return nil
}

// fakeRecordStore stores records in memory and stamps writes with a
// strictly increasing clock so since-queries behave like the real one.
type fakeRecordStore struct {
	mu      sync.Mutex
	base    time.Time
	writes  int
	records map[string]map[string]store.SyncRecord
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{
		base:    time.Now().UTC().Truncate(time.Millisecond),
		records: make(map[string]map[string]store.SyncRecord),
	}
}

func (s *fakeRecordStore) scope(userID uuid.UUID, collection string) string {
	return userID.String() + "/" + collection
}

func (s *fakeRecordStore) GetAll(_ context.Context, userID uuid.UUID, collection string) ([]store.SyncRecord, error) {
	return s.getSince(userID, collection, time.Time{})
}

func (s *fakeRecordStore) GetSince(_ context.Context, userID uuid.UUID, collection string, since time.Time) ([]store.SyncRecord, error) {
	return s.getSince(userID, collection, since)
}

func (s *fakeRecordStore) getSince(userID uuid.UUID, collection string, since time.Time) ([]store.SyncRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []store.SyncRecord
	for _, rec := range s.records[s.scope(userID, collection)] {
		if rec.UpdatedAt.After(since) {
			out = append(out, rec)
		}
	}
	// Ascending updated_at, like the SQL ORDER BY.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].UpdatedAt.Before(out[j-1].UpdatedAt); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out, nil
}

func (s *fakeRecordStore) Upsert(_ context.Context, userID uuid.UUID, collection string, records []store.SyncRecord) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.writes++
	stamp := s.base.Add(time.Duration(s.writes) * time.Second)

	key := s.scope(userID, collection)
	if s.records[key] == nil {
		s.records[key] = make(map[string]store.SyncRecord)
	}
	for _, rec := range records {
		if rec.Word == "" {
			return time.Time{}, fmt.Errorf("%w: record has no word key", store.ErrInvalidEntity)
		}
		rec.UserID = userID
		rec.Collection = collection
		rec.UpdatedAt = stamp
		s.records[key][rec.Word] = rec
	}
	return stamp, nil
}

func (s *fakeRecordStore) Delete(_ context.Context, userID uuid.UUID, collection, word string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records[s.scope(userID, collection)], word)
	return nil
}

func (s *fakeRecordStore) Count(_ context.Context, userID uuid.UUID, collection string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.records[s.scope(userID, collection)])), nil
}

var (
	_ store.UserStore   = (*fakeUserStore)(nil)
	_ store.RecordStore = (*fakeRecordStore)(nil)
)

// testServer wires the real router, token service and hasher over the
// in-memory stores.
type testServer struct {
	*httptest.Server
	users   *fakeUserStore
	records *fakeRecordStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	tokens, err := auth.NewTokenService(config.AuthConfig{
		JWTSecret:            strings.Repeat("s", 32),
		TokenLifetime:        time.Hour,
		RefreshTokenLifetime: 24 * time.Hour,
	})
	require.NoError(t, err)

	users := newFakeUserStore()
	records := newFakeRecordStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	router := NewRouter(users, records, tokens, auth.NewBcryptHasher(bcrypt.MinCost), logger)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testServer{Server: srv, users: users, records: records}
}

// do sends one JSON request and decodes the response body into out
// when out is non-nil.
func (s *testServer) do(t *testing.T, method, path, token string, body, out any) *http.Response {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, s.URL+path, reqBody)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

// register creates an account and returns its token pair.
func (s *testServer) register(t *testing.T, email, password string) AuthResponse {
	t.Helper()

	var authResp AuthResponse
	resp := s.do(t, http.MethodPost, "/v1/auth/register", "", RegisterRequest{
		Email:    email,
		Password: password,
	}, &authResp)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return authResp
}

func TestRouter_RegisterIssuesTokenPair(t *testing.T) {
	t.Parallel() // Enable parallel testing

	srv := newTestServer(t)
	authResp := srv.register(t, "new@example.com", "learning-words")

	assert.NotEqual(t, uuid.Nil, authResp.UserID)
	assert.NotEmpty(t, authResp.AccessToken)
	assert.NotEmpty(t, authResp.RefreshToken)
	assert.WithinDuration(t, time.Now().Add(time.Hour), authResp.ExpiresAt, 10*time.Second)

	stored, err := srv.users.GetByID(context.Background(), authResp.UserID)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.HashedPassword)
	assert.NotEqual(t, "learning-words", stored.HashedPassword)
	assert.Empty(t, stored.Password, "the plaintext must not reach the store")
}

func TestRouter_RegisterRejectsBadInput(t *testing.T) {
	t.Parallel() // Enable parallel testing

	srv := newTestServer(t)

	resp := srv.do(t, http.MethodPost, "/v1/auth/register", "", RegisterRequest{
		Email:    "not-an-email",
		Password: "learning-words",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = srv.do(t, http.MethodPost, "/v1/auth/register", "", RegisterRequest{
		Email:    "short@example.com",
		Password: "tiny",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "passwords under the minimum length are rejected")
}

func TestRouter_RegisterDuplicateEmail(t *testing.T) {
	t.Parallel() // Enable parallel testing

	srv := newTestServer(t)
	srv.register(t, "dup@example.com", "learning-words")

	errResp := struct {
		Error string `json:"error"`
	}{}
	resp := srv.do(t, http.MethodPost, "/v1/auth/register", "", RegisterRequest{
		Email:    "dup@example.com",
		Password: "learning-words",
	}, &errResp)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "Email already exists", errResp.Error)
}

func TestRouter_LoginFlow(t *testing.T) {
	t.Parallel() // Enable parallel testing

	srv := newTestServer(t)
	srv.register(t, "dev@example.com", "learning-words")

	var authResp AuthResponse
	resp := srv.do(t, http.MethodPost, "/v1/auth/login", "", LoginRequest{
		Email:    "dev@example.com",
		Password: "learning-words",
	}, &authResp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, authResp.AccessToken)

	// Wrong password and unknown account answer identically.
	resp = srv.do(t, http.MethodPost, "/v1/auth/login", "", LoginRequest{
		Email:    "dev@example.com",
		Password: "wrong-password",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = srv.do(t, http.MethodPost, "/v1/auth/login", "", LoginRequest{
		Email:    "ghost@example.com",
		Password: "learning-words",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRouter_RefreshRotatesPair(t *testing.T) {
	t.Parallel() // Enable parallel testing

	srv := newTestServer(t)
	first := srv.register(t, "rotate@example.com", "learning-words")

	var second AuthResponse
	resp := srv.do(t, http.MethodPost, "/v1/auth/refresh", "", RefreshRequest{
		RefreshToken: first.RefreshToken,
	}, &second)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, first.UserID, second.UserID)
	assert.NotEmpty(t, second.AccessToken)
	assert.NotEmpty(t, second.RefreshToken)

	// An access token is not a refresh token.
	resp = srv.do(t, http.MethodPost, "/v1/auth/refresh", "", RefreshRequest{
		RefreshToken: first.AccessToken,
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRouter_RefreshAfterAccountDeleted(t *testing.T) {
	t.Parallel() // Enable parallel testing

	srv := newTestServer(t)
	authResp := srv.register(t, "gone@example.com", "learning-words")

	require.NoError(t, srv.users.Delete(context.Background(), authResp.UserID))

	resp := srv.do(t, http.MethodPost, "/v1/auth/refresh", "", RefreshRequest{
		RefreshToken: authResp.RefreshToken,
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode,
		"tokens of deleted accounts must stop working")
}

func TestRouter_SyncRequiresAuth(t *testing.T) {
	t.Parallel() // Enable parallel testing

	srv := newTestServer(t)

	resp := srv.do(t, http.MethodGet, "/v1/sync/words", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = srv.do(t, http.MethodGet, "/v1/sync/words", "garbage-token", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRouter_SyncRoundTrip(t *testing.T) {
	t.Parallel() // Enable parallel testing

	srv := newTestServer(t)
	authResp := srv.register(t, "device@example.com", "learning-words")
	token := authResp.AccessToken

	// Upload two words.
	payload := func(word string, count int64) json.RawMessage {
		rec, err := domain.NewLookupRecord(word, "a sentence with "+word, time.Now().UTC())
		require.NoError(t, err)
		rec.Count = count
		raw, err := json.Marshal(rec)
		require.NoError(t, err)
		return raw
	}

	var batchResp BatchResponse
	resp := srv.do(t, http.MethodPost, "/v1/sync/words/batch", token, BatchRequest{
		Records: []store.SyncRecord{
			{Word: "ember", Payload: payload("ember", 2)},
			{Word: "tide", Payload: payload("tide", 1)},
		},
	}, &batchResp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.False(t, batchResp.LatestUpdatedAt.IsZero())

	// Full fetch sees both and reports their stamp as the watermark.
	var syncResp SyncResponse
	resp = srv.do(t, http.MethodGet, "/v1/sync/words", token, nil, &syncResp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, syncResp.Records, 2)
	assert.True(t, syncResp.LatestUpdatedAt.Equal(batchResp.LatestUpdatedAt))

	// An incremental fetch from that watermark is empty.
	since := syncResp.LatestUpdatedAt.Format(time.RFC3339Nano)
	var incResp SyncResponse
	resp = srv.do(t, http.MethodGet, "/v1/sync/words?since="+since, token, nil, &incResp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, incResp.Records)
	assert.True(t, incResp.LatestUpdatedAt.IsZero())

	// After another upload the incremental fetch returns just it.
	resp = srv.do(t, http.MethodPost, "/v1/sync/words/batch", token, BatchRequest{
		Records: []store.SyncRecord{{Word: "breeze", Payload: payload("breeze", 1)}},
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = srv.do(t, http.MethodGet, "/v1/sync/words?since="+since, token, nil, &incResp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, incResp.Records, 1)
	assert.Equal(t, "breeze", incResp.Records[0].Word)

	// Count and delete round out the surface.
	var countResp CountResponse
	resp = srv.do(t, http.MethodGet, "/v1/sync/words/count", token, nil, &countResp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 3, countResp.Count)

	resp = srv.do(t, http.MethodDelete, "/v1/sync/words/ember", token, nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = srv.do(t, http.MethodGet, "/v1/sync/words/count", token, nil, &countResp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 2, countResp.Count)
}

func TestRouter_SyncValidation(t *testing.T) {
	t.Parallel() // Enable parallel testing

	srv := newTestServer(t)
	authResp := srv.register(t, "strict@example.com", "learning-words")
	token := authResp.AccessToken

	resp := srv.do(t, http.MethodGet, "/v1/sync/notacollection", token, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "unknown collections are a 404")

	resp = srv.do(t, http.MethodGet, "/v1/sync/words?since=yesterday", token, nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "malformed since parameters are a 400")

	resp = srv.do(t, http.MethodPost, "/v1/sync/words/batch", token, BatchRequest{
		Records: []store.SyncRecord{{Word: "", Payload: json.RawMessage(`{}`)}},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "records without a word key are a 400")
}

func TestRouter_UsersAreIsolated(t *testing.T) {
	t.Parallel() // Enable parallel testing

	srv := newTestServer(t)
	alice := srv.register(t, "alice@example.com", "learning-words")
	bob := srv.register(t, "bob@example.com", "learning-words")

	resp := srv.do(t, http.MethodPost, "/v1/sync/words/batch", alice.AccessToken, BatchRequest{
		Records: []store.SyncRecord{{Word: "ember", Payload: json.RawMessage(`{"word":"ember","count":1}`)}},
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var countResp CountResponse
	resp = srv.do(t, http.MethodGet, "/v1/sync/words/count", bob.AccessToken, nil, &countResp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Zero(t, countResp.Count, "one user's records must be invisible to another")
}

func TestRouter_HealthCheck(t *testing.T) {
	t.Parallel() // Enable parallel testing

	srv := newTestServer(t)

	resp, err := srv.Client().Get(srv.URL + "/health")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "OK", string(body))
}
