package httpapi

import (
	"bytes"
	"context"
	"database/sql"
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

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/apetrov/assetgate/internal/common"
	"github.com/apetrov/assetgate/internal/logging"
	"github.com/apetrov/assetgate/internal/server/auth"
	"github.com/apetrov/assetgate/internal/server/catalog"
	"github.com/apetrov/assetgate/internal/server/models"
	"github.com/apetrov/assetgate/internal/server/services"
	"github.com/apetrov/assetgate/internal/server/signer"
	"github.com/apetrov/assetgate/internal/server/uploads"
)

const testSecret = "api-test-secret"

type stubSigner struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *stubSigner) Sign(ctx context.Context, key string, op signer.Operation, ttl time.Duration) (*signer.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.calls++
	return &signer.Credential{
		ObjectKey: key,
		Operation: op,
		URL:       fmt.Sprintf("https://signed.example/%s?op=%s&n=%d", key, op, f.calls),
		ExpiresAt: time.Now().Add(ttl),
	}, nil
}

type stubStore struct {
	keys    []string
	listErr error
	exists  bool
}

func (f *stubStore) List(ctx context.Context, prefixes []string) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.keys, nil
}

func (f *stubStore) Exists(ctx context.Context, key string) (bool, error) {
	return f.exists, nil
}

type testAPI struct {
	router http.Handler
	mock   sqlmock.Sqlmock
	signer *stubSigner
	store  *stubStore
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sgn := &stubSigner{}
	store := &stubStore{exists: true}

	cat, err := catalog.New(map[string][]string{
		"Regular": {"shared/"},
		"Premium": {"shared/", "premium/"},
	})
	require.NoError(t, err)

	um := uploads.NewManager(sgn, store, uploads.Options{
		MaxUploadBytes:      10 << 20,
		AllowedContentTypes: []string{"image/jpeg", "image/png", "image/gif"},
		CredentialTTL:       15 * time.Minute,
		PublicBaseURL:       "https://cdn.example/",
		KeyPrefix:           "uploads",
	}, log)

	us := services.NewUserService(db, testSecret, time.Hour, log)
	fs := services.NewFileService(sgn, store, cat, 5*time.Minute, 4, log)

	srv := NewServer(":0", log, us, fs, um, testSecret)
	return &testAPI{router: srv.Router(), mock: mock, signer: sgn, store: store}
}

func (a *testAPI) do(t *testing.T, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, target, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env
}

func tokenFor(t *testing.T, userID string, tier models.Tier) string {
	t.Helper()
	token, err := auth.GenerateToken(userID, tier, []byte(testSecret), time.Hour)
	require.NoError(t, err)
	return token
}

// ---- auth middleware ----

func TestRequireAuth(t *testing.T) {
	api := newTestAPI(t)

	tests := []struct {
		name  string
		token string
		raw   string // raw Authorization header, overrides token
		want  int
	}{
		{"missing header", "", "", http.StatusUnauthorized},
		{"malformed header", "", "NotBearer xyz", http.StatusUnauthorized},
		{"garbage token", "garbage", "", http.StatusUnauthorized},
		{"wrong secret", func() string {
			tk, _ := auth.GenerateToken("u-1", models.TierRegular, []byte("other"), time.Hour)
			return tk
		}(), "", http.StatusUnauthorized},
		{"valid token", tokenFor(t, "u-1", models.TierRegular), "", http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/files", nil)
			if tc.raw != "" {
				req.Header.Set("Authorization", tc.raw)
			} else if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}
			rec := httptest.NewRecorder()
			api.router.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

// ---- uploads ----

func TestRequestUpload(t *testing.T) {
	api := newTestAPI(t)
	token := tokenFor(t, "u-1", models.TierRegular)

	rec := api.do(t, http.MethodPost, "/api/v1/uploads", token, map[string]any{
		"filename":    "avatar.png",
		"contentType": "image/png",
		"sizeBytes":   2048,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	env := decodeEnvelope(t, rec)
	require.True(t, env.Success)
	data := env.Data.(map[string]any)
	assert.NotEmpty(t, data["sessionId"])
	assert.Contains(t, data["uploadUrl"], "op=upload")
	assert.Contains(t, data["objectUrl"], "https://cdn.example/uploads/")
	assert.NotEmpty(t, data["expiresAt"])
}

func TestRequestUpload_Rejections(t *testing.T) {
	api := newTestAPI(t)
	token := tokenFor(t, "u-1", models.TierRegular)

	rec := api.do(t, http.MethodPost, "/api/v1/uploads", token, map[string]any{
		"filename":    "doc.pdf",
		"contentType": "application/pdf",
		"sizeBytes":   2048,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, decodeEnvelope(t, rec).Success)

	rec = api.do(t, http.MethodPost, "/api/v1/uploads", token, map[string]any{
		"filename":    "big.png",
		"contentType": "image/png",
		"sizeBytes":   15 << 20,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", strings.NewReader("{not json"))
	req.Header.Set("Authorization", "Bearer "+token)
	rec2 := httptest.NewRecorder()
	api.router.ServeHTTP(rec2, req)
	assert.Equal(t, http.StatusBadRequest, rec2.Code)
}

func TestUploadLifecycleOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	token := tokenFor(t, "u-1", models.TierRegular)

	rec := api.do(t, http.MethodPost, "/api/v1/uploads", token, map[string]any{
		"filename":    "avatar.png",
		"contentType": "image/png",
		"sizeBytes":   1000,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	start := decodeEnvelope(t, rec).Data.(map[string]any)
	sessionID := start["sessionId"].(string)

	rec = api.do(t, http.MethodPost, "/api/v1/uploads/"+sessionID+"/progress", token, map[string]any{
		"bytesSent": 800, "bytesTotal": 1000,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	prog := decodeEnvelope(t, rec).Data.(map[string]any)
	assert.InDelta(t, 80, prog["progressPercent"], 0.01)

	rec = api.do(t, http.MethodPost, "/api/v1/uploads/"+sessionID+"/complete", token, map[string]any{
		"ok": true,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	done := decodeEnvelope(t, rec).Data.(map[string]any)
	assert.Equal(t, start["objectUrl"], done["objectUrl"])

	// The session is terminal and gone.
	rec = api.do(t, http.MethodPost, "/api/v1/uploads/"+sessionID+"/complete", token, map[string]any{
		"ok": true,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadComplete_TransportFailure(t *testing.T) {
	api := newTestAPI(t)
	token := tokenFor(t, "u-1", models.TierRegular)

	rec := api.do(t, http.MethodPost, "/api/v1/uploads", token, map[string]any{
		"filename":    "avatar.png",
		"contentType": "image/png",
		"sizeBytes":   1000,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	sessionID := decodeEnvelope(t, rec).Data.(map[string]any)["sessionId"].(string)

	rec = api.do(t, http.MethodPost, "/api/v1/uploads/"+sessionID+"/complete", token, map[string]any{
		"ok": false,
	})
	assert.Equal(t, http.StatusGone, rec.Code)
}

// ---- listings ----

func TestListFiles_TierFromTokenOnly(t *testing.T) {
	api := newTestAPI(t)
	api.store.keys = []string{"shared/a.png", "premium/b.png"}

	// The query string has no say in what the caller can see.
	rec := api.do(t, http.MethodGet, "/api/v1/files?tier=Premium", tokenFor(t, "u-1", models.TierRegular), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	files := decodeEnvelope(t, rec).Data.(map[string]any)["files"].([]any)
	require.Len(t, files, 1)
	assert.Equal(t, "a.png", files[0].(map[string]any)["name"])

	rec = api.do(t, http.MethodGet, "/api/v1/files", tokenFor(t, "u-2", models.TierPremium), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	files = decodeEnvelope(t, rec).Data.(map[string]any)["files"].([]any)
	assert.Len(t, files, 2)
}

func TestListFiles_EmptyAndUnavailable(t *testing.T) {
	api := newTestAPI(t)
	token := tokenFor(t, "u-1", models.TierRegular)

	rec := api.do(t, http.MethodGet, "/api/v1/files", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Empty(t, env.Data.(map[string]any)["files"])

	api.store.listErr = common.ErrorStorageUnavailable
	rec = api.do(t, http.MethodGet, "/api/v1/files", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

// ---- accounts ----

func TestRegisterEndpoint(t *testing.T) {
	api := newTestAPI(t)

	api.mock.ExpectBegin()
	api.mock.ExpectQuery("SELECT id, username").
		WithArgs("alice").
		WillReturnError(sql.ErrNoRows)
	api.mock.ExpectQuery("INSERT INTO users").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("u-1"))
	api.mock.ExpectCommit()

	rec := api.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"username":    "alice",
		"password":    "s3cret",
		"email":       "alice@example.com",
		"accountTier": "Premium",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	user := decodeEnvelope(t, rec).Data.(map[string]any)
	assert.Equal(t, "alice", user["username"])
	assert.Equal(t, "Premium", user["accountTier"])
	assert.NotContains(t, rec.Body.String(), "s3cret", "no password material may leak in responses")
	require.NoError(t, api.mock.ExpectationsWereMet())
}

func TestRegisterEndpoint_BadTier(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"username":    "alice",
		"password":    "s3cret",
		"email":       "alice@example.com",
		"accountTier": "Gold",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginEndpoint(t *testing.T) {
	api := newTestAPI(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	rows := sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "account_tier", "profile_image"}).
		AddRow("u-1", "alice", "alice@example.com", string(hash), "Premium", nil)
	api.mock.ExpectQuery("SELECT id, username").WithArgs("alice").WillReturnRows(rows)

	rec := api.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]any{
		"username": "alice",
		"password": "s3cret",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	data := decodeEnvelope(t, rec).Data.(map[string]any)
	tokenStr, _ := data["token"].(string)
	require.NotEmpty(t, tokenStr)

	uid, tier, err := auth.ParseToken(tokenStr, []byte(testSecret))
	require.NoError(t, err)
	assert.Equal(t, "u-1", uid)
	assert.Equal(t, models.TierPremium, tier)
}

func TestLoginEndpoint_WrongPassword(t *testing.T) {
	api := newTestAPI(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	rows := sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "account_tier", "profile_image"}).
		AddRow("u-1", "alice", "alice@example.com", string(hash), "Regular", nil)
	api.mock.ExpectQuery("SELECT id, username").WithArgs("alice").WillReturnRows(rows)

	rec := api.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]any{
		"username": "alice",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// ---- plumbing ----

func TestHealthEndpoint(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
