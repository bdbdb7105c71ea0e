package token

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestAuth(t *testing.T) *Authenticator {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)
	return NewAuthenticator("test-signing-key", map[string]string{"admin": string(hash)})
}

func TestIssueAndVerify(t *testing.T) {
	auth := newTestAuth(t)

	tok, err := auth.Issue("admin", "hunter2")
	require.NoError(t, err)

	user, err := auth.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "admin", user)

	_, err = auth.Issue("admin", "wrong")
	assert.Error(t, err)
	_, err = auth.Issue("nobody", "hunter2")
	assert.Error(t, err)
}

func TestVerify_Expired(t *testing.T) {
	auth := newTestAuth(t)
	auth.Now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	tok, err := auth.Issue("admin", "hunter2")
	require.NoError(t, err)

	_, err = auth.Verify(tok)
	assert.Error(t, err)
}

func TestVerify_WrongKey(t *testing.T) {
	auth := newTestAuth(t)
	tok, err := auth.Issue("admin", "hunter2")
	require.NoError(t, err)

	other := newTestAuth(t)
	other.SigningKey = []byte("another-key")
	_, err = other.Verify(tok)
	assert.Error(t, err)
}

func TestGetToken(t *testing.T) {
	auth := newTestAuth(t)

	body, _ := json.Marshal(User{Username: "admin", Password: "hunter2"})
	rec := httptest.NewRecorder()
	auth.GetToken(rec, httptest.NewRequest(http.MethodPost, "/api/get_token", bytes.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp["token"])

	rec = httptest.NewRecorder()
	auth.GetToken(rec, httptest.NewRequest(http.MethodPost, "/api/get_token", bytes.NewReader([]byte("{"))))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body, _ = json.Marshal(User{Username: "admin", Password: "nope"})
	rec = httptest.NewRecorder()
	auth.GetToken(rec, httptest.NewRequest(http.MethodPost, "/api/get_token", bytes.NewReader(body)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetToken_NotConfigured(t *testing.T) {
	auth := NewAuthenticator("", nil)
	rec := httptest.NewRecorder()
	auth.GetToken(rec, httptest.NewRequest(http.MethodPost, "/api/get_token", bytes.NewReader([]byte("{}"))))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestJwtMiddleware(t *testing.T) {
	auth := newTestAuth(t)
	var seen string
	protected := auth.JwtMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/cache/purge", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/cache/purge", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	tok, err := auth.Issue("admin", "hunter2")
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodPost, "/api/cache/purge", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "admin", seen)
}
