package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerifyToken(t *testing.T) {
	token := signToken("shh", 42)

	userID, ok := verifyToken("shh", token)
	require.True(t, ok)
	assert.EqualValues(t, 42, userID)
}

func TestVerifyToken_WrongSecret(t *testing.T) {
	token := signToken("shh", 42)

	_, ok := verifyToken("other", token)
	assert.False(t, ok)
}

func TestVerifyToken_Malformed(t *testing.T) {
	cases := []string{"", "nodot", "a.b.c", "!!!.sig"}
	for _, tok := range cases {
		_, ok := verifyToken("shh", tok)
		assert.False(t, ok, "token %q should not verify", tok)
	}
}

func TestRequireAuth_MissingHeader(t *testing.T) {
	handler := RequireAuth("shh")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_InvalidToken(t *testing.T) {
	handler := RequireAuth("shh")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_Valid(t *testing.T) {
	token := signToken("shh", 7)
	var gotUserID int64

	handler := RequireAuth("shh")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = UserID(r)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 7, gotUserID)
}
