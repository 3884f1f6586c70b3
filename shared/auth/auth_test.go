package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, method jwt.SigningMethod, key interface{}, claims Claims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return tok
}

func TestJWTVerifierAcceptsValidToken(t *testing.T) {
	tok := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), Claims{
		Email:            "ada@example.com",
		Name:             "Ada",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})

	id, err := NewJWTVerifier(testSecret).Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, Identity{UID: "u1", Email: "ada@example.com", Name: "Ada"}, id)
}

func TestJWTVerifierFallsBackToUIDClaim(t *testing.T) {
	tok := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), Claims{UID: "u2"})

	id, err := NewJWTVerifier(testSecret).Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "u2", id.UID)
}

func TestJWTVerifierRejects(t *testing.T) {
	cases := map[string]string{
		"wrong secret": signToken(t, jwt.SigningMethodHS256, []byte("other"), Claims{UID: "u1"}),
		"expired": signToken(t, jwt.SigningMethodHS256, []byte(testSecret), Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "u1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))},
		}),
		"no subject":  signToken(t, jwt.SigningMethodHS256, []byte(testSecret), Claims{Email: "x@example.com"}),
		"other alg":   signToken(t, jwt.SigningMethodHS512, []byte(testSecret), Claims{UID: "u1"}),
		"not a token": "garbage",
	}
	v := NewJWTVerifier(testSecret)
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(tok)
			assert.ErrorIs(t, err, ErrUnauthenticated)
		})
	}
}

func TestBearerAuthenticatorRequiresHeader(t *testing.T) {
	a := BearerAuthenticator{Verifier: NewJWTVerifier(testSecret)}

	_, err := a.Authenticate(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.ErrorIs(t, err, ErrUnauthenticated)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic abc")
	_, err = a.Authenticate(req)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestDevHeaderAuthenticator(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	id, err := DevHeaderAuthenticator{}.Authenticate(req)
	require.NoError(t, err)
	assert.Equal(t, DevDefaultUID, id.UID)

	req.Header.Set(DevUserHeader, "u9")
	req.Header.Set(DevNameHeader, "Nine")
	id, err = DevHeaderAuthenticator{}.Authenticate(req)
	require.NoError(t, err)
	assert.Equal(t, Identity{UID: "u9", Name: "Nine"}, id)
}

func TestRequireAuth(t *testing.T) {
	a := BearerAuthenticator{Verifier: NewJWTVerifier(testSecret)}
	var seen Identity
	h := RequireAuth(a, func(w http.ResponseWriter, err error) {
		w.WriteHeader(http.StatusUnauthorized)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = IdentityFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, jwt.SigningMethodHS256, []byte(testSecret), Claims{UID: "u1"}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", seen.UID)
}
