// shared/auth/auth.go
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrUnauthenticated is returned when a request carries no usable identity.
var ErrUnauthenticated = errors.New("unauthenticated")

// Identity is the caller resolved from a request.
type Identity struct {
	UID   string
	Email string
	Name  string
}

// Authenticator resolves the caller of an HTTP request.
type Authenticator interface {
	Authenticate(r *http.Request) (Identity, error)
}

// TokenVerifier turns a bearer token into an Identity.
type TokenVerifier interface {
	Verify(token string) (Identity, error)
}

// Claims carried by player tokens. The uid comes from "sub", or "uid" when sub is absent.
type Claims struct {
	UID   string `json:"uid,omitempty"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier validates HS256 tokens signed with a shared secret.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

func (v *JWTVerifier) Verify(tokenStr string) (Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return Identity{}, ErrUnauthenticated
	}

	uid := claims.Subject
	if uid == "" {
		uid = claims.UID
	}
	if uid == "" {
		return Identity{}, ErrUnauthenticated
	}
	return Identity{UID: uid, Email: claims.Email, Name: claims.Name}, nil
}

// BearerAuthenticator reads "Authorization: Bearer <token>".
type BearerAuthenticator struct {
	Verifier TokenVerifier
}

func (a BearerAuthenticator) Authenticate(r *http.Request) (Identity, error) {
	authz := r.Header.Get("Authorization")
	if !strings.HasPrefix(authz, "Bearer ") {
		return Identity{}, ErrUnauthenticated
	}
	token := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
	if token == "" {
		return Identity{}, ErrUnauthenticated
	}
	return a.Verifier.Verify(token)
}

// Dev mode headers.
const (
	DevUserHeader  = "X-User-Id"
	DevEmailHeader = "X-User-Email"
	DevNameHeader  = "X-User-Name"
	DevDefaultUID  = "dev-user"
)

// DevHeaderAuthenticator trusts identity headers. Local development only.
type DevHeaderAuthenticator struct{}

func (DevHeaderAuthenticator) Authenticate(r *http.Request) (Identity, error) {
	uid := strings.TrimSpace(r.Header.Get(DevUserHeader))
	if uid == "" {
		uid = DevDefaultUID
	}
	return Identity{
		UID:   uid,
		Email: r.Header.Get(DevEmailHeader),
		Name:  r.Header.Get(DevNameHeader),
	}, nil
}

type identityKey struct{}

// WithIdentity stores id on ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity placed by RequireAuth.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// RequireAuth rejects requests the authenticator cannot resolve. onFail writes the rejection.
func RequireAuth(a Authenticator, onFail func(http.ResponseWriter, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := a.Authenticate(r)
			if err != nil {
				onFail(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}
