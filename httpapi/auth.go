package httpapi

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

// Auth validates bearer tokens on the debug HTTP surface (SPEC_FULL.md
// §11: golang-jwt, "mirroring the teacher's engine-API auth pattern").
// There is no user/session model behind it — any token signed with
// secret and not expired is accepted, matching a debug surface meant for
// trusted collaborators rather than end users.
type Auth struct {
	secret []byte
}

func NewAuth(secret []byte) *Auth { return &Auth{secret: secret} }

// IssueToken mints a bearer token for out-of-band distribution to a
// collaborator (there is no login flow; an operator hands the token out
// directly, e.g. via the enginectl CLI).
func (a *Auth) IssueToken(subject string) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: subject})
	return tok.SignedString(a.secret)
}

// Middleware rejects any request without a valid `Authorization: Bearer
// <token>` header.
func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		raw := strings.TrimPrefix(header, prefix)
		_, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
			return a.secret, nil
		})
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
