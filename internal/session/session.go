// Package session reads and verifies the portal's authentication cookie.
//
// Tokens are issued by the upstream API at signin; the portal only stores
// one in a cookie, verifies its signature, and forwards it as a bearer
// credential. Session data travels through the request context explicitly;
// there is no ambient global lookup.
package session

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
)

// CookieName is the cookie carrying the upstream-issued token.
const CookieName = "portal_token"

// Roles a session can hold.
const (
	RoleShop         = "shop"
	RoleManufacturer = "manufacturer"
)

// Sentinel errors for session verification.
var (
	ErrNoSession    = errors.New("no session")
	ErrInvalidToken = errors.New("invalid session token")
)

// Session is the verified identity of the requesting party.
type Session struct {
	// PartyID is the shop or manufacturer ID, depending on Role.
	PartyID string
	Name    string
	Role    string

	// Token is the raw upstream-issued token, forwarded as-is on API calls.
	Token string
}

// claims is the token payload the upstream API signs.
type claims struct {
	jwt.RegisteredClaims
	Name string `json:"name"`
	Role string `json:"role"`
}

// Verifier validates upstream-issued tokens with the shared HMAC secret.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a Verifier for the given shared secret.
func NewVerifier(secret []byte) *Verifier {
	return &Verifier{secret: secret}
}

// Verify parses and validates a raw token, returning the session it
// represents.
func (v *Verifier) Verify(raw string) (*Session, error) {
	var c claims
	tok, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, errors.Wrap(ErrInvalidToken, err.Error())
	}
	if !tok.Valid || c.Subject == "" {
		return nil, ErrInvalidToken
	}
	if c.Role != RoleShop && c.Role != RoleManufacturer {
		return nil, ErrInvalidToken
	}
	return &Session{
		PartyID: c.Subject,
		Name:    c.Name,
		Role:    c.Role,
		Token:   raw,
	}, nil
}

// FromRequest extracts and verifies the session cookie on r.
func (v *Verifier) FromRequest(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil, ErrNoSession
	}
	return v.Verify(cookie.Value)
}

// SetCookie stores a raw token in the session cookie.
func SetCookie(w http.ResponseWriter, token string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie removes the session cookie.
func ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

type ctxKey struct{}

// NewContext returns ctx carrying s.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session carried by ctx, or nil.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(ctxKey{}).(*Session)
	return s
}
