package session

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, secret []byte, subject, name, role string, expires time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Name: name,
		Role: role,
	})
	raw, err := tok.SignedString(secret)
	require.NoError(t, err)
	return raw
}

func TestVerify(t *testing.T) {
	v := NewVerifier(testSecret)
	raw := signToken(t, testSecret, "s1", "Sakura Pharmacy", RoleShop, time.Now().Add(time.Hour))

	s, err := v.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, "s1", s.PartyID)
	assert.Equal(t, "Sakura Pharmacy", s.Name)
	assert.Equal(t, RoleShop, s.Role)
	assert.Equal(t, raw, s.Token)
}

func TestVerify_WrongSecret(t *testing.T) {
	v := NewVerifier(testSecret)
	raw := signToken(t, []byte("other"), "s1", "x", RoleShop, time.Now().Add(time.Hour))

	_, err := v.Verify(raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Expired(t *testing.T) {
	v := NewVerifier(testSecret)
	raw := signToken(t, testSecret, "s1", "x", RoleShop, time.Now().Add(-time.Minute))

	_, err := v.Verify(raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_UnknownRole(t *testing.T) {
	v := NewVerifier(testSecret)
	raw := signToken(t, testSecret, "s1", "x", "admin", time.Now().Add(time.Hour))

	_, err := v.Verify(raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestFromRequest_NoCookie(t *testing.T) {
	v := NewVerifier(testSecret)
	r := httptest.NewRequest("GET", "/", nil)

	_, err := v.FromRequest(r)
	require.ErrorIs(t, err, ErrNoSession)
}

func TestFromRequest_Cookie(t *testing.T) {
	v := NewVerifier(testSecret)
	raw := signToken(t, testSecret, "m1", "Orient Pharma", RoleManufacturer, time.Now().Add(time.Hour))

	w := httptest.NewRecorder()
	SetCookie(w, raw, time.Hour)
	r := httptest.NewRequest("GET", "/", nil)
	for _, c := range w.Result().Cookies() {
		r.AddCookie(c)
	}

	s, err := v.FromRequest(r)
	require.NoError(t, err)
	assert.Equal(t, RoleManufacturer, s.Role)
	assert.Equal(t, "m1", s.PartyID)
}

func TestContextRoundTrip(t *testing.T) {
	s := &Session{PartyID: "s1", Role: RoleShop}
	ctx := NewContext(t.Context(), s)
	assert.Same(t, s, FromContext(ctx))
	assert.Nil(t, FromContext(t.Context()))
}
