package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockClock struct{ t time.Time }

func (m *mockClock) Now() time.Time          { return m.t }
func (m *mockClock) Advance(d time.Duration) { m.t = m.t.Add(d) }

func newTestCodec(clk *mockClock) *Codec {
	return NewCodec([]byte("access-secret"), []byte("refresh-secret"), 15*time.Minute, 7*24*time.Hour, WithClock(clk.Now))
}

func TestIssueAndVerify_Access(t *testing.T) {
	t.Parallel()

	clk := &mockClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	c := newTestCodec(clk)

	tok, err := c.IssueAccessToken("user-123", "a@x.io")
	require.NoError(t, err)

	res := c.Verify(tok, Access)
	require.Equal(t, StatusOK, res.Status)
	assert.Equal(t, "user-123", res.Claims.UserID)
	assert.Equal(t, "a@x.io", res.Claims.Email)
	assert.Equal(t, "access", res.Claims.Subject)
	assert.Equal(t, clk.t, res.Claims.IssuedAt.Time.UTC())
	assert.Equal(t, clk.t.Add(15*time.Minute), res.Claims.ExpiresAt.Time.UTC())
}

func TestIssueAndVerify_Refresh(t *testing.T) {
	t.Parallel()

	clk := &mockClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	c := newTestCodec(clk)

	tok, exp, err := c.IssueRefreshToken("user-1", "a@x.io")
	require.NoError(t, err)
	assert.Equal(t, clk.t.Add(7*24*time.Hour), exp)
	assert.Equal(t, 7*24*time.Hour, c.RefreshTTL())

	res := c.Verify(tok, Refresh)
	require.Equal(t, StatusOK, res.Status)
	assert.Equal(t, "refresh", res.Claims.Subject)
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()

	clk := &mockClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	c := newTestCodec(clk)

	tok, err := c.IssueAccessToken("u1", "a@x.io")
	require.NoError(t, err)

	clk.Advance(14 * time.Minute)
	assert.Equal(t, StatusOK, c.Verify(tok, Access).Status)

	clk.Advance(2 * time.Minute)
	res := c.Verify(tok, Access)
	assert.Equal(t, StatusExpired, res.Status)
	assert.Nil(t, res.Claims)
}

func TestVerify_SecretsAreIndependent(t *testing.T) {
	t.Parallel()

	clk := &mockClock{t: time.Now()}
	c := newTestCodec(clk)

	access, err := c.IssueAccessToken("u1", "a@x.io")
	require.NoError(t, err)
	refresh, _, err := c.IssueRefreshToken("u1", "a@x.io")
	require.NoError(t, err)

	assert.Equal(t, StatusMalformed, c.Verify(access, Refresh).Status)
	assert.Equal(t, StatusMalformed, c.Verify(refresh, Access).Status)
}

func TestVerify_SubjectMismatchWithSharedSecret(t *testing.T) {
	t.Parallel()

	clk := &mockClock{t: time.Now()}
	c := NewCodec([]byte("same"), []byte("same"), time.Minute, time.Hour, WithClock(clk.Now))

	refresh, _, err := c.IssueRefreshToken("u1", "a@x.io")
	require.NoError(t, err)

	assert.Equal(t, StatusMalformed, c.Verify(refresh, Access).Status)
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()

	c := newTestCodec(&mockClock{t: time.Now()})

	for _, tok := range []string{"", "not.a.jwt", "abc", strings.Repeat("x", 64)} {
		assert.Equal(t, StatusMalformed, c.Verify(tok, Access).Status, "token %q", tok)
	}
}

func TestVerify_WrongAlgorithm(t *testing.T) {
	t.Parallel()

	clk := &mockClock{t: time.Now()}
	c := newTestCodec(clk)

	tok := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "access",
			ExpiresAt: jwt.NewNumericDate(clk.t.Add(time.Hour)),
		},
	})
	s, err := tok.SignedString([]byte("access-secret"))
	require.NoError(t, err)

	assert.Equal(t, StatusMalformed, c.Verify(s, Access).Status)
}

func TestIssue_UniquePerCall(t *testing.T) {
	t.Parallel()

	c := newTestCodec(&mockClock{t: time.Now()})

	a, _, err := c.IssueRefreshToken("u1", "a@x.io")
	require.NoError(t, err)
	b, _, err := c.IssueRefreshToken("u1", "a@x.io")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestStatusAndKindString(t *testing.T) {
	assert.Equal(t, "ok", StatusOK.String())
	assert.Equal(t, "expired", StatusExpired.String())
	assert.Equal(t, "malformed", StatusMalformed.String())
	assert.Equal(t, "access", Access.String())
	assert.Equal(t, "refresh", Refresh.String())
	assert.Equal(t, "kind(7)", Kind(7).String())
}
