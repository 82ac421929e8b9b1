// Package auth issues and verifies the signed access and refresh tokens.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind selects the secret, lifetime and subject marker of a token.
type Kind int

const (
	Access Kind = iota
	Refresh
)

func (k Kind) String() string {
	switch k {
	case Access:
		return "access"
	case Refresh:
		return "refresh"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Status is the outcome of Verify.
type Status int

const (
	StatusOK Status = iota
	StatusExpired
	StatusMalformed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusExpired:
		return "expired"
	default:
		return "malformed"
	}
}

// Claims is the payload shared by both token kinds. The subject carries
// the kind marker.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Result is returned by Verify. Claims is set only when Status is StatusOK.
type Result struct {
	Status Status
	Claims *Claims
}

type Option func(*Codec)

// WithClock replaces time.Now for issuing and verifying.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// Codec signs tokens with HS256 using one secret per kind.
type Codec struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewCodec(accessSecret, refreshSecret []byte, accessTTL, refreshTTL time.Duration, opts ...Option) *Codec {
	c := &Codec{
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Codec) secret(kind Kind) []byte {
	if kind == Refresh {
		return c.refreshSecret
	}
	return c.accessSecret
}

func (c *Codec) ttl(kind Kind) time.Duration {
	if kind == Refresh {
		return c.refreshTTL
	}
	return c.accessTTL
}

// RefreshTTL is the lifetime given to refresh tokens, used for the
// store record and the cookie.
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

func (c *Codec) IssueAccessToken(userID, email string) (string, error) {
	tok, _, err := c.issue(Access, userID, email)
	return tok, err
}

// IssueRefreshToken also returns the expiry written into the token.
func (c *Codec) IssueRefreshToken(userID, email string) (string, time.Time, error) {
	return c.issue(Refresh, userID, email)
}

func (c *Codec) issue(kind Kind, userID, email string) (string, time.Time, error) {
	now := c.now()
	exp := now.Add(c.ttl(kind))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   kind.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})

	s, err := token.SignedString(c.secret(kind))
	if err != nil {
		return "", time.Time{}, err
	}
	return s, exp.Truncate(time.Second), nil
}

// Verify checks signature, algorithm, subject marker and expiry of token
// against the secret of kind.
func (c *Codec) Verify(token string, kind Kind) Result {
	claims := &Claims{}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
		jwt.WithSubject(kind.String()),
	)

	_, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret(kind), nil
	})

	switch {
	case err == nil:
		return Result{Status: StatusOK, Claims: claims}
	case errors.Is(err, jwt.ErrTokenInvalidSubject):
		return Result{Status: StatusMalformed}
	case errors.Is(err, jwt.ErrTokenExpired):
		return Result{Status: StatusExpired}
	default:
		return Result{Status: StatusMalformed}
	}
}
