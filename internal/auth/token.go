package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "warproom"

var (
	ErrInvalidToken    = errors.New("invalid access token")
	ErrMissingIdentity = errors.New("access token has no identity")
	ErrMissingSecret   = errors.New("token secret is empty")
)

// Grant is what an access token allows its bearer to do.
type Grant struct {
	// Identity is the display identity of the participant.
	Identity string
	// Room restricts the token to a single room. Empty means any room.
	Room string
}

// AllowsRoom reports whether the grant may join the named room.
func (g Grant) AllowsRoom(name string) bool {
	return g.Room == "" || g.Room == name
}

type claims struct {
	Room string `json:"room,omitempty"`
	jwt.RegisteredClaims
}

// Sign creates an HS256 access token for the grant.
// Used by tests and local fixtures; tokens are normally minted elsewhere.
func Sign(secret []byte, grant Grant, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", ErrMissingSecret
	}
	if grant.Identity == "" {
		return "", ErrMissingIdentity
	}

	now := time.Now()
	c := &claims{
		Room: grant.Room,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   grant.Identity,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(secret)
}

// Verify parses the token, checks its signature and expiry and returns the grant.
func Verify(secret []byte, token string) (Grant, error) {
	if len(secret) == 0 {
		return Grant{}, ErrMissingSecret
	}

	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Grant{}, errors.Join(ErrInvalidToken, err)
	}

	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return Grant{}, ErrInvalidToken
	}
	if c.Subject == "" {
		return Grant{}, ErrMissingIdentity
	}

	return Grant{Identity: c.Subject, Room: c.Room}, nil
}
