package security

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionCookie is the name of the cookie carrying the signed session.
const SessionCookie = "ylabs_session"

type SessionClaims struct {
	NetID string `json:"netid"`
	jwt.RegisteredClaims
}

// SessionProvider signs and verifies HS256 session tokens.
type SessionProvider struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionProvider(secret string, ttl time.Duration) *SessionProvider {
	return &SessionProvider{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (p *SessionProvider) TTL() time.Duration {
	return p.ttl
}

func (p *SessionProvider) Issue(netid string) (string, time.Time, error) {
	now := p.now().UTC()
	expiresAt := now.Add(p.ttl)
	claims := SessionClaims{
		NetID: netid,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   netid,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Parse returns the netid of a valid, unexpired token.
func (p *SessionProvider) Parse(token string) (string, error) {
	var claims SessionClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return p.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(p.now))
	if err != nil {
		return "", err
	}
	netid := strings.TrimSpace(claims.NetID)
	if netid == "" {
		netid = strings.TrimSpace(claims.Subject)
	}
	if netid == "" {
		return "", errors.New("session has no netid")
	}
	return strings.ToLower(netid), nil
}
