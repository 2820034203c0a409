// Package auth implements the credential and token service: one-way salted
// password hashing and signed, time-limited tokens for sessions and
// invitations.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// TokenKind tags a token with its purpose. A token is only trusted when
// signature, expiry, and kind all validate.
type TokenKind string

const (
	TokenSession    TokenKind = "session"
	TokenInvitation TokenKind = "invitation"
)

var (
	// ErrTokenExpired indicates a well-formed, correctly signed token past
	// its expiry.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates a malformed token or a bad signature.
	ErrTokenInvalid = errors.New("token invalid")

	// ErrTokenKind indicates a valid token presented for the wrong purpose,
	// such as an invitation used as a session.
	ErrTokenKind = errors.New("unexpected token kind")
)

// Claims is the payload carried by session and invitation tokens. The
// subject is the user identity; the registered ID names this particular
// token so it can be revoked individually.
type Claims struct {
	Kind TokenKind `json:"kind"`
	jwt.RegisteredClaims
}

// TokenInfo is the validated content of a token.
type TokenInfo struct {
	UserID    uuid.UUID
	TokenID   uuid.UUID
	ExpiresAt time.Time
}

// Auth hashes and verifies passwords and issues and validates signed
// tokens. The zero value is not usable; construct with New.
type Auth struct {
	secret        []byte
	sessionTTL    time.Duration
	invitationTTL time.Duration
}

// Option configures an Auth instance.
type Option func(*Auth)

// WithSessionTTL overrides the default session lifetime.
func WithSessionTTL(d time.Duration) Option {
	return func(a *Auth) { a.sessionTTL = d }
}

// WithInvitationTTL overrides the default invitation lifetime.
func WithInvitationTTL(d time.Duration) Option {
	return func(a *Auth) { a.invitationTTL = d }
}

// New creates an Auth service signing tokens with the given secret.
func New(secret []byte, opts ...Option) (*Auth, error) {
	if len(secret) == 0 {
		return nil, errors.New("token secret is required")
	}

	a := &Auth{
		secret:        secret,
		sessionTTL:    30 * 24 * time.Hour,
		invitationTTL: 7 * 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// HashPassword derives a one-way salted hash of the given password.
func (a *Auth) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches the stored hash. It never
// compares plaintext.
func (a *Auth) VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// SessionTTL returns the configured session lifetime.
func (a *Auth) SessionTTL() time.Duration { return a.sessionTTL }

// IssueSession signs a session token for the given user.
func (a *Auth) IssueSession(userID uuid.UUID) (string, time.Time, error) {
	return a.issue(TokenSession, userID, a.sessionTTL)
}

// IssueInvitation signs an invitation token embedding the issuing user.
func (a *Auth) IssueInvitation(userID uuid.UUID) (string, time.Time, error) {
	return a.issue(TokenInvitation, userID, a.invitationTTL)
}

func (a *Auth) issue(kind TokenKind, userID uuid.UUID, ttl time.Duration) (string, time.Time, error) {
	now := time.Now().UTC()
	expires := now.Add(ttl)

	claims := &Claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign %s token: %w", kind, err)
	}
	return token, expires, nil
}

// ValidateToken checks signature, expiry, and kind together and returns the
// token's content. Expired and wrong-kind tokens are distinguishable from
// malformed ones via ErrTokenExpired and ErrTokenKind.
func (a *Auth) ValidateToken(token string, kind TokenKind) (TokenInfo, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return a.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return TokenInfo{}, ErrTokenExpired
		}
		return TokenInfo{}, ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return TokenInfo{}, ErrTokenInvalid
	}
	if claims.Kind != kind {
		return TokenInfo{}, ErrTokenKind
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return TokenInfo{}, ErrTokenInvalid
	}
	tokenID, err := uuid.Parse(claims.ID)
	if err != nil {
		return TokenInfo{}, ErrTokenInvalid
	}

	return TokenInfo{
		UserID:    userID,
		TokenID:   tokenID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
