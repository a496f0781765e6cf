package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"go-blog-api/internal/model"
)

type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// Verification failures. They are returned as values and never wrapped in a
// panic, so callers can branch with errors.Is.
var (
	ErrExpiredToken     = errors.New("token expired")
	ErrInvalidSignature = errors.New("invalid token")
)

// Clock returns the current time. Tests swap it to move time forward.
type Clock func() time.Time

type TokenConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Now           Clock
}

type Token struct {
	Value     string
	ID        string
	ExpiresAt time.Time
}

type AccessClaims struct {
	Email string    `json:"email"`
	Type  TokenKind `json:"typ"`
	jwt.RegisteredClaims
}

type RefreshClaims struct {
	Type TokenKind `json:"typ"`
	jwt.RegisteredClaims
}

// SessionStore persists the hash of the single active refresh token per user.
type SessionStore interface {
	SetRefreshTokenHash(ctx context.Context, userID string, hash *string) error
	SwapRefreshTokenHash(ctx context.Context, userID string, oldHash string, newHash string) (bool, error)
}

type TokenService struct {
	cfg      TokenConfig
	sessions SessionStore
}

func NewTokenService(cfg TokenConfig, sessions SessionStore) (*TokenService, error) {
	if len(cfg.AccessSecret) == 0 {
		return nil, errors.New("access token secret is required")
	}
	if len(cfg.RefreshSecret) == 0 {
		cfg.RefreshSecret = cfg.AccessSecret
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}

	return &TokenService{cfg: cfg, sessions: sessions}, nil
}

func (s *TokenService) AccessTTL() time.Duration  { return s.cfg.AccessTTL }
func (s *TokenService) RefreshTTL() time.Duration { return s.cfg.RefreshTTL }

func (s *TokenService) IssueAccessToken(user model.User) (Token, error) {
	now := s.cfg.Now()
	jti := uuid.NewString()
	exp := now.Add(s.cfg.AccessTTL)

	claims := AccessClaims{
		Email: user.Email,
		Type:  KindAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.AccessSecret)
	if err != nil {
		return Token{}, fmt.Errorf("sign access token: %w", err)
	}

	return Token{Value: signed, ID: jti, ExpiresAt: exp}, nil
}

func (s *TokenService) IssueRefreshToken(user model.User) (Token, error) {
	now := s.cfg.Now()
	jti := uuid.NewString()
	exp := now.Add(s.cfg.RefreshTTL)

	claims := RefreshClaims{
		Type: KindRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.RefreshSecret)
	if err != nil {
		return Token{}, fmt.Errorf("sign refresh token: %w", err)
	}

	return Token{Value: signed, ID: jti, ExpiresAt: exp}, nil
}

// IssuePair signs a fresh access/refresh pair. It does not touch the store;
// callers persist the refresh half with RotateRefreshToken or RotateRefreshTokenFrom.
func (s *TokenService) IssuePair(user model.User) (model.TokenPair, error) {
	access, err := s.IssueAccessToken(user)
	if err != nil {
		return model.TokenPair{}, err
	}
	refresh, err := s.IssueRefreshToken(user)
	if err != nil {
		return model.TokenPair{}, err
	}

	return model.TokenPair{
		AccessToken:      access.Value,
		AccessExpiresAt:  access.ExpiresAt,
		RefreshToken:     refresh.Value,
		RefreshExpiresAt: refresh.ExpiresAt,
	}, nil
}

func (s *TokenService) VerifyAccessToken(token string) (AccessClaims, error) {
	var claims AccessClaims
	if err := s.parse(token, &claims, s.cfg.AccessSecret); err != nil {
		return AccessClaims{}, err
	}
	if claims.Type != KindAccess || claims.Subject == "" {
		return AccessClaims{}, ErrInvalidSignature
	}
	return claims, nil
}

// VerifyRefreshToken only checks signature and expiry. The caller must still
// compare the token against the hash stored for the subject.
func (s *TokenService) VerifyRefreshToken(token string) (RefreshClaims, error) {
	var claims RefreshClaims
	if err := s.parse(token, &claims, s.cfg.RefreshSecret); err != nil {
		return RefreshClaims{}, err
	}
	if claims.Type != KindRefresh || claims.Subject == "" {
		return RefreshClaims{}, ErrInvalidSignature
	}
	return claims, nil
}

// RotateRefreshToken overwrites the stored hash with the hash of newToken,
// which implicitly revokes whatever token was stored before.
func (s *TokenService) RotateRefreshToken(ctx context.Context, userID string, newToken string) error {
	hash := HashToken(newToken)
	if err := s.sessions.SetRefreshTokenHash(ctx, userID, &hash); err != nil {
		return fmt.Errorf("rotate refresh token: %w", err)
	}
	return nil
}

// RotateRefreshTokenFrom swaps the stored hash only while it still matches
// oldToken. It returns false when another rotation got there first.
func (s *TokenService) RotateRefreshTokenFrom(ctx context.Context, userID string, oldToken string, newToken string) (bool, error) {
	swapped, err := s.sessions.SwapRefreshTokenHash(ctx, userID, HashToken(oldToken), HashToken(newToken))
	if err != nil {
		return false, fmt.Errorf("swap refresh token: %w", err)
	}
	return swapped, nil
}

// Revoke clears the stored refresh hash. Revoking twice is fine.
func (s *TokenService) Revoke(ctx context.Context, userID string) error {
	if err := s.sessions.SetRefreshTokenHash(ctx, userID, nil); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// MatchesStored reports whether token is the one whose hash is stored on user.
func (s *TokenService) MatchesStored(user model.User, token string) bool {
	if !user.HasSession() {
		return false
	}
	presented := HashToken(token)
	return subtle.ConstantTimeCompare([]byte(presented), []byte(*user.RefreshTokenHash)) == 1
}

func (s *TokenService) parse(token string, claims jwt.Claims, secret []byte) error {
	if token == "" {
		return ErrInvalidSignature
	}

	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSignature
		}
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.cfg.Now),
	)
	if err == nil {
		return nil
	}
	if errors.Is(err, jwt.ErrTokenExpired) {
		return ErrExpiredToken
	}
	return ErrInvalidSignature
}

// HashToken returns the hex SHA-256 of a raw token. bcrypt is not used here
// because signed tokens exceed its 72 byte input limit.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
