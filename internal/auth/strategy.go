package auth

import (
	"context"
	"errors"
	"log/slog"

	"go-blog-api/internal/model"
)

type StrategyKind string

const (
	KindCredential     StrategyKind = "credential"
	KindBearer         StrategyKind = "bearer"
	KindOptionalBearer StrategyKind = "optional-bearer"
)

type Status int

const (
	// Anonymous means no principal was resolved and the request may continue as a guest.
	Anonymous Status = iota
	Authenticated
	Rejected
)

type Reason string

const (
	ReasonNone            Reason = ""
	ReasonUnknownIdentity Reason = "unknown_identity"
	ReasonBadCredentials  Reason = "bad_credentials"
	ReasonMissingToken    Reason = "missing_token"
	ReasonExpired         Reason = "expired"
	ReasonInvalidToken    Reason = "invalid_token"
	ReasonRevoked         Reason = "revoked"
	ReasonInternal        Reason = "internal"
)

// Attempt carries whatever the transport extracted from the request.
type Attempt struct {
	Email    string
	Password string
	Token    string
}

type Result struct {
	Status    Status
	Reason    Reason
	Principal *model.AuthUser
	// User is only populated by the credential strategy, which needs the full
	// record to issue tokens.
	User *model.User
}

func (r Result) OK() bool { return r.Status == Authenticated }

func authenticated(user model.User, full bool) Result {
	principal := user.Public()
	result := Result{Status: Authenticated, Principal: &principal}
	if full {
		result.User = &user
	}
	return result
}

func rejected(reason Reason) Result {
	return Result{Status: Rejected, Reason: reason}
}

// Strategy resolves a principal from one kind of credential. Failures are
// reported in the Result, never as an error.
type Strategy interface {
	Kind() StrategyKind
	Authenticate(ctx context.Context, attempt Attempt) Result
}

type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (model.User, error)
	FindByID(ctx context.Context, id string) (model.User, error)
}

type AccessVerifier interface {
	VerifyAccessToken(token string) (AccessClaims, error)
}

// CredentialStrategy authenticates an email and password pair.
type CredentialStrategy struct {
	users  UserFinder
	hasher *Hasher
}

func NewCredentialStrategy(users UserFinder, hasher *Hasher) *CredentialStrategy {
	return &CredentialStrategy{users: users, hasher: hasher}
}

func (s *CredentialStrategy) Kind() StrategyKind { return KindCredential }

func (s *CredentialStrategy) Authenticate(ctx context.Context, attempt Attempt) Result {
	if attempt.Email == "" || attempt.Password == "" {
		return rejected(ReasonBadCredentials)
	}

	user, err := s.users.FindByEmail(ctx, attempt.Email)
	if errors.Is(err, model.ErrUserNotFound) {
		return rejected(ReasonUnknownIdentity)
	}
	if err != nil {
		slog.Error("credential lookup failed", "error", err)
		return rejected(ReasonInternal)
	}

	ok, err := s.hasher.Verify(attempt.Password, user.PasswordHash)
	if err != nil {
		slog.Error("password verification failed", "user_id", user.ID, "error", err)
		return rejected(ReasonInternal)
	}
	if !ok {
		return rejected(ReasonBadCredentials)
	}

	return authenticated(user, true)
}

// BearerStrategy authenticates a signed access token. The token is trusted on
// its signature alone; the store is only asked whether the subject still exists.
type BearerStrategy struct {
	tokens AccessVerifier
	users  UserFinder
}

func NewBearerStrategy(tokens AccessVerifier, users UserFinder) *BearerStrategy {
	return &BearerStrategy{tokens: tokens, users: users}
}

func (s *BearerStrategy) Kind() StrategyKind { return KindBearer }

func (s *BearerStrategy) Authenticate(ctx context.Context, attempt Attempt) Result {
	if attempt.Token == "" {
		return rejected(ReasonMissingToken)
	}

	claims, err := s.tokens.VerifyAccessToken(attempt.Token)
	switch {
	case errors.Is(err, ErrExpiredToken):
		return rejected(ReasonExpired)
	case err != nil:
		return rejected(ReasonInvalidToken)
	}

	user, err := s.users.FindByID(ctx, claims.Subject)
	if errors.Is(err, model.ErrUserNotFound) {
		return rejected(ReasonUnknownIdentity)
	}
	if err != nil {
		slog.Error("principal lookup failed", "user_id", claims.Subject, "error", err)
		return rejected(ReasonInternal)
	}

	return authenticated(user, false)
}

// OptionalBearerStrategy behaves like BearerStrategy but never rejects:
// anything short of a valid token leaves the request anonymous.
type OptionalBearerStrategy struct {
	bearer *BearerStrategy
}

func NewOptionalBearerStrategy(bearer *BearerStrategy) *OptionalBearerStrategy {
	return &OptionalBearerStrategy{bearer: bearer}
}

func (s *OptionalBearerStrategy) Kind() StrategyKind { return KindOptionalBearer }

func (s *OptionalBearerStrategy) Authenticate(ctx context.Context, attempt Attempt) Result {
	result := s.bearer.Authenticate(ctx, attempt)
	if result.OK() {
		return result
	}
	return Result{Status: Anonymous, Reason: result.Reason}
}
