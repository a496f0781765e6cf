package model

import "time"

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

type User struct {
	ID               string    `json:"id" db:"id"`
	Email            string    `json:"email" db:"email"`
	Name             string    `json:"name" db:"name"`
	PasswordHash     string    `json:"-" db:"password_hash"`
	Role             Role      `json:"role" db:"role"`
	RefreshTokenHash *string   `json:"-" db:"refresh_token_hash"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// HasSession reports whether a refresh token is currently stored for the user.
func (u User) HasSession() bool {
	return u.RefreshTokenHash != nil && *u.RefreshTokenHash != ""
}

func (u User) Public() AuthUser {
	return AuthUser{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}

// AuthUser is the projection exposed to clients and carried as the request principal.
type AuthUser struct {
	ID    string `json:"id" db:"id"`
	Email string `json:"email" db:"email"`
	Name  string `json:"name" db:"name"`
	Role  Role   `json:"role" db:"role"`
}

type UserSummary struct {
	AuthUser
	PostCount int       `json:"post_count" db:"post_count"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type UserList struct {
	Users []UserSummary `json:"users"`
}

type UserEnvelope struct {
	User AuthUser `json:"user"`
}

type TokenPair struct {
	AccessToken      string    `json:"-"`
	AccessExpiresAt  time.Time `json:"-"`
	RefreshToken     string    `json:"-"`
	RefreshExpiresAt time.Time `json:"-"`
}

type AuthResult struct {
	User     AuthUser  `json:"user"`
	Redirect string    `json:"redirect,omitempty"`
	Tokens   TokenPair `json:"-"`
}
