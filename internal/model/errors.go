package model

import "errors"

var (
	// User related errors
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")

	// Content related errors
	ErrPostNotFound    = errors.New("post not found")
	ErrCommentNotFound = errors.New("comment not found")

	// Permission/Access related errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Generic errors
	ErrInvalidInput = errors.New("invalid input")
)
