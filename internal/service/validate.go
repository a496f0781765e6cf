package service

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"go-blog-api/pkg/apierror"
)

const (
	maxPasswordBytes = 72
	maxNameLength    = 100
	maxTitleLength   = 200
	maxContentLength = 50000
	maxCommentLength = 5000
)

func validateEmail(email string) error {
	if email == "" {
		return apierror.BadRequest("email is required", "")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return apierror.BadRequest("invalid email address", email)
	}
	return nil
}

func validatePassword(password string) error {
	if password == "" {
		return apierror.BadRequest("password is required", "")
	}
	// bcrypt only reads the first 72 bytes
	if len(password) > maxPasswordBytes {
		return apierror.BadRequest("password is too long", "")
	}
	return nil
}

func validateName(name string) error {
	if utf8.RuneCountInString(name) > maxNameLength {
		return apierror.BadRequest("name is too long", "")
	}
	return nil
}

func validatePost(title string, content string) error {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(content) == "" {
		return apierror.BadRequest("title and content are required", "")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return apierror.BadRequest("title is too long", "")
	}
	if utf8.RuneCountInString(content) > maxContentLength {
		return apierror.BadRequest("content is too long", "")
	}
	return nil
}
