package cqrs

import "time"

// ListUsersQuery fetches every user. There is no pagination.
type ListUsersQuery struct{}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token  string
	UserID string
}

// TokenIdentity is the subject recovered from a verified token.
type TokenIdentity struct {
	UserID    string
	Username  string
	ExpiresAt time.Time
}
