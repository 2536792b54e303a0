// Package model defines the data structures used throughout the application.
package model

import "time"

// User is the local account behind an authenticated identity. Accounts are
// created lazily the first time an identity is seen.
//
// ID is the identity subject ("gh_<github id>"), so every record the user
// owns can be keyed by it without a lookup.
type User struct {
	ID        string    `json:"id"`
	GitHubID  int64     `json:"github_id"`
	Login     string    `json:"nickname"`
	Email     string    `json:"email"`      // may be empty when hidden on GitHub
	AvatarURL string    `json:"avatar_url"`
	SuperUser bool      `json:"super_user"` // skips the credit check
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Identity is what the session token asserts about the caller.
type Identity struct {
	Subject   string
	GitHubID  int64
	Login     string
	Email     string
	AvatarURL string
}

// UserInfo is the profile view returned to the client.
type UserInfo struct {
	User
	Credits Credits `json:"credits"`
}
