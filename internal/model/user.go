package model

import "time"

// User is an account created on first GitHub login. GitHubID is the stable
// external key (UNIQUE in storage); ID is our own xid so snippet ownership
// never depends on the provider's numbering.
type User struct {
	ID        string    `json:"id"`
	GitHubID  int64     `json:"githubId"`
	Login     string    `json:"login"`
	Email     string    `json:"email"` // empty when hidden on GitHub
	AvatarURL string    `json:"avatarUrl"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
