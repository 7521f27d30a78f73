// Package model defines the records the playground persists.
package model

import "time"

// Snippet is a saved piece of JavaScript: a note with a title, an optional
// description and the source text. Mode records how the playground should run
// it by default ("units" or "script").
//
// UserID is empty for snippets saved while authentication is disabled; such
// snippets can be edited by anyone.
type Snippet struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Code        string    `json:"code"`
	Mode        string    `json:"mode"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// OwnedBy reports whether userID may modify the snippet.
func (s *Snippet) OwnedBy(userID string) bool {
	return s.UserID == "" || s.UserID == userID
}
