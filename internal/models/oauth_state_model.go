package models

import "time"

// OAuthState is a single-use CSRF token for one in-flight OAuth handshake.
// It is consumed on callback and deleted on error so a retry can start clean.
type OAuthState struct {
	ID             int64     `db:"id" json:"id"`
	State          string    `db:"state" json:"state"`
	UserID         int64     `db:"user_id" json:"user_id"`
	OrganizationID int64     `db:"organization_id" json:"organization_id"`
	RedirectURL    string    `db:"redirect_url" json:"redirect_url"`
	IsValid        bool      `db:"is_valid" json:"is_valid"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

func (s *OAuthState) MarkUsed() {
	s.IsValid = false
}
