package models

import "time"

type ConnectedAccount struct {
	ID                int64     `db:"id" json:"id"`
	UserID            int64     `db:"user_id" json:"user_id"`
	OrganizationID    int64     `db:"organization_id" json:"organization_id"`
	IGAccountID       string    `db:"ig_account_id" json:"ig_account_id"`
	Username          string    `db:"username" json:"username"`
	ProfilePictureURL string    `db:"profile_picture_url" json:"profile_picture_url"`
	FollowersCount    int64     `db:"followers_count" json:"followers_count"`
	AccountType       string    `db:"account_type" json:"account_type"`
	PageID            string    `db:"page_id" json:"page_id"`
	PageName          string    `db:"page_name" json:"page_name"`
	AccessToken       string    `db:"access_token" json:"-"`
	TokenExpiresAt    time.Time `db:"token_expires_at" json:"token_expires_at"`
	IsActive          bool      `db:"is_active" json:"is_active"`
	ConnectedAt       time.Time `db:"connected_at" json:"connected_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

const (
	AccountTypeBusiness = "BUSINESS"
	AccountTypeCreator  = "CREATOR"
)

// IsUsable reports whether the account may be selected for publishing.
func (a *ConnectedAccount) IsUsable(now time.Time) bool {
	return a.IsActive && a.TokenExpiresAt.After(now)
}

func (a *ConnectedAccount) TokenExpired(now time.Time) bool {
	return !a.TokenExpiresAt.After(now)
}

// RotateToken replaces the stored (encrypted) token. Rotation always
// replaces the previous value, never appends.
func (a *ConnectedAccount) RotateToken(encryptedToken string, expiresAt time.Time) {
	a.AccessToken = encryptedToken
	a.TokenExpiresAt = expiresAt
	a.UpdatedAt = time.Now()
}

// Deactivate soft-disconnects the account. Rows are never hard-deleted so
// publish history stays attributable.
func (a *ConnectedAccount) Deactivate() {
	a.IsActive = false
	a.UpdatedAt = time.Now()
}
