package transfer

import "github.com/golang-jwt/jwt/v5"

type CustomClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

type ConnectedAccountSummary struct {
	ID          int64  `json:"id"`
	IGAccountID string `json:"ig_account_id"`
	Username    string `json:"username"`
	PageName    string `json:"page_name"`
}

type OAuthCallbackResult struct {
	AccountsConnected int                       `json:"accounts_connected"`
	Accounts          []ConnectedAccountSummary `json:"accounts"`
	RedirectURL       string                    `json:"redirect_url"`
}

type RefreshFailure struct {
	AccountID int64  `json:"account_id"`
	Error     string `json:"error"`
}

type BulkRefreshResult struct {
	Refreshed int              `json:"refreshed"`
	Failed    int              `json:"failed"`
	Errors    []RefreshFailure `json:"errors,omitempty"`
}
