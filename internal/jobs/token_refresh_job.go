package job

import (
	"context"
	"log/slog"

	"github.com/agencykit/instaflow/internal/service"
)

type TokenRefreshJob struct {
	ts            service.TokenService
	daysThreshold int
}

func NewTokenRefreshJob(ts service.TokenService, daysThreshold int) *TokenRefreshJob {
	if daysThreshold <= 0 {
		daysThreshold = 7
	}
	return &TokenRefreshJob{ts: ts, daysThreshold: daysThreshold}
}

// RefreshTokens refreshes every token expiring within the threshold window.
// Failures are logged per account; the sweep itself never aborts.
func (c *TokenRefreshJob) RefreshTokens() {
	ctx := context.Background()

	result, err := c.ts.RefreshExpiringTokens(ctx, c.daysThreshold)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	for _, failure := range result.Errors {
		slog.Info("unable to refresh token", "account_id", failure.AccountID, "error", failure.Error)
	}

	if result.Refreshed > 0 || result.Failed > 0 {
		slog.Info("token refresh sweep finished", "refreshed", result.Refreshed, "failed", result.Failed)
	}
}
