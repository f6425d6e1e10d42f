package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduledPost_HappyPathTransitions(t *testing.T) {
	post := &ScheduledPost{Status: PostStatusPending}

	require.NoError(t, post.MarkProcessing("container-1"))
	assert.Equal(t, PostStatusProcessing, post.Status)
	assert.Equal(t, "container-1", post.ContainerID)

	publishedAt := time.Now()
	require.NoError(t, post.MarkPublished("media-1", publishedAt))
	assert.Equal(t, PostStatusPublished, post.Status)
	assert.Equal(t, "media-1", post.PublishedMediaID)
	assert.Equal(t, publishedAt, post.PublishedAt)
	assert.True(t, post.IsTerminal())
}

func TestScheduledPost_FailureTransitions(t *testing.T) {
	pending := &ScheduledPost{Status: PostStatusPending}
	require.NoError(t, pending.MarkFailed("bad media url"))
	assert.Equal(t, PostStatusFailed, pending.Status)
	assert.Equal(t, "bad media url", pending.ErrorMessage)

	processing := &ScheduledPost{Status: PostStatusProcessing}
	require.NoError(t, processing.MarkFailed("container expired"))
	assert.Equal(t, PostStatusFailed, processing.Status)
}

func TestScheduledPost_CancelOnlyBeforeProcessing(t *testing.T) {
	pending := &ScheduledPost{Status: PostStatusPending}
	require.NoError(t, pending.Cancel())
	assert.Equal(t, PostStatusCancelled, pending.Status)

	draft := &ScheduledPost{Status: PostStatusDraft}
	require.NoError(t, draft.Cancel())

	processing := &ScheduledPost{Status: PostStatusProcessing}
	assert.ErrorIs(t, processing.Cancel(), ErrInvalidTransition)

	published := &ScheduledPost{Status: PostStatusPublished}
	assert.ErrorIs(t, published.Cancel(), ErrInvalidTransition)
}

func TestScheduledPost_TerminalStatesAreFrozen(t *testing.T) {
	for _, status := range []string{PostStatusPublished, PostStatusFailed, PostStatusCancelled} {
		post := &ScheduledPost{Status: status}
		assert.True(t, post.IsTerminal(), status)
		assert.ErrorIs(t, post.MarkProcessing("c"), ErrInvalidTransition, status)
		assert.ErrorIs(t, post.MarkPublished("m", time.Now()), ErrInvalidTransition, status)
	}

	// A failed post stays failed; it cannot fail "again" from terminal.
	failed := &ScheduledPost{Status: PostStatusCancelled}
	assert.ErrorIs(t, failed.MarkFailed("x"), ErrInvalidTransition)
}

func TestScheduledPost_PublishRequiresProcessing(t *testing.T) {
	post := &ScheduledPost{Status: PostStatusPending}
	assert.ErrorIs(t, post.MarkPublished("media-1", time.Now()), ErrInvalidTransition)
}

func TestConnectedAccount_Usability(t *testing.T) {
	now := time.Now()

	usable := &ConnectedAccount{IsActive: true, TokenExpiresAt: now.Add(time.Hour)}
	assert.True(t, usable.IsUsable(now))

	inactive := &ConnectedAccount{IsActive: false, TokenExpiresAt: now.Add(time.Hour)}
	assert.False(t, inactive.IsUsable(now))

	expired := &ConnectedAccount{IsActive: true, TokenExpiresAt: now.Add(-time.Minute)}
	assert.False(t, expired.IsUsable(now))
	assert.True(t, expired.TokenExpired(now))
}

func TestConnectedAccount_RotateTokenReplaces(t *testing.T) {
	account := &ConnectedAccount{AccessToken: "old", TokenExpiresAt: time.Now()}

	expiry := time.Now().Add(60 * 24 * time.Hour)
	account.RotateToken("new", expiry)

	assert.Equal(t, "new", account.AccessToken)
	assert.Equal(t, expiry, account.TokenExpiresAt)
}
