package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFailureExplainsError(t *testing.T) {
	n := Failure("Error creating posts", errors.New("dial tcp: connection refused"))
	assert.Equal(t, KindError, n.Kind)
	assert.Equal(t, "DB004", n.Code)
	assert.Equal(t, "Unable to connect to database. Please try again in a few moments", n.Body)
	assert.NotEmpty(t, n.ID)
}

func TestNotificationExpiry(t *testing.T) {
	n := Success("Saved", "")
	assert.False(t, n.Expired(n.CreatedAt.Add(time.Second)))
	assert.True(t, n.Expired(n.CreatedAt.Add(DefaultNotificationTTL+time.Millisecond)))

	link := ActionNotice("Import queued", "Job 42", "Open dashboard", "/jobs/42")
	assert.False(t, link.Expired(link.CreatedAt.Add(time.Hour)), "action notices stay until dismissed")
	assert.Equal(t, KindAction, link.Kind)
}

func TestInbox(t *testing.T) {
	Notify(context.Background(), Info("dropped", "")) // no inbox attached

	inbox := NewInbox()
	ctx := WithInbox(context.Background(), inbox)
	Notify(ctx, Info("one", ""))
	Notify(ctx, Info("two", ""))

	got := inbox.Drain()
	assert.Len(t, got, 2)
	assert.Equal(t, "one", got[0].Title)
	assert.Empty(t, inbox.Drain())

	var nilInbox *Inbox
	assert.Nil(t, nilInbox.Drain())
}
