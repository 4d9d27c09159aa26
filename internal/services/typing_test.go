package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestTracker(idle time.Duration) *TypingTracker {
	t := NewTypingTracker("alice_bob", "alice")
	t.idle = idle
	return t
}

func TestTypingKeystrokeActivates(t *testing.T) {
	tr := newTestTracker(50 * time.Millisecond)
	defer tr.Stop(context.Background())

	assert.False(t, tr.Active())
	tr.Keystroke(context.Background())
	assert.True(t, tr.Active())
}

func TestTypingExpiresAfterIdle(t *testing.T) {
	tr := newTestTracker(30 * time.Millisecond)

	tr.Keystroke(context.Background())
	assert.True(t, tr.Active())

	assert.Eventually(t, func() bool { return !tr.Active() },
		500*time.Millisecond, 10*time.Millisecond)
}

func TestTypingKeystrokeRestartsTimer(t *testing.T) {
	tr := newTestTracker(60 * time.Millisecond)
	defer tr.Stop(context.Background())

	tr.Keystroke(context.Background())
	for i := 0; i < 3; i++ {
		time.Sleep(30 * time.Millisecond)
		tr.Keystroke(context.Background())
		assert.True(t, tr.Active())
	}

	assert.Eventually(t, func() bool { return !tr.Active() },
		500*time.Millisecond, 10*time.Millisecond)
}

func TestTypingStopClearsImmediately(t *testing.T) {
	tr := newTestTracker(time.Hour)

	tr.Keystroke(context.Background())
	assert.True(t, tr.Active())

	tr.Stop(context.Background())
	assert.False(t, tr.Active())

	// Repeat stops are harmless.
	tr.Stop(context.Background())
	assert.False(t, tr.Active())
}

func TestTypingStopBeforeStart(t *testing.T) {
	tr := newTestTracker(time.Hour)
	tr.Stop(context.Background())
	assert.False(t, tr.Active())
}
