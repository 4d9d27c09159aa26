package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lumina-chat/lumina-backend/internal/models"
)

func newTestLimiter(start time.Time) (*SigninLimiter, *time.Time) {
	now := start
	l := NewSigninLimiter()
	l.now = func() time.Time { return now }
	return l, &now
}

func TestLockoutTriggersAfterThreeFailures(t *testing.T) {
	l, _ := newTestLimiter(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	assert.Zero(t, l.Failure("alice"))
	assert.Zero(t, l.Failure("alice"))

	_, err := l.Check("alice")
	assert.NoError(t, err)

	cooldown := l.Failure("alice")
	assert.Equal(t, 30*time.Second, cooldown)

	remaining, err := l.Check("alice")
	assert.ErrorIs(t, err, models.ErrRateLimited)
	assert.Equal(t, 30*time.Second, remaining)
}

func TestLockoutExpires(t *testing.T) {
	l, now := newTestLimiter(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	for i := 0; i < 3; i++ {
		l.Failure("alice")
	}
	_, err := l.Check("alice")
	assert.ErrorIs(t, err, models.ErrRateLimited)

	*now = now.Add(31 * time.Second)
	_, err = l.Check("alice")
	assert.NoError(t, err)
}

func TestLockoutCooldownDoubles(t *testing.T) {
	l, now := newTestLimiter(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	want := []time.Duration{
		30 * time.Second,
		time.Minute,
		2 * time.Minute,
	}
	for _, expected := range want {
		var cooldown time.Duration
		for i := 0; i < 3; i++ {
			cooldown = l.Failure("alice")
		}
		assert.Equal(t, expected, cooldown)
		*now = now.Add(cooldown + time.Second)
	}
}

func TestLockoutCooldownCapped(t *testing.T) {
	l, now := newTestLimiter(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	var cooldown time.Duration
	for round := 0; round < 10; round++ {
		for i := 0; i < 3; i++ {
			cooldown = l.Failure("alice")
		}
		*now = now.Add(cooldown + time.Second)
	}
	assert.Equal(t, 15*time.Minute, cooldown)
}

func TestLockoutSuccessResets(t *testing.T) {
	l, _ := newTestLimiter(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	l.Failure("alice")
	l.Failure("alice")
	l.Success("alice")

	// Two fresh failures do not reach the threshold.
	assert.Zero(t, l.Failure("alice"))
	assert.Zero(t, l.Failure("alice"))
	_, err := l.Check("alice")
	assert.NoError(t, err)
}

func TestLockoutKeysIndependent(t *testing.T) {
	l, _ := newTestLimiter(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	for i := 0; i < 3; i++ {
		l.Failure("alice")
	}
	_, err := l.Check("alice")
	assert.ErrorIs(t, err, models.ErrRateLimited)

	_, err = l.Check("bob")
	assert.NoError(t, err)
}
