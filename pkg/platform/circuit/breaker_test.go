package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreaker_NewIsClosed(t *testing.T) {
	b := New("redis-credential-cache")
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, "redis-credential-cache", b.Name())
	assert.True(t, b.Allow())
}

// Each step is "f" for RecordFailure or "s" for RecordSuccess; open is the
// expected state after the last step.
func TestBreaker_Transitions(t *testing.T) {
	tests := []struct {
		name      string
		failures  int
		successes int
		steps     string
		open      bool
	}{
		{"below failure threshold", 3, 2, "ff", false},
		{"opens at failure threshold", 3, 2, "fff", true},
		{"success resets failure streak", 3, 2, "ffsff", false},
		{"success after reset streak opens again", 3, 2, "ffsfff", true},
		{"one success is not enough to close", 1, 2, "fs", true},
		{"closes at success threshold", 1, 2, "fss", false},
		{"failure while open restarts success streak", 1, 3, "fssfss", true},
		{"closes after a full success streak", 1, 3, "fssfsss", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New("cache", WithFailureThreshold(tt.failures), WithSuccessThreshold(tt.successes))
			for _, step := range tt.steps {
				if step == 'f' {
					b.RecordFailure()
				} else {
					b.RecordSuccess()
				}
			}
			assert.Equal(t, tt.open, b.IsOpen())
		})
	}
}

func TestBreaker_ReportsStateChangesOnce(t *testing.T) {
	b := New("cache", WithFailureThreshold(1), WithSuccessThreshold(1))

	useFallback, change := b.RecordFailure()
	assert.True(t, useFallback)
	assert.True(t, change.Opened)

	useFallback, change = b.RecordFailure()
	assert.True(t, useFallback, "still open")
	assert.False(t, change.Opened, "already open")

	usePrimary, change := b.RecordSuccess()
	assert.True(t, usePrimary)
	assert.True(t, change.Closed)

	usePrimary, change = b.RecordSuccess()
	assert.True(t, usePrimary)
	assert.False(t, change.Closed, "already closed")
}

func TestBreaker_Reset(t *testing.T) {
	b := New("cache", WithFailureThreshold(1))
	b.RecordFailure()
	b.Reset()
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())
}

func TestBreaker_AllowProbesAfterCooldown(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	b := New("cache", WithFailureThreshold(1), WithCooldown(time.Second))
	b.now = func() time.Time { return now }

	assert.True(t, b.Allow())
	b.RecordFailure()
	assert.False(t, b.Allow())

	now = now.Add(time.Second)
	assert.True(t, b.Allow(), "one probe after the cooldown")
	assert.False(t, b.Allow(), "no second probe within the same cooldown")
}
