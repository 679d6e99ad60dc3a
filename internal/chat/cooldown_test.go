package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGateAllowsFirstSend(t *testing.T) {
	g := NewGate(2500*time.Millisecond, nil)
	assert.True(t, g.Allow())
}

func TestGateDeniesWithinInterval(t *testing.T) {
	now := time.Unix(1000, 0)
	g := NewGate(2500*time.Millisecond, func() time.Time { return now })

	assert.True(t, g.Allow())

	now = now.Add(2400 * time.Millisecond)
	assert.False(t, g.Allow())

	now = now.Add(200 * time.Millisecond)
	assert.True(t, g.Allow())
}

func TestGateDenialDoesNotMoveWindow(t *testing.T) {
	now := time.Unix(1000, 0)
	g := NewGate(2500*time.Millisecond, func() time.Time { return now })

	assert.True(t, g.Allow())

	// Spam denials right up to the edge of the window; none may extend it.
	for i := 0; i < 10; i++ {
		now = now.Add(200 * time.Millisecond)
		assert.False(t, g.Allow())
	}

	now = now.Add(600 * time.Millisecond)
	assert.True(t, g.Allow())
}

func TestSanitizeText(t *testing.T) {
	assert.Equal(t, "&lt;script&gt;alert(1)&lt;/script&gt;", SanitizeText("<script>alert(1)</script>"))
	assert.Equal(t, "sin cambios", SanitizeText("sin cambios"))
	assert.Equal(t, "", SanitizeText(""))
}

func TestSanitizeTextIdempotentOnCleanInput(t *testing.T) {
	clean := SanitizeText("a < b > c")
	assert.Equal(t, "a &lt; b &gt; c", clean)
	// Already-escaped entities contain no angle brackets, so a second pass on
	// fresh provider output never double-escapes prior fragments.
	assert.NotContains(t, clean, "<")
	assert.NotContains(t, clean, ">")
}
