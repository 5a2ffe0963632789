package dedup

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrackerAcceptsOnce(t *testing.T) {
	tr := NewTracker(0)
	text := "Shipping the new release to everyone today"

	assert.False(t, tr.Seen(text))
	assert.True(t, tr.Accept(text))
	assert.False(t, tr.Accept(text))
	assert.False(t, tr.Accept("  Shipping the new release\nto everyone today "))
	assert.True(t, tr.Seen(text))
	assert.Equal(t, 1, tr.Len())
}

func TestTrackerRejectsShortText(t *testing.T) {
	tr := NewTracker(20)

	assert.False(t, tr.Accept("Show more"))
	assert.False(t, tr.Accept(strings.Repeat("a", 19)))
	assert.True(t, tr.Accept(strings.Repeat("a", 20)))

	tr.Record("tiny")
	assert.False(t, tr.Seen("tiny"))
	assert.Equal(t, 1, tr.Len())
}

func TestTrackerCountsRunesNotBytes(t *testing.T) {
	tr := NewTracker(20)
	// 10 runes, 30 bytes
	assert.False(t, tr.Eligible(strings.Repeat("日", 10)))
	assert.True(t, tr.Eligible(strings.Repeat("日", 20)))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "Hello World", Normalize("  Hello \n\t World "))
	assert.Equal(t, "", Normalize("   "))
}

func TestTrackerKeepsCaseVariants(t *testing.T) {
	tr := NewTracker(0)

	assert.True(t, tr.Accept("Big news about the launch today"))
	assert.True(t, tr.Accept("BIG NEWS about the launch today"))
	assert.False(t, tr.Accept("Big news  about the launch today"))
	assert.Equal(t, 2, tr.Len())
}
