package notifications

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeduplicatorSuppressesWithinWindow(t *testing.T) {
	d := NewDeduplicator(100 * time.Millisecond)
	key := DedupeKey(1, "chat_message", "c42")

	assert.True(t, d.Accept(key), "first request must be accepted")
	assert.False(t, d.Accept(key), "identical request inside the window must be suppressed")
	assert.False(t, d.Accept(key))
}

func TestDeduplicatorAcceptsAfterWindow(t *testing.T) {
	d := NewDeduplicator(50 * time.Millisecond)
	key := DedupeKey(1, "chat_message", "c42")

	require.True(t, d.Accept(key))
	time.Sleep(80 * time.Millisecond)
	assert.True(t, d.Accept(key), "request after the window must be accepted again")
}

func TestDeduplicatorDistinctKeysIndependent(t *testing.T) {
	d := NewDeduplicator(time.Second)

	assert.True(t, d.Accept(DedupeKey(1, "chat_message", "c1")))
	assert.True(t, d.Accept(DedupeKey(1, "chat_message", "c2")), "different conversation is a different event")
	assert.True(t, d.Accept(DedupeKey(2, "chat_message", "c1")), "different recipient is a different event")
	assert.True(t, d.Accept(DedupeKey(1, "question_answered", "c1")), "different kind is a different event")
}

func TestDeduplicatorEntriesExpire(t *testing.T) {
	d := NewDeduplicator(30 * time.Millisecond)

	require.True(t, d.Accept("a"))
	require.True(t, d.Accept("b"))
	assert.Equal(t, 2, d.Len())

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, d.Len(), "records must self-expire, not accumulate")
}

func TestDeduplicatorDefaultsWindow(t *testing.T) {
	d := NewDeduplicator(0)
	assert.Equal(t, DefaultGuardWindow, d.Window())
}

func TestDedupeKeyStable(t *testing.T) {
	assert.Equal(t, DedupeKey(7, "chat_message", "c42"), DedupeKey(7, "chat_message", "c42"))
	assert.NotEqual(t, DedupeKey(7, "chat_message", "c42"), DedupeKey(7, "chat_message", "c43"))
}

func TestMessageKeyBoundsLongText(t *testing.T) {
	long := make([]rune, 500)
	for i := range long {
		long[i] = 'a'
	}
	k1 := MessageKey("c1", string(long))
	k2 := MessageKey("c1", string(long)+"tail")

	assert.LessOrEqual(t, len(k1), len("msg|c1|")+maxKeyTextLen*4)
	assert.Equal(t, k1, k2, "texts sharing the bounded prefix map to the same key")
	assert.NotEqual(t, MessageKey("c1", "hello"), MessageKey("c2", "hello"))
}
