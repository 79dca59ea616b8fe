package camera

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMailbox_PublishThenTake(t *testing.T) {
	m := NewMailbox()
	m.Publish([]byte("frame-1"))

	got, ok := m.Take(nil)
	assert.True(t, ok)
	assert.Equal(t, []byte("frame-1"), got)
}

func TestMailbox_ReplacesUnreadFrameUnderBackpressure(t *testing.T) {
	m := NewMailbox()
	m.Publish([]byte("frame-1"))
	m.Publish([]byte("frame-2"))

	got, ok := m.Take(nil)
	assert.True(t, ok)
	assert.Equal(t, []byte("frame-2"), got, "a newer frame should replace an unread older one")
	assert.Equal(t, uint64(1), m.Dropped())
}

func TestMailbox_TakeReturnsFalseWhenDone(t *testing.T) {
	m := NewMailbox()
	done := make(chan struct{})
	close(done)

	_, ok := m.Take(done)
	assert.False(t, ok)
}
