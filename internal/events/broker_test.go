package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/redskie/bamaco/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func receive[T any](t *testing.T, sub *Subscriber[T]) T {
	t.Helper()
	select {
	case v, ok := <-sub.C:
		require.True(t, ok, "subscriber channel closed")
		return v
	case <-time.After(time.Second):
		t.Fatal("no value received")
	}
	var zero T
	return zero
}

func TestFormatSSE(t *testing.T) {
	tests := []struct {
		name     string
		event    string
		data     string
		expected string
	}{
		{"single line data", "change", `{"id":"1"}`, "event: change\ndata: {\"id\":\"1\"}\n\n"},
		{"multi-line data", "change", "a\nb", "event: change\ndata: a\ndata: b\n\n"},
		{"empty data", "ping", "", "event: ping\ndata: \n\n"},
		{"carriage returns", "test", "line1\r\nline2", "event: test\ndata: line1\ndata: line2\n\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(FormatSSE(tt.event, tt.data)))
		})
	}
}

func TestSplitLines(t *testing.T) {
	assert.Equal(t, []string{"hello"}, splitLines("hello"))
	assert.Equal(t, []string{"line1"}, splitLines("line1\n"))
	assert.Equal(t, []string{""}, splitLines(""))
	assert.Equal(t, []string{"line1", "line2"}, splitLines("line1\r\nline2\r\n"))
}

func TestBrokerDeliversToEverySubscriber(t *testing.T) {
	b := NewBroker[string]("test", 4, testutil.NopLogger())
	defer b.Close()

	sub1, unsub1 := b.Subscribe("one")
	defer unsub1()
	sub2, unsub2 := b.Subscribe("two")
	defer unsub2()

	assert.Equal(t, 2, b.SubscriberCount())

	b.Publish("hello")

	assert.Equal(t, "hello", receive(t, sub1))
	assert.Equal(t, "hello", receive(t, sub2))
}

func TestBrokerPreservesOrder(t *testing.T) {
	b := NewBroker[int]("test", 8, testutil.NopLogger())
	defer b.Close()

	sub, unsub := b.Subscribe("ordered")
	defer unsub()

	for i := 1; i <= 5; i++ {
		b.Publish(i)
	}
	for i := 1; i <= 5; i++ {
		assert.Equal(t, i, receive(t, sub))
	}
}

func TestBrokerUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroker[string]("test", 1, testutil.NopLogger())
	defer b.Close()

	sub, unsub := b.Subscribe("leaving")
	unsub()
	unsub()

	_, ok := <-sub.C
	assert.False(t, ok)
	assert.Equal(t, 0, b.SubscriberCount())
}

func TestBrokerDropsWhenSubscriberIsFull(t *testing.T) {
	b := NewBroker[int]("test", 1, testutil.NopLogger())
	defer b.Close()

	slow, unsubSlow := b.Subscribe("slow")
	defer unsubSlow()
	fast, unsubFast := b.Subscribe("fast")
	defer unsubFast()

	b.Publish(1)
	assert.Equal(t, 1, receive(t, fast))
	b.Publish(2)
	assert.Equal(t, 2, receive(t, fast))

	// slow never read; it holds only the first value
	assert.Equal(t, 1, receive(t, slow))
	select {
	case v := <-slow.C:
		t.Fatalf("unexpected value %d", v)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestBrokerCloseDisconnectsSubscribers(t *testing.T) {
	b := NewBroker[string]("test", 1, testutil.NopLogger())

	sub, unsub := b.Subscribe("closing")
	b.Close()
	b.Close()

	_, ok := <-sub.C
	assert.False(t, ok)

	unsub()
	b.Publish("after close")

	late, _ := b.Subscribe("late")
	_, ok = <-late.C
	assert.False(t, ok)
}
