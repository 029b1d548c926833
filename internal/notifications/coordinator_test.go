package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordinatorCrossSessionSuppression(t *testing.T) {
	bus := NewInMemoryBus()
	tabA := NewCoordinator(bus, 500*time.Millisecond)
	defer tabA.Close()
	tabB := NewCoordinator(bus, 500*time.Millisecond)
	defer tabB.Close()

	require.True(t, tabA.CanSend("c1", "hello"), "first session claims the event")
	assert.False(t, tabB.CanSend("c1", "hello"), "sibling session must observe the claim")
	assert.False(t, tabA.CanSend("c1", "hello"), "claiming session must not re-claim either")
}

func TestCoordinatorDistinctEventsIndependent(t *testing.T) {
	bus := NewInMemoryBus()
	tabA := NewCoordinator(bus, 500*time.Millisecond)
	defer tabA.Close()
	tabB := NewCoordinator(bus, 500*time.Millisecond)
	defer tabB.Close()

	require.True(t, tabA.CanSend("c1", "hello"))
	assert.True(t, tabB.CanSend("c2", "hello"), "different conversation is a different event")
	assert.True(t, tabA.CanSend("c1", "goodbye"), "different text is a different event")
}

func TestCoordinatorClaimExpires(t *testing.T) {
	bus := NewInMemoryBus()
	tabA := NewCoordinator(bus, 40*time.Millisecond)
	defer tabA.Close()
	tabB := NewCoordinator(bus, 40*time.Millisecond)
	defer tabB.Close()

	require.True(t, tabA.CanSend("c1", "hello"))
	time.Sleep(120 * time.Millisecond)
	assert.True(t, tabB.CanSend("c1", "hello"), "claims must expire after the guard window")
}

func TestCoordinatorDegradesWithoutBus(t *testing.T) {
	c := NewCoordinator(nil, time.Second)
	defer c.Close()

	// without a broadcast primitive the coordinator must always allow
	assert.True(t, c.CanSend("c1", "hello"))
	assert.True(t, c.CanSend("c1", "hello"))
}

func TestCoordinatorNopBusAllowsLocalClaimOnly(t *testing.T) {
	c := NewCoordinator(NopBus{}, time.Second)
	defer c.Close()

	assert.True(t, c.CanSend("c1", "hello"))
	assert.False(t, c.CanSend("c1", "hello"), "local recent map still applies with a no-op transport")
}

func TestCoordinatorUnsubscribedTabStopsObserving(t *testing.T) {
	bus := NewInMemoryBus()
	tabA := NewCoordinator(bus, 500*time.Millisecond)
	defer tabA.Close()
	tabB := NewCoordinator(bus, 500*time.Millisecond)
	tabB.Close()

	require.True(t, tabA.CanSend("c1", "hello"))
	assert.True(t, tabB.CanSend("c1", "hello"), "closed coordinator no longer hears claims")
}

func TestInMemoryBusFanOut(t *testing.T) {
	bus := NewInMemoryBus()

	var got []Event
	unsub := bus.Subscribe(func(ev Event) { got = append(got, ev) })
	defer unsub()

	ev := Event{Type: EventNotificationSent, Key: "k1", Timestamp: time.Now().UnixMilli()}
	require.NoError(t, bus.Publish(context.Background(), ev))
	require.Len(t, got, 1)
	assert.Equal(t, ev, got[0])

	unsub()
	require.NoError(t, bus.Publish(context.Background(), ev))
	assert.Len(t, got, 1, "unsubscribed handler must not fire")
}
