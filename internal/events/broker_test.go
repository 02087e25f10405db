package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dermaCareAi/internal/storage"
)

func TestBrokerFanOut(t *testing.T) {
	broker := NewBroker()
	a := broker.Subscribe()
	b := broker.Subscribe()
	defer broker.Unsubscribe(b)

	broker.Publish(Event{AnalysisID: "x", Status: storage.Status{Analysis: "done"}})

	evt := <-a
	assert.Equal(t, "x", evt.AnalysisID)
	evt = <-b
	assert.Equal(t, "done", evt.Status.Analysis)

	broker.Unsubscribe(a)
	_, open := <-a
	assert.False(t, open)
}

func TestBrokerDropsWhenSubscriberIsSlow(t *testing.T) {
	broker := NewBroker()
	ch := broker.Subscribe()
	defer broker.Unsubscribe(ch)

	// Channel capacity is 8; extra publishes must not block.
	for i := 0; i < 20; i++ {
		broker.Publish(Event{AnalysisID: "x"})
	}

	count := 0
	for {
		select {
		case <-ch:
			count++
			continue
		default:
		}
		break
	}
	require.Equal(t, 8, count)
}
