package realtime

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yocodex/backend/internal/logger"
)

func TestMain(m *testing.M) {
	// Initialize logger for tests
	_ = logger.Initialize("error", "/tmp/yocodex-realtime-test.log")
	os.Exit(m.Run())
}

func TestNewHub(t *testing.T) {
	hub := NewHub()
	assert.NotNil(t, hub)
	assert.NotNil(t, hub.clients)
	assert.NotNil(t, hub.register)
	assert.NotNil(t, hub.unregister)
	assert.NotNil(t, hub.unicast)
	assert.NotNil(t, hub.metrics)
}

func TestRateLimiter(t *testing.T) {
	// 5 per second with burst of 10
	rl := newRateLimiter(5, 10)

	for i := 0; i < 10; i++ {
		assert.True(t, rl.allow(), "Request %d should be allowed", i+1)
	}

	assert.False(t, rl.allow(), "Request 11 should be denied")

	time.Sleep(300 * time.Millisecond)
	assert.True(t, rl.allow(), "Request after wait should be allowed")
}

func TestNewMessage(t *testing.T) {
	payload := map[string]string{"test": "data"}
	msg := NewMessage(MessageTypeNotification, payload)

	assert.Equal(t, MessageTypeNotification, msg.Type)
	assert.NotNil(t, msg.Payload)
	assert.False(t, msg.Timestamp.IsZero())
}

func TestNewErrorMessage(t *testing.T) {
	msg := NewErrorMessage("rate_limited", "slow down")
	assert.Equal(t, MessageTypeError, msg.Type)

	var payload ErrorPayload
	require.NoError(t, msg.ParsePayload(&payload))
	assert.Equal(t, "rate_limited", payload.Code)
	assert.Equal(t, "slow down", payload.Message)
}

func TestEmitToUserDeliversToAllConnections(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Shutdown(context.Background())

	// Same user on two devices
	c1 := NewClient(hub, nil, "user-1", "alice")
	c2 := NewClient(hub, nil, "user-1", "alice")
	hub.Register(c1)
	hub.Register(c2)

	require.Eventually(t, func() bool {
		return hub.UserConnectionCount("user-1") == 2
	}, time.Second, 10*time.Millisecond)

	hub.EmitToUser("user-1", MessageTypeNotification, map[string]string{"id": "n-1"})

	for _, c := range []*Client{c1, c2} {
		select {
		case raw := <-c.send:
			var msg Message
			require.NoError(t, json.Unmarshal(raw, &msg))
			assert.Equal(t, MessageTypeNotification, msg.Type)
		case <-time.After(time.Second):
			t.Fatal("client did not receive the message")
		}
	}
}

func TestEmitToUserOfflineIsNoop(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Shutdown(context.Background())

	// Nothing to assert beyond "does not block or panic"
	hub.EmitToUser("ghost", MessageTypeNotification, map[string]string{"id": "n-1"})
	assert.False(t, hub.IsUserOnline("ghost"))
}

func TestUnregisterRemovesClient(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Shutdown(context.Background())

	c := NewClient(hub, nil, "user-1", "alice")
	hub.Register(c)

	require.Eventually(t, func() bool {
		return hub.IsUserOnline("user-1")
	}, time.Second, 10*time.Millisecond)

	hub.Unregister(c)

	require.Eventually(t, func() bool {
		return !hub.IsUserOnline("user-1")
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, hub.UserConnectionCount("user-1"))
}

func TestHubMetrics(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Shutdown(context.Background())

	c := NewClient(hub, nil, "user-1", "alice")
	hub.Register(c)

	require.Eventually(t, func() bool {
		return hub.GetMetrics().ActiveConnections == 1
	}, time.Second, 10*time.Millisecond)

	hub.EmitToUser("user-1", MessageTypeNotification, nil)

	require.Eventually(t, func() bool {
		return hub.GetMetrics().MessagesSent == 1
	}, time.Second, 10*time.Millisecond)

	snapshot := hub.GetMetrics()
	assert.EqualValues(t, 1, snapshot.TotalConnections)
}
