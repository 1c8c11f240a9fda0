package chathub_test

import (
	"testing"

	"pairchat/backend/internal/chathub"
	"pairchat/backend/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_RegisterUnregister(t *testing.T) {
	hub := chathub.NewManagerService(zerolog.Nop())

	clientA := newMockClient("A", "s1")
	clientA2 := newMockClient("A", "s2")

	hub.Register(clientA)
	hub.Register(clientA2)
	assert.Equal(t, 2, hub.SessionCount("a"))

	hub.Unregister(clientA)
	assert.Equal(t, 1, hub.SessionCount("A"))
	assert.True(t, clientA.IsClosed())

	// Second unregister is harmless.
	hub.Unregister(clientA)
	assert.Equal(t, 1, hub.SessionCount("A"))

	hub.Unregister(clientA2)
	assert.Equal(t, 0, hub.SessionCount("A"))
}

func TestManager_EmitReachesEverySession(t *testing.T) {
	hub := chathub.NewManagerService(zerolog.Nop())

	clientA := newMockClient("A", "s1")
	clientA2 := newMockClient("A", "s2")
	clientB := newMockClient("B", "s3")
	hub.Register(clientA)
	hub.Register(clientA2)
	hub.Register(clientB)

	hub.Emit("a", models.EventMessageRead, models.StatusPayload{ID: "m1"})

	for _, c := range []*MockClient{clientA, clientA2} {
		got := c.drain()
		require.Len(t, got, 1)
		assert.Equal(t, models.EventMessageRead, got[0].Event)
		assert.Equal(t, models.StatusPayload{ID: "m1"}, got[0].Data)
	}
	assert.Empty(t, clientB.drain())
}

func TestManager_EmitToUnknownCodeIsNoop(t *testing.T) {
	hub := chathub.NewManagerService(zerolog.Nop())
	assert.NotPanics(t, func() {
		hub.Emit("NOBODY", models.EventMessage, nil)
	})
}

func TestManager_SlowClientIsClosed(t *testing.T) {
	hub := chathub.NewManagerService(zerolog.Nop())

	slow := newMockClient("B", "s1")
	hub.Register(slow)

	for i := 0; i < cap(slow.RecvChannel); i++ {
		hub.Emit("B", models.EventMessage, i)
	}
	assert.False(t, slow.IsClosed())

	hub.Emit("B", models.EventMessage, "overflow")
	assert.True(t, slow.IsClosed())
}

func TestManager_CloseAll(t *testing.T) {
	hub := chathub.NewManagerService(zerolog.Nop())

	clientA := newMockClient("A", "s1")
	clientB := newMockClient("B", "s2")
	hub.Register(clientA)
	hub.Register(clientB)

	hub.CloseAll()
	assert.True(t, clientA.IsClosed())
	assert.True(t, clientB.IsClosed())
}
