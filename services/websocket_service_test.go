package services

import (
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebSocketManagerConnections(t *testing.T) {
	wsm := &WebSocketManager{
		clients: map[string]*websocket.Conn{
			"user-a": nil,
			"user-b": nil,
		},
	}

	t.Run("reports connected users", func(t *testing.T) {
		assert.Equal(t, 2, wsm.GetConnectionCount())
		assert.ElementsMatch(t, []string{"user-a", "user-b"}, wsm.GetConnectedUsers())
	})

	t.Run("send to disconnected user fails without panic", func(t *testing.T) {
		err := wsm.SendToUser("nobody", &WebSocketMessage{
			Type:    EventInvitationAccepted,
			Title:   "Invitation accepted",
			Message: "A member joined",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not connected")
	})

	t.Run("notify swallows missing connections", func(t *testing.T) {
		wsm.NotifyUser("nobody", EventInvitationAccepted, "Invitation accepted", "A member joined", nil)
		assert.Equal(t, 2, wsm.GetConnectionCount())
	})
}
