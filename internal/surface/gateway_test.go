package surface

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func startGateway(t *testing.T, c *Canvas) *websocket.Conn {
	t.Helper()

	e := echo.New()
	g := NewGateway(c, zap.NewNop())
	e.GET("/ws", g.Handle)
	server := httptest.NewServer(e)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func TestGateway_SnapshotOnConnect(t *testing.T) {
	c := NewCanvas(zap.NewNop())
	require.NoError(t, c.Add(newShape("s1")))

	conn := startGateway(t, c)

	var hello Message
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, MsgTypeConnected, hello.Type)
	require.Len(t, hello.Objects, 1)
	assert.Equal(t, "s1", hello.Objects[0].ID)
	assert.Equal(t, 3.0, hello.Objects[0].Geometry.Width)
	require.NotNil(t, hello.Objects[0].Rx)
	assert.Equal(t, 5.0, *hello.Objects[0].Rx)
}

func TestGateway_AppliesInteraction(t *testing.T) {
	c := NewCanvas(zap.NewNop())
	s := newShape("s1")
	require.NoError(t, c.Add(s))
	c.Drain()

	conn := startGateway(t, c)
	var hello Message
	require.NoError(t, conn.ReadJSON(&hello))

	g := Geometry{Left: 100, Top: 50, Width: 20, Height: 10}
	require.NoError(t, conn.WriteJSON(Message{Type: string(EventModified), ID: "s1", Geometry: &g}))

	var ack Message
	require.NoError(t, conn.ReadJSON(&ack))
	assert.Equal(t, MsgTypeAck, ack.Type)
	assert.Equal(t, "s1", ack.ID)

	assert.Equal(t, g, GeometryOf(s))
	events := c.Drain()
	require.Len(t, events, 1)
	assert.Equal(t, EventModified, events[0].Type)

	require.NoError(t, conn.WriteJSON(Message{Type: string(EventRemoved), ID: "s1"}))
	require.NoError(t, conn.ReadJSON(&ack))
	assert.Equal(t, MsgTypeAck, ack.Type)
	_, ok := c.Get("s1")
	assert.False(t, ok)
}

func TestGateway_RejectsUnknownMessages(t *testing.T) {
	c := NewCanvas(zap.NewNop())
	conn := startGateway(t, c)
	var hello Message
	require.NoError(t, conn.ReadJSON(&hello))

	tests := []struct {
		msg      Message
		contains string
	}{
		{Message{Type: "dragging", ID: "x"}, "unknown message type"},
		{Message{Type: string(EventAdded), ID: "x"}, "added by plugin instances"},
		{Message{Type: string(EventSelected), ID: "missing"}, "not on surface"},
	}
	for _, tt := range tests {
		require.NoError(t, conn.WriteJSON(tt.msg))
		var reply Message
		require.NoError(t, conn.ReadJSON(&reply))
		assert.Equal(t, MsgTypeError, reply.Type)
		assert.Contains(t, reply.Error, tt.contains)
	}

	require.NoError(t, conn.WriteJSON(Message{Type: MsgTypePing}))
	var pong Message
	require.NoError(t, conn.ReadJSON(&pong))
	assert.Equal(t, MsgTypePong, pong.Type)
}
