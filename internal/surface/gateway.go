package surface

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Gateway message types
const (
	// Browser -> server: one of the EventType values, plus
	MsgTypePing = "ping"

	// Server -> browser
	MsgTypeConnected = "connected"
	MsgTypeAck       = "ack"
	MsgTypeError     = "error"
	MsgTypePong      = "pong"
)

// Message is the wire format exchanged with a browser canvas.
type Message struct {
	Type      string                 `json:"type"`
	ID        string                 `json:"id,omitempty"`
	Geometry  *Geometry              `json:"geometry,omitempty"`
	Rx        *float64               `json:"rx,omitempty"`
	Options   map[string]interface{} `json:"options,omitempty"`
	Objects   []ObjectState          `json:"objects,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Timestamp int64                  `json:"timestamp"`
}

// ObjectState is the snapshot of one object sent on connect.
type ObjectState struct {
	ID       string   `json:"id"`
	Geometry Geometry `json:"geometry"`
	Rx       *float64 `json:"rx,omitempty"`
}

// Gateway relays interaction from a remote (browser) canvas into a Canvas
// over websocket. Each inbound message becomes the matching Canvas call, so
// notifications reach the bridge through the canvas queue like local ones.
type Gateway struct {
	canvas   *Canvas
	upgrader websocket.Upgrader
	logger   *zap.Logger

	connsMu sync.Mutex
	conns   int
}

// NewGateway creates a gateway bound to canvas.
func NewGateway(canvas *Canvas, logger *zap.Logger) *Gateway {
	return &Gateway{
		canvas: canvas,
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
		},
		logger: logger.Named("gateway"),
	}
}

// Connections returns the number of open browser connections.
func (g *Gateway) Connections() int {
	g.connsMu.Lock()
	defer g.connsMu.Unlock()
	return g.conns
}

// Handle upgrades the request and serves one browser connection until it
// closes.
func (g *Gateway) Handle(c echo.Context) error {
	ws, err := g.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	g.trackConn(1)
	defer g.trackConn(-1)

	g.logger.Info("Canvas connected", zap.String("remote_addr", c.Request().RemoteAddr))

	if err := g.send(ws, Message{Type: MsgTypeConnected, Objects: g.snapshot()}); err != nil {
		return nil
	}

	for {
		var msg Message
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				g.logger.Warn("Canvas connection error", zap.Error(err))
			}
			break
		}

		if msg.Type == MsgTypePing {
			g.send(ws, Message{Type: MsgTypePong})
			continue
		}

		if err := g.apply(msg); err != nil {
			g.logger.Debug("Rejected canvas message",
				zap.String("type", msg.Type),
				zap.String("id", msg.ID),
				zap.Error(err))
			g.send(ws, Message{Type: MsgTypeError, ID: msg.ID, Error: err.Error()})
			continue
		}
		g.send(ws, Message{Type: MsgTypeAck, ID: msg.ID})
	}

	g.logger.Info("Canvas disconnected")
	return nil
}

// apply maps a browser message onto the canvas.
func (g *Gateway) apply(msg Message) error {
	t := EventType(msg.Type)
	switch t {
	case EventSelected:
		return g.canvas.Select(msg.ID, msg.Options)
	case EventDeselected:
		g.canvas.Deselect(msg.Options)
		return nil
	case EventRemoved:
		obj, ok := g.canvas.Get(msg.ID)
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, msg.ID)
		}
		return g.canvas.Remove(obj)
	case EventModified, EventRotating, EventScaling, EventMoving, EventSkewing:
		return g.canvas.Transform(t, msg.ID, msg.Geometry, msg.Rx, msg.Options)
	case EventAdded:
		return fmt.Errorf("objects are added by plugin instances, not by the canvas")
	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
}

func (g *Gateway) snapshot() []ObjectState {
	objects := g.canvas.Objects()
	out := make([]ObjectState, 0, len(objects))
	for _, obj := range objects {
		state := ObjectState{ID: obj.ID(), Geometry: GeometryOf(obj)}
		if r, ok := obj.(Rounded); ok {
			rx := r.Rx()
			state.Rx = &rx
		}
		out = append(out, state)
	}
	return out
}

func (g *Gateway) send(ws *websocket.Conn, msg Message) error {
	msg.Timestamp = time.Now().UnixMilli()
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return ws.WriteMessage(websocket.TextMessage, raw)
}

func (g *Gateway) trackConn(delta int) {
	g.connsMu.Lock()
	g.conns += delta
	g.connsMu.Unlock()
}
