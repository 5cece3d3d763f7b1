package reqcontext

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gocrud/tenantengine/apperrors"
)

// WebSocketMessageKind tags which lifecycle event triggered the endpoint's
// WebSocket invocation.
type WebSocketMessageKind int

const (
	WebSocketText WebSocketMessageKind = iota
	WebSocketBinary
	WebSocketPing
	WebSocketPong
	WebSocketClose
)

// WebSocketEvent is stashed on the Context's store before each lifecycle
// dispatch (§4.3) so the invocation can tell what triggered it.
type WebSocketEvent struct {
	Kind WebSocketMessageKind
	Data []byte
}

const webSocketEventKey = "reqcontext.websocket.event"

func (c *Context) setWebSocketEvent(evt WebSocketEvent) {
	c.Set(webSocketEventKey, evt)
}

// WebSocketEventOf returns the event the current dispatch is for.
func WebSocketEventOf(c *Context) (WebSocketEvent, bool) {
	return GetValue[WebSocketEvent](c, webSocketEventKey)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// serveWebSocket is invokeEndpoint's handling of a WebSocket endpoint: the
// middleware chain having already yielded no error, it upgrades the
// connection and installs per-event lifecycle callbacks that each
// redispatch to the invocation with the same Context (§4.3, "WebSocket
// path"). On a read error the close event is dispatched once and the loop
// exits; nothing here re-runs the middleware chain per message.
func (c *Context) serveWebSocket() error {
	conn, err := upgrader.Upgrade(c.Response, c.Request, nil)
	if err != nil {
		return apperrors.NewInternal(err)
	}
	defer conn.Close()

	inv := c.Endpoint.Invocation.WebSocket

	conn.SetPingHandler(func(appData string) error {
		c.setWebSocketEvent(WebSocketEvent{Kind: WebSocketPing, Data: []byte(appData)})
		_ = inv(c)
		err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(time.Second))
		if err == websocket.ErrCloseSent {
			return nil
		}
		return err
	})
	conn.SetPongHandler(func(appData string) error {
		c.setWebSocketEvent(WebSocketEvent{Kind: WebSocketPong, Data: []byte(appData)})
		_ = inv(c)
		return nil
	})

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			c.setWebSocketEvent(WebSocketEvent{Kind: WebSocketClose})
			_ = inv(c)
			return nil
		}

		kind := WebSocketText
		if messageType == websocket.BinaryMessage {
			kind = WebSocketBinary
		}

		c.setWebSocketEvent(WebSocketEvent{Kind: kind, Data: data})
		if err := inv(c); err != nil {
			payload, _ := json.Marshal(apperrors.ConvertOrWrap(err))
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, string(payload)),
				time.Now().Add(time.Second))
			return nil
		}
	}
}
