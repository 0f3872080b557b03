// Package websocket serves the RPC envelope over a long-lived connection.
// Frames on one connection are dispatched in arrival order.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dom/gifbox/internal/dispatch"
	"github.com/dom/gifbox/internal/rpc"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Dispatcher runs one encoded request envelope.
type Dispatcher interface {
	Dispatch(ctx context.Context, body []byte, authorization string) dispatch.Outcome
}

type Client struct {
	conn       *websocket.Conn
	dispatcher Dispatcher
	log        *zap.Logger
	send       chan []byte
	done       chan struct{}
	token      string
}

// NewClient binds a connection to the dispatcher. token is the bearer token
// given at connect time and may be empty.
func NewClient(conn *websocket.Conn, dispatcher Dispatcher, token string, log *zap.Logger) *Client {
	return &Client{
		conn:       conn,
		dispatcher: dispatcher,
		log:        log,
		send:       make(chan []byte, 16),
		done:       make(chan struct{}),
		token:      token,
	}
}

// ReadPump reads frames until the connection fails. It owns the send
// channel and closes it on exit.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		close(c.send)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("websocket read failed", zap.Error(err))
			}
			return
		}

		reply, err := json.Marshal(c.handleFrame(ctx, data))
		if err != nil {
			c.log.Error("failed to encode frame reply", zap.Error(err))
			return
		}

		select {
		case c.send <- reply:
		case <-c.done:
			return
		}
	}
}

// WritePump drains the send channel and keeps the connection alive.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		close(c.done)
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleFrame(ctx context.Context, data []byte) rpc.FrameReply {
	var frame rpc.Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return c.reply("", dispatch.Outcome{
			Response: rpc.Failure("", rpc.Malformed("frame is not valid JSON")),
			Status:   http.StatusBadRequest,
		})
	}

	token := c.token
	if frame.Token != "" {
		token = frame.Token
	}
	var authorization string
	if token != "" {
		authorization = "Bearer " + token
	}

	outcome := c.dispatcher.Dispatch(ctx, frame.Request, authorization)

	// A session issued on this connection authenticates the frames after it.
	if session, ok := outcome.Response.Result.(*rpc.Session); ok && outcome.Response.Error == nil {
		c.token = session.Token
	}

	return c.reply(frame.ID, outcome)
}

func (c *Client) reply(id string, outcome dispatch.Outcome) rpc.FrameReply {
	body, err := rpc.EncodeResponse(outcome.Response)
	if err != nil {
		c.log.Error("failed to encode response", zap.Error(err))
		body, _ = rpc.EncodeResponse(rpc.Failure(outcome.Response.Method,
			rpc.NewError(rpc.KindPersistUnavailable, "response could not be encoded")))
		outcome.Status = http.StatusServiceUnavailable
	}
	return rpc.FrameReply{ID: id, Status: outcome.Status, Response: body}
}
