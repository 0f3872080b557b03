package testutil

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/dom/gifbox/internal/rpc"
	gorillaWS "github.com/gorilla/websocket"
)

// WSClient is a test WebSocket client speaking RPC frames
type WSClient struct {
	t       *testing.T
	conn    *gorillaWS.Conn
	replies chan *rpc.FrameReply
	errors  chan error
	done    chan struct{}
	mu      sync.Mutex
}

// NewWSClient dials url and starts reading replies
func NewWSClient(t *testing.T, url string) *WSClient {
	t.Helper()

	dialer := *gorillaWS.DefaultDialer
	dialer.HandshakeTimeout = 5 * time.Second

	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to connect to websocket: %v", err)
	}

	client := &WSClient{
		t:       t,
		conn:    conn,
		replies: make(chan *rpc.FrameReply, 100),
		errors:  make(chan error, 10),
		done:    make(chan struct{}),
	}

	go client.readPump()

	t.Cleanup(func() {
		client.Close()
	})

	return client
}

func (c *WSClient) readPump() {
	defer close(c.replies)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			case c.errors <- err:
			}
			return
		}

		var reply rpc.FrameReply
		if err := json.Unmarshal(data, &reply); err != nil {
			select {
			case c.errors <- err:
			default:
			}
			continue
		}

		select {
		case c.replies <- &reply:
		case <-c.done:
			return
		}
	}
}

// Close closes the WebSocket connection gracefully
func (c *WSClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.done:
		return
	default:
		close(c.done)
		c.conn.WriteMessage(gorillaWS.CloseMessage, gorillaWS.FormatCloseMessage(gorillaWS.CloseNormalClosure, ""))
		c.conn.Close()
	}
}

// SendRaw writes data as a single text frame
func (c *WSClient) SendRaw(data []byte) {
	c.t.Helper()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteMessage(gorillaWS.TextMessage, data); err != nil {
		c.t.Fatalf("failed to write frame: %v", err)
	}
}

// Send encodes req into a frame with the given id and optional token
func (c *WSClient) Send(id string, req rpc.Request, token string) {
	c.t.Helper()

	body, err := rpc.Encode(req)
	if err != nil {
		c.t.Fatalf("failed to encode request: %v", err)
	}
	data, err := json.Marshal(rpc.Frame{ID: id, Token: token, Request: body})
	if err != nil {
		c.t.Fatalf("failed to encode frame: %v", err)
	}
	c.SendRaw(data)
}

// WaitForReply returns the next reply or fails after timeout
func (c *WSClient) WaitForReply(timeout time.Duration) *rpc.FrameReply {
	c.t.Helper()

	select {
	case reply, ok := <-c.replies:
		if !ok {
			c.t.Fatalf("websocket closed while waiting for reply")
		}
		return reply
	case err := <-c.errors:
		c.t.Fatalf("websocket error while waiting for reply: %v", err)
	case <-time.After(timeout):
		c.t.Fatalf("timed out waiting for reply")
	}
	return nil
}

// Call sends req and decodes the matching reply's response envelope
func (c *WSClient) Call(id string, req rpc.Request, token string) (*rpc.FrameReply, *rpc.Response) {
	c.t.Helper()

	c.Send(id, req, token)
	reply := c.WaitForReply(5 * time.Second)
	if reply.ID != id {
		c.t.Fatalf("reply id = %q, want %q", reply.ID, id)
	}

	resp, err := rpc.DecodeResponse(reply.Response)
	if err != nil {
		c.t.Fatalf("reply is not an envelope: %v", err)
	}
	return reply, resp
}
