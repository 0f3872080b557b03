package rpc

import "encoding/json"

// Frame carries one request envelope over a WebSocket connection. Token,
// when set, is used instead of the token given at connect time.
type Frame struct {
	ID      string          `json:"id"`
	Token   string          `json:"token,omitempty"`
	Request json.RawMessage `json:"request"`
}

// FrameReply answers the Frame with the same ID. Status is the HTTP status
// the same call would have received over POST.
type FrameReply struct {
	ID       string          `json:"id"`
	Status   int             `json:"status"`
	Response json.RawMessage `json:"response"`
}
