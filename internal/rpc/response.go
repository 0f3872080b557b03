package rpc

import (
	"bytes"
	"encoding/json"
	"time"
)

// Result is implemented by every success payload.
type Result interface {
	isResult()
}

type Account struct {
	ID     string `json:"id"`
	Handle string `json:"handle"`
}

// Session is returned by register and login.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Scope     []Scope   `json:"scope"`
	User      Account   `json:"user"`
}

// GifResult is one normalized item from the GIF provider.
type GifResult struct {
	ProviderItemID string `json:"providerItemId"`
	Title          string `json:"title"`
	URL            string `json:"url"`
}

type SearchResults struct {
	Query string      `json:"query"`
	Page  int         `json:"page"`
	Gifs  []GifResult `json:"gifs"`
}

type SavedGif struct {
	ProviderItemID string    `json:"providerItemId"`
	Title          string    `json:"title"`
	URL            string    `json:"url"`
	Category       *string   `json:"category,omitempty"`
	SavedAt        time.Time `json:"savedAt"`
}

type SavedGifResult struct {
	Gif SavedGif `json:"gif"`
}

type SavedList struct {
	Gifs []SavedGif `json:"gifs"`
}

func (*Session) isResult()        {}
func (*SearchResults) isResult()  {}
func (*SavedGifResult) isResult() {}
func (*SavedList) isResult()      {}

// ResultFor returns a new zero value of the success payload for m, or nil
// when m is not a known method.
func ResultFor(m Method) Result {
	switch m {
	case MethodRegister, MethodLogin:
		return &Session{}
	case MethodSearchGifs:
		return &SearchResults{}
	case MethodSaveGif, MethodSetCategory:
		return &SavedGifResult{}
	case MethodListSaved:
		return &SavedList{}
	}
	return nil
}

// Response carries either Result or Error, never both.
type Response struct {
	Method Method
	Result Result
	Error  *Error
}

type wireResponse struct {
	Version int             `json:"v"`
	Method  Method          `json:"method,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

func Success(m Method, result Result) *Response {
	return &Response{Method: m, Result: result}
}

func Failure(m Method, err *Error) *Response {
	return &Response{Method: m, Error: err}
}

func EncodeResponse(resp *Response) ([]byte, error) {
	if resp == nil {
		return nil, Malformed("response is nil")
	}
	wire := wireResponse{Version: Version, Method: resp.Method, Error: resp.Error}
	if resp.Error == nil {
		if resp.Result == nil {
			return nil, Malformed("response for %s has neither result nor error", resp.Method)
		}
		raw, err := json.Marshal(resp.Result)
		if err != nil {
			return nil, err
		}
		wire.Result = raw
	}
	return json.Marshal(wire)
}

func DecodeResponse(data []byte) (*Response, error) {
	var wire wireResponse
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, Malformed("response is not a valid envelope: %s", describeJSONError(err))
	}
	if wire.Version != Version {
		return nil, Malformed("unsupported envelope version %d", wire.Version)
	}

	hasResult := len(wire.Result) > 0 && !bytes.Equal(wire.Result, []byte("null"))
	switch {
	case wire.Error != nil && hasResult:
		return nil, Malformed("response carries both result and error")
	case wire.Error != nil:
		return Failure(wire.Method, wire.Error), nil
	case !hasResult:
		return nil, Malformed("response carries neither result nor error")
	}

	result := ResultFor(wire.Method)
	if result == nil {
		return nil, Malformed("unknown method %q", wire.Method)
	}
	if err := json.Unmarshal(wire.Result, result); err != nil {
		return nil, Malformed("invalid result for %s: %s", wire.Method, describeJSONError(err))
	}
	return Success(wire.Method, result), nil
}
