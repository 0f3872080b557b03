package rpc

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Envelope is the wire form of a request.
type Envelope struct {
	Version int             `json:"v"`
	Method  Method          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Encode validates req and serializes it into a request envelope.
func Encode(req Request) ([]byte, error) {
	if req == nil {
		return nil, Malformed("request is nil")
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	params, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{
		Version: Version,
		Method:  req.Method(),
		Params:  params,
	})
}

// Decode parses a request envelope. Every failure is a malformed_request
// *Error; unknown fields are ignored.
func Decode(data []byte) (Request, error) {
	env, err := decodeEnvelope(data)
	if err != nil {
		return nil, err
	}

	params := env.Params
	if len(params) == 0 || bytes.Equal(params, []byte("null")) {
		params = json.RawMessage("{}")
	}

	switch env.Method {
	case MethodRegister:
		return decodeParams[Register](params)
	case MethodLogin:
		return decodeParams[Login](params)
	case MethodSearchGifs:
		return decodeParams[SearchGifs](params)
	case MethodSaveGif:
		return decodeParams[SaveGif](params)
	case MethodListSaved:
		return decodeParams[ListSaved](params)
	case MethodSetCategory:
		return decodeParams[SetCategory](params)
	case "":
		return nil, Malformed("method is required")
	default:
		return nil, Malformed("unknown method %q", env.Method)
	}
}

// PeekMethod returns the method named by a request body without decoding
// its params. It returns "" when the body is not an envelope.
func PeekMethod(data []byte) Method {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return ""
	}
	return env.Method
}

func decodeEnvelope(data []byte) (*Envelope, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, Malformed("request body is empty")
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, Malformed("request is not a valid envelope: %s", describeJSONError(err))
	}
	if env.Version != Version {
		return nil, Malformed("unsupported envelope version %d", env.Version)
	}
	return &env, nil
}

func decodeParams[T Request](params json.RawMessage) (Request, error) {
	var req T
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, Malformed("invalid params for %s: %s", req.Method(), describeJSONError(err))
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	return req, nil
}

func describeJSONError(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return "field " + typeErr.Field + " must be " + typeErr.Type.String()
	}
	return err.Error()
}
