package testutil

import (
	"bytes"
	"io"
	"net/http"
	"testing"

	"github.com/dom/gifbox/internal/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RPCReply is a decoded response envelope plus the HTTP status it came with
type RPCReply struct {
	Status   int
	Response *rpc.Response
	Body     []byte
}

// PostRPC encodes req and posts it, with token as a bearer token when non-empty
func PostRPC(t *testing.T, ts *TestServer, req rpc.Request, token string) *RPCReply {
	t.Helper()

	body, err := rpc.Encode(req)
	require.NoError(t, err, "failed to encode request")

	return PostRaw(t, ts, body, authHeader(token))
}

// PostRaw posts body as-is with the given Authorization header
func PostRaw(t *testing.T, ts *TestServer, body []byte, authorization string) *RPCReply {
	t.Helper()

	httpReq, err := http.NewRequest(http.MethodPost, ts.RPCURL(), bytes.NewReader(body))
	require.NoError(t, err)
	httpReq.Header.Set("Content-Type", "application/json")
	if authorization != "" {
		httpReq.Header.Set("Authorization", authorization)
	}

	resp, err := http.DefaultClient.Do(httpReq)
	require.NoError(t, err, "rpc request failed")
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")

	decoded, err := rpc.DecodeResponse(data)
	require.NoError(t, err, "response is not an envelope: %s", string(data))

	return &RPCReply{Status: resp.StatusCode, Response: decoded, Body: data}
}

// RequireRPCSuccess fails immediately unless the reply carries a result
func RequireRPCSuccess(t *testing.T, reply *RPCReply) rpc.Result {
	t.Helper()

	require.Nil(t, reply.Response.Error, "unexpected rpc error: %s", string(reply.Body))
	require.Equal(t, http.StatusOK, reply.Status, "unexpected status code")
	require.NotNil(t, reply.Response.Result)
	return reply.Response.Result
}

// AssertRPCError verifies the status code and error kind of a failed call
func AssertRPCError(t *testing.T, reply *RPCReply, expectedStatus int, expectedKind rpc.ErrorKind) *rpc.Error {
	t.Helper()

	assert.Equal(t, expectedStatus, reply.Status, "unexpected status code")
	require.NotNil(t, reply.Response.Error, "expected an rpc error: %s", string(reply.Body))
	assert.Equal(t, expectedKind, reply.Response.Error.Kind, "error kind mismatch")
	assert.Equal(t, expectedKind.Category(), reply.Response.Error.Category, "error category mismatch")
	return reply.Response.Error
}

func authHeader(token string) string {
	if token == "" {
		return ""
	}
	return "Bearer " + token
}
