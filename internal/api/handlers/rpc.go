package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/dom/gifbox/internal/dispatch"
	"github.com/dom/gifbox/internal/rpc"
	"go.uber.org/zap"
)

// MaxRequestBytes bounds a single request envelope.
const MaxRequestBytes = 64 * 1024

type Dispatcher interface {
	Dispatch(ctx context.Context, body []byte, authorization string) dispatch.Outcome
}

type RPCHandler struct {
	dispatcher Dispatcher
	log        *zap.Logger
}

func NewRPCHandler(dispatcher Dispatcher, log *zap.Logger) *RPCHandler {
	return &RPCHandler{dispatcher: dispatcher, log: log}
}

// Handle answers POST /api/v1/rpc. The body is one request envelope and the
// reply is always one response envelope.
func (h *RPCHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxRequestBytes))
	if err != nil {
		h.write(w, dispatch.Outcome{
			Response: rpc.Failure("", rpc.Malformed("request body is unreadable or larger than %d bytes", MaxRequestBytes)),
			Status:   http.StatusBadRequest,
		})
		return
	}

	h.write(w, h.dispatcher.Dispatch(r.Context(), body, r.Header.Get("Authorization")))
}

func (h *RPCHandler) write(w http.ResponseWriter, outcome dispatch.Outcome) {
	data, err := rpc.EncodeResponse(outcome.Response)
	if err != nil {
		h.log.Error("failed to encode response", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(outcome.Status)
	w.Write(data)
}
