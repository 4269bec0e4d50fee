package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"league-core/internal/envelope"
)

// MCPHandler returns the gin handler for the single JSON-RPC entry point
// every agent exposes. "mcp" names the route, not the wire protocol: the
// body is plain league.v2-over-JSON-RPC (spec.md §4.1, §6).
func MCPHandler(d *Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			writeError(c, nil, envelope.NewError(envelope.ErrValidation, "failed to read request body"))
			return
		}

		if isBatch(body) {
			writeError(c, nil, envelope.NewError(envelope.ErrValidation, "batch requests are not supported"))
			return
		}

		var req envelope.Request
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(c, nil, envelope.NewError(envelope.ErrValidation, "malformed JSON-RPC request"))
			return
		}

		var env envelope.Envelope
		if err := json.Unmarshal(req.Params, &env); err != nil {
			writeError(c, req.ID, envelope.NewError(envelope.ErrValidation, "malformed envelope"))
			return
		}

		result, rpcErr := d.Dispatch(c.Request.Context(), req.Method, &env, req.Params)
		if rpcErr != nil {
			writeError(c, req.ID, rpcErr)
			return
		}

		if req.IsNotification() {
			c.Status(http.StatusNoContent)
			return
		}
		c.JSON(http.StatusOK, envelope.Success(req.ID, result))
	}
}

// isBatch reports whether body's first non-whitespace byte opens a JSON
// array, i.e. a JSON-RPC batch request (spec.md §4.1: rejected with E002).
func isBatch(body []byte) bool {
	for _, b := range body {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		case '[':
			return true
		default:
			return false
		}
	}
	return false
}

func writeError(c *gin.Context, id json.RawMessage, rpcErr *envelope.Error) {
	c.JSON(http.StatusOK, envelope.Failure(id, rpcErr))
}
