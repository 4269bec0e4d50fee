package envelope

import "encoding/json"

// Request is a JSON-RPC 2.0 request. Batches (a JSON array at the top
// level) are rejected upstream in the gin handler before unmarshalling,
// per spec.md §4.1.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      json.RawMessage `json:"id,omitempty"`
}

// IsNotification reports whether this request expects no response, per
// JSON-RPC 2.0 (id omitted).
func (r *Request) IsNotification() bool {
	return len(r.ID) == 0
}

// RPCError is the JSON-RPC 2.0 error object, carrying league-specific
// context under "data" per spec.md §6.
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
}

// Success builds a successful JSON-RPC response.
func Success(id json.RawMessage, result interface{}) *Response {
	return &Response{JSONRPC: "2.0", Result: result, ID: id}
}

// Failure builds an error JSON-RPC response from a league Error.
func Failure(id json.RawMessage, err *Error) *Response {
	return &Response{
		JSONRPC: "2.0",
		Error: &RPCError{
			Code:    err.JSONRPCCode(),
			Message: err.Message,
			Data: map[string]interface{}{
				"error_code":      err.LeagueCode,
				"message_type":    err.MessageType,
				"conversation_id": err.ConversationID,
				"supported_protocols": err.SupportedProtocols,
			},
		},
		ID: id,
	}
}
