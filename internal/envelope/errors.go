// Package envelope implements the league.v2 message envelope: validation,
// the JSON-RPC 2.0 request/response wire shapes, the canonical/alias method
// map, and the league error taxonomy with its JSON-RPC code mapping
// (spec.md §4.1, §6, §7).
package envelope

import "fmt"

// Code is a league-domain error code (E001..E018).
type Code string

const (
	ErrTimeout             Code = "E001"
	ErrValidation          Code = "E002"
	ErrSenderMismatch      Code = "E003"
	ErrNotFound            Code = "E004"
	ErrStateConflict       Code = "E005"
	ErrUnavailable         Code = "E006"
	ErrMatchNotFound       Code = "E007"
	ErrLeagueNotFound      Code = "E008"
	ErrQueueFull           Code = "E009"
	ErrInvalidMove         Code = "E010"
	ErrProtocol            Code = "E011"
	ErrAuth                Code = "E012"
	ErrConversationMismatch Code = "E013"
	ErrRateLimit           Code = "E014"
	ErrResourceExhausted   Code = "E015"
	ErrCircuitOpen         Code = "E016"
	ErrDuplicateEndpoint   Code = "E017"
	ErrUnknownMethod       Code = "E018"
)

// Retryable is the set of error codes the RPC client retries (spec.md §4.1).
var Retryable = map[Code]bool{
	ErrTimeout:           true,
	ErrStateConflict:     true,
	ErrUnavailable:       true,
	ErrQueueFull:         true,
	ErrRateLimit:         true,
	ErrResourceExhausted: true,
	ErrCircuitOpen:       true,
}

// IsRetryable reports whether c should be retried by the RPC client.
func IsRetryable(c Code) bool {
	return Retryable[c]
}

// jsonRPCCode maps a league Code to the numeric JSON-RPC error code used on
// the wire, per the table in spec.md §6.
func jsonRPCCode(c Code) int {
	switch c {
	case ErrTimeout:
		return -32000
	case ErrAuth, ErrSenderMismatch:
		return -32001
	case ErrValidation:
		return -32602
	case ErrProtocol:
		return -32600
	case ErrUnknownMethod:
		return -32601
	default:
		return -32000
	}
}

// Error is the error type returned by envelope validation, the RPC
// substrate, and any handler that needs to surface a league error code.
type Error struct {
	LeagueCode     Code   `json:"error_code"`
	Message        string `json:"message"`
	MessageType    string `json:"message_type,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	SupportedProtocols []string `json:"supported_protocols,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.LeagueCode, e.Message)
}

// JSONRPCCode returns the numeric JSON-RPC error code for this error.
func (e *Error) JSONRPCCode() int {
	return jsonRPCCode(e.LeagueCode)
}

// Retryable reports whether this error's code belongs to the retryable set.
func (e *Error) Retryable() bool {
	return IsRetryable(e.LeagueCode)
}

// NewError constructs a league Error.
func NewError(code Code, message string) *Error {
	return &Error{LeagueCode: code, Message: message}
}

// WithContext attaches message-type and conversation-id context to an error,
// matching data.message_type / data.conversation_id in spec.md §6.
func (e *Error) WithContext(messageType, conversationID string) *Error {
	e.MessageType = messageType
	e.ConversationID = conversationID
	return e
}
