package envelope

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Protocol is the only protocol version this core speaks.
const Protocol = "league.v2"

// MaxBodyBytes is the JSON-RPC request body size cap (spec.md §4.1).
const MaxBodyBytes = 64 * 1024

// timestampPattern enforces ISO 8601 UTC with a trailing "Z" (spec.md §6).
var timestampPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?Z$`)

// senderPattern enforces the "{agent_type}:{agent_id}" sender syntax.
var senderPattern = regexp.MustCompile(`^(league_manager|referee|player):(.+)$`)

// Envelope is the common header every league.v2 params payload carries
// (spec.md §3).
type Envelope struct {
	Protocol       string `json:"protocol"`
	MessageType    string `json:"message_type"`
	Sender         string `json:"sender"`
	Timestamp      string `json:"timestamp"`
	ConversationID string `json:"conversation_id"`
	AuthToken      string `json:"auth_token,omitempty"`
}

// NewTimestamp returns the current time formatted per spec.md §6.
func NewTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// SenderParts splits a "{agent_type}:{agent_id}" sender field.
func SenderParts(sender string) (agentType, agentID string, ok bool) {
	m := senderPattern.FindStringSubmatch(sender)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// registrationMethods are exempt from the auth_token requirement (step 3 of
// the validation sequence in spec.md §4.1).
var registrationMethods = map[string]bool{
	"REGISTER_REFEREE": true,
	"REGISTER_PLAYER":  true,
}

// IsRegistrationMethod reports whether method (already canonical) is exempt
// from auth_token validation.
func IsRegistrationMethod(method string) bool {
	return registrationMethods[method]
}

// Validate runs the server-side envelope validation sequence from
// spec.md §4.1: protocol version, required fields, timestamp format, sender
// syntax, and auth_token presence for non-registration methods. It does not
// check the token against the sender; the Dispatcher's AuthValidator does.
func Validate(e *Envelope, method string) *Error {
	if e.Protocol != Protocol {
		return (&Error{
			LeagueCode:         ErrProtocol,
			Message:            fmt.Sprintf("unsupported protocol %q", e.Protocol),
			SupportedProtocols: []string{Protocol},
		})
	}

	if e.MessageType == "" || e.Sender == "" || e.ConversationID == "" || e.Timestamp == "" {
		return NewError(ErrValidation, "envelope missing required field")
	}

	if !timestampPattern.MatchString(e.Timestamp) {
		return NewError(ErrValidation, "timestamp must be ISO 8601 UTC with trailing Z")
	}

	if _, _, ok := SenderParts(e.Sender); !ok {
		return NewError(ErrValidation, "sender must be formatted {agent_type}:{agent_id}")
	}

	if !registrationMethods[CanonicalMethod(method)] && e.AuthToken == "" {
		return NewError(ErrAuth, "auth_token required")
	}

	return nil
}

// DecodeParams unmarshals raw JSON-RPC params into dst, rejecting the call
// with E002 on malformed JSON rather than propagating a generic decode
// error (spec.md §4.1 body validation).
func DecodeParams(raw json.RawMessage, dst interface{}) *Error {
	if len(raw) == 0 {
		return NewError(ErrValidation, "missing params")
	}
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	if err := dec.Decode(dst); err != nil {
		return NewError(ErrValidation, "malformed params: "+err.Error())
	}
	return nil
}
