package envelope

import "strings"

// Canonical league.v2 message types (spec.md §6).
const (
	MethodRegisterReferee      = "REGISTER_REFEREE"
	MethodRegisterPlayer       = "REGISTER_PLAYER"
	MethodStartMatch           = "START_MATCH"
	MethodGameInvitation       = "GAME_INVITATION"
	MethodGameJoinAck          = "GAME_JOIN_ACK"
	MethodChooseParityCall     = "CHOOSE_PARITY_CALL"
	MethodChooseParityResponse = "CHOOSE_PARITY_RESPONSE"
	MethodGameOver             = "GAME_OVER"
	MethodMatchResultReport    = "MATCH_RESULT_REPORT"
	MethodLeagueQuery          = "LEAGUE_QUERY"
	MethodGetStandings         = "GET_STANDINGS"
	MethodGetLeagueStatus      = "GET_LEAGUE_STATUS"
	MethodGetMatchState        = "GET_MATCH_STATE"
	MethodGetRegistrationStatus = "GET_REGISTRATION_STATUS"

	// Broadcasts (notifications, no response expected).
	MethodLeagueStandingsUpdate = "LEAGUE_STANDINGS_UPDATE"
	MethodRoundAnnouncement     = "ROUND_ANNOUNCEMENT"
	MethodRoundCompleted        = "ROUND_COMPLETED"
	MethodLeagueCompleted       = "LEAGUE_COMPLETED"
)

// aliasMap maps PDF-style lowercase tool names to canonical message types,
// per spec.md §4.1 step 4 and §6.
var aliasMap = map[string]string{
	"register_referee":          MethodRegisterReferee,
	"register_player":           MethodRegisterPlayer,
	"start_match":               MethodStartMatch,
	"handle_game_invitation":    MethodGameInvitation,
	"game_join_ack":             MethodGameJoinAck,
	"choose_parity":             MethodChooseParityCall,
	"choose_parity_response":    MethodChooseParityResponse,
	"notify_match_result":       MethodGameOver,
	"report_match_result":       MethodMatchResultReport,
	"league_query":              MethodLeagueQuery,
	"get_standings":             MethodGetStandings,
	"get_league_status":         MethodGetLeagueStatus,
	"get_match_state":           MethodGetMatchState,
	"get_registration_status":   MethodGetRegistrationStatus,
}

// knownMethods is the full set of canonical methods this core dispatches.
var knownMethods = map[string]bool{
	MethodRegisterReferee:       true,
	MethodRegisterPlayer:        true,
	MethodStartMatch:            true,
	MethodGameInvitation:        true,
	MethodGameJoinAck:           true,
	MethodChooseParityCall:      true,
	MethodChooseParityResponse:  true,
	MethodGameOver:              true,
	MethodMatchResultReport:     true,
	MethodLeagueQuery:           true,
	MethodGetStandings:          true,
	MethodGetLeagueStatus:       true,
	MethodGetMatchState:         true,
	MethodGetRegistrationStatus: true,
}

// CanonicalMethod resolves a raw JSON-RPC method name (either already
// canonical, or a lowercase alias) to its canonical uppercase form. Unknown
// methods are returned unchanged so the caller can surface E018.
func CanonicalMethod(method string) string {
	if knownMethods[method] {
		return method
	}
	if canon, ok := aliasMap[strings.ToLower(method)]; ok {
		return canon
	}
	return method
}

// KnownMethod reports whether method (after alias resolution) is dispatchable.
func KnownMethod(method string) bool {
	return knownMethods[CanonicalMethod(method)]
}

// MethodDeadline returns the server-side processing deadline for a
// canonical method, per the table in spec.md §4.1.
func MethodDeadline(canonicalMethod string) (seconds int) {
	switch canonicalMethod {
	case MethodRegisterReferee, MethodRegisterPlayer:
		return 10
	case MethodGameJoinAck:
		return 5
	case MethodChooseParityCall:
		return 30
	case MethodGameOver:
		return 5
	case MethodMatchResultReport:
		return 10
	case MethodLeagueQuery, MethodGetStandings, MethodGetLeagueStatus, MethodGetMatchState, MethodGetRegistrationStatus:
		return 10
	default:
		return 10
	}
}
