package protocol

const (
	// Wire input.
	ErrProtoBadLine  = "E_PROTO_BAD_LINE"
	ErrProtoBadConst = "E_PROTO_BAD_CONST"

	// Planning.
	ErrUnknownUnit   = "E_UNKNOWN_UNIT"
	ErrNoBases       = "E_NO_BASES"
	ErrRerouteFailed = "E_REROUTE_FAILED"
	ErrPlanningAbort = "E_PLANNING_ABORTED"
	ErrInternal      = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadLine:  {},
	ErrProtoBadConst: {},
	ErrUnknownUnit:   {},
	ErrNoBases:       {},
	ErrRerouteFailed: {},
	ErrPlanningAbort: {},
	ErrInternal:      {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
