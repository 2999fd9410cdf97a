package session

// State enumerates the conversion session lifecycle.
type State int

const (
	StateCreated State = iota
	StateSourceAuthPending
	StateSourceAuthenticated
	StateTargetAuthPending
	StateBothAuthenticated
	StateLibraryFetched
	StateMatchingDone
	StateConfirmed
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateSourceAuthPending:
		return "source_auth_pending"
	case StateSourceAuthenticated:
		return "source_authenticated"
	case StateTargetAuthPending:
		return "target_auth_pending"
	case StateBothAuthenticated:
		return "both_authenticated"
	case StateLibraryFetched:
		return "library_fetched"
	case StateMatchingDone:
		return "matching_done"
	case StateConfirmed:
		return "confirmed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return ""
	}
}

// Terminal reports whether the state admits no further transitions.
func (s State) Terminal() bool {
	switch s {
	case StateConfirmed, StateCancelled, StateFailed:
		return true
	default:
		return false
	}
}
