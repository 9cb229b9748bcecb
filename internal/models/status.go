package models

// Status is the lifecycle state of a tracked asset.
type Status string

const (
	StatusHold      Status = "hold"
	StatusTarget    Status = "target"
	StatusOpen      Status = "open"
	StatusClosed    Status = "closed"
	StatusFailed    Status = "failed"
	StatusBlacklist Status = "blacklist"
)

// transitions lists the states reachable from each state. Writing the current
// state again is always allowed and is not listed.
var transitions = map[Status][]Status{
	StatusHold:   {StatusTarget, StatusBlacklist},
	StatusFailed: {StatusHold, StatusTarget, StatusBlacklist},
	StatusTarget: {StatusHold, StatusOpen, StatusFailed, StatusBlacklist},
	// an open position must be closed before it can be blacklisted
	StatusOpen:   {StatusClosed},
	StatusClosed: {StatusBlacklist},
	// blacklist is terminal
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusHold, StatusTarget, StatusOpen, StatusClosed, StatusFailed, StatusBlacklist:
		return true
	}
	return false
}

// CanTransition reports whether moving from s to next follows the asset lifecycle.
func (s Status) CanTransition(next Status) bool {
	if s == next {
		return true
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Evaluatable reports whether an asset in this state is scored for a buy signal.
func (s Status) Evaluatable() bool {
	return s == StatusHold || s == StatusFailed
}
