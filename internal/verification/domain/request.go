package domain

import "time"

// Request is one OTP challenge started with the SMS provider (verification_requests table).
// It has no stored state column; State derives it from (exists, Success, age).
type Request struct {
	ProviderRequestID string
	PhoneNumber       string
	Success           bool // flipped once, when the provider confirms the code
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// State is the position of a phone number in the OTP flow.
type State int

const (
	StateNoRequest State = iota
	StatePending
	StateVerified
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateNoRequest:
		return "no_request"
	case StatePending:
		return "pending"
	case StateVerified:
		return "verified"
	case StateExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// StateOf derives the flow state of r at now. A nil request is StateNoRequest.
// A confirmed request stays usable while now - UpdatedAt <= validity.
func StateOf(r *Request, now time.Time, validity time.Duration) State {
	if r == nil {
		return StateNoRequest
	}
	if !r.Success {
		return StatePending
	}
	if now.Sub(r.UpdatedAt) > validity {
		return StateExpired
	}
	return StateVerified
}

// Outstanding reports whether r still blocks a new request for the same phone,
// regardless of Success: it does while now - CreatedAt < window.
func (r *Request) Outstanding(now time.Time, window time.Duration) bool {
	return now.Sub(r.CreatedAt) < window
}
