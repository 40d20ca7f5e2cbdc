// Package telemetry carries auth events (OTP requested, session issued, ...) to
// OTel logs and Kafka. Emission is best-effort and never fails an RPC.
package telemetry

import (
	"context"
	"errors"
	"time"
)

// Event types emitted by the auth flow.
const (
	EventOTPRequested    = "otp_requested"
	EventOTPConfirmed    = "otp_confirmed"
	EventOTPRejected     = "otp_rejected"
	EventRequestExpired  = "verification_expired"
	EventAccountCreated  = "account_created"
	EventPINRejected     = "pin_rejected"
	EventPINSet          = "pin_set"
	EventSessionIssued   = "session_issued"
	EventSessionRevoked  = "session_revoked"
	EventSessionsRevoked = "sessions_revoked"
	EventRPC             = "rpc"
)

// Event is a single auth telemetry record. Phone numbers are masked before they get here.
type Event struct {
	Type      string            `json:"event_type"`
	Source    string            `json:"source"`
	UserID    string            `json:"user_id,omitempty"`
	SessionID string            `json:"session_id,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	Phone     string            `json:"phone,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// EventEmitter emits telemetry events (e.g. to OTel Logs). Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *Event) error
}

// Multi fans an event out to every non-nil emitter and joins their errors.
type Multi []EventEmitter

func (m Multi) Emit(ctx context.Context, event *Event) error {
	var errs []error
	for _, e := range m {
		if e == nil {
			continue
		}
		if err := e.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
