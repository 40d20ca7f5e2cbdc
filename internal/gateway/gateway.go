// Package gateway defines the SMS verification provider used to send and check OTP codes.
package gateway

import (
	"context"
	"errors"
)

var (
	// ErrCodeMismatch is returned by Check when the provider rejects the code.
	ErrCodeMismatch = errors.New("gateway: code mismatch")
	// ErrUpstream wraps every other provider failure (transport, auth, throttling).
	ErrUpstream = errors.New("gateway: upstream error")
)

// Gateway starts, checks and cancels provider-side verification requests.
// The provider generates the code and sends the SMS; callers never see the code.
type Gateway interface {
	// Start sends a code to phone and returns the provider request id.
	Start(ctx context.Context, phone string) (string, error)
	// Check returns nil when code is correct for requestID, ErrCodeMismatch when it is not.
	Check(ctx context.Context, requestID, code string) error
	// Cancel aborts an in-flight request.
	Cancel(ctx context.Context, requestID string) error
}
