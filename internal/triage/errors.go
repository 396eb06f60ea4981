package triage

import "fmt"

// MalformedArgsError reports a command invocation whose arguments could
// not be parsed. Handlers surface Usage back to the caller.
type MalformedArgsError struct {
	Command string
	Usage   string
}

func (e *MalformedArgsError) Error() string {
	return fmt.Sprintf("%s: malformed arguments, usage: %s", e.Command, e.Usage)
}

// Code labels the error for structured logs.
func (e *MalformedArgsError) Code() string { return "MALFORMED_ARGS" }

// DeliveryError wraps a failed outbound send. Target is "user" or
// "admin"; UserID is zero for admin-channel sends.
type DeliveryError struct {
	Target string
	UserID int64
	Err    error
}

func (e *DeliveryError) Error() string {
	if e.Target == "admin" {
		return fmt.Sprintf("deliver to admin: %v", e.Err)
	}
	return fmt.Sprintf("deliver to user %d: %v", e.UserID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Code labels the error for structured logs.
func (e *DeliveryError) Code() string { return "DELIVERY_FAILED" }
