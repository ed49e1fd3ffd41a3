// Package errs defines the domain error taxonomy exposed to clients as
// Error packets (see packet type Error in netpacket).
package errs

import "fmt"

// Code is a numeric domain error code echoed in Error packets.
type Code uint16

// Global error codes.
const (
	CodeServerUnavailable      Code = 0x0
	CodeSystem                Code = 0x4001
	CodeComponentNotFound      Code = 0x4002
	CodeCommandNotFound        Code = 0x4003
	CodeAuthenticationRequired Code = 0x4004
	CodeTimeout                Code = 0x4005
	CodeDisconnected           Code = 0x4006
	CodeDuplicateLogin         Code = 0x4007
	CodeAuthorizationRequired  Code = 0x4008
	CodeCancelled              Code = 0x4009
)

// Auth error codes.
const (
	CodeEmailNotFound      Code = 0x0B
	CodeWrongPassword      Code = 0x0C
	CodeInvalidSession     Code = 0x0D
	CodeEmailAlreadyInUse  Code = 0x0F
	CodeAgeRestriction     Code = 0x10
	CodeInvalidAccount     Code = 0x11
	CodeBannedAccount      Code = 0x13
	CodeInvalidInformation Code = 0x15
	CodeInvalidEmail       Code = 0x16
)

// Ping-suspend client-contract codes.
const (
	CodePingSuspendA Code = 0x12D
	CodePingSuspendB Code = 0x12E
)

// Domain wraps a Code with an optional underlying cause. It is the error
// type router extractors and handlers return to signal a client-visible
// failure; anything else is collapsed to CodeServerUnavailable at the
// router boundary.
type Domain struct {
	Code  Code
	Cause error
}

func New(code Code) *Domain {
	return &Domain{Code: code}
}

func Wrap(code Code, cause error) *Domain {
	return &Domain{Code: code, Cause: cause}
}

func (e *Domain) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("domain error 0x%04X: %v", uint16(e.Code), e.Cause)
	}
	return fmt.Sprintf("domain error 0x%04X", uint16(e.Code))
}

func (e *Domain) Unwrap() error { return e.Cause }

// AsCode extracts the Code carried by err, falling back to
// CodeServerUnavailable for anything that isn't a *Domain — this is the
// "collapse to ServerUnavailable at the handler boundary" rule from §7.
func AsCode(err error) Code {
	if err == nil {
		return 0
	}
	var d *Domain
	if de, ok := err.(*Domain); ok {
		d = de
	}
	if d != nil {
		return d.Code
	}
	return CodeServerUnavailable
}
