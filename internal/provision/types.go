package provision

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Secret is an account credential. It is sent to the appliance once during
// account creation and nowhere else: String, GoString and MarshalJSON all
// redact, so the generic logging paths cannot leak it.
type Secret string

const redacted = "[redacted]"

func (Secret) String() string   { return redacted }
func (Secret) GoString() string { return redacted }

func (Secret) MarshalJSON() ([]byte, error) { return json.Marshal(redacted) }

// Reveal returns the raw credential for the one outbound call that needs it.
func (s Secret) Reveal() string { return string(s) }

func (s Secret) empty() bool { return strings.TrimSpace(string(s)) == "" }

// Class is the usage-class discriminant. It is a sealed variant so quota
// fields exist only on the shape that carries them.
type Class interface {
	// Name returns the wire name of the class ("personal" or "project").
	Name() string

	isClass()
}

// Personal requests a quota-bound dataset plus an account bound to it.
type Personal struct {
	QuotaGB float64
}

func (Personal) Name() string { return "personal" }
func (Personal) isClass()     {}

// Project requests an account only; the capacity ask is recorded in the
// journal instead of being provisioned.
type Project struct {
	QuotaGB *float64 // recorded as null when absent
}

func (Project) Name() string { return "project" }
func (Project) isClass()     {}

// Request is one accepted provisioning request. Immutable once built.
type Request struct {
	Identity string
	Secret   Secret
	Class    Class
}

// ErrInvalidRequest marks client-side validation failures; no external call
// is made once it is returned.
var ErrInvalidRequest = errors.New("invalid provisioning request")

// Validate checks the request before any external effect.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Identity) == "" {
		return fmt.Errorf("%w: identity is required", ErrInvalidRequest)
	}
	if r.Secret.empty() {
		return fmt.Errorf("%w: secret is required", ErrInvalidRequest)
	}
	switch c := r.Class.(type) {
	case Personal:
		if c.QuotaGB <= 0 {
			return fmt.Errorf("%w: requested quota must be a positive number", ErrInvalidRequest)
		}
	case Project:
		if c.QuotaGB != nil && *c.QuotaGB <= 0 {
			return fmt.Errorf("%w: requested quota must be a positive number", ErrInvalidRequest)
		}
	default:
		return fmt.Errorf("%w: usage class is required", ErrInvalidRequest)
	}
	return nil
}

// Outcome records which steps completed within one attempt. It exists only
// to shape the response and to decide whether later steps run; it is never
// persisted.
type Outcome struct {
	DatasetCreated bool
	AccountCreated bool
	ACLApplied     bool
	Logged         bool
}

// Result is the successful response of one provisioning attempt.
type Result struct {
	Message string
	Outcome Outcome
}

// StepError is a failure of one named workflow step. Earlier steps may have
// already created remote resources; Outcome carries that state to the caller.
type StepError struct {
	Step    string // "dataset", "account", "acl", "journal"
	Message string
	Err     error
}

func (e *StepError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *StepError) Unwrap() error { return e.Err }
