package subscriber

import "strings"

// Status is the subscriber's position in its lifecycle.
type Status string

const (
	StatusUnconfirmed Status = "unconfirmed"
	StatusConfirmed   Status = "confirmed"

	StatusUnverified Status = "unverified"
	StatusValid      Status = "valid"
	StatusInvalid    Status = "invalid"
)

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StatusUnconfirmed, StatusConfirmed, StatusUnverified, StatusValid, StatusInvalid:
		return st, nil
	}
	return "", ErrInvalidSubscriberStatus
}

// Lifecycle selects the status model a deployment runs with. A subscriber
// belongs to exactly one lifecycle for its whole life.
type Lifecycle string

const (
	// LifecycleConfirmation: Unconfirmed -> Confirmed.
	LifecycleConfirmation Lifecycle = "confirmation"
	// LifecycleVerification: Unverified -> {Valid, Invalid}.
	LifecycleVerification Lifecycle = "verification"
)

func ParseLifecycle(s string) (Lifecycle, error) {
	switch Lifecycle(strings.ToLower(strings.TrimSpace(s))) {
	case "", LifecycleConfirmation:
		return LifecycleConfirmation, nil
	case LifecycleVerification:
		return LifecycleVerification, nil
	}
	return "", ErrInvalidSubscriberStatus
}

// InitialStatus is the status a freshly registered subscriber starts in.
func (l Lifecycle) InitialStatus() Status {
	if l == LifecycleVerification {
		return StatusUnverified
	}
	return StatusUnconfirmed
}

// EligibleStatus is the status that makes a subscriber a newsletter recipient.
func (l Lifecycle) EligibleStatus() Status {
	if l == LifecycleVerification {
		return StatusValid
	}
	return StatusConfirmed
}

func (l Lifecycle) owns(s Status) bool {
	switch s {
	case StatusUnconfirmed, StatusConfirmed:
		return l == LifecycleConfirmation
	case StatusUnverified, StatusValid, StatusInvalid:
		return l == LifecycleVerification
	}
	return false
}

func lifecycleOf(s Status) (Lifecycle, bool) {
	switch {
	case LifecycleConfirmation.owns(s):
		return LifecycleConfirmation, true
	case LifecycleVerification.owns(s):
		return LifecycleVerification, true
	}
	return "", false
}
