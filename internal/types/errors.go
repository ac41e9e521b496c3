package types

import "errors"

var (
	ErrLocatorNotFound       = errors.New("locator not found")
	ErrTimeout               = errors.New("timeout")
	ErrClickIntercepted      = errors.New("click intercepted")
	ErrNavigation            = errors.New("navigation error")
	ErrAuthenticationFailure = errors.New("authentication failure")
	ErrSessionInvalid        = errors.New("session invalid")
)

// Reason is the failure classification carried by a Failed outcome
type Reason string

const (
	ReasonNone                  Reason = ""
	ReasonLocatorNotFound       Reason = "LocatorNotFound"
	ReasonTimeout               Reason = "Timeout"
	ReasonClickIntercepted      Reason = "ClickIntercepted"
	ReasonNavigation            Reason = "NavigationError"
	ReasonAuthenticationFailure Reason = "AuthenticationFailure"
	ReasonSessionInvalid        Reason = "SessionInvalid"
)

// precedence matters: an error can carry more than one sentinel
var reasons = []struct {
	err    error
	reason Reason
}{
	{ErrSessionInvalid, ReasonSessionInvalid},
	{ErrAuthenticationFailure, ReasonAuthenticationFailure},
	{ErrNavigation, ReasonNavigation},
	{ErrClickIntercepted, ReasonClickIntercepted},
	{ErrLocatorNotFound, ReasonLocatorNotFound},
	{ErrTimeout, ReasonTimeout},
}

// ReasonOf classifies err. Errors outside the taxonomy, including a bare
// context deadline, are reported as Timeout since every blocking call in a
// run is bounded by one.
func ReasonOf(err error) Reason {
	if err == nil {
		return ReasonNone
	}
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return ReasonTimeout
}
