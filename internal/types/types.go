package types

import (
	"fmt"
	"net/url"
	"strings"
)

// Secret is a credential value that refuses to print itself
type Secret string

const redacted = "[redacted]"

func (s Secret) String() string   { return redacted }
func (s Secret) GoString() string { return redacted }

// MarshalJSON keeps secrets out of any JSON the value ends up in
func (s Secret) MarshalJSON() ([]byte, error) {
	return []byte(`"` + redacted + `"`), nil
}

// Reveal returns the raw value. Only the login form should call it.
func (s Secret) Reveal() string { return string(s) }

// Credentials identify the account the run acts as.
// They are used once per run and never persisted or logged.
type Credentials struct {
	Identifier string `json:"-"`
	Secret     Secret
}

func (c Credentials) String() string   { return "Credentials{" + redacted + "}" }
func (c Credentials) GoString() string { return c.String() }

// Valid reports whether both parts are present
func (c Credentials) Valid() bool {
	return strings.TrimSpace(c.Identifier) != "" && c.Secret != ""
}

// TargetProfile is the account whose profile and videos are acted upon
type TargetProfile struct {
	Handle string `json:"handle"`
}

func (t TargetProfile) String() string { return "@" + t.Handle }

// ParseTarget accepts "name", "@name" or a profile URL such as
// https://www.tiktok.com/@name and returns the bare handle.
func ParseTarget(raw string) (TargetProfile, error) {
	s := strings.TrimSpace(raw)
	if strings.Contains(s, "://") {
		u, err := url.Parse(s)
		if err != nil {
			return TargetProfile{}, fmt.Errorf("invalid profile url %q: %w", raw, err)
		}
		s = strings.Trim(u.Path, "/")
		if i := strings.Index(s, "/"); i >= 0 {
			s = s[:i]
		}
	}
	s = strings.TrimPrefix(s, "@")
	if s == "" || strings.ContainsAny(s, " /?#") {
		return TargetProfile{}, fmt.Errorf("invalid target handle %q", raw)
	}
	return TargetProfile{Handle: s}, nil
}

// VideoItem is a video discovered on a target's profile
type VideoItem struct {
	URL string `json:"url"`
}

func (v VideoItem) String() string { return v.URL }

// ActionKind is the social action applied to an entity
type ActionKind string

const (
	ActionFollow ActionKind = "follow"
	ActionLike   ActionKind = "like"
)

// Status is the tag of an ActionOutcome
type Status int

const (
	AlreadySatisfied Status = iota
	Applied
	Failed
)

func (s Status) String() string {
	switch s {
	case AlreadySatisfied:
		return "already satisfied"
	case Applied:
		return "applied"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Outcome is the result of applying one action to one entity
type Outcome struct {
	Action  ActionKind
	Subject string
	Status  Status
	Reason  Reason // set only when Status is Failed
	Err     error
}

// Satisfied builds an AlreadySatisfied outcome
func Satisfied(kind ActionKind, subject string) Outcome {
	return Outcome{Action: kind, Subject: subject, Status: AlreadySatisfied}
}

// Done builds an Applied outcome
func Done(kind ActionKind, subject string) Outcome {
	return Outcome{Action: kind, Subject: subject, Status: Applied}
}

// Fail builds a Failed outcome classified from err
func Fail(kind ActionKind, subject string, err error) Outcome {
	return Outcome{Action: kind, Subject: subject, Status: Failed, Reason: ReasonOf(err), Err: err}
}

func (o Outcome) String() string {
	if o.Status == Failed {
		return fmt.Sprintf("%s %s: failed(%s)", o.Action, o.Subject, o.Reason)
	}
	return fmt.Sprintf("%s %s: %s", o.Action, o.Subject, o.Status)
}
