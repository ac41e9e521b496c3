package types

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialsNeverPrint(t *testing.T) {
	creds := Credentials{Identifier: "alice@example.com", Secret: "hunter2"}

	for _, verb := range []string{"%v", "%+v", "%#v", "%s"} {
		out := fmt.Sprintf(verb, creds)
		assert.NotContains(t, out, "hunter2", verb)
		assert.NotContains(t, out, "alice", verb)
	}
	assert.NotContains(t, fmt.Sprintf("%v", creds.Secret), "hunter2")

	data, err := json.Marshal(creds)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hunter2")
	assert.NotContains(t, string(data), "alice")

	assert.Equal(t, "hunter2", creds.Secret.Reveal())
}

func TestCredentialsValid(t *testing.T) {
	assert.True(t, Credentials{Identifier: "a", Secret: "b"}.Valid())
	assert.False(t, Credentials{Identifier: " ", Secret: "b"}.Valid())
	assert.False(t, Credentials{Identifier: "a"}.Valid())
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "creator", want: "creator"},
		{in: "@creator", want: "creator"},
		{in: "  @creator ", want: "creator"},
		{in: "https://www.tiktok.com/@creator", want: "creator"},
		{in: "https://www.tiktok.com/@creator/video/123", want: "creator"},
		{in: "", wantErr: true},
		{in: "@", wantErr: true},
		{in: "two words", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTarget(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Handle)
		})
	}
}

func TestReasonOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Reason
	}{
		{"nil", nil, ReasonNone},
		{"locator", fmt.Errorf("follow button: %w", ErrLocatorNotFound), ReasonLocatorNotFound},
		{"locator wins over timeout", fmt.Errorf("follow button: %w: %w", ErrLocatorNotFound, ErrTimeout), ReasonLocatorNotFound},
		{"navigation wins over timeout", fmt.Errorf("open: %w: %w", ErrNavigation, ErrTimeout), ReasonNavigation},
		{"click", fmt.Errorf("like: %w", ErrClickIntercepted), ReasonClickIntercepted},
		{"session", errors.Join(ErrSessionInvalid, ErrNavigation), ReasonSessionInvalid},
		{"auth", ErrAuthenticationFailure, ReasonAuthenticationFailure},
		{"deadline", context.DeadlineExceeded, ReasonTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReasonOf(tt.err))
		})
	}
}

func TestOutcomeConstructors(t *testing.T) {
	out := Fail(ActionLike, "https://www.tiktok.com/@c/video/1", fmt.Errorf("like icon: %w", ErrTimeout))
	assert.Equal(t, Failed, out.Status)
	assert.Equal(t, ReasonTimeout, out.Reason)
	assert.Contains(t, out.String(), "failed(Timeout)")

	assert.Equal(t, Applied, Done(ActionFollow, "@c").Status)
	assert.Equal(t, ReasonNone, Satisfied(ActionFollow, "@c").Reason)
}
