package prompt

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextAndSecret(t *testing.T) {
	var out bytes.Buffer
	p := NewTerminal(strings.NewReader("  alice \nhunter2\r\ncreator"), &out)

	user, err := p.Text("Username")
	require.NoError(t, err)
	assert.Equal(t, "alice", user)

	secret, err := p.Secret("Password")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", secret.Reveal())
	assert.Equal(t, "[redacted]", fmt.Sprint(secret))

	target, err := p.Text("Target")
	require.NoError(t, err)
	assert.Equal(t, "creator", target)

	assert.Equal(t, "Username: Password: Target: ", out.String())
	assert.NotContains(t, out.String(), "hunter2")
}

func TestEmptyAnswers(t *testing.T) {
	p := NewTerminal(strings.NewReader("\n\n"), &bytes.Buffer{})
	_, err := p.Text("Username")
	assert.ErrorContains(t, err, "username cannot be empty")
	_, err = p.Secret("Password")
	assert.ErrorContains(t, err, "password cannot be empty")
}

func TestClosedInput(t *testing.T) {
	p := NewTerminal(strings.NewReader(""), &bytes.Buffer{})
	_, err := p.Text("Username")
	assert.Error(t, err)
	_, err = p.Secret("Password")
	assert.Error(t, err)
}
