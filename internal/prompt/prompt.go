// Package prompt asks the user for run inputs on the terminal.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/ibeckermayer/tikfollow/internal/types"
)

// Terminal reads answers from in and writes labels to out
type Terminal struct {
	in     *bufio.Reader
	out    io.Writer
	fd     int
	isTerm bool
}

// NewTerminal wraps in and out. Secrets are read without echo when in is a
// terminal.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	t := &Terminal{in: bufio.NewReader(in), out: out, fd: -1}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		t.fd = int(f.Fd())
		t.isTerm = true
	}
	return t
}

// Text asks for a visible value
func (t *Terminal) Text(label string) (string, error) {
	fmt.Fprintf(t.out, "%s: ", label)
	line, err := t.readLine()
	if err != nil {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("%s cannot be empty", strings.ToLower(label))
	}
	return line, nil
}

// Secret asks for a value without echoing it
func (t *Terminal) Secret(label string) (types.Secret, error) {
	fmt.Fprintf(t.out, "%s: ", label)

	var value string
	if t.isTerm {
		b, err := term.ReadPassword(t.fd)
		fmt.Fprintln(t.out)
		if err != nil {
			return "", err
		}
		value = strings.TrimRight(string(b), "\r\n")
	} else {
		line, err := t.readLine()
		if err != nil {
			return "", err
		}
		value = line
	}

	if value == "" {
		return "", fmt.Errorf("%s cannot be empty", strings.ToLower(label))
	}
	return types.Secret(value), nil
}

func (t *Terminal) readLine() (string, error) {
	line, err := t.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
