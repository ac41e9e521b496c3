// Package session logs into the platform and owns the resulting
// authenticated browser context for the rest of a run.
package session

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ibeckermayer/tikfollow/internal/browser"
	"github.com/ibeckermayer/tikfollow/internal/config"
	"github.com/ibeckermayer/tikfollow/internal/locator"
	"github.com/ibeckermayer/tikfollow/internal/types"
)

// State is where a session is in the login flow
type State int

const (
	LoggedOut State = iota
	AwaitingChallenge
	LoggedIn
	AuthFailed
)

func (s State) String() string {
	switch s {
	case LoggedOut:
		return "LoggedOut"
	case AwaitingChallenge:
		return "AwaitingChallenge"
	case LoggedIn:
		return "LoggedIn"
	case AuthFailed:
		return "AuthFailed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Session is the one authenticated browser context of a run. Components
// receive it explicitly and must check Active before using the driver.
type Session struct {
	driver browser.Driver
	state  State
}

func (s *Session) State() State { return s.state }

// Driver returns the browser the session lives in
func (s *Session) Driver() browser.Driver { return s.driver }

// Active reports whether the session is logged in and not invalidated
func (s *Session) Active() bool { return s != nil && s.state == LoggedIn }

// Invalidate ends the session; later steps fail with SessionInvalid
func (s *Session) Invalidate() {
	if s != nil {
		s.state = LoggedOut
	}
}

// Manager drives the login state machine
type Manager struct {
	site     locator.Site
	timeouts config.TimeoutsConfig
	logger   *zap.Logger
}

// NewManager creates a session manager
func NewManager(site locator.Site, timeouts config.TimeoutsConfig, logger *zap.Logger) *Manager {
	return &Manager{site: site, timeouts: timeouts, logger: logger}
}

// Establish logs in with creds on drv. The returned session is never nil and
// records the terminal state. Any error is fatal for the run.
func (m *Manager) Establish(ctx context.Context, drv browser.Driver, creds types.Credentials) (*Session, error) {
	s := &Session{driver: drv, state: LoggedOut}
	if !creds.Valid() {
		s.state = AuthFailed
		return s, fmt.Errorf("%w: identifier and secret are required", types.ErrAuthenticationFailure)
	}

	if err := m.submit(ctx, drv, creds); err != nil {
		s.state = AuthFailed
		return s, err
	}

	// No signal exists for a solved challenge, so this is a fixed window
	s.state = AwaitingChallenge
	m.logger.Info("Waiting for challenge window",
		zap.Duration("window", m.timeouts.ChallengeWindow))
	if err := browser.Pause(ctx, m.timeouts.ChallengeWindow); err != nil {
		s.state = AuthFailed
		return s, fmt.Errorf("challenge window interrupted: %w", err)
	}

	urlCtx, cancel := browser.WithTimeout(ctx, m.timeouts.Script)
	url, err := drv.CurrentURL(urlCtx)
	cancel()
	if err != nil {
		s.state = AuthFailed
		return s, fmt.Errorf("%w: read location after login: %w", types.ErrAuthenticationFailure, err)
	}
	// The URL check is a heuristic: an intermediate redirect can be misread
	if m.site.IsLoginSurface(url) {
		s.state = AuthFailed
		return s, fmt.Errorf("%w: still on login page %s", types.ErrAuthenticationFailure, url)
	}

	s.state = LoggedIn
	m.logger.Info("Logged in", zap.String("location", url))
	return s, nil
}

// submit fills and sends the login form
func (m *Manager) submit(ctx context.Context, drv browser.Driver, creds types.Credentials) error {
	navCtx, cancel := browser.WithTimeout(ctx, m.timeouts.Navigation)
	err := drv.Navigate(navCtx, m.site.LoginURL())
	cancel()
	if err != nil {
		return fmt.Errorf("open login page: %w", err)
	}

	// The method picker only shows up sometimes
	if prompt, err := drv.WaitFor(ctx, locator.LoginMethodPrompt, browser.Clickable, m.timeouts.LoginMethod); err == nil {
		if err := m.click(ctx, drv, prompt); err != nil {
			m.logger.Debug("Login method prompt not dismissed", zap.Error(err))
		}
	} else if ctx.Err() != nil {
		return ctx.Err()
	} else {
		m.logger.Debug("No login method prompt, assuming form is shown")
	}

	if err := m.fill(ctx, drv, locator.IdentifierInput, creds.Identifier); err != nil {
		return err
	}
	if err := m.fill(ctx, drv, locator.SecretInput, creds.Secret.Reveal()); err != nil {
		return err
	}

	submit, err := drv.WaitFor(ctx, locator.SubmitButton, browser.Clickable, m.timeouts.Login)
	if err != nil {
		return fmt.Errorf("%w: %w", types.ErrLocatorNotFound, err)
	}
	if err := m.click(ctx, drv, submit); err != nil {
		if !errors.Is(err, types.ErrClickIntercepted) {
			err = fmt.Errorf("%w: %w", types.ErrClickIntercepted, err)
		}
		return fmt.Errorf("submit login form: %w", err)
	}
	m.logger.Info("Login form submitted")
	return nil
}

// fill never includes text in errors or logs
func (m *Manager) fill(ctx context.Context, drv browser.Driver, loc locator.Locator, text string) error {
	el, err := drv.WaitFor(ctx, loc, browser.Visible, m.timeouts.Login)
	if err != nil {
		return fmt.Errorf("%w: %w", types.ErrLocatorNotFound, err)
	}
	fctx, cancel := browser.WithTimeout(ctx, m.timeouts.Login)
	defer cancel()
	if err := drv.Fill(fctx, el, text); err != nil {
		return fmt.Errorf("fill %s: %w", loc.Name, err)
	}
	return nil
}

func (m *Manager) click(ctx context.Context, drv browser.Driver, el browser.Element) error {
	cctx, cancel := browser.WithTimeout(ctx, m.timeouts.Click)
	defer cancel()
	return drv.Click(cctx, el)
}
