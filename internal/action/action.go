// Package action applies follow and like to a single profile or video.
// Every mutating click is preceded by a state check, so applying an action
// that already holds issues no clicks at all.
package action

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ibeckermayer/tikfollow/internal/browser"
	"github.com/ibeckermayer/tikfollow/internal/config"
	"github.com/ibeckermayer/tikfollow/internal/locator"
	"github.com/ibeckermayer/tikfollow/internal/session"
	"github.com/ibeckermayer/tikfollow/internal/types"
)

// Applicator performs idempotent actions inside a session
type Applicator struct {
	site     locator.Site
	timeouts config.TimeoutsConfig
	logger   *zap.Logger
}

// New creates an Applicator
func New(site locator.Site, timeouts config.TimeoutsConfig, logger *zap.Logger) *Applicator {
	return &Applicator{site: site, timeouts: timeouts, logger: logger}
}

// Apply runs kind against entity: follow takes a TargetProfile, like takes
// a VideoItem. Any other pairing is a programming error.
func (a *Applicator) Apply(ctx context.Context, sess *session.Session, kind types.ActionKind, entity any) types.Outcome {
	switch kind {
	case types.ActionFollow:
		if target, ok := entity.(types.TargetProfile); ok {
			return a.Follow(ctx, sess, target)
		}
	case types.ActionLike:
		if item, ok := entity.(types.VideoItem); ok {
			return a.Like(ctx, sess, item)
		}
	}
	panic(fmt.Sprintf("action: cannot %s a %T", kind, entity))
}

// Follow follows target unless its follow control already reports an
// active or pending relationship
func (a *Applicator) Follow(ctx context.Context, sess *session.Session, target types.TargetProfile) types.Outcome {
	subject := target.String()
	drv, err := a.open(ctx, sess, a.site.ProfileURL(target.Handle))
	if err != nil {
		return a.fail(types.ActionFollow, subject, err)
	}

	button, err := drv.WaitFor(ctx, locator.FollowButton, browser.Clickable, a.timeouts.Follow)
	if err != nil {
		return a.fail(types.ActionFollow, subject, fmt.Errorf("%w: %w", types.ErrLocatorNotFound, err))
	}
	label, err := a.readText(ctx, drv, button)
	if err != nil {
		return a.fail(types.ActionFollow, subject, fmt.Errorf("%w: %w", types.ErrLocatorNotFound, err))
	}
	if locator.IsActiveRelationship(label) {
		return types.Satisfied(types.ActionFollow, subject)
	}

	if err := a.click(ctx, drv, button); err != nil {
		return a.fail(types.ActionFollow, subject, err)
	}
	return types.Done(types.ActionFollow, subject)
}

// Like likes item unless its like control is already pressed
func (a *Applicator) Like(ctx context.Context, sess *session.Session, item types.VideoItem) types.Outcome {
	subject := item.URL
	drv, err := a.open(ctx, sess, item.URL)
	if err != nil {
		return a.fail(types.ActionLike, subject, err)
	}
	if err := browser.Pause(ctx, a.timeouts.VideoRender); err != nil {
		return a.fail(types.ActionLike, subject, err)
	}

	// A missing icon here usually means the video is still rendering
	icon, err := drv.WaitFor(ctx, locator.LikeIcon, browser.Present, a.timeouts.Like)
	if err != nil {
		return a.fail(types.ActionLike, subject, err)
	}
	pressed, ok, err := a.readAttribute(ctx, drv, icon, locator.PressedAttr)
	if err != nil {
		return a.fail(types.ActionLike, subject, fmt.Errorf("%w: %w", types.ErrLocatorNotFound, err))
	}
	if ok && locator.IsPressed(pressed) {
		return types.Satisfied(types.ActionLike, subject)
	}

	if err := a.click(ctx, drv, icon); err != nil {
		return a.fail(types.ActionLike, subject, err)
	}
	return types.Done(types.ActionLike, subject)
}

// open navigates to url and checks the session survived the trip
func (a *Applicator) open(ctx context.Context, sess *session.Session, url string) (browser.Driver, error) {
	if !sess.Active() {
		return nil, fmt.Errorf("open %s: %w", url, types.ErrSessionInvalid)
	}
	drv := sess.Driver()

	navCtx, cancel := browser.WithTimeout(ctx, a.timeouts.Navigation)
	err := drv.Navigate(navCtx, url)
	cancel()
	if err != nil {
		return nil, err
	}

	urlCtx, cancel := browser.WithTimeout(ctx, a.timeouts.Script)
	current, err := drv.CurrentURL(urlCtx)
	cancel()
	if err != nil {
		a.logger.Debug("Could not read location", zap.String("url", url), zap.Error(err))
		return drv, nil
	}
	if current != url && a.site.IsLoginSurface(current) {
		sess.Invalidate()
		return nil, fmt.Errorf("redirected to %s: %w", current, types.ErrSessionInvalid)
	}
	return drv, nil
}

func (a *Applicator) readText(ctx context.Context, drv browser.Driver, el browser.Element) (string, error) {
	rctx, cancel := browser.WithTimeout(ctx, a.timeouts.Script)
	defer cancel()
	return drv.ReadText(rctx, el)
}

func (a *Applicator) readAttribute(ctx context.Context, drv browser.Driver, el browser.Element, name string) (string, bool, error) {
	rctx, cancel := browser.WithTimeout(ctx, a.timeouts.Script)
	defer cancel()
	return drv.ReadAttribute(rctx, el, name)
}

// click presses el within the click timeout and gives the page a moment to
// register it. Any failure to press counts as intercepted.
func (a *Applicator) click(ctx context.Context, drv browser.Driver, el browser.Element) error {
	cctx, cancel := browser.WithTimeout(ctx, a.timeouts.Click)
	err := drv.Click(cctx, el)
	cancel()
	if err != nil {
		if !errors.Is(err, types.ErrClickIntercepted) {
			err = fmt.Errorf("%w: %w", types.ErrClickIntercepted, err)
		}
		return err
	}
	if err := browser.Pause(ctx, a.timeouts.PostAction); err != nil {
		a.logger.Debug("Interrupted after click", zap.String("element", el.Describe()), zap.Error(err))
	}
	return nil
}

func (a *Applicator) fail(kind types.ActionKind, subject string, err error) types.Outcome {
	o := types.Fail(kind, subject, err)
	a.logger.Debug("Action failed",
		zap.String("action", string(kind)),
		zap.String("subject", subject),
		zap.String("reason", string(o.Reason)),
		zap.Error(err))
	return o
}
