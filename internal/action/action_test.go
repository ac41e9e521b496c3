package action

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/ibeckermayer/tikfollow/internal/browser/browsertest"
	"github.com/ibeckermayer/tikfollow/internal/config"
	"github.com/ibeckermayer/tikfollow/internal/locator"
	"github.com/ibeckermayer/tikfollow/internal/session"
	"github.com/ibeckermayer/tikfollow/internal/types"
)

var (
	site   = locator.NewSite("https://tiktok.test")
	target = types.TargetProfile{Handle: "creator"}
	video  = types.VideoItem{URL: "https://tiktok.test/@creator/video/1"}
)

func setup(t *testing.T) (*Applicator, *browsertest.Driver, *session.Session) {
	t.Helper()
	d := browsertest.New()
	d.ScriptLogin(site, "https://tiktok.test/foryou")
	creds := types.Credentials{Identifier: "alice", Secret: "hunter2"}
	s, err := session.NewManager(site, config.TimeoutsConfig{}, zap.NewNop()).Establish(context.Background(), d, creds)
	require.NoError(t, err)
	d.Calls = nil
	return New(site, config.TimeoutsConfig{}, zaptest.NewLogger(t)), d, s
}

func followButton(d *browsertest.Driver, label string) *browsertest.Element {
	el := &browsertest.Element{Ref: "follow", Text: label}
	d.Page(site.ProfileURL(target.Handle)).Add(locator.FollowButton, el)
	return el
}

func likeIcon(d *browsertest.Driver, url string, attrs map[string]string) *browsertest.Element {
	el := &browsertest.Element{Ref: "like", Attrs: attrs}
	d.Page(url).Add(locator.LikeIcon, el)
	return el
}

func TestFollowAlreadySatisfied(t *testing.T) {
	for _, label := range []string{"Following", "Requested"} {
		t.Run(label, func(t *testing.T) {
			a, d, s := setup(t)
			followButton(d, label)

			o := a.Follow(context.Background(), s, target)
			assert.Equal(t, types.AlreadySatisfied, o.Status)
			assert.Equal(t, "@creator", o.Subject)
			assert.Zero(t, d.Mutations())
		})
	}
}

func TestFollowApplied(t *testing.T) {
	a, d, s := setup(t)
	followButton(d, "Follow")

	o := a.Follow(context.Background(), s, target)
	assert.Equal(t, types.Applied, o.Status)
	assert.Equal(t, types.ActionFollow, o.Action)
	assert.Equal(t, []string{"follow"}, d.Args("click"))
	assert.Equal(t, []string{site.ProfileURL("creator")}, d.Args("navigate"))
}

func TestFollowMissingControl(t *testing.T) {
	a, d, s := setup(t)

	o := a.Follow(context.Background(), s, target)
	assert.Equal(t, types.Failed, o.Status)
	assert.Equal(t, types.ReasonLocatorNotFound, o.Reason)
	assert.Zero(t, d.Mutations())
}

func TestFollowDisabledControl(t *testing.T) {
	a, d, s := setup(t)
	followButton(d, "Follow").Disabled = true

	o := a.Follow(context.Background(), s, target)
	assert.Equal(t, types.ReasonLocatorNotFound, o.Reason)
	assert.Zero(t, d.Mutations())
}

func TestFollowClickIntercepted(t *testing.T) {
	for name, clickErr := range map[string]error{
		"classified": fmt.Errorf("click follow button: %w", types.ErrClickIntercepted),
		"unknown":    errors.New("node is detached from document"),
	} {
		t.Run(name, func(t *testing.T) {
			a, d, s := setup(t)
			followButton(d, "Follow").ClickErr = clickErr

			o := a.Follow(context.Background(), s, target)
			assert.Equal(t, types.Failed, o.Status)
			assert.Equal(t, types.ReasonClickIntercepted, o.Reason)
			assert.ErrorIs(t, o.Err, types.ErrClickIntercepted)
		})
	}
}

func TestStalledControlsFailWithinBound(t *testing.T) {
	const bound = 50 * time.Millisecond
	bounded := config.TimeoutsConfig{Click: bound, Script: bound}

	cases := map[string]struct {
		arrange func(d *browsertest.Driver)
		apply   func(a *Applicator, s *session.Session) types.Outcome
		reason  types.Reason
	}{
		"follow click": {
			arrange: func(d *browsertest.Driver) {
				followButton(d, "Follow").Stalls = map[string]bool{"click": true}
			},
			apply:  func(a *Applicator, s *session.Session) types.Outcome { return a.Follow(context.Background(), s, target) },
			reason: types.ReasonClickIntercepted,
		},
		"follow label": {
			arrange: func(d *browsertest.Driver) {
				followButton(d, "Follow").Stalls = map[string]bool{"read_text": true}
			},
			apply:  func(a *Applicator, s *session.Session) types.Outcome { return a.Follow(context.Background(), s, target) },
			reason: types.ReasonLocatorNotFound,
		},
		"like click": {
			arrange: func(d *browsertest.Driver) {
				likeIcon(d, video.URL, nil).Stalls = map[string]bool{"click": true}
			},
			apply:  func(a *Applicator, s *session.Session) types.Outcome { return a.Like(context.Background(), s, video) },
			reason: types.ReasonClickIntercepted,
		},
		"like state": {
			arrange: func(d *browsertest.Driver) {
				likeIcon(d, video.URL, nil).Stalls = map[string]bool{"read_attribute": true}
			},
			apply:  func(a *Applicator, s *session.Session) types.Outcome { return a.Like(context.Background(), s, video) },
			reason: types.ReasonLocatorNotFound,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, d, s := setup(t)
			tc.arrange(d)
			a := New(site, bounded, zaptest.NewLogger(t))

			done := make(chan types.Outcome, 1)
			go func() { done <- tc.apply(a, s) }()

			select {
			case o := <-done:
				assert.Equal(t, types.Failed, o.Status)
				assert.Equal(t, tc.reason, o.Reason)
				assert.ErrorIs(t, o.Err, types.ErrTimeout)
			case <-time.After(5 * time.Second):
				t.Fatal("action still blocked long after its bound")
			}
		})
	}
}

func TestLikeAlreadySatisfied(t *testing.T) {
	a, d, s := setup(t)
	likeIcon(d, video.URL, map[string]string{locator.PressedAttr: "true"})

	o := a.Like(context.Background(), s, video)
	assert.Equal(t, types.AlreadySatisfied, o.Status)
	assert.Zero(t, d.Mutations())
}

func TestLikeApplied(t *testing.T) {
	for name, attrs := range map[string]map[string]string{
		"not pressed":  {locator.PressedAttr: "false"},
		"no attribute": nil,
	} {
		t.Run(name, func(t *testing.T) {
			a, d, s := setup(t)
			likeIcon(d, video.URL, attrs)

			o := a.Like(context.Background(), s, video)
			assert.Equal(t, types.Applied, o.Status)
			assert.Equal(t, video.URL, o.Subject)
			assert.Equal(t, []string{"like"}, d.Args("click"))
		})
	}
}

func TestLikeIsIdempotentAcrossRuns(t *testing.T) {
	a, d, s := setup(t)
	icon := likeIcon(d, video.URL, map[string]string{locator.PressedAttr: "false"})
	icon.OnClick = func(*browsertest.Driver) { icon.Attrs[locator.PressedAttr] = "true" }

	first := a.Like(context.Background(), s, video)
	second := a.Like(context.Background(), s, video)
	assert.Equal(t, types.Applied, first.Status)
	assert.Equal(t, types.AlreadySatisfied, second.Status)
	assert.Equal(t, 1, d.Count("click"))
}

func TestLikeIconNeverRenders(t *testing.T) {
	a, d, s := setup(t)
	d.Page(video.URL)

	o := a.Like(context.Background(), s, video)
	assert.Equal(t, types.Failed, o.Status)
	assert.Equal(t, types.ReasonTimeout, o.Reason)
	assert.Zero(t, d.Mutations())
}

func TestLikeNavigationError(t *testing.T) {
	a, d, s := setup(t)
	d.Page(video.URL).NavigateErr = errors.New("net::ERR_ABORTED")

	o := a.Like(context.Background(), s, video)
	assert.Equal(t, types.ReasonNavigation, o.Reason)
	assert.Zero(t, d.Count("wait_for"))
}

func TestRedirectToLoginInvalidatesSession(t *testing.T) {
	a, d, s := setup(t)
	d.Page(video.URL).RedirectTo = site.LoginURL() + "?redirect_url=video"

	o := a.Like(context.Background(), s, video)
	assert.Equal(t, types.ReasonSessionInvalid, o.Reason)
	assert.False(t, s.Active())

	d.Calls = nil
	o = a.Follow(context.Background(), s, target)
	assert.Equal(t, types.ReasonSessionInvalid, o.Reason)
	assert.Empty(t, d.Calls)
}

func TestHandleContainingLoginIsNotARedirect(t *testing.T) {
	a, d, s := setup(t)
	blogger := types.TargetProfile{Handle: "bloginger"}
	d.Page(site.ProfileURL(blogger.Handle)).Add(locator.FollowButton, &browsertest.Element{Ref: "follow", Text: "Follow"})

	o := a.Follow(context.Background(), s, blogger)
	assert.Equal(t, types.Applied, o.Status)
	assert.True(t, s.Active())
}

func TestActionsNeedActiveSession(t *testing.T) {
	a, d, s := setup(t)
	s.Invalidate()

	assert.Equal(t, types.ReasonSessionInvalid, a.Follow(context.Background(), s, target).Reason)
	assert.Equal(t, types.ReasonSessionInvalid, a.Like(context.Background(), s, video).Reason)
	assert.Empty(t, d.Calls)
}

func TestApplyDispatches(t *testing.T) {
	a, d, s := setup(t)
	followButton(d, "Following")
	likeIcon(d, video.URL, map[string]string{locator.PressedAttr: "true"})

	assert.Equal(t, types.ActionFollow, a.Apply(context.Background(), s, types.ActionFollow, target).Action)
	assert.Equal(t, types.ActionLike, a.Apply(context.Background(), s, types.ActionLike, video).Action)
	assert.Panics(t, func() { a.Apply(context.Background(), s, types.ActionLike, target) })
}
