// Package collector discovers the videos on a profile by scrolling until the
// page stops growing.
package collector

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ibeckermayer/tikfollow/internal/browser"
	"github.com/ibeckermayer/tikfollow/internal/config"
	"github.com/ibeckermayer/tikfollow/internal/locator"
	"github.com/ibeckermayer/tikfollow/internal/session"
	"github.com/ibeckermayer/tikfollow/internal/types"
)

// Poll is one height measurement of a pass. Round 0 is taken before the
// first scroll.
type Poll struct {
	Round  int
	Height int64
	Items  int
	Err    error
}

// Pass is the result of one discovery pass over a profile
type Pass struct {
	Target types.TargetProfile
	// Items are in discovery order, without duplicates
	Items []types.VideoItem
	Polls []Poll
	// Converged is false when the scroll cap was reached first
	Converged bool
	// Err is whatever cut the pass short; the items found so far still count
	Err error
}

// Collector runs discovery passes
type Collector struct {
	site       locator.Site
	pagination config.PaginationConfig
	timeouts   config.TimeoutsConfig
	logger     *zap.Logger
}

// New creates a collector
func New(site locator.Site, pagination config.PaginationConfig, timeouts config.TimeoutsConfig, logger *zap.Logger) *Collector {
	return &Collector{site: site, pagination: pagination, timeouts: timeouts, logger: logger}
}

// Collect always starts from the top of the target's profile. It never
// fails: problems end the pass early and are recorded in Pass.Err.
func (c *Collector) Collect(ctx context.Context, sess *session.Session, target types.TargetProfile) *Pass {
	pass := &Pass{Target: target}
	if !sess.Active() {
		pass.Err = fmt.Errorf("collect %s: %w", target, types.ErrSessionInvalid)
		return pass
	}
	drv := sess.Driver()
	logger := c.logger.With(zap.Stringer("target", target))

	navCtx, cancel := browser.WithTimeout(ctx, c.timeouts.Navigation)
	err := drv.Navigate(navCtx, c.site.ProfileURL(target.Handle))
	cancel()
	if err != nil {
		pass.Err = err
		logger.Warn("Profile did not load, nothing collected", zap.Error(err))
		return pass
	}
	if err := browser.Pause(ctx, c.pagination.InitialRender); err != nil {
		pass.Err = err
		return pass
	}

	seen := make(map[string]bool)
	harvest := func() {
		for _, item := range c.harvest(ctx, drv, logger) {
			if !seen[item.URL] {
				seen[item.URL] = true
				pass.Items = append(pass.Items, item)
			}
		}
	}

	highwater, err := c.measure(ctx, drv)
	harvest()
	pass.Polls = append(pass.Polls, Poll{Round: 0, Height: highwater, Items: len(pass.Items), Err: err})

	// Heights are compared with the highest seen so far, not the last reading
	stable := 0
	for round := 1; round <= c.pagination.MaxScrolls; round++ {
		height, err := c.scroll(ctx, drv)
		switch {
		case err != nil:
			// A failed tick counts as no growth
			stable++
		case height > highwater:
			highwater = height
			stable = 0
		case height == highwater:
			stable++
		default:
			// Shrinking is a render glitch, not convergence
			stable = 0
		}
		harvest()
		pass.Polls = append(pass.Polls, Poll{Round: round, Height: height, Items: len(pass.Items), Err: err})
		logger.Debug("Scrolled",
			zap.Int("round", round),
			zap.Int64("height", height),
			zap.Int("items", len(pass.Items)),
			zap.Error(err))

		if ctx.Err() != nil {
			pass.Err = ctx.Err()
			break
		}
		if stable >= c.pagination.StableRounds {
			pass.Converged = true
			break
		}
	}

	if !pass.Converged && pass.Err == nil {
		logger.Info("Scroll limit reached before the page settled", zap.Int("max_scrolls", c.pagination.MaxScrolls))
	}
	logger.Info("Collected videos", zap.Int("count", len(pass.Items)), zap.Int("polls", len(pass.Polls)))
	return pass
}

func (c *Collector) scroll(ctx context.Context, drv browser.Driver) (int64, error) {
	sctx, cancel := browser.WithTimeout(ctx, c.timeouts.Script)
	err := drv.EvaluateScript(sctx, locator.ScrollToBottom, nil)
	cancel()
	if err != nil {
		return 0, fmt.Errorf("scroll: %w", err)
	}
	if err := browser.Pause(ctx, c.pagination.Settle); err != nil {
		return 0, err
	}
	return c.measure(ctx, drv)
}

func (c *Collector) measure(ctx context.Context, drv browser.Driver) (int64, error) {
	sctx, cancel := browser.WithTimeout(ctx, c.timeouts.Script)
	defer cancel()
	var height int64
	if err := drv.EvaluateScript(sctx, locator.ContentHeight, &height); err != nil {
		return 0, fmt.Errorf("measure height: %w", err)
	}
	return height, nil
}

// harvest reads the links currently in the DOM
func (c *Collector) harvest(ctx context.Context, drv browser.Driver, logger *zap.Logger) []types.VideoItem {
	sctx, cancel := browser.WithTimeout(ctx, c.timeouts.Script)
	defer cancel()

	els, err := drv.FindAll(sctx, locator.PostItemLink)
	if err != nil {
		logger.Debug("Could not list post links", zap.Error(err))
		return nil
	}
	items := make([]types.VideoItem, 0, len(els))
	for _, el := range els {
		href, ok, err := drv.ReadAttribute(sctx, el, locator.LinkAttr)
		if err != nil || !ok {
			continue
		}
		if url := c.site.Resolve(href); url != "" {
			items = append(items, types.VideoItem{URL: url})
		}
	}
	return items
}

// Elapsed is the upper bound on the sleeping a pass does with cfg
func Elapsed(cfg config.PaginationConfig) time.Duration {
	return cfg.InitialRender + time.Duration(cfg.MaxScrolls)*cfg.Settle
}
