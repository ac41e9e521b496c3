package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ibeckermayer/tikfollow/internal/action"
	"github.com/ibeckermayer/tikfollow/internal/browser"
	"github.com/ibeckermayer/tikfollow/internal/collector"
	"github.com/ibeckermayer/tikfollow/internal/config"
	"github.com/ibeckermayer/tikfollow/internal/locator"
	"github.com/ibeckermayer/tikfollow/internal/session"
	"github.com/ibeckermayer/tikfollow/internal/types"
)

// App runs the follow and like workflow for one target at a time.
type App struct {
	config    *config.Config
	launcher  browser.Launcher
	site      locator.Site
	sessions  *session.Manager
	collector *collector.Collector
	actions   *action.Applicator
	logger    *zap.Logger
}

// New creates a new App instance.
func New(cfg *config.Config, launcher browser.Launcher, logger *zap.Logger) *App {
	site := locator.NewSite(cfg.Platform.BaseURL)
	return &App{
		config:    cfg,
		launcher:  launcher,
		site:      site,
		sessions:  session.NewManager(site, cfg.Timeouts, logger),
		collector: collector.New(site, cfg.Pagination, cfg.Timeouts, logger),
		actions:   action.New(site, cfg.Timeouts, logger),
		logger:    logger,
	}
}

// Run logs in, follows target and likes every video on its profile.
//
// A failed login ends the run with an error before anything else touches
// the browser; the report is returned alongside it. After that, every
// failure is recorded in the report and the run carries on. Cancelling ctx
// stops between videos and the report is still returned.
func (a *App) Run(ctx context.Context, creds types.Credentials, target types.TargetProfile) (*Report, error) {
	report := &Report{
		RunID:   uuid.NewString(),
		Target:  target,
		Started: time.Now(),
	}
	defer func() { report.Finished = time.Now() }()
	logger := a.logger.With(zap.String("run", report.RunID), zap.Stringer("target", target))

	drv, err := a.launcher.Launch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	defer func() {
		if err := drv.Close(); err != nil {
			logger.Warn("Failed to close browser", zap.Error(err))
		}
	}()

	// Step 1: Log in
	logger.Info("Logging in")
	sess, err := a.sessions.Establish(ctx, drv, creds)
	report.Login = sess.State()
	if err != nil {
		report.LoginErr = err
		logger.Error("Login failed", zap.String("reason", string(types.ReasonOf(err))), zap.Error(err))
		return report, fmt.Errorf("login failed: %w", err)
	}
	defer sess.Invalidate()

	// Step 2: Follow the target
	follow := a.actions.Apply(ctx, sess, types.ActionFollow, target)
	report.Follow = &follow
	a.logOutcome(logger, follow)

	// Step 3: Discover videos
	logger.Info("Collecting videos", zap.Duration("max_wait", collector.Elapsed(a.config.Pagination)))
	pass := a.collector.Collect(ctx, sess, target)
	report.Discovered = len(pass.Items)
	report.Converged = pass.Converged
	report.DiscoveryErr = pass.Err

	// Step 4: Like each video in discovery order
	for i, item := range pass.Items {
		if ctx.Err() != nil {
			report.Interrupted = true
			logger.Warn("Interrupted, skipping remaining videos", zap.Int("remaining", len(pass.Items)-i))
			break
		}
		logger.Info("Processing video", zap.Int("index", i+1), zap.Int("total", len(pass.Items)), zap.String("url", item.URL))
		outcome := a.actions.Apply(ctx, sess, types.ActionLike, item)
		report.Likes = append(report.Likes, outcome)
		a.logOutcome(logger, outcome)
	}

	// Step 5: Leave the browser on the profile
	if !report.Interrupted && sess.Active() {
		navCtx, cancel := browser.WithTimeout(ctx, a.config.Timeouts.Navigation)
		if err := drv.Navigate(navCtx, a.site.ProfileURL(target.Handle)); err != nil {
			logger.Warn("Failed to return to profile", zap.Error(err))
		}
		cancel()
	}

	c := report.Counts()
	logger.Info("Run finished",
		zap.Int("processed", report.Processed()),
		zap.Int("applied", c.Applied),
		zap.Int("already_satisfied", c.AlreadySatisfied),
		zap.Int("failed", c.Failed))
	return report, nil
}

func (a *App) logOutcome(logger *zap.Logger, o types.Outcome) {
	fields := []zap.Field{
		zap.String("action", string(o.Action)),
		zap.String("subject", o.Subject),
		zap.Stringer("status", o.Status),
	}
	if o.Status == types.Failed {
		logger.Warn("Action failed", append(fields, zap.String("reason", string(o.Reason)), zap.Error(o.Err))...)
		return
	}
	logger.Info("Action done", fields...)
}
