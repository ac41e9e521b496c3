package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ibeckermayer/tikfollow/internal/app"
	"github.com/ibeckermayer/tikfollow/internal/browser"
	"github.com/ibeckermayer/tikfollow/internal/config"
	"github.com/ibeckermayer/tikfollow/internal/logging"
	"github.com/ibeckermayer/tikfollow/internal/prompt"
	"github.com/ibeckermayer/tikfollow/internal/scheduler"
	"github.com/ibeckermayer/tikfollow/internal/types"
)

const jobName = "follow-and-like"

// inputSource is where run inputs come from when not given as flags
type inputSource interface {
	Text(label string) (string, error)
	Secret(label string) (types.Secret, error)
}

func newRunCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [target]",
		Short: "Log in, follow the target and like its videos",
		Long: `Run logs in, follows the target account and likes every video on its
profile. The target may be a handle, @handle or profile URL. Anything not
given on the command line is asked for; the password is always asked for and
is never stored.`,
		Example: `  tikfollow run @creator --user me@example.com
  tikfollow run creator --schedule "0 9 * * *" --headless`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Log.Level)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			creds, target, err := opts.inputs(prompt.NewTerminal(cmd.InOrStdin(), cmd.ErrOrStderr()), args)
			if err != nil {
				return err
			}

			launcher, err := browser.NewLauncher(cfg.Browser)
			if err != nil {
				return err
			}
			a := app.New(cfg, launcher, logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if cfg.Schedule.Cron == "" {
				return runOnce(ctx, a, creds, target, cmd.OutOrStdout())
			}
			return runScheduled(ctx, cfg, a, creds, target, cmd.OutOrStdout(), logger)
		},
	}
	cmd.Flags().StringVarP(&opts.user, "user", "u", "", "account username, email or phone")
	cmd.Flags().StringVar(&opts.engine, "engine", config.EngineChromedp, "browser engine: chromedp or rod")
	cmd.Flags().BoolVar(&opts.headless, "headless", false, "run the browser without a window")
	cmd.Flags().StringVar(&opts.schedule, "schedule", "", `repeat on a cron schedule, e.g. "0 9 * * *" or "@every 12h"`)
	return cmd
}

// inputs collects credentials and target, prompting for what is missing
func (o *options) inputs(src inputSource, args []string) (types.Credentials, types.TargetProfile, error) {
	var creds types.Credentials
	var target types.TargetProfile

	raw := ""
	if len(args) > 0 {
		raw = args[0]
	} else {
		var err error
		if raw, err = src.Text("Target account"); err != nil {
			return creds, target, err
		}
	}
	target, err := types.ParseTarget(raw)
	if err != nil {
		return creds, target, err
	}

	creds.Identifier = o.user
	if creds.Identifier == "" {
		if creds.Identifier, err = src.Text("Username"); err != nil {
			return creds, target, err
		}
	}
	if creds.Secret, err = src.Secret("Password"); err != nil {
		return creds, target, err
	}
	return creds, target, nil
}

type runner interface {
	Run(ctx context.Context, creds types.Credentials, target types.TargetProfile) (*app.Report, error)
}

func runOnce(ctx context.Context, r runner, creds types.Credentials, target types.TargetProfile, out io.Writer) error {
	report, err := r.Run(ctx, creds, target)
	if report != nil {
		report.Render(out)
	}
	return err
}

// runScheduled runs once straight away, then on every tick until ctx ends.
// Each run launches its own browser and logs in again.
func runScheduled(ctx context.Context, cfg *config.Config, r runner, creds types.Credentials, target types.TargetProfile, out io.Writer, logger *zap.Logger) error {
	sched, err := scheduler.New(cfg.Schedule, logger)
	if err != nil {
		return err
	}
	job := func(ctx context.Context) error {
		return runOnce(ctx, r, creds, target, out)
	}
	if err := sched.AddJob(ctx, jobName, cfg.Schedule.Cron, job); err != nil {
		return err
	}

	if err := sched.RunNow(ctx, jobName, job); err != nil {
		logger.Error("Run failed", zap.Error(err))
	}

	sched.Start()
	for _, job := range sched.ListJobs() {
		logger.Info("Waiting for next run", zap.String("job", job.Name), zap.Time("next", job.NextRun))
	}
	<-ctx.Done()
	sched.RemoveJob(jobName)
	<-sched.Stop().Done()
	fmt.Fprintln(out, "Scheduler stopped")
	return nil
}
