package cli

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ibeckermayer/tikfollow/internal/browser"
	"github.com/ibeckermayer/tikfollow/internal/config"
	"github.com/ibeckermayer/tikfollow/internal/locator"
	"github.com/ibeckermayer/tikfollow/internal/logging"
)

const botTestURL = "https://bot.sannysoft.com"

var pageBody = locator.ByCSS("page body", "body")

// newBotTestCommand opens a fingerprint audit page with the same launch
// options as a run, so the stealth flags can be inspected by eye
func newBotTestCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bot-test",
		Short: "Open " + botTestURL + " with the run's browser settings",
		Args:  cobra.NoArgs,
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

			// Always windowed so there is something to look at
			cfg.Browser.Headless = false
			launcher, err := browser.NewLauncher(cfg.Browser)
			if err != nil {
				return err
			}

			logger.Info("Opening fingerprint audit page", zap.String("url", botTestURL), zap.String("engine", cfg.Browser.Engine))
			ctx := cmd.Context()
			drv, err := launcher.Launch(ctx)
			if err != nil {
				return err
			}
			defer drv.Close()

			navCtx, cancel := browser.WithTimeout(ctx, cfg.Timeouts.Navigation)
			defer cancel()
			if err := drv.Navigate(navCtx, botTestURL); err != nil {
				return fmt.Errorf("failed to navigate: %w", err)
			}
			if _, err := drv.WaitFor(ctx, pageBody, browser.Visible, cfg.Timeouts.Navigation); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Press Enter to close the browser...")
			_, _ = bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			logger.Info("Done")
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.engine, "engine", config.EngineChromedp, "browser engine: chromedp or rod")
	return cmd
}
