// Package cli is the tikfollow command tree.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ibeckermayer/tikfollow/internal/config"
)

// options are the flags shared across commands
type options struct {
	configPath string
	user       string
	engine     string
	headless   bool
	schedule   string
	debug      bool
}

// Execute runs the command tree against os.Args
func Execute() error {
	return NewRootCommand().ExecuteContext(context.Background())
}

// NewRootCommand builds the command tree
func NewRootCommand() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "tikfollow",
		Short: "Follow a TikTok account and like all of its videos",
		Long: `tikfollow logs into TikTok in a real browser, follows a target account
and likes every video on its profile. Actions that already hold are skipped,
so repeated runs are safe.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default is "+defaultConfigPath()+")")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "log at debug level")

	root.AddCommand(
		newRunCommand(opts),
		newBotTestCommand(opts),
		newConfigCommand(opts),
	)
	return root
}

// loadConfig reads the config file and applies flag overrides
func (o *options) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("engine") {
		cfg.Browser.Engine = o.engine
	}
	if flags.Changed("headless") {
		cfg.Browser.Headless = o.headless
	}
	if flags.Changed("schedule") {
		cfg.Schedule.Cron = o.schedule
	}
	if o.debug {
		cfg.Log.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func defaultConfigPath() string {
	path, err := config.ConfigPath()
	if err != nil {
		return "config.toml"
	}
	return path
}
