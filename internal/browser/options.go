package browser

import (
	"github.com/chromedp/chromedp"

	"github.com/ibeckermayer/tikfollow/internal/config"
)

// DefaultUserAgent is a realistic Chrome user agent
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// stealthFlags are shared by both engines
var stealthFlags = map[string]string{
	// Prevent navigator.webdriver = true detection
	"disable-blink-features":   "AutomationControlled",
	"disable-extensions":       "",
	"disable-default-apps":     "",
	"disable-infobars":         "",
	"no-first-run":             "",
	"no-default-browser-check": "",
	"start-maximized":          "",
}

// Options returns chromedp allocator options with anti-bot-detection measures.
// All browser instances should use this to ensure consistent launch configuration.
func Options(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.UserAgent(userAgent(cfg)),
	)

	for name, value := range stealthFlags {
		if value == "" {
			opts = append(opts, chromedp.Flag(name, true))
		} else {
			opts = append(opts, chromedp.Flag(name, value))
		}
	}

	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		opts = append(opts, chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight))
	}

	if cfg.Headless {
		opts = append(opts, chromedp.Flag("disable-gpu", true))
	}

	return opts
}

func userAgent(cfg config.BrowserConfig) string {
	if cfg.UserAgent != "" {
		return cfg.UserAgent
	}
	return DefaultUserAgent
}
