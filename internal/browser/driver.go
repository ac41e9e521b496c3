// Package browser is the DOM driver layer: everything the automation needs
// from a browser, behind one interface, with chromedp and go-rod engines.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/ibeckermayer/tikfollow/internal/config"
	"github.com/ibeckermayer/tikfollow/internal/locator"
)

// Condition is the predicate WaitFor waits on
type Condition int

const (
	// Present means attached to the DOM
	Present Condition = iota
	// Visible means attached and rendered with a box
	Visible
	// Clickable means visible and enabled
	Clickable
)

func (c Condition) String() string {
	switch c {
	case Visible:
		return "visible"
	case Clickable:
		return "clickable"
	default:
		return "present"
	}
}

// Element is an opaque handle to a located node. It is only valid for the
// Driver that returned it and until that driver navigates away.
type Element interface {
	Describe() string
}

// Driver is the DOM driver the automation runs against.
//
// Every method blocks. Slow methods are bounded by the caller's context
// deadline, and WaitFor additionally by its own timeout. Errors are wrapped
// with the sentinels from internal/types so callers can classify them.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	WaitFor(ctx context.Context, loc locator.Locator, cond Condition, timeout time.Duration) (Element, error)
	FindAll(ctx context.Context, loc locator.Locator) ([]Element, error)
	Click(ctx context.Context, el Element) error
	Fill(ctx context.Context, el Element, text string) error
	ReadAttribute(ctx context.Context, el Element, name string) (string, bool, error)
	ReadText(ctx context.Context, el Element) (string, error)
	EvaluateScript(ctx context.Context, script string, res any) error
	CurrentURL(ctx context.Context) (string, error)
	Close() error
}

// Launcher starts a browser and hands back a Driver for it
type Launcher interface {
	Launch(ctx context.Context) (Driver, error)
}

// NewLauncher picks the engine named in cfg
func NewLauncher(cfg config.BrowserConfig) (Launcher, error) {
	switch cfg.Engine {
	case config.EngineChromedp, "":
		return &ChromeLauncher{Config: cfg}, nil
	case config.EngineRod:
		return &RodLauncher{Config: cfg}, nil
	default:
		return nil, fmt.Errorf("unknown browser engine %q", cfg.Engine)
	}
}

// Pause blocks for d or until ctx is done. Fixed waits for unknown external
// latency (render settle, challenge solving) all go through here so they stay
// bounded and visible.
func Pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WithTimeout derives a context bounded by d; d <= 0 leaves ctx unbounded
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
