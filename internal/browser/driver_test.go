package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/tikfollow/internal/config"
)

func TestNewLauncher(t *testing.T) {
	l, err := NewLauncher(config.BrowserConfig{Engine: config.EngineChromedp})
	require.NoError(t, err)
	assert.IsType(t, &ChromeLauncher{}, l)

	l, err = NewLauncher(config.BrowserConfig{})
	require.NoError(t, err)
	assert.IsType(t, &ChromeLauncher{}, l)

	l, err = NewLauncher(config.BrowserConfig{Engine: config.EngineRod, Headless: true})
	require.NoError(t, err)
	require.IsType(t, &RodLauncher{}, l)
	assert.True(t, l.(*RodLauncher).Config.Headless)

	_, err = NewLauncher(config.BrowserConfig{Engine: "firefox"})
	assert.ErrorContains(t, err, "firefox")
}

func TestLaunchHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&ChromeLauncher{}).Launch(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = (&RodLauncher{}).Launch(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPause(t *testing.T) {
	require.NoError(t, Pause(context.Background(), 0))
	require.NoError(t, Pause(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Pause(ctx, time.Hour), context.Canceled)
	assert.ErrorIs(t, Pause(ctx, 0), context.Canceled)
}

func TestWithTimeout(t *testing.T) {
	ctx, cancel := WithTimeout(context.Background(), 0)
	defer cancel()
	_, ok := ctx.Deadline()
	assert.False(t, ok)

	ctx2, cancel2 := WithTimeout(context.Background(), time.Minute)
	defer cancel2()
	_, ok = ctx2.Deadline()
	assert.True(t, ok)
}

func TestOptions(t *testing.T) {
	base := len(Options(config.BrowserConfig{}))
	withWindow := len(Options(config.BrowserConfig{WindowWidth: 800, WindowHeight: 600}))
	headless := len(Options(config.BrowserConfig{Headless: true}))
	assert.Equal(t, base+1, withWindow)
	assert.Equal(t, base+1, headless)

	assert.Equal(t, DefaultUserAgent, userAgent(config.BrowserConfig{}))
	assert.Equal(t, "custom", userAgent(config.BrowserConfig{UserAgent: "custom"}))
}

func TestConditionString(t *testing.T) {
	assert.Equal(t, "present", Present.String())
	assert.Equal(t, "visible", Visible.String())
	assert.Equal(t, "clickable", Clickable.String())
}
