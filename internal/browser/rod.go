package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"

	"github.com/ibeckermayer/tikfollow/internal/config"
	"github.com/ibeckermayer/tikfollow/internal/locator"
	"github.com/ibeckermayer/tikfollow/internal/types"
)

// RodLauncher starts Chrome through go-rod
type RodLauncher struct {
	Config config.BrowserConfig
}

// Launch starts a browser process and opens one page in it
func (l *RodLauncher) Launch(ctx context.Context) (Driver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// The browser outlives the launch context; Close tears it down
	lc := launcher.New().
		Headless(l.Config.Headless).
		Set(flags.Flag("user-agent"), userAgent(l.Config))
	for name, value := range stealthFlags {
		if value == "" {
			lc = lc.Set(flags.Flag(name))
		} else {
			lc = lc.Set(flags.Flag(name), value)
		}
	}
	if l.Config.WindowWidth > 0 && l.Config.WindowHeight > 0 {
		lc = lc.Set(flags.Flag("window-size"), strconv.Itoa(l.Config.WindowWidth)+","+strconv.Itoa(l.Config.WindowHeight))
	}

	controlURL, err := lc.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		lc.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = b.Close()
		lc.Kill()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	return &Rod{browser: b, page: page, launcher: lc}, nil
}

// Rod is a Driver backed by go-rod
type Rod struct {
	browser  *rod.Browser
	page     *rod.Page
	launcher *launcher.Launcher
}

type rodElement struct {
	el  *rod.Element
	loc locator.Locator
}

func (e *rodElement) Describe() string { return e.loc.Name }

func (r *Rod) element(el Element) (*rodElement, error) {
	re, ok := el.(*rodElement)
	if !ok || re.el == nil {
		return nil, fmt.Errorf("element %v does not belong to this browser: %w", el, types.ErrLocatorNotFound)
	}
	return re, nil
}

// classify translates rod and context errors into the shared taxonomy
func classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	var covered *rod.CoveredError
	var notInteractable *rod.NotInteractableError
	var invisible *rod.InvisibleShapeError
	var noPointer *rod.NoPointerEventsError
	switch {
	case errors.As(err, &covered), errors.As(err, &notInteractable),
		errors.As(err, &invisible), errors.As(err, &noPointer):
		return fmt.Errorf("%w: %w", types.ErrClickIntercepted, err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", types.ErrTimeout, err)
	}
	return err
}

func (r *Rod) Navigate(ctx context.Context, url string) error {
	page := r.page.Context(ctx)
	err := page.Navigate(url)
	if err == nil {
		err = page.WaitLoad()
	}
	if err != nil {
		return fmt.Errorf("navigate to %s: %w: %w", url, types.ErrNavigation, classify(ctx, err))
	}
	return nil
}

func (r *Rod) WaitFor(ctx context.Context, loc locator.Locator, cond Condition, timeout time.Duration) (Element, error) {
	wctx, cancel := WithTimeout(ctx, timeout)
	defer cancel()

	page := r.page.Context(wctx)
	var el *rod.Element
	var err error
	if loc.Strategy == locator.XPath {
		el, err = page.ElementX(loc.Query)
	} else {
		el, err = page.Element(loc.Query)
	}
	if err == nil && (cond == Visible || cond == Clickable) {
		err = el.WaitVisible()
	}
	if err == nil && cond == Clickable {
		err = el.WaitEnabled()
	}
	if err != nil {
		return nil, fmt.Errorf("wait for %s to be %s: %w", loc, cond, classify(wctx, err))
	}
	// Detach the element from the wait deadline
	return &rodElement{el: el.Context(context.Background()), loc: loc}, nil
}

func (r *Rod) FindAll(ctx context.Context, loc locator.Locator) ([]Element, error) {
	page := r.page.Context(ctx)
	var els rod.Elements
	var err error
	if loc.Strategy == locator.XPath {
		els, err = page.ElementsX(loc.Query)
	} else {
		els, err = page.Elements(loc.Query)
	}
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", loc, classify(ctx, err))
	}
	elements := make([]Element, 0, len(els))
	for _, el := range els {
		elements = append(elements, &rodElement{el: el, loc: loc})
	}
	return elements, nil
}

// Click runs rod's hit test once and clicks at the point it returns. A
// covered element fails straight away; rod's own Click would keep retrying
// until ctx ends.
func (r *Rod) Click(ctx context.Context, el Element) error {
	re, err := r.element(el)
	if err != nil {
		return err
	}
	e := re.el.Context(ctx)
	if err := e.ScrollIntoView(); err != nil {
		return fmt.Errorf("click %s: %w", re.loc.Name, classify(ctx, err))
	}
	pt, err := e.Interactable()
	if err != nil {
		return fmt.Errorf("click %s: %w", re.loc.Name, classify(ctx, err))
	}

	mouse := r.page.Context(ctx).Mouse
	err = mouse.MoveTo(*pt)
	if err == nil {
		err = mouse.Click(proto.InputMouseButtonLeft, 1)
	}
	if err != nil {
		return fmt.Errorf("click %s: %w", re.loc.Name, classify(ctx, err))
	}
	return nil
}

func (r *Rod) Fill(ctx context.Context, el Element, text string) error {
	re, err := r.element(el)
	if err != nil {
		return err
	}
	e := re.el.Context(ctx)
	err = e.SelectAllText()
	if err == nil {
		err = e.Input(text)
	}
	if err != nil {
		return fmt.Errorf("fill %s: %w", re.loc.Name, classify(ctx, err))
	}
	return nil
}

func (r *Rod) ReadAttribute(ctx context.Context, el Element, name string) (string, bool, error) {
	re, err := r.element(el)
	if err != nil {
		return "", false, err
	}
	v, err := re.el.Context(ctx).Attribute(name)
	if err != nil {
		return "", false, fmt.Errorf("read %s of %s: %w", name, re.loc.Name, classify(ctx, err))
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (r *Rod) ReadText(ctx context.Context, el Element) (string, error) {
	re, err := r.element(el)
	if err != nil {
		return "", err
	}
	text, err := re.el.Context(ctx).Text()
	if err != nil {
		return "", fmt.Errorf("read text of %s: %w", re.loc.Name, classify(ctx, err))
	}
	return text, nil
}

// EvaluateScript runs script and decodes its JSON value into res
func (r *Rod) EvaluateScript(ctx context.Context, script string, res any) error {
	obj, err := r.page.Context(ctx).Eval(script)
	if err != nil {
		return classify(ctx, err)
	}
	if res == nil {
		return nil
	}
	data, err := json.Marshal(obj.Value.Val())
	if err != nil {
		return err
	}
	return json.Unmarshal(data, res)
}

func (r *Rod) CurrentURL(ctx context.Context) (string, error) {
	info, err := r.page.Context(ctx).Info()
	if err != nil {
		return "", classify(ctx, err)
	}
	return info.URL, nil
}

// Close shuts the browser down
func (r *Rod) Close() error {
	err := r.browser.Close()
	r.launcher.Kill()
	return err
}
