package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/ibeckermayer/tikfollow/internal/config"
	"github.com/ibeckermayer/tikfollow/internal/locator"
	"github.com/ibeckermayer/tikfollow/internal/types"
)

// hitTestJS reports whether a click at the element's center would land on it
const hitTestJS = `function() {
	const r = this.getBoundingClientRect();
	const hit = document.elementFromPoint(r.left + r.width / 2, r.top + r.height / 2);
	return hit !== null && (hit === this || this.contains(hit));
}`

const textJS = `function() { return (this.innerText || this.textContent || "").trim(); }`

// callOnNode runs fn with this bound to node and decodes its return value
// into res. ctx must carry a chromedp executor.
func callOnNode(ctx context.Context, node *cdp.Node, fn string, res any) error {
	obj, err := dom.ResolveNode().WithNodeID(node.NodeID).Do(ctx)
	if err != nil {
		return fmt.Errorf("resolve node: %w", err)
	}
	defer func() { _ = runtime.ReleaseObject(obj.ObjectID).Do(ctx) }()

	v, exp, err := runtime.CallFunctionOn(fn).
		WithObjectID(obj.ObjectID).
		WithReturnByValue(true).
		Do(ctx)
	if err != nil {
		return err
	}
	if exp != nil {
		return exp
	}
	return json.Unmarshal(v.Value, res)
}

// ChromeLauncher starts Chrome through chromedp
type ChromeLauncher struct {
	Config config.BrowserConfig
}

// Launch starts a browser process and opens one tab in it
func (l *ChromeLauncher) Launch(ctx context.Context) (Driver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), Options(l.Config)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	c := &Chrome{
		ctx: browserCtx,
		cancel: func() {
			browserCancel()
			allocCancel()
		},
	}

	// The first Run allocates the browser and ties it to the context it is
	// given, so it must be the tab context itself rather than a derived one.
	if err := chromedp.Run(browserCtx); err != nil {
		c.cancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	return c, nil
}

// Chrome is a Driver backed by chromedp
type Chrome struct {
	ctx    context.Context
	cancel context.CancelFunc
}

type chromeElement struct {
	node *cdp.Node
	loc  locator.Locator
}

func (e *chromeElement) Describe() string { return e.loc.Name }

func (c *Chrome) element(el Element) (*chromeElement, error) {
	ce, ok := el.(*chromeElement)
	if !ok || ce.node == nil {
		return nil, fmt.Errorf("element %v does not belong to this browser: %w", el, types.ErrLocatorNotFound)
	}
	return ce, nil
}

// opContext derives a context from the tab context that also ends when the
// caller's context ends, and is bounded by timeout when it is positive.
// Cancelling a derived context does not close the tab.
func (c *Chrome) opContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	opCtx, cancel := context.WithCancel(c.ctx)
	cancels := []context.CancelFunc{cancel}
	if dl, ok := ctx.Deadline(); ok {
		var cancelDl context.CancelFunc
		opCtx, cancelDl = context.WithDeadline(opCtx, dl)
		cancels = append(cancels, cancelDl)
	}
	if timeout > 0 {
		var cancelT context.CancelFunc
		opCtx, cancelT = context.WithTimeout(opCtx, timeout)
		cancels = append(cancels, cancelT)
	}
	stop := context.AfterFunc(ctx, cancel)
	return opCtx, func() {
		stop()
		for i := len(cancels) - 1; i >= 0; i-- {
			cancels[i]()
		}
	}
}

func (c *Chrome) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	opCtx, cancel := c.opContext(ctx, timeout)
	defer cancel()
	if err := chromedp.Run(opCtx, actions...); err != nil {
		if errors.Is(opCtx.Err(), context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %w", types.ErrTimeout, err)
		}
		return err
	}
	return nil
}

// queryOpts maps a locator to chromedp selector options; all selects the
// query-all variant for CSS
func queryOpts(loc locator.Locator, all bool) chromedp.QueryOption {
	if loc.Strategy == locator.XPath {
		return chromedp.BySearch
	}
	if all {
		return chromedp.ByQueryAll
	}
	return chromedp.ByQuery
}

func (c *Chrome) Navigate(ctx context.Context, url string) error {
	if err := c.run(ctx, 0, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate to %s: %w: %w", url, types.ErrNavigation, err)
	}
	return nil
}

func (c *Chrome) WaitFor(ctx context.Context, loc locator.Locator, cond Condition, timeout time.Duration) (Element, error) {
	var nodes []*cdp.Node
	opts := []chromedp.QueryOption{queryOpts(loc, false)}
	if cond == Visible || cond == Clickable {
		opts = append(opts, chromedp.NodeVisible)
	}
	actions := []chromedp.Action{chromedp.Nodes(loc.Query, &nodes, opts...)}
	if cond == Clickable {
		actions = append(actions, chromedp.WaitEnabled(loc.Query, queryOpts(loc, false)))
	}

	if err := c.run(ctx, timeout, actions...); err != nil {
		return nil, fmt.Errorf("wait for %s to be %s: %w", loc, cond, err)
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%s: %w", loc, types.ErrLocatorNotFound)
	}
	return &chromeElement{node: nodes[0], loc: loc}, nil
}

func (c *Chrome) FindAll(ctx context.Context, loc locator.Locator) ([]Element, error) {
	var nodes []*cdp.Node
	if err := c.run(ctx, 0, chromedp.Nodes(loc.Query, &nodes, queryOpts(loc, true), chromedp.AtLeast(0))); err != nil {
		return nil, fmt.Errorf("find %s: %w", loc, err)
	}
	elements := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		elements = append(elements, &chromeElement{node: n, loc: loc})
	}
	return elements, nil
}

// Click scrolls the element into view, checks that nothing covers its
// center, then dispatches a mouse click there.
func (c *Chrome) Click(ctx context.Context, el Element) error {
	ce, err := c.element(el)
	if err != nil {
		return err
	}

	var hit bool
	err = c.run(ctx, 0, chromedp.ActionFunc(func(ctx context.Context) error {
		if err := dom.ScrollIntoViewIfNeeded().WithNodeID(ce.node.NodeID).Do(ctx); err != nil {
			return err
		}
		return callOnNode(ctx, ce.node, hitTestJS, &hit)
	}))
	if err != nil {
		return fmt.Errorf("click %s: %w", ce.loc.Name, err)
	}
	if !hit {
		return fmt.Errorf("click %s: %w", ce.loc.Name, types.ErrClickIntercepted)
	}

	if err := c.run(ctx, 0, chromedp.MouseClickNode(ce.node)); err != nil {
		return fmt.Errorf("click %s: %w", ce.loc.Name, err)
	}
	return nil
}

func (c *Chrome) Fill(ctx context.Context, el Element, text string) error {
	ce, err := c.element(el)
	if err != nil {
		return err
	}
	ids := []cdp.NodeID{ce.node.NodeID}
	if err := c.run(ctx, 0,
		chromedp.SetValue(ids, "", chromedp.ByNodeID),
		chromedp.SendKeys(ids, text, chromedp.ByNodeID),
	); err != nil {
		return fmt.Errorf("fill %s: %w", ce.loc.Name, err)
	}
	return nil
}

// ReadAttribute reads the live attribute value, not the snapshot taken when
// the node was located
func (c *Chrome) ReadAttribute(ctx context.Context, el Element, name string) (string, bool, error) {
	ce, err := c.element(el)
	if err != nil {
		return "", false, err
	}

	var attrs []string
	err = c.run(ctx, 0, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		attrs, err = dom.GetAttributes(ce.node.NodeID).Do(ctx)
		return err
	}))
	if err != nil {
		return "", false, fmt.Errorf("read %s of %s: %w", name, ce.loc.Name, err)
	}

	// attrs is a flat name, value, name, value list
	for i := 0; i+1 < len(attrs); i += 2 {
		if attrs[i] == name {
			return attrs[i+1], true, nil
		}
	}
	return "", false, nil
}

func (c *Chrome) ReadText(ctx context.Context, el Element) (string, error) {
	ce, err := c.element(el)
	if err != nil {
		return "", err
	}

	var text string
	err = c.run(ctx, 0, chromedp.ActionFunc(func(ctx context.Context) error {
		return callOnNode(ctx, ce.node, textJS, &text)
	}))
	if err != nil {
		return "", fmt.Errorf("read text of %s: %w", ce.loc.Name, err)
	}
	return text, nil
}

func (c *Chrome) EvaluateScript(ctx context.Context, script string, res any) error {
	return c.run(ctx, 0, chromedp.Evaluate(script, res))
}

func (c *Chrome) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := c.run(ctx, 0, chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

// Close shuts the browser down
func (c *Chrome) Close() error {
	c.cancel()
	return nil
}
