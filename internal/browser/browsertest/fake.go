// Package browsertest provides a scripted in-memory browser.Driver for tests.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ibeckermayer/tikfollow/internal/browser"
	"github.com/ibeckermayer/tikfollow/internal/locator"
	"github.com/ibeckermayer/tikfollow/internal/types"
)

// Call records one driver invocation. Arg never carries filled text.
type Call struct {
	Op  string
	Arg string
}

// Element is a scripted DOM node
type Element struct {
	Ref   string
	Text  string
	Attrs map[string]string
	// AfterScrolls hides the element until the page was scrolled that often
	AfterScrolls int
	// GoneAfterScrolls removes it again once scrolled that often; 0 keeps it
	GoneAfterScrolls int
	Disabled         bool
	ClickErr         error
	FillErr          error
	OnClick          func(d *Driver)
	// Stalls names the ops ("click", "fill", "read_text", "read_attribute")
	// that hang until their context ends, the way a real engine keeps
	// retrying a covered node
	Stalls map[string]bool

	Value string
}

func (e *Element) Describe() string { return e.Ref }

// stall blocks until ctx ends when op is stalled on the element. A deadline
// is reported as a timeout, as the real engines do.
func (e *Element) stall(ctx context.Context, op string) error {
	if !e.Stalls[op] {
		return nil
	}
	<-ctx.Done()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", types.ErrTimeout, ctx.Err())
	}
	return ctx.Err()
}

// Page is the scripted content behind one URL
type Page struct {
	// Elements are keyed by locator query
	Elements map[string][]*Element
	// Heights is returned one entry per measurement; the last entry repeats
	Heights    []int64
	HeightErrs map[int]error
	ScrollErr  error

	NavigateErr error
	RedirectTo  string

	scrolls  int
	measured int
}

// Add appends elements under loc
func (p *Page) Add(loc locator.Locator, els ...*Element) *Page {
	p.Elements[loc.Query] = append(p.Elements[loc.Query], els...)
	return p
}

// Scrolls reports how often the page was scrolled since it was last opened
func (p *Page) Scrolls() int { return p.scrolls }

func (p *Page) visible(query string) []*Element {
	var out []*Element
	for _, el := range p.Elements[query] {
		if el.AfterScrolls > p.scrolls {
			continue
		}
		if el.GoneAfterScrolls > 0 && p.scrolls >= el.GoneAfterScrolls {
			continue
		}
		out = append(out, el)
	}
	return out
}

// Driver is an in-memory browser.Driver
type Driver struct {
	Pages         map[string]*Page
	URL           string
	CurrentURLErr error
	Calls         []Call
	Closed        bool
}

var _ browser.Driver = (*Driver)(nil)

func New() *Driver {
	return &Driver{Pages: make(map[string]*Page)}
}

// Page returns the page served at url, creating an empty one
func (d *Driver) Page(url string) *Page {
	p, ok := d.Pages[url]
	if !ok {
		p = &Page{Elements: make(map[string][]*Element)}
		d.Pages[url] = p
	}
	return p
}

// Count returns how many calls of op were made
func (d *Driver) Count(op string) int {
	n := 0
	for _, c := range d.Calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Args returns the arguments of every call of op, in order
func (d *Driver) Args(op string) []string {
	var out []string
	for _, c := range d.Calls {
		if c.Op == op {
			out = append(out, c.Arg)
		}
	}
	return out
}

// Mutations counts calls that change page state
func (d *Driver) Mutations() int {
	return d.Count("click") + d.Count("fill")
}

func (d *Driver) record(op, arg string) {
	d.Calls = append(d.Calls, Call{Op: op, Arg: arg})
}

func (d *Driver) current() *Page {
	if p, ok := d.Pages[d.URL]; ok {
		return p
	}
	return &Page{}
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("navigate to %s: %w: %w", url, types.ErrNavigation, err)
	}
	d.record("navigate", url)
	p := d.Page(url)
	if p.NavigateErr != nil {
		return fmt.Errorf("navigate to %s: %w: %w", url, types.ErrNavigation, p.NavigateErr)
	}
	p.scrolls, p.measured = 0, 0
	d.URL = url
	if p.RedirectTo != "" {
		d.URL = p.RedirectTo
	}
	return nil
}

func (d *Driver) WaitFor(ctx context.Context, loc locator.Locator, cond browser.Condition, timeout time.Duration) (browser.Element, error) {
	d.record("wait_for", loc.Name)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, el := range d.current().visible(loc.Query) {
		if cond == browser.Clickable && el.Disabled {
			continue
		}
		return el, nil
	}
	return nil, fmt.Errorf("wait for %s to be %s: %w", loc, cond, types.ErrTimeout)
}

func (d *Driver) FindAll(ctx context.Context, loc locator.Locator) ([]browser.Element, error) {
	d.record("find_all", loc.Name)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []browser.Element
	for _, el := range d.current().visible(loc.Query) {
		out = append(out, el)
	}
	return out, nil
}

func (d *Driver) element(el browser.Element) (*Element, error) {
	e, ok := el.(*Element)
	if !ok {
		return nil, fmt.Errorf("foreign element %v: %w", el, types.ErrLocatorNotFound)
	}
	return e, nil
}

func (d *Driver) Click(ctx context.Context, el browser.Element) error {
	e, err := d.element(el)
	if err != nil {
		return err
	}
	d.record("click", e.Ref)
	if err := e.stall(ctx, "click"); err != nil {
		return fmt.Errorf("click %s: %w", e.Ref, err)
	}
	if e.ClickErr != nil {
		return e.ClickErr
	}
	if e.OnClick != nil {
		e.OnClick(d)
	}
	return nil
}

func (d *Driver) Fill(ctx context.Context, el browser.Element, text string) error {
	e, err := d.element(el)
	if err != nil {
		return err
	}
	d.record("fill", e.Ref)
	if err := e.stall(ctx, "fill"); err != nil {
		return fmt.Errorf("fill %s: %w", e.Ref, err)
	}
	if e.FillErr != nil {
		return e.FillErr
	}
	e.Value = text
	return nil
}

func (d *Driver) ReadAttribute(ctx context.Context, el browser.Element, name string) (string, bool, error) {
	e, err := d.element(el)
	if err != nil {
		return "", false, err
	}
	d.record("read_attribute", e.Ref+" "+name)
	if err := e.stall(ctx, "read_attribute"); err != nil {
		return "", false, err
	}
	v, ok := e.Attrs[name]
	return v, ok, nil
}

func (d *Driver) ReadText(ctx context.Context, el browser.Element) (string, error) {
	e, err := d.element(el)
	if err != nil {
		return "", err
	}
	d.record("read_text", e.Ref)
	if err := e.stall(ctx, "read_text"); err != nil {
		return "", err
	}
	return e.Text, nil
}

// EvaluateScript understands the height and scroll scripts from package
// locator; anything else is an error
func (d *Driver) EvaluateScript(ctx context.Context, script string, res any) error {
	d.record("evaluate", script)
	if err := ctx.Err(); err != nil {
		return err
	}
	p := d.current()
	switch script {
	case locator.ContentHeight:
		i := p.measured
		p.measured++
		if err := p.HeightErrs[i]; err != nil {
			return err
		}
		var h int64
		if n := len(p.Heights); n > 0 {
			h = p.Heights[min(i, n-1)]
		}
		out, ok := res.(*int64)
		if !ok {
			return fmt.Errorf("height result must be *int64, got %T", res)
		}
		*out = h
		return nil
	case locator.ScrollToBottom:
		if p.ScrollErr != nil {
			return p.ScrollErr
		}
		p.scrolls++
		return nil
	}
	return fmt.Errorf("unscripted script %q", script)
}

func (d *Driver) CurrentURL(ctx context.Context) (string, error) {
	d.record("current_url", d.URL)
	if d.CurrentURLErr != nil {
		return "", d.CurrentURLErr
	}
	return d.URL, nil
}

func (d *Driver) Close() error {
	d.Closed = true
	return nil
}

// Launcher hands out Driver, or fails with Err
type Launcher struct {
	Driver   *Driver
	Err      error
	Launches int
}

func (l *Launcher) Launch(ctx context.Context) (browser.Driver, error) {
	l.Launches++
	if l.Err != nil {
		return nil, l.Err
	}
	return l.Driver, nil
}

// ScriptLogin serves a login form at site's login URL whose submit button
// moves the driver to landing
func (d *Driver) ScriptLogin(site locator.Site, landing string) *Page {
	p := d.Page(site.LoginURL())
	p.Add(locator.IdentifierInput, &Element{Ref: "identifier"})
	p.Add(locator.SecretInput, &Element{Ref: "secret"})
	p.Add(locator.SubmitButton, &Element{Ref: "submit", OnClick: func(d *Driver) { d.URL = landing }})
	return p
}
