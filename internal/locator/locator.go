// Package locator isolates everything that depends on the platform's markup.
// The platform changes its DOM often; when automation breaks, this package is
// the only one that should need to change.
package locator

import "fmt"

// Strategy selects how a Locator's query is interpreted
type Strategy int

const (
	CSS Strategy = iota
	XPath
)

func (s Strategy) String() string {
	if s == XPath {
		return "xpath"
	}
	return "css"
}

// Locator names an element query
type Locator struct {
	Name     string
	Query    string
	Strategy Strategy
}

func (l Locator) String() string {
	return fmt.Sprintf("%s (%s %s)", l.Name, l.Strategy, l.Query)
}

// ByCSS builds a CSS selector locator
func ByCSS(name, query string) Locator {
	return Locator{Name: name, Query: query, Strategy: CSS}
}

// ByXPath builds an XPath locator
func ByXPath(name, query string) Locator {
	return Locator{Name: name, Query: query, Strategy: XPath}
}
