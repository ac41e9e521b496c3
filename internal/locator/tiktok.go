package locator

import (
	"net/url"
	"strings"
)

// TikTok DOM selectors.
// Update these when automation breaks.
var (
	// Login page
	LoginMethodPrompt = ByXPath("login method prompt", `//div[contains(text(),'Use phone / email / username')]`)
	IdentifierInput   = ByCSS("identifier input", `input[name="username"]`)
	SecretInput       = ByCSS("secret input", `input[name="password"]`)
	SubmitButton      = ByCSS("submit button", `button[type="submit"]`)

	// Profile page
	FollowButton = ByXPath("follow button", `//button[contains(., 'Follow')]`)
	PostItemLink = ByCSS("post item link", `div[data-e2e*="user-post-item"] a`)

	// Video page
	LikeIcon = ByCSS("like icon", `span[data-e2e*="like-icon"]`)
)

// Element attributes the automation reads
const (
	LinkAttr    = "href"
	PressedAttr = "aria-pressed"
)

// Page scripts
const (
	ContentHeight  = `document.body.scrollHeight`
	ScrollToBottom = `window.scrollTo(0, document.body.scrollHeight)`
)

// Labels shown on the follow control when the relationship already exists
// or a follow request is pending
var activeRelationshipLabels = []string{"Following", "Requested"}

// IsActiveRelationship reports whether a follow control label means the
// follow action already holds
func IsActiveRelationship(label string) bool {
	for _, l := range activeRelationshipLabels {
		if strings.Contains(label, l) {
			return true
		}
	}
	return false
}

// IsPressed reports whether a pressed-state attribute value means the
// affordance is already active
func IsPressed(value string) bool {
	return strings.EqualFold(strings.TrimSpace(value), "true")
}

// DefaultBaseURL is the platform origin
const DefaultBaseURL = "https://www.tiktok.com"

// Site builds platform URLs from a base origin
type Site struct {
	BaseURL string
}

// NewSite returns a Site for baseURL, falling back to DefaultBaseURL
func NewSite(baseURL string) Site {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return Site{BaseURL: strings.TrimRight(baseURL, "/")}
}

// LoginURL is the login entry point
func (s Site) LoginURL() string {
	return s.BaseURL + "/login"
}

// ProfileURL is the profile page of handle
func (s Site) ProfileURL(handle string) string {
	return s.BaseURL + "/@" + url.PathEscape(strings.TrimPrefix(handle, "@"))
}

// IsLoginSurface reports whether a URL still points at the login flow.
// This mirrors the platform heuristic of checking for "login" anywhere in
// the URL; an intermediate redirect can fool it either way.
func (s Site) IsLoginSurface(rawURL string) bool {
	return strings.Contains(strings.ToLower(rawURL), "login")
}

// Resolve turns an href read from the page into an absolute URL.
// It returns "" for hrefs that cannot be navigated to.
func (s Site) Resolve(href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "#") {
		return ""
	}
	base, err := url.Parse(s.BaseURL + "/")
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	u := base.ResolveReference(ref)
	u.Fragment, u.RawFragment = "", ""
	return u.String()
}
