package browser

import (
	"context"
	"strings"
	"testing"

	"github.com/chromedp/cdproto/cdp"
	"github.com/stretchr/testify/assert"

	"github.com/ibeckermayer/tikfollow/internal/locator"
	"github.com/ibeckermayer/tikfollow/internal/types"
)

func TestNodeScriptsAreFunctions(t *testing.T) {
	for _, js := range []string{hitTestJS, textJS} {
		assert.True(t, strings.HasPrefix(js, "function()"), js)
	}
}

func TestCallOnNodeNeedsBrowser(t *testing.T) {
	var hit bool
	err := callOnNode(context.Background(), &cdp.Node{NodeID: 1}, hitTestJS, &hit)
	assert.ErrorContains(t, err, "resolve node")

	var text string
	err = callOnNode(context.Background(), &cdp.Node{NodeID: 1}, textJS, &text)
	assert.Error(t, err)
	assert.Empty(t, text)
}

func TestChromeRejectsForeignElements(t *testing.T) {
	c := &Chrome{ctx: context.Background(), cancel: func() {}}
	foreign := &rodElement{loc: locator.FollowButton}

	assert.ErrorIs(t, c.Click(context.Background(), foreign), types.ErrLocatorNotFound)
	_, err := c.ReadText(context.Background(), foreign)
	assert.ErrorIs(t, err, types.ErrLocatorNotFound)
}
