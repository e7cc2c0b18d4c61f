package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// ChromeOptions configures the headless Chrome session
type ChromeOptions struct {
	Headless  bool
	UserAgent string
	// ExecPath overrides the Chrome binary lookup when set
	ExecPath string
	// ActionTimeout bounds navigation and element reads
	ActionTimeout time.Duration
}

// Chrome drives a single headless Chrome tab via chromedp
type Chrome struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	actionTimeout time.Duration
	logger        *zap.Logger

	generation uint64
}

// NewChrome starts the browser and opens one tab
func NewChrome(opts ChromeOptions, logger *zap.Logger) (*Chrome, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = 30 * time.Second
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.WindowSize(1920, 1080),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Start the browser now so a missing binary fails before the crawl begins
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("chromedp start: %w", err)
	}

	return &Chrome{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		actionTimeout: opts.ActionTimeout,
		logger:        logger,
	}, nil
}

// Close shuts down the tab and the browser process
func (c *Chrome) Close() error {
	if c == nil {
		return nil
	}
	c.browserCancel()
	c.allocCancel()
	return nil
}

// run executes actions in the tab, bounded by timeout and cancelled with ctx
func (c *Chrome) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	taskCtx, cancel := context.WithTimeout(c.browserCtx, timeout)
	defer cancel()

	stop := forwardCancel(ctx, cancel)
	defer stop()

	return chromedp.Run(taskCtx, actions...)
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}

// Navigate loads url and waits for the document body
func (c *Chrome) Navigate(ctx context.Context, url string) error {
	c.generation++
	err := c.run(ctx, c.actionTimeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return NewNetworkError(url, err)
	}
	c.logger.Debug("Navigated", zap.String("url", url), zap.Uint64("generation", c.generation))
	return nil
}

// Back goes one entry back in the tab history
func (c *Chrome) Back(ctx context.Context) error {
	c.generation++
	err := c.run(ctx, c.actionTimeout,
		chromedp.NavigateBack(),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return NewNetworkError("history:back", err)
	}
	return nil
}

// CurrentURL returns the tab location
func (c *Chrome) CurrentURL(ctx context.Context) (string, error) {
	var loc string
	if err := c.run(ctx, c.actionTimeout, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("read location: %w", err)
	}
	return loc, nil
}

// WaitPresent polls until selector matches an element in the DOM
func (c *Chrome) WaitPresent(ctx context.Context, selector string, timeout time.Duration) error {
	err := c.run(ctx, timeout, chromedp.WaitReady(selector, chromedp.ByQuery))
	if err != nil {
		return waitError(selector, err)
	}
	return nil
}

// WaitClickable polls until selector matches a visible, enabled element
func (c *Chrome) WaitClickable(ctx context.Context, selector string, timeout time.Duration) (Element, error) {
	var nodes []*cdp.Node
	err := c.run(ctx, timeout,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.WaitEnabled(selector, chromedp.ByQuery),
		chromedp.Nodes(selector, &nodes, chromedp.ByQuery),
	)
	if err != nil {
		return nil, waitError(selector, err)
	}
	if len(nodes) == 0 {
		return nil, notFound(selector)
	}
	return c.element(nodes[0], selector), nil
}

// Find returns the first element matching selector without waiting
func (c *Chrome) Find(ctx context.Context, selector string) (Element, error) {
	els, err := c.FindAll(ctx, selector)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, notFound(selector)
	}
	return els[0], nil
}

// FindAll returns every element matching selector without waiting
func (c *Chrome) FindAll(ctx context.Context, selector string) ([]Element, error) {
	var nodes []*cdp.Node
	err := c.run(ctx, c.actionTimeout,
		chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)),
	)
	if err != nil {
		return nil, waitError(selector, err)
	}
	return c.elements(nodes, selector), nil
}

// Click activates an element located by this driver
func (c *Chrome) Click(ctx context.Context, el Element) error {
	ce, ok := el.(*chromeElement)
	if !ok || ce.driver != c {
		return fmt.Errorf("element does not belong to this driver")
	}
	if err := ce.check(); err != nil {
		return err
	}
	c.generation++
	err := c.run(ctx, c.actionTimeout,
		chromedp.Click([]cdp.NodeID{ce.node.NodeID}, chromedp.ByNodeID),
	)
	if err != nil {
		return elementError(ce.selector, err)
	}
	return nil
}

func (c *Chrome) element(node *cdp.Node, selector string) *chromeElement {
	return &chromeElement{
		driver:     c,
		node:       node,
		selector:   selector,
		generation: c.generation,
	}
}

func (c *Chrome) elements(nodes []*cdp.Node, selector string) []Element {
	out := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, c.element(n, selector))
	}
	return out
}

type chromeElement struct {
	driver     *Chrome
	node       *cdp.Node
	selector   string
	generation uint64
}

func (e *chromeElement) check() error {
	if e.generation != e.driver.generation {
		return stale(e.selector)
	}
	return nil
}

func (e *chromeElement) ids() []cdp.NodeID {
	return []cdp.NodeID{e.node.NodeID}
}

func (e *chromeElement) Text(ctx context.Context) (string, error) {
	if err := e.check(); err != nil {
		return "", err
	}
	var text string
	err := e.driver.run(ctx, e.driver.actionTimeout,
		chromedp.Text(e.ids(), &text, chromedp.ByNodeID),
	)
	if err != nil {
		return "", elementError(e.selector, err)
	}
	return text, nil
}

func (e *chromeElement) Attribute(ctx context.Context, name string) (string, error) {
	if err := e.check(); err != nil {
		return "", err
	}
	if name != "href" && name != "src" {
		return e.node.AttributeValue(name), nil
	}
	// The DOM property carries the resolved absolute URL
	var value string
	err := e.driver.run(ctx, e.driver.actionTimeout,
		chromedp.JavascriptAttribute(e.ids(), name, &value, chromedp.ByNodeID),
	)
	if err != nil {
		return "", elementError(e.selector, err)
	}
	return value, nil
}

func (e *chromeElement) Find(ctx context.Context, selector string) (Element, error) {
	els, err := e.FindAll(ctx, selector)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, notFound(selector)
	}
	return els[0], nil
}

func (e *chromeElement) FindAll(ctx context.Context, selector string) ([]Element, error) {
	if err := e.check(); err != nil {
		return nil, err
	}
	var nodes []*cdp.Node
	err := e.driver.run(ctx, e.driver.actionTimeout,
		chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.FromNode(e.node), chromedp.AtLeast(0)),
	)
	if err != nil {
		return nil, elementError(selector, err)
	}
	return e.driver.elements(nodes, selector), nil
}

func waitError(selector string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return timeout(selector, err)
	}
	return &Error{Kind: ElementNotFound, Selector: selector, Err: err}
}

// elementError maps failures reading an existing handle. Chrome drops node
// IDs when the DOM is rebuilt, which surfaces here as a stale reference.
func elementError(selector string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return timeout(selector, err)
	}
	return &Error{Kind: StaleReference, Selector: selector, Err: err}
}
