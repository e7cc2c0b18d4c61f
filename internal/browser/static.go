package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// ErrNoHistory is returned by Back when there is no previous page.
var ErrNoHistory = errors.New("no previous page in history")

// Static drives server-rendered sites over plain HTTP. Selectors are matched
// against the fetched HTML with goquery; no JavaScript runs, so waits succeed
// or fail immediately.
type Static struct {
	client    *http.Client
	userAgent string
	logger    *zap.Logger

	doc        *goquery.Document
	current    *url.URL
	history    []string
	generation uint64
}

// NewStatic creates a static driver. A nil client uses a 30 second timeout.
func NewStatic(client *http.Client, userAgent string, logger *zap.Logger) *Static {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Static{
		client:    client,
		userAgent: userAgent,
		logger:    logger,
	}
}

// Navigate loads rawURL and records the previous page in history.
func (s *Static) Navigate(ctx context.Context, rawURL string) error {
	return s.load(ctx, rawURL)
}

// Back reloads the previous page.
func (s *Static) Back(ctx context.Context) error {
	if len(s.history) < 2 {
		return ErrNoHistory
	}
	saved := s.history
	prev := saved[len(saved)-2]
	s.history = saved[:len(saved)-2:len(saved)-2]
	if err := s.load(ctx, prev); err != nil {
		s.history = saved
		return err
	}
	return nil
}

// CurrentURL returns the URL of the loaded document.
func (s *Static) CurrentURL(_ context.Context) (string, error) {
	if s.current == nil {
		return "", nil
	}
	return s.current.String(), nil
}

func (s *Static) load(ctx context.Context, rawURL string) error {
	target, err := url.Parse(rawURL)
	if err != nil {
		return NewNetworkError(rawURL, err)
	}
	if s.current != nil {
		target = s.current.ResolveReference(target)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return NewNetworkError(target.String(), err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return NewNetworkError(target.String(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return NewNetworkError(target.String(), fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return NewNetworkError(target.String(), fmt.Errorf("parse html: %w", err))
	}

	s.doc = doc
	s.current = resp.Request.URL
	s.history = append(s.history, s.current.String())
	s.generation++
	s.logger.Debug("Loaded page", zap.String("url", s.current.String()), zap.Uint64("generation", s.generation))
	return nil
}

// WaitPresent checks selector against the loaded document.
func (s *Static) WaitPresent(_ context.Context, selector string, _ time.Duration) error {
	if s.doc == nil || s.doc.Find(selector).Length() == 0 {
		return timeout(selector, nil)
	}
	return nil
}

// WaitClickable returns the first link or enabled button matching selector.
func (s *Static) WaitClickable(_ context.Context, selector string, _ time.Duration) (Element, error) {
	if s.doc == nil {
		return nil, timeout(selector, nil)
	}
	sel := s.doc.Find(selector).First()
	if sel.Length() == 0 || !clickable(sel) {
		return nil, timeout(selector, nil)
	}
	return s.element(sel, selector), nil
}

func clickable(sel *goquery.Selection) bool {
	if _, disabled := sel.Attr("disabled"); disabled {
		return false
	}
	switch goquery.NodeName(sel) {
	case "a":
		href, ok := sel.Attr("href")
		return ok && strings.TrimSpace(href) != ""
	case "button":
		return true
	default:
		return false
	}
}

// Find returns the first element matching selector.
func (s *Static) Find(_ context.Context, selector string) (Element, error) {
	if s.doc == nil {
		return nil, notFound(selector)
	}
	sel := s.doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil, notFound(selector)
	}
	return s.element(sel, selector), nil
}

// FindAll returns every element matching selector, possibly none.
func (s *Static) FindAll(_ context.Context, selector string) ([]Element, error) {
	if s.doc == nil {
		return nil, nil
	}
	return s.elements(s.doc.Find(selector), selector), nil
}

// Click follows a link element. Buttons cannot be activated without JavaScript.
func (s *Static) Click(ctx context.Context, el Element) error {
	se, ok := el.(*staticElement)
	if !ok || se.driver != s {
		return fmt.Errorf("element does not belong to this driver")
	}
	if se.generation != s.generation {
		return stale(se.selector)
	}
	if goquery.NodeName(se.sel) != "a" {
		return fmt.Errorf("static driver cannot click <%s> elements", goquery.NodeName(se.sel))
	}
	href, _ := se.sel.Attr("href")
	return s.Navigate(ctx, href)
}

// Close releases nothing; the driver holds no process resources.
func (s *Static) Close() error {
	s.doc = nil
	return nil
}

func (s *Static) element(sel *goquery.Selection, selector string) *staticElement {
	return &staticElement{
		driver:     s,
		sel:        sel,
		selector:   selector,
		generation: s.generation,
	}
}

func (s *Static) elements(sel *goquery.Selection, selector string) []Element {
	out := make([]Element, 0, sel.Length())
	sel.Each(func(_ int, node *goquery.Selection) {
		out = append(out, s.element(node, selector))
	})
	return out
}

type staticElement struct {
	driver     *Static
	sel        *goquery.Selection
	selector   string
	generation uint64
}

func (e *staticElement) check() error {
	if e.generation != e.driver.generation {
		return stale(e.selector)
	}
	return nil
}

func (e *staticElement) Text(_ context.Context) (string, error) {
	if err := e.check(); err != nil {
		return "", err
	}
	return strings.Join(strings.Fields(e.sel.Text()), " "), nil
}

func (e *staticElement) Attribute(_ context.Context, name string) (string, error) {
	if err := e.check(); err != nil {
		return "", err
	}
	val, ok := e.sel.Attr(name)
	if !ok {
		return "", nil
	}
	if name == "href" || name == "src" {
		return e.driver.resolve(val), nil
	}
	return val, nil
}

func (e *staticElement) Find(_ context.Context, selector string) (Element, error) {
	if err := e.check(); err != nil {
		return nil, err
	}
	sel := e.sel.Find(selector).First()
	if sel.Length() == 0 {
		return nil, notFound(selector)
	}
	return e.driver.element(sel, selector), nil
}

func (e *staticElement) FindAll(_ context.Context, selector string) ([]Element, error) {
	if err := e.check(); err != nil {
		return nil, err
	}
	return e.driver.elements(e.sel.Find(selector), selector), nil
}

func (s *Static) resolve(raw string) string {
	ref, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || s.current == nil {
		return raw
	}
	return s.current.ResolveReference(ref).String()
}
