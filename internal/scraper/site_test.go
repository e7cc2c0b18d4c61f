package scraper

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"attractions-crawler/internal/browser"
	"attractions-crawler/internal/models"
)

type testItem struct {
	ID          int
	Title       string
	Location    string
	NoHref      bool
	NoLocation  bool
	Street      string
	City        string
	Phone       string
	Description string
	NoImage     bool
	ImageStatus int
	DetailFails bool
}

func fullItem(id int) testItem {
	return testItem{
		ID:          id,
		Title:       fmt.Sprintf("Attraction %d", id),
		Location:    "Ocho Rios",
		Street:      fmt.Sprintf("%d Main Street", id),
		City:        "Ocho Rios, St. Ann",
		Phone:       "876-555-0100",
		Description: fmt.Sprintf("Description of attraction %d", id),
	}
}

// testSite serves a small attractions directory. Listing pages are reached
// via /list?page=N; when endless is set every page has two items and a next
// link.
type testSite struct {
	srv     *httptest.Server
	pages   [][]testItem
	endless bool

	mu           sync.Mutex
	listed       map[int]int
	detailVisits map[int]int
}

func newTestSite(t *testing.T, pages ...[]testItem) *testSite {
	t.Helper()
	s := &testSite{
		pages:        pages,
		listed:       map[int]int{},
		detailVisits: map[int]int{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /list", s.handleList)
	mux.HandleFunc("GET /detail/{id}", s.handleDetail)
	mux.HandleFunc("GET /img/{id}", s.handleImage)
	s.srv = httptest.NewServer(mux)
	t.Cleanup(s.srv.Close)
	return s
}

func (s *testSite) startURL() string {
	return s.srv.URL + "/list?page=1"
}

func (s *testSite) detailURL(id int) string {
	return s.srv.URL + "/detail/" + strconv.Itoa(id)
}

func (s *testSite) itemsOn(page int) ([]testItem, bool) {
	if s.endless {
		return []testItem{fullItem(page*100 + 1), fullItem(page*100 + 2)}, true
	}
	if page < 1 || page > len(s.pages) {
		return nil, false
	}
	return s.pages[page-1], page < len(s.pages)
}

func (s *testSite) item(id int) (testItem, bool) {
	if s.endless {
		return fullItem(id), true
	}
	for _, page := range s.pages {
		for _, it := range page {
			if it.ID == id {
				return it, true
			}
		}
	}
	return testItem{}, false
}

func (s *testSite) listedPages() map[int]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int]int, len(s.listed))
	for k, v := range s.listed {
		out[k] = v
	}
	return out
}

func (s *testSite) detailVisitCount(id int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detailVisits[id]
}

func (s *testSite) detailPagesVisited() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.detailVisits)
}

func (s *testSite) handleList(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	s.mu.Lock()
	s.listed[page]++
	s.mu.Unlock()

	items, hasNext := s.itemsOn(page)

	var b strings.Builder
	b.WriteString(`<html><body><div class="content list">`)
	for _, it := range items {
		href := ` href="/detail/` + strconv.Itoa(it.ID) + `"`
		if it.NoHref {
			href = ""
		}
		fmt.Fprintf(&b, `<div class="item">
			<div class="image"><img class="thumb" src="/thumb/%d.jpg"></div>
			<div class="info"><div class="top-info"><h4><a%s> %s </a></h4></div>`,
			it.ID, href, html.EscapeString(it.Title))
		if !it.NoLocation {
			fmt.Fprintf(&b, `<ul><li class="locations">
				%s
			</li></ul>`, html.EscapeString(it.Location))
		}
		b.WriteString(`</div></div>`)
	}
	b.WriteString(`</div><ul class="pagination">`)
	if hasNext {
		fmt.Fprintf(&b, `<li class="highlight"><a class="nxt" href="/list?page=%d">Next</a></li>`, page+1)
	}
	b.WriteString(`</ul></body></html>`)
	fmt.Fprint(w, b.String())
}

func (s *testSite) handleDetail(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(r.PathValue("id"))
	it, ok := s.item(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	s.mu.Lock()
	s.detailVisits[id]++
	s.mu.Unlock()

	if it.DetailFails {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<html><body><h1>%s</h1>`, html.EscapeString(it.Title))
	if it.Street != "" {
		fmt.Fprintf(&b, `<p><span class="street-address">%s</span><br><span class="city-state-zip">%s</span></p>`,
			html.EscapeString(it.Street), html.EscapeString(it.City))
	}
	if it.Phone != "" {
		fmt.Fprintf(&b, `<a href="tel:%s">%s</a>`, it.Phone, it.Phone)
	}
	if it.Description != "" {
		fmt.Fprintf(&b, `<div id="descriptionTab"><div class="core-styles"><p>%s</p></div></div>`,
			html.EscapeString(it.Description))
	}
	if !it.NoImage {
		fmt.Fprintf(&b, `<img class="slide-img loaded" src="/img/%d.jpg">`, it.ID)
	}
	b.WriteString(`</body></html>`)
	fmt.Fprint(w, b.String())
}

func (s *testSite) handleImage(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(strings.TrimSuffix(r.PathValue("id"), ".jpg"))
	it, ok := s.item(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if it.ImageStatus != 0 {
		w.WriteHeader(it.ImageStatus)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	fmt.Fprintf(w, "jpeg-%d", id)
}

func newTestDriver(t *testing.T, site *testSite) *browser.Static {
	t.Helper()
	d := browser.NewStatic(site.srv.Client(), "attractions-test", nil)
	t.Cleanup(func() { d.Close() })
	return d
}

func testConfig(maxPages int) Config {
	cfg := DefaultConfig()
	cfg.MaxPages = maxPages
	cfg.WaitTimeout = time.Second
	cfg.SettleDelay = 0
	return cfg
}

// memStore is an in-memory Store with the same insert-or-skip behaviour as db.DB
type memStore struct {
	mu      sync.Mutex
	last    int
	saveErr error
	onSave  func(*models.Attraction)
	records []*models.Attraction
	byLink  map[string]*models.Attraction
}

func newMemStore(last int) *memStore {
	return &memStore{last: last, byLink: map[string]*models.Attraction{}}
}

func (m *memStore) LastScrapedPage(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	last := m.last
	for _, r := range m.records {
		if r.Page > last {
			last = r.Page
		}
	}
	return last, nil
}

func (m *memStore) SaveAttraction(_ context.Context, a *models.Attraction) (models.SaveOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return 0, m.saveErr
	}
	if m.onSave != nil {
		defer m.onSave(a)
	}
	if _, ok := m.byLink[a.DetailLink]; ok {
		return models.SkippedDuplicate, nil
	}
	copied := *a
	copied.ID = int64(len(m.records) + 1)
	a.ID = copied.ID
	m.records = append(m.records, &copied)
	m.byLink[a.DetailLink] = &copied
	return models.Inserted, nil
}

func (m *memStore) pages() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r.Page)
	}
	return out
}

// fakeImages records Acquire calls and returns fixed bytes
type fakeImages struct {
	calls []string
	err   error
}

func (f *fakeImages) Acquire(_ context.Context, imageURL, title string) ([]byte, error) {
	f.calls = append(f.calls, title+"|"+imageURL)
	if f.err != nil {
		return nil, f.err
	}
	return []byte("image:" + title), nil
}
