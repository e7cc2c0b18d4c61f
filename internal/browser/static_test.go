package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/list", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<ul>
				<li class="item"><a href="/detail/1">  First
					item </a><img src="img/1.jpg"></li>
				<li class="item"><a href="/detail/2">Second</a></li>
			</ul>
			<a class="next" href="/list?page=2">Next</a>
			<a class="empty" href="">Nowhere</a>
			<button class="off" disabled>Off</button>
		</body></html>`)
	})
	mux.HandleFunc("/detail/1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><h1>Detail one</h1></body></html>`)
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestStaticFindAndAttributes(t *testing.T) {
	ctx := context.Background()
	srv := newSite(t)
	d := NewStatic(srv.Client(), "test-agent", nil)
	defer d.Close()

	require.NoError(t, d.Navigate(ctx, srv.URL+"/list"))

	items, err := d.FindAll(ctx, "li.item")
	require.NoError(t, err)
	require.Len(t, items, 2)

	link, err := items[0].Find(ctx, "a")
	require.NoError(t, err)

	text, err := link.Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "First item", text)

	href, err := link.Attribute(ctx, "href")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/detail/1", href)

	img, err := items[0].Find(ctx, "img")
	require.NoError(t, err)
	src, err := img.Attribute(ctx, "src")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/img/1.jpg", src)

	title, err := img.Attribute(ctx, "title")
	require.NoError(t, err)
	assert.Empty(t, title)

	_, err = items[1].Find(ctx, "img")
	assert.True(t, IsKind(err, ElementNotFound))

	none, err := d.FindAll(ctx, "table")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStaticWaits(t *testing.T) {
	ctx := context.Background()
	srv := newSite(t)
	d := NewStatic(srv.Client(), "", nil)

	assert.True(t, IsKind(d.WaitPresent(ctx, "li.item", time.Second), Timeout), "nothing loaded yet")

	require.NoError(t, d.Navigate(ctx, srv.URL+"/list"))
	assert.NoError(t, d.WaitPresent(ctx, "li.item", time.Second))
	assert.True(t, IsKind(d.WaitPresent(ctx, "div.absent", time.Second), Timeout))

	next, err := d.WaitClickable(ctx, "a.next", time.Second)
	require.NoError(t, err)
	assert.NotNil(t, next)

	_, err = d.WaitClickable(ctx, "a.empty", time.Second)
	assert.True(t, IsKind(err, Timeout))

	_, err = d.WaitClickable(ctx, "button.off", time.Second)
	assert.True(t, IsKind(err, Timeout))
}

func TestStaticNavigationInvalidatesHandles(t *testing.T) {
	ctx := context.Background()
	srv := newSite(t)
	d := NewStatic(srv.Client(), "", nil)

	require.NoError(t, d.Navigate(ctx, srv.URL+"/list"))
	link, err := d.Find(ctx, "li.item a")
	require.NoError(t, err)

	require.NoError(t, d.Click(ctx, link))
	current, err := d.CurrentURL(ctx)
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/detail/1", current)

	_, err = link.Text(ctx)
	assert.True(t, IsKind(err, StaleReference))
	assert.True(t, IsKind(d.Click(ctx, link), StaleReference))

	require.NoError(t, d.Back(ctx))
	current, err = d.CurrentURL(ctx)
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/list", current)

	_, err = link.Attribute(ctx, "href")
	assert.True(t, IsKind(err, StaleReference), "handles from before back stay stale")

	assert.ErrorIs(t, d.Back(ctx), ErrNoHistory)
}

func TestStaticNetworkErrors(t *testing.T) {
	ctx := context.Background()
	srv := newSite(t)
	d := NewStatic(srv.Client(), "", nil)

	err := d.Navigate(ctx, srv.URL+"/missing")
	require.Error(t, err)
	assert.True(t, IsKind(err, NetworkError))

	var be *Error
	require.True(t, errors.As(err, &be))
	assert.Equal(t, srv.URL+"/missing", be.URL)
}
