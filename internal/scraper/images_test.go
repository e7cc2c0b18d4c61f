package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attractions-crawler/internal/browser"
	"attractions-crawler/internal/metrics"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Dunn's River Falls: Tour/Guide", "Dunn's_River_Falls__Tour_Guide"},
		{`a<b>c:d"e/f\g|h?i*j`, "a_b_c_d_e_f_g_h_i_j"},
		{"  Blue   Mountains\t\nPeak ", "_Blue_Mountains_Peak_"},
		{"Rose Hall", "Rose_Hall"},
	}
	for _, tt := range tests {
		got := SanitizeFilename(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.False(t, strings.ContainsAny(got, "<>:\"/\\|?* \t\n"), got)
	}
}

func TestImageFilename(t *testing.T) {
	long := strings.Repeat("é", 60)
	assert.Equal(t, strings.Repeat("é", 50)+".jpg", imageFilename(long))
	assert.Equal(t, "Rose_Hall.jpg", imageFilename("Rose Hall"))
	assert.Equal(t, "untitled.jpg", imageFilename(""))
}

func TestImageFetcherAcquire(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.jpg":
			assert.Equal(t, "attractions-test", r.UserAgent())
			fmt.Fprint(w, "jpeg-bytes")
		case "/empty.jpg":
			w.Header().Set("Content-Type", "image/jpeg")
		case "/slow.jpg":
			time.Sleep(200 * time.Millisecond)
			fmt.Fprint(w, "late")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	dir := filepath.Join(t.TempDir(), "downloaded_images")
	m := metrics.New()
	fetcher, err := NewImageFetcher(ImageOptions{
		Dir:       dir,
		Timeout:   50 * time.Millisecond,
		UserAgent: "attractions-test",
		Client:    srv.Client(),
	}, nil, m)
	require.NoError(t, err)
	require.DirExists(t, dir)

	ctx := context.Background()

	data, err := fetcher.Acquire(ctx, srv.URL+"/ok.jpg", "Dunn's River Falls: Tour/Guide")
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), data)

	onDisk, err := os.ReadFile(filepath.Join(dir, "Dunn's_River_Falls__Tour_Guide.jpg"))
	require.NoError(t, err)
	assert.Equal(t, data, onDisk)

	_, err = fetcher.Acquire(ctx, srv.URL+"/missing.jpg", "Missing")
	require.Error(t, err)
	assert.True(t, browser.IsKind(err, browser.NetworkError))
	assert.NoFileExists(t, filepath.Join(dir, "Missing.jpg"))

	_, err = fetcher.Acquire(ctx, srv.URL+"/empty.jpg", "Empty")
	require.Error(t, err)
	assert.True(t, browser.IsKind(err, browser.NetworkError))
	assert.NoFileExists(t, filepath.Join(dir, "Empty.jpg"))

	_, err = fetcher.Acquire(ctx, srv.URL+"/slow.jpg", "Slow")
	require.Error(t, err)
	assert.True(t, browser.IsKind(err, browser.NetworkError))
}

func TestNewImageFetcherRequiresDir(t *testing.T) {
	_, err := NewImageFetcher(ImageOptions{}, nil, nil)
	assert.Error(t, err)
}
