package scraper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attractions-crawler/internal/browser"
	"attractions-crawler/internal/models"
)

func TestDetailExtractAllFields(t *testing.T) {
	site := newTestSite(t, []testItem{fullItem(1)})
	images := &fakeImages{}
	e := NewDetailExtractor(newTestDriver(t, site), images, DefaultSelectors(), time.Second, nil)

	info, err := e.Extract(context.Background(), site.detailURL(1), "Attraction 1")
	require.NoError(t, err)

	assert.Equal(t, "1 Main Street, Ocho Rios, St. Ann", info.Address)
	assert.Equal(t, "876-555-0100", info.Phone)
	assert.Equal(t, "Description of attraction 1", info.Description)
	assert.Equal(t, []byte("image:Attraction 1"), info.Image)
	assert.Equal(t, []string{"Attraction 1|" + site.srv.URL + "/img/1.jpg"}, images.calls)
}

func TestDetailExtractFieldsAreIndependent(t *testing.T) {
	it := fullItem(7)
	it.Street = ""
	it.Phone = ""
	it.NoImage = true
	site := newTestSite(t, []testItem{it})
	images := &fakeImages{}
	e := NewDetailExtractor(newTestDriver(t, site), images, DefaultSelectors(), time.Second, nil)

	info, err := e.Extract(context.Background(), site.detailURL(7), it.Title)
	require.NoError(t, err)

	assert.Equal(t, models.NotAvailable, info.Address)
	assert.False(t, info.HasAddress())
	assert.Equal(t, models.NotAvailable, info.Phone)
	assert.Equal(t, "Description of attraction 7", info.Description)
	assert.True(t, info.HasDescription())
	assert.Nil(t, info.Image)
	assert.Empty(t, images.calls)
}

func TestDetailExtractImageFailureLeavesImageAbsent(t *testing.T) {
	site := newTestSite(t, []testItem{fullItem(3)})
	images := &fakeImages{err: browser.NewNetworkError("x", errors.New("boom"))}
	e := NewDetailExtractor(newTestDriver(t, site), images, DefaultSelectors(), time.Second, nil)

	info, err := e.Extract(context.Background(), site.detailURL(3), "Attraction 3")
	require.NoError(t, err)
	assert.False(t, info.HasImage())
	assert.True(t, info.HasPhone())
	assert.Len(t, images.calls, 1)
}

func TestDetailExtractNavigationFailure(t *testing.T) {
	it := fullItem(4)
	it.DetailFails = true
	site := newTestSite(t, []testItem{it})
	e := NewDetailExtractor(newTestDriver(t, site), nil, DefaultSelectors(), time.Second, nil)

	info, err := e.Extract(context.Background(), site.detailURL(4), it.Title)
	require.Error(t, err)
	assert.True(t, browser.IsKind(err, browser.NetworkError))
	assert.Equal(t, models.NewDetailInfo(), info)
}
