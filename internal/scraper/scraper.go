// Package scraper walks the attractions listing, visits each detail page and
// stores one record per detail link.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"attractions-crawler/internal/browser"
	"attractions-crawler/internal/metrics"
	"attractions-crawler/internal/models"
)

const urlPollInterval = 50 * time.Millisecond

// Store is the persistence the crawl needs: the resume point and insert-or-skip
type Store interface {
	LastScrapedPage(ctx context.Context) (int, error)
	SaveAttraction(ctx context.Context, a *models.Attraction) (models.SaveOutcome, error)
}

// StopReason records why a crawl ended
type StopReason string

const (
	StopBudget     StopReason = "budget"
	StopNoItems    StopReason = "no-items"
	StopNoNextPage StopReason = "no-next-page"
	StopCancelled  StopReason = "cancelled"
)

// Summary describes a finished crawl run
type Summary struct {
	RunID        string
	StartPage    int
	LastPage     int
	PagesVisited int
	Inserted     int
	Duplicates   int
	Failed       int
	NoLink       int
	Stop         StopReason
	Duration     time.Duration
}

// Scraper orchestrates one crawl over a single browser session
type Scraper struct {
	driver  browser.Driver
	store   Store
	detail  *DetailExtractor
	config  Config
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// New creates a new Scraper instance. images and m may be nil.
func New(driver browser.Driver, store Store, images ImageAcquirer, config Config, logger *zap.Logger, m *metrics.Metrics) *Scraper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MaxPages <= 0 {
		config.MaxPages = DefaultConfig().MaxPages
	}
	if config.WaitTimeout <= 0 {
		config.WaitTimeout = DefaultConfig().WaitTimeout
	}
	return &Scraper{
		driver:  driver,
		store:   store,
		detail:  NewDetailExtractor(driver, images, config.Selectors, config.WaitTimeout, logger),
		config:  config,
		logger:  logger,
		metrics: m,
	}
}

// Run crawls up to MaxPages listing pages starting at startURL. Pages are
// numbered from one past the highest page already stored. Store failures end
// the run with an error; missing items or next-page controls end it cleanly.
func (s *Scraper) Run(ctx context.Context, startURL string) (Summary, error) {
	started := time.Now()
	sum := Summary{RunID: uuid.NewString()}
	log := s.logger.With(zap.String("run_id", sum.RunID))

	last, err := s.store.LastScrapedPage(ctx)
	if err != nil {
		return sum, fmt.Errorf("read last scraped page: %w", err)
	}
	sum.StartPage = last + 1
	endPage := sum.StartPage + s.config.MaxPages - 1

	log.Info("Starting crawl",
		zap.String("start_url", startURL),
		zap.Int("start_page", sum.StartPage),
		zap.Int("end_page", endPage))

	if err := s.driver.Navigate(ctx, startURL); err != nil {
		return sum, fmt.Errorf("open start page: %w", err)
	}

	sel := s.config.Selectors
	for page := sum.StartPage; page <= endPage; page++ {
		if err := ctx.Err(); err != nil {
			sum.Stop = StopCancelled
			return s.finish(log, sum, started), err
		}

		if err := s.driver.WaitPresent(ctx, sel.ListingItem, s.config.WaitTimeout); err != nil {
			if ctx.Err() != nil {
				sum.Stop = StopCancelled
				return s.finish(log, sum, started), ctx.Err()
			}
			log.Info("No listing items found, stopping", zap.Int("page", page), zap.Error(err))
			sum.Stop = StopNoItems
			break
		}

		items, err := s.driver.FindAll(ctx, sel.ListingItem)
		if err != nil {
			log.Info("Listing items unreadable, stopping", zap.Int("page", page), zap.Error(err))
			sum.Stop = StopNoItems
			break
		}
		listingURL, err := s.driver.CurrentURL(ctx)
		if err != nil {
			return s.finish(log, sum, started), fmt.Errorf("read listing url: %w", err)
		}

		sum.PagesVisited++
		sum.LastPage = page
		s.metrics.PageVisited()
		log.Info("Scraping page", zap.Int("page", page), zap.Int("items", len(items)), zap.String("url", listingURL))

		for i := range len(items) {
			if err := ctx.Err(); err != nil {
				sum.Stop = StopCancelled
				return s.finish(log, sum, started), err
			}
			if err := s.scrapeItem(ctx, log, listingURL, page, i, &sum); err != nil {
				return s.finish(log, sum, started), err
			}
		}

		if page == endPage {
			sum.Stop = StopBudget
			break
		}

		if !s.nextPage(ctx, log, page) {
			if ctx.Err() != nil {
				sum.Stop = StopCancelled
				return s.finish(log, sum, started), ctx.Err()
			}
			sum.Stop = StopNoNextPage
			break
		}
	}

	return s.finish(log, sum, started), nil
}

func (s *Scraper) finish(log *zap.Logger, sum Summary, started time.Time) Summary {
	sum.Duration = time.Since(started)
	log.Info("Crawl complete",
		zap.String("stop", string(sum.Stop)),
		zap.Int("pages", sum.PagesVisited),
		zap.Int("inserted", sum.Inserted),
		zap.Int("duplicates", sum.Duplicates),
		zap.Int("failed", sum.Failed),
		zap.Int("no_link", sum.NoLink),
		zap.Duration("duration", sum.Duration))
	return sum
}

// scrapeItem handles the item at index on the current listing page. Browser
// failures skip the item; only store errors are returned.
func (s *Scraper) scrapeItem(ctx context.Context, log *zap.Logger, listingURL string, page, index int, sum *Summary) error {
	log = log.With(zap.Int("page", page), zap.Int("index", index))
	sel := s.config.Selectors

	// Locate the item again; handles from before the last navigation are stale
	items, err := s.driver.FindAll(ctx, sel.ListingItem)
	if err != nil {
		s.itemFailed(log, sum, "relocate item", err)
		return nil
	}
	if index >= len(items) {
		s.itemFailed(log, sum, "relocate item", fmt.Errorf("only %d items on page", len(items)))
		return nil
	}

	item, err := ExtractListingItem(ctx, items[index], sel)
	if err != nil {
		s.itemFailed(log, sum, "extract listing item", err)
		return nil
	}
	log = log.With(zap.String("title", item.Title))

	if !item.HasDetailLink() {
		log.Info("Detail link not found for item")
		sum.NoLink++
		s.metrics.ItemProcessed(metrics.ItemNoLink)
		return nil
	}

	detail, err := s.detail.Extract(ctx, item.DetailLink, item.Title)
	if err != nil {
		s.itemFailed(log, sum, "extract detail", err)
		s.returnToListing(ctx, log, listingURL)
		return nil
	}

	record := models.NewAttraction(item, detail, page)
	outcome, err := s.store.SaveAttraction(ctx, record)
	if err != nil {
		return fmt.Errorf("save %s: %w", item.DetailLink, err)
	}

	switch outcome {
	case models.Inserted:
		sum.Inserted++
		s.metrics.ItemProcessed(metrics.ItemInserted)
		log.Info("Scraped", zap.Int64("id", record.ID), zap.Bool("image", record.HasImage()))
	case models.SkippedDuplicate:
		sum.Duplicates++
		s.metrics.ItemProcessed(metrics.ItemDuplicate)
		log.Info("Attraction already exists, skipping", zap.String("detail_link", item.DetailLink))
	}

	s.returnToListing(ctx, log, listingURL)
	return nil
}

func (s *Scraper) itemFailed(log *zap.Logger, sum *Summary, step string, err error) {
	sum.Failed++
	s.metrics.ItemProcessed(metrics.ItemFailed)
	log.Warn("Skipping item", zap.String("step", step), zap.String("kind", kindName(err)), zap.Error(err))
}

// returnToListing goes back from a detail page and waits for the listing to
// render again. It does nothing when the browser never left the listing.
func (s *Scraper) returnToListing(ctx context.Context, log *zap.Logger, listingURL string) {
	current, err := s.driver.CurrentURL(ctx)
	if err == nil && current == listingURL {
		return
	}

	if err := s.driver.Back(ctx); err != nil {
		log.Warn("Back navigation failed, reloading listing", zap.Error(err))
		if err := s.driver.Navigate(ctx, listingURL); err != nil {
			log.Warn("Reloading listing failed", zap.Error(err))
			return
		}
	}

	if err := s.driver.WaitPresent(ctx, s.config.Selectors.ListingItem, s.config.WaitTimeout); err != nil {
		log.Warn("Listing did not render after returning", zap.Error(err))
	}
	s.settle(ctx)
}

// nextPage clicks the next-page control. It reports false when there is none.
func (s *Scraper) nextPage(ctx context.Context, log *zap.Logger, page int) bool {
	next, err := s.driver.WaitClickable(ctx, s.config.Selectors.NextPage, s.config.WaitTimeout)
	if err != nil {
		log.Info("No more pages to navigate", zap.Int("page", page), zap.Error(err))
		return false
	}
	before, err := s.driver.CurrentURL(ctx)
	if err != nil {
		log.Warn("Listing url unreadable before next click", zap.Int("page", page), zap.Error(err))
		return false
	}
	if err := s.driver.Click(ctx, next); err != nil {
		log.Warn("Next page click failed", zap.Int("page", page), zap.Error(err))
		return false
	}
	if !s.waitForURLChange(ctx, before) {
		log.Warn("Listing url unchanged after next click", zap.Int("page", page), zap.String("url", before))
	}
	s.settle(ctx)
	return true
}

// waitForURLChange polls until the browser has left from, bounded by
// WaitTimeout. A click only starts the navigation; the old listing stays in
// the DOM until the new document commits.
func (s *Scraper) waitForURLChange(ctx context.Context, from string) bool {
	deadline := time.Now().Add(s.config.WaitTimeout)
	for {
		current, err := s.driver.CurrentURL(ctx)
		if err == nil && current != from {
			return true
		}
		if ctx.Err() != nil || time.Now().After(deadline) {
			return false
		}
		t := time.NewTimer(urlPollInterval)
		select {
		case <-ctx.Done():
			t.Stop()
			return false
		case <-t.C:
		}
	}
}

func (s *Scraper) settle(ctx context.Context) {
	if s.config.SettleDelay <= 0 {
		return
	}
	t := time.NewTimer(s.config.SettleDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func kindName(err error) string {
	var be *browser.Error
	if errors.As(err, &be) {
		return be.Kind.String()
	}
	return "other"
}
