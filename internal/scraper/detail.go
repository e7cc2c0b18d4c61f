package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"attractions-crawler/internal/browser"
	"attractions-crawler/internal/models"
)

// DetailExtractor opens detail pages and reads address, phone, description
// and image. Each field is looked up on its own; a missing one falls back to
// models.NotAvailable (or no image) without affecting the others.
type DetailExtractor struct {
	driver      browser.Driver
	images      ImageAcquirer
	sel         Selectors
	waitTimeout time.Duration
	logger      *zap.Logger
}

// NewDetailExtractor creates an extractor. images may be nil to skip downloads.
func NewDetailExtractor(driver browser.Driver, images ImageAcquirer, sel Selectors, waitTimeout time.Duration, logger *zap.Logger) *DetailExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DetailExtractor{
		driver:      driver,
		images:      images,
		sel:         sel,
		waitTimeout: waitTimeout,
		logger:      logger,
	}
}

// Extract navigates to detailURL and collects its fields. Only a failed
// navigation is returned as an error.
func (e *DetailExtractor) Extract(ctx context.Context, detailURL, title string) (models.DetailInfo, error) {
	info := models.NewDetailInfo()
	log := e.logger.With(zap.String("detail_link", detailURL))

	if err := e.driver.Navigate(ctx, detailURL); err != nil {
		return info, fmt.Errorf("open detail page: %w", err)
	}
	if err := e.driver.WaitPresent(ctx, e.sel.DetailReady, e.waitTimeout); err != nil {
		log.Info("Images did not appear on detail page", zap.Error(err))
	}

	if address, err := e.address(ctx); err != nil {
		log.Info("Address information not available", zap.Error(err))
	} else {
		info.Address = address
	}

	if phone, err := e.text(ctx, e.sel.Phone); err != nil {
		log.Info("Phone information not available", zap.Error(err))
	} else {
		info.Phone = phone
	}

	if desc, err := e.text(ctx, e.sel.Description); err != nil {
		log.Info("Description information not available", zap.Error(err))
	} else {
		info.Description = desc
	}

	info.Image = e.image(ctx, log, title)

	return info, nil
}

func (e *DetailExtractor) address(ctx context.Context) (string, error) {
	street, err := e.text(ctx, e.sel.StreetAddress)
	if err != nil {
		return "", err
	}
	cityStateZip, err := e.text(ctx, e.sel.CityStateZip)
	if err != nil {
		return "", err
	}
	return street + ", " + cityStateZip, nil
}

func (e *DetailExtractor) text(ctx context.Context, selector string) (string, error) {
	el, err := e.driver.Find(ctx, selector)
	if err != nil {
		return "", err
	}
	text, err := el.Text(ctx)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (e *DetailExtractor) image(ctx context.Context, log *zap.Logger, title string) []byte {
	el, err := e.driver.Find(ctx, e.sel.SlideImage)
	if err != nil {
		log.Info("Image element not found", zap.Error(err))
		return nil
	}
	src, err := el.Attribute(ctx, "src")
	if err != nil {
		log.Info("Image source unreadable", zap.Error(err))
		return nil
	}
	if src == "" || e.images == nil {
		return nil
	}

	data, err := e.images.Acquire(ctx, src, title)
	if err != nil {
		log.Warn("Failed to download image", zap.String("image_url", src), zap.Error(err))
		return nil
	}
	if len(data) == 0 {
		return nil
	}
	return data
}
