package scraper

import (
	"context"
	"fmt"
	"strings"

	"attractions-crawler/internal/browser"
	"attractions-crawler/internal/models"
)

// ExtractListingItem reads one entry of a listing page. Failing to locate the
// title, location or thumbnail is an error for the whole item. The detail link
// is left empty when the title anchor has no href.
func ExtractListingItem(ctx context.Context, item browser.Element, sel Selectors) (models.ListingItem, error) {
	var out models.ListingItem

	title, err := findText(ctx, item, sel.TitleLink)
	if err != nil {
		return out, fmt.Errorf("title: %w", err)
	}
	out.Title = title

	location, err := findText(ctx, item, sel.Location)
	if err != nil {
		return out, fmt.Errorf("location: %w", err)
	}
	out.Location = location

	thumb, err := item.Find(ctx, sel.Thumbnail)
	if err != nil {
		return out, fmt.Errorf("thumbnail: %w", err)
	}
	if out.ImageSource, err = thumb.Attribute(ctx, "src"); err != nil {
		return out, fmt.Errorf("thumbnail src: %w", err)
	}

	links, err := item.FindAll(ctx, sel.TitleLink)
	if err != nil {
		return out, fmt.Errorf("detail link: %w", err)
	}
	if len(links) > 0 {
		href, err := links[0].Attribute(ctx, "href")
		if err != nil {
			return out, fmt.Errorf("detail link href: %w", err)
		}
		out.DetailLink = strings.TrimSpace(href)
	}

	return out, nil
}

func findText(ctx context.Context, el browser.Element, selector string) (string, error) {
	found, err := el.Find(ctx, selector)
	if err != nil {
		return "", err
	}
	text, err := found.Text(ctx)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
