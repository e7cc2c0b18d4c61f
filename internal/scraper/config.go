package scraper

import "time"

// Selectors holds the CSS selectors for the listing and detail pages
type Selectors struct {
	ListingItem string `mapstructure:"listing_item"`
	TitleLink   string `mapstructure:"title_link"`
	Location    string `mapstructure:"location"`
	Thumbnail   string `mapstructure:"thumbnail"`
	NextPage    string `mapstructure:"next_page"`

	DetailReady   string `mapstructure:"detail_ready"`
	StreetAddress string `mapstructure:"street_address"`
	CityStateZip  string `mapstructure:"city_state_zip"`
	Phone         string `mapstructure:"phone"`
	Description   string `mapstructure:"description"`
	SlideImage    string `mapstructure:"slide_image"`
}

// DefaultSelectors matches the attractions directory markup
func DefaultSelectors() Selectors {
	return Selectors{
		ListingItem: "div.content.list div.item",
		TitleLink:   "div.info div.top-info h4 a",
		Location:    "li.locations",
		Thumbnail:   "div.image img.thumb",
		NextPage:    "li.highlight a.nxt",

		DetailReady:   "img",
		StreetAddress: ".street-address",
		CityStateZip:  ".city-state-zip",
		Phone:         "a[href^='tel:']",
		Description:   "#descriptionTab .core-styles",
		SlideImage:    "img.slide-img.loaded",
	}
}

// Config holds scraper configuration
type Config struct {
	// MaxPages is the number of listing pages visited per run
	MaxPages int
	// WaitTimeout bounds every wait for elements to appear
	WaitTimeout time.Duration
	// SettleDelay is an extra pause after returning to or advancing the listing
	SettleDelay time.Duration
	Selectors   Selectors
}

// DefaultConfig returns default scraper settings
func DefaultConfig() Config {
	return Config{
		MaxPages:    10,
		WaitTimeout: 10 * time.Second,
		SettleDelay: time.Second,
		Selectors:   DefaultSelectors(),
	}
}
