package models

// NotAvailable is stored in place of any detail field the page did not provide
const NotAvailable = "Information not available"

// Attraction represents one crawled listing item
type Attraction struct {
	ID          int64  `db:"id" json:"id"`
	Title       string `db:"title" json:"title"`
	Location    string `db:"location" json:"location"`
	ImageSource string `db:"-" json:"image_src,omitempty"` // thumbnail URL, not persisted
	DetailLink  string `db:"detail_link" json:"detail_link"`
	Page        int    `db:"page" json:"page"`
	Address     string `db:"address" json:"address,omitempty"`
	Phone       string `db:"phone" json:"phone,omitempty"`
	Description string `db:"description" json:"description,omitempty"`
	Image       []byte `db:"image" json:"-"`
}

// HasImage reports whether image bytes were captured for the attraction
func (a *Attraction) HasImage() bool {
	return len(a.Image) > 0
}

// ListingItem holds the fields read from a single entry on a listing page.
// An empty DetailLink means the entry had no title anchor.
type ListingItem struct {
	Title       string
	Location    string
	ImageSource string
	DetailLink  string
}

// HasDetailLink reports whether the listing entry links to a detail page
func (l ListingItem) HasDetailLink() bool {
	return l.DetailLink != ""
}

// DetailInfo holds the fields read from a detail page. Text fields carry
// NotAvailable when the page lacked them; Image is empty when no image was
// downloaded.
type DetailInfo struct {
	Address     string
	Phone       string
	Description string
	Image       []byte
}

// NewDetailInfo returns a DetailInfo with every text field set to NotAvailable
func NewDetailInfo() DetailInfo {
	return DetailInfo{
		Address:     NotAvailable,
		Phone:       NotAvailable,
		Description: NotAvailable,
	}
}

func (d DetailInfo) HasAddress() bool     { return d.Address != NotAvailable }
func (d DetailInfo) HasPhone() bool       { return d.Phone != NotAvailable }
func (d DetailInfo) HasDescription() bool { return d.Description != NotAvailable }
func (d DetailInfo) HasImage() bool       { return len(d.Image) > 0 }

// NewAttraction assembles the record persisted for a listing item found on page
func NewAttraction(item ListingItem, detail DetailInfo, page int) *Attraction {
	return &Attraction{
		Title:       item.Title,
		Location:    item.Location,
		ImageSource: item.ImageSource,
		DetailLink:  item.DetailLink,
		Page:        page,
		Address:     detail.Address,
		Phone:       detail.Phone,
		Description: detail.Description,
		Image:       detail.Image,
	}
}

// SaveOutcome reports what the store did with a record
type SaveOutcome int

const (
	// Inserted means a new row was written
	Inserted SaveOutcome = iota + 1
	// SkippedDuplicate means a row with the same detail link already existed
	SkippedDuplicate
)

func (o SaveOutcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case SkippedDuplicate:
		return "skipped_duplicate"
	default:
		return "unknown"
	}
}
