package layout

// Site-wide copy
const (
	SiteName    = "Pick Up The Phone Club"
	Title       = "Call Clock: Pick Up The Phone."
	Description = "In CRE, Calls > Everything Else. Pick Up The Phone. Created by trophy.inc"
)

// Meta describes the document head of a page
type Meta struct {
	Title       string
	Description string
	URL         string // canonical absolute URL
	Image       Image
}

// Image is the OpenGraph and Twitter card image
type Image struct {
	URL    string
	Width  int
	Height int
	Alt    string
}

// PageData is common data for all pages
type PageData struct {
	Meta Meta
}

// DefaultMeta returns the metadata of the clock page rooted at baseURL
func DefaultMeta(baseURL string) Meta {
	return Meta{
		Title:       Title,
		Description: Description,
		URL:         baseURL + "/clock",
		Image: Image{
			URL:    baseURL + "/clock/snapshot.png",
			Width:  1200,
			Height: 630,
			Alt:    "Pick Up The Phone Club Clock",
		},
	}
}
