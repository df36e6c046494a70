// Package feed defines the Merchant Center product model and feed writers.
package feed

// Columns lists the feed columns in the order Merchant Center expects them.
// The TSV header row and every product row follow this order exactly.
var Columns = []string{
	"id", "title", "description", "link", "image_link", "additional_image_link",
	"availability", "price", "sale_price", "brand", "mpn", "gtin",
	"google_product_category", "condition", "adult", "gender", "age_group",
}

// Product is one Merchant Center feed entry. All attributes are carried as
// strings because the feed format is untyped text.
type Product struct {
	ID                    string `json:"id"`
	Title                 string `json:"title"`
	Description           string `json:"description"`
	Link                  string `json:"link"`
	ImageLink             string `json:"image_link"`
	AdditionalImageLink   string `json:"additional_image_link"`
	Availability          string `json:"availability"`
	Price                 string `json:"price"`
	SalePrice             string `json:"sale_price"`
	Brand                 string `json:"brand"`
	MPN                   string `json:"mpn"`
	GTIN                  string `json:"gtin"`
	GoogleProductCategory string `json:"google_product_category"`
	Condition             string `json:"condition"`
	Adult                 string `json:"adult"`
	Gender                string `json:"gender"`
	AgeGroup              string `json:"age_group"`
}

// Row returns the product attributes ordered to match Columns.
func (p Product) Row() []string {
	return []string{
		p.ID, p.Title, p.Description, p.Link, p.ImageLink, p.AdditionalImageLink,
		p.Availability, p.Price, p.SalePrice, p.Brand, p.MPN, p.GTIN,
		p.GoogleProductCategory, p.Condition, p.Adult, p.Gender, p.AgeGroup,
	}
}
