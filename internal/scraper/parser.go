package scraper

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/feedforge/merchantfeed/internal/feed"
)

const (
	maxDescriptionRunes = 5000
	maxAdditionalImages = 10

	defaultCategory = "Apparel & Accessories > Clothing Accessories > Sunglasses"
)

var productIDPattern = regexp.MustCompile(`-(\d+)$`)

// Parser extracts Merchant Center products from store product pages.
type Parser struct {
	origin *url.URL
}

// NewParser builds a Parser resolving relative image links against the origin
// (scheme and host) of baseURL.
func NewParser(baseURL string) (*Parser, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	return &Parser{origin: &url.URL{Scheme: u.Scheme, Host: u.Host}}, nil
}

// Parse extracts one product from the HTML of a product page.
func (p *Parser) Parse(body []byte, pageURL string) (feed.Product, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return feed.Product{}, fmt.Errorf("parse product html %s: %w", pageURL, err)
	}

	product := feed.Product{
		ID:                    extractID(pageURL),
		Title:                 strings.TrimSpace(doc.Find("h1").First().Text()),
		Link:                  pageURL,
		GTIN:                  "",
		GoogleProductCategory: defaultCategory,
		Condition:             "new",
		Adult:                 "no",
		AgeGroup:              "adult",
	}

	product.Description = truncateRunes(
		strings.TrimSpace(doc.Find(`div[data-utabic="1"]`).First().Text()),
		maxDescriptionRunes,
	)

	product.ImageLink, product.AdditionalImageLink = p.extractImages(doc)
	product.Availability = extractAvailability(doc)
	product.Price, product.SalePrice = extractPrices(doc)
	product.Brand = extractBrand(doc, product.Title)
	product.MPN = labeledValue(doc, "Stok Kodu :")

	product.Gender = detectGender(product.Title)

	return product, nil
}

func extractID(pageURL string) string {
	if m := productIDPattern.FindStringSubmatch(pageURL); m != nil {
		return m[1]
	}
	parts := strings.Split(pageURL, "/")
	return parts[len(parts)-1]
}

// extractImages walks the #sync1 carousel. The first image is the main one,
// the rest become additional_image_link entries.
func (p *Parser) extractImages(doc *goquery.Document) (string, string) {
	var main string
	var additional []string

	doc.Find("#sync1").First().Find("div.item > img.img-responsive").
		Each(func(i int, img *goquery.Selection) {
			src, ok := img.Attr("src")
			if !ok || src == "" {
				return
			}
			resolved := p.resolveLink(src)
			if i == 0 {
				main = resolved
				return
			}
			additional = append(additional, resolved)
		})

	if len(additional) > maxAdditionalImages {
		additional = additional[:maxAdditionalImages]
	}
	return main, strings.Join(additional, ",")
}

func (p *Parser) resolveLink(href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return p.origin.ResolveReference(ref).String()
}

func extractAvailability(doc *goquery.Document) string {
	status := strings.ToLower(labeledValue(doc, "Stok Durumu :"))
	if status == "" {
		return "in stock"
	}
	if strings.Contains(status, "mevcut") || strings.Contains(status, "stokta") {
		return "in stock"
	}
	return "out of stock"
}

// extractPrices reads the current price from div.yeni_fiyat. When the page
// also carries div.eski_fiyat the old price is the regular price and the
// current one becomes the sale price.
func extractPrices(doc *goquery.Document) (string, string) {
	current := NormalizePrice(doc.Find("div.yeni_fiyat").First().
		Find("div.col-md-8 > span").First().Text())

	oldSel := doc.Find("div.eski_fiyat").First().Find("div.col-md-8 > span").First()
	if oldSel.Length() == 0 {
		return current, ""
	}
	old := NormalizePrice(oldSel.Text())
	if old == "" {
		return current, ""
	}
	return old, current
}

func extractBrand(doc *goquery.Document, title string) string {
	if alt, ok := doc.Find("div.marka img").First().Attr("alt"); ok && alt != "" {
		return alt
	}
	fields := strings.Fields(title)
	if len(fields) > 0 {
		return fields[0]
	}
	return ""
}

// labeledValue finds a span whose text is exactly label and returns the text
// of the nearest following strong element.
func labeledValue(doc *goquery.Document, label string) string {
	var value string
	doc.Find("span").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.TrimSpace(s.Text()) != strings.TrimSpace(label) {
			return true
		}
		strong := s.NextAllFiltered("strong").First()
		if strong.Length() == 0 {
			strong = s.Parent().Find("strong").First()
		}
		value = strings.TrimSpace(strong.Text())
		return false
	})
	return value
}

func detectGender(title string) string {
	lower := strings.ToLower(title)
	switch {
	case strings.Contains(lower, "erkek"):
		return "male"
	case strings.Contains(lower, "kadın"):
		return "female"
	default:
		return "unisex"
	}
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
