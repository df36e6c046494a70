package scraper

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const productPageHTML = `<!DOCTYPE html>
<html>
<body>
  <h1>Rayban Erkek Güneş Gözlüğü RB-2140</h1>
  <div class="marka"><img src="/img/rayban-logo.png" alt="Ray-Ban"></div>
  <div id="sync1">
    <div class="item"><img class="img-responsive" src="/upload/rb2140-front.jpg"></div>
    <div class="item"><img class="img-responsive" src="/upload/rb2140-side.jpg"></div>
    <div class="item"><img class="img-responsive" src="https://cdn.example.com/rb2140-case.jpg"></div>
  </div>
  <div class="eski_fiyat"><div class="col-md-8"><span>1.500,00 TL</span></div></div>
  <div class="yeni_fiyat"><div class="col-md-8"><span>1.234,56 TL</span></div></div>
  <p><span>Stok Durumu :</span> <strong>Stokta Mevcut</strong></p>
  <p><span>Stok Kodu :</span> <strong>RB2140-901</strong></p>
  <div data-utabic="1">Klasik wayfarer model, polarize cam.</div>
</body>
</html>`

func TestParserParse(t *testing.T) {
	t.Parallel()

	p, err := NewParser("https://www.utkuoptik.com")
	require.NoError(t, err)

	pageURL := "https://www.utkuoptik.com/urun/rayban-erkek-gunes-gozlugu-rb-2140-5471"
	product, err := p.Parse([]byte(productPageHTML), pageURL)
	require.NoError(t, err)

	assert.Equal(t, "5471", product.ID)
	assert.Equal(t, "Rayban Erkek Güneş Gözlüğü RB-2140", product.Title)
	assert.Equal(t, "Klasik wayfarer model, polarize cam.", product.Description)
	assert.Equal(t, pageURL, product.Link)
	assert.Equal(t, "https://www.utkuoptik.com/upload/rb2140-front.jpg", product.ImageLink)
	assert.Equal(t,
		"https://www.utkuoptik.com/upload/rb2140-side.jpg,https://cdn.example.com/rb2140-case.jpg",
		product.AdditionalImageLink)
	assert.Equal(t, "in stock", product.Availability)
	assert.Equal(t, "1500.00 TRY", product.Price)
	assert.Equal(t, "1234.56 TRY", product.SalePrice)
	assert.Equal(t, "Ray-Ban", product.Brand)
	assert.Equal(t, "RB2140-901", product.MPN)
	assert.Equal(t, "male", product.Gender)
	assert.Equal(t, "new", product.Condition)
	assert.Equal(t, "no", product.Adult)
	assert.Equal(t, "adult", product.AgeGroup)
	assert.Equal(t, defaultCategory, product.GoogleProductCategory)
	assert.Empty(t, product.GTIN)
}

func TestParserParseNoSalePrice(t *testing.T) {
	t.Parallel()

	html := `<html><body>
<h1>Polo Kadın Gözlük</h1>
<div class="yeni_fiyat"><div class="col-md-8"><span>299,90 TL</span></div></div>
</body></html>`

	p, err := NewParser("https://www.utkuoptik.com")
	require.NoError(t, err)

	product, err := p.Parse([]byte(html), "https://www.utkuoptik.com/urun/polo-kadin-gozluk-77")
	require.NoError(t, err)

	assert.Equal(t, "299.90 TRY", product.Price)
	assert.Empty(t, product.SalePrice, "no sale price without an old price on the page")
	assert.Equal(t, "female", product.Gender)
	// No brand image on the page, fall back to the first title word.
	assert.Equal(t, "Polo", product.Brand)
}

func TestParserParseOutOfStock(t *testing.T) {
	t.Parallel()

	html := `<html><body>
<h1>Vintage Gözlük</h1>
<p><span>Stok Durumu :</span> <strong>Tükendi</strong></p>
</body></html>`

	p, err := NewParser("https://www.utkuoptik.com")
	require.NoError(t, err)

	product, err := p.Parse([]byte(html), "https://www.utkuoptik.com/urun/vintage-gozluk-12")
	require.NoError(t, err)

	assert.Equal(t, "out of stock", product.Availability)
	assert.Equal(t, "unisex", product.Gender)
}

func TestParserParseMissingStockLabelDefaultsInStock(t *testing.T) {
	t.Parallel()

	p, err := NewParser("https://www.utkuoptik.com")
	require.NoError(t, err)

	product, err := p.Parse([]byte("<html><body><h1>Gözlük</h1></body></html>"),
		"https://www.utkuoptik.com/urun/gozluk-1")
	require.NoError(t, err)

	assert.Equal(t, "in stock", product.Availability)
}

func TestParserCapsAdditionalImages(t *testing.T) {
	t.Parallel()

	var items strings.Builder
	for i := 0; i < 15; i++ {
		fmt.Fprintf(&items, `<div class="item"><img class="img-responsive" src="/upload/img-%d.jpg"></div>`, i)
	}
	html := `<html><body><h1>Gözlük</h1><div id="sync1">` + items.String() + `</div></body></html>`

	p, err := NewParser("https://www.utkuoptik.com")
	require.NoError(t, err)

	product, err := p.Parse([]byte(html), "https://www.utkuoptik.com/urun/gozluk-9")
	require.NoError(t, err)

	assert.Equal(t, "https://www.utkuoptik.com/upload/img-0.jpg", product.ImageLink)
	assert.Len(t, strings.Split(product.AdditionalImageLink, ","), maxAdditionalImages)
}

func TestParserTruncatesLongDescription(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("ç", maxDescriptionRunes+100)
	html := `<html><body><h1>Gözlük</h1><div data-utabic="1">` + long + `</div></body></html>`

	p, err := NewParser("https://www.utkuoptik.com")
	require.NoError(t, err)

	product, err := p.Parse([]byte(html), "https://www.utkuoptik.com/urun/gozluk-3")
	require.NoError(t, err)

	assert.Len(t, []rune(product.Description), maxDescriptionRunes)
}

func TestExtractIDFallsBackToLastSegment(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "5471", extractID("https://www.utkuoptik.com/urun/model-5471"))
	assert.Equal(t, "modelx", extractID("https://www.utkuoptik.com/urun/modelx"))
}
