package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// pageFetcher serves canned pages keyed by URL.
type pageFetcher struct {
	pages map[string]Page
	errs  map[string]error
	calls []string
}

func (f *pageFetcher) Fetch(_ context.Context, rawURL string) (Page, error) {
	f.calls = append(f.calls, rawURL)
	if err, ok := f.errs[rawURL]; ok {
		return Page{}, err
	}
	page, ok := f.pages[rawURL]
	if !ok {
		return Page{URL: rawURL, StatusCode: http.StatusNotFound}, nil
	}
	return page, nil
}

func categoryHTML(hrefs ...string) []byte {
	body := ""
	for _, href := range hrefs {
		body += fmt.Sprintf(`<div class="urun"><a href=%q><img src="x.jpg"></a></div>`, href)
	}
	return []byte("<html><body>" + body + "</body></html>")
}

func categoryPageURL(page int) string {
	return fmt.Sprintf("https://www.utkuoptik.com/kategori/gunes-gozlukleri-54/%d", page)
}

func TestLinkCollectorCollect(t *testing.T) {
	t.Parallel()

	fetcher := &pageFetcher{
		pages: map[string]Page{
			categoryPageURL(1): {
				StatusCode: http.StatusOK,
				Body:       categoryHTML("urun/rayban-5471", "urun/polo-77", "kategori/other-1"),
			},
			categoryPageURL(2): {
				StatusCode: http.StatusOK,
				// polo-77 repeats across pages and must be deduplicated.
				Body: categoryHTML("urun/polo-77", "urun/vintage-12"),
			},
		},
	}

	c := NewLinkCollector(fetcher, "https://www.utkuoptik.com/", 0, zap.NewNop())
	links, err := c.Collect(context.Background(), categoryPageURL, 2)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://www.utkuoptik.com/urun/polo-77",
		"https://www.utkuoptik.com/urun/rayban-5471",
		"https://www.utkuoptik.com/urun/vintage-12",
	}, links)
	assert.Len(t, fetcher.calls, 2)
}

func TestLinkCollectorSkipsFailedPages(t *testing.T) {
	t.Parallel()

	fetcher := &pageFetcher{
		pages: map[string]Page{
			categoryPageURL(1): {StatusCode: http.StatusOK, Body: categoryHTML("urun/rayban-5471")},
			categoryPageURL(3): {StatusCode: http.StatusServiceUnavailable},
		},
		errs: map[string]error{
			categoryPageURL(2): errors.New("connection reset"),
		},
	}

	c := NewLinkCollector(fetcher, "https://www.utkuoptik.com", 0, zap.NewNop())
	links, err := c.Collect(context.Background(), categoryPageURL, 3)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://www.utkuoptik.com/urun/rayban-5471"}, links)
	assert.Len(t, fetcher.calls, 3, "one failed page must not stop the walk")
}

func TestLinkCollectorStopsOnCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := &pageFetcher{}
	c := NewLinkCollector(fetcher, "https://www.utkuoptik.com", 0, zap.NewNop())

	links, err := c.Collect(ctx, categoryPageURL, 5)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, links)
	assert.Empty(t, fetcher.calls)
}

func TestSaveAndLoadLinks(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "feed", "product_links.txt")
	links := []string{
		"https://www.utkuoptik.com/urun/rayban-5471",
		"https://www.utkuoptik.com/urun/polo-77",
	}
	require.NoError(t, SaveLinks(path, links))

	loaded, err := LoadLinks(path)
	require.NoError(t, err)
	assert.Equal(t, links, loaded)
}

func TestLoadLinksSkipsBlanksAndComments(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "links.txt")
	content := "# collected 2026-08-20\n\nhttps://www.utkuoptik.com/urun/rayban-5471\n   \n# stale\nhttps://www.utkuoptik.com/urun/polo-77\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	loaded, err := LoadLinks(path)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://www.utkuoptik.com/urun/rayban-5471",
		"https://www.utkuoptik.com/urun/polo-77",
	}, loaded)
}

func TestLoadLinksMissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadLinks(filepath.Join(t.TempDir(), "nope.txt"))
	require.Error(t, err)
}
