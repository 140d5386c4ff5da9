package barcode

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	// DefaultBaseURL public barcode catalogue.
	DefaultBaseURL = "https://barcode-list.ru"

	// DefaultUserAgent the catalogue rejects non-browser clients.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	searchPage = "%D0%9F%D0%BE%D0%B8%D1%81%D0%BA.htm" // "Поиск.htm"
)

// Scraper looks up product names for a barcode on barcode-list.ru.
type Scraper struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

// NewScraper creates a Scraper. Empty values fall back to the defaults.
func NewScraper(baseURL, userAgent string, timeout time.Duration) *Scraper {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Scraper{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
	}
}

// URL of the search page for code.
func (s *Scraper) URL(code string) string {
	return fmt.Sprintf("%s/barcode/RU/barcode-%s/%s", s.baseURL, code, searchPage)
}

// Fetch downloads the search page for code.
func (s *Scraper) Fetch(ctx context.Context, code string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL(code), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch barcode %s: %w", code, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("barcode %s: unexpected status %d", code, resp.StatusCode)
	}
	return resp.Body, nil
}

// ExtractNames reads the product names from a search page: the third cell
// of every data row of the results table, sorted and de-duplicated.
func ExtractNames(page io.Reader) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(page)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	seen := make(map[string]struct{})
	doc.Find("table.randomBarcodes tr").Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return
		}
		cells := row.Find("td")
		if cells.Length() < 3 {
			return
		}
		if name := strings.TrimSpace(cells.Eq(2).Text()); name != "" {
			seen[name] = struct{}{}
		}
	})

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// ResolveNames fetches and parses the names for code.
func (s *Scraper) ResolveNames(ctx context.Context, code string) ([]string, error) {
	body, err := s.Fetch(ctx, code)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return ExtractNames(body)
}
