package scrape

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"
	"golang.org/x/net/html"

	"pricewatch/pkg/catalog"
)

// Stats counts what happened to the candidate containers of one page, by
// skip reason. The totals make partial extraction failures visible in the
// run summary instead of silently shrinking the catalog.
type Stats struct {
	Containers  int
	NoImage     int
	InvalidName int
	NoPrice     int
	Extracted   int
}

func (s *Stats) Add(other Stats) {
	s.Containers += other.Containers
	s.NoImage += other.NoImage
	s.InvalidName += other.InvalidName
	s.NoPrice += other.NoPrice
	s.Extracted += other.Extracted
}

var priceRe = regexp.MustCompile(`₹\s*([\d,]+\.?\d*)`)

var sizeSuffixRe = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?\s*(?:g|kg|ml|l|pcs|pc|pack|units|unit))\b`)

// Names shorter than this are assumed to be UI fragments, not products.
const minNameLen = 5

var noiseWords = []string{"new launches", "view all", "shop now", "advert"}

// Section headings that show up inside product grids but are not products.
var sectionNames = map[string]bool{
	"top picks":   true,
	"top deals":   true,
	"shampoos":    true,
	"facewash":    true,
	"soaps":       true,
	"shower gels": true,
	"toothpaste":  true,
	"conditioner": true,
	"oils":        true,
}

// Extract turns rendered listing-page HTML into candidate records for one
// category. It tries the embedded Next.js payload first and falls back to
// DOM heuristics; both paths record per-reason skip counts. A failure to
// parse one container never aborts the page.
func Extract(html, category, baseURL string) ([]catalog.Candidate, Stats) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, Stats{}
	}

	if candidates, stats, ok := extractNextData(doc, category, baseURL); ok {
		return candidates, stats
	}
	return extractDOM(doc, category, baseURL)
}

// extractNextData reads the #__NEXT_DATA__ script blob that Next.js sites
// embed. When the payload carries a product array we trust it over the DOM:
// it is structured and immune to class-name churn.
func extractNextData(doc *goquery.Document, category, baseURL string) ([]catalog.Candidate, Stats, bool) {
	raw := doc.Find("#__NEXT_DATA__").Text()
	if raw == "" {
		return nil, Stats{}, false
	}

	// Listing payload paths observed across page layouts, tried in order.
	paths := []string{
		"props.pageProps.products",
		"props.pageProps.listing.products",
		"props.pageProps.initialState.products",
	}

	var products gjson.Result
	for _, p := range paths {
		if r := gjson.Get(raw, p); r.IsArray() && len(r.Array()) > 0 {
			products = r
			break
		}
	}
	if !products.IsArray() {
		return nil, Stats{}, false
	}

	var out []catalog.Candidate
	var stats Stats
	now := time.Now()
	for _, p := range products.Array() {
		stats.Containers++
		name := strings.TrimSpace(gjson.Get(p.Raw, "name").String())
		if !validName(name) {
			stats.InvalidName++
			continue
		}
		price := gjson.Get(p.Raw, "price").Float()
		if price <= 0 {
			stats.NoPrice++
			continue
		}
		mrp := gjson.Get(p.Raw, "mrp").Float()
		if mrp <= 0 {
			mrp = price
		}
		out = append(out, catalog.Candidate{
			Name:        clampName(name),
			Price:       price,
			MRP:         mrp,
			Discount:    gjson.Get(p.Raw, "discount").Float(),
			Category:    category,
			URL:         absoluteURL(gjson.Get(p.Raw, "url").String(), baseURL),
			Image:       gjson.Get(p.Raw, "image").String(),
			Rating:      gjson.Get(p.Raw, "rating").Float(),
			ExtractedAt: now,
		})
		stats.Extracted++
	}
	if len(out) == 0 {
		return nil, Stats{}, false
	}
	return out, stats, true
}

// extractDOM walks product-card containers by class and data-attribute
// heuristics. The selectors are deliberately loose; the per-container
// validation below is what keeps noise out.
func extractDOM(doc *goquery.Document, category, baseURL string) ([]catalog.Candidate, Stats) {
	var containers []*goquery.Selection
	seen := make(map[*html.Node]bool)

	doc.Find("div, article").Each(func(_ int, s *goquery.Selection) {
		node := s.Get(0)
		if seen[node] {
			return
		}
		if isProductContainer(s) {
			seen[node] = true
			containers = append(containers, s)
		}
	})

	var out []catalog.Candidate
	var stats Stats
	now := time.Now()
	stats.Containers = len(containers)

	for _, s := range containers {
		img := s.Find("img").First()
		name := strings.TrimSpace(img.AttrOr("alt", ""))
		if img.Length() == 0 || name == "" {
			stats.NoImage++
			continue
		}
		if !validName(name) {
			stats.InvalidName++
			continue
		}

		name = appendSizeSuffix(name, s.Text())

		price, ok := parsePrice(s.Text())
		if !ok {
			stats.NoPrice++
			continue
		}

		out = append(out, catalog.Candidate{
			Name:        clampName(name),
			Price:       price,
			MRP:         price,
			Category:    category,
			URL:         productURL(s, baseURL),
			Image:       img.AttrOr("src", ""),
			ExtractedAt: now,
		})
		stats.Extracted++
	}
	return out, stats
}

func isProductContainer(s *goquery.Selection) bool {
	if dt, ok := s.Attr("data-test"); ok && strings.Contains(strings.ToLower(dt), "product") {
		return true
	}
	class := strings.ToLower(s.AttrOr("class", ""))
	for _, kw := range []string{"product", "item", "card", "tile"} {
		if strings.Contains(class, kw) {
			return true
		}
	}
	return false
}

func validName(name string) bool {
	if len(name) < minNameLen {
		return false
	}
	lower := strings.ToLower(name)
	for _, w := range noiseWords {
		if strings.Contains(lower, w) {
			return false
		}
	}
	return !sectionNames[strings.TrimSpace(lower)]
}

// appendSizeSuffix pulls size tokens out of the card text and appends the
// ones the name itself lacks, so two pack sizes of the same product never
// share a name (and therefore never share a content-hash identity).
func appendSizeSuffix(name, cardText string) string {
	var found []string
	lowerName := strings.ToLower(name)
	for _, m := range sizeSuffixRe.FindAllString(cardText, -1) {
		size := strings.Join(strings.Fields(m), " ")
		lower := strings.ToLower(size)
		if strings.Contains(lowerName, lower) {
			continue
		}
		dup := false
		for _, f := range found {
			if strings.ToLower(f) == lower {
				dup = true
				break
			}
		}
		if !dup {
			found = append(found, size)
		}
	}
	if len(found) == 0 {
		return name
	}
	return name + " (" + strings.Join(found, ", ") + ")"
}

func parsePrice(text string) (float64, bool) {
	m := priceRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	price, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil || price <= 0 {
		return 0, false
	}
	return price, true
}

// productURL keeps only links that point at an individual product. Category
// and section links would otherwise collapse every card on the page into
// one URL-derived identity.
func productURL(s *goquery.Selection, baseURL string) string {
	link := s.Find("a").First()
	if link.Length() == 0 {
		link = s.Closest("a")
	}
	href := strings.TrimSpace(link.AttrOr("href", ""))
	if href == "" {
		return ""
	}
	if isCategoryLink(href) {
		return ""
	}
	return absoluteURL(href, baseURL)
}

func isCategoryLink(href string) bool {
	if !strings.Contains(href, "/cid/") && !strings.Contains(href, "/scid/") {
		return false
	}
	for _, marker := range []string{"/p/", "/product/", "?id=", "/pn/", "/pvid/"} {
		if strings.Contains(href, marker) {
			return false
		}
	}
	return true
}

func absoluteURL(href, baseURL string) string {
	if href == "" || !strings.HasPrefix(href, "/") {
		return href
	}
	return strings.TrimRight(baseURL, "/") + href
}

func clampName(name string) string {
	if len(name) > 100 {
		return name[:100]
	}
	return name
}

// Dedupe removes in-batch duplicates by normalized name, keeping the first
// occurrence. Listing pages repeat cards across sections.
func Dedupe(candidates []catalog.Candidate) []catalog.Candidate {
	seen := make(map[string]bool, len(candidates))
	var unique []catalog.Candidate
	for _, c := range candidates {
		norm := catalog.NormalizeName(c.Name)
		if seen[norm] {
			continue
		}
		seen[norm] = true
		unique = append(unique, c)
	}
	return unique
}
