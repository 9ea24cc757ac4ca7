package catalog

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"sort"
	"strings"
)

// keyLen is the stored key width. Truncating the digest keeps keys short at
// the cost of a small collision probability; colliding items share one
// catalog entry.
const keyLen = 16

// urlRule extracts a product id from one known URL shape. Rules are
// evaluated in order; the first match wins.
type urlRule struct {
	tag string
	re  *regexp.Regexp
}

var urlRules = []urlRule{
	{"path-p", regexp.MustCompile(`/p/([^/?]+)`)},
	{"path-product", regexp.MustCompile(`/product/([^/?]+)`)},
	{"path-pn", regexp.MustCompile(`/pn/[^/]+/pvid/([^/?]+)`)},
	{"path-scid", regexp.MustCompile(`/cn/[^/]+/[^/]+/cid/[^/]+/scid/([^/?]+)`)},
	{"query-id", regexp.MustCompile(`[?&]id=([^&]+)`)},
}

var sizeRe = regexp.MustCompile(`\d+(\.\d+)?\s*(g|kg|ml|l|pcs|pc|pack|units|unit)`)

// featureRule matches one variant descriptor in a normalized name. Matched
// tokens are sorted before hashing so token order never affects the key.
type featureRule struct {
	tag string
	re  *regexp.Regexp
}

var featureRules = []featureRule{
	{"dandruff", regexp.MustCompile(`dandruff|anti-dandruff|dandruff-care`)},
	{"hairfall", regexp.MustCompile(`hair.fall|hair-fall|hairfall`)},
	{"damage", regexp.MustCompile(`damage.care|damage-repair`)},
	{"smooth", regexp.MustCompile(`smooth|silk|shine|smoothening`)},
	{"volume", regexp.MustCompile(`volume|volumizing|thick`)},
	{"color", regexp.MustCompile(`color|colored|colour`)},
	{"men", regexp.MustCompile(`men|male|gentleman`)},
	{"kids", regexp.MustCompile(`kids|children|baby`)},
	{"herbal", regexp.MustCompile(`herbal|natural|organic`)},
	{"skintype", regexp.MustCompile(`oily|dry|normal`)},
	{"daily", regexp.MustCompile(`daily|regular|classic`)},
	{"intensive", regexp.MustCompile(`intensive|strong|extra`)},
	{"clinical", regexp.MustCompile(`clinical|medicated`)},
}

// Resolve derives the stable identity key for a candidate. It always
// returns a key: a URL-derived product id when one of the known URL shapes
// matches, a hash of the raw URL when none does, and a content hash of the
// normalized name, category, size token and feature tokens when the record
// has no URL at all.
func Resolve(c Candidate) string {
	if c.URL != "" {
		if id := URLProductID(c.URL); id != "" {
			return id
		}
		return digest(c.URL)
	}
	return contentKey(c)
}

// URLProductID extracts the source's own product id from a URL, or returns
// "" when the URL is empty or matches no known shape.
func URLProductID(url string) string {
	if url == "" {
		return ""
	}
	for _, r := range urlRules {
		if m := r.re.FindStringSubmatch(url); m != nil {
			return m[1]
		}
	}
	return ""
}

// NormalizeName lowercases a product name and collapses internal
// whitespace.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// contentKey hashes the differentiating content of a record. Size and
// feature tokens keep distinct SKUs sharing a base name (the same shampoo
// in two sizes, or a men's variant) from collapsing into one identity.
func contentKey(c Candidate) string {
	name := NormalizeName(c.Name)

	size := sizeRe.FindString(name)

	var features []string
	for _, r := range featureRules {
		if m := r.re.FindString(name); m != "" {
			features = append(features, m)
		}
	}
	sort.Strings(features)

	content := name + "|" + strings.ToLower(c.Category) + "|" + size + "|" + strings.Join(features, "|")
	return digest(content)
}

func digest(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])[:keyLen]
}
