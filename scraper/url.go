package scraper

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/purell"
)

const urlNormalization = purell.FlagsSafe | purell.FlagRemoveDotSegments

// ResolveURL resolves ref against base and normalises the result. Only http(s)
// targets are accepted; anything else (javascript:, tel:, empty) is a miss.
func ResolveURL(base *url.URL, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") {
		return "", false
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	resolved := base.ResolveReference(u)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", false
	}
	return purell.NormalizeURL(resolved, urlNormalization), true
}

// fallbackURL synthesises a per-position URL for elements without an anchor.
func fallbackURL(base *url.URL, index int) string {
	u := *base
	u.Fragment = fmt.Sprintf("listing-%d", index)
	u.RawFragment = ""
	return u.String()
}
