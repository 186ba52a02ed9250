package oembed

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// stripScripts removes script tags from an HTML fragment. Fragments without
// any script come back unchanged.
func stripScripts(fragment string) string {
	if !strings.Contains(fragment, "<script") {
		return fragment
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}

	sel := doc.Find("script")
	if sel.Length() == 0 {
		return fragment
	}
	sel.Remove()

	out, err := doc.Find("body").Html()
	if err != nil {
		return fragment
	}
	return out
}
