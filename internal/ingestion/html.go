package ingestion

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Format records how a CV arrived
type Format string

const (
	FormatText Format = "text"
	FormatHTML Format = "html"
)

var htmlTagPattern = regexp.MustCompile(`(?i)<(html|body|div|p|br|ul|ol|li|h[1-6]|table|span|section)[\s/>]`)

// blockSelectors are elements whose text should end with a line break
const blockSelectors = "p, div, li, h1, h2, h3, h4, h5, h6, tr, section, article, header"

// LooksLikeHTML reports whether s contains common block-level HTML markup
func LooksLikeHTML(s string) bool {
	return htmlTagPattern.MatchString(s)
}

// HTMLToText extracts readable text from an HTML CV, keeping headings and list items on their own lines
func HTMLToText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("script, style, noscript, nav, footer").Remove()

	doc.Find("br").Each(func(_ int, s *goquery.Selection) {
		s.ReplaceWithHtml("\n")
	})
	doc.Find("li").Each(func(_ int, s *goquery.Selection) {
		s.PrependHtml("- ")
	})
	doc.Find("h1, h2, h3").Each(func(_ int, s *goquery.Selection) {
		s.PrependHtml("# ")
	})
	doc.Find(blockSelectors).Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}
	return root.Text(), nil
}
