package qc

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Link is a hyperlink found in article content, either a markdown link or
// an inline HTML anchor.
type Link struct {
	URL    string
	Anchor string
}

// Internal reports whether the link targets a page on the same site.
// Internal links are root-relative paths; everything absolute is external.
func (l Link) Internal() bool {
	return strings.HasPrefix(l.URL, "/")
}

// External reports whether the link targets another site over http(s).
func (l Link) External() bool {
	return strings.HasPrefix(l.URL, "http://") || strings.HasPrefix(l.URL, "https://")
}

// markdownLinkRe matches markdown links and images. The optional leading
// bang is captured so images can be skipped: an image is not a link for
// constraint purposes.
var markdownLinkRe = regexp.MustCompile(`(!?)\[([^\]]*)\]\(([^)\s]+)(?:\s+"[^"]*")?\)`)

// ExtractLinks returns every hyperlink in the content, markdown links
// first in document order, then inline HTML anchors. Markdown images and
// non-http schemes (mailto:, tel:) are ignored.
func ExtractLinks(content string) []Link {
	var links []Link

	for _, m := range markdownLinkRe.FindAllStringSubmatch(content, -1) {
		if m[1] == "!" {
			continue
		}

		link := Link{Anchor: strings.TrimSpace(m[2]), URL: strings.TrimSpace(m[3])}
		if link.Internal() || link.External() {
			links = append(links, link)
		}
	}

	links = append(links, extractHTMLAnchors(content)...)

	return links
}

// extractHTMLAnchors pulls <a href> anchors out of the content. Markdown
// bodies routinely carry raw HTML, and a backlink pasted as an anchor tag
// still counts against the constraints.
func extractHTMLAnchors(content string) []Link {
	if !strings.Contains(content, "<a") {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		// Unparseable HTML means no anchors to report; the markdown pass
		// already captured everything else.
		return nil
	}

	var links []Link
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		link := Link{Anchor: strings.TrimSpace(sel.Text()), URL: strings.TrimSpace(href)}
		if link.Internal() || link.External() {
			links = append(links, link)
		}
	})

	return links
}

// FirstExternalLink returns the first external link in the content, if any.
// The QC loop uses it to re-infer the integrated backlink from the
// generated content itself.
func FirstExternalLink(content string) (Link, bool) {
	for _, link := range ExtractLinks(content) {
		if link.External() {
			return link, true
		}
	}
	return Link{}, false
}
