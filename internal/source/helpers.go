package source

import (
	"bytes"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/unlist-labs/brokerscan/internal/parse"
)

// headingSelector covers the elements brokers use as section labels.
const headingSelector = "h1, h2, h3, h4, h5, h6, dt, strong, b"

// parseDoc builds a goquery document from a fetched body.
func parseDoc(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "source: parse html")
	}
	return doc, nil
}

// sectionItems locates the content that follows a labeled heading and
// returns its item texts. The structural heuristic: find the first heading
// whose text contains the label, then collect items from its following
// siblings until the next heading; when the heading has no following
// siblings, fall back to its parent's following siblings. The root may be
// a whole document or a single result container.
func sectionItems(root *goquery.Selection, label string) []string {
	label = strings.ToLower(label)
	var items []string

	root.Find(headingSelector).EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if !strings.Contains(strings.ToLower(parse.CollapseSpaces(h.Text())), label) {
			return true
		}
		items = collectSiblings(h)
		if len(items) == 0 {
			items = collectSiblings(h.Parent())
		}
		return false
	})

	return items
}

// collectSiblings gathers item texts from a node's following siblings,
// stopping at the next section heading.
func collectSiblings(start *goquery.Selection) []string {
	var items []string
	for sib := start.Next(); sib.Length() > 0; sib = sib.Next() {
		if sib.Is(headingSelector) || sib.Find(headingSelector).Length() > 0 {
			break
		}
		items = append(items, itemTexts(sib)...)
	}
	return items
}

// itemTexts extracts the individual entries from a section container:
// list items first, then links, then the container's own text.
func itemTexts(sel *goquery.Selection) []string {
	var out []string

	appendText := func(_ int, s *goquery.Selection) {
		if t := parse.CollapseSpaces(s.Text()); t != "" {
			out = append(out, t)
		}
	}

	if lis := sel.Find("li, dd"); lis.Length() > 0 {
		lis.Each(appendText)
		return out
	}
	if links := sel.Find("a"); links.Length() > 0 {
		links.Each(appendText)
		return out
	}
	if t := parse.CollapseSpaces(sel.Text()); t != "" {
		out = append(out, t)
	}
	return out
}

// absURL resolves a possibly-relative href against a base URL.
func absURL(base, href string) string {
	if href == "" {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	h, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(h).String()
}

// idFromURL derives a stable candidate id from a detail link's last path
// segment, with a source-prefixed fallback.
func idFromURL(kind Kind, detailURL string, index int) string {
	if u, err := url.Parse(detailURL); err == nil {
		segs := strings.Split(strings.Trim(u.Path, "/"), "/")
		if last := segs[len(segs)-1]; last != "" {
			return string(kind) + ":" + last
		}
	}
	return string(kind) + ":" + strconv.Itoa(index)
}
