package htmlutil

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// cleanSelector matches the elements removed by Clean.
const cleanSelector = "script, style, link, object, embed, applet, param, iframe, frame, frameset"

// blockSelector matches block-level container elements.
const blockSelector = "p, div, td, th, li, dd, dt, ul, ol, dl, table, section, article, aside, nav, header, footer, main, blockquote, pre, form, fieldset, h1, h2, h3, h4, h5, h6, body"

// urlAttrs are the attributes rewritten by MakeLinksAbsolute.
var urlAttrs = []string{"href", "src", "action"}

// Clean removes script, style, link, and embedded-content elements and
// strips style attributes, in place. Page structure, unknown tags, meta
// tags, and all other attributes are preserved. Clean is not a security
// sanitizer and is idempotent.
func Clean(doc *goquery.Document) {
	doc.Find(cleanSelector).Remove()
	doc.Find("[style]").Each(func(_ int, s *goquery.Selection) {
		s.RemoveAttr("style")
	})
}

// MakeLinksAbsolute resolves every href, src, and action attribute in doc
// against base, in place. base must be an absolute URL with a host.
// Attribute values that do not parse as URLs are left untouched.
func MakeLinksAbsolute(doc *goquery.Document, base string) error {
	baseURL, err := url.Parse(base)
	if err != nil {
		return fmt.Errorf("parse base URL %q: %w", base, err)
	}
	if !baseURL.IsAbs() || baseURL.Host == "" {
		return fmt.Errorf("base URL %q is not absolute", base)
	}

	for _, attr := range urlAttrs {
		doc.Find("[" + attr + "]").Each(func(_ int, s *goquery.Selection) {
			raw, _ := s.Attr(attr)
			ref, err := url.Parse(strings.TrimSpace(raw))
			if err != nil {
				return
			}
			s.SetAttr(attr, baseURL.ResolveReference(ref).String())
		})
	}
	return nil
}

// Anchors returns the <a> elements of doc in document order.
func Anchors(doc *goquery.Document) []*goquery.Selection {
	var anchors []*goquery.Selection
	doc.Find("a").Each(func(_ int, s *goquery.Selection) {
		anchors = append(anchors, s)
	})
	return anchors
}

// ParentTag returns the tag name of the element's parent, or "" at the
// document root.
func ParentTag(s *goquery.Selection) string {
	parent := s.Parent()
	if parent.Length() == 0 {
		return ""
	}
	name := goquery.NodeName(parent)
	if strings.HasPrefix(name, "#") {
		return ""
	}
	return name
}

// NearestBlock returns the closest block-level ancestor of s, or an empty
// selection if there is none.
func NearestBlock(s *goquery.Selection) *goquery.Selection {
	return s.Closest(blockSelector)
}

// NormalizeSpace collapses runs of whitespace in s to single spaces.
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
