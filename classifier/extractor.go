package classifier

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/happyhackingspace/webpager/internal/htmlutil"
	"github.com/happyhackingspace/webpager/internal/tagset"
	"github.com/happyhackingspace/webpager/internal/textutil"
)

var (
	// ErrUnparsable is returned for input with no parseable content at
	// all. Anything else parses leniently.
	ErrUnparsable = errors.New("unparsable document")

	// ErrNoBaseURL is returned when no base URL is given for link
	// resolution.
	ErrNoBaseURL = errors.New("no base URL")
)

// AnchorPage pairs an anchor element with the URL of the page it came
// from. Feature transformers consume these pairs.
type AnchorPage struct {
	Anchor  *goquery.Selection
	PageURL string
}

// Text returns the anchor's text content.
func (p AnchorPage) Text() string {
	return p.Anchor.Text()
}

// Href returns the anchor's href attribute, or "" when absent.
func (p AnchorPage) Href() string {
	href, _ := p.Anchor.Attr("href")
	return href
}

// ExtractorConfig configures an HTMLFeaturesExtractor.
type ExtractorConfig struct {
	// Tags are the pseudo-tag names marking positive anchors in training
	// pages. Empty means the default ("PAGE").
	Tags []string
	// Encoding forces a character encoding for byte input. Empty means
	// detection from content.
	Encoding string
	// Tokenize splits anchor text into tokens for marker detection. Nil
	// means whitespace splitting.
	Tokenize func(string) []string
}

// DefaultExtractorConfig returns the default extractor configuration.
func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{
		Tags: []string{"PAGE"},
	}
}

// HTMLFeaturesExtractor turns annotated HTML pages into anchors with weak
// labels. Configuration is fixed at construction and a single extractor
// is safe for concurrent use.
type HTMLFeaturesExtractor struct {
	tags     *tagset.Tagset
	encoding string
	tokenize func(string) []string
}

// NewHTMLFeaturesExtractor builds an extractor from config. An unknown
// Encoding label is a construction error.
func NewHTMLFeaturesExtractor(config ExtractorConfig) (*HTMLFeaturesExtractor, error) {
	if config.Encoding != "" {
		if err := htmlutil.ValidateEncoding(config.Encoding); err != nil {
			return nil, err
		}
	}
	tags := config.Tags
	if len(tags) == 0 {
		tags = []string{"PAGE"}
	}
	tokenize := config.Tokenize
	if tokenize == nil {
		tokenize = textutil.Tokenize
	}
	return &HTMLFeaturesExtractor{
		tags:     tagset.New(tags...),
		encoding: config.Encoding,
		tokenize: tokenize,
	}, nil
}

// Tags returns the pseudo-tag names the extractor recognizes.
func (e *HTMLFeaturesExtractor) Tags() []string {
	return e.tags.Tags()
}

// Extract decodes raw HTML bytes and returns the page's anchors in
// document order together with weak labels. An anchor is labeled 1 when
// its text carried pseudo-tag markers; the markers are stripped from the
// anchor text before it is returned, and all links are resolved against
// baseURL.
func (e *HTMLFeaturesExtractor) Extract(html []byte, baseURL string) ([]AnchorPage, []int, error) {
	decoded, err := htmlutil.DecodeHTML(html, e.encoding)
	if err != nil {
		return nil, nil, err
	}
	return e.ExtractString(decoded, baseURL)
}

// ExtractString is Extract for HTML that is already a UTF-8 string.
func (e *HTMLFeaturesExtractor) ExtractString(html, baseURL string) ([]AnchorPage, []int, error) {
	if err := checkBaseURL(baseURL); err != nil {
		return nil, nil, err
	}
	doc, err := e.CleanHTML(html)
	if err != nil {
		return nil, nil, err
	}
	if err := htmlutil.MakeLinksAbsolute(doc, baseURL); err != nil {
		return nil, nil, err
	}

	var pairs []AnchorPage
	var labels []int
	for _, anchor := range htmlutil.Anchors(doc) {
		tokens := e.tokenize(anchor.Text())
		markers := 0
		kept := make([]string, 0, len(tokens))
		for _, token := range tokens {
			if e.tags.IsMarker(token) {
				markers++
				continue
			}
			kept = append(kept, token)
		}
		anchor.SetText(strings.Join(kept, " "))

		label := 0
		if markers > 0 {
			label = 1
		}
		pairs = append(pairs, AnchorPage{Anchor: anchor, PageURL: baseURL})
		labels = append(labels, label)
	}
	return pairs, labels, nil
}

// checkBaseURL rejects base URLs that cannot resolve links. A bad base
// would silently corrupt every URL-derived feature downstream.
func checkBaseURL(base string) error {
	if base == "" {
		return ErrNoBaseURL
	}
	u, err := url.Parse(base)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%w: %q is not an absolute URL", ErrNoBaseURL, base)
	}
	return nil
}

// CleanHTML rewrites pseudo-tags to marker tokens, parses leniently, and
// strips script, style, and embedded content from the document.
func (e *HTMLFeaturesExtractor) CleanHTML(html string) (*goquery.Document, error) {
	if strings.TrimSpace(html) == "" {
		return nil, ErrUnparsable
	}
	doc, err := htmlutil.LoadHTMLString(e.tags.Encode(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	htmlutil.Clean(doc)
	return doc, nil
}
