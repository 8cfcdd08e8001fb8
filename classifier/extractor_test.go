package classifier

import (
	"errors"
	"strings"
	"testing"
)

const annotatedHTML = `<!DOCTYPE html>
<html>
<head><title>Listing</title><script>var x = 1;</script></head>
<body>
<div class="results">
	<p>Result text here.</p>
	<ul class="pager">
		<li><a href="/page/1">1</a></li>
		<li><a href="/page/2">2</a></li>
		<li><a href="/page/3"><PAGE>Next</PAGE></a></li>
	</ul>
	<a href="http://other.org/about">About</a>
</div>
</body>
</html>`

func newTestExtractor(t *testing.T) *HTMLFeaturesExtractor {
	t.Helper()
	extractor, err := NewHTMLFeaturesExtractor(DefaultExtractorConfig())
	if err != nil {
		t.Fatalf("NewHTMLFeaturesExtractor() error = %v", err)
	}
	return extractor
}

func TestExtractLabels(t *testing.T) {
	extractor := newTestExtractor(t)

	pairs, labels, err := extractor.ExtractString(annotatedHTML, "http://example.com/page/1")
	if err != nil {
		t.Fatalf("ExtractString() error = %v", err)
	}
	if len(pairs) != 4 {
		t.Fatalf("got %d anchors, want 4", len(pairs))
	}
	wantLabels := []int{0, 0, 1, 0}
	for i, want := range wantLabels {
		if labels[i] != want {
			t.Errorf("labels[%d] = %d, want %d", i, labels[i], want)
		}
	}
}

func TestExtractStripsMarkers(t *testing.T) {
	extractor := newTestExtractor(t)

	pairs, _, err := extractor.ExtractString(annotatedHTML, "http://example.com/page/1")
	if err != nil {
		t.Fatalf("ExtractString() error = %v", err)
	}
	for i, pair := range pairs {
		if strings.Contains(pair.Text(), "__") {
			t.Errorf("anchor %d text %q still contains marker tokens", i, pair.Text())
		}
	}
	if got := pairs[2].Text(); got != "Next" {
		t.Errorf("annotated anchor text = %q, want Next", got)
	}
}

func TestExtractResolvesLinks(t *testing.T) {
	extractor := newTestExtractor(t)

	pairs, _, err := extractor.ExtractString(annotatedHTML, "http://example.com/page/1")
	if err != nil {
		t.Fatalf("ExtractString() error = %v", err)
	}
	wantHrefs := []string{
		"http://example.com/page/1",
		"http://example.com/page/2",
		"http://example.com/page/3",
		"http://other.org/about",
	}
	for i, want := range wantHrefs {
		if got := pairs[i].Href(); got != want {
			t.Errorf("pairs[%d].Href() = %q, want %q", i, got, want)
		}
	}
}

// Bare numeric hrefs resolve relative to the base path like any other
// relative reference.
func TestExtractNumericHref(t *testing.T) {
	extractor := newTestExtractor(t)

	pairs, _, err := extractor.ExtractString(`<a href="3">3</a>`, "http://example.com/page/2")
	if err != nil {
		t.Fatalf("ExtractString() error = %v", err)
	}
	if got := pairs[0].Href(); got != "http://example.com/page/3" {
		t.Errorf("Href() = %q, want http://example.com/page/3", got)
	}
}

func TestExtractDeterminism(t *testing.T) {
	extractor := newTestExtractor(t)

	first, firstLabels, err := extractor.ExtractString(annotatedHTML, "http://example.com/page/1")
	if err != nil {
		t.Fatalf("ExtractString() error = %v", err)
	}
	second, secondLabels, err := extractor.ExtractString(annotatedHTML, "http://example.com/page/1")
	if err != nil {
		t.Fatalf("ExtractString() error = %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("anchor counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Text() != second[i].Text() || first[i].Href() != second[i].Href() {
			t.Errorf("anchor %d differs between runs", i)
		}
		if firstLabels[i] != secondLabels[i] {
			t.Errorf("label %d differs between runs", i)
		}
	}
}

func TestExtractEndToEnd(t *testing.T) {
	extractor := newTestExtractor(t)

	pairs, labels, err := extractor.ExtractString(
		`<a href="/p/2">Next</a><a href="/p/2">2</a>`, "http://x.com/p/1")
	if err != nil {
		t.Fatalf("ExtractString() error = %v", err)
	}
	if len(pairs) != 2 {
		t.Fatalf("got %d anchors, want 2", len(pairs))
	}
	for i, label := range labels {
		if label != 0 {
			t.Errorf("labels[%d] = %d, want 0 for unannotated input", i, label)
		}
	}
	for _, pair := range pairs {
		if pair.Href() != "http://x.com/p/2" {
			t.Errorf("Href() = %q, want http://x.com/p/2", pair.Href())
		}
	}

	fn := NumberPatternFunc{}
	if got := fn.Apply(pairs[0].Anchor, pairs[0].PageURL)["number_pattern"]; got != false {
		t.Errorf(`number_pattern for "Next" = %v, want false`, got)
	}
	if got := fn.Apply(pairs[1].Anchor, pairs[1].PageURL)["number_pattern"]; got != true {
		t.Errorf(`number_pattern for "2" = %v, want true`, got)
	}
}

func TestExtractErrors(t *testing.T) {
	extractor := newTestExtractor(t)

	_, _, err := extractor.ExtractString("", "http://example.com/")
	if !errors.Is(err, ErrUnparsable) {
		t.Errorf("empty input: error = %v, want ErrUnparsable", err)
	}
	_, _, err = extractor.ExtractString("   \n\t ", "http://example.com/")
	if !errors.Is(err, ErrUnparsable) {
		t.Errorf("blank input: error = %v, want ErrUnparsable", err)
	}

	_, _, err = extractor.ExtractString(annotatedHTML, "")
	if !errors.Is(err, ErrNoBaseURL) {
		t.Errorf("missing base: error = %v, want ErrNoBaseURL", err)
	}
	_, _, err = extractor.ExtractString(annotatedHTML, "/page/1")
	if !errors.Is(err, ErrNoBaseURL) {
		t.Errorf("relative base: error = %v, want ErrNoBaseURL", err)
	}
}

func TestExtractMalformedHTML(t *testing.T) {
	extractor := newTestExtractor(t)

	pairs, _, err := extractor.ExtractString(
		`<div><a href="/p/2">Next<p>unclosed`, "http://x.com/p/1")
	if err != nil {
		t.Fatalf("ExtractString() error = %v", err)
	}
	if len(pairs) != 1 {
		t.Fatalf("got %d anchors, want 1", len(pairs))
	}
}

func TestCleanIdempotent(t *testing.T) {
	extractor := newTestExtractor(t)

	doc, err := extractor.CleanHTML(annotatedHTML)
	if err != nil {
		t.Fatalf("CleanHTML() error = %v", err)
	}
	once, err := doc.Html()
	if err != nil {
		t.Fatal(err)
	}

	again, err := extractor.CleanHTML(once)
	if err != nil {
		t.Fatalf("CleanHTML() error = %v", err)
	}
	twice, err := again.Html()
	if err != nil {
		t.Fatal(err)
	}
	if once != twice {
		t.Error("cleaning an already-clean document changed it")
	}
}

func TestExtractBytesWithEncoding(t *testing.T) {
	extractor, err := NewHTMLFeaturesExtractor(ExtractorConfig{Encoding: "iso-8859-1"})
	if err != nil {
		t.Fatalf("NewHTMLFeaturesExtractor() error = %v", err)
	}

	// "café" in Latin-1.
	html := append([]byte(`<a href="/next">caf`), 0xE9)
	html = append(html, []byte(`</a>`)...)
	pairs, _, err := extractor.Extract(html, "http://example.com/")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got := pairs[0].Text(); got != "café" {
		t.Errorf("Text() = %q, want café", got)
	}
}

func TestExtractUnknownEncoding(t *testing.T) {
	_, err := NewHTMLFeaturesExtractor(ExtractorConfig{Encoding: "not-a-charset"})
	if err == nil {
		t.Fatal("expected error for unknown encoding, got nil")
	}
}

func TestExtractCustomTags(t *testing.T) {
	extractor, err := NewHTMLFeaturesExtractor(ExtractorConfig{Tags: []string{"NEXT", "PREV"}})
	if err != nil {
		t.Fatalf("NewHTMLFeaturesExtractor() error = %v", err)
	}

	html := `<a href="/p/0"><PREV>Back</PREV></a><a href="/p/2"><NEXT>Fwd</NEXT></a><a href="/p/9"><PAGE>x</PAGE></a>`
	pairs, labels, err := extractor.ExtractString(html, "http://x.com/p/1")
	if err != nil {
		t.Fatalf("ExtractString() error = %v", err)
	}
	wantLabels := []int{1, 1, 0}
	for i, want := range wantLabels {
		if labels[i] != want {
			t.Errorf("labels[%d] = %d, want %d", i, labels[i], want)
		}
	}
	// Unknown pseudo-tags pass through the parser untouched and end up
	// dropped as markup, leaving the plain text.
	if got := pairs[2].Text(); got != "x" {
		t.Errorf("pairs[2].Text() = %q, want x", got)
	}
}

func TestExtractCustomTokenizer(t *testing.T) {
	calls := 0
	extractor, err := NewHTMLFeaturesExtractor(ExtractorConfig{
		Tokenize: func(s string) []string {
			calls++
			return strings.Fields(s)
		},
	})
	if err != nil {
		t.Fatalf("NewHTMLFeaturesExtractor() error = %v", err)
	}

	_, _, err = extractor.ExtractString(`<a href="/p/2">Next</a>`, "http://x.com/p/1")
	if err != nil {
		t.Fatalf("ExtractString() error = %v", err)
	}
	if calls == 0 {
		t.Error("custom tokenizer was never called")
	}
}
