package classifier

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/happyhackingspace/webpager/internal/htmlutil"
	"github.com/happyhackingspace/webpager/internal/textutil"
)

// ContextFunc computes a named group of context features for an anchor.
// Implementations declare their feature keys up front so a
// ContextTransformer can reject overlapping keys when it is configured.
type ContextFunc interface {
	Keys() []string
	Apply(anchor *goquery.Selection, pageURL string) map[string]any
}

// ParentTagFunc emits the tag name of the anchor's parent element.
type ParentTagFunc struct{}

func (ParentTagFunc) Keys() []string { return []string{"parent_tag"} }

func (ParentTagFunc) Apply(anchor *goquery.Selection, _ string) map[string]any {
	return map[string]any{"parent_tag": htmlutil.ParentTag(anchor)}
}

// BlockLengthFunc emits the normalized text length of the anchor's nearest
// block-level container.
type BlockLengthFunc struct{}

func (BlockLengthFunc) Keys() []string { return []string{"block_length"} }

func (BlockLengthFunc) Apply(anchor *goquery.Selection, _ string) map[string]any {
	length := 0
	if block := htmlutil.NearestBlock(anchor); block.Length() > 0 {
		length = len(htmlutil.NormalizeSpace(block.Text()))
	}
	return map[string]any{"block_length": float64(length)}
}

// defaultDigitRatio is the minimum digit fraction for NumberPatternFunc.
const defaultDigitRatio = 0.5

// NumberPatternFunc emits whether the anchor text looks like a page index:
// mostly digits, as in "2" or "10".
type NumberPatternFunc struct {
	// DigitRatio is the minimum fraction of digit characters. Zero means
	// the default of 0.5.
	DigitRatio float64
}

func (NumberPatternFunc) Keys() []string { return []string{"number_pattern"} }

func (f NumberPatternFunc) Apply(anchor *goquery.Selection, _ string) map[string]any {
	ratio := f.DigitRatio
	if ratio <= 0 {
		ratio = defaultDigitRatio
	}
	text := strings.TrimSpace(anchor.Text())
	return map[string]any{"number_pattern": textutil.NumberPattern(text, ratio) != ""}
}

// DefaultContextFuncs returns the stock context feature functions.
func DefaultContextFuncs() []ContextFunc {
	return []ContextFunc{ParentTagFunc{}, BlockLengthFunc{}, NumberPatternFunc{}}
}

// URLEditDistance returns the Levenshtein distance between the anchor's
// href and the page URL, normalized by the longer of the two. Anchors
// without an href compare as the empty string.
func URLEditDistance(anchor *goquery.Selection, pageURL string) float64 {
	href, _ := anchor.Attr("href")
	return textutil.EditDistanceRatio(href, pageURL)
}
