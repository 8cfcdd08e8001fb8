package classifier

import (
	"errors"
	"fmt"
	"maps"
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/happyhackingspace/webpager/internal/vectorizer"
)

// ErrNotFitted is returned when Transform runs before FitTransform or
// before fitted state has been restored.
var ErrNotFitted = errors.New("transformer is not fitted")

// Transformer turns anchor/page pairs into sparse feature vectors.
// FitTransform learns a vocabulary from the pairs and vectorizes them in
// one pass. Transform reuses the fitted vocabulary; input outside the
// vocabulary contributes nothing and is never an error.
type Transformer interface {
	Name() string
	FitTransform(pairs []AnchorPage) []vectorizer.SparseVector
	Transform(pairs []AnchorPage) ([]vectorizer.SparseVector, error)
	NumFeatures() int
	FeatureNames() []string
}

// TextStrategy selects the text a TextTransformer vectorizes from an
// anchor.
type TextStrategy interface {
	GetText(anchor *goquery.Selection) string
}

// AnchorTextStrategy uses the anchor's text content.
type AnchorTextStrategy struct{}

func (AnchorTextStrategy) GetText(anchor *goquery.Selection) string {
	return anchor.Text()
}

// AnchorClassIDStrategy uses the anchor's class and id attribute values
// concatenated.
type AnchorClassIDStrategy struct{}

func (AnchorClassIDStrategy) GetText(anchor *goquery.Selection) string {
	class, _ := anchor.Attr("class")
	id, _ := anchor.Attr("id")
	return class + id
}

// AnchorQueryParamsStrategy uses the anchor href's query parameter names,
// sorted and space-joined. Values are ignored; only the keys carry the
// pagination signal ("page", "offset", "p").
type AnchorQueryParamsStrategy struct{}

func (AnchorQueryParamsStrategy) GetText(anchor *goquery.Selection) string {
	href, _ := anchor.Attr("href")
	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	values, err := url.ParseQuery(parsed.RawQuery)
	if err != nil {
		return ""
	}
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return strings.Join(keys, " ")
}

func textStrategyName(strategy TextStrategy) string {
	switch strategy.(type) {
	case AnchorTextStrategy:
		return "anchor_text"
	case AnchorClassIDStrategy:
		return "class_id"
	case AnchorQueryParamsStrategy:
		return "query_params"
	default:
		return "unknown"
	}
}

func textStrategyByName(name string) TextStrategy {
	switch name {
	case "anchor_text":
		return AnchorTextStrategy{}
	case "class_id":
		return AnchorClassIDStrategy{}
	case "query_params":
		return AnchorQueryParamsStrategy{}
	default:
		return nil
	}
}

// TextConfig configures a TextTransformer's vectorizer.
type TextConfig struct {
	NgramRange [2]int
	MinDF      int
	Binary     bool
	Analyzer   string
}

// DefaultTextConfig returns the standard character n-gram configuration:
// 2 to 4 character n-grams, binary counts, every seen n-gram kept.
func DefaultTextConfig() TextConfig {
	return TextConfig{
		NgramRange: [2]int{2, 4},
		MinDF:      1,
		Binary:     true,
		Analyzer:   "char",
	}
}

// TextTransformer vectorizes strategy-selected anchor text with n-gram
// counts.
type TextTransformer struct {
	name     string
	strategy TextStrategy
	vec      *vectorizer.CountVectorizer
}

// NewTextTransformer builds a text transformer with the given name and
// strategy.
func NewTextTransformer(name string, strategy TextStrategy, config TextConfig) *TextTransformer {
	return &TextTransformer{
		name:     name,
		strategy: strategy,
		vec:      vectorizer.NewCountVectorizer(config.NgramRange, config.MinDF, config.Binary, config.Analyzer, nil),
	}
}

func (t *TextTransformer) Name() string { return t.name }

func (t *TextTransformer) FitTransform(pairs []AnchorPage) []vectorizer.SparseVector {
	return t.vec.FitTransform(t.texts(pairs))
}

func (t *TextTransformer) Transform(pairs []AnchorPage) ([]vectorizer.SparseVector, error) {
	if !t.vec.Fitted() {
		return nil, ErrNotFitted
	}
	out := make([]vectorizer.SparseVector, len(pairs))
	for i, text := range t.texts(pairs) {
		out[i] = t.vec.Transform(text)
	}
	return out, nil
}

func (t *TextTransformer) NumFeatures() int { return t.vec.VocabSize() }

func (t *TextTransformer) FeatureNames() []string { return t.vec.FeatureNames() }

func (t *TextTransformer) texts(pairs []AnchorPage) []string {
	texts := make([]string, len(pairs))
	for i, pair := range pairs {
		texts[i] = t.strategy.GetText(pair.Anchor)
	}
	return texts
}

// ContextTransformer vectorizes the context features computed by a set of
// ContextFuncs.
type ContextTransformer struct {
	name  string
	funcs []ContextFunc
	vec   *vectorizer.DictVectorizer
}

// NewContextTransformer builds a context transformer. The funcs must
// declare pairwise disjoint feature keys; an overlap is a configuration
// error.
func NewContextTransformer(name string, funcs []ContextFunc) (*ContextTransformer, error) {
	seen := make(map[string]bool)
	for _, fn := range funcs {
		for _, key := range fn.Keys() {
			if seen[key] {
				return nil, fmt.Errorf("context feature key %q declared twice", key)
			}
			seen[key] = true
		}
	}
	return &ContextTransformer{
		name:  name,
		funcs: funcs,
		vec:   vectorizer.NewDictVectorizer(),
	}, nil
}

func (t *ContextTransformer) Name() string { return t.name }

func (t *ContextTransformer) FitTransform(pairs []AnchorPage) []vectorizer.SparseVector {
	return t.vec.FitTransform(t.features(pairs))
}

func (t *ContextTransformer) Transform(pairs []AnchorPage) ([]vectorizer.SparseVector, error) {
	if !t.vec.Fitted() {
		return nil, ErrNotFitted
	}
	out := make([]vectorizer.SparseVector, len(pairs))
	for i, feats := range t.features(pairs) {
		out[i] = t.vec.Transform(feats)
	}
	return out, nil
}

func (t *ContextTransformer) NumFeatures() int { return t.vec.VocabSize() }

func (t *ContextTransformer) FeatureNames() []string { return t.vec.FeatureNames() }

func (t *ContextTransformer) features(pairs []AnchorPage) []map[string]any {
	out := make([]map[string]any, len(pairs))
	for i, pair := range pairs {
		feats := make(map[string]any)
		for _, fn := range t.funcs {
			maps.Copy(feats, fn.Apply(pair.Anchor, pair.PageURL))
		}
		out[i] = feats
	}
	return out
}

func contextFuncName(fn ContextFunc) string {
	switch fn.(type) {
	case ParentTagFunc:
		return "parent_tag"
	case BlockLengthFunc:
		return "block_length"
	case NumberPatternFunc:
		return "number_pattern"
	default:
		return "unknown"
	}
}

func contextFuncByName(name string) ContextFunc {
	switch name {
	case "parent_tag":
		return ParentTagFunc{}
	case "block_length":
		return BlockLengthFunc{}
	case "number_pattern":
		return NumberPatternFunc{}
	default:
		return nil
	}
}

// EditDistanceTransformer emits a single column holding the normalized
// edit distance between each anchor's href and its page URL. It carries
// no fitted state, so fitting and transforming are the same operation.
type EditDistanceTransformer struct {
	name string
}

// NewEditDistanceTransformer builds an edit distance transformer.
func NewEditDistanceTransformer(name string) *EditDistanceTransformer {
	return &EditDistanceTransformer{name: name}
}

func (t *EditDistanceTransformer) Name() string { return t.name }

func (t *EditDistanceTransformer) FitTransform(pairs []AnchorPage) []vectorizer.SparseVector {
	out, _ := t.Transform(pairs)
	return out
}

func (t *EditDistanceTransformer) Transform(pairs []AnchorPage) ([]vectorizer.SparseVector, error) {
	out := make([]vectorizer.SparseVector, len(pairs))
	for i, pair := range pairs {
		out[i] = vectorizer.SparseVector{
			Indices: []int{0},
			Values:  []float64{URLEditDistance(pair.Anchor, pair.PageURL)},
			Dim:     1,
		}
	}
	return out, nil
}

func (t *EditDistanceTransformer) NumFeatures() int { return 1 }

func (t *EditDistanceTransformer) FeatureNames() []string {
	return []string{"edit_distance"}
}
