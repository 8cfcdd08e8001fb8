package classifier

import (
	"fmt"

	"github.com/happyhackingspace/webpager/internal/vectorizer"
)

// DefaultTransformers returns the standard anchor feature transformers in
// their canonical order: anchor text n-grams, class/id n-grams, URL query
// parameter n-grams, context features, and URL edit distance. Model
// coefficients are aligned to this order.
func DefaultTransformers() []Transformer {
	misc, err := NewContextTransformer("anchor_misc", DefaultContextFuncs())
	if err != nil {
		// The stock context funcs declare fixed disjoint keys.
		panic(err)
	}
	return []Transformer{
		NewTextTransformer("anchor_text", AnchorTextStrategy{}, DefaultTextConfig()),
		NewTextTransformer("anchor_class_id", AnchorClassIDStrategy{}, DefaultTextConfig()),
		NewTextTransformer("anchor_query_params", AnchorQueryParamsStrategy{}, DefaultTextConfig()),
		misc,
		NewEditDistanceTransformer("anchor_edit_distance"),
	}
}

// FeatureUnion concatenates the output columns of uniquely named
// transformers in a fixed order.
type FeatureUnion struct {
	transformers []Transformer
	fitted       bool
}

// NewFeatureUnion builds a union over transformers. Names must be unique.
func NewFeatureUnion(transformers []Transformer) (*FeatureUnion, error) {
	seen := make(map[string]bool)
	for _, tr := range transformers {
		if seen[tr.Name()] {
			return nil, fmt.Errorf("duplicate transformer name %q", tr.Name())
		}
		seen[tr.Name()] = true
	}
	return &FeatureUnion{transformers: transformers}, nil
}

// DefaultFeatureUnion returns an unfitted union over DefaultTransformers.
func DefaultFeatureUnion() *FeatureUnion {
	union, err := NewFeatureUnion(DefaultTransformers())
	if err != nil {
		panic(err)
	}
	return union
}

// Names returns the transformer names in column-block order.
func (u *FeatureUnion) Names() []string {
	names := make([]string, len(u.transformers))
	for i, tr := range u.transformers {
		names[i] = tr.Name()
	}
	return names
}

// Fitted reports whether the union has learned vocabularies.
func (u *FeatureUnion) Fitted() bool { return u.fitted }

// FitTransform fits every transformer on pairs and returns the
// concatenated feature vectors, one per pair.
func (u *FeatureUnion) FitTransform(pairs []AnchorPage) []vectorizer.SparseVector {
	blocks := make([][]vectorizer.SparseVector, len(u.transformers))
	for i, tr := range u.transformers {
		blocks[i] = tr.FitTransform(pairs)
	}
	u.fitted = true
	return concatBlocks(blocks, len(pairs))
}

// Transform vectorizes pairs against the fitted vocabularies. Unseen
// input contributes nothing; the dimensionality never changes.
func (u *FeatureUnion) Transform(pairs []AnchorPage) ([]vectorizer.SparseVector, error) {
	if !u.fitted {
		return nil, ErrNotFitted
	}
	blocks := make([][]vectorizer.SparseVector, len(u.transformers))
	for i, tr := range u.transformers {
		vecs, err := tr.Transform(pairs)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", tr.Name(), err)
		}
		blocks[i] = vecs
	}
	return concatBlocks(blocks, len(pairs)), nil
}

// NumFeatures returns the union's total column count.
func (u *FeatureUnion) NumFeatures() int {
	total := 0
	for _, tr := range u.transformers {
		total += tr.NumFeatures()
	}
	return total
}

// FeatureNames returns "transformer__feature" names in column order.
func (u *FeatureUnion) FeatureNames() []string {
	names := make([]string, 0, u.NumFeatures())
	for _, tr := range u.transformers {
		for _, name := range tr.FeatureNames() {
			names = append(names, tr.Name()+"__"+name)
		}
	}
	return names
}

func concatBlocks(blocks [][]vectorizer.SparseVector, n int) []vectorizer.SparseVector {
	out := make([]vectorizer.SparseVector, n)
	row := make([]vectorizer.SparseVector, len(blocks))
	for j := range n {
		for i := range blocks {
			row[i] = blocks[i][j]
		}
		out[j] = vectorizer.ConcatSparse(row)
	}
	return out
}

// SerializedTransformer is the persistent state of one fitted transformer
// inside a union.
type SerializedTransformer struct {
	Name     string                      `json:"name"`
	Kind     string                      `json:"kind"` // "text", "context", "edit_distance"
	Strategy string                      `json:"strategy,omitempty"`
	Funcs    []string                    `json:"funcs,omitempty"`
	CountVec *vectorizer.CountVectorizer `json:"count_vec,omitempty"`
	DictVec  *vectorizer.DictVectorizer  `json:"dict_vec,omitempty"`
}

// Serialize captures the fitted state of every transformer. Only the
// stock transformer kinds and strategies serialize; custom Transformer
// implementations are rebuilt in code instead.
func (u *FeatureUnion) Serialize() ([]SerializedTransformer, error) {
	if !u.fitted {
		return nil, ErrNotFitted
	}
	out := make([]SerializedTransformer, len(u.transformers))
	for i, tr := range u.transformers {
		switch t := tr.(type) {
		case *TextTransformer:
			out[i] = SerializedTransformer{
				Name:     t.name,
				Kind:     "text",
				Strategy: textStrategyName(t.strategy),
				CountVec: t.vec,
			}
		case *ContextTransformer:
			funcs := make([]string, len(t.funcs))
			for j, fn := range t.funcs {
				funcs[j] = contextFuncName(fn)
			}
			out[i] = SerializedTransformer{
				Name:    t.name,
				Kind:    "context",
				Funcs:   funcs,
				DictVec: t.vec,
			}
		case *EditDistanceTransformer:
			out[i] = SerializedTransformer{Name: t.name, Kind: "edit_distance"}
		default:
			return nil, fmt.Errorf("transformer %q (%T) is not serializable", tr.Name(), tr)
		}
	}
	return out, nil
}

// RestoreFeatureUnion rebuilds a fitted union from serialized state.
func RestoreFeatureUnion(serialized []SerializedTransformer) (*FeatureUnion, error) {
	transformers := make([]Transformer, len(serialized))
	for i, s := range serialized {
		switch s.Kind {
		case "text":
			strategy := textStrategyByName(s.Strategy)
			if strategy == nil {
				return nil, fmt.Errorf("transformer %q: unknown text strategy %q", s.Name, s.Strategy)
			}
			if s.CountVec == nil {
				return nil, fmt.Errorf("transformer %q: missing vectorizer state", s.Name)
			}
			transformers[i] = &TextTransformer{name: s.Name, strategy: strategy, vec: s.CountVec}
		case "context":
			funcs := make([]ContextFunc, len(s.Funcs))
			for j, name := range s.Funcs {
				fn := contextFuncByName(name)
				if fn == nil {
					return nil, fmt.Errorf("transformer %q: unknown context func %q", s.Name, name)
				}
				funcs[j] = fn
			}
			ct, err := NewContextTransformer(s.Name, funcs)
			if err != nil {
				return nil, err
			}
			if s.DictVec == nil {
				return nil, fmt.Errorf("transformer %q: missing vectorizer state", s.Name)
			}
			ct.vec = s.DictVec
			transformers[i] = ct
		case "edit_distance":
			transformers[i] = NewEditDistanceTransformer(s.Name)
		default:
			return nil, fmt.Errorf("transformer %q: unknown kind %q", s.Name, s.Kind)
		}
	}
	union, err := NewFeatureUnion(transformers)
	if err != nil {
		return nil, err
	}
	union.fitted = true
	return union, nil
}
