package classifier

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/happyhackingspace/webpager/internal/vectorizer"
	"gonum.org/v1/gonum/floats"
)

// PositiveClass is the label of next-page anchors in a model's Classes.
const PositiveClass = "next"

// NextPageModel scores anchors with a multinomial logistic model over the
// feature union's columns.
type NextPageModel struct {
	Classes      []string                `json:"classes"`
	Coef         [][]float64             `json:"coef"`
	Intercept    []float64               `json:"intercept"`
	Transformers []SerializedTransformer `json:"transformers"`

	// Runtime state (not serialized)
	union    *FeatureUnion
	positive int
}

// NewNextPageModel assembles a model from a fitted union and logistic
// weights trained elsewhere.
func NewNextPageModel(union *FeatureUnion, classes []string, coef [][]float64, intercept []float64) (*NextPageModel, error) {
	serialized, err := union.Serialize()
	if err != nil {
		return nil, err
	}
	model := &NextPageModel{
		Classes:      classes,
		Coef:         coef,
		Intercept:    intercept,
		Transformers: serialized,
	}
	if err := model.InitRuntime(); err != nil {
		return nil, err
	}
	return model, nil
}

// InitRuntime rebuilds the feature union from serialized transformers and
// validates the weight shapes against it.
func (m *NextPageModel) InitRuntime() error {
	union, err := RestoreFeatureUnion(m.Transformers)
	if err != nil {
		return err
	}

	if len(m.Classes) < 2 {
		return fmt.Errorf("model has %d classes, want at least 2", len(m.Classes))
	}
	m.positive = -1
	for i, class := range m.Classes {
		if class == PositiveClass {
			m.positive = i
		}
	}
	if m.positive < 0 {
		return fmt.Errorf("model classes %v do not include %q", m.Classes, PositiveClass)
	}
	if len(m.Coef) != len(m.Classes) || len(m.Intercept) != len(m.Classes) {
		return fmt.Errorf("weight shapes (%d coef rows, %d intercepts) do not match %d classes",
			len(m.Coef), len(m.Intercept), len(m.Classes))
	}
	dim := union.NumFeatures()
	for c, row := range m.Coef {
		if len(row) != dim {
			return fmt.Errorf("coef row %d has %d columns, want %d", c, len(row), dim)
		}
	}

	m.union = union
	return nil
}

// Union returns the model's fitted feature union.
func (m *NextPageModel) Union() *FeatureUnion { return m.union }

// Score returns the probability that each anchor is a next-page link.
func (m *NextPageModel) Score(pairs []AnchorPage) ([]float64, error) {
	if m.union == nil {
		return nil, fmt.Errorf("model runtime is not initialized")
	}
	features, err := m.union.Transform(pairs)
	if err != nil {
		return nil, err
	}
	scores := make([]float64, len(features))
	for i, vec := range features {
		scores[i] = m.proba(vec)[m.positive]
	}
	return scores, nil
}

// ScoreProba returns per-class probabilities for each anchor.
func (m *NextPageModel) ScoreProba(pairs []AnchorPage) ([]map[string]float64, error) {
	if m.union == nil {
		return nil, fmt.Errorf("model runtime is not initialized")
	}
	features, err := m.union.Transform(pairs)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]float64, len(features))
	for i, vec := range features {
		probs := m.proba(vec)
		byClass := make(map[string]float64, len(m.Classes))
		for c, class := range m.Classes {
			byClass[class] = probs[c]
		}
		out[i] = byClass
	}
	return out, nil
}

func (m *NextPageModel) proba(vec vectorizer.SparseVector) []float64 {
	logits := make([]float64, len(m.Classes))
	for c := range m.Classes {
		logits[c] = vec.Dot(m.Coef[c]) + m.Intercept[c]
	}
	return softmax(logits)
}

// softmax converts logits to probabilities, shifted by the max logit so
// the exponentials cannot overflow.
func softmax(logits []float64) []float64 {
	probs := make([]float64, len(logits))
	copy(probs, logits)
	floats.AddConst(-floats.Max(probs), probs)
	for i, v := range probs {
		probs[i] = math.Exp(v)
	}
	floats.Scale(1/floats.Sum(probs), probs)
	return probs
}

// Save writes the model as indented JSON, creating parent directories as
// needed.
func (m *NextPageModel) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal model: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// LoadNextPageModel loads a model from disk and initializes its runtime.
func LoadNextPageModel(path string) (*NextPageModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}

	var model NextPageModel
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("unmarshal model: %w", err)
	}
	if err := model.InitRuntime(); err != nil {
		return nil, err
	}
	return &model, nil
}

// SavePipeline writes a fitted union's state as indented JSON. Callers
// that fit their own vocabularies persist them with this.
func SavePipeline(union *FeatureUnion, path string) error {
	serialized, err := union.Serialize()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(serialized, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal pipeline: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// LoadPipeline reads a fitted union back from disk.
func LoadPipeline(path string) (*FeatureUnion, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pipeline: %w", err)
	}

	var serialized []SerializedTransformer
	if err := json.Unmarshal(data, &serialized); err != nil {
		return nil, fmt.Errorf("unmarshal pipeline: %w", err)
	}
	return RestoreFeatureUnion(serialized)
}
