package vectorizer

import "sort"

// DictVectorizer converts feature dicts (map[string]any) to sparse vectors.
//
// Numeric values keep their feature name and value. Booleans become 1 or 0.
// String values become one-hot "name=value" features, and []string values
// become multi-hot "name=value" features. The vocabulary is sorted during
// fitting, so identical input always produces identical columns. Unseen
// features are ignored at transform time.
type DictVectorizer struct {
	Vocab map[string]int `json:"vocab"`
	Names []string       `json:"feature_names"`
}

// NewDictVectorizer creates an unfitted DictVectorizer.
func NewDictVectorizer() *DictVectorizer {
	return &DictVectorizer{}
}

// Fitted reports whether the vectorizer has a vocabulary.
func (d *DictVectorizer) Fitted() bool {
	return d.Vocab != nil
}

// VocabSize returns the number of features in the vocabulary.
func (d *DictVectorizer) VocabSize() int {
	return len(d.Vocab)
}

// FeatureNames returns the vocabulary feature names in column order.
func (d *DictVectorizer) FeatureNames() []string {
	out := make([]string, len(d.Names))
	copy(out, d.Names)
	return out
}

// FitTransform learns the vocabulary from data and transforms it.
func (d *DictVectorizer) FitTransform(data []map[string]any) []SparseVector {
	seen := make(map[string]bool)
	for _, feats := range data {
		for name, value := range feats {
			for _, key := range featureKeys(name, value) {
				seen[key] = true
			}
		}
	}

	d.Names = make([]string, 0, len(seen))
	for key := range seen {
		d.Names = append(d.Names, key)
	}
	sort.Strings(d.Names)

	d.Vocab = make(map[string]int, len(d.Names))
	for i, key := range d.Names {
		d.Vocab[key] = i
	}

	out := make([]SparseVector, len(data))
	for i, feats := range data {
		out[i] = d.Transform(feats)
	}
	return out
}

// Transform converts one feature dict to a sparse vector using the fitted
// vocabulary. Features outside the vocabulary contribute nothing.
func (d *DictVectorizer) Transform(feats map[string]any) SparseVector {
	values := make(map[int]float64)
	for name, value := range feats {
		for _, kv := range featureValues(name, value) {
			if idx, ok := d.Vocab[kv.key]; ok && kv.value != 0 {
				values[idx] += kv.value
			}
		}
	}

	indices := make([]int, 0, len(values))
	for idx := range values {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	vec := SparseVector{
		Indices: indices,
		Values:  make([]float64, len(indices)),
		Dim:     len(d.Vocab),
	}
	for i, idx := range indices {
		vec.Values[i] = values[idx]
	}
	return vec
}

type keyValue struct {
	key   string
	value float64
}

// featureKeys returns the vocabulary keys a feature value contributes.
func featureKeys(name string, value any) []string {
	switch v := value.(type) {
	case string:
		return []string{name + "=" + v}
	case []string:
		keys := make([]string, len(v))
		for i, s := range v {
			keys[i] = name + "=" + s
		}
		return keys
	default:
		return []string{name}
	}
}

// featureValues returns the key/value pairs a feature value contributes.
func featureValues(name string, value any) []keyValue {
	switch v := value.(type) {
	case string:
		return []keyValue{{name + "=" + v, 1}}
	case []string:
		kvs := make([]keyValue, len(v))
		for i, s := range v {
			kvs[i] = keyValue{name + "=" + s, 1}
		}
		return kvs
	case bool:
		if v {
			return []keyValue{{name, 1}}
		}
		return []keyValue{{name, 0}}
	case float64:
		return []keyValue{{name, v}}
	case float32:
		return []keyValue{{name, float64(v)}}
	case int:
		return []keyValue{{name, float64(v)}}
	case int64:
		return []keyValue{{name, float64(v)}}
	default:
		// Unsupported value types contribute nothing.
		return nil
	}
}
