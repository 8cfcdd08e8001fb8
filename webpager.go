// Package webpager finds "next page" links in HTML listings.
//
// It scores every anchor on a page with a logistic model over character
// n-gram, context, and URL edit distance features, then returns the
// candidates that look like pagination links.
//
//	p, _ := webpager.New()
//	next, _ := p.NextPage(htmlString, "http://example.com/list?page=1")
//	if next != nil {
//	    fmt.Println(next.URL)   // "http://example.com/list?page=2"
//	    fmt.Println(next.Score) // 0.93
//	}
//
//	candidates, _ := p.Paginate(htmlString, "http://example.com/list?page=1")
//	for _, c := range candidates {
//	    fmt.Println(c.URL, c.Score)
//	}
package webpager

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/happyhackingspace/webpager/classifier"
)

// DefaultThreshold is the minimum score for an anchor to count as a
// pagination link.
const DefaultThreshold = 0.5

// Pager wraps a next-page scoring model and the anchor extractor it was
// fitted with.
type Pager struct {
	model     *classifier.NextPageModel
	extractor *classifier.HTMLFeaturesExtractor
	threshold float64
}

// Candidate is a scored pagination link.
type Candidate struct {
	URL   string  `json:"url"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// New loads the pager from "model.json", searching the current directory
// and parent directories up to the module root (where go.mod lives).
func New() (*Pager, error) {
	path, err := findModel("model.json")
	if err != nil {
		return nil, fmt.Errorf("webpager: %w", err)
	}
	return Load(path)
}

// ModelDir returns the directory where downloaded models are cached.
func ModelDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "webpager")
	}
	return "."
}

func findModel(name string) (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		// Stop at module root
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", fmt.Errorf("model.json not found")
}

// Load loads a trained pager from a model file.
func Load(path string) (*Pager, error) {
	model, err := classifier.LoadNextPageModel(path)
	if err != nil {
		return nil, fmt.Errorf("webpager: %w", err)
	}
	return NewPager(model)
}

// NewPager wraps an already loaded model.
func NewPager(model *classifier.NextPageModel) (*Pager, error) {
	extractor, err := classifier.NewHTMLFeaturesExtractor(classifier.DefaultExtractorConfig())
	if err != nil {
		return nil, fmt.Errorf("webpager: %w", err)
	}
	return &Pager{
		model:     model,
		extractor: extractor,
		threshold: DefaultThreshold,
	}, nil
}

// Save writes the pager's model to a model file.
func (p *Pager) Save(path string) error {
	if p.model == nil {
		return fmt.Errorf("webpager: pager not initialized")
	}
	if err := p.model.Save(path); err != nil {
		return fmt.Errorf("webpager: %w", err)
	}
	return nil
}

// Threshold returns the minimum score Paginate and NextPage accept.
func (p *Pager) Threshold() float64 { return p.threshold }

// SetThreshold changes the acceptance threshold. Values outside (0, 1)
// keep the current threshold.
func (p *Pager) SetThreshold(threshold float64) {
	if threshold > 0 && threshold < 1 {
		p.threshold = threshold
	}
}

// Candidates scores every anchor on the page and returns all of them,
// sorted by score descending. Anchors resolving to the same URL collapse
// into one candidate keeping the highest score. Anchors without an href
// are dropped.
func (p *Pager) Candidates(html, baseURL string) ([]Candidate, error) {
	if p.model == nil {
		return nil, fmt.Errorf("webpager: pager not initialized")
	}

	pairs, _, err := p.extractor.ExtractString(html, baseURL)
	if err != nil {
		return nil, fmt.Errorf("webpager: %w", err)
	}
	scores, err := p.model.Score(pairs)
	if err != nil {
		return nil, fmt.Errorf("webpager: %w", err)
	}

	best := make(map[string]Candidate, len(pairs))
	for i, pair := range pairs {
		href := pair.Href()
		if href == "" {
			continue
		}
		if prev, ok := best[href]; !ok || scores[i] > prev.Score {
			best[href] = Candidate{URL: href, Text: pair.Text(), Score: scores[i]}
		}
	}

	out := make([]Candidate, 0, len(best))
	for _, c := range best {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].URL < out[j].URL
	})
	return out, nil
}

// Paginate returns the candidates scoring at or above the threshold,
// sorted by score descending. Returns an empty slice (not nil) when
// nothing qualifies.
func (p *Pager) Paginate(html, baseURL string) ([]Candidate, error) {
	candidates, err := p.Candidates(html, baseURL)
	if err != nil {
		return nil, err
	}
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Score >= p.threshold {
			out = append(out, c)
		}
	}
	return out, nil
}

// NextPage returns the best candidate at or above the threshold, or nil
// when the page has no convincing pagination link.
func (p *Pager) NextPage(html, baseURL string) (*Candidate, error) {
	candidates, err := p.Paginate(html, baseURL)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	return &candidates[0], nil
}

// ExtractAnchors returns the page's anchors and weak labels without
// scoring them. It works without a loaded model.
func ExtractAnchors(html, baseURL string) ([]classifier.AnchorPage, []int, error) {
	extractor, err := classifier.NewHTMLFeaturesExtractor(classifier.DefaultExtractorConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("webpager: %w", err)
	}
	pairs, labels, err := extractor.ExtractString(html, baseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("webpager: %w", err)
	}
	return pairs, labels, nil
}
