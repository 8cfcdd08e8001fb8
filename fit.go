package webpager

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/happyhackingspace/webpager/classifier"
	"github.com/happyhackingspace/webpager/internal/htmlutil"
	"github.com/happyhackingspace/webpager/internal/storage"
	"github.com/happyhackingspace/webpager/internal/vectorizer"
)

// FitConfig holds configuration for fitting feature vocabularies on an
// annotated corpus.
type FitConfig struct {
	// Domains restricts fitting to pages from these domains. Empty uses
	// the whole corpus.
	Domains []string
	// Limit caps the number of corpus pages. Zero means no limit.
	Limit   int
	Verbose bool
}

// FitStats summarizes a fitting run.
type FitStats struct {
	Pages    int      `json:"pages"`
	Anchors  int      `json:"anchors"`
	Positive int      `json:"positive"`
	Features int      `json:"features"`
	Domains  []string `json:"domains"`
}

// FitResult holds a fitted feature union together with the design matrix
// and weak labels it produced. Training a model on X and Labels is the
// caller's concern; classifier.NewNextPageModel assembles the trained
// weights and the union into a servable model.
type FitResult struct {
	Union  *classifier.FeatureUnion
	X      []vectorizer.SparseVector
	Labels []int
	Stats  FitStats
}

// Fit loads the annotated pages under dataDir, extracts their anchors
// and weak labels, and fits the default feature union on them.
func Fit(dataDir string, config *FitConfig) (*FitResult, error) {
	var cfg FitConfig
	if config != nil {
		cfg = *config
	}

	store := storage.NewPageStorage(dataDir)
	corpusConfig, err := store.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("webpager: %w", err)
	}
	pages, err := store.IterPages(storage.IterOptions{
		Domains: cfg.Domains,
		Limit:   cfg.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("webpager: %w", err)
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("webpager: no annotated pages found in %s", dataDir)
	}

	extractor, err := classifier.NewHTMLFeaturesExtractor(classifier.ExtractorConfig{
		Tags: corpusConfig.Tags,
	})
	if err != nil {
		return nil, fmt.Errorf("webpager: %w", err)
	}

	result := &FitResult{}
	var allPairs []classifier.AnchorPage
	seenDomains := make(map[string]bool)
	for _, page := range pages {
		pairs, labels, err := extractPage(extractor, page)
		if err != nil {
			slog.Warn("Skipping corpus page", "path", page.Path, "error", err)
			continue
		}
		if cfg.Verbose {
			slog.Debug("Extracted page", "path", page.Path, "anchors", len(pairs))
		}

		result.Stats.Pages++
		seenDomains[storage.GetDomain(page.URL)] = true
		allPairs = append(allPairs, pairs...)
		result.Labels = append(result.Labels, labels...)
		for _, label := range labels {
			if label == 1 {
				result.Stats.Positive++
			}
		}
	}
	if len(allPairs) == 0 {
		return nil, fmt.Errorf("webpager: corpus produced no anchors")
	}

	union := classifier.DefaultFeatureUnion()
	result.X = union.FitTransform(allPairs)
	result.Union = union
	result.Stats.Anchors = len(allPairs)
	result.Stats.Features = union.NumFeatures()
	for domain := range seenDomains {
		result.Stats.Domains = append(result.Stats.Domains, domain)
	}
	sort.Strings(result.Stats.Domains)

	return result, nil
}

func extractPage(extractor *classifier.HTMLFeaturesExtractor, page storage.Page) ([]classifier.AnchorPage, []int, error) {
	if page.URL == "" {
		return nil, nil, classifier.ErrNoBaseURL
	}
	if page.Encoding != "" {
		decoded, err := htmlutil.DecodeHTML(page.HTML, page.Encoding)
		if err != nil {
			return nil, nil, err
		}
		return extractor.ExtractString(decoded, page.URL)
	}
	return extractor.Extract(page.HTML, page.URL)
}
