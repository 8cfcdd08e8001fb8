// Package storage reads annotated pagination corpora from disk.
//
// A corpus folder holds an index.json mapping relative HTML paths to
// page metadata, the HTML files themselves (annotated inline with
// pseudo-tags such as <PAGE>), and an optional config.json naming the
// tag set the corpus was annotated with.
package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// PageStorage wraps an annotated page corpus folder.
type PageStorage struct {
	Folder string
}

// NewPageStorage creates a PageStorage for the given corpus folder.
func NewPageStorage(folder string) *PageStorage {
	return &PageStorage{Folder: folder}
}

// CorpusConfig is the structure of the corpus config.json.
type CorpusConfig struct {
	// Tags are the pseudo-tag names used in the corpus annotations.
	Tags []string `json:"tags"`
	// Encoding is a corpus-wide character encoding override. Empty means
	// per-page detection.
	Encoding string `json:"encoding,omitempty"`
}

// pageIndexEntry represents a single entry in index.json.
type pageIndexEntry struct {
	URL      string `json:"url"`
	Encoding string `json:"encoding,omitempty"`
}

// Page represents a single stored page.
type Page struct {
	HTML     []byte
	URL      string
	Encoding string
	Path     string // relative path inside the corpus folder
}

// IterOptions filters corpus iteration.
type IterOptions struct {
	// Domains keeps only pages whose URL host matches one of these
	// domains. Empty keeps all pages.
	Domains []string
	// Limit stops after this many pages. Zero means no limit.
	Limit int
}

// GetConfig reads config.json. A missing file yields the default config
// with the "PAGE" tag.
func (s *PageStorage) GetConfig() (CorpusConfig, error) {
	data, err := os.ReadFile(filepath.Join(s.Folder, "config.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return CorpusConfig{Tags: []string{"PAGE"}}, nil
		}
		return CorpusConfig{}, err
	}
	var config CorpusConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return CorpusConfig{}, err
	}
	if len(config.Tags) == 0 {
		config.Tags = []string{"PAGE"}
	}
	return config, nil
}

// GetIndex reads the page index file.
func (s *PageStorage) GetIndex() (map[string]pageIndexEntry, error) {
	data, err := os.ReadFile(filepath.Join(s.Folder, "index.json"))
	if err != nil {
		return nil, err
	}
	var index map[string]pageIndexEntry
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, err
	}
	return index, nil
}

// IterPages yields the stored pages matching opts.
func (s *PageStorage) IterPages(opts IterOptions) ([]Page, error) {
	config, err := s.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("get corpus config: %w", err)
	}
	index, err := s.GetIndex()
	if err != nil {
		return nil, fmt.Errorf("get page index: %w", err)
	}

	// Sort by domain + path for deterministic ordering
	type pathInfo struct {
		path string
		info pageIndexEntry
	}
	sorted := make([]pathInfo, 0, len(index))
	for path, info := range index {
		sorted = append(sorted, pathInfo{path, info})
	}
	sort.Slice(sorted, func(i, j int) bool {
		di := GetDomain(sorted[i].info.URL)
		dj := GetDomain(sorted[j].info.URL)
		if di != dj {
			return di < dj
		}
		return sorted[i].path < sorted[j].path
	})

	keep := make(map[string]bool, len(opts.Domains))
	for _, domain := range opts.Domains {
		keep[strings.ToLower(domain)] = true
	}

	var pages []Page
	for _, pi := range sorted {
		if opts.Limit > 0 && len(pages) >= opts.Limit {
			break
		}
		if len(keep) > 0 && !keep[GetDomain(pi.info.URL)] {
			continue
		}

		htmlData, err := os.ReadFile(filepath.Join(s.Folder, pi.path))
		if err != nil {
			slog.Warn("Cannot read corpus page file", "path", pi.path, "error", err)
			continue
		}

		encoding := pi.info.Encoding
		if encoding == "" {
			encoding = config.Encoding
		}

		pages = append(pages, Page{
			HTML:     htmlData,
			URL:      pi.info.URL,
			Encoding: encoding,
			Path:     pi.path,
		})
	}

	return pages, nil
}

// Domains returns the distinct page domains in the corpus, sorted.
func (s *PageStorage) Domains() ([]string, error) {
	index, err := s.GetIndex()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	for _, info := range index {
		if domain := GetDomain(info.URL); domain != "" {
			seen[domain] = true
		}
	}
	domains := make([]string, 0, len(seen))
	for domain := range seen {
		domains = append(domains, domain)
	}
	sort.Strings(domains)
	return domains, nil
}

// GetDomain returns the lowercase host of rawURL without a leading
// "www.", or "" when the URL does not parse.
func GetDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}
