package main

import (
	"bufio"
	"crypto/md5"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/happyhackingspace/webpager/internal/htmlutil"
	"github.com/spf13/cobra"
)

// seedEntry represents a single entry in the seed file (JSONL).
type seedEntry struct {
	URL string `json:"url"`
	// Pattern is a URL template with a {n} placeholder for the page
	// number. Empty means infer it from the URL.
	Pattern string `json:"pattern,omitempty"`
	// Pages is how many pages of the listing to collect, starting at the
	// seed URL itself.
	Pages int `json:"pages,omitempty"`
}

// pageIndexEntry matches the corpus index.json format.
type pageIndexEntry struct {
	URL      string `json:"url"`
	Encoding string `json:"encoding,omitempty"`
}

var version = "dev"

func main() {
	var (
		outputDir string
		seedFile  string
		timeout   int
		delay     int
		userAgent string
		verbose   bool
		maxPages  int
	)

	rootCmd := &cobra.Command{
		Use:     "webpager-collect",
		Short:   "Collect HTML listing pages for pagination annotation",
		Version: version,
	}

	collectCmd := &cobra.Command{
		Use:   "collect",
		Short: "Fetch listing pages from seed URLs and save to data/pages/",
		Example: `  webpager-collect collect --seed seeds.jsonl --output data/pages
  webpager-collect collect --seed seeds.jsonl --output data/pages --delay 2000
  webpager-collect collect --seed seeds.jsonl --output data/pages --max 50`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
			}

			seeds, err := loadSeeds(seedFile)
			if err != nil {
				return fmt.Errorf("load seeds: %w", err)
			}
			slog.Info("Loaded seeds", "count", len(seeds))

			index, err := loadIndex(outputDir)
			if err != nil {
				return fmt.Errorf("load index: %w", err)
			}

			client := &http.Client{
				Timeout: time.Duration(timeout) * time.Second,
				Transport: &http.Transport{
					TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
				},
				CheckRedirect: func(req *http.Request, via []*http.Request) error {
					if len(via) >= 5 {
						return fmt.Errorf("too many redirects")
					}
					return nil
				},
			}

			htmlDir := filepath.Join(outputDir, "html")
			if err := os.MkdirAll(htmlDir, 0755); err != nil {
				return fmt.Errorf("create html dir: %w", err)
			}

			collected := 0
			for _, seed := range seeds {
				for _, pageURL := range expandSeed(seed) {
					if maxPages > 0 && collected >= maxPages {
						break
					}

					if err := fetchAndSave(client, pageURL, userAgent, outputDir, index); err != nil {
						slog.Warn("Failed to fetch", "url", pageURL, "error", err)
					} else {
						collected++
						slog.Info("Collected", "url", pageURL, "total", collected)
					}

					if delay > 0 {
						time.Sleep(time.Duration(delay) * time.Millisecond)
					}
				}
			}

			if err := saveIndex(outputDir, index); err != nil {
				return fmt.Errorf("save index: %w", err)
			}

			slog.Info("Collection complete", "total", collected, "index_entries", len(index))
			return nil
		},
	}

	collectCmd.Flags().StringVar(&seedFile, "seed", "", "Path to seed file (JSONL)")
	collectCmd.Flags().StringVar(&outputDir, "output", "data/pages", "Output directory")
	collectCmd.Flags().IntVar(&timeout, "timeout", 30, "HTTP timeout in seconds")
	collectCmd.Flags().IntVar(&delay, "delay", 1000, "Delay between requests in milliseconds")
	collectCmd.Flags().StringVar(&userAgent, "user-agent", "Mozilla/5.0 (compatible; webpager-collect/1.0)", "User-Agent header")
	collectCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	collectCmd.Flags().IntVar(&maxPages, "max", 0, "Maximum pages to collect (0 = unlimited)")
	_ = collectCmd.MarkFlagRequired("seed")

	genSeedCmd := &cobra.Command{
		Use:   "gen-seeds",
		Short: "Generate seed file from common listing URL patterns",
		Example: `  webpager-collect gen-seeds --domains domains.txt --output seeds.jsonl
  webpager-collect gen-seeds --domains domains.txt --output seeds.jsonl --pages 5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			domainsFile, _ := cmd.Flags().GetString("domains")
			output, _ := cmd.Flags().GetString("output")
			pages, _ := cmd.Flags().GetInt("pages")

			domains, err := loadLines(domainsFile)
			if err != nil {
				return fmt.Errorf("load domains: %w", err)
			}

			f, err := os.Create(output)
			if err != nil {
				return err
			}
			defer f.Close()

			enc := json.NewEncoder(f)
			count := 0
			for _, domain := range domains {
				domain = strings.TrimSpace(domain)
				if domain == "" {
					continue
				}
				if !strings.HasPrefix(domain, "http") {
					domain = "https://" + domain
				}

				for _, pattern := range listingPatterns() {
					seed := seedEntry{
						URL:     domain + strings.ReplaceAll(pattern, "{n}", "1"),
						Pattern: domain + pattern,
						Pages:   pages,
					}
					if err := enc.Encode(seed); err != nil {
						return err
					}
					count++
				}
			}

			fmt.Printf("Generated %d seed entries to %s\n", count, output)
			return nil
		},
	}
	genSeedCmd.Flags().String("domains", "", "File with domain list (one per line)")
	genSeedCmd.Flags().String("output", "seeds.jsonl", "Output seed file")
	genSeedCmd.Flags().Int("pages", 3, "Listing pages to collect per pattern")
	_ = genSeedCmd.MarkFlagRequired("domains")

	rootCmd.AddCommand(collectCmd, genSeedCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadSeeds(path string) ([]seedEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var seeds []seedEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		var s seedEntry
		if err := json.Unmarshal([]byte(line), &s); err != nil {
			slog.Warn("Skipping invalid seed line", "line", line, "error", err)
			continue
		}
		seeds = append(seeds, s)
	}
	return seeds, scanner.Err()
}

func loadLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}

func loadIndex(dir string) (map[string]pageIndexEntry, error) {
	path := filepath.Join(dir, "index.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]pageIndexEntry), nil
		}
		return nil, err
	}
	var index map[string]pageIndexEntry
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, err
	}
	return index, nil
}

func saveIndex(dir string, index map[string]pageIndexEntry) error {
	data, err := json.MarshalIndent(index, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "index.json"), data, 0644)
}

func fetchHTML(client *http.Client, rawURL, userAgent string) ([]byte, int, error) {
	req, err := http.NewRequest("GET", rawURL, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	// Limit body size to 5MB
	body := make([]byte, 0, 1024*1024)
	buf := make([]byte, 32*1024)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			body = append(body, buf[:n]...)
			if len(body) > 5*1024*1024 {
				break
			}
		}
		if err != nil {
			break
		}
	}

	return body, resp.StatusCode, nil
}

func fetchAndSave(client *http.Client, rawURL, userAgent, outputDir string, index map[string]pageIndexEntry) error {
	body, status, err := fetchHTML(client, rawURL, userAgent)
	if err != nil {
		return err
	}
	if status >= 400 {
		return fmt.Errorf("HTTP %d", status)
	}
	if len(body) < 100 {
		return fmt.Errorf("response too short (%d bytes)", len(body))
	}

	entry := pageIndexEntry{URL: rawURL}
	if encoding := htmlutil.DetectCharset(body); encoding != "utf-8" {
		entry.Encoding = encoding
	}

	filename := saveHTMLFile(body, rawURL, outputDir)
	index[filename] = entry
	return nil
}

func saveHTMLFile(body []byte, rawURL, outputDir string) string {
	hash := fmt.Sprintf("%x", md5.Sum([]byte(rawURL)))
	filename := "html/" + hash[:12] + ".html"
	path := filepath.Join(outputDir, filename)
	_ = os.MkdirAll(filepath.Dir(path), 0755)
	_ = os.WriteFile(path, body, 0644)
	return filename
}

// expandSeed returns the seed URL followed by its paginated variants.
func expandSeed(seed seedEntry) []string {
	urls := []string{seed.URL}
	if seed.Pages < 2 {
		return urls
	}

	pattern := seed.Pattern
	if pattern == "" {
		pattern = inferPagePattern(seed.URL)
	}
	if pattern == "" {
		return urls
	}

	for i := 2; i <= seed.Pages; i++ {
		pageURL := strings.ReplaceAll(pattern, "{n}", strconv.Itoa(i))
		if pageURL != seed.URL {
			urls = append(urls, pageURL)
		}
	}
	return urls
}

var pageNumberRe = regexp.MustCompile(`(/page/|[?&](?:page|p|offset|start)=)(\d+)`)

// inferPagePattern turns a URL with a recognizable page number into a {n}
// template, or "" when no pagination marker is found.
func inferPagePattern(rawURL string) string {
	match := pageNumberRe.FindStringSubmatchIndex(rawURL)
	if match == nil {
		return ""
	}
	// Replace the digits of the first pagination marker.
	return rawURL[:match[4]] + "{n}" + rawURL[match[5]:]
}

// listingPatterns are common listing paths used by gen-seeds, each with a
// {n} page placeholder.
func listingPatterns() []string {
	return []string{
		"/blog/page/{n}",
		"/news/page/{n}",
		"/articles?page={n}",
		"/products?page={n}",
		"/category/all?page={n}",
		"/forum?page={n}",
		"/search?q=a&page={n}",
	}
}
