package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/happyhackingspace/webpager"
	"github.com/spf13/cobra"
)

const modelURL = "https://github.com/happyhackingspace/webpager/raw/main/model.json"

func (c *CLI) newRunCommand() *cobra.Command {
	var modelPath string
	var baseURL string
	var threshold float64
	var all bool
	var first bool
	var render bool
	var renderTimeout int

	cmd := &cobra.Command{
		Use:   "run [url-or-file]",
		Short: "Find pagination links in a URL, HTML file, or stdin",
		Args:  cobra.MaximumNArgs(1),
		Example: `  # Score a URL directly
  webpager run https://example.com/blog

  # Score a local HTML file
  webpager run listing.html --base-url https://example.com/blog

  # Pipe HTML content from a file
  cat listing.html | webpager run --base-url https://example.com/blog

  # Pipe a URL from stdin
  echo "https://example.com/blog" | webpager run

  # Pipe HTML content from a URL using curl
  curl -s https://example.com/blog | webpager run --base-url https://example.com/blog

  # Print only the best candidate
  webpager run https://example.com/blog --first

  # Show every anchor with its score
  webpager run https://example.com/blog --all

  # Render JavaScript-heavy pages
  webpager run https://example.com/blog --render

  # Use custom model file
  webpager run https://example.com/blog --model custom.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fetchOpts := fetchOptions{
				render:  render,
				timeout: time.Duration(renderTimeout) * time.Second,
			}

			var htmlContent, base string
			var err error
			if len(args) == 0 {
				if isStdinTerminal() {
					return cmd.Help()
				}
				htmlContent, base, err = readFromStdin(fetchOpts)
			} else {
				if render && isURL(args[0]) && renderTimeout <= 0 {
					return fmt.Errorf("--timeout must be a positive integer")
				}
				slog.Debug("Fetching HTML", "target", args[0], "render", render)
				htmlContent, base, err = fetchTarget(args[0], fetchOpts)
			}
			if err != nil {
				return err
			}
			if baseURL != "" {
				base = baseURL
			}
			if base == "" {
				return fmt.Errorf("no base URL: pass --base-url when the input is not fetched from a URL")
			}
			slog.Debug("HTML ready", "base", base, "bytes", len(htmlContent))

			start := time.Now()
			pager, err := loadOrDownloadModel(modelPath)
			if err != nil {
				return err
			}
			if threshold > 0 {
				pager.SetThreshold(threshold)
			}
			slog.Debug("Model loaded", "duration", time.Since(start))

			start = time.Now()
			switch {
			case all:
				candidates, err := pager.Candidates(htmlContent, base)
				if err != nil {
					return err
				}
				slog.Debug("Scoring completed", "anchors", len(candidates), "duration", time.Since(start))
				return printJSON(candidates)
			case first:
				next, err := pager.NextPage(htmlContent, base)
				if err != nil {
					return err
				}
				slog.Debug("Scoring completed", "duration", time.Since(start))
				if next == nil {
					fmt.Println("No pagination links found.")
					return nil
				}
				return printJSON(next)
			default:
				candidates, err := pager.Paginate(htmlContent, base)
				if err != nil {
					return err
				}
				slog.Debug("Scoring completed", "candidates", len(candidates), "duration", time.Since(start))
				if len(candidates) == 0 {
					fmt.Println("No pagination links found.")
					return nil
				}
				return printJSON(candidates)
			}
		},
	}

	cmd.Flags().StringVar(&modelPath, "model", "", "Path to model file (default: auto-detect or download)")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Base URL for resolving relative links")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Minimum candidate score (default: model threshold)")
	cmd.Flags().BoolVar(&all, "all", false, "Show every anchor with its score")
	cmd.Flags().BoolVar(&first, "first", false, "Show only the best candidate")
	cmd.Flags().BoolVar(&render, "render", false, "Render JavaScript-driven pages in a headless browser")
	cmd.Flags().IntVar(&renderTimeout, "timeout", 30, "Render browser timeout in seconds")
	return cmd
}

func printJSON(v any) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(output))
	return nil
}

func loadOrDownloadModel(modelPath string) (*webpager.Pager, error) {
	if modelPath != "" {
		slog.Debug("Loading custom model", "path", modelPath)
		return webpager.Load(modelPath)
	}

	pager, err := webpager.New()
	if err == nil {
		return pager, nil
	}

	// Model not found locally, try the cache before downloading
	dest := filepath.Join(webpager.ModelDir(), "model.json")
	if _, err := os.Stat(dest); err == nil {
		return webpager.Load(dest)
	}
	slog.Info("Model not found, downloading", "url", modelURL, "dest", dest)

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return nil, fmt.Errorf("create model dir: %w", err)
	}

	resp, err := http.Get(modelURL)
	if err != nil {
		return nil, fmt.Errorf("download model: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download model: HTTP %d", resp.StatusCode)
	}

	f, err := os.Create(dest)
	if err != nil {
		return nil, fmt.Errorf("create model file: %w", err)
	}

	written, err := io.Copy(f, resp.Body)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(dest)
		return nil, fmt.Errorf("download model: %w", err)
	}
	_ = f.Close()

	slog.Info("Model downloaded", "size", fmt.Sprintf("%.1fMB", float64(written)/1024/1024))
	return webpager.Load(dest)
}
