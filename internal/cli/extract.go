package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/happyhackingspace/webpager"
	"github.com/spf13/cobra"
)

// extractedAnchor is the JSON shape of one anchor in `webpager extract`
// output.
type extractedAnchor struct {
	URL   string `json:"url"`
	Text  string `json:"text"`
	Label int    `json:"label"`
}

func (c *CLI) newExtractCommand() *cobra.Command {
	var baseURL string
	var render bool
	var renderTimeout int

	cmd := &cobra.Command{
		Use:   "extract [url-or-file]",
		Short: "Extract anchors and weak labels without scoring",
		Long: `Extract walks the page's anchors after sanitizing the document and
resolving links, and reports each anchor's absolute URL, text, and weak
label. The label is 1 when the anchor was annotated with pseudo-tags
such as <PAGE>. No model is needed.`,
		Args: cobra.MaximumNArgs(1),
		Example: `  # Extract anchors from an annotated corpus page
  webpager extract page.html --base-url http://example.com/list

  # Pipe HTML from curl
  curl -s https://example.com/blog | webpager extract --base-url https://example.com/blog

  # Extract anchors from a URL
  webpager extract https://example.com/blog`,
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

			pairs, labels, err := webpager.ExtractAnchors(htmlContent, base)
			if err != nil {
				return err
			}
			slog.Debug("Anchors extracted", "count", len(pairs))

			anchors := make([]extractedAnchor, len(pairs))
			for i, pair := range pairs {
				anchors[i] = extractedAnchor{
					URL:   pair.Href(),
					Text:  pair.Text(),
					Label: labels[i],
				}
			}
			return printJSON(anchors)
		},
	}

	cmd.Flags().StringVar(&baseURL, "base-url", "", "Base URL for resolving relative links")
	cmd.Flags().BoolVar(&render, "render", false, "Render JavaScript-driven pages in a headless browser")
	cmd.Flags().IntVar(&renderTimeout, "timeout", 30, "Render browser timeout in seconds")
	return cmd
}
