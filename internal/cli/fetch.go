package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

type fetchOptions struct {
	render  bool
	timeout time.Duration
}

// fetchTarget resolves a run target to HTML content plus the URL to use
// as the link resolution base. File targets carry no base of their own.
func fetchTarget(target string, opts fetchOptions) (html, base string, err error) {
	if isURL(target) {
		if opts.render {
			html, err = fetchHTMLRender(target, opts.timeout)
		} else {
			html, err = fetchHTMLPlain(target)
		}
		return html, target, err
	}
	if opts.render {
		slog.Debug("Render flag ignored for non-URL target", "target", target)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		return "", "", fmt.Errorf("read file: %w", err)
	}
	return string(data), "", nil
}

func fetchHTMLPlain(target string) (string, error) {
	resp, err := http.Get(target)
	if err != nil {
		return "", fmt.Errorf("fetch URL: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	return string(body), nil
}

func fetchHTMLRender(target string, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ctx, cancel = chromedp.NewContext(ctx)
	defer cancel()

	var htmlContent string
	err := chromedp.Run(ctx,
		chromedp.Navigate(target),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			// Give late-loading pagination widgets a moment to appear.
			waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			_ = chromedp.Run(waitCtx,
				chromedp.WaitVisible("a[href]", chromedp.ByQuery),
			)
			_ = chromedp.Run(ctx, chromedp.Sleep(500*time.Millisecond))
			return nil
		}),
		chromedp.OuterHTML("html", &htmlContent, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("render browser: %w", err)
	}
	return htmlContent, nil
}

func isURL(target string) bool {
	return strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://")
}

func isStdinTerminal() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// readFromStdin reads stdin content. A single URL line is fetched; raw
// HTML is returned as-is with an empty base.
func readFromStdin(opts fetchOptions) (html, base string, err error) {
	slog.Debug("Reading from stdin")
	body, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", "", fmt.Errorf("read stdin: %w", err)
	}
	content := strings.TrimSpace(string(body))
	if content == "" {
		return "", "", fmt.Errorf("stdin is empty")
	}

	if isURL(content) {
		slog.Debug("Stdin contains URL", "url", content)
		if opts.render && opts.timeout <= 0 {
			return "", "", fmt.Errorf("--timeout must be a positive integer")
		}
		return fetchTarget(content, opts)
	}

	return content, "", nil
}
