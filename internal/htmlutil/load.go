// Package htmlutil provides HTML parsing, cleaning, and link helpers on
// top of goquery.
package htmlutil

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// LoadHTML parses HTML from r into a goquery document.
func LoadHTML(r io.Reader) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(r)
}

// LoadHTMLString parses an HTML string into a goquery document.
func LoadHTMLString(s string) (*goquery.Document, error) {
	return LoadHTML(strings.NewReader(s))
}

// DetectCharset guesses the character encoding of raw HTML bytes.
func DetectCharset(data []byte) string {
	detector := chardet.NewTextDetector()
	result, err := detector.DetectBest(data)
	if err != nil || result == nil || result.Charset == "" {
		return "utf-8"
	}
	return result.Charset
}

// DecodeHTML converts raw HTML bytes to a UTF-8 string. A non-empty
// encoding label forces that encoding and fails if the label is unknown.
// An empty label detects the encoding from the content and falls back to
// the raw bytes when no decoder is available.
func DecodeHTML(data []byte, encoding string) (string, error) {
	if encoding != "" {
		r, err := charset.NewReaderLabel(encoding, bytes.NewReader(data))
		if err != nil {
			return "", fmt.Errorf("decode %q: %w", encoding, err)
		}
		decoded, err := io.ReadAll(r)
		if err != nil {
			return "", fmt.Errorf("decode %q: %w", encoding, err)
		}
		return string(decoded), nil
	}

	label := DetectCharset(data)
	if r, err := charset.NewReaderLabel(label, bytes.NewReader(data)); err == nil {
		if decoded, err := io.ReadAll(r); err == nil {
			return string(decoded), nil
		}
	}
	return string(data), nil
}

// EncodeString converts a UTF-8 string to bytes in the named encoding.
func EncodeString(s, encoding string) ([]byte, error) {
	enc, err := htmlindex.Get(encoding)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q", encoding)
	}
	out, _, err := transform.Bytes(enc.NewEncoder(), []byte(s))
	if err != nil {
		return nil, fmt.Errorf("encode %q: %w", encoding, err)
	}
	return out, nil
}

// ValidateEncoding checks that label names a known character encoding.
func ValidateEncoding(label string) error {
	if _, err := htmlindex.Get(label); err != nil {
		return fmt.Errorf("unknown encoding %q", label)
	}
	return nil
}
