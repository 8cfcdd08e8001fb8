// Package tagset rewrites pseudo-tag annotations into marker tokens that
// survive lenient HTML parsing as plain text.
package tagset

import "strings"

// Tagset maps pseudo-tag names to start and end marker tokens. The mapping
// is bijective and fixed for the lifetime of the instance.
type Tagset struct {
	tags     []string
	start    map[string]string // tag name -> start marker
	end      map[string]string // tag name -> end marker
	startInv map[string]string // start marker -> tag name
	endInv   map[string]string // end marker -> tag name
}

// New creates a Tagset for the given pseudo-tag names.
func New(tags ...string) *Tagset {
	t := &Tagset{
		tags:     make([]string, 0, len(tags)),
		start:    make(map[string]string, len(tags)),
		end:      make(map[string]string, len(tags)),
		startInv: make(map[string]string, len(tags)),
		endInv:   make(map[string]string, len(tags)),
	}
	for _, tag := range tags {
		if _, ok := t.start[tag]; ok {
			continue
		}
		startMarker := "__START_" + tag + "__"
		endMarker := "__END_" + tag + "__"
		t.tags = append(t.tags, tag)
		t.start[tag] = startMarker
		t.end[tag] = endMarker
		t.startInv[startMarker] = tag
		t.endInv[endMarker] = tag
	}
	return t
}

// Default returns the Tagset with the single PAGE pseudo-tag.
func Default() *Tagset {
	return New("PAGE")
}

// Tags returns the pseudo-tag names in declaration order.
func (t *Tagset) Tags() []string {
	out := make([]string, len(t.tags))
	copy(out, t.tags)
	return out
}

// Encode rewrites literal <TAG> and </TAG> occurrences for every declared
// pseudo-tag into whitespace-padded marker tokens, so a lenient HTML parser
// treats them as inert text that tokenizes as standalone units.
func (t *Tagset) Encode(html string) string {
	for _, tag := range t.tags {
		html = strings.ReplaceAll(html, "<"+tag+">", " "+t.start[tag]+" ")
		html = strings.ReplaceAll(html, "</"+tag+">", " "+t.end[tag]+" ")
	}
	return html
}

// StartTagOrNone returns the pseudo-tag name if token is a start marker,
// otherwise "".
func (t *Tagset) StartTagOrNone(token string) string {
	return t.startInv[token]
}

// EndTagOrNone returns the pseudo-tag name if token is an end marker,
// otherwise "".
func (t *Tagset) EndTagOrNone(token string) string {
	return t.endInv[token]
}

// IsMarker reports whether token is a start or end marker of any declared
// pseudo-tag.
func (t *Tagset) IsMarker(token string) bool {
	return t.StartTagOrNone(token) != "" || t.EndTagOrNone(token) != ""
}
