package tagset

import (
	"strings"
	"testing"
)

func TestEncode(t *testing.T) {
	ts := Default()
	got := ts.Encode(`<a href="/p/2"><PAGE>Next</PAGE></a>`)
	want := `<a href="/p/2"> __START_PAGE__ Next __END_PAGE__ </a>`
	if got != want {
		t.Errorf("Encode() = %q, want %q", got, want)
	}
}

func TestEncodeMarkersTokenizeStandalone(t *testing.T) {
	ts := Default()
	encoded := ts.Encode(`<PAGE>2</PAGE>`)
	tokens := strings.Fields(encoded)
	if len(tokens) != 3 {
		t.Fatalf("expected 3 tokens, got %d: %v", len(tokens), tokens)
	}
	if ts.StartTagOrNone(tokens[0]) != "PAGE" {
		t.Errorf("first token %q is not a PAGE start marker", tokens[0])
	}
	if tokens[1] != "2" {
		t.Errorf("middle token = %q, want %q", tokens[1], "2")
	}
	if ts.EndTagOrNone(tokens[2]) != "PAGE" {
		t.Errorf("last token %q is not a PAGE end marker", tokens[2])
	}
}

func TestEncodeLeavesOtherTagsAlone(t *testing.T) {
	ts := Default()
	html := `<html><body><a href="x">link</a></body></html>`
	if got := ts.Encode(html); got != html {
		t.Errorf("Encode() changed unrelated markup: %q", got)
	}
}

func TestStartEndTagOrNone(t *testing.T) {
	ts := Default()
	tests := []struct {
		token     string
		wantStart string
		wantEnd   string
	}{
		{"__START_PAGE__", "PAGE", ""},
		{"__END_PAGE__", "", "PAGE"},
		{"Next", "", ""},
		{"__START_OTHER__", "", ""},
		{"", "", ""},
	}
	for _, tt := range tests {
		if got := ts.StartTagOrNone(tt.token); got != tt.wantStart {
			t.Errorf("StartTagOrNone(%q) = %q, want %q", tt.token, got, tt.wantStart)
		}
		if got := ts.EndTagOrNone(tt.token); got != tt.wantEnd {
			t.Errorf("EndTagOrNone(%q) = %q, want %q", tt.token, got, tt.wantEnd)
		}
	}
}

func TestIsMarker(t *testing.T) {
	ts := New("PAGE", "ITEM")
	for _, token := range []string{"__START_PAGE__", "__END_PAGE__", "__START_ITEM__", "__END_ITEM__"} {
		if !ts.IsMarker(token) {
			t.Errorf("IsMarker(%q) = false, want true", token)
		}
	}
	for _, token := range []string{"page", "__START_PAGE", "START_PAGE", "text"} {
		if ts.IsMarker(token) {
			t.Errorf("IsMarker(%q) = true, want false", token)
		}
	}
}

func TestBijectiveMapping(t *testing.T) {
	ts := New("PAGE", "ITEM")
	seen := make(map[string]bool)
	for _, tag := range ts.Tags() {
		encoded := ts.Encode("<" + tag + "></" + tag + ">")
		for _, token := range strings.Fields(encoded) {
			if seen[token] {
				t.Errorf("marker %q is not unique", token)
			}
			seen[token] = true
		}
	}
	if len(seen) != 4 {
		t.Errorf("expected 4 distinct markers, got %d", len(seen))
	}
}

func TestDuplicateTagsIgnored(t *testing.T) {
	ts := New("PAGE", "PAGE")
	if got := len(ts.Tags()); got != 1 {
		t.Errorf("expected 1 tag, got %d", got)
	}
}
