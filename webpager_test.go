package webpager

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/happyhackingspace/webpager/classifier"
)

const listingBase = "http://example.com/list?page=1"

const listingHTML = `<html><body>
<h1>Archive</h1>
<ul class="pager">
  <li><a href="/list?page=2" class="next">Next page</a></li>
  <li><a href="/list?page=2">2</a></li>
</ul>
<p><a href="/about">About us</a> <a>Bare anchor</a></p>
</body></html>`

const aboutOnlyHTML = `<html><body>
<p><a href="/about">About us</a></p>
</body></html>`

const annotatedListingHTML = `<html><body>
<ul class="pager">
  <li><a href="/list?page=1">1</a></li>
  <li><a href="/list?page=2"><PAGE>Next page</PAGE></a></li>
</ul>
<p><a href="/about">About us</a></p>
</body></html>`

// newFixturePager builds a pager whose model rewards anchors with hrefs
// close to the page URL, so pagination links on the listing fixture score
// above the default threshold and the about link below it.
func newFixturePager(t *testing.T) *Pager {
	t.Helper()
	pairs, _, err := ExtractAnchors(listingHTML, listingBase)
	if err != nil {
		t.Fatalf("ExtractAnchors() error = %v", err)
	}

	union := classifier.DefaultFeatureUnion()
	union.FitTransform(pairs)

	dim := union.NumFeatures()
	editCol := -1
	for i, name := range union.FeatureNames() {
		if name == "anchor_edit_distance__edit_distance" {
			editCol = i
		}
	}
	if editCol < 0 {
		t.Fatal("edit distance column not found")
	}

	coef := [][]float64{make([]float64, dim), make([]float64, dim)}
	coef[1][editCol] = -8.0
	intercept := []float64{0, 2.0}

	model, err := classifier.NewNextPageModel(union, []string{"other", "next"}, coef, intercept)
	if err != nil {
		t.Fatalf("NewNextPageModel() error = %v", err)
	}
	pager, err := NewPager(model)
	if err != nil {
		t.Fatalf("NewPager() error = %v", err)
	}
	return pager
}

func buildBinary(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	binary := filepath.Join(tmpDir, "webpager")

	cmd := exec.Command("go", "build", "-o", binary, "./cmd/webpager")
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to build binary: %v\n%s", err, output)
	}

	return binary
}

func TestFunctional_ExtractStdin(t *testing.T) {
	binary := buildBinary(t)

	cmd := exec.Command(binary, "extract", "-s", "--base-url", listingBase)
	cmd.Stdin = strings.NewReader(annotatedListingHTML)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		t.Fatalf("Functional test failed: %v\nStderr: %s", err, stderr.String())
	}

	var anchors []struct {
		URL   string `json:"url"`
		Text  string `json:"text"`
		Label int    `json:"label"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &anchors); err != nil {
		t.Fatalf("Output is not valid JSON: %v\nOutput: %s", err, stdout.String())
	}

	if len(anchors) != 3 {
		t.Fatalf("got %d anchors, want 3", len(anchors))
	}
	positive := 0
	for _, a := range anchors {
		if a.Label == 1 {
			positive++
			if a.Text != "Next page" {
				t.Errorf("labeled anchor text = %q, want %q", a.Text, "Next page")
			}
			if a.URL != "http://example.com/list?page=2" {
				t.Errorf("labeled anchor url = %q", a.URL)
			}
		}
		if strings.Contains(a.Text, "__") {
			t.Errorf("anchor text %q still contains marker tokens", a.Text)
		}
	}
	if positive != 1 {
		t.Errorf("got %d labeled anchors, want 1", positive)
	}
}

func TestFunctional_FitCorpus(t *testing.T) {
	binary := buildBinary(t)

	dataDir := writeFitCorpus(t)
	pipelinePath := filepath.Join(t.TempDir(), "pipeline.json")

	cmd := exec.Command(binary, "fit", pipelinePath, "-s", "--data-folder", dataDir)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		t.Fatalf("Functional test failed: %v\nStderr: %s", err, stderr.String())
	}

	var stats struct {
		Pages    int `json:"pages"`
		Anchors  int `json:"anchors"`
		Positive int `json:"positive"`
		Features int `json:"features"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &stats); err != nil {
		t.Fatalf("Output is not valid JSON: %v\nOutput: %s", err, stdout.String())
	}
	if stats.Pages == 0 || stats.Anchors == 0 || stats.Features == 0 {
		t.Errorf("empty fit stats: %+v", stats)
	}

	if _, err := classifier.LoadPipeline(pipelinePath); err != nil {
		t.Errorf("LoadPipeline() error = %v", err)
	}
}

func TestNextPage(t *testing.T) {
	p := newFixturePager(t)

	next, err := p.NextPage(listingHTML, listingBase)
	if err != nil {
		t.Fatalf("NextPage() error = %v", err)
	}
	if next == nil {
		t.Fatal("NextPage() = nil, want a candidate")
	}
	if next.URL != "http://example.com/list?page=2" {
		t.Errorf("NextPage().URL = %q, want %q", next.URL, "http://example.com/list?page=2")
	}
	if next.Score <= p.Threshold() || next.Score > 1 {
		t.Errorf("NextPage().Score = %v, want above threshold %v", next.Score, p.Threshold())
	}
}

func TestNextPageNone(t *testing.T) {
	p := newFixturePager(t)

	next, err := p.NextPage(aboutOnlyHTML, listingBase)
	if err != nil {
		t.Fatalf("NextPage() error = %v", err)
	}
	if next != nil {
		t.Errorf("NextPage() = %+v, want nil for a page without pagination", next)
	}
}

func TestPaginate(t *testing.T) {
	p := newFixturePager(t)

	candidates, err := p.Paginate(listingHTML, listingBase)
	if err != nil {
		t.Fatalf("Paginate() error = %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("got %d candidates, want 1: %+v", len(candidates), candidates)
	}
	if candidates[0].URL != "http://example.com/list?page=2" {
		t.Errorf("candidate URL = %q", candidates[0].URL)
	}
}

func TestPaginateEmptyNotNil(t *testing.T) {
	p := newFixturePager(t)
	p.SetThreshold(0.99)

	candidates, err := p.Paginate(listingHTML, listingBase)
	if err != nil {
		t.Fatalf("Paginate() error = %v", err)
	}
	if candidates == nil {
		t.Error("Paginate() = nil, want empty slice")
	}
	if len(candidates) != 0 {
		t.Errorf("got %d candidates with threshold 0.99, want 0", len(candidates))
	}
}

func TestCandidates(t *testing.T) {
	p := newFixturePager(t)

	candidates, err := p.Candidates(listingHTML, listingBase)
	if err != nil {
		t.Fatalf("Candidates() error = %v", err)
	}
	// Two anchors share the page=2 href and the bare anchor has none, so
	// four anchors collapse to two candidates.
	if len(candidates) != 2 {
		t.Fatalf("got %d candidates, want 2: %+v", len(candidates), candidates)
	}
	if candidates[0].URL != "http://example.com/list?page=2" {
		t.Errorf("candidates[0].URL = %q, want the page link first", candidates[0].URL)
	}
	if candidates[0].Text != "Next page" {
		t.Errorf("candidates[0].Text = %q, want %q", candidates[0].Text, "Next page")
	}
	if candidates[1].URL != "http://example.com/about" {
		t.Errorf("candidates[1].URL = %q", candidates[1].URL)
	}
	if candidates[0].Score <= candidates[1].Score {
		t.Errorf("candidates not sorted by score: %+v", candidates)
	}
}

func TestPagerSaveLoad(t *testing.T) {
	p := newFixturePager(t)
	want, err := p.NextPage(listingHTML, listingBase)
	if err != nil {
		t.Fatalf("NextPage() error = %v", err)
	}

	path := filepath.Join(t.TempDir(), "model.json")
	if err := p.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	got, err := loaded.NextPage(listingHTML, listingBase)
	if err != nil {
		t.Fatalf("NextPage() error = %v", err)
	}
	if got == nil || got.URL != want.URL {
		t.Fatalf("NextPage() after reload = %+v, want %+v", got, want)
	}
	if math.Abs(got.Score-want.Score) > 1e-12 {
		t.Errorf("score after reload = %v, want %v", got.Score, want.Score)
	}
}

func TestSetThreshold(t *testing.T) {
	p := newFixturePager(t)

	p.SetThreshold(0.8)
	if p.Threshold() != 0.8 {
		t.Errorf("Threshold() = %v, want 0.8", p.Threshold())
	}

	for _, invalid := range []float64{0, 1, -0.3, 1.5} {
		p.SetThreshold(invalid)
		if p.Threshold() != 0.8 {
			t.Errorf("SetThreshold(%v) changed threshold to %v", invalid, p.Threshold())
		}
	}
}

func TestCandidatesErrors(t *testing.T) {
	p := newFixturePager(t)

	if _, err := p.Candidates("", listingBase); !errors.Is(err, classifier.ErrUnparsable) {
		t.Errorf("empty HTML: error = %v, want ErrUnparsable", err)
	}
	if _, err := p.Candidates(listingHTML, ""); !errors.Is(err, classifier.ErrNoBaseURL) {
		t.Errorf("empty base: error = %v, want ErrNoBaseURL", err)
	}
	if _, err := p.Candidates(listingHTML, "/list?page=1"); !errors.Is(err, classifier.ErrNoBaseURL) {
		t.Errorf("relative base: error = %v, want ErrNoBaseURL", err)
	}
}

func TestExtractAnchors(t *testing.T) {
	pairs, labels, err := ExtractAnchors(annotatedListingHTML, listingBase)
	if err != nil {
		t.Fatalf("ExtractAnchors() error = %v", err)
	}
	if len(pairs) != 3 || len(labels) != 3 {
		t.Fatalf("got %d pairs and %d labels, want 3 and 3", len(pairs), len(labels))
	}
	if want := []int{0, 1, 0}; labels[0] != want[0] || labels[1] != want[1] || labels[2] != want[2] {
		t.Errorf("labels = %v, want %v", labels, want)
	}
	if pairs[1].Text() != "Next page" {
		t.Errorf("labeled anchor text = %q, want markers stripped", pairs[1].Text())
	}
}

func TestNew(t *testing.T) {
	if _, err := os.Stat("model.json"); os.IsNotExist(err) {
		t.Skip("model.json not found, skipping")
	}

	p, err := New()
	if err != nil {
		t.Fatal(err)
	}

	next, err := p.NextPage(listingHTML, listingBase)
	if err != nil {
		t.Fatal(err)
	}
	if next != nil && (next.Score < 0 || next.Score > 1) {
		t.Errorf("NextPage().Score = %v, out of [0, 1]", next.Score)
	}
}

func TestLoadNonExistent(t *testing.T) {
	_, err := Load("nonexistent.json")
	if err == nil {
		t.Error("expected error for nonexistent model")
	}
}

func TestPagerNotInitialized(t *testing.T) {
	p := &Pager{}
	if _, err := p.Candidates(listingHTML, listingBase); err == nil {
		t.Error("Candidates: expected error for uninitialized pager")
	}
	if _, err := p.NextPage(listingHTML, listingBase); err == nil {
		t.Error("NextPage: expected error for uninitialized pager")
	}
	if err := p.Save(filepath.Join(t.TempDir(), "model.json")); err == nil {
		t.Error("Save: expected error for uninitialized pager")
	}
}
