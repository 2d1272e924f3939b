package extract

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"pricescout/internal/config"
	"pricescout/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func makeDoc(t *testing.T, body string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		t.Fatalf("parse test HTML: %v", err)
	}
	return doc
}

func newTestExtractor(f *stubFetcher) *Extractor {
	return New(f, nil, nil, testLogger)
}

// stubFetcher returns a canned page or error without touching the network.
type stubFetcher struct {
	html string
	err  error
}

func (s *stubFetcher) Fetch(_ context.Context, url string) (*types.Page, error) {
	if s.err != nil {
		return nil, s.err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s.html))
	if err != nil {
		return nil, err
	}
	return &types.Page{
		URL:        url,
		FinalURL:   url,
		StatusCode: 200,
		Doc:        doc,
		FetchedAt:  time.Now(),
	}, nil
}

func (s *stubFetcher) Close() error { return nil }

// --- Title chain ---

func TestExtractTitleH1(t *testing.T) {
	e := newTestExtractor(nil)
	doc := makeDoc(t, `<html><body><h1>  Salt &amp; Pepper
		Double Knee Pant </h1></body></html>`)

	got := e.ExtractTitle(doc)
	want := "Salt & Pepper Double Knee Pant"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestExtractTitleTagPrecedence(t *testing.T) {
	e := newTestExtractor(nil)

	// h2 beats title, title beats div, div beats span.
	cases := []struct {
		name string
		html string
		want string
	}{
		{"h1 over h2", `<h1>First</h1><h2>Second</h2>`, "First"},
		{"h2 over div", `<div>Block</div><h2>Heading</h2>`, "Heading"},
		{"h3 over span", `<span>Inline</span><h3>Sub</h3>`, "Sub"},
		{"div over span", `<span>Inline</span><div>Block</div>`, "Block"},
		{"first of a kind wins", `<h2>One</h2><h2>Two</h2>`, "One"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := e.ExtractTitle(makeDoc(t, tc.html))
			if got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestExtractTitleEmptyMatchShortCircuits(t *testing.T) {
	e := newTestExtractor(nil)
	doc := makeDoc(t, `<html><body><h1></h1><div>X</div></body></html>`)

	// The empty h1 counts as a match; the chain must not continue to div.
	got := e.ExtractTitle(doc)
	if got != "" {
		t.Errorf("expected empty string from empty h1, got %q", got)
	}
}

func TestExtractTitleClassProbe(t *testing.T) {
	e := newTestExtractor(nil)

	// No h1/h2/h3/title/div/span anywhere, so the class probe runs.
	doc := makeDoc(t, `<html><body><p class="name">Fallback Name</p><p class="product-title">Probe Hit</p></body></html>`)
	got := e.ExtractTitle(doc)
	if got != "Probe Hit" {
		t.Errorf("expected class probe to prefer product-title, got %q", got)
	}
}

func TestExtractTitleNotFound(t *testing.T) {
	e := newTestExtractor(nil)
	doc := makeDoc(t, `<html><body><p>nothing to see</p></body></html>`)

	if got := e.ExtractTitle(doc); got != types.NameNotFound {
		t.Errorf("expected sentinel, got %q", got)
	}
}

func TestExtractTitleNestedMarkupStripped(t *testing.T) {
	e := newTestExtractor(nil)
	doc := makeDoc(t, `<h1><b>Bold</b> and <i>italic</i></h1>`)

	if got := e.ExtractTitle(doc); got != "Bold and italic" {
		t.Errorf("expected descendant tags stripped, got %q", got)
	}
}

func TestExtractTitleNilDoc(t *testing.T) {
	e := newTestExtractor(nil)
	if got := e.ExtractTitle(nil); got != types.NameNotFound {
		t.Errorf("expected sentinel for nil doc, got %q", got)
	}
}

func TestExtractTitleConfiguredRules(t *testing.T) {
	cfg := &config.ExtractConfig{
		TitleRules: []config.ParseRule{
			{Selector: ".headline", Type: "css"},
			{Selector: "//h1", Type: "xpath"},
		},
	}
	e := New(nil, cfg, nil, testLogger)

	doc := makeDoc(t, `<h1>Tag Title</h1><p class="headline">Configured</p>`)
	if got := e.ExtractTitle(doc); got != "Configured" {
		t.Errorf("expected configured css rule to win, got %q", got)
	}

	doc = makeDoc(t, `<h1>XPath Hit</h1>`)
	if got := e.ExtractTitle(doc); got != "XPath Hit" {
		t.Errorf("expected xpath fallback rule to match, got %q", got)
	}
}

// --- Price chain ---

func TestExtractPrice(t *testing.T) {
	e := newTestExtractor(nil)

	cases := []struct {
		name string
		html string
		want string
	}{
		{"dollar", `<span>$123.45</span>`, "$123.45"},
		{"euro", `<span>€99.99</span>`, "€99.99"},
		{"pound with thousands", `<span>£1,234.56</span>`, "£1,234.56"},
		{"surrounding whitespace", `<span> $ 123.45 </span>`, "$123.45"},
		{"label prefix", `<span>Price: $123.45</span>`, "$123.45"},
		{"symbol suffix", `<span>123.45 $</span>`, "123.45$"},
		{"first span wins", `<span>$1</span><span>$2</span>`, "$1"},
		{"first qualifying span wins", `<span>sale!</span><span>$123.45</span><span>€99.99</span>`, "$123.45"},
		{"no symbol", `<span>123.45</span>`, types.PriceNotFound},
		{"symbol without digits", `<span>$N/A</span>`, types.PriceNotFound},
		{"letters stripped before match", `<span>USD $49.90 only</span>`, "$49.90"},
		{"no spans at all", `<div>$123.45</div>`, types.PriceNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := e.ExtractPrice(makeDoc(t, tc.html))
			if got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestExtractPriceRequiresDirectText(t *testing.T) {
	e := newTestExtractor(nil)

	// The symbol lives in a child element, not the span's own text, so
	// the first span does not qualify.
	doc := makeDoc(t, `<span><b>$12</b></span><span>$15</span>`)
	if got := e.ExtractPrice(doc); got != "$15" {
		t.Errorf("expected second span to match, got %q", got)
	}
}

func TestExtractPriceNilDoc(t *testing.T) {
	e := newTestExtractor(nil)
	if got := e.ExtractPrice(nil); got != types.PriceNotFound {
		t.Errorf("expected sentinel for nil doc, got %q", got)
	}
}

// --- Combined extraction ---

func TestExtractEndToEnd(t *testing.T) {
	f := &stubFetcher{html: `<html><body><h1>Test Product</h1><span>$19.99</span></body></html>`}
	e := newTestExtractor(f)

	info := e.Extract(context.Background(), "https://shop.example/product")
	if info.Name != "Test Product" {
		t.Errorf("expected name 'Test Product', got %q", info.Name)
	}
	if info.Price != "$19.99" {
		t.Errorf("expected price '$19.99', got %q", info.Price)
	}
}

func TestExtractFetchFailure(t *testing.T) {
	f := &stubFetcher{err: &types.FetchError{
		URL:  "https://shop.example/product",
		Kind: types.FailTimeout,
		Err:  context.DeadlineExceeded,
	}}
	e := newTestExtractor(f)

	info := e.Extract(context.Background(), "https://shop.example/product")
	if info.Name != types.NameNotFound {
		t.Errorf("expected name sentinel, got %q", info.Name)
	}
	if info.Price != types.PriceNotFound {
		t.Errorf("expected price sentinel, got %q", info.Price)
	}
	if !info.NotFound() {
		t.Error("expected NotFound() to report both sentinels")
	}
}

func TestExtractIdempotent(t *testing.T) {
	f := &stubFetcher{html: `<html><body><h1>Stable</h1><span>€42</span></body></html>`}
	e := newTestExtractor(f)

	first := e.Extract(context.Background(), "https://shop.example/p")
	second := e.Extract(context.Background(), "https://shop.example/p")
	if first != second {
		t.Errorf("expected identical results, got %+v then %+v", first, second)
	}
}

func TestCollapseWhitespace(t *testing.T) {
	got := collapseWhitespace("  a\n\tb   c ")
	if got != "a b c" {
		t.Errorf("expected 'a b c', got %q", got)
	}
}
