package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"pricescout/internal/config"
	"pricescout/internal/fetcher"
	"pricescout/internal/observability"
	"pricescout/internal/types"
)

// Extractor locates a product title and a displayed price in an arbitrary
// retail page. Both chains are pure functions of the document, run
// independently, and always return a value — faults fold into the
// sentinels, they never cross the boundary as errors.
type Extractor struct {
	fetcher    fetcher.Fetcher
	titleRules []Rule
	priceRule  PriceRule
	stripRe    *regexp.Regexp
	priceRe    *regexp.Regexp
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// New creates an Extractor. A nil cfg means the built-in default chains;
// a nil metrics disables counting.
func New(f fetcher.Fetcher, cfg *config.ExtractConfig, metrics *observability.Metrics, logger *slog.Logger) *Extractor {
	var titleRules []Rule
	if cfg != nil {
		titleRules = titleRulesFromConfig(cfg.TitleRules)
	} else {
		titleRules = DefaultTitleRules
	}

	rule := DefaultPriceRule
	symbols := regexp.QuoteMeta(rule.Symbols)
	return &Extractor{
		fetcher:    f,
		titleRules: titleRules,
		priceRule:  rule,
		stripRe:    regexp.MustCompile(`[^0-9.,` + symbols + `]`),
		priceRe: regexp.MustCompile(
			`[` + symbols + `]\d{1,3}(,\d{3})*(\.\d+)?` +
				`|\d{1,3}(,\d{3})*(\.\d+)?\s*[` + symbols + `]`),
		metrics: metrics,
		logger:  logger.With("component", "extractor"),
	}
}

// Extract fetches url and runs both rule chains against the result. Both
// chains run even when the fetch failed; an absent document yields the
// sentinels. The returned pair is always fully populated.
func (e *Extractor) Extract(ctx context.Context, url string) types.ProductInfo {
	var doc *goquery.Document

	page, err := e.fetcher.Fetch(ctx, url)
	e.recordFetch(err)
	if err != nil {
		var fe *types.FetchError
		if errors.As(err, &fe) {
			e.logger.Warn("fetch failed", "url", url, "kind", string(fe.Kind), "error", err)
		} else {
			e.logger.Warn("fetch failed", "url", url, "error", err)
		}
	} else {
		doc = page.Doc
	}

	return types.ProductInfo{
		Name:  e.ExtractTitle(doc),
		Price: e.ExtractPrice(doc),
	}
}

// ExtractTitle runs the title chain: for each rule in priority order, the
// first element matching its selector anywhere in the document wins and
// its visible text is returned — even when that text is empty.
func (e *Extractor) ExtractTitle(doc *goquery.Document) string {
	if doc == nil {
		return types.NameNotFound
	}

	for _, rule := range e.titleRules {
		text, ok := e.firstMatch(doc, rule)
		if ok {
			return text
		}
	}

	e.logger.Debug("no title rule matched")
	return types.NameNotFound
}

// ExtractPrice runs the price chain: the first span in document order
// whose direct text contains a currency symbol is cleaned and matched
// against the price shape. The matched substring is returned verbatim,
// not normalized to a number.
func (e *Extractor) ExtractPrice(doc *goquery.Document) string {
	if doc == nil {
		return types.PriceNotFound
	}

	var candidate *goquery.Selection
	doc.Find(e.priceRule.Selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if strings.ContainsAny(directText(sel), e.priceRule.Symbols) {
			candidate = sel
			return false
		}
		return true
	})
	if candidate == nil {
		e.logger.Debug("no price element found")
		return types.PriceNotFound
	}

	text := collapseWhitespace(candidate.Text())
	text = e.stripRe.ReplaceAllString(text, "")
	text = whitespaceRe.ReplaceAllString(text, "")

	match := e.priceRe.FindString(text)
	if match == "" {
		e.logger.Debug("price element did not contain a well-formed price", "text", text)
		return types.PriceNotFound
	}
	return strings.TrimSpace(match)
}

// firstMatch evaluates one rule and returns the cleaned text of the first
// matching element. An invalid selector is logged and treated as no match.
func (e *Extractor) firstMatch(doc *goquery.Document, rule Rule) (string, bool) {
	switch rule.Type {
	case "", "css":
		sel := doc.Find(rule.Selector)
		if sel.Length() == 0 {
			return "", false
		}
		return collapseWhitespace(sel.First().Text()), true
	case "xpath":
		root := doc.Get(0)
		node, err := htmlquery.Query(root, rule.Selector)
		if err != nil {
			e.logger.Warn("invalid xpath", "selector", rule.Selector, "error", err)
			return "", false
		}
		if node == nil {
			return "", false
		}
		return collapseWhitespace(htmlquery.InnerText(node)), true
	default:
		e.logger.Warn("unknown rule type", "type", rule.Type)
		return "", false
	}
}

// recordFetch counts fetch outcomes by failure category.
func (e *Extractor) recordFetch(err error) {
	if e.metrics == nil {
		return
	}
	e.metrics.FetchesTotal.Add(1)
	if err == nil {
		return
	}
	var fe *types.FetchError
	if !errors.As(err, &fe) {
		e.metrics.FetchOtherErr.Add(1)
		return
	}
	switch fe.Kind {
	case types.FailTimeout:
		e.metrics.FetchTimeouts.Add(1)
	case types.FailHTTP:
		e.metrics.FetchHTTPErrs.Add(1)
	default:
		e.metrics.FetchOtherErr.Add(1)
	}
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// collapseWhitespace trims the string and collapses internal whitespace
// runs (including newlines) to a single space. Entities are already
// decoded by the HTML parser.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// directText concatenates the element's own text nodes, ignoring text
// inside descendant elements.
func directText(sel *goquery.Selection) string {
	var b strings.Builder
	for _, n := range sel.Nodes {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				b.WriteString(c.Data)
			}
		}
	}
	return b.String()
}

// String describes the configured chains, for the config subcommand.
func (e *Extractor) String() string {
	sels := make([]string, len(e.titleRules))
	for i, r := range e.titleRules {
		sels[i] = r.Selector
	}
	return fmt.Sprintf("title: [%s], price: %s containing %s",
		strings.Join(sels, " "), e.priceRule.Selector, e.priceRule.Symbols)
}
