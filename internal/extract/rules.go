package extract

import (
	"pricescout/internal/config"
)

// Rule is one entry of an extraction chain: a selector plus the strategy
// used to evaluate it. Chains are ordered data, first match wins, so the
// precedence is testable and extensible without touching extraction logic.
type Rule struct {
	Selector string
	Type     string // "css" (default) or "xpath"
}

// DefaultTitleRules is the built-in title chain: a fixed tag priority
// order followed by a class-name probe. An element that matches with
// empty text still counts as a match and short-circuits the chain.
var DefaultTitleRules = []Rule{
	{Selector: "h1"},
	{Selector: "h2"},
	{Selector: "h3"},
	{Selector: "title"},
	{Selector: "div"},
	{Selector: "span"},
	{Selector: ".product-title"},
	{Selector: ".product-name"},
	{Selector: ".name"},
	{Selector: ".title"},
}

// PriceRule describes the price chain: the tag kind scanned and the
// currency symbols that must co-occur with the digits in the same
// element. Restricting to span keeps precision over recall; prices in
// other tag kinds or split across children are a known, accepted miss.
type PriceRule struct {
	Selector string
	Symbols  string
}

// DefaultPriceRule is the built-in price rule.
var DefaultPriceRule = PriceRule{
	Selector: "span",
	Symbols:  "£$€¥₹",
}

// titleRulesFromConfig converts configured rules into the chain, falling
// back to the defaults when none are configured.
func titleRulesFromConfig(cfg []config.ParseRule) []Rule {
	if len(cfg) == 0 {
		return DefaultTitleRules
	}
	rules := make([]Rule, 0, len(cfg))
	for _, r := range cfg {
		rules = append(rules, Rule{Selector: r.Selector, Type: r.Type})
	}
	return rules
}
