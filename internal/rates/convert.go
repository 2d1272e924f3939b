package rates

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Estimate is the local-currency price computed for a recognized price
// string, commission included.
type Estimate struct {
	Amount     float64 `json:"amount"`
	Currency   string  `json:"currency"`
	Rate       float64 `json:"rate"`
	Commission float64 `json:"commission"`
	LocalPrice float64 `json:"local_price"`
}

// priceRe recognizes a price string with the currency on either side of
// the amount: "$100", "100 USD", "€ 49.99", "1,299 GBP".
var priceRe = regexp.MustCompile(`(?i)(\$|€|£|¥|USD|EUR|GBP|JPY|CNY|元|RUB)?\s*([\d.,]+)\s*(\$|€|£|¥|USD|EUR|GBP|JPY|CNY|元|RUB)?`)

// ParsePrice splits a price string into amount and currency. A price with
// no recognizable currency defaults to USD.
func ParsePrice(price string) (amount float64, currency string, err error) {
	m := priceRe.FindStringSubmatch(strings.TrimSpace(price))
	if m == nil || m[2] == "" {
		return 0, "", fmt.Errorf("unrecognized price %q", price)
	}

	cur := m[1]
	if cur == "" {
		cur = m[3]
	}
	if cur == "" {
		cur = "USD"
	}
	currency = normalizeCurrency(cur)

	amount, err = strconv.ParseFloat(strings.ReplaceAll(m[2], ",", "."), 64)
	if err != nil {
		return 0, "", fmt.Errorf("unrecognized amount %q", m[2])
	}
	return amount, currency, nil
}

// Convert computes the local-currency estimate for an amount in the given
// currency: commission applied first (a floor below a percentage), then
// the configured rate, rounded to whole units. An unknown currency is
// treated as USD.
func (s *Store) Convert(amount float64, currency string) Estimate {
	table := s.Load()
	currency = normalizeCurrency(currency)

	rate, ok := table[currency]
	if !ok {
		if sym, found := symbolFor(currency); found {
			rate, ok = table[sym]
		}
	}
	if !ok {
		rate, ok = table["USD"]
		if !ok {
			rate = 1
		}
		currency = "USD"
	}

	commission := math.Max(amount*s.commissionRate, s.commissionMin)
	local := math.Round((amount + commission) * rate)

	return Estimate{
		Amount:     amount,
		Currency:   currency,
		Rate:       rate,
		Commission: commission,
		LocalPrice: local,
	}
}

// ConvertPrice parses a price string and converts it.
func (s *Store) ConvertPrice(price string) (Estimate, error) {
	amount, currency, err := ParsePrice(price)
	if err != nil {
		return Estimate{}, err
	}
	return s.Convert(amount, currency), nil
}

// symbolFor resolves a code back to its symbol, for tables keyed by
// symbol rather than code.
func symbolFor(code string) (string, bool) {
	for sym, c := range synonyms {
		if c == code {
			return sym, true
		}
	}
	return "", false
}
