package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Sentinel values returned when an extraction chain finds nothing.
// These are data, not errors: the extraction contract is total and the
// caller always receives a fully populated ProductInfo.
const (
	NameNotFound  = "Name not found"
	PriceNotFound = "Price not found"
)

// ProductInfo is the result of one extraction: a product title and a
// displayed price string, each either a located value or its sentinel.
type ProductInfo struct {
	Name  string `json:"name"`
	Price string `json:"price"`
}

// NotFound reports whether both fields carry their sentinel.
func (p ProductInfo) NotFound() bool {
	return p.Name == NameNotFound && p.Price == PriceNotFound
}

// Page is the result of a successful fetch: the parsed document plus
// request metadata. One Page feeds exactly one extraction; it is never
// shared across requests.
type Page struct {
	// URL is the requested URL.
	URL string

	// FinalURL is the URL after any redirects.
	FinalURL string

	// StatusCode is the HTTP status code of the final response.
	StatusCode int

	// Doc is the leniently parsed document tree.
	Doc *goquery.Document

	// FetchDuration is how long the fetch took.
	FetchDuration time.Duration

	// FetchedAt is when the response was received.
	FetchedAt time.Time
}

// OrderRecord is one row of the append-only order store: the extraction
// result a user received, keyed by the record owner's id.
type OrderRecord struct {
	UserID    string      `json:"user_id"`
	Product   ProductInfo `json:"product_info"`
	CreatedAt time.Time   `json:"created_at"`
}

// FlexID is an identifier that arrives over the wire as either a JSON
// string or a JSON number and is always handled (and echoed) as a string.
type FlexID string

// UnmarshalJSON accepts both `"42"` and `42`.
func (f *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty id value")
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or a number: %w", err)
	}
	*f = FlexID(n.String())
	return nil
}

// MarshalJSON always emits the string form.
func (f FlexID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(f))
}

func (f FlexID) String() string { return string(f) }

// IsZero reports whether the id is absent or the zero value in either
// wire representation.
func (f FlexID) IsZero() bool {
	return f == "" || f == "0"
}
