package types

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestFlexIDUnmarshal(t *testing.T) {
	cases := []struct {
		in   string
		want FlexID
	}{
		{`"abc"`, "abc"},
		{`"42"`, "42"},
		{`42`, "42"},
		{`123456789012345`, "123456789012345"},
		{`""`, ""},
		{`0`, "0"},
	}

	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			var f FlexID
			if err := json.Unmarshal([]byte(tc.in), &f); err != nil {
				t.Fatalf("unmarshal %s: %v", tc.in, err)
			}
			if f != tc.want {
				t.Errorf("expected %q, got %q", tc.want, f)
			}
		})
	}
}

func TestFlexIDUnmarshalRejectsOtherTypes(t *testing.T) {
	for _, in := range []string{`true`, `[1]`, `{"id":1}`} {
		var f FlexID
		if err := json.Unmarshal([]byte(in), &f); err == nil {
			t.Errorf("expected %s to be rejected", in)
		}
	}
}

func TestFlexIDMarshal(t *testing.T) {
	data, err := json.Marshal(FlexID("42"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"42"` {
		t.Errorf("expected string form, got %s", data)
	}
}

func TestFlexIDIsZero(t *testing.T) {
	if !FlexID("").IsZero() || !FlexID("0").IsZero() {
		t.Error("expected empty and zero ids to be zero")
	}
	if FlexID("42").IsZero() {
		t.Error("expected a real id not to be zero")
	}
}

func TestProductInfoNotFound(t *testing.T) {
	both := ProductInfo{Name: NameNotFound, Price: PriceNotFound}
	if !both.NotFound() {
		t.Error("expected NotFound when both fields carry sentinels")
	}

	partial := ProductInfo{Name: "Widget", Price: PriceNotFound}
	if partial.NotFound() {
		t.Error("expected a partial result not to count as NotFound")
	}
}

func TestFetchErrorUnwrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := &FetchError{URL: "http://example.com", Kind: FailOther, Err: inner}

	if !errors.Is(err, inner) {
		t.Error("expected FetchError to unwrap its cause")
	}

	var fe *FetchError
	if !errors.As(error(err), &fe) {
		t.Error("expected errors.As to find FetchError")
	}
	if fe.Kind != FailOther {
		t.Errorf("expected kind other, got %s", fe.Kind)
	}
}
