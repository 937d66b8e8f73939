package common

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestCustomErrorIsAndUnwrap(t *testing.T) {
	cause := errors.New("decode failed")
	err := fmt.Errorf("prepare: %w", ErrImageEncoding.Wrap(cause))

	if !errors.Is(err, ErrImageEncoding) {
		t.Fatalf("errors.Is ErrImageEncoding: want=true got=false")
	}
	if errors.Is(err, ErrBarcodeNotFound) {
		t.Fatalf("errors.Is ErrBarcodeNotFound: want=false got=true")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("errors.Is cause: want=true got=false")
	}
}

func TestToErrorResponse(t *testing.T) {
	status, resp := ToErrorResponse(ErrBarcodeNotFound.Wrap(errors.New("status 0")), false)
	if status != http.StatusNotFound || resp.Code != ErrCodeBarcodeNotFound {
		t.Fatalf("custom error: want=404/%s got=%d/%s", ErrCodeBarcodeNotFound, status, resp.Code)
	}
	if resp.Details != "" {
		t.Fatalf("details hidden outside debug: got=%q", resp.Details)
	}

	status, resp = ToErrorResponse(NewValidationError("image is required"), true)
	if status != http.StatusBadRequest || resp.Message != "image is required" {
		t.Fatalf("validation error: got=%d/%q", status, resp.Message)
	}

	status, resp = ToErrorResponse(errors.New("boom"), true)
	if status != http.StatusInternalServerError || resp.Details != "boom" {
		t.Fatalf("plain error: got=%d/%q", status, resp.Details)
	}
}

func TestExtractJSONObject(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{name: "fenced", in: "```json\n{\"a\":1}\n```", want: `{"a":1}`, ok: true},
		{name: "prose", in: "Here you go: {\"a\":{\"b\":2}} hope it helps", want: `{"a":{"b":2}}`, ok: true},
		{name: "bare fence", in: "```\n{\"a\":1}\n```", want: `{"a":1}`, ok: true},
		{name: "no object", in: "two chapatis", ok: false},
		{name: "reversed", in: "} {", ok: false},
	}
	for _, tc := range cases {
		got, ok := ExtractJSONObject(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("%s: want=%q,%v got=%q,%v", tc.name, tc.want, tc.ok, got, ok)
		}
	}
}

func TestRepairJSON(t *testing.T) {
	var v map[string]interface{}
	if err := ParseJSON(RepairJSON(`{name: "Dal", count: 2,}`), &v); err != nil {
		t.Fatalf("ParseJSON repaired: %v", err)
	}
	if v["name"] != "Dal" {
		t.Fatalf("name: want=Dal got=%v", v["name"])
	}
}

func TestParseJSONRejectsExtraData(t *testing.T) {
	var v map[string]interface{}
	if err := ParseJSON(`{"a":1} {"b":2}`, &v); err == nil {
		t.Fatalf("ParseJSON extra data: want error got=nil")
	}
}

func TestNormalizeKey(t *testing.T) {
	if got := NormalizeKey("  Dal   MAKHANI "); got != "dal makhani" {
		t.Fatalf("NormalizeKey: want=%q got=%q", "dal makhani", got)
	}
}
