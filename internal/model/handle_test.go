package model

import "testing"

func TestParseRateHandle(t *testing.T) {
	h, err := ParseRateHandle("flat-1|500|Standard-Shipping")
	if err != nil {
		t.Fatalf("ParseRateHandle() error: %v", err)
	}
	if h.Method != "flat" {
		t.Errorf("Method = %q, want flat", h.Method)
	}
	if h.Instance != "1" {
		t.Errorf("Instance = %q, want 1", h.Instance)
	}
	if h.Amount != 500 {
		t.Errorf("Amount = %d, want 500", h.Amount)
	}
	if h.Label != "Standard Shipping" {
		t.Errorf("Label = %q, want %q", h.Label, "Standard Shipping")
	}
}

func TestParseRateHandle_MethodWithDash(t *testing.T) {
	h, err := ParseRateHandle("local-pickup-7|0|Pick-up-in-store")
	if err != nil {
		t.Fatalf("ParseRateHandle() error: %v", err)
	}
	if h.Method != "local-pickup" || h.Instance != "7" {
		t.Errorf("Method/Instance = %q/%q, want local-pickup/7", h.Method, h.Instance)
	}
}

func TestParseRateHandle_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		handle string
	}{
		{"empty", ""},
		{"two parts", "flat-1|500"},
		{"no instance", "flat|500|Standard"},
		{"trailing dash", "flat-|500|Standard"},
		{"bad amount", "flat-1|five|Standard"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseRateHandle(tt.handle); err == nil {
				t.Errorf("ParseRateHandle(%q) should fail", tt.handle)
			}
		})
	}
}

func TestRateHandleRoundTrip(t *testing.T) {
	tests := []RateHandle{
		{Method: "flat_rate", Instance: "1", Amount: 500, Label: "Standard Shipping"},
		{Method: "free_shipping", Instance: "3", Amount: 0, Label: "Free"},
		{Method: "ups", Instance: "12", Amount: 1999, Label: "UPS Next Day Air"},
	}

	for _, want := range tests {
		encoded := EncodeRateHandle(want)
		got, err := ParseRateHandle(encoded)
		if err != nil {
			t.Fatalf("ParseRateHandle(%q) error: %v", encoded, err)
		}
		if got != want {
			t.Errorf("round trip %q = %+v, want %+v", encoded, got, want)
		}
	}
}

func TestEncodeRateHandle(t *testing.T) {
	got := EncodeRateHandle(RateHandle{Method: "flat", Instance: "1", Amount: 500, Label: "Standard  Shipping"})
	if got != "flat-1|500|Standard-Shipping" {
		t.Errorf("EncodeRateHandle() = %q", got)
	}

	piped := EncodeRateHandle(RateHandle{Method: "flat", Instance: "1", Amount: 500, Label: "A|B"})
	if piped != "flat-1|500|A-B" {
		t.Errorf("EncodeRateHandle() with pipe = %q", piped)
	}
}
