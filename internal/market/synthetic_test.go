package market

import (
	"context"
	"math"
	"testing"

	"github.com/rs/zerolog"
)

func TestEstimateBasePrice(t *testing.T) {
	cases := []struct {
		name     string
		category string
		want     float64
	}{
		{"0123456789", "default", 38.5},
		{"0123456789", "", 38.5},
		{"ab", "hogar", 51.0},
		{"ab", "Hogar", 51.0},
		{"", "bebidas", 15.0},
		{"x", "tecnología", 505.0},
	}

	for _, tc := range cases {
		got := EstimateBasePrice(tc.name, tc.category)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("EstimateBasePrice(%q, %q) = %v, want %v", tc.name, tc.category, got, tc.want)
		}
	}
}

func TestSyntheticSampleRoster(t *testing.T) {
	source := NewSynthetic(42, zerolog.Nop())

	observations, err := source.Sample(context.Background(), "0123456789", "default")
	if err != nil {
		t.Fatalf("sample failed: %v", err)
	}
	if len(observations) != len(vendorRoster) {
		t.Fatalf("expected %d observations, got %d", len(vendorRoster), len(observations))
	}

	// base 35.0 scaled by the 10-rune name: 35.0 * 1.10 = 38.5
	base := 38.5
	for i, obs := range observations {
		vendor := vendorRoster[i]
		if obs.Vendor != vendor.name {
			t.Fatalf("observation %d vendor = %q, want %q", i, obs.Vendor, vendor.name)
		}
		price := obs.Price.InexactFloat64()
		low := base*vendor.low - 0.01
		high := base*vendor.high + 0.01
		if price < low || price > high {
			t.Fatalf("%s price %v outside jitter band [%v, %v]", vendor.name, price, low, high)
		}
		if obs.URL == "" {
			t.Fatalf("%s observation should carry a url", vendor.name)
		}
	}
}

func TestSyntheticSeededDeterminism(t *testing.T) {
	first, err := NewSynthetic(7, zerolog.Nop()).Sample(context.Background(), "Escritorio Ejecutivo", "hogar")
	if err != nil {
		t.Fatalf("sample failed: %v", err)
	}
	second, err := NewSynthetic(7, zerolog.Nop()).Sample(context.Background(), "Escritorio Ejecutivo", "hogar")
	if err != nil {
		t.Fatalf("sample failed: %v", err)
	}

	for i := range first {
		if !first[i].Price.Equal(second[i].Price) {
			t.Fatalf("seeded runs diverged at %d: %s vs %s", i, first[i].Price, second[i].Price)
		}
	}
}

func TestSyntheticCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewSynthetic(1, zerolog.Nop()).Sample(ctx, "Silla", "hogar"); err == nil {
		t.Fatal("cancelled context should surface an error")
	}
}
