package usecase

import (
	"math"
	"strconv"
	"testing"

	"pgregory.net/rapid"
)

func TestNormalizeQuantity(t *testing.T) {
	testCases := []struct {
		name string
		text string
		want float64
	}{
		// units
		{name: "grams attached", text: "250g", want: 0.25},
		{name: "grams spaced", text: "250 g", want: 0.25},
		{name: "grams alias", text: "125 grammes", want: 0.125},
		{name: "centiliters", text: "2cl", want: 0.02},
		{name: "kilograms", text: "1 kg", want: 1},
		{name: "kilo alias", text: "2 kilos", want: 2},
		{name: "milliliters", text: "500 ml", want: 0.5},
		{name: "liters", text: "1 l", want: 1},
		{name: "liter alias", text: "2 litres", want: 2},
		{name: "percent", text: "50%", want: 0.5},
		{name: "cup", text: "1 tasse", want: 0.24},
		{name: "half cup", text: "1/2 tasse", want: 0.12},
		{name: "mixed number cup", text: "1 1/2 tasses", want: 0.36},
		{name: "upper case unit", text: "250 G", want: 0.25},
		{name: "thousands separated by space", text: "1 000 g", want: 1},

		// decimal comma wins over every unit
		{name: "decimal comma with kg", text: "1,5 kg", want: 1.5},
		{name: "decimal comma with grams", text: "2,5 g", want: 2.5},
		{name: "decimal comma alone", text: "0,75", want: 0.75},

		// fractions
		{name: "half", text: "1/2", want: 0.5},
		{name: "three quarters", text: "3/4", want: 0.75},
		{name: "leading zero fraction", text: "01/02", want: 0.5},
		{name: "mixed number", text: "1 1/2", want: 1.5},

		// zero passes through
		{name: "zero grams", text: "0 g", want: 0},

		// fallback
		{name: "empty", text: "", want: DefaultQuantity},
		{name: "blank", text: "   ", want: DefaultQuantity},
		{name: "bare integer", text: "3", want: DefaultQuantity},
		{name: "unknown unit", text: "2 gousses", want: DefaultQuantity},
		{name: "spoon words", text: "3 c. à soupe", want: DefaultQuantity},
		{name: "unit without number", text: "quelques g", want: DefaultQuantity},
		{name: "division by zero", text: "1/0", want: DefaultQuantity},
		{name: "double fraction", text: "1/2/3", want: DefaultQuantity},
		{name: "two decimal points", text: "2.5.3 g", want: DefaultQuantity},
		{name: "comma without digits", text: "sel, poivre", want: DefaultQuantity},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeQuantity(tc.text)
			if got != tc.want {
				t.Errorf("NormalizeQuantity(%q) = %v, want %v", tc.text, got, tc.want)
			}
		})
	}
}

func TestNormalizeQuantity_UnitPriority(t *testing.T) {
	// cl is checked before g, g before kg, ml before l
	testCases := []struct {
		text string
		want float64
	}{
		{text: "10 cl g", want: 0.1},
		{text: "500 g kg", want: 0.5},
		{text: "250 ml l", want: 0.25},
		{text: "20 % g", want: 0.2},
	}

	for _, tc := range testCases {
		t.Run(tc.text, func(t *testing.T) {
			if got := NormalizeQuantity(tc.text); got != tc.want {
				t.Errorf("NormalizeQuantity(%q) = %v, want %v", tc.text, got, tc.want)
			}
		})
	}
}

func TestParseMagnitude(t *testing.T) {
	testCases := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{in: "250", want: "250", wantOK: true},
		{in: "1.5", want: "3/2", wantOK: true},
		{in: "3/4", want: "3/4", wantOK: true},
		{in: "1 1/2", want: "3/2", wantOK: true},
		{in: "1 000", want: "1000", wantOK: true},
		{in: "", wantOK: false},
		{in: "1/0", wantOK: false},
		{in: "1..2", wantOK: false},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := parseMagnitude(tc.in)
			if ok != tc.wantOK {
				t.Fatalf("parseMagnitude(%q) ok = %v, want %v", tc.in, ok, tc.wantOK)
			}
			if ok && got.RatString() != tc.want {
				t.Errorf("parseMagnitude(%q) = %s, want %s", tc.in, got.RatString(), tc.want)
			}
		})
	}
}

func TestNormalizeQuantity_Total(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.String().Draw(t, "text")

		got := NormalizeQuantity(text)
		if math.IsNaN(got) || got < 0 {
			t.Fatalf("NormalizeQuantity(%q) = %v", text, got)
		}
	})
}

func TestNormalizeQuantity_CommaBranch(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		whole := rapid.IntRange(0, 999).Draw(t, "whole")
		frac := rapid.IntRange(1, 9).Draw(t, "frac")
		unit := rapid.SampledFrom([]string{"", " g", " kg", " cl", " ml", " l", " tasse", "%"}).Draw(t, "unit")

		text := strconv.Itoa(whole) + "," + strconv.Itoa(frac) + unit
		want := float64(whole) + float64(frac)/10

		if got := NormalizeQuantity(text); math.Abs(got-want) > 1e-9 {
			t.Fatalf("NormalizeQuantity(%q) = %v, want %v", text, got, want)
		}
	})
}
