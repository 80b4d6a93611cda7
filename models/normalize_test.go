package models_test

import (
	"testing"

	"github.com/retailtools/huecos_backend/models"
)

func TestNormalizeCode(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"00123", "123"},
		{"1.04E+8", "104000000"},
		{"", "0"},
		{"  sku-001 ", "SKU001"},
		{`"7798123456789"`, "7798123456789"},
		{"1.0", "1"},
		{"15,50", "15"},
		{"0", "0"},
		{"000", "0"},
		{"A00B", "A00B"},
		// Exceeds int64: every digit must survive the expansion.
		{"1.23456789012345678E+20", "123456789012345678000"},
	}
	for _, tc := range cases {
		if got := models.NormalizeCode(tc.in); got != tc.want {
			t.Errorf("NormalizeCode(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeCodeIdempotent(t *testing.T) {
	inputs := []string{"00123", "1.04E+8", "", "sku-001", `"045"`, "ABC123", "9,75"}
	for _, in := range inputs {
		once := models.NormalizeCode(in)
		twice := models.NormalizeCode(once)
		if once != twice {
			t.Errorf("NormalizeCode not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestNormalizeHeaderToken(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"CÓDIGO", "CODIGO"},
		{`"Descripción"`, "DESCRIPCION"},
		{" depto. ", "DEPTO"},
		{"EAN-13", "EAN13"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := models.NormalizeHeaderToken(tc.in); got != tc.want {
			t.Errorf("NormalizeHeaderToken(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeAisle(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", "S/D"},
		{"S/D", "S/D"},
		{"S/P", "S/D"},
		{"sin pasillo", "S/D"},
		{"HARINAS Y ACEITES", "HARINAS Y ACEITE"},
		{"harinas y aceite", "HARINAS Y ACEITE"},
		{" 12 ", "12"},
	}
	for _, tc := range cases {
		if got := models.NormalizeAisle(tc.in); got != tc.want {
			t.Errorf("NormalizeAisle(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
