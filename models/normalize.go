package models

import (
	"math/big"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Sentinels shared across the catalog and the ingestion flows.
const (
	DeptUnknown  = "SIN_INFO"
	AisleUnknown = "S/D"
	DescUnknown  = "PRODUCTO DESCONOCIDO"
	DescImported = "PRODUCTO IMPORTADO"
)

// NormalizeCode turns a raw SKU/UPC token into its canonical form:
// uppercase, quotes stripped, scientific notation expanded to full digits,
// fractional part dropped, non-alphanumerics removed, leading zeros stripped
// when purely numeric. An empty result normalizes to "0".
func NormalizeCode(raw string) string {
	val := strings.ToUpper(strings.TrimSpace(raw))
	val = strings.ReplaceAll(val, `"`, "")

	// Spreadsheet exports render long barcodes as e.g. 1.04E+8. Expand via
	// big.Float so codes longer than an int64 keep every digit.
	if strings.Contains(val, "E+") {
		if f, _, err := big.ParseFloat(val, 10, 256, big.ToNearestEven); err == nil {
			n, _ := f.Int(nil)
			val = n.String()
		}
	}

	// Drop any fractional part (1.0 -> 1).
	val = strings.SplitN(val, ".", 2)[0]
	val = strings.SplitN(val, ",", 2)[0]

	var b strings.Builder
	for _, r := range val {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	val = b.String()

	if val != "" && isAllDigits(val) {
		val = strings.TrimLeft(val, "0")
	}

	if val == "" {
		return "0"
	}
	return val
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// NormalizeHeaderToken canonicalizes a column-header cell for synonym
// matching: uppercase, quotes stripped, diacritics removed (NFD decomposition
// minus combining marks), non-alphanumerics removed.
func NormalizeHeaderToken(raw string) string {
	val := strings.ToUpper(strings.TrimSpace(raw))
	val = strings.ReplaceAll(val, `"`, "")

	decomposed := norm.NFD.String(val)
	var b strings.Builder
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeAisle collapses observed label variants and maps every "no aisle"
// spelling to the AisleUnknown sentinel.
func NormalizeAisle(raw string) string {
	val := strings.ToUpper(strings.TrimSpace(raw))
	if val == "" {
		return AisleUnknown
	}

	// Variant observed in operator data: both spellings name the same aisle.
	if val == "HARINAS Y ACEITES" {
		return "HARINAS Y ACEITE"
	}
	if val == "SIN PASILLO" || val == "S/P" || val == "S/D" {
		return AisleUnknown
	}
	return val
}

// tokenizeDescription extracts the uppercase alphabetic runs longer than
// three characters that drive keyword-based aisle inference.
func tokenizeDescription(desc string) []string {
	upper := strings.ToUpper(desc)
	var tokens []string
	var b strings.Builder
	flush := func() {
		if b.Len() > 3 {
			tokens = append(tokens, b.String())
		}
		b.Reset()
	}
	for _, r := range upper {
		if r >= 'A' && r <= 'Z' {
			b.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}
