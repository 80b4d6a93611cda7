package models

import "strings"

// ColumnRoles holds the resolved column index per semantic role; -1 while
// unresolved.
type ColumnRoles struct {
	Code          int
	SecondaryCode int
	Department    int
	Description   int
	Category      int
}

// Header synonyms for the supplier formats seen in the field. Matching is
// bidirectional substring over normalized tokens so "CÓDIGO" and
// "CODIGO DE BARRAS" style variants both resolve.
var roleSynonyms = struct {
	code, secondary, dept, desc, cat []string
}{
	code:      []string{"SKU", "ITEM", "CODIGO", "ARTICULO", "ID", "MATERIAL", "PROD"},
	secondary: []string{"UPC", "EAN", "BARCODE", "CODIGODEBARRAS", "BARRAS", "EAN13", "EAN8"},
	dept:      []string{"DEPARTAMENTO", "DEPTO", "DIVISION", "GERENCIA"},
	desc:      []string{"DESCRIPCION", "NOMBRE", "PRODUCTO", "DETAIL"},
	cat:       []string{"CLASE", "CATEGORIA", "SECCION", "RUBRO", "FAMILIA"},
}

// headerScanWindow caps how many leading lines are probed for a header row.
const headerScanWindow = 30

// DetectDelimiter picks between ';' and ',' for a whole document: the first
// line carrying more than two of either candidate decides, ';' winning only
// on a strictly greater count. Defaults to ',' when no line qualifies.
func DetectDelimiter(lines []string) string {
	var testLine string
	for _, line := range lines {
		if strings.Count(line, ",") > 2 || strings.Count(line, ";") > 2 {
			testLine = line
			break
		}
	}
	if strings.Count(testLine, ";") > strings.Count(testLine, ",") {
		return ";"
	}
	return ","
}

// DetectHeaderAndColumns scans the leading lines for a header row and maps
// columns to roles. The header is the first line that resolves the code or
// the secondary-code role; data starts on the next line. Without a header
// the fixed default layout applies and data starts at line 0.
func DetectHeaderAndColumns(lines []string, delimiter string) (int, ColumnRoles) {
	rows := make([][]string, 0, minInt(headerScanWindow, len(lines)))
	for i := 0; i < len(lines) && i < headerScanWindow; i++ {
		rows = append(rows, strings.Split(lines[i], delimiter))
	}
	return detectColumnsFromRows(rows)
}

func detectColumnsFromRows(rows [][]string) (int, ColumnRoles) {
	cols := ColumnRoles{Code: -1, SecondaryCode: -1, Department: -1, Description: -1, Category: -1}
	startIndex := 0

	for i := 0; i < len(rows) && i < headerScanWindow; i++ {
		tokens := make([]string, len(rows[i]))
		for j, cell := range rows[i] {
			tokens[j] = NormalizeHeaderToken(cell)
		}

		if cols.Code == -1 {
			cols.Code = findColumn(tokens, roleSynonyms.code)
		}
		if cols.SecondaryCode == -1 {
			cols.SecondaryCode = findColumn(tokens, roleSynonyms.secondary)
		}
		if cols.Department == -1 {
			cols.Department = findColumn(tokens, roleSynonyms.dept)
		}
		if cols.Description == -1 {
			cols.Description = findColumn(tokens, roleSynonyms.desc)
		}
		if cols.Category == -1 {
			cols.Category = findColumn(tokens, roleSynonyms.cat)
		}

		if cols.Code != -1 || cols.SecondaryCode != -1 {
			startIndex = i + 1
			break
		}
	}

	// Defaults tuned to the dominant supplier format.
	if cols.Department == -1 {
		cols.Department = 0
	}
	if cols.SecondaryCode == -1 {
		cols.SecondaryCode = 2
	}
	if cols.Code == -1 {
		cols.Code = 3
	}
	if cols.Description == -1 {
		cols.Description = 4
	}
	if cols.Category == -1 {
		cols.Category = 1
	}

	return startIndex, cols
}

func findColumn(tokens []string, synonyms []string) int {
	for i, token := range tokens {
		if token == "" {
			continue
		}
		for _, syn := range synonyms {
			if strings.Contains(token, syn) || strings.Contains(syn, token) {
				return i
			}
		}
	}
	return -1
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
