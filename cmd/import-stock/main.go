// import-stock runs a supplier stock-report import offline: it loads the
// reference catalog, enriches it from the given report file (.xlsx or
// delimited text) and persists the new records to the custom-product cache.
// Suggestion clusters are printed for review; nothing is auto-confirmed.
//
// Usage:
//   DB_USER=... DB_PASSWORD=... ... go run ./cmd/import-stock <report-file>
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/retailtools/huecos_backend/config"
	"github.com/retailtools/huecos_backend/models"
)

func main() {
	ctx := context.Background()

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: import-stock <report-file>")
		os.Exit(2)
	}
	reportPath := os.Args[1]

	source := strings.TrimSpace(os.Getenv("CATALOG_URL"))
	if source == "" {
		source = "./data.csv"
	}

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	catalog := models.NewCatalog()
	size, err := models.LoadCatalog(ctx, catalog, source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load baseline catalog from %s: %v\n", source, err)
		os.Exit(1)
	}
	fmt.Printf("catalog loaded: %d records\n", size)

	importer := models.NewStockImporter(catalog)

	var result *models.StockImportResult
	if strings.EqualFold(filepath.Ext(reportPath), ".xlsx") {
		f, err := os.Open(reportPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cannot open %s: %v\n", reportPath, err)
			os.Exit(1)
		}
		defer f.Close()
		result, err = importer.ImportXlsx(ctx, f)
		if err != nil {
			fmt.Fprintf(os.Stderr, "import failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		raw, err := os.ReadFile(reportPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cannot read %s: %v\n", reportPath, err)
			os.Exit(1)
		}
		result, err = importer.Import(ctx, string(raw))
		if err != nil {
			fmt.Fprintf(os.Stderr, "import failed: %v\n", err)
			os.Exit(1)
		}
		if err := models.SaveStockReportRaw(ctx, string(raw)); err != nil {
			fmt.Fprintf(os.Stderr, "warning: raw report not archived: %v\n", err)
		}
	}

	warnings := models.SaveCatalogRecords(ctx, result.Products)
	fmt.Printf("imported %d new/updated records (%d save warnings)\n", len(result.Products), len(warnings))
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}

	for _, cluster := range result.Suggestions {
		fmt.Printf("suggested aisle %q for %d products:\n", cluster.Aisle, len(cluster.Products))
		for _, p := range cluster.Products {
			fmt.Printf("  %s  %s\n", p.Code, p.Description)
		}
	}
}
