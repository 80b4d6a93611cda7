// seed-catalog loads the baseline reference CSV, replays the custom-product
// side cache on top and prints the resulting catalog stats. Run it once
// against a fresh database to verify the baseline file before serving.
//
// Usage:
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//     go run ./cmd/seed-catalog [path-or-url]
//
// Without an argument the CATALOG_URL env var (default ./data.csv) is used.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/retailtools/huecos_backend/config"
	"github.com/retailtools/huecos_backend/models"
)

func main() {
	ctx := context.Background()

	source := strings.TrimSpace(os.Getenv("CATALOG_URL"))
	if len(os.Args) > 1 {
		source = os.Args[1]
	}
	if source == "" {
		source = "./data.csv"
	}

	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	models.MigrateTable()

	catalog := models.NewCatalog()
	size, err := models.LoadCatalog(ctx, catalog, source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load baseline catalog from %s: %v\n", source, err)
		os.Exit(1)
	}

	aisles := catalog.ListKnownAisles()
	fmt.Printf("catalog loaded: %d records, %d known aisles\n", size, len(aisles))
	fmt.Printf("department->aisle mappings: %d\n", len(catalog.DeptAisleMajority()))
	fmt.Printf("keyword predictors: %d\n", len(catalog.KeywordAisleIndex()))
}
