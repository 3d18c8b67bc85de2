package main

import (
	"flag"
	"fmt"
	"os"

	"phone-lookup/internal/batch"
	"phone-lookup/internal/phonedb"
)

func main() {
	// Define command-line flags
	dbPath := flag.String("db", "phone.dat", "Path to the binary phone database")
	workers := flag.Int("workers", 0, "Concurrent lookups (0 = one per CPU)")
	showStats := flag.Bool("stats", false, "Print engine statistics after the lookups")
	flag.Parse()

	phones := flag.Args()
	if len(phones) == 0 {
		fmt.Fprintf(os.Stderr, "Usage: lookup [flags] PHONE [PHONE...]\n\n")
		flag.Usage()
		os.Exit(1)
	}

	engine, err := phonedb.Load(*dbPath, true, 1000)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	results := batch.Lookup(engine, phones, *workers)
	for _, res := range results {
		if res.Err != nil {
			fmt.Printf("%-12s  error: %v\n", res.Phone, res.Err)
			continue
		}
		rec := res.Record
		fmt.Printf("%-12s  %s %s  zip=%s area=%s  %s\n",
			res.Phone, rec.Province, rec.City, rec.ZipCode, rec.AreaCode, rec.Carrier)
	}

	if *showStats {
		stats := engine.Stats()
		fmt.Printf("\n%d prefixes, %d queries, %d cache hits (%.2f%%)\n",
			stats.IndexCount, stats.TotalQueries, stats.CacheHits, stats.CacheHitRate)
	}

	if batch.Succeeded(results) < len(results) {
		os.Exit(1)
	}
}
