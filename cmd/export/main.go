package main

import (
	"database/sql"
	"flag"
	"log"

	_ "github.com/mattn/go-sqlite3"

	"phone-lookup/internal/phonedb"
)

const (
	dropTable = `DROP TABLE IF EXISTS phone_prefixes;`

	createTable = `
		CREATE TABLE phone_prefixes (
			prefix INTEGER PRIMARY KEY,
			province TEXT NOT NULL,
			city TEXT NOT NULL,
			zip_code TEXT NOT NULL,
			area_code TEXT NOT NULL,
			carrier_code INTEGER NOT NULL,
			carrier TEXT NOT NULL
		);
	`

	insertPrefix = `
		INSERT INTO phone_prefixes
			(prefix, province, city, zip_code, area_code, carrier_code, carrier)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
)

// export dumps every decoded prefix record into a SQLite table so the
// database contents can be inspected with ad-hoc SQL. The binary
// database file itself is only read, never modified.
func main() {
	dbPath := flag.String("db", "phone.dat", "Path to the binary phone database")
	outPath := flag.String("out", "./phone.sqlite", "Path of the SQLite file to write")
	flag.Parse()

	// The export walks the index once; no cache needed.
	engine, err := phonedb.Load(*dbPath, false, 0)
	if err != nil {
		log.Fatalf("Failed to load phone database: %v", err)
	}
	log.Printf("Loaded %s: version %s, %d prefixes", *dbPath, engine.Version(), engine.IndexCount())

	out, err := sql.Open("sqlite3", *outPath)
	if err != nil {
		log.Fatalf("Failed to open output database: %v", err)
	}
	defer out.Close()

	if _, err := out.Exec(dropTable); err != nil {
		log.Fatalf("Failed to drop existing table: %v", err)
	}
	if _, err := out.Exec(createTable); err != nil {
		log.Fatalf("Failed to create table: %v", err)
	}

	tx, err := out.Begin()
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(insertPrefix)
	if err != nil {
		log.Fatalf("Failed to prepare insert: %v", err)
	}
	defer stmt.Close()

	count := 0
	err = engine.Walk(func(prefix int32, carrierCode uint8, rec *phonedb.Record) error {
		if _, err := stmt.Exec(prefix, rec.Province, rec.City, rec.ZipCode, rec.AreaCode, carrierCode, rec.Carrier); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		log.Fatalf("Failed to export records: %v", err)
	}

	if err := tx.Commit(); err != nil {
		log.Fatalf("Failed to commit transaction: %v", err)
	}

	log.Printf("Exported %d prefixes to %s", count, *outPath)
}
