package phonedb

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"
)

// fieldSeparator delimits the four fields inside a record. Every
// record is terminated by a zero byte.
const fieldSeparator = "|"

// Record is the attribution result for one phone prefix. A Record is
// immutable once built and safe to share across goroutines; cache
// lookups hand out copies.
type Record struct {
	Province string `json:"province"`
	City     string `json:"city"`
	ZipCode  string `json:"zip_code"`
	AreaCode string `json:"area_code"`
	Carrier  string `json:"carrier"`
}

// carrierNames maps the carrier code byte to the operator it stands
// for. The 8 codes and their meaning are part of the file format
// contract; codes 4-6 and 8 are the virtual (reseller) operators.
var carrierNames = [...]string{
	1: "China Mobile",
	2: "China Unicom",
	3: "China Telecom",
	4: "China Telecom Virtual Operator",
	5: "China Unicom Virtual Operator",
	6: "China Mobile Virtual Operator",
	7: "China Broadnet",
	8: "China Broadnet Virtual Operator",
}

// carrierDescription translates a carrier code into its operator name.
func carrierDescription(code uint8) (string, error) {
	if int(code) >= len(carrierNames) || carrierNames[code] == "" {
		return "", fmt.Errorf("%w: %d", ErrInvalidCarrierCode, code)
	}
	return carrierNames[code], nil
}

// parseRecord extracts the record stored at the given absolute file
// offset. Index offsets include the 8-byte header, so the position
// inside the blob is offset-headerSize. The record runs to the next
// zero byte (or the end of the blob) and must split into exactly four
// fields. The blob itself is never touched, so concurrent calls
// against the same database are safe.
func (db *database) parseRecord(offset int32) (*Record, error) {
	rel := int(offset) - headerSize
	if rel < 0 || rel >= len(db.records) {
		return nil, fmt.Errorf("%w: record offset %d out of range", ErrInvalidDatabase, offset)
	}

	raw := db.records[rel:]
	if end := bytes.IndexByte(raw, 0); end >= 0 {
		raw = raw[:end]
	}
	if !utf8.Valid(raw) {
		return nil, fmt.Errorf("%w: record at offset %d is not valid UTF-8", ErrInvalidDatabase, offset)
	}

	fields := strings.Split(string(raw), fieldSeparator)
	if len(fields) != 4 {
		return nil, fmt.Errorf("%w: record at offset %d has %d fields, want 4", ErrInvalidDatabase, offset, len(fields))
	}

	return &Record{
		Province: fields[0],
		City:     fields[1],
		ZipCode:  fields[2],
		AreaCode: fields[3],
	}, nil
}
