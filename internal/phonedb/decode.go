package phonedb

import (
	"encoding/binary"
	"fmt"
	"io"
	"unicode/utf8"
)

const (
	// The records blob starts right after the 8-byte file header
	// (4-byte version tag + little-endian int32 index offset).
	headerSize = 8

	// Each index entry is a packed 9-byte triple: int32 prefix,
	// int32 records offset, uint8 carrier code. Little-endian.
	indexEntrySize = 9
)

// indexEntry maps a 7-digit phone prefix to the absolute byte offset
// of its record in the file, plus the carrier code.
type indexEntry struct {
	prefix        int32
	recordsOffset int32
	carrierCode   uint8
}

// database is the fully decoded, immutable image of a phone.dat file.
// decode builds it once at load time; afterwards the records blob and
// index are shared read-only by every resolver call, with no copying
// and no locks.
type database struct {
	version string
	records []byte
	index   []indexEntry
}

// decode parses the binary database layout:
//
//	offset 0..4   ASCII version tag
//	offset 4..8   int32 absolute offset of the index region
//	offset 8..N   records blob ("province|city|zip|area\0" each)
//	offset N..EOF packed 9-byte index entries, ascending by prefix
//
// The file format guarantees index entries arrive pre-sorted and
// unique, so decode preserves file order and never re-sorts. A short,
// non-empty trailing chunk ends decoding cleanly; a truncated header
// or records blob is ErrInvalidDatabase.
func decode(r io.Reader) (*database, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("%w: short header", ErrInvalidDatabase)
	}

	version := header[:4]
	if !utf8.Valid(version) {
		return nil, fmt.Errorf("%w: version tag is not valid UTF-8", ErrInvalidDatabase)
	}

	indexOffset := int32(binary.LittleEndian.Uint32(header[4:8]))
	if indexOffset < headerSize {
		return nil, fmt.Errorf("%w: index offset %d overlaps header", ErrInvalidDatabase, indexOffset)
	}

	records := make([]byte, indexOffset-headerSize)
	if _, err := io.ReadFull(r, records); err != nil {
		return nil, fmt.Errorf("%w: records blob truncated", ErrInvalidDatabase)
	}

	var index []indexEntry
	entry := make([]byte, indexEntrySize)
	for {
		if _, err := io.ReadFull(r, entry); err != nil {
			// EOF, or a final entry truncated mid-write. Both end the
			// index; everything decoded so far stands.
			break
		}
		index = append(index, indexEntry{
			prefix:        int32(binary.LittleEndian.Uint32(entry[0:4])),
			recordsOffset: int32(binary.LittleEndian.Uint32(entry[4:8])),
			carrierCode:   entry[8],
		})
	}

	return &database{
		version: string(version),
		records: records,
		index:   index,
	}, nil
}
