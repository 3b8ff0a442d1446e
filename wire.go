package denoiser

import (
	"encoding/binary"

	"github.com/OneOfOne/xxhash"
	"github.com/pkg/errors"
)

// encodeInt/decodeInt carry the single-integer payloads the protocol uses
// for ROWS, COLUMNS, neighbour ranks, QUESTION positions, and ANSWER sums
// (spec §6, §4.3, §4.4).
func encodeInt(v int) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(int32(v)))
	return b[:]
}

func decodeInt(b []byte) (int, error) {
	if len(b) != 4 {
		return 0, errors.Errorf("denoiser: expected 4-byte int payload, got %d bytes", len(b))
	}
	return int(int32(binary.BigEndian.Uint32(b))), nil
}

// encodeRow encodes a pixel row plus an xxhash64 checksum (SPEC_FULL
// §10.2): the coordinator<->worker IMAGE_ROW/FINAL_IMAGE_ROW boundary is
// the one place a silent bit-flip would corrupt the image without anyone
// noticing, so it gets a cheap integrity check the rest of the "assumed
// reliable" transport (spec §4.1) does not need.
func encodeRow(row []Pixel) []byte {
	raw := make([]byte, len(row))
	for i, p := range row {
		raw[i] = byte(p)
	}
	sum := xxhash.Checksum64(raw)
	out := make([]byte, 8+len(raw))
	binary.BigEndian.PutUint64(out[:8], sum)
	copy(out[8:], raw)
	return out
}

func decodeRow(b []byte) ([]Pixel, error) {
	if len(b) < 8 {
		return nil, errors.Errorf("denoiser: row payload too short (%d bytes)", len(b))
	}
	wantSum := binary.BigEndian.Uint64(b[:8])
	raw := b[8:]
	gotSum := xxhash.Checksum64(raw)
	if gotSum != wantSum {
		return nil, errors.Wrapf(ErrTransport, "row checksum mismatch: want %x got %x", wantSum, gotSum)
	}
	row := make([]Pixel, len(raw))
	for i, v := range raw {
		row[i] = Pixel(int8(v))
	}
	return row, nil
}
