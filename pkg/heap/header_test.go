// pkg/heap/header_test.go
package heap

import (
	"encoding/binary"
	"errors"
	"testing"

	"garner/pkg/page"
)

func TestHeaderRoundTrip(t *testing.T) {
	data := make([]byte, page.Size)
	h := &fileHeader{
		Name:        "accounts",
		FirstPage:   1,
		LastPage:    9,
		PageCount:   9,
		RecordCount: 1234,
	}
	h.encode(data)

	got, err := decodeFileHeader(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if *got != *h {
		t.Errorf("round trip changed header: %+v != %+v", got, h)
	}
}

// TestHeaderLayout pins the on-disk offsets: a 50-byte NUL-terminated
// name field, two bytes of padding, then four little-endian int32s.
func TestHeaderLayout(t *testing.T) {
	data := make([]byte, page.Size)
	h := &fileHeader{
		Name:        "t",
		FirstPage:   1,
		LastPage:    2,
		PageCount:   3,
		RecordCount: 4,
	}
	h.encode(data)

	if data[0] != 't' || data[1] != 0 {
		t.Errorf("name field not NUL-terminated at start: % x", data[:4])
	}
	fields := []struct {
		offset int
		want   uint32
	}{
		{52, 1},
		{56, 2},
		{60, 3},
		{64, 4},
	}
	for _, f := range fields {
		if got := binary.LittleEndian.Uint32(data[f.offset:]); got != f.want {
			t.Errorf("offset %d: got %d, want %d", f.offset, got, f.want)
		}
	}
}

func TestDecodeBadHeader(t *testing.T) {
	short := make([]byte, 10)
	if _, err := decodeFileHeader(short); !errors.Is(err, ErrBadHeader) {
		t.Errorf("short buffer: expected ErrBadHeader, got %v", err)
	}

	noNul := make([]byte, page.Size)
	for i := 0; i < maxNameSize; i++ {
		noNul[i] = 'x'
	}
	if _, err := decodeFileHeader(noNul); !errors.Is(err, ErrBadHeader) {
		t.Errorf("unterminated name: expected ErrBadHeader, got %v", err)
	}

	negative := make([]byte, page.Size)
	(&fileHeader{Name: "n", FirstPage: 1, LastPage: 1, PageCount: 1}).encode(negative)
	binary.LittleEndian.PutUint32(negative[offsetRecordCount:], uint32(0xfffffff0)) // < -1
	if _, err := decodeFileHeader(negative); !errors.Is(err, ErrBadHeader) {
		t.Errorf("negative count: expected ErrBadHeader, got %v", err)
	}
}
