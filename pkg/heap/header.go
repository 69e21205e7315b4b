// pkg/heap/header.go
package heap

import (
	"bytes"
	"encoding/binary"

	"garner/pkg/page"
)

// The file header occupies the first page of a heap file. Its layout is
// fixed for compatibility with files written by the original C++
// implementation: a NUL-terminated name in a 50-byte field, two bytes of
// struct padding, then four little-endian 32-bit integers. The rest of
// the page is unused.
const (
	maxNameSize = 50

	offsetName        = 0  // 50 bytes: file name, NUL-terminated
	offsetFirstPage   = 52 // 4 bytes: first data page of the chain
	offsetLastPage    = 56 // 4 bytes: last data page of the chain
	offsetPageCount   = 60 // 4 bytes: number of data pages
	offsetRecordCount = 64 // 4 bytes: live records across all data pages

	headerEnd = 68
)

// fileHeader is the decoded form of the header page.
type fileHeader struct {
	Name        string
	FirstPage   int32
	LastPage    int32
	PageCount   int32
	RecordCount int32
}

// decodeFileHeader reads a header from the raw bytes of a header page.
func decodeFileHeader(data []byte) (*fileHeader, error) {
	if len(data) < headerEnd {
		return nil, ErrBadHeader
	}
	nameField := data[offsetName : offsetName+maxNameSize]
	nul := bytes.IndexByte(nameField, 0)
	if nul < 0 {
		return nil, ErrBadHeader
	}
	h := &fileHeader{
		Name:        string(nameField[:nul]),
		FirstPage:   int32(binary.LittleEndian.Uint32(data[offsetFirstPage:])),
		LastPage:    int32(binary.LittleEndian.Uint32(data[offsetLastPage:])),
		PageCount:   int32(binary.LittleEndian.Uint32(data[offsetPageCount:])),
		RecordCount: int32(binary.LittleEndian.Uint32(data[offsetRecordCount:])),
	}
	if h.FirstPage < page.InvalidPageNo || h.LastPage < page.InvalidPageNo ||
		h.PageCount < 0 || h.RecordCount < 0 {
		return nil, ErrBadHeader
	}
	return h, nil
}

// encode writes the header into the raw bytes of a header page.
func (h *fileHeader) encode(data []byte) {
	nameField := data[offsetName : offsetName+maxNameSize]
	for i := range nameField {
		nameField[i] = 0
	}
	copy(nameField, h.Name)
	binary.LittleEndian.PutUint32(data[offsetFirstPage:], uint32(h.FirstPage))
	binary.LittleEndian.PutUint32(data[offsetLastPage:], uint32(h.LastPage))
	binary.LittleEndian.PutUint32(data[offsetPageCount:], uint32(h.PageCount))
	binary.LittleEndian.PutUint32(data[offsetRecordCount:], uint32(h.RecordCount))
}
