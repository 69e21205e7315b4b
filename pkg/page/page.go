// pkg/page/page.go
// Package page implements the slotted data page used by heap files.
//
// A data page is a fixed-size byte array with a small header at the front,
// a slot directory growing upward behind it, and record bytes growing
// downward from the end of the page. Each slot holds the offset and length
// of one record; a freed slot keeps its position (record identifiers stay
// stable) and is marked with a length of -1.
package page

import (
	"encoding/binary"
	"errors"
)

const (
	// Size is the size of every page in bytes.
	Size = 4096

	// headerSize is the fixed page header: slot count, free pointer,
	// free space, padding, next-page link, own page number.
	headerSize = 16

	// slotSize is the size of one slot directory entry.
	slotSize = 4

	// MaxRecordSize is the largest record that fits on an empty page.
	MaxRecordSize = Size - headerSize - slotSize

	// InvalidPageNo marks the absence of a page, e.g. at the end of a
	// page chain. The value -1 is part of the on-disk format.
	InvalidPageNo int32 = -1
)

// Header field offsets. All multi-byte fields are little-endian.
const (
	offsetSlotCount = 0  // 2 bytes: number of slot directory entries
	offsetFreePtr   = 2  // 2 bytes: lowest offset occupied by record bytes
	offsetFreeSpace = 4  // 2 bytes: free bytes between directory and records
	offsetNextPage  = 8  // 4 bytes: next page in the chain (-1 if none)
	offsetPageNo    = 12 // 4 bytes: this page's own number
)

var (
	ErrNoSpace     = errors.New("page: not enough free space for record")
	ErrInvalidSlot = errors.New("page: invalid slot")
	ErrNoRecords   = errors.New("page: no records on page")
	ErrEndOfPage   = errors.New("page: no more records on page")
	ErrPageSize    = errors.New("page: buffer is not page sized")
)

// freeSlotLength marks a slot whose record has been deleted.
const freeSlotLength = -1

// RID identifies a record by page number and slot number. It is stable
// for the lifetime of the record.
type RID struct {
	PageNo int32
	SlotNo int16
}

// NullRID is a distinguished RID that never identifies a record.
var NullRID = RID{PageNo: -1, SlotNo: -1}

// Page is a view over one page worth of raw bytes. The bytes are not
// owned: they usually alias a pinned buffer-pool frame, and the view is
// valid only while that frame stays pinned.
type Page []byte

// Init formats the buffer as an empty slotted page owned by pageNo.
func (p Page) Init(pageNo int32) {
	for i := range p[:headerSize] {
		p[i] = 0
	}
	p.setSlotCount(0)
	p.setFreePtr(Size)
	p.setFreeSpace(Size - headerSize)
	p.SetNextPage(InvalidPageNo)
	binary.LittleEndian.PutUint32(p[offsetPageNo:], uint32(pageNo))
}

// PageNo returns the page number recorded at Init time.
func (p Page) PageNo() int32 {
	return int32(binary.LittleEndian.Uint32(p[offsetPageNo:]))
}

// NextPage returns the chain link, InvalidPageNo at the end of the chain.
func (p Page) NextPage() int32 {
	return int32(binary.LittleEndian.Uint32(p[offsetNextPage:]))
}

// SetNextPage sets the chain link.
func (p Page) SetNextPage(pageNo int32) {
	binary.LittleEndian.PutUint32(p[offsetNextPage:], uint32(pageNo))
}

// SlotCount returns the number of slot directory entries, including
// freed ones.
func (p Page) SlotCount() int {
	return int(int16(binary.LittleEndian.Uint16(p[offsetSlotCount:])))
}

// FreeSpace returns the number of free bytes between the slot directory
// and the record area.
func (p Page) FreeSpace() int {
	return int(binary.LittleEndian.Uint16(p[offsetFreeSpace:]))
}

// RecordCount returns the number of live records on the page.
func (p Page) RecordCount() int {
	n := 0
	for i := 0; i < p.SlotCount(); i++ {
		if _, length := p.slot(i); length != freeSlotLength {
			n++
		}
	}
	return n
}

func (p Page) freePtr() int {
	return int(binary.LittleEndian.Uint16(p[offsetFreePtr:]))
}

func (p Page) setFreePtr(v int) {
	binary.LittleEndian.PutUint16(p[offsetFreePtr:], uint16(v))
}

func (p Page) setFreeSpace(v int) {
	binary.LittleEndian.PutUint16(p[offsetFreeSpace:], uint16(v))
}

func (p Page) setSlotCount(v int) {
	binary.LittleEndian.PutUint16(p[offsetSlotCount:], uint16(int16(v)))
}

func (p Page) slot(i int) (offset int, length int) {
	base := headerSize + i*slotSize
	offset = int(binary.LittleEndian.Uint16(p[base:]))
	length = int(int16(binary.LittleEndian.Uint16(p[base+2:])))
	return offset, length
}

func (p Page) setSlot(i, offset, length int) {
	base := headerSize + i*slotSize
	binary.LittleEndian.PutUint16(p[base:], uint16(offset))
	binary.LittleEndian.PutUint16(p[base+2:], uint16(int16(length)))
}

// InsertRecord copies rec into the page and returns its RID. Freed slots
// are reused before the directory grows. Returns ErrNoSpace when the
// record plus any new slot entry does not fit.
func (p Page) InsertRecord(rec []byte) (RID, error) {
	slotNo := -1
	for i := 0; i < p.SlotCount(); i++ {
		if _, length := p.slot(i); length == freeSlotLength {
			slotNo = i
			break
		}
	}

	needed := len(rec)
	if slotNo < 0 {
		needed += slotSize
	}
	if needed > p.FreeSpace() {
		return NullRID, ErrNoSpace
	}

	off := p.freePtr() - len(rec)
	copy(p[off:], rec)
	p.setFreePtr(off)

	if slotNo < 0 {
		slotNo = p.SlotCount()
		p.setSlotCount(slotNo + 1)
	}
	p.setSlot(slotNo, off, len(rec))
	p.setFreeSpace(p.FreeSpace() - needed)

	return RID{PageNo: p.PageNo(), SlotNo: int16(slotNo)}, nil
}

// GetRecord returns a view of the record's bytes. The slice aliases the
// page; it is valid only while the page stays pinned and unmodified.
func (p Page) GetRecord(rid RID) ([]byte, error) {
	if rid.PageNo != p.PageNo() {
		return nil, ErrInvalidSlot
	}
	i := int(rid.SlotNo)
	if i < 0 || i >= p.SlotCount() {
		return nil, ErrInvalidSlot
	}
	offset, length := p.slot(i)
	if length == freeSlotLength {
		return nil, ErrInvalidSlot
	}
	return p[offset : offset+length], nil
}

// DeleteRecord removes the record and compacts the record area. Slot
// numbers of other records are unchanged; their offsets are rewritten to
// account for the moved bytes. A freed slot at the end of the directory
// is reclaimed.
func (p Page) DeleteRecord(rid RID) error {
	if rid.PageNo != p.PageNo() {
		return ErrInvalidSlot
	}
	i := int(rid.SlotNo)
	if i < 0 || i >= p.SlotCount() {
		return ErrInvalidSlot
	}
	offset, length := p.slot(i)
	if length == freeSlotLength {
		return ErrInvalidSlot
	}

	// Slide the record bytes below this one up over it.
	fp := p.freePtr()
	copy(p[fp+length:offset+length], p[fp:offset])
	p.setFreePtr(fp + length)

	for j := 0; j < p.SlotCount(); j++ {
		if j == i {
			continue
		}
		o, l := p.slot(j)
		if l != freeSlotLength && o < offset {
			p.setSlot(j, o+length, l)
		}
	}

	p.setSlot(i, 0, freeSlotLength)
	freed := length

	// Trailing freed slots shrink the directory.
	count := p.SlotCount()
	for count > 0 {
		if _, l := p.slot(count - 1); l != freeSlotLength {
			break
		}
		count--
		freed += slotSize
	}
	p.setSlotCount(count)
	p.setFreeSpace(p.FreeSpace() + freed)

	return nil
}

// FirstRecord returns the RID of the first live record on the page, or
// ErrNoRecords when the page is empty.
func (p Page) FirstRecord() (RID, error) {
	for i := 0; i < p.SlotCount(); i++ {
		if _, length := p.slot(i); length != freeSlotLength {
			return RID{PageNo: p.PageNo(), SlotNo: int16(i)}, nil
		}
	}
	return NullRID, ErrNoRecords
}

// NextRecord returns the RID of the first live record after cur, or
// ErrEndOfPage when cur was the last one.
func (p Page) NextRecord(cur RID) (RID, error) {
	if cur.PageNo != p.PageNo() {
		return NullRID, ErrInvalidSlot
	}
	for i := int(cur.SlotNo) + 1; i < p.SlotCount(); i++ {
		if _, length := p.slot(i); length != freeSlotLength {
			return RID{PageNo: p.PageNo(), SlotNo: int16(i)}, nil
		}
	}
	return NullRID, ErrEndOfPage
}
