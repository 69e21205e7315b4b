// pkg/heap/scan.go
package heap

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"

	"garner/pkg/buffer"
	"garner/pkg/dbio"
	"garner/pkg/page"
)

// Datatype selects how predicate bytes are interpreted.
type Datatype int

const (
	TypeString Datatype = iota
	TypeInt
	TypeFloat
)

// Operator is the comparison applied between the record attribute and
// the filter value.
type Operator int

const (
	OpLT Operator = iota
	OpLTE
	OpEQ
	OpGTE
	OpGT
	OpNE
)

// Scan is a sequential cursor over a heap file, with an optional
// predicate over a fixed attribute window of each record. A Scan owns
// its heap file handle; Close releases both.
type Scan struct {
	hf *HeapFile

	filter []byte
	offset int
	length int
	typ    Datatype
	op     Operator

	markedPageNo int32
	markedRID    page.RID
}

// OpenScan opens a scan cursor on the named heap file.
func OpenScan(fm *dbio.Manager, bm *buffer.Manager, name string) (*Scan, error) {
	hf, err := Open(fm, bm, name)
	if err != nil {
		return nil, err
	}
	return &Scan{hf: hf, markedPageNo: page.InvalidPageNo, markedRID: page.NullRID}, nil
}

// File returns the underlying heap file handle.
func (s *Scan) File() *HeapFile { return s.hf }

// RecordCount returns the number of live records in the file.
func (s *Scan) RecordCount() int32 { return s.hf.RecordCount() }

// GetRecord positions the cursor on rid and returns the record view.
func (s *Scan) GetRecord(rid page.RID) ([]byte, error) { return s.hf.GetRecord(rid) }

// StartScan configures the scan predicate. A nil filter makes the scan
// unconditional. Otherwise the attribute window is length bytes at
// offset, interpreted as typ, and compared to filter with op.
func (s *Scan) StartScan(offset, length int, typ Datatype, filter []byte, op Operator) error {
	if filter == nil {
		s.filter = nil
		return nil
	}

	switch {
	case offset < 0 || length < 1:
		return ErrBadScanParam
	case typ != TypeString && typ != TypeInt && typ != TypeFloat:
		return ErrBadScanParam
	case typ == TypeInt && length != 4:
		return ErrBadScanParam
	case typ == TypeFloat && length != 4:
		return ErrBadScanParam
	case op < OpLT || op > OpNE:
		return ErrBadScanParam
	case len(filter) < length:
		return ErrBadScanParam
	}

	s.offset = offset
	s.length = length
	s.typ = typ
	s.filter = filter
	s.op = op
	return nil
}

// Next returns the RID of the next record satisfying the predicate,
// advancing the cursor. Records are visited in page-chain order.
// Returns ErrEndOfFile when the scan is exhausted; the cursor then
// holds no pinned page.
func (s *Scan) Next() (page.RID, error) {
	hf := s.hf

	if hf.cur == nil {
		hf.reloadHeader()
		pageNo := hf.header.FirstPage
		if hf.curRID != page.NullRID {
			// Resumed scan: continue on the page the cursor was on.
			pageNo = hf.curRID.PageNo
		}
		pp, err := pinPage(hf.bm, hf.file, pageNo)
		if err != nil {
			return page.NullRID, err
		}
		hf.cur = pp
	}

	for {
		sp := hf.cur.page()

		var rid page.RID
		var err error
		if hf.curRID != page.NullRID && hf.curRID.PageNo == hf.cur.pageNo {
			rid, err = sp.NextRecord(hf.curRID)
		} else {
			rid, err = sp.FirstRecord()
		}

		for err == nil {
			rec, gerr := sp.GetRecord(rid)
			if gerr != nil {
				return page.NullRID, gerr
			}
			if s.matches(rec) {
				hf.curRID = rid
				return rid, nil
			}
			rid, err = sp.NextRecord(rid)
		}
		if !errors.Is(err, page.ErrNoRecords) && !errors.Is(err, page.ErrEndOfPage) {
			return page.NullRID, err
		}

		next := sp.NextPage()
		pp := hf.cur
		hf.cur = nil
		if rerr := pp.release(); rerr != nil {
			return page.NullRID, rerr
		}
		if next == page.InvalidPageNo {
			return page.NullRID, ErrEndOfFile
		}
		pp, err = pinPage(hf.bm, hf.file, next)
		if err != nil {
			return page.NullRID, err
		}
		hf.cur = pp
		hf.curRID = page.NullRID
	}
}

// matches evaluates the predicate against one record.
func (s *Scan) matches(rec []byte) bool {
	if s.filter == nil {
		return true
	}
	if s.offset+s.length > len(rec) {
		return false
	}
	window := rec[s.offset : s.offset+s.length]

	var diff int
	switch s.typ {
	case TypeInt:
		a := int32(binary.LittleEndian.Uint32(window))
		b := int32(binary.LittleEndian.Uint32(s.filter))
		switch {
		case a < b:
			diff = -1
		case a > b:
			diff = 1
		}
	case TypeFloat:
		a := math.Float32frombits(binary.LittleEndian.Uint32(window))
		b := math.Float32frombits(binary.LittleEndian.Uint32(s.filter))
		switch {
		case a < b:
			diff = -1
		case a > b:
			diff = 1
		}
	case TypeString:
		diff = bytes.Compare(window, s.filter[:s.length])
	}

	switch s.op {
	case OpLT:
		return diff < 0
	case OpLTE:
		return diff <= 0
	case OpEQ:
		return diff == 0
	case OpGTE:
		return diff >= 0
	case OpGT:
		return diff > 0
	case OpNE:
		return diff != 0
	}
	return false
}

// Mark snapshots the scan position for a later Reset.
func (s *Scan) Mark() {
	if s.hf.cur != nil {
		s.markedPageNo = s.hf.cur.pageNo
	} else {
		s.markedPageNo = s.hf.curRID.PageNo
	}
	s.markedRID = s.hf.curRID
}

// Reset rewinds the scan to the last Mark. If the marked page is no
// longer the pinned page it is read back in; the next call to Next
// continues with the record after the marked one.
func (s *Scan) Reset() error {
	hf := s.hf
	if hf.cur == nil || hf.cur.pageNo != s.markedPageNo {
		if hf.cur != nil {
			pp := hf.cur
			hf.cur = nil
			if err := pp.release(); err != nil {
				return err
			}
		}
		pp, err := pinPage(hf.bm, hf.file, s.markedPageNo)
		if err != nil {
			return err
		}
		hf.cur = pp
	}
	hf.curRID = s.markedRID
	return nil
}

// End terminates the scan, unpinning the current data page. The scan
// object stays usable: a later Next resumes from the cursor position.
func (s *Scan) End() error {
	if s.hf.cur == nil {
		return nil
	}
	pp := s.hf.cur
	s.hf.cur = nil
	return pp.release()
}

// Record returns the view of the record the cursor is on. No I/O is
// performed; the record's page must still be pinned.
func (s *Scan) Record() ([]byte, error) {
	hf := s.hf
	if hf.curRID == page.NullRID || hf.cur == nil || hf.cur.pageNo != hf.curRID.PageNo {
		return nil, ErrNoCurrentRecord
	}
	return hf.cur.page().GetRecord(hf.curRID)
}

// DeleteRecord deletes the record the cursor is on. Other records on
// the page keep their RIDs.
func (s *Scan) DeleteRecord() error {
	hf := s.hf
	if hf.curRID == page.NullRID || hf.cur == nil || hf.cur.pageNo != hf.curRID.PageNo {
		return ErrNoCurrentRecord
	}
	if err := hf.cur.page().DeleteRecord(hf.curRID); err != nil {
		return err
	}
	hf.cur.markDirty()
	hf.reloadHeader()
	hf.header.RecordCount--
	hf.flushHeader()
	return nil
}

// MarkDirty marks the current data page dirty. Callers that mutate
// record bytes through a view returned by Record or GetRecord must call
// it before the page is unpinned.
func (s *Scan) MarkDirty() {
	if s.hf.cur != nil {
		s.hf.cur.markDirty()
	}
}

// Close ends the scan and closes the underlying heap file handle.
func (s *Scan) Close() error {
	return errors.Join(s.End(), s.hf.Close())
}
