// pkg/heap/insert.go
package heap

import (
	"errors"
	"fmt"

	"garner/pkg/buffer"
	"garner/pkg/dbio"
	"garner/pkg/page"
)

// InsertScan is an append cursor on a heap file. It keeps the last page
// of the chain pinned between inserts and extends the chain when a
// record does not fit. An InsertScan owns its heap file handle.
type InsertScan struct {
	hf *HeapFile
}

// OpenInsert opens an insert cursor on the named heap file.
func OpenInsert(fm *dbio.Manager, bm *buffer.Manager, name string) (*InsertScan, error) {
	hf, err := Open(fm, bm, name)
	if err != nil {
		return nil, err
	}
	return &InsertScan{hf: hf}, nil
}

// File returns the underlying heap file handle.
func (s *InsertScan) File() *HeapFile { return s.hf }

// RecordCount returns the number of live records in the file.
func (s *InsertScan) RecordCount() int32 { return s.hf.RecordCount() }

// GetRecord positions the cursor on rid and returns the record view.
func (s *InsertScan) GetRecord(rid page.RID) ([]byte, error) { return s.hf.GetRecord(rid) }

// InsertRecord appends rec to the file and returns its RID.
func (s *InsertScan) InsertRecord(rec []byte) (page.RID, error) {
	if len(rec) > page.MaxRecordSize {
		return page.NullRID, fmt.Errorf("%w: %d bytes, max %d", ErrInvalidRecLen, len(rec), page.MaxRecordSize)
	}
	hf := s.hf
	hf.reloadHeader()

	// The append point is the last page of the chain.
	if hf.cur != nil && hf.cur.pageNo != hf.header.LastPage {
		pp := hf.cur
		hf.cur = nil
		if err := pp.release(); err != nil {
			return page.NullRID, err
		}
	}
	if hf.cur == nil {
		pp, err := pinPage(hf.bm, hf.file, hf.header.LastPage)
		if err != nil {
			return page.NullRID, err
		}
		hf.cur = pp
	}

	rid, err := hf.cur.page().InsertRecord(rec)
	if errors.Is(err, page.ErrNoSpace) {
		rid, err = s.insertOnNewPage(rec)
	}
	if err != nil {
		return page.NullRID, err
	}

	hf.cur.markDirty()
	hf.header.RecordCount++
	hf.flushHeader()
	hf.curRID = rid
	return rid, nil
}

// insertOnNewPage extends the chain with a fresh page and inserts rec
// there. The old last page is linked to the new one and released; the
// new page becomes the current page.
func (s *InsertScan) insertOnNewPage(rec []byte) (page.RID, error) {
	hf := s.hf

	pp, err := allocPage(hf.bm, hf.file)
	if err != nil {
		return page.NullRID, err
	}
	np := pp.page()
	np.Init(pp.pageNo)
	np.SetNextPage(page.InvalidPageNo)
	pp.markDirty()

	old := hf.cur
	old.page().SetNextPage(pp.pageNo)
	old.markDirty()
	hf.cur = pp
	if err := old.release(); err != nil {
		return page.NullRID, err
	}

	hf.header.LastPage = pp.pageNo
	hf.header.PageCount++
	hf.flushHeader()

	// Cannot fail for a record within MaxRecordSize.
	return np.InsertRecord(rec)
}

// Close releases the cursor and its heap file handle. The current page
// carries the dirty flag accumulated by the inserts performed on it.
func (s *InsertScan) Close() error {
	return s.hf.Close()
}
