// pkg/heap/heapfile.go
// Package heap implements heap files: unordered collections of
// variable-length records stored on a chain of slotted pages, addressed
// by stable record identifiers, scannable with optional predicates.
//
// A heap file's first page is its header (name, chain anchors, counts);
// the data pages form a singly linked chain from FirstPage to LastPage.
// Handles keep the header pinned for their whole lifetime and at most
// one data page pinned at a time. Scan and insert cursors own a handle
// and extend it with cursor state.
package heap

import (
	"errors"

	"garner/pkg/buffer"
	"garner/pkg/dbio"
	"garner/pkg/page"
)

// HeapFile is an open handle on a heap file. It is not safe for
// concurrent use; open one handle per goroutine.
type HeapFile struct {
	bm   *buffer.Manager
	file *dbio.File

	headerPageNo int32
	header       *fileHeader
	headerData   []byte
	headerDirty  bool

	// cur is the one pinned data page, nil when none is pinned.
	cur    *pinnedPage
	curRID page.RID
}

// Open opens a handle on an existing heap file. The header page and the
// first data page are pinned on return.
func Open(fm *dbio.Manager, bm *buffer.Manager, name string) (*HeapFile, error) {
	f, err := fm.OpenFile(name)
	if err != nil {
		return nil, err
	}

	headerPageNo, err := f.FirstPage()
	if err != nil {
		f.Close()
		return nil, err
	}
	headerData, err := bm.ReadPage(f, headerPageNo)
	if err != nil {
		f.Close()
		return nil, err
	}
	header, err := decodeFileHeader(headerData)
	if err != nil {
		bm.UnpinPage(f, headerPageNo, false)
		f.Close()
		return nil, err
	}

	hf := &HeapFile{
		bm:           bm,
		file:         f,
		headerPageNo: headerPageNo,
		header:       header,
		headerData:   headerData,
		curRID:       page.NullRID,
	}
	hf.cur, err = pinPage(bm, f, header.FirstPage)
	if err != nil {
		hf.Close()
		return nil, err
	}
	return hf, nil
}

// Name returns the file name recorded in the header.
func (hf *HeapFile) Name() string { return hf.header.Name }

// RecordCount returns the number of live records in the file.
func (hf *HeapFile) RecordCount() int32 {
	hf.reloadHeader()
	return hf.header.RecordCount
}

// PageCount returns the number of data pages in the file.
func (hf *HeapFile) PageCount() int32 {
	hf.reloadHeader()
	return hf.header.PageCount
}

// reloadHeader re-decodes the header from the pinned frame. The frame
// is shared by every handle on the file, so this picks up mutations
// other cursors made since the last look.
func (hf *HeapFile) reloadHeader() {
	if h, err := decodeFileHeader(hf.headerData); err == nil {
		hf.header = h
	}
}

// GetRecord returns a view of the record identified by rid. On return
// the record's page is the pinned current page and the cursor is on
// rid; the view is valid until the cursor moves to another page.
func (hf *HeapFile) GetRecord(rid page.RID) ([]byte, error) {
	if hf.cur != nil && hf.cur.pageNo != rid.PageNo {
		pp := hf.cur
		hf.cur = nil
		if err := pp.release(); err != nil {
			return nil, err
		}
	}
	if hf.cur == nil {
		pp, err := pinPage(hf.bm, hf.file, rid.PageNo)
		if err != nil {
			return nil, err
		}
		hf.cur = pp
	}

	rec, err := hf.cur.page().GetRecord(rid)
	if err != nil {
		return nil, err
	}
	hf.curRID = rid
	return rec, nil
}

// flushHeader re-encodes the header into its pinned page and marks it
// dirty. Called after every header mutation.
func (hf *HeapFile) flushHeader() {
	hf.header.encode(hf.headerData)
	hf.headerDirty = true
}

// Close releases the handle: the current data page (if any) and the
// header page are unpinned with their dirty flags, the file's frames
// are flushed, and the file handle is closed. Close tolerates a
// partially constructed handle.
func (hf *HeapFile) Close() error {
	var errs []error

	if hf.cur != nil {
		pp := hf.cur
		hf.cur = nil
		errs = append(errs, pp.release())
	}
	if hf.headerData != nil {
		errs = append(errs, hf.bm.UnpinPage(hf.file, hf.headerPageNo, hf.headerDirty))
		hf.headerData = nil
	}
	if hf.file != nil {
		// Frames pinned by other handles on the same file flush when
		// those handles close.
		if err := hf.bm.FlushFile(hf.file); err != nil && !errors.Is(err, buffer.ErrPagePinned) {
			errs = append(errs, err)
		}
		errs = append(errs, hf.file.Close())
		hf.file = nil
	}
	return errors.Join(errs...)
}
