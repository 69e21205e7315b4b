// pkg/heap/pin.go
package heap

import (
	"garner/pkg/buffer"
	"garner/pkg/dbio"
	"garner/pkg/page"
)

// pinnedPage is a scoped hold on one buffer-pool frame. Acquiring it
// pins the page; release unpins it exactly once with the dirty flag
// accumulated through markDirty. Every control path that drops a
// pinnedPage must go through release.
type pinnedPage struct {
	bm     *buffer.Manager
	file   *dbio.File
	pageNo int32
	data   []byte
	dirty  bool
}

// pinPage read-pins an existing page.
func pinPage(bm *buffer.Manager, f *dbio.File, pageNo int32) (*pinnedPage, error) {
	data, err := bm.ReadPage(f, pageNo)
	if err != nil {
		return nil, err
	}
	return &pinnedPage{bm: bm, file: f, pageNo: pageNo, data: data}, nil
}

// allocPage extends the file by one page and pins it.
func allocPage(bm *buffer.Manager, f *dbio.File) (*pinnedPage, error) {
	pageNo, data, err := bm.AllocPage(f)
	if err != nil {
		return nil, err
	}
	return &pinnedPage{bm: bm, file: f, pageNo: pageNo, data: data}, nil
}

// page returns the slotted-page view over the pinned frame.
func (pp *pinnedPage) page() page.Page {
	return page.Page(pp.data)
}

// markDirty records that the frame bytes were modified while pinned.
func (pp *pinnedPage) markDirty() {
	pp.dirty = true
}

// release unpins the page with the accumulated dirty flag. The view is
// invalid afterwards.
func (pp *pinnedPage) release() error {
	err := pp.bm.UnpinPage(pp.file, pp.pageNo, pp.dirty)
	pp.data = nil
	return err
}
