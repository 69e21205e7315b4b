// pkg/heap/create.go
package heap

import (
	"errors"
	"fmt"

	"garner/pkg/buffer"
	"garner/pkg/dbio"
	"garner/pkg/page"
)

// Create creates a new heap file: a header page followed by one empty
// data page forming a one-page chain. Returns dbio.ErrFileExists, with
// no side effects, if the name is taken.
func Create(fm *dbio.Manager, bm *buffer.Manager, name string) error {
	// The name must fit the header's fixed field with its terminator.
	if len(name) >= maxNameSize {
		return fmt.Errorf("%w: %q", ErrNameTooLong, name)
	}

	if err := fm.CreateFile(name); err != nil {
		return err
	}
	f, err := fm.OpenFile(name)
	if err != nil {
		return err
	}

	// On a buffer error mid-creation, pages allocated so far stay
	// pinned and dirty; the pool reclaims them at shutdown. The
	// half-created file itself is removed so the name stays usable.
	headerPageNo, headerData, err := bm.AllocPage(f)
	if err != nil {
		f.Close()
		fm.DestroyFile(name)
		return err
	}
	firstPageNo, firstData, err := bm.AllocPage(f)
	if err != nil {
		f.Close()
		fm.DestroyFile(name)
		return err
	}

	dp := page.Page(firstData)
	dp.Init(firstPageNo)
	dp.SetNextPage(page.InvalidPageNo)

	h := &fileHeader{
		Name:        name,
		FirstPage:   firstPageNo,
		LastPage:    firstPageNo,
		PageCount:   1,
		RecordCount: 0,
	}
	h.encode(headerData)

	return errors.Join(
		bm.UnpinPage(f, firstPageNo, true),
		bm.UnpinPage(f, headerPageNo, true),
		bm.FlushFile(f),
		f.Close(),
	)
}

// Destroy removes a heap file. Every handle on it must be closed first.
func Destroy(fm *dbio.Manager, name string) error {
	return fm.DestroyFile(name)
}
