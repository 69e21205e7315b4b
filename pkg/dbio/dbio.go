// pkg/dbio/dbio.go
// Package dbio implements the file manager: named page files living in a
// data directory. A file is a flat array of page.Size-byte pages numbered
// from zero. Open handles to the same name share one underlying store and
// one advisory lock; the store is closed when the last handle goes away.
package dbio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dsnet/golib/memfile"

	"garner/pkg/page"
)

var (
	ErrFileExists   = errors.New("dbio: file already exists")
	ErrFileNotFound = errors.New("dbio: file not found")
	ErrFileOpen     = errors.New("dbio: file has open handles")
	ErrFileLocked   = errors.New("dbio: file is locked by another process")
	ErrFileClosed   = errors.New("dbio: file handle is closed")
	ErrNoSuchPage   = errors.New("dbio: no such page")
	ErrBadFileName  = errors.New("dbio: bad file name")
)

// Options configures a Manager.
type Options struct {
	// InMemory keeps all files in process memory. Useful for tests and
	// the shell's :memory: mode; nothing touches the data directory.
	InMemory bool

	// DirectIO bypasses the OS page cache for file I/O where the
	// platform supports it.
	DirectIO bool
}

// Manager creates, destroys and opens named page files in one directory.
type Manager struct {
	mu   sync.Mutex
	dir  string
	opts Options
	open map[string]*fileEntry
	mem  map[string]*memfile.File

	nextID uint64
}

// fileEntry is the shared state behind every handle on one file.
type fileEntry struct {
	mu        sync.Mutex
	mgr       *Manager
	id        uint64
	name      string
	st        store
	pageCount int32
	refs      int
}

// File is one handle on an open file. Handles on the same name share the
// underlying store; each must be closed exactly once.
type File struct {
	e      *fileEntry
	closed bool
}

// NewManager returns a Manager rooted at dir. The directory is created
// lazily on the first CreateFile.
func NewManager(dir string, opts Options) *Manager {
	return &Manager{
		dir:  dir,
		opts: opts,
		open: make(map[string]*fileEntry),
		mem:  make(map[string]*memfile.File),
	}
}

func validName(name string) bool {
	return name != "" && !strings.ContainsAny(name, "/\\") && name != "." && name != ".."
}

func (m *Manager) path(name string) string {
	return filepath.Join(m.dir, name)
}

// CreateFile creates a new, empty file. Returns ErrFileExists if a file
// of that name already exists; no side effects in that case.
func (m *Manager) CreateFile(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !validName(name) {
		return fmt.Errorf("%w: %q", ErrBadFileName, name)
	}

	if m.opts.InMemory {
		if _, ok := m.mem[name]; ok {
			return ErrFileExists
		}
		m.mem[name] = memfile.New(nil)
		return nil
	}

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(m.path(name), os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return ErrFileExists
		}
		return err
	}
	return f.Close()
}

// DestroyFile removes a file. The caller must have closed every handle
// first; ErrFileOpen is returned otherwise.
func (m *Manager) DestroyFile(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.open[name]; ok {
		return ErrFileOpen
	}

	if m.opts.InMemory {
		if _, ok := m.mem[name]; !ok {
			return ErrFileNotFound
		}
		delete(m.mem, name)
		return nil
	}

	err := os.Remove(m.path(name))
	if os.IsNotExist(err) {
		return ErrFileNotFound
	}
	return err
}

// OpenFile opens a handle on an existing file.
func (m *Manager) OpenFile(name string) (*File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !validName(name) {
		return nil, fmt.Errorf("%w: %q", ErrBadFileName, name)
	}

	if e, ok := m.open[name]; ok {
		e.refs++
		return &File{e: e}, nil
	}

	st, err := m.openStore(name)
	if err != nil {
		return nil, err
	}
	size, err := st.size()
	if err != nil {
		st.Close()
		return nil, err
	}

	m.nextID++
	e := &fileEntry{
		mgr:       m,
		id:        m.nextID,
		name:      name,
		st:        st,
		pageCount: int32(size / page.Size),
		refs:      1,
	}
	m.open[name] = e
	return &File{e: e}, nil
}

func (m *Manager) openStore(name string) (store, error) {
	if m.opts.InMemory {
		mf, ok := m.mem[name]
		if !ok {
			return nil, ErrFileNotFound
		}
		return &memStore{f: mf}, nil
	}
	return openOSStore(m.path(name), m.opts.DirectIO)
}

// Name returns the file's name within the data directory.
func (f *File) Name() string { return f.e.name }

// ID returns a process-unique identity for the underlying open file.
// Two handles on the same open file share an ID; a file reopened after
// its last close gets a fresh one.
func (f *File) ID() uint64 { return f.e.id }

// PageCount returns the number of pages currently in the file.
func (f *File) PageCount() int32 {
	f.e.mu.Lock()
	defer f.e.mu.Unlock()
	return f.e.pageCount
}

// FirstPage returns the page number of the file's first page.
func (f *File) FirstPage() (int32, error) {
	if f.closed {
		return page.InvalidPageNo, ErrFileClosed
	}
	f.e.mu.Lock()
	defer f.e.mu.Unlock()
	if f.e.pageCount == 0 {
		return page.InvalidPageNo, ErrNoSuchPage
	}
	return 0, nil
}

// AllocatePage extends the file by one zeroed page and returns its number.
func (f *File) AllocatePage() (int32, error) {
	if f.closed {
		return page.InvalidPageNo, ErrFileClosed
	}
	f.e.mu.Lock()
	defer f.e.mu.Unlock()

	pageNo := f.e.pageCount
	zero := make([]byte, page.Size)
	if _, err := f.e.st.WriteAt(zero, int64(pageNo)*page.Size); err != nil {
		return page.InvalidPageNo, err
	}
	f.e.pageCount++
	return pageNo, nil
}

// ReadPage reads page pageNo into buf, which must be page.Size bytes.
func (f *File) ReadPage(pageNo int32, buf []byte) error {
	if f.closed {
		return ErrFileClosed
	}
	if len(buf) != page.Size {
		return page.ErrPageSize
	}
	f.e.mu.Lock()
	defer f.e.mu.Unlock()

	if pageNo < 0 || pageNo >= f.e.pageCount {
		return fmt.Errorf("%w: page %d of %q", ErrNoSuchPage, pageNo, f.e.name)
	}
	_, err := f.e.st.ReadAt(buf, int64(pageNo)*page.Size)
	return err
}

// WritePage writes buf, which must be page.Size bytes, to page pageNo.
func (f *File) WritePage(pageNo int32, buf []byte) error {
	if f.closed {
		return ErrFileClosed
	}
	if len(buf) != page.Size {
		return page.ErrPageSize
	}
	f.e.mu.Lock()
	defer f.e.mu.Unlock()

	if pageNo < 0 || pageNo >= f.e.pageCount {
		return fmt.Errorf("%w: page %d of %q", ErrNoSuchPage, pageNo, f.e.name)
	}
	_, err := f.e.st.WriteAt(buf, int64(pageNo)*page.Size)
	return err
}

// Sync flushes the underlying store to stable storage.
func (f *File) Sync() error {
	if f.closed {
		return ErrFileClosed
	}
	return f.e.st.Sync()
}

// Close releases this handle. The underlying store is synced and closed
// when the last handle on the file is released.
func (f *File) Close() error {
	if f.closed {
		return ErrFileClosed
	}
	f.closed = true

	m := f.e.mgr
	m.mu.Lock()
	defer m.mu.Unlock()

	f.e.refs--
	if f.e.refs > 0 {
		return nil
	}
	delete(m.open, f.e.name)
	return errors.Join(f.e.st.Sync(), f.e.st.Close())
}
