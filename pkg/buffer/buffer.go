// pkg/buffer/buffer.go
// Package buffer implements the buffer manager: a fixed pool of
// page-sized frames shared by every open file. Callers pin a page to get
// at its frame bytes and unpin it with a dirty flag when done; dirty
// frames are written back on eviction and on flush.
package buffer

import (
	"container/list"
	"errors"
	"fmt"
	"sync"

	"garner/pkg/dbio"
	"garner/pkg/page"
)

const defaultPoolSize = 128

var (
	ErrBufferExceeded = errors.New("buffer: all frames are pinned")
	ErrPageNotPinned  = errors.New("buffer: page is not pinned")
	ErrPageNotFound   = errors.New("buffer: page is not in the pool")
	ErrPagePinned     = errors.New("buffer: page is still pinned")
)

// Policy selects the replacement victim among unpinned frames.
type Policy string

const (
	PolicyLRU Policy = "lru"
	PolicyMRU Policy = "mru"
)

// Options configures a Manager.
type Options struct {
	PoolSize int    // number of frames (default 128)
	Policy   Policy // replacement policy (default LRU)
}

type frameKey struct {
	fileID uint64
	pageNo int32
}

type frame struct {
	file   *dbio.File
	pageNo int32
	data   []byte
	pins   int
	dirty  bool
	elem   *list.Element
}

// Manager is the buffer pool. All methods are safe for concurrent use.
type Manager struct {
	mu     sync.Mutex
	policy Policy
	frames []*frame
	lookup map[frameKey]*frame
	// recency holds resident frames, least recently used at the front.
	recency *list.List
	free    []*frame
}

// NewManager returns a buffer pool with opts.PoolSize frames.
func NewManager(opts Options) *Manager {
	size := opts.PoolSize
	if size <= 0 {
		size = defaultPoolSize
	}
	policy := opts.Policy
	if policy == "" {
		policy = PolicyLRU
	}

	m := &Manager{
		policy:  policy,
		frames:  make([]*frame, size),
		lookup:  make(map[frameKey]*frame),
		recency: list.New(),
	}
	for i := range m.frames {
		m.frames[i] = &frame{data: make([]byte, page.Size)}
		m.free = append(m.free, m.frames[i])
	}
	return m
}

// PoolSize returns the number of frames in the pool.
func (m *Manager) PoolSize() int { return len(m.frames) }

// AllocPage extends f by one page, pins it, and returns its number and
// frame bytes. The new page is zeroed; no read I/O happens.
func (m *Manager) AllocPage(f *dbio.File) (int32, []byte, error) {
	pageNo, err := f.AllocatePage()
	if err != nil {
		return page.InvalidPageNo, nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	fr, err := m.takeFrame()
	if err != nil {
		return page.InvalidPageNo, nil, err
	}
	for i := range fr.data {
		fr.data[i] = 0
	}
	m.install(fr, f, pageNo)
	return pageNo, fr.data, nil
}

// ReadPage pins page pageNo of f and returns its frame bytes, reading
// from disk unless the page is already resident.
func (m *Manager) ReadPage(f *dbio.File, pageNo int32) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := frameKey{fileID: f.ID(), pageNo: pageNo}
	if fr, ok := m.lookup[key]; ok {
		// Rebind to the caller's handle so later write-back never goes
		// through a handle that has since been closed.
		fr.file = f
		fr.pins++
		m.touch(fr)
		return fr.data, nil
	}

	fr, err := m.takeFrame()
	if err != nil {
		return nil, err
	}
	if err := f.ReadPage(pageNo, fr.data); err != nil {
		m.free = append(m.free, fr)
		return nil, err
	}
	m.install(fr, f, pageNo)
	return fr.data, nil
}

// UnpinPage releases one pin on page pageNo of f. The dirty flag is ORed
// into the frame's dirty bit.
func (m *Manager) UnpinPage(f *dbio.File, pageNo int32, dirty bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	fr, ok := m.lookup[frameKey{fileID: f.ID(), pageNo: pageNo}]
	if !ok {
		return fmt.Errorf("%w: page %d of %q", ErrPageNotFound, pageNo, f.Name())
	}
	if fr.pins == 0 {
		return fmt.Errorf("%w: page %d of %q", ErrPageNotPinned, pageNo, f.Name())
	}
	// Rebind here as well as on pin: another handle on the same file
	// may have closed since the pin was taken, and eviction or FlushAll
	// must write back through a handle that is still open.
	fr.file = f
	fr.pins--
	if dirty {
		fr.dirty = true
	}
	return nil
}

// PinCount reports the pin count of page pageNo of f, or zero when the
// page is not resident. Intended for tests and diagnostics.
func (m *Manager) PinCount(f *dbio.File, pageNo int32) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if fr, ok := m.lookup[frameKey{fileID: f.ID(), pageNo: pageNo}]; ok {
		return fr.pins
	}
	return 0
}

// FlushFile writes back every dirty unpinned frame of f through the
// given handle and drops the file's unpinned frames from the pool.
// Frames still pinned (by this or another handle on the same file) are
// left untouched and reported with ErrPagePinned; their holders flush
// them when they release. A caller closing its handle should flush
// first and may treat ErrPagePinned as "another handle is still active".
func (m *Manager) FlushFile(f *dbio.File) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := f.ID()
	pinned, wrote := 0, false
	for _, fr := range m.frames {
		if fr.elem == nil || fr.file.ID() != id {
			continue
		}
		if fr.pins > 0 {
			pinned++
			continue
		}
		if fr.dirty {
			if err := f.WritePage(fr.pageNo, fr.data); err != nil {
				return err
			}
			fr.dirty = false
			wrote = true
		}
		m.evict(fr)
	}
	if wrote {
		if err := f.Sync(); err != nil {
			return err
		}
	}
	if pinned > 0 {
		return fmt.Errorf("%w: %d pages of %q", ErrPagePinned, pinned, f.Name())
	}
	return nil
}

// FlushAll writes back every dirty unpinned frame in the pool. Pinned
// frames are left alone.
func (m *Manager) FlushAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, fr := range m.frames {
		if fr.elem == nil || fr.pins > 0 || !fr.dirty {
			continue
		}
		if err := fr.file.WritePage(fr.pageNo, fr.data); err != nil {
			return err
		}
		fr.dirty = false
	}
	return nil
}

// takeFrame returns a frame ready to hold a new page, evicting a victim
// if no free frame remains. Caller holds m.mu.
func (m *Manager) takeFrame() (*frame, error) {
	if n := len(m.free); n > 0 {
		fr := m.free[n-1]
		m.free = m.free[:n-1]
		return fr, nil
	}

	var el *list.Element
	if m.policy == PolicyMRU {
		el = m.recency.Back()
	} else {
		el = m.recency.Front()
	}
	for el != nil {
		fr := el.Value.(*frame)
		if fr.pins == 0 {
			if fr.dirty {
				if err := fr.file.WritePage(fr.pageNo, fr.data); err != nil {
					return nil, err
				}
				fr.dirty = false
			}
			m.evict(fr)
			// evict put fr on the free list; the caller takes it instead.
			m.free = m.free[:len(m.free)-1]
			return fr, nil
		}
		if m.policy == PolicyMRU {
			el = el.Prev()
		} else {
			el = el.Next()
		}
	}
	return nil, ErrBufferExceeded
}

// install registers fr as the resident frame for (f, pageNo) with one pin.
// Caller holds m.mu.
func (m *Manager) install(fr *frame, f *dbio.File, pageNo int32) {
	fr.file = f
	fr.pageNo = pageNo
	fr.pins = 1
	fr.dirty = false
	fr.elem = m.recency.PushBack(fr)
	m.lookup[frameKey{fileID: f.ID(), pageNo: pageNo}] = fr
}

// evict removes fr from the lookup table and recency list and puts it on
// the free list. Caller holds m.mu; fr must be unpinned and clean.
func (m *Manager) evict(fr *frame) {
	delete(m.lookup, frameKey{fileID: fr.file.ID(), pageNo: fr.pageNo})
	m.recency.Remove(fr.elem)
	fr.elem = nil
	fr.file = nil
	m.free = append(m.free, fr)
}

// touch moves fr to the most-recently-used end. Caller holds m.mu.
func (m *Manager) touch(fr *frame) {
	m.recency.MoveToBack(fr.elem)
}
