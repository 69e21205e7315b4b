// pkg/dbio/store.go
package dbio

import (
	"io"
	"os"

	"github.com/dsnet/golib/memfile"
	"github.com/ncw/directio"
)

// store is the backing byte store for one file. Reads and writes are
// page-granular: page.Size bytes at page.Size-aligned offsets.
type store interface {
	io.ReaderAt
	io.WriterAt
	Sync() error
	Close() error
	size() (int64, error)
}

// osStore backs a file with a plain OS file plus an advisory lock.
type osStore struct {
	f *os.File
}

func openOSStore(path string, direct bool) (store, error) {
	var f *os.File
	var err error
	if direct {
		f, err = directio.OpenFile(path, os.O_RDWR, 0o644)
	} else {
		f, err = os.OpenFile(path, os.O_RDWR, 0o644)
	}
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	if err := lockStore(f); err != nil {
		f.Close()
		return nil, err
	}
	if direct {
		return &directStore{f: f}, nil
	}
	return &osStore{f: f}, nil
}

func (s *osStore) ReadAt(p []byte, off int64) (int, error) {
	return s.f.ReadAt(p, off)
}

func (s *osStore) WriteAt(p []byte, off int64) (int, error) {
	return s.f.WriteAt(p, off)
}

func (s *osStore) Sync() error { return s.f.Sync() }

func (s *osStore) Close() error {
	unlockStore(s.f)
	return s.f.Close()
}

func (s *osStore) size() (int64, error) {
	fi, err := s.f.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// directStore is an osStore whose I/O goes through aligned blocks, as
// direct I/O requires block-aligned buffers. Page size and block size
// are both 4096, so every page transfer is one block.
type directStore struct {
	f *os.File
}

func (s *directStore) ReadAt(p []byte, off int64) (int, error) {
	block := directio.AlignedBlock(directio.BlockSize)
	done := 0
	for done < len(p) {
		n, err := s.f.ReadAt(block, off+int64(done))
		if n > 0 {
			done += copy(p[done:], block[:n])
		}
		if err != nil {
			return done, err
		}
	}
	return done, nil
}

func (s *directStore) WriteAt(p []byte, off int64) (int, error) {
	block := directio.AlignedBlock(directio.BlockSize)
	done := 0
	for done < len(p) {
		n := copy(block, p[done:])
		for i := n; i < len(block); i++ {
			block[i] = 0
		}
		if _, err := s.f.WriteAt(block, off+int64(done)); err != nil {
			return done, err
		}
		done += n
	}
	return done, nil
}

func (s *directStore) Sync() error { return s.f.Sync() }

func (s *directStore) Close() error {
	unlockStore(s.f)
	return s.f.Close()
}

func (s *directStore) size() (int64, error) {
	fi, err := s.f.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// memStore backs a file with a growable in-memory buffer.
type memStore struct {
	f *memfile.File
}

func (s *memStore) ReadAt(p []byte, off int64) (int, error) {
	n, err := s.f.ReadAt(p, off)
	if err == io.EOF && n == len(p) {
		err = nil
	}
	return n, err
}

func (s *memStore) WriteAt(p []byte, off int64) (int, error) {
	return s.f.WriteAt(p, off)
}

func (s *memStore) Sync() error { return nil }

func (s *memStore) Close() error { return nil }

func (s *memStore) size() (int64, error) {
	return int64(len(s.f.Bytes())), nil
}
