package store

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/fzft/go-mock-mq/log"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// MappedFile is one fixed-size segment of the commit log mapped into memory.
//
// The commit log holds one claim from creation until Shutdown; every select
// result holds another. The mapping is torn down when the last claim drops.
type MappedFile struct {
	path string
	base int64
	file *os.File
	data []byte

	wrote     int
	refs      atomic.Int64
	available atomic.Bool
}

func openMappedFile(path string, base int64, size int) (*MappedFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	switch {
	case st.Size() == 0:
		if err := f.Truncate(int64(size)); err != nil {
			f.Close()
			return nil, err
		}
	case st.Size() != int64(size):
		f.Close()
		return nil, fmt.Errorf("%w: %s is %d bytes, want %d", ErrCorrupt, path, st.Size(), size)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, os.NewSyscallError("mmap", err)
	}

	m := &MappedFile{
		path: path,
		base: base,
		file: f,
		data: data,
	}
	m.refs.Store(1)
	m.available.Store(true)
	return m, nil
}

// Base is the commit log byte offset of the first byte of the segment.
func (m *MappedFile) Base() int64 {
	return m.base
}

// WrotePosition is the number of bytes appended to the segment.
func (m *MappedFile) WrotePosition() int {
	return m.wrote
}

func (m *MappedFile) fits(n int) bool {
	return m.wrote+n <= len(m.data)
}

func (m *MappedFile) append(rec []byte) int {
	pos := m.wrote
	copy(m.data[pos:], rec)
	m.wrote += len(rec)
	return pos
}

// hold adds a claim unless the segment is shutting down.
func (m *MappedFile) hold() bool {
	for {
		if !m.available.Load() {
			return false
		}
		n := m.refs.Load()
		if n <= 0 {
			return false
		}
		if m.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

func (m *MappedFile) release() {
	if m.refs.Add(-1) > 0 {
		return
	}
	if err := m.cleanup(); err != nil {
		log.Logger.Error("failed to unmap segment", zap.String("path", m.path), zap.Error(err))
	}
}

// slice claims the segment and returns the bytes in [pos, pos+n).
func (m *MappedFile) slice(pos, n int) ([]byte, bool) {
	if pos < 0 || pos+n > m.wrote {
		return nil, false
	}
	if !m.hold() {
		return nil, false
	}
	return m.data[pos : pos+n : pos+n], true
}

// Shutdown drops the owner claim. The mapping stays valid for readers still
// holding claims.
func (m *MappedFile) Shutdown() {
	if m.available.Swap(false) {
		m.release()
	}
}

func (m *MappedFile) flush() error {
	return os.NewSyscallError("msync", unix.Msync(m.data, unix.MS_SYNC))
}

func (m *MappedFile) cleanup() error {
	err := m.flush()
	err = multierr.Append(err, os.NewSyscallError("munmap", unix.Munmap(m.data)))
	err = multierr.Append(err, m.file.Close())
	m.data = nil
	log.Logger.Debug("segment unmapped", zap.String("path", m.path))
	return err
}
