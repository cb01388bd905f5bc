//go:build linux
// +build linux

package node

import (
	"fmt"
	"os"

	"go.uber.org/multierr"
	"golang.org/x/sys/unix"
)

const (
	readEvents      = unix.EPOLLPRI | unix.EPOLLIN
	writeEvents     = unix.EPOLLOUT
	readWriteEvents = readEvents | writeEvents
)

// interest changes which events a connection fd is watched for.
type interest interface {
	registerRead(fd int) error
	registerWrite(fd int) error
	unregister(fd int) error
}

// Registry is a wrapper around epoll. It keeps track of the connection fds that are registered to epoll.
type Registry struct {
	epollFd  int
	epollSet map[int]uint32
}

var _ interest = (*Registry)(nil)

func NewRegistry(epollFd int) *Registry {
	return &Registry{
		epollFd:  epollFd,
		epollSet: make(map[int]uint32),
	}
}

// registerRead registers fd to epoll for read events.
func (r *Registry) registerRead(fd int) error {
	return r.register(fd, readEvents)
}

// registerWrite registers fd to epoll for write events only, so a connection
// with pending output stops being read until it drains.
func (r *Registry) registerWrite(fd int) error {
	return r.register(fd, writeEvents)
}

func (r *Registry) register(fd int, events uint32) (err error) {
	cur, ok := r.epollSet[fd]
	switch {
	case ok && cur == events:
		return nil
	case ok:
		err = r.mod(fd, events)
	default:
		err = r.add(fd, events)
	}
	if err != nil {
		return err
	}
	r.epollSet[fd] = events
	return nil
}

// unregister removes fd from epoll.
func (r *Registry) unregister(fd int) error {
	if _, ok := r.epollSet[fd]; !ok {
		return nil
	}
	delete(r.epollSet, fd)
	return r.Delete(fd)
}

// unregisterAll removes every tracked fd from epoll without closing it.
func (r *Registry) unregisterAll() error {
	var err error
	for fd := range r.epollSet {
		if e := r.Delete(fd); e != nil {
			err = multierr.Append(err, fmt.Errorf("delete fd: %d error: %w", fd, e))
		}
		delete(r.epollSet, fd)
	}
	return err
}

func (r *Registry) add(fd int, events uint32) error {
	return os.NewSyscallError("epoll_ctl add",
		unix.EpollCtl(r.epollFd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{Fd: int32(fd), Events: events}))
}

func (r *Registry) mod(fd int, events uint32) error {
	return os.NewSyscallError("epoll_ctl mod",
		unix.EpollCtl(r.epollFd, unix.EPOLL_CTL_MOD, fd, &unix.EpollEvent{Fd: int32(fd), Events: events}))
}

func (r *Registry) Delete(fd int) error {
	return os.NewSyscallError("epoll_ctl del", unix.EpollCtl(r.epollFd, unix.EPOLL_CTL_DEL, fd, nil))
}
