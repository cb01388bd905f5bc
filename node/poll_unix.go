//go:build linux
// +build linux

package node

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"unsafe"

	"github.com/fzft/go-mock-mq/log"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// https://copyconstruct.medium.com/the-method-to-epolls-madness-d9d2d6378642

const maxEvents = 128

type pipeSignal uint64

const (
	SignalStop pipeSignal = 1
)

var ErrSignalStopped = errors.New("signal stopped")

// Poll is a level-triggered epoll loop over a listener and its connections.
// Everything except sendSignal runs on the loop goroutine.
type Poll struct {
	*Registry
	epollFd  int
	listenFD int
	efd      int // eventfd used to wake the loop
	maxFD    int64
	rHandler ReaderHandler
	stats    *Stats
	done     chan struct{}

	connPool map[int]*DefaultConn
}

func NewPoll(done chan struct{}, maxFD int64, lnFd int, stats *Stats) (*Poll, error) {
	// Create a new epoll instance
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		log.Logger.Error("Failed to create epoll", zap.Error(err))
		return nil, os.NewSyscallError("epoll_create1", err)
	}

	r := NewRegistry(epfd)

	efd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		log.Logger.Error("Failed to create eventfd", zap.Error(err))
		unix.Close(epfd)
		return nil, os.NewSyscallError("eventfd", err)
	}

	// Register the eventfd and the listener to epoll for read events
	if err := multierr.Append(r.registerRead(efd), r.registerRead(lnFd)); err != nil {
		log.Logger.Error("Failed to register with epoll", zap.Error(err))
		unix.Close(efd)
		unix.Close(epfd)
		return nil, err
	}

	return &Poll{
		Registry: r,
		epollFd:  epfd,
		listenFD: lnFd,
		efd:      efd,
		maxFD:    maxFD,
		stats:    stats,
		done:     done,
		connPool: make(map[int]*DefaultConn),
	}, nil
}

func (p *Poll) Handler(handler ReaderHandler) {
	p.rHandler = handler
}

// CloseGracefully order: connections, eventfd, epoll. The listener belongs
// to the reactor and is only removed from the epoll set.
func (p *Poll) CloseGracefully() error {
	var err error
	for _, conn := range p.connPool {
		err = multierr.Append(err, p.closeConn(conn))
	}
	err = multierr.Append(err, p.unregisterAll())
	err = multierr.Append(err, CloseFd(p.efd))
	err = multierr.Append(err, CloseFd(p.epollFd))
	if err != nil {
		log.Logger.Debug("errors while closing poll", zap.Error(err))
	}
	return err
}

func (p *Poll) poll() {
	events := make([]unix.EpollEvent, maxEvents)
	msec := -1

	defer close(p.done)

	// handle cleanup if necessary,
	defer p.CloseGracefully()

	for {
		// level triggered, blocks until there is an event to report
		n, err := unix.EpollWait(p.epollFd, events, msec)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			log.Logger.Error("epoll wait error", zap.Error(err))
			return
		}

		for i := 0; i < n; i++ {
			ev := &events[i]
			err := p.processEvent(int(ev.Fd), ev)
			switch {
			case err == nil:
			case errors.Is(err, ErrSignalStopped):
				log.Logger.Info("Received stop signal. Exiting event loop.")
				return
			default:
				log.Logger.Error("Failed to process event", zap.Error(err))
				return
			}
		}
	}
}

// processEvent only returns errors that must stop the loop. Connection
// failures close the connection and are logged.
func (p *Poll) processEvent(fd int, ev *unix.EpollEvent) error {
	switch fd {
	case p.efd:
		return p.handleSignal(fd)
	case p.listenFD:
		return p.accept(fd)
	}

	conn, ok := p.connPool[fd]
	if !ok {
		log.Logger.Warn("event for unknown fd", zap.Int("fd", fd))
		return p.unregister(fd)
	}

	if ev.Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
		log.Logger.Debug("epoll error event for fd", zap.Int("fd", fd))
		return p.closeConn(conn)
	}

	var err error
	if ev.Events&unix.EPOLLIN != 0 {
		err = p.handleRead(conn)
	} else if ev.Events&unix.EPOLLOUT != 0 {
		err = conn.Flush()
	}
	if err != nil {
		if !errors.Is(err, errCloseAfterReply) && !errors.Is(err, io.EOF) {
			log.Logger.Info("closing connection", zap.Int("fd", fd), zap.Error(err))
		}
		return p.closeConn(conn)
	}
	return nil
}

func (p *Poll) handleRead(conn *DefaultConn) error {
	data, rerr := conn.Read()
	conn.query = append(conn.query, data...)

	if conn.Closing() {
		conn.query = conn.query[:0]
	}
	if len(conn.query) > 0 {
		n, err := p.rHandler.Read(conn, conn.query)
		if err != nil {
			return err
		}
		conn.query = append(conn.query[:0], conn.query[n:]...)
	}

	if err := conn.Flush(); err != nil {
		return err
	}
	return rerr
}

// handleSignal handles the signal from the event fd
func (p *Poll) handleSignal(fd int) error {
	var buf uint64
	_, err := unix.Read(fd, (*(*[8]byte)(unsafe.Pointer(&buf)))[:])
	if err != nil {
		log.Logger.Error("Failed to read from event fd", zap.Error(err))
		return nil
	}
	switch pipeSignal(buf) {
	case SignalStop:
		return ErrSignalStopped
	}
	return nil
}

// sendSignal sends a signal to the event fd. Safe to call from any goroutine.
func (p *Poll) sendSignal(sig pipeSignal) error {
	_, err := unix.Write(p.efd, (*(*[8]byte)(unsafe.Pointer(&sig)))[:])
	if err != nil {
		log.Logger.Error("Failed to write to event fd", zap.Error(err))
	}
	return err
}

// accept drains the listener backlog.
func (p *Poll) accept(fd int) error {
	for {
		connFd, sa, err := unix.Accept4(fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		if err != nil {
			if IsTemporaryError(err) || errors.Is(err, unix.ECONNABORTED) {
				return nil
			}
			log.Logger.Error("accept error", zap.Error(err))
			return fmt.Errorf("accept error: %w", err)
		}

		if p.stats.Connections() >= p.maxFD {
			log.Logger.Warn("max connections reached, rejecting", zap.Int64("max", p.maxFD))
			unix.Close(connFd)
			continue
		}

		// register the new connection to epoll for read events
		if err := p.registerRead(connFd); err != nil {
			log.Logger.Error("register read error", zap.Error(err))
			unix.Close(connFd)
			continue
		}

		p.connPool[connFd] = newConn(connFd, sockaddrIP(sa), p.Registry, p.stats)
		p.stats.connections.Add(1)
		log.Logger.Debug("new connection", zap.Int("fd", connFd))
	}
}

func (p *Poll) closeConn(conn *DefaultConn) error {
	if _, ok := p.connPool[conn.fd]; !ok {
		return nil
	}
	delete(p.connPool, conn.fd)
	p.stats.connections.Add(-1)

	if err := conn.Close(); err != nil {
		log.Logger.Debug("close connection", zap.Int("fd", conn.fd), zap.Error(err))
	}
	return nil
}

func sockaddrIP(sa unix.Sockaddr) string {
	switch addr := sa.(type) {
	case *unix.SockaddrInet4:
		return net.IP(addr.Addr[:]).String()
	case *unix.SockaddrInet6:
		return net.IP(addr.Addr[:]).String()
	default:
		return ""
	}
}
