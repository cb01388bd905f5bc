//go:build linux
// +build linux

package node

import (
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/fzft/go-mock-mq/log"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// Reactor owns the listener and runs the Poll loop on its own goroutine.
type Reactor struct {
	ln     net.Listener
	lnFile *os.File
	poll   *Poll
	done   chan struct{}
	signal chan os.Signal
}

func NewReactor(ln net.Listener, signal chan os.Signal, maxFD int64, stats *Stats) (*Reactor, error) {
	tcp, ok := ln.(*net.TCPListener)
	if !ok {
		return nil, fmt.Errorf("unsupported listener %T", ln)
	}
	// File dups the listener fd; keep the file so its finalizer does not
	// close the fd under the poll.
	f, err := tcp.File()
	if err != nil {
		log.Logger.Error("Failed to get listener fd", zap.Error(err))
		return nil, err
	}
	lnFd := int(f.Fd())
	if err := unix.SetNonblock(lnFd, true); err != nil {
		f.Close()
		return nil, fmt.Errorf("set nonblock error for listener: %w", err)
	}

	done := make(chan struct{})
	poll, err := NewPoll(done, maxFD, lnFd, stats)
	if err != nil {
		f.Close()
		return nil, err
	}

	return &Reactor{
		ln:     ln,
		lnFile: f,
		poll:   poll,
		done:   done,
		signal: signal,
	}, nil
}

func (r *Reactor) SetHandler(handler ReaderHandler) {
	r.poll.Handler(handler)
}

// Run blocks until the loop exits, either on Stop or on a signal.
func (r *Reactor) Run() {
	go r.poll.poll()
	defer log.Logger.Info("reactor closed")

	select {
	case <-r.done:
	case <-r.signal:
		log.Logger.Info("signal received")
		if err := r.Stop(); err != nil {
			log.Logger.Error("failed to stop poll", zap.Error(err))
		}
		<-r.done
	}

	if err := r.closeListener(); err != nil {
		log.Logger.Debug("close listener", zap.Error(err))
	}
}

// Stop asks the loop to exit. Safe to call from any goroutine.
func (r *Reactor) Stop() error {
	select {
	case <-r.done:
		return nil
	default:
	}
	return r.poll.sendSignal(SignalStop)
}

// Done is closed when the loop has exited and released its connections.
func (r *Reactor) Done() <-chan struct{} {
	return r.done
}

func (r *Reactor) closeListener() error {
	err := r.lnFile.Close()
	if cerr := r.ln.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
		err = multierr.Append(err, cerr)
	}
	return err
}
