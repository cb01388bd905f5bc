package node

import "sync/atomic"

// Stats are server counters read by INFO. They are written by the event loop
// and may be read from any goroutine.
type Stats struct {
	connections        atomic.Int64
	bytesSent          atomic.Int64
	transfersCompleted atomic.Int64
	transfersAborted   atomic.Int64
}

func (s *Stats) addBytesSent(n int64) {
	if s != nil && n > 0 {
		s.bytesSent.Add(n)
	}
}

func (s *Stats) transferCompleted() {
	if s != nil {
		s.transfersCompleted.Add(1)
	}
}

func (s *Stats) transferAborted() {
	if s != nil {
		s.transfersAborted.Add(1)
	}
}

func (s *Stats) Connections() int64        { return s.connections.Load() }
func (s *Stats) BytesSent() int64          { return s.bytesSent.Load() }
func (s *Stats) TransfersCompleted() int64 { return s.transfersCompleted.Load() }
func (s *Stats) TransfersAborted() int64   { return s.transfersAborted.Load() }
