package node

import (
	"errors"

	"github.com/fzft/go-mock-mq/log"
	"github.com/fzft/go-mock-mq/resp"
	"go.uber.org/zap"
)

// ReaderHandler defines an interface for custom read logic.
type ReaderHandler interface {
	// Read handles the buffered input of conn and returns how many bytes of
	// data it consumed. Unconsumed bytes are offered again with the next read.
	Read(conn Conn, data []byte) (int, error)
}

// Read parses every complete request in data, runs it and queues its reply.
func (b *Broker) Read(conn Conn, data []byte) (int, error) {
	consumed := 0
	for consumed < len(data) {
		if conn.Closing() {
			return len(data), nil
		}
		args, n, err := resp.ParseCommand(data[consumed:])
		if errors.Is(err, resp.ErrIncomplete) {
			break
		}
		if err != nil {
			log.Logger.Debug("protocol error", zap.Int("fd", conn.Fd()), zap.Error(err))
			conn.Enqueue(errorReply("Protocol error: " + err.Error()))
			conn.CloseAfterReply()
			return len(data), nil
		}
		consumed += n

		if len(args) == 0 {
			continue
		}
		conn.Enqueue(b.call(conn, args))
	}
	return consumed, nil
}
