package node

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fzft/go-mock-mq/config"
	"github.com/fzft/go-mock-mq/log"
	"github.com/fzft/go-mock-mq/pagecache"
	"github.com/fzft/go-mock-mq/resp"
	"github.com/fzft/go-mock-mq/store"
	"go.uber.org/zap"
)

// Broker serves the commit log over RESP. Stored records go out as the body
// of a pagecache.Transfer, straight from the mapped segments.
type Broker struct {
	log   *store.CommitLog
	cfg   *config.Config
	stats *Stats
}

var _ ReaderHandler = (*Broker)(nil)

func NewBroker(cl *store.CommitLog, cfg *config.Config, stats *Stats) *Broker {
	return &Broker{log: cl, cfg: cfg, stats: stats}
}

func simpleReply(s string) *pagecache.Transfer {
	return pagecache.NewTransfer(resp.AppendSimple(nil, s), nil)
}

func integerReply(v int64) *pagecache.Transfer {
	return pagecache.NewTransfer(resp.AppendInteger(nil, v), nil)
}

func blobReply(p []byte) *pagecache.Transfer {
	return pagecache.NewTransfer(resp.AppendBlob(nil, p), nil)
}

func errorReply(msg string) *pagecache.Transfer {
	return pagecache.NewTransfer(resp.AppendError(nil, msg), nil)
}

func storeErrorReply(err error) *pagecache.Transfer {
	switch {
	case errors.Is(err, store.ErrOffsetOutOfRange):
		return errorReply("OUTOFRANGE " + err.Error())
	case errors.Is(err, store.ErrRecordTooLarge):
		return errorReply("TOOLARGE " + err.Error())
	default:
		log.Logger.Error("store error", zap.Error(err))
		return errorReply(err.Error())
	}
}

func parseOffset(s string) (int64, bool) {
	v, err := strconv.ParseInt(s, 10, 64)
	return v, err == nil && v >= 0
}

func pingCommand(b *Broker, conn Conn, args []string) *pagecache.Transfer {
	if len(args) > 2 {
		return errorReply("wrong number of arguments for 'ping' command")
	}
	if len(args) == 2 {
		return blobReply([]byte(args[1]))
	}
	return simpleReply("PONG")
}

// APPEND <payload> -> :<offset>
func appendCommand(b *Broker, conn Conn, args []string) *pagecache.Transfer {
	off, err := b.log.Append([]byte(args[1]))
	if err != nil {
		return storeErrorReply(err)
	}
	return integerReply(off)
}

// GET <offset> -> *2 :<offset> $<record>
func getCommand(b *Broker, conn Conn, args []string) *pagecache.Transfer {
	off, ok := parseOffset(args[1])
	if !ok {
		return errorReply("offset is not a non-negative integer")
	}
	r, err := b.log.SelectOne(off)
	if err != nil {
		return storeErrorReply(err)
	}
	body, err := pagecache.FromRegion(r)
	if err != nil {
		return storeErrorReply(err)
	}

	header := resp.AppendArrayLen(make([]byte, 0, 32), 2)
	header = resp.AppendInteger(header, off)
	return pagecache.NewTransfer(header, body)
}

// FETCH <offset> [count] -> *<n+1> :<next offset> $<record>...
func fetchCommand(b *Broker, conn Conn, args []string) *pagecache.Transfer {
	if len(args) > 3 {
		return errorReply("wrong number of arguments for 'fetch' command")
	}
	off, ok := parseOffset(args[1])
	if !ok {
		return errorReply("offset is not a non-negative integer")
	}
	count := b.cfg.MaxFetchCount
	if len(args) == 3 {
		n, err := strconv.Atoi(args[2])
		if err != nil || n <= 0 {
			return errorReply("count is not a positive integer")
		}
		if n < count {
			count = n
		}
	}

	res, err := b.log.SelectMany(off, count, b.cfg.MaxFetchBytes)
	if err != nil {
		return storeErrorReply(err)
	}
	n, next := res.MessageCount(), res.NextOffset
	body, err := pagecache.FromRegionList(res)
	if err != nil {
		return storeErrorReply(err)
	}

	header := resp.AppendArrayLen(make([]byte, 0, 32), n+1)
	header = resp.AppendInteger(header, next)
	return pagecache.NewTransfer(header, body)
}

func infoCommand(b *Broker, conn Conn, args []string) *pagecache.Transfer {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Server\r\nversion:%s\r\nconnections:%d\r\n", Version(), b.stats.Connections())
	fmt.Fprintf(&sb, "# Store\r\nmax_offset:%d\r\nsegments:%d\r\nclaims:%d\r\nclaimed_bytes:%s\r\n",
		b.log.MaxOffset(), b.log.Segments(), store.Claims(), humanize.IBytes(uint64(store.ClaimedBytes())))
	fmt.Fprintf(&sb, "# Transfer\r\nbytes_sent:%s\r\ntransfers_completed:%d\r\ntransfers_aborted:%d\r\n",
		humanize.IBytes(uint64(b.stats.BytesSent())), b.stats.TransfersCompleted(), b.stats.TransfersAborted())
	return blobReply([]byte(sb.String()))
}

func quitCommand(b *Broker, conn Conn, args []string) *pagecache.Transfer {
	conn.CloseAfterReply()
	return simpleReply("OK")
}
