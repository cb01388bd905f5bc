// Package store is an append-only commit log kept in memory-mapped segment
// files.
//
// Records are stored as RESP blob strings, so a stored record is already
// valid reply bytes and can be handed to the network without re-encoding.
// Readers get claimed views of the mapped pages (SelectResult, GetResult)
// that must be released when the bytes are no longer needed.
package store

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/fzft/go-mock-mq/log"
	"github.com/fzft/go-mock-mq/resp"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// maxHeaderLen bounds "$<len>\r\n" for any int length.
const maxHeaderLen = 1 + 20 + 2

type entry struct {
	pos  int64 // commit log byte offset
	size int
}

type CommitLog struct {
	dir         string
	segmentSize int

	mu     sync.RWMutex
	files  []*MappedFile
	index  []entry
	closed bool
}

// Open maps every segment found in dir, creating dir if needed, and rebuilds
// the record index. A torn record at the tail of a segment is dropped.
func Open(dir string, segmentSize int) (*CommitLog, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	names, err := segmentNames(dir)
	if err != nil {
		return nil, err
	}

	c := &CommitLog{dir: dir, segmentSize: segmentSize}
	for i, name := range names {
		base, _ := strconv.ParseInt(name, 10, 64)
		if base != int64(i)*int64(segmentSize) {
			c.Close()
			return nil, fmt.Errorf("%w: segment %s out of sequence", ErrCorrupt, name)
		}
		f, err := openMappedFile(filepath.Join(dir, name), base, segmentSize)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.files = append(c.files, f)
		c.recover(f)
	}

	log.Logger.Info("commit log opened",
		zap.String("dir", dir),
		zap.Int("segments", len(c.files)),
		zap.Int("messages", len(c.index)))
	return c, nil
}

func segmentNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || len(e.Name()) != 20 {
			continue
		}
		if _, err := strconv.ParseInt(e.Name(), 10, 64); err != nil {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// recover indexes the records of f and sets its write position after the
// last complete record.
func (c *CommitLog) recover(f *MappedFile) {
	pos := 0
	for {
		n, ok := scanRecord(f.data[pos:])
		if !ok {
			break
		}
		c.index = append(c.index, entry{pos: f.base + int64(pos), size: n})
		pos += n
	}
	if pos < len(f.data) && f.data[pos] != 0 {
		log.Logger.Warn("dropping torn record", zap.String("path", f.path), zap.Int("pos", pos))
		for i := pos; i < len(f.data) && f.data[i] != 0; i++ {
			f.data[i] = 0
		}
	}
	f.wrote = pos
}

// scanRecord returns the length of the record at the start of data.
func scanRecord(data []byte) (int, bool) {
	if len(data) == 0 || data[0] != resp.TypeBlob {
		return 0, false
	}
	head := data
	if len(head) > maxHeaderLen {
		head = head[:maxHeaderLen]
	}
	end := bytes.Index(head, []byte(resp.CRLF))
	if end < 0 {
		return 0, false
	}
	size, err := strconv.Atoi(string(data[1:end]))
	if err != nil || size < 0 {
		return 0, false
	}
	total := end + 2 + size + 2
	if total > len(data) || !bytes.Equal(data[total-2:total], []byte(resp.CRLF)) {
		return 0, false
	}
	return total, true
}

// Append stores payload and returns its message offset.
func (c *CommitLog) Append(payload []byte) (int64, error) {
	rec := resp.AppendBlob(make([]byte, 0, len(payload)+maxHeaderLen+2), payload)
	if len(rec) > c.segmentSize {
		return 0, fmt.Errorf("%w: %d bytes", ErrRecordTooLarge, len(rec))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, ErrClosed
	}

	f, err := c.writable(len(rec))
	if err != nil {
		return 0, err
	}
	pos := f.append(rec)
	c.index = append(c.index, entry{pos: f.base + int64(pos), size: len(rec)})
	return int64(len(c.index) - 1), nil
}

// writable returns the last segment, rolling a new one when n bytes do not
// fit.
func (c *CommitLog) writable(n int) (*MappedFile, error) {
	if len(c.files) > 0 {
		if last := c.files[len(c.files)-1]; last.fits(n) {
			return last, nil
		}
	}
	base := int64(len(c.files)) * int64(c.segmentSize)
	path := filepath.Join(c.dir, fmt.Sprintf("%020d", base))
	f, err := openMappedFile(path, base, c.segmentSize)
	if err != nil {
		return nil, err
	}
	c.files = append(c.files, f)
	log.Logger.Info("segment created", zap.String("path", path))
	return f, nil
}

// MaxOffset is the offset the next appended message will get.
func (c *CommitLog) MaxOffset() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return int64(len(c.index))
}

// Segments returns the number of mapped segments.
func (c *CommitLog) Segments() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.files)
}

// SelectOne claims the record at offset.
func (c *CommitLog) SelectOne(offset int64) (*SelectResult, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrClosed
	}
	if offset < 0 || offset >= int64(len(c.index)) {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrOffsetOutOfRange, offset, len(c.index))
	}
	return c.selectLocked(offset)
}

// SelectMany claims up to maxMsgs consecutive records starting at offset,
// stopping before maxBytes would be exceeded. The first record is always
// included. Selecting at MaxOffset yields an empty result.
func (c *CommitLog) SelectMany(offset int64, maxMsgs, maxBytes int) (*GetResult, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrClosed
	}
	if offset < 0 || offset > int64(len(c.index)) {
		return nil, fmt.Errorf("%w: %d not in [0, %d]", ErrOffsetOutOfRange, offset, len(c.index))
	}

	res := &GetResult{NextOffset: offset}
	for i := offset; i < int64(len(c.index)) && res.MessageCount() < maxMsgs; i++ {
		if res.MessageCount() > 0 && res.total+c.index[i].size > maxBytes {
			break
		}
		s, err := c.selectLocked(i)
		if err != nil {
			res.Release()
			return nil, err
		}
		res.add(s)
		res.NextOffset = i + 1
	}
	return res, nil
}

func (c *CommitLog) selectLocked(offset int64) (*SelectResult, error) {
	e := c.index[offset]
	f := c.files[e.pos/int64(c.segmentSize)]
	buf, ok := f.slice(int(e.pos-f.base), e.size)
	if !ok {
		return nil, ErrClosed
	}
	return newSelectResult(offset, buf, f), nil
}

// Close flushes every segment and drops the log's claims. Segments with
// outstanding select results stay mapped until those are released.
func (c *CommitLog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	var err error
	for _, f := range c.files {
		err = multierr.Append(err, f.flush())
		f.Shutdown()
	}
	return err
}
