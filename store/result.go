package store

import "sync/atomic"

// SelectResult is one stored record claimed from a mapped segment.
type SelectResult struct {
	// Offset is the logical message offset of the record.
	Offset int64

	buf      []byte
	file     *MappedFile
	released atomic.Bool
}

func newSelectResult(offset int64, buf []byte, file *MappedFile) *SelectResult {
	trackClaim(len(buf))
	return &SelectResult{Offset: offset, buf: buf, file: file}
}

// Bytes returns the record as stored. It must not be used after Release.
func (r *SelectResult) Bytes() []byte {
	return r.buf
}

func (r *SelectResult) Size() int {
	return len(r.buf)
}

// Release drops the claim on the segment. Only the first call counts.
func (r *SelectResult) Release() {
	if r.released.Swap(true) {
		return
	}
	untrackClaim(len(r.buf))
	r.file.release()
}

// GetResult is a run of consecutive records, possibly spanning segments.
type GetResult struct {
	// NextOffset is the offset following the last record in the result.
	NextOffset int64

	results []*SelectResult
	bufs    [][]byte
	total   int
}

func (r *GetResult) add(s *SelectResult) {
	r.results = append(r.results, s)
	r.bufs = append(r.bufs, s.buf)
	r.total += len(s.buf)
}

func (r *GetResult) BufferList() [][]byte {
	return r.bufs
}

func (r *GetResult) BufferTotalSize() int {
	return r.total
}

// MessageCount returns the number of records in the result.
func (r *GetResult) MessageCount() int {
	return len(r.results)
}

// Release releases every record in the result.
func (r *GetResult) Release() {
	for _, s := range r.results {
		s.Release()
	}
}
