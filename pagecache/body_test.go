package pagecache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRegion struct {
	buf      []byte
	size     int
	released int
}

func (r *fakeRegion) Bytes() []byte { return r.buf }
func (r *fakeRegion) Size() int     { return r.size }
func (r *fakeRegion) Release()      { r.released++ }

type fakeRegionList struct {
	bufs     [][]byte
	total    int
	released int
}

func (r *fakeRegionList) BufferList() [][]byte { return r.bufs }
func (r *fakeRegionList) BufferTotalSize() int { return r.total }
func (r *fakeRegionList) Release()             { r.released++ }

func TestFromRegion(t *testing.T) {
	r := &fakeRegion{buf: []byte("record"), size: 6}
	body, err := FromRegion(r)
	require.NoError(t, err)
	assert.Equal(t, int64(6), body.TotalSize())
	assert.Len(t, body.Views(), 1)

	tr := NewTransfer([]byte("h"), body)
	assert.Equal(t, int64(7), tr.Size())
	tr.Dispose()
	tr.Dispose()
	assert.Equal(t, 1, r.released)
}

func TestFromRegionSizeMismatch(t *testing.T) {
	r := &fakeRegion{buf: []byte("abc"), size: 10}
	body, err := FromRegion(r)
	assert.ErrorIs(t, err, ErrSizeMismatch)
	assert.Nil(t, body)
	assert.Equal(t, 1, r.released)
}

func TestFromRegionList(t *testing.T) {
	r := &fakeRegionList{bufs: [][]byte{make([]byte, 10), make([]byte, 20), make([]byte, 5)}, total: 35}
	body, err := FromRegionList(r)
	require.NoError(t, err)
	assert.Equal(t, int64(35), body.TotalSize())
	assert.Len(t, body.Views(), 3)

	body.Release()
	body.Release()
	assert.Equal(t, 1, r.released)
}

func TestFromRegionListSizeMismatch(t *testing.T) {
	r := &fakeRegionList{bufs: [][]byte{make([]byte, 10)}, total: 11}
	_, err := FromRegionList(r)
	assert.ErrorIs(t, err, ErrSizeMismatch)
	assert.Equal(t, 1, r.released)
}

func TestSingleAndManyBehaveAlike(t *testing.T) {
	one := NewTransfer([]byte("H"), NewBody(nil, []byte("abcdef")))
	many := NewTransfer([]byte("H"), NewBody(nil, []byte("ab"), []byte("cd"), []byte("ef")))

	assert.Equal(t, one.Size(), many.Size())

	c1 := &recordingChannel{limit: 2}
	c2 := &recordingChannel{limit: 2}
	for !one.Done() {
		_, err := one.WriteNext(c1)
		require.NoError(t, err)
	}
	for !many.Done() {
		_, err := many.WriteNext(c2)
		require.NoError(t, err)
	}
	assert.Equal(t, c1.out.String(), c2.out.String())
}

func TestHandleFunc(t *testing.T) {
	calls := 0
	body := NewBody(HandleFunc(func() { calls++ }), []byte("x"))
	body.Release()
	body.Release()
	assert.Equal(t, 1, calls)
}

func TestViewCursor(t *testing.T) {
	v := NewView([]byte("hello"))
	assert.Equal(t, 5, v.Len())
	v.Next(2)
	assert.Equal(t, []byte("llo"), v.DataToWrite())
	assert.Equal(t, 2, v.Position())
	v.Next(10)
	assert.Equal(t, 0, v.Len())
	assert.Equal(t, 5, v.Cap())
}
