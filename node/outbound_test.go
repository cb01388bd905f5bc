package node

import (
	"testing"

	"github.com/fzft/go-mock-mq/pagecache"
	"github.com/stretchr/testify/assert"
)

func TestOutboundFIFO(t *testing.T) {
	var q outbound
	assert.Nil(t, q.front())
	assert.Nil(t, q.pop())

	a := pagecache.NewTransfer([]byte("a"), nil)
	b := pagecache.NewTransfer([]byte("b"), nil)
	q.push(a)
	q.push(b)
	assert.Equal(t, 2, q.Len())
	assert.Same(t, a, q.front())

	assert.Same(t, a, q.pop())
	assert.Same(t, b, q.pop())
	assert.Equal(t, 0, q.Len())
	assert.Nil(t, q.pop())

	q.push(a)
	assert.Same(t, a, q.front())
	assert.Equal(t, 1, q.Len())
}
