package node

import "github.com/fzft/go-mock-mq/pagecache"

type outboundNode struct {
	next  *outboundNode
	value *pagecache.Transfer
}

// outbound is the FIFO of replies waiting to be written to a connection.
type outbound struct {
	head   *outboundNode
	tail   *outboundNode
	length int
}

func (q *outbound) push(t *pagecache.Transfer) {
	n := &outboundNode{value: t}
	if q.tail == nil {
		q.head, q.tail = n, n
	} else {
		q.tail.next, q.tail = n, n
	}
	q.length++
}

// front returns the oldest queued transfer, or nil.
func (q *outbound) front() *pagecache.Transfer {
	if q.head == nil {
		return nil
	}
	return q.head.value
}

func (q *outbound) pop() *pagecache.Transfer {
	n := q.head
	if n == nil {
		return nil
	}
	q.head, n.next = n.next, nil
	if q.head == nil {
		q.tail = nil
	}
	q.length--
	return n.value
}

func (q *outbound) Len() int {
	return q.length
}
