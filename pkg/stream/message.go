package stream

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// TypeSubscribe is the outbound command subscribing to a course, and the
// type of the server frame acknowledging it.
const TypeSubscribe = "course.subscribe"

// Message is an outbound command. ID is assigned by Conn.Send.
type Message struct {
	ID   uint64         `json:"id"`
	Type string         `json:"type"`
	OID  int64          `json:"oid,omitempty"`
	Data map[string]any `json:"data,omitempty"`
}

// Subscribe builds a course subscription command.
func Subscribe(courseID int64) Message {
	return Message{Type: TypeSubscribe, OID: courseID}
}

// queue holds messages waiting for a connection. It is guarded by Conn.mu.
type queue struct {
	items []Message
}

func (q *queue) push(m Message) {
	q.items = append(q.items, m)
}

// drain empties the queue and returns its messages in insertion order.
func (q *queue) drain() []Message {
	items := q.items
	q.items = nil
	return items
}

// requeue puts messages back at the front, ahead of anything queued since.
func (q *queue) requeue(ms []Message) {
	if len(ms) == 0 {
		return
	}
	q.items = append(append(make([]Message, 0, len(ms)+len(q.items)), ms...), q.items...)
}

func (q *queue) len() int {
	return len(q.items)
}

// sentTable correlates acknowledgments with the commands that caused them.
// Entries leave the table when acknowledged, when they outlive the
// retention window, or when capacity forces the oldest out.
type sentTable struct {
	lru *expirable.LRU[uint64, Message]
}

func newSentTable(capacity int, retention time.Duration) *sentTable {
	return &sentTable{lru: expirable.NewLRU[uint64, Message](capacity, nil, retention)}
}

func (t *sentTable) record(m Message) {
	t.lru.Add(m.ID, m)
}

// ack returns and forgets the command with the given id.
func (t *sentTable) ack(id uint64) (Message, bool) {
	m, ok := t.lru.Peek(id)
	if ok {
		t.lru.Remove(id)
	}
	return m, ok
}

func (t *sentTable) len() int {
	return t.lru.Len()
}
