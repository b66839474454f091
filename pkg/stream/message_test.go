package stream

import (
	"encoding/json"
	"testing"
	"time"
)

func TestSubscribeWireFormat(t *testing.T) {
	m := Subscribe(99)
	m.ID = 1
	b, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"id":1,"type":"course.subscribe","oid":99}` {
		t.Fatalf("unexpected wire format %s", b)
	}
}

func TestQueueOrder(t *testing.T) {
	var q queue
	for i := uint64(1); i <= 3; i++ {
		q.push(Message{ID: i})
	}
	items := q.drain()
	if q.len() != 0 || len(items) != 3 {
		t.Fatalf("unexpected drain: %v (left %d)", items, q.len())
	}

	q.push(Message{ID: 4})
	q.requeue(items[1:])
	got := q.drain()
	want := []uint64{2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i, m := range got {
		if m.ID != want[i] {
			t.Fatalf("position %d: expected %d, got %d", i, want[i], m.ID)
		}
	}
}

func TestSentTable(t *testing.T) {
	st := newSentTable(2, time.Hour)
	st.record(Message{ID: 1, Type: TypeSubscribe, OID: 10})
	st.record(Message{ID: 2, Type: TypeSubscribe, OID: 20})
	st.record(Message{ID: 3, Type: TypeSubscribe, OID: 30})

	if st.len() != 2 {
		t.Fatalf("expected capacity to bound the table, got %d", st.len())
	}
	if _, ok := st.ack(1); ok {
		t.Fatalf("expected oldest entry to be evicted")
	}
	m, ok := st.ack(2)
	if !ok || m.OID != 20 {
		t.Fatalf("unexpected ack result %+v %v", m, ok)
	}
	if _, ok := st.ack(2); ok {
		t.Fatalf("expected acknowledged entry to be removed")
	}
}

func TestSentTableRetention(t *testing.T) {
	st := newSentTable(10, 20*time.Millisecond)
	st.record(Message{ID: 1, OID: 10})
	time.Sleep(60 * time.Millisecond)
	if _, ok := st.ack(1); ok {
		t.Fatalf("expected entry to expire")
	}
}

func TestStateString(t *testing.T) {
	if Listening.String() != "listening" || Closing.String() != "closing" || State(42).String() != "unknown" {
		t.Fatalf("unexpected state names")
	}
}

func TestEndpointFor(t *testing.T) {
	tests := map[string]string{
		"https://us.edstem.org":     "wss://us.edstem.org/api/stream",
		"http://127.0.0.1:8080/":    "ws://127.0.0.1:8080/api/stream",
		"https://proxy.example/ed/": "wss://proxy.example/ed/api/stream",
		"https://us.edstem.org?x=1": "wss://us.edstem.org/api/stream",
	}
	for in, want := range tests {
		got, err := EndpointFor(in)
		if err != nil {
			t.Fatalf("%s: %v", in, err)
		}
		if got != want {
			t.Errorf("%s: expected %s, got %s", in, want, got)
		}
	}
	if _, err := EndpointFor("ftp://x"); err == nil {
		t.Fatalf("expected error for unsupported scheme")
	}
}
