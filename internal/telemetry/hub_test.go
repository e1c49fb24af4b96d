package telemetry

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pion/transport/v3/test"

	"github.com/developerersmarty/driverless-surveillance-robot/internal/message"
)

// MockSubscriber records received messages and can be set to fail.
type MockSubscriber struct {
	id    string
	fail  bool
	delay time.Duration

	mu   sync.Mutex
	msgs []string
}

func (m *MockSubscriber) ID() string { return m.id }

func (m *MockSubscriber) Send(data []byte) error {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.fail {
		return errors.New("connection reset by peer")
	}
	m.mu.Lock()
	m.msgs = append(m.msgs, string(data))
	m.mu.Unlock()
	return nil
}

func (m *MockSubscriber) Messages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.msgs...)
}

func TestPublishToTwoSubscribers(t *testing.T) {
	hub := NewHub(nil)
	a := &MockSubscriber{id: "a"}
	b := &MockSubscriber{id: "b"}
	hub.Subscribe(a)
	hub.Subscribe(b)

	res, err := hub.Publish(message.Distance(42.5))
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if res.Sent != 2 || res.Failed != 0 {
		t.Errorf("result = %+v, want 2 sent", res)
	}

	for _, s := range []*MockSubscriber{a, b} {
		msgs := s.Messages()
		if len(msgs) != 1 || msgs[0] != `{"kind":"distance","value":42.5}` {
			t.Errorf("%s received %v", s.id, msgs)
		}
	}
}

func TestPublishIsolatesFailures(t *testing.T) {
	hub := NewHub(nil)

	const n = 6
	subs := make([]*MockSubscriber, n)
	for i := range subs {
		subs[i] = &MockSubscriber{id: fmt.Sprintf("browser-%d", i), fail: i == 2}
		hub.Subscribe(subs[i])
	}

	res, err := hub.Publish(message.Distance(80))
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if res.Recipients != n || res.Sent != n-1 || res.Failed != 1 {
		t.Errorf("result = %+v, want %d sent and 1 failed", res, n-1)
	}

	for i, s := range subs {
		got := len(s.Messages())
		if i == 2 && got != 0 {
			t.Errorf("failing subscriber recorded %d messages", got)
		}
		if i != 2 && got != 1 {
			t.Errorf("subscriber %d received %d messages, want 1", i, got)
		}
	}

	// The failed send is not retried on the next broadcast either.
	subs[2].fail = false
	if _, err := hub.Publish(message.Distance(81)); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if got := len(subs[2].Messages()); got != 1 {
		t.Errorf("recovered subscriber got %d messages, want only the new one", got)
	}
}

func TestPublishSentinelDropped(t *testing.T) {
	hub := NewHub(nil)
	s := &MockSubscriber{id: "a"}
	hub.Subscribe(s)

	if _, err := hub.Publish(message.Distance(message.NoReading)); !errors.Is(err, ErrNoReading) {
		t.Errorf("Publish(-1) error = %v, want ErrNoReading", err)
	}
	if len(s.Messages()) != 0 {
		t.Error("sentinel reached a subscriber")
	}
}

func TestBroadcastIsConcurrent(t *testing.T) {
	lim := test.TimeOut(5 * time.Second)
	defer lim.Stop()

	hub := NewHub(nil)
	for i := 0; i < 10; i++ {
		hub.Subscribe(&MockSubscriber{id: fmt.Sprintf("slow-%d", i), delay: 50 * time.Millisecond})
	}

	start := time.Now()
	res := hub.Broadcast([]byte(`{"kind":"distance","value":1}`))
	elapsed := time.Since(start)

	if res.Sent != 10 {
		t.Errorf("Sent = %d, want 10", res.Sent)
	}
	if elapsed > 400*time.Millisecond {
		t.Errorf("broadcast took %v, sends are not concurrent", elapsed)
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	hub := NewHub(nil)
	hub.Subscribe(&MockSubscriber{id: "a"})
	hub.Subscribe(&MockSubscriber{id: "b"})
	hub.Unsubscribe("a")
	hub.Unsubscribe("missing")

	if hub.Count() != 1 {
		t.Errorf("Count() = %d, want 1", hub.Count())
	}

	if res := NewHub(nil).Broadcast([]byte("x")); res.Recipients != 0 {
		t.Errorf("empty hub result = %+v", res)
	}
}

func TestBroadcastDuringChurn(t *testing.T) {
	lim := test.TimeOut(10 * time.Second)
	defer lim.Stop()

	hub := NewHub(nil)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			id := fmt.Sprintf("c-%d", i%20)
			hub.Subscribe(&MockSubscriber{id: id})
			if i%3 == 0 {
				hub.Unsubscribe(id)
			}
		}
	}()

	for i := 0; i < 200; i++ {
		hub.Broadcast([]byte(`{"kind":"distance","value":3}`))
	}
	wg.Wait()
}

type closingSubscriber struct {
	MockSubscriber
	closed bool
}

func (c *closingSubscriber) Close() error {
	c.closed = true
	return nil
}

func TestCloseAll(t *testing.T) {
	hub := NewHub(nil)
	c := &closingSubscriber{MockSubscriber: MockSubscriber{id: "c"}}
	hub.Subscribe(c)
	hub.Subscribe(&MockSubscriber{id: "plain"})

	hub.CloseAll()

	if !c.closed {
		t.Error("closer subscriber was not closed")
	}
	if hub.Count() != 2 {
		t.Errorf("Count() = %d, subscribers must stay until unsubscribed", hub.Count())
	}
}
