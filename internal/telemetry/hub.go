//
//
package telemetry

import (
	"errors"
	"io"
	"sync"

	"github.com/pion/logging"

	"github.com/developerersmarty/driverless-surveillance-robot/internal/message"
)

// ErrNoReading is returned when asked to publish the no-reading sentinel.
var ErrNoReading = errors.New("no valid reading")

// Subscriber receives encoded telemetry messages.
type Subscriber interface {
	ID() string
	Send(data []byte) error
}

// Result summarizes one broadcast.
type Result struct {
	Recipients int
	Sent       int
	Failed     int
}

// Hub manages telemetry subscribers.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]Subscriber
	log  logging.LeveledLogger
}

// NewHub creates an empty hub. A nil factory uses DefaultLoggerFactory.
func NewHub(loggerFactory logging.LoggerFactory) *Hub {
	if loggerFactory == nil {
		loggerFactory = logging.NewDefaultLoggerFactory()
	}
	return &Hub{
		subs: make(map[string]Subscriber),
		log:  loggerFactory.NewLogger("telemetry"),
	}
}

// Subscribe adds a subscriber.
func (h *Hub) Subscribe(s Subscriber) {
	h.mu.Lock()
	h.subs[s.ID()] = s
	h.mu.Unlock()
}

// Unsubscribe removes a subscriber by id.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	delete(h.subs, id)
	h.mu.Unlock()
}

// Count returns the number of subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// CloseAll closes every subscriber that implements io.Closer. Subscribers stay
// registered until their owners unsubscribe them.
func (h *Hub) CloseAll() {
	for _, s := range h.snapshot() {
		if c, ok := s.(io.Closer); ok {
			_ = c.Close()
		}
	}
}

// snapshot copies the current subscribers under the read lock.
func (h *Hub) snapshot() []Subscriber {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Subscriber, 0, len(h.subs))
	for _, s := range h.subs {
		out = append(out, s)
	}
	return out
}

// Publish broadcasts a distance sample. The no-reading sentinel is never sent.
func (h *Hub) Publish(sample message.TelemetrySample) (Result, error) {
	if !sample.Valid() {
		return Result{}, ErrNoReading
	}

	data, err := sample.Encode()
	if err != nil {
		return Result{}, err
	}

	return h.Broadcast(data), nil
}

// Broadcast sends data to every current subscriber concurrently and waits for
// all sends to finish.
func (h *Hub) Broadcast(data []byte) Result {
	subs := h.snapshot()
	res := Result{Recipients: len(subs)}
	if len(subs) == 0 {
		h.log.Tracef("no telemetry subscribers, dropping sample")
		return res
	}

	errs := make([]error, len(subs))
	var wg sync.WaitGroup
	for i, s := range subs {
		wg.Add(1)
		go func(i int, s Subscriber) {
			defer wg.Done()
			errs[i] = s.Send(data)
		}(i, s)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			res.Failed++
			h.log.Warnf("telemetry send to %s failed: %v", subs[i].ID(), err)
			continue
		}
		res.Sent++
	}
	return res
}
