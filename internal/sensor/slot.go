package sensor

import (
	"math"
	"sync/atomic"

	"github.com/developerersmarty/driverless-surveillance-robot/internal/message"
)

// Slot holds the latest distance sample. One writer, any number of readers.
// The zero value is not ready for use; call NewSlot.
type Slot struct {
	bits    atomic.Uint64
	updates atomic.Uint64
}

// NewSlot returns a slot holding the no-reading sentinel.
func NewSlot() *Slot {
	s := &Slot{}
	s.bits.Store(math.Float64bits(message.NoReading))
	return s
}

// Store publishes a sample, replacing the previous one.
func (s *Slot) Store(v float64) {
	s.bits.Store(math.Float64bits(v))
	s.updates.Add(1)
}

// Load returns the latest sample.
func (s *Slot) Load() float64 {
	return math.Float64frombits(s.bits.Load())
}

// Valid returns the latest sample and whether it is a real reading.
func (s *Slot) Valid() (float64, bool) {
	v := s.Load()
	return v, !message.IsNoReading(v)
}

// Updates returns how many samples have been published.
func (s *Slot) Updates() uint64 {
	return s.updates.Load()
}
