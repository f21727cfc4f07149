package metrics

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Point is one observation of total portfolio value.
type Point struct {
	At    time.Time       `json:"at"`
	Value decimal.Decimal `json:"value"`
}

// ValueSeries is a bounded, process-local ring of portfolio values. It only lives
// as long as the process and is never persisted.
type ValueSeries struct {
	mu     sync.RWMutex
	points []Point
	size   int
}

// NewValueSeries keeps at most size points.
func NewValueSeries(size int) *ValueSeries {
	if size < 1 {
		size = 1
	}
	return &ValueSeries{size: size}
}

// Append records v, evicting the oldest point when full.
func (s *ValueSeries) Append(at time.Time, v decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.points = append(s.points, Point{At: at, Value: v})
	if len(s.points) > s.size {
		s.points = append(s.points[:0:0], s.points[len(s.points)-s.size:]...)
	}
}

// Points returns a copy of the series, oldest first.
func (s *ValueSeries) Points() []Point {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Point, len(s.points))
	copy(out, s.points)
	return out
}

// Values returns the series values, oldest first.
func (s *ValueSeries) Values() []decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]decimal.Decimal, len(s.points))
	for i, p := range s.points {
		out[i] = p.Value
	}
	return out
}
