package store

import (
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/monthviewsales/solanatracker-trade-bot/internal/models"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// countingPersister records every snapshot written to it.
type countingPersister struct {
	mu      sync.Mutex
	saves   int
	last    []models.AssetRecord
	saveErr error
	loaded  []models.AssetRecord
	loadErr error
}

func (p *countingPersister) Load() ([]models.AssetRecord, error) {
	return p.loaded, p.loadErr
}

func (p *countingPersister) Save(records []models.AssetRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.saveErr != nil {
		return p.saveErr
	}
	p.saves++
	p.last = records
	return nil
}

func (p *countingPersister) Saves() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saves
}

var errDiskFull = errors.New("disk full")

func newTestStore(t *testing.T) (*Store, *countingPersister, *fakeClock) {
	t.Helper()
	p := &countingPersister{}
	clock := newFakeClock()
	s := New(p, zap.NewNop(), WithClock(clock), WithDebounce(time.Second), WithTrailing(5, 0))
	return s, p, clock
}

func candles(n int, close float64) []models.Candle {
	out := make([]models.Candle, n)
	for i := range out {
		out[i] = models.Candle{Open: close, Close: close, Low: close, High: close, Time: int64(i)}
	}
	return out
}
