package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/monthviewsales/solanatracker-trade-bot/internal/models"
)

// DefaultDebounce is the quiet period before coalesced changes are written.
const DefaultDebounce = time.Second

// maxDelayFactor bounds how long a continuously changing store can go unsaved,
// as a multiple of the debounce window.
const maxDelayFactor = 5

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Option configures a Store.
type Option func(*Store)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c Clock) Option {
	return func(s *Store) {
		s.clock = c
	}
}

// WithDebounce sets the write coalescing window.
func WithDebounce(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.debounce = d
		}
	}
}

// WithTrailing sets the trailing stop and trailing take-profit percentages
// used when positions are opened or their high-water mark moves.
func WithTrailing(stopPercent, takeProfitPercent float64) Option {
	return func(s *Store) {
		s.trailingStopPct = stopPercent
		s.trailingTakeProfitPct = takeProfitPercent
	}
}

// Store is the authoritative table of tracked assets. All mutations go through
// its methods, which merge field by field and schedule a debounced snapshot write.
type Store struct {
	mu      sync.RWMutex
	records map[string]*models.AssetRecord
	order   []string

	persister Persister
	clock     Clock
	logger    *zap.Logger
	debounce  time.Duration

	trailingStopPct       float64
	trailingTakeProfitPct float64

	dirty      bool
	dirtySince time.Time
	lastChange time.Time

	saveMu sync.Mutex
}

// New creates an empty store backed by persister.
func New(persister Persister, logger *zap.Logger, opts ...Option) *Store {
	s := &Store{
		records:         make(map[string]*models.AssetRecord),
		persister:       persister,
		clock:           systemClock{},
		logger:          logger.Named("store"),
		debounce:        DefaultDebounce,
		trailingStopPct: 5,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upsert merges u into the record with the same identity, creating it as hold
// if it does not exist yet.
func (s *Store) Upsert(u AssetUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	existing := s.records[u.Identity]
	rec, err := merge(existing, u, now)
	if err != nil {
		s.logger.Warn("Rejected asset update", zap.String("identity", u.Identity), zap.Error(err))
		return err
	}
	if existing == nil {
		s.order = append(s.order, rec.Identity)
		s.logger.Debug("Tracking new asset", zap.String("identity", rec.Identity), zap.String("symbol", rec.Symbol))
	}
	s.records[rec.Identity] = &rec
	s.markDirtyLocked(now)
	return nil
}

// Get returns a copy of the record for identity.
func (s *Store) Get(identity string) (models.AssetRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[identity]
	if !ok {
		return models.AssetRecord{}, false
	}
	return rec.Clone(), true
}

// All returns copies of every record in insertion order.
func (s *Store) All() []models.AssetRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// FilterByStatus returns copies of the records currently in status.
func (s *Store) FilterByStatus(status models.Status) []models.AssetRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.AssetRecord
	for _, id := range s.order {
		if rec := s.records[id]; rec.Status == status {
			out = append(out, rec.Clone())
		}
	}
	return out
}

// CountByStatus counts the records in status without copying them.
func (s *Store) CountByStatus(status models.Status) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, rec := range s.records {
		if rec.Status == status {
			n++
		}
	}
	return n
}

// Remove drops the record for identity. It reports whether a record existed.
func (s *Store) Remove(identity string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[identity]; !ok {
		return false
	}
	delete(s.records, identity)
	for i, id := range s.order {
		if id == identity {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.markDirtyLocked(s.clock.Now())
	return true
}

// Len returns the number of tracked assets.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Dirty reports whether there are changes not yet written.
func (s *Store) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// Load replaces the in-memory table with the persisted snapshot. A missing or
// empty snapshot starts empty; a corrupt one is quarantined by the persister
// and also starts empty.
func (s *Store) Load() error {
	records, err := s.persister.Load()
	if errors.Is(err, ErrCorruptSnapshot) {
		s.logger.Warn("Asset snapshot was corrupt, starting empty", zap.Error(err))
		records, err = nil, nil
	}
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*models.AssetRecord, len(records))
	s.order = s.order[:0]
	for i := range records {
		rec := s.normalize(records[i])
		if rec.Identity == "" || !rec.Status.Valid() {
			s.logger.Warn("Skipping invalid asset in snapshot",
				zap.String("identity", rec.Identity), zap.String("status", string(rec.Status)))
			continue
		}
		if _, dup := s.records[rec.Identity]; dup {
			s.logger.Warn("Duplicate asset in snapshot, keeping the later entry", zap.String("identity", rec.Identity))
		} else {
			s.order = append(s.order, rec.Identity)
		}
		s.records[rec.Identity] = &rec
	}
	s.dirty = false
	s.logger.Info("Loaded asset snapshot", zap.Int("count", len(s.records)))
	return nil
}

func (s *Store) normalize(rec models.AssetRecord) models.AssetRecord {
	if rec.ChartWindow == nil {
		rec.ChartWindow = []models.Candle{}
	} else {
		rec.ChartWindow = models.TrimCandles(rec.ChartWindow)
	}
	if rec.BuyHistory == nil {
		rec.BuyHistory = []models.TradeEvent{}
	}
	if rec.SellHistory == nil {
		rec.SellHistory = []models.TradeEvent{}
	}
	if p := rec.Position; p != nil {
		if p.HighestPriceSeen < p.EntryPrice {
			p.HighestPriceSeen = p.EntryPrice
		}
		if p.StopLoss == 0 {
			p.StopLoss = p.EntryPrice * (1 - s.trailingStopPct/100)
		}
	}
	if rec.Status == models.StatusOpen && rec.Position == nil {
		s.logger.Warn("Open asset has no position in snapshot", zap.String("identity", rec.Identity))
	}
	return rec
}

// Save writes the whole collection now, regardless of the debounce window.
func (s *Store) Save() error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	snapshot := s.snapshotLocked()
	wasDirty, since := s.dirty, s.dirtySince
	s.dirty = false
	s.mu.Unlock()

	if err := s.persister.Save(snapshot); err != nil {
		s.mu.Lock()
		if !s.dirty {
			s.dirty = true
			s.dirtySince = since
			if !wasDirty {
				s.dirtySince = s.clock.Now()
			}
		}
		s.mu.Unlock()
		return err
	}
	s.logger.Debug("Saved asset snapshot", zap.Int("count", len(snapshot)))
	return nil
}

// Flush writes pending changes once the store has been quiet for the debounce
// window, or once changes have been pending for maxDelayFactor windows. It
// reports whether a write happened.
func (s *Store) Flush() (bool, error) {
	s.mu.RLock()
	due := s.dirty && s.flushDueLocked(s.clock.Now())
	s.mu.RUnlock()
	if !due {
		return false, nil
	}
	if err := s.Save(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) flushDueLocked(now time.Time) bool {
	if now.Sub(s.lastChange) >= s.debounce {
		return true
	}
	return now.Sub(s.dirtySince) >= maxDelayFactor*s.debounce
}

// Run flushes debounced changes until ctx is done, then writes any remainder.
func (s *Store) Run(ctx context.Context) {
	tick := s.debounce / 2
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if s.Dirty() {
				if err := s.Save(); err != nil {
					s.logger.Error("Final snapshot write failed", zap.Error(err))
				}
			}
			return
		case <-ticker.C:
			if _, err := s.Flush(); err != nil {
				s.logger.Error("Debounced snapshot write failed", zap.Error(err))
			}
		}
	}
}

func (s *Store) markDirtyLocked(now time.Time) {
	if !s.dirty {
		s.dirty = true
		s.dirtySince = now
	}
	s.lastChange = now
}

func (s *Store) snapshotLocked() []models.AssetRecord {
	out := make([]models.AssetRecord, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.records[id].Clone())
	}
	return out
}

func newEventID() string {
	return uuid.NewString()
}
