package store

import (
	"fmt"
	"time"

	"github.com/monthviewsales/solanatracker-trade-bot/internal/models"
)

// AssetUpdate is a partial write to an asset record. Nil fields are left untouched.
// Positions and trade history are not part of it; they change only through the ledger.
type AssetUpdate struct {
	Identity      string
	Symbol        *string
	Name          *string
	Market        *string
	Status        *models.Status
	ChartWindow   []models.Candle // replaced wholesale when non-nil
	Indicators    *models.IndicatorSnapshot
	DecisionPrice *float64
	LastError     *string
}

// Ptr returns a pointer to v, for building updates.
func Ptr[T any](v T) *T {
	return &v
}

// merge applies u on top of existing (nil for a new asset) and returns the result.
func merge(existing *models.AssetRecord, u AssetUpdate, now time.Time) (models.AssetRecord, error) {
	if u.Identity == "" {
		return models.AssetRecord{}, fmt.Errorf("%w: missing identity", ErrInvalidInput)
	}

	var rec models.AssetRecord
	if existing != nil {
		rec = existing.Clone()
	} else {
		rec = models.AssetRecord{
			Identity:    u.Identity,
			Status:      models.StatusHold,
			ChartWindow: []models.Candle{},
			BuyHistory:  []models.TradeEvent{},
			SellHistory: []models.TradeEvent{},
		}
	}

	if u.Status != nil {
		next := *u.Status
		if !next.Valid() {
			return models.AssetRecord{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, next)
		}
		// open and closed belong to the ledger
		if (next == models.StatusOpen || next == models.StatusClosed) && next != rec.Status {
			return models.AssetRecord{}, fmt.Errorf("%w: %s requires a ledger operation", ErrInvalidTransition, next)
		}
		if existing != nil && !rec.Status.CanTransition(next) {
			return models.AssetRecord{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, rec.Status, next)
		}
		rec.Status = next
	}

	if u.Symbol != nil {
		rec.Symbol = *u.Symbol
	}
	if u.Name != nil {
		rec.Name = *u.Name
	}
	if u.Market != nil {
		rec.Market = *u.Market
	}
	if u.ChartWindow != nil {
		rec.ChartWindow = models.TrimCandles(u.ChartWindow)
	}
	if u.Indicators != nil {
		ind := *u.Indicators
		rec.Indicators = &ind
	}
	if u.DecisionPrice != nil {
		rec.DecisionPrice = *u.DecisionPrice
	}
	if u.LastError != nil {
		rec.LastError = *u.LastError
	}

	rec.LastUpdated = now
	return rec, nil
}
