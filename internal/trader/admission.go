package trader

import "github.com/monthviewsales/solanatracker-trade-bot/internal/models"

// OpenCounter counts assets by status.
type OpenCounter interface {
	CountByStatus(status models.Status) int
}

// AvailableSlots is the number of positions that may still be opened.
// It is negative when more positions are open than allowed.
func AvailableSlots(store OpenCounter, maxActive int) int {
	return maxActive - store.CountByStatus(models.StatusOpen)
}
