package booking

import (
	"errors"

	"stayledger/internal/domain/shared/daterange"
)

var ErrDatesUnavailable = errors.New("booking: dates are no longer available")

// ReservingStatuses are the statuses that hold inventory against a listing.
var ReservingStatuses = []Status{StatusPendingApproval, StatusUpcoming}

// RangeAvailable tests the candidate range against every booking that
// still reserves inventory. Ranges are half-open, so a candidate that
// exactly abuts an existing stay (check-in on the other's checkout day)
// is allowed.
func RangeAvailable(existing []*Booking, candidate daterange.DateRange) bool {
	for _, b := range existing {
		if !b.ReservesInventory() {
			continue
		}
		if b.Range.Overlaps(candidate) {
			return false
		}
	}
	return true
}
