package ginserver

import (
	"errors"
	"net/http"

	gin "github.com/gin-gonic/gin"

	domainactor "stayledger/internal/domain/actor"
	domainbooking "stayledger/internal/domain/booking"
	domaincoupon "stayledger/internal/domain/coupon"
	domainledger "stayledger/internal/domain/ledger"
	domainlisting "stayledger/internal/domain/listing"
)

// statusForError maps domain failures onto HTTP status codes: missing
// aggregates read as 404, ownership violations as 403, state conflicts
// and exhausted funds as 409, everything else as a 400 validation error.
func statusForError(err error) int {
	switch {
	case errors.Is(err, domainbooking.ErrBookingNotFound),
		errors.Is(err, domainlisting.ErrListingNotFound),
		errors.Is(err, domaincoupon.ErrCouponNotFound),
		errors.Is(err, domainactor.ErrActorNotFound):
		return http.StatusNotFound
	case errors.Is(err, domainbooking.ErrNotBookingOwner):
		return http.StatusForbidden
	case errors.Is(err, domainbooking.ErrDatesUnavailable),
		errors.Is(err, domainbooking.ErrCancelWindowClosed),
		errors.Is(err, domainbooking.ErrInvalidState),
		errors.Is(err, domaincoupon.ErrCouponUsed),
		errors.Is(err, domainledger.ErrInsufficientFunds),
		errors.Is(err, domainledger.ErrConcurrentUpdate):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func respondError(c *gin.Context, err error) {
	c.JSON(statusForError(err), gin.H{"error": err.Error()})
}
