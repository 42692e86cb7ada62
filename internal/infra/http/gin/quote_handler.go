package ginserver

import (
	"net/http"
	"strconv"
	"time"

	gin "github.com/gin-gonic/gin"

	quotesapp "stayledger/internal/app/handlers/quotes"
	"stayledger/internal/app/queries"
)

type QuoteHandler struct {
	Queries queries.Bus
}

func (h QuoteHandler) Get(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	if h.Queries == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queries unavailable"})
		return
	}
	checkIn, err := time.Parse(time.RFC3339, c.Query("check_in"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "check_in must be RFC3339"})
		return
	}
	checkOut, err := time.Parse(time.RFC3339, c.Query("check_out"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "check_out must be RFC3339"})
		return
	}
	guests, err := strconv.Atoi(c.DefaultQuery("guests", "1"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "guests must be a number"})
		return
	}
	query := quotesapp.GetQuoteQuery{
		ListingID: c.Query("listing_id"),
		GuestID:   user.ID,
		CheckIn:   checkIn,
		CheckOut:  checkOut,
		Guests:    guests,
		CouponID:  c.Query("coupon_id"),
	}
	result, err := queries.Ask[quotesapp.GetQuoteQuery, *quotesapp.GetQuoteResult](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ QuoteHTTP = QuoteHandler{}
