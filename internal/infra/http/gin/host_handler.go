package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"stayledger/internal/app/commands"
	bookingapp "stayledger/internal/app/handlers/booking"
	"stayledger/internal/app/queries"
)

type HostHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

func (h HostHandler) Approve(c *gin.Context) {
	user, ok := requireRole(c, "HOST")
	if !ok {
		return
	}
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	cmd := bookingapp.ApproveBookingCommand{BookingID: c.Param("id"), HostID: user.ID}
	result, err := commands.Dispatch[bookingapp.ApproveBookingCommand, *bookingapp.HostActionResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type declineBookingRequest struct {
	Reason string `json:"reason"`
}

func (h HostHandler) Decline(c *gin.Context) {
	user, ok := requireRole(c, "HOST")
	if !ok {
		return
	}
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	var req declineBookingRequest
	_ = c.ShouldBindJSON(&req)
	cmd := bookingapp.DeclineBookingCommand{BookingID: c.Param("id"), HostID: user.ID, Reason: req.Reason}
	result, err := commands.Dispatch[bookingapp.DeclineBookingCommand, *bookingapp.HostActionResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h HostHandler) ListBookings(c *gin.Context) {
	user, ok := requireRole(c, "HOST")
	if !ok {
		return
	}
	if h.Queries == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queries unavailable"})
		return
	}
	query := bookingapp.ListHostBookingsQuery{HostID: user.ID}
	result, err := queries.Ask[bookingapp.ListHostBookingsQuery, *bookingapp.ListBookingsResult](c.Request.Context(), h.Queries, query)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("host bookings query failed", "error", err, "host_id", user.ID)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load bookings"})
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ HostHTTP = HostHandler{}
