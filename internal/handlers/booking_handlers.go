package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/gyamfi-dev/tourmate-server/internal/helpers"
	"github.com/gyamfi-dev/tourmate-server/internal/models"
	"github.com/gyamfi-dev/tourmate-server/internal/services"
)

// GetStatusChanges runs one status-tracker poll cycle for a user: fetch the
// current booking snapshot, detect pending->terminal transitions not yet
// surfaced, and return them. The tracker itself never fails the request.
func GetStatusChanges(bookings models.BookingRepo, tracker *services.BookingStatusService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := helpers.StringTrim(c.Param("id"))
		snapshot, err := bookings.ListByUserID(c.Request.Context(), userID)
		if err != nil {
			c.JSON(500, models.ErrorResponse(err.Error()))
			return
		}

		events := tracker.DetectStatusChanges(c.Request.Context(), snapshot, userID)
		c.JSON(200, models.SuccessResponse(events, ""))
	}
}

// BaselineUser seeds status tracking for a user without reporting historical
// bookings as changes. Safe to call repeatedly.
func BaselineUser(bookings models.BookingRepo, tracker *services.BookingStatusService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := helpers.StringTrim(c.Param("id"))
		snapshot, err := bookings.ListByUserID(c.Request.Context(), userID)
		if err != nil {
			c.JSON(500, models.ErrorResponse(err.Error()))
			return
		}

		tracker.Initialize(c.Request.Context(), snapshot, userID)
		c.JSON(200, models.SuccessResponse(nil, "tracking baseline established"))
	}
}

// GetPendingBookings returns the pending bookings a guide has not been
// alerted about yet. Read-only: callers acknowledge via AckNotified after
// the alert went out.
func GetPendingBookings(bookings models.BookingRepo, tracker *services.NewBookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		guideID := helpers.StringTrim(c.Param("id"))
		snapshot, err := bookings.ListByGuideID(c.Request.Context(), guideID)
		if err != nil {
			c.JSON(500, models.ErrorResponse(err.Error()))
			return
		}

		fresh := tracker.DetectNewBookings(c.Request.Context(), snapshot, guideID)
		c.JSON(200, models.SuccessResponse(fresh, ""))
	}
}

func AckNotified(tracker *services.NewBookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		guideID := helpers.StringTrim(c.Param("id"))

		var reqBody struct {
			BookingIDs []string `json:"booking_ids" binding:"required"`
		}
		if err := c.ShouldBindJSON(&reqBody); err != nil {
			c.JSON(400, models.ErrorResponse("Invalid request body: "+err.Error()))
			return
		}

		ids := helpers.RemoveDuplicates(reqBody.BookingIDs)
		if err := tracker.MarkNotified(c.Request.Context(), ids, guideID); err != nil {
			c.JSON(500, models.ErrorResponse(err.Error()))
			return
		}
		c.JSON(200, models.SuccessResponse(nil, "bookings acknowledged"))
	}
}

// ClearTrackerHistory resets both trackers for an ID so the next poll
// behaves as first sight.
func ClearTrackerHistory(status *services.BookingStatusService, newBookings *services.NewBookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := helpers.StringTrim(c.Param("id"))

		if err := status.ClearHistory(c.Request.Context(), id); err != nil {
			c.JSON(500, models.ErrorResponse(err.Error()))
			return
		}
		if err := newBookings.ClearHistory(c.Request.Context(), id); err != nil {
			c.JSON(500, models.ErrorResponse(err.Error()))
			return
		}
		c.JSON(200, models.SuccessResponse(nil, "tracking history cleared"))
	}
}
