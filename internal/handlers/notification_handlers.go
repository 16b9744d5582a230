package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/gyamfi-dev/tourmate-server/internal/models"
	"github.com/gyamfi-dev/tourmate-server/internal/services"
)

func ListNotifications(gw *services.RealtimeNotificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		audience, err := models.ParseAudience(c.Param("audience"))
		if err != nil {
			c.JSON(400, models.ErrorResponse(err.Error()))
			return
		}
		recipient := c.Query("recipient")
		if recipient == "" {
			c.JSON(400, models.ErrorResponse("recipient query parameter is required"))
			return
		}

		records, err := gw.ListNotifications(c.Request.Context(), audience, recipient)
		if err != nil {
			c.JSON(500, models.ErrorResponse(err.Error()))
			return
		}
		c.JSON(200, models.SuccessResponse(records, ""))
	}
}

func PublishNotification(gw *services.RealtimeNotificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		audience, err := models.ParseAudience(c.Param("audience"))
		if err != nil {
			c.JSON(400, models.ErrorResponse(err.Error()))
			return
		}

		var input models.PublishInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, models.ErrorResponse("Invalid request body: "+err.Error()))
			return
		}

		record, err := gw.Publish(c.Request.Context(), audience, input)
		if err != nil {
			// Publish failures are surfaced as a structured result so the
			// business-event initiator can decide whether to retry.
			c.JSON(502, models.ErrorResponse(err.Error()))
			return
		}
		c.JSON(201, models.SuccessResponse(record, "notification published"))
	}
}

func MarkNotificationRead(gw *services.RealtimeNotificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		audience, err := models.ParseAudience(c.Param("audience"))
		if err != nil {
			c.JSON(400, models.ErrorResponse(err.Error()))
			return
		}

		if err := gw.MarkRead(c.Request.Context(), audience, c.Param("id")); err != nil {
			c.JSON(500, models.ErrorResponse(err.Error()))
			return
		}
		c.JSON(200, models.SuccessResponse(nil, "notification marked as read"))
	}
}

func DeleteNotification(gw *services.RealtimeNotificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		audience, err := models.ParseAudience(c.Param("audience"))
		if err != nil {
			c.JSON(400, models.ErrorResponse(err.Error()))
			return
		}

		if err := gw.DeleteRecord(c.Request.Context(), audience, c.Param("id")); err != nil {
			c.JSON(500, models.ErrorResponse(err.Error()))
			return
		}
		c.JSON(200, models.SuccessResponse(nil, "notification deleted"))
	}
}

// StreamNotifications exposes the gateway subscription as a server-sent
// event stream. Every feed change pushes the recipient's full record list.
func StreamNotifications(gw *services.RealtimeNotificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		audience, err := models.ParseAudience(c.Param("audience"))
		if err != nil {
			c.JSON(400, models.ErrorResponse(err.Error()))
			return
		}
		recipient := c.Query("recipient")
		if recipient == "" {
			c.JSON(400, models.ErrorResponse("recipient query parameter is required"))
			return
		}

		updates := make(chan []*models.NotificationRecord, 1)
		unsubscribe := gw.Subscribe(audience, recipient, func(records []*models.NotificationRecord) {
			// Keep only the latest pending update; the stream always sends
			// the full list, so intermediate states are redundant.
			select {
			case updates <- records:
			default:
				select {
				case <-updates:
				default:
				}
				updates <- records
			}
		})
		defer unsubscribe()

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")

		for {
			select {
			case <-c.Request.Context().Done():
				return
			case records := <-updates:
				c.SSEvent("notifications", records)
				c.Writer.Flush()
			}
		}
	}
}
