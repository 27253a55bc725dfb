package handler

import (
	"errors"
	"net/http"

	"smart_parking/internal/domain"
	"smart_parking/internal/service"

	"github.com/gin-gonic/gin"
)

type SensorHandler struct {
	parkingService *service.ParkingService
}

func NewSensorHandler(ps *service.ParkingService) *SensorHandler {
	return &SensorHandler{parkingService: ps}
}

// POST /sensor-data — đường API cho cảm biến, song song với đường SQS.
func (h *SensorHandler) ReceiveSensorData(c *gin.Context) {
	var reading domain.SensorReading
	if err := c.ShouldBindJSON(&reading); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lot, err := h.parkingService.ApplySensorReading(c.Request.Context(), reading)
	if err != nil {
		if errors.Is(err, service.ErrLotNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy bãi đỗ xe"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Không thể xử lý sensor reading", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":            "success",
		"lot_id":            lot.LotID,
		"occupied_slots":    lot.OccupiedSlots,
		"competitive_slots": lot.CompetitiveSlots,
	})
}
