package handler

import (
	"errors"
	"net/http"
	"strconv"

	"smart_parking/internal/domain"
	"smart_parking/internal/repository"
	"smart_parking/internal/service"

	"github.com/gin-gonic/gin"
)

type ParkingHandler struct {
	parkingService *service.ParkingService
}

func NewParkingHandler(ps *service.ParkingService) *ParkingHandler {
	return &ParkingHandler{parkingService: ps}
}

// GET /parking-lots
func (h *ParkingHandler) GetParkingLots(c *gin.Context) {
	lots := h.parkingService.GetLots(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"count":    len(lots),
		"currency": "INR",
		"lots":     lots,
	})
}

// GET /parking-lots/:id
func (h *ParkingHandler) GetParkingLotByID(c *gin.Context) {
	lot, err := h.parkingService.GetLot(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy bãi đỗ xe"})
		return
	}
	c.JSON(http.StatusOK, lot)
}

// GET /parking-lots/:id/reservations
func (h *ParkingHandler) GetReservationHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	reservations, err := h.parkingService.ReservationHistory(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		if errors.Is(err, service.ErrLotNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy bãi đỗ xe"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi truy vấn lịch sử reservation"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"lot_id": c.Param("id"), "count": len(reservations), "reservations": reservations})
}

// GET /parking-lots/:id/sensor-data
func (h *ParkingHandler) GetRecentSensorData(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	readings, err := h.parkingService.RecentSensorData(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		if errors.Is(err, service.ErrLotNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy bãi đỗ xe"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi truy vấn dữ liệu sensor"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"lot_id": c.Param("id"), "count": len(readings), "readings": readings})
}

// POST /parking-lots (admin)
func (h *ParkingHandler) CreateParkingLot(c *gin.Context) {
	var dto domain.ParkingLotDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lot, err := h.parkingService.CreateParkingLot(c.Request.Context(), dto)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể tạo bãi đỗ xe", "details": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, lot)
}

// POST /predict-cost
func (h *ParkingHandler) PredictCost(c *gin.Context) {
	var req domain.ParkingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.DurationMinutes <= 0 {
		req.DurationMinutes = 60
	}

	result, err := h.parkingService.PredictCost(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrNoLotsAvailable) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Không có bãi đỗ nào khả dụng"})
			return
		}
		if errors.Is(err, service.ErrInvalidCoordinates) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi tính chi phí", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// POST /reserve
func (h *ParkingHandler) Reserve(c *gin.Context) {
	var dto domain.ReservationRequestDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if dto.LotID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Thiếu lot_id"})
		return
	}

	result, err := h.parkingService.Reserve(c.Request.Context(), dto)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi xử lý reservation", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// GET /analytics
func (h *ParkingHandler) GetAnalytics(c *gin.Context) {
	c.JSON(http.StatusOK, h.parkingService.Analytics(c.Request.Context()))
}
