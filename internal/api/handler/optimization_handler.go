package handler

import (
	"net/http"

	"smart_parking/internal/service"

	"github.com/gin-gonic/gin"
)

type OptimizationHandler struct {
	optimizationService *service.OptimizationService
}

func NewOptimizationHandler(os *service.OptimizationService) *OptimizationHandler {
	return &OptimizationHandler{optimizationService: os}
}

// POST /optimize (admin) — chạy một vòng tối ưu Pa/Rs ngay lập tức.
func (h *OptimizationHandler) RunOptimization(c *gin.Context) {
	result := h.optimizationService.Run(c.Request.Context())
	c.JSON(http.StatusOK, result)
}
