package api

import (
	"net/http"

	"smart_parking/internal/api/handler"
	"smart_parking/internal/api/middleware"
	"smart_parking/internal/service"

	"github.com/gin-gonic/gin"
)

func SetupRouter(as *service.AuthService, ps *service.ParkingService, os *service.OptimizationService,
	authMw *middleware.AuthMiddleware, wsManager *handler.WebSocketManager) *gin.Engine {
	r := gin.Default()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "smart_parking"})
	})

	// WebSocket endpoint (không cần auth cho real-time connection)
	wsHandler := handler.NewWebSocketHandler(wsManager)
	r.GET("/ws", wsHandler.HandleWebSocket)

	authHandler := handler.NewAuthHandler(as)
	authRoutes := r.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
	}

	v1 := r.Group("/api/v1")
	v1.Use(authMw.Authenticate())
	{
		parkingH := handler.NewParkingHandler(ps)
		lotRoutes := v1.Group("/parking-lots")
		{
			lotRoutes.POST("", authMw.AuthorizeRole("admin"), parkingH.CreateParkingLot)
			lotRoutes.GET("", parkingH.GetParkingLots)
			lotRoutes.GET("/:id", parkingH.GetParkingLotByID)
			lotRoutes.GET("/:id/reservations", parkingH.GetReservationHistory)
			lotRoutes.GET("/:id/sensor-data", parkingH.GetRecentSensorData)
		}

		v1.POST("/predict-cost", parkingH.PredictCost)
		v1.POST("/reserve", parkingH.Reserve)
		v1.GET("/analytics", parkingH.GetAnalytics)

		sensorH := handler.NewSensorHandler(ps)
		v1.POST("/sensor-data", sensorH.ReceiveSensorData)

		optH := handler.NewOptimizationHandler(os)
		v1.POST("/optimize", authMw.AuthorizeRole("admin"), optH.RunOptimization)
	}
	return r
}
