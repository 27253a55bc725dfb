package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsgo_config "github.com/aws/aws-sdk-go-v2/config" // Alias để tránh trùng tên
	"github.com/aws/aws-sdk-go-v2/service/iotdataplane"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"smart_parking/internal/api"
	"smart_parking/internal/api/handler"
	"smart_parking/internal/api/middleware"
	"smart_parking/internal/config"
	"smart_parking/internal/iot"
	"smart_parking/internal/repository/postgresql"
	"smart_parking/internal/service"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()
	log.Println("Cấu hình đã được tải.")

	// 2. Setup Database Connection
	db, err := postgresql.NewDB(cfg)
	if err != nil {
		log.Fatalf("Không thể kết nối database: %v", err)
	}
	defer db.Close()
	log.Println("Đã kết nối database thành công!")

	ctx := context.Background()
	if err := postgresql.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("Không thể khởi tạo schema: %v", err)
	}

	// 3. Khởi tạo AWS SDK Config
	awsSDKCfg, err := awsgo_config.LoadDefaultConfig(context.TODO(), awsgo_config.WithRegion(cfg.AWSRegion))
	if err != nil {
		log.Fatalf("Không thể tải AWS SDK config: %v", err)
	}
	log.Println("Đã tải AWS SDK config thành công cho region:", cfg.AWSRegion)

	// 4. Khởi tạo AWS Clients
	sqsClient := sqs.NewFromConfig(awsSDKCfg)
	iotDataPlaneClient := iotdataplane.NewFromConfig(awsSDKCfg, func(o *iotdataplane.Options) {
		if cfg.IoTMQTTEndpoint != "" {
			endpointWithSchema := cfg.IoTMQTTEndpoint
			if !strings.HasPrefix(endpointWithSchema, "https://") && !strings.HasPrefix(endpointWithSchema, "http://") {
				endpointWithSchema = "https://" + endpointWithSchema
			}
			o.BaseEndpoint = aws.String(endpointWithSchema)
		}
	})
	log.Println("Đã khởi tạo SQS client và IoT Data Plane client.")

	// 5. Initialize Repositories
	userRepo := postgresql.NewPgUserRepository(db)
	parkingLotRepo := postgresql.NewPgParkingLotRepository(db)
	reservationRepo := postgresql.NewPgReservationRepository(db)
	sensorDataRepo := postgresql.NewPgSensorDataRepository(db)

	if err := postgresql.SeedDemoLots(ctx, parkingLotRepo); err != nil {
		log.Printf("Cảnh báo: Không thể seed dữ liệu bãi đỗ mẫu: %v", err)
	}

	// 6. Nạp trạng thái bãi đỗ từ DB vào state store trong bộ nhớ
	lotState := service.NewLotStateStore()
	lots, err := parkingLotRepo.FindAll(ctx)
	if err != nil {
		log.Fatalf("Không thể tải danh sách bãi đỗ: %v", err)
	}
	lotState.Load(lots)
	log.Printf("Đã nạp %d bãi đỗ vào state store.", len(lots))

	// init websocket manager
	webSocketManager := handler.NewWebSocketManager()
	go webSocketManager.Start()
	log.Println("WebSocket Manager đã được khởi động.")

	// 7. Initialize Services
	authService := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTExpirationHours)

	var routeService service.RouteService
	if cfg.GoogleMapsAPIKey != "" {
		routeService = service.NewGoogleRouteService(cfg.GoogleMapsAPIKey)
	} else {
		log.Println("CẢNH BÁO: GOOGLE_MAPS_API_KEY chưa được cấu hình. Luôn dùng ước lượng haversine.")
	}
	distanceEstimator := service.NewDistanceEstimator(routeService)

	rates := service.CostRates{Drive: cfg.DriveCostRate, Walk: cfg.WalkCostRate, Wait: cfg.WaitCostRate}
	costService := service.NewCostService(distanceEstimator, nil, rates)

	randomSource := service.NewRandomSource()
	crparkService := service.NewCRParkService(lotState, randomSource)

	displayPublisher := iot.NewDisplayPublisher(iotDataPlaneClient)
	parkingService := service.NewParkingService(lotState, costService, crparkService,
		parkingLotRepo, reservationRepo, sensorDataRepo, webSocketManager, displayPublisher, nil)

	optimizationService := service.NewOptimizationService(lotState, parkingLotRepo, randomSource, nil)

	// 8. Initialize Auth Middleware
	authMiddleware := middleware.NewAuthMiddleware(authService)

	// 9. Khởi tạo và Chạy SQS Consumer
	var wg sync.WaitGroup
	consumerCtx, cancelConsumer := context.WithCancel(context.Background())

	if cfg.SQSSensorQueueURL == "" {
		log.Println("CẢNH BÁO: SQS_SENSOR_QUEUE_URL chưa được cấu hình. SQS Consumer sẽ không chạy.")
	} else {
		sqsConsumer := iot.NewSQSConsumer(sqsClient, cfg, parkingService)
		wg.Add(1)
		go func() {
			defer wg.Done()
			sqsConsumer.Start(consumerCtx)
			log.Println("SQS Consumer đã dừng.")
		}()
	}

	// 10. Chạy optimizer định kỳ nếu được cấu hình
	if cfg.OptimizeIntervalMinutes > 0 {
		go optimizationService.StartPeriodic(consumerCtx, time.Duration(cfg.OptimizeIntervalMinutes)*time.Minute)
		log.Printf("Optimizer định kỳ đã được bật, chu kỳ %d phút.", cfg.OptimizeIntervalMinutes)
	}

	// 11. Setup HTTP Router
	router := api.SetupRouter(authService, parkingService, optimizationService, authMiddleware, webSocketManager)

	// 12. Start HTTP Server
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		log.Printf("Server đang chạy trên port %s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Lỗi ListenAndServe(): %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Đang tắt server...")

	cancelConsumer()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server buộc phải tắt: %v", err)
	}

	if cfg.SQSSensorQueueURL != "" {
		log.Println("Đang chờ SQS consumer dừng (tối đa 5 giây)...")
		c := make(chan struct{})
		go func() {
			defer close(c)
			wg.Wait()
		}()
		select {
		case <-c:
			log.Println("SQS consumer đã dừng hoàn toàn.")
		case <-time.After(5 * time.Second):
			log.Println("SQS consumer không dừng trong thời gian chờ.")
		}
	}

	log.Println("Server đã tắt.")
}
