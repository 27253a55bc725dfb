package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort string
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string

	AWSRegion         string
	SQSSensorQueueURL string
	IoTMQTTEndpoint   string

	GoogleMapsAPIKey string // Để trống thì luôn dùng haversine fallback

	JWTSecret          string        // Secret key cho JWT
	JWTExpirationHours time.Duration // Thời gian hết hạn của JWT

	// Các hệ số chi phí của cost model (đơn vị tiền tệ / phút)
	DriveCostRate float64
	WalkCostRate  float64
	WaitCostRate  float64

	OptimizeIntervalMinutes int // Chu kỳ chạy tối ưu Pa/Rs, <= 0 thì tắt
}

func Load() *Config {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		log.Printf("Cảnh báo: Không thể tải file .env: %v", err)
	}

	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	jwtExpHours, _ := strconv.Atoi(getEnv("JWT_EXPIRATION_HOURS", "24")) // Mặc định 24 giờ
	optimizeInterval, _ := strconv.Atoi(getEnv("OPTIMIZE_INTERVAL_MINUTES", "0"))

	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     dbPort,
		DBUser:     getEnv("DB_USER", "youruser"),
		DBPassword: getEnv("DB_PASSWORD", "yourpassword"),
		DBName:     getEnv("DB_NAME", "smart_parking_db"),
		DBSslMode:  getEnv("DB_SSLMODE", "disable"),

		AWSRegion:         getEnv("AWS_REGION", "ap-southeast-1"),
		SQSSensorQueueURL: getEnv("SQS_SENSOR_QUEUE_URL", ""), // << ĐIỀN URL SQS QUEUE
		IoTMQTTEndpoint:   getEnv("IOT_MQTT_ENDPOINT", ""),    // << ĐIỀN AWS IOT ENDPOINT

		GoogleMapsAPIKey: getEnv("GOOGLE_MAPS_API_KEY", ""),

		JWTSecret:          getEnv("JWT_SECRET", "your-very-secret-key-for-jwt-!@#$"), // << THAY BẰNG SECRET KEY MẠNH HƠN
		JWTExpirationHours: time.Duration(jwtExpHours) * time.Hour,

		DriveCostRate: getEnvFloat("DRIVE_COST_RATE", 2.0),
		WalkCostRate:  getEnvFloat("WALK_COST_RATE", 0.5),
		WaitCostRate:  getEnvFloat("WAIT_COST_RATE", 3.0),

		OptimizeIntervalMinutes: optimizeInterval,
	}
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Biến môi trường '%s' không được đặt, sử dụng giá trị mặc định: '%s'", key, fallback)
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		log.Printf("Biến môi trường '%s' không phải số hợp lệ, sử dụng giá trị mặc định: %v", key, fallback)
	}
	return fallback
}
