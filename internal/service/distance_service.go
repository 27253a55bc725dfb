package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"net/url"
	"smart_parking/internal/domain"
	"time"
)

const (
	earthRadiusKm   = 6371.0
	avgDriveSpeedKm = 30.0 // km/h khi không gọi được dịch vụ routing
	avgWalkSpeedKm  = 5.0  // km/h đi bộ

	minDriveMinutes = 10.0
	maxDriveMinutes = 20.0
	maxWalkMinutes  = 10.0
)

// RouteService trả về thời gian di chuyển (phút) giữa hai tọa độ.
// nil RouteService nghĩa là không có dịch vụ ngoài, estimator sẽ luôn fallback.
type RouteService interface {
	Route(ctx context.Context, origin, dest domain.Location) (float64, error)
}

// googleRouteService gọi Google Distance Matrix API.
type googleRouteService struct {
	apiKey     string
	httpClient *http.Client
}

func NewGoogleRouteService(apiKey string) RouteService {
	return &googleRouteService{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

type distanceMatrixResponse struct {
	Status string `json:"status"`
	Rows   []struct {
		Elements []struct {
			Status   string `json:"status"`
			Duration struct {
				Value int `json:"value"` // giây
			} `json:"duration"`
		} `json:"elements"`
	} `json:"rows"`
}

func (g *googleRouteService) Route(ctx context.Context, origin, dest domain.Location) (float64, error) {
	params := url.Values{}
	params.Set("origins", fmt.Sprintf("%f,%f", origin.Lat, origin.Lng))
	params.Set("destinations", fmt.Sprintf("%f,%f", dest.Lat, dest.Lng))
	params.Set("mode", "driving")
	params.Set("key", g.apiKey)

	reqURL := "https://maps.googleapis.com/maps/api/distancematrix/json?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, fmt.Errorf("lỗi tạo request distance matrix: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("lỗi gọi distance matrix: %w", err)
	}
	defer resp.Body.Close()

	var body distanceMatrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("lỗi decode distance matrix response: %w", err)
	}
	if body.Status != "OK" || len(body.Rows) == 0 || len(body.Rows[0].Elements) == 0 {
		return 0, fmt.Errorf("distance matrix trả về status '%s'", body.Status)
	}
	element := body.Rows[0].Elements[0]
	if element.Status != "OK" {
		return 0, fmt.Errorf("distance matrix element status '%s'", element.Status)
	}
	return float64(element.Duration.Value) / 60.0, nil
}

// DistanceEstimator quy đổi hai tọa độ ra phút lái xe / đi bộ.
// Đường chính đi qua RouteService; mọi lỗi đều được nuốt và rơi về haversine,
// nên hai hàm ước lượng không bao giờ trả lỗi.
type DistanceEstimator struct {
	routes RouteService // có thể nil
}

func NewDistanceEstimator(routes RouteService) *DistanceEstimator {
	return &DistanceEstimator{routes: routes}
}

func (e *DistanceEstimator) DrivingTime(ctx context.Context, origin, lot domain.Location) float64 {
	if e.routes != nil {
		minutes, err := e.routes.Route(ctx, origin, lot)
		if err == nil {
			return minutes
		}
		log.Printf("Cảnh báo: dịch vụ routing lỗi, dùng haversine fallback: %v", err)
	}
	distanceKm := haversineDistance(origin, lot)
	minutes := distanceKm / avgDriveSpeedKm * 60.0
	return clamp(minutes, minDriveMinutes, maxDriveMinutes)
}

func (e *DistanceEstimator) WalkingTime(_ context.Context, lot, destination domain.Location) float64 {
	distanceKm := haversineDistance(lot, destination)
	minutes := distanceKm / avgWalkSpeedKm * 60.0
	return math.Min(minutes, maxWalkMinutes)
}

// haversineDistance trả về khoảng cách vòng lớn (km) giữa hai điểm.
func haversineDistance(a, b domain.Location) float64 {
	dlat := toRadians(b.Lat - a.Lat)
	dlng := toRadians(b.Lng - a.Lng)
	h := math.Pow(math.Sin(dlat/2), 2) +
		math.Cos(toRadians(a.Lat))*math.Cos(toRadians(b.Lat))*math.Pow(math.Sin(dlng/2), 2)
	c := 2 * math.Asin(math.Sqrt(h))
	return earthRadiusKm * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
