package service

import (
	"context"
	"errors"
	"testing"

	"smart_parking/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRouteService trả về giá trị cố định hoặc lỗi, thay cho Distance Matrix.
type fakeRouteService struct {
	minutes float64
	err     error
}

func (f *fakeRouteService) Route(_ context.Context, _, _ domain.Location) (float64, error) {
	return f.minutes, f.err
}

var (
	mgRoad     = domain.Location{Lat: 12.9756, Lng: 77.6050}
	cubbonPark = domain.Location{Lat: 12.9763, Lng: 77.5929}
	mysore     = domain.Location{Lat: 12.2958, Lng: 76.6394} // ~140km từ Bengaluru
)

func TestHaversineDistance(t *testing.T) {
	assert.Zero(t, haversineDistance(mgRoad, mgRoad))

	// MG Road -> Cubbon Park khoảng 1.3km đường chim bay
	d := haversineDistance(mgRoad, cubbonPark)
	assert.InDelta(t, 1.3, d, 0.2)

	// Khoảng cách đối xứng
	assert.InDelta(t, d, haversineDistance(cubbonPark, mgRoad), 1e-9)
}

func TestDrivingTimeUsesRouteServiceWhenAvailable(t *testing.T) {
	est := NewDistanceEstimator(&fakeRouteService{minutes: 42})
	// Giá trị từ routing service được dùng nguyên, không clamp
	assert.Equal(t, 42.0, est.DrivingTime(context.Background(), mgRoad, mysore))
}

func TestDrivingTimeFallsBackOnRouteError(t *testing.T) {
	est := NewDistanceEstimator(&fakeRouteService{err: errors.New("quota exceeded")})

	// Cùng điểm: haversine 0 phút, clamp lên sàn 10
	assert.Equal(t, 10.0, est.DrivingTime(context.Background(), mgRoad, mgRoad))
}

func TestDrivingTimeFallbackClamps(t *testing.T) {
	est := NewDistanceEstimator(nil)
	ctx := context.Background()

	// Quãng ngắn: clamp lên sàn
	assert.Equal(t, 10.0, est.DrivingTime(ctx, mgRoad, cubbonPark))

	// Quãng ~140km ở 30km/h vượt xa trần 20 phút
	assert.Equal(t, 20.0, est.DrivingTime(ctx, mgRoad, mysore))

	// Quãng trung bình nằm trong biên thì giữ nguyên ước lượng
	midRange := domain.Location{Lat: 12.9056, Lng: 77.6050} // ~7.8km về phía nam
	minutes := est.DrivingTime(ctx, mgRoad, midRange)
	require.Greater(t, minutes, 10.0)
	require.Less(t, minutes, 20.0)
}

func TestWalkingTimeCappedAtTenMinutes(t *testing.T) {
	est := NewDistanceEstimator(nil)
	ctx := context.Background()

	assert.Zero(t, est.WalkingTime(ctx, mgRoad, mgRoad))

	// ~1.3km đi bộ 5km/h ~ 15.7 phút, cap về 10
	assert.Equal(t, 10.0, est.WalkingTime(ctx, mgRoad, cubbonPark))

	// Quãng ngắn dưới cap giữ nguyên
	nearby := domain.Location{Lat: 12.9776, Lng: 77.6050} // ~220m
	minutes := est.WalkingTime(ctx, mgRoad, nearby)
	require.Greater(t, minutes, 0.0)
	require.Less(t, minutes, 10.0)
}

func TestWalkingTimeIgnoresRouteService(t *testing.T) {
	// Routing chỉ dành cho driving; walking luôn dùng haversine
	est := NewDistanceEstimator(&fakeRouteService{minutes: 42})
	assert.Zero(t, est.WalkingTime(context.Background(), mgRoad, mgRoad))
}
