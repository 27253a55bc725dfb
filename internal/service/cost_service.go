package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"smart_parking/internal/domain"
)

var ErrInvalidCoordinates = errors.New("tọa độ không hợp lệ")
var ErrInvalidTotalSlots = errors.New("total_slots phải lớn hơn 0")

const (
	maxTotalCost    = 200.0 // trần chi phí, chặn input bệnh lý
	minWaitMinutes  = 2.0
	maxWaitMinutes  = 8.0
	baseWaitMinutes = 3.0
)

// WaitTimeEstimator ước lượng thời gian chờ (phút) theo utilization [0,1].
// Triển khai mặc định là công thức chặn biên; một model dự báo nhu cầu thật
// có thể thay vào đây mà không đổi contract của CostService.
type WaitTimeEstimator interface {
	EstimateWait(utilization float64) float64
}

// BoundedWaitEstimator: wait = clamp(3 + utilization*5, 2, 8)
type BoundedWaitEstimator struct{}

func (BoundedWaitEstimator) EstimateWait(utilization float64) float64 {
	return clamp(baseWaitMinutes+utilization*5.0, minWaitMinutes, maxWaitMinutes)
}

// CostRates là các hệ số quy đổi phút thành tiền (đơn vị tiền tệ / phút).
type CostRates struct {
	Drive float64
	Walk  float64
	Wait  float64
}

func DefaultCostRates() CostRates {
	return CostRates{Drive: 2.0, Walk: 0.5, Wait: 3.0}
}

// CostService tính chi phí kỳ vọng khi chọn một bãi: lái xe tới, đi bộ về đích,
// và thời gian chờ nếu phải cạnh tranh chỗ. Kết quả trộn theo Pa của bãi.
type CostService struct {
	distance *DistanceEstimator
	wait     WaitTimeEstimator
	rates    CostRates
}

func NewCostService(distance *DistanceEstimator, wait WaitTimeEstimator, rates CostRates) *CostService {
	if wait == nil {
		wait = BoundedWaitEstimator{}
	}
	return &CostService{distance: distance, wait: wait, rates: rates}
}

// EstimateCost là hàm thuần theo input và kết quả của DistanceEstimator:
// không có randomness nội bộ, gọi hai lần với cùng trạng thái cho cùng kết quả.
func (s *CostService) EstimateCost(ctx context.Context, req domain.ParkingRequest, lot domain.ParkingLot) (domain.CostBreakdown, error) {
	if err := validateLocation(req.CurrentLocation); err != nil {
		return domain.CostBreakdown{}, fmt.Errorf("current_location: %w", err)
	}
	if err := validateLocation(req.Destination); err != nil {
		return domain.CostBreakdown{}, fmt.Errorf("destination: %w", err)
	}
	if err := validateLocation(lot.Location); err != nil {
		return domain.CostBreakdown{}, fmt.Errorf("bãi %s: %w", lot.LotID, err)
	}
	if lot.TotalSlots <= 0 {
		return domain.CostBreakdown{}, fmt.Errorf("bãi %s: %w", lot.LotID, ErrInvalidTotalSlots)
	}

	drivingTime := s.distance.DrivingTime(ctx, req.CurrentLocation, lot.Location)
	walkingTime := s.distance.WalkingTime(ctx, lot.Location, req.Destination)
	waitingTime := s.wait.EstimateWait(lot.Utilization())

	reservationCost := lot.HourlyRate + drivingTime*s.rates.Drive + walkingTime*s.rates.Walk
	competitionCost := reservationCost + waitingTime*s.rates.Wait

	pa := lot.Pa
	totalCost := pa*reservationCost + (1-pa)*competitionCost
	totalCost = math.Min(totalCost, maxTotalCost)

	return domain.CostBreakdown{
		TotalCost:          round2(totalCost),
		DrivingTime:        round2(drivingTime),
		WalkingTime:        round2(walkingTime),
		WaitingTime:        round2(waitingTime),
		ReservationCost:    round2(reservationCost),
		CompetitionCost:    round2(competitionCost),
		SuccessProbability: pa,
	}, nil
}

func validateLocation(loc domain.Location) error {
	if loc.Lat < -90 || loc.Lat > 90 || loc.Lng < -180 || loc.Lng > 180 {
		return fmt.Errorf("%w: lat=%v, lng=%v", ErrInvalidCoordinates, loc.Lat, loc.Lng)
	}
	return nil
}

// round2 chỉ phục vụ trình bày; tính toán trung gian giữ full precision.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
