package service

import (
	"context"
	"log"
	"time"

	"smart_parking/internal/repository"
)

// OptimizationService là optimizer SA-VNS dạng mô phỏng: sinh lại (Pa, Rs)
// cho từng bãi trong biên an toàn rồi áp vào state sống và DB. Giao thức
// CRPark chỉ đọc Pa, không bao giờ tự cập nhật; đây là nơi duy nhất ghi nó.
type OptimizationService struct {
	state   *LotStateStore
	lotRepo repository.ParkingLotRepository
	random  RandomSource
	clock   Clock
}

type OptimizationResult struct {
	Timestamp  time.Time                `json:"timestamp"`
	Parameters map[string]LotParameters `json:"parameters"`
	Status     string                   `json:"status"`
}

type LotParameters struct {
	Pa float64 `json:"pa_i"`
	Rs float64 `json:"rs_i"`
}

func NewOptimizationService(state *LotStateStore, lotRepo repository.ParkingLotRepository, random RandomSource, clock Clock) *OptimizationService {
	if random == nil {
		random = NewRandomSource()
	}
	if clock == nil {
		clock = realClock{}
	}
	return &OptimizationService{state: state, lotRepo: lotRepo, random: random, clock: clock}
}

// Run sinh tham số mới cho mọi bãi hiện có: pa_i trong [0.6,0.9], rs_i trong
// [0.1,0.3], làm tròn 2 chữ số. Lỗi ghi DB chỉ log, state sống vẫn được cập nhật.
func (s *OptimizationService) Run(ctx context.Context) OptimizationResult {
	params := make(map[string]LotParameters)
	for _, lot := range s.state.Snapshot() {
		pa := round2(clamp(0.6+s.random.Uniform()*0.3, 0, 1))
		rs := round2(clamp(0.1+s.random.Uniform()*0.2, 0, 1))

		if err := s.state.UpdateParams(lot.LotID, pa, rs); err != nil {
			log.Printf("Optimizer: lỗi cập nhật state bãi %s: %v", lot.LotID, err)
			continue
		}
		if err := s.lotRepo.UpdateParams(ctx, lot.LotID, pa, rs); err != nil {
			log.Printf("Optimizer: lỗi lưu tham số bãi %s: %v", lot.LotID, err)
		}
		params[lot.LotID] = LotParameters{Pa: pa, Rs: rs}
	}

	log.Printf("Optimizer: đã sinh tham số mới cho %d bãi", len(params))
	return OptimizationResult{
		Timestamp:  s.clock.Now(),
		Parameters: params,
		Status:     "completed",
	}
}

// StartPeriodic chạy Run theo chu kỳ cho tới khi context bị hủy.
func (s *OptimizationService) StartPeriodic(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Println("Optimizer: context cancelled, dừng chu kỳ tối ưu.")
			return
		case <-ticker.C:
			s.Run(ctx)
		}
	}
}
