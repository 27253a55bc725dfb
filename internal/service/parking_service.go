package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"smart_parking/internal/domain"
	"smart_parking/internal/repository"

	"github.com/google/uuid"
	"gopkg.in/guregu/null.v4"
)

var ErrNoLotsAvailable = errors.New("không có bãi đỗ nào khả dụng")

// Clock tách time.Now ra để test được các timestamp trong outcome.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// Notifier đẩy cập nhật realtime cho dashboard. Best-effort: lỗi broadcast
// không bao giờ làm hỏng nghiệp vụ. Interface đặt ở đây để tránh circular
// dependency với package handler.
type Notifier interface {
	BroadcastReservation(n domain.ReservationUpdateNotification)
	BroadcastSensorUpdate(n domain.SensorUpdateNotification)
}

// DisplayNotifier đẩy trạng thái bãi xuống bảng hiển thị tại chỗ (AWS IoT).
type DisplayNotifier interface {
	PublishDisplayState(ctx context.Context, state domain.LotDisplayState) error
}

// ParkingService nối các mảnh lại: ranker chọn bãi rẻ nhất qua CostService,
// CRParkService quyết định đặt chỗ, LotStateStore giữ counter sống, còn các
// repository chỉ là persistence phía sau, không nằm trên đường quyết định.
type ParkingService struct {
	state       *LotStateStore
	costService *CostService
	crpark      *CRParkService
	clock       Clock

	lotRepo     repository.ParkingLotRepository
	resvRepo    repository.ReservationRepository
	sensorRepo  repository.SensorDataRepository
	notifier    Notifier        // có thể nil
	displays    DisplayNotifier // có thể nil
}

func NewParkingService(
	state *LotStateStore,
	costService *CostService,
	crpark *CRParkService,
	lotRepo repository.ParkingLotRepository,
	resvRepo repository.ReservationRepository,
	sensorRepo repository.SensorDataRepository,
	notifier Notifier,
	displays DisplayNotifier,
	clock Clock,
) *ParkingService {
	if clock == nil {
		clock = realClock{}
	}
	return &ParkingService{
		state:       state,
		costService: costService,
		crpark:      crpark,
		clock:       clock,
		lotRepo:     lotRepo,
		resvRepo:    resvRepo,
		sensorRepo:  sensorRepo,
		notifier:    notifier,
		displays:    displays,
	}
}

// GetLots trả về snapshot tất cả bãi, sắp theo lot_id.
func (s *ParkingService) GetLots(ctx context.Context) []domain.ParkingLot {
	return s.state.Snapshot()
}

// GetLot trả về một bãi từ state store; miss thì thử nạp lại từ DB (bãi được
// tạo bởi instance khác chẳng hạn) trước khi chịu thua.
func (s *ParkingService) GetLot(ctx context.Context, lotID string) (*domain.ParkingLot, error) {
	lot, err := s.state.Get(lotID)
	if err == nil {
		return &lot, nil
	}
	stored, repoErr := s.lotRepo.FindByLotID(ctx, lotID)
	if repoErr != nil {
		return nil, ErrLotNotFound
	}
	s.state.Put(*stored)
	lot, err = s.state.Get(lotID)
	if err != nil {
		return nil, err
	}
	return &lot, nil
}

// ReservationHistory trả về các reservation gần nhất của một bãi.
func (s *ParkingService) ReservationHistory(ctx context.Context, lotID string, limit int) ([]domain.Reservation, error) {
	if _, err := s.state.Get(lotID); err != nil {
		return nil, err
	}
	return s.resvRepo.FindByLotID(ctx, lotID, limit)
}

// RecentSensorData trả về các bản đo sensor gần nhất của một bãi.
func (s *ParkingService) RecentSensorData(ctx context.Context, lotID string, limit int) ([]domain.SensorData, error) {
	if _, err := s.state.Get(lotID); err != nil {
		return nil, err
	}
	return s.sensorRepo.FindRecentByLotID(ctx, lotID, limit)
}

// CreateParkingLot đăng ký bãi mới: ghi DB rồi đưa vào state store.
func (s *ParkingService) CreateParkingLot(ctx context.Context, dto domain.ParkingLotDTO) (*domain.ParkingLot, error) {
	pa := dto.Pa
	if pa <= 0 || pa > 1 {
		pa = DefaultPa
	}
	tdl := dto.Tdl
	if tdl <= 0 {
		tdl = DefaultTdl
	}
	lot := &domain.ParkingLot{
		LotID:         dto.LotID,
		Name:          dto.Name,
		Address:       dto.Address,
		Location:      dto.Location,
		TotalSlots:    dto.TotalSlots,
		ReservedSlots: dto.ReservedSlots,
		HourlyRate:    dto.HourlyRate,
		Pa:            pa,
		Rs:            0.2,
		Tdl:           tdl,
		AvailableR:    dto.ReservedSlots,
	}
	lot.CompetitiveSlots = lot.TotalSlots - lot.ReservedSlots

	created, err := s.lotRepo.Create(ctx, lot)
	if err != nil {
		return nil, err
	}
	s.state.Put(*created)
	return created, nil
}

// PredictCost đánh giá CostService trên mọi bãi trong snapshot và chọn bãi có
// total_cost thấp nhất; hòa thì lấy lot_id nhỏ nhất cho kết quả tái lập được.
// Bãi tính lỗi thì bỏ qua và log, không làm hỏng cả lượt xếp hạng.
func (s *ParkingService) PredictCost(ctx context.Context, req domain.ParkingRequest) (*domain.PredictCostResponse, error) {
	if err := validateLocation(req.CurrentLocation); err != nil {
		return nil, err
	}
	if err := validateLocation(req.Destination); err != nil {
		return nil, err
	}

	lots := s.state.Snapshot()
	if len(lots) == 0 {
		return nil, ErrNoLotsAvailable
	}

	costs := make(map[string]domain.CostBreakdown, len(lots))
	names := make(map[string]string, len(lots))
	bestLotID := ""
	for _, lot := range lots {
		breakdown, err := s.costService.EstimateCost(ctx, req, lot)
		if err != nil {
			log.Printf("Bỏ qua bãi %s khi xếp hạng: %v", lot.LotID, err)
			continue
		}
		costs[lot.LotID] = breakdown
		names[lot.LotID] = lot.Name
		// Snapshot đã sắp theo lot_id nên so sánh chặt là đủ để tie-break ổn định.
		if bestLotID == "" || breakdown.TotalCost < costs[bestLotID].TotalCost {
			bestLotID = lot.LotID
		}
	}

	if len(costs) == 0 {
		return nil, ErrNoLotsAvailable
	}

	return &domain.PredictCostResponse{
		OptimalLot: bestLotID,
		Currency:   "INR",
		Costs:      costs,
		Recommendation: domain.LotRecommendation{
			LotID:         bestLotID,
			LotName:       names[bestLotID],
			EstimatedCost: costs[bestLotID].TotalCost,
		},
	}, nil
}

// Reserve chạy giao thức CRPark cho một bãi rồi đối soát trạng thái: outcome
// loại R được chấp nhận sẽ chuyển một slot cạnh tranh sang pool reserved.
// Ghi log reservation và broadcast đều là best-effort sau khi đã có outcome.
func (s *ParkingService) Reserve(ctx context.Context, dto domain.ReservationRequestDTO) (*domain.ReservationResponse, error) {
	if dto.LotID == "" {
		return nil, fmt.Errorf("thiếu lot_id")
	}

	firstRequest := dto.IsFirstRequest()
	outcome := s.crpark.ProcessReservation(dto.LotID, firstRequest)
	now := s.clock.Now()
	reservationID := "resv-" + uuid.NewString()

	if updated, err := s.state.ApplyReservationOutcome(dto.LotID, outcome); err == nil {
		s.persistCounters(ctx, updated)
	} else if !errors.Is(err, ErrLotNotFound) {
		log.Printf("Lỗi áp dụng outcome cho bãi %s: %v", dto.LotID, err)
	}

	resv := &domain.Reservation{
		ReservationID: reservationID,
		LotID:         dto.LotID,
		FirstRequest:  firstRequest,
		Accepted:      outcome.Accepted,
		SlotType:      outcome.SlotType,
		Pa:            outcome.Pa,
		Tdl:           outcome.Tdl,
	}
	if dto.UserID != "" {
		resv.UserID = null.StringFrom(dto.UserID)
	}
	if _, err := s.resvRepo.Create(ctx, resv); err != nil {
		log.Printf("Lỗi lưu reservation %s: %v", reservationID, err)
	}

	s.notifyReservation(reservationID, dto.LotID, outcome, now)

	return &domain.ReservationResponse{
		ReservationID: reservationID,
		LotID:         dto.LotID,
		Outcome:       outcome,
		Timestamp:     now,
	}, nil
}

// ApplySensorReading cập nhật occupancy từ một lần đo, lưu bản ghi thô và
// broadcast trạng thái mới. Bãi lạ trả về ErrLotNotFound cho caller.
func (s *ParkingService) ApplySensorReading(ctx context.Context, reading domain.SensorReading) (*domain.ParkingLot, error) {
	if reading.Status != domain.SensorStatusFree && reading.Status != domain.SensorStatusOccupied {
		return nil, fmt.Errorf("trạng thái sensor không hợp lệ: '%s'", reading.Status)
	}

	updated, err := s.state.ApplySensorReading(reading)
	if err != nil {
		return nil, err
	}
	s.persistCounters(ctx, updated)

	ts, err := time.Parse(time.RFC3339Nano, reading.Timestamp)
	if err != nil {
		if reading.Timestamp != "" {
			log.Printf("Lỗi parse timestamp sensor '%s': %v. Sử dụng thời gian hiện tại.", reading.Timestamp, err)
		}
		ts = s.clock.Now()
	}
	data := &domain.SensorData{
		SlotID:    reading.SlotID,
		LotID:     reading.LotID,
		Distance:  reading.Distance,
		Status:    reading.Status,
		Timestamp: ts.UTC(),
	}
	if err := s.sensorRepo.Create(ctx, data); err != nil {
		log.Printf("Lỗi lưu sensor reading cho bãi %s: %v", reading.LotID, err)
	}

	s.notifySensorUpdate(updated)
	return &updated, nil
}

// Analytics tổng hợp utilization/efficiency hiện tại của từng bãi.
func (s *ParkingService) Analytics(ctx context.Context) map[string]domain.LotAnalytics {
	analytics := make(map[string]domain.LotAnalytics)
	for _, lot := range s.state.Snapshot() {
		utilization := 0.0
		if lot.TotalSlots > 0 {
			utilization = lot.Utilization()
		}
		analytics[lot.LotID] = domain.LotAnalytics{
			Name:        lot.Name,
			Utilization: round2(utilization),
			Efficiency:  round2(utilization * lot.Pa),
			Pa:          lot.Pa,
			Rs:          lot.Rs,
			HourlyRate:  lot.HourlyRate,
		}
	}
	return analytics
}

// persistCounters ghi counter mới nhất xuống DB, ngoài critical section.
func (s *ParkingService) persistCounters(ctx context.Context, lot domain.ParkingLot) {
	err := s.lotRepo.UpdateCounters(ctx, lot.LotID, lot.OccupiedSlots, lot.ReservedSlots, lot.CompetitiveSlots, lot.UpdatedAt)
	if err != nil {
		log.Printf("Lỗi lưu counter bãi %s: %v", lot.LotID, err)
	}
}

func (s *ParkingService) notifyReservation(reservationID, lotID string, outcome domain.ReservationOutcome, ts time.Time) {
	if s.notifier != nil {
		s.notifier.BroadcastReservation(domain.ReservationUpdateNotification{
			Type:          "reservation_update",
			ReservationID: reservationID,
			LotID:         lotID,
			Accepted:      outcome.Accepted,
			SlotType:      outcome.SlotType,
			Pa:            outcome.Pa,
			Tdl:           outcome.Tdl,
			Timestamp:     ts.Format(time.RFC3339),
		})
	}
	s.publishDisplay(lotID)
}

func (s *ParkingService) notifySensorUpdate(lot domain.ParkingLot) {
	if s.notifier != nil {
		s.notifier.BroadcastSensorUpdate(domain.SensorUpdateNotification{
			Type:             "sensor_update",
			LotID:            lot.LotID,
			OccupiedSlots:    lot.OccupiedSlots,
			CompetitiveSlots: lot.CompetitiveSlots,
			Timestamp:        lot.UpdatedAt.Format(time.RFC3339),
		})
	}
	s.publishDisplay(lot.LotID)
}

// publishDisplay bắn trạng thái bãi xuống bảng LED, fire-and-forget: chạy
// goroutine riêng với timeout, lỗi chỉ log.
func (s *ParkingService) publishDisplay(lotID string) {
	if s.displays == nil {
		return
	}
	lot, err := s.state.Get(lotID)
	if err != nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		state := domain.LotDisplayState{
			LotID:            lot.LotID,
			TotalSlots:       lot.TotalSlots,
			OccupiedSlots:    lot.OccupiedSlots,
			ReservedSlots:    lot.ReservedSlots,
			CompetitiveSlots: lot.CompetitiveSlots,
			UpdatedAt:        lot.UpdatedAt.Format(time.RFC3339),
		}
		if err := s.displays.PublishDisplayState(ctx, state); err != nil {
			log.Printf("Lỗi publish display state cho bãi %s: %v", lot.LotID, err)
		}
	}()
}
