package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"smart_parking/internal/domain"
	"smart_parking/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lotRepoStub struct {
	mu             sync.Mutex
	stored         map[string]domain.ParkingLot
	counterUpdates map[string]int
	paramUpdates   map[string][2]float64
}

func newLotRepoStub() *lotRepoStub {
	return &lotRepoStub{
		stored:         map[string]domain.ParkingLot{},
		counterUpdates: map[string]int{},
		paramUpdates:   map[string][2]float64{},
	}
}

func (s *lotRepoStub) Create(_ context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stored[lot.LotID] = *lot
	cp := *lot
	return &cp, nil
}

func (s *lotRepoStub) FindByLotID(_ context.Context, lotID string) (*domain.ParkingLot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lot, ok := s.stored[lotID]; ok {
		return &lot, nil
	}
	return nil, repository.ErrNotFound
}

func (s *lotRepoStub) FindAll(_ context.Context) ([]domain.ParkingLot, error) { return nil, nil }

func (s *lotRepoStub) UpdateCounters(_ context.Context, lotID string, _, _, _ int, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counterUpdates[lotID]++
	return nil
}

func (s *lotRepoStub) UpdateParams(_ context.Context, lotID string, pa, rs float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paramUpdates[lotID] = [2]float64{pa, rs}
	return nil
}

func (s *lotRepoStub) Count(_ context.Context) (int, error) { return 0, nil }

type resvRepoStub struct {
	mu      sync.Mutex
	created []domain.Reservation
}

func (s *resvRepoStub) Create(_ context.Context, resv *domain.Reservation) (*domain.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, *resv)
	return resv, nil
}

func (s *resvRepoStub) FindByReservationID(_ context.Context, _ string) (*domain.Reservation, error) {
	return nil, repository.ErrNotFound
}

func (s *resvRepoStub) FindByLotID(_ context.Context, _ string, _ int) ([]domain.Reservation, error) {
	return nil, nil
}

type sensorRepoStub struct {
	mu      sync.Mutex
	created []domain.SensorData
}

func (s *sensorRepoStub) Create(_ context.Context, data *domain.SensorData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, *data)
	return nil
}

func (s *sensorRepoStub) FindRecentByLotID(_ context.Context, _ string, _ int) ([]domain.SensorData, error) {
	return nil, nil
}

type notifierStub struct {
	mu           sync.Mutex
	reservations []domain.ReservationUpdateNotification
	sensors      []domain.SensorUpdateNotification
}

func (n *notifierStub) BroadcastReservation(v domain.ReservationUpdateNotification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reservations = append(n.reservations, v)
}

func (n *notifierStub) BroadcastSensorUpdate(v domain.SensorUpdateNotification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sensors = append(n.sensors, v)
}

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

type parkingFixture struct {
	state      *LotStateStore
	lotRepo    *lotRepoStub
	resvRepo   *resvRepoStub
	sensorRepo *sensorRepoStub
	notifier   *notifierStub
	svc        *ParkingService
}

func newParkingFixture(random RandomSource, routeMinutes float64) *parkingFixture {
	state := NewLotStateStore()
	lotRepo := newLotRepoStub()
	resvRepo := &resvRepoStub{}
	sensorRepo := &sensorRepoStub{}
	notifier := &notifierStub{}

	cost := NewCostService(NewDistanceEstimator(&fakeRouteService{minutes: routeMinutes}), nil, DefaultCostRates())
	crpark := NewCRParkService(state, random)
	clock := fixedClock(time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC))

	svc := NewParkingService(state, cost, crpark, lotRepo, resvRepo, sensorRepo, notifier, nil, clock)
	return &parkingFixture{state: state, lotRepo: lotRepo, resvRepo: resvRepo, sensorRepo: sensorRepo, notifier: notifier, svc: svc}
}

func TestPredictCostPicksCheapestLot(t *testing.T) {
	f := newParkingFixture(fixedRandom(0.5), 12)

	dest := domain.Location{Lat: 12.9756, Lng: 77.6050}
	expensive := newTestLot("lot_a")
	expensive.Location = dest
	expensive.TotalSlots, expensive.OccupiedSlots, expensive.ReservedSlots = 50, 25, 0
	expensive.HourlyRate, expensive.Pa = 100, 0.5

	cheap := expensive
	cheap.LotID = "lot_b"
	cheap.HourlyRate, cheap.Pa = 40, 0.95

	f.state.Put(expensive)
	f.state.Put(cheap)

	req := domain.ParkingRequest{
		CurrentLocation: domain.Location{Lat: 12.9352, Lng: 77.6245},
		Destination:     dest,
	}
	resp, err := f.svc.PredictCost(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "lot_b", resp.OptimalLot)
	assert.Equal(t, "INR", resp.Currency)
	require.Len(t, resp.Costs, 2)
	// lot_b: reservation = 40 + 12*2 = 64, wait = 5.5,
	// competition = 64 + 16.5 = 80.5, total = 0.95*64 + 0.05*80.5
	assert.Equal(t, 64.83, resp.Costs["lot_b"].TotalCost)
	assert.Equal(t, 132.25, resp.Costs["lot_a"].TotalCost)
	assert.Equal(t, "lot_b", resp.Recommendation.LotID)
	assert.Equal(t, 64.83, resp.Recommendation.EstimatedCost)
}

func TestPredictCostBlendBeatsDistance(t *testing.T) {
	// Không có route service: khoảng cách thật (haversine) quyết định drive/walk.
	state := NewLotStateStore()
	cost := NewCostService(NewDistanceEstimator(nil), nil, DefaultCostRates())
	crpark := NewCRParkService(state, fixedRandom(0.5))
	svc := NewParkingService(state, cost, crpark, newLotRepoStub(), &resvRepoStub{}, &sensorRepoStub{}, nil, nil, nil)

	origin := domain.Location{Lat: 12.9756, Lng: 77.6050}
	dest := domain.Location{Lat: 12.9756, Lng: 77.6150}

	// Bãi gần ngay destination nhưng Pa thấp
	near := newTestLot("lot_near")
	near.Location = dest
	near.TotalSlots, near.OccupiedSlots, near.ReservedSlots = 50, 20, 5
	near.Pa = 0.5

	// Bãi xa hơn (đi bộ thêm ~500m) nhưng Pa cao
	far := near
	far.LotID = "lot_far"
	far.Location = domain.Location{Lat: 12.9800, Lng: 77.6150}
	far.Pa = 0.95

	state.Put(near)
	state.Put(far)

	resp, err := svc.PredictCost(context.Background(), domain.ParkingRequest{
		CurrentLocation: origin,
		Destination:     dest,
	})
	require.NoError(t, err)
	assert.Equal(t, "lot_far", resp.OptimalLot,
		"chi phí trộn theo Pa phải thắng khoảng cách thuần")
	assert.Less(t, resp.Costs["lot_far"].TotalCost, resp.Costs["lot_near"].TotalCost)
	assert.Less(t, resp.Costs["lot_near"].WalkingTime, resp.Costs["lot_far"].WalkingTime,
		"bãi thua vẫn gần hơn thật")
}

func TestPredictCostTieBreaksOnLowestLotID(t *testing.T) {
	f := newParkingFixture(fixedRandom(0.5), 12)

	dest := domain.Location{Lat: 12.9756, Lng: 77.6050}
	lotB := newTestLot("lot_b")
	lotB.Location = dest
	lotA := lotB
	lotA.LotID = "lot_a"
	f.state.Put(lotB)
	f.state.Put(lotA)

	resp, err := f.svc.PredictCost(context.Background(), domain.ParkingRequest{
		CurrentLocation: domain.Location{Lat: 12.9352, Lng: 77.6245},
		Destination:     dest,
	})
	require.NoError(t, err)
	assert.Equal(t, "lot_a", resp.OptimalLot, "chi phí bằng nhau thì lấy lot_id nhỏ nhất")
}

func TestPredictCostSkipsLotsThatFailEstimation(t *testing.T) {
	f := newParkingFixture(fixedRandom(0.5), 12)

	dest := domain.Location{Lat: 12.9756, Lng: 77.6050}
	broken := newTestLot("lot_a")
	broken.Location = dest
	broken.TotalSlots = 0 // không tính được chi phí

	ok := newTestLot("lot_b")
	ok.Location = dest

	f.state.Put(broken)
	f.state.Put(ok)

	resp, err := f.svc.PredictCost(context.Background(), domain.ParkingRequest{
		CurrentLocation: domain.Location{Lat: 12.9352, Lng: 77.6245},
		Destination:     dest,
	})
	require.NoError(t, err)
	assert.Equal(t, "lot_b", resp.OptimalLot)
	assert.Len(t, resp.Costs, 1)
	assert.NotContains(t, resp.Costs, "lot_a")
}

func TestPredictCostNoLotsAvailable(t *testing.T) {
	f := newParkingFixture(fixedRandom(0.5), 12)

	req := domain.ParkingRequest{
		CurrentLocation: domain.Location{Lat: 12.9352, Lng: 77.6245},
		Destination:     domain.Location{Lat: 12.9756, Lng: 77.6050},
	}
	_, err := f.svc.PredictCost(context.Background(), req)
	assert.ErrorIs(t, err, ErrNoLotsAvailable)

	// Chỉ toàn bãi lỗi cũng coi như không có bãi
	broken := newTestLot("lot_a")
	broken.TotalSlots = 0
	f.state.Put(broken)
	_, err = f.svc.PredictCost(context.Background(), req)
	assert.ErrorIs(t, err, ErrNoLotsAvailable)
}

func TestPredictCostValidatesRequestCoordinates(t *testing.T) {
	f := newParkingFixture(fixedRandom(0.5), 12)
	f.state.Put(newTestLot("lot_001"))

	_, err := f.svc.PredictCost(context.Background(), domain.ParkingRequest{
		CurrentLocation: domain.Location{Lat: 91, Lng: 0},
		Destination:     domain.Location{Lat: 12.9756, Lng: 77.6050},
	})
	assert.ErrorIs(t, err, ErrInvalidCoordinates)
}

func TestReserveFirstRequestAccepted(t *testing.T) {
	f := newParkingFixture(fixedRandom(0.1), 12)
	f.state.Put(newTestLot("lot_001")) // Pa=0.9

	resp, err := f.svc.Reserve(context.Background(), domain.ReservationRequestDTO{LotID: "lot_001", UserID: "user_1"})
	require.NoError(t, err)

	assert.True(t, resp.Outcome.Accepted)
	assert.Equal(t, domain.SlotTypeReserved, resp.Outcome.SlotType)
	assert.Equal(t, 0.9, resp.Outcome.Pa)
	assert.Equal(t, 7, resp.Outcome.Tdl)
	assert.NotEmpty(t, resp.ReservationID)
	assert.Equal(t, time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC), resp.Timestamp)

	// Outcome loại R đã được đối soát vào state
	lot, err := f.state.Get("lot_001")
	require.NoError(t, err)
	assert.Equal(t, 4, lot.ReservedSlots)
	assert.Equal(t, 4, lot.CompetitiveSlots)
	assert.Equal(t, 1, f.lotRepo.counterUpdates["lot_001"])

	// Reservation log và notification đều được ghi
	require.Len(t, f.resvRepo.created, 1)
	assert.True(t, f.resvRepo.created[0].FirstRequest)
	assert.Equal(t, "user_1", f.resvRepo.created[0].UserID.String)
	require.Len(t, f.notifier.reservations, 1)
	assert.Equal(t, "reservation_update", f.notifier.reservations[0].Type)
}

func TestReserveSecondRequestConsumesPool(t *testing.T) {
	f := newParkingFixture(fixedRandom(0.99), 12)
	f.state.Put(newTestLot("lot_001")) // AvailableR=3

	second := false
	resp, err := f.svc.Reserve(context.Background(), domain.ReservationRequestDTO{LotID: "lot_001", FirstRequest: &second})
	require.NoError(t, err)

	assert.True(t, resp.Outcome.Accepted)
	lot, err := f.state.Get("lot_001")
	require.NoError(t, err)
	assert.Equal(t, 2, lot.AvailableR)

	require.Len(t, f.resvRepo.created, 1)
	assert.False(t, f.resvRepo.created[0].FirstRequest)
}

func TestReserveMissingLotID(t *testing.T) {
	f := newParkingFixture(fixedRandom(0.5), 12)
	_, err := f.svc.Reserve(context.Background(), domain.ReservationRequestDTO{})
	assert.Error(t, err)
}

func TestReserveUnknownLotStillReturnsOutcome(t *testing.T) {
	f := newParkingFixture(fixedRandom(0.5), 12)

	resp, err := f.svc.Reserve(context.Background(), domain.ReservationRequestDTO{LotID: "lot_missing"})
	require.NoError(t, err)
	assert.True(t, resp.Outcome.Accepted, "0.5 <= Pa mặc định 0.8")
	assert.Equal(t, DefaultPa, resp.Outcome.Pa)
	assert.Equal(t, DefaultTdl, resp.Outcome.Tdl)
	require.Len(t, f.resvRepo.created, 1)
}

func TestApplySensorReadingPersistsAndNotifies(t *testing.T) {
	f := newParkingFixture(fixedRandom(0.5), 12)
	f.state.Put(newTestLot("lot_001"))

	updated, err := f.svc.ApplySensorReading(context.Background(), domain.SensorReading{
		SlotID:    "s7",
		LotID:     "lot_001",
		Distance:  12.5,
		Timestamp: "2026-08-29T09:30:00Z",
		Status:    domain.SensorStatusOccupied,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.OccupiedSlots)

	require.Len(t, f.sensorRepo.created, 1)
	saved := f.sensorRepo.created[0]
	assert.Equal(t, "s7", saved.SlotID)
	assert.Equal(t, 12.5, saved.Distance)
	assert.Equal(t, time.Date(2026, 8, 29, 9, 30, 0, 0, time.UTC), saved.Timestamp)

	require.Len(t, f.notifier.sensors, 1)
	assert.Equal(t, "sensor_update", f.notifier.sensors[0].Type)
	assert.Equal(t, 3, f.notifier.sensors[0].OccupiedSlots)
	assert.Equal(t, 1, f.lotRepo.counterUpdates["lot_001"])
}

func TestApplySensorReadingBadTimestampUsesClock(t *testing.T) {
	f := newParkingFixture(fixedRandom(0.5), 12)
	f.state.Put(newTestLot("lot_001"))

	_, err := f.svc.ApplySensorReading(context.Background(), domain.SensorReading{
		SlotID: "s7", LotID: "lot_001", Timestamp: "not-a-timestamp", Status: domain.SensorStatusFree,
	})
	require.NoError(t, err)
	require.Len(t, f.sensorRepo.created, 1)
	assert.Equal(t, time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC), f.sensorRepo.created[0].Timestamp)
}

func TestApplySensorReadingRejectsInvalidStatus(t *testing.T) {
	f := newParkingFixture(fixedRandom(0.5), 12)
	f.state.Put(newTestLot("lot_001"))

	_, err := f.svc.ApplySensorReading(context.Background(), domain.SensorReading{
		SlotID: "s7", LotID: "lot_001", Status: "parked",
	})
	assert.Error(t, err)
	assert.Empty(t, f.sensorRepo.created)
}

func TestParkingServiceSensorReadingUnknownLot(t *testing.T) {
	f := newParkingFixture(fixedRandom(0.5), 12)
	_, err := f.svc.ApplySensorReading(context.Background(), domain.SensorReading{
		SlotID: "s7", LotID: "lot_missing", Status: domain.SensorStatusFree,
	})
	assert.ErrorIs(t, err, ErrLotNotFound)
}

func TestCreateParkingLotAppliesDefaults(t *testing.T) {
	f := newParkingFixture(fixedRandom(0.5), 12)

	created, err := f.svc.CreateParkingLot(context.Background(), domain.ParkingLotDTO{
		LotID:         "lot_new",
		Name:          "Bãi mới",
		Location:      domain.Location{Lat: 12.97, Lng: 77.60},
		TotalSlots:    20,
		ReservedSlots: 4,
		HourlyRate:    60,
	})
	require.NoError(t, err)

	assert.Equal(t, DefaultPa, created.Pa)
	assert.Equal(t, DefaultTdl, created.Tdl)
	assert.Equal(t, 4, created.AvailableR, "available_r khởi tạo bằng reserved_slots")
	assert.Equal(t, 16, created.CompetitiveSlots)

	got, err := f.state.Get("lot_new")
	require.NoError(t, err)
	assert.Equal(t, created.LotID, got.LotID)
}

func TestGetLotReloadsFromRepositoryOnMiss(t *testing.T) {
	f := newParkingFixture(fixedRandom(0.5), 12)

	stored := newTestLot("lot_db")
	f.lotRepo.stored["lot_db"] = stored

	lot, err := f.svc.GetLot(context.Background(), "lot_db")
	require.NoError(t, err)
	assert.Equal(t, "lot_db", lot.LotID)

	// Bãi đã vào state store, lần sau không cần DB nữa
	_, err = f.state.Get("lot_db")
	assert.NoError(t, err)

	_, err = f.svc.GetLot(context.Background(), "lot_missing")
	assert.ErrorIs(t, err, ErrLotNotFound)
}

func TestAnalytics(t *testing.T) {
	f := newParkingFixture(fixedRandom(0.5), 12)
	lot := newTestLot("lot_001") // total 10, occupied 2, reserved 3, Pa 0.9
	f.state.Put(lot)

	analytics := f.svc.Analytics(context.Background())
	require.Contains(t, analytics, "lot_001")
	a := analytics["lot_001"]
	assert.Equal(t, 0.5, a.Utilization)
	assert.Equal(t, 0.45, a.Efficiency)
	assert.Equal(t, 0.9, a.Pa)
	assert.Equal(t, 50.0, a.HourlyRate)
}
