package service

import (
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"smart_parking/internal/domain"
)

var ErrLotNotFound = errors.New("không tìm thấy bãi đỗ")

// lotEntry gói một ParkingLot cùng mutex riêng của nó. Mọi mutation trên một
// bãi đều serialize qua mutex này; các bãi khác nhau không chặn lẫn nhau.
type lotEntry struct {
	mu  sync.Mutex
	lot domain.ParkingLot
}

// LotStateStore sở hữu toàn bộ bản ghi ParkingLot đang sống và là điểm ghi
// duy nhất cho các counter chỗ đỗ. Các component khác chỉ đọc bản copy.
type LotStateStore struct {
	mu   sync.RWMutex // bảo vệ map; khóa từng bãi nằm trong lotEntry
	lots map[string]*lotEntry
}

func NewLotStateStore() *LotStateStore {
	return &LotStateStore{lots: make(map[string]*lotEntry)}
}

// Put thêm hoặc thay một bãi. competitive_slots luôn được tính lại từ các
// counter còn lại để không bao giờ drift; available_r bị kẹp vào
// [0, reserved_slots] để dữ liệu hỏng không cấp quá pool đặt trước.
func (s *LotStateStore) Put(lot domain.ParkingLot) {
	lot.CompetitiveSlots = maxInt(lot.TotalSlots-lot.ReservedSlots-lot.OccupiedSlots, 0)
	if lot.AvailableR < 0 {
		lot.AvailableR = 0
	}
	if lot.AvailableR > lot.ReservedSlots {
		lot.AvailableR = lot.ReservedSlots
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.lots[lot.LotID]; ok {
		entry.mu.Lock()
		entry.lot = lot
		entry.mu.Unlock()
		return
	}
	s.lots[lot.LotID] = &lotEntry{lot: lot}
}

// Load nạp danh sách bãi (thường là từ DB lúc khởi động).
func (s *LotStateStore) Load(lots []domain.ParkingLot) {
	for _, lot := range lots {
		s.Put(lot)
	}
}

func (s *LotStateStore) entry(lotID string) (*lotEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.lots[lotID]
	return entry, ok
}

// Get trả về bản copy của một bãi.
func (s *LotStateStore) Get(lotID string) (domain.ParkingLot, error) {
	entry, ok := s.entry(lotID)
	if !ok {
		return domain.ParkingLot{}, ErrLotNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.lot, nil
}

// Snapshot copy từng bãi dưới khóa riêng của nó, không giữ khóa toàn cục nào
// trong lúc copy, rồi sắp theo lot_id cho kết quả ổn định.
func (s *LotStateStore) Snapshot() []domain.ParkingLot {
	s.mu.RLock()
	entries := make([]*lotEntry, 0, len(s.lots))
	for _, entry := range s.lots {
		entries = append(entries, entry)
	}
	s.mu.RUnlock()

	lots := make([]domain.ParkingLot, 0, len(entries))
	for _, entry := range entries {
		entry.mu.Lock()
		lots = append(lots, entry.lot)
		entry.mu.Unlock()
	}
	sort.Slice(lots, func(i, j int) bool { return lots[i].LotID < lots[j].LotID })
	return lots
}

// ApplySensorReading cập nhật occupied_slots theo một lần đo và tính lại
// competitive_slots. Đã đầy thì reading "occupied" là no-op; đã trống thì
// reading "free" là no-op. reserved_slots không bao giờ bị sensor đụng tới.
func (s *LotStateStore) ApplySensorReading(reading domain.SensorReading) (domain.ParkingLot, error) {
	entry, ok := s.entry(reading.LotID)
	if !ok {
		return domain.ParkingLot{}, ErrLotNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	lot := &entry.lot

	switch reading.Status {
	case domain.SensorStatusOccupied:
		if lot.OccupiedSlots < lot.TotalSlots-lot.ReservedSlots {
			lot.OccupiedSlots++
		}
	case domain.SensorStatusFree:
		if lot.OccupiedSlots > 0 {
			lot.OccupiedSlots--
		}
	}

	lot.CompetitiveSlots = maxInt(lot.TotalSlots-lot.ReservedSlots-lot.OccupiedSlots, 0)
	lot.UpdatedAt = time.Now().UTC()
	return *lot, nil
}

// ApplyReservationOutcome chuyển một slot từ pool cạnh tranh sang pool đặt
// trước khi một reservation loại R được chấp nhận. Hết slot cạnh tranh thì
// clamp thành no-op thay vì phá bất biến tổng.
func (s *LotStateStore) ApplyReservationOutcome(lotID string, outcome domain.ReservationOutcome) (domain.ParkingLot, error) {
	entry, ok := s.entry(lotID)
	if !ok {
		return domain.ParkingLot{}, ErrLotNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	lot := &entry.lot

	if outcome.Accepted && outcome.SlotType == domain.SlotTypeReserved {
		if lot.CompetitiveSlots > 0 {
			lot.ReservedSlots++
			lot.CompetitiveSlots = maxInt(lot.TotalSlots-lot.ReservedSlots-lot.OccupiedSlots, 0)
			lot.UpdatedAt = time.Now().UTC()
		} else {
			log.Printf("Bãi %s không còn slot cạnh tranh để chuyển sang reserved, bỏ qua cập nhật", lotID)
		}
	}
	return *lot, nil
}

// ReservationParams đọc (Pa, Tdl) của một bãi cho giao thức CRPark.
func (s *LotStateStore) ReservationParams(lotID string) (pa float64, tdl int, found bool) {
	entry, ok := s.entry(lotID)
	if !ok {
		return 0, 0, false
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.lot.Pa, entry.lot.Tdl, true
}

// ConsumeReservedSlot giảm available_r một cách nguyên tử nếu còn. Hai second
// request đua nhau slot cuối thì đúng một request thắng nhờ khóa của bãi.
func (s *LotStateStore) ConsumeReservedSlot(lotID string) bool {
	entry, ok := s.entry(lotID)
	if !ok {
		return false
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.lot.AvailableR > 0 {
		entry.lot.AvailableR--
		return true
	}
	return false
}

// UpdateParams ghi Pa/Rs mới từ optimizer, clamp về [0,1].
func (s *LotStateStore) UpdateParams(lotID string, pa, rs float64) error {
	entry, ok := s.entry(lotID)
	if !ok {
		return ErrLotNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.lot.Pa = clamp(pa, 0, 1)
	entry.lot.Rs = clamp(rs, 0, 1)
	entry.lot.UpdatedAt = time.Now().UTC()
	return nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
