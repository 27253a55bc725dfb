package service

import (
	"log"
	"math/rand"
	"sync"
	"time"

	"smart_parking/internal/domain"
)

// Tham số mặc định khi lot_id chưa được đăng ký: giao thức vẫn phải trả về
// một outcome thay vì lỗi.
const (
	DefaultPa  = 0.8
	DefaultTdl = 5
)

// RandomSource cấp số ngẫu nhiên đều trong [0,1). Tách thành interface để
// quyết định first-chance kiểm thử được một cách tất định.
type RandomSource interface {
	Uniform() float64
}

type lockedRandSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandomSource() RandomSource {
	return &lockedRandSource{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (s *lockedRandSource) Uniform() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// CRParkService chạy giao thức đặt chỗ hai lượt (CRPark):
//   - Lượt một: chấp nhận xác suất theo Pa của bãi. Trượt thì caller còn
//     Tdl giây để gửi lượt hai.
//   - Lượt hai: chấp nhận tất định nếu pool reserved còn chỗ (available_r > 0),
//     trừ counter nguyên tử; hết chỗ thì rơi về đỗ cạnh tranh.
//
// Ngoài counter available_r, giao thức không giữ trạng thái nào giữa các request.
type CRParkService struct {
	state  *LotStateStore
	random RandomSource
}

func NewCRParkService(state *LotStateStore, random RandomSource) *CRParkService {
	if random == nil {
		random = NewRandomSource()
	}
	return &CRParkService{state: state, random: random}
}

// ProcessReservation luôn trả về một outcome; lot_id lạ dùng tham số mặc định.
// Việc kiểm tra deadline Tdl của lượt hai là trách nhiệm của caller.
func (s *CRParkService) ProcessReservation(lotID string, firstRequest bool) domain.ReservationOutcome {
	pa, tdl, found := s.state.ReservationParams(lotID)
	if !found {
		log.Printf("CRPark: bãi '%s' chưa đăng ký, dùng tham số mặc định (Pa=%.2f, Tdl=%d)", lotID, DefaultPa, DefaultTdl)
		pa, tdl = DefaultPa, DefaultTdl
	}

	outcome := domain.ReservationOutcome{
		Accepted: false,
		SlotType: domain.SlotTypeCompetitive,
		Pa:       pa,
		Tdl:      tdl,
	}

	if firstRequest {
		if u := s.random.Uniform(); u <= pa {
			outcome.Accepted = true
			outcome.SlotType = domain.SlotTypeReserved
		}
		return outcome
	}

	// Lượt hai: chỉ available_r bị mutate, và chỉ khi được chấp nhận.
	if s.state.ConsumeReservedSlot(lotID) {
		outcome.Accepted = true
		outcome.SlotType = domain.SlotTypeReserved
	}
	return outcome
}
